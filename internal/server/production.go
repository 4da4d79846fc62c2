package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/production-tracker/internal/common"
	"github.com/joseph-ayodele/production-tracker/internal/sanitize"
	"github.com/joseph-ayodele/production-tracker/internal/services/production"
)

// FilenameMetadataKey carries the workbook name next to a SubmitUpload payload.
const FilenameMetadataKey = "x-filename"

// RequestIDMetadataKey lets callers pick the request id that shows up in logs.
const RequestIDMetadataKey = "x-request-id"

// ProductionAPI is what the gRPC surface needs from the production service.
type ProductionAPI interface {
	SubmitUpload(ctx context.Context, filename string, data []byte) (production.UploadResult, error)
	ListItems(ctx context.Context) ([]map[string]any, error)
	Reset(ctx context.Context) (production.ResetResult, error)
	ExportItems(ctx context.Context) ([]byte, error)
	ListUploads(ctx context.Context) ([]map[string]any, error)
}

type ProductionServer struct {
	svc    ProductionAPI
	logger *slog.Logger
}

func NewProductionServer(svc ProductionAPI, logger *slog.Logger) *ProductionServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductionServer{svc: svc, logger: logger}
}

func (s *ProductionServer) SubmitUpload(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	filename := firstMetadata(ctx, FilenameMetadataKey)
	s.logger.Info("submit upload", "filename", filename, "size_bytes", len(req.GetValue()), "req_id", common.RequestIDFromContext(ctx))

	res, err := s.svc.SubmitUpload(ctx, filename, req.GetValue())
	if err != nil {
		s.logger.Error("submit upload failed", "filename", filename, "error", err)
		return nil, common.ToStatus(err)
	}
	out, err := sanitize.ToStruct(res.Document())
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return out, nil
}

func (s *ProductionServer) ListItems(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	items, err := s.svc.ListItems(ctx)
	if err != nil {
		s.logger.Error("failed to list items", "error", err)
		return nil, common.ToStatus(err)
	}
	s.logger.Info("items listed successfully", "count", len(items))
	return listStruct("items", items)
}

func (s *ProductionServer) Reset(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	res, err := s.svc.Reset(ctx)
	if err != nil {
		s.logger.Error("failed to reset items", "error", err)
		return nil, common.ToStatus(err)
	}
	out, err := sanitize.ToStruct(map[string]any{"deleted_count": res.DeletedCount})
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return out, nil
}

func (s *ProductionServer) ExportItems(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	xlsx, err := s.svc.ExportItems(ctx)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		return nil, common.ToStatus(err)
	}
	return wrapperspb.Bytes(xlsx), nil
}

func (s *ProductionServer) ListUploads(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ups, err := s.svc.ListUploads(ctx)
	if err != nil {
		s.logger.Error("failed to list uploads", "error", err)
		return nil, common.ToStatus(err)
	}
	return listStruct("uploads", ups)
}

func listStruct(key string, docs []map[string]any) (*structpb.Struct, error) {
	list, err := sanitize.ToList(docs)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		key:     structpb.NewListValue(list),
		"total": structpb.NewNumberValue(float64(len(docs))),
	}}, nil
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(key); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

// UnaryLogging tags each call with a request id and logs its outcome.
func UnaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		rid := firstMetadata(ctx, RequestIDMetadataKey)
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, rid)
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc.call",
			"method", info.FullMethod,
			"req_id", rid,
			"ok", err == nil,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
