package production

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/common"
	"github.com/joseph-ayodele/production-tracker/internal/entity"
	"github.com/joseph-ayodele/production-tracker/internal/export"
	"github.com/joseph-ayodele/production-tracker/internal/pipeline"
	"github.com/joseph-ayodele/production-tracker/internal/repository"
	"github.com/joseph-ayodele/production-tracker/internal/sanitize"
)

// Config bounds a single upload.
type Config struct {
	MaxUploadBytes int           // default constants.MaxUploadBytesDefault
	Timeout        time.Duration // overall deadline per upload; 0 disables
}

// Service handles production sheet business logic.
type Service struct {
	cfg      Config
	pipeline *pipeline.Pipeline
	items    repository.ItemRepository
	uploads  repository.UploadRepository
	exporter *export.Service
	logger   *slog.Logger
}

// NewService creates a new production service.
func NewService(cfg Config, p *pipeline.Pipeline, items repository.ItemRepository, uploads repository.UploadRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = constants.MaxUploadBytesDefault
	}
	return &Service{
		cfg:      cfg,
		pipeline: p,
		items:    items,
		uploads:  uploads,
		exporter: export.NewService(items, logger),
		logger:   logger,
	}
}

// UploadResult summarizes one accepted upload.
type UploadResult struct {
	UploadID       uuid.UUID
	ItemsSaved     int
	ParsingMethod  constants.ParsingMethod
	ProcessingTime time.Duration
	RejectedCount  int
}

// Document renders the result with processing_time in seconds.
func (r UploadResult) Document() map[string]any {
	return map[string]any{
		"upload_id":       r.UploadID,
		"items_saved":     r.ItemsSaved,
		"parsing_method":  string(r.ParsingMethod),
		"processing_time": r.ProcessingTime.Seconds(),
		"rejected_count":  r.RejectedCount,
	}
}

// ResetResult reports how many items a reset removed.
type ResetResult struct {
	DeletedCount int
}

// SubmitUpload runs one workbook through the pipeline and stores the accepted
// items atomically. Errors match common.ErrUnsupportedFile,
// common.ErrUploadTooLarge or common.ErrMalformedWorkbook; a cancelled or
// expired context stores nothing.
func (s *Service) SubmitUpload(ctx context.Context, filename string, data []byte) (UploadResult, error) {
	start := time.Now()
	filename = filepath.Base(strings.TrimSpace(filename))

	v := common.NewValidator()
	v.Field("filename", filename, common.MaxLength(255), common.WorkbookFilename)
	v.Field("data", len(data), common.MaxBytes(s.cfg.MaxUploadBytes))
	if err := v.Err(); err != nil {
		s.logger.Warn("upload rejected", "filename", filename, "size_bytes", len(data), "error", err)
		return UploadResult{}, err
	}

	ctx, cancel := common.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	sum := sha256.Sum256(data)
	up := &entity.Upload{
		Filename:    filename,
		ContentHash: hex.EncodeToString(sum[:]),
		SizeBytes:   int64(len(data)),
	}
	if err := s.uploads.Start(ctx, up); err != nil {
		return UploadResult{}, fmt.Errorf("record upload: %w", err)
	}
	ctx = common.WithUploadID(ctx, up.ID.String())

	res, err := s.pipeline.Process(ctx, pipeline.Upload{ID: up.ID, Filename: filename, Data: data})
	if err != nil {
		s.fail(ctx, up.ID, err, start)
		return UploadResult{}, err
	}

	if err := s.items.InsertBatch(ctx, res.Items); err != nil {
		s.fail(ctx, up.ID, err, start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return UploadResult{}, ctxErr
		}
		return UploadResult{}, fmt.Errorf("store items: %w", err)
	}

	elapsed := time.Since(start)
	mapping, _ := json.Marshal(res.Mapping)
	if err := s.uploads.Finish(context.WithoutCancel(ctx), up.ID, repository.UploadOutcome{
		ParsingMethod: res.ParsingMethod,
		ItemsSaved:    len(res.Items),
		RejectedCount: res.RejectedCount,
		ColumnMapping: mapping,
		Elapsed:       elapsed,
	}); err != nil {
		// Items are committed; the history row is bookkeeping.
		s.logger.Error("upload record not finalized", "upload_id", up.ID, "error", err)
	}

	s.logger.Info("upload processed",
		"upload_id", up.ID,
		"filename", filename,
		"items_saved", len(res.Items),
		"rejected", res.RejectedCount,
		"method", string(res.ParsingMethod),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return UploadResult{
		UploadID:       up.ID,
		ItemsSaved:     len(res.Items),
		ParsingMethod:  res.ParsingMethod,
		ProcessingTime: elapsed,
		RejectedCount:  res.RejectedCount,
	}, nil
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, cause error, start time.Time) {
	if err := s.uploads.Fail(context.WithoutCancel(ctx), id, cause.Error(), time.Since(start)); err != nil {
		s.logger.Error("upload failure not recorded", "upload_id", id, "error", err)
	}
}

// ListItems returns every stored item as a sanitized document, oldest first.
func (s *Service) ListItems(ctx context.Context) ([]map[string]any, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([]map[string]any, 0, len(items))
	anomalies := 0
	for _, it := range items {
		doc, n := sanitize.Document(it.Document())
		anomalies += n
		m, _ := doc.(map[string]any)
		out = append(out, m)
	}
	if anomalies > 0 {
		s.logger.Warn("list items sanitized values", "anomalies", anomalies)
	}
	return out, nil
}

// Reset deletes every stored item. Upload history is kept.
func (s *Service) Reset(ctx context.Context) (ResetResult, error) {
	n, err := s.items.DeleteAll(ctx)
	if err != nil {
		return ResetResult{}, fmt.Errorf("reset: %w", err)
	}
	s.logger.Info("items reset", "deleted", n)
	return ResetResult{DeletedCount: n}, nil
}

// ExportItems renders every stored item as an XLSX workbook.
func (s *Service) ExportItems(ctx context.Context) ([]byte, error) {
	return s.exporter.ExportItemsXLSX(ctx)
}

// ListUploads returns the upload history as sanitized documents, newest first.
func (s *Service) ListUploads(ctx context.Context) ([]map[string]any, error) {
	ups, err := s.uploads.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	out := make([]map[string]any, 0, len(ups))
	for _, u := range ups {
		out = append(out, sanitize.Map(u.Document()))
	}
	return out, nil
}
