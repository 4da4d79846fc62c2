package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "prodsheet.v1.ProductionService"

// Full method names, as clients pass them to grpc.ClientConn.Invoke.
const (
	MethodSubmitUpload = "/" + ServiceName + "/SubmitUpload"
	MethodListItems    = "/" + ServiceName + "/ListItems"
	MethodReset        = "/" + ServiceName + "/Reset"
	MethodExportItems  = "/" + ServiceName + "/ExportItems"
	MethodListUploads  = "/" + ServiceName + "/ListUploads"
)

// ProductionServiceServer is the server API for the production service.
// Messages are well-known protobuf types so no generated code is needed.
type ProductionServiceServer interface {
	SubmitUpload(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	ListItems(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reset(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ExportItems(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	ListUploads(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var _ ProductionServiceServer = (*ProductionServer)(nil)

// RegisterProductionServiceServer registers srv on s.
func RegisterProductionServiceServer(s grpc.ServiceRegistrar, srv ProductionServiceServer) {
	s.RegisterService(&ProductionServiceDesc, srv)
}

// ProductionServiceDesc is the grpc.ServiceDesc for the production service.
var ProductionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProductionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitUpload", Handler: submitUploadHandler},
		{MethodName: "ListItems", Handler: emptyHandler(MethodListItems, ProductionServiceServer.ListItems)},
		{MethodName: "Reset", Handler: emptyHandler(MethodReset, ProductionServiceServer.Reset)},
		{MethodName: "ExportItems", Handler: emptyHandler(MethodExportItems, ProductionServiceServer.ExportItems)},
		{MethodName: "ListUploads", Handler: emptyHandler(MethodListUploads, ProductionServiceServer.ListUploads)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "prodsheet/v1/production.proto",
}

func submitUploadHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProductionServiceServer).SubmitUpload(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodSubmitUpload}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProductionServiceServer).SubmitUpload(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// emptyHandler adapts a method taking google.protobuf.Empty.
func emptyHandler[T any](fullMethod string, call func(ProductionServiceServer, context.Context, *emptypb.Empty) (T, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ProductionServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ProductionServiceServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}
