package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "annotator.v1.Annotations"

// Method names.
const (
	MethodCreate = "CreateAnnotation"
	MethodUpdate = "UpdateAnnotation"
	MethodDelete = "DeleteAnnotation"
	MethodAccept = "AcceptSuggestion"
	MethodReject = "RejectSuggestion"
	MethodGet    = "GetAnnotation"
	MethodSearch = "Search"
)

// AnnotationsServer is the server API. Every message is a google.protobuf.Struct.
type AnnotationsServer interface {
	CreateAnnotation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateAnnotation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAnnotation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AcceptSuggestion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RejectSuggestion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAnnotation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Search(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(AnnotationsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(AnnotationsServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*structpb.Struct))
		})
	}
}

// FullMethod returns "/annotator.v1.Annotations/<method>".
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// ServiceDesc describes the annotations service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnnotationsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodCreate, Handler: unaryHandler(MethodCreate, AnnotationsServer.CreateAnnotation)},
		{MethodName: MethodUpdate, Handler: unaryHandler(MethodUpdate, AnnotationsServer.UpdateAnnotation)},
		{MethodName: MethodDelete, Handler: unaryHandler(MethodDelete, AnnotationsServer.DeleteAnnotation)},
		{MethodName: MethodAccept, Handler: unaryHandler(MethodAccept, AnnotationsServer.AcceptSuggestion)},
		{MethodName: MethodReject, Handler: unaryHandler(MethodReject, AnnotationsServer.RejectSuggestion)},
		{MethodName: MethodGet, Handler: unaryHandler(MethodGet, AnnotationsServer.GetAnnotation)},
		{MethodName: MethodSearch, Handler: unaryHandler(MethodSearch, AnnotationsServer.Search)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "annotator/v1/annotations.proto",
}

// RegisterAnnotationsServer registers srv on s.
func RegisterAnnotationsServer(s grpc.ServiceRegistrar, srv AnnotationsServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the annotations service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Call invokes method with in and returns the response message.
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
