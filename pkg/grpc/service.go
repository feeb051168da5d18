package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The reading service carries google.protobuf.Struct in both directions so
// a device can post the same JSON object it would send over HTTP.
const (
	ReadingServiceName              = "plantstation.v1.ReadingService"
	ReadingServicePostReadingMethod = "/" + ReadingServiceName + "/PostReading"
	ReadingServicePostLimiterMethod = "/" + ReadingServiceName + "/PostLimiter"
)

type ReadingServiceServer interface {
	PostReading(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	PostLimiter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(
	fullMethod string,
	call func(ReadingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReadingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReadingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ReadingServiceDesc = grpc.ServiceDesc{
	ServiceName: ReadingServiceName,
	HandlerType: (*ReadingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "PostReading",
			Handler: unaryHandler(ReadingServicePostReadingMethod,
				func(s ReadingServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
					return s.PostReading(ctx, in)
				}),
		},
		{
			MethodName: "PostLimiter",
			Handler: unaryHandler(ReadingServicePostLimiterMethod,
				func(s ReadingServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
					return s.PostLimiter(ctx, in)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "plantstation/v1/reading_service.proto",
}

func RegisterReadingServiceServer(s grpc.ServiceRegistrar, srv ReadingServiceServer) {
	s.RegisterService(&ReadingServiceDesc, srv)
}

type ReadingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewReadingServiceClient(cc grpc.ClientConnInterface) *ReadingServiceClient {
	return &ReadingServiceClient{cc: cc}
}

func (c *ReadingServiceClient) PostReading(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ReadingServicePostReadingMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReadingServiceClient) PostLimiter(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ReadingServicePostLimiterMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// NewReadingRequest builds the PostReading request body.
func NewReadingRequest(deviceID string, uid string, reading map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"deviceId": deviceID,
		"uid":      uid,
		"reading":  reading,
	})
}
