package grpc

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/plant-station-service/pkg/common"
)

func (s *ReadingServer) CreateRateLimitInterceptor(targetMethods []string) grpc.UnaryServerInterceptor {
	targets := common.Reducer(targetMethods,
		func(m map[string]bool, method string) map[string]bool {
			m[method] = true
			return m
		},
		map[string]bool{},
	)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if targets[info.FullMethod] {
			if r, ok := req.(*structpb.Struct); ok {
				deviceID := stringField(r, "deviceId")
				if deviceID != "" && !s.CheckDeviceLimiter(deviceID) {
					return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded")
				}
			}
		}

		return handler(ctx, req)
	}
}

// CreateBearerInterceptor checks the authorization metadata when token is
// non-empty.
func CreateBearerInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if token == "" {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 || !strings.HasPrefix(values[0], "Bearer ") {
			return nil, status.Error(codes.Unauthenticated, "token missing")
		}
		got := strings.TrimPrefix(values[0], "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return nil, status.Error(codes.PermissionDenied, "token invalid")
		}

		return handler(ctx, req)
	}
}

// NewServer builds a grpc.Server with the reading service registered behind
// the bearer and rate limit interceptors.
func NewServer(s *ReadingServer, bearerToken string) *grpc.Server {
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		CreateBearerInterceptor(bearerToken),
		s.CreateRateLimitInterceptor([]string{ReadingServicePostReadingMethod}),
	))
	RegisterReadingServiceServer(server, s)
	return server
}
