// Package interceptor instruments gRPC servers with the work policy.
package interceptor

import (
	"context"

	"github.com/DioGolang/GoMonitor/pkg/monitor"
	"google.golang.org/grpc"
)

// UnaryServerInterceptor records every unary RPC as a work named after the
// full method, e.g. /grpc.health.v1.Health/Check.
func UnaryServerInterceptor(policies *monitor.Policies, host, appName string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		return monitor.MonitorValue(ctx, policies.Work(host, appName, info.FullMethod), func(ctx context.Context) (interface{}, error) {
			return handler(ctx, req)
		})
	}
}

// StreamServerInterceptor records a stream from open to close.
func StreamServerInterceptor(policies *monitor.Policies, host, appName string) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		return monitor.Monitor(ss.Context(), policies.Work(host, appName, info.FullMethod), func(context.Context) error {
			return handler(srv, ss)
		})
	}
}
