package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
)

// UnaryLoggingInterceptor logs each call of the listed methods with its
// duration and resulting status.
func UnaryLoggingInterceptor(loggedMethods []string) grpc.UnaryServerInterceptor {
	logged := make(map[string]struct{}, len(loggedMethods))
	for _, m := range loggedMethods {
		logged[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		if _, ok := logged[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		start := time.Now()

		resp, err = handler(ctx, req)

		st, _ := status.FromError(err)
		logger.Log.Infow(
			"gRPC request",
			"method", info.FullMethod,
			"duration", time.Since(start),
			"code", st.Code().String(),
			"message", st.Message(),
		)

		return resp, err
	}
}
