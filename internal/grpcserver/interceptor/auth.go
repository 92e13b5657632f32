package interceptor

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
	"github.com/patric-chuzhbe/thesiscomments/internal/auth"
	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
)

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

type AuthInterceptor struct {
	verifier TokenVerifier
}

func NewAuthInterceptor(verifier TokenVerifier) *AuthInterceptor {
	return &AuthInterceptor{verifier: verifier}
}

// UnaryAuthInterceptor verifies the "authorization" metadata of the listed
// methods and attaches the username to the context. Other methods pass through.
func (a *AuthInterceptor) UnaryAuthInterceptor(protectedMethods []string) grpc.UnaryServerInterceptor {
	protected := make(map[string]struct{}, len(protectedMethods))
	for _, m := range protectedMethods {
		protected[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if _, ok := protected[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		token := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("authorization"); len(values) > 0 {
				token = auth.BearerToken(values[0])
			}
		}
		if token == "" {
			return nil, Status(apperr.ErrMissingToken)
		}

		identity, err := a.verifier.Verify(token)
		if err != nil {
			logger.Log.Debugw("gRPC bearer token rejected", "method", info.FullMethod, "error", err)
			return nil, Status(err)
		}

		return handler(auth.WithUsername(ctx, identity.Username), req)
	}
}
