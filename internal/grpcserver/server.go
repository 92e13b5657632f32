// Package grpcserver exposes the comment service over gRPC. Messages are
// google.protobuf.Struct values with the same fields as the HTTP JSON bodies.
package grpcserver

import (
	"net"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/thesiscomments/internal/grpcserver/interceptor"
)

func NewGRPCServer(
	addr string,
	handler CommentServiceServer,
	verifier interceptor.TokenVerifier,
) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	authInterceptor := interceptor.NewAuthInterceptor(verifier)

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor(AllMethods),
			authInterceptor.UnaryAuthInterceptor(AuthenticatedMethods),
		),
	)
	RegisterCommentServiceServer(server, handler)

	return server, lis, nil
}
