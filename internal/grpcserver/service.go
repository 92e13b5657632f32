package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "comments.CommentService"

// Full method names, as seen by interceptors.
const (
	MethodCreateUser    = "/" + ServiceName + "/CreateUser"
	MethodUserExists    = "/" + ServiceName + "/UserExists"
	MethodMe            = "/" + ServiceName + "/Me"
	MethodListComments  = "/" + ServiceName + "/ListComments"
	MethodPostComment   = "/" + ServiceName + "/PostComment"
	MethodDeleteComment = "/" + ServiceName + "/DeleteComment"
)

// AllMethods lists every method of the service.
var AllMethods = []string{
	MethodCreateUser,
	MethodUserExists,
	MethodMe,
	MethodListComments,
	MethodPostComment,
	MethodDeleteComment,
}

// AuthenticatedMethods require a bearer token in the "authorization" metadata.
var AuthenticatedMethods = []string{
	MethodMe,
	MethodPostComment,
	MethodDeleteComment,
}

// CommentServiceServer is implemented by CommentsHandler. Requests and
// responses are Structs carrying the same fields as the HTTP JSON bodies.
type CommentServiceServer interface {
	CreateUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UserExists(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Me(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListComments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	PostComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(srv CommentServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CommentServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CommentServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the comments service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CommentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateUser",
			Handler:    unaryHandler(MethodCreateUser, CommentServiceServer.CreateUser),
		},
		{
			MethodName: "UserExists",
			Handler:    unaryHandler(MethodUserExists, CommentServiceServer.UserExists),
		},
		{
			MethodName: "Me",
			Handler:    unaryHandler(MethodMe, CommentServiceServer.Me),
		},
		{
			MethodName: "ListComments",
			Handler:    unaryHandler(MethodListComments, CommentServiceServer.ListComments),
		},
		{
			MethodName: "PostComment",
			Handler:    unaryHandler(MethodPostComment, CommentServiceServer.PostComment),
		},
		{
			MethodName: "DeleteComment",
			Handler:    unaryHandler(MethodDeleteComment, CommentServiceServer.DeleteComment),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "comments.proto",
}

// RegisterCommentServiceServer registers srv on s.
func RegisterCommentServiceServer(s grpc.ServiceRegistrar, srv CommentServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// CommentServiceClient calls the comments service over conn.
type CommentServiceClient struct {
	conn grpc.ClientConnInterface
}

func NewCommentServiceClient(conn grpc.ClientConnInterface) *CommentServiceClient {
	return &CommentServiceClient{conn: conn}
}

// Call invokes fullMethod with fields as the request.
func (c *CommentServiceClient) Call(ctx context.Context, fullMethod string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
