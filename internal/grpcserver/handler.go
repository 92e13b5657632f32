package grpcserver

import (
	"context"
	"encoding/json"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
	"github.com/patric-chuzhbe/thesiscomments/internal/auth"
	"github.com/patric-chuzhbe/thesiscomments/internal/grpcserver/interceptor"
	"github.com/patric-chuzhbe/thesiscomments/internal/models"
)

type commentService interface {
	CreateUser(ctx context.Context, rawUsername string) (string, string, error)
	UserExists(ctx context.Context, rawUsername string) (string, bool, error)
	PostComment(ctx context.Context, username, threadID, rawText string) (models.CommentEntry, error)
	DeleteComment(ctx context.Context, username, threadID, commentID string) (bool, error)
	ListComments(ctx context.Context, threadID string) (*models.ThreadListing, error)
}

// CommentsHandler adapts the service to CommentServiceServer.
type CommentsHandler struct {
	svc commentService
}

func NewCommentsHandler(svc commentService) *CommentsHandler {
	return &CommentsHandler{svc: svc}
}

func (h *CommentsHandler) CreateUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, token, err := h.svc.CreateUser(ctx, stringField(req, "username"))
	if err != nil {
		return nil, interceptor.Status(err)
	}
	return toStruct(models.CreateUserResponse{Username: username, Token: token})
}

func (h *CommentsHandler) UserExists(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, exists, err := h.svc.UserExists(ctx, stringField(req, "username"))
	if err != nil {
		return nil, interceptor.Status(err)
	}
	return toStruct(models.UserExistsResponse{Username: username, Exists: exists})
}

func (h *CommentsHandler) Me(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	username, ok := auth.UsernameFromContext(ctx)
	if !ok {
		return nil, interceptor.Status(apperr.ErrMissingToken)
	}
	return toStruct(models.MeResponse{Username: username})
}

func (h *CommentsHandler) ListComments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	listing, err := h.svc.ListComments(ctx, stringField(req, "threadId"))
	if err != nil {
		return nil, interceptor.Status(err)
	}
	return toStruct(listing)
}

func (h *CommentsHandler) PostComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, ok := auth.UsernameFromContext(ctx)
	if !ok {
		return nil, interceptor.Status(apperr.ErrMissingToken)
	}

	comment, err := h.svc.PostComment(ctx, username, stringField(req, "threadId"), stringField(req, "text"))
	if err != nil {
		return nil, interceptor.Status(err)
	}
	return toStruct(models.PostCommentResponse{OK: true, Comment: comment})
}

func (h *CommentsHandler) DeleteComment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, ok := auth.UsernameFromContext(ctx)
	if !ok {
		return nil, interceptor.Status(apperr.ErrMissingToken)
	}

	deleted, err := h.svc.DeleteComment(ctx, username, stringField(req, "threadId"), stringField(req, "commentId"))
	if err != nil {
		return nil, interceptor.Status(err)
	}
	return toStruct(models.DeleteCommentResponse{OK: true, Deleted: deleted})
}

// stringField reads key the way the HTTP API reads JSON bodies: absent and
// null are empty, numbers and booleans are formatted.
func stringField(req *structpb.Struct, key string) string {
	value, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	switch kind := value.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(kind.BoolValue)
	case *structpb.Value_NullValue:
		return ""
	default:
		encoded, _ := json.Marshal(value.AsInterface())
		return string(encoded)
	}
}

// toStruct converts a response model through its JSON form so field names
// match the HTTP API.
func toStruct(payload any) (*structpb.Struct, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, interceptor.Status(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, interceptor.Status(err)
	}
	result, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, interceptor.Status(err)
	}
	return result, nil
}
