package interceptor

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
)

// CodeFor maps an error kind onto a gRPC status code.
func CodeFor(kind apperr.Kind) codes.Code {
	switch kind {
	case apperr.KindValidation, apperr.KindQuota:
		return codes.InvalidArgument
	case apperr.KindAuth:
		return codes.Unauthenticated
	case apperr.KindNotFound:
		return codes.NotFound
	case apperr.KindConflict:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// Status converts err into a gRPC status whose message is the error code.
func Status(err error) error {
	appErr := apperr.From(err)
	code := appErr.Code
	if appErr.Kind == apperr.KindInternal {
		code = apperr.CodeInternal
	}

	grpcCode := CodeFor(appErr.Kind)
	if grpcCode == codes.Internal {
		logger.Log.Errorw("gRPC call failed", "code", code, "error", err)
	}

	return status.Error(grpcCode, code)
}
