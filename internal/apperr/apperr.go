// Package apperr defines the error taxonomy shared by every layer of the service.
// Components return *Error values; transports translate them exactly once into
// their own status codes and the uniform {ok:false,error:code} envelope.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindQuota
	KindConflict
	KindConfig
)

// Machine-readable codes returned to clients.
const (
	CodeInvalidJSON       = "invalid_json"
	CodeInvalidUsername   = "invalid_username"
	CodeInvalidThread     = "invalid_thread"
	CodeTextRequired      = "text_required"
	CodeTextTooLong       = "text_too_long"
	CodeCommentIDRequired = "comment_id_required"
	CodeMissingToken      = "missing_token"
	CodeInvalidToken      = "invalid_token"
	CodeUserNotFound      = "user_not_found"
	CodeTooManyComments   = "too_many_comments"
	CodeWriteConflict     = "write_conflict"
	CodeAuthSecretNotSet  = "auth_secret_not_set"
	CodeNotFound          = "not_found"
	CodeInternal          = "internal_error"
)

// Error is a classified application error.
type Error struct {
	Kind Kind
	Code string
	// Err is the underlying cause, if any. It is never shown to clients.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports equality by kind and code so sentinel values below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Err: cause}
}

var (
	ErrInvalidJSON       = &Error{Kind: KindValidation, Code: CodeInvalidJSON}
	ErrInvalidUsername   = &Error{Kind: KindValidation, Code: CodeInvalidUsername}
	ErrInvalidThread     = &Error{Kind: KindValidation, Code: CodeInvalidThread}
	ErrTextRequired      = &Error{Kind: KindValidation, Code: CodeTextRequired}
	ErrTextTooLong       = &Error{Kind: KindValidation, Code: CodeTextTooLong}
	ErrCommentIDRequired = &Error{Kind: KindValidation, Code: CodeCommentIDRequired}
	ErrMissingToken      = &Error{Kind: KindAuth, Code: CodeMissingToken}
	ErrInvalidToken      = &Error{Kind: KindAuth, Code: CodeInvalidToken}
	ErrUserNotFound      = &Error{Kind: KindNotFound, Code: CodeUserNotFound}
	ErrTooManyComments   = &Error{Kind: KindQuota, Code: CodeTooManyComments}
	ErrWriteConflict     = &Error{Kind: KindConflict, Code: CodeWriteConflict}
	ErrAuthSecretNotSet  = &Error{Kind: KindConfig, Code: CodeAuthSecretNotSet}
	ErrNotFound          = &Error{Kind: KindNotFound, Code: CodeNotFound}
)

// From extracts the classified error from err's chain. Unclassified errors are
// reported as KindInternal with the generic code.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: KindInternal, Code: CodeInternal, Err: err}
}
