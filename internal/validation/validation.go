// Package validation checks the shape of usernames, thread ids, comment ids
// and comment text before they reach the service layer.
package validation

import (
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
)

const (
	MaxTextLength     = 4000
	MaxThreadIDLength = 120
)

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,31}$`)
	threadIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._\-/]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Registration only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("threadid", func(fl validator.FieldLevel) bool {
		return threadIDPattern.MatchString(fl.Field().String())
	})

	return v
}

// NormalizeUsername trims and lowercases raw.
func NormalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsUsername reports whether username is already normalized and well-formed.
func IsUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Username normalizes raw and validates the result.
func Username(raw string) (string, error) {
	username := NormalizeUsername(raw)
	if err := validate.Var(username, "username"); err != nil {
		return "", apperr.ErrInvalidUsername
	}
	return username, nil
}

// ThreadID validates a thread id. Threads are implicit so only the shape is checked.
func ThreadID(threadID string) error {
	if err := validate.Var(threadID, "required,max=120,threadid"); err != nil {
		return apperr.ErrInvalidThread
	}
	return nil
}

// CommentText trims raw and enforces the non-empty and length rules.
// Length is counted in code points.
func CommentText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", apperr.ErrTextRequired
	}
	if err := validate.Var(text, "max=4000"); err != nil {
		return "", apperr.ErrTextTooLong
	}
	return text, nil
}

// CommentID requires a non-empty comment id.
func CommentID(commentID string) error {
	if commentID == "" {
		return apperr.ErrCommentIDRequired
	}
	return nil
}
