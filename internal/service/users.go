package service

import (
	"context"

	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
	"github.com/patric-chuzhbe/thesiscomments/internal/validation"
)

// CreateUser registers rawUsername if it is new and returns the normalized
// username with a freshly issued token. Registering an existing name is not
// an error: it logs the caller in.
func (s *Service) CreateUser(ctx context.Context, rawUsername string) (string, string, error) {
	username, err := validation.Username(rawUsername)
	if err != nil {
		return "", "", err
	}

	token, err := s.tokens.Issue(username)
	if err != nil {
		return "", "", err
	}

	exists, err := s.docs.Exists(ctx, username)
	if err != nil {
		return "", "", err
	}
	if !exists {
		created, err := s.docs.Create(ctx, username)
		if err != nil {
			return "", "", err
		}
		if created {
			logger.Log.Infow("user registered", "username", username)
		}
	}

	return username, token, nil
}

// UserExists normalizes rawUsername and probes for its document.
func (s *Service) UserExists(ctx context.Context, rawUsername string) (string, bool, error) {
	username, err := validation.Username(rawUsername)
	if err != nil {
		return "", false, err
	}

	exists, err := s.docs.Exists(ctx, username)
	if err != nil {
		return "", false, err
	}

	return username, exists, nil
}
