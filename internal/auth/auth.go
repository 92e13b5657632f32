// Package auth issues and verifies the stateless bearer tokens that identify
// commenters, and provides the HTTP middleware that enforces them.
//
// A token is base64url(payload) + "." + base64url(HMAC-SHA256(payload)), where
// payload is the JSON object {"u": username, "iat": unixMillis}. Nothing is
// stored server side; rotating the secret invalidates every outstanding token.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
	"github.com/patric-chuzhbe/thesiscomments/internal/validation"
)

// Auth signs and verifies bearer tokens with a server-held secret.
type Auth struct {
	// secret is the HMAC key. An empty secret makes every sign/verify fail with a config error.
	secret []byte

	// maxAge bounds token age when positive; zero accepts tokens of any age.
	maxAge time.Duration

	now func() time.Time
}

// Payload is the signed part of a token.
type Payload struct {
	Username string `json:"u"`
	IssuedAt int64  `json:"iat"`
}

// Identity is the verified result of a token.
type Identity struct {
	Username string
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UsernameKey is the context key carrying the authenticated username.
const UsernameKey ContextKey = "username"

const bearerPrefix = "Bearer "

var signingMethod = jwt.SigningMethodHS256

// Option customizes Auth.
type Option func(*Auth)

// WithMaxAge rejects tokens older than maxAge.
func WithMaxAge(maxAge time.Duration) Option {
	return func(a *Auth) {
		a.maxAge = maxAge
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

// New creates an Auth using secret as the HMAC key.
func New(secret string, options ...Option) *Auth {
	a := &Auth{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// Issue returns a fresh token for username.
func (a *Auth) Issue(username string) (string, error) {
	if len(a.secret) == 0 {
		return "", apperr.ErrAuthSecretNotSet
	}

	payload, err := json.Marshal(Payload{
		Username: username,
		IssuedAt: a.now().UnixMilli(),
	})
	if err != nil {
		return "", err
	}

	mac, err := signingMethod.Sign(string(payload), a.secret)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(payload) + "." + mac, nil
}

// Verify checks token and returns the identity it carries.
func (a *Auth) Verify(token string) (Identity, error) {
	if len(a.secret) == 0 {
		return Identity{}, apperr.ErrAuthSecretNotSet
	}

	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return Identity{}, apperr.ErrInvalidToken
	}

	payloadBytes, err := decodeSegment(parts[0])
	if err != nil {
		return Identity{}, apperr.ErrInvalidToken.Wrap(err)
	}

	// Constant-time comparison happens inside the HMAC verifier.
	if err := signingMethod.Verify(string(payloadBytes), strings.TrimRight(parts[1], "="), a.secret); err != nil {
		return Identity{}, apperr.ErrInvalidToken.Wrap(err)
	}

	var payload Payload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return Identity{}, apperr.ErrInvalidToken.Wrap(err)
	}

	if a.maxAge > 0 && a.now().Sub(time.UnixMilli(payload.IssuedAt)) > a.maxAge {
		return Identity{}, apperr.ErrInvalidToken
	}

	username := validation.NormalizeUsername(payload.Username)
	if !validation.IsUsername(username) {
		return Identity{}, apperr.ErrInvalidToken
	}

	return Identity{Username: username}, nil
}

// FromRequest extracts and verifies the bearer token of request.
func (a *Auth) FromRequest(request *http.Request) (Identity, error) {
	token := BearerToken(request.Header.Get("Authorization"))
	if token == "" {
		return Identity{}, apperr.ErrMissingToken
	}
	return a.Verify(token)
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header value,
// or "" when the header has another shape.
func BearerToken(header string) string {
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// WithUsername stores username in ctx.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameKey, username)
}

// UsernameFromContext returns the authenticated username stored by the middleware.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok && username != ""
}

// decodeSegment accepts base64url with or without padding.
func decodeSegment(segment string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(segment, "="))
}
