// Package router exposes the comment service over HTTP/JSON.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/patric-chuzhbe/thesiscomments/internal/auth"
	"github.com/patric-chuzhbe/thesiscomments/internal/gzippedhttp"
	"github.com/patric-chuzhbe/thesiscomments/internal/ipchecker"
	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
	"github.com/patric-chuzhbe/thesiscomments/internal/models"
)

type userService interface {
	CreateUser(ctx context.Context, rawUsername string) (string, string, error)

	UserExists(ctx context.Context, rawUsername string) (string, bool, error)
}

type commentService interface {
	PostComment(ctx context.Context, username, threadID, rawText string) (models.CommentEntry, error)

	DeleteComment(ctx context.Context, username, threadID, commentID string) (bool, error)

	ListComments(ctx context.Context, threadID string) (*models.ThreadListing, error)
}

type service interface {
	userService
	commentService
}

type authenticator interface {
	AuthenticateUser(writeError auth.ErrorWriter) func(http.Handler) http.Handler
}

type metricsExporter interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// Router holds the handlers of the HTTP API.
type Router struct {
	service     service
	auth        authenticator
	corsOrigins []string
	metrics     metricsExporter
	ipChecker   *ipchecker.IPChecker
	now         func() time.Time
}

// Option customizes the router.
type Option func(*Router)

// WithCORSOrigins restricts the origins echoed back in CORS headers.
// An empty list allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(r *Router) {
		r.corsOrigins = origins
	}
}

// WithMetrics instruments every request and serves GET /metrics to clients
// admitted by checker.
func WithMetrics(metrics metricsExporter, checker *ipchecker.IPChecker) Option {
	return func(r *Router) {
		r.metrics = metrics
		r.ipChecker = checker
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

// New builds the chi router with all routes and middleware.
func New(svc service, authenticator authenticator, options ...Option) *chi.Mux {
	myRouter := &Router{
		service: svc,
		auth:    authenticator,
		now:     time.Now,
	}
	for _, option := range options {
		option(myRouter)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logger.WithLoggingHTTPMiddleware,
	)
	if myRouter.metrics != nil {
		router.Use(myRouter.metrics.Middleware)
	}
	router.Use(
		recoverer,
		myRouter.cors,
		gzippedhttp.DecompressRequest(writeError),
		middleware.Compress(5, "application/json"),
	)

	router.NotFound(notFound)
	router.MethodNotAllowed(notFound)

	authenticate := myRouter.auth.AuthenticateUser(writeError)

	router.Get(`/health`, myRouter.GetHealth)
	router.Post(`/users`, myRouter.PostUsers)
	router.With(nonEmptyParams("username")).Get(`/users/{username}`, myRouter.GetUser)
	router.With(authenticate).Get(`/me`, myRouter.GetMe)

	threads := router.With(nonEmptyParams("threadId"))
	threads.Get(`/threads/{threadId}/comments`, myRouter.GetThreadComments)
	threads.With(authenticate).Post(`/threads/{threadId}/comments`, myRouter.PostThreadComments)
	router.With(nonEmptyParams("threadId", "commentId"), authenticate).
		Delete(`/threads/{threadId}/comments/{commentId}`, myRouter.DeleteThreadComment)

	if myRouter.metrics != nil && myRouter.ipChecker != nil {
		router.With(myRouter.ipChecker.TrustedOnly(http.HandlerFunc(notFound))).
			Get(`/metrics`, myRouter.metrics.Handler().ServeHTTP)
	}

	return router
}

// nonEmptyParams answers 404 when one of the named route parameters matched
// an empty path segment, as in /threads//comments.
func nonEmptyParams(names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
			for _, name := range names {
				if chi.URLParam(request, name) == "" {
					notFound(response, request)
					return
				}
			}
			next.ServeHTTP(response, request)
		})
	}
}
