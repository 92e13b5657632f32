package auth

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
)

// ErrorWriter renders an authentication failure.
type ErrorWriter func(response http.ResponseWriter, request *http.Request, err error)

// AuthenticateUser is an HTTP middleware that verifies the bearer token and
// stores the username in the request context. Requests without a valid token
// are answered through writeError and never reach h.
func (a *Auth) AuthenticateUser(writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		middleware := func(response http.ResponseWriter, request *http.Request) {
			identity, err := a.FromRequest(request)
			if err != nil {
				logger.Log.Debugw("bearer token rejected", "uri", request.RequestURI, zap.Error(err))
				writeError(response, request, err)
				return
			}

			h.ServeHTTP(response, request.WithContext(WithUsername(request.Context(), identity.Username)))
		}

		return http.HandlerFunc(middleware)
	}
}
