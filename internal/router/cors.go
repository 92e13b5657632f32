package router

import (
	"net/http"

	"github.com/thoas/go-funk"
)

const (
	corsAllowMethods = "GET,POST,DELETE,OPTIONS"
	corsAllowHeaders = "content-type,authorization"
	corsMaxAge       = "86400"
)

// cors decorates every response with CORS headers and answers preflight
// requests for any path with 204.
func (myRouter *Router) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		header := response.Header()

		origin := request.Header.Get("Origin")
		if origin != "" && (len(myRouter.corsOrigins) == 0 || funk.ContainsString(myRouter.corsOrigins, origin)) {
			header.Set("Access-Control-Allow-Origin", origin)
			header.Add("Vary", "Origin")
		}
		header.Set("Access-Control-Allow-Methods", corsAllowMethods)
		header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		header.Set("Access-Control-Max-Age", corsMaxAge)

		if request.Method == http.MethodOptions {
			response.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(response, request)
	})
}
