package app

import (
	"net/http/httptest"
	"testing"
)

func newHTTPTestServer(t *testing.T, a *App) string {
	t.Helper()
	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)
	return server.URL
}
