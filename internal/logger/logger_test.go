package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init("loud"))
	assert.NoError(t, Init("debug"))
}

func TestWithLoggingHTTPMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	previous := Log
	Log = zap.New(core).Sugar()
	t.Cleanup(func() { Log = previous })

	handler := WithLoggingHTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/health", fields["uri"])
	assert.Equal(t, http.MethodGet, fields["method"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.EqualValues(t, len("short and stout"), fields["size"])
}

func TestImplicitStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	previous := Log
	Log = zap.New(core).Sugar()
	t.Cleanup(func() { Log = previous })

	handler := WithLoggingHTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, 1, logs.Len())
	assert.EqualValues(t, http.StatusOK, logs.All()[0].ContextMap()["status"])
}
