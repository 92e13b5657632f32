package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New(nil)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/users/{username}/exists", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, name := range []string{"alice", "bob"} {
		req := httptest.NewRequest(http.MethodGet, "/users/"+name+"/exists", nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/users/{username}/exists", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsInFlight))
}

func TestRecorders(t *testing.T) {
	m := New(nil)

	m.RecordThreadScan(12, false)
	m.RecordThreadScan(500, true)
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	m.RecordWriteConflict()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ThreadScansTotal.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ThreadScansTotal.WithLabelValues("false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ThreadCacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentWriteConflict))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New(nil)
	m.RecordWriteConflict()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "thesiscomments_document_write_conflicts_total 1"))
}
