package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
)

func gzipped(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func echoHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Header().Set("X-Content-Encoding", r.Header.Get("Content-Encoding"))
		_, _ = w.Write(body)
	})
}

func recordingErrorWriter(captured *error) ErrorWriter {
	return func(w http.ResponseWriter, _ *http.Request, err error) {
		*captured = err
		w.WriteHeader(http.StatusBadRequest)
	}
}

func TestDecompressRequest(t *testing.T) {
	testCases := []struct {
		name            string
		contentEncoding string
		body            func(t *testing.T) []byte
		expectedCode    int
		expectedBody    string
	}{
		{
			name:            "gzip body",
			contentEncoding: "gzip",
			body:            func(t *testing.T) []byte { return gzipped(t, `{"text":"hi"}`) },
			expectedCode:    http.StatusOK,
			expectedBody:    `{"text":"hi"}`,
		},
		{
			name:            "gzip in a list",
			contentEncoding: "identity, GZIP",
			body:            func(t *testing.T) []byte { return gzipped(t, `{}`) },
			expectedCode:    http.StatusOK,
			expectedBody:    `{}`,
		},
		{
			name:         "plain body",
			body:         func(*testing.T) []byte { return []byte(`{"text":"plain"}`) },
			expectedCode: http.StatusOK,
			expectedBody: `{"text":"plain"}`,
		},
		{
			name:            "claims gzip but is not",
			contentEncoding: "gzip",
			body:            func(*testing.T) []byte { return []byte(`{"text":"plain"}`) },
			expectedCode:    http.StatusBadRequest,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var captured error
			handler := DecompressRequest(recordingErrorWriter(&captured))(echoHandler(t))

			request := httptest.NewRequest(http.MethodPost, "/threads/t/comments", bytes.NewReader(testCase.body(t)))
			if testCase.contentEncoding != "" {
				request.Header.Set("Content-Encoding", testCase.contentEncoding)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.expectedCode, recorder.Code)
			if testCase.expectedCode == http.StatusOK {
				assert.Equal(t, testCase.expectedBody, recorder.Body.String())
				assert.Empty(t, recorder.Header().Get("X-Content-Encoding"))
				assert.NoError(t, captured)
				return
			}
			assert.True(t, errors.Is(captured, apperr.ErrInvalidJSON))
		})
	}
}

func TestEmptyGzipRequestPassesThrough(t *testing.T) {
	handler := DecompressRequest(func(http.ResponseWriter, *http.Request, error) {
		t.Fatal("unexpected error")
	})(echoHandler(t))

	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	request.Header.Set("Content-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "gzip", recorder.Header().Get("X-Content-Encoding"))
}

func TestCompressedReaderClosesUnderlyingBody(t *testing.T) {
	body := &closeTracker{Reader: bytes.NewReader(gzipped(t, "payload"))}
	reader, err := NewCompressedReader(body)
	require.NoError(t, err)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	require.NoError(t, reader.Close())
	assert.True(t, body.closed)

	_, err = NewCompressedReader(io.NopCloser(strings.NewReader("nope")))
	assert.Error(t, err)
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}
