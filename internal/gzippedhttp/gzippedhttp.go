// Package gzippedhttp accepts gzip-compressed request bodies. Response
// compression is left to chi's middleware.Compress.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
)

// ErrorWriter renders a request whose body cannot be decompressed.
type ErrorWriter func(response http.ResponseWriter, request *http.Request, err error)

// CompressedReader wraps a request body and decompresses it.
type CompressedReader struct {
	r  io.ReadCloser
	zr *gzip.Reader
}

// NewCompressedReader reads the gzip header from requestBody.
func NewCompressedReader(requestBody io.ReadCloser) (*CompressedReader, error) {
	zippedRequestBody, err := gzip.NewReader(requestBody)
	if err != nil {
		return nil, err
	}

	return &CompressedReader{
		r:  requestBody,
		zr: zippedRequestBody,
	}, nil
}

func (c *CompressedReader) Read(p []byte) (n int, err error) {
	return c.zr.Read(p)
}

// Close closes both the gzip reader and the underlying body.
func (c *CompressedReader) Close() error {
	if err := c.zr.Close(); err != nil {
		_ = c.r.Close()
		return err
	}
	return c.r.Close()
}

func isGzipped(contentEncoding string) bool {
	for _, encoding := range strings.Split(contentEncoding, ",") {
		if strings.EqualFold(strings.TrimSpace(encoding), "gzip") {
			return true
		}
	}
	return false
}

// DecompressRequest replaces a "Content-Encoding: gzip" body with its
// decompressed stream. A body without a valid gzip header is rejected with
// invalid_json through writeError.
func DecompressRequest(writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		middleware := func(response http.ResponseWriter, request *http.Request) {
			if !isGzipped(request.Header.Get("Content-Encoding")) || request.Body == nil || request.Body == http.NoBody {
				h.ServeHTTP(response, request)
				return
			}

			requestBodyWithCompression, err := NewCompressedReader(request.Body)
			if err != nil {
				writeError(response, request, apperr.ErrInvalidJSON.Wrap(err))
				return
			}
			defer requestBodyWithCompression.Close()

			request.Body = requestBodyWithCompression
			request.Header.Del("Content-Encoding")
			request.ContentLength = -1

			h.ServeHTTP(response, request)
		}

		return http.HandlerFunc(middleware)
	}
}
