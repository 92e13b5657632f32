package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
	"github.com/patric-chuzhbe/thesiscomments/internal/models"
)

const maxBodyBytes = 1 << 20

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindQuota:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(response http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorw("cannot encode response", zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"ok":false,"error":"internal_error"}`)
	}

	response.Header().Set("Content-Type", "application/json; charset=utf-8")
	response.Header().Set("Cache-Control", "no-store")
	response.WriteHeader(status)
	if _, err := response.Write(body); err != nil {
		logger.Log.Debugw("cannot write response", zap.Error(err))
	}
}

// writeError renders err as the {ok:false,error:code} envelope.
func writeError(response http.ResponseWriter, request *http.Request, err error) {
	appErr := apperr.From(err)
	status := StatusFor(appErr.Kind)

	code := appErr.Code
	if appErr.Kind == apperr.KindInternal {
		code = apperr.CodeInternal
	}

	if status >= http.StatusInternalServerError {
		logger.Log.Errorw("request failed", "uri", request.RequestURI, "method", request.Method, "code", code, zap.Error(err))
	} else {
		logger.Log.Debugw("request rejected", "uri", request.RequestURI, "method", request.Method, "code", code)
	}

	writeJSON(response, status, models.ErrorResponse{OK: false, Error: code})
}

func notFound(response http.ResponseWriter, request *http.Request) {
	writeError(response, request, apperr.ErrNotFound)
}

// recoverer turns a panic into a logged internal_error response.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logger.Log.Errorw("panic while serving request", "uri", request.RequestURI, "panic", rvr, zap.Stack("stack"))
				writeJSON(response, http.StatusInternalServerError, models.ErrorResponse{OK: false, Error: apperr.CodeInternal})
			}
		}()
		next.ServeHTTP(response, request)
	})
}

// jsonObject is a leniently parsed request body.
type jsonObject map[string]any

// readJSONObject parses the request body. An empty body and any JSON value
// other than an object both read as an empty object; malformed JSON is
// rejected with invalid_json. A body larger than maxBodyBytes cannot carry a
// valid field, so it is reported as tooLarge.
func readJSONObject(response http.ResponseWriter, request *http.Request, tooLarge *apperr.Error) (jsonObject, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(response, request.Body, maxBodyBytes))
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return nil, tooLarge.Wrap(err)
	}
	if err != nil {
		return nil, apperr.ErrInvalidJSON.Wrap(err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return jsonObject{}, nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, apperr.ErrInvalidJSON.Wrap(err)
	}

	object, ok := value.(map[string]any)
	if !ok {
		return jsonObject{}, nil
	}
	return object, nil
}

// String renders field key as a string; absent and null fields are empty,
// numbers and booleans are formatted and anything else is re-encoded.
func (o jsonObject) String(key string) string {
	switch v := o[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, _ := json.Marshal(v)
		return string(encoded)
	}
}

// pathParam returns the named route parameter percent-decoded. chi matches
// on the escaped path when the request has one, so "%2F" inside a segment
// reaches the handler as a literal slash.
func pathParam(request *http.Request, name string) string {
	value := chi.URLParam(request, name)
	if request.URL.RawPath == "" {
		return value
	}
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return value
	}
	return decoded
}
