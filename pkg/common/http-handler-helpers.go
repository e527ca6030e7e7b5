package common

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// HttpError carries the status code a handler wants to respond with.
type HttpError struct {
	Status int
	Err    error
}

func (e *HttpError) Error() string {
	return e.Err.Error()
}

func (e *HttpError) Unwrap() error {
	return e.Err
}

func BadRequest(err error) error {
	return &HttpError{Status: http.StatusBadRequest, Err: err}
}

// JsonHandler writes the value returned by fn as JSON. Errors are answered
// with their HttpError status, or 500.
func JsonHandler(logger *zap.Logger, fn func(w http.ResponseWriter, r *http.Request, sessionId string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			RespondToOptions(w, r)
			return
		}
		sessionId := HandleSessionCookie(w, r)
		w.Header().Set("Content-Type", "application/json")

		result, err := fn(w, r, sessionId)
		if err != nil {
			status := http.StatusInternalServerError
			var httpErr *HttpError
			if errors.As(err, &httpErr) {
				status = httpErr.Status
			}
			logger.Warn("error handling request", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
			w.WriteHeader(status)
			result = map[string]string{"error": err.Error()}
		}
		if err := sonic.ConfigDefault.NewEncoder(w).Encode(result); err != nil {
			logger.Error("error encoding response", zap.Error(err))
		}
	}
}

func RespondToOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Age", "0")
	w.WriteHeader(http.StatusAccepted)
}
