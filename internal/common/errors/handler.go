// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorHandler translates workflow errors into HTTP responses with
// standardized logging. Upstream detail stays in the server log; the client
// sees the code and a generic message.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// errorResponse is the JSON envelope for every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteError normalizes err, logs it, and writes the JSON error envelope
// with the mapped status code.
func (h *ErrorHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := h.normalizeError(err)
	status := HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"method":    r.Method,
		"path":      r.URL.Path,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
		"status":    status,
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields)
	} else {
		h.logger.Warn("request rejected", fields)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: stdErr.Message,
		Code:  string(stdErr.Code),
	})
}

// normalizeError ensures we always have a StandardError.
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
