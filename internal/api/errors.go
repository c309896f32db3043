package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorCode is a machine-readable error code carried alongside the HTTP
// status.
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"

	ErrCodeValidation  ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidJSON ErrorCode = "INVALID_JSON"
)

// ErrorResponse is the JSON body for every error the API returns.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Code      ErrorCode         `json:"code"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, message string) {
	writeErrorFields(w, r, status, code, message, nil)
}

func writeErrorFields(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, message string, fields map[string]string) {
	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Fields:  fields,
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		resp.RequestID = reqID
	}
	writeJSON(w, status, resp)
}
