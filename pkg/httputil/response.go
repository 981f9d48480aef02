package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"
	"github.com/beck-00/financial-model-generator/pkg/logger"
	"github.com/beck-00/financial-model-generator/pkg/validator"
)

// Response is the JSON envelope written by every endpoint.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error half of the envelope.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps data in the envelope and writes it.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Data: data})
}

// WriteError maps err to a status and error code and writes the envelope.
// AppErrors carry their own code and message; validation errors become
// VALIDATION_ERROR with per-field messages; anything unrecognised is a 500
// whose cause is logged but never returned to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   "request validation failed",
			Fields:    valErr.Fields(),
			RequestID: requestID,
		}})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logInternal(r, err, fallback)
		}
		WriteJSON(w, appErr.Status, Response{Error: &ErrorResponse{
			Code:      appErr.Code,
			Message:   appErr.Message,
			RequestID: requestID,
		}})
		return
	}

	status, code, message := sentinelBody(err)
	if status >= http.StatusInternalServerError {
		logInternal(r, err, fallback)
	}

	WriteJSON(w, status, Response{Error: &ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: requestID,
	}})
}

// sentinelBody returns the status, client-facing code and message for a bare sentinel.
func sentinelBody(err error) (int, string, string) {
	status := apperrors.HTTPStatus(err)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return status, "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return status, "ALREADY_EXISTS", "resource already exists"
	case errors.Is(err, apperrors.ErrConflict):
		return status, "CONFLICT", "conflicting write"
	case errors.Is(err, validator.ErrEmptyBody):
		return http.StatusBadRequest, "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrInvalidInput):
		return status, "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return status, "INVALID_CREDENTIALS", apperrors.InvalidCredentials().Message
	case errors.Is(err, apperrors.ErrInvalidToken):
		return status, "INVALID_TOKEN", apperrors.InvalidToken().Message
	case errors.Is(err, apperrors.ErrTokenExpired):
		return status, "TOKEN_EXPIRED", apperrors.TokenExpired().Message
	case errors.Is(err, apperrors.ErrUnauthorized):
		return status, "UNAUTHORIZED", "authentication required"
	case errors.Is(err, apperrors.ErrServiceUnavail):
		return status, "SERVICE_UNAVAILABLE", "service temporarily unavailable"
	default:
		return status, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// logInternal prefers the request-scoped logger installed by RequestLogger.
func logInternal(r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}
