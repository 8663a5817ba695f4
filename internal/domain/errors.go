package domain

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Sentinel errors shared by the application services and adapters.
// Call sites wrap them with fmt.Errorf("%w: ...") so callers can use errors.Is.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("location not found")
	ErrUpstream             = errors.New("upstream error")
	ErrNotSupportedCategory = errors.New("category not supported")
)

// ErrorCode represents a specific error condition.
type ErrorCode string

const (
	ErrCodeInvalidInput         ErrorCode = "InvalidInput"         // HTTP 400
	ErrCodeNotSupportedCategory ErrorCode = "NotSupportedCategory" // HTTP 400
	ErrCodeNotFound             ErrorCode = "NotFound"             // HTTP 404
	ErrCodeMethodNotAllowed     ErrorCode = "MethodNotAllowed"     // HTTP 405
	ErrCodeUpstream             ErrorCode = "UpstreamError"        // HTTP 502
	ErrCodeInternal             ErrorCode = "InternalServerError"  // HTTP 500
)

// ErrorResponse is the standard error format returned to clients via HTTP JSON.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewErrorResponse creates a new ErrorResponse struct.
func NewErrorResponse(code ErrorCode, message string, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WriteJSON sends an ErrorResponse as JSON with the given HTTP status code.
func (er ErrorResponse) WriteJSON(w http.ResponseWriter, httpStatusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(er) // Best effort, error from Encode is not typically handled here.
}

// ErrorCodeFor maps an error returned by the application layer to its client-facing code.
func ErrorCodeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return ErrCodeInvalidInput
	case errors.Is(err, ErrNotSupportedCategory):
		return ErrCodeNotSupportedCategory
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrUpstream):
		return ErrCodeUpstream
	default:
		return ErrCodeInternal
	}
}

// HTTPStatusFor returns the HTTP status code used for an error code.
func HTTPStatusFor(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeNotSupportedCategory:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
