package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mcoot/shellgame/internal/model"
)

// RetryAfterSeconds is advertised to clients when the store is unavailable
const RetryAfterSeconds = "2"

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest           = "INVALID_REQUEST"
	CodeAlreadyQueuedOrInSession = "ALREADY_QUEUED_OR_IN_SESSION"
	CodeNotQueued                = "NOT_QUEUED"
	CodeNotYourTurn              = "NOT_YOUR_TURN"
	CodePositionAlreadyGuessed   = "POSITION_ALREADY_GUESSED"
	CodeDuplicateUsername        = "DUPLICATE_USERNAME"
	CodeInvalidCredentials       = "INVALID_CREDENTIALS"
	CodeAccountNotFound          = "ACCOUNT_NOT_FOUND"
	CodeInvalidToken             = "INVALID_TOKEN"
	CodeTokenMismatch            = "TOKEN_MISMATCH"
	CodeNotFound                 = "NOT_FOUND"
	CodeStoreUnavailable         = "STORE_UNAVAILABLE"
	CodeInternalError            = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	if he.status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", RetryAfterSeconds)
	}
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, validationMessage(err)}}
	case errors.Is(err, model.ErrAlreadyQueuedOrInSession):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyQueuedOrInSession, "Already in the waiting list or the active session"}}
	case errors.Is(err, model.ErrNotQueued):
		return &httpError{http.StatusNotFound, APIError{CodeNotQueued, "Not in the waiting list"}}
	case errors.Is(err, model.ErrNotYourTurn):
		return &httpError{http.StatusForbidden, APIError{CodeNotYourTurn, "Not your turn"}}
	case errors.Is(err, model.ErrPositionAlreadyGuessed):
		return &httpError{http.StatusConflict, APIError{CodePositionAlreadyGuessed, "That position was already guessed"}}
	case errors.Is(err, model.ErrDuplicateUsername):
		return &httpError{http.StatusConflict, APIError{CodeDuplicateUsername, "Username already exists"}}
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, model.ErrAccountNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeAccountNotFound, "Account not found"}}
	case errors.Is(err, model.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidToken, "Invalid or expired token"}}

	// Store errors are retryable
	case errors.Is(err, model.ErrStoreUnavailable):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeStoreUnavailable, "Store unavailable, retry later"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// validationMessage strips the sentinel prefix from a wrapped ErrInvalidInput
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), model.ErrInvalidInput.Error()+": ")
	if msg == "" || msg == model.ErrInvalidInput.Error() {
		return "Invalid request"
	}
	return msg
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewTokenMismatchError reports a token that belongs to a different user
func NewTokenMismatchError() error {
	return &httpError{http.StatusForbidden, APIError{CodeTokenMismatch, "Token does not belong to this username"}}
}

// NewNotFoundError creates a not found error for an unknown route
func NewNotFoundError() error {
	return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
