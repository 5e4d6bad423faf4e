package domain

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal server error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("your requested item is not found")
	// ErrNoAffected will throw if no rows were affected
	ErrNoAffected = errors.New("no rows were affected")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("your item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("given param is not valid")
	// ErrAuthenticationFailure will throw if authentication goes wrong
	ErrAuthenticationFailure = errors.New("authentication failed")
	// ErrForbidden will throw if user tries to do something that he is not
	// authorized to do
	ErrForbidden = errors.New("attempted action is not allowed")
	// ErrTooManyRequests will throw if the client exceeded the rate limit window
	ErrTooManyRequests = errors.New("too many requests")
)

// AppError is an operational error: an anticipated failure with a status code
// and a message that is safe to show to the client.
type AppError struct {
	Code    int
	Message string
	Fields  map[string]string
	Err     error
}

// NewAppError creates operational error wrapping one of the sentinel errors
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status returns "fail" for client errors and "error" for server errors
func (e *AppError) Status() string {
	return StatusFromCode(e.Code)
}

// InvalidID is returned when path parameter is not a valid ObjectID
func InvalidID(value string) *AppError {
	return NewAppError(http.StatusBadRequest, fmt.Sprintf("Invalid _id: %s", value), ErrBadParamInput)
}

// DuplicateField is returned when unique index rejects a write
func DuplicateField(value string) *AppError {
	return NewAppError(http.StatusBadRequest, fmt.Sprintf("Duplicate field value: %s. Please use another value!", value), ErrConflict)
}

// StatusFromCode maps http code to response status
func StatusFromCode(code int) string {
	if code >= 400 && code < 500 {
		return StatusFail
	}
	return StatusError
}

// GetStatusCode gets http code from error
func GetStatusCode(err error, logger *zap.Logger) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if errors.Is(err, ErrBadParamInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrAuthenticationFailure) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrNoAffected) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrTooManyRequests) {
		return http.StatusTooManyRequests
	}

	if logger != nil {
		logger.Error("Server error: ", zap.Error(err))
	}
	return http.StatusInternalServerError
}
