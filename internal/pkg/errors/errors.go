package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeInternal          = "INTERNAL_ERROR"
	CodeValidation        = "VALIDATION_ERROR"
	CodeBadRequest        = "BAD_REQUEST"
	CodeRateLimited       = "RATE_LIMITED"
	CodeWriteFailure      = "WRITE_FAILURE"
	CodeMalformedFragment = "MALFORMED_FRAGMENT"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeQueueUnavailable  = "QUEUE_UNAVAILABLE"
)

// statusByCode is the HTTP status each code renders as
var statusByCode = map[string]int{
	CodeInternal:          http.StatusInternalServerError,
	CodeValidation:        http.StatusBadRequest,
	CodeBadRequest:        http.StatusBadRequest,
	CodeRateLimited:       http.StatusTooManyRequests,
	CodeWriteFailure:      http.StatusInternalServerError,
	CodeMalformedFragment: http.StatusBadGateway,
	CodeStoreUnavailable:  http.StatusServiceUnavailable,
	CodeQueueUnavailable:  http.StatusServiceUnavailable,
}

// AppError is an error that knows how it is rendered to clients
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	StatusCode int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithError records the underlying cause
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// newError builds an AppError for a known code. Unknown codes render as 500.
func newError(code, message string, cause error) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{Code: code, Message: message, StatusCode: status, Err: cause}
}

// Internal creates an internal server error
func Internal(message string) *AppError {
	return newError(CodeInternal, message, nil)
}

// Validation creates a validation error
func Validation(message string) *AppError {
	return newError(CodeValidation, message, nil)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return newError(CodeBadRequest, message, nil)
}

// RateLimited creates a rate limited error
func RateLimited() *AppError {
	return newError(CodeRateLimited, "rate limit exceeded", nil)
}

// WriteFailure wraps an error from an output sink. Output flushed before the
// failure is not retracted.
func WriteFailure(err error) *AppError {
	return newError(CodeWriteFailure, "response sink rejected write", err)
}

// MalformedFragment reports a stored JSON fragment that failed validation
func MalformedFragment(traceID, field string) *AppError {
	return newError(CodeMalformedFragment, fmt.Sprintf("trace %s has malformed %s", traceID, field), nil).
		WithDetail("traceId", traceID).
		WithDetail("field", field)
}

// StoreUnavailable wraps a lookup refused by an open store circuit
func StoreUnavailable(err error) *AppError {
	return newError(CodeStoreUnavailable, "trace store unavailable", err)
}

// QueueUnavailable reports a missing or failing job queue
func QueueUnavailable(message string) *AppError {
	return newError(CodeQueueUnavailable, message, nil)
}

// GetAppError returns the first AppError in err's chain, or nil
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// GetStatusCode returns the HTTP status for err, 500 for plain errors
func GetStatusCode(err error) int {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

func hasCode(err error, code string) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// IsWriteFailure reports whether err came from a rejected sink write
func IsWriteFailure(err error) bool { return hasCode(err, CodeWriteFailure) }

// IsMalformedFragment reports whether err is a rejected stored fragment
func IsMalformedFragment(err error) bool { return hasCode(err, CodeMalformedFragment) }

// IsStoreUnavailable reports whether err is an open store circuit
func IsStoreUnavailable(err error) bool { return hasCode(err, CodeStoreUnavailable) }
