package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrValidation      = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrInternal        = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrMisconfigured   = NewError("MISCONFIGURED", "server misconfiguration", http.StatusInternalServerError)
	ErrUpstreamNetwork = NewError("UPSTREAM_NETWORK", "upstream network failure", http.StatusBadGateway)
)

type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
	Cause   error
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

// NewUpstreamError represents a provider rejection: the upstream status code
// is passed through and the raw response body is kept for diagnostics.
func NewUpstreamError(provider string, status int, body string) *Error {
	e := NewError("UPSTREAM_REJECTED", fmt.Sprintf("%s rejected the request", provider), status)
	e.Details["provider"] = provider
	e.Details["detail"] = body
	return e
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// clone copies the error, giving the copy its own Details map. Derived
// errors must never write into the package-level sentinels: handlers run
// concurrently and the sentinels are shared across every request.
func (e *Error) clone() *Error {
	err := *e
	err.Details = make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		err.Details[k] = v
	}
	return &err
}

func (e *Error) WithCause(cause error) *Error {
	err := e.clone()
	err.Cause = cause
	return err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := e.clone()
	err.Details[key] = value
	return err
}

func (e *Error) WithDetails(details map[string]interface{}) *Error {
	err := e.clone()
	for k, v := range details {
		err.Details[k] = v
	}
	return err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func IsValidation(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == ErrValidation.Code
	}
	return false
}

func IsUpstreamNetwork(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == ErrUpstreamNetwork.Code
	}
	return false
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		// If it's not our error type, wrap it
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}
