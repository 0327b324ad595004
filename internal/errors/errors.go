package errors

import (
	"fmt"
)

// ErrorType represents the terminal failure kinds of an authentication flow
type ErrorType string

const (
	// PlatformUnavailable represents a violated main-thread or platform precondition
	PlatformUnavailable ErrorType = "platform_unavailable"
	// NativeConstructionFailed represents a native session or surface that could not be built
	NativeConstructionFailed ErrorType = "native_construction_failed"
	// InvalidRedirectURL represents a callback navigation whose URL failed to parse
	InvalidRedirectURL ErrorType = "invalid_redirect_url"
	// NoURLInResponse represents a native completion carrying neither URL nor error
	NoURLInResponse ErrorType = "no_url_in_response"
	// Aborted represents a cancelled flow or an abandoned completion
	Aborted ErrorType = "aborted"
	// PlatformError wraps an error reported by the native session
	PlatformError ErrorType = "platform_error"
)

// AppError represents a structured authentication flow error
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type, so that
// package-level sentinels match any error of their kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates a new AppError
func New(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   err,
	}
}

// WithDetails returns a copy of the error carrying details
func (e *AppError) WithDetails(details string) *AppError {
	c := *e
	c.Details = details
	return &c
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// TypeOf returns the type of the first AppError in err's chain
func TypeOf(err error) (ErrorType, bool) {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Type, true
	}
	return "", false
}

// As finds the first AppError in err's chain
func As(err error, target **AppError) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			*target = appErr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// Convenience constructors for each error type

// NewPlatformUnavailable creates a platform unavailable error
func NewPlatformUnavailable(message string) *AppError {
	return New(PlatformUnavailable, message)
}

// NewNativeConstructionFailed creates a native construction error
func NewNativeConstructionFailed(message string) *AppError {
	return New(NativeConstructionFailed, message)
}

// NewInvalidRedirectURL creates an invalid redirect URL error
func NewInvalidRedirectURL(cause error) *AppError {
	return Wrap(cause, InvalidRedirectURL, "invalid URL in response")
}

// NewNoURLInResponse creates a no URL in response error
func NewNoURLInResponse() *AppError {
	return New(NoURLInResponse, "no URL in response")
}

// NewAborted creates an aborted error
func NewAborted(message string) *AppError {
	return New(Aborted, message)
}

// NewPlatformError wraps a native error
func NewPlatformError(cause error) *AppError {
	return Wrap(cause, PlatformError, "native session reported an error")
}
