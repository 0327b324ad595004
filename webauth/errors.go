package webauth

import (
	apperrors "github.com/naotama2002/webauth-go/internal/errors"
)

// Kind identifies the failure kind of an authentication flow.
type Kind = apperrors.ErrorType

// Error is the concrete error type returned by this package.
type Error = apperrors.AppError

const (
	KindPlatformUnavailable      = apperrors.PlatformUnavailable
	KindNativeConstructionFailed = apperrors.NativeConstructionFailed
	KindInvalidRedirectURL       = apperrors.InvalidRedirectURL
	KindNoURLInResponse          = apperrors.NoURLInResponse
	KindAborted                  = apperrors.Aborted
	KindPlatformError            = apperrors.PlatformError
)

// Sentinels for errors.Is; they match any error of their kind.
var (
	ErrPlatformUnavailable      = apperrors.New(KindPlatformUnavailable, "platform unavailable")
	ErrNativeConstructionFailed = apperrors.New(KindNativeConstructionFailed, "native construction failed")
	ErrInvalidRedirectURL       = apperrors.New(KindInvalidRedirectURL, "invalid URL in response")
	ErrNoURLInResponse          = apperrors.New(KindNoURLInResponse, "no URL in response")
	ErrAborted                  = apperrors.New(KindAborted, "aborted")
	ErrPlatformError            = apperrors.New(KindPlatformError, "platform error")
)

// KindOf returns the kind of err, if it is a flow error.
func KindOf(err error) (Kind, bool) {
	return apperrors.TypeOf(err)
}

// NotOnMainThread returns the error reported when an operation is invoked
// outside a main loop task.
func NotOnMainThread(op string) error {
	return apperrors.NewPlatformUnavailable(op + " must be called from a main loop task")
}

// ConstructionFailed wraps a native construction failure.
func ConstructionFailed(cause error, message string) error {
	return apperrors.Wrap(cause, KindNativeConstructionFailed, message)
}
