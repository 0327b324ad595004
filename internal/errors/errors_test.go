package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(Aborted, "test message")

	if err.Type != Aborted {
		t.Errorf("Expected type %s, got %s", Aborted, err.Type)
	}

	if err.Message != "test message" {
		t.Errorf("Expected message 'test message', got %s", err.Message)
	}

	expected := "aborted: test message"
	if err.Error() != expected {
		t.Errorf("Expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestWrap(t *testing.T) {
	originalErr := fmt.Errorf("original error")
	wrappedErr := Wrap(originalErr, PlatformError, "session failed")

	if wrappedErr.Type != PlatformError {
		t.Errorf("Expected type %s, got %s", PlatformError, wrappedErr.Type)
	}

	if wrappedErr.Unwrap() != originalErr {
		t.Error("Wrapped error should unwrap to original error")
	}

	expected := "platform_error: session failed: original error"
	if wrappedErr.Error() != expected {
		t.Errorf("Expected error string '%s', got '%s'", expected, wrappedErr.Error())
	}
}

func TestWithDetails(t *testing.T) {
	base := New(NativeConstructionFailed, "invalid header")
	err := base.WithDetails("name \"X Bad\"")

	expected := "native_construction_failed: invalid header (name \"X Bad\")"
	if err.Error() != expected {
		t.Errorf("Expected error string '%s', got '%s'", expected, err.Error())
	}
	if base.Details != "" {
		t.Error("WithDetails should not modify the receiver")
	}
}

func TestIsType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		errType  ErrorType
		expected bool
	}{
		{
			name:     "direct AppError match",
			err:      New(Aborted, "cancelled"),
			errType:  Aborted,
			expected: true,
		},
		{
			name:     "direct AppError mismatch",
			err:      New(Aborted, "cancelled"),
			errType:  PlatformError,
			expected: false,
		},
		{
			name:     "wrapped AppError match",
			err:      fmt.Errorf("outer: %w", NewNoURLInResponse()),
			errType:  NoURLInResponse,
			expected: true,
		},
		{
			name:     "non-AppError",
			err:      fmt.Errorf("regular error"),
			errType:  Aborted,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			errType:  Aborted,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsType(tt.err, tt.errType); got != tt.expected {
				t.Errorf("IsType() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestIsMatchesByType(t *testing.T) {
	sentinel := New(Aborted, "aborted")
	err := fmt.Errorf("flow: %w", NewAborted("window closed"))

	if !stderrors.Is(err, sentinel) {
		t.Error("errors.Is should match an AppError of the same type")
	}
	if stderrors.Is(err, New(PlatformUnavailable, "x")) {
		t.Error("errors.Is should not match an AppError of another type")
	}
}

func TestTypeOf(t *testing.T) {
	kind, ok := TypeOf(fmt.Errorf("wrap: %w", NewInvalidRedirectURL(fmt.Errorf("bad"))))
	if !ok || kind != InvalidRedirectURL {
		t.Errorf("Expected %s, got %s (ok=%v)", InvalidRedirectURL, kind, ok)
	}

	if _, ok := TypeOf(fmt.Errorf("plain")); ok {
		t.Error("TypeOf should not find a type in a plain error")
	}
}

func TestConstructors(t *testing.T) {
	cause := fmt.Errorf("native")
	tests := []struct {
		name         string
		err          *AppError
		expectedType ErrorType
	}{
		{"platform unavailable", NewPlatformUnavailable("off thread"), PlatformUnavailable},
		{"construction failed", NewNativeConstructionFailed("refused"), NativeConstructionFailed},
		{"invalid redirect", NewInvalidRedirectURL(cause), InvalidRedirectURL},
		{"no url", NewNoURLInResponse(), NoURLInResponse},
		{"aborted", NewAborted("cancelled"), Aborted},
		{"platform error", NewPlatformError(cause), PlatformError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.expectedType {
				t.Errorf("Expected type %s, got %s", tt.expectedType, tt.err.Type)
			}
		})
	}
}
