package webauth

import (
	"context"
	"fmt"
	"net/url"

	apperrors "github.com/naotama2002/webauth-go/internal/errors"
)

// Request describes one authentication flow.
type Request struct {
	// AuthURL is the absolute authorization URL loaded first.
	AuthURL *url.URL

	// CallbackScheme is the bare scheme, without colon, that signals the end
	// of the flow.
	CallbackScheme string

	Options Options

	// Anchor hosts the surface. It may be nil for backends that can fall back
	// to the focused window.
	Anchor Anchor
}

// Validate checks the URL and scheme.
func (r Request) Validate() error {
	if r.AuthURL == nil || !r.AuthURL.IsAbs() {
		return apperrors.NewNativeConstructionFailed("authorization URL must be absolute")
	}
	if err := validateScheme(r.CallbackScheme); err != nil {
		return err
	}
	return r.Options.Validate()
}

// CallbackPrefix is the prefix a navigation target must start with to end
// the flow.
func (r Request) CallbackPrefix() string {
	return r.CallbackScheme + ":"
}

// validateScheme enforces scheme = ALPHA *( ALPHA / DIGIT / "+" / "-" / "." ).
func validateScheme(scheme string) error {
	if scheme == "" {
		return apperrors.NewNativeConstructionFailed("callback scheme is empty")
	}
	for i, c := range scheme {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return apperrors.NewNativeConstructionFailed("invalid callback scheme").
				WithDetails(fmt.Sprintf("%q", scheme))
		}
	}
	return nil
}

// Backend presents an authorization URL in a native surface.
//
// Present must be called from a main loop task. It starts loading the URL
// immediately and returns the handle owning the native resource together
// with the completion that resolves once.
type Backend interface {
	Present(ctx context.Context, req Request) (*CancelHandle, *Completion, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) (*CancelHandle, *Completion, error)

// Present calls f.
func (f BackendFunc) Present(ctx context.Context, req Request) (*CancelHandle, *Completion, error) {
	return f(ctx, req)
}
