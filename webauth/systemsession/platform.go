// Package systemsession presents authorization URLs in a system-managed
// authentication session, such as the system browser.
package systemsession

import (
	"net/url"

	"github.com/naotama2002/webauth-go/webauth"
)

//go:generate mockgen -destination=mocks/mock_platform.go -package=mocks -source=platform.go Platform,Session

// Platform creates native authentication sessions.
type Platform interface {
	// NewSession builds a session for cfg without presenting it.
	NewSession(cfg SessionConfig) (Session, error)
}

// Session is one native authentication session.
type Session interface {
	// Start presents the session and begins loading the URL.
	Start() error
	// Cancel dismisses the session. It must be harmless once the session
	// completed. Completion is not invoked after Cancel returns.
	Cancel()
}

// SessionConfig configures a native session.
type SessionConfig struct {
	URL            *url.URL
	CallbackScheme string

	// PrefersEphemeral asks for a browser session that shares no cookies
	// with the user's normal browsing.
	PrefersEphemeral bool

	// AdditionalHeaders are sent with the initial request only, in order.
	AdditionalHeaders []webauth.Header

	// PresentationAnchor resolves the window the session is presented over.
	// The platform calls it at presentation time; it may fail when no window
	// has focus.
	PresentationAnchor func() (webauth.Anchor, error)

	// Completion is the native completion callback. The platform calls it on
	// the main loop with the callback URL, or with an error, or with neither.
	Completion func(callbackURL string, err error)
}
