package systemsession

import (
	"context"

	"github.com/naotama2002/webauth-go/internal/logger"
	"github.com/naotama2002/webauth-go/mainthread"
	"github.com/naotama2002/webauth-go/webauth"
)

// Backend is the webauth.Backend that delegates to a Platform.
type Backend struct {
	platform Platform
	lookup   webauth.AnchorLookup
}

// Option configures a Backend.
type Option func(*Backend)

// WithKeyWindowLookup sets the lookup used when a request carries no anchor.
func WithKeyWindowLookup(lookup webauth.AnchorLookup) Option {
	return func(b *Backend) {
		b.lookup = lookup
	}
}

// New returns a backend presenting sessions created by platform.
func New(platform Platform, opts ...Option) *Backend {
	b := &Backend{platform: platform}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Present creates and starts a session for req.
func (b *Backend) Present(ctx context.Context, req webauth.Request) (*webauth.CancelHandle, *webauth.Completion, error) {
	if err := mainthread.Check(ctx); err != nil {
		return nil, nil, webauth.NotOnMainThread("systemsession.Present")
	}
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	loop, _ := mainthread.FromContext(ctx)

	completer, completion := webauth.NewCompletion()
	callback := func(callbackURL string, err error) {
		logger.Debugw("system session completed", "has_url", callbackURL != "", "error", err)
		completer.Complete(webauth.NativeResult(callbackURL, err))
	}

	session, err := b.platform.NewSession(SessionConfig{
		URL:                req.AuthURL,
		CallbackScheme:     req.CallbackScheme,
		PrefersEphemeral:   req.Options.Ephemeral,
		AdditionalHeaders:  req.Options.Headers(),
		PresentationAnchor: webauth.ResolveAnchor(req.Anchor, b.lookup),
		Completion:         callback,
	})
	if err != nil {
		completion.Discard()
		return nil, nil, webauth.ConstructionFailed(err, "failed to create authentication session")
	}

	// The handle keeps the callback alive for as long as the session may
	// invoke it.
	handle := webauth.NewCancelHandle(loop, webauth.ResourceFunc(session.Cancel), callback, completer)
	if err := session.Start(); err != nil {
		_ = handle.Cancel(ctx)
		completion.Discard()
		return nil, nil, webauth.ConstructionFailed(err, "failed to start authentication session")
	}
	return handle, completion, nil
}
