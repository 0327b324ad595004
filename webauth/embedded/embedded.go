// Package embedded presents authorization URLs in a web view embedded in a
// host window or container.
//
// The package does not ship a GUI toolkit. A Builder creates the view; the
// backend installs a navigation hook that ends the flow when the view is
// about to navigate to the callback scheme. See the httpview subpackage for
// a headless builder.
package embedded

import (
	"context"
	"net/url"

	"github.com/naotama2002/webauth-go/internal/logger"
	"github.com/naotama2002/webauth-go/mainthread"
	"github.com/naotama2002/webauth-go/webauth"
)

// DefaultUserAgent is sent by views unless WithUserAgent overrides it.
const DefaultUserAgent = "WebAuth"

// View is a live embedded web view.
type View interface {
	// Dispose tears the view down. No navigation is reported afterwards.
	Dispose()
}

// ViewConfig is fixed when the view is built.
type ViewConfig struct {
	// URL is loaded as soon as the view is built.
	URL *url.URL
	// Headers are sent with the initial request only, in order.
	Headers   []webauth.Header
	Incognito bool
	UserAgent string
	Focused   bool
	// Parent is the window or container the view is embedded into.
	Parent webauth.Anchor
	// NavigationHandler is called on the main loop before every navigation,
	// the initial one included. Returning false cancels the navigation.
	NavigationHandler func(target string) bool
	// LoadFailed is called on the main loop when the view stops loading for
	// good because of an error. It is not called after Dispose.
	LoadFailed func(err error)
}

// Builder builds views. Build is called from a main loop task.
type Builder interface {
	Build(ctx context.Context, cfg ViewConfig) (View, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, cfg ViewConfig) (View, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, cfg ViewConfig) (View, error) {
	return f(ctx, cfg)
}

// Backend is the webauth.Backend for embedded views.
type Backend struct {
	builder   Builder
	userAgent string
}

// Option configures a Backend.
type Option func(*Backend)

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(b *Backend) {
		b.userAgent = ua
	}
}

// New returns a backend building views with builder.
func New(builder Builder, opts ...Option) *Backend {
	b := &Backend{builder: builder, userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Present builds a view embedded into req.Anchor, which is required.
func (b *Backend) Present(ctx context.Context, req webauth.Request) (*webauth.CancelHandle, *webauth.Completion, error) {
	if err := mainthread.Check(ctx); err != nil {
		return nil, nil, webauth.NotOnMainThread("embedded.Present")
	}
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	if req.Anchor == nil {
		return nil, nil, webauth.ConstructionFailed(nil, "embedded views need a parent anchor")
	}
	loop, _ := mainthread.FromContext(ctx)

	completer, completion := webauth.NewCompletion()
	interceptor := webauth.NewNavigationInterceptor(req.CallbackScheme, completer)

	view, err := b.builder.Build(ctx, ViewConfig{
		URL:               req.AuthURL,
		Headers:           req.Options.Headers(),
		Incognito:         req.Options.Ephemeral,
		UserAgent:         b.userAgent,
		Focused:           true,
		Parent:            req.Anchor,
		NavigationHandler: interceptor.Allowed,
		LoadFailed: func(err error) {
			if completer.Complete(webauth.NativeResult("", err)) {
				logger.Debugw("embedded view failed to load", "error", err)
			}
		},
	})
	if err != nil {
		completion.Discard()
		return nil, nil, webauth.ConstructionFailed(err, "failed to build web view")
	}
	logger.Debugw("embedded view built", "parent", req.Anchor.Handle(), "incognito", req.Options.Ephemeral)

	// the interceptor is the callback object: it must outlive the view
	handle := webauth.NewCancelHandle(loop, webauth.ResourceFunc(view.Dispose), interceptor, completer)
	return handle, completion, nil
}
