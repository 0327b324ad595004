// Package httpview is a headless embedded.Builder. Views load the
// authorization URL over HTTP and follow redirects themselves, passing every
// navigation through the navigation handler on the main loop. It suits
// identity providers that authorize without user interaction, such as test
// providers or sessions already established in the cookie jar.
package httpview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/naotama2002/webauth-go/internal/httpclient"
	"github.com/naotama2002/webauth-go/internal/logger"
	"github.com/naotama2002/webauth-go/mainthread"
	"github.com/naotama2002/webauth-go/webauth"
	"github.com/naotama2002/webauth-go/webauth/embedded"
)

const (
	defaultUserAgent    = "webauth-go"
	defaultMaxRedirects = 10
	defaultTimeout      = 30 * time.Second
)

// ErrTooManyRedirects is reported by Err when a view exceeds its redirect
// budget.
var ErrTooManyRedirects = errors.New("too many redirects")

// Detached is the parent anchor of views that are not shown anywhere.
var Detached webauth.Anchor = detached{}

type detached struct{}

func (detached) Handle() uintptr { return 0 }

// Builder builds headless views.
type Builder struct {
	loop         *mainthread.Loop
	jar          http.CookieJar
	maxRedirects int
	timeout      time.Duration
	transport    http.RoundTripper
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxRedirects bounds the redirects a view follows.
func WithMaxRedirects(n int) Option {
	return func(b *Builder) {
		b.maxRedirects = n
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(b *Builder) {
		b.timeout = d
	}
}

// WithTransport sets the transport requests go through.
func WithTransport(rt http.RoundTripper) Option {
	return func(b *Builder) {
		b.transport = rt
	}
}

// NewBuilder returns a builder whose views report navigations on loop.
// Non-incognito views share one cookie jar.
func NewBuilder(loop *mainthread.Loop, opts ...Option) (*Builder, error) {
	jar, err := newJar()
	if err != nil {
		return nil, err
	}
	b := &Builder{
		loop:         loop,
		jar:          jar,
		maxRedirects: defaultMaxRedirects,
		timeout:      defaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func newJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

// Build implements embedded.Builder. The initial navigation is checked
// before Build returns; loading happens in the background.
func (b *Builder) Build(ctx context.Context, cfg embedded.ViewConfig) (embedded.View, error) {
	if err := mainthread.Check(ctx); err != nil {
		return nil, webauth.NotOnMainThread("httpview.Build")
	}
	if cfg.URL == nil || cfg.NavigationHandler == nil {
		return nil, errors.New("view needs a URL and a navigation handler")
	}

	jar := b.jar
	if cfg.Incognito {
		var err error
		if jar, err = newJar(); err != nil {
			return nil, err
		}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	viewCtx, cancel := context.WithCancel(context.Background())
	v := &View{
		loop:    b.loop,
		handler: cfg.NavigationHandler,
		failed:  cfg.LoadFailed,
		cancel:  cancel,
		done:    make(chan struct{}),
		max:     b.maxRedirects,
		client: httpclient.New(&httpclient.Config{
			Timeout:   b.timeout,
			UserAgent: userAgent,
			Jar:       jar,
			Transport: b.transport,
		}),
	}

	if !v.navigate(cfg.URL.String()) {
		v.finish(nil)
		return v, nil
	}
	go v.run(viewCtx, cfg.URL, webauth.Options{ExtraHeaders: cfg.Headers}.HTTPHeader())
	return v, nil
}

// View is a headless view.
type View struct {
	loop    *mainthread.Loop
	client  *httpclient.Client
	handler func(string) bool
	failed  func(error)
	cancel  context.CancelFunc
	max     int

	disposed atomic.Bool
	done     chan struct{}
	once     sync.Once

	mu     sync.Mutex
	page   *url.URL
	status int
	err    error
}

// Dispose stops loading. Navigations still in flight are not reported.
func (v *View) Dispose() {
	v.disposed.Store(true)
	v.cancel()
}

// Done is closed once the view stopped loading: a page loaded, a navigation
// was cancelled, loading failed or the view was disposed.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Page returns the last page loaded and its status code.
func (v *View) Page() (*url.URL, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page, v.status
}

// Err returns the loading error, if any. It is also reported to the
// LoadFailed hook of the view's config.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// navigate asks the handler on the calling loop task.
func (v *View) navigate(target string) bool {
	if v.disposed.Load() {
		return false
	}
	allowed := v.handler(target)
	logger.Debugw("navigation", "target", target, "allowed", allowed)
	return allowed
}

// navigateOnLoop hops onto the loop to ask the handler.
func (v *View) navigateOnLoop(ctx context.Context, target string) (bool, error) {
	allowed := false
	err := v.loop.Call(ctx, func(context.Context) {
		allowed = v.navigate(target)
	})
	return allowed, err
}

func (v *View) run(ctx context.Context, target *url.URL, headers http.Header) {
	for hops := 0; ; hops++ {
		resp, err := v.client.Get(ctx, target.String(), headers)
		if err != nil {
			v.finish(err)
			return
		}
		headers = nil

		if !resp.IsRedirect() {
			v.mu.Lock()
			v.page, v.status = target, resp.StatusCode
			v.mu.Unlock()
			v.finish(nil)
			return
		}
		if hops >= v.max {
			v.finish(ErrTooManyRedirects)
			return
		}

		location := resp.Header.Get("Location")
		next, parseErr := target.Parse(location)
		raw := location
		if parseErr == nil {
			raw = next.String()
		}

		allowed, err := v.navigateOnLoop(ctx, raw)
		if err != nil {
			v.finish(err)
			return
		}
		if !allowed {
			v.finish(nil)
			return
		}
		if parseErr != nil {
			v.finish(fmt.Errorf("invalid redirect location: %w", parseErr))
			return
		}
		target = next
	}
}

func (v *View) finish(err error) {
	v.once.Do(func() {
		if err != nil && !v.disposed.Load() {
			logger.Warnw("headless view stopped loading", "error", err)
			v.mu.Lock()
			v.err = err
			v.mu.Unlock()
			v.reportFailure(err)
		}
		close(v.done)
	})
}

// reportFailure hands err to the LoadFailed hook on the loop.
func (v *View) reportFailure(err error) {
	if v.failed == nil {
		return
	}
	if !v.loop.Post(func(context.Context) {
		if !v.disposed.Load() {
			v.failed(err)
		}
	}) {
		logger.Debugw("main loop stopped, load failure not reported", "error", err)
	}
}
