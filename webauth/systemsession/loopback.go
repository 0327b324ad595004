package systemsession

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/browser"

	"github.com/naotama2002/webauth-go/internal/logger"
	"github.com/naotama2002/webauth-go/mainthread"
)

const (
	// DefaultCallbackPath is the path the loopback server listens on.
	DefaultCallbackPath = "/oauth/callback"
	// LoopbackScheme is the callback scheme of loopback sessions.
	LoopbackScheme = "http"
)

var (
	// ErrSessionInProgress is returned when a session starts while another
	// one is still waiting for its callback.
	ErrSessionInProgress = errors.New("another authentication session is in progress")
	// ErrHeadersUnsupported is returned for sessions with additional headers;
	// the system browser cannot be told to send them.
	ErrHeadersUnsupported = errors.New("the system browser cannot send additional headers")
	// ErrSchemeMismatch is returned when the callback scheme is not http.
	ErrSchemeMismatch = errors.New("loopback sessions require the http callback scheme")
)

var ginMode sync.Once

// BrowserOpener opens url in the user's browser.
type BrowserOpener func(url string) error

// LoopbackConfig configures a Loopback platform.
type LoopbackConfig struct {
	// Host defaults to 127.0.0.1.
	Host string
	// Port 0 picks a free port.
	Port int
	// Path defaults to DefaultCallbackPath.
	Path string
	// Opener defaults to browser.OpenURL.
	Opener BrowserOpener
}

// Loopback is a Platform backed by the system browser and a callback server
// on the loopback interface. The authorization request must redirect to
// RedirectURL; every hit on it is reported to the active session.
type Loopback struct {
	loop     *mainthread.Loop
	opener   BrowserOpener
	redirect url.URL
	server   *http.Server

	mu     sync.Mutex
	active *loopbackSession
}

// NewLoopback starts the callback server. Completions are delivered on loop.
func NewLoopback(loop *mainthread.Loop, cfg LoopbackConfig) (*Loopback, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Path == "" {
		cfg.Path = DefaultCallbackPath
	}
	if cfg.Opener == nil {
		cfg.Opener = browser.OpenURL
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to listen for OAuth callbacks: %w", err)
	}

	l := &Loopback{
		loop:   loop,
		opener: cfg.Opener,
		redirect: url.URL{
			Scheme: LoopbackScheme,
			Host:   listener.Addr().String(),
			Path:   cfg.Path,
		},
	}

	ginMode.Do(func() { gin.SetMode(gin.ReleaseMode) })
	router := gin.New()
	router.Use(gin.Recovery(), securityHeaders())
	router.GET(cfg.Path, l.handleCallback)
	router.NoRoute(func(c *gin.Context) {
		writePage(c, http.StatusNotFound, infoPage("This address does not handle authentication callbacks."))
	})

	l.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting OAuth callback server on %s", l.redirect.Host)
		if err := l.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("OAuth callback server error: %v", err)
		}
	}()

	return l, nil
}

// RedirectURL is the redirect URI to register with the authorization server.
func (l *Loopback) RedirectURL() *url.URL {
	u := l.redirect
	return &u
}

// Close stops the callback server. An active session is left to its handle.
func (l *Loopback) Close(ctx context.Context) error {
	return l.server.Shutdown(ctx)
}

// NewSession implements Platform.
func (l *Loopback) NewSession(cfg SessionConfig) (Session, error) {
	if cfg.CallbackScheme != LoopbackScheme {
		return nil, fmt.Errorf("%w: got %q", ErrSchemeMismatch, cfg.CallbackScheme)
	}
	if len(cfg.AdditionalHeaders) > 0 {
		return nil, ErrHeadersUnsupported
	}
	if cfg.URL == nil {
		return nil, errors.New("session URL is required")
	}
	s := &loopbackSession{
		id:       uuid.NewString(),
		platform: l,
		cfg:      cfg,
	}
	if cfg.PrefersEphemeral {
		logger.Warnw("system browser sessions cannot be ephemeral, ignoring preference", "session", s.id)
	}
	return s, nil
}

func (l *Loopback) handleCallback(c *gin.Context) {
	l.mu.Lock()
	s := l.active
	l.mu.Unlock()

	// a cancelled session ignores callbacks until it is released
	if s == nil || s.isCancelled() {
		writePage(c, http.StatusGone, errorPage("No authentication is in progress."))
		return
	}

	callback := l.redirect
	callback.RawQuery = c.Request.URL.RawQuery
	raw := callback.String()

	logger.Debugw("OAuth callback received", "session", s.id)
	if !l.loop.Post(func(context.Context) { s.complete(raw) }) {
		writePage(c, http.StatusServiceUnavailable, errorPage("The application is shutting down."))
		return
	}

	if msg := c.Query("error"); msg != "" {
		if desc := c.Query("error_description"); desc != "" {
			msg += ": " + desc
		}
		writePage(c, http.StatusBadRequest, errorPage(msg))
		return
	}
	writePage(c, http.StatusOK, successPage())
}

type loopbackSession struct {
	id       string
	platform *Loopback
	cfg      SessionConfig

	mu        sync.Mutex
	cancelled bool
}

func (s *loopbackSession) Start() error {
	l := s.platform
	l.mu.Lock()
	if l.active != nil {
		l.mu.Unlock()
		return ErrSessionInProgress
	}
	l.active = s
	l.mu.Unlock()

	// The browser runs in its own window; the anchor is only informative.
	if s.cfg.PresentationAnchor != nil {
		if anchor, err := s.cfg.PresentationAnchor(); err == nil {
			logger.Debugw("presenting system browser session", "session", s.id, "anchor", anchor.Handle())
		} else {
			logger.Debugw("presenting system browser session without anchor", "session", s.id, "reason", err)
		}
	}

	if err := l.opener(s.cfg.URL.String()); err != nil {
		l.release(s)
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

func (s *loopbackSession) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.platform.release(s)
	logger.Debugw("system browser session released", "session", s.id)
}

func (s *loopbackSession) complete(callbackURL string) {
	if s.isCancelled() {
		return
	}
	s.cfg.Completion(callbackURL, nil)
}

func (s *loopbackSession) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (l *Loopback) release(s *loopbackSession) {
	l.mu.Lock()
	if l.active == s {
		l.active = nil
	}
	l.mu.Unlock()
}
