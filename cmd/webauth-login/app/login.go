package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/naotama2002/webauth-go/internal/logger"
	"github.com/naotama2002/webauth-go/internal/oidcclient"
	"github.com/naotama2002/webauth-go/internal/utils"
	"github.com/naotama2002/webauth-go/mainthread"
	"github.com/naotama2002/webauth-go/webauth"
	"github.com/naotama2002/webauth-go/webauth/embedded"
	"github.com/naotama2002/webauth-go/webauth/embedded/httpview"
	"github.com/naotama2002/webauth-go/webauth/systemsession"
)

type config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Backend      string
	Port         int
	RedirectURI  string
	Headers      []utils.Header
	Ephemeral    bool
	Timeout      time.Duration
}

func loadConfig(v *viper.Viper) (*config, error) {
	cfg := &config{
		Issuer:       v.GetString("issuer"),
		ClientID:     v.GetString("client-id"),
		ClientSecret: v.GetString("client-secret"),
		Scopes:       v.GetStringSlice("scope"),
		Backend:      v.GetString("backend"),
		Port:         v.GetInt("port"),
		RedirectURI:  v.GetString("redirect-uri"),
		Ephemeral:    v.GetBool("ephemeral"),
		Timeout:      v.GetDuration("timeout"),
	}

	if cfg.Issuer == "" {
		return nil, configErrorf("--issuer is required")
	}
	if cfg.ClientID == "" {
		return nil, configErrorf("--client-id is required")
	}
	if cfg.Timeout <= 0 {
		return nil, configErrorf("--timeout must be positive")
	}

	headers, err := utils.ParseHeaders(v.GetStringSlice("header"))
	if err != nil {
		return nil, configErrorf("%v", err)
	}
	cfg.Headers = headers

	switch cfg.Backend {
	case BackendBrowser:
		if len(cfg.Headers) > 0 {
			return nil, configErrorf("--header is not supported by the browser backend")
		}
	case BackendHeadless:
		u, err := url.Parse(cfg.RedirectURI)
		if err != nil || u.Scheme == "" {
			return nil, configErrorf("--redirect-uri must be an absolute URI: %q", cfg.RedirectURI)
		}
	default:
		return nil, configErrorf("invalid backend %q: must be %s or %s", cfg.Backend, BackendBrowser, BackendHeadless)
	}
	return cfg, nil
}

// result is what the command prints.
type result struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	IDToken      string    `json:"id_token"`
	Subject      string    `json:"subject"`
}

// runLogin runs the main loop on the calling goroutine and the flow on a
// worker, until the flow finished.
func runLogin(parent context.Context, cfg *config, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := utils.WithSignalCancel(parent)
	defer cancel()

	loop := mainthread.New()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer loop.Stop()
		return login(gctx, loop, cfg, out)
	})

	runErr := loop.Run(gctx)
	if err := g.Wait(); err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("main loop failed: %w", runErr)
	}
	return nil
}

// surface is the backend of one login together with its redirect URI.
type surface struct {
	backend     webauth.Backend
	redirectURI string
	scheme      string
	anchor      webauth.Anchor
	close       func()
}

func newSurface(loop *mainthread.Loop, cfg *config) (*surface, error) {
	switch cfg.Backend {
	case BackendHeadless:
		builder, err := httpview.NewBuilder(loop)
		if err != nil {
			return nil, err
		}
		u, _ := url.Parse(cfg.RedirectURI)
		return &surface{
			backend:     embedded.New(builder),
			redirectURI: cfg.RedirectURI,
			scheme:      u.Scheme,
			anchor:      httpview.Detached,
			close:       func() {},
		}, nil
	default:
		lb, err := systemsession.NewLoopback(loop, systemsession.LoopbackConfig{Port: cfg.Port})
		if err != nil {
			return nil, err
		}
		return &surface{
			backend:     systemsession.New(lb),
			redirectURI: lb.RedirectURL().String(),
			scheme:      systemsession.LoopbackScheme,
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := lb.Close(ctx); err != nil {
					logger.Warnf("Failed to stop callback server: %v", err)
				}
			},
		}, nil
	}
}

func login(ctx context.Context, loop *mainthread.Loop, cfg *config, out io.Writer) error {
	s, err := newSurface(loop, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	client, err := oidcclient.Discover(ctx, oidcclient.Config{
		Issuer:       cfg.Issuer,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  s.redirectURI,
		Scopes:       cfg.Scopes,
	})
	if err != nil {
		return err
	}
	auth, err := client.NewAuthorization()
	if err != nil {
		return err
	}

	opts := webauth.Options{Ephemeral: cfg.Ephemeral}
	for _, h := range cfg.Headers {
		opts = opts.WithHeader(h.Name, h.Value)
	}
	req := webauth.Request{
		AuthURL:        auth.URL,
		CallbackScheme: s.scheme,
		Options:        opts,
		Anchor:         s.anchor,
	}

	var fut *webauth.Future
	if err := loop.Call(ctx, func(ctx context.Context) {
		fut = webauth.AuthenticateAsync(ctx, s.backend, req)
	}); err != nil {
		return err
	}

	logger.Infof("Waiting for sign-in (timeout %s)", cfg.Timeout)
	waitCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	redirect, err := fut.Wait(waitCtx)
	if err != nil {
		return err
	}

	tokens, err := client.Exchange(ctx, auth, redirect)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result{
		AccessToken:  tokens.AccessToken,
		TokenType:    tokens.TokenType,
		RefreshToken: tokens.RefreshToken,
		Expiry:       tokens.Expiry,
		IDToken:      tokens.RawIDToken,
		Subject:      tokens.IDToken.Subject,
	})
}
