// Package oidcclient is a small OpenID Connect client for native apps: it
// builds PKCE authorization requests for a web authentication flow and
// exchanges the resulting redirect for verified tokens.
package oidcclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/naotama2002/webauth-go/internal/httpclient"
	"github.com/naotama2002/webauth-go/internal/logger"
)

var (
	// ErrStateMismatch is returned when the redirect carries another state.
	ErrStateMismatch = errors.New("state parameter does not match the authorization request")
	// ErrMissingCode is returned when the redirect carries no code.
	ErrMissingCode = errors.New("redirect does not contain an authorization code")
	// ErrMissingIDToken is returned when the token response has no ID token.
	ErrMissingIDToken = errors.New("token response does not contain an ID token")
	// ErrNonceMismatch is returned when the ID token nonce differs from the
	// one sent in the authorization request.
	ErrNonceMismatch = errors.New("ID token nonce does not match expected value")
)

// AuthorizationError is an error response from the authorization endpoint.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description == "" {
		return "authorization failed: " + e.Code
	}
	return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
}

// Config configures a Client.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Scopes are requested in addition to openid.
	Scopes []string
	// HTTPClient is used for discovery, key sets and token requests.
	HTTPClient *http.Client
}

// Validate checks the required fields.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return errors.New("issuer is required")
	}
	if c.ClientID == "" {
		return errors.New("client ID is required")
	}
	if c.RedirectURL == "" {
		return errors.New("redirect URL is required")
	}
	return nil
}

// Client talks to one OpenID provider.
type Client struct {
	httpClient *http.Client
	oauth2     *oauth2.Config
	verifier   *oidc.IDTokenVerifier
}

// Discover fetches the provider configuration of cfg.Issuer.
func Discover(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid OIDC configuration: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.DefaultConfig()).HTTPClient()
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	scopes := []string{oidc.ScopeOpenID}
	for _, s := range cfg.Scopes {
		if !slices.Contains(scopes, s) {
			scopes = append(scopes, s)
		}
	}

	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	logger.Debugw("OIDC provider discovered", "issuer", cfg.Issuer, "authorization_endpoint", endpoint.AuthURL)
	return &Client{
		httpClient: httpClient,
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// Authorization is one pending authorization request.
type Authorization struct {
	URL      *url.URL
	State    string
	Nonce    string
	Verifier string
}

// NewAuthorization builds an authorization request with fresh state, nonce
// and PKCE verifier.
func (c *Client) NewAuthorization() (*Authorization, error) {
	a := &Authorization{
		State:    uuid.NewString(),
		Nonce:    uuid.NewString(),
		Verifier: oauth2.GenerateVerifier(),
	}
	raw := c.oauth2.AuthCodeURL(a.State,
		oauth2.S256ChallengeOption(a.Verifier),
		oidc.Nonce(a.Nonce),
	)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid authorization URL: %w", err)
	}
	a.URL = u
	return a, nil
}

// Code extracts the authorization code from the redirect of a.
func (a *Authorization) Code(redirect *url.URL) (string, error) {
	q := redirect.Query()
	if code := q.Get("error"); code != "" {
		return "", &AuthorizationError{Code: code, Description: q.Get("error_description")}
	}
	if q.Get("state") != a.State {
		return "", ErrStateMismatch
	}
	code := q.Get("code")
	if code == "" {
		return "", ErrMissingCode
	}
	return code, nil
}

// Tokens is the result of a successful exchange.
type Tokens struct {
	*oauth2.Token
	RawIDToken string
	IDToken    *oidc.IDToken
}

// Exchange redeems the code in redirect and verifies the ID token.
func (c *Client) Exchange(ctx context.Context, a *Authorization, redirect *url.URL) (*Tokens, error) {
	code, err := a.Code(redirect)
	if err != nil {
		return nil, err
	}

	ctx = oidc.ClientContext(ctx, c.httpClient)
	token, err := c.oauth2.Exchange(ctx, code, oauth2.VerifierOption(a.Verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrMissingIDToken
	}
	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	if idToken.Nonce != a.Nonce {
		return nil, ErrNonceMismatch
	}
	if idToken.AccessTokenHash != "" {
		if err := idToken.VerifyAccessToken(token.AccessToken); err != nil {
			return nil, fmt.Errorf("failed to verify access token hash: %w", err)
		}
	}

	logger.Debugw("authorization code exchanged",
		"subject", idToken.Subject,
		"has_refresh_token", token.RefreshToken != "",
	)
	return &Tokens{Token: token, RawIDToken: rawIDToken, IDToken: idToken}, nil
}
