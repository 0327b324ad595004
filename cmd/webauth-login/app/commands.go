// Package app provides the webauth-login command.
package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/naotama2002/webauth-go/internal/logger"
	"github.com/naotama2002/webauth-go/internal/oidcclient"
	"github.com/naotama2002/webauth-go/webauth"
)

// Exit codes for the command.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (invalid arguments, discovery failure).
	ExitCodeError = 1
	// ExitCodeAborted indicates the user or a signal aborted the flow.
	ExitCodeAborted = 2
	// ExitCodeAuthFailed indicates the flow or the token exchange failed.
	ExitCodeAuthFailed = 3
)

const envPrefix = "WEBAUTH"

// Backend names accepted by --backend.
const (
	BackendBrowser  = "browser"
	BackendHeadless = "headless"
)

// NewRootCmd creates the webauth-login command. Each call returns an
// independent command with its own configuration.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "webauth-login",
		Short: "Sign in to an OpenID Connect provider and print the tokens",
		Long: `webauth-login runs an OpenID Connect authorization code flow with PKCE.

The browser backend opens the system browser and receives the redirect on a
loopback address. The headless backend loads the authorization URL itself and
intercepts the redirect to a custom scheme; it only works with providers that
authorize without user interaction.

Every flag can also be set through a WEBAUTH_ environment variable, for
example WEBAUTH_CLIENT_ID.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.Initialize()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if err := runLogin(cmd.Context(), cfg, cmd.OutOrStdout()); err != nil {
				logger.Errorf("Login failed: %v", err)
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	flags := cmd.Flags()
	flags.String("issuer", "", "OpenID Connect issuer URL")
	flags.String("client-id", "", "OAuth client ID")
	flags.String("client-secret", "", "OAuth client secret, if the client is confidential")
	flags.StringSlice("scope", []string{"profile", "email"}, "Scopes to request in addition to openid")
	flags.String("backend", BackendBrowser, "Authentication surface: browser or headless")
	flags.Int("port", 0, "Loopback callback port for the browser backend (0 picks a free port)")
	flags.String("redirect-uri", "webauth-go:callback", "Custom-scheme redirect URI for the headless backend")
	flags.StringArrayP("header", "H", nil, "Extra header for the first request, as 'Name: Value' (headless backend)")
	flags.Bool("ephemeral", false, "Do not share cookies with previous sessions")
	flags.Duration("timeout", 5*time.Minute, "How long to wait for the user to sign in")

	for _, name := range []string{
		"issuer", "client-id", "client-secret", "scope", "backend", "port",
		"redirect-uri", "header", "ephemeral", "timeout",
	} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			logger.Errorf("Error binding %s flag: %v", name, err)
		}
	}

	return cmd
}

// ExitCode maps an error returned by the command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var configErr *configError
	if errors.As(err, &configErr) {
		return ExitCodeError
	}

	if kind, ok := webauth.KindOf(err); ok {
		if kind == webauth.KindAborted {
			return ExitCodeAborted
		}
		return ExitCodeAuthFailed
	}

	var authErr *oidcclient.AuthorizationError
	if errors.As(err, &authErr) ||
		errors.Is(err, oidcclient.ErrStateMismatch) ||
		errors.Is(err, oidcclient.ErrMissingCode) ||
		errors.Is(err, oidcclient.ErrMissingIDToken) ||
		errors.Is(err, oidcclient.ErrNonceMismatch) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

type configError struct {
	msg string
}

func (e *configError) Error() string {
	return e.msg
}

func configErrorf(format string, args ...any) error {
	return &configError{msg: fmt.Sprintf(format, args...)}
}
