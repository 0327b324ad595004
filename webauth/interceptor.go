package webauth

import (
	"strings"
	"sync/atomic"

	"github.com/naotama2002/webauth-go/internal/logger"
)

// Decision is the outcome of a navigation check.
type Decision int

const (
	// Allow lets the navigation proceed.
	Allow Decision = iota
	// Suppress cancels the navigation.
	Suppress
)

func (d Decision) String() string {
	if d == Suppress {
		return "suppress"
	}
	return "allow"
}

// NavigationInterceptor decides on every navigation inside the surface. The
// first target starting with "<scheme>:" fires it: the full target is parsed
// and delivered to the completer, and the navigation is suppressed. Once
// fired it never delivers again; callback-scheme targets stay suppressed so
// the custom scheme never loads.
type NavigationInterceptor struct {
	prefix    string
	completer *Completer
	fired     atomic.Bool
}

// NewNavigationInterceptor arms an interceptor for scheme.
func NewNavigationInterceptor(scheme string, completer *Completer) *NavigationInterceptor {
	return &NavigationInterceptor{
		prefix:    scheme + ":",
		completer: completer,
	}
}

// Intercept decides on a navigation to target.
func (i *NavigationInterceptor) Intercept(target string) Decision {
	if !strings.HasPrefix(target, i.prefix) {
		return Allow
	}
	if !i.fired.CompareAndSwap(false, true) {
		logger.Debugw("ignoring callback navigation after completion", "target", target)
		return Suppress
	}
	r := parseRedirect(target)
	if r.Err != nil {
		logger.Warnw("callback navigation has an invalid URL", "error", r.Err)
	}
	i.completer.Complete(r)
	return Suppress
}

// Allowed adapts Intercept to hooks that return true to let a navigation
// proceed.
func (i *NavigationInterceptor) Allowed(target string) bool {
	return i.Intercept(target) == Allow
}

// Fired reports whether a callback navigation was seen.
func (i *NavigationInterceptor) Fired() bool {
	return i.fired.Load()
}
