package webauth

import (
	"errors"
)

// Anchor is the host UI element that hosts or parents the authentication
// surface: a window or a container widget. The flow borrows it and never
// releases it.
type Anchor interface {
	// Handle returns the platform handle of the element.
	Handle() uintptr
}

// AnchorLookup finds the window that currently has keyboard focus.
type AnchorLookup interface {
	KeyWindow() (Anchor, bool)
}

// AnchorLookupFunc adapts a function to AnchorLookup.
type AnchorLookupFunc func() (Anchor, bool)

// KeyWindow calls f.
func (f AnchorLookupFunc) KeyWindow() (Anchor, bool) {
	return f()
}

// ErrNoKeyWindow is reported when no anchor was given and no window has
// focus when the surface is presented.
var ErrNoKeyWindow = errors.New("no key window found for the authentication session")

// ResolveAnchor returns a resolver for the presentation anchor. An explicit
// anchor is returned as is; otherwise lookup is consulted each time the
// resolver runs, so the focused window is determined at presentation time.
func ResolveAnchor(explicit Anchor, lookup AnchorLookup) func() (Anchor, error) {
	return func() (Anchor, error) {
		if explicit != nil {
			return explicit, nil
		}
		if lookup == nil {
			return nil, ErrNoKeyWindow
		}
		a, ok := lookup.KeyWindow()
		if !ok || a == nil {
			return nil, ErrNoKeyWindow
		}
		return a, nil
	}
}
