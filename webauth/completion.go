package webauth

import (
	"context"
	"errors"
	"net/url"

	apperrors "github.com/naotama2002/webauth-go/internal/errors"
	"github.com/naotama2002/webauth-go/internal/logger"
	"github.com/naotama2002/webauth-go/internal/oneshot"
)

// Result is the outcome of a flow: the redirect URL, or an error.
type Result struct {
	URL *url.URL
	Err error
}

// Completer is the sending half of a flow's completion. It is owned by the
// native callback or navigation hook that detects the end of the flow.
type Completer struct {
	tx *oneshot.Sender[Result]
}

// Completion is the receiving half. It resolves exactly once: with the first
// result completed, or with ErrAborted if the completer is abandoned first.
type Completion struct {
	rx *oneshot.Receiver[Result]
}

// NewCompletion returns a connected completer and completion.
func NewCompletion() (*Completer, *Completion) {
	tx, rx := oneshot.New[Result]()
	return &Completer{tx: tx}, &Completion{rx: rx}
}

// Complete delivers r. Later calls, and calls after the receiver went away
// or the completer was abandoned, are ignored and report false.
func (c *Completer) Complete(r Result) bool {
	if !c.tx.Send(r) {
		logger.Debugw("ignoring duplicate flow completion", "error", r.Err)
		return false
	}
	return true
}

// Abandon drops the completer. If nothing was completed the completion
// resolves with ErrAborted.
func (c *Completer) Abandon() {
	c.tx.Close()
}

// Completed reports whether the completion already resolved.
func (c *Completer) Completed() bool {
	return c.tx.Finished()
}

// Done is closed once the completion resolves.
func (c *Completion) Done() <-chan struct{} {
	return c.rx.Done()
}

// Poll returns the result without blocking; ok is false while pending.
func (c *Completion) Poll() (r Result, ok bool) {
	r, sent, ready := c.rx.TryRecv()
	if !ready {
		return Result{}, false
	}
	if !sent {
		return abortedResult(), true
	}
	return r, true
}

// Wait blocks until the completion resolves or ctx is done.
func (c *Completion) Wait(ctx context.Context) Result {
	r, err := c.rx.Recv(ctx)
	switch {
	case err == nil:
		return r
	case errors.Is(err, oneshot.ErrClosed):
		return abortedResult()
	default:
		return Result{Err: apperrors.Wrap(err, KindAborted, "stopped waiting for the flow")}
	}
}

// OnComplete registers fn to run once when the completion resolves. fn runs
// on the goroutine that resolves it, or immediately if already resolved. It
// must not block.
func (c *Completion) OnComplete(fn func(Result)) {
	c.rx.Notify(func(r Result, sent bool) {
		if !sent {
			r = abortedResult()
		}
		fn(r)
	})
}

// Discard marks the receiving side as gone; later completions are dropped.
func (c *Completion) Discard() {
	c.rx.Close()
}

var errNotAbsolute = errors.New("URL is not absolute")

func abortedResult() Result {
	return Result{Err: apperrors.NewAborted("flow ended without a result")}
}

// NativeResult classifies the payload of a native completion callback. A URL
// wins over an error; neither yields ErrNoURLInResponse.
func NativeResult(callbackURL string, nativeErr error) Result {
	switch {
	case callbackURL != "":
		return parseRedirect(callbackURL)
	case nativeErr != nil:
		return Result{Err: apperrors.NewPlatformError(nativeErr)}
	default:
		return Result{Err: apperrors.NewNoURLInResponse()}
	}
}

func parseRedirect(raw string) Result {
	u, err := url.Parse(raw)
	if err != nil {
		return Result{Err: apperrors.NewInvalidRedirectURL(err)}
	}
	if !u.IsAbs() {
		return Result{Err: apperrors.NewInvalidRedirectURL(&url.Error{Op: "parse", URL: raw, Err: errNotAbsolute})}
	}
	return Result{URL: u}
}
