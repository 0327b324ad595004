package webauth

import (
	"context"
	"net/url"
	"sync"
	"weak"

	apperrors "github.com/naotama2002/webauth-go/internal/errors"
	"github.com/naotama2002/webauth-go/mainthread"
)

// Future is the pending result of AuthenticateAsync. It owns the flow's
// cancel handle: dropping the future, or cancelling it, tears the native
// surface down.
type Future struct {
	done   chan struct{}
	once   sync.Once
	result Result
	handle *CancelHandle
}

// AuthenticateAsync starts a flow like Authenticate and returns its Future.
// It never fails itself; a flow that cannot start yields a Future that is
// already resolved with the error.
func AuthenticateAsync(ctx context.Context, backend Backend, req Request) *Future {
	f := &Future{done: make(chan struct{})}

	// The continuation only holds a weak reference so that an abandoned
	// future can be collected and its handle released.
	wf := weak.Make(f)
	handle, err := Authenticate(ctx, backend, req, func(redirect *url.URL, err error) {
		if f := wf.Value(); f != nil {
			f.resolve(Result{URL: redirect, Err: err})
		}
	})
	if err != nil {
		f.resolve(Result{Err: err})
		return f
	}
	f.handle = handle
	return f
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Poll returns the result without blocking; ok is false while pending.
// It may be called any number of times.
func (f *Future) Poll() (r Result, ok bool) {
	select {
	case <-f.done:
		return f.result, true
	default:
		return Result{}, false
	}
}

// Wait parks the calling goroutine until the flow resolves. If ctx is done
// first the flow is cancelled and ErrAborted is returned. Wait must not be
// called from a main loop task, since the loop delivers the result.
func (f *Future) Wait(ctx context.Context) (*url.URL, error) {
	if mainthread.Check(ctx) == nil {
		return nil, apperrors.NewPlatformUnavailable("Future.Wait would block the main loop; use Done or Poll")
	}
	select {
	case <-f.done:
	case <-ctx.Done():
		f.Cancel()
		return nil, apperrors.Wrap(ctx.Err(), KindAborted, "authentication cancelled")
	}
	return f.result.URL, f.result.Err
}

// Cancel abandons the flow. The future resolves with ErrAborted unless it
// already resolved, and the handle release is posted to the main loop.
// Safe from any goroutine.
func (f *Future) Cancel() {
	f.resolve(Result{Err: apperrors.NewAborted("authentication cancelled")})
	if f.handle != nil {
		f.handle.releaseLater()
	}
}

func (f *Future) resolve(r Result) {
	f.once.Do(func() {
		f.result = r
		close(f.done)
	})
}
