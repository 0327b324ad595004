package webauth

import (
	"context"
	"net/url"

	"github.com/naotama2002/webauth-go/internal/logger"
	"github.com/naotama2002/webauth-go/mainthread"
)

// Authenticate starts a flow and returns immediately. onDone runs exactly
// once on the main loop with the redirect URL or an error; the handle is
// released right after it returns. Cancelling the handle earlier resolves the
// flow with ErrAborted.
//
// Authenticate must be called from a main loop task, otherwise it fails with
// ErrPlatformUnavailable.
func Authenticate(
	ctx context.Context,
	backend Backend,
	req Request,
	onDone func(redirect *url.URL, err error),
) (*CancelHandle, error) {
	if err := mainthread.Check(ctx); err != nil {
		return nil, NotOnMainThread("Authenticate")
	}
	loop, _ := mainthread.FromContext(ctx)

	logger.Debugw("presenting authorization URL", "url", req.AuthURL, "scheme", req.CallbackScheme)
	handle, completion, err := backend.Present(ctx, req)
	if err != nil {
		return nil, err
	}

	// Capture the state, not the handle, so dropping the handle still
	// releases the flow.
	st := handle.st
	completion.OnComplete(func(r Result) {
		posted := loop.Post(func(context.Context) {
			onDone(r.URL, r.Err)
			st.release()
		})
		if !posted {
			logger.Warnw("main loop stopped, dropping flow result", "error", r.Err)
		}
	})
	return handle, nil
}
