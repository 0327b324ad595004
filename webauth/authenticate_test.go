package webauth_test

import (
	"context"
	"errors"
	"net/url"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naotama2002/webauth-go/mainthread"
	"github.com/naotama2002/webauth-go/webauth"
)

func TestAuthenticateOffMainThread(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	handle, err := webauth.Authenticate(context.Background(), backend, testRequest(t), func(*url.URL, error) {
		t.Error("onDone must not run")
	})
	assert.Nil(t, handle)
	assert.True(t, errors.Is(err, webauth.ErrPlatformUnavailable))
	assert.Zero(t, backend.presented, "backend must not be touched off the main thread")
}

func TestAuthenticateDeliversOnLoop(t *testing.T) {
	t.Parallel()

	loop := mainthread.New()
	backend := &fakeBackend{}

	var (
		handle   *webauth.CancelHandle
		calls    int
		redirect *url.URL
	)
	onLoop(t, loop, func(ctx context.Context) {
		var err error
		handle, err = webauth.Authenticate(ctx, backend, testRequest(t), func(u *url.URL, err error) {
			calls++
			redirect = u
			assert.NoError(t, err)
		})
		require.NoError(t, err)
	})
	require.NotNil(t, handle)
	assert.Zero(t, calls, "nothing delivered before a callback navigation")

	onLoop(t, loop, func(context.Context) {
		assert.Equal(t, webauth.Allow, backend.surface.navigate("https://idp.example.com/login"))
		assert.Equal(t, webauth.Suppress, backend.surface.navigate("myapp:authorized?code=abc123&state=s1"))
		assert.Equal(t, webauth.Suppress, backend.surface.navigate("myapp:authorized?code=again"))
	})

	assert.Equal(t, 1, calls)
	require.NotNil(t, redirect)
	assert.Equal(t, "abc123", redirect.Query().Get("code"))
	assert.Equal(t, "s1", redirect.Query().Get("state"))
	assert.True(t, handle.Released(), "handle is released once the flow resolved")
	assert.Equal(t, int32(1), backend.surface.cancelled.Load())
}

func TestAuthenticatePresentError(t *testing.T) {
	t.Parallel()

	loop := mainthread.New()
	req := testRequest(t)
	req.CallbackScheme = "bad scheme"

	onLoop(t, loop, func(ctx context.Context) {
		handle, err := webauth.Authenticate(ctx, &fakeBackend{}, req, func(*url.URL, error) {
			t.Error("onDone must not run")
		})
		assert.Nil(t, handle)
		assert.True(t, errors.Is(err, webauth.ErrNativeConstructionFailed))
	})
}

func TestCancelHandle(t *testing.T) {
	t.Parallel()

	t.Run("cancel before completion aborts", func(t *testing.T) {
		t.Parallel()
		loop := mainthread.New()
		backend := &fakeBackend{}
		var gotErr error
		onLoop(t, loop, func(ctx context.Context) {
			handle, err := webauth.Authenticate(ctx, backend, testRequest(t), func(_ *url.URL, err error) {
				gotErr = err
			})
			require.NoError(t, err)
			require.NoError(t, handle.Cancel(ctx))
			require.NoError(t, handle.Cancel(ctx))
		})

		assert.Equal(t, int32(1), backend.surface.cancelled.Load(), "native cancel runs at most once")
		assert.True(t, errors.Is(gotErr, webauth.ErrAborted))

		// a native event arriving after teardown is ignored
		onLoop(t, loop, func(context.Context) {
			backend.surface.navigate("myapp:late?code=1")
		})
		assert.True(t, errors.Is(gotErr, webauth.ErrAborted))
	})

	t.Run("cancel after completion is harmless", func(t *testing.T) {
		t.Parallel()
		loop := mainthread.New()
		backend := &fakeBackend{}
		var handle *webauth.CancelHandle
		var got *url.URL
		onLoop(t, loop, func(ctx context.Context) {
			var err error
			handle, err = webauth.Authenticate(ctx, backend, testRequest(t), func(u *url.URL, err error) {
				got = u
			})
			require.NoError(t, err)
			backend.surface.navigate("myapp:done?code=ok")
		})
		require.NotNil(t, got)

		onLoop(t, loop, func(ctx context.Context) {
			assert.NoError(t, handle.Cancel(ctx))
		})
		assert.Equal(t, int32(1), backend.surface.cancelled.Load())
		assert.Equal(t, "ok", got.Query().Get("code"))
	})

	t.Run("cancel off main thread", func(t *testing.T) {
		t.Parallel()
		loop := mainthread.New()
		backend := &fakeBackend{}
		var handle *webauth.CancelHandle
		onLoop(t, loop, func(ctx context.Context) {
			var err error
			handle, err = webauth.Authenticate(ctx, backend, testRequest(t), func(*url.URL, error) {})
			require.NoError(t, err)
		})

		err := handle.Cancel(context.Background())
		assert.True(t, errors.Is(err, webauth.ErrPlatformUnavailable))
		assert.False(t, handle.Released())
		assert.Zero(t, backend.surface.cancelled.Load())
	})
}

func TestAuthenticateAsyncResolves(t *testing.T) {
	t.Parallel()

	loop := mainthread.New()
	backend := &fakeBackend{}
	var fut *webauth.Future
	onLoop(t, loop, func(ctx context.Context) {
		fut = webauth.AuthenticateAsync(ctx, backend, testRequest(t))
	})

	_, ok := fut.Poll()
	assert.False(t, ok)
	_, ok = fut.Poll()
	assert.False(t, ok, "spurious polls must not change anything")
	assert.Equal(t, 1, backend.presented)

	onLoop(t, loop, func(context.Context) {
		backend.surface.navigate("myapp:authorized?code=abc123&state=s1")
	})

	select {
	case <-fut.Done():
	default:
		t.Fatal("future must be resolved after delivery")
	}

	redirect, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", redirect.Query().Get("code"))
	assert.Equal(t, int32(1), backend.surface.cancelled.Load(), "handle released on delivery")
}

func TestAuthenticateAsyncConstructionErrorOnFirstPoll(t *testing.T) {
	t.Parallel()

	loop := mainthread.New()
	backend := &fakeBackend{presentErr: webauth.ConstructionFailed(errors.New("refused"), "session refused")}
	var fut *webauth.Future
	onLoop(t, loop, func(ctx context.Context) {
		fut = webauth.AuthenticateAsync(ctx, backend, testRequest(t))
	})

	r, ok := fut.Poll()
	require.True(t, ok)
	assert.True(t, errors.Is(r.Err, webauth.ErrNativeConstructionFailed))
}

func TestAuthenticateAsyncOffMainThread(t *testing.T) {
	t.Parallel()

	fut := webauth.AuthenticateAsync(context.Background(), &fakeBackend{}, testRequest(t))
	_, err := fut.Wait(context.Background())
	assert.True(t, errors.Is(err, webauth.ErrPlatformUnavailable))
}

func TestFutureCancel(t *testing.T) {
	t.Parallel()

	loop := mainthread.New()
	backend := &fakeBackend{}
	var fut *webauth.Future
	onLoop(t, loop, func(ctx context.Context) {
		fut = webauth.AuthenticateAsync(ctx, backend, testRequest(t))
	})

	fut.Cancel()
	r, ok := fut.Poll()
	require.True(t, ok)
	assert.True(t, errors.Is(r.Err, webauth.ErrAborted))

	// the release was posted to the loop
	assert.Zero(t, backend.surface.cancelled.Load())
	drain(t, loop)
	assert.Equal(t, int32(1), backend.surface.cancelled.Load())

	onLoop(t, loop, func(context.Context) {
		backend.surface.navigate("myapp:late?code=1")
	})
	r, _ = fut.Poll()
	assert.True(t, errors.Is(r.Err, webauth.ErrAborted), "late delivery must not override the cancellation")
}

func TestFutureWaitTimeoutCancels(t *testing.T) {
	t.Parallel()

	loop := mainthread.New()
	backend := &fakeBackend{}
	var fut *webauth.Future
	onLoop(t, loop, func(ctx context.Context) {
		fut = webauth.AuthenticateAsync(ctx, backend, testRequest(t))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := fut.Wait(ctx)
	assert.True(t, errors.Is(err, webauth.ErrAborted))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	drain(t, loop)
	assert.Equal(t, int32(1), backend.surface.cancelled.Load())
}

func TestFutureWaitOnMainLoop(t *testing.T) {
	t.Parallel()

	loop := mainthread.New()
	onLoop(t, loop, func(ctx context.Context) {
		fut := webauth.AuthenticateAsync(ctx, &fakeBackend{}, testRequest(t))
		_, err := fut.Wait(ctx)
		assert.True(t, errors.Is(err, webauth.ErrPlatformUnavailable))
		fut.Cancel()
	})
}

func TestFutureWaitFromWorker(t *testing.T) {
	t.Parallel()

	loop := mainthread.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()
	defer loop.Stop()

	backend := &fakeBackend{}
	futures := make(chan *webauth.Future, 1)
	require.NoError(t, loop.Call(ctx, func(ctx context.Context) {
		futures <- webauth.AuthenticateAsync(ctx, backend, testRequest(t))
	}))
	fut := <-futures

	require.NoError(t, loop.Call(ctx, func(context.Context) {
		backend.surface.navigate("https://idp.example.com/approve")
		backend.surface.navigate("myapp:authorized?code=worker")
	}))

	redirect, err := fut.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "worker", redirect.Query().Get("code"))
}

func TestAbandonedFutureReleasesHandle(t *testing.T) {
	t.Parallel()

	loop := mainthread.New()
	backend := &fakeBackend{}
	onLoop(t, loop, func(ctx context.Context) {
		_ = webauth.AuthenticateAsync(ctx, backend, testRequest(t))
	})

	assert.Eventually(t, func() bool {
		runtime.GC()
		_, _ = loop.Drain(context.Background())
		return backend.surface.cancelled.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.True(t, backend.surface.completer.Completed(), "completer is abandoned with the handle")
}
