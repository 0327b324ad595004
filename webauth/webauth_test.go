package webauth_test

import (
	"context"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/naotama2002/webauth-go/mainthread"
	"github.com/naotama2002/webauth-go/webauth"
)

// fakeSurface stands in for a native surface driven by the test.
type fakeSurface struct {
	interceptor *webauth.NavigationInterceptor
	completer   *webauth.Completer
	cancelled   atomic.Int32
	req         webauth.Request
}

// navigate reports a navigation the way a web view does.
func (s *fakeSurface) navigate(target string) webauth.Decision {
	return s.interceptor.Intercept(target)
}

type fakeBackend struct {
	presentErr error
	presented  int
	surface    *fakeSurface
}

func (b *fakeBackend) Present(ctx context.Context, req webauth.Request) (*webauth.CancelHandle, *webauth.Completion, error) {
	b.presented++
	if b.presentErr != nil {
		return nil, nil, b.presentErr
	}
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	loop, _ := mainthread.FromContext(ctx)
	completer, completion := webauth.NewCompletion()
	s := &fakeSurface{
		interceptor: webauth.NewNavigationInterceptor(req.CallbackScheme, completer),
		completer:   completer,
		req:         req,
	}
	b.surface = s
	handle := webauth.NewCancelHandle(loop, webauth.ResourceFunc(func() { s.cancelled.Add(1) }), nil, completer)
	return handle, completion, nil
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func testRequest(t *testing.T) webauth.Request {
	t.Helper()
	return webauth.Request{
		AuthURL:        mustParse(t, "https://idp.example.com/authorize?client_id=app"),
		CallbackScheme: "myapp",
	}
}

// onLoop runs fn as a main loop task and drains everything it queues.
func onLoop(t *testing.T, loop *mainthread.Loop, fn func(ctx context.Context)) {
	t.Helper()
	require.True(t, loop.Post(fn))
	drain(t, loop)
}

func drain(t *testing.T, loop *mainthread.Loop) {
	t.Helper()
	_, err := loop.Drain(context.Background())
	require.NoError(t, err)
}
