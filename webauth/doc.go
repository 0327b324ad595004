// Package webauth presents an authorization URL in a browsing surface,
// watches every navigation inside it and resolves exactly once with the
// redirect URL carrying the authorization response, or with an error.
//
// A Backend owns the native surface. Two variants exist: a system
// authentication session (package systemsession) and an embedded web view
// (package embedded). Both must be driven from a mainthread.Loop task:
//
//	loop.Post(func(ctx context.Context) {
//		fut := webauth.AuthenticateAsync(ctx, backend, webauth.Request{
//			AuthURL:        authURL,
//			CallbackScheme: "com.example.app",
//		})
//		go func() {
//			redirect, err := fut.Wait(context.Background())
//			...
//		}()
//	})
//
// The CancelHandle returned by Authenticate, or held by a Future, is the only
// way to cancel a flow. Releasing it tears the native surface down.
package webauth
