package webauth

import (
	"context"
	"runtime"
	"sync"

	"github.com/naotama2002/webauth-go/internal/logger"
	"github.com/naotama2002/webauth-go/mainthread"
)

// Resource is a native UI resource that can be torn down.
type Resource interface {
	// Cancel cancels or disposes the resource. It is called at most once, on
	// the main loop, and must be harmless after the flow completed.
	Cancel()
}

// ResourceFunc adapts a function to Resource.
type ResourceFunc func()

// Cancel calls f.
func (f ResourceFunc) Cancel() { f() }

// CancelHandle exclusively owns the native resource of a flow.
//
// Invariant: the callback object passed to NewCancelHandle outlives the
// resource. Releasing the handle cancels the resource first, then drops the
// callback object, then abandons the completer.
//
// Keep the handle reachable while the flow runs. A handle that becomes
// unreachable is released on its loop, like an explicit Cancel.
type CancelHandle struct {
	st *handleState
}

type handleState struct {
	loop *mainthread.Loop

	mu        sync.Mutex
	released  bool
	resource  Resource
	callback  any
	completer *Completer
}

// NewCancelHandle takes ownership of resource and of the native callback
// object that resource may still invoke. completer is abandoned on release.
func NewCancelHandle(loop *mainthread.Loop, resource Resource, callback any, completer *Completer) *CancelHandle {
	st := &handleState{
		loop:      loop,
		resource:  resource,
		callback:  callback,
		completer: completer,
	}
	h := &CancelHandle{st: st}
	runtime.AddCleanup(h, func(st *handleState) { st.releaseLater() }, st)
	return h
}

// Cancel releases the handle: the native resource is cancelled synchronously.
// It must be called from a main loop task; releasing an already released
// handle does nothing.
func (h *CancelHandle) Cancel(ctx context.Context) error {
	if err := mainthread.Check(ctx); err != nil {
		return NotOnMainThread("CancelHandle.Cancel")
	}
	h.st.release()
	return nil
}

// Released reports whether the handle was released.
func (h *CancelHandle) Released() bool {
	h.st.mu.Lock()
	defer h.st.mu.Unlock()
	return h.st.released
}

// releaseLater posts the release to the owning loop. Safe from any goroutine.
func (h *CancelHandle) releaseLater() {
	h.st.releaseLater()
}

func (st *handleState) releaseLater() {
	if !st.loop.Post(func(context.Context) { st.release() }) {
		// loop is gone together with every native resource it owned
		st.mu.Lock()
		completer := st.completer
		st.mu.Unlock()
		if completer != nil {
			completer.Abandon()
		}
	}
}

func (st *handleState) release() {
	st.mu.Lock()
	if st.released {
		st.mu.Unlock()
		return
	}
	st.released = true
	resource, completer := st.resource, st.completer
	st.mu.Unlock()

	completed := completer != nil && completer.Completed()
	logger.Debugw("releasing native resource", "completed", completed)
	if resource != nil {
		resource.Cancel()
	}

	st.mu.Lock()
	st.resource = nil
	st.callback = nil
	st.completer = nil
	st.mu.Unlock()

	if completer != nil {
		completer.Abandon()
	}
}
