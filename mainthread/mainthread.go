// Package mainthread provides the single UI loop that owns every native UI
// resource of an authentication flow.
//
// A Loop runs queued tasks one at a time, either on a dedicated locked OS
// thread (Run) or pumped by a host event loop (Drain). Each task receives a
// context that marks it as running on the loop; Check uses that marker to
// reject calls made from anywhere else. The marker is only valid while the
// task runs and must not be handed to other goroutines.
package mainthread

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// ErrNotOnMainThread is returned by Check outside a loop task.
	ErrNotOnMainThread = errors.New("not running on the main thread")
	// ErrLoopBusy is returned when the loop is already being run or drained.
	ErrLoopBusy = errors.New("main loop is already running")
	// ErrLoopStopped is returned when posting to a stopped loop.
	ErrLoopStopped = errors.New("main loop is stopped")
)

// Task is a unit of work run on the loop.
type Task func(ctx context.Context)

type markerKey struct{}

type marker struct {
	loop *Loop
	id   uint64
}

// Loop is a FIFO task queue executed by a single goroutine at a time.
type Loop struct {
	mu      sync.Mutex
	queue   []Task
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
	stop    sync.Once

	active  atomic.Bool
	current atomic.Uint64
	seq     uint64
}

// New creates a loop. Nothing runs until Run or Drain is called.
func New() *Loop {
	return &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Post queues fn. It is safe to call from any goroutine, including loop
// tasks. It reports false when the loop is stopped.
func (l *Loop) Post(fn Task) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the loop and waits for it to return. Called from a task of
// this loop it runs fn inline.
func (l *Loop) Call(ctx context.Context, fn Task) error {
	if m, ok := ctx.Value(markerKey{}).(marker); ok && m.loop == l && l.current.Load() == m.id {
		fn(ctx)
		return nil
	}

	done := make(chan struct{})
	if !l.Post(func(ctx context.Context) {
		defer close(done)
		fn(ctx)
	}) {
		return ErrLoopStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrLoopStopped
	}
}

// Run executes tasks on the calling goroutine, locked to its OS thread, until
// ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	if !l.active.CompareAndSwap(false, true) {
		return ErrLoopBusy
	}
	defer l.active.Store(false)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		l.runQueued(ctx)
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopped:
			return nil
		}
	}
}

// Drain runs every task queued so far, plus those they queue, on the calling
// goroutine and returns how many ran. Hosts with their own event loop call it
// from that loop.
func (l *Loop) Drain(ctx context.Context) (int, error) {
	if !l.active.CompareAndSwap(false, true) {
		return 0, ErrLoopBusy
	}
	defer l.active.Store(false)
	return l.runQueued(ctx), nil
}

// Stop stops the loop. Queued tasks are discarded.
func (l *Loop) Stop() {
	l.stop.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.stopped)
	})
}

// Stopped is closed once Stop is called.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}

func (l *Loop) runQueued(ctx context.Context) int {
	ran := 0
	for {
		select {
		case <-l.stopped:
			return ran
		default:
		}

		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return ran
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.exec(ctx, fn)
		ran++
	}
}

func (l *Loop) exec(ctx context.Context, fn Task) {
	l.seq++
	id := l.seq
	prev := l.current.Swap(id)
	defer l.current.Store(prev)

	fn(context.WithValue(ctx, markerKey{}, marker{loop: l, id: id}))
}

// Check reports whether ctx belongs to a task currently running on its loop.
func Check(ctx context.Context) error {
	m, ok := ctx.Value(markerKey{}).(marker)
	if !ok || m.loop.current.Load() != m.id {
		return ErrNotOnMainThread
	}
	return nil
}

// FromContext returns the loop ctx's task runs on, if any.
func FromContext(ctx context.Context) (*Loop, bool) {
	m, ok := ctx.Value(markerKey{}).(marker)
	if !ok {
		return nil, false
	}
	return m.loop, true
}
