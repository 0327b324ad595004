// Package oneshot provides a single-producer, single-consumer channel that
// carries at most one value.
package oneshot

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Receiver.Recv when the sender was closed without
// sending a value.
var ErrClosed = errors.New("oneshot: sender closed without a value")

type state[T any] struct {
	mu           sync.Mutex
	done         chan struct{}
	value        T
	sent         bool
	finished     bool
	receiverGone bool
	notify       func(T, bool)
}

// Sender is the sending half.
type Sender[T any] struct {
	st *state[T]
}

// Receiver is the receiving half.
type Receiver[T any] struct {
	st *state[T]
}

// New returns a connected sender and receiver.
func New[T any]() (*Sender[T], *Receiver[T]) {
	st := &state[T]{done: make(chan struct{})}
	return &Sender[T]{st: st}, &Receiver[T]{st: st}
}

// Send delivers v. It reports false, and does nothing, when a value was
// already delivered, the sender was closed, or the receiver went away.
func (s *Sender[T]) Send(v T) bool {
	st := s.st
	st.mu.Lock()
	if st.finished || st.receiverGone {
		st.mu.Unlock()
		return false
	}
	st.value = v
	st.sent = true
	st.finished = true
	notify := st.notify
	st.notify = nil
	close(st.done)
	st.mu.Unlock()

	if notify != nil {
		notify(v, true)
	}
	return true
}

// Close drops the sender. A receiver still waiting observes ErrClosed.
// Closing after Send is a no-op.
func (s *Sender[T]) Close() {
	st := s.st
	st.mu.Lock()
	if st.finished {
		st.mu.Unlock()
		return
	}
	st.finished = true
	notify := st.notify
	st.notify = nil
	close(st.done)
	st.mu.Unlock()

	if notify != nil {
		var zero T
		notify(zero, false)
	}
}

// Finished reports whether the channel already resolved.
func (s *Sender[T]) Finished() bool {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.st.finished
}

// Done is closed once a value is sent or the sender is closed.
func (r *Receiver[T]) Done() <-chan struct{} {
	return r.st.done
}

// TryRecv returns the state of the channel without blocking. ready is false
// while nothing happened yet; ok is false when the sender closed empty.
func (r *Receiver[T]) TryRecv() (v T, ok bool, ready bool) {
	st := r.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.finished {
		return v, false, false
	}
	return st.value, st.sent, true
}

// Recv blocks until a value is delivered, the sender is closed or ctx is done.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	select {
	case <-r.st.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	v, ok, _ := r.TryRecv()
	if !ok {
		return v, ErrClosed
	}
	return v, nil
}

// Notify registers fn to run exactly once when the channel resolves. fn runs
// on the goroutine that calls Send or Close, or immediately on the caller's
// goroutine if the channel already resolved. Only the last registration
// before resolution is kept.
func (r *Receiver[T]) Notify(fn func(v T, ok bool)) {
	st := r.st
	st.mu.Lock()
	if !st.finished {
		st.notify = fn
		st.mu.Unlock()
		return
	}
	v, ok := st.value, st.sent
	st.mu.Unlock()
	fn(v, ok)
}

// Close marks the receiver as gone; later sends are dropped.
func (r *Receiver[T]) Close() {
	r.st.mu.Lock()
	r.st.receiverGone = true
	r.st.notify = nil
	r.st.mu.Unlock()
}
