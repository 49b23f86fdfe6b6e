package prop

import (
	"context"
	"sync"
)

// Receiver is the reading half of a Property. It remembers the last publish it
// has observed, so that a change that happens between two waits is not lost.
//
// Value may be called from any goroutine. The waiting methods may be called
// concurrently, but a receiver shared between waiting goroutines hands each
// publish to only one of them; give each goroutine its own [Receiver.Clone].
type Receiver[T comparable] struct {
	slot *slot[T]

	mu   sync.Mutex
	seen uint64
	last T
}

func newReceiver[T comparable](s *slot[T]) *Receiver[T] {
	st := s.load()
	return &Receiver[T]{slot: s, seen: st.version, last: st.value}
}

// Value returns the current value without waiting and without marking it as
// observed.
func (r *Receiver[T]) Value() T { return r.slot.get() }

// Clone returns an independent Receiver that has observed what r has
// observed.
func (r *Receiver[T]) Clone() *Receiver[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Receiver[T]{slot: r.slot, seen: r.seen, last: r.last}
}

// Changed waits until the value differs from the value this receiver last
// observed, and returns the new value. Publishes that re-assert the observed
// value are consumed without returning.
//
// It returns ctx.Err() if ctx is done first, and ErrDisconnected if all senders
// are closed and the value is unchanged.
func (r *Receiver[T]) Changed(ctx context.Context) (T, error) {
	for {
		st := r.slot.load()
		r.mu.Lock()
		r.seen = st.version
		changed := st.value != r.last
		if changed {
			r.last = st.value
		}
		r.mu.Unlock()
		if changed {
			return st.value, nil
		}
		if err := wait(ctx, st); err != nil {
			var zero T
			return zero, err
		}
	}
}

// Modified is like Changed, but only reports whether a change happened.
func (r *Receiver[T]) Modified(ctx context.Context) error {
	_, err := r.Changed(ctx)
	return err
}

// Notified waits until a publish this receiver has not observed happens,
// including one that re-asserts the current value, and returns the published
// value. It is the way to wait for signals.
//
// It returns ctx.Err() if ctx is done first, and ErrDisconnected if all senders
// are closed and there is no unobserved publish.
func (r *Receiver[T]) Notified(ctx context.Context) (T, error) {
	for {
		st := r.slot.load()
		r.mu.Lock()
		pending := st.version > r.seen
		if pending {
			r.seen, r.last = st.version, st.value
		}
		r.mu.Unlock()
		if pending {
			return st.value, nil
		}
		if err := wait(ctx, st); err != nil {
			var zero T
			return zero, err
		}
	}
}

// Marks the current value as observed and returns it.
func (r *Receiver[T]) observe() T {
	st := r.slot.load()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen, r.last = st.version, st.value
	return st.value
}

func (r *Receiver[T]) watchers() []watcher { return []watcher{r} }

func (r *Receiver[T]) poll() (pending bool, wake <-chan struct{}, closed bool) {
	st := r.slot.load()
	r.mu.Lock()
	defer r.mu.Unlock()
	return st.version > r.seen, st.wake, st.closed
}

func (r *Receiver[T]) consume() {
	st := r.slot.load()
	r.mu.Lock()
	defer r.mu.Unlock()
	if st.version > r.seen {
		r.seen, r.last = st.version, st.value
	}
}

func wait[T comparable](ctx context.Context, st slotState[T]) error {
	if st.closed {
		return ErrDisconnected
	}
	select {
	case <-st.wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
