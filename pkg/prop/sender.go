package prop

import "sync/atomic"

// Sender is the writing half of a Property. All methods are safe for
// concurrent use, and none of them block beyond the time the setter takes.
type Sender[T comparable] struct {
	slot   *slot[T]
	set    func(T)
	closed atomic.Bool
}

// Send sets the value. If v equals the current value, Send does nothing;
// otherwise it calls the setter with v and then publishes v to all receivers.
//
// The setter may send to the same property again. The value sent from within
// the setter wins, both for the host and for receivers.
func (s *Sender[T]) Send(v T) {
	if s.closed.Load() {
		return
	}
	cur, ticket := s.slot.begin()
	if cur == v {
		return
	}
	s.set(v)
	s.slot.publish(v, ticket)
}

// Notify calls the setter with the current value and publishes it again,
// waking receivers waiting with [Receiver.Notified].
func (s *Sender[T]) Notify() {
	s.NotifyWith(s.slot.get())
}

// NotifyWith calls the setter with v and publishes it, even if v equals the
// current value.
func (s *Sender[T]) NotifyWith(v T) {
	if s.closed.Load() {
		return
	}
	_, ticket := s.slot.begin()
	s.set(v)
	s.slot.publish(v, ticket)
}

// Value returns the current value.
func (s *Sender[T]) Value() T { return s.slot.get() }

// Receiver returns a new Receiver for the same slot, observing the current
// value.
func (s *Sender[T]) Receiver() *Receiver[T] { return newReceiver(s.slot) }

// Clone returns a new handle to the same slot sharing the setter. The slot
// stays connected as long as any handle is not closed. Cloning a closed handle
// returns a closed handle.
func (s *Sender[T]) Clone() *Sender[T] {
	c := &Sender[T]{slot: s.slot, set: s.set}
	if s.closed.Load() {
		c.closed.Store(true)
	} else {
		s.slot.acquire()
	}
	return c
}

// Close releases the handle; later calls on it have no effect. When the last
// handle of a slot is closed, receivers that wait for a value that can no
// longer arrive get [ErrDisconnected]. Closing a handle twice is a no-op.
func (s *Sender[T]) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.slot.release()
	}
}
