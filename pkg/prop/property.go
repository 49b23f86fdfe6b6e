// Package prop implements reactive properties: single-value broadcast cells
// that push every outbound change to a host through a setter, and let any
// number of receivers observe and await changes.
//
// A [Property] is split into a [Sender] and a [Receiver] sharing one slot.
// Sending through the Sender first calls the setter, then publishes the value
// to all receivers. [Sender.Send] skips both steps when the value is unchanged;
// [Sender.Notify] and [Sender.NotifyWith] always perform them.
//
// Receivers can be composed: [Receiver.Stream] turns one into a lazily polled
// sequence of values, and [Join2] and friends merge several receivers into one
// [Source] that is notified when any member is.
package prop

import (
	"errors"
	"sync"
)

// ErrDisconnected is returned by waits on a Receiver after all Senders of its
// slot have been closed and the wait can no longer be satisfied.
var ErrDisconnected = errors.New("property disconnected: all senders closed")

// Unit is the value type of signal properties, which carry no value; only the
// fact that they fired.
type Unit = struct{}

// Property is a Sender and a Receiver sharing one slot.
type Property[T comparable] struct {
	sender   *Sender[T]
	receiver *Receiver[T]
}

// New creates a Property with the given initial value. On every outbound
// propagation, set is called with component and the new value; a nil set is
// treated as a no-op. The setter is not called by New itself.
func New[C any, T comparable](component C, initial T, set func(C, T)) *Property[T] {
	setter := func(T) {}
	if set != nil {
		setter = func(v T) { set(component, v) }
	}
	s := newSlot(initial)
	return &Property[T]{&Sender[T]{slot: s, set: setter}, newReceiver(s)}
}

// From creates a Property with the given initial value and no setter.
func From[T comparable](v T) *Property[T] {
	return New[Unit, T](Unit{}, v, nil)
}

// Sender returns the Sender of the property. It is shared by all callers; use
// [Sender.Clone] for a handle that can be closed independently.
func (p *Property[T]) Sender() *Sender[T] { return p.sender }

// Receiver returns the Receiver of the property. It is shared by all callers,
// so it must not be awaited from more than one goroutine; use
// [Receiver.Clone] to get an independent one.
func (p *Property[T]) Receiver() *Receiver[T] { return p.receiver }

// Value returns the current value of the property.
func (p *Property[T]) Value() T { return p.sender.slot.get() }

// The shared broadcast cell.
type slot[T comparable] struct {
	mu      sync.Mutex
	value   T
	version uint64
	// Closed and replaced on every publish. Once the slot is disconnected it
	// stays closed.
	wake    chan struct{}
	senders int
	// Tickets handed out to sends and the newest ticket published. A send only
	// publishes if no send started after it has published already.
	tickets   uint64
	published uint64
}

func newSlot[T comparable](v T) *slot[T] {
	return &slot[T]{value: v, wake: make(chan struct{}), senders: 1}
}

type slotState[T comparable] struct {
	value   T
	version uint64
	wake    <-chan struct{}
	closed  bool
}

func (s *slot[T]) load() slotState[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slotState[T]{s.value, s.version, s.wake, s.senders == 0}
}

func (s *slot[T]) get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// begin starts a send, returning the current value and the ticket to publish
// with.
func (s *slot[T]) begin() (T, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets++
	return s.value, s.tickets
}

// publish stores v and wakes all waiters, unless a send that began after the
// one holding ticket has already published. It has no effect after the slot
// has been disconnected.
func (s *slot[T]) publish(v T, ticket uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.senders == 0 || ticket < s.published {
		return
	}
	s.published = ticket
	s.value = v
	s.version++
	close(s.wake)
	s.wake = make(chan struct{})
}

func (s *slot[T]) acquire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.senders++
}

func (s *slot[T]) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.senders == 0 {
		return
	}
	s.senders--
	if s.senders == 0 {
		close(s.wake)
	}
}
