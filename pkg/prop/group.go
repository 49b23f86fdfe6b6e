package prop

import (
	"context"
	"reflect"
)

// Source is something that has a current value and can be awaited for
// notifications. It is implemented by *Receiver and the group types.
type Source[T any] interface {
	Value() T
	Notified(ctx context.Context) (T, error)
	watchers() []watcher
}

// A single receiver inside a source, as seen by group waits.
type watcher interface {
	poll() (pending bool, wake <-chan struct{}, closed bool)
	consume()
}

// Waits until at least one of ws has an unobserved publish, and marks all
// pending ones as observed.
func waitAny(ctx context.Context, ws []watcher) error {
	cases := make([]reflect.SelectCase, 0, len(ws)+1)
	for {
		cases = cases[:0]
		pending := false
		for _, w := range ws {
			p, wake, closed := w.poll()
			if p {
				w.consume()
				pending = true
			} else if !closed {
				cases = append(cases, reflect.SelectCase{
					Dir: reflect.SelectRecv, Chan: reflect.ValueOf(wake)})
			}
		}
		if pending {
			return nil
		}
		if len(cases) == 0 {
			return ErrDisconnected
		}
		cases = append(cases, reflect.SelectCase{
			Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})
		if chosen, _, _ := reflect.Select(cases); chosen == len(cases)-1 {
			return ctx.Err()
		}
	}
}

// Tuple2 is the value of a Group2.
type Tuple2[A, B any] struct {
	V1 A
	V2 B
}

// Tuple3 is the value of a Group3.
type Tuple3[A, B, C any] struct {
	V1 A
	V2 B
	V3 C
}

// Tuple4 is the value of a Group4.
type Tuple4[A, B, C, D any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
}

// Group2 merges two sources. Its Notified completes when either member is
// notified, and yields the values of both.
type Group2[A, B any] struct {
	a Source[A]
	b Source[B]
}

// Join2 returns a Group2 of a and b. The group takes over the sources: they
// must not be awaited directly while the group is in use.
func Join2[A, B any](a Source[A], b Source[B]) *Group2[A, B] {
	return &Group2[A, B]{a, b}
}

func (g *Group2[A, B]) Value() Tuple2[A, B] {
	return Tuple2[A, B]{g.a.Value(), g.b.Value()}
}

func (g *Group2[A, B]) Notified(ctx context.Context) (Tuple2[A, B], error) {
	if err := waitAny(ctx, g.watchers()); err != nil {
		return Tuple2[A, B]{}, err
	}
	return g.Value(), nil
}

func (g *Group2[A, B]) watchers() []watcher {
	return append(g.a.watchers(), g.b.watchers()...)
}

// Group3 is like Group2 with three members.
type Group3[A, B, C any] struct {
	a Source[A]
	b Source[B]
	c Source[C]
}

func Join3[A, B, C any](a Source[A], b Source[B], c Source[C]) *Group3[A, B, C] {
	return &Group3[A, B, C]{a, b, c}
}

func (g *Group3[A, B, C]) Value() Tuple3[A, B, C] {
	return Tuple3[A, B, C]{g.a.Value(), g.b.Value(), g.c.Value()}
}

func (g *Group3[A, B, C]) Notified(ctx context.Context) (Tuple3[A, B, C], error) {
	if err := waitAny(ctx, g.watchers()); err != nil {
		return Tuple3[A, B, C]{}, err
	}
	return g.Value(), nil
}

func (g *Group3[A, B, C]) watchers() []watcher {
	ws := append(g.a.watchers(), g.b.watchers()...)
	return append(ws, g.c.watchers()...)
}

// Group4 is like Group2 with four members.
type Group4[A, B, C, D any] struct {
	a Source[A]
	b Source[B]
	c Source[C]
	d Source[D]
}

func Join4[A, B, C, D any](a Source[A], b Source[B], c Source[C], d Source[D]) *Group4[A, B, C, D] {
	return &Group4[A, B, C, D]{a, b, c, d}
}

func (g *Group4[A, B, C, D]) Value() Tuple4[A, B, C, D] {
	return Tuple4[A, B, C, D]{g.a.Value(), g.b.Value(), g.c.Value(), g.d.Value()}
}

func (g *Group4[A, B, C, D]) Notified(ctx context.Context) (Tuple4[A, B, C, D], error) {
	if err := waitAny(ctx, g.watchers()); err != nil {
		return Tuple4[A, B, C, D]{}, err
	}
	return g.Value(), nil
}

func (g *Group4[A, B, C, D]) watchers() []watcher {
	ws := append(g.a.watchers(), g.b.watchers()...)
	ws = append(ws, g.c.watchers()...)
	return append(ws, g.d.watchers()...)
}

// GroupAll merges any number of sources of the same type.
type GroupAll[T any] struct {
	srcs []Source[T]
}

// JoinAll returns a GroupAll of srcs.
func JoinAll[T any](srcs ...Source[T]) *GroupAll[T] {
	return &GroupAll[T]{srcs}
}

// JoinReceivers is like JoinAll, but takes a slice of receivers.
func JoinReceivers[T comparable](rs []*Receiver[T]) *GroupAll[T] {
	srcs := make([]Source[T], len(rs))
	for i, r := range rs {
		srcs[i] = r
	}
	return &GroupAll[T]{srcs}
}

func (g *GroupAll[T]) Value() []T {
	vs := make([]T, len(g.srcs))
	for i, src := range g.srcs {
		vs[i] = src.Value()
	}
	return vs
}

func (g *GroupAll[T]) Notified(ctx context.Context) ([]T, error) {
	if err := waitAny(ctx, g.watchers()); err != nil {
		return nil, err
	}
	return g.Value(), nil
}

func (g *GroupAll[T]) watchers() []watcher {
	var ws []watcher
	for _, src := range g.srcs {
		ws = append(ws, src.watchers()...)
	}
	return ws
}
