package prop

import "context"

// Stream is a lazily polled sequence of values. It never ends by itself; Next
// fails only when its context is done or the underlying property is
// disconnected. A Stream must be polled from one goroutine at a time.
type Stream[T any] struct {
	next func(context.Context) (T, error)
}

// Stream returns a Stream whose first value is the current value of the
// receiver, followed by one value per publish. The stream reads from a clone,
// so it does not disturb r; calling Stream again starts a new sequence.
func (r *Receiver[T]) Stream() *Stream[T] {
	rc := r.Clone()
	first := true
	return &Stream[T]{func(ctx context.Context) (T, error) {
		if first {
			first = false
			return rc.observe(), nil
		}
		return rc.Notified(ctx)
	}}
}

// Next waits for and returns the next value.
func (s *Stream[T]) Next(ctx context.Context) (T, error) { return s.next(ctx) }

// Map returns a Stream of f applied to every value of s.
func Map[T, U any](s *Stream[T], f func(T) U) *Stream[U] {
	return &Stream[U]{func(ctx context.Context) (U, error) {
		v, err := s.next(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return f(v), nil
	}}
}

// Filter returns a Stream of the values of s for which keep returns true.
func Filter[T any](s *Stream[T], keep func(T) bool) *Stream[T] {
	return &Stream[T]{func(ctx context.Context) (T, error) {
		for {
			v, err := s.next(ctx)
			if err != nil || keep(v) {
				return v, err
			}
		}
	}}
}

// Drive calls handler with every value of s until Next fails, and returns the
// error.
func (s *Stream[T]) Drive(ctx context.Context, handler func(context.Context, T)) error {
	for {
		v, err := s.next(ctx)
		if err != nil {
			return err
		}
		handler(ctx, v)
	}
}

// Spawn runs Drive in a new Task.
func (s *Stream[T]) Spawn(ctx context.Context, handler func(context.Context, T)) *Task {
	return Go(ctx, func(ctx context.Context) error { return s.Drive(ctx, handler) })
}

// BindStream forwards every value of s to dst with NotifyWith, until Next
// fails.
func BindStream[T comparable](ctx context.Context, s *Stream[T], dst *Sender[T]) error {
	return s.Drive(ctx, func(_ context.Context, v T) { dst.NotifyWith(v) })
}

// SpawnBindStream runs BindStream in a new Task.
func SpawnBindStream[T comparable](ctx context.Context, s *Stream[T], dst *Sender[T]) *Task {
	return Go(ctx, func(ctx context.Context) error { return BindStream(ctx, s, dst) })
}
