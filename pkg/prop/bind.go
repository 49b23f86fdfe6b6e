package prop

import "context"

// Bind sends the value of src to dst every time src is notified, until ctx is
// done or src is disconnected. The current value is not sent up front.
func Bind[T comparable](ctx context.Context, src Source[T], dst *Sender[T]) error {
	for {
		v, err := src.Notified(ctx)
		if err != nil {
			return err
		}
		dst.Send(v)
	}
}

// SpawnBind runs Bind in a new Task. The task takes over src.
func SpawnBind[T comparable](ctx context.Context, src Source[T], dst *Sender[T]) *Task {
	return Go(ctx, func(ctx context.Context) error { return Bind(ctx, src, dst) })
}

// BindAll binds rs[i] to ss[i] for every index present in both slices, one
// Task per pair. Every task reads from a clone of its receiver.
func BindAll[T comparable](ctx context.Context, rs []*Receiver[T], ss []*Sender[T]) []*Task {
	n := min(len(rs), len(ss))
	tasks := make([]*Task, n)
	for i := 0; i < n; i++ {
		tasks[i] = SpawnBind[T](ctx, rs[i].Clone(), ss[i])
	}
	return tasks
}

// Senders returns the senders of props.
func Senders[T comparable](props []*Property[T]) []*Sender[T] {
	ss := make([]*Sender[T], len(props))
	for i, p := range props {
		ss[i] = p.Sender()
	}
	return ss
}

// Receivers returns clones of the receivers of props.
func Receivers[T comparable](props []*Property[T]) []*Receiver[T] {
	rs := make([]*Receiver[T], len(props))
	for i, p := range props {
		rs[i] = p.Receiver().Clone()
	}
	return rs
}
