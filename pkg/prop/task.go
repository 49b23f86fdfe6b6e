package prop

import "context"

// Task is a handle for a goroutine spawned by this package.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Go runs f in a new goroutine with a context derived from ctx, which is
// canceled by [Task.Stop].
func Go(ctx context.Context, f func(context.Context) error) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel, make(chan struct{}), nil}
	go func() {
		defer close(t.done)
		defer cancel()
		t.err = f(ctx)
	}()
	return t
}

// Stop requests the task to stop. It does not wait.
func (t *Task) Stop() { t.cancel() }

// Done returns a channel that is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait waits for the task to finish and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// StopAll stops all tasks and waits for them.
func StopAll(tasks []*Task) {
	for _, t := range tasks {
		t.Stop()
	}
	for _, t := range tasks {
		t.Wait()
	}
}
