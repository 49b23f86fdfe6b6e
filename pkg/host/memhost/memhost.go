// Package memhost implements an in-process host. It runs all host work on one
// serial loop goroutine, and lets callers emulate host-side edits and signals.
package memhost

import (
	"sync"

	"src.frand.dev/pkg/host"
	"src.frand.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[memhost] ")

// Host is an in-process host.
type Host struct {
	mu      sync.Mutex
	queue   []func()
	closed  bool
	globals map[string]*Global

	wakeCh chan struct{}
	doneCh chan struct{}
}

var _ host.Handle = (*Host)(nil)

// New creates a Host and starts its loop.
func New() *Host {
	h := &Host{
		globals: map[string]*Global{},
		wakeCh:  make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}
	go h.run()
	return h
}

// The loop is fully serial: queued functions never run in parallel, so they
// may touch host state without synchronizing with each other.
func (h *Host) run() {
	defer close(h.doneCh)
	for {
		h.mu.Lock()
		queue, closed := h.queue, h.closed
		h.queue = nil
		h.mu.Unlock()
		if len(queue) == 0 {
			if closed {
				return
			}
			<-h.wakeCh
			continue
		}
		for _, f := range queue {
			f()
		}
	}
}

// InvokeLater queues f to run on the host loop. It never blocks. It returns
// host.ErrTornDown after Close has been called.
func (h *Host) InvokeLater(f func()) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return host.ErrTornDown
	}
	h.queue = append(h.queue, f)
	h.mu.Unlock()
	select {
	case h.wakeCh <- struct{}{}:
	default:
	}
	return nil
}

// Do runs f on the host loop and waits for it to finish. It must not be called
// from the host loop.
func (h *Host) Do(f func()) error {
	done := make(chan struct{})
	err := h.InvokeLater(func() {
		defer close(done)
		f()
	})
	if err != nil {
		return err
	}
	<-done
	return nil
}

// Sync waits until everything queued before the call has run.
func (h *Host) Sync() error { return h.Do(func() {}) }

// Close stops accepting new work, waits for queued work to finish and stops
// the loop. It is safe to call Close more than once.
func (h *Host) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	select {
	case h.wakeCh <- struct{}{}:
	default:
	}
	<-h.doneCh
	logger.Println("host closed")
}

// AddGlobal adds a global whose data holds one row, a copy of template. It
// replaces any global with the same name.
func (h *Host) AddGlobal(name string, template host.Row) *Global {
	g := newGlobal(h, name, template.Clone())
	h.mu.Lock()
	defer h.mu.Unlock()
	h.globals[name] = g
	return g
}

// Global implements host.Handle.
func (h *Host) Global(name string) (host.Global, bool) {
	g, ok := h.LookupGlobal(name)
	if !ok {
		return nil, false
	}
	return g, true
}

// LookupGlobal is like Global, but returns the concrete type.
func (h *Host) LookupGlobal(name string) (*Global, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.globals[name]
	return g, ok
}

// GlobalNames returns the names of all globals.
func (h *Host) GlobalNames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.globals))
	for name := range h.globals {
		names = append(names, name)
	}
	return names
}
