package model

import (
	"sync"

	"src.frand.dev/pkg/store/storedefs"
)

// Writes rows to a store on its own goroutine, so that saving never blocks the
// host loop. Rows queued for the same key before they are written are
// coalesced into the latest one.
type rowWriter struct {
	st storedefs.Store

	mu      sync.Mutex
	pending map[string]map[string]string
	keys    []string
	flushes []chan struct{}
	closed  bool

	wakeCh chan struct{}
	done   chan struct{}
}

func newRowWriter(st storedefs.Store) *rowWriter {
	w := &rowWriter{st: st, pending: map[string]map[string]string{},
		wakeCh: make(chan struct{}, 1), done: make(chan struct{})}
	go w.run()
	return w
}

func (w *rowWriter) put(key string, row map[string]string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		logger.Printf("save %s: registry closed", key)
		return
	}
	if _, ok := w.pending[key]; !ok {
		w.keys = append(w.keys, key)
	}
	w.pending[key] = row
	w.wake()
}

// Must be called with w.mu held.
func (w *rowWriter) wake() {
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

// Waits until all rows queued before the call have been written.
func (w *rowWriter) flush() {
	ch := make(chan struct{})
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.flushes = append(w.flushes, ch)
	w.wake()
	w.mu.Unlock()
	<-ch
}

// Writes the queued rows and stops the writer.
func (w *rowWriter) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		w.wake()
	}
	w.mu.Unlock()
	<-w.done
}

func (w *rowWriter) run() {
	defer close(w.done)
	for range w.wakeCh {
		w.mu.Lock()
		pending, keys, flushes, closed := w.pending, w.keys, w.flushes, w.closed
		w.pending, w.keys, w.flushes = map[string]map[string]string{}, nil, nil
		w.mu.Unlock()

		for _, key := range keys {
			if err := w.st.PutRow(key, pending[key]); err != nil {
				logger.Printf("save %s: %v", key, err)
			}
		}
		for _, ch := range flushes {
			close(ch)
		}
		if closed {
			return
		}
	}
}
