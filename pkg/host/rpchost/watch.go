package rpchost

import (
	"context"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
)

// A watch forwards row changes to a client. Row trackers run on the host loop,
// so they only queue notifications; a separate goroutine sends them in order.
type watch struct {
	ctx      context.Context
	conn     jsonrpc2.JSONRPC2
	cancel   func()
	stopSend context.CancelFunc

	mu     sync.Mutex
	queue  []RowChangedParams
	wakeCh chan struct{}
}

func newWatch(ctx context.Context, conn jsonrpc2.JSONRPC2) *watch {
	ctx, stop := context.WithCancel(context.WithoutCancel(ctx))
	w := &watch{ctx: ctx, conn: conn, stopSend: stop, wakeCh: make(chan struct{}, 1)}
	go w.run()
	return w
}

func (w *watch) push(p RowChangedParams) {
	w.mu.Lock()
	w.queue = append(w.queue, p)
	w.mu.Unlock()
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

func (w *watch) run() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.wakeCh:
		}
		w.mu.Lock()
		queue := w.queue
		w.queue = nil
		w.mu.Unlock()
		for _, p := range queue {
			if err := w.conn.Notify(w.ctx, RowChanged, p); err != nil {
				logger.Printf("notify %s[%d]: %v", p.Global, p.Index, err)
				return
			}
		}
	}
}

func (w *watch) stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.stopSend()
}
