// Package rpchost exposes the globals of an in-process host over JSON-RPC 2.0,
// so that a remote UI can read rows, edit fields, raise signals and watch for
// row changes.
package rpchost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"src.frand.dev/pkg/host"
	"src.frand.dev/pkg/host/memhost"
	"src.frand.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[rpchost] ")

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

// RowChanged is the method of the notification sent to watching clients.
const RowChanged = "global.rowChanged"

// GlobalParams names a global.
type GlobalParams struct {
	Global string `json:"global"`
}

// EditParams are the params of global.edit.
type EditParams struct {
	Global string `json:"global"`
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Value  any    `json:"value"`
}

// EditElementParams are the params of global.editElement.
type EditElementParams struct {
	Global  string `json:"global"`
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Element int    `json:"element"`
	Value   any    `json:"value"`
}

// SignalParams are the params of global.signal.
type SignalParams struct {
	Global string `json:"global"`
	Name   string `json:"name"`
	Index  int    `json:"index"`
}

// RowChangedParams are the params of the global.rowChanged notification.
type RowChangedParams struct {
	Global string   `json:"global"`
	Index  int      `json:"index"`
	Row    host.Row `json:"row"`
}

// Serve serves h on rwc until the connection is closed or ctx is done. It
// returns the connection without waiting.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, h *memhost.Host) *jsonrpc2.Conn {
	s := &server{h: h, watches: map[string]*watch{}}
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
		s.handler())
	go func() {
		<-conn.DisconnectNotify()
		s.stopWatches()
		logger.Println("connection closed")
	}()
	return conn
}

type server struct {
	h *memhost.Host

	mu      sync.Mutex
	watches map[string]*watch
}

type method func(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error)

func (s *server) handler() jsonrpc2.Handler {
	return routingHandler(map[string]method{
		"global.list":        s.list,
		"global.rows":        s.rows,
		"global.edit":        s.edit,
		"global.editElement": s.editElement,
		"global.signal":      s.signal,
		"global.watch":       s.watch,
		"global.unwatch":     s.unwatch,
	})
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, conn, params)
	})
}

func (s *server) list(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return s.h.GlobalNames(), nil
}

func (s *server) rows(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params GlobalParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	g, err := s.global(params.Global)
	if err != nil {
		return nil, err
	}
	rows, err := g.ReadRows()
	if err != nil {
		return nil, toRPCError(err)
	}
	return rows, nil
}

func (s *server) edit(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params EditParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	g, err := s.global(params.Global)
	if err != nil {
		return nil, err
	}
	row, ok, err := g.ReadRow(params.Index)
	if err != nil {
		return nil, toRPCError(err)
	}
	if !ok {
		return nil, toRPCError(fmt.Errorf("%s[%d]: %w", params.Global, params.Index, memhost.ErrNoRow))
	}
	v, ok := host.ConvertLike(params.Value, row[params.Field])
	if !ok {
		return nil, invalidValue(params.Field, params.Value)
	}
	return nil, toRPCError(g.Edit(params.Index, params.Field, v))
}

func (s *server) editElement(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params EditElementParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	g, err := s.global(params.Global)
	if err != nil {
		return nil, err
	}
	row, ok, err := g.ReadRow(params.Index)
	if err != nil {
		return nil, toRPCError(err)
	}
	var like any
	if ok {
		if elems, ok := row[params.Field].([]any); ok && params.Element >= 0 && params.Element < len(elems) {
			like = elems[params.Element]
		}
	}
	v, ok := host.ConvertLike(params.Value, like)
	if !ok {
		return nil, invalidValue(params.Field, params.Value)
	}
	return nil, toRPCError(g.EditElement(params.Index, params.Field, params.Element, v))
}

func (s *server) signal(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params SignalParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	g, err := s.global(params.Global)
	if err != nil {
		return nil, err
	}
	return nil, toRPCError(g.Signal(params.Name, params.Index))
}

// Starts sending row changes of a global to the client. Watching a global
// twice is a no-op.
func (s *server) watch(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params GlobalParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	g, err := s.global(params.Global)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watches[params.Global]; ok {
		return nil, nil
	}
	w := newWatch(ctx, conn)
	w.cancel = g.OnRowChanged(func(i int) {
		if row, ok := g.Row(i); ok {
			w.push(RowChangedParams{Global: params.Global, Index: i, Row: row})
		}
	})
	s.watches[params.Global] = w
	return nil, nil
}

func (s *server) unwatch(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params GlobalParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	s.mu.Lock()
	w, ok := s.watches[params.Global]
	delete(s.watches, params.Global)
	s.mu.Unlock()
	if ok {
		w.stop()
	}
	return nil, nil
}

func (s *server) stopWatches() {
	s.mu.Lock()
	watches := s.watches
	s.watches = map[string]*watch{}
	s.mu.Unlock()
	for _, w := range watches {
		w.stop()
	}
}

func (s *server) global(name string) (*memhost.Global, error) {
	g, ok := s.h.LookupGlobal(name)
	if !ok {
		return nil, &jsonrpc2.Error{
			Code: jsonrpc2.CodeInvalidParams, Message: fmt.Sprintf("no global %q", name)}
	}
	return g, nil
}

func invalidValue(field string, v any) error {
	return &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: fmt.Sprintf("invalid value %v for field %s", v, field)}
}

func toRPCError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, memhost.ErrNoRow), errors.Is(err, memhost.ErrNotList):
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	default:
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
	}
}
