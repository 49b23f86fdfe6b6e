package memhost

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"src.frand.dev/pkg/host"
)

var (
	// ErrNoRow is returned when editing a row that does not exist.
	ErrNoRow = errors.New("no such row")
	// ErrNotList is returned by EditElement when the field is not a list.
	ErrNotList = errors.New("field is not a list")
)

// Global is a global of a Host.
type Global struct {
	h    *Host
	name string

	mu       sync.Mutex
	data     host.List[host.Row]
	signals  map[string][]func(int)
	trackers map[int]func(int)
	nextID   int
	// Subscriptions to the current data and the nested lists of its rows.
	cancelData   func()
	cancelNested map[int][]func()
}

var _ host.Global = (*Global)(nil)

func newGlobal(h *Host, name string, template host.Row) *Global {
	g := &Global{h: h, name: name,
		signals: map[string][]func(int){}, trackers: map[int]func(int){}}
	g.SetData(host.NewVecList(template))
	return g
}

// Name returns the name of the global.
func (g *Global) Name() string { return g.name }

// Data implements host.Global.
func (g *Global) Data() host.List[host.Row] {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.data
}

// SetData implements host.Global. Row trackers are told about every row of
// the new data.
func (g *Global) SetData(data host.List[host.Row]) {
	g.mu.Lock()
	if g.cancelData != nil {
		g.cancelData()
	}
	for _, cancels := range g.cancelNested {
		for _, cancel := range cancels {
			cancel()
		}
	}
	g.data = data
	g.cancelNested = map[int][]func(){}
	g.cancelData = data.OnRowChanged(g.rowChanged)
	n := data.RowCount()
	for i := 0; i < n; i++ {
		g.watchNested(i)
	}
	g.mu.Unlock()
	for i := 0; i < n; i++ {
		g.notify(i)
	}
}

func (g *Global) rowChanged(i int) {
	g.mu.Lock()
	g.watchNested(i)
	g.mu.Unlock()
	g.notify(i)
}

// Subscribes to the nested lists of row i, so that element edits are
// reported as row changes. Must be called with g.mu held.
func (g *Global) watchNested(i int) {
	for _, cancel := range g.cancelNested[i] {
		cancel()
	}
	delete(g.cancelNested, i)
	row, ok := g.data.RowData(i)
	if !ok {
		return
	}
	for _, v := range row {
		if l, ok := v.(host.List[any]); ok {
			g.cancelNested[i] = append(g.cancelNested[i],
				l.OnRowChanged(func(int) { g.notify(i) }))
		}
	}
}

func (g *Global) notify(i int) {
	g.mu.Lock()
	ids := make([]int, 0, len(g.trackers))
	for id := range g.trackers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fs := make([]func(int), len(ids))
	for j, id := range ids {
		fs[j] = g.trackers[id]
	}
	g.mu.Unlock()
	for _, f := range fs {
		f(i)
	}
}

// OnRowChanged registers a tracker called with the index of every row that
// changes, including through edits of nested lists. Unlike trackers of the
// data itself, it survives SetData.
func (g *Global) OnRowChanged(f func(i int)) (cancel func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.trackers[id] = f
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.trackers, id)
	}
}

// OnSignal implements host.Global.
func (g *Global) OnSignal(name string, cb func(int)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.signals[name] = append(g.signals[name], cb)
}

// RowCount returns the number of rows.
func (g *Global) RowCount() int { return g.Data().RowCount() }

// Row returns the i-th row, with nested lists expanded into slices. Like the
// other row accessors it must be called on the host loop or while the loop is
// idle; use ReadRow from other goroutines.
func (g *Global) Row(i int) (host.Row, bool) {
	row, ok := g.Data().RowData(i)
	if !ok {
		return nil, false
	}
	return expand(row), true
}

// Rows returns all rows, with nested lists expanded into slices.
func (g *Global) Rows() []host.Row {
	rows := host.Items(g.Data())
	for i, row := range rows {
		rows[i] = expand(row)
	}
	return rows
}

// ReadRow is like Row, but reads the row on the host loop. It must not be
// called from the host loop.
func (g *Global) ReadRow(i int) (host.Row, bool, error) {
	var row host.Row
	var ok bool
	err := g.h.Do(func() { row, ok = g.Row(i) })
	return row, ok, err
}

// ReadRows is like Rows, but reads the rows on the host loop. It must not be
// called from the host loop.
func (g *Global) ReadRows() ([]host.Row, error) {
	var rows []host.Row
	err := g.h.Do(func() { rows = g.Rows() })
	return rows, err
}

func expand(row host.Row) host.Row {
	c := row.Clone()
	for k, v := range c {
		if l, ok := v.(host.List[any]); ok {
			c[k] = host.Items(l)
		}
	}
	return c
}

// Edit emulates a host edit, setting one field of the i-th row. It runs on the
// host loop and returns after the edit has been applied.
func (g *Global) Edit(i int, field string, v any) error {
	return g.do(func() error {
		data := g.Data()
		row, ok := data.RowData(i)
		if !ok {
			return fmt.Errorf("%s[%d]: %w", g.name, i, ErrNoRow)
		}
		row = row.Clone()
		row[field] = v
		data.SetRowData(i, row)
		return nil
	})
}

// EditElement emulates a host edit of the j-th element of a list field of the
// i-th row.
func (g *Global) EditElement(i int, field string, j int, v any) error {
	return g.do(func() error {
		row, ok := g.Data().RowData(i)
		if !ok {
			return fmt.Errorf("%s[%d]: %w", g.name, i, ErrNoRow)
		}
		l, ok := row[field].(host.List[any])
		if !ok {
			return fmt.Errorf("%s[%d].%s: %w", g.name, i, field, ErrNotList)
		}
		if j < 0 || j >= l.RowCount() {
			return fmt.Errorf("%s[%d].%s[%d]: %w", g.name, i, field, j, ErrNoRow)
		}
		l.SetRowData(j, v)
		return nil
	})
}

// Signal emulates the host raising a signal for the i-th row.
func (g *Global) Signal(name string, i int) error {
	return g.do(func() error {
		g.mu.Lock()
		cbs := slices.Clone(g.signals[name])
		g.mu.Unlock()
		for _, cb := range cbs {
			cb(i)
		}
		return nil
	})
}

func (g *Global) do(f func() error) error {
	var err error
	if doErr := g.h.Do(func() { err = f() }); doErr != nil {
		return doErr
	}
	return err
}
