// Package host defines how bound models talk to the UI host that owns their
// data, and implements the bridge that reconciles host edits with native
// channels.
//
// The host owns one collection of rows per global. A row holds the values of
// one model instance, keyed by field name; array fields hold a nested [List].
// All mutation of host state happens on the host's own loop; native code
// schedules work there with [Handle.InvokeLater].
package host

import (
	"errors"
	"reflect"
)

// ErrTornDown is returned by [Handle.InvokeLater] after the host has shut
// down.
var ErrTornDown = errors.New("host torn down")

// Handle is a live host. Global, and the Data method of globals, may be called
// from any goroutine; other methods of globals and lists obtained from them
// must only be called on the host loop.
type Handle interface {
	// Global looks up a global by name.
	Global(name string) (Global, bool)
	// InvokeLater schedules f on the host loop. It never blocks.
	InvokeLater(f func()) error
}

// Global is a named collection of rows exposed by the host.
type Global interface {
	// Data returns the rows currently bound to the global.
	Data() List[Row]
	// SetData replaces the rows bound to the global.
	SetData(List[Row])
	// OnSignal registers a callback for the named signal. The callback
	// receives the index of the row the signal was raised for.
	OnSignal(name string, cb func(index int))
}

// Row is the host record of one model instance.
type Row map[string]any

// Clone returns a shallow copy of the row. Nested lists are shared.
func (r Row) Clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Equal reports whether two rows have the same fields with equal values, as
// determined by ValueEqual.
func (r Row) Equal(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		w, ok := other[k]
		if !ok || !ValueEqual(v, w) {
			return false
		}
	}
	return true
}

// ValueEqual compares two host values. Values of comparable types are
// compared with ==, so nested lists are equal only when they are the same
// list; other values are compared with reflect.DeepEqual.
func ValueEqual(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil || ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
