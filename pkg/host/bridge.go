package host

import (
	"sync"

	"github.com/xiaq/persistent/vector"
)

// NotifyList wraps a host List and keeps a snapshot of its elements, so that
// host edits can be reduced to deltas.
//
// It has two entry points. SetRowData is the entry for the host: an edit equal
// to the snapshot is dropped, any other edit is applied to the wrapped list and
// then reported to the change callback with the old and the new element.
// WriteThrough is the entry for native writes and never calls the change
// callback, so that values flowing out of native code are not fed back into
// it.
type NotifyList[T any] struct {
	inner    List[T]
	equal    func(a, b T) bool
	onChange func(i int, old, new T)

	mu       sync.Mutex
	snapshot vector.Vector
}

var _ List[Row] = (*NotifyList[Row])(nil)

// NewNotifyList returns a NotifyList wrapping inner. The snapshot starts as a
// copy of the current elements of inner. The onChange callback may be nil.
func NewNotifyList[T any](inner List[T], equal func(a, b T) bool, onChange func(i int, old, new T)) *NotifyList[T] {
	snapshot := vector.Empty
	for _, v := range Items(inner) {
		snapshot = snapshot.Cons(v)
	}
	return &NotifyList[T]{inner: inner, equal: equal, onChange: onChange, snapshot: snapshot}
}

// NewRowList returns a NotifyList of rows compared with Row.Equal.
func NewRowList(inner List[Row], onChange func(i int, old, new Row)) *NotifyList[Row] {
	return NewNotifyList(inner, Row.Equal, onChange)
}

// NewValueList returns a NotifyList of plain values compared with ValueEqual.
func NewValueList(inner List[any], onChange func(i int, old, new any)) *NotifyList[any] {
	return NewNotifyList(inner, ValueEqual, onChange)
}

func (l *NotifyList[T]) RowCount() int { return l.inner.RowCount() }

func (l *NotifyList[T]) RowData(i int) (T, bool) { return l.inner.RowData(i) }

func (l *NotifyList[T]) OnRowChanged(f func(int)) func() { return l.inner.OnRowChanged(f) }

// SetRowData applies a host edit.
func (l *NotifyList[T]) SetRowData(i int, v T) {
	old, ok := l.swap(i, v)
	if !ok {
		return
	}
	l.inner.SetRowData(i, v)
	if l.onChange != nil {
		l.onChange(i, old, v)
	}
}

// WriteThrough applies a native write. Writes equal to the snapshot are
// dropped.
func (l *NotifyList[T]) WriteThrough(i int, v T) {
	if _, ok := l.swap(i, v); ok {
		l.inner.SetRowData(i, v)
	}
}

// Cached returns the i-th element of the snapshot.
func (l *NotifyList[T]) Cached(i int) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index(i)
}

// Snapshot returns all elements of the snapshot.
func (l *NotifyList[T]) Snapshot() []T {
	l.mu.Lock()
	snapshot := l.snapshot
	l.mu.Unlock()
	items := make([]T, 0, snapshot.Len())
	for it := snapshot.Iterator(); it.HasElem(); it.Next() {
		v, _ := it.Elem().(T)
		items = append(items, v)
	}
	return items
}

// Replaces the i-th element of the snapshot with v and returns the old one.
// It returns false if i is out of range or v equals the old element.
func (l *NotifyList[T]) swap(i int, v T) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	old, ok := l.index(i)
	if !ok || l.equal(old, v) {
		return old, false
	}
	l.snapshot = l.snapshot.Assoc(i, v)
	return old, true
}

// Must be called with l.mu held.
func (l *NotifyList[T]) index(i int) (T, bool) {
	if i < 0 || i >= l.snapshot.Len() {
		var zero T
		return zero, false
	}
	e, _ := l.snapshot.Index(i)
	v, _ := e.(T)
	return v, true
}
