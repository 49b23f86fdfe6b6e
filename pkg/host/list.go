package host

import "sync"

// List is an indexed collection owned by the host.
type List[T any] interface {
	RowCount() int
	// RowData returns the i-th element, and whether it exists.
	RowData(i int) (T, bool)
	// SetRowData replaces the i-th element. Out-of-range indices are ignored.
	SetRowData(i int, v T)
	// OnRowChanged registers a tracker called with the index of every
	// replaced element, and returns a function that unregisters it.
	OnRowChanged(f func(i int)) (cancel func())
}

// VecList is a List backed by a slice. It is safe for concurrent use;
// trackers are called without holding any lock.
type VecList[T any] struct {
	mu       sync.Mutex
	items    []T
	trackers map[int]func(int)
	nextID   int
}

var _ List[int] = (*VecList[int])(nil)

// NewVecList returns a VecList holding a copy of items.
func NewVecList[T any](items ...T) *VecList[T] {
	return &VecList[T]{items: append([]T(nil), items...), trackers: map[int]func(int){}}
}

func (l *VecList[T]) RowCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *VecList[T]) RowData(i int) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.items) {
		var zero T
		return zero, false
	}
	return l.items[i], true
}

func (l *VecList[T]) SetRowData(i int, v T) {
	l.mu.Lock()
	if i < 0 || i >= len(l.items) {
		l.mu.Unlock()
		return
	}
	l.items[i] = v
	trackers := l.trackerList()
	l.mu.Unlock()
	for _, f := range trackers {
		f(i)
	}
}

func (l *VecList[T]) OnRowChanged(f func(int)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.trackers[id] = f
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.trackers, id)
	}
}

// Items returns a copy of all elements.
func (l *VecList[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

// Must be called with l.mu held.
func (l *VecList[T]) trackerList() []func(int) {
	fs := make([]func(int), 0, len(l.trackers))
	for id := 0; id < l.nextID; id++ {
		if f, ok := l.trackers[id]; ok {
			fs = append(fs, f)
		}
	}
	return fs
}

// Items returns all elements of a List.
func Items[T any](l List[T]) []T {
	n := l.RowCount()
	items := make([]T, 0, n)
	for i := 0; i < n; i++ {
		if v, ok := l.RowData(i); ok {
			items = append(items, v)
		}
	}
	return items
}
