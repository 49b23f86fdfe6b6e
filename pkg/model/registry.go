package model

import (
	"fmt"
	"sync"

	"src.frand.dev/pkg/host"
	"src.frand.dev/pkg/logutil"
	"src.frand.dev/pkg/store/storedefs"
)

var logger = logutil.GetLogger("[model] ")

// Registry builds host-bound instances, and caches the instances of singleton
// models per host type. It is safe for concurrent use.
type Registry struct {
	cat    *Catalog
	store  storedefs.Store
	writer *rowWriter

	mu      sync.Mutex
	hosts   map[string]func() host.Handle
	entries map[registryKey]*entry
	views   map[registryKey]*entry
}

type registryKey struct{ model, hostType string }

// Built at most once. The registry lock is not held while building.
type entry struct {
	once  sync.Once
	value any
	err   error
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore makes the registry restore the rows of host-bound instances from
// a store when building them, and save them whenever they change. Rows are
// saved in the background; use Registry.Flush to wait for them.
func WithStore(st storedefs.Store) Option {
	return func(r *Registry) { r.store = st }
}

// NewRegistry returns a Registry building models of a catalog.
func NewRegistry(cat *Catalog, opts ...Option) *Registry {
	r := &Registry{cat: cat,
		hosts:   map[string]func() host.Handle{},
		entries: map[registryKey]*entry{},
		views:   map[registryKey]*entry{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store != nil {
		r.writer = newRowWriter(r.store)
	}
	return r
}

// Flush waits until all rows changed before the call have been saved. It does
// nothing without a store.
func (r *Registry) Flush() {
	if r.writer != nil {
		r.writer.flush()
	}
}

// Close saves the pending rows and stops saving. Rows changed after Close are
// not saved. It does not close the store.
func (r *Registry) Close() {
	if r.writer != nil {
		r.writer.close()
	}
}

// Catalog returns the catalog of the registry.
func (r *Registry) Catalog() *Catalog { return r.cat }

// RegisterHost registers a host type. The live function returns the live
// host of that type, and is called every time instances are bound.
func (r *Registry) RegisterHost(hostType string, live func() host.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts[hostType] = live
}

func (r *Registry) live(hostType string) host.Handle {
	r.mu.Lock()
	live, ok := r.hosts[hostType]
	r.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("model: host type %q used before registration", hostType))
	}
	h := live()
	if h == nil {
		panic(fmt.Sprintf("model: host type %q has no live host", hostType))
	}
	return h
}

func (r *Registry) entry(m map[registryKey]*entry, key registryKey) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := m[key]
	if !ok {
		e = &entry{}
		m[key] = e
	}
	return e
}

// Instances returns the instances of a model bound to the live host of a host
// type. For singleton models, the instances are built on the first call and
// shared by all later calls, including calls that fail; value models are
// built afresh, and rebind the host global, on every call.
//
// Attaching the instances to the host global is scheduled on the host loop and
// may not have happened yet when Instances returns. Rows, callbacks and initial
// host values appear once the loop has run the attachment.
//
// It panics if the host type has not been registered.
func (r *Registry) Instances(name, hostType string) ([]*Instance, error) {
	cm, ok := r.cat.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownModel, name)
	}
	if cm.desc.Mode != Singleton {
		return r.bind(cm, hostType)
	}
	e := r.entry(r.entries, registryKey{name, hostType})
	e.once.Do(func() {
		logger.Printf("building singleton %s for %s", name, hostType)
		e.value, e.err = r.bind(cm, hostType)
	})
	if e.err != nil {
		return nil, e.err
	}
	return e.value.([]*Instance), nil
}

// Singleton returns the first instance of a model.
func (r *Registry) Singleton(name, hostType string) (*Instance, error) {
	return r.Init(name, hostType, 0, nil)
}

// Init returns the instance at index of a model, after calling f on it if f
// is not nil.
func (r *Registry) Init(name, hostType string, index int, f func(*Instance)) (*Instance, error) {
	insts, err := r.Instances(name, hostType)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(insts) {
		return nil, fmt.Errorf("model %s: index %d out of range [0, %d)", name, index, len(insts))
	}
	if f != nil {
		f(insts[index])
	}
	return insts[index], nil
}

// Typed returns pointers to values of type V filled from the instances of a
// model with Fill. The values are built on the first call for a model and host
// type, and shared by later calls.
//
// It panics if the values were first built with a different type.
func Typed[V any](r *Registry, name, hostType string) ([]*V, error) {
	e := r.entry(r.views, registryKey{name, hostType})
	e.once.Do(func() {
		insts, err := r.Instances(name, hostType)
		if err != nil {
			e.err = err
			return
		}
		vs := make([]*V, len(insts))
		for i, inst := range insts {
			vs[i] = new(V)
			if err := Fill(inst, vs[i]); err != nil {
				e.err = err
				return
			}
		}
		e.value = vs
	})
	if e.err != nil {
		return nil, e.err
	}
	vs, ok := e.value.([]*V)
	if !ok {
		panic(fmt.Sprintf("model: typed view of %s for %s is %T, not []*%T",
			name, hostType, e.value, *new(V)))
	}
	return vs, nil
}
