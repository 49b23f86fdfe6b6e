package model

import (
	"fmt"
)

// Instance is one instance of a model. Its fields hold properties, arrays of
// properties and nested instances, in the order of the description.
type Instance struct {
	cm    *compiled
	index int
	slots []fieldSlot
}

type fieldSlot struct {
	info *fieldInfo
	// Scalar value fields.
	port port
	// Array value fields.
	ports []port
	// Sub fields. Holds exactly one instance unless the field is implicit.
	subs []*Instance
}

// Desc returns the description of the model. It must not be modified.
func (inst *Instance) Desc() *Desc { return &inst.cm.desc }

// Index returns the position of the instance among the instances of its
// model.
func (inst *Instance) Index() int { return inst.index }

func (inst *Instance) slot(name string) (*fieldSlot, error) {
	for i := range inst.slots {
		if inst.slots[i].info.Name == name {
			return &inst.slots[i], nil
		}
	}
	return nil, fmt.Errorf("%s.%s: %w", inst.cm.desc.Name, name, ErrNoField)
}

// Value returns the current value of a value field. For array fields it is a
// []any holding the element values.
func (inst *Instance) Value(name string) (any, error) {
	s, err := inst.slot(name)
	if err != nil {
		return nil, err
	}
	switch {
	case s.port != nil:
		return s.port.value(), nil
	case s.info.Dir != Sub:
		vs := make([]any, len(s.ports))
		for i, p := range s.ports {
			vs[i] = p.value()
		}
		return vs, nil
	}
	return nil, fmt.Errorf("%s.%s: %w: nested model", inst.cm.desc.Name, name, ErrWrongType)
}

// Nested returns the instances held by a Sub field.
func (inst *Instance) Nested(name string) ([]*Instance, error) {
	s, err := inst.slot(name)
	if err != nil {
		return nil, err
	}
	if s.info.Dir != Sub {
		return nil, fmt.Errorf("%s.%s: %w: not a nested model", inst.cm.desc.Name, name, ErrWrongType)
	}
	return s.subs, nil
}

// Supplies initial values, setters and nested instances to build.
type binder interface {
	// Returns the initial value of field f of instance i, or of its element j
	// for arrays. The index j is -1 for scalars.
	initial(i int, f *fieldInfo, j int) any
	setter(i int, f *fieldInfo, j int) func(any)
	nested(i int, name string) ([]*Instance, error)
}

func build(c *Catalog, cm *compiled, b binder) ([]*Instance, error) {
	n, err := c.Resolve(cm.desc.Len)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", cm.desc.Name, err)
	}
	insts := make([]*Instance, n)
	for i := range insts {
		inst := &Instance{cm: cm, index: i, slots: make([]fieldSlot, len(cm.fields))}
		for k := range cm.fields {
			f := &cm.fields[k]
			s := &inst.slots[k]
			s.info = f
			switch {
			case f.Dir == Sub:
				subs, err := b.nested(i, f.Type)
				if err != nil {
					return nil, fmt.Errorf("model %s: field %s: %w", cm.desc.Name, f.Name, err)
				}
				if !f.Implicit && len(subs) != 1 {
					return nil, fmt.Errorf("model %s: field %s: got %d instances of %s, want 1",
						cm.desc.Name, f.Name, len(subs), f.Type)
				}
				s.subs = subs
			case f.Len != nil:
				m, err := c.Resolve(f.Len)
				if err != nil {
					return nil, fmt.Errorf("model %s: field %s: %w", cm.desc.Name, f.Name, err)
				}
				s.ports = make([]port, m)
				for j := range s.ports {
					s.ports[j] = f.kind.newPort(b.initial(i, f, j), b.setter(i, f, j))
				}
			default:
				s.port = f.kind.newPort(b.initial(i, f, -1), b.setter(i, f, -1))
			}
		}
		insts[i] = inst
	}
	return insts, nil
}

// New builds instances of a model that are not bound to any host. Fields start
// at their defaults and have no setters. Nested models are built afresh for
// every instance, regardless of their mode.
func New(c *Catalog, name string) ([]*Instance, error) {
	cm, ok := c.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownModel, name)
	}
	return build(c, cm, freeBinder{c})
}

type freeBinder struct{ c *Catalog }

func (freeBinder) initial(_ int, f *fieldInfo, _ int) any { return f.def }

func (freeBinder) setter(int, *fieldInfo, int) func(any) { return func(any) {} }

func (b freeBinder) nested(_ int, name string) ([]*Instance, error) { return New(b.c, name) }
