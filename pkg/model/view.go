package model

import (
	"fmt"

	"src.frand.dev/pkg/prop"
)

// Handles is something the typed accessors can get handles from: an
// *Instance, a *SenderView or a *ReceiverView.
type Handles interface {
	Desc() *Desc
	Index() int
	handle(name string, r role) (any, error)
	handleList(name string, r role) ([]any, error)
	nested(name string) ([]Handles, error)
}

type role int

const (
	roleProperty role = iota
	roleSender
	roleReceiver
)

func (r role) String() string {
	return [...]string{"property", "sender", "receiver"}[r]
}

var (
	_ Handles = (*Instance)(nil)
	_ Handles = (*SenderView)(nil)
	_ Handles = (*ReceiverView)(nil)
)

// Properties and shared senders are returned as they are; receivers are
// cloned for every call.
func (inst *Instance) handle(name string, r role) (any, error) {
	s, err := inst.slot(name)
	if err != nil {
		return nil, err
	}
	if s.port == nil {
		return nil, shapeError(inst, name, "not a scalar field")
	}
	return portHandle(s.port, r), nil
}

func (inst *Instance) handleList(name string, r role) ([]any, error) {
	s, err := inst.slot(name)
	if err != nil {
		return nil, err
	}
	if s.info.Dir == Sub || s.port != nil {
		return nil, shapeError(inst, name, "not an array field")
	}
	hs := make([]any, len(s.ports))
	for i, p := range s.ports {
		hs[i] = portHandle(p, r)
	}
	return hs, nil
}

func (inst *Instance) nested(name string) ([]Handles, error) {
	subs, err := inst.Nested(name)
	if err != nil {
		return nil, err
	}
	hs := make([]Handles, len(subs))
	for i, sub := range subs {
		hs[i] = sub
	}
	return hs, nil
}

func portHandle(p port, r role) any {
	switch r {
	case roleSender:
		return p.sender()
	case roleReceiver:
		return p.cloneReceiver()
	default:
		return p.property()
	}
}

func shapeError(h Handles, name, msg string) error {
	return fmt.Errorf("%s.%s: %w: %s", h.Desc().Name, name, ErrWrongType, msg)
}

// A view holds handles of one role mirroring the shape of an instance.
type view struct {
	inst   *Instance
	role   role
	scalar map[string]any
	array  map[string][]any
	subs   map[string][]Handles
}

func newView(inst *Instance, r role, clone func(port) any, sub func(*Instance) Handles) view {
	v := view{inst, r, map[string]any{}, map[string][]any{}, map[string][]Handles{}}
	for _, s := range inst.slots {
		name := s.info.Name
		switch {
		case s.port != nil:
			v.scalar[name] = clone(s.port)
		case s.info.Dir == Sub:
			hs := make([]Handles, len(s.subs))
			for i, inst := range s.subs {
				hs[i] = sub(inst)
			}
			v.subs[name] = hs
		default:
			hs := make([]any, len(s.ports))
			for i, p := range s.ports {
				hs[i] = clone(p)
			}
			v.array[name] = hs
		}
	}
	return v
}

func (v *view) Desc() *Desc { return v.inst.Desc() }

func (v *view) Index() int { return v.inst.index }

func (v *view) handle(name string, r role) (any, error) {
	if err := v.check(name, r); err != nil {
		return nil, err
	}
	h, ok := v.scalar[name]
	if !ok {
		return nil, shapeError(v, name, "not a scalar field")
	}
	return h, nil
}

func (v *view) handleList(name string, r role) ([]any, error) {
	if err := v.check(name, r); err != nil {
		return nil, err
	}
	hs, ok := v.array[name]
	if !ok {
		return nil, shapeError(v, name, "not an array field")
	}
	return hs, nil
}

func (v *view) nested(name string) ([]Handles, error) {
	if _, err := v.inst.slot(name); err != nil {
		return nil, err
	}
	hs, ok := v.subs[name]
	if !ok {
		return nil, shapeError(v, name, "not a nested model")
	}
	return hs, nil
}

func (v *view) check(name string, r role) error {
	if _, err := v.inst.slot(name); err != nil {
		return err
	}
	if r != v.role {
		return shapeError(v, name, fmt.Sprintf("%s view has no %s handles", v.role, r))
	}
	return nil
}

// SenderView holds cloned senders of every field of an instance, and sender
// views of its nested instances.
type SenderView struct{ view }

// ReceiverView holds cloned receivers of every field of an instance, and
// receiver views of its nested instances.
type ReceiverView struct{ view }

// CloneSender returns a SenderView of the instance. The senders share their
// slots with the instance.
func (inst *Instance) CloneSender() *SenderView {
	return &SenderView{newView(inst, roleSender, port.cloneSender,
		func(inst *Instance) Handles { return inst.CloneSender() })}
}

// CloneReceiver returns a ReceiverView of the instance.
func (inst *Instance) CloneReceiver() *ReceiverView {
	return &ReceiverView{newView(inst, roleReceiver, port.cloneReceiver,
		func(inst *Instance) Handles { return inst.CloneReceiver() })}
}

// Close closes all senders held by the view, including those of nested
// views.
func (v *SenderView) Close() {
	for _, h := range v.scalar {
		h.(closer).Close()
	}
	for _, hs := range v.array {
		for _, h := range hs {
			h.(closer).Close()
		}
	}
	for _, subs := range v.subs {
		for _, sub := range subs {
			sub.(*SenderView).Close()
		}
	}
}

type closer interface{ Close() }

// CloneSenders returns sender views of instances.
func CloneSenders(insts []*Instance) []*SenderView {
	vs := make([]*SenderView, len(insts))
	for i, inst := range insts {
		vs[i] = inst.CloneSender()
	}
	return vs
}

// CloneReceivers returns receiver views of instances.
func CloneReceivers(insts []*Instance) []*ReceiverView {
	vs := make([]*ReceiverView, len(insts))
	for i, inst := range insts {
		vs[i] = inst.CloneReceiver()
	}
	return vs
}

// SenderOf returns the sender of a scalar field.
func SenderOf[T comparable](h Handles, name string) (*prop.Sender[T], error) {
	return typed[*prop.Sender[T]](h, name, roleSender)
}

// ReceiverOf returns a receiver of a scalar field.
func ReceiverOf[T comparable](h Handles, name string) (*prop.Receiver[T], error) {
	return typed[*prop.Receiver[T]](h, name, roleReceiver)
}

// PropertyOf returns the property of a scalar field. Only instances hold
// properties.
func PropertyOf[T comparable](h Handles, name string) (*prop.Property[T], error) {
	return typed[*prop.Property[T]](h, name, roleProperty)
}

// SendersOf returns the senders of an array field.
func SendersOf[T comparable](h Handles, name string) ([]*prop.Sender[T], error) {
	return typedList[*prop.Sender[T]](h, name, roleSender)
}

// ReceiversOf returns receivers of an array field.
func ReceiversOf[T comparable](h Handles, name string) ([]*prop.Receiver[T], error) {
	return typedList[*prop.Receiver[T]](h, name, roleReceiver)
}

// PropertiesOf returns the properties of an array field.
func PropertiesOf[T comparable](h Handles, name string) ([]*prop.Property[T], error) {
	return typedList[*prop.Property[T]](h, name, roleProperty)
}

// SubOf returns the handles of the nested instances of a Sub field.
func SubOf(h Handles, name string) ([]Handles, error) {
	return h.nested(name)
}

func typed[H any](h Handles, name string, r role) (H, error) {
	var zero H
	v, err := h.handle(name, r)
	if err != nil {
		return zero, err
	}
	t, ok := v.(H)
	if !ok {
		return zero, shapeError(h, name, fmt.Sprintf("field holds %T, not %T", v, zero))
	}
	return t, nil
}

func typedList[H any](h Handles, name string, r role) ([]H, error) {
	vs, err := h.handleList(name, r)
	if err != nil {
		return nil, err
	}
	ts := make([]H, len(vs))
	for i, v := range vs {
		t, ok := v.(H)
		if !ok {
			return nil, shapeError(h, name, fmt.Sprintf("field holds %T, not %T", v, t))
		}
		ts[i] = t
	}
	return ts, nil
}
