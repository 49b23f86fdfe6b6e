package model

import "src.frand.dev/pkg/prop"

// A type-erased property.
type port interface {
	value() any
	notify()
	notifyWith(v any)
	// The shared handles of the property.
	property() any
	sender() any
	// New handles of the property.
	cloneSender() any
	cloneReceiver() any
}

type typedPort[T comparable] struct{ p *prop.Property[T] }

func (p *typedPort[T]) value() any { return p.p.Value() }

func (p *typedPort[T]) notify() { p.p.Sender().Notify() }

func (p *typedPort[T]) notifyWith(v any) {
	if t, ok := v.(T); ok {
		p.p.Sender().NotifyWith(t)
	}
}

func (p *typedPort[T]) property() any { return p.p }

func (p *typedPort[T]) sender() any { return p.p.Sender() }

func (p *typedPort[T]) cloneSender() any { return p.p.Sender().Clone() }

func (p *typedPort[T]) cloneReceiver() any { return p.p.Receiver().Clone() }
