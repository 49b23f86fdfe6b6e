package model

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"src.frand.dev/pkg/host"
	"src.frand.dev/pkg/prop"
)

// Kind is the value type of a field. Kinds are made with NewKind or obtained
// from a Catalog.
type Kind interface {
	Name() string
	// Zero returns the default value of fields without a default.
	Zero() any
	// Parse parses a textual value.
	Parse(s string) (any, error)
	// Format formats a value so that Parse can read it back.
	Format(v any) string
	// FromHost converts a host value to a native value. Values that cannot
	// be converted are rejected.
	FromHost(v any) (any, bool)
	// ToHost converts a native value to a host value.
	ToHost(v any) any

	newPort(initial any, set func(any)) port
}

// NewKind returns a Kind for values of type T. Host values are converted with
// host.Convert.
func NewKind[T comparable](name string, zero T, parse func(string) (T, error), format func(T) string) Kind {
	return &kind[T]{name: name, zero: zero, parse: parse, format: format}
}

type kind[T comparable] struct {
	name   string
	zero   T
	parse  func(string) (T, error)
	format func(T) string
	// Optional extra check applied to host values.
	accept func(T) bool
}

func (k *kind[T]) Name() string { return k.name }

func (k *kind[T]) Zero() any { return k.zero }

func (k *kind[T]) Parse(s string) (any, error) {
	v, err := k.parse(s)
	if err != nil {
		return nil, err
	}
	if k.accept != nil && !k.accept(v) {
		return nil, fmt.Errorf("value %q not valid for %s", s, k.name)
	}
	return v, nil
}

func (k *kind[T]) Format(v any) string {
	t, ok := v.(T)
	if !ok {
		return fmt.Sprint(v)
	}
	return k.format(t)
}

func (k *kind[T]) FromHost(v any) (any, bool) {
	c, ok := host.Convert(v, reflect.TypeOf(k.zero))
	if !ok {
		return nil, false
	}
	t := c.(T)
	if k.accept != nil && !k.accept(t) {
		return nil, false
	}
	return t, true
}

func (k *kind[T]) ToHost(v any) any { return v }

func (k *kind[T]) newPort(initial any, set func(any)) port {
	v, ok := initial.(T)
	if !ok {
		v = k.zero
	}
	return &typedPort[T]{prop.New(set, v, func(set func(any), v T) { set(v) })}
}

func intKind[T int | int32 | int64](name string, bits int) Kind {
	return NewKind(name, T(0),
		func(s string) (T, error) {
			n, err := strconv.ParseInt(s, 0, bits)
			return T(n), err
		},
		func(v T) string { return strconv.FormatInt(int64(v), 10) })
}

func floatKind[T float32 | float64](name string, bits int) Kind {
	return NewKind(name, T(0),
		func(s string) (T, error) {
			f, err := strconv.ParseFloat(s, bits)
			return T(f), err
		},
		func(v T) string { return strconv.FormatFloat(float64(v), 'g', -1, bits) })
}

func parseString(s string) (string, error) {
	if strings.HasPrefix(s, `"`) {
		return strconv.Unquote(s)
	}
	return s, nil
}

var builtinKinds = map[string]Kind{
	"bool":  NewKind("bool", false, strconv.ParseBool, strconv.FormatBool),
	"int":   intKind[int]("int", 0),
	"int32": intKind[int32]("int32", 32),
	"int64": intKind[int64]("int64", 64),
	"uint": NewKind("uint", uint(0),
		func(s string) (uint, error) {
			n, err := strconv.ParseUint(s, 0, 0)
			return uint(n), err
		},
		func(v uint) string { return strconv.FormatUint(uint64(v), 10) }),
	"float32": floatKind[float32]("float32", 32),
	"float64": floatKind[float64]("float64", 64),
	"string":  NewKind("string", "", parseString, strconv.Quote),
	"()":      unitKind,
}

// Short names accepted in field notation.
var kindAliases = map[string]string{
	"i32": "int32", "i64": "int64", "f32": "float32", "f64": "float64",
}

var unitKind = NewKind("()", prop.Unit{},
	func(s string) (prop.Unit, error) {
		if s != "" && s != "()" {
			return prop.Unit{}, fmt.Errorf("unit has no value")
		}
		return prop.Unit{}, nil
	},
	func(prop.Unit) string { return "()" })

func isUnit(k Kind) bool { return k == unitKind }

// BoundedString returns the kind of strings of at most n bytes, named
// string<n>. Longer host values are rejected.
func BoundedString(n int) Kind {
	return &kind[string]{
		name: fmt.Sprintf("string<%d>", n), zero: "",
		parse: parseString, format: strconv.Quote,
		accept: func(s string) bool { return len(s) <= n },
	}
}

// Parses "string<N>".
func parseBoundedString(name string) (Kind, bool) {
	rest, ok := strings.CutPrefix(name, "string<")
	if !ok {
		return nil, false
	}
	rest, ok = strings.CutSuffix(rest, ">")
	if !ok {
		return nil, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return nil, false
	}
	return BoundedString(n), true
}
