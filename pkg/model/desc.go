// Package model describes models, validates their descriptions, and builds
// instances of them, either free-standing or bound to a host.
//
// A model is a named, ordered set of fields. A field is a scalar channel, a
// fixed-length array of channels, or a nested model. A model with a length is
// an array of that many instances sharing one description.
package model

import (
	"fmt"
	"strconv"
)

// Dir is the direction of a field.
type Dir int

// Directions.
const (
	// In fields are written by the host and read by native code.
	In Dir = iota
	// Out fields are written by native code and read by the host.
	Out
	// Sub fields hold nested models.
	Sub
)

func (d Dir) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	case Sub:
		return "model"
	}
	return fmt.Sprintf("Dir(%d)", int(d))
}

// Mode determines how instances of a model are built.
type Mode int

// Modes.
const (
	// Value models are built afresh on every request.
	Value Mode = iota
	// Singleton models are built once per host type and shared.
	Singleton
)

func (m Mode) String() string {
	switch m {
	case Value:
		return "value"
	case Singleton:
		return "singleton"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Desc describes a model.
type Desc struct {
	Name string
	// Name of the host global the model binds to. Defaults to Name.
	Global string
	// Number of instances. A nil Len means a single instance.
	Len    *Length
	Mode   Mode
	Fields []Field
}

// GlobalName returns the name of the host global the model binds to.
func (d *Desc) GlobalName() string {
	if d.Global != "" {
		return d.Global
	}
	return d.Name
}

// Field describes one field of a model.
type Field struct {
	Name string
	Dir  Dir
	// Name of a kind, or of a model for Sub fields.
	Type string
	// Length of an array field. Nil for scalar fields.
	Len *Length
	// Whether the field uses the implicit length "[]", which is supplied by
	// the nested model.
	Implicit bool
	// Textual default value, parsed by the kind. Empty means the zero value
	// of the kind.
	Default string
}

// IsArray reports whether the field holds more than one channel or instance.
func (f *Field) IsArray() bool { return f.Len != nil || f.Implicit }

func (f Field) String() string {
	s := fmt.Sprintf("%s %s: %s", f.Dir, f.Name, f.Type)
	switch {
	case f.Implicit:
		s += "[]"
	case f.Len != nil:
		s += "[" + f.Len.String() + "]"
	}
	if f.Default != "" {
		s += " = " + f.Default
	}
	return s
}

// Length is a length expression.
type Length struct {
	lit  int
	name string
	cell bool
}

// Lit returns a literal length.
func Lit(n int) *Length { return &Length{lit: n} }

// Const returns a length that refers to a constant defined with
// Catalog.DefineConst.
func Const(name string) *Length { return &Length{name: name} }

// Cell returns a length that refers to a cell defined with
// Catalog.DefineCell. The cell is evaluated on first use.
func Cell(name string) *Length { return &Length{name: name, cell: true} }

func (l *Length) String() string {
	switch {
	case l.cell:
		return "*" + l.name
	case l.name != "":
		return l.name
	default:
		return strconv.Itoa(l.lit)
	}
}

// ParseLength parses a length expression: a decimal literal, a constant name,
// or a cell name prefixed with "*".
func ParseLength(s string) (*Length, error) {
	if s == "" {
		return nil, fmt.Errorf("empty length")
	}
	if s[0] == '*' {
		if !isIdent(s[1:]) {
			return nil, fmt.Errorf("bad cell name %q", s[1:])
		}
		return Cell(s[1:]), nil
	}
	if isIdent(s) {
		return Const(s), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("bad length %q", s)
	}
	return Lit(n), nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case '0' <= r && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
