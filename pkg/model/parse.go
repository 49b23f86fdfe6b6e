package model

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var fieldPattern = regexp.MustCompile(
	`^(in|out|model)\s+(\S+?)\s*:\s*(\(\)|[^\s\[=]+)\s*(?:\[\s*([^\]]*?)\s*\])?\s*(?:=\s*(.*?))?\s*$`)

// ParseField parses the compact notation of a field:
//
//	in x: int
//	out sum: int = 0
//	in items: string<20>[LEN]
//	in confirm: ()
//	model rows: Row[]
//
// The length inside brackets is a literal, a constant name or "*" followed by
// a cell name; empty brackets denote the implicit length of nested models.
func ParseField(s string) (Field, error) {
	t := strings.TrimSpace(s)
	m := fieldPattern.FindStringSubmatchIndex(t)
	if m == nil {
		return Field{}, fmt.Errorf("bad field %q", s)
	}
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return t[m[2*i]:m[2*i+1]]
	}
	f := Field{Name: group(2), Type: group(3), Default: group(5)}
	switch group(1) {
	case "in":
		f.Dir = In
	case "out":
		f.Dir = Out
	case "model":
		f.Dir = Sub
	}
	if m[8] >= 0 {
		if group(4) == "" {
			f.Implicit = true
		} else {
			l, err := ParseLength(group(4))
			if err != nil {
				return Field{}, fmt.Errorf("field %q: %w", s, err)
			}
			f.Len = l
		}
	}
	return f, nil
}

// Schema is the content of a model file.
type Schema struct {
	Consts map[string]int
	Models []Desc
}

type schemaFile struct {
	Consts map[string]int `yaml:"consts"`
	Models []modelFile    `yaml:"models"`
}

type modelFile struct {
	Name   string      `yaml:"name"`
	Global string      `yaml:"global"`
	Len    any         `yaml:"len"`
	Mode   string      `yaml:"mode"`
	Fields []fieldNote `yaml:"fields"`
}

// A field in compact notation. In YAML, "in x: int" is a mapping with one
// key, so both plain strings and one-key mappings are accepted.
type fieldNote string

func (f *fieldNote) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*f = fieldNote(node.Value)
		return nil
	case yaml.MappingNode:
		if len(node.Content) == 2 {
			*f = fieldNote(node.Content[0].Value + ": " + node.Content[1].Value)
			return nil
		}
	}
	return fmt.Errorf("line %d: field must be a string like \"in x: int\"", node.Line)
}

// LoadYAML reads a model file:
//
//	consts:
//	  LEN: 4
//	models:
//	  - name: Adder
//	    mode: singleton
//	    len: LEN
//	    fields:
//	      - in x: int
//	      - in y: int
//	      - out sum: int
//
// The models are not validated; add them to a Catalog with Catalog.Load.
func LoadYAML(r io.Reader) (*Schema, error) {
	var file schemaFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse model file: %w", err)
	}
	schema := &Schema{Consts: file.Consts}
	for _, mf := range file.Models {
		d := Desc{Name: mf.Name, Global: mf.Global}
		switch mf.Mode {
		case "", "value":
			d.Mode = Value
		case "singleton":
			d.Mode = Singleton
		default:
			return nil, fmt.Errorf("model %s: bad mode %q", mf.Name, mf.Mode)
		}
		if mf.Len != nil {
			l, err := ParseLength(fmt.Sprint(mf.Len))
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", mf.Name, err)
			}
			d.Len = l
		}
		for _, note := range mf.Fields {
			f, err := ParseField(string(note))
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", mf.Name, err)
			}
			d.Fields = append(d.Fields, f)
		}
		schema.Models = append(schema.Models, d)
	}
	return schema, nil
}

// Load defines the constants of a schema and adds its models.
func (c *Catalog) Load(s *Schema) error {
	for name, n := range s.Consts {
		c.DefineConst(name, n)
	}
	return c.Add(s.Models...)
}
