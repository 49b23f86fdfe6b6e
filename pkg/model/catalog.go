package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"src.frand.dev/pkg/errutil"
)

var (
	// ErrUnknownModel is returned when a model is not in the catalog.
	ErrUnknownModel = errors.New("unknown model")
	// ErrNoField is returned when looking up a field that a model does not
	// have.
	ErrNoField = errors.New("no such field")
	// ErrWrongType is returned when a handle of a field is requested with a
	// type or shape that does not match the field.
	ErrWrongType = errors.New("wrong handle type")
)

// Catalog holds validated model descriptions, together with the kinds,
// constants and cells they refer to. It is safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	consts map[string]int
	cells  map[string]func() int
	kinds  map[string]Kind
	models map[string]*compiled
	names  []string
}

// A validated description.
type compiled struct {
	desc   Desc
	fields []fieldInfo
}

type fieldInfo struct {
	*Field
	// Nil for Sub fields.
	kind Kind
	def  any
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		consts: map[string]int{},
		cells:  map[string]func() int{},
		kinds:  map[string]Kind{},
		models: map[string]*compiled{},
	}
}

// DefineConst defines a named length constant.
func (c *Catalog) DefineConst(name string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consts[name] = n
}

// DefineCell defines a named length cell. The function is called at most
// once, when a length referring to the cell is first resolved.
func (c *Catalog) DefineCell(name string, f func() int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cells[name] = sync.OnceValue(f)
}

// RegisterKind makes a kind available to models added afterwards.
func (c *Catalog) RegisterKind(k Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.kind(k.Name()); ok {
		return fmt.Errorf("kind %q already defined", k.Name())
	}
	c.kinds[k.Name()] = k
	return nil
}

// Kind looks up a kind by name.
func (c *Catalog) Kind(name string) (Kind, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kind(name)
}

// Must be called with c.mu held.
func (c *Catalog) kind(name string) (Kind, bool) {
	if alias, ok := kindAliases[name]; ok {
		name = alias
	}
	if k, ok := builtinKinds[name]; ok {
		return k, true
	}
	if k, ok := c.kinds[name]; ok {
		return k, true
	}
	return parseBoundedString(name)
}

// Desc returns the description of a model.
func (c *Catalog) Desc(name string) (*Desc, bool) {
	cm, ok := c.lookup(name)
	if !ok {
		return nil, false
	}
	d := cm.desc
	d.Fields = append([]Field(nil), d.Fields...)
	return &d, true
}

// Names returns the names of all models, in the order they were added.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.names...)
}

func (c *Catalog) lookup(name string) (*compiled, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cm, ok := c.models[name]
	return cm, ok
}

// Add validates descriptions and adds them to the catalog. Descriptions may
// refer to each other and to models added before. Either all descriptions are
// added, or none is and all problems found are returned together.
func (c *Catalog) Add(descs ...Desc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	batch := map[string]*Desc{}
	for i := range descs {
		d := &descs[i]
		switch {
		case !isIdent(d.Name):
			errs = append(errs, fmt.Errorf("bad model name %q", d.Name))
			continue
		case c.models[d.Name] != nil || batch[d.Name] != nil:
			errs = append(errs, fmt.Errorf("model %s: already defined", d.Name))
			continue
		}
		batch[d.Name] = d
	}
	var added []*compiled
	for i := range descs {
		if batch[descs[i].Name] != &descs[i] {
			continue
		}
		cm, fieldErrs := c.compile(descs[i], batch)
		errs = append(errs, fieldErrs...)
		added = append(added, cm)
	}
	if len(errs) == 0 {
		if err := findCycle(batch); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errutil.Multi(errs...); err != nil {
		return err
	}
	for _, cm := range added {
		c.models[cm.desc.Name] = cm
		c.names = append(c.names, cm.desc.Name)
	}
	return nil
}

// Must be called with c.mu held.
func (c *Catalog) compile(d Desc, batch map[string]*Desc) (*compiled, []error) {
	d.Fields = append([]Field(nil), d.Fields...)
	cm := &compiled{desc: d, fields: make([]fieldInfo, len(d.Fields))}
	var errs []error
	if d.Len != nil {
		if err := c.checkLength(d.Len); err != nil {
			errs = append(errs, fmt.Errorf("model %s: length: %w", d.Name, err))
		}
	}
	seen := map[string]bool{}
	for i := range cm.desc.Fields {
		f := &cm.desc.Fields[i]
		cm.fields[i].Field = f
		var err error
		switch {
		case !isIdent(f.Name):
			err = fmt.Errorf("bad field name %q", f.Name)
		case seen[f.Name]:
			err = errors.New("duplicate field")
		default:
			cm.fields[i].kind, cm.fields[i].def, err = c.checkField(f, batch)
		}
		seen[f.Name] = true
		if err != nil {
			errs = append(errs, fmt.Errorf("model %s: field %s: %w", d.Name, f.Name, err))
		}
	}
	return cm, errs
}

// Must be called with c.mu held.
func (c *Catalog) checkField(f *Field, batch map[string]*Desc) (Kind, any, error) {
	var nested *Desc
	if cm := c.models[f.Type]; cm != nil {
		nested = &cm.desc
	} else if d := batch[f.Type]; d != nil {
		nested = d
	}
	isModel := nested != nil
	if f.Dir == Sub {
		switch {
		case !isModel:
			return nil, nil, fmt.Errorf("%w %q", ErrUnknownModel, f.Type)
		case !f.Implicit && nested.Len != nil:
			return nil, nil, fmt.Errorf(
				"model %s has a length, so the field must use `%s[]`", f.Type, f.Type)
		case f.Len != nil:
			return nil, nil, fmt.Errorf(
				"nested model field must use implicit length `[]`, not `[%s]`", f.Len)
		case f.Default != "":
			return nil, nil, errors.New("nested model field cannot have a default")
		}
		return nil, nil, nil
	}
	if f.Dir != In && f.Dir != Out {
		return nil, nil, fmt.Errorf("bad direction %v", f.Dir)
	}
	k, ok := c.kind(f.Type)
	if !ok {
		if isModel {
			return nil, nil, fmt.Errorf("model type %q needs the `model` direction", f.Type)
		}
		return nil, nil, fmt.Errorf("unknown type %q", f.Type)
	}
	if isUnit(k) {
		if f.Dir == Out {
			return nil, nil, errors.New("`()` type cannot be used with `out` direction")
		}
		if f.IsArray() {
			return nil, nil, errors.New("`()` type cannot be an array")
		}
	}
	if f.Implicit {
		return nil, nil, errors.New(
			"implicit length `[]` is reserved for nested model fields; use `[N]`")
	}
	if f.Len != nil {
		if err := c.checkLength(f.Len); err != nil {
			return nil, nil, err
		}
	}
	if f.Default == "" {
		return k, k.Zero(), nil
	}
	def, err := k.Parse(f.Default)
	if err != nil {
		return nil, nil, fmt.Errorf("bad default %q: %w", f.Default, err)
	}
	return k, def, nil
}

// Must be called with c.mu held.
func (c *Catalog) checkLength(l *Length) error {
	switch {
	case l.cell:
		if c.cells[l.name] == nil {
			return fmt.Errorf("undefined cell %q", l.name)
		}
	case l.name != "":
		n, ok := c.consts[l.name]
		if !ok {
			return fmt.Errorf("undefined constant %q", l.name)
		}
		if n < 0 {
			return fmt.Errorf("negative length %s = %d", l.name, n)
		}
	case l.lit < 0:
		return fmt.Errorf("negative length %d", l.lit)
	}
	return nil
}

// Resolve evaluates a length expression.
func (c *Catalog) Resolve(l *Length) (int, error) {
	if l == nil {
		return 1, nil
	}
	c.mu.RLock()
	n, f, err := c.lengthSource(l)
	c.mu.RUnlock()
	if f != nil {
		// Cells may take long, and may consult the catalog themselves.
		n = f()
	}
	if err == nil && n < 0 {
		err = fmt.Errorf("negative length %s = %d", l, n)
	}
	return n, err
}

// Must be called with c.mu held.
func (c *Catalog) lengthSource(l *Length) (int, func() int, error) {
	switch {
	case l.cell:
		f := c.cells[l.name]
		if f == nil {
			return 0, nil, fmt.Errorf("undefined cell %q", l.name)
		}
		return 0, f, nil
	case l.name != "":
		n, ok := c.consts[l.name]
		if !ok {
			return 0, nil, fmt.Errorf("undefined constant %q", l.name)
		}
		return n, nil, nil
	}
	return l.lit, nil, nil
}

// Reports a nesting cycle among the models of a batch. Models added earlier
// cannot refer to the batch, so they cannot be part of a cycle.
func findCycle(batch map[string]*Desc) error {
	const (
		visiting = iota + 1
		done
	)
	state := map[string]int{}
	var path []string
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			i := 0
			for path[i] != name {
				i++
			}
			cycle := append(append([]string(nil), path[i:]...), name)
			return fmt.Errorf("model nesting cycle: %s", strings.Join(cycle, " -> "))
		case done:
			return nil
		}
		state[name] = visiting
		path = append(path, name)
		for _, f := range batch[name].Fields {
			if f.Dir == Sub && batch[f.Type] != nil {
				if err := visit(f.Type); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		return nil
	}
	names := make([]string, 0, len(batch))
	for name := range batch {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
