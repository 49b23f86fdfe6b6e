package model

import (
	"errors"
	"fmt"

	"src.frand.dev/pkg/host"
	"src.frand.dev/pkg/store/storedefs"
)

// Builds instances of a model bound to a host global.
//
// The global's data is replaced with a bridge holding one row per instance.
// Host edits reach native code through the bridge's change callback; native
// writes of out fields are written through the bridge on the host loop.
type hostBinder struct {
	r        *Registry
	cm       *compiled
	hostType string
	h        host.Handle
	g        host.Global
	template host.Row
	stored   map[int]map[string]string
	nestedOf map[string][]*Instance
	insts    []*Instance

	// Only accessed on the host loop.
	rows  *host.NotifyList[host.Row]
	lists []map[string]*host.NotifyList[any]
}

func (r *Registry) bind(cm *compiled, hostType string) ([]*Instance, error) {
	h := r.live(hostType)
	g, ok := h.Global(cm.desc.GlobalName())
	if !ok {
		return nil, fmt.Errorf("model %s: host %s has no global %q",
			cm.desc.Name, hostType, cm.desc.GlobalName())
	}
	b := &hostBinder{r: r, cm: cm, hostType: hostType, h: h, g: g,
		stored: map[int]map[string]string{}, nestedOf: map[string][]*Instance{}}
	if row, ok := g.Data().RowData(0); ok {
		b.template = row
	}
	insts, err := build(r.cat, cm, b)
	if err != nil {
		return nil, err
	}
	b.insts = insts
	if err := h.InvokeLater(b.attach); err != nil {
		return nil, fmt.Errorf("model %s: bind to %s: %w", cm.desc.Name, hostType, err)
	}
	return insts, nil
}

func (b *hostBinder) initial(i int, f *fieldInfo, j int) any {
	if isUnit(f.kind) {
		return f.def
	}
	if v, ok := b.restore(i, f, j); ok {
		return v
	}
	if v, ok := element(b.template[f.Name], j); ok {
		if v, ok := f.kind.FromHost(v); ok {
			return v
		}
	}
	return f.def
}

func (b *hostBinder) restore(i int, f *fieldInfo, j int) (any, bool) {
	if b.r.store == nil {
		return nil, false
	}
	row, ok := b.stored[i]
	if !ok {
		var err error
		row, err = b.r.store.Row(storedefs.RowKey(b.hostType, b.cm.desc.Name, i))
		if err != nil && !errors.Is(err, storedefs.ErrNoRow) {
			logger.Printf("restore %s[%d]: %v", b.cm.desc.Name, i, err)
		}
		b.stored[i] = row
	}
	s, ok := row[storedName(f.Name, j)]
	if !ok {
		return nil, false
	}
	v, err := f.kind.Parse(s)
	if err != nil {
		logger.Printf("restore %s[%d].%s: %v", b.cm.desc.Name, i, f.Name, err)
		return nil, false
	}
	return v, true
}

func storedName(field string, j int) string {
	if j < 0 {
		return field
	}
	return fmt.Sprintf("%s[%d]", field, j)
}

// Returns element j of a host list value, or v itself if j is -1.
func element(v any, j int) (any, bool) {
	if j < 0 {
		return v, v != nil
	}
	switch v := v.(type) {
	case host.List[any]:
		return v.RowData(j)
	case []any:
		if j < len(v) {
			return v[j], true
		}
	}
	return nil, false
}

func (b *hostBinder) setter(i int, f *fieldInfo, j int) func(any) {
	if f.Dir != Out {
		return func(any) {}
	}
	name := f.Name
	if j < 0 {
		return func(v any) {
			hv := f.kind.ToHost(v)
			b.invoke(i, name, func() {
				if b.rows == nil {
					return
				}
				row, ok := b.rows.Cached(i)
				if !ok {
					return
				}
				row = row.Clone()
				row[name] = hv
				b.rows.WriteThrough(i, row)
			})
		}
	}
	return func(v any) {
		hv := f.kind.ToHost(v)
		b.invoke(i, name, func() {
			if i < len(b.lists) && b.lists[i][name] != nil {
				b.lists[i][name].WriteThrough(j, hv)
			}
		})
	}
}

func (b *hostBinder) invoke(i int, field string, f func()) {
	if err := b.h.InvokeLater(f); err != nil {
		logger.Printf("write %s[%d].%s: %v", b.cm.desc.Name, i, field, err)
	}
}

func (b *hostBinder) nested(_ int, name string) ([]*Instance, error) {
	if insts, ok := b.nestedOf[name]; ok {
		return insts, nil
	}
	insts, err := b.r.Instances(name, b.hostType)
	if err != nil {
		return nil, err
	}
	b.nestedOf[name] = insts
	return insts, nil
}

// Runs on the host loop.
func (b *hostBinder) attach() {
	rows := make([]host.Row, len(b.insts))
	b.lists = make([]map[string]*host.NotifyList[any], len(b.insts))
	for i, inst := range b.insts {
		row := b.template.Clone()
		b.lists[i] = map[string]*host.NotifyList[any]{}
		for k := range inst.slots {
			s := &inst.slots[k]
			f := s.info
			switch {
			case f.Dir == Sub || isUnit(f.kind):
				continue
			case s.port != nil:
				row[f.Name] = f.kind.ToHost(s.port.value())
			default:
				items := make([]any, len(s.ports))
				for j, p := range s.ports {
					items[j] = f.kind.ToHost(p.value())
				}
				var onChange func(int, any, any)
				if f.Dir == In {
					onChange = elementChanged(s)
				}
				l := host.NewValueList(host.NewVecList(items...), onChange)
				row[f.Name] = l
				b.lists[i][f.Name] = l
			}
		}
		rows[i] = row
	}
	b.rows = host.NewRowList(host.NewVecList(rows...), b.rowChanged)
	b.g.SetData(b.rows)

	for k, f := range b.cm.fields {
		if f.kind == nil || !isUnit(f.kind) {
			continue
		}
		k := k
		b.g.OnSignal(f.Name, func(i int) {
			if i >= 0 && i < len(b.insts) {
				b.insts[i].slots[k].port.notify()
			}
		})
	}

	if b.r.store != nil {
		b.rows.OnRowChanged(b.save)
		for i, lists := range b.lists {
			i := i
			for _, l := range lists {
				l.OnRowChanged(func(int) { b.save(i) })
			}
		}
	}
}

// Forwards host edits of in fields of row i.
func (b *hostBinder) rowChanged(i int, old, new host.Row) {
	if i < 0 || i >= len(b.insts) {
		return
	}
	for k := range b.insts[i].slots {
		s := &b.insts[i].slots[k]
		f := s.info
		if f.Dir != In || isUnit(f.kind) {
			continue
		}
		v, ok := new[f.Name]
		if !ok || host.ValueEqual(old[f.Name], v) {
			continue
		}
		if s.port != nil {
			if nv, ok := f.kind.FromHost(v); ok {
				s.port.notifyWith(nv)
			}
			continue
		}
		// The whole list was replaced.
		for j, p := range s.ports {
			e, ok := element(v, j)
			if !ok {
				break
			}
			if nv, ok := f.kind.FromHost(e); ok && nv != p.value() {
				p.notifyWith(nv)
			}
		}
	}
}

func elementChanged(s *fieldSlot) func(int, any, any) {
	return func(j int, _, new any) {
		if j < 0 || j >= len(s.ports) {
			return
		}
		if v, ok := s.info.kind.FromHost(new); ok {
			s.ports[j].notifyWith(v)
		}
	}
}

// Runs on the host loop.
func (b *hostBinder) save(i int) {
	row, ok := b.rows.Cached(i)
	if !ok {
		return
	}
	stored := map[string]string{}
	for _, f := range b.cm.fields {
		if f.Dir == Sub || isUnit(f.kind) {
			continue
		}
		if l := b.lists[i][f.Name]; l != nil {
			for j, e := range l.Snapshot() {
				if v, ok := f.kind.FromHost(e); ok {
					stored[storedName(f.Name, j)] = f.kind.Format(v)
				}
			}
		} else if v, ok := f.kind.FromHost(row[f.Name]); ok {
			stored[f.Name] = f.kind.Format(v)
		}
	}
	b.r.writer.put(storedefs.RowKey(b.hostType, b.cm.desc.Name, i), stored)
}
