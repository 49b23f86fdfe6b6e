package model

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"src.frand.dev/pkg/host"
	"src.frand.dev/pkg/host/memhost"
	"src.frand.dev/pkg/prop"
	"src.frand.dev/pkg/store"
	"src.frand.dev/pkg/store/storedefs"
	"src.frand.dev/pkg/testutil"
)

type fixture struct {
	cat *Catalog
	h   *memhost.Host
	r   *Registry
}

func setup(t *testing.T, globals map[string]host.Row, opts []Option, descs ...Desc) *fixture {
	t.Helper()
	cat := mustCatalog(t, descs...)
	h := memhost.New()
	t.Cleanup(h.Close)
	for name, template := range globals {
		h.AddGlobal(name, template)
	}
	r := NewRegistry(cat, opts...)
	t.Cleanup(r.Close)
	r.RegisterHost("main", func() host.Handle { return h })
	return &fixture{cat, h, r}
}

func (fx *fixture) global(t *testing.T, name string) *memhost.Global {
	t.Helper()
	g, ok := fx.h.LookupGlobal(name)
	if !ok {
		t.Fatalf("no global %s", name)
	}
	return g
}

func (fx *fixture) singleton(t *testing.T, name string) *Instance {
	t.Helper()
	inst, err := fx.r.Singleton(name, "main")
	if err != nil {
		t.Fatal(err)
	}
	return inst
}

func adderDesc(t *testing.T) Desc {
	return Desc{Name: "Adder", Mode: Singleton,
		Fields: fields(t, "in x: i32", "in y: i32", "out sum: i32")}
}

func adderFixture(t *testing.T) *fixture {
	return setup(t, map[string]host.Row{"Adder": {"x": int32(0), "y": int32(0), "sum": int32(0)}},
		nil, adderDesc(t))
}

func expectNoNotification[T comparable](t *testing.T, r *prop.Receiver[T]) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testutil.Scaled(20*time.Millisecond))
	defer cancel()
	if v, err := r.Notified(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("unexpected notification with %v (err %v)", v, err)
	}
}

func TestRegistry_ScalarRoundTrip(t *testing.T) {
	ctx := testContext(t)
	fx := adderFixture(t)
	inst := fx.singleton(t, "Adder")
	rx, _ := ReceiverOf[int32](inst, "x")
	ry, _ := ReceiverOf[int32](inst, "y")

	if err := fx.global(t, "Adder").Edit(0, "x", int32(5)); err != nil {
		t.Fatal(err)
	}
	if v, err := rx.Changed(ctx); v != 5 || err != nil {
		t.Errorf("x.Changed() -> (%v, %v), want (5, nil)", v, err)
	}
	// Only the edited field is forwarded.
	expectNoNotification(t, ry)
}

func TestRegistry_HostValuesAreConverted(t *testing.T) {
	ctx := testContext(t)
	fx := adderFixture(t)
	inst := fx.singleton(t, "Adder")
	rx, _ := ReceiverOf[int32](inst, "x")
	g := fx.global(t, "Adder")

	g.Edit(0, "x", "not a number")
	g.Edit(0, "x", 2.5)
	g.Edit(0, "x", 6.0)
	if v, err := rx.Changed(ctx); v != 6 || err != nil {
		t.Errorf("x.Changed() -> (%v, %v), want (6, nil)", v, err)
	}
}

func TestRegistry_DiffSuppression(t *testing.T) {
	fx := adderFixture(t)
	inst := fx.singleton(t, "Adder")
	rx, _ := ReceiverOf[int32](inst, "x")
	g := fx.global(t, "Adder")
	changes := 0
	fx.h.Do(func() { g.OnRowChanged(func(int) { changes++ }) })

	g.Edit(0, "x", int32(0))
	expectNoNotification(t, rx)
	fx.h.Sync()
	if changes != 0 {
		t.Errorf("%d row changes for an identical row", changes)
	}
}

func TestRegistry_FeedbackSuppression(t *testing.T) {
	fx := adderFixture(t)
	inst := fx.singleton(t, "Adder")
	g := fx.global(t, "Adder")
	rx, _ := ReceiverOf[int32](inst, "x")
	changes := 0
	fx.h.Do(func() { g.OnRowChanged(func(int) { changes++ }) })

	sum, _ := SenderOf[int32](inst, "sum")
	sum.Send(10)
	fx.h.Sync()
	if row, _ := g.Row(0); row["sum"] != int32(10) {
		t.Errorf("host sum -> %v, want 10", row["sum"])
	}

	// The host writes the row it just received back.
	fx.h.Do(func() {
		row, _ := g.Data().RowData(0)
		g.Data().SetRowData(0, row.Clone())
	})
	if changes != 1 {
		t.Errorf("%d row changes, want 1", changes)
	}
	expectNoNotification(t, rx)
}

func TestRegistry_SingletonIdentity(t *testing.T) {
	fx := adderFixture(t)
	a := fx.singleton(t, "Adder")
	b := fx.singleton(t, "Adder")
	if a != b {
		t.Errorf("Singleton returned different instances")
	}
	sa, _ := SenderOf[int32](a.CloneSender(), "sum")
	rb, _ := ReceiverOf[int32](b.CloneReceiver(), "sum")
	sa.Send(4)
	if rb.Value() != 4 {
		t.Errorf("b.sum -> %v, want 4", rb.Value())
	}
}

func TestRegistry_ValueModeBuildsAfresh(t *testing.T) {
	desc := adderDesc(t)
	desc.Mode = Value
	fx := setup(t, map[string]host.Row{"Adder": {}}, nil, desc)
	a, err := fx.r.Instances("Adder", "main")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := fx.r.Instances("Adder", "main")
	if a[0] == b[0] {
		t.Errorf("value model returned the same instance twice")
	}
}

func TestRegistry_Errors(t *testing.T) {
	fx := setup(t, nil, nil, adderDesc(t))
	if _, err := fx.r.Instances("Nope", "main"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Instances(Nope) -> %v, want ErrUnknownModel", err)
	}
	_, err := fx.r.Instances("Adder", "main")
	if err == nil || !strings.Contains(err.Error(), `no global "Adder"`) {
		t.Errorf("Instances without global -> %v", err)
	}
	if _, err := fx.r.Init("Adder", "main", 1, nil); err == nil {
		t.Errorf("Init with bad index succeeded")
	}
}

func TestRegistry_UnregisteredHostPanics(t *testing.T) {
	r := NewRegistry(mustCatalog(t, adderDesc(t)))
	defer func() {
		if recover() == nil {
			t.Errorf("no panic")
		}
	}()
	r.Instances("Adder", "main")
}

func TestRegistry_Init(t *testing.T) {
	fx := adderFixture(t)
	var got *Instance
	inst, err := fx.r.Init("Adder", "main", 0, func(inst *Instance) {
		got = inst
		sum, _ := SenderOf[int32](inst, "sum")
		sum.Send(1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != inst {
		t.Errorf("Init called f with another instance")
	}
	if v, _ := inst.Value("sum"); v != int32(1) {
		t.Errorf("sum -> %v, want 1", v)
	}
}

type adderHandles struct {
	X   *prop.Receiver[int32]
	Y   *prop.Receiver[int32]
	Sum *prop.Sender[int32]
}

func TestTyped(t *testing.T) {
	fx := adderFixture(t)
	a, err := Typed[adderHandles](fx.r, "Adder", "main")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Typed[adderHandles](fx.r, "Adder", "main")
	if len(a) != 1 || a[0] != b[0] {
		t.Errorf("Typed returned different views")
	}
	defer func() {
		if recover() == nil {
			t.Errorf("no panic for mismatched view type")
		}
	}()
	Typed[struct{ X *prop.Receiver[int32] }](fx.r, "Adder", "main")
}

func TestRegistry_Signal(t *testing.T) {
	ctx := testContext(t)
	fx := setup(t, map[string]host.Row{"Screen": {}}, nil,
		Desc{Name: "Screen", Mode: Singleton, Len: Lit(2), Fields: fields(t, "in confirm: ()")})
	insts, err := fx.r.Instances("Screen", "main")
	if err != nil {
		t.Fatal(err)
	}
	r0, _ := ReceiverOf[prop.Unit](insts[0], "confirm")
	r1, _ := ReceiverOf[prop.Unit](insts[1], "confirm")
	fx.global(t, "Screen").Signal("confirm", 1)
	if _, err := r1.Notified(ctx); err != nil {
		t.Errorf("Notified() -> %v", err)
	}
	expectNoNotification(t, r0)
	if row, _ := fx.global(t, "Screen").Row(0); len(row) != 0 {
		t.Errorf("signal fields leaked into the row: %v", row)
	}
}

func TestRegistry_Arrays(t *testing.T) {
	ctx := testContext(t)
	fx := setup(t, map[string]host.Row{"A": {}}, nil,
		Desc{Name: "A", Mode: Singleton, Fields: fields(t, "in xs: int[3]", "out ys: int[2] = 1")})
	inst := fx.singleton(t, "A")
	g := fx.global(t, "A")

	xs, _ := ReceiversOf[int](inst, "xs")
	if err := g.EditElement(0, "xs", 1, 7); err != nil {
		t.Fatal(err)
	}
	if v, err := xs[1].Changed(ctx); v != 7 || err != nil {
		t.Errorf("xs[1].Changed() -> (%v, %v), want (7, nil)", v, err)
	}
	expectNoNotification(t, xs[0])
	expectNoNotification(t, xs[2])

	ys, _ := SendersOf[int](inst, "ys")
	ys[1].Send(3)
	fx.h.Sync()
	row, _ := g.Row(0)
	if diff := cmp.Diff(host.Row{"xs": []any{0, 7, 0}, "ys": []any{1, 3}}, row); diff != "" {
		t.Errorf("row (-want +got):\n%s", diff)
	}
}

func TestRegistry_BoundedString(t *testing.T) {
	ctx := testContext(t)
	fx := setup(t, map[string]host.Row{"R": {}}, nil,
		Desc{Name: "R", Mode: Singleton, Fields: fields(t, "in text: string<3>")})
	inst := fx.singleton(t, "R")
	text, _ := ReceiverOf[string](inst, "text")
	g := fx.global(t, "R")
	g.Edit(0, "text", "abcd")
	g.Edit(0, "text", "abc")
	if v, err := text.Changed(ctx); v != "abc" || err != nil {
		t.Errorf("Changed() -> (%q, %v), want (\"abc\", nil)", v, err)
	}
}

func TestRegistry_TemplateValues(t *testing.T) {
	fx := setup(t, map[string]host.Row{"Adder": {"x": int32(7), "extra": "kept"}}, nil, adderDesc(t))
	inst := fx.singleton(t, "Adder")
	if v, _ := inst.Value("x"); v != int32(7) {
		t.Errorf("x -> %v, want 7", v)
	}
	fx.h.Sync()
	row, _ := fx.global(t, "Adder").Row(0)
	want := host.Row{"x": int32(7), "y": int32(0), "sum": int32(0), "extra": "kept"}
	if diff := cmp.Diff(want, row); diff != "" {
		t.Errorf("row (-want +got):\n%s", diff)
	}
}

func TestRegistry_Nested(t *testing.T) {
	fx := setup(t, map[string]host.Row{"Inner": {}, "Outer": {}}, nil,
		Desc{Name: "Inner", Mode: Singleton, Len: Lit(2), Fields: fields(t, "in x: int")},
		Desc{Name: "Outer", Mode: Singleton, Fields: fields(t, "model inners: Inner[]")})
	outer := fx.singleton(t, "Outer")
	nested, err := outer.Nested("inners")
	if err != nil {
		t.Fatal(err)
	}
	inners, _ := fx.r.Instances("Inner", "main")
	if len(nested) != 2 || nested[0] != inners[0] || nested[1] != inners[1] {
		t.Errorf("nested instances are not the Inner singletons")
	}
}

func TestRegistry_TornDownHost(t *testing.T) {
	fx := adderFixture(t)
	inst := fx.singleton(t, "Adder")
	fx.h.Close()
	sum, _ := SenderOf[int32](inst, "sum")
	sum.Send(3)
	if v, _ := inst.Value("sum"); v != int32(3) {
		t.Errorf("sum -> %v, want 3", v)
	}
}

func TestRegistry_Store(t *testing.T) {
	ctx := testContext(t)
	st := store.MustTempStore(t)
	desc := Desc{Name: "A", Mode: Singleton,
		Fields: fields(t, "in x: int", "out s: string", "in xs: int[2]", "in go: ()")}
	globals := map[string]host.Row{"A": {}}

	fx := setup(t, globals, []Option{WithStore(st)}, desc)
	inst := fx.singleton(t, "A")
	g := fx.global(t, "A")
	g.Edit(0, "x", 5)
	g.EditElement(0, "xs", 1, 8)
	s, _ := SenderOf[string](inst, "s")
	s.Send("saved: yes")
	fx.h.Sync()
	fx.r.Flush()

	fx2 := setup(t, globals, []Option{WithStore(st)}, desc)
	inst2 := fx2.singleton(t, "A")
	for name, want := range map[string]any{"x": 5, "s": "saved: yes", "xs": []any{0, 8}} {
		if v, _ := inst2.Value(name); !cmp.Equal(v, want) {
			t.Errorf("restored %s -> %v, want %v", name, v, want)
		}
	}
	fx2.h.Sync()
	row, _ := fx2.global(t, "A").Row(0)
	if row["x"] != 5 {
		t.Errorf("restored host x -> %v, want 5", row["x"])
	}
	rx, _ := ReceiverOf[int](inst2, "x")
	fx2.global(t, "A").Edit(0, "x", 6)
	if v, _ := rx.Changed(ctx); v != 6 {
		t.Errorf("x.Changed() -> %v, want 6", v)
	}
}

// Blocks PutRow until released.
type gatedStore struct {
	storedefs.Store
	gate chan struct{}
}

func (s gatedStore) PutRow(key string, row map[string]string) error {
	<-s.gate
	return s.Store.PutRow(key, row)
}

func TestRegistry_StoreSavesOffHostLoop(t *testing.T) {
	st := gatedStore{store.MustTempStore(t), make(chan struct{})}
	desc := Desc{Name: "A", Mode: Singleton, Fields: fields(t, "in x: int")}
	fx := setup(t, map[string]host.Row{"A": {}}, []Option{WithStore(st)}, desc)
	release := sync.OnceFunc(func() { close(st.gate) })
	t.Cleanup(release)
	fx.singleton(t, "A")
	g := fx.global(t, "A")

	for i := 1; i <= 3; i++ {
		if err := g.Edit(0, "x", i); err != nil {
			t.Fatal(err)
		}
	}
	if err := fx.h.Sync(); err != nil {
		t.Fatalf("Sync() -> %v while a save is pending", err)
	}
	release()
	fx.r.Flush()

	row, err := st.Row(storedefs.RowKey("main", "A", 0))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"x": "3"}, row); diff != "" {
		t.Errorf("saved row (-want +got):\n%s", diff)
	}
}
