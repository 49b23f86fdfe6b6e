package demo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"src.frand.dev/pkg/host"
	"src.frand.dev/pkg/host/memhost"
	"src.frand.dev/pkg/model"
	"src.frand.dev/pkg/prop"
	"src.frand.dev/pkg/testutil"
)

type fixture struct {
	ctx context.Context
	h   *memhost.Host
	r   *model.Registry
}

func setup(t *testing.T, propLen func() int) *fixture {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testutil.Scaled(5*time.Second))
	cat, err := NewCatalog(propLen)
	if err != nil {
		t.Fatal(err)
	}
	h := memhost.New()
	AddGlobals(h)
	r := model.NewRegistry(cat)
	r.RegisterHost("main", func() host.Handle { return h })
	tasks, err := Start(ctx, r, "main")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		prop.StopAll(tasks)
		h.Close()
		cancel()
	})
	return &fixture{ctx, h, r}
}

func (fx *fixture) global(t *testing.T, name string) *memhost.Global {
	t.Helper()
	g, ok := fx.h.LookupGlobal(name)
	if !ok {
		t.Fatalf("no global %s", name)
	}
	return g
}

// Waits until field of row i of a global has the wanted value.
func (fx *fixture) waitField(t *testing.T, global string, i int, field string, want any) {
	t.Helper()
	g := fx.global(t, global)
	var got any
	for {
		if row, ok := g.Row(i); ok {
			got = row[field]
			if cmp.Equal(got, want) {
				return
			}
		}
		select {
		case <-fx.ctx.Done():
			t.Fatalf("%s[%d].%s = %v, want %v", global, i, field, got, want)
		case <-time.After(time.Millisecond):
		}
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestAdder(t *testing.T) {
	fx := setup(t, nil)
	g := fx.global(t, "Adder")

	must(t, g.Edit(0, "x", int32(2)))
	fx.waitField(t, "Adder", 0, "sum", int32(2))
	must(t, g.Edit(0, "y", 3.0))
	fx.waitField(t, "Adder", 0, "sum", int32(5))
}

func TestAdderArray(t *testing.T) {
	fx := setup(t, nil)
	g := fx.global(t, "AdderArray")
	// Rows are attached on the host loop.
	must(t, fx.h.Sync())
	if n := g.RowCount(); n != 2 {
		t.Fatalf("AdderArray has %d rows, want 2", n)
	}

	must(t, g.EditElement(1, "x", 0, int32(4)))
	must(t, g.EditElement(1, "y", 0, int32(1)))
	fx.waitField(t, "AdderArray", 1, "sum", []any{int32(5), int32(0)})
	must(t, g.EditElement(1, "y", 1, int32(7)))
	fx.waitField(t, "AdderArray", 1, "sum", []any{int32(5), int32(7)})
	fx.waitField(t, "AdderArray", 0, "sum", []any{int32(0), int32(0)})
}

func TestAdderArray_PropLen(t *testing.T) {
	calls := 0
	fx := setup(t, func() int { calls++; return 3 })
	fx.waitField(t, "AdderArray", 0, "x", []any{int32(0), int32(0), int32(0)})
	if calls != 1 {
		t.Errorf("PROP_LEN evaluated %d times, want 1", calls)
	}
}

func TestScreen(t *testing.T) {
	fx := setup(t, nil)
	g := fx.global(t, "Screen")

	fx.waitField(t, "Screen", 0, "current_screen", ScreenStart)
	must(t, g.Signal("confirm_start", 0))
	fx.waitField(t, "Screen", 0, "current_screen", ScreenPay)
	must(t, g.Signal("cancel_pay", 0))
	fx.waitField(t, "Screen", 0, "current_screen", ScreenStart)
}

func TestScreenNames(t *testing.T) {
	for _, s := range []Screen{ScreenStart, ScreenPay} {
		got, err := ParseScreen(s.String())
		if got != s || err != nil {
			t.Errorf("ParseScreen(%q) -> (%v, %v)", s.String(), got, err)
		}
	}
	if _, err := ParseScreen("nope"); err == nil {
		t.Errorf("ParseScreen(nope) succeeded")
	}
	if s := Screen(9).String(); s != "Screen(9)" {
		t.Errorf("Screen(9).String() -> %q", s)
	}
}

func TestRepeater(t *testing.T) {
	fx := setup(t, nil)
	g := fx.global(t, "Repeater")

	must(t, g.Edit(0, "text", "ab"))
	fx.waitField(t, "Repeater", 0, "repeated", "ab ab")
	// Longer than string<20>, so never reaches the app.
	must(t, g.Edit(0, "text", strings.Repeat("x", 21)))
	must(t, g.Edit(0, "text", "cd"))
	fx.waitField(t, "Repeater", 0, "repeated", "cd cd")
}

func TestStart_Errors(t *testing.T) {
	h := memhost.New()
	defer h.Close()
	r := model.NewRegistry(model.NewCatalog())
	r.RegisterHost("main", func() host.Handle { return h })

	tasks, err := Start(context.Background(), r, "main")
	if tasks != nil {
		t.Errorf("got tasks %v", tasks)
	}
	if !errors.Is(err, model.ErrUnknownModel) {
		t.Errorf("got error %v, want ErrUnknownModel", err)
	}
	if n := strings.Count(err.Error(), "start "); n != 4 {
		t.Errorf("error mentions %d apps, want 4:\n%v", n, err)
	}
}
