package host

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRowEqual(t *testing.T) {
	l := NewVecList[any](1, 2)
	tests := []struct {
		name string
		a, b Row
		want bool
	}{
		{"empty", Row{}, Row{}, true},
		{"same scalars", Row{"x": 1, "s": "a"}, Row{"x": 1, "s": "a"}, true},
		{"different value", Row{"x": 1}, Row{"x": 2}, false},
		{"different type", Row{"x": 1}, Row{"x": int64(1)}, false},
		{"missing field", Row{"x": 1}, Row{"y": 1}, false},
		{"extra field", Row{"x": 1}, Row{"x": 1, "y": 1}, false},
		{"same list", Row{"xs": l}, Row{"xs": l}, true},
		{"different list", Row{"xs": l}, Row{"xs": NewVecList[any](1, 2)}, false},
		{"slices", Row{"xs": []int{1}}, Row{"xs": []int{1}}, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.a.Equal(test.b); got != test.want {
				t.Errorf("Equal -> %v, want %v", got, test.want)
			}
		})
	}
}

func TestRowClone(t *testing.T) {
	r := Row{"x": 1}
	c := r.Clone()
	c["x"] = 2
	if r["x"] != 1 {
		t.Errorf("clone shares storage with original")
	}
}

func TestVecList(t *testing.T) {
	l := NewVecList(1, 2, 3)
	var changed []int
	cancel := l.OnRowChanged(func(i int) { changed = append(changed, i) })

	l.SetRowData(1, 20)
	l.SetRowData(5, 50)
	l.SetRowData(-1, 50)
	cancel()
	l.SetRowData(0, 10)

	if diff := cmp.Diff([]int{10, 20, 3}, l.Items()); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, changed); diff != "" {
		t.Errorf("changed rows (-want +got):\n%s", diff)
	}
	if _, ok := l.RowData(3); ok {
		t.Errorf("RowData(3) reported ok")
	}
}

type change struct {
	I        int
	Old, New Row
}

func TestNotifyList_SetRowData(t *testing.T) {
	inner := NewVecList(Row{"x": 0, "y": 0}, Row{"x": 1, "y": 1})
	var changes []change
	l := NewRowList(inner, func(i int, old, new Row) {
		changes = append(changes, change{i, old, new})
	})
	var rowChanged []int
	l.OnRowChanged(func(i int) { rowChanged = append(rowChanged, i) })

	l.SetRowData(0, Row{"x": 0, "y": 0})
	l.SetRowData(0, Row{"x": 5, "y": 0})
	l.SetRowData(0, Row{"x": 5, "y": 0})
	l.SetRowData(1, Row{"x": 1, "y": 7})
	l.SetRowData(2, Row{"x": 1, "y": 7})

	wantChanges := []change{
		{0, Row{"x": 0, "y": 0}, Row{"x": 5, "y": 0}},
		{1, Row{"x": 1, "y": 1}, Row{"x": 1, "y": 7}},
	}
	if diff := cmp.Diff(wantChanges, changes); diff != "" {
		t.Errorf("changes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1}, rowChanged); diff != "" {
		t.Errorf("row changes (-want +got):\n%s", diff)
	}
	wantRows := []Row{{"x": 5, "y": 0}, {"x": 1, "y": 7}}
	if diff := cmp.Diff(wantRows, inner.Items()); diff != "" {
		t.Errorf("inner rows (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantRows, l.Snapshot()); diff != "" {
		t.Errorf("snapshot (-want +got):\n%s", diff)
	}
}

func TestNotifyList_WriteThrough(t *testing.T) {
	inner := NewVecList[any](1, 2)
	calls := 0
	l := NewValueList(inner, func(int, any, any) { calls++ })
	var rowChanged []int
	l.OnRowChanged(func(i int) { rowChanged = append(rowChanged, i) })

	l.WriteThrough(0, 10)
	l.WriteThrough(0, 10)
	// A host edit restating the written value is not a change.
	l.SetRowData(0, 10)

	if calls != 0 {
		t.Errorf("change callback called %d times, want 0", calls)
	}
	if diff := cmp.Diff([]any{10, 2}, inner.Items()); diff != "" {
		t.Errorf("inner (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0}, rowChanged); diff != "" {
		t.Errorf("row changes (-want +got):\n%s", diff)
	}
	if v, ok := l.Cached(0); v != 10 || !ok {
		t.Errorf("Cached(0) -> (%v, %v), want (10, true)", v, ok)
	}
}
