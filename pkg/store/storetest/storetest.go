// Package storetest keeps test suites against storedefs.Store.
package storetest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.frand.dev/pkg/store/storedefs"
)

func matchErr(e1, e2 error) bool {
	return (e1 == nil && e2 == nil) || (e1 != nil && e2 != nil && e1.Error() == e2.Error())
}

// TestRows tests the row functionality of a Store.
func TestRows(t *testing.T, store storedefs.Store) {
	key := storedefs.RowKey("main", "Adder", 0)
	if _, err := store.Row(key); !matchErr(err, storedefs.ErrNoRow) {
		t.Errorf("Row(%q) -> error %v, want %v", key, err, storedefs.ErrNoRow)
	}

	row := map[string]string{"x": "1", "text": `"a: b"`, "xs[0]": "2"}
	if err := store.PutRow(key, row); err != nil {
		t.Errorf("PutRow -> error %v", err)
	}
	got, err := store.Row(key)
	if err != nil {
		t.Errorf("Row -> error %v", err)
	}
	if diff := cmp.Diff(row, got); diff != "" {
		t.Errorf("Row (-want +got):\n%s", diff)
	}

	replaced := map[string]string{"x": "3"}
	store.PutRow(key, replaced)
	if got, _ := store.Row(key); !cmp.Equal(replaced, got) {
		t.Errorf("Row after replace -> %v, want %v", got, replaced)
	}

	store.PutRow(storedefs.RowKey("main", "Adder", 1), row)
	store.PutRow(storedefs.RowKey("main", "AdderArray", 0), row)
	store.PutRow(storedefs.RowKey("other", "Adder", 0), row)
	keys, err := store.RowKeys(storedefs.RowKeyPrefix("main", "Adder"))
	if err != nil {
		t.Errorf("RowKeys -> error %v", err)
	}
	wantKeys := []string{"main/Adder/0", "main/Adder/1"}
	if diff := cmp.Diff(wantKeys, keys); diff != "" {
		t.Errorf("RowKeys (-want +got):\n%s", diff)
	}

	if err := store.DelRow(key); err != nil {
		t.Errorf("DelRow -> error %v", err)
	}
	if _, err := store.Row(key); !matchErr(err, storedefs.ErrNoRow) {
		t.Errorf("Row after DelRow -> error %v, want %v", err, storedefs.ErrNoRow)
	}
	if err := store.DelRow(key); err != nil {
		t.Errorf("DelRow of missing row -> error %v", err)
	}
}
