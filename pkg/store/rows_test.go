package store_test

import (
	"path/filepath"
	"testing"

	"src.frand.dev/pkg/store"
	"src.frand.dev/pkg/store/storedefs"
	"src.frand.dev/pkg/store/storetest"
)

func TestRows(t *testing.T) {
	storetest.TestRows(t, store.MustTempStore(t))
}

func TestRows_SurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.db")
	st, err := store.NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	key := storedefs.RowKey("main", "Adder", 0)
	st.PutRow(key, map[string]string{"x": "7"})
	st.Close()

	st, err = store.NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	row, err := st.Row(key)
	if err != nil || row["x"] != "7" {
		t.Errorf("Row after reopen -> (%v, %v), want x=7", row, err)
	}
}
