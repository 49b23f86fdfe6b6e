package store

import (
	"path/filepath"
	"testing"
)

// MustTempStore returns a Store backed by a temporary file, which is closed
// when the test finishes.
func MustTempStore(t testing.TB) DBStore {
	t.Helper()
	st, err := NewStore(filepath.Join(t.TempDir(), "rows.db"))
	if err != nil {
		t.Fatalf("create temp store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}
