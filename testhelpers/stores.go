// Package testhelpers holds fixtures shared by package tests.
package testhelpers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/domino14/retrograde/store"
)

// SQLiteStore opens a store in a fresh temporary directory and closes it
// when the test ends.
func SQLiteStore(t testing.TB) *store.SQLiteStore {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tablebase.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Error(err)
		}
	})
	return s
}

// Records lists every record of s in the store's iteration order.
func Records(t testing.TB, s store.PositionStore) []store.Record {
	t.Helper()
	var out []store.Record
	err := s.ForEach(context.Background(), func(r store.Record) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}
