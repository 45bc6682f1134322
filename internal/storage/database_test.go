package storage

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/conorfennell/studydeck/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetPutDelete(t *testing.T) {
	db := openTestDB(t)

	if _, ok, err := db.Get("missing"); err != nil || ok {
		t.Fatalf("Expected a missing key to report (false, nil), but got (%v, %v)", ok, err)
	}

	if err := db.Put("progress", "v1"); err != nil {
		t.Fatalf("Put() returned an unexpected error: %v", err)
	}
	if err := db.Put("progress", "v2"); err != nil {
		t.Fatalf("Put() returned an unexpected error: %v", err)
	}
	value, ok, err := db.Get("progress")
	if err != nil || !ok || value != "v2" {
		t.Errorf("Expected ('v2', true, nil), but got ('%s', %v, %v)", value, ok, err)
	}

	if err := db.Delete("progress"); err != nil {
		t.Fatalf("Delete() returned an unexpected error: %v", err)
	}
	if _, ok, _ := db.Get("progress"); ok {
		t.Error("Expected the key to be gone after Delete()")
	}
	if err := db.Delete("progress"); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, but got %v", err)
	}
}

func TestKeys(t *testing.T) {
	db := openTestDB(t)
	for _, k := range []string{"session:type", "progress", "session:learn", "session_x"} {
		if err := db.Put(k, "x"); err != nil {
			t.Fatalf("Put() returned an unexpected error: %v", err)
		}
	}

	keys, err := db.Keys("session:")
	if err != nil {
		t.Fatalf("Keys() returned an unexpected error: %v", err)
	}
	if want := []string{"session:learn", "session:type"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("Expected %v, but got %v", want, keys)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studydeck.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	if err := db.Put("match:best_time", "12.5"); err != nil {
		t.Fatalf("Put() returned an unexpected error: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	defer db.Close()
	if value, ok, _ := db.Get("match:best_time"); !ok || value != "12.5" {
		t.Errorf("Expected '12.5' after reopening, but got '%s' (found=%v)", value, ok)
	}
}

func TestClosedDatabaseReportsStorageError(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	db.Close()

	if err := db.Put("k", "v"); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("Expected a storage error, but got %v", err)
	}
	if _, _, err := db.Get("k"); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("Expected a storage error, but got %v", err)
	}
}
