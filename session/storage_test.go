package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// testStorage checks the Storage contract on s.
func testStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.Set(ctx, StorageName, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set() unexpected error = %v", err)
	}
	if err := s.Set(ctx, StorageName, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Set() overwrite unexpected error = %v", err)
	}
	got, err := s.Get(ctx, StorageName)
	if err != nil {
		t.Fatalf("Get() unexpected error = %v", err)
	}
	if !bytes.Equal(got, []byte(`{"a":2}`)) {
		t.Errorf("Get() = %s, want the last value", got)
	}
	if err := s.Delete(ctx, StorageName); err != nil {
		t.Fatalf("Delete() unexpected error = %v", err)
	}
	if err := s.Delete(ctx, StorageName); err != nil {
		t.Errorf("Delete() of an absent key error = %v", err)
	}
	if _, err := s.Get(ctx, StorageName); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStorage(t *testing.T) {
	testStorage(t, NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "famfin")
	s, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage() unexpected error = %v", err)
	}
	testStorage(t, s)

	if err := s.Set(context.Background(), StorageName, []byte("x")); err != nil {
		t.Fatalf("Set() unexpected error = %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, StorageName))
	if err != nil {
		t.Fatalf("record file not found: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("record file mode = %v, want 0600", perm)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory holds %d files, want only the record", len(entries))
	}

	if err := s.Set(context.Background(), "../escape", []byte("x")); err == nil {
		t.Error("Set() accepted a key outside of the directory")
	}
}

func TestSQLiteStorage(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() unexpected error = %v", err)
	}
	defer s.Close()
	testStorage(t, s)
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() unexpected error = %v", err)
	}
	store := mustOpen(t, s)
	if err := store.SetAuth(ctx, alice, "t0k3n"); err != nil {
		t.Fatalf("SetAuth() unexpected error = %v", err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() reopen unexpected error = %v", err)
	}
	defer s.Close()
	if got := mustOpen(t, s).Snapshot(); !got.IsAuthenticated || got.User.Email != alice.Email {
		t.Errorf("rehydrated from sqlite = %+v", got)
	}
}
