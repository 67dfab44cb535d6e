package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := OpenAt(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func record(t *testing.T, store *Store, entry *Entry) {
	t.Helper()
	if err := store.Record(entry); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	time.Sleep(1 * time.Millisecond) // Ensure different timestamps
}

func TestOpenUsesDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := Open()
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer store.Close()
}

func TestRecord(t *testing.T) {
	store := setupTestStore(t)

	entry := NewEntry(OpInstall, "/srv/gm", []Package{vim})
	entry.MarkSuccess()
	record(t, store, entry)

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestList(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 5; i++ {
		entry := NewEntry(OpInstall, "/srv/gm", []Package{{Repo: "owner/pkg" + string(rune('a'+i))}})
		entry.MarkSuccess()
		record(t, store, entry)
	}

	entries, err := store.List(0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}

	limitedEntries, err := store.List(3)
	if err != nil {
		t.Fatalf("List(3) error: %v", err)
	}
	if len(limitedEntries) != 3 {
		t.Errorf("expected 3 entries with limit, got %d", len(limitedEntries))
	}

	// Newest first
	if entries[0].Packages[0].Repo != "owner/pkge" {
		t.Errorf("first entry = %v, want owner/pkge", entries[0].Packages)
	}
	if entries[0].Timestamp.Before(entries[1].Timestamp) {
		t.Error("List() should return entries in reverse chronological order")
	}
}

func TestGet(t *testing.T) {
	store := setupTestStore(t)

	entry := NewEntry(OpRemove, "/srv/gm", []Package{vim})
	entry.MarkSuccess()
	record(t, store, entry)

	retrieved, err := store.Get(entry.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if retrieved.ID != entry.ID {
		t.Errorf("Get() returned wrong entry: %s != %s", retrieved.ID, entry.ID)
	}
	if retrieved.Packages[0] != vim {
		t.Errorf("package not preserved: %+v", retrieved.Packages[0])
	}

	if _, err := store.Get("nonexistent"); err == nil {
		t.Error("Get() should error for non-existent ID")
	}
}

func TestLastReversible(t *testing.T) {
	store := setupTestStore(t)

	install := NewEntry(OpInstall, "/srv/gm", []Package{vim})
	install.MarkSuccess()
	record(t, store, install)

	other := NewEntry(OpInstall, "/srv/other", []Package{vim})
	other.MarkSuccess()
	record(t, store, other)

	update := NewEntry(OpUpdate, "/srv/gm", []Package{vim})
	update.MarkSuccess()
	record(t, store, update)

	reversible, err := store.LastReversible("/srv/gm")
	if err != nil {
		t.Fatalf("LastReversible() error: %v", err)
	}
	if reversible.ID != install.ID {
		t.Errorf("LastReversible() = %s, want %s", reversible.ID, install.ID)
	}

	reversible, err = store.LastReversible("")
	if err != nil {
		t.Fatalf("LastReversible() error: %v", err)
	}
	if reversible.ID != other.ID {
		t.Errorf("LastReversible(\"\") = %s, want %s", reversible.ID, other.ID)
	}

	if _, err := store.LastReversible("/srv/none"); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("LastReversible() error = %v, want ErrNothingToUndo", err)
	}
}

func TestCount(t *testing.T) {
	store := setupTestStore(t)

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected count 0 for empty store, got %d", count)
	}

	for i := 0; i < 3; i++ {
		record(t, store, NewEntry(OpSync, "/srv/gm", nil))
	}

	count, err = store.Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
}

func TestClear(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 3; i++ {
		record(t, store, NewEntry(OpInstall, "/srv/gm", []Package{vim}))
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected count 0 after Clear(), got %d", count)
	}
}

func TestPrune(t *testing.T) {
	store := setupTestStore(t)

	oldEntry := &Entry{
		ID:        "old-entry",
		Timestamp: time.Now().Add(-48 * time.Hour),
		Operation: OpInstall,
		Workspace: "/srv/gm",
		Packages:  []Package{{Repo: "old/pkg"}},
		Success:   true,
	}
	record(t, store, oldEntry)
	record(t, store, NewEntry(OpInstall, "/srv/gm", []Package{{Repo: "new/pkg"}}))

	deleted, err := store.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted entry, got %d", deleted)
	}

	count, _ := store.Count()
	if count != 1 {
		t.Errorf("expected 1 entry after prune, got %d", count)
	}
}

func TestClose(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
