package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestWriteAndTryRead(t *testing.T) {
	store := New(t.TempDir())

	doc := map[string]any{"brightness": float64(50), "name": "lamp"}
	if err := store.Write(doc, "Components", "lamp.1", "settings.json"); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	var got map[string]any
	found, err := store.TryRead(&got, "Components", "lamp.1", "settings.json")
	if err != nil {
		t.Fatalf("TryRead() error: %v", err)
	}
	if !found {
		t.Fatal("TryRead() found = false, want true")
	}
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("TryRead() = %v, want %v", got, doc)
	}
}

func TestTryReadMissingIsNotError(t *testing.T) {
	store := New(t.TempDir())

	var got map[string]any
	found, err := store.TryRead(&got, "Components", "nope", "settings.json")
	if err != nil {
		t.Fatalf("TryRead() error: %v", err)
	}
	if found {
		t.Error("TryRead() found = true for missing document")
	}
}

func TestTryReadCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	path := filepath.Join(dir, "Components", "bad")
	if err := os.MkdirAll(path, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "settings.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if _, err := store.TryRead(&got, "Components", "bad", "settings.json"); err == nil {
		t.Fatal("TryRead() with corrupt document: want error, got nil")
	}
}

func TestWriteReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	if err := store.Write(map[string]any{"v": float64(1)}, "doc.json"); err != nil {
		t.Fatalf("first Write() error: %v", err)
	}
	if err := store.Write(map[string]any{"v": float64(2)}, "doc.json"); err != nil {
		t.Fatalf("second Write() error: %v", err)
	}

	var got map[string]any
	if _, err := store.TryRead(&got, "doc.json"); err != nil {
		t.Fatalf("TryRead() error: %v", err)
	}
	if got["v"] != float64(2) {
		t.Errorf("v = %v, want 2", got["v"])
	}

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "doc.json" {
			t.Errorf("unexpected leftover entry %q", e.Name())
		}
	}
}

func TestEnumerateDirectories(t *testing.T) {
	store := New(t.TempDir())

	for _, uid := range []string{"lamp.1", "lamp.2", "sensor.1"} {
		if err := store.Write(map[string]any{}, "Components", uid, "configuration.json"); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.EnumerateDirectories("*", "Components")
	if err != nil {
		t.Fatalf("EnumerateDirectories() error: %v", err)
	}
	want := []string{"lamp.1", "lamp.2", "sensor.1"}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("EnumerateDirectories(*) = %v, want %v", all, want)
	}

	lamps, err := store.EnumerateDirectories("lamp.*", "Components")
	if err != nil {
		t.Fatalf("EnumerateDirectories() error: %v", err)
	}
	if !reflect.DeepEqual(lamps, []string{"lamp.1", "lamp.2"}) {
		t.Errorf("EnumerateDirectories(lamp.*) = %v", lamps)
	}
}

func TestEnumerateDirectoriesMissingParent(t *testing.T) {
	store := New(t.TempDir())

	names, err := store.EnumerateDirectories("*", "Nope")
	if err != nil {
		t.Fatalf("EnumerateDirectories() error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("EnumerateDirectories() = %v, want empty", names)
	}
}

func TestDeleteDirectory(t *testing.T) {
	store := New(t.TempDir())

	if err := store.Write(map[string]any{}, "Components", "lamp.1", "settings.json"); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteDirectory("Components", "lamp.1"); err != nil {
		t.Fatalf("DeleteDirectory() error: %v", err)
	}

	var got map[string]any
	found, err := store.TryRead(&got, "Components", "lamp.1", "settings.json")
	if err != nil || found {
		t.Errorf("document still present after DeleteDirectory (found=%v err=%v)", found, err)
	}

	// Deleting again is not an error.
	if err := store.DeleteDirectory("Components", "lamp.1"); err != nil {
		t.Errorf("second DeleteDirectory() error: %v", err)
	}
}

func TestInvalidPathSegments(t *testing.T) {
	store := New(t.TempDir())

	for _, segment := range []string{"", ".", "..", "a/b", `a\b`} {
		if err := store.Write(map[string]any{}, segment, "doc.json"); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Write(%q) error = %v, want ErrInvalidPath", segment, err)
		}
	}
}
