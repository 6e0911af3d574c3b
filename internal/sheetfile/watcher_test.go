package sheetfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T, path string) *Watcher {
	t.Helper()
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_ReportsEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.toml")
	if err := os.WriteFile(path, []byte(budget), 0o644); err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t, path)

	if err := os.WriteFile(path, []byte("name = \"renamed\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-w.Changes:
		if c.Err != nil {
			t.Fatalf("change error: %v", c.Err)
		}
		if c.Def.Name != "renamed" {
			t.Errorf("Name = %q", c.Def.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestWatcher_ReportsParseFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.toml")
	if err := os.WriteFile(path, []byte(budget), 0o644); err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t, path)

	if err := os.WriteFile(path, []byte("name = "), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-w.Changes:
		if c.Err == nil {
			t.Error("expected parse error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "budget.toml")
	if err := os.WriteFile(path, []byte(budget), 0o644); err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t, path)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-w.Changes:
		t.Errorf("unexpected change: %+v", c)
	case <-time.After(300 * time.Millisecond):
	}
}
