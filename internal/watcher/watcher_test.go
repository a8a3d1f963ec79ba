package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitDevEvent(t *testing.T, w *DevWatcher) DevEvent {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for device event")
		return DevEvent{}
	}
}

func TestDevWatcherCreate(t *testing.T) {
	dir := t.TempDir()

	w, err := NewDevWatcher(dir)
	if err != nil {
		t.Fatalf("NewDevWatcher() error = %v", err)
	}
	defer w.Close()

	path := filepath.Join(dir, "hidraw0")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	ev := waitDevEvent(t, w)
	if ev.Op != DevAdded {
		t.Errorf("event op = %v, want DevAdded", ev.Op)
	}
	if ev.Path != path {
		t.Errorf("event path = %q, want %q", ev.Path, path)
	}
	if ev.ID != 0 {
		t.Errorf("event id = %d, want 0", ev.ID)
	}
}

func TestDevWatcherIgnoresNonHidraw(t *testing.T) {
	dir := t.TempDir()

	w, err := NewDevWatcher(dir)
	if err != nil {
		t.Fatalf("NewDevWatcher() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "ttyS0"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "hidraw7"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	// Only the hidraw node must come through
	ev := waitDevEvent(t, w)
	if ev.ID != 7 {
		t.Errorf("event id = %d, want 7", ev.ID)
	}
}

func TestDevWatcherRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hidraw2")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewDevWatcher(dir)
	if err != nil {
		t.Fatalf("NewDevWatcher() error = %v", err)
	}
	defer w.Close()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	ev := waitDevEvent(t, w)
	if ev.Op != DevRemoved {
		t.Errorf("event op = %v, want DevRemoved", ev.Op)
	}
	if ev.ID != 2 {
		t.Errorf("event id = %d, want 2", ev.ID)
	}
}

func TestDevWatcherClose(t *testing.T) {
	w, err := NewDevWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewDevWatcher() error = %v", err)
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Event channel must be closed after Close
	select {
	case _, ok := <-w.Events():
		if ok {
			t.Error("unexpected event after Close")
		}
	case <-time.After(time.Second):
		t.Error("event channel not closed after Close")
	}
}

func TestDevWatcherMissingDir(t *testing.T) {
	if _, err := NewDevWatcher(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("NewDevWatcher() should fail for a missing directory")
	}
}
