package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

type fakeReloader struct {
	path  string
	calls atomic.Int32
}

func (f *fakeReloader) Path() string { return f.path }

func (f *fakeReloader) Reload(context.Context) (bool, error) {
	f.calls.Add(1)
	return true, nil
}

func waitForCalls(t *testing.T, r *fakeReloader, want int32) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if r.calls.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("reload calls = %d, want >= %d", r.calls.Load(), want)
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	reloader := &fakeReloader{path: path}
	w, err := New(reloader, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(`{"display":{}}`), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	waitForCalls(t, reloader, 1)
	time.Sleep(150 * time.Millisecond)
	if got := reloader.calls.Load(); got != 1 {
		t.Fatalf("burst of writes produced %d reloads, want 1", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	reloader := &fakeReloader{path: path}
	w, err := New(reloader, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if got := reloader.calls.Load(); got != 0 {
		t.Fatalf("unrelated file triggered %d reloads", got)
	}
}
