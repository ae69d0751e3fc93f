package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"kiosk/internal/daemon"
	"kiosk/internal/logging"
	"kiosk/internal/testsupport"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchPrintsConfigChanges(t *testing.T) {
	env := setupCLITestEnv(t)
	fx := testsupport.MustOpenStore(t, env.cfg)
	d, err := daemon.New(env.cfg, fx.Store, fx.Bus, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var stdout syncBuffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs([]string{"--config", env.configPath, "--bind", d.Addr(), "watch", "-o", "table"})
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	waitFor(t, 5*time.Second, func() bool { return fx.Bus.Len() > 0 })
	if _, err := fx.Store.Patch(context.Background(), map[string]any{"display": map[string]any{"brightness": 42}}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool { return strings.Contains(stdout.String(), "config_changed") })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not exit after cancel")
	}
	out := stdout.String()
	requireContains(t, out, "groups=display")
	if strings.Contains(out, "heartbeat") {
		t.Fatalf("heartbeats printed without --heartbeats: %s", out)
	}
}

func TestLogsPrintsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.LogDir, "kiosk.log"), []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("logs output = %q", out)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "not running")
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}
