package daemon_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"kiosk/internal/changebus"
	"kiosk/internal/daemon"
	"kiosk/internal/logging"
	"kiosk/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, fx.Store, fx.Bus, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("lock path = %q, want %q", status.LockFilePath, cfg.LockPath())
	}

	resp, err := http.Get("http://" + d.Addr() + "/api/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	if resp, err := http.Get("http://" + d.Addr() + "/metrics"); err == nil {
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("metrics without collector should 404, got %d", resp.StatusCode)
		}
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, fx.Store, fx.Bus, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	second, err := daemon.New(cfg, fx.Store, fx.Bus, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
}

func TestDaemonWatcherRepublishesHandEdits(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWatch(20))
	fx := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, fx.Store, fx.Bus, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	sub := fx.Bus.Subscribe()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()
	if !d.Status().Watching {
		t.Fatal("expected watcher to be running")
	}

	onDisk := testsupport.ReadJSON(t, cfg.Paths.DocumentPath)
	onDisk["ui_map"].(map[string]any)["zoom"] = 14
	testsupport.WriteJSON(t, cfg.Paths.DocumentPath, onDisk)

	timeout := time.After(3 * time.Second)
	for {
		select {
		case evt := <-sub.Events():
			if evt.Type != changebus.TypeConfigChanged {
				continue
			}
			payload := evt.Data.(changebus.ConfigChanged)
			if len(payload.ChangedGroups) != 1 || payload.ChangedGroups[0] != "ui_map" {
				t.Fatalf("changed_groups = %v", payload.ChangedGroups)
			}
			return
		case <-timeout:
			t.Fatal("hand edit was not republished")
		}
	}
}
