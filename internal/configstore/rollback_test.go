package configstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kiosk/internal/changebus"
	"kiosk/internal/logging"
	"kiosk/internal/secrets"
)

func TestPersistFailureRestoresSecrets(t *testing.T) {
	ctx := context.Background()
	mem := secrets.NewMemoryStore()
	if err := mem.Set(ctx, "aemet_api_key", "original-1111"); err != nil {
		t.Fatalf("seed secret: %v", err)
	}
	bus := changebus.New()
	store, err := Open(ctx, Options{
		Path:    filepath.Join(t.TempDir(), "config.json"),
		Secrets: mem,
		Bus:     bus,
		Logger:  logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	sub := bus.Subscribe()
	before := store.Checksum()

	store.writeFile = func(string, []byte, os.FileMode) error {
		return errors.New("disk full")
	}
	_, err = store.Patch(ctx, map[string]any{
		"aemet": map[string]any{"api_key": "replacement-2222"},
	})
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}

	value, ok, err := mem.Get(ctx, "aemet_api_key")
	if err != nil || !ok || value != "original-1111" {
		t.Fatalf("secret not restored: %q, %v, %v", value, ok, err)
	}
	if store.Checksum() != before {
		t.Fatal("failed write changed the cached document")
	}
	select {
	case evt := <-sub.Events():
		t.Fatalf("failed write published %+v", evt)
	default:
	}
}
