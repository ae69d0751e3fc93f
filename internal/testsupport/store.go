package testsupport

import (
	"context"
	"testing"

	"kiosk/internal/changebus"
	"kiosk/internal/config"
	"kiosk/internal/configstore"
	"kiosk/internal/secrets"
)

// Fixture bundles a document store with the collaborators tests inspect.
type Fixture struct {
	Store   *configstore.Store
	Secrets *secrets.MemoryStore
	Bus     *changebus.Bus
}

// MustOpenStore opens a configstore.Store over an in-memory secret store
// and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *Fixture {
	t.Helper()

	fx := &Fixture{
		Secrets: secrets.NewMemoryStore(),
		Bus:     changebus.New(changebus.WithQueueSize(cfg.Events.QueueSize)),
	}
	store, err := configstore.Open(context.Background(), configstore.Options{
		Path:    cfg.Paths.DocumentPath,
		Secrets: fx.Secrets,
		Bus:     fx.Bus,
	})
	if err != nil {
		t.Fatalf("configstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	fx.Store = store
	return fx
}

// MustSetSecret stores a secret directly, bypassing the document.
func MustSetSecret(t testing.TB, store secrets.Store, name, value string) {
	t.Helper()

	if err := store.Set(context.Background(), name, value); err != nil {
		t.Fatalf("secrets.Set(%s): %v", name, err)
	}
}
