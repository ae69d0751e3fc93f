package secrets_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kiosk/internal/secrets"
)

func openStores(t *testing.T) map[string]secrets.Store {
	t.Helper()
	sqlite, err := secrets.OpenSQLite(filepath.Join(t.TempDir(), "state", "secrets.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]secrets.Store{
		"sqlite": sqlite,
		"memory": secrets.NewMemoryStore(),
	}
}

func TestStoreSetDescribeClear(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(ctx, "aisstream_api_key", "AISKEY9999"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			value, ok, err := store.Get(ctx, "aisstream_api_key")
			if err != nil || !ok {
				t.Fatalf("Get = %q, %v, %v", value, ok, err)
			}
			if value != "AISKEY9999" {
				t.Fatalf("stored value = %q", value)
			}
			desc, err := store.Describe(ctx, "aisstream_api_key")
			if err != nil {
				t.Fatalf("Describe failed: %v", err)
			}
			if !desc.HasValue || desc.Last4 == nil || *desc.Last4 != "9999" {
				t.Fatalf("unexpected description %+v", desc)
			}

			if err := store.Set(ctx, "aisstream_api_key", "   "); err != nil {
				t.Fatalf("blank Set failed: %v", err)
			}
			desc, _ = store.Describe(ctx, "aisstream_api_key")
			if desc.HasValue || desc.Last4 != nil {
				t.Fatalf("blank value should clear, got %+v", desc)
			}

			if err := store.Set(ctx, "short", "abc"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			desc, _ = store.Describe(ctx, "short")
			if !desc.HasValue || desc.Last4 != nil {
				t.Fatalf("short value description = %+v", desc)
			}
			if err := store.Clear(ctx, "short"); err != nil {
				t.Fatalf("Clear failed: %v", err)
			}
			if err := store.Clear(ctx, "short"); err != nil {
				t.Fatalf("second Clear failed: %v", err)
			}
			names, err := store.Names(ctx)
			if err != nil {
				t.Fatalf("Names failed: %v", err)
			}
			if len(names) != 0 {
				t.Fatalf("expected no names, got %v", names)
			}
		})
	}
}

func TestStoreKeepsSurroundingWhitespace(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(ctx, "lightning_mqtt_password", " pass word\t"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			value, ok, err := store.Get(ctx, "lightning_mqtt_password")
			if err != nil || !ok {
				t.Fatalf("Get = %q, %v, %v", value, ok, err)
			}
			if value != " pass word\t" {
				t.Fatalf("stored value = %q, want it unchanged", value)
			}
		})
	}
}

func TestSetOpBlankClears(t *testing.T) {
	op := secrets.SetOp("aemet_api_key", "aemet.api_key", " \n")
	if !op.Clear || op.Value != "" {
		t.Fatalf("blank op = %+v, want clear", op)
	}
	op = secrets.SetOp("aemet_api_key", "aemet.api_key", " KEY ")
	if op.Clear || op.Value != " KEY " {
		t.Fatalf("op = %+v, want value kept as submitted", op)
	}
}

func TestStoreApplyIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(ctx, "keep", "value-1"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			err := store.Apply(ctx, []secrets.Op{
				{Name: "keep", Clear: true},
				{Name: "bad name", Value: "x"},
			})
			if !errors.Is(err, secrets.ErrInvalidName) {
				t.Fatalf("expected ErrInvalidName, got %v", err)
			}
			if _, ok, _ := store.Get(ctx, "keep"); !ok {
				t.Fatal("failed Apply must not clear existing secret")
			}

			err = store.Apply(ctx, []secrets.Op{
				secrets.SetOp("b", "x.b", "bbbb"),
				secrets.SetOp("a", "x.a", "aaaa"),
				{Name: "keep", Clear: true},
			})
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			names, _ := store.Names(ctx)
			if len(names) != 2 || names[0] != "a" || names[1] != "b" {
				t.Fatalf("names = %v, want [a b]", names)
			}
		})
	}
}

func TestOpenSQLiteRestrictsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.db")
	store, err := secrets.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer store.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("secrets file mode = %o, want 600", perm)
	}
	if store.Path() != path {
		t.Fatalf("Path() = %q, want %q", store.Path(), path)
	}
}

func TestOpenSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "secrets.db")
	store, err := secrets.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := store.Set(ctx, "aemet_api_key", "token-1234"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := secrets.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	value, ok, err := reopened.Get(ctx, "aemet_api_key")
	if err != nil || !ok || value != "token-1234" {
		t.Fatalf("Get after reopen = %q, %v, %v", value, ok, err)
	}
}

func TestDescribeUsesRunes(t *testing.T) {
	desc := secrets.Describe("clave-ñandú", true)
	if desc.Last4 == nil {
		t.Fatal("expected last4 for long value")
	}
	if *desc.Last4 != "andú" {
		t.Fatalf("last4 = %q, want %q", *desc.Last4, "andú")
	}
}
