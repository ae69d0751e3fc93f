package configstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"kiosk/internal/changebus"
	"kiosk/internal/configstore"
	"kiosk/internal/document"
	"kiosk/internal/schema"
	"kiosk/internal/testsupport"
)

func nextEvent(t *testing.T, sub *changebus.Subscriber) (changebus.ConfigChanged, bool) {
	t.Helper()
	select {
	case evt := <-sub.Events():
		payload, ok := evt.Data.(changebus.ConfigChanged)
		if !ok {
			t.Fatalf("unexpected event payload %T", evt.Data)
		}
		return payload, true
	default:
		return changebus.ConfigChanged{}, false
	}
}

func getPath(t *testing.T, doc document.Document, path string) any {
	t.Helper()
	value, ok := doc.Get(path)
	if !ok {
		t.Fatalf("path %s missing from document", path)
	}
	return value
}

func TestOpenCreatesDefaultDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)

	snap := fx.Store.Get(context.Background())
	want := schema.NewMigrator(nil).Defaults()
	if !document.Equal(map[string]any(snap.Document), map[string]any(want)) {
		t.Fatalf("fresh document differs from defaults:\n got %v\nwant %v", snap.Document, want)
	}
	sum, _ := want.Checksum()
	if snap.Checksum != sum {
		t.Fatalf("checksum = %s, want %s", snap.Checksum, sum)
	}

	info, err := os.Stat(cfg.Paths.DocumentPath)
	if err != nil {
		t.Fatalf("stat document: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("document mode = %o, want 600", perm)
	}
	onDisk := testsupport.ReadJSON(t, cfg.Paths.DocumentPath)
	if onDisk["version"] != float64(schema.Version) {
		t.Fatalf("version on disk = %v", onDisk["version"])
	}
}

func TestPatchMigratesCircleRenderMode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	sub := fx.Bus.Subscribe()
	ctx := context.Background()

	snap, err := fx.Store.Patch(ctx, map[string]any{
		"layers": map[string]any{"flights": map[string]any{"render_mode": "circle"}},
	})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if got := getPath(t, snap.Document, "layers.flights.render_mode"); got != "symbol_custom" {
		t.Fatalf("render_mode = %v, want symbol_custom", got)
	}
	custom, ok := getPath(t, snap.Document, "layers.flights.symbol.custom").(map[string]any)
	if !ok || custom["icon"] != "plane" {
		t.Fatalf("custom symbol not synthesized: %v", custom)
	}

	payload, ok := nextEvent(t, sub)
	if !ok {
		t.Fatal("expected config_changed event")
	}
	if payload.Checksum != snap.Checksum {
		t.Fatalf("event checksum = %s, want %s", payload.Checksum, snap.Checksum)
	}
	if len(payload.ChangedGroups) != 1 || payload.ChangedGroups[0] != "layers" {
		t.Fatalf("changed_groups = %v, want [layers]", payload.ChangedGroups)
	}
}

func TestPatchIsNonDestructive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := fx.Store.Patch(ctx, map[string]any{
		"display": map[string]any{"brightness": 40, "timezone": "Atlantic/Canary"},
		"custom_group": map[string]any{"anything": []any{"kept"}},
	}); err != nil {
		t.Fatalf("first Patch failed: %v", err)
	}
	before := fx.Store.Get(ctx).Document

	snap, err := fx.Store.Patch(ctx, map[string]any{
		"ui_map": map[string]any{"zoom": 9},
	})
	if err != nil {
		t.Fatalf("second Patch failed: %v", err)
	}
	if groups := document.ChangedGroups(before, snap.Document); len(groups) != 1 || groups[0] != "ui_map" {
		t.Fatalf("changed groups = %v, want [ui_map]", groups)
	}
	if got := getPath(t, snap.Document, "display.brightness"); got != 40.0 {
		t.Fatalf("brightness = %v, want 40", got)
	}
	if got := getPath(t, snap.Document, "display.timezone"); got != "Atlantic/Canary" {
		t.Fatalf("timezone = %v", got)
	}
	if got := getPath(t, snap.Document, "ui_map.center.lat"); got != 40.4168 {
		t.Fatalf("sibling field reverted: lat = %v", got)
	}
	if _, ok := snap.Document.Group("custom_group"); !ok {
		t.Fatal("unknown group dropped")
	}
}

func TestWriteThatChangesNothingDoesNotPublish(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	sub := fx.Bus.Subscribe()
	ctx := context.Background()

	before := fx.Store.Checksum()
	snap, err := fx.Store.Patch(ctx, map[string]any{"display": map[string]any{"brightness": 80}})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if snap.Checksum != before {
		t.Fatalf("checksum changed for a no-op write")
	}
	if _, ok := nextEvent(t, sub); ok {
		t.Fatal("no-op write should not publish")
	}
}

func TestReplacePublishesAllGroups(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	sub := fx.Bus.Subscribe()
	ctx := context.Background()

	if _, err := fx.Store.Patch(ctx, map[string]any{"display": map[string]any{"brightness": 10}}); err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	_, _ = nextEvent(t, sub)

	full := schema.NewMigrator(nil).Defaults()
	full.Set("ui_map.zoom", 12.0)
	snap, err := fx.Store.Replace(ctx, full)
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if got := getPath(t, snap.Document, "display.brightness"); got != 80.0 {
		t.Fatalf("Replace should not merge with the stored document, brightness = %v", got)
	}
	payload, ok := nextEvent(t, sub)
	if !ok || len(payload.ChangedGroups) != 1 || payload.ChangedGroups[0] != changebus.AllGroups {
		t.Fatalf("changed_groups = %v, want [all]", payload.ChangedGroups)
	}
}

func TestSecretMaskingAndClearing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	snap, err := fx.Store.Patch(ctx, map[string]any{
		"layers": map[string]any{"ships": map[string]any{
			"enabled":   true,
			"provider":  "aisstream",
			"aisstream": map[string]any{"api_key": "AISKEY9999"},
		}},
	})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if got := getPath(t, snap.Document, "layers.ships.aisstream.has_api_key"); got != true {
		t.Fatalf("has_api_key = %v", got)
	}
	if got := getPath(t, snap.Document, "layers.ships.aisstream.api_key_last4"); got != "9999" {
		t.Fatalf("api_key_last4 = %v", got)
	}
	encoded, _ := json.Marshal(snap.Document)
	if strings.Contains(string(encoded), "AISKEY9999") {
		t.Fatalf("plaintext secret in document: %s", encoded)
	}
	onDisk, _ := os.ReadFile(cfg.Paths.DocumentPath)
	if strings.Contains(string(onDisk), "AISKEY9999") {
		t.Fatal("plaintext secret persisted to document file")
	}
	if value, ok, _ := fx.Secrets.Get(ctx, "aisstream_api_key"); !ok || value != "AISKEY9999" {
		t.Fatalf("secret store value = %q, %v", value, ok)
	}

	// Omission keeps the secret.
	if _, err := fx.Store.Patch(ctx, map[string]any{
		"layers": map[string]any{"ships": map[string]any{"radius_km": 50}},
	}); err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if desc, _ := fx.Secrets.Describe(ctx, "aisstream_api_key"); !desc.HasValue {
		t.Fatal("omitted secret field must not clear the secret")
	}

	// Clearing while the feature still needs it is rejected.
	_, err = fx.Store.Patch(ctx, map[string]any{
		"layers": map[string]any{"ships": map[string]any{"aisstream": map[string]any{"api_key": nil}}},
	})
	if !errors.Is(err, configstore.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if desc, _ := fx.Secrets.Describe(ctx, "aisstream_api_key"); !desc.HasValue {
		t.Fatal("rejected write must not clear the secret")
	}

	snap, err = fx.Store.Patch(ctx, map[string]any{
		"layers": map[string]any{"ships": map[string]any{
			"enabled":   false,
			"aisstream": map[string]any{"api_key": ""},
		}},
	})
	if err != nil {
		t.Fatalf("clearing Patch failed: %v", err)
	}
	if desc, _ := fx.Secrets.Describe(ctx, "aisstream_api_key"); desc.HasValue {
		t.Fatal("empty value should clear the secret")
	}
	if got := getPath(t, snap.Document, "layers.ships.aisstream.has_api_key"); got != false {
		t.Fatalf("has_api_key after clear = %v", got)
	}
	if got := getPath(t, snap.Document, "layers.ships.aisstream.api_key_last4"); got != nil {
		t.Fatalf("api_key_last4 after clear = %v", got)
	}
}

func TestSecretInsideArrayElementIsMasked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	snap, err := fx.Store.Patch(ctx, map[string]any{
		"panels": map[string]any{"news": map[string]any{
			"feeds": []any{map[string]any{"url": "https://x", "api_key": "FEEDKEY1234"}},
		}},
	})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	encoded, _ := json.Marshal(snap.Document)
	if strings.Contains(string(encoded), "FEEDKEY1234") {
		t.Fatalf("plaintext secret in document: %s", encoded)
	}
	served, _ := json.Marshal(fx.Store.Get(ctx).Document)
	if strings.Contains(string(served), "FEEDKEY1234") {
		t.Fatalf("plaintext secret served: %s", served)
	}
	onDisk, _ := os.ReadFile(cfg.Paths.DocumentPath)
	if strings.Contains(string(onDisk), "FEEDKEY1234") {
		t.Fatal("plaintext secret persisted to document file")
	}
	if value, ok, _ := fx.Secrets.Get(ctx, "panels_news_feeds_0_api_key"); !ok || value != "FEEDKEY1234" {
		t.Fatalf("secret store value = %q, %v", value, ok)
	}
	if got := getPath(t, snap.Document, "panels.news.feeds.0.has_api_key"); got != true {
		t.Fatalf("has_api_key = %v", got)
	}
	if got := getPath(t, snap.Document, "panels.news.feeds.0.api_key_last4"); got != "1234" {
		t.Fatalf("api_key_last4 = %v", got)
	}

	// Echoing the served array back keeps the secret and changes nothing.
	sub := fx.Bus.Subscribe()
	defer fx.Bus.Unsubscribe(sub)
	feeds := getPath(t, snap.Document, "panels.news.feeds")
	again, err := fx.Store.Patch(ctx, map[string]any{
		"panels": map[string]any{"news": map[string]any{"feeds": feeds}},
	})
	if err != nil {
		t.Fatalf("echo Patch failed: %v", err)
	}
	if again.Checksum != snap.Checksum {
		t.Fatalf("checksum changed on echo: %s != %s", again.Checksum, snap.Checksum)
	}
	if _, published := nextEvent(t, sub); published {
		t.Fatal("echoing the stored array should not publish")
	}
	if got := getPath(t, again.Document, "panels.news.feeds.0.has_api_key"); got != true {
		t.Fatalf("has_api_key after echo = %v", got)
	}
}

func TestMissingCredentialsRejectsWrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	before := fx.Store.Get(ctx)
	diskBefore, _ := os.ReadFile(cfg.Paths.DocumentPath)

	_, err := fx.Store.Patch(ctx, map[string]any{
		"calendar": map[string]any{"enabled": true, "provider": "google"},
	})
	var writeErr *configstore.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected *WriteError, got %v", err)
	}
	if writeErr.ErrorKind() != "missing_credentials" {
		t.Fatalf("kind = %s", writeErr.ErrorKind())
	}
	want := []string{"calendar.api_key", "calendar.calendar_id"}
	if strings.Join(writeErr.Missing, ",") != strings.Join(want, ",") {
		t.Fatalf("missing = %v, want %v", writeErr.Missing, want)
	}

	after := fx.Store.Get(ctx)
	if after.Checksum != before.Checksum {
		t.Fatal("rejected write changed the cached document")
	}
	diskAfter, _ := os.ReadFile(cfg.Paths.DocumentPath)
	if string(diskAfter) != string(diskBefore) {
		t.Fatal("rejected write changed the document file")
	}
}

func TestCredentialsSuppliedInSameWrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	_, err := fx.Store.Patch(ctx, map[string]any{
		"calendar": map[string]any{
			"enabled":     true,
			"provider":    "google",
			"calendar_id": "family@group.calendar.google.com",
			"api_key":     "gcal-key-0001",
		},
	})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if desc, _ := fx.Secrets.Describe(ctx, "google_calendar_api_key"); !desc.HasValue || *desc.Last4 != "0001" {
		t.Fatalf("unexpected description %+v", desc)
	}
}

func TestICSPathMustBeReadable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	missing := filepath.Join(testsupport.BaseDir(cfg), "missing.ics")
	_, err := fx.Store.Patch(ctx, map[string]any{
		"calendar": map[string]any{"enabled": true, "provider": "ics", "ics_path": missing},
	})
	if !errors.Is(err, configstore.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}

	icsPath := filepath.Join(testsupport.BaseDir(cfg), "family.ics")
	testsupport.WriteFile(t, icsPath, "BEGIN:VCALENDAR\nEND:VCALENDAR\n")
	if _, err := fx.Store.Patch(ctx, map[string]any{
		"calendar": map[string]any{"enabled": true, "provider": "ics", "ics_path": icsPath},
	}); err != nil {
		t.Fatalf("Patch with readable ics_path failed: %v", err)
	}

	_, err = fx.Store.Patch(ctx, map[string]any{
		"calendar": map[string]any{"ics_path": ""},
	})
	var writeErr *configstore.WriteError
	if !errors.As(err, &writeErr) || writeErr.Kind != configstore.ErrMissingCredentials {
		t.Fatalf("expected missing credentials, got %v", err)
	}
	if strings.Join(writeErr.Missing, ",") != "calendar.ics_path,calendar.ics_url" {
		t.Fatalf("missing = %v", writeErr.Missing)
	}
}

func TestMalformedPayloads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	cases := []struct {
		name    string
		payload map[string]any
		missing []string
	}{
		{"non-object group", map[string]any{"display": "bright"}, []string{"display"}},
		{"numeric secret", map[string]any{"aemet": map[string]any{"api_key": 1234}}, []string{"aemet.api_key"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.Store.Patch(ctx, tc.payload)
			var writeErr *configstore.WriteError
			if !errors.As(err, &writeErr) || !errors.Is(err, configstore.ErrMalformedInput) {
				t.Fatalf("expected malformed input, got %v", err)
			}
			if strings.Join(writeErr.Missing, ",") != strings.Join(tc.missing, ",") {
				t.Fatalf("missing = %v, want %v", writeErr.Missing, tc.missing)
			}
		})
	}

	if _, err := fx.Store.PatchGroup(ctx, "version", map[string]any{}); !errors.Is(err, configstore.ErrMalformedInput) {
		t.Fatalf("patching version should be malformed, got %v", err)
	}
	if _, err := fx.Store.Replace(ctx, nil); !errors.Is(err, configstore.ErrMalformedInput) {
		t.Fatalf("nil replace should be malformed, got %v", err)
	}
}

func TestUnsupportedValuesAreCoercedNotRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	snap, err := fx.Store.PatchGroup(ctx, "layers", map[string]any{
		"flights": map[string]any{"render_mode": "sparkles", "radius_km": 99999},
	})
	if err != nil {
		t.Fatalf("PatchGroup failed: %v", err)
	}
	if got := getPath(t, snap.Document, "layers.flights.render_mode"); got != "auto" {
		t.Fatalf("render_mode = %v, want auto", got)
	}
	if got := getPath(t, snap.Document, "layers.flights.radius_km"); got != 2000.0 {
		t.Fatalf("radius_km = %v, want 2000", got)
	}
}

func TestStorageFailureKeepsPriorDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	before := fx.Store.Get(ctx)

	if err := os.RemoveAll(filepath.Dir(cfg.Paths.DocumentPath)); err != nil {
		t.Fatalf("remove state dir: %v", err)
	}
	_, err := fx.Store.Patch(ctx, map[string]any{"display": map[string]any{"brightness": 5}})
	if !errors.Is(err, configstore.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if fx.Store.Checksum() != before.Checksum {
		t.Fatal("failed write changed the cached document")
	}
}

func TestOpenMovesLegacyPlaintextSecrets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteJSON(t, cfg.Paths.DocumentPath, map[string]any{
		"version": 2,
		"aemet":   map[string]any{"enabled": false, "api_key": "legacy-5678"},
		"ui_map":  map[string]any{"style": "https://tiles.example/style.json"},
	})

	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if value, ok, _ := fx.Secrets.Get(ctx, "aemet_api_key"); !ok || value != "legacy-5678" {
		t.Fatalf("legacy secret not moved: %q, %v", value, ok)
	}
	raw, _ := os.ReadFile(cfg.Paths.DocumentPath)
	if strings.Contains(string(raw), "legacy-5678") {
		t.Fatal("document still carries the plaintext secret")
	}
	snap := fx.Store.Get(ctx)
	if got := getPath(t, snap.Document, "aemet.api_key_last4"); got != "5678" {
		t.Fatalf("api_key_last4 = %v", got)
	}
	if got := getPath(t, snap.Document, "ui_map.style_url"); got != "https://tiles.example/style.json" {
		t.Fatalf("legacy style key not migrated: %v", got)
	}
	if _, ok := snap.Document.Get("ui_map.style"); ok {
		t.Fatal("legacy key should be removed")
	}
}

func TestOpenMovesLegacySecretsInsideArrays(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteJSON(t, cfg.Paths.DocumentPath, map[string]any{
		"version": 3,
		"panels": map[string]any{"news": map[string]any{
			"enabled": true,
			"feeds": []any{
				map[string]any{"url": "https://a"},
				map[string]any{"url": "https://b", "api_key": "FEEDKEY1234"},
			},
		}},
	})

	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if value, ok, _ := fx.Secrets.Get(ctx, "panels_news_feeds_1_api_key"); !ok || value != "FEEDKEY1234" {
		t.Fatalf("legacy secret not moved: %q, %v", value, ok)
	}
	raw, _ := os.ReadFile(cfg.Paths.DocumentPath)
	if strings.Contains(string(raw), "FEEDKEY1234") {
		t.Fatal("document still carries the plaintext secret")
	}
	snap := fx.Store.Get(ctx)
	if got := getPath(t, snap.Document, "panels.news.feeds.1.api_key_last4"); got != "1234" {
		t.Fatalf("api_key_last4 = %v", got)
	}
	if _, ok := snap.Document.Get("panels.news.feeds.0.has_api_key"); ok {
		t.Fatal("feed without a secret should not gain a projection")
	}
}

func TestOpenQuarantinesCorruptDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, cfg.Paths.DocumentPath, "{not json")

	fx := testsupport.MustOpenStore(t, cfg)
	snap := fx.Store.Get(context.Background())
	if snap.Document.Version() != schema.Version {
		t.Fatalf("version = %d", snap.Document.Version())
	}
	matches, _ := filepath.Glob(cfg.Paths.DocumentPath + ".corrupt-*")
	if len(matches) != 1 {
		t.Fatalf("expected one quarantined file, got %v", matches)
	}
}

func TestReloadPublishesExternalEdits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	sub := fx.Bus.Subscribe()
	ctx := context.Background()

	changed, err := fx.Store.Reload(ctx)
	if err != nil || changed {
		t.Fatalf("Reload of untouched file = %v, %v", changed, err)
	}

	onDisk := testsupport.ReadJSON(t, cfg.Paths.DocumentPath)
	onDisk["display"].(map[string]any)["brightness"] = 33
	testsupport.WriteJSON(t, cfg.Paths.DocumentPath, onDisk)

	changed, err = fx.Store.Reload(ctx)
	if err != nil || !changed {
		t.Fatalf("Reload after edit = %v, %v", changed, err)
	}
	payload, ok := nextEvent(t, sub)
	if !ok || len(payload.ChangedGroups) != 1 || payload.ChangedGroups[0] != "display" {
		t.Fatalf("changed_groups = %v", payload.ChangedGroups)
	}

	testsupport.WriteFile(t, cfg.Paths.DocumentPath, "{broken")
	if _, err := fx.Store.Reload(ctx); !errors.Is(err, configstore.ErrMalformedInput) {
		t.Fatalf("expected malformed reload error, got %v", err)
	}
	if got := getPath(t, fx.Store.Get(ctx).Document, "display.brightness"); got != 33.0 {
		t.Fatalf("cache should keep last good document, brightness = %v", got)
	}
}

func TestSetAndClearSecret(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	sub := fx.Bus.Subscribe()
	ctx := context.Background()

	snap, err := fx.Store.SetSecret(ctx, "aemet_api_key", "aemet-token-4321")
	if err != nil {
		t.Fatalf("SetSecret failed: %v", err)
	}
	if got := getPath(t, snap.Document, "aemet.api_key_last4"); got != "4321" {
		t.Fatalf("api_key_last4 = %v", got)
	}
	payload, ok := nextEvent(t, sub)
	if !ok || len(payload.ChangedGroups) != 1 || payload.ChangedGroups[0] != "aemet" {
		t.Fatalf("changed_groups = %v", payload.ChangedGroups)
	}

	if _, err := fx.Store.Patch(ctx, map[string]any{
		"aemet": map[string]any{"enabled": true, "municipality_code": "28079"},
	}); err != nil {
		t.Fatalf("enable aemet: %v", err)
	}
	if _, err := fx.Store.ClearSecret(ctx, "aemet_api_key"); !errors.Is(err, configstore.ErrMissingCredentials) {
		t.Fatalf("clearing a required secret should fail, got %v", err)
	}
	if _, err := fx.Store.ClearSecret(ctx, "bad name"); !errors.Is(err, configstore.ErrMalformedInput) {
		t.Fatalf("invalid name should be malformed, got %v", err)
	}

	list, err := fx.Store.Secrets(ctx)
	if err != nil {
		t.Fatalf("Secrets failed: %v", err)
	}
	if len(list) != len(schema.SecretFields()) {
		t.Fatalf("listed %d secrets, want %d", len(list), len(schema.SecretFields()))
	}
	for _, status := range list {
		if status.Name == "aemet_api_key" && (!status.HasValue || status.Path != "aemet.api_key") {
			t.Fatalf("unexpected status %+v", status)
		}
	}
}

func TestUnregisteredSecretFieldGetsProjection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	snap, err := fx.Store.Patch(ctx, map[string]any{
		"panels": map[string]any{"news": map[string]any{"token": "news-token-7777"}},
	})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if got := getPath(t, snap.Document, "panels.news.has_token"); got != true {
		t.Fatalf("has_token = %v", got)
	}
	if value, ok, _ := fx.Secrets.Get(ctx, "panels_news_token"); !ok || value != "news-token-7777" {
		t.Fatalf("secret = %q, %v", value, ok)
	}
}

func TestConcurrentPatchesAreSerialized(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	fields := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, field := range fields {
		wg.Add(1)
		go func(field string) {
			defer wg.Done()
			if _, err := fx.Store.Patch(ctx, map[string]any{
				"extras": map[string]any{field: true},
			}); err != nil {
				t.Errorf("Patch %s failed: %v", field, err)
			}
		}(field)
	}
	wg.Wait()

	extras, ok := fx.Store.Group(ctx, "extras")
	if !ok {
		t.Fatal("extras group missing")
	}
	for _, field := range fields {
		if extras[field] != true {
			t.Fatalf("lost update for %s: %v", field, extras)
		}
	}
}
