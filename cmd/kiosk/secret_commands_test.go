package main

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestSecretSetListClear(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLIWithInput(t, []string{"secret", "set", "aemet_api_key", "--stdin"}, env.configPath, strings.NewReader("AEMETKEY2345\n"))
	if err != nil {
		t.Fatalf("secret set: %v", err)
	}
	requireContains(t, out, "ending 2345")

	out, _, err = runCLI(t, []string{"secret", "list", "-o", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("secret list: %v", err)
	}
	if strings.Contains(out, "AEMETKEY2345") {
		t.Fatalf("secret value leaked into listing: %s", out)
	}
	var entries []struct {
		Name     string  `json:"name"`
		Path     string  `json:"path"`
		HasValue bool    `json:"has_value"`
		Last4    *string `json:"last4"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode listing: %v\n%s", err, out)
	}
	found := false
	for _, e := range entries {
		if e.Name != "aemet_api_key" {
			continue
		}
		found = true
		if !e.HasValue || e.Last4 == nil || *e.Last4 != "2345" || e.Path != "aemet.api_key" {
			t.Fatalf("unexpected entry: %+v", e)
		}
	}
	if !found {
		t.Fatalf("aemet_api_key missing from listing: %s", out)
	}

	doc, _ := os.ReadFile(env.cfg.Paths.DocumentPath)
	if strings.Contains(string(doc), "AEMETKEY2345") {
		t.Fatal("secret value written to the document")
	}
	requireContains(t, string(doc), `"api_key_last4": "2345"`)

	if _, _, err := runCLI(t, []string{"secret", "clear", "aemet_api_key"}, env.configPath); err != nil {
		t.Fatalf("secret clear: %v", err)
	}
	out, _, err = runCLI(t, []string{"secret", "list", "-o", "table"}, env.configPath)
	if err != nil {
		t.Fatalf("secret list table: %v", err)
	}
	requireContains(t, out, "aemet_api_key")
}

func TestSecretClearRejectedWhileFeatureEnabled(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"secret", "set", "aisstream_api_key", "AIS0000"}, env.configPath); err != nil {
		t.Fatalf("secret set: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "set", "layers.ships.enabled", "true"}, env.configPath); err != nil {
		t.Fatalf("enable ships: %v", err)
	}

	_, _, err := runCLI(t, []string{"secret", "clear", "aisstream_api_key"}, env.configPath)
	if err == nil {
		t.Fatal("expected clear to be rejected while ships are enabled")
	}
	requireContains(t, err.Error(), "layers.ships.aisstream.api_key")
}

func TestSecretSetRequiresValue(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"secret", "set", "aemet_api_key"}, env.configPath); err == nil {
		t.Fatal("expected missing value to fail")
	}
	if _, _, err := runCLI(t, []string{"secret", "set", "aemet_api_key", "x", "--stdin"}, env.configPath); err == nil {
		t.Fatal("expected argument plus --stdin to fail")
	}
}
