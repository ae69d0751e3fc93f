package schema

import (
	"slices"
	"strings"
)

// SecretField maps a raw document path to the secret name it is stored under.
type SecretField struct {
	Path string
	Name string
}

var secretFields = []SecretField{
	{Path: "aemet.api_key", Name: "aemet_api_key"},
	{Path: "opensky.oauth2.client_secret", Name: "opensky_client_secret"},
	{Path: "layers.ships.aisstream.api_key", Name: "aisstream_api_key"},
	{Path: "layers.ships.aishub.api_key", Name: "aishub_api_key"},
	{Path: "calendar.api_key", Name: "google_calendar_api_key"},
	{Path: "layers.lightning.password", Name: "lightning_mqtt_password"},
}

var secretKeys = []string{"api_key", "client_secret", "password", "token", "secret"}

// SecretFields returns the registered secret fields.
func SecretFields() []SecretField {
	return slices.Clone(secretFields)
}

// SecretResolver classifies secret-shaped keys and names their secrets.
type SecretResolver struct{}

// IsSecretKey reports whether a field with this key holds a credential.
func (SecretResolver) IsSecretKey(key string) bool {
	return slices.Contains(secretKeys, key)
}

// SecretName returns the secret name for a raw dotted path. Unregistered
// paths use the path itself with dots replaced by underscores.
func (SecretResolver) SecretName(path string) string {
	for _, field := range secretFields {
		if field.Path == path {
			return field.Name
		}
	}
	return strings.ReplaceAll(path, ".", "_")
}

// SecretPath returns the raw dotted path for a registered secret name.
func (SecretResolver) SecretPath(name string) (string, bool) {
	for _, field := range secretFields {
		if field.Name == name {
			return field.Path, true
		}
	}
	return "", false
}
