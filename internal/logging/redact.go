package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

const redacted = "[redacted]"

// credentialSuffixes match keys whose values are credentials. Secret names
// and projection keys (has_api_key, api_key_last4) are not matched.
var credentialSuffixes = []string{"api_key", "password", "client_secret", "token"}

func isCredentialKey(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "has_") || strings.HasSuffix(key, "_last4") {
		return false
	}
	for _, suffix := range credentialSuffixes {
		if key == suffix || strings.HasSuffix(key, "_"+suffix) || strings.HasSuffix(key, "."+suffix) {
			return true
		}
	}
	return false
}

// redactAttr masks credential values and the password of URLs with user
// info. Every handler built by New applies it.
func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup {
		return attr
	}
	if isCredentialKey(attr.Key) {
		return slog.String(attr.Key, redacted)
	}
	if attr.Value.Kind() == slog.KindString && strings.HasSuffix(attr.Key, "_url") {
		if u, err := url.Parse(attr.Value.String()); err == nil && u.User != nil {
			return slog.String(attr.Key, u.Redacted())
		}
	}
	return attr
}
