// Package config loads, normalizes, and validates the kiosk service
// configuration.
//
// This is the daemon's own TOML file: where the kiosk document and secret
// database live, which address the API binds, how the change stream and
// relay behave, and how logs are written. The kiosk document itself is
// owned by internal/configstore.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
