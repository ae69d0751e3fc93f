// Package api defines the JSON payloads exchanged with the kiosk daemon's
// HTTP surface and a small client used by the CLI.
//
// Keep these types transport-focused: the daemon converts configstore
// snapshots into them and the CLI decodes them without importing daemon
// internals.
package api
