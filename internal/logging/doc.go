// Package logging assembles the structured slog loggers used by the kiosk
// configuration daemon and CLI.
//
// It owns the console and JSON handlers, level and output plumbing, the
// standard field keys (component, event_type, request_id, group, ...), and
// helpers that enforce the shape of WARN/ERROR lines. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
