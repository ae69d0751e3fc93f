// Package main hosts the kiosk CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon in the foreground, edits the
// kiosk document and its secrets through the same store the daemon uses,
// and reports daemon health over the HTTP API. Document edits made here are
// picked up by a running daemon through its file watcher.
//
// Keep this package lean: behavior belongs in the internal packages and is
// surfaced here through dedicated commands or flags.
package main
