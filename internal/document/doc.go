// Package document models the kiosk configuration document: a versioned JSON
// object whose top-level keys are named groups.
//
// Values inside a Document are always plain JSON tree types (map[string]any,
// []any, string, float64, bool, nil). Normalize converts arbitrary Go values
// into that shape so equality, merging, and checksums behave the same whether
// a document came from disk, an HTTP body, or a Go struct.
//
// The package also owns the canonical serialization (sorted keys, no HTML
// escaping) whose SHA-256 digest subscribers use to detect stale state.
package document
