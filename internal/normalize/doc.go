// Package normalize holds the field-level rewrite rules applied while
// migrating a configuration document: enum coercion, endpoint URL
// canonicalization, provider selection, numeric clamping, boolean parsing
// and legacy key moves.
//
// Rules are pure apart from the map they rewrite. Each returns an Outcome so
// callers can tell a kept value from a coerced one without inspecting logs;
// Log turns an Outcome into the matching DEBUG, INFO or WARN line.
package normalize
