// Package preflight provides readiness checks for the filesystem paths and
// services the kiosk daemon depends on.
//
// These checks run in two contexts:
//   - daemonrun calls RunAll before starting and logs every failure.
//   - The CLI "kiosk status" command prints the results next to daemon health.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
