// Package logs reads the daemon log file for `kiosk logs`.
//
// Last returns the final lines of the file with bounded memory, and Follow
// polls for appended lines from an offset, restarting from the top when the
// file is truncated or replaced. Callers cancel the context to stop following.
package logs
