// Package daemon coordinates the long-running kiosk process.
//
// It wires the configuration store, the change bus, the event relay and the
// document watcher into a single lifecycle with flock-based locking to
// prevent multiple instances. The HTTP surface lives here too: document and
// group reads and writes, secret management that never echoes values, the
// change stream over SSE and WebSocket, health, and Prometheus metrics.
//
// Keep orchestration logic here: merge, validation and persistence rules
// belong to configstore while the daemon focuses on startup, shutdown and
// transport.
package daemon
