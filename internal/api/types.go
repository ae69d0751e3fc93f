package api

import "encoding/json"

// ConfigResponse carries the full document with its checksum.
type ConfigResponse struct {
	Document map[string]any `json:"document"`
	Checksum string         `json:"checksum"`
}

// GroupResponse carries one top-level group.
type GroupResponse struct {
	Group    string         `json:"group"`
	Value    map[string]any `json:"value"`
	Checksum string         `json:"checksum"`
}

// ChecksumResponse reports the current document checksum.
type ChecksumResponse struct {
	Checksum string `json:"checksum"`
}

// ErrorResponse is the body of every non-2xx reply. Missing lists the
// offending field paths for validation failures.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// SecretEntry describes a stored secret without revealing it.
type SecretEntry struct {
	Name     string  `json:"name"`
	Path     string  `json:"path,omitempty"`
	HasValue bool    `json:"has_value"`
	Last4    *string `json:"last4"`
}

// SecretListResponse wraps the secret listing.
type SecretListResponse struct {
	Secrets []SecretEntry `json:"secrets"`
}

// SecretWriteRequest sets a secret. A blank value clears it.
type SecretWriteRequest struct {
	Value string `json:"value"`
}

// SecretWriteResponse acknowledges a secret write. The value is never echoed.
type SecretWriteResponse struct {
	Secret   SecretEntry `json:"secret"`
	Checksum string      `json:"checksum"`
}

// HealthResponse summarizes daemon state.
type HealthResponse struct {
	Status        string `json:"status"`
	PID           int    `json:"pid"`
	Checksum      string `json:"checksum"`
	Subscribers   int    `json:"subscribers"`
	DocumentPath  string `json:"documentPath"`
	LockFilePath  string `json:"lockFilePath"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	Watching      bool   `json:"watching"`
	Relaying      bool   `json:"relaying"`
}

// StreamEvent is one change-stream frame as sent over SSE or WebSocket.
type StreamEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	TS   int64           `json:"ts"`
}

// DecodeData unmarshals the frame payload into v.
func (e StreamEvent) DecodeData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// ConfigChangedData is the payload of a config_changed frame.
type ConfigChangedData struct {
	Checksum      string   `json:"checksum"`
	ChangedGroups []string `json:"changed_groups"`
}
