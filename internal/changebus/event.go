package changebus

import (
	"slices"
	"time"
)

const (
	// TypeConfigChanged announces a persisted document change.
	TypeConfigChanged = "config_changed"
	// TypeHeartbeat keeps long-lived connections open.
	TypeHeartbeat = "heartbeat"
)

// AllGroups is the changed_groups sentinel used when a write does not
// track which groups changed.
const AllGroups = "all"

// Event is one message delivered to subscribers. TS is unix seconds.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
	TS   int64  `json:"ts"`
}

// ConfigChanged is the payload of a config_changed event.
type ConfigChanged struct {
	Checksum      string   `json:"checksum"`
	ChangedGroups []string `json:"changed_groups"`
}

// Time returns the event timestamp.
func (e Event) Time() time.Time {
	return time.Unix(e.TS, 0).UTC()
}

// IsReserved reports whether eventType is produced only by the bus itself.
func IsReserved(eventType string) bool {
	return eventType == TypeConfigChanged || eventType == TypeHeartbeat
}

func changedGroups(groups []string) []string {
	if len(groups) == 0 {
		return []string{AllGroups}
	}
	out := slices.Clone(groups)
	slices.Sort(out)
	return slices.Compact(out)
}
