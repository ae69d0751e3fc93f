package normalize

import (
	"fmt"
	"log/slog"

	"kiosk/internal/logging"
)

// Kind classifies what a rule did to a value.
type Kind int

const (
	// Kept means the value was already valid.
	Kept Kind = iota
	// Trimmed means only whitespace or letter case changed.
	Trimmed
	// Coerced means an unsupported value was replaced by a fallback.
	Coerced
	// Migrated means a known legacy value was rewritten to its successor.
	Migrated
	// Clamped means a number was pulled into its allowed range.
	Clamped
	// Defaulted means a missing or unusable value was replaced by the default.
	Defaulted
	// KeyMoved means a legacy key was renamed.
	KeyMoved
)

func (k Kind) String() string {
	switch k {
	case Kept:
		return "kept"
	case Trimmed:
		return "trimmed"
	case Coerced:
		return "coerced"
	case Migrated:
		return "migrated"
	case Clamped:
		return "clamped"
	case Defaulted:
		return "defaulted"
	case KeyMoved:
		return "key_moved"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome records the effect of applying one rule to one field.
type Outcome struct {
	Field string
	Kind  Kind
	Old   any
	New   any
	Note  string
}

// Changed reports whether the rule rewrote anything.
func (o Outcome) Changed() bool {
	return o.Kind != Kept
}

// Log writes the outcome at the level that matches its kind. Trims go to
// DEBUG, key moves to INFO, and every value replacement to WARN with the old
// and new values.
func Log(logger *slog.Logger, o Outcome) {
	if logger == nil || !o.Changed() {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldField, o.Field),
		logging.Any(logging.FieldOldValue, o.Old),
		logging.Any(logging.FieldNewValue, o.New),
	}
	if o.Note != "" {
		attrs = append(attrs, logging.String("note", o.Note))
	}
	switch o.Kind {
	case Trimmed:
		logger.Debug("config value tidied", logging.Args(attrs...)...)
	case KeyMoved:
		logger.Info("config key migrated", logging.Args(attrs...)...)
	case Migrated:
		logging.WarnWithContext(logger, "legacy config value migrated", "config_value_migrated",
			append(attrs,
				logging.String(logging.FieldErrorHint, "save the configuration to persist the new value"),
				logging.String(logging.FieldImpact, "legacy value replaced by its successor"),
			)...)
	default:
		logging.WarnWithContext(logger, "config value "+o.Kind.String(), "config_value_"+o.Kind.String(),
			append(attrs,
				logging.String(logging.FieldErrorHint, "check the field against its allowed values"),
				logging.String(logging.FieldImpact, "unsupported value replaced by a safe default"),
			)...)
	}
}
