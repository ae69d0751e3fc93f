package normalize

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"kiosk/internal/document"
)

// Rule rewrites the field stored under key inside parent. Rules never fail;
// unusable input degrades to a documented default and the Outcome says so.
type Rule interface {
	Apply(parent map[string]any, key string) Outcome
}

// Enum restricts a string field to a fixed set of values.
type Enum struct {
	Allowed  []string
	Fallback string
	// Aliases maps legacy values to their successors.
	Aliases map[string]string
}

// Normalize returns the coerced value for raw and how it was obtained.
func (e Enum) Normalize(raw any) (string, Kind) {
	s, ok := raw.(string)
	if !ok {
		return e.Fallback, missingKind(raw)
	}
	folded := fold(s)
	if slices.Contains(e.Allowed, folded) {
		return folded, trimKind(s, folded)
	}
	if successor, ok := e.Aliases[folded]; ok {
		return successor, Migrated
	}
	return e.Fallback, Coerced
}

func (e Enum) Apply(parent map[string]any, key string) Outcome {
	raw := parent[key]
	value, kind := e.Normalize(raw)
	parent[key] = value
	return Outcome{Field: key, Kind: kind, Old: raw, New: value}
}

// URL rewrites blank or deprecated endpoint URLs to the canonical one. Any
// other value passes through trimmed.
type URL struct {
	Canonical  string
	Deprecated []string
}

func (u URL) Normalize(raw any) (string, Kind) {
	s, ok := raw.(string)
	if !ok {
		return u.Canonical, missingKind(raw)
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		if u.Canonical == "" {
			return "", trimKind(s, "")
		}
		return u.Canonical, Defaulted
	}
	for _, old := range u.Deprecated {
		if strings.EqualFold(trimmed, old) {
			return u.Canonical, Migrated
		}
	}
	return trimmed, trimKind(s, trimmed)
}

func (u URL) Apply(parent map[string]any, key string) Outcome {
	raw := parent[key]
	value, kind := u.Normalize(raw)
	parent[key] = value
	return Outcome{Field: key, Kind: kind, Old: raw, New: value}
}

// DisabledProvider is the provider value that switches a feature off.
const DisabledProvider = "disabled"

// Provider normalizes a data-source selector. The value "disabled" turns the
// sibling EnabledKey flag off and resets the provider to Default.
type Provider struct {
	Allowed    []string
	Default    string
	EnabledKey string
}

// Normalize returns the provider and whether the feature must be disabled.
func (p Provider) Normalize(raw any) (string, bool, Kind) {
	s, ok := raw.(string)
	if !ok {
		return p.Default, false, missingKind(raw)
	}
	folded := fold(s)
	switch {
	case folded == DisabledProvider:
		return p.Default, true, Migrated
	case folded == "":
		return p.Default, false, Defaulted
	case slices.Contains(p.Allowed, folded):
		return folded, false, trimKind(s, folded)
	default:
		return p.Default, false, Coerced
	}
}

func (p Provider) Apply(parent map[string]any, key string) Outcome {
	raw := parent[key]
	value, disable, kind := p.Normalize(raw)
	parent[key] = value
	out := Outcome{Field: key, Kind: kind, Old: raw, New: value}
	if disable && p.EnabledKey != "" {
		parent[p.EnabledKey] = false
		out.Note = "provider disabled; " + p.EnabledKey + " set to false"
	}
	return out
}

// IntRange clamps an integer field into [Min, Max]. Numeric strings are
// parsed and fractional numbers rounded. Values are stored as float64 so the
// tree matches what encoding/json produces.
type IntRange struct {
	Min, Max, Default int
}

func (r IntRange) Normalize(raw any) (int, Kind) {
	f, kind, ok := toNumber(raw)
	if !ok {
		return r.Default, kind
	}
	rounded := math.Round(f)
	if rounded != f {
		kind = Coerced
	}
	switch {
	case rounded < float64(r.Min):
		return r.Min, Clamped
	case rounded > float64(r.Max):
		return r.Max, Clamped
	}
	return int(rounded), kind
}

func (r IntRange) Apply(parent map[string]any, key string) Outcome {
	raw := parent[key]
	value, kind := r.Normalize(raw)
	parent[key] = float64(value)
	return Outcome{Field: key, Kind: kind, Old: raw, New: value}
}

// FloatRange clamps a floating point field into [Min, Max].
type FloatRange struct {
	Min, Max, Default float64
}

func (r FloatRange) Normalize(raw any) (float64, Kind) {
	f, kind, ok := toNumber(raw)
	if !ok {
		return r.Default, kind
	}
	switch {
	case f < r.Min:
		return r.Min, Clamped
	case f > r.Max:
		return r.Max, Clamped
	}
	return f, kind
}

func (r FloatRange) Apply(parent map[string]any, key string) Outcome {
	raw := parent[key]
	value, kind := r.Normalize(raw)
	parent[key] = value
	return Outcome{Field: key, Kind: kind, Old: raw, New: value}
}

// Bool accepts booleans and the usual textual spellings of them.
type Bool struct {
	Default bool
}

func (b Bool) Normalize(raw any) (bool, Kind) {
	switch v := raw.(type) {
	case bool:
		return v, Kept
	case string:
		switch fold(v) {
		case "true", "1", "yes", "on":
			return true, Coerced
		case "false", "0", "no", "off":
			return false, Coerced
		}
	case float64:
		if v == 0 || v == 1 {
			return v == 1, Coerced
		}
	}
	return b.Default, missingKind(raw)
}

func (b Bool) Apply(parent map[string]any, key string) Outcome {
	raw := parent[key]
	value, kind := b.Normalize(raw)
	parent[key] = value
	return Outcome{Field: key, Kind: kind, Old: raw, New: value}
}

// Text keeps a free-form string field a string, trimmed.
type Text struct {
	Default string
}

func (t Text) Normalize(raw any) (string, Kind) {
	s, ok := raw.(string)
	if !ok {
		return t.Default, missingKind(raw)
	}
	trimmed := strings.TrimSpace(s)
	return trimmed, trimKind(s, trimmed)
}

func (t Text) Apply(parent map[string]any, key string) Outcome {
	raw := parent[key]
	value, kind := t.Normalize(raw)
	parent[key] = value
	return Outcome{Field: key, Kind: kind, Old: raw, New: value}
}

// MoveKey renames a legacy dotted path to its replacement inside root. When
// both are present the replacement wins and the legacy key is dropped.
func MoveKey(root map[string]any, from, to string) Outcome {
	value, ok := document.GetPath(root, from)
	if !ok {
		return Outcome{Field: from, Kind: Kept}
	}
	if _, exists := document.GetPath(root, to); exists {
		document.DeletePath(root, from)
		return Outcome{Field: from, Kind: KeyMoved, Old: from, New: to, Note: "replacement already set; legacy key dropped"}
	}
	document.DeletePath(root, from)
	document.SetPath(root, to, value)
	return Outcome{Field: from, Kind: KeyMoved, Old: from, New: to}
}

func fold(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

func trimKind(before, after string) Kind {
	if before == after {
		return Kept
	}
	return Trimmed
}

func missingKind(raw any) Kind {
	if raw == nil {
		return Defaulted
	}
	return Coerced
}

func toNumber(raw any) (float64, Kind, bool) {
	var (
		f    float64
		kind = Kept
	)
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, Coerced, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, Coerced, false
		}
		f, kind = parsed, Coerced
	default:
		return 0, missingKind(raw), false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, Coerced, false
	}
	return f, kind, true
}
