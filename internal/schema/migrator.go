package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"kiosk/internal/document"
	"kiosk/internal/logging"
	"kiosk/internal/normalize"
)

// Report summarizes what a migration rewrote.
type Report struct {
	Outcomes []normalize.Outcome
	Degraded bool
}

// Changed reports whether any rule rewrote a value or moved a key.
func (r Report) Changed() bool {
	for _, o := range r.Outcomes {
		if o.Changed() {
			return true
		}
	}
	return false
}

// Migrator upgrades raw documents to the current schema.
type Migrator struct {
	defaults document.Document
	rules    []FieldRule
	moves    []KeyMove
	logger   *slog.Logger
	degraded bool
}

// NewMigrator builds a migrator over the shipped default table.
func NewMigrator(logger *slog.Logger) *Migrator {
	return NewMigratorFromTable(Defaults(), logger)
}

// NewMigratorFromTable builds a migrator over an arbitrary default table. A
// table that cannot be converted into a document leaves the migrator in
// degraded mode: documents pass through with only the version stamped.
func NewMigratorFromTable(table any, logger *slog.Logger) *Migrator {
	logger = logging.NewComponentLogger(logger, "schema")
	m := &Migrator{
		rules:  FieldRules(),
		moves:  KeyMoves(),
		logger: logger,
	}
	defaults, err := document.Normalize(table)
	if err != nil {
		logging.WarnWithContext(logger, "default table unavailable; documents will only be version-stamped", "schema_defaults_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rebuild the daemon; the default table failed to encode"),
			logging.String(logging.FieldImpact, "missing groups are not filled and legacy values are not migrated"),
		)
		m.degraded = true
		defaults = document.Document{}
	}
	defaults[document.VersionKey] = float64(Version)
	m.defaults = defaults
	return m
}

// Degraded reports whether the migrator is running without a default table.
func (m *Migrator) Degraded() bool {
	return m.degraded
}

// Defaults returns a copy of the default document.
func (m *Migrator) Defaults() document.Document {
	return m.defaults.Clone()
}

// Groups lists the group names known to the default table.
func (m *Migrator) Groups() []string {
	return m.defaults.Groups()
}

// Migrate returns raw upgraded to the current schema. It never fails and
// never mutates raw. Migrate(Migrate(x)) equals Migrate(x).
func (m *Migrator) Migrate(raw document.Document) (document.Document, Report) {
	doc, err := document.Normalize(map[string]any(raw))
	if err != nil {
		doc = raw.Clone()
	}
	if doc == nil {
		doc = document.Document{}
	}

	var report Report
	record := func(o normalize.Outcome) {
		if !o.Changed() {
			return
		}
		report.Outcomes = append(report.Outcomes, o)
		normalize.Log(m.logger, o)
	}

	doc[document.VersionKey] = float64(Version)
	if m.degraded {
		report.Degraded = true
		return doc, report
	}

	for _, move := range m.moves {
		record(normalize.MoveKey(doc, move.From, move.To))
	}

	for _, group := range m.defaults.Groups() {
		record(mergeGroup(doc, group, m.defaults[group]))
	}

	for _, rule := range m.rules {
		parentPath, key := document.SplitPath(rule.Path)
		parent, ok := resolveMap(doc, parentPath)
		if !ok {
			continue
		}
		out := rule.Rule.Apply(parent, key)
		out.Field = rule.Path
		record(out)
	}

	for _, symbol := range customSymbols {
		record(synthesizeCustomSymbol(doc, symbol.Layer, symbol.Icon))
	}
	return doc, report
}

func mergeGroup(doc document.Document, group string, defaults any) normalize.Outcome {
	out := normalize.Outcome{Field: group, Kind: normalize.Kept}
	defMap, isMap := defaults.(map[string]any)
	current, present := doc[group]
	if !isMap {
		if !present {
			doc[group] = document.CloneValue(defaults)
		}
		return out
	}
	switch user := current.(type) {
	case map[string]any:
		doc[group] = document.FillDefaults(user, defMap)
		return out
	default:
		doc[group] = document.CloneMap(defMap)
		if !present {
			return out
		}
		out.Kind = normalize.Defaulted
		if user != nil {
			out.Kind = normalize.Coerced
		}
		out.Old = current
		out.New = "defaults"
		out.Note = "group is not an object; defaults restored"
		return out
	}
}

func synthesizeCustomSymbol(doc document.Document, layerPath, icon string) normalize.Outcome {
	field := layerPath + ".symbol.custom"
	out := normalize.Outcome{Field: field, Kind: normalize.Kept}
	layer, ok := resolveMap(doc, layerPath)
	if !ok || layer["render_mode"] != "symbol_custom" {
		return out
	}
	symbol, ok := layer["symbol"].(map[string]any)
	if !ok {
		return out
	}
	defaults := map[string]any{"icon": icon, "scale": 1.0}
	custom, ok := symbol["custom"].(map[string]any)
	if !ok {
		out.Kind = normalize.Defaulted
		out.Old = symbol["custom"]
		out.New = defaults
		symbol["custom"] = defaults
		return out
	}
	symbol["custom"] = document.FillDefaults(custom, defaults)
	return out
}

func resolveMap(doc document.Document, path string) (map[string]any, bool) {
	if path == "" {
		return doc, true
	}
	value, ok := doc.Get(path)
	if !ok {
		return nil, false
	}
	m, ok := value.(map[string]any)
	return m, ok
}

// Decode returns the typed view of a migrated document.
func Decode(doc document.Document) (Settings, error) {
	var settings Settings
	data, err := json.Marshal(map[string]any(doc))
	if err != nil {
		return settings, fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}
