package schema

// Condition matches when the value at Path equals Equals.
type Condition struct {
	Path   string
	Equals any
}

// Requirement lists what an enabled feature needs before a write touching
// Group is accepted. All When conditions must match for it to apply.
type Requirement struct {
	Group string
	When  []Condition
	// Fields must hold non-blank strings.
	Fields []string
	// AnyOf needs at least one non-blank string.
	AnyOf []string
	// Secrets are raw dotted secret paths that must have a stored value.
	Secrets []string
	// Readable paths, when set, must name a readable file.
	Readable []string
}

// Requirements returns the credential and field rules for enabled features.
func Requirements() []Requirement {
	return []Requirement{
		{
			Group:   "calendar",
			When:    []Condition{{"calendar.enabled", true}, {"calendar.provider", "google"}},
			Fields:  []string{"calendar.calendar_id"},
			Secrets: []string{"calendar.api_key"},
		},
		{
			Group:    "calendar",
			When:     []Condition{{"calendar.enabled", true}, {"calendar.provider", "ics"}},
			AnyOf:    []string{"calendar.ics_url", "calendar.ics_path"},
			Readable: []string{"calendar.ics_path"},
		},
		{
			Group:   "layers",
			When:    []Condition{{"layers.ships.enabled", true}, {"layers.ships.provider", "aisstream"}},
			Secrets: []string{"layers.ships.aisstream.api_key"},
		},
		{
			Group:   "layers",
			When:    []Condition{{"layers.ships.enabled", true}, {"layers.ships.provider", "aishub"}},
			Fields:  []string{"layers.ships.aishub.username"},
			Secrets: []string{"layers.ships.aishub.api_key"},
		},
		{
			Group:  "layers",
			When:   []Condition{{"layers.ships.enabled", true}, {"layers.ships.provider", "custom"}},
			Fields: []string{"layers.ships.custom.url"},
		},
		{
			Group:   "opensky",
			When:    []Condition{{"opensky.enabled", true}, {"opensky.oauth2.enabled", true}},
			Fields:  []string{"opensky.oauth2.client_id"},
			Secrets: []string{"opensky.oauth2.client_secret"},
		},
		{
			Group:   "aemet",
			When:    []Condition{{"aemet.enabled", true}},
			Fields:  []string{"aemet.municipality_code"},
			Secrets: []string{"aemet.api_key"},
		},
		{
			Group:   "panels",
			When:    []Condition{{"panels.weather.enabled", true}, {"panels.weather.provider", "aemet"}},
			Secrets: []string{"aemet.api_key"},
		},
	}
}
