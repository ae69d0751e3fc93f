package schema

import "kiosk/internal/normalize"

// FieldRule binds a normalizer rule to a dotted document path.
type FieldRule struct {
	Path string
	Rule normalize.Rule
}

// KeyMove renames a legacy dotted path.
type KeyMove struct {
	From string
	To   string
}

var renderModes = normalize.Enum{
	Allowed:  []string{"auto", "symbol", "symbol_custom", "heatmap"},
	Fallback: "auto",
	Aliases:  map[string]string{"circle": "symbol_custom"},
}

var openSkyTokenURLRule = normalize.URL{
	Canonical: openSkyTokenURL,
	Deprecated: []string{
		"https://opensky-network.org/api/auth/token",
		"http://opensky-network.org/api/auth/token",
	},
}

var aisStreamURLRule = normalize.URL{
	Canonical: aisStreamURL,
	Deprecated: []string{
		"wss://stream.aisstream.io/v0/stream/",
		"ws://stream.aisstream.io/v0/stream",
	},
}

// KeyMoves lists legacy keys in the order they are migrated. Moves run before
// defaults are merged so a replacement key is only ever user-supplied.
func KeyMoves() []KeyMove {
	return []KeyMove{
		{From: "ui_map.style", To: "ui_map.style_url"},
		{From: "layers.flights.max_age", To: "layers.flights.max_age_seconds"},
		{From: "layers.ships.max_age", To: "layers.ships.max_age_seconds"},
		{From: "opensky.token_url", To: "opensky.oauth2.token_url"},
		{From: "calendar.url", To: "calendar.ics_url"},
	}
}

// FieldRules lists every normalized field. Enabled flags precede provider
// rules so a "disabled" provider has the last word.
func FieldRules() []FieldRule {
	rules := []FieldRule{
		{"display.timezone", normalize.Text{Default: "Europe/Madrid"}},
		{"display.brightness", normalize.IntRange{Min: 0, Max: 100, Default: 80}},
		{"display.rotation.enabled", normalize.Bool{Default: true}},
		{"display.rotation.interval_seconds", normalize.IntRange{Min: 5, Max: 3600, Default: 30}},

		{"ui_map.provider", normalize.Enum{Allowed: []string{"maptiler", "osm", "custom"}, Fallback: "osm"}},
		{"ui_map.style_url", normalize.URL{Canonical: defaultStyleURL}},
		{"ui_map.center.lat", normalize.FloatRange{Min: -90, Max: 90, Default: 40.4168}},
		{"ui_map.center.lon", normalize.FloatRange{Min: -180, Max: 180, Default: -3.7038}},
		{"ui_map.zoom", normalize.IntRange{Min: 0, Max: 22, Default: 6}},
		{"ui_map.fixed_view", normalize.Bool{Default: false}},

		{"layers.flights.enabled", normalize.Bool{Default: true}},
		{"layers.flights.render_mode", renderModes},
		{"layers.flights.radius_km", normalize.IntRange{Min: 0, Max: 2000, Default: 250}},
		{"layers.flights.max_age_seconds", normalize.IntRange{Min: 10, Max: 3600, Default: 120}},

		{"layers.ships.enabled", normalize.Bool{Default: false}},
		{"layers.ships.provider", normalize.Provider{
			Allowed:    []string{"aisstream", "aishub", "ais_generic", "custom"},
			Default:    "aisstream",
			EnabledKey: "enabled",
		}},
		{"layers.ships.render_mode", renderModes},
		{"layers.ships.radius_km", normalize.IntRange{Min: 0, Max: 2000, Default: 100}},
		{"layers.ships.max_age_seconds", normalize.IntRange{Min: 10, Max: 3600, Default: 600}},
		{"layers.ships.aisstream.ws_url", aisStreamURLRule},
		{"layers.ships.aishub.username", normalize.Text{}},
		{"layers.ships.custom.url", normalize.URL{}},

		{"layers.lightning.enabled", normalize.Bool{Default: false}},
		{"layers.lightning.mqtt_host", normalize.Text{Default: "mqtt.blitzortung.ws"}},
		{"layers.lightning.mqtt_port", normalize.IntRange{Min: 1, Max: 65535, Default: 1883}},
		{"layers.lightning.radius_km", normalize.IntRange{Min: 0, Max: 2000, Default: 150}},
		{"layers.lightning.time_window_minutes", normalize.IntRange{Min: 1, Max: 360, Default: 30}},

		{"panels.weather.enabled", normalize.Bool{Default: true}},
		{"panels.weather.provider", normalize.Enum{Allowed: []string{"openmeteo", "aemet"}, Fallback: "openmeteo"}},
		{"panels.weather.refresh_minutes", normalize.IntRange{Min: 5, Max: 1440, Default: 30}},
		{"panels.calendar.enabled", normalize.Bool{Default: true}},
		{"panels.calendar.max_events", normalize.IntRange{Min: 1, Max: 50, Default: 5}},
		{"panels.news.enabled", normalize.Bool{Default: false}},

		{"opensky.enabled", normalize.Bool{Default: true}},
		{"opensky.poll_seconds", normalize.IntRange{Min: 5, Max: 3600, Default: 10}},
		{"opensky.oauth2.enabled", normalize.Bool{Default: false}},
		{"opensky.oauth2.client_id", normalize.Text{}},
		{"opensky.oauth2.token_url", openSkyTokenURLRule},

		{"calendar.enabled", normalize.Bool{Default: false}},
		{"calendar.provider", normalize.Provider{
			Allowed:    []string{"google", "ics"},
			Default:    "google",
			EnabledKey: "enabled",
		}},
		{"calendar.calendar_id", normalize.Text{}},
		{"calendar.ics_url", normalize.URL{}},
		{"calendar.ics_path", normalize.Text{}},
		{"calendar.days_ahead", normalize.IntRange{Min: 1, Max: 60, Default: 7}},

		{"aemet.enabled", normalize.Bool{Default: false}},
		{"aemet.municipality_code", normalize.Text{}},
	}
	for _, layer := range []string{"layers.flights", "layers.ships"} {
		rules = append(rules,
			FieldRule{layer + ".symbol.size", normalize.FloatRange{Min: 0.1, Max: 5, Default: 1.0}},
			FieldRule{layer + ".symbol.color", normalize.Text{Default: "#f59e0b"}},
			FieldRule{layer + ".symbol.rotate_with_heading", normalize.Bool{Default: true}},
		)
	}
	return rules
}

// customSymbols names the icon synthesized for each layer that can render
// with a custom symbol.
var customSymbols = []struct {
	Layer string
	Icon  string
}{
	{Layer: "layers.flights", Icon: "plane"},
	{Layer: "layers.ships", Icon: "ship"},
}
