package schema

// Version is the schema version stamped on every migrated document.
const Version = 3

// Settings is the typed shape of the current default document. Each field is
// one top-level group; the JSON form of Defaults() is the default table the
// migrator merges into every document.
type Settings struct {
	Version  int      `json:"version"`
	Display  Display  `json:"display"`
	UIMap    UIMap    `json:"ui_map"`
	Layers   Layers   `json:"layers"`
	Panels   Panels   `json:"panels"`
	OpenSky  OpenSky  `json:"opensky"`
	Calendar Calendar `json:"calendar"`
	AEMET    AEMET    `json:"aemet"`
}

type Display struct {
	Timezone   string   `json:"timezone"`
	Brightness int      `json:"brightness"`
	Rotation   Rotation `json:"rotation"`
}

type Rotation struct {
	Enabled         bool     `json:"enabled"`
	IntervalSeconds int      `json:"interval_seconds"`
	Panels          []string `json:"panels"`
}

type UIMap struct {
	Provider  string    `json:"provider"`
	StyleURL  string    `json:"style_url"`
	Center    MapCenter `json:"center"`
	Zoom      int       `json:"zoom"`
	FixedView bool      `json:"fixed_view"`
}

type MapCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Layers struct {
	Flights   FlightsLayer   `json:"flights"`
	Ships     ShipsLayer     `json:"ships"`
	Lightning LightningLayer `json:"lightning"`
}

type Symbol struct {
	Size              float64 `json:"size"`
	Color             string  `json:"color"`
	RotateWithHeading bool    `json:"rotate_with_heading"`
}

type FlightsLayer struct {
	Enabled       bool   `json:"enabled"`
	RenderMode    string `json:"render_mode"`
	RadiusKM      int    `json:"radius_km"`
	MaxAgeSeconds int    `json:"max_age_seconds"`
	Symbol        Symbol `json:"symbol"`
}

type ShipsLayer struct {
	Enabled       bool       `json:"enabled"`
	Provider      string     `json:"provider"`
	RenderMode    string     `json:"render_mode"`
	RadiusKM      int        `json:"radius_km"`
	MaxAgeSeconds int        `json:"max_age_seconds"`
	Symbol        Symbol     `json:"symbol"`
	AISStream     AISStream  `json:"aisstream"`
	AISHub        AISHub     `json:"aishub"`
	Custom        CustomFeed `json:"custom"`
}

type AISStream struct {
	WSURL string `json:"ws_url"`
	SecretProjection
}

type AISHub struct {
	Username string `json:"username"`
	SecretProjection
}

type CustomFeed struct {
	URL string `json:"url"`
}

type LightningLayer struct {
	Enabled           bool    `json:"enabled"`
	MQTTHost          string  `json:"mqtt_host"`
	MQTTPort          int     `json:"mqtt_port"`
	RadiusKM          int     `json:"radius_km"`
	TimeWindowMinutes int     `json:"time_window_minutes"`
	HasPassword       bool    `json:"has_password"`
	PasswordLast4     *string `json:"password_last4"`
}

type Panels struct {
	Weather  WeatherPanel  `json:"weather"`
	Calendar CalendarPanel `json:"calendar"`
	News     NewsPanel     `json:"news"`
}

type WeatherPanel struct {
	Enabled        bool   `json:"enabled"`
	Provider       string `json:"provider"`
	RefreshMinutes int    `json:"refresh_minutes"`
}

type CalendarPanel struct {
	Enabled   bool `json:"enabled"`
	MaxEvents int  `json:"max_events"`
}

type NewsPanel struct {
	Enabled bool     `json:"enabled"`
	Feeds   []string `json:"feeds"`
}

type OpenSky struct {
	Enabled     bool          `json:"enabled"`
	PollSeconds int           `json:"poll_seconds"`
	OAuth2      OpenSkyOAuth2 `json:"oauth2"`
}

type OpenSkyOAuth2 struct {
	Enabled           bool    `json:"enabled"`
	ClientID          string  `json:"client_id"`
	TokenURL          string  `json:"token_url"`
	HasClientSecret   bool    `json:"has_client_secret"`
	ClientSecretLast4 *string `json:"client_secret_last4"`
}

type Calendar struct {
	Enabled    bool   `json:"enabled"`
	Provider   string `json:"provider"`
	CalendarID string `json:"calendar_id"`
	ICSURL     string `json:"ics_url"`
	ICSPath    string `json:"ics_path"`
	DaysAhead  int    `json:"days_ahead"`
	SecretProjection
}

type AEMET struct {
	Enabled          bool   `json:"enabled"`
	MunicipalityCode string `json:"municipality_code"`
	SecretProjection
}

// SecretProjection is the document-side view of an api_key secret.
type SecretProjection struct {
	HasAPIKey   bool    `json:"has_api_key"`
	APIKeyLast4 *string `json:"api_key_last4"`
}

const (
	defaultStyleURL = "https://api.maptiler.com/maps/streets-v2/style.json"
	aisStreamURL    = "wss://stream.aisstream.io/v0/stream"
	openSkyTokenURL = "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token"
)

func defaultSymbol() Symbol {
	return Symbol{Size: 1.0, Color: "#f59e0b", RotateWithHeading: true}
}

// Defaults returns the current default settings.
func Defaults() Settings {
	return Settings{
		Version: Version,
		Display: Display{
			Timezone:   "Europe/Madrid",
			Brightness: 80,
			Rotation: Rotation{
				Enabled:         true,
				IntervalSeconds: 30,
				Panels:          []string{"clock", "weather", "calendar"},
			},
		},
		UIMap: UIMap{
			Provider: "maptiler",
			StyleURL: defaultStyleURL,
			Center:   MapCenter{Lat: 40.4168, Lon: -3.7038},
			Zoom:     6,
		},
		Layers: Layers{
			Flights: FlightsLayer{
				Enabled:       true,
				RenderMode:    "auto",
				RadiusKM:      250,
				MaxAgeSeconds: 120,
				Symbol:        defaultSymbol(),
			},
			Ships: ShipsLayer{
				Provider:      "aisstream",
				RenderMode:    "auto",
				RadiusKM:      100,
				MaxAgeSeconds: 600,
				Symbol:        defaultSymbol(),
				AISStream:     AISStream{WSURL: aisStreamURL},
			},
			Lightning: LightningLayer{
				MQTTHost:          "mqtt.blitzortung.ws",
				MQTTPort:          1883,
				RadiusKM:          150,
				TimeWindowMinutes: 30,
			},
		},
		Panels: Panels{
			Weather:  WeatherPanel{Enabled: true, Provider: "openmeteo", RefreshMinutes: 30},
			Calendar: CalendarPanel{Enabled: true, MaxEvents: 5},
			News:     NewsPanel{Feeds: []string{}},
		},
		OpenSky: OpenSky{
			Enabled:     true,
			PollSeconds: 10,
			OAuth2:      OpenSkyOAuth2{TokenURL: openSkyTokenURL},
		},
		Calendar: Calendar{Provider: "google", DaysAhead: 7},
	}
}
