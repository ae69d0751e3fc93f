package config

const (
	defaultStateDir         = "~/.local/share/kiosk"
	defaultDocumentName     = "config.json"
	defaultSecretsName      = "secrets.db"
	defaultLogDir           = "~/.local/share/kiosk/logs"
	defaultAPIBind          = "127.0.0.1:8088"
	defaultQueueSize        = 64
	maxQueueSize            = 4096
	defaultHeartbeatSeconds = 15
	defaultWatchDebounceMS  = 250
	defaultRelaySubject     = "kiosk.events"
	defaultRelayBuffer      = 256
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Events: Events{
			QueueSize:        defaultQueueSize,
			HeartbeatSeconds: defaultHeartbeatSeconds,
		},
		Watch: Watch{
			Enabled:    true,
			DebounceMS: defaultWatchDebounceMS,
		},
		Relay: Relay{
			Subject: defaultRelaySubject,
			Buffer:  defaultRelayBuffer,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
