package testsupport

import (
	"path/filepath"
	"testing"

	"kiosk/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.DocumentPath = filepath.Join(base, "state", "config.json")
	cfgVal.Paths.SecretsPath = filepath.Join(base, "state", "secrets.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Watch.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIToken sets the bearer token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// WithQueueSize overrides the per-subscriber queue size.
func WithQueueSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Events.QueueSize = size
	}
}

// WithWatch enables the document watcher.
func WithWatch(debounceMS int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.Enabled = true
		b.cfg.Watch.DebounceMS = debounceMS
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WithHeartbeat overrides the change-stream heartbeat interval.
func WithHeartbeat(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Events.HeartbeatSeconds = seconds
	}
}
