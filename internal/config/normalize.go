package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeEvents()
	c.normalizeWatch()
	c.normalizeRelay()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DocumentPath) == "" {
		c.Paths.DocumentPath = filepath.Join(c.Paths.StateDir, defaultDocumentName)
	}
	if c.Paths.DocumentPath, err = expandPath(c.Paths.DocumentPath); err != nil {
		return fmt.Errorf("paths.document_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.SecretsPath) == "" {
		c.Paths.SecretsPath = filepath.Join(c.Paths.StateDir, defaultSecretsName)
	}
	if c.Paths.SecretsPath, err = expandPath(c.Paths.SecretsPath); err != nil {
		return fmt.Errorf("paths.secrets_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("KIOSK_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	origins := c.API.AllowedOrigins[:0]
	for _, origin := range c.API.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.AllowedOrigins = origins
}

func (c *Config) normalizeEvents() {
	if c.Events.QueueSize == 0 {
		c.Events.QueueSize = defaultQueueSize
	}
	if c.Events.HeartbeatSeconds == 0 {
		c.Events.HeartbeatSeconds = defaultHeartbeatSeconds
	}
}

func (c *Config) normalizeWatch() {
	if c.Watch.DebounceMS == 0 {
		c.Watch.DebounceMS = defaultWatchDebounceMS
	}
}

func (c *Config) normalizeRelay() {
	c.Relay.NATSURL = strings.TrimSpace(c.Relay.NATSURL)
	if c.Relay.NATSURL == "" {
		if value, ok := os.LookupEnv("KIOSK_NATS_URL"); ok {
			c.Relay.NATSURL = strings.TrimSpace(value)
		}
	}
	c.Relay.Subject = strings.TrimSpace(c.Relay.Subject)
	if c.Relay.Subject == "" {
		c.Relay.Subject = defaultRelaySubject
	}
	if c.Relay.Buffer == 0 {
		c.Relay.Buffer = defaultRelayBuffer
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
