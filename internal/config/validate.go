package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateRelay(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DocumentPath != "" && c.Paths.DocumentPath == c.Paths.SecretsPath {
		return errors.New("paths.document_path and paths.secrets_path must differ")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.QueueSize < 1 || c.Events.QueueSize > maxQueueSize {
		return fmt.Errorf("events.queue_size must be between 1 and %d", maxQueueSize)
	}
	if c.Events.HeartbeatSeconds <= 0 {
		return errors.New("events.heartbeat_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.DebounceMS < 0 {
		return errors.New("watch.debounce_ms must not be negative")
	}
	return nil
}

func (c *Config) validateRelay() error {
	if !c.Relay.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Relay.NATSURL) == "" {
		return errors.New("relay.nats_url must be set when relay.enabled is true (or set KIOSK_NATS_URL)")
	}
	if c.Relay.Buffer <= 0 {
		return errors.New("relay.buffer must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}
