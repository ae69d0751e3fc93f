package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains on-disk locations.
type Paths struct {
	StateDir     string `toml:"state_dir"`
	DocumentPath string `toml:"document_path"`
	SecretsPath  string `toml:"secrets_path"`
	LogDir       string `toml:"log_dir"`
}

// API contains HTTP listener settings.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`

	// AllowedOrigins lists host patterns accepted for cross-origin WebSocket
	// clients. Same-origin clients are always accepted.
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Events controls the change stream.
type Events struct {
	QueueSize        int `toml:"queue_size"`
	HeartbeatSeconds int `toml:"heartbeat_seconds"`
}

// Watch controls reloading the document when it is edited on disk.
type Watch struct {
	Enabled    bool `toml:"enabled"`
	DebounceMS int  `toml:"debounce_ms"`
}

// Relay configures the NATS subscription that feeds external events into
// the change stream.
type Relay struct {
	Enabled bool   `toml:"enabled"`
	NATSURL string `toml:"nats_url"`
	Subject string `toml:"subject"`
	Buffer  int    `toml:"buffer"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the kiosk daemon.
//
// Configuration sections:
//   - Paths: state directory, document and secret locations, logs
//   - API: bind address and optional bearer token
//   - Events: subscriber queue size and heartbeat interval
//   - Watch: reload on external document edits
//   - Relay: NATS event relay
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	API     API     `toml:"api"`
	Events  Events  `toml:"events"`
	Watch   Watch   `toml:"watch"`
	Relay   Relay   `toml:"relay"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/kiosk/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("kiosk.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation. The
// state directory holds secrets and is restricted to the owner.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, filepath.Dir(c.Paths.DocumentPath), filepath.Dir(c.Paths.SecretsPath)} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	return nil
}

// HeartbeatInterval returns the SSE heartbeat period.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Events.HeartbeatSeconds) * time.Second
}

// WatchDebounce returns the quiet period before a disk change triggers a reload.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "kioskd.lock")
}

// LogPath returns the daemon log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "kiosk.log")
}

// PIDPath returns the file the running daemon records its process id in.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "kioskd.pid")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
