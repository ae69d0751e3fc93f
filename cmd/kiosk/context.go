package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"kiosk/internal/api"
	"kiosk/internal/config"
	"kiosk/internal/configstore"
	"kiosk/internal/logging"
	"kiosk/internal/schema"
	"kiosk/internal/secrets"
)

type commandContext struct {
	configFlag *string
	bindFlag   *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, bindFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		bindFlag:   bindFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// withStore opens the document store the daemon uses, without a change bus.
// A running daemon notices the write through its watcher.
func (c *commandContext) withStore(ctx context.Context, fn func(*configstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	secretStore, err := secrets.OpenSQLite(cfg.Paths.SecretsPath)
	if err != nil {
		return fmt.Errorf("open secret store: %w", err)
	}
	logger := logging.NewNop()
	store, err := configstore.Open(ctx, configstore.Options{
		Path:     cfg.Paths.DocumentPath,
		Secrets:  secretStore,
		Migrator: schema.NewMigrator(logger),
		Logger:   logger,
	})
	if err != nil {
		_ = secretStore.Close()
		return fmt.Errorf("open configuration store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) client() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	bind := cfg.API.Bind
	if c.bindFlag != nil && strings.TrimSpace(*c.bindFlag) != "" {
		bind = strings.TrimSpace(*c.bindFlag)
	}
	return api.NewClient(bind, cfg.API.Token)
}

func wrapDialError(err error, bind string) error {
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr):
		return err
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: %s refused the connection; start it with `kiosk serve`", bind)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
