package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"kiosk/internal/changebus"
	"kiosk/internal/config"
	"kiosk/internal/configstore"
	"kiosk/internal/daemon"
	"kiosk/internal/logging"
	"kiosk/internal/metrics"
	"kiosk/internal/preflight"
	"kiosk/internal/schema"
	"kiosk/internal/secrets"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the kiosk daemon and blocks until a signal arrives or a worker
// fails.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
		FilePath:    cfg.LogPath(),
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logPreflight(signalCtx, logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	secretStore, err := secrets.OpenSQLite(cfg.Paths.SecretsPath)
	if err != nil {
		logger.Error("open secret store", logging.Error(err))
		return err
	}

	collector := metrics.NewCollector()
	bus := changebus.New(
		changebus.WithQueueSize(cfg.Events.QueueSize),
		changebus.WithLogger(logger),
		changebus.WithMetrics(collector),
	)
	store, err := configstore.Open(signalCtx, configstore.Options{
		Path:     cfg.Paths.DocumentPath,
		Secrets:  secretStore,
		Migrator: schema.NewMigrator(logger),
		Bus:      bus,
		Metrics:  collector,
		Logger:   logger,
	})
	if err != nil {
		_ = secretStore.Close()
		logger.Error("open configuration store", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, store, bus, collector, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api.bind and that no other kioskd is running"),
		)
		return err
	}

	if err := d.Wait(); err != nil {
		logging.ErrorWithContext(logger, "daemon worker failed", "daemon_worker_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "see the preceding error for the failing component"),
		)
		return err
	}
	logger.Info("kiosk daemon shutting down")
	return nil
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported path or service before relying on the daemon"),
			logging.String(logging.FieldImpact, "the affected feature may not work"),
		)
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
