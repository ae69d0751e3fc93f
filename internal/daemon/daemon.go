package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"kiosk/internal/changebus"
	"kiosk/internal/changebus/natsrelay"
	"kiosk/internal/config"
	"kiosk/internal/configstore"
	"kiosk/internal/configstore/watcher"
	"kiosk/internal/logging"
	"kiosk/internal/metrics"
)

// Daemon serves the kiosk document over HTTP and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *configstore.Store
	bus     *changebus.Bus
	relay   *changebus.Relay
	metrics *metrics.Collector

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	watching atomic.Bool
	relaying atomic.Bool
	started  time.Time

	api    *apiServer
	cancel context.CancelFunc
	group  *errgroup.Group
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Checksum     string
	Subscribers  int
	DocumentPath string
	LockFilePath string
	Uptime       time.Duration
	Watching     bool
	Relaying     bool
}

// New constructs a daemon around an open store and its bus. collector may
// be nil, in which case /metrics is not served.
func New(cfg *config.Config, store *configstore.Store, bus *changebus.Bus, collector *metrics.Collector, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || bus == nil {
		return nil, errors.New("daemon requires config, store, and bus")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		bus:      bus,
		relay:    changebus.NewRelay(bus, cfg.Relay.Buffer, logger),
		metrics:  collector,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(d, logger)
	return d, nil
}

// Start acquires the daemon lock, binds the API listener and launches the
// background workers. It returns once everything is running.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another kiosk daemon instance is already running")
	}

	if err := d.api.start(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	d.cancel = cancel
	d.group = group

	group.Go(func() error { return d.api.serve(groupCtx) })
	group.Go(func() error { return d.relay.Run(groupCtx) })
	d.startWatcher(groupCtx, group)
	d.startNATSRelay(groupCtx, group)

	d.started = time.Now()
	d.running.Store(true)
	d.logger.Info("kiosk daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.address()),
		logging.String("document", d.store.Path()),
	)
	return nil
}

func (d *Daemon) startWatcher(ctx context.Context, group *errgroup.Group) {
	if !d.cfg.Watch.Enabled {
		return
	}
	w, err := watcher.New(d.store, d.cfg.WatchDebounce(), d.logger)
	if err != nil {
		logging.WarnWithContext(d.logger, "document watcher unavailable", "config_watch_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check inotify limits or disable [watch]"),
			logging.String(logging.FieldImpact, "hand edits to the document are not picked up until restart"),
		)
		return
	}
	d.watching.Store(true)
	group.Go(func() error {
		defer d.watching.Store(false)
		return w.Run(ctx)
	})
}

func (d *Daemon) startNATSRelay(ctx context.Context, group *errgroup.Group) {
	if !d.cfg.Relay.Enabled {
		return
	}
	sub, err := natsrelay.Start(natsrelay.Options{
		URL:     d.cfg.Relay.NATSURL,
		Subject: d.cfg.Relay.Subject,
		Name:    fmt.Sprintf("kioskd-%d", os.Getpid()),
	}, d.relay, d.logger)
	if err != nil {
		logging.WarnWithContext(d.logger, "nats relay unavailable", "relay_unavailable",
			logging.Error(err),
			logging.String("nats_url", d.cfg.Relay.NATSURL),
			logging.String(logging.FieldErrorHint, "check relay.nats_url and that the NATS server is reachable"),
			logging.String(logging.FieldImpact, "external events are not forwarded to kiosk clients"),
		)
		return
	}
	d.relaying.Store(true)
	group.Go(func() error {
		<-ctx.Done()
		d.relaying.Store(false)
		return sub.Close()
	})
}

// Wait blocks until the background workers exit and returns the first
// worker error.
func (d *Daemon) Wait() error {
	if d.group == nil {
		return nil
	}
	return d.group.Wait()
}

// Stop cancels the background workers and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.Wait(); err != nil {
		d.logger.Warn("daemon worker exited with error", logging.Error(err))
	}
	d.group = nil
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("kiosk daemon stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Addr returns the bound API address, or "" before Start.
func (d *Daemon) Addr() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Checksum:     d.store.Checksum(),
		Subscribers:  d.bus.Len(),
		DocumentPath: d.store.Path(),
		LockFilePath: d.lockPath,
		Watching:     d.watching.Load(),
		Relaying:     d.relaying.Load(),
	}
	if status.Running {
		status.Uptime = time.Since(d.started)
	}
	return status
}
