// Package watcher reloads the kiosk document when it changes on disk.
//
// The document's directory is watched rather than the file itself, since
// atomic replacement swaps the inode. Bursts of events are debounced into
// a single Reload; the store's own writes reload to an unchanged checksum
// and publish nothing.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"kiosk/internal/logging"
)

// DefaultDebounce is used when no debounce is configured.
const DefaultDebounce = 250 * time.Millisecond

// Reloader is the store surface the watcher drives.
type Reloader interface {
	Path() string
	Reload(ctx context.Context) (bool, error)
}

// Watcher debounces filesystem events for one document.
type Watcher struct {
	reloader Reloader
	target   string
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// New starts watching the directory that holds the reloader's document.
func New(reloader Reloader, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	target, err := filepath.Abs(reloader.Path())
	if err != nil {
		return nil, fmt.Errorf("resolve document path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	return &Watcher{
		reloader: reloader,
		target:   target,
		debounce: debounce,
		logger:   logging.NewComponentLogger(logger, "watcher"),
		fsw:      fsw,
	}, nil
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	w.logger.Info("watching document", logging.String("path", w.target))

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("fsnotify event channel closed")
			}
			if !w.relevant(evt) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("fsnotify error channel closed")
			}
			logging.WarnWithContext(w.logger, "document watch error", "config_watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "restart the daemon if external edits stop being picked up"),
				logging.String(logging.FieldImpact, "hand edits may not be republished"),
			)
		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if filepath.Clean(evt.Name) != w.target {
		return false
	}
	return evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create) || evt.Has(fsnotify.Rename) || evt.Has(fsnotify.Remove)
}

func (w *Watcher) reload(ctx context.Context) {
	changed, err := w.reloader.Reload(ctx)
	if err != nil {
		w.logger.Debug("reload after disk change failed", logging.Error(err))
		return
	}
	if changed {
		w.logger.Info("document change picked up from disk")
	}
}
