package configstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"kiosk/internal/changebus"
	"kiosk/internal/document"
	"kiosk/internal/fileutil"
	"kiosk/internal/logging"
	"kiosk/internal/schema"
	"kiosk/internal/secrets"
)

const (
	documentPerm   = 0o600
	lockRetryDelay = 25 * time.Millisecond
)

// Metrics records write outcomes.
type Metrics interface {
	ConfigWrite(result string)
}

// Options configures a Store. Path and Secrets are required.
type Options struct {
	Path     string
	Secrets  secrets.Store
	Migrator *schema.Migrator
	Bus      *changebus.Bus
	Metrics  Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

// Snapshot is a consistent view of the stored document.
type Snapshot struct {
	Document document.Document `json:"document"`
	Checksum string            `json:"checksum"`
}

// Store serializes access to the kiosk document.
type Store struct {
	path     string
	secrets  secrets.Store
	migrator *schema.Migrator
	bus      *changebus.Bus
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time

	resolver  schema.SecretResolver
	fileLock  *flock.Flock
	writeFile func(path string, data []byte, perm os.FileMode) error

	writeMu sync.Mutex

	mu       sync.RWMutex
	current  document.Document
	checksum string
}

// Open loads the document at opts.Path, creating it from defaults when
// absent. An unparseable file is moved aside and replaced by defaults.
// Plaintext secrets found in the file are moved into the secret store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("configstore: document path is required")
	}
	if opts.Secrets == nil {
		return nil, errors.New("configstore: secret store is required")
	}
	logger := logging.NewComponentLogger(opts.Logger, "configstore")
	migrator := opts.Migrator
	if migrator == nil {
		migrator = schema.NewMigrator(opts.Logger)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure document directory: %w", err)
	}

	s := &Store{
		path:     opts.Path,
		secrets:  opts.Secrets,
		migrator: migrator,
		bus:      opts.Bus,
		metrics:  opts.Metrics,
		logger:   logger,
		now:      now,
		fileLock: flock.New(opts.Path + ".lock"),

		writeFile: fileutil.WriteFileAtomic,
	}

	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	raw, exists, err := s.readDisk()
	if err != nil {
		var writeErr *WriteError
		if !errors.As(err, &writeErr) || writeErr.Kind != ErrMalformedInput {
			return nil, err
		}
		target, qerr := fileutil.Quarantine(s.path, s.now())
		if qerr != nil {
			return nil, fmt.Errorf("quarantine unreadable document: %w", qerr)
		}
		logging.WarnWithContext(s.logger, "unreadable document moved aside; starting from defaults", "config_document_quarantined",
			logging.String("path", s.path),
			logging.String("quarantine_path", target),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the quarantined file and re-apply the settings you need"),
			logging.String(logging.FieldImpact, "kiosk runs with default settings"),
		)
		raw, exists = document.Document{}, false
	}

	doc, err := s.adopt(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !exists || !document.Equal(map[string]any(raw), map[string]any(doc)) {
		if err := s.persist(doc); err != nil {
			return nil, err
		}
	}
	sum, err := doc.Checksum()
	if err != nil {
		return nil, err
	}
	s.current, s.checksum = doc, sum
	s.logger.Info("configuration loaded",
		logging.String("path", s.path),
		logging.String(logging.FieldChecksum, sum),
		logging.Bool("created", !exists),
	)
	return s, nil
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current document and its checksum.
func (s *Store) Get(context.Context) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Document: s.current.Clone(), Checksum: s.checksum}
}

// Checksum returns the checksum of the current document.
func (s *Store) Checksum() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checksum
}

// Group returns a copy of one top-level group.
func (s *Store) Group(_ context.Context, name string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.current.Group(name)
	if !ok {
		return nil, false
	}
	return document.CloneMap(group), true
}

// Close releases the secret store.
func (s *Store) Close() error {
	if s == nil || s.secrets == nil {
		return nil
	}
	return s.secrets.Close()
}

func (s *Store) lock(ctx context.Context) error {
	locked, err := s.fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return storageFailure("acquire document lock", err)
	}
	if !locked {
		return storageFailure("acquire document lock", errors.New("lock not acquired"))
	}
	return nil
}

func (s *Store) unlock() {
	if err := s.fileLock.Unlock(); err != nil {
		s.logger.Debug("document unlock failed", logging.Error(err))
	}
}

// readDisk returns the raw on-disk document. A file that does not parse as a
// JSON object yields a malformed-input error.
func (s *Store) readDisk() (document.Document, bool, error) {
	data, ok, err := fileutil.ReadFileIfExists(s.path)
	if err != nil {
		return nil, false, storageFailure("read document", err)
	}
	if !ok {
		return document.Document{}, false, nil
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, true, &WriteError{Kind: ErrMalformedInput, Message: "document on disk is not a JSON object", Err: err}
	}
	return doc, true, nil
}

// adopt migrates a document read from disk, moves any plaintext secrets it
// still carries into the secret store, and refreshes the projection.
func (s *Store) adopt(ctx context.Context, raw document.Document) (document.Document, error) {
	doc, _ := s.migrator.Migrate(raw)

	legacy := secrets.Plaintext(doc, s.resolver)
	if len(legacy) > 0 {
		paths := make([]string, 0, len(legacy))
		for path := range legacy {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		ops := make([]secrets.Op, 0, len(paths))
		for _, path := range paths {
			ops = append(ops, secrets.SetOp(s.resolver.SecretName(path), path, legacy[path]))
			secrets.Seed(doc, path)
		}
		if err := s.secrets.Apply(ctx, ops); err != nil {
			return nil, storageFailure("move plaintext secrets", err)
		}
		logging.WarnWithContext(s.logger, "plaintext secrets moved out of the document", "config_secrets_migrated",
			logging.Strings("fields", paths),
			logging.String(logging.FieldErrorHint, "no action needed; values now live in the secret store"),
			logging.String(logging.FieldImpact, "document rewritten without plaintext credentials"),
		)
	}

	if err := secrets.Project(ctx, doc, s.secrets, s.resolver); err != nil {
		return nil, storageFailure("project secrets", err)
	}
	return doc, nil
}

func (s *Store) persist(doc document.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return storageFailure("encode document", err)
	}
	if err := s.writeFile(s.path, data, documentPerm); err != nil {
		return storageFailure("write document", err)
	}
	return nil
}

func encodeDocument(doc document.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any(doc)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Store) install(doc document.Document, sum string) document.Document {
	s.mu.Lock()
	before := s.current
	s.current, s.checksum = doc, sum
	s.mu.Unlock()
	return before
}

func (s *Store) record(result string) {
	if s.metrics != nil {
		s.metrics.ConfigWrite(result)
	}
}

func (s *Store) publish(sum string, groups []string) {
	if s.bus == nil {
		return
	}
	s.bus.PublishConfigChanged(sum, groups)
}
