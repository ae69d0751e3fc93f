package secrets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps secrets in a SQLite file separate from the document.
// Every write runs in its own transaction.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the secret database at path and applies
// migrations. The file is restricted to the owner.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure secrets directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Chmod(path+suffix, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
			_ = db.Close()
			return nil, fmt.Errorf("restrict secrets file: %w", err)
		}
	}
	return store, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, name string) (string, bool, error) {
	var value string
	row := s.db.QueryRowContext(ctx, `SELECT value FROM secrets WHERE name = ?`, name)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get secret: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Describe(ctx context.Context, name string) (Description, error) {
	value, ok, err := s.Get(ctx, name)
	if err != nil {
		return Description{}, err
	}
	return Describe(value, ok), nil
}

func (s *SQLiteStore) Set(ctx context.Context, name, value string) error {
	return s.Apply(ctx, []Op{SetOp(name, "", value)})
}

func (s *SQLiteStore) Clear(ctx context.Context, name string) error {
	return s.Apply(ctx, []Op{{Name: name, Clear: true}})
}

func (s *SQLiteStore) Apply(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	for _, op := range ops {
		if err := ValidateName(op.Name); err != nil {
			return fmt.Errorf("%w: %q", err, op.Name)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin secrets tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, op := range ops {
		if op.Clear {
			if _, err := tx.ExecContext(ctx, `DELETE FROM secrets WHERE name = ?`, op.Name); err != nil {
				return fmt.Errorf("clear secret %s: %w", op.Name, err)
			}
			continue
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO secrets (name, value, updated_at) VALUES (?, ?, ?)
             ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			op.Name,
			op.Value,
			now,
		); err != nil {
			return fmt.Errorf("store secret %s: %w", op.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit secrets: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM secrets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, rows.Err()
}
