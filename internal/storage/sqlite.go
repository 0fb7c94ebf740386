package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/lifeline/internal/logger"
)

// SQLite is a KV persisted in a single-table SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and its kv table.
// Parent directories are created as required.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    );`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating kv table: %w", err)
	}

	logger.L.Info("sqlite storage initialized", "path", path)
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?;`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.wrap("get", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Set(key, value string) error {
	return s.Apply(Set(key, value))
}

func (s *SQLite) Delete(key string) error {
	return s.Apply(Delete(key))
}

// Apply runs the writes inside one transaction.
func (s *SQLite) Apply(writes ...Write) error {
	tx, err := s.db.Begin()
	if err != nil {
		return s.wrap("begin", "", err)
	}
	for _, w := range writes {
		if w.Delete {
			_, err = tx.Exec(`DELETE FROM kv WHERE key = ?;`, w.Key)
		} else {
			_, err = tx.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
                ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`, w.Key, w.Value)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.L.Warn("sqlite rollback failed", "error", rbErr)
			}
			return s.wrap("write", w.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return s.wrap("commit", "", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) wrap(op, key string, err error) error {
	if key == "" {
		return fmt.Errorf("sqlite %s: %w", op, err)
	}
	return fmt.Errorf("sqlite %s %q: %w", op, key, err)
}
