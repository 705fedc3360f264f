// Package sqlite is a storage.KV backed by an embedded SQLite database
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/iudanet/yardsync/internal/client/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Storage represents SQLite implementation of storage.KV
type Storage struct {
	db       *sql.DB
	capacity int64
}

var _ storage.KV = (*Storage)(nil)

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
// capacity <= 0 means storage.DefaultCapacity
func New(ctx context.Context, dbPath string, capacity int64) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Один писатель: проверка квоты и запись идут в одной транзакции
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if capacity <= 0 {
		capacity = storage.DefaultCapacity
	}
	s := &Storage{db: db, capacity: capacity}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) runMigrations() error {
	goose.SetDialect("sqlite3")
	goose.SetBaseFS(embedMigrations)

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// Get returns the value stored under key
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrKeyNotFound
	}
	if err != nil {
		return nil, s.wrap("failed to get "+key, err)
	}
	return value, nil
}

// Set stores value under key, enforcing the byte capacity
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var used int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(value)), 0) FROM kv`,
	).Scan(&used); err != nil {
		return fmt.Errorf("failed to measure usage: %w", err)
	}

	var oldSize int64
	err = tx.QueryRowContext(ctx,
		`SELECT length(CAST(key AS BLOB)) + length(value) FROM kv WHERE key = ?`, key,
	).Scan(&oldSize)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to measure %q: %w", key, err)
	}

	if storage.ExceedsCapacity(s.capacity, used, oldSize, int64(len(key)+len(value))) {
		return storage.ErrQuotaExceeded
	}

	if value == nil {
		value = []byte{}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Remove deletes key; absent keys are ignored
func (s *Storage) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return s.wrap("failed to delete "+key, err)
	}
	return nil
}

// wrap maps "database is closed" to storage.ErrStorageClosed
func (s *Storage) wrap(msg string, err error) error {
	if err != nil && err.Error() == "sql: database is closed" {
		return fmt.Errorf("%s: %w", msg, storage.ErrStorageClosed)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
