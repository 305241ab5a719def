package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore keeps snapshots in a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database file and bootstraps the
// snapshot table.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./handbook.db"
	}
	abs, err := filepath.Abs(dbPath)
	if err == nil {
		dbPath = abs
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: failed to connect: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS handbooks (
		id TEXT PRIMARY KEY,
		blob BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Save upserts the snapshot blob for the handbook id.
func (s *SQLiteStore) Save(ctx context.Context, id string, blob []byte) error {
	const q = `INSERT INTO handbooks (id, blob, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, id, blob, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("sqlite store: save %s: %w", id, err)
	}
	return nil
}

// Load returns the snapshot blob for the handbook id.
func (s *SQLiteStore) Load(ctx context.Context, id string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM handbooks WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: load %s: %w", id, err)
	}
	return blob, nil
}

// LoadAny returns the most recently saved snapshot, for picking up the last
// session without knowing its id. ErrNotFound when the table is empty.
func (s *SQLiteStore) LoadAny(ctx context.Context) (string, []byte, error) {
	var (
		id   string
		blob []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, blob FROM handbooks ORDER BY updated_at DESC LIMIT 1`).Scan(&id, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("sqlite store: load latest: %w", err)
	}
	return id, blob, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
