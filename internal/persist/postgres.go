package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore keeps snapshots in a PostgreSQL table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects using the given DSN, falling back to the
// DATABASE_URL environment variable.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, fmt.Errorf("postgres store: database connection required (set dsn in config or DATABASE_URL env)")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres store: failed to connect: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS handbooks (
		id TEXT PRIMARY KEY,
		blob BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres store: failed to create schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Save upserts the snapshot blob for the handbook id.
func (s *PostgresStore) Save(ctx context.Context, id string, blob []byte) error {
	const q = `INSERT INTO handbooks (id, blob, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET blob = EXCLUDED.blob, updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, q, id, blob); err != nil {
		return fmt.Errorf("postgres store: save %s: %w", id, err)
	}
	return nil
}

// Load returns the snapshot blob for the handbook id.
func (s *PostgresStore) Load(ctx context.Context, id string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM handbooks WHERE id = $1`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: load %s: %w", id, err)
	}
	return blob, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }
