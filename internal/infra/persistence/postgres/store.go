// Package postgres keeps the graph document in PostgreSQL. Every state bucket
// is one row tagged with the version of the graph it was written for.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"pathwaycore/internal/infra/persistence/state"
	"pathwaycore/pkg/domain"
)

var _ domain.GraphStore = (*Store)(nil)

const (
	driverName = "pgx"
	localDSN   = "postgres://localhost/pathwaycore?sslmode=disable"

	schema = `CREATE TABLE IF NOT EXISTS graph_buckets (
	bucket TEXT PRIMARY KEY,
	graph_version TEXT NOT NULL,
	payload JSONB NOT NULL
)`
	selectBuckets = `SELECT bucket, graph_version, payload FROM graph_buckets`
	clearBuckets  = `DELETE FROM graph_buckets`
	insertBucket  = `INSERT INTO graph_buckets(bucket, graph_version, payload) VALUES($1, $2, $3)`
)

// Opener opens a database handle for a driver name and DSN.
type Opener func(driverName, dsn string) (*sql.DB, error)

type settings struct {
	open Opener
}

// Option customizes NewStore.
type Option func(*settings)

// WithOpener replaces sql.Open, letting tests hand in a stub database.
func WithOpener(open Opener) Option {
	return func(s *settings) {
		if open != nil {
			s.open = open
		}
	}
}

// Store persists the graph document to Postgres.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore connects to dsn (a local database when empty), checks the server
// is reachable and creates the bucket table if needed.
func NewStore(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg := settings{open: sql.Open}
	for _, opt := range opts {
		opt(&cfg)
	}
	if dsn == "" {
		dsn = localDSN
	}
	db, err := cfg.open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect graph database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reach graph database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create graph_buckets table: %w", err)
	}
	return &Store{db: db}, nil
}

// Load reassembles the stored document. It returns domain.ErrGraphNotStored
// when no graph was written and an error when the rows belong to different
// graph versions.
func (s *Store) Load(ctx context.Context) (domain.GraphDocument, error) {
	rows, err := s.db.QueryContext(ctx, selectBuckets)
	if err != nil {
		return domain.GraphDocument{}, fmt.Errorf("read graph buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	raw := make(map[string][]byte)
	version, seen := "", false
	for rows.Next() {
		var (
			bucket, rowVersion string
			payload            []byte
		)
		if err := rows.Scan(&bucket, &rowVersion, &payload); err != nil {
			return domain.GraphDocument{}, fmt.Errorf("scan graph bucket: %w", err)
		}
		if seen && rowVersion != version {
			return domain.GraphDocument{}, fmt.Errorf("graph buckets mix versions %q and %q", version, rowVersion)
		}
		version, seen = rowVersion, true
		raw[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return domain.GraphDocument{}, fmt.Errorf("read graph buckets: %w", err)
	}
	return state.Decode(raw)
}

// Store replaces the stored graph with doc in one transaction.
func (s *Store) Store(ctx context.Context, doc domain.GraphDocument) error {
	buckets, err := state.Encode(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin graph write: %w", err)
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, clearBuckets); err != nil {
		return fmt.Errorf("clear graph buckets: %w", err)
	}
	for _, bucket := range state.Buckets {
		if _, err := tx.ExecContext(ctx, insertBucket, bucket, doc.Version, buckets[bucket]); err != nil {
			return fmt.Errorf("write %s bucket of graph %q: %w", bucket, doc.Version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit graph %q: %w", doc.Version, err)
	}
	done = true
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
