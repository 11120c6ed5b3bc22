package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// DefaultBatchSize is the Merkle window size when none is configured.
const DefaultBatchSize = 1024

// Options configures a store at open time. Partition and batch size are
// pinned in the meta table on first open; reopening with different values
// is an error, since both parameterize the chain and batch layout.
type Options struct {
	// Partition names the ledger partition this file holds. One partition
	// per database file; the partition's writer lock is this store's lock.
	Partition string

	// BatchSize is the Merkle window size N. Defaults to DefaultBatchSize.
	BatchSize int64
}

// Store provides durable storage for one ledger partition.
// Uses SQLite with WAL mode for concurrent read access. The append path is
// the only mutable shared resource; it is serialized by mu plus SQLite's
// single-writer transaction.
type Store struct {
	db        *sql.DB
	mu        sync.Mutex // per-partition append lock
	partition string
	batchSize int64

	sealedMu sync.Mutex
	onSealed []func(Batch)
}

// Open creates or opens a ledger database at the given path.
// Applies required pragmas and migrations automatically; idempotent.
func Open(path string, opts Options) (*Store, error) {
	if opts.Partition == "" {
		opts.Partition = "main"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY on the append path.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, partition: opts.Partition, batchSize: opts.BatchSize}
	if err := s.pinMeta(opts); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Partition returns the partition name this store holds.
func (s *Store) Partition() string {
	return s.partition
}

// BatchSize returns the Merkle window size N.
func (s *Store) BatchSize() int64 {
	return s.batchSize
}

// Query executes a read query and returns the resulting rows.
// Convenience wrapper for the query engine; callers close the rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// OnBatchSealed registers a callback invoked after a batch seal commits.
// This is the archival collaborator's subscription point; callbacks run
// outside the append transaction and outside the writer lock.
func (s *Store) OnBatchSealed(fn func(Batch)) {
	s.sealedMu.Lock()
	defer s.sealedMu.Unlock()
	s.onSealed = append(s.onSealed, fn)
}

func (s *Store) notifySealed(b Batch) {
	s.sealedMu.Lock()
	fns := make([]func(Batch), len(s.onSealed))
	copy(fns, s.onSealed)
	s.sealedMu.Unlock()

	for _, fn := range fns {
		fn(b)
	}
}

// pinMeta records partition and batch size on first open and rejects
// mismatched reopens.
func (s *Store) pinMeta(opts Options) error {
	checks := []struct {
		key  string
		want string
	}{
		{"partition", opts.Partition},
		{"batch_size", fmt.Sprintf("%d", opts.BatchSize)},
	}

	for _, c := range checks {
		var got string
		err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, c.key).Scan(&got)
		switch {
		case err == sql.ErrNoRows:
			if _, err := s.db.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)`, c.key, c.want); err != nil {
				return fmt.Errorf("pin %s: %w", c.key, err)
			}
		case err != nil:
			return fmt.Errorf("read %s: %w", c.key, err)
		case got != c.want:
			return fmt.Errorf("ledger %s mismatch: database has %q, options say %q", c.key, got, c.want)
		}
	}

	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// No incremental migrations yet; schema.sql is v1.

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}
