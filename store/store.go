// Package store keeps assembled programs and a history of executions in
// a SQLite database. Programs are keyed by the SHA-256 of their assembly
// source so that unchanged sources skip the assembler.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/stackc/pkg/bytecode"

	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("stackc.store")

// ErrNotFound indicates the requested program is not cached
var ErrNotFound = errors.New("program not found")

// Hash identifies an assembly source.
type Hash [sha256.Size]byte

// HashSource returns the cache key of an assembly source.
func HashSource(source string) Hash {
	return sha256.Sum256([]byte(source))
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex digits, for display.
func (h Hash) Short() string {
	return h.String()[:12]
}

// Run records one execution of a compiled program.
type Run struct {
	ID       uuid.UUID
	Hash     Hash
	Status   bytecode.Status
	Started  time.Time
	Duration time.Duration
}

// Store is a SQLite-backed program cache and run log.
type Store struct {
	db   *sql.DB
	path string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS programs (
		hash    TEXT PRIMARY KEY,
		data    BLOB NOT NULL,
		created INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		hash        TEXT NOT NULL,
		status      INTEGER NOT NULL,
		started     INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS runs_by_hash ON runs (hash, started)`,
}

// Open opens or creates the database at path. The parent directory is
// created if needed. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes
	// writers.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}

	log.Debugf("opened store %s", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// PutProgram caches the assembled program for a source hash.
func (s *Store) PutProgram(ctx context.Context, h Hash, p bytecode.Program) error {
	data, err := bytecode.MarshalProgram(p)
	if err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO programs (hash, data, created) VALUES (?, ?, ?)",
		h.String(), data, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving program: %w", err)
	}
	return nil
}

// GetProgram returns the cached program for a source hash, or ErrNotFound.
func (s *Store) GetProgram(ctx context.Context, h Hash) (bytecode.Program, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM programs WHERE hash = ?", h.String()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}
	p, err := bytecode.UnmarshalProgram(data)
	if err != nil {
		return nil, fmt.Errorf("decoding program %s: %w", h.Short(), err)
	}
	return p, nil
}

// RecordRun appends a run to the history. A zero ID is replaced by a
// fresh random one.
func (s *Store) RecordRun(ctx context.Context, r *Run) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, hash, status, started, duration_ns) VALUES (?, ?, ?, ?, ?)",
		r.ID.String(), r.Hash.String(), int(r.Status), r.Started.UnixNano(), int64(r.Duration),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Runs returns the recorded runs of a source, oldest first.
func (s *Store) Runs(ctx context.Context, h Hash) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, status, started, duration_ns FROM runs WHERE hash = ? ORDER BY started, id",
		h.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			id       string
			status   int
			started  int64
			duration int64
		)
		if err := rows.Scan(&id, &status, &started, &duration); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		runs = append(runs, Run{
			ID:       parsed,
			Hash:     h,
			Status:   bytecode.Status(status),
			Started:  time.Unix(0, started),
			Duration: time.Duration(duration),
		})
	}
	return runs, rows.Err()
}

// Counts returns the number of cached programs and recorded runs.
func (s *Store) Counts(ctx context.Context) (programs, runs int, err error) {
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM programs").Scan(&programs); err != nil {
		return 0, 0, fmt.Errorf("counting programs: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&runs); err != nil {
		return 0, 0, fmt.Errorf("counting runs: %w", err)
	}
	return programs, runs, nil
}
