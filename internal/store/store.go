// Package store provides the transactional, typed persistent database
// described in SPEC_FULL.md component B: nodes, links, the five flag
// tables, variables, a generic config table, and a schema-version row.
//
// The store is single-writer: callers serialize all mutation through one
// *sql.Tx at a time (Store.Begin enforces this with ErrTxAlreadyOpen).
// Reads may happen outside a transaction or inside the open one.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/naudhr/tup/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Store is the persistent backing for a project's node/link graph.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu       sync.Mutex
	tx       *sql.Tx
	changes  int64
	scanning bool
}

// Option configures a Store at Open time.
type Option func(*openConfig)

type openConfig struct {
	memory     bool
	syncOff    bool
	busyMillis int
	logger     *slog.Logger
}

// WithMemoryBacking opens an in-memory database instead of a file on disk,
// for tests.
func WithMemoryBacking() Option {
	return func(c *openConfig) { c.memory = true }
}

// WithSyncOff disables fsync-on-commit durability for speed; used by tests
// and by callers who accept losing the last transaction on a crash.
func WithSyncOff() Option {
	return func(c *openConfig) { c.syncOff = true }
}

// WithBusyTimeout overrides the default lock-contention wait.
func WithBusyTimeout(ms int) Option {
	return func(c *openConfig) { c.busyMillis = ms }
}

// WithLogger attaches a structured logger; nil (the default) is replaced
// by slog.Default() in Open.
func WithLogger(l *slog.Logger) Option {
	return func(c *openConfig) { c.logger = l }
}

// Open creates or opens the node/link store at path, applying pragmas and
// running any pending schema migrations. It is safe to call repeatedly.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := openConfig{busyMillis: 5000}
	for _, o := range opts {
		o(&cfg)
	}

	dsn := path
	if cfg.memory {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	// SQLite only supports one writer; match that in the connection pool so
	// "single-writer within the process" is enforced at the driver level too.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, cfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{db: db, logger: cfg.logger}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	return s, nil
}

func applyPragmas(db *sql.DB, cfg openConfig) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyMillis),
		"PRAGMA foreign_keys = ON",
	}
	if cfg.syncOff {
		pragmas = append(pragmas, "PRAGMA synchronous = OFF")
	} else {
		pragmas = append(pragmas, "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) applySchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := s.ensureSentinels(); err != nil {
		return fmt.Errorf("ensure sentinels: %w", err)
	}
	return nil
}

func (s *Store) ensureSentinels() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM id_seq`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.db.Exec(`INSERT INTO id_seq (next_id) VALUES (?)`, int64(ir.FirstAllocatedID)); err != nil {
			return err
		}
	}
	sentinels := []ir.Node{
		{ID: ir.RootDT, ParentID: ir.RootDT, Name: "", Type: ir.TypeDirectory},
		{ID: ir.EnvDT, ParentID: ir.RootDT, Name: "@env", Type: ir.TypeDirectory},
		{ID: ir.ExclusionDT, ParentID: ir.RootDT, Name: "@exclusion", Type: ir.TypeDirectory},
	}
	for _, n := range sentinels {
		_, err := s.db.Exec(`
			INSERT INTO nodes (id, parent_id, name, type, mtime_kind, srcid, display, flags)
			VALUES (?, ?, ?, ?, ?, 0, '', '')
			ON CONFLICT(id) DO NOTHING
		`, n.ID, n.ParentID, n.Name, n.Type.String(), ir.MtimeExternal)
		if err != nil {
			return fmt.Errorf("sentinel %d: %w", n.ID, err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ErrTxAlreadyOpen is returned by Begin when a transaction is already open
// on this Store; the store has no nested transactions (spec.md 4.B).
var ErrTxAlreadyOpen = fmt.Errorf("store: transaction already open")

// ErrNoTx is returned by Commit and Rollback when no transaction is open.
var ErrNoTx = fmt.Errorf("store: no open transaction")

// Begin opens the single allowed transaction. A second Begin before
// Commit/Rollback fails with ErrTxAlreadyOpen.
func (s *Store) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return ErrTxAlreadyOpen
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	s.tx = tx
	s.changes = 0
	return nil
}

// Commit commits the open transaction.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return ErrNoTx
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback aborts the open transaction, discarding every mutation made
// since Begin. It is always safe to call even if nothing failed.
func (s *Store) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return ErrNoTx
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// Changes returns the count of rows mutated since the last Begin, used by
// callers to detect a no-op build.
func (s *Store) Changes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changes
}

// execer is satisfied by both *sql.DB and *sql.Tx, letting every method
// below run whether or not a transaction is open.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the open transaction if there is one, otherwise the raw db
// handle. Used by every read/write method so they work both inside and
// outside an explicit Begin/Commit bracket.
func (s *Store) conn() execer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// exec runs a mutating statement against the current connection and
// accumulates RowsAffected into the changes counter.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.conn().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if n, aerr := res.RowsAffected(); aerr == nil {
		s.mu.Lock()
		s.changes += n
		s.mu.Unlock()
	}
	return res, nil
}
