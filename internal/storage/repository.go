package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config selects and configures a storage backend.
//
// Kind must match a registered backend kind ("sqlite", "postgres", "mssql");
// DSN is passed through to the backend factory.
type Config struct {
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`
}

// Repository is the backend-agnostic persistence surface of the warehouse.
//
// IMPORTANT: the interface is intentionally minimal, exactly the operations
// the ingest and rebuild flows need. Each backend implements the semantics in
// its own idiomatic way (Postgres ON CONFLICT, SQLite OR IGNORE, MSSQL
// NOT-EXISTS guard).
type Repository interface {
	// Close releases backend resources. Call once at shutdown.
	Close()

	// EnsureTables creates the given tables if they do not exist. Idempotent.
	EnsureTables(ctx context.Context, tables []TableSpec) error

	// InsertRows bulk-inserts positional rows. When conflictColumns is
	// non-empty the insert is idempotent: rows whose conflict-column values
	// already exist are skipped, and the returned count reflects only rows
	// actually written. This is the append-only upsert used for dimension
	// ingest.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any, conflictColumns []string) (int64, error)

	// SelectRows scans the whole table in surrogate-id order.
	SelectRows(ctx context.Context, table string, columns []string) ([][]any, error)

	// SelectFirstN returns the first n rows in surrogate-id order plus the
	// total row count.
	SelectFirstN(ctx context.Context, table string, columns []string, n int) ([][]any, int64, error)

	// ReplaceRows atomically swaps the table contents for the given rows:
	// delete-all plus insert in one transaction. This is the snapshot-replace
	// semantics the fact and top-seller rebuilds rely on: an interrupted
	// rebuild leaves the previous snapshot intact, never a partial one.
	ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// ---- backend factory registry ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Backends call this from init();
// registering the same kind twice panics to fail fast on ambiguous wiring.
func Register(kind string, f factory) {
	regMu.Lock()
	defer regMu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Repository for the configured backend kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	regMu.RLock()
	f := factories[cfg.Kind]
	regMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
