// Package store opens the agent's local SQLite database, applies the
// embedded goose migrations, and hands out the repositories backed by it.
// The database is the only shared mutable resource on the device and must
// survive process restarts independent of network state.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"fieldvault/internal/agent/migrations"
	"fieldvault/internal/agent/repositories/evidence"
	"fieldvault/internal/agent/repositories/recordcache"
	"fieldvault/internal/agent/repositories/syncqueue"

	_ "modernc.org/sqlite"
)

// Repositories bundles the collections living in the local store.
type Repositories struct {
	Evidence    evidence.Repository
	SyncQueue   syncqueue.Repository
	RecordCache recordcache.Repository
}

// Store owns the database handle and its repositories.
type Store struct {
	DB    *sql.DB
	Repos *Repositories
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if necessary) the database at dsn, migrates it, and
// returns the ready-to-use store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	// serialize writers; sqlite handles one writer at a time anyway
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	repos := &Repositories{
		Evidence:    evidence.NewSQLiteRepository(db),
		SyncQueue:   syncqueue.NewSQLiteRepository(db),
		RecordCache: recordcache.NewSQLiteRepository(db),
	}
	return &Store{DB: db, Repos: repos}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.DB.Close()
}

// ClearAll wipes every local collection. This backs the explicit
// "clear local data" user action; it is not reachable from sync or eviction.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.Repos.Evidence.Clear(ctx); err != nil {
		return err
	}
	if err := s.Repos.SyncQueue.Clear(ctx); err != nil {
		return err
	}
	return s.Repos.RecordCache.Clear(ctx)
}
