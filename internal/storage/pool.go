// Package storage provides the PostgreSQL storage layer for Yurai.
//
// It manages connection pooling via pgxpool, a forward-only migration
// runner, and query methods for the four application tables: projects,
// traces, conversation_contents, and commit_links. Ingestion methods run
// inside a single transaction per request; blame queries read through the
// pool.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgxpool.Pool for all queries.
type DB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a new DB with a connection pool and verifies connectivity.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping pool: %w", err)
	}

	return &DB{pool: pool, logger: logger}, nil
}

// Pool returns the underlying connection pool for use by other packages.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// withTx runs fn inside a transaction: commit on success, rollback on any
// error or context cancellation. Each request-scoped write path goes
// through here so no partial ingest is ever visible.
func (db *DB) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, db.pool, fn)
}

// jsonbOrNull converts a raw JSON value to a query argument, mapping empty
// input to SQL NULL rather than the JSON literal null.
func jsonbOrNull(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
