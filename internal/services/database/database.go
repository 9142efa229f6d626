// Package database stores donor, recipient and inventory tables in PostgreSQL.
package database

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"blood-bank-matcher/internal/config"
)

// psql builds queries with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB holds the database connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection.
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	return NewFromURL(ctx, cfg.DatabaseURL())
}

// NewFromURL creates a new database connection from a URL string.
func NewFromURL(ctx context.Context, databaseURL string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// HealthCheck verifies database connectivity.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// query runs a built SELECT.
func (db *DB) query(ctx context.Context, b sq.SelectBuilder) (pgx.Rows, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return db.pool.Query(ctx, sql, args...)
}

// WithTransaction executes a function within a transaction.
func (db *DB) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// execBuilt runs a built INSERT/DELETE inside a transaction.
func execBuilt(ctx context.Context, tx pgx.Tx, b sq.Sqlizer) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build statement: %w", err)
	}
	_, err = tx.Exec(ctx, sql, args...)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS donors (
	id                 BIGINT PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	blood_type         TEXT NOT NULL CHECK (blood_type IN ('O', 'A', 'B', 'AB')),
	rh                 TEXT NOT NULL CHECK (rh IN ('+', '-')),
	lat                DOUBLE PRECISION NOT NULL,
	lon                DOUBLE PRECISION NOT NULL,
	available          BOOLEAN NOT NULL DEFAULT TRUE,
	last_donation_date DATE
);

CREATE TABLE IF NOT EXISTS recipients (
	id           BIGINT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	blood_type   TEXT NOT NULL CHECK (blood_type IN ('O', 'A', 'B', 'AB')),
	rh           TEXT NOT NULL CHECK (rh IN ('+', '-')),
	lat          DOUBLE PRECISION NOT NULL,
	lon          DOUBLE PRECISION NOT NULL,
	units_needed INTEGER NOT NULL CHECK (units_needed >= 0)
);

CREATE TABLE IF NOT EXISTS inventory (
	seq             BIGSERIAL PRIMARY KEY,
	blood_type      TEXT NOT NULL CHECK (blood_type IN ('O', 'A', 'B', 'AB')),
	rh              TEXT NOT NULL CHECK (rh IN ('+', '-')),
	units_available INTEGER NOT NULL CHECK (units_available >= 0)
);`

// EnsureSchema creates the donor, recipient and inventory tables.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
