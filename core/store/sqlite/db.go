// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package sqlite implements store.Store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"codeberg.org/vertimus/vertimus/core/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout sorts lexically, which range queries on text columns rely on.
const timeLayout = "2006-01-02 15:04:05.000000000"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is a store.Store backed by one SQLite database file.
type DB struct {
	db *sql.DB
	q  querier
	sq sq.StatementBuilderType
}

var _ store.Store = (*DB)(nil)

// Open opens or creates the database at dbPath and applies pending
// migrations.
func Open(ctx context.Context, dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps
	// transactions from waiting on each other's locks.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &DB{db: db, q: db, sq: sq.StatementBuilder}, nil
}

// Close closes the database.
func (s *DB) Close() error {
	return s.db.Close()
}

// InTx implements store.Store.
func (s *DB) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&DB{db: s.db, q: tx, sq: s.sq}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Str("sys", "store").Msg("Rollback failed")
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	var names []string

	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}

	slices.Sort(names)

	for _, name := range names {
		var one int

		err := db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE name = ?`, name).Scan(&one)
		if err == nil {
			continue
		}

		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check migration %s: %w", name, err)
		}

		body, err := migrationsFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(name, applied_at) VALUES (?, ?)`,
			name, formatTime(time.Now())); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		log.Info().Str("sys", "store").Str("migration", name).Msg("Applied migration")
	}

	return nil
}

func (s *DB) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return s.q.ExecContext(ctx, query, args...)
}

func (s *DB) insert(ctx context.Context, b sq.InsertBuilder) (int64, error) {
	res, err := s.exec(ctx, b)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (s *DB) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return s.q.QueryContext(ctx, query, args...)
}

// row defers a query build error to Scan.
type row struct {
	r   *sql.Row
	err error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	return r.r.Scan(dest...)
}

func (s *DB) queryRow(ctx context.Context, b sq.Sqlizer) row {
	query, args, err := b.ToSql()
	if err != nil {
		return row{err: fmt.Errorf("failed to build query: %w", err)}
	}

	return row{r: s.q.QueryRowContext(ctx, query, args...)}
}

// notFound maps sql.ErrNoRows to store.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}

	return err
}

// requireRow reports store.ErrNotFound when an update touched nothing.
func requireRow(res sql.Result, err error, what string) error {
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}

	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		log.Warn().Err(err).Str("sys", "store").Str("value", s).Msg("Unparseable timestamp")

		return time.Time{}
	}

	return t
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: *id, Valid: true}
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}

	v := n.Int64

	return &v
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
