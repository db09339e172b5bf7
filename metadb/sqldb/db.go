// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sqldb implements the metadb contract on top of database/sql. The
// same implementation serves both PostgreSQL (via the pgx stdlib driver) and
// SQLite (via modernc.org/sqlite); the Flavor selects the few spots where
// the two dialects differ, such as placeholder syntax and write
// serialization.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// Register the pgx driver under name "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/btcsuite/txmetadb/metadb"
	"github.com/jackc/pgx/v5/pgconn"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Flavor identifies the SQL dialect behind the database/sql handle.
type Flavor int

const (
	// SQLite is the embedded modernc.org/sqlite backend.
	SQLite Flavor = iota

	// Postgres is the PostgreSQL backend via pgx.
	Postgres
)

// String returns the Flavor as a human-readable name.
func (f Flavor) String() string {
	switch f {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	}
	return fmt.Sprintf("Unknown Flavor (%d)", int(f))
}

// DB is a SQL-backed implementation of metadb.MetaDB.
type DB struct {
	db     *sql.DB
	flavor Flavor
}

// A compile time check to ensure that DB implements the interface.
var _ metadb.MetaDB = (*DB)(nil)

// New wraps an existing database/sql handle. The caller remains responsible
// for the handle's pool configuration; Close closes it.
func New(db *sql.DB, flavor Flavor) *DB {
	return &DB{db: db, flavor: flavor}
}

// OpenSQLite opens (creating if necessary) a file-backed SQLite store. The
// _txlock=immediate option makes every write transaction take the database
// write lock up front, which serializes the insert-or-associate decision.
func OpenSQLite(path string) (*DB, error) {
	dsn := "file:" + path + "?mode=rwc&_txlock=immediate" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// modernc.org/sqlite serializes writers in-process; a single
	// connection avoids SQLITE_BUSY churn between pooled connections.
	db.SetMaxOpenConns(1)

	return New(db, SQLite), nil
}

// OpenPostgres opens a PostgreSQL-backed store from a standard DSN.
func OpenPostgres(dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	return New(db, Postgres), nil
}

// Close closes the underlying database handle.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return metadb.StoreError(metadb.ErrStorage,
			"close database", err)
	}
	return nil
}

// CountsTotal reports that this backend populates Page.Total: counting a
// filtered result set is a single indexed query on both dialects.
func (d *DB) CountsTotal() bool {
	return true
}

// rebind rewrites ? placeholders into the $n form expected by Postgres.
// SQLite queries are passed through unchanged.
func (d *DB) rebind(query string) string {
	if d.flavor != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// begin starts a write transaction. On Postgres the caller is expected to
// take an advisory lock before touching any row, see lockTxID.
func (d *DB) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, metadb.StoreError(metadb.ErrStorage,
			"begin transaction", err)
	}
	return tx, nil
}

// lockTxID serializes concurrent puts for the same transaction id. SQLite
// transactions already hold the database write lock (via _txlock=immediate),
// so only Postgres needs an explicit, transaction-scoped advisory lock. The
// lock is released automatically at commit or rollback, bounding its hold
// time to the single insert-or-associate decision.
func (d *DB) lockTxID(ctx context.Context, tx *sql.Tx, txid string) error {
	if d.flavor != Postgres {
		return nil
	}

	_, err := tx.ExecContext(ctx,
		"SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", txid)
	if err != nil {
		return metadb.StoreError(metadb.ErrStorage,
			"acquire tx id lock", err)
	}
	return nil
}

// isUniqueViolation reports whether err is the driver's unique-constraint
// violation, on either dialect.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 23, unique_violation.
		return pgErr.Code == "23505"
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}

// rollback discards tx, keeping the first error encountered.
func rollback(tx *sql.Tx, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil &&
		!errors.Is(rbErr, sql.ErrTxDone) && err == nil {

		return metadb.StoreError(metadb.ErrStorage,
			"rollback transaction", rbErr)
	}
	return err
}

// commit commits tx, wrapping any failure as a storage error.
func commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return metadb.StoreError(metadb.ErrStorage,
			"commit transaction", err)
	}
	return nil
}

// encodeTime stores timestamps as UTC nanoseconds since the Unix epoch, so
// that range filters compare correctly as plain integers on both dialects.
func encodeTime(t time.Time) int64 {
	return t.UnixNano()
}

func decodeTime(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
