// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/btcsuite/txmetadb/metadb"
)

// migration is a single forward-only schema upgrade. Versions start at 1 and
// are applied in order inside one transaction each.
type migration struct {
	// version the store is at after the migration has run.
	version uint32

	// statements returns the DDL to execute, which may differ per
	// dialect.
	statements func(f Flavor) []string
}

// migrations lists every known schema upgrade, in ascending version order.
var migrations = []migration{
	{version: 1, statements: schemaV1},
}

// schemaV1 creates the initial layout: the metadata rows keyed by
// (txid, wallet id, account index), plus one child table each for inputs and
// outputs so that address membership can be filtered with an index instead
// of decoding rows. Transaction ids and wallet ids are stored in their
// hexadecimal string form; timestamps as integer UTC nanoseconds; amounts as
// integer base units.
func schemaV1(_ Flavor) []string {
	return []string{`
CREATE TABLE IF NOT EXISTS tx_metas (
	txid TEXT NOT NULL,
	wallet_id TEXT NOT NULL,
	account_index BIGINT NOT NULL,
	amount BIGINT NOT NULL,
	creation_time BIGINT NOT NULL,
	is_local BOOLEAN NOT NULL,
	is_outgoing BOOLEAN NOT NULL,
	PRIMARY KEY (txid, wallet_id, account_index)
)`, `
CREATE INDEX IF NOT EXISTS tx_metas_wallet_idx
ON tx_metas (wallet_id, account_index)`, `
CREATE INDEX IF NOT EXISTS tx_metas_txid_idx
ON tx_metas (txid)`, `
CREATE INDEX IF NOT EXISTS tx_metas_creation_idx
ON tx_metas (creation_time)`, `
CREATE TABLE IF NOT EXISTS tx_inputs (
	txid TEXT NOT NULL,
	wallet_id TEXT NOT NULL,
	account_index BIGINT NOT NULL,
	input_index BIGINT NOT NULL,
	prev_txid TEXT NOT NULL,
	prev_index BIGINT NOT NULL,
	address TEXT NOT NULL,
	amount BIGINT NOT NULL,
	PRIMARY KEY (txid, wallet_id, account_index, input_index)
)`, `
CREATE INDEX IF NOT EXISTS tx_inputs_address_idx
ON tx_inputs (address)`, `
CREATE TABLE IF NOT EXISTS tx_outputs (
	txid TEXT NOT NULL,
	wallet_id TEXT NOT NULL,
	account_index BIGINT NOT NULL,
	output_index BIGINT NOT NULL,
	address TEXT NOT NULL,
	amount BIGINT NOT NULL,
	PRIMARY KEY (txid, wallet_id, account_index, output_index)
)`, `
CREATE INDEX IF NOT EXISTS tx_outputs_address_idx
ON tx_outputs (address)`}
}

// MigrateSchema brings the persisted layout up to the latest known version.
// Already-applied versions are skipped, so the call is idempotent. It
// assumes exclusive access to the store.
func (d *DB) MigrateSchema(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (version BIGINT NOT NULL)`)
	if err != nil {
		return metadb.StoreError(metadb.ErrStorage,
			"create schema_version table", err)
	}

	current, err := d.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		log.Infof("Applying schema migration to version %d",
			m.version)

		if err := d.applyMigration(ctx, m, current); err != nil {
			return err
		}
		current = m.version
	}

	return nil
}

// schemaVersion returns the version recorded in the store, or zero for a
// fresh database.
func (d *DB) schemaVersion(ctx context.Context) (uint32, error) {
	var version uint32
	err := d.db.QueryRowContext(ctx,
		"SELECT version FROM schema_version").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, metadb.StoreError(metadb.ErrStorage,
			"read schema version", err)
	}
	return version, nil
}

// applyMigration runs one migration and records the new version, all within
// a single transaction.
func (d *DB) applyMigration(ctx context.Context, m migration,
	current uint32) error {

	tx, err := d.begin(ctx)
	if err != nil {
		return err
	}

	for _, stmt := range m.statements(d.flavor) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return rollback(tx, metadb.StoreError(
				metadb.ErrStorage,
				fmt.Sprintf("apply migration %d", m.version),
				err,
			))
		}
	}

	if current == 0 {
		_, err = tx.ExecContext(ctx, d.rebind(
			"INSERT INTO schema_version (version) VALUES (?)"),
			m.version)
	} else {
		_, err = tx.ExecContext(ctx, d.rebind(
			"UPDATE schema_version SET version = ?"), m.version)
	}
	if err != nil {
		return rollback(tx, metadb.StoreError(metadb.ErrStorage,
			"record schema version", err))
	}

	return commit(tx)
}
