// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqldb

import (
	"context"

	"github.com/btcsuite/txmetadb/metadb"
	"github.com/btcsuite/txmetadb/txmeta"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// childTables lists every table holding rows keyed by the composite key, in
// the order they are deleted (children before parents).
var childTables = []string{"tx_inputs", "tx_outputs", "tx_metas"}

// DeleteTxMetas removes all rows of a wallet, or of a single account when
// accountIndex is set. Deleting a wallet or account with no rows is a no-op.
func (d *DB) DeleteTxMetas(ctx context.Context, walletID txmeta.WalletID,
	accountIndex fn.Option[uint32]) error {

	tx, err := d.begin(ctx)
	if err != nil {
		return err
	}

	for _, table := range childTables {
		stmt := "DELETE FROM " + table + " WHERE wallet_id = ?"
		args := []any{walletID.String()}
		accountIndex.WhenSome(func(idx uint32) {
			stmt += " AND account_index = ?"
			args = append(args, idx)
		})

		if _, err := tx.ExecContext(
			ctx, d.rebind(stmt), args...,
		); err != nil {
			return rollback(tx, metadb.StoreError(
				metadb.ErrStorage, "delete from "+table, err,
			))
		}
	}

	return commit(tx)
}

// ClearAll removes every row from the store, leaving the schema in place.
func (d *DB) ClearAll(ctx context.Context) error {
	tx, err := d.begin(ctx)
	if err != nil {
		return err
	}

	for _, table := range childTables {
		if _, err := tx.ExecContext(
			ctx, "DELETE FROM "+table,
		); err != nil {
			return rollback(tx, metadb.StoreError(
				metadb.ErrStorage, "clear "+table, err,
			))
		}
	}

	return commit(tx)
}
