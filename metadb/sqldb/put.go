// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqldb

import (
	"context"
	"fmt"

	"github.com/btcsuite/txmetadb/metadb"
	"github.com/btcsuite/txmetadb/txmeta"
)

// PutTxMeta unconditionally inserts a row. Re-inserting a row whose
// composite key already exists with identical data is a no-op; a key
// collision with different data fails with ErrTxIDInvariant.
func (d *DB) PutTxMeta(ctx context.Context, meta *txmeta.TxMeta) error {
	_, err := d.put(ctx, meta)
	return err
}

// PutTxMetaT runs the insert-or-associate algorithm and reports how the
// incoming row was classified. See metadb.MetaDB for the contract.
func (d *DB) PutTxMetaT(ctx context.Context, meta *txmeta.TxMeta) (
	metadb.PutReturn, error) {

	return d.put(ctx, meta)
}

// put performs the whole insert-or-associate decision inside one database
// transaction. Writers for the same transaction id are serialized (SQLite
// takes the database write lock up front, Postgres an advisory lock on the
// tx id), so the existence checks and the insert are indivisible. The
// unique index on the composite key remains as a backstop: if it still
// reports a conflict, the row that caused it must be observable by a fresh
// lookup, and a lookup miss is treated as store corruption.
func (d *DB) put(ctx context.Context, meta *txmeta.TxMeta) (
	metadb.PutReturn, error) {

	if err := meta.Validate(); err != nil {
		return metadb.PutNo, err
	}

	tx, err := d.begin(ctx)
	if err != nil {
		return metadb.PutNo, err
	}

	txid := meta.TxID.String()
	if err := d.lockTxID(ctx, tx, txid); err != nil {
		return metadb.PutNo, rollback(tx, err)
	}

	// A row under exactly this composite key decides the put without any
	// write: identical data is an idempotent replay, different data a
	// corruption attempt.
	existing, err := d.getMeta(ctx, tx, meta.TxID, meta.WalletID,
		meta.AccountIndex)
	if err != nil {
		return metadb.PutNo, rollback(tx, err)
	}
	if existing != nil {
		if err := commit(tx); err != nil {
			return metadb.PutNo, err
		}
		if existing.EqualIsomorphic(*meta) {
			return metadb.PutNo, nil
		}
		return metadb.PutNo, errTxIDInvariant(meta)
	}

	// No row for this account: whether the transaction id is known at
	// all decides between the Tx and Meta outcomes.
	var knownRows int64
	err = tx.QueryRowContext(ctx, d.rebind(
		"SELECT COUNT(*) FROM tx_metas WHERE txid = ?"), txid).
		Scan(&knownRows)
	if err != nil {
		return metadb.PutNo, rollback(tx, metadb.StoreError(
			metadb.ErrStorage, "count rows for txid", err))
	}

	if err := d.insertMeta(ctx, tx, meta); err != nil {
		if !isUniqueViolation(err) {
			return metadb.PutNo, rollback(tx, metadb.StoreError(
				metadb.ErrStorage, "insert tx meta", err))
		}

		// The store claims the row exists even though the lookup
		// above missed it. Resolve against committed state.
		if rbErr := rollback(tx, nil); rbErr != nil {
			return metadb.PutNo, rbErr
		}
		return d.resolveConflict(ctx, meta)
	}

	if err := commit(tx); err != nil {
		return metadb.PutNo, err
	}

	if knownRows > 0 {
		return metadb.PutMeta, nil
	}
	return metadb.PutTx, nil
}

// insertMeta writes the metadata row and its input/output children. Must be
// called within a transaction.
func (d *DB) insertMeta(ctx context.Context, tx querier,
	meta *txmeta.TxMeta) error {

	txid := meta.TxID.String()
	walletID := meta.WalletID.String()

	_, err := tx.ExecContext(ctx, d.rebind(`
INSERT INTO tx_metas (
	txid, wallet_id, account_index, amount, creation_time,
	is_local, is_outgoing
) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		txid, walletID, meta.AccountIndex, int64(meta.Amount),
		encodeTime(meta.CreationTime), meta.IsLocal, meta.IsOutgoing,
	)
	if err != nil {
		return err
	}

	for i, in := range meta.Inputs {
		_, err := tx.ExecContext(ctx, d.rebind(`
INSERT INTO tx_inputs (
	txid, wallet_id, account_index, input_index, prev_txid,
	prev_index, address, amount
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			txid, walletID, meta.AccountIndex, i,
			in.OutPoint.Hash.String(), in.OutPoint.Index,
			in.Address, int64(in.Amount),
		)
		if err != nil {
			return fmt.Errorf("insert input %d: %w", i, err)
		}
	}

	for i, out := range meta.Outputs {
		_, err := tx.ExecContext(ctx, d.rebind(`
INSERT INTO tx_outputs (
	txid, wallet_id, account_index, output_index, address, amount
) VALUES (?, ?, ?, ?, ?, ?)`),
			txid, walletID, meta.AccountIndex, i, out.Address,
			int64(out.Amount),
		)
		if err != nil {
			return fmt.Errorf("insert output %d: %w", i, err)
		}
	}

	return nil
}

// resolveConflict handles a uniqueness conflict reported by the insert. The
// store is append-only, so the conflicting row must be observable by a
// committed-state lookup; a miss means the store's own consistency is
// broken.
func (d *DB) resolveConflict(ctx context.Context, meta *txmeta.TxMeta) (
	metadb.PutReturn, error) {

	existing, err := d.getMeta(ctx, d.db, meta.TxID, meta.WalletID,
		meta.AccountIndex)
	if err != nil {
		return metadb.PutNo, err
	}
	if existing == nil {
		log.Criticalf("Uniqueness conflict for %v not resolvable by "+
			"lookup", meta)
		return metadb.PutNo, metadb.StoreError(
			metadb.ErrUndisputableLookup,
			fmt.Sprintf("conflict reported for key (%v, %v, %d) "+
				"but no row found", meta.TxID, meta.WalletID,
				meta.AccountIndex), nil,
		)
	}

	if existing.EqualIsomorphic(*meta) {
		return metadb.PutNo, nil
	}
	return metadb.PutNo, errTxIDInvariant(meta)
}

func errTxIDInvariant(meta *txmeta.TxMeta) error {
	return metadb.StoreError(metadb.ErrTxIDInvariant,
		fmt.Sprintf("tx %v already recorded with different data for "+
			"wallet %v account %d", meta.TxID, meta.WalletID,
			meta.AccountIndex), nil)
}
