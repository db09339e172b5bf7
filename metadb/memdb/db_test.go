// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package memdb_test

import (
	"context"
	"testing"

	"github.com/btcsuite/txmetadb/internal/txtest"
	"github.com/btcsuite/txmetadb/metadb"
	"github.com/btcsuite/txmetadb/metadb/memdb"
	"github.com/btcsuite/txmetadb/metadb/metadbtest"
	"github.com/btcsuite/txmetadb/txmeta"
	"github.com/stretchr/testify/require"
)

// TestStoreConformance runs the shared store suite against the in-memory
// backend.
func TestStoreConformance(t *testing.T) {
	metadbtest.RunStoreTests(t, func(t *testing.T) metadb.MetaDB {
		db := memdb.New()
		t.Cleanup(func() {
			require.NoError(t, db.Close())
		})
		return db
	})
}

// TestInsertionOrderDefault verifies that unsorted queries return rows in
// insertion order, which is what keeps unsorted pagination deterministic on
// this backend.
func TestInsertionOrderDefault(t *testing.T) {
	ctx := context.Background()
	db := memdb.New()
	defer db.Close()

	wallet := txtest.WalletID(0)
	// Seeds chosen out of order so that insertion order differs from any
	// derived ordering.
	seeds := []uint32{7, 2, 9, 4}
	for _, n := range seeds {
		_, err := db.PutTxMetaT(ctx, txtest.MetaN(n, wallet, 0))
		require.NoError(t, err)
	}

	page, err := db.GetTxMetas(ctx, &metadb.Query{})
	require.NoError(t, err)
	require.Len(t, page.Metas, len(seeds))
	for i, n := range seeds {
		require.Equal(t, txtest.TxID(n), page.Metas[i].TxID)
	}
}

// TestResultIsolation verifies that mutating a returned row does not leak
// into the store.
func TestResultIsolation(t *testing.T) {
	ctx := context.Background()
	db := memdb.New()
	defer db.Close()

	m := txtest.MetaN(1, txtest.WalletID(0), 0)
	_, err := db.PutTxMetaT(ctx, m)
	require.NoError(t, err)

	got, err := db.GetTxMeta(ctx, m.TxID, m.WalletID, m.AccountIndex)
	require.NoError(t, err)
	leaked := got.UnwrapOr(txmeta.TxMeta{})
	leaked.Inputs[0].Address = "mutated"

	again, err := db.GetTxMeta(ctx, m.TxID, m.WalletID, m.AccountIndex)
	require.NoError(t, err)
	require.True(t, m.Equal(again.UnwrapOr(txmeta.TxMeta{})))
}

// TestOperationsAfterClose verifies that a closed handle rejects further
// operations.
func TestOperationsAfterClose(t *testing.T) {
	ctx := context.Background()
	db := memdb.New()
	require.NoError(t, db.Close())

	_, err := db.PutTxMetaT(ctx, txtest.MetaN(1, txtest.WalletID(0), 0))
	require.True(t, metadb.IsError(err, metadb.ErrStorage))

	_, err = db.GetAllTxMetas(ctx)
	require.True(t, metadb.IsError(err, metadb.ErrStorage))
}
