// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqldb_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/btcsuite/txmetadb/internal/txtest"
	"github.com/btcsuite/txmetadb/metadb"
	"github.com/btcsuite/txmetadb/metadb/memdb"
	"github.com/btcsuite/txmetadb/metadb/metadbtest"
	"github.com/btcsuite/txmetadb/metadb/sqldb"
	"github.com/stretchr/testify/require"
)

// TestSQLiteStoreConformance runs the shared store suite against a
// file-backed SQLite store. The embedded driver needs no external service,
// so this runs with the regular unit tests; the Postgres variant lives
// behind the integration_test tag.
func TestSQLiteStoreConformance(t *testing.T) {
	metadbtest.RunStoreTests(t, func(t *testing.T) metadb.MetaDB {
		db, err := sqldb.OpenSQLite(
			filepath.Join(t.TempDir(), "metas.sqlite"),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, db.Close())
		})
		return db
	})
}

// TestSQLitePersistence verifies that rows survive a close/reopen cycle of
// the same database file.
func TestSQLitePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "metas.sqlite")

	db, err := sqldb.OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.MigrateSchema(ctx))

	m := txtest.MetaN(1, txtest.WalletID(0), 0)
	_, err = db.PutTxMetaT(ctx, m)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = sqldb.OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.MigrateSchema(ctx))

	got, err := db.GetTxMeta(ctx, m.TxID, m.WalletID, m.AccountIndex)
	require.NoError(t, err)
	require.True(t, got.IsSome())
}

// TestRandomizedAgainstModel cross-checks the SQL store against the
// in-memory store with pseudo-random operation sequences.
func TestRandomizedAgainstModel(t *testing.T) {
	for seed := int64(1); seed <= 3; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			t.Parallel()

			model := memdb.New()
			defer model.Close()

			subject, err := sqldb.OpenSQLite(
				filepath.Join(t.TempDir(), "metas.sqlite"),
			)
			require.NoError(t, err)
			defer subject.Close()
			require.NoError(t,
				subject.MigrateSchema(context.Background()))

			txtest.RunRandomizedOps(t, model, subject, seed, 200)
		})
	}
}
