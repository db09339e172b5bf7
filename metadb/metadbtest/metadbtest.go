// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metadbtest provides a conformance suite for metadb.MetaDB
// implementations. Every backend runs the same suite against its own
// factory, so behavioral differences between backends show up as test
// failures rather than production surprises.
package metadbtest

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/txmetadb/internal/txtest"
	"github.com/btcsuite/txmetadb/metadb"
	"github.com/btcsuite/txmetadb/txmeta"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// Factory creates a fresh, empty store for one test. The factory is
// responsible for cleanup via t.Cleanup; the suite migrates the schema
// before use.
type Factory func(t *testing.T) metadb.MetaDB

// RunStoreTests runs the full conformance suite against stores produced by
// the factory.
func RunStoreTests(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, db metadb.MetaDB)
	}{
		{"PutClassification", testPutClassification},
		{"PutTxIDInvariant", testPutTxIDInvariant},
		{"PutValidation", testPutValidation},
		{"PutConcurrentSameKey", testPutConcurrentSameKey},
		{"PutConcurrentAccounts", testPutConcurrentAccounts},
		{"GetTxMeta", testGetTxMeta},
		{"AccountFilter", testAccountFilter},
		{"AddressFilter", testAddressFilter},
		{"TxIDFilter", testTxIDFilter},
		{"CreationTimeFilter", testCreationTimeFilter},
		{"Sorting", testSorting},
		{"Pagination", testPagination},
		{"TotalCount", testTotalCount},
		{"Delete", testDelete},
		{"DeleteThenReinsert", testDeleteThenReinsert},
		{"MigrateIdempotent", testMigrateIdempotent},
		{"ClosedStore", testClosedStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newStore(t)
			ctx := context.Background()
			require.NoError(t, db.MigrateSchema(ctx))
			tt.fn(t, db)
		})
	}
}

// queryTime returns the i-th of a series of distinct, strictly increasing
// timestamps used to control sort and filter outcomes.
func queryTime(i int) time.Time {
	anchor := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	return anchor.Add(time.Duration(i) * time.Hour)
}

func putT(t *testing.T, db metadb.MetaDB,
	m *txmeta.TxMeta) metadb.PutReturn {

	t.Helper()

	ret, err := db.PutTxMetaT(context.Background(), m)
	require.NoError(t, err)
	return ret
}

// requireSameMetas asserts that got holds exactly the expected rows, in
// order.
func requireSameMetas(t *testing.T, want, got []txmeta.TxMeta) {
	t.Helper()

	require.Len(t, got, len(want))
	for i := range want {
		require.True(t, want[i].Equal(got[i]),
			"row %d: want %v, got %v", i, want[i], got[i])
	}
}

// requireSameMetaSet asserts that got holds exactly the expected rows,
// disregarding order.
func requireSameMetaSet(t *testing.T, want, got []txmeta.TxMeta) {
	t.Helper()

	sortByKey := func(metas []txmeta.TxMeta) []txmeta.TxMeta {
		s := make([]txmeta.TxMeta, len(metas))
		copy(s, metas)
		sort.Slice(s, func(i, j int) bool {
			a, b := &s[i], &s[j]
			if a.TxID != b.TxID {
				return a.TxID.String() < b.TxID.String()
			}
			if a.WalletID != b.WalletID {
				return a.WalletID.String() < b.WalletID.String()
			}
			return a.AccountIndex < b.AccountIndex
		})
		return s
	}
	requireSameMetas(t, sortByKey(want), sortByKey(got))
}

func testPutClassification(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallets := txtest.UniqueWalletIDs(2)
	m := txtest.MetaN(1, wallets[0], 0)

	// First sighting of the transaction.
	require.Equal(t, metadb.PutTx, putT(t, db, m))

	// Identical replay writes nothing.
	require.Equal(t, metadb.PutNo, putT(t, db, m))

	// A replay with permuted inputs is still the same record.
	permuted := txtest.PermuteInputs(m)
	require.Equal(t, metadb.PutNo, putT(t, db, permuted))

	// The same transaction under another account of the same wallet is a
	// new association, not a new transaction.
	otherAcct := m.Copy()
	otherAcct.AccountIndex = 1
	require.Equal(t, metadb.PutMeta, putT(t, db, &otherAcct))

	// Likewise under another wallet.
	otherWallet := m.Copy()
	otherWallet.WalletID = wallets[1]
	require.Equal(t, metadb.PutMeta, putT(t, db, &otherWallet))

	all, err := db.GetAllTxMetas(ctx)
	require.NoError(t, err)
	requireSameMetaSet(t, []txmeta.TxMeta{*m, otherAcct, otherWallet}, all)
}

func testPutTxIDInvariant(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallet := txtest.WalletID(0)
	m := txtest.MetaN(1, wallet, 0)
	require.Equal(t, metadb.PutTx, putT(t, db, m))

	// Same composite key, different amount.
	bad := m.Copy()
	bad.Amount++
	ret, err := db.PutTxMetaT(ctx, &bad)
	require.Equal(t, metadb.PutNo, ret)
	require.True(t, metadb.IsError(err, metadb.ErrTxIDInvariant),
		"want ErrTxIDInvariant, got %v", err)

	// Output order is significant, unlike input order.
	badOutputs := m.Copy()
	badOutputs.Outputs[0], badOutputs.Outputs[1] =
		badOutputs.Outputs[1], badOutputs.Outputs[0]
	_, err = db.PutTxMetaT(ctx, &badOutputs)
	require.True(t, metadb.IsError(err, metadb.ErrTxIDInvariant),
		"want ErrTxIDInvariant, got %v", err)

	// The unconditional put surfaces the same violation.
	err = db.PutTxMeta(ctx, &bad)
	require.True(t, metadb.IsError(err, metadb.ErrTxIDInvariant),
		"want ErrTxIDInvariant, got %v", err)

	// The failed puts left the stored row untouched.
	stored, err := db.GetTxMeta(ctx, m.TxID, m.WalletID, m.AccountIndex)
	require.NoError(t, err)
	require.True(t, stored.IsSome())
	require.True(t, m.Equal(stored.UnwrapOr(txmeta.TxMeta{})))
}

func testPutValidation(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallet := txtest.WalletID(0)

	noInputs := txtest.MetaN(1, wallet, 0)
	noInputs.Inputs = nil
	_, err := db.PutTxMetaT(ctx, noInputs)
	require.ErrorIs(t, err, txmeta.ErrNoInputs)

	noOutputs := txtest.MetaN(1, wallet, 0)
	noOutputs.Outputs = nil
	_, err = db.PutTxMetaT(ctx, noOutputs)
	require.ErrorIs(t, err, txmeta.ErrNoOutputs)

	all, err := db.GetAllTxMetas(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func testPutConcurrentSameKey(t *testing.T, db metadb.MetaDB) {
	const workers = 4

	m := txtest.MetaN(1, txtest.WalletID(0), 0)
	results := make([]metadb.PutReturn, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = db.PutTxMetaT(
				context.Background(), m,
			)
		}()
	}
	wg.Wait()

	// Exactly one caller wins the insert; everyone else observes an
	// identical replay.
	var txCount, noCount int
	for i := range workers {
		require.NoError(t, errs[i])
		switch results[i] {
		case metadb.PutTx:
			txCount++
		case metadb.PutNo:
			noCount++
		}
	}
	require.Equal(t, 1, txCount)
	require.Equal(t, workers-1, noCount)
}

func testPutConcurrentAccounts(t *testing.T, db metadb.MetaDB) {
	const workers = 4

	wallet := txtest.WalletID(0)
	results := make([]metadb.PutReturn, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := txtest.MetaN(1, wallet, uint32(i))
			results[i], errs[i] = db.PutTxMetaT(
				context.Background(), m,
			)
		}()
	}
	wg.Wait()

	// The transaction is new exactly once; every other account gets the
	// association outcome, regardless of scheduling.
	var txCount, metaCount int
	for i := range workers {
		require.NoError(t, errs[i])
		switch results[i] {
		case metadb.PutTx:
			txCount++
		case metadb.PutMeta:
			metaCount++
		}
	}
	require.Equal(t, 1, txCount)
	require.Equal(t, workers-1, metaCount)
}

func testGetTxMeta(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallet := txtest.WalletID(0)
	m := txtest.MetaN(1, wallet, 0)

	// Absent key.
	got, err := db.GetTxMeta(ctx, m.TxID, wallet, 0)
	require.NoError(t, err)
	require.True(t, got.IsNone())

	require.Equal(t, metadb.PutTx, putT(t, db, m))

	// The roundtrip preserves every field, including input order.
	got, err = db.GetTxMeta(ctx, m.TxID, wallet, 0)
	require.NoError(t, err)
	require.True(t, got.IsSome())
	require.True(t, m.Equal(got.UnwrapOr(txmeta.TxMeta{})))

	// Same transaction id under a different account is a different row.
	got, err = db.GetTxMeta(ctx, m.TxID, wallet, 1)
	require.NoError(t, err)
	require.True(t, got.IsNone())
}

func testAccountFilter(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallets := txtest.UniqueWalletIDs(2)

	var (
		n    uint32
		rows = make(map[[2]uint32]txmeta.TxMeta)
	)
	for wi, w := range wallets {
		for acct := range uint32(2) {
			m := txtest.MetaN(n, w, acct)
			n++
			require.Equal(t, metadb.PutTx, putT(t, db, m))
			rows[[2]uint32{uint32(wi), acct}] = *m
		}
	}

	query := func(f metadb.AccountFilter) []txmeta.TxMeta {
		page, err := db.GetTxMetas(ctx, &metadb.Query{Account: f})
		require.NoError(t, err)
		return page.Metas
	}

	all := query(metadb.FilterAllWallets())
	require.Len(t, all, 4)

	requireSameMetaSet(t, []txmeta.TxMeta{
		rows[[2]uint32{0, 0}], rows[[2]uint32{0, 1}],
	}, query(metadb.FilterWallet(wallets[0])))

	requireSameMetaSet(t, []txmeta.TxMeta{
		rows[[2]uint32{1, 1}],
	}, query(metadb.FilterWalletAccount(wallets[1], 1)))

	// An unknown wallet matches nothing.
	require.Empty(t, query(metadb.FilterWallet(txtest.WalletID(99))))
}

func testAddressFilter(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallet := txtest.WalletID(0)

	m1 := txtest.MetaN(1, wallet, 0)
	m2 := txtest.MetaN(2, wallet, 0)
	require.Equal(t, metadb.PutTx, putT(t, db, m1))
	require.Equal(t, metadb.PutTx, putT(t, db, m2))

	query := func(f metadb.Filter[string]) []txmeta.TxMeta {
		page, err := db.GetTxMetas(ctx, &metadb.Query{Address: f})
		require.NoError(t, err)
		return page.Metas
	}

	// Input address membership.
	requireSameMetaSet(t, []txmeta.TxMeta{*m1},
		query(metadb.FilterExactly(m1.Inputs[0].Address)))

	// Output address membership.
	requireSameMetaSet(t, []txmeta.TxMeta{*m1},
		query(metadb.FilterExactly(m1.Outputs[1].Address)))

	// Set membership across rows.
	requireSameMetaSet(t, []txmeta.TxMeta{*m1, *m2},
		query(metadb.FilterAnyOf(
			m1.Inputs[0].Address, m2.Outputs[0].Address,
		)))

	// The empty set matches nothing.
	require.Empty(t, query(metadb.FilterAnyOf[string]()))

	// An address nothing references matches nothing.
	require.Empty(t, query(metadb.FilterExactly("bc1qunknown")))
}

func testTxIDFilter(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallet := txtest.WalletID(0)
	ids := txtest.UniqueTxIDs(3)

	metas := make([]txmeta.TxMeta, len(ids))
	for i, id := range ids {
		m := txtest.Meta(id, wallet, 0)
		require.Equal(t, metadb.PutTx, putT(t, db, m))
		metas[i] = *m
	}

	query := func(f metadb.Filter[chainhash.Hash]) []txmeta.TxMeta {
		page, err := db.GetTxMetas(ctx, &metadb.Query{TxID: f})
		require.NoError(t, err)
		return page.Metas
	}

	requireSameMetaSet(t, []txmeta.TxMeta{metas[1]},
		query(metadb.FilterExactly(ids[1])))

	requireSameMetaSet(t, []txmeta.TxMeta{metas[0], metas[2]},
		query(metadb.FilterAnyOf(ids[0], ids[2])))

	// Ordered comparisons use the hexadecimal string form of the id.
	pivot := ids[1]
	var want []txmeta.TxMeta
	for i, id := range ids {
		if id.String() > pivot.String() {
			want = append(want, metas[i])
		}
	}
	requireSameMetaSet(t, want,
		query(metadb.FilterWhere(metadb.OrderGt, pivot)))
}

func testCreationTimeFilter(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallet := txtest.WalletID(0)

	metas := make([]txmeta.TxMeta, 4)
	for i := range metas {
		m := txtest.MetaN(uint32(i), wallet, 0)
		m.CreationTime = queryTime(i)
		require.Equal(t, metadb.PutTx, putT(t, db, m))
		metas[i] = *m
	}

	query := func(f metadb.Filter[time.Time]) []txmeta.TxMeta {
		page, err := db.GetTxMetas(ctx, &metadb.Query{
			CreationTime: f,
		})
		require.NoError(t, err)
		return page.Metas
	}

	requireSameMetaSet(t, metas[2:],
		query(metadb.FilterWhere(metadb.OrderGte, queryTime(2))))

	requireSameMetaSet(t, metas[:2],
		query(metadb.FilterWhere(metadb.OrderLt, queryTime(2))))

	// Both range ends are inclusive.
	requireSameMetaSet(t, metas[1:3],
		query(metadb.FilterBetween(queryTime(1), queryTime(2))))
}

func testSorting(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallet := txtest.WalletID(0)

	// Rows crafted so that the amount order is the reverse of the time
	// order.
	metas := make([]txmeta.TxMeta, 3)
	for i := range metas {
		m := txtest.MetaN(uint32(i), wallet, 0)
		m.CreationTime = queryTime(i)
		m.Amount = btcutil.Amount(100 - 10*i)
		require.Equal(t, metadb.PutTx, putT(t, db, m))
		metas[i] = *m
	}

	query := func(s metadb.Sorting) []txmeta.TxMeta {
		page, err := db.GetTxMetas(ctx, &metadb.Query{
			Sort: fn.Some(s),
		})
		require.NoError(t, err)
		return page.Metas
	}

	requireSameMetas(t, []txmeta.TxMeta{metas[0], metas[1], metas[2]},
		query(metadb.Sorting{
			Criteria:  metadb.SortByCreationTime,
			Direction: metadb.SortAscending,
		}))

	requireSameMetas(t, []txmeta.TxMeta{metas[2], metas[1], metas[0]},
		query(metadb.Sorting{
			Criteria:  metadb.SortByCreationTime,
			Direction: metadb.SortDescending,
		}))

	requireSameMetas(t, []txmeta.TxMeta{metas[2], metas[1], metas[0]},
		query(metadb.Sorting{
			Criteria:  metadb.SortByAmount,
			Direction: metadb.SortAscending,
		}))

	requireSameMetas(t, []txmeta.TxMeta{metas[0], metas[1], metas[2]},
		query(metadb.Sorting{
			Criteria:  metadb.SortByAmount,
			Direction: metadb.SortDescending,
		}))
}

func testPagination(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallet := txtest.WalletID(0)

	const rows = 5
	for i := range rows {
		m := txtest.MetaN(uint32(i), wallet, 0)
		m.CreationTime = queryTime(i)
		require.Equal(t, metadb.PutTx, putT(t, db, m))
	}

	sorting := fn.Some(metadb.Sorting{
		Criteria:  metadb.SortByCreationTime,
		Direction: metadb.SortAscending,
	})

	full, err := db.GetTxMetas(ctx, &metadb.Query{Sort: sorting})
	require.NoError(t, err)
	require.Len(t, full.Metas, rows)

	// Fixed-size pages concatenate to the full result set.
	var paged []txmeta.TxMeta
	for offset := metadb.Offset(0); ; offset += 2 {
		page, err := db.GetTxMetas(ctx, &metadb.Query{
			Offset: offset,
			Limit:  fn.Some(metadb.Limit(2)),
			Sort:   sorting,
		})
		require.NoError(t, err)
		if len(page.Metas) == 0 {
			break
		}
		paged = append(paged, page.Metas...)
	}
	requireSameMetas(t, full.Metas, paged)

	// An offset without a limit yields the tail.
	page, err := db.GetTxMetas(ctx, &metadb.Query{
		Offset: 3,
		Sort:   sorting,
	})
	require.NoError(t, err)
	requireSameMetas(t, full.Metas[3:], page.Metas)

	// An offset beyond the result set yields an empty page.
	page, err = db.GetTxMetas(ctx, &metadb.Query{
		Offset: rows + 1,
		Sort:   sorting,
	})
	require.NoError(t, err)
	require.Empty(t, page.Metas)

	// A zero limit yields an empty page; None means unbounded.
	page, err = db.GetTxMetas(ctx, &metadb.Query{
		Limit: fn.Some(metadb.Limit(0)),
		Sort:  sorting,
	})
	require.NoError(t, err)
	require.Empty(t, page.Metas)
}

func testTotalCount(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallets := txtest.UniqueWalletIDs(2)

	for i := range uint32(3) {
		require.Equal(t, metadb.PutTx,
			putT(t, db, txtest.MetaN(i, wallets[0], 0)))
	}
	require.Equal(t, metadb.PutTx,
		putT(t, db, txtest.MetaN(3, wallets[1], 0)))

	// Total reflects the filtered set, not the page.
	page, err := db.GetTxMetas(ctx, &metadb.Query{
		Account: metadb.FilterWallet(wallets[0]),
		Limit:   fn.Some(metadb.Limit(1)),
	})
	require.NoError(t, err)
	require.Len(t, page.Metas, 1)

	if db.CountsTotal() {
		require.Equal(t, uint32(3), page.Total.UnwrapOr(0))
	} else {
		require.True(t, page.Total.IsNone())
	}
}

func testDelete(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallets := txtest.UniqueWalletIDs(2)

	var n uint32
	for _, w := range wallets {
		for acct := range uint32(2) {
			require.Equal(t, metadb.PutTx,
				putT(t, db, txtest.MetaN(n, w, acct)))
			n++
		}
	}

	count := func() int {
		all, err := db.GetAllTxMetas(ctx)
		require.NoError(t, err)
		return len(all)
	}

	// Account scope removes a single account's rows.
	require.NoError(t, db.DeleteTxMetas(
		ctx, wallets[0], fn.Some[uint32](0),
	))
	require.Equal(t, 3, count())

	// Wallet scope removes every remaining row of the wallet.
	require.NoError(t, db.DeleteTxMetas(
		ctx, wallets[0], fn.None[uint32](),
	))
	require.Equal(t, 2, count())

	// Deleting a wallet with no rows is a no-op.
	require.NoError(t, db.DeleteTxMetas(
		ctx, txtest.WalletID(99), fn.None[uint32](),
	))
	require.Equal(t, 2, count())

	require.NoError(t, db.ClearAll(ctx))
	require.Equal(t, 0, count())
}

func testDeleteThenReinsert(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	wallet := txtest.WalletID(0)
	m := txtest.MetaN(1, wallet, 0)

	require.Equal(t, metadb.PutTx, putT(t, db, m))
	require.NoError(t, db.DeleteTxMetas(ctx, wallet, fn.None[uint32]()))

	// With every row of the transaction gone, it counts as never seen.
	require.Equal(t, metadb.PutTx, putT(t, db, m))
}

func testMigrateIdempotent(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()

	// The suite migrated once already; a second run must not disturb
	// existing rows.
	m := txtest.MetaN(1, txtest.WalletID(0), 0)
	require.Equal(t, metadb.PutTx, putT(t, db, m))

	require.NoError(t, db.MigrateSchema(ctx))

	got, err := db.GetTxMeta(ctx, m.TxID, m.WalletID, m.AccountIndex)
	require.NoError(t, err)
	require.True(t, got.IsSome())
}

func testClosedStore(t *testing.T, db metadb.MetaDB) {
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := db.GetTxMeta(
		ctx, txtest.TxID(1), txtest.WalletID(0), 0,
	)
	require.Error(t, err)
}
