// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txtest

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/btcsuite/txmetadb/metadb"
	"github.com/btcsuite/txmetadb/txmeta"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// RunRandomizedOps drives the same pseudo-random operation sequence against
// a model store and a subject store and requires them to agree at every
// step. The sequence is fully determined by the seed, so failures
// reproduce. Operations are drawn from a small key space on purpose:
// collisions are what exercise the put classification and the tx id
// invariant.
func RunRandomizedOps(t *testing.T, model, subject metadb.MetaDB,
	seed int64, numOps int) {

	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	ctx := context.Background()
	txIDs := UniqueTxIDs(8)
	wallets := UniqueWalletIDs(3)

	randMeta := func() *txmeta.TxMeta {
		m := Meta(
			txIDs[rng.Intn(len(txIDs))],
			wallets[rng.Intn(len(wallets))],
			uint32(rng.Intn(3)),
		)
		// Occasionally diverge from the canonical record for the key,
		// so replays of the key trip the invariant check.
		if rng.Intn(8) == 0 {
			m.Amount++
		}
		// Input order must never influence any outcome.
		if rng.Intn(2) == 0 {
			m = PermuteInputs(m)
		}
		return m
	}

	for op := 0; op < numOps; op++ {
		switch rng.Intn(10) {
		case 0, 1, 2, 3, 4, 5:
			m := randMeta()
			mRet, mErr := model.PutTxMetaT(ctx, m)
			sRet, sErr := subject.PutTxMetaT(ctx, m)

			require.Equal(t, mErr == nil, sErr == nil,
				"op %d: put errors diverge: model=%v "+
					"subject=%v", op, mErr, sErr)
			if mErr != nil {
				require.Equal(t,
					metadb.IsInvariantViolation(mErr),
					metadb.IsInvariantViolation(sErr),
					"op %d: error classes diverge", op)
				continue
			}
			require.Equal(t, mRet, sRet,
				"op %d: put outcomes diverge for %v", op, m)

		case 6:
			id := txIDs[rng.Intn(len(txIDs))]
			w := wallets[rng.Intn(len(wallets))]
			acct := uint32(rng.Intn(3))

			mGot, mErr := model.GetTxMeta(ctx, id, w, acct)
			sGot, sErr := subject.GetTxMeta(ctx, id, w, acct)
			require.NoError(t, mErr)
			require.NoError(t, sErr)
			require.Equal(t, mGot.IsSome(), sGot.IsSome(),
				"op %d: presence diverges", op)
			if mGot.IsSome() {
				a := mGot.UnwrapOr(txmeta.TxMeta{})
				b := sGot.UnwrapOr(txmeta.TxMeta{})
				require.True(t, a.Equal(b),
					"op %d: rows diverge: %v vs %v",
					op, a, b)
			}

		case 7:
			w := wallets[rng.Intn(len(wallets))]
			acct := fn.Some(uint32(rng.Intn(3)))
			require.NoError(t, model.DeleteTxMetas(ctx, w, acct))
			require.NoError(t, subject.DeleteTxMetas(ctx, w, acct))

		case 8:
			w := wallets[rng.Intn(len(wallets))]
			none := fn.None[uint32]()
			require.NoError(t, model.DeleteTxMetas(ctx, w, none))
			require.NoError(t, subject.DeleteTxMetas(ctx, w, none))

		case 9:
			q := &metadb.Query{
				Account: metadb.FilterWallet(
					wallets[rng.Intn(len(wallets))],
				),
			}
			mPage, mErr := model.GetTxMetas(ctx, q)
			sPage, sErr := subject.GetTxMetas(ctx, q)
			require.NoError(t, mErr)
			require.NoError(t, sErr)
			requireSameSet(t, mPage.Metas, sPage.Metas, op)
		}
	}

	mAll, err := model.GetAllTxMetas(ctx)
	require.NoError(t, err)
	sAll, err := subject.GetAllTxMetas(ctx)
	require.NoError(t, err)
	requireSameSet(t, mAll, sAll, numOps)
}

func requireSameSet(t *testing.T, want, got []txmeta.TxMeta, op int) {
	t.Helper()

	byKey := func(metas []txmeta.TxMeta) []txmeta.TxMeta {
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

	want, got = byKey(want), byKey(got)
	require.Len(t, got, len(want), "op %d: result sizes diverge", op)
	for i := range want {
		require.True(t, want[i].Equal(got[i]),
			"op %d: row %d diverges: %v vs %v", op, i, want[i],
			got[i])
	}
}
