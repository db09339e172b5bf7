// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txtest

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/txmetadb/txmeta"
	"github.com/stretchr/testify/require"
)

func TestUniqueTxIDs(t *testing.T) {
	ids := UniqueTxIDs(32)
	require.Len(t, ids, 32)

	seen := make(map[chainhash.Hash]struct{}, len(ids))
	for _, id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %v", id)
		seen[id] = struct{}{}
	}

	require.Panics(t, func() { UniqueTxIDs(0) })
	require.Panics(t, func() { UniqueTxIDs(-1) })
}

func TestUniqueWalletIDs(t *testing.T) {
	ids := UniqueWalletIDs(16)
	require.Len(t, ids, 16)

	seen := make(map[txmeta.WalletID]struct{}, len(ids))
	for _, id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %v", id)
		seen[id] = struct{}{}
	}

	require.Panics(t, func() { UniqueWalletIDs(0) })
}

func TestMetaDeterminism(t *testing.T) {
	a := MetaN(7, WalletID(1), 2)
	b := MetaN(7, WalletID(1), 2)
	require.True(t, a.Equal(*b))
	require.NoError(t, a.Validate())
}

func TestPermuteInputs(t *testing.T) {
	m := MetaN(1, WalletID(0), 0)
	p := PermuteInputs(m)

	require.False(t, m.Equal(*p))
	require.True(t, m.EqualIsomorphic(*p))

	// The permutation must not touch the original.
	require.Equal(t, 2, len(m.Inputs))
	require.NotEqual(t, m.Inputs[0], m.Inputs[1])
	require.Equal(t, m.Inputs[0], p.Inputs[1])
}
