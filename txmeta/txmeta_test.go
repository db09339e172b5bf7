// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txmeta

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func testHash(n uint32) chainhash.Hash {
	var seed [8]byte
	binary.BigEndian.PutUint32(seed[:4], n)
	return chainhash.DoubleHashH(seed[:])
}

func testWalletID(n uint32) WalletID {
	var id WalletID
	binary.BigEndian.PutUint32(id[WalletIDSize-4:], n)
	return id
}

func testMeta() TxMeta {
	return TxMeta{
		TxID:         testHash(1),
		WalletID:     testWalletID(1),
		AccountIndex: 0,
		Amount:       btcutil.Amount(50_000),
		Inputs: []Input{
			{
				OutPoint: wire.OutPoint{
					Hash: testHash(2), Index: 0,
				},
				Address: "addr-in-0",
				Amount:  btcutil.Amount(30_000),
			},
			{
				OutPoint: wire.OutPoint{
					Hash: testHash(3), Index: 1,
				},
				Address: "addr-in-1",
				Amount:  btcutil.Amount(20_000),
			},
		},
		Outputs: []Output{
			{Address: "addr-out-0", Amount: btcutil.Amount(45_000)},
			{Address: "addr-out-1", Amount: btcutil.Amount(5_000)},
		},
		CreationTime: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		IsLocal:      true,
		IsOutgoing:   false,
	}
}

func reverseInputs(m TxMeta) TxMeta {
	c := m.Copy()
	for i, j := 0, len(c.Inputs)-1; i < j; i, j = i+1, j-1 {
		c.Inputs[i], c.Inputs[j] = c.Inputs[j], c.Inputs[i]
	}
	return c
}

func TestEqual(t *testing.T) {
	m := testMeta()
	require.True(t, m.Equal(m.Copy()))

	// Every scalar field participates in equality.
	mutations := []func(*TxMeta){
		func(c *TxMeta) { c.TxID = testHash(99) },
		func(c *TxMeta) { c.WalletID = testWalletID(99) },
		func(c *TxMeta) { c.AccountIndex++ },
		func(c *TxMeta) { c.Amount++ },
		func(c *TxMeta) {
			c.CreationTime = c.CreationTime.Add(time.Second)
		},
		func(c *TxMeta) { c.IsLocal = !c.IsLocal },
		func(c *TxMeta) { c.IsOutgoing = !c.IsOutgoing },
		func(c *TxMeta) { c.Inputs[0].Amount++ },
		func(c *TxMeta) { c.Outputs[0].Address = "other" },
		func(c *TxMeta) { c.Inputs = c.Inputs[:1] },
		func(c *TxMeta) { c.Outputs = c.Outputs[:1] },
	}
	for i, mutate := range mutations {
		c := m.Copy()
		mutate(&c)
		require.False(t, m.Equal(c), "mutation %d", i)
	}

	// A wall-clock-equal time in another location still compares equal.
	c := m.Copy()
	c.CreationTime = c.CreationTime.In(time.FixedZone("X", 3600))
	require.True(t, m.Equal(c))
}

func TestEqualInputOrder(t *testing.T) {
	m := testMeta()
	permuted := reverseInputs(m)

	// Exact equality is sensitive to input order, the isomorphic relation
	// is not.
	require.False(t, m.Equal(permuted))
	require.True(t, m.EqualIsomorphic(permuted))
	require.True(t, m.EqualTransaction(permuted))

	// Output order is significant under every relation.
	swapped := m.Copy()
	swapped.Outputs[0], swapped.Outputs[1] =
		swapped.Outputs[1], swapped.Outputs[0]
	require.False(t, m.Equal(swapped))
	require.False(t, m.EqualIsomorphic(swapped))
	require.False(t, m.EqualTransaction(swapped))
}

func TestEqualImpliesIsomorphic(t *testing.T) {
	m := testMeta()
	c := m.Copy()
	require.True(t, m.Equal(c))
	require.True(t, m.EqualIsomorphic(c))
	require.True(t, m.EqualTransaction(c))
}

func TestEqualInputMultiset(t *testing.T) {
	// Duplicated inputs: {a, a, b} and {a, b, b} have the same input set
	// but different multisets, so they must not compare isomorphic.
	m := testMeta()
	a, b := m.Inputs[0], m.Inputs[1]

	left := m.Copy()
	left.Inputs = []Input{a, a, b}
	right := m.Copy()
	right.Inputs = []Input{a, b, b}

	require.False(t, left.EqualIsomorphic(right))
	require.False(t, left.EqualTransaction(right))
}

func TestEqualTransactionIgnoresScope(t *testing.T) {
	m := testMeta()

	// A copy scoped to another account of another wallet, with different
	// account-level fields, still describes the same transaction.
	c := m.Copy()
	c.WalletID = testWalletID(2)
	c.AccountIndex = 7
	c.Amount = -c.Amount
	c.CreationTime = c.CreationTime.Add(time.Hour)
	c.IsLocal = !c.IsLocal
	c.IsOutgoing = !c.IsOutgoing

	require.False(t, m.Equal(c))
	require.False(t, m.EqualIsomorphic(c))
	require.True(t, m.EqualTransaction(c))

	// A different transaction id breaks the relation.
	c.TxID = testHash(99)
	require.False(t, m.EqualTransaction(c))
}

func TestValidate(t *testing.T) {
	m := testMeta()
	require.NoError(t, m.Validate())

	noInputs := m.Copy()
	noInputs.Inputs = nil
	require.ErrorIs(t, noInputs.Validate(), ErrNoInputs)

	noOutputs := m.Copy()
	noOutputs.Outputs = nil
	require.ErrorIs(t, noOutputs.Validate(), ErrNoOutputs)
}

func TestCopy(t *testing.T) {
	m := testMeta()
	c := m.Copy()
	require.True(t, m.Equal(c))

	// The copy must not alias the original's slices.
	c.Inputs[0].Address = "mutated"
	c.Outputs[0].Address = "mutated"
	require.Equal(t, "addr-in-0", m.Inputs[0].Address)
	require.Equal(t, "addr-out-0", m.Outputs[0].Address)
}
