// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txtest provides deterministic fixtures for transaction metadata
// tests. Everything here is derived from small integer seeds so that tests
// are reproducible and the test cache stays warm.
package txtest

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/txmetadb/txmeta"
)

// TxID returns a deterministic transaction id derived from n. Distinct seeds
// yield distinct ids.
func TxID(n uint32) chainhash.Hash {
	var seed [8]byte
	copy(seed[:4], []byte("txid"))
	binary.BigEndian.PutUint32(seed[4:], n)
	return chainhash.DoubleHashH(seed[:])
}

// UniqueTxIDs returns n distinct transaction ids. It panics when n is not
// positive, since a test asking for an empty sample is a bug in the test.
func UniqueTxIDs(n int) []chainhash.Hash {
	if n <= 0 {
		panic(fmt.Sprintf("txtest: UniqueTxIDs(%d)", n))
	}
	ids := make([]chainhash.Hash, n)
	for i := range ids {
		ids[i] = TxID(uint32(i))
	}
	return ids
}

// WalletID returns a deterministic wallet id derived from n.
func WalletID(n uint32) txmeta.WalletID {
	var id txmeta.WalletID
	copy(id[:], []byte("wallet"))
	binary.BigEndian.PutUint32(id[txmeta.WalletIDSize-4:], n)
	return id
}

// UniqueWalletIDs returns n distinct wallet ids. It panics when n is not
// positive.
func UniqueWalletIDs(n int) []txmeta.WalletID {
	if n <= 0 {
		panic(fmt.Sprintf("txtest: UniqueWalletIDs(%d)", n))
	}
	ids := make([]txmeta.WalletID, n)
	for i := range ids {
		ids[i] = WalletID(uint32(i))
	}
	return ids
}

// Address returns a deterministic address string derived from n.
func Address(n uint32) string {
	return fmt.Sprintf("bc1qtest%08d", n)
}

// baseTime anchors all fixture timestamps. Metas derived from distinct seeds
// get distinct creation times one minute apart.
var baseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Meta returns a fully populated record under the given composite key. All
// remaining fields are derived deterministically from the transaction id, so
// two calls with the same arguments return equal records.
func Meta(txID chainhash.Hash, walletID txmeta.WalletID,
	accountIndex uint32) *txmeta.TxMeta {

	seed := binary.BigEndian.Uint32(txID[:4])
	return &txmeta.TxMeta{
		TxID:         txID,
		WalletID:     walletID,
		AccountIndex: accountIndex,
		Amount:       btcutil.Amount(10_000 + int64(seed%90_000)),
		Inputs: []txmeta.Input{
			{
				OutPoint: wire.OutPoint{
					Hash:  chainhash.DoubleHashH(txID[:]),
					Index: 0,
				},
				Address: Address(seed),
				Amount:  btcutil.Amount(60_000),
			},
			{
				OutPoint: wire.OutPoint{
					Hash:  chainhash.DoubleHashH(txID[:]),
					Index: 1,
				},
				Address: Address(seed + 1),
				Amount:  btcutil.Amount(40_000),
			},
		},
		Outputs: []txmeta.Output{
			{
				Address: Address(seed + 2),
				Amount:  btcutil.Amount(70_000),
			},
			{
				Address: Address(seed + 3),
				Amount:  btcutil.Amount(30_000),
			},
		},
		CreationTime: baseTime.Add(
			time.Duration(seed%1024) * time.Minute,
		),
		IsLocal:    seed%2 == 0,
		IsOutgoing: seed%3 == 0,
	}
}

// MetaN is shorthand for a record whose transaction id is derived from n.
func MetaN(n uint32, walletID txmeta.WalletID,
	accountIndex uint32) *txmeta.TxMeta {

	return Meta(TxID(n), walletID, accountIndex)
}

// PermuteInputs returns a deep copy of m with its inputs in reverse order.
// The copy is equal to m under the input-order-insensitive relations but not
// under exact equality (for records with at least two distinct inputs).
func PermuteInputs(m *txmeta.TxMeta) *txmeta.TxMeta {
	c := m.Copy()
	for i, j := 0, len(c.Inputs)-1; i < j; i, j = i+1, j-1 {
		c.Inputs[i], c.Inputs[j] = c.Inputs[j], c.Inputs[i]
	}
	return &c
}
