// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txmeta defines the transaction metadata record tracked per wallet
// account, along with the equality relations used by the storage engine to
// classify incoming records. A record describes how a single transaction
// touched a single account: the outputs it consumed, the outputs it produced,
// and flags derived from address ownership. Records are uniquely addressed by
// the composite key (transaction id, wallet id, account index); the same
// transaction id may legitimately appear under several accounts, for example
// when an internal transfer is visible to both the sending and the receiving
// account.
package txmeta

import (
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrNoInputs is returned when a TxMeta carries no inputs. A valid
	// transaction always consumes at least one output.
	ErrNoInputs = errors.New("tx meta has no inputs")

	// ErrNoOutputs is returned when a TxMeta carries no outputs. A valid
	// transaction always produces at least one output.
	ErrNoOutputs = errors.New("tx meta has no outputs")
)

// Input describes an output consumed by a transaction: the outpoint being
// spent, the address it paid to, and its value.
type Input struct {
	// OutPoint is the unique reference to the output being spent.
	OutPoint wire.OutPoint

	// Address is the address the spent output paid to.
	Address string

	// Amount is the value of the spent output.
	Amount btcutil.Amount
}

// Output describes an output produced by a transaction.
type Output struct {
	// Address is the address the output pays to.
	Address string

	// Amount is the value of the output.
	Amount btcutil.Amount
}

// TxMeta is one row of transaction metadata, scoped to a single account of a
// single wallet. Rows are created once and never updated in place; the
// storage engine is the sole writer.
type TxMeta struct {
	// TxID is the hash of the transaction this record describes.
	TxID chainhash.Hash

	// WalletID is the root identifier of the owning wallet.
	WalletID WalletID

	// AccountIndex is the account within the wallet this row is scoped
	// to.
	//
	// NOTE: uint32 is used to ensure compatibility with standard SQL
	// databases (signed 64-bit integers).
	AccountIndex uint32

	// Amount is the total value associated with the transaction for this
	// account.
	Amount btcutil.Amount

	// Inputs are the outputs consumed by the transaction, in transaction
	// order. Never empty.
	Inputs []Input

	// Outputs are the outputs produced by the transaction, in transaction
	// order. Never empty.
	Outputs []Output

	// CreationTime is the time the metadata was recorded.
	CreationTime time.Time

	// IsLocal is true iff every input and output address belongs to the
	// owning wallet.
	IsLocal bool

	// IsOutgoing is true iff the transaction decreases this account's
	// balance.
	IsOutgoing bool
}

// Validate checks the structural invariants of the record. It is called by
// storage backends before any write.
func (m *TxMeta) Validate() error {
	if len(m.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(m.Outputs) == 0 {
		return ErrNoOutputs
	}
	return nil
}

// Copy returns a deep copy of the record. The input and output slices of the
// copy do not alias the originals.
func (m *TxMeta) Copy() TxMeta {
	cp := *m
	cp.Inputs = make([]Input, len(m.Inputs))
	copy(cp.Inputs, m.Inputs)
	cp.Outputs = make([]Output, len(m.Outputs))
	copy(cp.Outputs, m.Outputs)
	return cp
}

// String returns a human-readable summary of the record for diagnostics.
func (m TxMeta) String() string {
	return fmt.Sprintf("txmeta(txid=%v, wallet=%v, account=%d, "+
		"amount=%v, inputs=%d, outputs=%d, local=%t, outgoing=%t)",
		m.TxID, m.WalletID, m.AccountIndex, m.Amount, len(m.Inputs),
		len(m.Outputs), m.IsLocal, m.IsOutgoing)
}
