// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet holds the boundary data types describing wallets and their
// accounts as outer layers pass them around. The types carry no behavior;
// the metadata store itself only ever sees the identifiers embedded in
// txmeta records.
package wallet

import (
	"time"

	"github.com/btcsuite/txmetadb/txmeta"
)

// Wallet describes a wallet known to the backend.
type Wallet struct {
	// ID is the stable identifier derived from the wallet's root key
	// material.
	ID txmeta.WalletID

	// Name is the user-facing label of the wallet.
	Name string

	// CreationTime is the time the wallet was created.
	CreationTime time.Time
}

// Account describes one account within a wallet.
type Account struct {
	// WalletID identifies the owning wallet.
	WalletID txmeta.WalletID

	// Index is the account's position within the wallet. Indexes are
	// assigned sequentially and never reused.
	Index uint32

	// Name is the user-facing label of the account.
	Name string

	// CreationTime is the time the account was created.
	CreationTime time.Time
}

// NewAccount carries the caller-supplied fields of an account creation
// request; the index and creation time are assigned by the backend.
type NewAccount struct {
	// WalletID identifies the wallet the account is created in.
	WalletID txmeta.WalletID

	// Name is the user-facing label of the new account.
	Name string
}
