// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txmeta

import (
	"encoding/hex"
	"fmt"
)

// WalletIDSize is the size of a wallet root identifier in bytes.
const WalletIDSize = 20

// WalletID identifies a wallet by the hash of its root key material. It is
// an opaque fixed-size value as far as this package is concerned; the wallet
// layer is responsible for deriving it.
type WalletID [WalletIDSize]byte

// String returns the WalletID as a hexadecimal string.
func (w WalletID) String() string {
	return hex.EncodeToString(w[:])
}

// NewWalletID returns a new WalletID from a byte slice. An error is returned
// if the slice is not exactly WalletIDSize bytes long.
func NewWalletID(b []byte) (WalletID, error) {
	var id WalletID
	if len(b) != WalletIDSize {
		return id, fmt.Errorf("invalid wallet id length of %d, want %d",
			len(b), WalletIDSize)
	}
	copy(id[:], b)
	return id, nil
}

// NewWalletIDFromStr parses a WalletID from its hexadecimal string form.
func NewWalletIDFromStr(s string) (WalletID, error) {
	var id WalletID
	if len(s) != WalletIDSize*2 {
		return id, fmt.Errorf("invalid wallet id hex length of %d, "+
			"want %d", len(s), WalletIDSize*2)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid wallet id hex: %w", err)
	}
	copy(id[:], b)
	return id, nil
}
