// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txmeta

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWalletIDRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0xab}, WalletIDSize)
	id, err := NewWalletID(raw)
	require.NoError(t, err)
	require.Equal(t, raw, id[:])

	parsed, err := NewWalletIDFromStr(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestWalletIDInvalid(t *testing.T) {
	_, err := NewWalletID(make([]byte, WalletIDSize-1))
	require.Error(t, err)

	_, err = NewWalletIDFromStr("abcd")
	require.Error(t, err)

	// Right length, not hex.
	notHex := string(bytes.Repeat([]byte{'x'}, WalletIDSize*2))
	_, err = NewWalletIDFromStr(notHex)
	require.Error(t, err)
}
