// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metadb

import (
	"strings"
	"testing"

	"github.com/btcsuite/txmetadb/txmeta"
	"github.com/stretchr/testify/require"
)

func cmpInt(a, b int) int {
	return a - b
}

func TestFilterMatch(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter[int]
		hits   []int
		misses []int
	}{
		{
			name:   "none matches everything",
			filter: NoFilter[int](),
			hits:   []int{-1, 0, 42},
		},
		{
			name:   "exactly",
			filter: FilterExactly(5),
			hits:   []int{5},
			misses: []int{4, 6},
		},
		{
			name:   "where gt",
			filter: FilterWhere(OrderGt, 5),
			hits:   []int{6, 100},
			misses: []int{5, 4},
		},
		{
			name:   "where gte",
			filter: FilterWhere(OrderGte, 5),
			hits:   []int{5, 6},
			misses: []int{4},
		},
		{
			name:   "where lt",
			filter: FilterWhere(OrderLt, 5),
			hits:   []int{4, -10},
			misses: []int{5, 6},
		},
		{
			name:   "where lte",
			filter: FilterWhere(OrderLte, 5),
			hits:   []int{5, 4},
			misses: []int{6},
		},
		{
			name:   "where eq",
			filter: FilterWhere(OrderEq, 5),
			hits:   []int{5},
			misses: []int{4, 6},
		},
		{
			name:   "between is inclusive",
			filter: FilterBetween(3, 7),
			hits:   []int{3, 5, 7},
			misses: []int{2, 8},
		},
		{
			name:   "any of",
			filter: FilterAnyOf(1, 3, 5),
			hits:   []int{1, 3, 5},
			misses: []int{2, 4},
		},
		{
			name:   "empty set matches nothing",
			filter: FilterAnyOf[int](),
			misses: []int{0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range tt.hits {
				require.True(t, tt.filter.Match(v, cmpInt),
					"expected %d to match", v)
			}
			for _, v := range tt.misses {
				require.False(t, tt.filter.Match(v, cmpInt),
					"expected %d not to match", v)
			}
		})
	}
}

func TestFilterMatchStrings(t *testing.T) {
	f := FilterBetween("b", "d")
	require.True(t, f.Match("b", strings.Compare))
	require.True(t, f.Match("c", strings.Compare))
	require.True(t, f.Match("d", strings.Compare))
	require.False(t, f.Match("a", strings.Compare))
	require.False(t, f.Match("e", strings.Compare))
}

func TestFilterAnyOfCopiesSet(t *testing.T) {
	vs := []int{1, 2, 3}
	f := FilterAnyOf(vs...)
	vs[0] = 99
	require.True(t, f.Match(1, cmpInt))
	require.False(t, f.Match(99, cmpInt))
}

func TestAccountFilter(t *testing.T) {
	var w0, w1 txmeta.WalletID
	w1[0] = 1

	m := &txmeta.TxMeta{WalletID: w0, AccountIndex: 3}

	all := FilterAllWallets()
	require.True(t, all.WalletID().IsNone())
	require.True(t, all.AccountIndex().IsNone())
	require.True(t, all.Match(m))

	byWallet := FilterWallet(w0)
	require.True(t, byWallet.Match(m))
	require.False(t, FilterWallet(w1).Match(m))

	byAccount := FilterWalletAccount(w0, 3)
	require.True(t, byAccount.Match(m))
	require.False(t, FilterWalletAccount(w0, 4).Match(m))
	require.False(t, FilterWalletAccount(w1, 3).Match(m))

	// The zero value behaves like FilterAllWallets.
	var zero AccountFilter
	require.True(t, zero.Match(m))
}

func TestPutReturnString(t *testing.T) {
	require.Equal(t, "Tx", PutTx.String())
	require.Equal(t, "Meta", PutMeta.String())
	require.Equal(t, "No", PutNo.String())
	require.Contains(t, PutReturn(99).String(), "Unknown")
}

func TestSortingStrings(t *testing.T) {
	require.Equal(t, "creation_time", SortByCreationTime.String())
	require.Equal(t, "amount", SortByAmount.String())
	require.Equal(t, "asc", SortAscending.String())
	require.Equal(t, "desc", SortDescending.String())
}
