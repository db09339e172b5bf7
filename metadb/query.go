// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metadb

import (
	"fmt"

	"github.com/btcsuite/txmetadb/txmeta"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Offset is the number of rows to skip from the start of the filtered,
// sorted result set.
//
// NOTE: uint32 is used to ensure compatibility with standard SQL databases
// (signed 64-bit integers).
type Offset uint32

// Limit is the maximum number of rows a page may contain. A limit of zero
// yields an empty page.
//
// NOTE: uint32 is used to ensure compatibility with standard SQL databases
// (signed 64-bit integers).
type Limit uint32

// AccountFilter restricts a query to an account scope. The zero value
// matches every row in the store. Account-level filtering is only
// expressible together with a wallet: the constructors below are the only
// way to build a filter, so a filter on an account index without a wallet
// cannot be constructed.
type AccountFilter struct {
	walletID     fn.Option[txmeta.WalletID]
	accountIndex fn.Option[uint32]
}

// FilterAllWallets returns a filter matching every row in the store.
func FilterAllWallets() AccountFilter {
	return AccountFilter{
		walletID:     fn.None[txmeta.WalletID](),
		accountIndex: fn.None[uint32](),
	}
}

// FilterWallet returns a filter matching every row of the given wallet,
// across all of its accounts.
func FilterWallet(id txmeta.WalletID) AccountFilter {
	return AccountFilter{
		walletID:     fn.Some(id),
		accountIndex: fn.None[uint32](),
	}
}

// FilterWalletAccount returns a filter matching only the rows of a single
// account within the given wallet.
func FilterWalletAccount(id txmeta.WalletID, index uint32) AccountFilter {
	return AccountFilter{
		walletID:     fn.Some(id),
		accountIndex: fn.Some(index),
	}
}

// WalletID returns the wallet restriction of the filter, if any.
func (f AccountFilter) WalletID() fn.Option[txmeta.WalletID] {
	return f.walletID
}

// AccountIndex returns the account restriction of the filter, if any. It is
// only ever set together with the wallet restriction.
func (f AccountFilter) AccountIndex() fn.Option[uint32] {
	return f.accountIndex
}

// Match reports whether the given record falls within the filter's scope.
func (f AccountFilter) Match(m *txmeta.TxMeta) bool {
	if f.walletID.IsSome() && f.walletID.UnwrapOr(m.WalletID) != m.WalletID {
		return false
	}
	if f.accountIndex.IsSome() &&
		f.accountIndex.UnwrapOr(m.AccountIndex) != m.AccountIndex {

		return false
	}
	return true
}

// Ordering names a comparison predicate usable in a Filter.
type Ordering int

const (
	// OrderEq selects values equal to the operand.
	OrderEq Ordering = iota

	// OrderGt selects values strictly greater than the operand.
	OrderGt

	// OrderGte selects values greater than or equal to the operand.
	OrderGte

	// OrderLt selects values strictly less than the operand.
	OrderLt

	// OrderLte selects values less than or equal to the operand.
	OrderLte
)

// FilterKind identifies the variant of a Filter.
type FilterKind int

const (
	// FilterNone matches everything.
	FilterNone FilterKind = iota

	// FilterEq matches values equal to a single operand.
	FilterEq

	// FilterCmp matches values satisfying an Ordering predicate against
	// a single operand.
	FilterCmp

	// FilterRange matches values within an inclusive range.
	FilterRange

	// FilterIn matches values that are members of a set.
	FilterIn
)

// Filter is a generic restriction on a single queried value. It is a closed
// algebra: callers construct a filter and pass it to the store, which
// interprets it against its own representation. The filter itself never
// touches storage.
type Filter[T any] struct {
	kind   FilterKind
	ord    Ordering
	value  T
	lo, hi T
	set    []T
}

// NoFilter returns the filter that matches everything. It is also the
// useful zero value of Filter.
func NoFilter[T any]() Filter[T] {
	return Filter[T]{kind: FilterNone}
}

// FilterExactly returns a filter matching values equal to v.
func FilterExactly[T any](v T) Filter[T] {
	return Filter[T]{kind: FilterEq, value: v}
}

// FilterWhere returns a filter matching values for which the ordering
// predicate holds against v.
func FilterWhere[T any](ord Ordering, v T) Filter[T] {
	return Filter[T]{kind: FilterCmp, ord: ord, value: v}
}

// FilterBetween returns a filter matching values v with lo <= v <= hi. The
// range is inclusive on both ends.
func FilterBetween[T any](lo, hi T) Filter[T] {
	return Filter[T]{kind: FilterRange, lo: lo, hi: hi}
}

// FilterAnyOf returns a filter matching values that are members of the
// given set.
func FilterAnyOf[T any](vs ...T) Filter[T] {
	set := make([]T, len(vs))
	copy(set, vs)
	return Filter[T]{kind: FilterIn, set: set}
}

// Kind returns the variant of the filter.
func (f Filter[T]) Kind() FilterKind {
	return f.kind
}

// Ordering returns the comparison predicate of a FilterCmp filter.
func (f Filter[T]) Ordering() Ordering {
	return f.ord
}

// Value returns the operand of a FilterEq or FilterCmp filter.
func (f Filter[T]) Value() T {
	return f.value
}

// Range returns the inclusive bounds of a FilterRange filter.
func (f Filter[T]) Range() (lo, hi T) {
	return f.lo, f.hi
}

// Set returns the members of a FilterIn filter.
func (f Filter[T]) Set() []T {
	return f.set
}

// Match evaluates the filter against a value, using cmp as the total order
// on T. cmp must return a negative number when a < b, zero when a == b and
// a positive number when a > b. Backends that evaluate filters in-process
// use this; SQL backends translate the filter to a WHERE clause instead.
func (f Filter[T]) Match(v T, cmp func(a, b T) int) bool {
	switch f.kind {
	case FilterNone:
		return true

	case FilterEq:
		return cmp(v, f.value) == 0

	case FilterCmp:
		c := cmp(v, f.value)
		switch f.ord {
		case OrderEq:
			return c == 0
		case OrderGt:
			return c > 0
		case OrderGte:
			return c >= 0
		case OrderLt:
			return c < 0
		case OrderLte:
			return c <= 0
		}
		return false

	case FilterRange:
		return cmp(v, f.lo) >= 0 && cmp(v, f.hi) <= 0

	case FilterIn:
		for _, member := range f.set {
			if cmp(v, member) == 0 {
				return true
			}
		}
		return false
	}

	return false
}

// SortCriteria names the column a query result is ordered by.
type SortCriteria int

const (
	// SortByCreationTime orders rows by the time their metadata was
	// recorded.
	SortByCreationTime SortCriteria = iota

	// SortByAmount orders rows by their total amount.
	SortByAmount
)

// String returns the SortCriteria as a human-readable name.
func (c SortCriteria) String() string {
	switch c {
	case SortByCreationTime:
		return "creation_time"
	case SortByAmount:
		return "amount"
	}
	return fmt.Sprintf("Unknown SortCriteria (%d)", int(c))
}

// SortDirection is the direction a query result is ordered in.
type SortDirection int

const (
	// SortAscending orders rows from smallest to largest.
	SortAscending SortDirection = iota

	// SortDescending orders rows from largest to smallest.
	SortDescending
)

// String returns the SortDirection as a human-readable name.
func (d SortDirection) String() string {
	switch d {
	case SortAscending:
		return "asc"
	case SortDescending:
		return "desc"
	}
	return fmt.Sprintf("Unknown SortDirection (%d)", int(d))
}

// Sorting is a complete sort specification for a query.
type Sorting struct {
	// Criteria is the column to order by.
	Criteria SortCriteria

	// Direction is the direction to order in.
	Direction SortDirection
}
