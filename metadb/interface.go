// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metadb defines the storage engine contract for wallet transaction
// metadata: an abstract handle over an append-mostly record store, the query
// primitives interpreted by its backends, and the error taxonomy surfaced by
// its operations. Callers depend only on the MetaDB interface; one
// implementation exists per backend (see the sqldb and memdb packages).
package metadb

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/txmetadb/txmeta"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// PutReturn is the outcome of an insert-or-associate put.
type PutReturn int

const (
	// PutTx indicates the transaction had never been seen before and a
	// new row was inserted.
	PutTx PutReturn = iota

	// PutMeta indicates the transaction was already known under another
	// account, and a new row associating it with this account was
	// inserted.
	PutMeta

	// PutNo indicates a row for exactly this composite key already
	// existed with identical data; nothing was written.
	PutNo
)

// String returns the PutReturn as a human-readable name.
func (p PutReturn) String() string {
	switch p {
	case PutTx:
		return "Tx"
	case PutMeta:
		return "Meta"
	case PutNo:
		return "No"
	}
	return fmt.Sprintf("Unknown PutReturn (%d)", int(p))
}

// Query parameterizes a paginated read of the store. Filters compose: a row
// is returned only if it satisfies every restriction. The address filter
// matches a row when any address among its inputs or outputs satisfies the
// restriction.
type Query struct {
	// Offset is the number of rows to skip from the start of the
	// filtered, sorted result set.
	Offset Offset

	// Limit bounds the page size. None means the page is unbounded.
	Limit fn.Option[Limit]

	// Account restricts rows to an account scope.
	Account AccountFilter

	// Address restricts rows by address membership in their inputs or
	// outputs.
	Address Filter[string]

	// TxID restricts rows by transaction id. Order-sensitive variants
	// compare ids by their hexadecimal string form.
	TxID Filter[chainhash.Hash]

	// CreationTime restricts rows by the time their metadata was
	// recorded.
	CreationTime Filter[time.Time]

	// Sort orders the result set. When None, the backend applies a
	// fixed, deterministic default order so that pagination remains
	// stable.
	Sort fn.Option[Sorting]
}

// Page is one page of query results.
type Page struct {
	// Metas is a contiguous slice of the full filtered, sorted result
	// set.
	Metas []txmeta.TxMeta

	// Total is the size of the full filtered result set, disregarding
	// offset and limit. Backends for which counting is expensive omit
	// it; callers must not assume it is present. Whether a backend
	// reports it is a fixed capability, see MetaDB.CountsTotal.
	Total fn.Option[uint32]
}

// MetaDB is the abstract persistence boundary for transaction metadata. The
// handle is safe for use by multiple goroutines; every mutating operation
// either fully commits or leaves the store unchanged. All operations may
// fail with an Error carrying one of the ErrorCode values of this package.
type MetaDB interface {
	// Close releases the resources held by the handle. The handle must
	// not be used afterwards.
	Close() error

	// MigrateSchema creates or upgrades the backend's persisted layout.
	// It is idempotent and assumes exclusive access to the store.
	MigrateSchema(ctx context.Context) error

	// ClearAll removes every row from the store. It assumes exclusive
	// access to the store for its duration.
	ClearAll(ctx context.Context) error

	// DeleteTxMetas removes all rows of the given wallet or, when an
	// account index is given, only the rows of that account. It assumes
	// exclusive access to the affected scope for its duration.
	DeleteTxMetas(ctx context.Context, walletID txmeta.WalletID,
		accountIndex fn.Option[uint32]) error

	// GetTxMeta returns the row stored under the full composite key, or
	// None if no such row exists.
	GetTxMeta(ctx context.Context, txID chainhash.Hash,
		walletID txmeta.WalletID, accountIndex uint32) (
		fn.Option[txmeta.TxMeta], error)

	// PutTxMeta unconditionally inserts a row. Re-inserting a row whose
	// composite key already exists with identical data is a no-op;
	// inserting one whose key exists with different data fails with
	// ErrTxIDInvariant and leaves the store unchanged.
	PutTxMeta(ctx context.Context, meta *txmeta.TxMeta) error

	// PutTxMetaT runs the insert-or-associate algorithm for an incoming
	// row and reports how it was classified: PutTx for a never-seen
	// transaction, PutMeta for a known transaction newly associated with
	// this account, PutNo for an identical replay. A row whose composite
	// key exists with different data fails with ErrTxIDInvariant. The
	// whole decision is atomic with respect to concurrent calls for the
	// same transaction id.
	PutTxMetaT(ctx context.Context, meta *txmeta.TxMeta) (PutReturn,
		error)

	// GetAllTxMetas returns every row in the store. This is a diagnostic
	// operation; use GetTxMetas for regular reads.
	GetAllTxMetas(ctx context.Context) ([]txmeta.TxMeta, error)

	// GetTxMetas returns one page of the filtered, sorted result set
	// described by the query.
	GetTxMetas(ctx context.Context, q *Query) (*Page, error)

	// CountsTotal reports whether GetTxMetas populates Page.Total on
	// this backend. The capability is fixed per backend instance.
	CountsTotal() bool
}
