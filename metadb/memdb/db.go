// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package memdb implements the metadb contract with an in-memory store. It
// is primarily intended for tests, where it doubles as a reference model for
// the SQL backend, but is also usable for ephemeral embedding.
package memdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/txmetadb/metadb"
	"github.com/btcsuite/txmetadb/txmeta"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// metaKey is the composite key uniquely addressing a row.
type metaKey struct {
	txID         chainhash.Hash
	walletID     txmeta.WalletID
	accountIndex uint32
}

func keyOf(m *txmeta.TxMeta) metaKey {
	return metaKey{
		txID:         m.TxID,
		walletID:     m.WalletID,
		accountIndex: m.AccountIndex,
	}
}

// DB is an in-memory implementation of metadb.MetaDB. The zero value is not
// usable; create instances with New.
type DB struct {
	mu sync.RWMutex

	// metas holds the stored rows in insertion order. Insertion order is
	// the default order of unsorted queries, which keeps pagination
	// deterministic.
	metas []txmeta.TxMeta

	// byKey indexes metas by composite key. Values are indexes into the
	// metas slice.
	byKey map[metaKey]int

	// txIDCount tracks how many rows share each transaction id, so the
	// insert-or-associate decision does not scan the whole store.
	txIDCount map[chainhash.Hash]int

	closed bool
}

// A compile time check to ensure that DB implements the interface.
var _ metadb.MetaDB = (*DB)(nil)

// New returns an empty in-memory store.
func New() *DB {
	return &DB{
		byKey:     make(map[metaKey]int),
		txIDCount: make(map[chainhash.Hash]int),
	}
}

// Close marks the handle as closed. Further operations fail.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	return nil
}

// MigrateSchema is a no-op: the in-memory layout needs no preparation.
func (d *DB) MigrateSchema(_ context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.errIfClosed()
}

// ClearAll removes every row from the store.
func (d *DB) ClearAll(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.errIfClosed(); err != nil {
		return err
	}

	d.metas = nil
	d.byKey = make(map[metaKey]int)
	d.txIDCount = make(map[chainhash.Hash]int)
	return nil
}

// DeleteTxMetas removes all rows of the given wallet or, when an account
// index is given, only the rows of that account.
func (d *DB) DeleteTxMetas(_ context.Context, walletID txmeta.WalletID,
	accountIndex fn.Option[uint32]) error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.errIfClosed(); err != nil {
		return err
	}

	kept := d.metas[:0]
	for i := range d.metas {
		m := &d.metas[i]
		drop := m.WalletID == walletID
		if drop && accountIndex.IsSome() {
			drop = accountIndex.UnwrapOr(m.AccountIndex) ==
				m.AccountIndex
		}
		if drop {
			continue
		}
		kept = append(kept, *m)
	}
	d.metas = kept
	d.reindex()
	return nil
}

// GetTxMeta returns the row stored under the full composite key, or None.
func (d *DB) GetTxMeta(_ context.Context, txID chainhash.Hash,
	walletID txmeta.WalletID, accountIndex uint32) (
	fn.Option[txmeta.TxMeta], error) {

	d.mu.RLock()
	defer d.mu.RUnlock()

	none := fn.None[txmeta.TxMeta]()
	if err := d.errIfClosed(); err != nil {
		return none, err
	}

	key := metaKey{
		txID:         txID,
		walletID:     walletID,
		accountIndex: accountIndex,
	}
	idx, ok := d.byKey[key]
	if !ok {
		return none, nil
	}
	return fn.Some(d.metas[idx].Copy()), nil
}

// PutTxMeta unconditionally inserts a row. Re-inserting identical data is a
// no-op; a key collision with different data fails with ErrTxIDInvariant.
func (d *DB) PutTxMeta(ctx context.Context, meta *txmeta.TxMeta) error {
	_, err := d.PutTxMetaT(ctx, meta)
	return err
}

// PutTxMetaT runs the insert-or-associate algorithm. The store mutex makes
// the whole decision atomic with respect to concurrent callers.
func (d *DB) PutTxMetaT(_ context.Context, meta *txmeta.TxMeta) (
	metadb.PutReturn, error) {

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.errIfClosed(); err != nil {
		return metadb.PutNo, err
	}
	if err := meta.Validate(); err != nil {
		return metadb.PutNo, err
	}

	key := keyOf(meta)
	if idx, ok := d.byKey[key]; ok {
		if d.metas[idx].EqualIsomorphic(*meta) {
			return metadb.PutNo, nil
		}
		return metadb.PutNo, metadb.StoreError(
			metadb.ErrTxIDInvariant,
			"tx "+meta.TxID.String()+" already recorded with "+
				"different data", nil,
		)
	}

	outcome := metadb.PutTx
	if d.txIDCount[meta.TxID] > 0 {
		outcome = metadb.PutMeta
	}

	d.metas = append(d.metas, meta.Copy())
	d.byKey[key] = len(d.metas) - 1
	d.txIDCount[meta.TxID]++
	return outcome, nil
}

// GetAllTxMetas returns every row in the store, in insertion order.
func (d *DB) GetAllTxMetas(_ context.Context) ([]txmeta.TxMeta, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.errIfClosed(); err != nil {
		return nil, err
	}

	all := make([]txmeta.TxMeta, 0, len(d.metas))
	for i := range d.metas {
		all = append(all, d.metas[i].Copy())
	}
	return all, nil
}

// GetTxMetas returns one page of the filtered, sorted result set. The total
// count is never reported by this backend, see CountsTotal.
func (d *DB) GetTxMetas(_ context.Context, q *metadb.Query) (*metadb.Page,
	error) {

	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.errIfClosed(); err != nil {
		return nil, err
	}

	var matched []txmeta.TxMeta
	for i := range d.metas {
		m := &d.metas[i]
		if !q.Account.Match(m) {
			continue
		}
		if !matchAddress(q.Address, m) {
			continue
		}
		if !q.TxID.Match(m.TxID, cmpTxID) {
			continue
		}
		if !q.CreationTime.Match(m.CreationTime, cmpTime) {
			continue
		}
		matched = append(matched, m.Copy())
	}

	q.Sort.WhenSome(func(s metadb.Sorting) {
		sortMetas(matched, s)
	})

	page := paginate(matched, q.Offset, q.Limit)
	return &metadb.Page{
		Metas: page,
		Total: fn.None[uint32](),
	}, nil
}

// CountsTotal reports that this backend never populates Page.Total.
func (d *DB) CountsTotal() bool {
	return false
}

// errIfClosed must be called with the mutex held.
func (d *DB) errIfClosed() error {
	if d.closed {
		return metadb.StoreError(metadb.ErrStorage, "store is closed",
			nil)
	}
	return nil
}

// reindex rebuilds the key index and tx id counts after a bulk deletion.
// Must be called with the mutex held.
func (d *DB) reindex() {
	d.byKey = make(map[metaKey]int, len(d.metas))
	d.txIDCount = make(map[chainhash.Hash]int, len(d.metas))
	for i := range d.metas {
		d.byKey[keyOf(&d.metas[i])] = i
		d.txIDCount[d.metas[i].TxID]++
	}
}

// matchAddress reports whether any address among the row's inputs or outputs
// satisfies the filter.
func matchAddress(f metadb.Filter[string], m *txmeta.TxMeta) bool {
	if f.Kind() == metadb.FilterNone {
		return true
	}
	for _, in := range m.Inputs {
		if f.Match(in.Address, strings.Compare) {
			return true
		}
	}
	for _, out := range m.Outputs {
		if f.Match(out.Address, strings.Compare) {
			return true
		}
	}
	return false
}

// cmpTxID orders transaction ids by their hexadecimal string form, matching
// the order the SQL backend gets from its text-encoded txid column.
func cmpTxID(a, b chainhash.Hash) int {
	return strings.Compare(a.String(), b.String())
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// sortMetas orders rows by the sort specification. The sort is stable, so
// rows comparing equal keep their insertion order and pagination stays
// deterministic.
func sortMetas(metas []txmeta.TxMeta, s metadb.Sorting) {
	less := func(a, b *txmeta.TxMeta) bool {
		switch s.Criteria {
		case metadb.SortByAmount:
			return a.Amount < b.Amount
		default:
			return a.CreationTime.Before(b.CreationTime)
		}
	}
	sort.SliceStable(metas, func(i, j int) bool {
		if s.Direction == metadb.SortDescending {
			return less(&metas[j], &metas[i])
		}
		return less(&metas[i], &metas[j])
	})
}

// paginate slices the filtered result set down to the requested page.
func paginate(metas []txmeta.TxMeta, offset metadb.Offset,
	limit fn.Option[metadb.Limit]) []txmeta.TxMeta {

	start := int(offset)
	if start > len(metas) {
		return nil
	}
	page := metas[start:]
	limit.WhenSome(func(l metadb.Limit) {
		if int(l) < len(page) {
			page = page[:l]
		}
	})
	return page
}
