// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/txmetadb/metadb"
	"github.com/btcsuite/txmetadb/txmeta"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// the row helpers can run both inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string,
		args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string,
		args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string,
		args ...any) *sql.Row
}

// metaColumns is the projection used whenever metadata rows are read.
const metaColumns = "m.txid, m.wallet_id, m.account_index, m.amount, " +
	"m.creation_time, m.is_local, m.is_outgoing"

// GetTxMeta returns the row stored under the full composite key, or None.
func (d *DB) GetTxMeta(ctx context.Context, txID chainhash.Hash,
	walletID txmeta.WalletID, accountIndex uint32) (
	fn.Option[txmeta.TxMeta], error) {

	none := fn.None[txmeta.TxMeta]()
	meta, err := d.getMeta(ctx, d.db, txID, walletID, accountIndex)
	if err != nil {
		return none, err
	}
	if meta == nil {
		return none, nil
	}
	return fn.Some(*meta), nil
}

// GetAllTxMetas returns every row in the store, in the backend's default
// order.
func (d *DB) GetAllTxMetas(ctx context.Context) ([]txmeta.TxMeta, error) {
	page, err := d.GetTxMetas(ctx, &metadb.Query{})
	if err != nil {
		return nil, err
	}
	return page.Metas, nil
}

// GetTxMetas returns one page of the filtered, sorted result set, together
// with the total size of that set (this backend always counts, see
// CountsTotal).
func (d *DB) GetTxMetas(ctx context.Context, q *metadb.Query) (*metadb.Page,
	error) {

	where, args := buildWhere(q)

	var total int64
	err := d.db.QueryRowContext(ctx,
		d.rebind("SELECT COUNT(*) FROM tx_metas m"+where),
		args...).Scan(&total)
	if err != nil {
		return nil, metadb.StoreError(metadb.ErrStorage,
			"count tx metas", err)
	}

	query := "SELECT " + metaColumns + " FROM tx_metas m" + where +
		orderBy(q.Sort)

	pageArgs := args
	if q.Limit.IsSome() || q.Offset > 0 {
		// SQL has no way to express "no limit, some offset", so an
		// absent limit becomes the largest one the dialect accepts.
		limit := int64(math.MaxInt64)
		q.Limit.WhenSome(func(l metadb.Limit) {
			limit = int64(l)
		})
		query += " LIMIT ? OFFSET ?"
		pageArgs = append(append([]any{}, args...), limit,
			int64(q.Offset))
	}

	rows, err := d.db.QueryContext(ctx, d.rebind(query), pageArgs...)
	if err != nil {
		return nil, metadb.StoreError(metadb.ErrStorage,
			"query tx metas", err)
	}
	metas, err := scanMetas(rows)
	if err != nil {
		return nil, err
	}

	if err := d.fetchChildren(ctx, d.db, metas); err != nil {
		return nil, err
	}

	return &metadb.Page{
		Metas: metas,
		Total: fn.Some(uint32(total)),
	}, nil
}

// getMeta reads a single row, including its inputs and outputs. It returns
// nil without error when no row exists under the key.
func (d *DB) getMeta(ctx context.Context, qr querier, txID chainhash.Hash,
	walletID txmeta.WalletID, accountIndex uint32) (*txmeta.TxMeta,
	error) {

	row := qr.QueryRowContext(ctx, d.rebind(
		"SELECT "+metaColumns+" FROM tx_metas m WHERE m.txid = ? "+
			"AND m.wallet_id = ? AND m.account_index = ?"),
		txID.String(), walletID.String(), accountIndex)

	meta, err := scanMeta(row.Scan)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, metadb.StoreError(metadb.ErrStorage,
			"scan tx meta", err)
	}

	metas := []txmeta.TxMeta{*meta}
	if err := d.fetchChildren(ctx, qr, metas); err != nil {
		return nil, err
	}
	return &metas[0], nil
}

// scanMeta decodes one metadata row, without its children.
func scanMeta(scan func(dest ...any) error) (*txmeta.TxMeta, error) {
	var (
		txidHex   string
		walletHex string
		amount    int64
		created   int64
		meta      txmeta.TxMeta
	)
	err := scan(&txidHex, &walletHex, &meta.AccountIndex, &amount,
		&created, &meta.IsLocal, &meta.IsOutgoing)
	if err != nil {
		return nil, err
	}

	txid, err := chainhash.NewHashFromStr(txidHex)
	if err != nil {
		return nil, fmt.Errorf("decode txid %q: %w", txidHex, err)
	}
	walletID, err := txmeta.NewWalletIDFromStr(walletHex)
	if err != nil {
		return nil, fmt.Errorf("decode wallet id %q: %w", walletHex,
			err)
	}

	meta.TxID = *txid
	meta.WalletID = walletID
	meta.Amount = btcutil.Amount(amount)
	meta.CreationTime = decodeTime(created)
	return &meta, nil
}

func scanMetas(rows *sql.Rows) ([]txmeta.TxMeta, error) {
	defer rows.Close()

	var metas []txmeta.TxMeta
	for rows.Next() {
		meta, err := scanMeta(rows.Scan)
		if err != nil {
			return nil, metadb.StoreError(metadb.ErrStorage,
				"scan tx meta", err)
		}
		metas = append(metas, *meta)
	}
	if err := rows.Err(); err != nil {
		return nil, metadb.StoreError(metadb.ErrStorage,
			"iterate tx metas", err)
	}
	return metas, nil
}

// fetchChildren loads the input and output rows of the given metas in two
// batched queries and stitches them in. Child rows are keyed by the same
// composite key as their parent and ordered by their position in the
// transaction.
func (d *DB) fetchChildren(ctx context.Context, qr querier,
	metas []txmeta.TxMeta) error {

	if len(metas) == 0 {
		return nil
	}

	byKey := make(map[string]*txmeta.TxMeta, len(metas))
	tuples := make([]string, 0, len(metas))
	args := make([]any, 0, len(metas)*3)
	for i := range metas {
		m := &metas[i]
		byKey[childKey(m.TxID.String(), m.WalletID.String(),
			m.AccountIndex)] = m
		tuples = append(tuples, "(?, ?, ?)")
		args = append(args, m.TxID.String(), m.WalletID.String(),
			m.AccountIndex)
	}
	in := strings.Join(tuples, ", ")

	err := d.forEachChildRow(ctx, qr, `
SELECT txid, wallet_id, account_index, prev_txid, prev_index, address, amount
FROM tx_inputs
WHERE (txid, wallet_id, account_index) IN (`+in+`)
ORDER BY txid, wallet_id, account_index, input_index`, args,
		func(rows *sql.Rows) error {
			var (
				txid, wallet, prevHex, addr string
				acct                        uint32
				prevIdx                     uint32
				amount                      int64
			)
			err := rows.Scan(&txid, &wallet, &acct, &prevHex,
				&prevIdx, &addr, &amount)
			if err != nil {
				return err
			}
			prev, err := chainhash.NewHashFromStr(prevHex)
			if err != nil {
				return fmt.Errorf("decode prev txid %q: %w",
					prevHex, err)
			}
			m := byKey[childKey(txid, wallet, acct)]
			if m == nil {
				return fmt.Errorf("input row for unknown "+
					"key (%s, %s, %d)", txid, wallet, acct)
			}
			m.Inputs = append(m.Inputs, txmeta.Input{
				OutPoint: wire.OutPoint{
					Hash:  *prev,
					Index: prevIdx,
				},
				Address: addr,
				Amount:  btcutil.Amount(amount),
			})
			return nil
		})
	if err != nil {
		return metadb.StoreError(metadb.ErrStorage, "fetch tx inputs",
			err)
	}

	err = d.forEachChildRow(ctx, qr, `
SELECT txid, wallet_id, account_index, address, amount
FROM tx_outputs
WHERE (txid, wallet_id, account_index) IN (`+in+`)
ORDER BY txid, wallet_id, account_index, output_index`, args,
		func(rows *sql.Rows) error {
			var (
				txid, wallet, addr string
				acct               uint32
				amount             int64
			)
			err := rows.Scan(&txid, &wallet, &acct, &addr,
				&amount)
			if err != nil {
				return err
			}
			m := byKey[childKey(txid, wallet, acct)]
			if m == nil {
				return fmt.Errorf("output row for unknown "+
					"key (%s, %s, %d)", txid, wallet, acct)
			}
			m.Outputs = append(m.Outputs, txmeta.Output{
				Address: addr,
				Amount:  btcutil.Amount(amount),
			})
			return nil
		})
	if err != nil {
		return metadb.StoreError(metadb.ErrStorage,
			"fetch tx outputs", err)
	}

	return nil
}

func childKey(txid, wallet string, acct uint32) string {
	return fmt.Sprintf("%s/%s/%d", txid, wallet, acct)
}

func (d *DB) forEachChildRow(ctx context.Context, qr querier, query string,
	args []any, scanRow func(*sql.Rows) error) error {

	rows, err := qr.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scanRow(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// buildWhere translates the query's filters into a WHERE clause. An empty
// clause is returned when nothing restricts the result set.
func buildWhere(q *metadb.Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, condArgs ...any) {
		conds = append(conds, cond)
		args = append(args, condArgs...)
	}

	q.Account.WalletID().WhenSome(func(id txmeta.WalletID) {
		add("m.wallet_id = ?", id.String())
	})
	q.Account.AccountIndex().WhenSome(func(idx uint32) {
		add("m.account_index = ?", idx)
	})

	if cond, condArgs := filterCond("m.txid", q.TxID,
		func(h chainhash.Hash) any { return h.String() }); cond != "" {

		add(cond, condArgs...)
	}

	if cond, condArgs := filterCond("m.creation_time", q.CreationTime,
		func(t time.Time) any { return encodeTime(t) }); cond != "" {

		add(cond, condArgs...)
	}

	if q.Address.Kind() != metadb.FilterNone {
		str := func(s string) any { return s }
		inCond, inArgs := filterCond("i.address", q.Address, str)
		outCond, outArgs := filterCond("o.address", q.Address, str)
		cond := "(EXISTS (SELECT 1 FROM tx_inputs i " +
			"WHERE i.txid = m.txid AND i.wallet_id = m.wallet_id " +
			"AND i.account_index = m.account_index AND " + inCond +
			") OR EXISTS (SELECT 1 FROM tx_outputs o " +
			"WHERE o.txid = m.txid AND o.wallet_id = m.wallet_id " +
			"AND o.account_index = m.account_index AND " + outCond +
			"))"
		add(cond, append(inArgs, outArgs...)...)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// cmpOps maps the filter orderings to their SQL operators.
var cmpOps = map[metadb.Ordering]string{
	metadb.OrderEq:  "=",
	metadb.OrderGt:  ">",
	metadb.OrderGte: ">=",
	metadb.OrderLt:  "<",
	metadb.OrderLte: "<=",
}

// filterCond translates a single generic filter into a SQL condition on the
// given column. conv maps the filter's operand type to its stored
// representation. An empty condition means the filter matches everything.
func filterCond[T any](col string, f metadb.Filter[T],
	conv func(T) any) (string, []any) {

	switch f.Kind() {
	case metadb.FilterEq:
		return col + " = ?", []any{conv(f.Value())}

	case metadb.FilterCmp:
		return col + " " + cmpOps[f.Ordering()] + " ?",
			[]any{conv(f.Value())}

	case metadb.FilterRange:
		lo, hi := f.Range()
		return "(" + col + " >= ? AND " + col + " <= ?)",
			[]any{conv(lo), conv(hi)}

	case metadb.FilterIn:
		set := f.Set()
		if len(set) == 0 {
			// Empty membership set matches nothing.
			return "1 = 0", nil
		}
		args := make([]any, 0, len(set))
		for _, v := range set {
			args = append(args, conv(v))
		}
		placeholders := strings.TrimSuffix(
			strings.Repeat("?, ", len(set)), ", ")
		return col + " IN (" + placeholders + ")", args
	}

	return "", nil
}

// orderBy renders the sort specification. Every ordering ends with the full
// composite key so that pagination is deterministic even when the sort
// column carries duplicates.
func orderBy(sorting fn.Option[metadb.Sorting]) string {
	col, dir := "m.creation_time", "ASC"
	sorting.WhenSome(func(s metadb.Sorting) {
		if s.Criteria == metadb.SortByAmount {
			col = "m.amount"
		}
		if s.Direction == metadb.SortDescending {
			dir = "DESC"
		}
	})
	return " ORDER BY " + col + " " + dir +
		", m.txid ASC, m.wallet_id ASC, m.account_index ASC"
}
