// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqldb

import (
	"testing"
	"time"

	"github.com/btcsuite/txmetadb/metadb"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name   string
		flavor Flavor
		query  string
		want   string
	}{
		{
			name:   "sqlite passthrough",
			flavor: SQLite,
			query:  "SELECT * FROM t WHERE a = ? AND b = ?",
			want:   "SELECT * FROM t WHERE a = ? AND b = ?",
		},
		{
			name:   "postgres numbering",
			flavor: Postgres,
			query:  "SELECT * FROM t WHERE a = ? AND b = ?",
			want:   "SELECT * FROM t WHERE a = $1 AND b = $2",
		},
		{
			name:   "postgres no placeholders",
			flavor: Postgres,
			query:  "SELECT COUNT(*) FROM t",
			want:   "SELECT COUNT(*) FROM t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &DB{flavor: tt.flavor}
			require.Equal(t, tt.want, d.rebind(tt.query))
		})
	}
}

func TestFilterCond(t *testing.T) {
	ident := func(s string) any { return s }

	cond, args := filterCond("c", metadb.NoFilter[string](), ident)
	require.Empty(t, cond)
	require.Empty(t, args)

	cond, args = filterCond("c", metadb.FilterExactly("x"), ident)
	require.Equal(t, "c = ?", cond)
	require.Equal(t, []any{"x"}, args)

	cond, args = filterCond(
		"c", metadb.FilterWhere(metadb.OrderGte, "x"), ident,
	)
	require.Equal(t, "c >= ?", cond)
	require.Equal(t, []any{"x"}, args)

	cond, args = filterCond("c", metadb.FilterBetween("a", "b"), ident)
	require.Equal(t, "(c >= ? AND c <= ?)", cond)
	require.Equal(t, []any{"a", "b"}, args)

	cond, args = filterCond("c", metadb.FilterAnyOf("a", "b"), ident)
	require.Equal(t, "c IN (?, ?)", cond)
	require.Equal(t, []any{"a", "b"}, args)

	// An empty membership set must match nothing, not everything.
	cond, args = filterCond("c", metadb.FilterAnyOf[string](), ident)
	require.Equal(t, "1 = 0", cond)
	require.Empty(t, args)
}

func TestOrderBy(t *testing.T) {
	const tiebreak = ", m.txid ASC, m.wallet_id ASC, m.account_index ASC"

	require.Equal(t, " ORDER BY m.creation_time ASC"+tiebreak,
		orderBy(fn.None[metadb.Sorting]()))

	require.Equal(t, " ORDER BY m.amount DESC"+tiebreak,
		orderBy(fn.Some(metadb.Sorting{
			Criteria:  metadb.SortByAmount,
			Direction: metadb.SortDescending,
		})))
}

func TestBuildWhere(t *testing.T) {
	// No restrictions, no clause.
	where, args := buildWhere(&metadb.Query{})
	require.Empty(t, where)
	require.Empty(t, args)

	// Restrictions compose with AND.
	lo := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	hi := lo.Add(time.Hour)
	where, args = buildWhere(&metadb.Query{
		CreationTime: metadb.FilterBetween(lo, hi),
		Address:      metadb.FilterExactly("addr"),
	})
	require.Contains(t, where, "WHERE")
	require.Contains(t, where,
		"(m.creation_time >= ? AND m.creation_time <= ?)")
	require.Contains(t, where, "EXISTS (SELECT 1 FROM tx_inputs i")
	require.Contains(t, where, "EXISTS (SELECT 1 FROM tx_outputs o")
	require.Equal(t,
		[]any{lo.UnixNano(), hi.UnixNano(), "addr", "addr"}, args)
}

func TestTimeRoundTrip(t *testing.T) {
	// Stored timestamps come back in UTC with nanosecond precision.
	in := time.Date(2025, 3, 14, 1, 59, 26, 535897932, time.FixedZone("X", 3600))
	out := decodeTime(encodeTime(in))
	require.True(t, in.Equal(out))
	require.Equal(t, time.UTC, out.Location())
}
