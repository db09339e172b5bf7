// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txmeta

import (
	"bytes"
	"sort"
)

// Equal reports whether two records are identical in every field. Inputs and
// outputs are compared as ordered sequences, so the same inputs in a
// different order do not compare equal.
func (m TxMeta) Equal(other TxMeta) bool {
	if !m.equalScalar(other) {
		return false
	}
	if !inputsEqual(m.Inputs, other.Inputs) {
		return false
	}
	return outputsEqual(m.Outputs, other.Outputs)
}

// EqualIsomorphic reports whether two records are identical up to a
// reordering of their inputs. Some storage backends do not preserve input
// order, so the engine uses this relation when deciding whether an incoming
// record duplicates a stored one.
func (m TxMeta) EqualIsomorphic(other TxMeta) bool {
	if !m.equalScalar(other) {
		return false
	}
	if !inputsEqual(sortedInputs(m.Inputs), sortedInputs(other.Inputs)) {
		return false
	}
	return outputsEqual(m.Outputs, other.Outputs)
}

// EqualTransaction reports whether two records describe the same underlying
// transaction, regardless of the account they are scoped to: only the
// transaction id, the input multiset and the ordered outputs are compared.
func (m TxMeta) EqualTransaction(other TxMeta) bool {
	if m.TxID != other.TxID {
		return false
	}
	if !inputsEqual(sortedInputs(m.Inputs), sortedInputs(other.Inputs)) {
		return false
	}
	return outputsEqual(m.Outputs, other.Outputs)
}

// equalScalar compares every field except the input and output sequences.
func (m TxMeta) equalScalar(other TxMeta) bool {
	return m.TxID == other.TxID &&
		m.WalletID == other.WalletID &&
		m.AccountIndex == other.AccountIndex &&
		m.Amount == other.Amount &&
		m.CreationTime.Equal(other.CreationTime) &&
		m.IsLocal == other.IsLocal &&
		m.IsOutgoing == other.IsOutgoing
}

func inputsEqual(a, b []Input) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func outputsEqual(a, b []Output) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sortedInputs returns a copy of the inputs in a canonical order, so that
// two input sequences can be compared as multisets.
func sortedInputs(inputs []Input) []Input {
	s := make([]Input, len(inputs))
	copy(s, inputs)
	sort.Slice(s, func(i, j int) bool {
		return lessInput(s[i], s[j])
	})
	return s
}

func lessInput(a, b Input) bool {
	if c := bytes.Compare(a.OutPoint.Hash[:], b.OutPoint.Hash[:]); c != 0 {
		return c < 0
	}
	if a.OutPoint.Index != b.OutPoint.Index {
		return a.OutPoint.Index < b.OutPoint.Index
	}
	if a.Address != b.Address {
		return a.Address < b.Address
	}
	return a.Amount < b.Amount
}
