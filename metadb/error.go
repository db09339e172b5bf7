// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metadb

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrStorage indicates a fault in the underlying storage layer. When
	// this error code is set, the Err field of the Error will be set to
	// the underlying error returned from the database driver. Callers may
	// treat this class of error as potentially retryable, depending on
	// the wrapped cause.
	ErrStorage ErrorCode = iota

	// ErrTxIDInvariant indicates that a write would have recorded a row
	// whose composite key (txid, wallet id, account index) already exists
	// with different data. Metadata for a transaction must never be
	// recorded inconsistently, so the write is rejected and the store is
	// left unchanged. This is a data-integrity fault and is not
	// retryable.
	ErrTxIDInvariant

	// ErrUndisputableLookup indicates that the storage layer reported a
	// uniqueness conflict for a row which a subsequent lookup then failed
	// to find. The store is append-only, so any claimed conflict must be
	// resolvable by looking the existing row up; when it is not, the
	// store's own consistency is broken. This is a fatal corruption
	// signal.
	ErrUndisputableLookup
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrStorage:            "ErrStorage",
	ErrTxIDInvariant:      "ErrTxIDInvariant",
	ErrUndisputableLookup: "ErrUndisputableLookup",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen during store
// operation. It distinguishes data-integrity faults (ErrTxIDInvariant,
// ErrUndisputableLookup) from infrastructure faults (ErrStorage).
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error, if any.
func (e Error) Unwrap() error {
	return e.Err
}

// StoreError creates an Error given a set of arguments. It is used by the
// backend implementations.
func StoreError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsError reports whether err is a store Error carrying the given code.
func IsError(err error, code ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode == code
}

// IsInvariantViolation reports whether err signals a data-integrity fault,
// i.e. a tx id invariant violation or a failed undisputable lookup. Such
// errors indicate a logic or data bug and must not be retried.
func IsInvariantViolation(err error) bool {
	return IsError(err, ErrTxIDInvariant) ||
		IsError(err, ErrUndisputableLookup)
}
