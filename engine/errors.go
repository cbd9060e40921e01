package engine

import (
	stderrors "errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// IsBusy returns true if |err| was caused by a lock held on the backing store
// by another connection or process.
func IsBusy(err error) bool {
	var se sqlite3.Error
	if stderrors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	var pe *pq.Error
	if stderrors.As(err, &pe) {
		return pe.Code == "55P03" // lock_not_available.
	}
	return false
}

// IsCorrupt returns true if |err| was caused by a backing store which is
// malformed, or which isn't a database at all.
func IsCorrupt(err error) bool {
	var se sqlite3.Error
	if stderrors.As(err, &se) {
		return se.Code == sqlite3.ErrCorrupt || se.Code == sqlite3.ErrNotADB
	}
	var pe *pq.Error
	if stderrors.As(err, &pe) {
		return pe.Code.Class() == "XX" // Internal error class, incl. data_corrupted.
	}
	return false
}
