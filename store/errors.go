package store

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConstructionErrorKind enumerates causes of a failed Open.
type ConstructionErrorKind int

const (
	// SchemaLoadFailed indicates the schema source couldn't be loaded.
	SchemaLoadFailed ConstructionErrorKind = iota
	// StoreOpenFailed indicates the backing store couldn't be opened or created.
	StoreOpenFailed
)

func (k ConstructionErrorKind) String() string {
	switch k {
	case SchemaLoadFailed:
		return "SchemaLoadFailed"
	case StoreOpenFailed:
		return "StoreOpenFailed"
	default:
		return "ConstructionErrorKind(?)"
	}
}

// ConstructionError is returned by Open if a Store cannot be constructed.
// It's fatal: there is no usable Store.
type ConstructionError struct {
	Kind     ConstructionErrorKind
	Location string
	Err      error
}

func (e *ConstructionError) Error() string {
	switch e.Kind {
	case SchemaLoadFailed:
		return fmt.Sprintf("loading schema for %s: %s", e.Location, e.Err)
	default:
		return fmt.Sprintf("opening store %s: %s", e.Location, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *ConstructionError) Unwrap() error { return e.Err }

// OperationError is the error of a failed Retrieve, Insert or Delete. The
// operation was rolled back, and didn't change the content of the Store.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string { return e.Op + ": " + e.Err.Error() }

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error { return e.Err }

// ErrStoreClosed is the underlying error of operations submitted to a Store
// after it was closed.
var ErrStoreClosed = errors.New("store is closed")

// Names of Store operations, as used by OperationError.Op, logs and metrics.
const (
	opRetrieve = "retrieve"
	opInsert   = "insert"
	opDelete   = "delete"
)
