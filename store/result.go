package store

import "go.feedcache.dev/core/feed"

// RetrievalKind enumerates outcomes of a Retrieve.
type RetrievalKind int

const (
	// Empty indicates the Store holds no feed.
	Empty RetrievalKind = iota
	// Found indicates the Store holds the feed of RetrievalResult.Record.
	Found
	// Failure indicates the retrieval failed with RetrievalResult.Err. The
	// content of the Store is unknown, which is distinct from Empty.
	Failure
)

func (k RetrievalKind) String() string {
	switch k {
	case Empty:
		return "Empty"
	case Found:
		return "Found"
	case Failure:
		return "Failure"
	default:
		return "RetrievalKind(?)"
	}
}

// RetrievalResult is the result of a Retrieve.
type RetrievalResult struct {
	Kind RetrievalKind
	// Record of a Found result.
	Record feed.Record
	// Err of a Failure result.
	Err error
}

// OperationResult is the result of an Insert or Delete. The operation
// succeeded if Err is nil.
type OperationResult struct {
	Err error
}

// Ok is true if the operation succeeded.
func (r OperationResult) Ok() bool { return r.Err == nil }

// RetrievalFuture is a RetrievalResult which is resolved in the background.
type RetrievalFuture struct {
	doneCh chan struct{}
	result RetrievalResult
}

func newRetrievalFuture() *RetrievalFuture {
	return &RetrievalFuture{doneCh: make(chan struct{})}
}

// Done selects when the RetrievalFuture is resolved.
func (f *RetrievalFuture) Done() <-chan struct{} { return f.doneCh }

// Result blocks until Done, and returns the RetrievalResult.
func (f *RetrievalFuture) Result() RetrievalResult {
	<-f.doneCh
	return f.result
}

func (f *RetrievalFuture) resolve(r RetrievalResult) {
	f.result = r
	close(f.doneCh)
}

// OperationFuture is an OperationResult which is resolved in the background.
type OperationFuture struct {
	doneCh chan struct{}
	err    error
}

func newOperationFuture() *OperationFuture {
	return &OperationFuture{doneCh: make(chan struct{})}
}

// Done selects when the OperationFuture is resolved.
func (f *OperationFuture) Done() <-chan struct{} { return f.doneCh }

// Err blocks until Done, and returns the operation error.
func (f *OperationFuture) Err() error {
	<-f.doneCh
	return f.err
}

// Result blocks until Done, and returns the OperationResult.
func (f *OperationFuture) Result() OperationResult { return OperationResult{Err: f.Err()} }

func (f *OperationFuture) resolve(r OperationResult) {
	f.err = r.Err
	close(f.doneCh)
}
