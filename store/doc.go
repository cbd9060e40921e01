// Package store implements a durable, single-slot cache of one feed.Record.
//
// A Store holds at most one feed and its timestamp. It is Empty until the
// first successful Insert, is replaced in full by each successful Insert, and
// becomes Empty again on a successful Delete. Its content survives process
// restarts, as it's persisted by a transactional engine.Engine.
//
// Every operation of a Store is asynchronous. Retrieve, Insert and Delete
// return immediately, and deliver their result to a completion callback which
// is invoked exactly once, from the Store's worker goroutine. Operations are
// executed serially, in submission order, by that single worker, so the order
// of committed effects and of callback invocations is exactly the order in
// which operations were submitted, even when submitted from many goroutines.
// RetrieveAsync, InsertAsync and DeleteAsync return futures instead.
//
// Each mutation runs within one engine transaction: Insert deletes the prior
// feed (and its images) and writes the new one, then commits. If any step
// fails the transaction is rolled back, and the failure is delivered as the
// result. A failed operation never changes the observable content of the
// Store. Nothing is retried.
//
// Stores are constructed by Open, which opens (or creates) the backing store
// at a location, applies the schema, and takes exclusive ownership of the
// location until Close.
package store
