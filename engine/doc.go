// Package engine provides transactional fetch and save primitives over the
// durable backing store of a feed cache.
//
// An Engine begins Txns. A Txn exposes "fetch" primitives (FetchFeed,
// FetchImages), which only read, and mutating primitives (InsertFeed,
// InsertImage, DeleteFeed), whose effects become durable only on Commit
// (the "save" of the transaction). A Txn which is not committed must be
// rolled back, which discards all of its writes.
//
// SQLEngine implements Engine over a "database/sql" handle, and supports
// SQLite (github.com/mattn/go-sqlite3) and Postgres (github.com/lib/pq)
// dialects. Engines compose: test code may decorate an Engine to inject
// faults into its primitives (see package storetest).
package engine
