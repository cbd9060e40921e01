// Package feed defines the in-memory representation of a cached feed: an
// ordered sequence of LocalFeedImages together with the timestamp at which
// the feed was cached. Types of this package are plain values. They carry no
// persistence behavior, which lives in package store.
package feed
