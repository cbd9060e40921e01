package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FeedEntity is the persisted row of a cached feed.
type FeedEntity struct {
	ID        int64
	Timestamp time.Time
}

// ImageEntity is the persisted row of a single image, owned by the FeedEntity
// having ID FeedID. Ordinal is the position of the image within its feed.
type ImageEntity struct {
	FeedID      int64
	Ordinal     int
	ID          uuid.UUID
	Description *string
	Location    *string
	URL         string
}

// Engine begins transactions against a durable backing store.
type Engine interface {
	// Begin a new Txn. The caller must Commit or Rollback the returned Txn.
	Begin(ctx context.Context) (Txn, error)
}

// Txn is a transaction of an Engine.
type Txn interface {
	// FetchFeed returns the FeedEntity of the slot. If no feed is stored,
	// FetchFeed returns a zero-valued FeedEntity and false.
	FetchFeed(ctx context.Context) (FeedEntity, bool, error)
	// FetchImages returns ImageEntities of the feed, ordered on Ordinal.
	FetchImages(ctx context.Context, feedID int64) ([]ImageEntity, error)
	// InsertFeed inserts a FeedEntity having the timestamp, and returns its ID.
	InsertFeed(ctx context.Context, timestamp time.Time) (int64, error)
	// InsertImage inserts an ImageEntity of a previously inserted feed.
	InsertImage(ctx context.Context, image ImageEntity) error
	// DeleteFeed deletes the feed and all images it owns.
	DeleteFeed(ctx context.Context, feedID int64) error
	// Commit (save) the Txn, making its writes durable.
	Commit() error
	// Rollback the Txn, discarding its writes. Rollback of a Txn which
	// has already been committed or rolled back is a no-op.
	Rollback() error
}
