package store

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.feedcache.dev/core/engine"
	"go.feedcache.dev/core/feed"
)

func TestMapperRoundTrip(t *testing.T) {
	var ctx, txn = context.Background(), &memTxn{}
	var desc, loc = "a description", "a location"
	var ts = time.Unix(1000, 0).UTC()

	var record = feed.Record{
		Feed: feed.Feed{
			{ID: uuid.New(), Description: &desc, Location: &loc, URL: mustParseURL(t, "https://a-url.com/0")},
			{ID: uuid.New(), URL: mustParseURL(t, "https://a-url.com/1?q=v#frag")},
			{ID: uuid.New(), Location: &loc, URL: mustParseURL(t, "http://another-url.com/2")},
		},
		Timestamp: ts,
	}

	var feedID, err = toPersisted(ctx, txn, record)
	require.NoError(t, err)
	assert.Equal(t, int64(1), feedID)

	// Images are persisted with ordinals of their index.
	require.Len(t, txn.images, 3)
	for i, img := range txn.images {
		assert.Equal(t, i, img.Ordinal)
		assert.Equal(t, feedID, img.FeedID)
		assert.Equal(t, record.Feed[i].ID, img.ID)
	}
	assert.Equal(t, "https://a-url.com/1?q=v#frag", txn.images[1].URL)

	out, err := toLocal(ctx, txn, engine.FeedEntity{ID: feedID, Timestamp: ts})
	require.NoError(t, err)
	assert.Equal(t, record, out)
}

func TestMapperOfEmptyFeed(t *testing.T) {
	var ctx, txn = context.Background(), &memTxn{}
	var ts = time.Unix(2000, 0).UTC()

	var feedID, err = toPersisted(ctx, txn, feed.Record{Feed: feed.Feed{}, Timestamp: ts})
	require.NoError(t, err)
	assert.Empty(t, txn.images)

	out, err := toLocal(ctx, txn, engine.FeedEntity{ID: feedID, Timestamp: ts})
	require.NoError(t, err)
	assert.Equal(t, feed.Record{Feed: feed.Feed{}, Timestamp: ts}, out)
}

func TestMapperDetectsInconsistentImages(t *testing.T) {
	var ctx = context.Background()
	var entity = engine.FeedEntity{ID: 1, Timestamp: time.Unix(1, 0).UTC()}

	var txn = &memTxn{images: []engine.ImageEntity{
		{FeedID: 1, Ordinal: 0, ID: uuid.New(), URL: "https://a-url.com/0"},
		{FeedID: 1, Ordinal: 2, ID: uuid.New(), URL: "https://a-url.com/2"},
	}}
	var _, err = toLocal(ctx, txn, entity)
	assert.EqualError(t, err, "image ordinals are not contiguous (feed 1; index 1 has ordinal 2)")

	txn.images = []engine.ImageEntity{
		{FeedID: 1, Ordinal: 0, ID: uuid.New(), URL: "https://a-url.com/%zz"},
	}
	_, err = toLocal(ctx, txn, entity)
	assert.Regexp(t, `^image 0: parsing URL: .*invalid URL escape`, err.Error())
}

func TestMapperPropagatesEngineErrors(t *testing.T) {
	var ctx = context.Background()
	var txn = &memTxn{err: assert.AnError}

	var _, err = toPersisted(ctx, txn, feed.Record{Timestamp: time.Unix(1, 0).UTC()})
	assert.Equal(t, assert.AnError, err)

	_, err = toLocal(ctx, txn, engine.FeedEntity{ID: 1})
	assert.Equal(t, assert.AnError, err)
}

func mustParseURL(t *testing.T, s string) *url.URL {
	var u, err = url.Parse(s)
	require.NoError(t, err)
	return u
}

// memTxn is an engine.Txn of a single feed, held in memory.
type memTxn struct {
	images []engine.ImageEntity
	err    error
}

func (txn *memTxn) FetchFeed(context.Context) (engine.FeedEntity, bool, error) {
	return engine.FeedEntity{}, false, txn.err
}

func (txn *memTxn) FetchImages(_ context.Context, feedID int64) ([]engine.ImageEntity, error) {
	if txn.err != nil {
		return nil, txn.err
	}
	var out []engine.ImageEntity
	for _, img := range txn.images {
		if img.FeedID == feedID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (txn *memTxn) InsertFeed(context.Context, time.Time) (int64, error) {
	return 1, txn.err
}

func (txn *memTxn) InsertImage(_ context.Context, img engine.ImageEntity) error {
	txn.images = append(txn.images, img)
	return txn.err
}

func (txn *memTxn) DeleteFeed(context.Context, int64) error { return txn.err }
func (txn *memTxn) Commit() error                           { return txn.err }
func (txn *memTxn) Rollback() error                         { return nil }
