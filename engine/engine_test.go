package engine_test

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.feedcache.dev/core/engine"
	"go.feedcache.dev/core/schema"
)

func TestInsertAndFetchRoundTrip(t *testing.T) {
	var e, ctx = newEngine(t), context.Background()
	var desc, loc = "a description", "a location"
	var ts = time.Unix(1000, 123456789).UTC()

	var txn, err = e.Begin(ctx)
	require.NoError(t, err)

	feedID, err := txn.InsertFeed(ctx, ts)
	require.NoError(t, err)

	var images = []engine.ImageEntity{
		{FeedID: feedID, Ordinal: 1, ID: uuid.New(), URL: "https://a-url.com/1"},
		{FeedID: feedID, Ordinal: 0, ID: uuid.New(), Description: &desc, Location: &loc, URL: "https://a-url.com/0"},
		{FeedID: feedID, Ordinal: 2, ID: uuid.New(), Location: &loc, URL: "https://a-url.com/2"},
	}
	for _, img := range images {
		require.NoError(t, txn.InsertImage(ctx, img))
	}
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Rollback()) // No-op after Commit.

	txn, err = e.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback()

	entity, ok, err := txn.FetchFeed(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, engine.FeedEntity{ID: feedID, Timestamp: ts}, entity)

	fetched, err := txn.FetchImages(ctx, feedID)
	require.NoError(t, err)
	assert.Equal(t, []engine.ImageEntity{images[1], images[0], images[2]}, fetched)

	// Images of an unknown feed are empty.
	fetched, err = txn.FetchImages(ctx, feedID+1)
	require.NoError(t, err)
	assert.Empty(t, fetched)
}

func TestFetchOfEmptyStore(t *testing.T) {
	var e, ctx = newEngine(t), context.Background()

	var txn, err = e.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback()

	entity, ok, err := txn.FetchFeed(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, engine.FeedEntity{}, entity)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	var e, ctx = newEngine(t), context.Background()

	var txn, err = e.Begin(ctx)
	require.NoError(t, err)
	feedID, err := txn.InsertFeed(ctx, time.Now())
	require.NoError(t, err)
	require.NoError(t, txn.InsertImage(ctx, engine.ImageEntity{
		FeedID: feedID, ID: uuid.New(), URL: "https://a-url.com"}))
	require.NoError(t, txn.Rollback())

	assert.Equal(t, 0, countRows(t, e, "feed_cache"))
	assert.Equal(t, 0, countRows(t, e, "feed_cache_images"))
}

func TestDeleteFeedRemovesOwnedImages(t *testing.T) {
	var e, ctx = newEngine(t), context.Background()

	var txn, err = e.Begin(ctx)
	require.NoError(t, err)
	feedID, err := txn.InsertFeed(ctx, time.Now())
	require.NoError(t, err)

	for i := 0; i != 3; i++ {
		require.NoError(t, txn.InsertImage(ctx, engine.ImageEntity{
			FeedID: feedID, Ordinal: i, ID: uuid.New(), URL: "https://a-url.com"}))
	}
	require.NoError(t, txn.Commit())
	assert.Equal(t, 3, countRows(t, e, "feed_cache_images"))

	txn, err = e.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.DeleteFeed(ctx, feedID))

	// A second delete of the same feed fails.
	assert.EqualError(t, txn.DeleteFeed(ctx, feedID),
		"delete feed: expected to delete one row (feed 1; deleted 0)")
	require.NoError(t, txn.Commit())

	assert.Equal(t, 0, countRows(t, e, "feed_cache"))
	assert.Equal(t, 0, countRows(t, e, "feed_cache_images"))
}

func TestFetchFeedDetectsMultipleFeeds(t *testing.T) {
	var e, ctx = newEngine(t), context.Background()

	var txn, err = e.Begin(ctx)
	require.NoError(t, err)
	for i := 0; i != 2; i++ {
		_, err = txn.InsertFeed(ctx, time.Now())
		require.NoError(t, err)
	}
	_, _, err = txn.FetchFeed(ctx)
	assert.EqualError(t, err, "expected at most one cached feed (found ids 1 and 2)")
	require.NoError(t, txn.Rollback())
}

func TestImageInsertRequiresOwningFeed(t *testing.T) {
	var e, ctx = newEngine(t), context.Background()

	var txn, err = e.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback()

	err = txn.InsertImage(ctx, engine.ImageEntity{FeedID: 42, ID: uuid.New(), URL: "https://a-url.com"})
	assert.Regexp(t, "insert image 0: FOREIGN KEY constraint failed", err)
}

func TestTimestampRange(t *testing.T) {
	var e, ctx = newEngine(t), context.Background()

	var txn, err = e.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback()

	_, err = txn.InsertFeed(ctx, time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.EqualError(t, err,
		"timestamp 3000-01-01 00:00:00 +0000 UTC is outside of the representable range")
}

func TestParseLocationCases(t *testing.T) {
	var opts = engine.SQLiteOptions{BusyTimeoutMillis: 250}

	var loc, err = engine.ParseLocation("/var/lib/feedcache/feed.db", opts)
	require.NoError(t, err)
	assert.Equal(t, engine.Location{
		Dialect: engine.SQLite,
		Path:    "/var/lib/feedcache/feed.db",
		DSN: "file:/var/lib/feedcache/feed.db?_busy_timeout=250&_foreign_keys=1" +
			"&_journal_mode=WAL&_synchronous=FULL&_txlock=immediate",
	}, loc)
	assert.False(t, loc.InMemory())

	// URI delimiters of the path are escaped, and don't split the DSN.
	loc, err = engine.ParseLocation("/tmp/feeds?v=2#1%.db", engine.SQLiteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/feeds?v=2#1%.db", loc.Path)
	assert.Equal(t, "file:/tmp/feeds%3Fv=2%231%25.db?_foreign_keys=1"+
		"&_journal_mode=WAL&_synchronous=FULL&_txlock=immediate", loc.DSN)

	for _, s := range []string{":memory:", "/dev/null", " /dev/null "} {
		loc, err = engine.ParseLocation(s, engine.SQLiteOptions{})
		require.NoError(t, err)
		assert.Equal(t, engine.Location{
			Dialect: engine.SQLite,
			DSN:     "file::memory:?_foreign_keys=1&_txlock=immediate",
		}, loc)
		assert.True(t, loc.InMemory())
	}

	loc, err = engine.ParseLocation("postgres://user@localhost/feeds?sslmode=disable", opts)
	require.NoError(t, err)
	assert.Equal(t, engine.Location{
		Dialect: engine.Postgres,
		DSN:     "postgres://user@localhost/feeds?sslmode=disable",
	}, loc)
	assert.Equal(t, "postgres", loc.Dialect.DriverName())
	assert.Equal(t, "sqlite3", engine.SQLite.DriverName())

	_, err = engine.ParseLocation("  ", opts)
	assert.EqualError(t, err, "storage location is required")
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, engine.IsBusy(errors.WithMessage(sqlite3.Error{Code: sqlite3.ErrBusy}, "begin")))
	assert.True(t, engine.IsBusy(&pq.Error{Code: "55P03"}))
	assert.False(t, engine.IsBusy(errors.New("other")))

	assert.True(t, engine.IsCorrupt(&pq.Error{Code: "XX001"}))
	assert.False(t, engine.IsCorrupt(&pq.Error{Code: "23505"}))

	// A file which isn't a SQLite database.
	var path = filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(path,
		bytes.Repeat([]byte("certainly not a SQLite database file "), 128), 0600))

	var db, err = sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("SELECT COUNT(*) FROM sqlite_master")
	require.Error(t, err)
	assert.True(t, engine.IsCorrupt(errors.WithMessage(err, "fetch feed")))
	assert.False(t, engine.IsBusy(err))
}

func newEngine(t *testing.T) *engine.SQLEngine {
	var loc, err = engine.ParseLocation(":memory:", engine.SQLiteOptions{})
	require.NoError(t, err)

	db, err := sql.Open(loc.Dialect.DriverName(), loc.DSN)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	migrations, err := schema.Embedded.Migrations(loc.Dialect)
	require.NoError(t, err)
	require.NoError(t, schema.Apply(context.Background(), db, migrations))

	return engine.NewSQLEngine(db, loc.Dialect)
}

func countRows(t *testing.T, e *engine.SQLEngine, table string) (n int) {
	require.NoError(t, e.DB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
