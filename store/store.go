package store

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.feedcache.dev/core/engine"
	"go.feedcache.dev/core/feed"
	"go.feedcache.dev/core/metrics"
	"go.feedcache.dev/core/queue"
)

// Store is a durable cache of at most one feed.Record. Store is safe for
// concurrent use, and its operations are executed serially in submission
// order. See the package documentation.
type Store struct {
	location string
	log      *log.Entry

	db     *sql.DB
	lock   io.Closer
	engine engine.Engine
	queue  *queue.Queue

	closeOnce sync.Once
	closeErr  error
}

// Location returns the location the Store was opened with.
func (s *Store) Location() string { return s.location }

// Retrieve the cached feed.Record. |cb| is invoked exactly once with an Empty
// or Found RetrievalResult, or a Failure if the content couldn't be read.
// A Retrieve has no effect on the content of the Store.
func (s *Store) Retrieve(cb func(RetrievalResult)) {
	var started = time.Now()

	var err = s.queue.Submit(func() {
		var r = s.retrieve()
		s.observe(opRetrieve, started, r.Err)
		cb(r)
	})
	if err != nil {
		go cb(RetrievalResult{Kind: Failure, Err: closedError(opRetrieve)})
	}
}

// Insert |fd| with |timestamp|, replacing in full any feed currently held by
// the Store. |fd| is copied prior to Insert returning, and may be modified
// thereafter by the caller. |cb| is invoked exactly once with the result.
//
// Timestamps are persisted at nanosecond precision and retrieved in UTC.
// Compare a retrieved timestamp with time.Time.Equal, not ==.
func (s *Store) Insert(fd feed.Feed, timestamp time.Time, cb func(OperationResult)) {
	var started = time.Now()
	var record = feed.Record{Feed: fd.Clone(), Timestamp: timestamp}

	var err = s.queue.Submit(func() {
		var err = s.insert(record)
		s.observe(opInsert, started, err)
		cb(OperationResult{Err: err})
	})
	if err != nil {
		go cb(OperationResult{Err: closedError(opInsert)})
	}
}

// Delete the feed held by the Store, if any. Delete of an Empty Store
// succeeds. |cb| is invoked exactly once with the result.
func (s *Store) Delete(cb func(OperationResult)) {
	var started = time.Now()

	var err = s.queue.Submit(func() {
		var err = s.delete()
		s.observe(opDelete, started, err)
		cb(OperationResult{Err: err})
	})
	if err != nil {
		go cb(OperationResult{Err: closedError(opDelete)})
	}
}

// RetrieveAsync is a Retrieve which returns a RetrievalFuture of its result.
func (s *Store) RetrieveAsync() *RetrievalFuture {
	var f = newRetrievalFuture()
	s.Retrieve(f.resolve)
	return f
}

// InsertAsync is an Insert which returns an OperationFuture of its result.
func (s *Store) InsertAsync(fd feed.Feed, timestamp time.Time) *OperationFuture {
	var f = newOperationFuture()
	s.Insert(fd, timestamp, f.resolve)
	return f
}

// DeleteAsync is a Delete which returns an OperationFuture of its result.
func (s *Store) DeleteAsync() *OperationFuture {
	var f = newOperationFuture()
	s.Delete(f.resolve)
	return f
}

// Close the Store. Operations submitted before Close are completed, and their
// callbacks invoked, before Close returns. Operations submitted after Close
// fail with ErrStoreClosed. Close releases the backing store and its lock,
// and must not be called from within a completion callback.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.queue.Close()
		s.closeErr = s.release()

		metrics.StoreOpenStores.Dec()
		metrics.StoreFeedImages.DeleteLabelValues(s.location)
		s.log.Info("closed feed cache store")
	})
	return s.closeErr
}

func (s *Store) retrieve() RetrievalResult {
	var ctx = context.Background()
	var out = RetrievalResult{Kind: Empty}

	var err = s.transact(ctx, false, func(txn engine.Txn) error {
		var entity, ok, err = txn.FetchFeed(ctx)
		if err != nil || !ok {
			return err
		}
		if out.Record, err = toLocal(ctx, txn, entity); err != nil {
			return err
		}
		out.Kind = Found
		return nil
	})

	if err != nil {
		s.log.WithField("err", err).Warn("failed to retrieve feed")
		return RetrievalResult{Kind: Failure, Err: &OperationError{Op: opRetrieve, Err: err}}
	}
	s.setImagesGauge(len(out.Record.Feed))
	return out
}

func (s *Store) insert(record feed.Record) error {
	if err := record.Validate(); err != nil {
		return &OperationError{Op: opInsert, Err: err}
	}
	var ctx = context.Background()

	var err = s.transact(ctx, true, func(txn engine.Txn) error {
		if prior, ok, err := txn.FetchFeed(ctx); err != nil {
			return err
		} else if ok {
			if err = txn.DeleteFeed(ctx, prior.ID); err != nil {
				return errors.WithMessage(err, "replacing prior feed")
			}
		}
		var _, err = toPersisted(ctx, txn, record)
		return err
	})

	if err != nil {
		s.log.WithFields(log.Fields{
			"images": len(record.Feed),
			"err":    err,
		}).Warn("failed to insert feed")
		return &OperationError{Op: opInsert, Err: err}
	}
	s.setImagesGauge(len(record.Feed))
	return nil
}

func (s *Store) delete() error {
	var ctx = context.Background()

	var err = s.transact(ctx, true, func(txn engine.Txn) error {
		var prior, ok, err = txn.FetchFeed(ctx)
		if err != nil || !ok {
			return err
		}
		return txn.DeleteFeed(ctx, prior.ID)
	})

	if err != nil {
		s.log.WithField("err", err).Warn("failed to delete feed")
		return &OperationError{Op: opDelete, Err: err}
	}
	s.setImagesGauge(0)
	return nil
}

// transact runs |fn| within a transaction of the Store's engine. If |commit|,
// the transaction is committed after |fn| succeeds. Otherwise, or if |fn| or
// the commit fail, the transaction is rolled back.
func (s *Store) transact(ctx context.Context, commit bool, fn func(engine.Txn) error) error {
	var txn, err = s.engine.Begin(ctx)
	if err != nil {
		return err
	}

	if err = fn(txn); err == nil && commit {
		if err = txn.Commit(); err == nil {
			return nil
		}
	}
	if rbErr := txn.Rollback(); rbErr != nil {
		s.log.WithField("err", rbErr).Warn("failed to roll back transaction")
	}
	return err
}

func (s *Store) setImagesGauge(n int) {
	metrics.StoreFeedImages.WithLabelValues(s.location).Set(float64(n))
}

// observe a completed operation which was submitted at |started|.
func (s *Store) observe(op string, started time.Time, err error) {
	var status, elapsed = metrics.Ok, time.Since(started)
	if err != nil {
		status = metrics.Fail
	}
	metrics.StoreOperationsTotal.WithLabelValues(op, status).Inc()
	metrics.StoreOperationSeconds.WithLabelValues(op).Observe(elapsed.Seconds())

	if s.log.Logger.IsLevelEnabled(log.DebugLevel) {
		s.log.WithFields(log.Fields{
			"op":       op,
			"status":   status,
			"duration": elapsed,
		}).Debug("completed store operation")
	}
}

func closedError(op string) error {
	return &OperationError{Op: op, Err: ErrStoreClosed}
}
