package storetest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.feedcache.dev/core/feed"
	"go.feedcache.dev/core/store"
	"golang.org/x/sync/errgroup"
)

// Factory opens a new, empty Store for the test |t|, passing |opts| through
// to store.Open. The Factory is responsible for closing the Store when |t|
// completes. Stores may be closed by tests as well.
type Factory func(t *testing.T, opts ...store.Option) *store.Store

// RunStoreSuite runs the behavioral tests of a store.Store over Stores built
// by |open|.
func RunStoreSuite(t *testing.T, open Factory) {
	var cases = []struct {
		name string
		fn   func(*testing.T, Factory)
	}{
		{"FreshStoreIsEmpty", testFreshStoreIsEmpty},
		{"InsertThenRetrieve", testInsertThenRetrieve},
		{"InsertOverridesPriorFeed", testInsertOverridesPriorFeed},
		{"DeleteOfEmptyStore", testDeleteOfEmptyStore},
		{"DeleteAfterInsert", testDeleteAfterInsert},
		{"InsertRetrieveDeleteScenario", testScenario},
		{"OrderedAcrossGoroutines", testOrderedAcrossGoroutines},
		{"CallbacksInSubmissionOrder", testCallbacksInSubmissionOrder},
		{"FetchFailureIsolation", testFetchFailureIsolation},
		{"FetchFailureOfInsert", testFetchFailureOfInsert},
		{"SaveFailureRollsBackInsert", testSaveFailureRollsBackInsert},
		{"SaveFailureRollsBackDelete", testSaveFailureRollsBackDelete},
		{"PersistentFaults", testPersistentFaults},
		{"InvalidFeedIsRejected", testInvalidFeedIsRejected},
		{"InsertCopiesFeed", testInsertCopiesFeed},
		{"OperationsAfterClose", testOperationsAfterClose},
	}
	for _, tc := range cases {
		var fn = tc.fn
		t.Run(tc.name, func(t *testing.T) { fn(t, open) })
	}
}

func testFreshStoreIsEmpty(t *testing.T, open Factory) {
	var s = open(t)

	for i := 0; i != 3; i++ {
		assert.Equal(t, store.RetrievalResult{Kind: store.Empty}, Retrieve(t, s))
	}
}

func testInsertThenRetrieve(t *testing.T, open Factory) {
	var s = open(t)
	var fd, ts = UniqueFeed(7), Timestamp(1234)

	require.NoError(t, Await(t, s.InsertAsync(fd, ts)))
	ExpectFound(t, s, fd, ts)
	ExpectFound(t, s, fd, ts) // Retrieve is repeatable.
}

func testInsertOverridesPriorFeed(t *testing.T, open Factory) {
	var s = open(t)
	var fd1, fd2 = UniqueFeed(5), UniqueFeed(2)

	require.NoError(t, Await(t, s.InsertAsync(fd1, Timestamp(1))))
	require.NoError(t, Await(t, s.InsertAsync(fd2, Timestamp(2))))
	ExpectFound(t, s, fd2, Timestamp(2))
}

func testDeleteOfEmptyStore(t *testing.T, open Factory) {
	var s = open(t)

	require.NoError(t, Await(t, s.DeleteAsync()))
	require.NoError(t, Await(t, s.DeleteAsync()))
	assert.Equal(t, store.RetrievalResult{Kind: store.Empty}, Retrieve(t, s))
}

func testDeleteAfterInsert(t *testing.T, open Factory) {
	var s = open(t)

	require.NoError(t, Await(t, s.InsertAsync(UniqueFeed(3), Timestamp(1))))
	require.NoError(t, Await(t, s.DeleteAsync()))
	assert.Equal(t, store.RetrievalResult{Kind: store.Empty}, Retrieve(t, s))
}

func testScenario(t *testing.T, open Factory) {
	var s = open(t)
	var fd = feed.Feed{
		{
			ID:          UniqueImage().ID,
			Description: StringPtr("d"),
			Location:    StringPtr("l"),
			URL:         MustParseURL("https://a-url.com/u1"),
		},
		{
			ID:  UniqueImage().ID,
			URL: MustParseURL("https://a-url.com/u2"),
		},
	}

	require.NoError(t, Await(t, s.InsertAsync(fd, Timestamp(1000))))
	ExpectFound(t, s, fd, Timestamp(1000))

	require.NoError(t, Await(t, s.InsertAsync(feed.Feed{}, Timestamp(2000))))
	ExpectFound(t, s, feed.Feed{}, Timestamp(2000))

	require.NoError(t, Await(t, s.DeleteAsync()))
	assert.Equal(t, store.RetrievalResult{Kind: store.Empty}, Retrieve(t, s))
}

// Operations submitted in a known order from distinct goroutines, without
// awaiting their completion, take effect in that order.
func testOrderedAcrossGoroutines(t *testing.T, open Factory) {
	var s = open(t)
	var fdA, fdB = UniqueFeed(3), UniqueFeed(4)

	var insertA, deleteA, insertB *store.OperationFuture
	var submittedA, submittedDelete = make(chan struct{}), make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		insertA = s.InsertAsync(fdA, Timestamp(1))
		close(submittedA)
		return nil
	})
	g.Go(func() error {
		<-submittedA
		deleteA = s.DeleteAsync()
		close(submittedDelete)
		return nil
	})
	g.Go(func() error {
		<-submittedDelete
		insertB = s.InsertAsync(fdB, Timestamp(2))
		return nil
	})
	require.NoError(t, g.Wait())

	require.NoError(t, Await(t, insertA))
	require.NoError(t, Await(t, deleteA))
	require.NoError(t, Await(t, insertB))
	ExpectFound(t, s, fdB, Timestamp(2))
}

// Many goroutines race to submit a mix of operations. Completion callbacks
// are invoked in exactly the order in which operations were submitted, and
// the final content is the effect of the last submitted mutation.
func testCallbacksInSubmissionOrder(t *testing.T, open Factory) {
	const writers, ops = 8, 25
	var s = open(t)

	var submitMu, completeMu sync.Mutex
	var next int
	var completed []int
	var failures []error
	var wg sync.WaitGroup

	var expect = store.RetrievalResult{Kind: store.Empty}

	var onComplete = func(ticket int, err error) {
		completeMu.Lock()
		completed = append(completed, ticket)
		if err != nil {
			failures = append(failures, err)
		}
		completeMu.Unlock()
		wg.Done()
	}

	var g errgroup.Group
	for w := 0; w != writers; w++ {
		var w = w
		g.Go(func() error {
			for i := 0; i != ops; i++ {
				submitMu.Lock()
				var ticket = next
				next++
				wg.Add(1)

				switch (w + i) % 3 {
				case 0:
					var fd, ts = UniqueFeed(i % 4), Timestamp(int64(ticket))
					s.Insert(fd, ts, func(r store.OperationResult) { onComplete(ticket, r.Err) })
					expect = store.RetrievalResult{Kind: store.Found, Record: feed.Record{Feed: fd, Timestamp: ts}}
				case 1:
					s.Delete(func(r store.OperationResult) { onComplete(ticket, r.Err) })
					expect = store.RetrievalResult{Kind: store.Empty}
				default:
					s.Retrieve(func(r store.RetrievalResult) { onComplete(ticket, r.Err) })
				}
				submitMu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	wg.Wait()

	require.Empty(t, failures)
	require.Len(t, completed, writers*ops)
	for i, ticket := range completed {
		require.Equal(t, i, ticket)
	}
	assert.Equal(t, expect, Retrieve(t, s))
}

func testFetchFailureIsolation(t *testing.T, open Factory) {
	var fe FaultyEngine
	var s = open(t, store.WithEngine(fe.Decorate))

	// Of an Empty store.
	fe.FailNextFetch()
	ExpectFailure(t, s)
	assert.Equal(t, store.RetrievalResult{Kind: store.Empty}, Retrieve(t, s))

	// Of an Occupied store.
	var fd = UniqueFeed(3)
	require.NoError(t, Await(t, s.InsertAsync(fd, Timestamp(10))))

	fe.FailNextFetch()
	ExpectFailure(t, s)
	ExpectFound(t, s, fd, Timestamp(10))

	// Armed faults accumulate.
	fe.FailNextFetch()
	fe.FailNextFetch()
	ExpectFailure(t, s)
	ExpectFailure(t, s)
	ExpectFound(t, s, fd, Timestamp(10))
}

func testFetchFailureOfInsert(t *testing.T, open Factory) {
	var fe FaultyEngine
	var s = open(t, store.WithEngine(fe.Decorate))
	var fd = UniqueFeed(2)

	require.NoError(t, Await(t, s.InsertAsync(fd, Timestamp(10))))

	fe.FailNextFetch()
	var err = Await(t, s.InsertAsync(UniqueFeed(3), Timestamp(20)))
	require.ErrorIs(t, err, ErrInjected)
	ExpectFound(t, s, fd, Timestamp(10))

	fe.FailNextFetch()
	err = Await(t, s.DeleteAsync())
	require.ErrorIs(t, err, ErrInjected)
	ExpectFound(t, s, fd, Timestamp(10))
}

func testSaveFailureRollsBackInsert(t *testing.T, open Factory) {
	var fe FaultyEngine
	var s = open(t, store.WithEngine(fe.Decorate))

	// Prior state is Empty.
	fe.FailNextSave()
	var err = Await(t, s.InsertAsync(UniqueFeed(3), Timestamp(10)))
	require.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, store.RetrievalResult{Kind: store.Empty}, Retrieve(t, s))

	// Prior state is Occupied.
	var fd = UniqueFeed(4)
	require.NoError(t, Await(t, s.InsertAsync(fd, Timestamp(20))))

	fe.FailNextSave()
	err = Await(t, s.InsertAsync(UniqueFeed(2), Timestamp(30)))
	require.ErrorIs(t, err, ErrInjected)
	ExpectFound(t, s, fd, Timestamp(20))

	// The fault was consumed.
	var fd2 = UniqueFeed(1)
	require.NoError(t, Await(t, s.InsertAsync(fd2, Timestamp(40))))
	ExpectFound(t, s, fd2, Timestamp(40))
}

func testSaveFailureRollsBackDelete(t *testing.T, open Factory) {
	var fe FaultyEngine
	var s = open(t, store.WithEngine(fe.Decorate))

	// Prior state is Empty.
	fe.FailNextSave()
	var err = Await(t, s.DeleteAsync())
	require.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, store.RetrievalResult{Kind: store.Empty}, Retrieve(t, s))

	// Prior state is Occupied.
	var fd = UniqueFeed(4)
	require.NoError(t, Await(t, s.InsertAsync(fd, Timestamp(20))))

	fe.FailNextSave()
	err = Await(t, s.DeleteAsync())
	require.ErrorIs(t, err, ErrInjected)
	ExpectFound(t, s, fd, Timestamp(20))

	require.NoError(t, Await(t, s.DeleteAsync()))
	assert.Equal(t, store.RetrievalResult{Kind: store.Empty}, Retrieve(t, s))
}

func testPersistentFaults(t *testing.T, open Factory) {
	var fe FaultyEngine
	var s = open(t, store.WithEngine(fe.Decorate))
	var fd = UniqueFeed(2)

	require.NoError(t, Await(t, s.InsertAsync(fd, Timestamp(10))))

	fe.FailFetches()
	fe.FailSaves()
	for i := 0; i != 3; i++ {
		ExpectFailure(t, s)
		require.ErrorIs(t, Await(t, s.InsertAsync(UniqueFeed(1), Timestamp(20))), ErrInjected)
		require.ErrorIs(t, Await(t, s.DeleteAsync()), ErrInjected)
	}

	fe.Reset()
	ExpectFound(t, s, fd, Timestamp(10))
}

func testInvalidFeedIsRejected(t *testing.T, open Factory) {
	var s = open(t)
	var fd = UniqueFeed(2)

	require.NoError(t, Await(t, s.InsertAsync(fd, Timestamp(10))))

	var dup = UniqueFeed(3)
	dup[2].ID = dup[0].ID

	var err = Await(t, s.InsertAsync(dup, Timestamp(20)))
	var ve *feed.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Regexp(t, `duplicate image ID \(index 2; ID .* also at index 0\)`, err.Error())

	err = Await(t, s.InsertAsync(UniqueFeed(1), time.Time{}))
	require.ErrorAs(t, err, &ve)

	ExpectFound(t, s, fd, Timestamp(10))
}

func testInsertCopiesFeed(t *testing.T, open Factory) {
	var s = open(t)
	var fd = UniqueFeed(2)
	var expect = fd.Clone()

	var f = s.InsertAsync(fd, Timestamp(10))
	fd[0].ID = UniqueImage().ID
	*fd[0].Description = "modified after submission"
	fd[1].URL.Path = "/modified"

	require.NoError(t, Await(t, f))
	ExpectFound(t, s, expect, Timestamp(10))
}

func testOperationsAfterClose(t *testing.T, open Factory) {
	var s = open(t)

	// Operations submitted before Close are completed by it.
	var insert = s.InsertAsync(UniqueFeed(2), Timestamp(10))
	require.NoError(t, s.Close())

	select {
	case <-insert.Done():
	default:
		t.Fatal("expected Insert to be complete")
	}
	require.NoError(t, insert.Err())
	require.NoError(t, s.Close()) // Idempotent.

	var r = Retrieve(t, s)
	assert.Equal(t, store.Failure, r.Kind)
	assert.ErrorIs(t, r.Err, store.ErrStoreClosed)

	assert.ErrorIs(t, Await(t, s.InsertAsync(UniqueFeed(1), Timestamp(20))), store.ErrStoreClosed)
	assert.ErrorIs(t, Await(t, s.DeleteAsync()), store.ErrStoreClosed)
}

// AwaitTimeout bounds the time a test waits on a Store operation.
var AwaitTimeout = 10 * time.Second

// Await the OperationFuture, returning its error, or fail |t| on timeout.
func Await(t testing.TB, f *store.OperationFuture) error {
	t.Helper()

	select {
	case <-f.Done():
		return f.Err()
	case <-time.After(AwaitTimeout):
		t.Fatal("timeout awaiting store operation")
		return nil
	}
}

// Retrieve from the Store, or fail |t| on timeout.
func Retrieve(t testing.TB, s *store.Store) store.RetrievalResult {
	t.Helper()

	var f = s.RetrieveAsync()
	select {
	case <-f.Done():
		return f.Result()
	case <-time.After(AwaitTimeout):
		t.Fatal("timeout awaiting store retrieval")
		return store.RetrievalResult{}
	}
}

// ExpectFound verifies the Store holds |fd| with timestamp |ts|.
func ExpectFound(t testing.TB, s *store.Store, fd feed.Feed, ts time.Time) {
	t.Helper()

	assert.Equal(t, store.RetrievalResult{
		Kind:   store.Found,
		Record: feed.Record{Feed: fd, Timestamp: ts},
	}, Retrieve(t, s))
}

// ExpectFailure verifies a Retrieve of the Store fails with ErrInjected.
func ExpectFailure(t testing.TB, s *store.Store) {
	t.Helper()

	var r = Retrieve(t, s)
	assert.Equal(t, store.Failure, r.Kind)
	assert.ErrorIs(t, r.Err, ErrInjected)

	var opErr *store.OperationError
	if assert.ErrorAs(t, r.Err, &opErr) {
		assert.Equal(t, "retrieve", opErr.Op)
	}
}
