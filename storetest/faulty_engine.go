// Package storetest provides test support for the store package: a
// FaultyEngine which injects failures into engine primitives, fixture
// builders of feeds, and RunStoreSuite, which verifies the behaviors every
// store.Store must exhibit regardless of its backing engine.
package storetest

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.feedcache.dev/core/engine"
)

// ErrInjected is the error of failures injected by a FaultyEngine.
var ErrInjected = errors.New("injected fault")

// always is a fault count which is never exhausted.
const always = -1

// FaultyEngine is an engine.Engine decorator which fails the fetch or save
// primitives of its transactions on demand. Fetches are Txn.FetchFeed and
// Txn.FetchImages. Saves are Txn.Commit: a failed save doesn't commit, and
// leaves the transaction to be rolled back by its caller.
//
// A FaultyEngine is composed into a Store via store.WithEngine(fe.Decorate).
type FaultyEngine struct {
	engine.Engine

	mu          sync.Mutex
	fetchFaults int
	saveFaults  int
}

// Decorate |e| with the FaultyEngine, returning the FaultyEngine.
func (fe *FaultyEngine) Decorate(e engine.Engine) engine.Engine {
	fe.Engine = e
	return fe
}

// FailNextFetch causes the next fetch to fail.
func (fe *FaultyEngine) FailNextFetch() { fe.arm(&fe.fetchFaults) }

// FailNextSave causes the next save to fail.
func (fe *FaultyEngine) FailNextSave() { fe.arm(&fe.saveFaults) }

// FailFetches causes all fetches to fail until Reset.
func (fe *FaultyEngine) FailFetches() { fe.set(&fe.fetchFaults, always) }

// FailSaves causes all saves to fail until Reset.
func (fe *FaultyEngine) FailSaves() { fe.set(&fe.saveFaults, always) }

// Reset clears all configured faults.
func (fe *FaultyEngine) Reset() {
	fe.mu.Lock()
	fe.fetchFaults, fe.saveFaults = 0, 0
	fe.mu.Unlock()
}

// Begin a transaction of the decorated engine.Engine.
func (fe *FaultyEngine) Begin(ctx context.Context) (engine.Txn, error) {
	var txn, err = fe.Engine.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyTxn{Txn: txn, fe: fe}, nil
}

func (fe *FaultyEngine) arm(n *int) {
	fe.mu.Lock()
	if *n != always {
		*n++
	}
	fe.mu.Unlock()
}

func (fe *FaultyEngine) set(n *int, to int) {
	fe.mu.Lock()
	*n = to
	fe.mu.Unlock()
}

// take consumes a fault of |n|, returning true if one was armed.
func (fe *FaultyEngine) take(n *int) bool {
	fe.mu.Lock()
	defer fe.mu.Unlock()

	switch *n {
	case 0:
		return false
	case always:
		return true
	default:
		*n--
		return true
	}
}

type faultyTxn struct {
	engine.Txn
	fe *FaultyEngine
}

func (txn *faultyTxn) FetchFeed(ctx context.Context) (engine.FeedEntity, bool, error) {
	if txn.fe.take(&txn.fe.fetchFaults) {
		return engine.FeedEntity{}, false, errors.WithMessage(ErrInjected, "fetch feed")
	}
	return txn.Txn.FetchFeed(ctx)
}

func (txn *faultyTxn) FetchImages(ctx context.Context, feedID int64) ([]engine.ImageEntity, error) {
	if txn.fe.take(&txn.fe.fetchFaults) {
		return nil, errors.WithMessagef(ErrInjected, "fetch images of feed %d", feedID)
	}
	return txn.Txn.FetchImages(ctx, feedID)
}

func (txn *faultyTxn) Commit() error {
	if txn.fe.take(&txn.fe.saveFaults) {
		return errors.WithMessage(ErrInjected, "commit")
	}
	return txn.Txn.Commit()
}

