package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.feedcache.dev/core/feed"
	mbp "go.feedcache.dev/core/mainboilerplate"
	"go.feedcache.dev/core/store"
	"golang.org/x/sync/errgroup"
)

type cmdStress struct {
	Writers int `long:"writers" default:"8" description:"Number of goroutines concurrently submitting operations"`
	Ops     int `long:"ops" default:"100" description:"Number of operations submitted by each writer"`
}

func init() {
	commands.AddCommand("", "stress", "Stress the store with concurrent operations", `
Submit a mix of insert, delete and retrieve operations to the store from
--writers concurrent goroutines, each submitting --ops operations without
awaiting their completion.

Stress verifies that operations complete in exactly the order in which they
were submitted, that none of them fail, and that the final content of the
store is the effect of the last submitted insert or delete.

The store is left holding the feed of the last insert, or empty. Take care to
not run stress against a store whose content matters.
`, &cmdStress{})
}

func (cmd *cmdStress) Execute([]string) error {
	defer startup()()

	var s = baseCfg.Store.MustOpen(context.Background())
	defer s.Close()

	var run = petname.Generate(2, "-")
	var started = time.Now()

	mbp.Must(runStress(context.Background(), s, cmd.Writers, cmd.Ops), "stress run failed", "run", run)

	log.WithFields(log.Fields{
		"run":      run,
		"duration": time.Since(started),
	}).Info("stress run complete")

	fmt.Fprintf(os.Stdout, "Stress run %s completed %s operations from %d writers in %s.\n",
		run, humanize.Comma(int64(cmd.Writers*cmd.Ops)), cmd.Writers, time.Since(started).Round(time.Millisecond))
	return nil
}

// runStress submits |ops| operations from each of |writers| goroutines to the
// Store, and verifies their ordering and the final content of the Store.
func runStress(ctx context.Context, s *store.Store, writers, ops int) error {
	var submitMu, completeMu sync.Mutex
	var wg sync.WaitGroup

	// Guarded by |submitMu|.
	var next int
	var last = store.RetrievalResult{Kind: store.Empty}
	var mutated bool

	// Guarded by |completeMu|.
	var completed int
	var firstErr error

	var onComplete = func(ticket int, err error) {
		completeMu.Lock()
		defer completeMu.Unlock()
		defer wg.Done()

		if firstErr != nil {
			return
		} else if err != nil {
			firstErr = errors.WithMessagef(err, "operation %d", ticket)
		} else if ticket != completed {
			firstErr = errors.Errorf("operation %d completed out of order (expected %d)", ticket, completed)
		}
		completed++
	}

	var writersGroup, writersCtx = errgroup.WithContext(ctx)
	for w := 0; w != writers; w++ {
		var w = w
		writersGroup.Go(func() error {
			for i := 0; i != ops; i++ {
				if err := writersCtx.Err(); err != nil {
					return errors.WithMessagef(err, "writer %d", w)
				}
				submitMu.Lock()
				var ticket = next
				next++
				wg.Add(1)

				switch (w + i) % 3 {
				case 0:
					var record = stressRecord(ticket, i%5)
					s.Insert(record.Feed, record.Timestamp, func(r store.OperationResult) { onComplete(ticket, r.Err) })
					last, mutated = store.RetrievalResult{Kind: store.Found, Record: record}, true
				case 1:
					s.Delete(func(r store.OperationResult) { onComplete(ticket, r.Err) })
					last, mutated = store.RetrievalResult{Kind: store.Empty}, true
				default:
					s.Retrieve(func(r store.RetrievalResult) { onComplete(ticket, r.Err) })
				}
				submitMu.Unlock()
			}
			return nil
		})
	}

	var err = writersGroup.Wait()
	wg.Wait()

	if err != nil {
		return err
	} else if firstErr != nil {
		return firstErr
	} else if !mutated {
		return nil
	}

	var final = s.RetrieveAsync().Result()
	if final.Err != nil {
		return errors.WithMessage(final.Err, "retrieving final feed")
	} else if final.Kind != last.Kind {
		return errors.Errorf("final store content is %s (expected %s)", final.Kind, last.Kind)
	} else if final.Kind == store.Found && !sameRecord(final.Record, last.Record) {
		return errors.Errorf("final store content is not the last inserted feed")
	}
	return nil
}

func stressRecord(ticket, images int) feed.Record {
	var out = feed.Record{
		Feed:      make(feed.Feed, images),
		Timestamp: time.Unix(int64(ticket), 0).UTC(),
	}
	for i := range out.Feed {
		var id = uuid.New()
		var desc = fmt.Sprintf("image %d of operation %d", i, ticket)

		out.Feed[i] = feed.LocalFeedImage{
			ID:          id,
			Description: &desc,
			URL:         &url.URL{Scheme: "https", Host: "stress.feedcache.dev", Path: "/" + id.String()},
		}
	}
	return out
}

func sameRecord(a, b feed.Record) bool {
	if !a.Timestamp.Equal(b.Timestamp) || len(a.Feed) != len(b.Feed) {
		return false
	}
	for i := range a.Feed {
		if a.Feed[i].ID != b.Feed[i].ID || a.Feed[i].URL.String() != b.Feed[i].URL.String() {
			return false
		}
	}
	return true
}
