package queue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gc "gopkg.in/check.v1"
)

type QueueSuite struct{}

func (s *QueueSuite) TestExecutesInSubmissionOrder(c *gc.C) {
	var q = New("test-order")

	var out []int
	for i := 0; i != 1000; i++ {
		var i = i
		c.Check(q.Submit(func() { out = append(out, i) }), gc.IsNil)
	}
	q.Close()

	c.Assert(out, gc.HasLen, 1000)
	for i := range out {
		c.Check(out[i], gc.Equals, i)
	}
}

func (s *QueueSuite) TestConcurrentSubmittersAreSerialized(c *gc.C) {
	const producers, perProducer = 8, 250
	var q = New("test-concurrent")

	var inFlight, maxInFlight int32
	var seen = make([][]int, producers) // Accessed only by work items.
	var order, executed []int           // Tickets in submission, and execution order.
	var ticket int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for p := 0; p != producers; p++ {
		wg.Add(1)

		go func(p int) {
			defer wg.Done()

			for i := 0; i != perProducer; i++ {
				var i = i

				// Hold |mu| across Submit, so that ticket order is exactly
				// the order in which submissions were serialized.
				mu.Lock()
				var t = ticket
				ticket++
				order = append(order, t)

				c.Check(q.Submit(func() {
					if n := atomic.AddInt32(&inFlight, 1); n > atomic.LoadInt32(&maxInFlight) {
						atomic.StoreInt32(&maxInFlight, n)
					}
					seen[p] = append(seen[p], i)
					executed = append(executed, t)
					atomic.AddInt32(&inFlight, -1)
				}), gc.IsNil)
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()
	q.Close()

	c.Check(atomic.LoadInt32(&maxInFlight), gc.Equals, int32(1))
	c.Check(executed, gc.DeepEquals, order)

	for p := range seen {
		c.Assert(seen[p], gc.HasLen, perProducer)
		for i := range seen[p] {
			c.Check(seen[p][i], gc.Equals, i)
		}
	}
}

func (s *QueueSuite) TestSubmitDoesNotBlockOnRunningWork(c *gc.C) {
	var q = New("test-nonblocking")
	var releaseCh, startedCh = make(chan struct{}), make(chan struct{})

	c.Check(q.Submit(func() {
		close(startedCh)
		<-releaseCh
	}), gc.IsNil)
	<-startedCh

	var submitted = make(chan struct{})
	var count int32

	go func() {
		for i := 0; i != 100; i++ {
			c.Check(q.Submit(func() { atomic.AddInt32(&count, 1) }), gc.IsNil)
		}
		close(submitted)
	}()

	select {
	case <-submitted:
	case <-time.After(5 * time.Second):
		c.Fatal("Submit blocked on a running work item")
	}
	c.Check(q.Len(), gc.Equals, 100)
	c.Check(atomic.LoadInt32(&count), gc.Equals, int32(0))

	close(releaseCh)
	q.Close()
	c.Check(atomic.LoadInt32(&count), gc.Equals, int32(100))
}

func (s *QueueSuite) TestCloseDrainsThenRejects(c *gc.C) {
	var q = New("test-close")
	var releaseCh = make(chan struct{})
	var ran []string

	c.Check(q.Submit(func() { <-releaseCh; ran = append(ran, "first") }), gc.IsNil)
	c.Check(q.Submit(func() { ran = append(ran, "second") }), gc.IsNil)

	var closedCh = make(chan struct{})
	go func() {
		q.Close()
		close(closedCh)
	}()

	// Close blocks until pending items complete.
	select {
	case <-closedCh:
		c.Fatal("Close returned before pending work completed")
	case <-time.After(10 * time.Millisecond):
	}

	close(releaseCh)
	<-closedCh
	<-q.Done()

	c.Check(ran, gc.DeepEquals, []string{"first", "second"})
	c.Check(q.Submit(func() { ran = append(ran, "third") }), gc.Equals, ErrClosed)
	c.Check(q.Len(), gc.Equals, 0)

	q.Close() // Idempotent.
	c.Check(ran, gc.HasLen, 2)
}

func (s *QueueSuite) TestWorkRunsOffTheSubmittingGoroutine(c *gc.C) {
	var q = New("test-goroutine")
	defer q.Close()

	// A work item which blocks until its submitter proceeds would deadlock
	// if it were run by the submitter itself.
	var proceedCh, doneCh = make(chan struct{}), make(chan struct{})
	c.Check(q.Submit(func() {
		<-proceedCh
		close(doneCh)
	}), gc.IsNil)

	close(proceedCh)
	<-doneCh
}

var _ = gc.Suite(&QueueSuite{})

func Test(t *testing.T) { gc.TestingT(t) }
