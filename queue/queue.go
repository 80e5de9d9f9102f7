// Package queue provides a batching facade in front of a slow sink
// (persistence, a UI bridge): entries accumulate and flush together no
// more often than a minimum interval apart.
package queue

import (
	"sync"
	"time"
)

// DefaultMinInterval is the default minimum inter-flush interval.
const DefaultMinInterval = 200 * time.Millisecond

// Sink receives one flushed batch, in push order.
type Sink func(batch []any)

// Queue batches push()ed entries and flushes them to Sink no more
// often than MinInterval apart. The zero value is not usable; use New.
type Queue struct {
	mu          sync.Mutex
	sink        Sink
	minInterval time.Duration
	pending     []any
	lastFlush   time.Time
	timer       *time.Timer
	now         func() time.Time
}

// New returns a queue flushing to sink no more than once per
// minInterval. minInterval <= 0 uses DefaultMinInterval.
func New(sink Sink, minInterval time.Duration) *Queue {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Queue{sink: sink, minInterval: minInterval, now: time.Now}
}

// Push appends entry and flushes immediately if the minimum interval has
// already elapsed since the last flush; otherwise it schedules a timer
// for the remaining delay, unless one is already pending.
func (q *Queue) Push(entry any) {
	q.mu.Lock()
	q.pending = append(q.pending, entry)
	elapsed := q.now().Sub(q.lastFlush)
	if q.lastFlush.IsZero() || elapsed >= q.minInterval {
		q.flushLocked()
		q.mu.Unlock()
		return
	}
	if q.timer == nil {
		remaining := q.minInterval - elapsed
		q.timer = time.AfterFunc(remaining, q.onTimer)
	}
	q.mu.Unlock()
}

func (q *Queue) onTimer() {
	q.mu.Lock()
	q.timer = nil
	q.flushLocked()
	q.mu.Unlock()
}

// Flush flushes immediately regardless of the interval when force is
// true; otherwise it flushes only if the minimum interval has elapsed
// since the last flush (or nothing has been flushed yet), and is a no-op
// inside the interval.
func (q *Queue) Flush(force bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !force && q.now().Sub(q.lastFlush) < q.minInterval && !q.lastFlush.IsZero() {
		return
	}
	q.flushLocked()
}

// Cancel drops every pending entry without flushing it and stops any
// scheduled timer. Already-flushed batches are unaffected.
func (q *Queue) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.pending = nil
}

func (q *Queue) flushLocked() {
	if len(q.pending) == 0 {
		return
	}
	batch := q.pending
	q.pending = nil
	q.lastFlush = q.now()
	if q.sink != nil {
		q.sink(batch)
	}
}
