package main

import (
	"context"
	"sync"
)

const (
	// defaultResultQueueDepth is large relative to the expected pass rate;
	// a full queue only stalls the worker that is sending.
	defaultResultQueueDepth = 100
)

// resultQueue carries candidates from many workers to the single
// submitter. Closing it tells producers the consumer is gone; the data
// channel itself is never closed so a racing send can't panic.
type resultQueue struct {
	ch        chan Candidate
	done      chan struct{}
	closeOnce sync.Once
}

func newResultQueue(depth int) *resultQueue {
	if depth <= 0 {
		depth = defaultResultQueueDepth
	}
	return &resultQueue{
		ch:   make(chan Candidate, depth),
		done: make(chan struct{}),
	}
}

// send enqueues c, blocking only the caller while the queue is full. It
// returns errResultQueueClosed once the consumer has gone away, or the
// context error if ctx ends first.
func (q *resultQueue) send(ctx context.Context, c Candidate) error {
	select {
	case <-q.done:
		return errResultQueueClosed
	default:
	}
	select {
	case q.ch <- c:
		return nil
	case <-q.done:
		return errResultQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recv waits for the next candidate. ok is false once the queue has been
// closed and drained, or ctx has ended.
func (q *resultQueue) recv(ctx context.Context) (Candidate, bool) {
	select {
	case c := <-q.ch:
		return c, true
	default:
	}
	select {
	case c := <-q.ch:
		return c, true
	case <-q.done:
		select {
		case c := <-q.ch:
			return c, true
		default:
			return Candidate{}, false
		}
	case <-ctx.Done():
		return Candidate{}, false
	}
}

// close marks the consumer as gone. Safe to call more than once.
func (q *resultQueue) close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// pending returns the number of queued candidates.
func (q *resultQueue) pending() int {
	return len(q.ch)
}
