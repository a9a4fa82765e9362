package main

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/decred/dcrd/crypto/rand"
)

type workerState uint8

const (
	workerIdle workerState = iota
	workerActive
	workerStopped
)

func (s workerState) String() string {
	switch s {
	case workerIdle:
		return "idle"
	case workerActive:
		return "active"
	case workerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// minerWorker repeatedly scores random nonces against the most recent
// template it has seen. It talks to the rest of the process only through
// its subscription, the result queue and the shared hash counter.
type minerWorker struct {
	id      int
	sub     *templateSubscription
	results *resultQueue
	hashes  *atomic.Uint64
	hasher  digestHasher
	prng    *rand.PRNG

	state   workerState
	current *Template
}

// apply folds one broadcast event into the worker state.
func (w *minerWorker) apply(ev workerEvent) {
	switch ev.kind {
	case eventShutdown:
		w.state = workerStopped
		w.current = nil
	case eventNewTemplate:
		if w.state == workerStopped {
			return
		}
		w.current = ev.template
		if ev.template == nil {
			w.state = workerIdle
		} else {
			w.state = workerActive
		}
	}
}

// step runs one loop iteration: a non-blocking look at the broadcast and,
// when holding a template, one scoring attempt. It returns false once the
// worker has stopped.
func (w *minerWorker) step(ctx context.Context) bool {
	if ev, ok := w.sub.Poll(); ok {
		w.apply(ev)
	}
	switch w.state {
	case workerStopped:
		return false
	case workerIdle:
		return true
	}
	w.attempt(ctx)
	return true
}

// attempt scores a single random nonce. The counter is bumped whether or
// not the nonce passes; the submission of a passing nonce is not ordered
// against that increment.
func (w *minerWorker) attempt(ctx context.Context) {
	tpl := w.current
	nonce := randomDigest(w.prng)
	score := tpl.Score(w.hasher, nonce)
	w.hashes.Add(1)
	if !tpl.Passes(score) {
		return
	}
	// A closed queue means shutdown is underway; the find is dropped.
	_ = w.results.send(ctx, Candidate{TemplateID: tpl.ID, Nonce: nonce})
	runtime.Gosched()
}

func (w *minerWorker) run(ctx context.Context) {
	defer w.sub.Unsubscribe()
	if debugLogging {
		logger.Debug("worker started", "worker", w.id)
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !w.step(ctx) {
			if debugLogging {
				logger.Debug("worker stopped", "worker", w.id)
			}
			return
		}
		if w.state != workerIdle {
			continue
		}
		// Nothing to hash: park until the broadcast has something new.
		select {
		case ev := <-w.sub.C:
			w.apply(ev)
		case <-ctx.Done():
			return
		}
	}
}
