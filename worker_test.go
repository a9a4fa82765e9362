package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestMiner(depth int) *Miner {
	return NewMiner(minerOptions{Hasher: blake3Hasher{}, ResultDepth: depth})
}

func TestWorkerWithoutTemplateNeverScores(t *testing.T) {
	m := newTestMiner(4)
	w := m.newWorker(1, newTestPRNG(t))
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		if !w.step(ctx) {
			t.Fatal("worker stopped without a shutdown event")
		}
	}
	if got := m.Hashes(); got != 0 {
		t.Fatalf("Hashes = %d, want 0", got)
	}
	if w.state != workerIdle {
		t.Fatalf("state = %s, want idle", w.state)
	}
	if m.Results().pending() != 0 {
		t.Fatal("idle worker produced a candidate")
	}
}

func TestWorkerStopsOnShutdown(t *testing.T) {
	m := newTestMiner(4)
	w := m.newWorker(1, newTestPRNG(t))
	ctx := context.Background()

	m.Broadcaster().Publish(newTemplateEvent(testTemplate(1, MinDigest)))
	if !w.step(ctx) {
		t.Fatal("worker stopped early")
	}
	if got := m.Hashes(); got != 1 {
		t.Fatalf("Hashes = %d, want 1", got)
	}

	if got := m.TerminateWorkers(); got != 1 {
		t.Fatalf("TerminateWorkers reached %d workers, want 1", got)
	}
	if w.step(ctx) {
		t.Fatal("worker kept running after shutdown")
	}
	for i := 0; i < 10; i++ {
		w.step(ctx)
	}
	if got := m.Hashes(); got != 1 {
		t.Fatalf("Hashes after shutdown = %d, want 1", got)
	}
	if w.state != workerStopped {
		t.Fatalf("state = %s, want stopped", w.state)
	}
}

func TestWorkerIdlesWhenTemplateWithdrawn(t *testing.T) {
	m := newTestMiner(4)
	w := m.newWorker(1, newTestPRNG(t))
	ctx := context.Background()

	m.Broadcaster().Publish(newTemplateEvent(testTemplate(1, MinDigest)))
	w.step(ctx)
	w.step(ctx)
	if w.state != workerActive {
		t.Fatalf("state = %s, want active", w.state)
	}
	before := m.Hashes()

	m.Broadcaster().Publish(newTemplateEvent(nil))
	for i := 0; i < 100; i++ {
		w.step(ctx)
	}
	if w.state != workerIdle {
		t.Fatalf("state = %s, want idle", w.state)
	}
	if got := m.Hashes(); got != before {
		t.Fatalf("Hashes grew from %d to %d while idle", before, got)
	}
}

func TestWorkerCounterCountsEveryAttempt(t *testing.T) {
	const numWorkers = 8
	m := newTestMiner(4)
	workers := make([]*minerWorker, numWorkers)
	for i := range workers {
		workers[i] = m.newWorker(i+1, newTestPRNG(t))
	}
	m.Broadcaster().Publish(newTemplateEvent(testTemplate(3, MinDigest)))

	ctx := context.Background()
	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *minerWorker) {
			defer wg.Done()
			<-start
			w.step(ctx)
		}(w)
	}
	close(start)
	wg.Wait()

	if got := m.Hashes(); got != numWorkers {
		t.Fatalf("Hashes = %d, want %d", got, numWorkers)
	}
}

func TestWorkerEmitsCandidateForTrivialThreshold(t *testing.T) {
	m := newTestMiner(4)
	w := m.newWorker(1, newTestPRNG(t))
	tpl := testTemplate(7, MaxDigest)
	m.Broadcaster().Publish(newTemplateEvent(tpl))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	w.step(ctx)

	c, ok := m.Results().recv(ctx)
	if !ok {
		t.Fatal("no candidate for a threshold every score passes")
	}
	if c.TemplateID != tpl.ID {
		t.Fatalf("candidate template = %v, want %v", c.TemplateID, tpl.ID)
	}
	if !tpl.Passes(tpl.Score(blake3Hasher{}, c.Nonce)) {
		t.Fatal("emitted nonce does not pass its own template")
	}
}

func TestWorkerNeverEmitsForImpossibleThreshold(t *testing.T) {
	m := newTestMiner(4)
	w := m.newWorker(1, newTestPRNG(t))
	m.Broadcaster().Publish(newTemplateEvent(testTemplate(8, MinDigest)))

	ctx := context.Background()
	for i := 0; i < 10000; i++ {
		w.step(ctx)
	}
	if got := m.Hashes(); got != 10000 {
		t.Fatalf("Hashes = %d, want 10000", got)
	}
	if m.Results().pending() != 0 {
		t.Fatalf("got %d candidates for the zero threshold", m.Results().pending())
	}
}

func TestWorkerDropsCandidateWhenQueueClosed(t *testing.T) {
	m := newTestMiner(1)
	w := m.newWorker(1, newTestPRNG(t))
	m.Results().close()
	m.Broadcaster().Publish(newTemplateEvent(testTemplate(9, MaxDigest)))

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if !w.step(ctx) {
			t.Fatal("closed result queue must not stop the worker")
		}
	}
	if got := m.Hashes(); got != 5 {
		t.Fatalf("Hashes = %d, want 5", got)
	}
}

func TestSpawnedWorkersExitOnShutdown(t *testing.T) {
	m := NewMiner(minerOptions{Hasher: blake3Hasher{}, ResultDepth: 4, MaxWorkers: 3})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := m.SpawnWorker(ctx); err != nil {
			t.Fatalf("SpawnWorker: %v", err)
		}
	}
	// All three are parked idle; the shutdown must still reach them.
	m.TerminateWorkers()
	if !m.WaitTimeout(2 * time.Second) {
		t.Fatalf("workers did not exit; %d still running", m.RunningWorkers())
	}
	if m.RunningWorkers() != 0 {
		t.Fatalf("RunningWorkers = %d, want 0", m.RunningWorkers())
	}
	if m.Broadcaster().Subscribers() != 0 {
		t.Fatalf("workers left %d subscriptions behind", m.Broadcaster().Subscribers())
	}
}

func TestSpawnedWorkerHashesWhileActive(t *testing.T) {
	m := newTestMiner(4)
	h, err := m.SpawnWorker(context.Background())
	if err != nil {
		t.Fatalf("SpawnWorker: %v", err)
	}
	m.Broadcaster().Publish(newTemplateEvent(testTemplate(4, MinDigest)))

	deadline := time.Now().Add(2 * time.Second)
	for m.Hashes() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if m.Hashes() == 0 {
		t.Fatal("active worker never scored a nonce")
	}
	h.Abort()
	h.Wait()
}

func TestSpawnWorkerPastLimitFailsFast(t *testing.T) {
	m := NewMiner(minerOptions{Hasher: blake3Hasher{}, ResultDepth: 4, MaxWorkers: 2})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := m.SpawnWorker(ctx); err != nil {
			t.Fatalf("SpawnWorker #%d: %v", i+1, err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := m.SpawnWorker(ctx)
		errCh <- err
	}()
	select {
	case err := <-errCh:
		if !errors.Is(err, errWorkerLimit) {
			t.Fatalf("SpawnWorker past the limit = %v, want errWorkerLimit", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SpawnWorker blocked instead of failing at the limit")
	}
	if m.RunningWorkers() != 2 {
		t.Fatalf("RunningWorkers = %d, want 2", m.RunningWorkers())
	}

	m.TerminateWorkers()
	if !m.WaitTimeout(2 * time.Second) {
		t.Fatal("workers did not exit")
	}
	// Freed slots can be taken again.
	if _, err := m.SpawnWorker(ctx); err != nil {
		t.Fatalf("SpawnWorker after exit: %v", err)
	}
	if !m.WaitTimeout(2 * time.Second) {
		t.Fatal("late worker did not see the shutdown")
	}
}

func TestSpawnWorkerCanceledContext(t *testing.T) {
	m := newTestMiner(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.SpawnWorker(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("SpawnWorker with canceled ctx = %v, want context.Canceled", err)
	}
	if m.RunningWorkers() != 0 {
		t.Fatalf("RunningWorkers = %d, want 0", m.RunningWorkers())
	}
}
