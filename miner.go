package main

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/crypto/rand"
	"github.com/remeh/sizedwaitgroup"
)

const (
	// maxNumWorkers is the largest worker count accepted at startup.
	maxNumWorkers = 255
)

type minerOptions struct {
	Hasher         digestHasher
	BroadcastDepth int
	ResultDepth    int
	MaxWorkers     int
}

// Miner owns the hashing side of the pipeline: the template broadcast the
// workers listen on, the result queue they feed, and the shared hash
// counter the monitor samples.
type Miner struct {
	broadcaster *templateBroadcaster
	results     *resultQueue
	hasher      digestHasher
	hashes      atomic.Uint64
	workers     sizedwaitgroup.SizedWaitGroup
	limit       int
	spawnMu     sync.Mutex
	nextID      atomic.Int64
	running     atomic.Int64
}

func NewMiner(opts minerOptions) *Miner {
	if opts.Hasher == nil {
		opts.Hasher = blake3Hasher{}
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = maxNumWorkers
	}
	return &Miner{
		broadcaster: newTemplateBroadcaster(opts.BroadcastDepth),
		results:     newResultQueue(opts.ResultDepth),
		hasher:      opts.Hasher,
		workers:     sizedwaitgroup.New(opts.MaxWorkers),
		limit:       opts.MaxWorkers,
	}
}

// Broadcaster is the template channel the refresher publishes on.
func (m *Miner) Broadcaster() *templateBroadcaster {
	return m.broadcaster
}

// Results is the queue the submitter drains.
func (m *Miner) Results() *resultQueue {
	return m.results
}

// Hashes returns the number of scoring attempts made so far by all
// workers. The value is approximate while workers are running.
func (m *Miner) Hashes() uint64 {
	return m.hashes.Load()
}

// RunningWorkers returns how many worker goroutines have not yet exited.
func (m *Miner) RunningWorkers() int {
	return int(m.running.Load())
}

// SpawnWorker starts one hashing worker subscribed to the template
// broadcast. It never waits for a slot: once the worker limit is reached
// it returns errWorkerLimit.
func (m *Miner) SpawnWorker(ctx context.Context) (*taskHandle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prng, err := rand.NewPRNG()
	if err != nil {
		return nil, fmt.Errorf("seed worker prng: %w", err)
	}

	m.spawnMu.Lock()
	if int(m.running.Load()) >= m.limit {
		m.spawnMu.Unlock()
		return nil, fmt.Errorf("%w (%d running)", errWorkerLimit, m.limit)
	}
	// A slot is always free here: exiting workers release it before they
	// stop counting as running.
	m.running.Add(1)
	m.workers.Add()
	m.spawnMu.Unlock()

	id := int(m.nextID.Add(1))
	w := m.newWorker(id, prng)
	h := startTask(ctx, "worker-"+strconv.Itoa(id), func(ctx context.Context) {
		defer m.running.Add(-1)
		defer m.workers.Done()
		w.run(ctx)
	})
	return h, nil
}

func (m *Miner) newWorker(id int, prng *rand.PRNG) *minerWorker {
	return &minerWorker{
		id:      id,
		sub:     m.broadcaster.Subscribe(),
		results: m.results,
		hashes:  &m.hashes,
		hasher:  m.hasher,
		prng:    prng,
	}
}

// TerminateWorkers asks every worker, current and future, to stop after at
// most one more scoring attempt. It returns how many running workers were
// reached.
func (m *Miner) TerminateWorkers() int {
	return m.broadcaster.Publish(shutdownEvent())
}

// WaitTimeout is Wait bounded by d; it reports whether all workers exited.
func (m *Miner) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		m.workers.Wait()
		close(done)
	}()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
