package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
)

const (
	defaultTemplateInterval = 30 * time.Second
)

// Pool runs the two coordinator-facing loops: polling templates onto the
// broadcast and draining found nonces back to the coordinator.
type Pool struct {
	client    *PoolClient
	interval  time.Duration
	observers []submissionObserver
	// refreshNow triggers an out-of-schedule template fetch.
	refreshNow chan struct{}
	notifier   atomic.Pointer[templateNotifier]
}

func NewPool(client *PoolClient, interval time.Duration, observers ...submissionObserver) *Pool {
	if interval <= 0 {
		interval = defaultTemplateInterval
	}
	return &Pool{
		client:     client,
		interval:   interval,
		observers:  observers,
		refreshNow: make(chan struct{}, 1),
	}
}

// templateNotifier returns the ZMQ watcher, or nil when none was started.
func (p *Pool) templateNotifier() *templateNotifier {
	return p.notifier.Load()
}

// RequestRefresh asks the refresher to fetch a template now instead of at
// the next tick. Requests made while one is pending are merged.
func (p *Pool) RequestRefresh() {
	select {
	case p.refreshNow <- struct{}{}:
	default:
	}
}

// SpawnTemplateRefresher fetches a template immediately and then on every
// interval tick, publishing the result to b. A failed fetch publishes "no
// template" so workers idle instead of mining stale work.
func (p *Pool) SpawnTemplateRefresher(ctx context.Context, b *templateBroadcaster) *taskHandle {
	return startTask(ctx, "template-refresher", func(ctx context.Context) {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			p.refreshOnce(ctx, b)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-p.refreshNow:
			}
		}
	})
}

func (p *Pool) refreshOnce(ctx context.Context, b *templateBroadcaster) {
	tpl, err := p.client.FetchTemplate(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Warn("template fetch failed; workers will idle", "pool", p.client.EndpointLabel(), "error", err)
		tpl = nil
	} else if debugLogging {
		logger.Debug("template fetched", "template", tpl.ID.Short(), "dump", spew.Sdump(tpl))
	}
	delivered := b.Publish(newTemplateEvent(tpl))
	if tpl != nil {
		logger.Info("new template", "template", tpl.ID.Short(), "threshold", tpl.Threshold.Short(), "workers", delivered)
	}
}

// SpawnNonceSubmitter is the only consumer of q. Candidates are submitted
// one at a time in queue order, with no retries. When the submitter exits
// q is closed so workers stop trying to hand it results.
func (p *Pool) SpawnNonceSubmitter(ctx context.Context, q *resultQueue) *taskHandle {
	return startTask(ctx, "nonce-submitter", func(ctx context.Context) {
		defer q.close()
		for {
			cand, ok := q.recv(ctx)
			if !ok {
				return
			}
			rec := p.submit(ctx, cand)
			if ctx.Err() != nil && rec.Outcome == outcomeFailed {
				return
			}
			p.notify(rec)
		}
	})
}

func (p *Pool) submit(ctx context.Context, cand Candidate) submissionRecord {
	label := cand.TemplateID.Hex()
	logger.Info("submitting work", "template", label)
	start := time.Now()
	err := p.client.SubmitWork(ctx, cand)
	outcome, reason := classifySubmission(err)
	rec := submissionRecord{
		At:         start,
		TemplateID: cand.TemplateID,
		Nonce:      cand.Nonce,
		Outcome:    outcome,
		Reason:     reason,
		Latency:    time.Since(start),
	}
	switch outcome {
	case outcomeAccepted:
		logger.Info("work accepted by pool", "template", label, "latency", rec.Latency)
	case outcomeRejected:
		logger.Error("work rejected", "template", label, "reason", reason)
	default:
		switch {
		case isDecodeError(err):
			logger.Error("failed to parse submission response", "template", label, "error", err)
		case isTransportError(err):
			logger.Error("submission failed; coordinator unreachable", "template", label, "pool", p.client.EndpointLabel(), "error", err)
		default:
			logger.Error("submission failed", "template", label, "error", err)
		}
	}
	return rec
}

func (p *Pool) notify(rec submissionRecord) {
	for _, o := range p.observers {
		if o == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("submission observer panic", "error", r)
				}
			}()
			o.observeSubmission(rec)
		}()
	}
}
