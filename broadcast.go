package main

import (
	"sync"
)

const defaultBroadcastDepth = 16

// templateBroadcaster fans worker events out to every subscribed worker.
// Each subscription owns a bounded buffer; publishing never blocks. A
// subscriber that falls behind loses its oldest pending events and so
// catches up to the latest ones.
type templateBroadcaster struct {
	depth int

	mu       sync.Mutex
	subs     map[*templateSubscription]struct{}
	shutdown bool
	dropped  uint64
}

type templateSubscription struct {
	b *templateBroadcaster
	C chan workerEvent
}

func newTemplateBroadcaster(depth int) *templateBroadcaster {
	if depth <= 0 {
		depth = defaultBroadcastDepth
	}
	return &templateBroadcaster{
		depth: depth,
		subs:  make(map[*templateSubscription]struct{}),
	}
}

// Subscribe returns a subscription that sees every event published from
// now on. Once shutdown has been published, new subscriptions start with
// the shutdown event already pending.
func (b *templateBroadcaster) Subscribe() *templateSubscription {
	sub := &templateSubscription{
		b: b,
		C: make(chan workerEvent, b.depth),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	if b.shutdown {
		sub.C <- shutdownEvent()
	}
	b.mu.Unlock()
	return sub
}

// Unsubscribe detaches sub. The channel is left open so a worker racing
// with its own exit never reads from a closed channel.
func (s *templateSubscription) Unsubscribe() {
	if s == nil || s.b == nil {
		return
	}
	s.b.mu.Lock()
	delete(s.b.subs, s)
	s.b.mu.Unlock()
}

// Poll returns the next pending event without blocking.
func (s *templateSubscription) Poll() (workerEvent, bool) {
	select {
	case ev := <-s.C:
		return ev, true
	default:
		return workerEvent{}, false
	}
}

// Publish delivers ev to every current subscriber and returns how many
// subscribers received it. With no subscribers it is a no-op, and once
// shutdown has been published every later event is ignored.
func (b *templateBroadcaster) Publish(ev workerEvent) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shutdown {
		// Shutdown is final; nothing may evict it from a lagging buffer.
		return 0
	}
	if ev.kind == eventShutdown {
		b.shutdown = true
	}
	delivered := 0
	lagging := 0
	for sub := range b.subs {
		if offerLatest(sub.C, ev) {
			lagging++
		}
		delivered++
	}
	if lagging > 0 {
		b.dropped += uint64(lagging)
		if debugLogging {
			logger.Debug("template broadcast skipped stale events", "lagging", lagging, "subscribers", len(b.subs), "event", ev.String())
		}
	}
	return delivered
}

// offerLatest sends ev, evicting the oldest buffered event while the
// buffer is full, and reports whether anything was evicted. Publish holds
// the broadcaster lock so the only other party touching the buffer is the
// owning worker, and it only ever drains.
func offerLatest(ch chan workerEvent, ev workerEvent) (evicted bool) {
	for {
		select {
		case ch <- ev:
			return evicted
		default:
		}
		select {
		case <-ch:
			evicted = true
		default:
		}
	}
}

// Dropped returns how many times a lagging subscriber had stale events
// discarded.
func (b *templateBroadcaster) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Subscribers returns the number of attached subscriptions.
func (b *templateBroadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
