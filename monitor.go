package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hako/durafmt"
)

const defaultMonitorInterval = 10 * time.Second

type hashRateSample struct {
	Total    uint64
	Delta    uint64
	Rate     float64 // hashes per second over the last interval
	Uptime   time.Duration
	Interval time.Duration
}

// hashRateMonitor turns the shared hash counter into an approximate rate.
// Reads are unsynchronised with the workers; the figure is best-effort.
type hashRateMonitor struct {
	counter  func() uint64
	interval time.Duration
	start    time.Time
	last     uint64
	stats    *submissionStats
	// health, when set, adds pipeline diagnostics to each report.
	health func() []any
}

func newHashRateMonitor(counter func() uint64, interval time.Duration, start time.Time, stats *submissionStats) *hashRateMonitor {
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	return &hashRateMonitor{
		counter:  counter,
		interval: interval,
		start:    start,
		stats:    stats,
	}
}

// sample reads the counter and advances the baseline. The rate is computed
// against the nominal interval, not the wall time since the last sample.
func (m *hashRateMonitor) sample(now time.Time) hashRateSample {
	current := m.counter()
	var delta uint64
	if current >= m.last {
		delta = current - m.last
	}
	m.last = current
	return hashRateSample{
		Total:    current,
		Delta:    delta,
		Rate:     float64(delta) / m.interval.Seconds(),
		Uptime:   now.Sub(m.start),
		Interval: m.interval,
	}
}

func (m *hashRateMonitor) report(s hashRateSample) {
	attrs := []any{
		"rate", formatHashRate(s.Rate),
		"hashes", s.Total,
		"uptime", formatUptime(s.Uptime),
	}
	if m.stats != nil {
		snap := m.stats.Snapshot()
		attrs = append(attrs, "accepted", snap.Accepted, "rejected", snap.Rejected, "failed", snap.Failed)
	}
	if m.health != nil {
		attrs = append(attrs, m.health()...)
	}
	logger.Info("hash rate (observed)", attrs...)
}

func (m *hashRateMonitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.report(m.sample(now))
		}
	}
}

// SpawnMonitor starts the periodic hash rate report. pool may be nil; when
// set its template fetch and notifier health are included, which is the
// only place a missing template shows up.
func (m *Miner) SpawnMonitor(ctx context.Context, interval time.Duration, stats *submissionStats, pool *Pool) *taskHandle {
	mon := newHashRateMonitor(m.Hashes, interval, time.Now(), stats)
	mon.health = func() []any {
		return m.healthAttrs(pool)
	}
	return startTask(ctx, "hash-monitor", mon.run)
}

// healthAttrs collects the pipeline diagnostics for the rate report.
func (m *Miner) healthAttrs(pool *Pool) []any {
	attrs := []any{"stale_skips", m.broadcaster.Dropped()}
	if pool == nil {
		return attrs
	}
	fetches, failures := pool.client.TemplateFetchStats()
	attrs = append(attrs, "template_fetches", fetches, "template_failures", failures)
	if err := pool.client.LastError(); err != nil {
		attrs = append(attrs, "last_error", err)
	}
	if n := pool.templateNotifier(); n != nil {
		st := n.Stats()
		attrs = append(attrs,
			"zmq_healthy", st.Healthy,
			"zmq_notifications", st.Received,
			"zmq_disconnects", st.Disconnects,
			"zmq_reconnects", st.Reconnects,
		)
	}
	return attrs
}

func formatHashRate(hps float64) string {
	switch {
	case hps >= 1e9:
		return fmt.Sprintf("%.2f GH/s", hps/1e9)
	case hps >= 1e6:
		return fmt.Sprintf("%.2f MH/s", hps/1e6)
	default:
		return fmt.Sprintf("%.2f kH/s", hps/1e3)
	}
}

func formatUptime(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	return durafmt.Parse(d.Truncate(time.Second)).LimitFirstN(2).String()
}
