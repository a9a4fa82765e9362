package main

import (
	"sync"
	"sync/atomic"
	"time"
)

type submissionOutcome uint8

const (
	outcomeAccepted submissionOutcome = iota
	outcomeRejected
	outcomeFailed
)

func (o submissionOutcome) String() string {
	switch o {
	case outcomeAccepted:
		return "accepted"
	case outcomeRejected:
		return "rejected"
	case outcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// submissionRecord is what the submitter reports for every candidate it
// sends. Reason holds the coordinator's rejection text or the failure.
type submissionRecord struct {
	At         time.Time
	TemplateID Digest
	Nonce      Digest
	Outcome    submissionOutcome
	Reason     string
	Latency    time.Duration
}

// classifySubmission maps a SubmitWork error onto an outcome.
func classifySubmission(err error) (submissionOutcome, string) {
	if err == nil {
		return outcomeAccepted, ""
	}
	if reason, ok := rejectionReason(err); ok {
		return outcomeRejected, reason
	}
	return outcomeFailed, err.Error()
}

// submissionObserver receives every submission record, in order, on the
// submitter goroutine.
type submissionObserver interface {
	observeSubmission(rec submissionRecord)
}

// submissionStats keeps running totals for the rate report.
type submissionStats struct {
	accepted atomic.Uint64
	rejected atomic.Uint64
	failed   atomic.Uint64

	mu         sync.RWMutex
	lastReason string
	lastAt     time.Time
}

func (s *submissionStats) observeSubmission(rec submissionRecord) {
	switch rec.Outcome {
	case outcomeAccepted:
		s.accepted.Add(1)
	case outcomeRejected:
		s.rejected.Add(1)
	case outcomeFailed:
		s.failed.Add(1)
	}
	s.mu.Lock()
	s.lastAt = rec.At
	if rec.Outcome != outcomeAccepted {
		s.lastReason = rec.Reason
	}
	s.mu.Unlock()
}

type submissionSnapshot struct {
	Accepted   uint64
	Rejected   uint64
	Failed     uint64
	LastReason string
	LastAt     time.Time
}

func (s *submissionStats) Snapshot() submissionSnapshot {
	if s == nil {
		return submissionSnapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return submissionSnapshot{
		Accepted:   s.accepted.Load(),
		Rejected:   s.rejected.Load(),
		Failed:     s.failed.Load(),
		LastReason: s.lastReason,
		LastAt:     s.lastAt,
	}
}
