package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// submissionJournal appends every submission outcome to a sqlite table for
// operators to inspect. It is never read back by the miner.
type submissionJournal struct {
	mu     sync.Mutex
	db     *sql.DB
	insert *sql.Stmt
	miner  string
}

func openSubmissionJournal(path, minerName string) (*submissionJournal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			submitted_at_unix_ms INTEGER NOT NULL,
			miner TEXT NOT NULL,
			template_id TEXT NOT NULL,
			nonce TEXT NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT,
			latency_ms INTEGER NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS submissions_template_idx ON submissions (template_id)`); err != nil {
		_ = db.Close()
		return nil, err
	}
	stmt, err := db.Prepare(`
		INSERT INTO submissions (submitted_at_unix_ms, miner, template_id, nonce, outcome, reason, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &submissionJournal{db: db, insert: stmt, miner: minerName}, nil
}

func (j *submissionJournal) observeSubmission(rec submissionRecord) {
	if j == nil {
		return
	}
	var reason any
	if rec.Reason != "" {
		reason = rec.Reason
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.insert == nil {
		return
	}
	if _, err := j.insert.Exec(
		rec.At.UnixMilli(),
		j.miner,
		rec.TemplateID.Hex(),
		rec.Nonce.Hex(),
		rec.Outcome.String(),
		reason,
		rec.Latency.Milliseconds(),
	); err != nil {
		logger.Warn("journal submission failed", "template", rec.TemplateID.Short(), "error", err)
	}
}

func (j *submissionJournal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.insert != nil {
		_ = j.insert.Close()
		j.insert = nil
	}
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}
