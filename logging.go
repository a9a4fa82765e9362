package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrick/logrotate/rotator"
)

var (
	logger       = newSimpleLogger()
	debugLogging bool
)

const (
	logLevelDebug logLevel = iota
	logLevelInfo
	logLevelWarn
	logLevelError
)

const (
	// logRotateThresholdKB is the size at which the log file is rolled.
	logRotateThresholdKB = 10 * 1024
	logRotateMaxRolls    = 3
)

var levelNames = []string{
	"DEBUG",
	"INFO",
	"WARN",
	"ERROR",
}

type logLevel int

func (l logLevel) String() string {
	if int(l) >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

func parseLogLevel(name string) (logLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return logLevelDebug, nil
	case "", "info":
		return logLevelInfo, nil
	case "warn", "warning":
		return logLevelWarn, nil
	case "error":
		return logLevelError, nil
	default:
		return logLevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
	}
}

type logEvent struct {
	at    time.Time
	level logLevel
	msg   string
	attrs []any
}

// simpleLogger formats "key value" pairs onto one line per event. Events
// are queued and written by a single goroutine so hot paths never wait on
// I/O.
type simpleLogger struct {
	level    atomic.Int32
	queue    chan logEvent
	done     chan struct{}
	writerMu sync.RWMutex
	writer   io.Writer
	wg       sync.WaitGroup
	stopOnce sync.Once
	closing  atomic.Bool
}

func newSimpleLogger() *simpleLogger {
	l := &simpleLogger{
		queue:  make(chan logEvent, 4096),
		done:   make(chan struct{}),
		writer: os.Stdout,
	}
	l.level.Store(int32(logLevelInfo))
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *simpleLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case evt := <-l.queue:
			l.writeEntry(evt)
		case <-l.done:
			for {
				select {
				case evt := <-l.queue:
					l.writeEntry(evt)
				default:
					return
				}
			}
		}
	}
}

func (l *simpleLogger) log(level logLevel, msg string, attrs ...any) {
	if level < logLevel(l.level.Load()) {
		return
	}
	if l.closing.Load() {
		return
	}
	select {
	case l.queue <- logEvent{at: time.Now(), level: level, msg: msg, attrs: append([]any(nil), attrs...)}:
	case <-l.done:
	}
}

func (l *simpleLogger) Info(msg string, attrs ...any) {
	l.log(logLevelInfo, msg, attrs...)
}

func (l *simpleLogger) Warn(msg string, attrs ...any) {
	l.log(logLevelWarn, msg, attrs...)
}

func (l *simpleLogger) Error(msg string, attrs ...any) {
	l.log(logLevelError, msg, attrs...)
}

func (l *simpleLogger) Debug(msg string, attrs ...any) {
	l.log(logLevelDebug, msg, attrs...)
}

func (l *simpleLogger) setLevel(level logLevel) {
	l.level.Store(int32(level))
}

func (l *simpleLogger) setWriter(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	l.writerMu.Lock()
	l.writer = w
	l.writerMu.Unlock()
}

// Stop drains queued events and closes the writer. Later calls to the
// logger are dropped.
func (l *simpleLogger) Stop() {
	l.stopOnce.Do(func() {
		l.closing.Store(true)
		close(l.done)
		l.wg.Wait()
		l.writerMu.Lock()
		if closer, ok := l.writer.(io.Closer); ok {
			_ = closer.Close()
		}
		l.writer = io.Discard
		l.writerMu.Unlock()
	})
}

func (l *simpleLogger) writeEntry(evt logEvent) {
	var entry strings.Builder
	entry.WriteString(evt.at.UTC().Format(time.RFC3339Nano))
	entry.WriteString(" [")
	entry.WriteString(evt.level.String())
	entry.WriteString("] ")
	entry.WriteString(evt.msg)
	if attrs := formatAttrs(evt.attrs); attrs != "" {
		entry.WriteByte(' ')
		entry.WriteString(attrs)
	}
	entry.WriteByte('\n')

	l.writerMu.RLock()
	w := l.writer
	l.writerMu.RUnlock()
	_, _ = io.WriteString(w, entry.String())
}

func formatAttrs(attrs []any) string {
	if len(attrs) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(attrs); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		key := fmt.Sprint(attrs[i])
		if i+1 < len(attrs) {
			b.WriteString(key)
			b.WriteByte('=')
			b.WriteString(fmt.Sprint(attrs[i+1]))
			i++
		} else {
			b.WriteString(key)
		}
	}
	return b.String()
}

// teeWriter mirrors log lines to stdout and a rotating file.
type teeWriter struct {
	stdout io.Writer
	file   *rotator.Rotator
}

func (w *teeWriter) Write(p []byte) (int, error) {
	if w.stdout != nil {
		_, _ = w.stdout.Write(p)
	}
	if w.file != nil {
		_, _ = w.file.Write(p)
	}
	return len(p), nil
}

func (w *teeWriter) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

// configureLogging applies the level and, when logFile is set, starts
// mirroring output into a size-rotated file.
func configureLogging(levelName, logFile string, quiet bool) error {
	level, err := parseLogLevel(levelName)
	if err != nil {
		return err
	}
	logger.setLevel(level)
	debugLogging = level <= logLevelDebug

	w := &teeWriter{}
	if !quiet {
		w.stdout = os.Stdout
	}
	if logFile = strings.TrimSpace(logFile); logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		r, err := rotator.New(logFile, logRotateThresholdKB, false, logRotateMaxRolls)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w.file = r
	}
	logger.setWriter(w)
	return nil
}

func fatal(msg string, err error, attrs ...any) {
	attrPairs := append(attrs, "error", err)
	logger.Error(msg, attrPairs...)
	logger.Stop()
	os.Exit(1)
}
