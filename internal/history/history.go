// Package history appends completed exchanges to a plain-text interaction
// log. The log is line-oriented and append-only so it can be tailed while
// the brain is running.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Logger writes one block per exchange:
//
//	2026-08-29T10:15:02Z | User: what time is it
//	2026-08-29T10:15:03Z | GENESIS: The time is 10:15.
//	<blank line>
//
// Failures are logged and swallowed; the interaction log is best-effort
// and must never break a conversation turn.
type Logger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
	log  *zap.Logger
}

// New creates the logger. The parent directory is created on first write.
func New(path string, log *zap.Logger) *Logger {
	return &Logger{
		path: path,
		now:  time.Now,
		log:  log.Named("history"),
	}
}

// RecordExchange appends one user/robot exchange.
func (l *Logger) RecordExchange(userText, robotText string) {
	ts := l.now().UTC().Format(time.RFC3339)
	block := fmt.Sprintf("%s | User: %s\n%s | GENESIS: %s\n\n", ts, userText, ts, robotText)
	l.append(block)
}

// RecordSystem appends a single system-originated line, such as the
// startup greeting or a scheduled reminder.
func (l *Logger) RecordSystem(text string) {
	ts := l.now().UTC().Format(time.RFC3339)
	l.append(fmt.Sprintf("%s | GENESIS: %s\n\n", ts, text))
}

func (l *Logger) append(block string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		l.log.Warn("failed to create interaction log directory", zap.Error(err))
		return
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.log.Warn("failed to open interaction log", zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.WriteString(block); err != nil {
		l.log.Warn("failed to append to interaction log", zap.Error(err))
	}
}
