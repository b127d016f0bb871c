// Package history implements the durable, append-only outcome log. One line
// per recipient outcome, `timestamp | recipient | status | detail`, written
// under mutual exclusion so concurrent batches never interleave partial lines.
package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/waflow/api/schemas"
)

const (
	// TimeLayout is the on-disk timestamp format.
	TimeLayout = "2006-01-02 15:04:05"

	fieldSeparator = " | "
	maxDetailLen   = 40
)

// Logger appends outcome records to the history file and reads them back
// newest-first. It implements schemas.OutcomeSink.
type Logger struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

var _ schemas.OutcomeSink = (*Logger)(nil)

// New returns a Logger writing to path. The file and its parent directory are
// created on first append.
func New(path string, log *zap.Logger) *Logger {
	return &Logger{path: path, log: log.Named("history")}
}

// Append writes one record as a single newline-terminated line. The write is
// serialized; a failure here is reported to the operational log by the
// caller and never aborts a batch.
func (l *Logger) Append(rec schemas.OutcomeRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("%s%s%s%s%s%s%s\n",
		ts.Format(TimeLayout), fieldSeparator,
		rec.Recipient, fieldSeparator,
		rec.Status, fieldSeparator,
		Summarize(rec.Detail))

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating history dir: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("appending history record: %w", err)
	}
	l.log.Debug("Logged outcome",
		zap.String("recipient", rec.Recipient),
		zap.String("status", string(rec.Status)))
	return nil
}

// Entries reads the history newest-first. Lines that do not split into
// exactly four fields are corrupt and skipped silently.
func (l *Logger) Entries() ([]schemas.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	var entries []schemas.HistoryEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	// On-disk order is arrival order; consumers read newest-first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// ParseLine parses one history line. ok is false for blank or corrupt lines.
func ParseLine(line string) (schemas.HistoryEntry, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return schemas.HistoryEntry{}, false
	}
	parts := strings.SplitN(line, fieldSeparator, 4)
	if len(parts) != 4 {
		return schemas.HistoryEntry{}, false
	}
	return schemas.HistoryEntry{
		Timestamp: parts[0],
		Number:    parts[1],
		Status:    parts[2],
		Message:   parts[3],
	}, true
}

// Summarize collapses embedded newlines to spaces and truncates the detail to
// the log column width, marking the cut with an ellipsis. Empty details are
// recorded as "N/A" so every line splits into four fields.
func Summarize(detail string) string {
	detail = strings.TrimSpace(newlineCollapser.Replace(detail))
	if detail == "" {
		return "N/A"
	}
	if runes := []rune(detail); len(runes) > maxDetailLen {
		return string(runes[:maxDetailLen-3]) + "..."
	}
	return detail
}

var newlineCollapser = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Path returns the history file location.
func (l *Logger) Path() string {
	return l.path
}
