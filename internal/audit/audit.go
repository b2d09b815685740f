package audit

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// timestampLayout is the bracketed prefix format of every audit line.
const timestampLayout = "2006-01-02 15:04:05"

// Log is the append-only audit trail. Every entry is mirrored to out
// (normally stdout) and, when a file is attached, appended to it with a
// bracketed timestamp prefix. The file is never rotated or truncated.
type Log struct {
	mu   sync.Mutex
	out  io.Writer
	file *os.File
	now  func() time.Time
}

// Open creates a Log appending to the file at path and mirroring to out.
func Open(path string, out io.Writer) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return &Log{out: out, file: f, now: time.Now}, nil
}

// NewConsole creates a Log that only mirrors to out, without a backing
// file. Used by read-only commands that must not touch the install dir.
func NewConsole(out io.Writer) *Log {
	return &Log{out: out, now: time.Now}
}

// Printf records one timestamped audit entry
func (l *Log) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("[%s] %s", l.now().Format(timestampLayout), fmt.Sprintf(format, args...))
	_, _ = fmt.Fprintln(l.out, line)
	if l.file != nil {
		_, _ = fmt.Fprintln(l.file, line)
	}
}

// Close releases the backing file, if any
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Ledger is the append-only path→digest history. One line is appended per
// successfully fetched file; entries are never deduplicated or rewritten.
type Ledger struct {
	path string
}

// NewLedger creates a ledger appending to the file at path
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Append records one (relative path, digest) pair
func (l *Ledger) Append(relPath, hexDigest string) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open hash ledger: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := fmt.Fprintf(f, "%s %s\n", relPath, hexDigest); err != nil {
		return fmt.Errorf("failed to append hash ledger entry: %w", err)
	}
	return nil
}
