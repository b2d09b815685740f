package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/omzmini/omzmini/internal/digest"
)

// stampLayout is the sortable second-granularity backup suffix.
const stampLayout = "20060102150405"

// Status describes what Install did to the destination
type Status int

const (
	// StatusCreated means no file existed and the content was written fresh
	StatusCreated Status = iota
	// StatusUpToDate means the existing content already matched; nothing
	// was written and no backup was made
	StatusUpToDate
	// StatusUpdated means the existing file differed, was moved to a
	// timestamped backup, and the new content was written
	StatusUpdated
)

// Result reports the outcome of one Install call
type Result struct {
	Status     Status
	BackupPath string // set only for StatusUpdated
	Digest     string // digest of the fetched content
}

// Manager decides, for one destination at a time, whether fetched content
// is written directly, skipped, or written after backing up a locally
// modified file.
type Manager struct {
	showDiff bool
	out      io.Writer
	now      func() time.Time
}

// NewManager creates a backup manager. When showDiff is set, a unified
// diff between local and fetched content is written to out before any
// mutation of a differing file.
func NewManager(showDiff bool, out io.Writer) *Manager {
	return &Manager{
		showDiff: showDiff,
		out:      out,
		now:      time.Now,
	}
}

// Install writes data to dest, backing up a pre-existing file whose
// content differs. Identical content is left untouched: the invariant is
// that no backup is ever created when local and fetched bytes match.
func (m *Manager) Install(dest string, data []byte) (*Result, error) {
	res := &Result{Digest: digest.Bytes(data)}

	existing, err := os.ReadFile(dest)
	switch {
	case os.IsNotExist(err):
		res.Status = StatusCreated

	case err != nil:
		return nil, fmt.Errorf("failed to read existing file: %w", err)

	case digest.Bytes(existing) == res.Digest:
		res.Status = StatusUpToDate
		return res, nil

	default:
		// Diff is shown before anything on disk changes
		if m.showDiff {
			if err := m.printDiff(dest, existing, data); err != nil {
				return nil, err
			}
		}

		backupPath := fmt.Sprintf("%s.%s", dest, m.now().Format(stampLayout))
		if err := os.Rename(dest, backupPath); err != nil {
			return nil, fmt.Errorf("failed to back up %s: %w", dest, err)
		}
		res.Status = StatusUpdated
		res.BackupPath = backupPath
	}

	if err := writeFileAtomic(dest, data); err != nil {
		return nil, err
	}
	return res, nil
}

// printDiff writes a line-oriented unified diff between the local and
// fetched content
func (m *Manager) printDiff(dest string, local, remote []byte) error {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(local)),
		B:        difflib.SplitLines(string(remote)),
		FromFile: dest,
		ToFile:   "remote",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Errorf("failed to compute diff: %w", err)
	}
	_, err = io.WriteString(m.out, text)
	return err
}

// writeFileAtomic writes data to dest via a temp file and rename so a
// failed write never leaves a truncated destination
func writeFileAtomic(dest string, data []byte) error {
	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".omzmini-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, dest)
}
