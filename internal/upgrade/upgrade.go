package upgrade

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/omzmini/omzmini/internal/audit"
	"github.com/omzmini/omzmini/internal/fetch"
	"github.com/omzmini/omzmini/internal/pin"
)

// DefaultRemotePath is the repository-relative path of the tool's own
// artifact.
const DefaultRemotePath = "tools/omzmini"

const stampLayout = "20060102150405"

// Upgrader replaces the running executable with the upstream artifact.
// Unlike tracked files, the old binary is always copied aside first, so
// the diff-aware backup-on-change path is not used here.
type Upgrader struct {
	fetcher    fetch.Client
	pins       *pin.Set
	audit      *audit.Log
	logger     *slog.Logger
	execPath   string
	remotePath string
	dryRun     bool
	now        func() time.Time
}

// New creates an upgrader for the executable at execPath
func New(fetcher fetch.Client, pins *pin.Set, auditLog *audit.Log, logger *slog.Logger, execPath string, dryRun bool) *Upgrader {
	return &Upgrader{
		fetcher:    fetcher,
		pins:       pins,
		audit:      auditLog,
		logger:     logger,
		execPath:   execPath,
		remotePath: DefaultRemotePath,
		dryRun:     dryRun,
		now:        time.Now,
	}
}

// Run backs up the executable to a timestamped copy, fetches the upstream
// artifact, writes it over the executable and marks it 0755. In dry-run
// mode neither the backup nor the fetch happens.
func (u *Upgrader) Run(ctx context.Context) error {
	if u.pins.Contains(u.execPath) {
		u.audit.Printf("🔒 Skipped pinned file: %s", u.execPath)
		return nil
	}

	backupPath := fmt.Sprintf("%s.bak.%s", u.execPath, u.now().Format(stampLayout))

	if u.dryRun {
		u.audit.Printf("DRY-RUN: Would upgrade omzmini and back up to %s", backupPath)
		return nil
	}

	u.logger.Info("upgrading executable",
		"exec", u.execPath,
		"remote", u.fetcher.URL(u.remotePath))

	if err := copyFile(u.execPath, backupPath); err != nil {
		return fmt.Errorf("failed to back up executable: %w", err)
	}

	data, err := u.fetcher.Fetch(ctx, u.remotePath)
	if err != nil {
		u.audit.Printf("❌ Failed to fetch %s: %v", u.fetcher.URL(u.remotePath), err)
		return err
	}

	if err := writeExecutable(u.execPath, data); err != nil {
		u.audit.Printf("❌ Failed to write %s: %v", u.execPath, err)
		return err
	}

	u.audit.Printf("✅ omzmini upgraded. Backup: %s", backupPath)
	return nil
}

// copyFile copies src to dst, preserving the source permissions
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode().Perm())
}

// writeExecutable writes data to dest via temp file and rename, then marks
// it executable
func writeExecutable(dest string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".omzmini-upgrade-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(0755); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, dest)
}
