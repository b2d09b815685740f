package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/omzmini/omzmini/internal/audit"
	"github.com/omzmini/omzmini/internal/backup"
	"github.com/omzmini/omzmini/internal/config"
	"github.com/omzmini/omzmini/internal/fetch"
	"github.com/omzmini/omzmini/internal/pin"
	"github.com/omzmini/omzmini/internal/zshrc"
)

// Options controls a sync run
type Options struct {
	DryRun   bool
	ShowDiff bool
}

// Engine orchestrates the sync process
type Engine struct {
	cfg     *config.Config
	fetcher fetch.Client
	pins    *pin.Set
	backups *backup.Manager
	audit   *audit.Log
	ledger  *audit.Ledger
	logger  *slog.Logger
	opts    Options
}

// NewEngine creates a new sync engine
func NewEngine(cfg *config.Config, fetcher fetch.Client, pins *pin.Set, auditLog *audit.Log, ledger *audit.Ledger, logger *slog.Logger, opts Options) *Engine {
	return &Engine{
		cfg:     cfg,
		fetcher: fetcher,
		pins:    pins,
		backups: backup.NewManager(opts.ShowDiff, os.Stdout),
		audit:   auditLog,
		ledger:  ledger,
		logger:  logger,
		opts:    opts,
	}
}

// Run executes the complete sync: the fixed manifest, then declared
// plugins in order, then the theme. Per-file failures are logged and
// skipped; they never abort the run.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("starting sync",
		"base_url", e.cfg.Repo.BaseURL,
		"install_dir", e.cfg.Paths.InstallDir,
		"dry_run", e.opts.DryRun)

	// Parse declarations
	decl, err := zshrc.Parse(e.cfg.Paths.ZshrcFile)
	if err != nil {
		return fmt.Errorf("failed to parse declarations: %w", err)
	}
	e.logger.Info("parsed declarations",
		"plugins", len(decl.Plugins),
		"theme", decl.Theme)

	// Build the full run list: manifest, then plugins, then theme
	paths := make([]string, 0, len(CoreFiles)+len(LibFiles)+len(ToolFiles)+len(decl.Plugins)+1)
	paths = append(paths, Manifest()...)
	for _, plugin := range decl.Plugins {
		paths = append(paths, zshrc.PluginPath(plugin))
	}
	if decl.Theme != "" {
		paths = append(paths, zshrc.ThemePath(decl.Theme))
	}

	var failed int
	for _, relPath := range paths {
		res := e.syncFile(ctx, relPath)
		if res.Failed() {
			failed++
		}
	}

	// Emitted unconditionally, even when some files failed
	e.audit.Printf("✅ Sync complete")
	e.logger.Info("sync complete", "files", len(paths), "failed", failed)
	return nil
}

// Restore re-runs the sync with dry-run and diff display forced off: an
// unconditional, silent re-fetch-if-different pass.
func (e *Engine) Restore(ctx context.Context) error {
	restore := NewEngine(e.cfg, e.fetcher, e.pins, e.audit, e.ledger, e.logger, Options{})
	return restore.Run(ctx)
}

// syncFile processes one tracked file through the pin check, dry-run
// check, fetch, hash compare, backup and write steps
func (e *Engine) syncFile(ctx context.Context, relPath string) Result {
	dest := filepath.Join(e.cfg.Paths.InstallDir, filepath.FromSlash(relPath))
	res := Result{RemotePath: relPath, DestPath: dest}

	if e.pins.Contains(dest) {
		e.audit.Printf("🔒 Skipped pinned file: %s", dest)
		res.Outcome = OutcomePinned
		return res
	}

	// Dry-run skips the fetch itself, not just the write
	if e.opts.DryRun {
		e.audit.Printf("DRY-RUN: Would fetch %s -> %s", e.fetcher.URL(relPath), dest)
		res.Outcome = OutcomeDryRun
		return res
	}

	data, err := e.fetcher.Fetch(ctx, relPath)
	if err != nil {
		e.audit.Printf("❌ Failed to fetch %s: %v", e.fetcher.URL(relPath), err)
		e.logger.Warn("fetch failed", "path", relPath, "error", err)
		res.Outcome = OutcomeFetchFailed
		res.Err = err
		return res
	}

	install, err := e.backups.Install(dest, data)
	if err != nil {
		e.audit.Printf("❌ Failed to write %s: %v", dest, err)
		e.logger.Warn("write failed", "dest", dest, "error", err)
		res.Outcome = OutcomeIOFailed
		res.Err = err
		return res
	}

	res.Digest = install.Digest
	switch install.Status {
	case backup.StatusUpdated:
		e.audit.Printf("📝 Local changes detected → backed up as %s", install.BackupPath)
		res.BackupPath = install.BackupPath
		res.Outcome = OutcomeUpdated
	case backup.StatusUpToDate:
		res.Outcome = OutcomeUpToDate
	default:
		res.Outcome = OutcomeFetched
	}
	e.audit.Printf("✅ Fetched: %s -> %s", relPath, dest)

	// The ledger records fetches, not writes, so up-to-date files are
	// appended too
	if err := e.ledger.Append(relPath, install.Digest); err != nil {
		e.logger.Warn("failed to append hash ledger", "path", relPath, "error", err)
	}

	return res
}
