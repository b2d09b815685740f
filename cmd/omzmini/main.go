package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/omzmini/omzmini/internal/audit"
	"github.com/omzmini/omzmini/internal/config"
	"github.com/omzmini/omzmini/internal/doctor"
	"github.com/omzmini/omzmini/internal/fetch"
	"github.com/omzmini/omzmini/internal/pin"
	"github.com/omzmini/omzmini/internal/sync"
	"github.com/omzmini/omzmini/internal/upgrade"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Command flags
	dryRun   bool
	showDiff bool
	pinPaths []string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "omzmini",
	Short: "Synchronize a minimal oh-my-zsh installation from upstream",
	Long: `omzmini keeps a local oh-my-zsh installation in sync with the upstream
repository: the fixed core, library and tool files plus the plugins and
theme declared in your .zshrc.

Locally modified files are backed up with a timestamp suffix before being
overwritten, pinned files are never touched, and every action is recorded
in an append-only audit log alongside a path→digest ledger.`,
	SilenceUsage: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch tracked files to match the upstream repository",
	Long: `Sync scans .zshrc for plugin and theme declarations, then fetches the
fixed manifest plus the declared plugin and theme files. Files whose local
content differs from upstream are backed up before being overwritten;
pinned files are skipped entirely.

With --dry-run nothing is fetched or written; with --diff a unified diff
is printed before an outdated file is replaced.`,
	RunE: runSync,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Re-fetch missing or modified files unconditionally",
	Long: `Restore performs the same pass as sync with dry-run and diff display
forced off: a silent re-fetch-if-different pass over every tracked file.`,
	RunE: runRestore,
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade the omzmini executable itself",
	Long: `Upgrade backs up the running executable to a timestamped copy, fetches
the upstream artifact, replaces the executable and marks it executable.`,
	RunE: runUpgrade,
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run read-only diagnostics on the omzmini setup",
	RunE:  runDoctor,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show declared plugins and theme",
	RunE:  runList,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("omzmini %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/omzmini/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Sync command flags
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview actions without fetching or writing anything")
	syncCmd.Flags().BoolVar(&showDiff, "diff", false, "show a unified diff before replacing an outdated file")
	syncCmd.Flags().StringArrayVar(&pinPaths, "pin", nil, "pin a file for this run, overriding the pin file (repeatable)")

	// Restore deliberately has no --dry-run or --diff: both are forced off.
	restoreCmd.Flags().StringArrayVar(&pinPaths, "pin", nil, "pin a file for this run, overriding the pin file (repeatable)")

	// Upgrade command flags
	upgradeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview the upgrade without backing up or fetching")
	upgradeCmd.Flags().StringArrayVar(&pinPaths, "pin", nil, "pin a file for this run, overriding the pin file (repeatable)")

	// Add commands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	return runEngine(sync.Options{DryRun: dryRun, ShowDiff: showDiff})
}

func runRestore(cmd *cobra.Command, args []string) error {
	// Restore is sync with dry-run and diff forced off
	return runEngine(sync.Options{})
}

func runEngine(opts sync.Options) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	pins, err := pin.Resolve(pinPaths, cfg.PinFile())
	if err != nil {
		return fmt.Errorf("failed to resolve pins: %w", err)
	}
	logger.Debug("pin set resolved", "pinned", pins.Len())

	auditLog, err := audit.Open(cfg.AuditLogFile(), os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		_ = auditLog.Close()
	}()

	fetcher := fetch.NewHTTPClient(cfg.Repo.BaseURL, cfg.Auth.TokenFile)
	ledger := audit.NewLedger(cfg.HashLedgerFile())

	engine := sync.NewEngine(cfg, fetcher, pins, auditLog, ledger, logger, opts)

	if err := engine.Run(ctx); err != nil {
		logger.Error("sync failed", "error", err)
		return err
	}
	return nil
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	pins, err := pin.Resolve(pinPaths, cfg.PinFile())
	if err != nil {
		return fmt.Errorf("failed to resolve pins: %w", err)
	}

	auditLog, err := audit.Open(cfg.AuditLogFile(), os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		_ = auditLog.Close()
	}()

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	fetcher := fetch.NewHTTPClient(cfg.Repo.BaseURL, cfg.Auth.TokenFile)
	upgrader := upgrade.New(fetcher, pins, auditLog, logger, execPath, dryRun)

	if err := upgrader.Run(ctx); err != nil {
		logger.Error("upgrade failed", "error", err)
		return err
	}
	return nil
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(setupLogger())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return doctor.Run(cfg, os.Stdout)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(setupLogger())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return doctor.List(cfg, os.Stdout)
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	// Determine config file path
	configPath := cfgFile
	if configPath == "" {
		var err error
		configPath, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"base_url", cfg.Repo.BaseURL,
		"install_dir", cfg.Paths.InstallDir,
		"zshrc_file", cfg.Paths.ZshrcFile)

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
