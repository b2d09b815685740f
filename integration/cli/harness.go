//go:build integration

package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/omzmini/omzmini/internal/testutil"
)

const defaultTimeout = 2 * time.Minute

var (
	buildOnce gosync.Once
	buildErr  error
	binPath   string
)

// buildBinary compiles the omzmini binary once per test run. The build
// output lives in its own temp dir because the binary outlives any single
// test's TempDir.
func buildBinary(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		root, err := testutil.FindProjectRoot()
		if err != nil {
			buildErr = fmt.Errorf("find project root: %w", err)
			return
		}

		buildDir, err := os.MkdirTemp("", "omzmini-integration-")
		if err != nil {
			buildErr = fmt.Errorf("create build dir: %w", err)
			return
		}

		name := "omzmini"
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		binPath = filepath.Join(buildDir, name)

		cmd := exec.Command("go", "build", "-o", binPath, "./cmd/omzmini")
		cmd.Dir = root
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = fmt.Errorf("go build: %w\n%s", err, out)
		}
	})

	if buildErr != nil {
		t.Fatalf("build binary: %v", buildErr)
	}
	return binPath
}

// Harness wires a fake upstream server, a temp installation layout and a
// freshly built omzmini binary together for end-to-end CLI tests.
type Harness struct {
	t   *testing.T
	bin string

	// Upstream state, served by the httptest server. Keyed by repo-relative
	// path ("lib/history.zsh").
	mu       gosync.Mutex
	upstream map[string]string
	server   *httptest.Server

	Root       string // per-test scratch directory
	InstallDir string
	ConfigDir  string
	ZshrcFile  string
	ConfigFile string
}

// NewHarness builds the binary, starts a fake upstream and lays out a
// temp config pointing at it
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	h := &Harness{
		t:        t,
		bin:      buildBinary(t),
		upstream: make(map[string]string),
		Root:     t.TempDir(),
	}

	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		content, ok := h.upstream[strings.TrimPrefix(r.URL.Path, "/")]
		h.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, content)
	}))
	t.Cleanup(h.server.Close)

	h.InstallDir = filepath.Join(h.Root, ".oh-my-zsh")
	h.ConfigDir = filepath.Join(h.Root, ".config", "omzmini")
	h.ZshrcFile = filepath.Join(h.Root, ".zshrc")
	h.ConfigFile = filepath.Join(h.Root, "config.yaml")

	testutil.WriteFile(t, h.ConfigFile, fmt.Sprintf(`repo:
  base_url: %q

paths:
  install_dir: %q
  config_dir: %q
  zshrc_file: %q
`, h.server.URL, h.InstallDir, h.ConfigDir, h.ZshrcFile))

	return h
}

// SetUpstream replaces the content served for a repo-relative path
func (h *Harness) SetUpstream(relPath, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.upstream[relPath] = content
}

// SeedUpstream populates the fixed manifest plus the given plugin and theme
func (h *Harness) SeedUpstream(plugins []string, theme string) {
	manifest := []string{
		"oh-my-zsh.sh",
		"lib/completion.zsh",
		"lib/history.zsh",
		"lib/key-bindings.zsh",
		"lib/termcap.zsh",
		"tools/upgrade.sh",
		"tools/install.sh",
		"tools/uninstall.sh",
	}
	for _, rel := range manifest {
		h.SetUpstream(rel, "# upstream "+rel+"\n")
	}
	for _, p := range plugins {
		rel := "plugins/" + p + "/" + p + ".plugin.zsh"
		h.SetUpstream(rel, "# upstream "+rel+"\n")
	}
	if theme != "" {
		rel := "themes/" + theme + ".zsh-theme"
		h.SetUpstream(rel, "# upstream "+rel+"\n")
	}
}

// WriteZshrc writes the declaration file
func (h *Harness) WriteZshrc(plugins []string, theme string) {
	h.t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "plugins=(%s)\n", strings.Join(plugins, " "))
	if theme != "" {
		fmt.Fprintf(&b, "ZSH_THEME=%q\n", theme)
	}
	testutil.WriteFile(h.t, h.ZshrcFile, b.String())
}

// Run executes the binary with --config pointing at the harness config
func (h *Harness) Run(args ...string) (string, string, int, error) {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	full := append([]string{args[0], "--config", h.ConfigFile}, args[1:]...)
	cmd := exec.CommandContext(ctx, h.bin, full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return "", "", 0, fmt.Errorf("exec failed: %w", err)
		}
	}

	return stdout.String(), stderr.String(), exitCode, nil
}

// MustRun executes a subcommand and fails the test on a non-zero exit
func (h *Harness) MustRun(args ...string) (string, string) {
	h.t.Helper()
	stdout, stderr, exitCode, err := h.Run(args...)
	if err != nil {
		h.t.Fatalf("exec failed: %v", err)
	}
	if exitCode != 0 {
		h.t.Fatalf("command failed with exit code %d\nstdout: %s\nstderr: %s\nargs: %v",
			exitCode, stdout, stderr, args)
	}
	return stdout, stderr
}

// InstallPath resolves a repo-relative path inside the install dir
func (h *Harness) InstallPath(relPath string) string {
	return filepath.Join(h.InstallDir, filepath.FromSlash(relPath))
}

// AuditLog returns the audit log content, or "" when it does not exist
func (h *Harness) AuditLog() string {
	path := filepath.Join(h.InstallDir, "log", "omzmini_audit.log")
	if !testutil.FileExists(path) {
		return ""
	}
	return testutil.ReadFile(h.t, path)
}

// Ledger returns the hash ledger content, or "" when it does not exist
func (h *Harness) Ledger() string {
	path := filepath.Join(h.InstallDir, "log", "omzmini_hashes.txt")
	if !testutil.FileExists(path) {
		return ""
	}
	return testutil.ReadFile(h.t, path)
}
