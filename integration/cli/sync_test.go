//go:build integration

package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/omzmini/omzmini/internal/testutil"
)

func TestSync_FreshInstall(t *testing.T) {
	h := NewHarness(t)
	h.SeedUpstream([]string{"git"}, "robbyrussell")
	h.WriteZshrc([]string{"git"}, "robbyrussell")

	stdout, stderr := h.MustRun("sync")
	t.Logf("stdout: %s", stdout)
	t.Logf("stderr: %s", stderr)

	for _, rel := range []string{
		"oh-my-zsh.sh",
		"lib/completion.zsh",
		"lib/history.zsh",
		"lib/key-bindings.zsh",
		"lib/termcap.zsh",
		"tools/upgrade.sh",
		"tools/install.sh",
		"tools/uninstall.sh",
		"plugins/git/git.plugin.zsh",
		"themes/robbyrussell.zsh-theme",
	} {
		if !testutil.FileExists(h.InstallPath(rel)) {
			t.Errorf("missing synced file: %s", rel)
		}
	}

	if !strings.Contains(stdout, "✅ Sync complete") {
		t.Error("stdout missing sync completion message")
	}

	// Audit log mirrors stdout
	auditLog := h.AuditLog()
	if !strings.Contains(auditLog, "✅ Fetched: oh-my-zsh.sh") {
		t.Errorf("audit log missing fetch entry:\n%s", auditLog)
	}
	if !strings.Contains(auditLog, "✅ Sync complete") {
		t.Errorf("audit log missing completion entry:\n%s", auditLog)
	}

	// One ledger line per fetched file
	lines := strings.Split(strings.TrimSpace(h.Ledger()), "\n")
	if len(lines) != 10 {
		t.Errorf("expected 10 ledger lines, got %d:\n%s", len(lines), h.Ledger())
	}
}

func TestSync_BackupOnLocalChange(t *testing.T) {
	h := NewHarness(t)
	h.SeedUpstream(nil, "")
	h.WriteZshrc(nil, "")

	h.MustRun("sync")

	// Diverge locally, then change upstream too
	target := h.InstallPath("lib/history.zsh")
	testutil.WriteFile(t, target, "# local edit\n")
	h.SetUpstream("lib/history.zsh", "# upstream v2\n")

	stdout, _ := h.MustRun("sync")

	if got := testutil.ReadFile(t, target); got != "# upstream v2\n" {
		t.Errorf("file not replaced with upstream content: %q", got)
	}
	if !strings.Contains(stdout, "📝 Local changes detected") {
		t.Errorf("missing backup message in output:\n%s", stdout)
	}

	backups, err := filepath.Glob(target + ".*")
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected exactly one backup, got %v", backups)
	}
	if got := testutil.ReadFile(t, backups[0]); got != "# local edit\n" {
		t.Errorf("backup does not hold the local content: %q", got)
	}
}

func TestSync_UpToDateSecondRun(t *testing.T) {
	h := NewHarness(t)
	h.SeedUpstream(nil, "")
	h.WriteZshrc(nil, "")

	h.MustRun("sync")
	h.MustRun("sync")

	// Identical content produces no backups
	backups, err := filepath.Glob(h.InstallPath("lib/history.zsh") + ".*")
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 0 {
		t.Errorf("unexpected backups for unchanged files: %v", backups)
	}

	// The ledger is append-only; the second run doubles it
	lines := strings.Split(strings.TrimSpace(h.Ledger()), "\n")
	if len(lines) != 16 {
		t.Errorf("expected 16 ledger lines after two runs, got %d", len(lines))
	}
}

func TestSync_DryRun(t *testing.T) {
	h := NewHarness(t)
	h.SeedUpstream([]string{"git"}, "robbyrussell")
	h.WriteZshrc([]string{"git"}, "robbyrussell")

	stdout, _ := h.MustRun("sync", "--dry-run")

	if !strings.Contains(stdout, "DRY-RUN: Would fetch") {
		t.Errorf("stdout does not indicate dry-run:\n%s", stdout)
	}
	if testutil.FileExists(h.InstallPath("oh-my-zsh.sh")) {
		t.Error("dry-run wrote a tracked file")
	}
	if h.Ledger() != "" {
		t.Errorf("dry-run appended to the ledger:\n%s", h.Ledger())
	}
	// The audit log itself is still written
	if !strings.Contains(h.AuditLog(), "DRY-RUN: Would fetch") {
		t.Error("dry-run actions not recorded in the audit log")
	}
}

func TestSync_PinnedFileUntouched(t *testing.T) {
	h := NewHarness(t)
	h.SeedUpstream(nil, "")
	h.WriteZshrc(nil, "")

	pinned := h.InstallPath("tools/upgrade.sh")
	testutil.WriteFile(t, pinned, "# my customized upgrade\n")

	stdout, _ := h.MustRun("sync", "--pin", pinned)

	if got := testutil.ReadFile(t, pinned); got != "# my customized upgrade\n" {
		t.Errorf("pinned file was modified: %q", got)
	}
	if !strings.Contains(stdout, "🔒 Skipped pinned file") {
		t.Errorf("missing pin skip message:\n%s", stdout)
	}

	// Everything else still synced
	if !testutil.FileExists(h.InstallPath("oh-my-zsh.sh")) {
		t.Error("unpinned files were not synced")
	}
}

func TestSync_DiffOutput(t *testing.T) {
	h := NewHarness(t)
	h.SeedUpstream(nil, "")
	h.WriteZshrc(nil, "")

	h.MustRun("sync")

	target := h.InstallPath("lib/completion.zsh")
	testutil.WriteFile(t, target, "# local only line\n")

	stdout, _ := h.MustRun("sync", "--diff")

	if !strings.Contains(stdout, "-# local only line") {
		t.Errorf("diff missing removed local line:\n%s", stdout)
	}
	if !strings.Contains(stdout, "+# upstream lib/completion.zsh") {
		t.Errorf("diff missing added upstream line:\n%s", stdout)
	}
}

func TestSync_FetchFailureDoesNotAbort(t *testing.T) {
	h := NewHarness(t)
	h.SeedUpstream([]string{"git"}, "")
	h.WriteZshrc([]string{"git", "nosuchplugin"}, "")

	stdout, _ := h.MustRun("sync")

	if !strings.Contains(stdout, "❌ Failed to fetch") {
		t.Errorf("missing fetch failure message:\n%s", stdout)
	}
	if !strings.Contains(stdout, "✅ Sync complete") {
		t.Error("run did not complete after a fetch failure")
	}
	if !testutil.FileExists(h.InstallPath("plugins/git/git.plugin.zsh")) {
		t.Error("other declared files were not synced")
	}
	if testutil.FileExists(h.InstallPath("plugins/nosuchplugin/nosuchplugin.plugin.zsh")) {
		t.Error("missing upstream file was somehow written")
	}
}

func TestRestore_ReplacesModifiedFiles(t *testing.T) {
	h := NewHarness(t)
	h.SeedUpstream(nil, "")
	h.WriteZshrc(nil, "")

	h.MustRun("sync")

	target := h.InstallPath("tools/install.sh")
	testutil.WriteFile(t, target, "# broken local state\n")

	h.MustRun("restore")

	if got := testutil.ReadFile(t, target); got != "# upstream tools/install.sh\n" {
		t.Errorf("restore did not replace modified file: %q", got)
	}
}

func TestDoctorAndList(t *testing.T) {
	h := NewHarness(t)
	h.SeedUpstream([]string{"git", "docker"}, "clean")
	h.WriteZshrc([]string{"git", "docker"}, "clean")

	// Before syncing: entry file missing
	stdout, _ := h.MustRun("doctor")
	if !strings.Contains(stdout, "❌ oh-my-zsh.sh missing") {
		t.Errorf("doctor did not flag missing entry file:\n%s", stdout)
	}

	h.MustRun("sync")

	stdout, _ = h.MustRun("doctor")
	if !strings.Contains(stdout, "✅ .zshrc found") || !strings.Contains(stdout, "✅ oh-my-zsh.sh present") {
		t.Errorf("doctor did not report a healthy install:\n%s", stdout)
	}

	stdout, _ = h.MustRun("list")
	if !strings.Contains(stdout, "Plugins: git, docker") {
		t.Errorf("list missing plugins:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Theme: clean") {
		t.Errorf("list missing theme:\n%s", stdout)
	}
}

func TestVersion(t *testing.T) {
	h := NewHarness(t)

	stdout, _, exitCode, err := h.Run("version")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if exitCode != 0 {
		t.Fatalf("version exited with %d", exitCode)
	}
	if !strings.Contains(stdout, "omzmini") {
		t.Errorf("unexpected version output: %q", stdout)
	}
}
