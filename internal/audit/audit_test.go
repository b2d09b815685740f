package audit

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

var auditLine = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] `)

func TestLog_Printf(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")

	var out bytes.Buffer
	log, err := Open(logPath, &out)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	log.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)
	}

	log.Printf("✅ Fetched: %s -> %s", "oh-my-zsh.sh", "/tmp/oh-my-zsh.sh")
	log.Printf("❌ Failed to fetch %s", "lib/missing.zsh")
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	want := "[2024-06-01 12:30:45] ✅ Fetched: oh-my-zsh.sh -> /tmp/oh-my-zsh.sh\n" +
		"[2024-06-01 12:30:45] ❌ Failed to fetch lib/missing.zsh\n"
	if out.String() != want {
		t.Errorf("stdout mirror mismatch:\nwant %q\ngot  %q", want, out.String())
	}

	// File content matches the mirror exactly
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != want {
		t.Errorf("audit file mismatch:\nwant %q\ngot  %q", want, data)
	}
}

func TestLog_AppendsAcrossOpens(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")

	for i := 0; i < 2; i++ {
		log, err := Open(logPath, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		log.Printf("run %d", i)
		if err := log.Close(); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines after 2 runs, got %d", len(lines))
	}
	for _, line := range lines {
		if !auditLine.MatchString(line) {
			t.Errorf("line missing timestamp prefix: %q", line)
		}
	}
}

func TestNewConsole(t *testing.T) {
	var out bytes.Buffer
	log := NewConsole(&out)
	log.Printf("🩺 diagnostics")
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.String(), "🩺 diagnostics") {
		t.Errorf("expected mirrored output, got %q", out.String())
	}
	if !auditLine.MatchString(out.String()) {
		t.Errorf("expected timestamp prefix, got %q", out.String())
	}
}

func TestLedger_Append(t *testing.T) {
	ledgerPath := filepath.Join(t.TempDir(), "hashes.txt")
	ledger := NewLedger(ledgerPath)

	if err := ledger.Append("oh-my-zsh.sh", "abc123"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := ledger.Append("lib/history.zsh", "def456"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	// Same path again: pure history, never deduplicated
	if err := ledger.Append("oh-my-zsh.sh", "abc999"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	data, err := os.ReadFile(ledgerPath)
	if err != nil {
		t.Fatal(err)
	}

	want := "oh-my-zsh.sh abc123\nlib/history.zsh def456\noh-my-zsh.sh abc999\n"
	if string(data) != want {
		t.Errorf("ledger mismatch:\nwant %q\ngot  %q", want, data)
	}
}
