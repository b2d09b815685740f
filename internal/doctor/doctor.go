package doctor

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/omzmini/omzmini/internal/config"
	"github.com/omzmini/omzmini/internal/zshrc"
)

// Run prints read-only diagnostics: presence of the declaration file and
// the framework entry file, and whether plugins and a theme are declared.
// No mutation, no network access.
func Run(cfg *config.Config, w io.Writer) error {
	fmt.Fprintln(w, "🩺 Running omzmini diagnostics...")

	if fileExists(cfg.Paths.ZshrcFile) {
		fmt.Fprintln(w, "✅ .zshrc found")
	} else {
		fmt.Fprintln(w, "❌ .zshrc missing")
	}

	if fileExists(cfg.CoreEntryFile()) {
		fmt.Fprintln(w, "✅ oh-my-zsh.sh present")
	} else {
		fmt.Fprintln(w, "❌ oh-my-zsh.sh missing")
	}

	decl, err := zshrc.Parse(cfg.Paths.ZshrcFile)
	if err != nil {
		return err
	}
	if len(decl.Plugins) == 0 {
		fmt.Fprintln(w, "⚠️ No plugins declared")
	}
	if decl.Theme == "" {
		fmt.Fprintln(w, "⚠️ No theme declared")
	}

	return nil
}

// List prints the parsed plugin and theme declarations
func List(cfg *config.Config, w io.Writer) error {
	fmt.Fprintln(w, "📋 Plugins and theme:")

	decl, err := zshrc.Parse(cfg.Paths.ZshrcFile)
	if err != nil {
		return err
	}

	if len(decl.Plugins) > 0 {
		fmt.Fprintln(w, "Plugins:", strings.Join(decl.Plugins, ", "))
	} else {
		fmt.Fprintln(w, "⚠️ No plugins declared")
	}
	if decl.Theme != "" {
		fmt.Fprintln(w, "Theme:", decl.Theme)
	} else {
		fmt.Fprintln(w, "⚠️ No theme declared")
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
