package zshrc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	pluginsMarker = "plugins="
	themeMarker   = "ZSH_THEME="
)

// Declaration holds the plugin and theme directives scanned from a zshrc
// file. Plugins keep declaration order and may contain duplicates; Theme is
// empty when no theme line was found.
type Declaration struct {
	Plugins []string
	Theme   string
}

// Parse scans the file at path for plugin and theme declarations. The file
// is scanned, never executed. A missing file yields an empty declaration.
func Parse(path string) (*Declaration, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Declaration{}, nil
		}
		return nil, fmt.Errorf("failed to open zshrc: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	decl, err := ParseReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read zshrc: %w", err)
	}
	return decl, nil
}

// ParseReader scans r line by line. Exactly two line shapes are recognized:
//
//	plugins=(git docker ...)   whitespace-separated identifiers, in order
//	ZSH_THEME="name"           text between the first pair of double quotes
//
// All other lines are ignored. A later theme line overwrites an earlier one.
func ParseReader(r io.Reader) (*Declaration, error) {
	decl := &Declaration{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, pluginsMarker):
			decl.Plugins = parsePlugins(line)
		case strings.HasPrefix(line, themeMarker):
			if theme, ok := parseTheme(line); ok {
				decl.Theme = theme
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return decl, nil
}

// parsePlugins extracts the token list from a plugins=(...) line
func parsePlugins(line string) []string {
	open := strings.Index(line, "(")
	if open < 0 {
		return nil
	}
	rest := line[open+1:]
	if end := strings.Index(rest, ")"); end >= 0 {
		rest = rest[:end]
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// parseTheme extracts the text between the first pair of double quotes
func parseTheme(line string) (string, bool) {
	first := strings.Index(line, `"`)
	if first < 0 {
		return "", false
	}
	rest := line[first+1:]
	second := strings.Index(rest, `"`)
	if second < 0 {
		return "", false
	}
	return rest[:second], true
}

// PluginPath returns the repository-relative path of a plugin's entry file
func PluginPath(name string) string {
	return fmt.Sprintf("plugins/%s/%s.plugin.zsh", name, name)
}

// ThemePath returns the repository-relative path of a theme file
func ThemePath(name string) string {
	return fmt.Sprintf("themes/%s.zsh-theme", name)
}
