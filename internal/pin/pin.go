package pin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Set holds canonicalized absolute paths excluded from being overwritten
// during sync, restore and upgrade. Paths are canonicalized at insertion
// time so membership checks are plain string equality.
type Set struct {
	paths map[string]struct{}
}

// Resolve builds the effective pin set for a run. Paths supplied on the
// command line take exclusive precedence; otherwise the persisted pin file
// is read. A missing pin file yields an empty set, not an error.
func Resolve(args []string, pinFile string) (*Set, error) {
	if len(args) > 0 {
		return FromPaths(args)
	}
	return LoadFile(pinFile)
}

// FromPaths builds a set from explicit paths. Duplicates collapse.
func FromPaths(paths []string) (*Set, error) {
	s := &Set{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		canonical, err := canonicalize(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve pin path %s: %w", p, err)
		}
		s.paths[canonical] = struct{}{}
	}
	return s, nil
}

// LoadFile reads the persisted pin file, one path per line, ignoring blank
// lines. A missing file yields an empty set.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Set{paths: make(map[string]struct{})}, nil
		}
		return nil, fmt.Errorf("failed to read pin file: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	return FromPaths(paths)
}

// Contains reports whether path is pinned
func (s *Set) Contains(path string) bool {
	canonical, err := canonicalize(path)
	if err != nil {
		return false
	}
	_, ok := s.paths[canonical]
	return ok
}

// Len returns the number of pinned paths
func (s *Set) Len() int {
	return len(s.paths)
}

// canonicalize makes a path absolute and resolves symlinks when the path
// exists. Non-existent paths still canonicalize to their cleaned absolute
// form, so files can be pinned before they are first fetched.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Clean(abs), nil
		}
		return "", err
	}
	return resolved, nil
}
