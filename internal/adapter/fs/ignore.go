package fs

import (
	"path"
	"path/filepath"
	"strings"
)

// IgnoreSet holds normalized root-relative directory paths to prune.
//
// A fragment names a directory by its exact path from the root, compared
// segment by segment: "node_modules", "/node_modules/" and "node_modules/"
// all prune <root>/node_modules and nothing deeper. "." or "/" names the
// root itself.
type IgnoreSet struct {
	dirs map[string]struct{}
}

// NewIgnoreSet normalizes the given fragments. Blank fragments are dropped and
// fragments that escape the root match nothing.
func NewIgnoreSet(fragments []string) *IgnoreSet {
	s := &IgnoreSet{dirs: make(map[string]struct{})}
	for _, f := range fragments {
		norm, ok := NormalizeFragment(f)
		if !ok {
			continue
		}
		s.dirs[norm] = struct{}{}
	}
	return s
}

// NormalizeFragment converts an ignore fragment to a clean slash-separated
// root-relative path. The second result is false for fragments that can never match.
func NormalizeFragment(fragment string) (string, bool) {
	f := strings.TrimSpace(fragment)
	if f == "" {
		return "", false
	}
	f = filepath.ToSlash(f)
	f = strings.Trim(f, "/")
	if f == "" {
		return ".", true
	}
	f = path.Clean(f)
	if f == ".." || strings.HasPrefix(f, "../") {
		return "", false
	}
	return f, true
}

// MatchDir reports whether the directory at relPath is ignored.
func (s *IgnoreSet) MatchDir(relPath string) bool {
	if s == nil || len(s.dirs) == 0 {
		return false
	}
	_, ok := s.dirs[filepath.ToSlash(relPath)]
	return ok
}

// IgnoresRoot reports whether the root itself is ignored.
func (s *IgnoreSet) IgnoresRoot() bool {
	return s.MatchDir(".")
}

// Len returns the number of distinct directories in the set.
func (s *IgnoreSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.dirs)
}
