package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"codeflat/internal/domain"
)

// Walker enumerates the files of a tree in lexical pre-order, pruning
// ignored directories before they are entered.
type Walker struct {
	ignore    *IgnoreSet
	excludes  []string
	gitignore *ignore.GitIgnore
	skip      map[string]struct{}
}

// WalkerOptions configures a Walker.
type WalkerOptions struct {
	Ignore    []string          // root-relative directories
	Excludes  []string          // doublestar globs matched against relative paths
	Gitignore *ignore.GitIgnore // optional compiled .gitignore
	Skip      []string          // absolute paths never emitted, e.g. the output file
}

func NewWalker(opts WalkerOptions) (*Walker, error) {
	for _, pattern := range opts.Excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPattern, pattern)
		}
	}

	skip := make(map[string]struct{}, len(opts.Skip))
	for _, p := range opts.Skip {
		if p == "" {
			continue
		}
		skip[CanonicalPath(p)] = struct{}{}
	}

	return &Walker{
		ignore:    NewIgnoreSet(opts.Ignore),
		excludes:  opts.Excludes,
		gitignore: opts.Gitignore,
		skip:      skip,
	}, nil
}

// ResolveRoot makes root absolute and checks that it is a readable directory.
func ResolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root %q: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrRootNotFound, abs)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrRootUnreadable, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", domain.ErrRootNotDir, abs)
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}

func (w *Walker) Walk(root string) (*domain.WalkResult, error) {
	root, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	result := &domain.WalkResult{}
	if w.ignore.IgnoresRoot() {
		return result, nil
	}

	err = filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("%w: %v", domain.ErrRootUnreadable, err)
			}
			rel, _ := relSlash(root, path)
			reason := err.Error()
			var pathErr *iofs.PathError
			if errors.As(err, &pathErr) {
				reason = fmt.Sprintf("%s: %v", pathErr.Op, pathErr.Err)
			}
			result.Errors = append(result.Errors, domain.FileFailure{RelPath: rel, Reason: reason})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == root {
			return nil
		}

		relPath, err := relSlash(root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if w.shouldPrune(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if _, skipped := w.skip[path]; skipped {
			return nil
		}
		if w.shouldExclude(relPath) || w.gitignored(relPath, false) {
			return nil
		}

		entry, ok := fileEntry(path, relPath, d)
		if ok {
			result.Files = append(result.Files, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// fileEntry builds the entry for a non-directory. Devices, pipes and sockets are
// skipped. Symlinks are followed; dangling ones are kept so the read failure
// shows up in the artifact.
func fileEntry(path, relPath string, d iofs.DirEntry) (domain.FileEntry, bool) {
	entry := domain.FileEntry{Path: path, RelPath: relPath}

	if d.Type()&iofs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil {
			return entry, true
		}
		if !info.Mode().IsRegular() {
			return entry, false
		}
		entry.Size = info.Size()
		entry.ModTime = info.ModTime()
		return entry, true
	}

	if !d.Type().IsRegular() {
		return entry, false
	}

	info, err := d.Info()
	if err != nil {
		// Removed between listing and stat; the reader reports it.
		return entry, true
	}
	entry.Size = info.Size()
	entry.ModTime = info.ModTime()
	return entry, true
}

func (w *Walker) shouldPrune(relPath string) bool {
	if w.ignore.MatchDir(relPath) {
		return true
	}
	if w.shouldExclude(relPath) || w.shouldExclude(relPath+"/") {
		return true
	}
	return w.gitignored(relPath, true)
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) gitignored(relPath string, isDir bool) bool {
	if w.gitignore == nil {
		return false
	}
	if isDir && w.gitignore.MatchesPath(relPath+"/") {
		return true
	}
	return w.gitignore.MatchesPath(relPath)
}

func relSlash(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// CanonicalPath returns an absolute, symlink-resolved form of path. Paths that
// do not exist yet are resolved through their parent directory.
func CanonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}
