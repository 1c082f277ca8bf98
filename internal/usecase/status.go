package usecase

import (
	"fmt"
	"sort"

	"codeflat/internal/adapter/fs"
	"codeflat/internal/adapter/store"
	"codeflat/internal/domain"
	"codeflat/internal/port"
)

// StatusUseCase compares a tree against the last run recorded in the manifest.
type StatusUseCase struct {
	manifest port.ManifestStore
}

// NewStatusUseCase creates a new status use case.
func NewStatusUseCase(manifest port.ManifestStore) *StatusUseCase {
	return &StatusUseCase{manifest: manifest}
}

// Status walks req.Root with the same selection rules as Flatten and reports
// which files were added, modified or removed since the last recorded run.
func (u *StatusUseCase) Status(req FlattenRequest) (*domain.StatusReport, error) {
	lastRun, found, err := u.manifest.LastRun()
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if !found {
		return nil, domain.ErrNoManifest
	}

	root, err := fs.ResolveRoot(req.Root)
	if err != nil {
		return nil, err
	}

	skip := append([]string{}, req.Skip...)
	if lastRun.Output != "" && lastRun.Output != StdoutOutput {
		skip = append(skip, lastRun.Output)
	}
	walker, err := newWalker(root, req, skip)
	if err != nil {
		return nil, err
	}
	walked, err := walker.Walk(root)
	if err != nil {
		return nil, err
	}

	recorded, err := u.manifest.ListFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to list manifest files: %w", err)
	}
	previous := make(map[string]domain.ManifestFile, len(recorded))
	for _, f := range recorded {
		previous[f.RelPath] = f
	}

	report := &domain.StatusReport{
		LastRun:          lastRun,
		SelectionChanged: lastRun.SelectionHash != store.ComputeSelectionHash(req.Ignore, req.Exclude, req.UseGitignore),
	}

	seen := make(map[string]bool, len(walked.Files))
	for _, file := range walked.Files {
		seen[file.RelPath] = true

		prev, ok := previous[file.RelPath]
		if !ok {
			report.Added = append(report.Added, file.RelPath)
			continue
		}

		// Size and mtime unchanged is trusted; otherwise compare content.
		if prev.Size == file.Size && prev.ModTime == file.ModTime.Unix() && prev.SHA256 != "" {
			report.Unchanged++
			continue
		}
		sum, _ := hashFile(file.Path)
		if sum != prev.SHA256 {
			report.Modified = append(report.Modified, file.RelPath)
		} else {
			report.Unchanged++
		}
	}

	for path := range previous {
		if !seen[path] {
			report.Removed = append(report.Removed, path)
		}
	}
	sort.Strings(report.Removed)

	return report, nil
}
