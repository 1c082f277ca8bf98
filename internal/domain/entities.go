package domain

import "time"

// FileEntry is a file selected for the artifact.
type FileEntry struct {
	Path    string
	RelPath string
	ModTime time.Time
	Size    int64
}

// FileFailure records a file whose content was replaced by an inline placeholder.
type FileFailure struct {
	RelPath string `json:"rel_path"`
	Reason  string `json:"reason"`
}

// WalkResult is the ordered file list of a traversal plus non-fatal
// problems hit along the way, such as unreadable subdirectories.
type WalkResult struct {
	Files  []FileEntry
	Errors []FileFailure
}

// FlattenResult summarizes a single flatten run.
type FlattenResult struct {
	Root            string        `json:"root"`
	Output          string        `json:"output"`
	FilesWritten    int           `json:"files_written"`
	BytesWritten    int64         `json:"bytes_written"`
	EstimatedTokens int           `json:"estimated_tokens"`
	Failed          []FileFailure `json:"failed,omitempty"`
	RunID           string        `json:"run_id,omitempty"`
}

// ManifestFile is the digest record of one file from the last recorded run.
type ManifestFile struct {
	RelPath string `json:"rel_path"`
	SHA256  string `json:"sha256"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"`
	Failed  bool   `json:"failed,omitempty"`
}

// Run is a recorded flatten run.
type Run struct {
	ID            string    `json:"id"`
	Time          time.Time `json:"time"`
	Root          string    `json:"root"`
	Output        string    `json:"output"`
	Files         int       `json:"files"`
	Failed        int       `json:"failed"`
	ArtifactSHA   string    `json:"artifact_sha,omitempty"`
	SelectionHash string    `json:"selection_hash,omitempty"`
}

// StatusReport compares the current tree against the last recorded run.
type StatusReport struct {
	LastRun          Run
	Added            []string
	Modified         []string
	Removed          []string
	Unchanged        int
	SelectionChanged bool // ignore/exclude settings differ from the last run
}

// Clean reports whether the tree matches the last recorded run.
func (r StatusReport) Clean() bool {
	return len(r.Added) == 0 && len(r.Modified) == 0 && len(r.Removed) == 0
}
