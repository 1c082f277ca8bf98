package port

import "codeflat/internal/domain"

// ManifestStore persists the file digests and run history of flatten runs.
type ManifestStore interface {
	RecordRun(run domain.Run, files []domain.ManifestFile) error

	LastRun() (domain.Run, bool, error)

	ListFiles() ([]domain.ManifestFile, error)

	ListRuns() ([]domain.Run, error)

	Close() error
}
