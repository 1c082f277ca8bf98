package memstore

import (
	"sort"
	"sync"

	"codeflat/internal/domain"
	"codeflat/internal/port"
)

// MemoryStore is a ManifestStore that lives only for the process. It suits
// callers that flatten repeatedly in one process and want status between runs
// without a database file.
type MemoryStore struct {
	mu      sync.RWMutex
	files   map[string]domain.ManifestFile
	runs    []domain.Run
	lastRun int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:   make(map[string]domain.ManifestFile),
		lastRun: -1,
	}
}

func (s *MemoryStore) RecordRun(run domain.Run, files []domain.ManifestFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = make(map[string]domain.ManifestFile, len(files))
	for _, f := range files {
		s.files[f.RelPath] = f
	}
	s.runs = append(s.runs, run)
	s.lastRun = len(s.runs) - 1
	return nil
}

func (s *MemoryStore) LastRun() (domain.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun < 0 {
		return domain.Run{}, false, nil
	}
	return s.runs[s.lastRun], true, nil
}

func (s *MemoryStore) ListFiles() ([]domain.ManifestFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := make([]domain.ManifestFile, 0, len(s.files))
	for _, f := range s.files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})
	return files, nil
}

func (s *MemoryStore) ListRuns() ([]domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]domain.Run, len(s.runs))
	copy(runs, s.runs)
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Time.Before(runs[j].Time)
	})
	return runs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ port.ManifestStore = (*MemoryStore)(nil)
