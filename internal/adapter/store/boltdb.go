package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"codeflat/internal/domain"
)

var (
	bucketFiles = []byte("files")
	bucketRuns  = []byte("runs")
	bucketMeta  = []byte("meta")
	keyLastRun  = []byte("last_run")
)

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketFiles, bucketRuns, bucketMeta}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// OpenManifest opens the manifest at path and migrates it to the current schema.
func OpenManifest(path string) (*BoltStore, error) {
	st, err := NewBoltStore(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

type fileMeta struct {
	SHA256  string `json:"sha256"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"`
	Failed  bool   `json:"failed,omitempty"`
}

type runMeta struct {
	Time          int64  `json:"time"`
	Root          string `json:"root"`
	Output        string `json:"output"`
	Files         int    `json:"files"`
	Failed        int    `json:"failed"`
	ArtifactSHA   string `json:"artifact_sha,omitempty"`
	SelectionHash string `json:"selection_hash,omitempty"`
}

// RecordRun stores a run and replaces the file digests of the previous run in
// a single transaction.
func (s *BoltStore) RecordRun(run domain.Run, files []domain.ManifestFile) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketFiles); err != nil && err != bbolt.ErrBucketNotFound {
			return fmt.Errorf("failed to reset files bucket: %w", err)
		}
		filesBucket, err := tx.CreateBucket(bucketFiles)
		if err != nil {
			return fmt.Errorf("failed to create files bucket: %w", err)
		}

		for _, f := range files {
			data, err := json.Marshal(fileMeta{
				SHA256:  f.SHA256,
				Size:    f.Size,
				ModTime: f.ModTime,
				Failed:  f.Failed,
			})
			if err != nil {
				return err
			}
			if err := filesBucket.Put([]byte(f.RelPath), data); err != nil {
				return err
			}
		}

		data, err := json.Marshal(runMeta{
			Time:          run.Time.UTC().UnixNano(),
			Root:          run.Root,
			Output:        run.Output,
			Files:         run.Files,
			Failed:        run.Failed,
			ArtifactSHA:   run.ArtifactSHA,
			SelectionHash: run.SelectionHash,
		})
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketRuns).Put([]byte(run.ID), data); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyLastRun, []byte(run.ID))
	})
}

// LastRun returns the most recently recorded run. The boolean is false when
// no run has been recorded yet.
func (s *BoltStore) LastRun() (domain.Run, bool, error) {
	var run domain.Run
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketMeta).Get(keyLastRun)
		if id == nil {
			return nil
		}
		data := tx.Bucket(bucketRuns).Get(id)
		if data == nil {
			return fmt.Errorf("run not found: %s", id)
		}
		var err error
		run, err = decodeRun(string(id), data)
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return run, found, err
}

// ListRuns returns all recorded runs, oldest first.
func (s *BoltStore) ListRuns() ([]domain.Run, error) {
	var runs []domain.Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			run, err := decodeRun(string(k), v)
			if err != nil {
				return err
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Time.Before(runs[j].Time)
	})
	return runs, nil
}

// ListFiles returns the file digests of the last recorded run, ordered by path.
func (s *BoltStore) ListFiles() ([]domain.ManifestFile, error) {
	var files []domain.ManifestFile
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFiles).ForEach(func(k, v []byte) error {
			var meta fileMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			files = append(files, domain.ManifestFile{
				RelPath: string(k),
				SHA256:  meta.SHA256,
				Size:    meta.Size,
				ModTime: meta.ModTime,
				Failed:  meta.Failed,
			})
			return nil
		})
	})
	return files, err
}

func decodeRun(id string, data []byte) (domain.Run, error) {
	var meta runMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.Run{}, err
	}
	return domain.Run{
		ID:            id,
		Time:          time.Unix(0, meta.Time).UTC(),
		Root:          meta.Root,
		Output:        meta.Output,
		Files:         meta.Files,
		Failed:        meta.Failed,
		ArtifactSHA:   meta.ArtifactSHA,
		SelectionHash: meta.SelectionHash,
	}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
