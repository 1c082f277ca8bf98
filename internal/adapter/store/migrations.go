package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the current manifest schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keySchemaVersion = []byte("schema_version")

// SchemaInfo stores the manifest schema version.
type SchemaInfo struct {
	Version int `json:"version"`
}

// GetSchemaInfo retrieves the current schema info from the database.
func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}

		if versionData := b.Get(keySchemaVersion); versionData != nil {
			if err := json.Unmarshal(versionData, &info.Version); err != nil {
				return fmt.Errorf("corrupt schema version: %w", err)
			}
		}
		return nil
	})
	return &info, err
}

// SetSchemaInfo stores the schema info in the database.
func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		return b.Put(keySchemaVersion, versionData)
	})
}

// ComputeSelectionHash hashes the settings that decide which files a run
// visits. A different hash means added/removed counts reflect the settings
// change as well as the tree.
func ComputeSelectionHash(ignore, exclude []string, useGitignore bool) string {
	relevant := struct {
		Ignore       []string `json:"ignore"`
		Exclude      []string `json:"exclude"`
		UseGitignore bool     `json:"use_gitignore"`
	}{
		Ignore:       ignore,
		Exclude:      exclude,
		UseGitignore: useGitignore,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// Migrate brings the schema to CurrentSchemaVersion. It refuses to touch a
// manifest written by a newer version.
func (s *BoltStore) Migrate() error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}

	if info.Version > CurrentSchemaVersion {
		return fmt.Errorf("manifest created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
	}
	if info.Version == CurrentSchemaVersion {
		return nil
	}

	for v := info.Version; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v, v+1); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}

	info.Version = CurrentSchemaVersion
	return s.SetSchemaInfo(info)
}

// runMigration runs a specific version migration. v0 to v1 needs no data
// changes: the meta bucket it introduced is created by NewBoltStore.
func (s *BoltStore) runMigration(from, to int) error {
	return nil
}

// Clear removes all recorded runs and file digests.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketFiles, bucketRuns} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketMeta).Delete(keyLastRun)
	})
}
