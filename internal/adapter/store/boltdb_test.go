package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeflat/internal/domain"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	st, err := OpenManifest(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestBoltStore_EmptyManifest(t *testing.T) {
	st := openTestStore(t)

	_, found, err := st.LastRun()
	require.NoError(t, err)
	assert.False(t, found)

	files, err := st.ListFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestBoltStore_RecordRunReplacesFiles(t *testing.T) {
	st := openTestStore(t)

	first := domain.Run{ID: "run-1", Time: time.Unix(100, 0), Root: "/src", Output: "/out.txt", Files: 2}
	require.NoError(t, st.RecordRun(first, []domain.ManifestFile{
		{RelPath: "a.txt", SHA256: "aa", Size: 1},
		{RelPath: "old.txt", SHA256: "oo", Size: 3},
	}))

	second := domain.Run{ID: "run-2", Time: time.Unix(200, 0), Root: "/src", Output: "/out.txt", Files: 2, Failed: 1, SelectionHash: "h"}
	require.NoError(t, st.RecordRun(second, []domain.ManifestFile{
		{RelPath: "a.txt", SHA256: "ab", Size: 2},
		{RelPath: "b.bin", SHA256: "bb", Size: 4, Failed: true},
	}))

	last, found, err := st.LastRun()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "run-2", last.ID)
	assert.Equal(t, 1, last.Failed)
	assert.Equal(t, "h", last.SelectionHash)
	assert.True(t, last.Time.Equal(time.Unix(200, 0)))

	files, err := st.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].RelPath)
	assert.Equal(t, "ab", files[0].SHA256)
	assert.Equal(t, "b.bin", files[1].RelPath)
	assert.True(t, files[1].Failed)

	runs, err := st.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)
}

func TestBoltStore_Clear(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.RecordRun(domain.Run{ID: "run-1", Time: time.Now()}, []domain.ManifestFile{{RelPath: "a.txt"}}))
	require.NoError(t, st.Clear())

	_, found, err := st.LastRun()
	require.NoError(t, err)
	assert.False(t, found)

	runs, err := st.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestBoltStore_Migrate(t *testing.T) {
	st := openTestStore(t)

	info, err := st.GetSchemaInfo()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.Version)

	require.NoError(t, st.SetSchemaInfo(&SchemaInfo{Version: CurrentSchemaVersion + 1}))
	assert.Error(t, st.Migrate(), "a manifest from a newer version must be refused")
}

func TestComputeSelectionHash(t *testing.T) {
	a := ComputeSelectionHash([]string{".git"}, nil, false)
	b := ComputeSelectionHash([]string{".git"}, nil, false)
	c := ComputeSelectionHash([]string{".git", "dist"}, nil, false)
	d := ComputeSelectionHash([]string{".git"}, nil, true)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Len(t, a, 16)
}
