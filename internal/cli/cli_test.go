package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeflat/config"
	"codeflat/internal/domain"
)

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestFlattenCommand_WritesOutput(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.txt":       "alpha",
		".git/HEAD":   "ref: refs/heads/main",
		"venv/bin/py": "x",
	})
	output := filepath.Join(t.TempDir(), "flat.txt")

	stdout, _, err := runCLI(t, "flatten", root, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Codebase flattened to "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "\n--- FILE: a.txt ---\n\nalpha", string(data))
}

func TestFlattenCommand_Stdout(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"main.go": "package main\n"})

	stdout, stderr, err := runCLI(t, "flatten", "--dir", root, "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, "\n--- FILE: main.go ---\n\npackage main\n", stdout)
	assert.Contains(t, stderr, "Flattened 1 files")
}

func TestFlattenCommand_IgnoreFlagOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".git/HEAD":    "ref",
		"dist/app.js":  "bundle",
		"src/index.ts": "export {}",
	})

	stdout, _, err := runCLI(t, "flatten", root, "-o", "-", "--ignore", "dist, build")
	require.NoError(t, err)
	assert.Contains(t, stdout, "--- FILE: .git/HEAD ---")
	assert.Contains(t, stdout, "--- FILE: src/index.ts ---")
	assert.NotContains(t, stdout, "dist/app.js")
}

func TestFlattenCommand_ConfigFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"keep.go":      "package keep",
		"keep_test.go": "package keep",
	})
	cfg := config.DefaultConfig()
	cfg.Flatten.Exclude = []string{"**/*_test.go"}
	require.NoError(t, cfg.Save(filepath.Join(root, "codeflat.yaml")))

	stdout, _, err := runCLI(t, "flatten", "--dir", root, "-o", "-", "--exclude", "codeflat.yaml")
	require.NoError(t, err)
	assert.Equal(t, "\n--- FILE: keep.go ---\n\npackage keep", stdout)
}

func TestFlattenCommand_ConfigFromPositionalRoot(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"svc.go":      "package svc",
		"svc_test.go": "package svc",
	})
	cfg := config.DefaultConfig()
	cfg.Flatten.Exclude = []string{"**/*_test.go", "codeflat.yaml"}
	cfg.Manifest.Path = "state/runs.db"
	require.NoError(t, cfg.Save(filepath.Join(root, "codeflat.yaml")))
	output := filepath.Join(t.TempDir(), "flat.txt")

	_, _, err := runCLI(t, "flatten", root, "-o", output, "--manifest")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "\n--- FILE: svc.go ---\n\npackage svc", string(data))
	assert.FileExists(t, filepath.Join(root, "state", "runs.db"))
	assert.NoFileExists(t, config.ManifestDBPath(root))

	stdout, _, err := runCLI(t, "status", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No changes (1 files unchanged)")
}

func TestFlattenCommand_BudgetFlagDisablesConfiguredBudget(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"words.txt": "one two three four five six"})
	cfg := config.DefaultConfig()
	cfg.Flatten.TokenBudget = 1
	cfg.Flatten.Exclude = []string{"codeflat.yaml"}
	require.NoError(t, cfg.Save(filepath.Join(root, "codeflat.yaml")))

	_, stderr, err := runCLI(t, "flatten", root, "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, stderr, "exceeds the budget of 1")

	_, stderr, err = runCLI(t, "flatten", root, "-o", "-", "--budget", "0")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "exceeds the budget")
}

func TestFlattenCommand_MissingRoot(t *testing.T) {
	output := filepath.Join(t.TempDir(), "flat.txt")

	_, _, err := runCLI(t, "flatten", filepath.Join(t.TempDir(), "nope"), "-o", output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRootNotFound), "got %v", err)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFlattenCommand_RequiresOutput(t *testing.T) {
	_, _, err := runCLI(t, "flatten", t.TempDir())
	assert.Error(t, err)
}

func TestStatusCommand(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "a"})
	output := filepath.Join(t.TempDir(), "flat.txt")

	_, _, err := runCLI(t, "status", root)
	assert.True(t, errors.Is(err, domain.ErrNoManifest), "got %v", err)

	_, _, err = runCLI(t, "flatten", root, "-o", output, "--manifest")
	require.NoError(t, err)
	assert.FileExists(t, config.ManifestDBPath(root))

	stdout, _, err := runCLI(t, "status", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No changes (1 files unchanged)")

	writeFiles(t, root, map[string]string{"b.txt": "b"})
	stdout, _, err = runCLI(t, "status", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "added:    b.txt")
	assert.Contains(t, stdout, "1 added, 0 modified, 0 removed, 1 unchanged")

	stdout, _, err = runCLI(t, "status", root, "--history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "flat.txt")

	stdout, _, err = runCLI(t, "status", root, "--reset")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Manifest cleared")

	_, _, err = runCLI(t, "status", root)
	assert.True(t, errors.Is(err, domain.ErrNoManifest), "got %v", err)
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := runCLI(t, "config", "init", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "codeflat.yaml")

	_, _, err = runCLI(t, "config", "init", "--dir", dir)
	assert.Error(t, err, "init must not overwrite without --force")

	stdout, _, err = runCLI(t, "config", "show", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "node_modules")
	assert.Contains(t, stdout, "use_gitignore: false")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b/c"}, splitList(" a, ,b/c,"))
	assert.Equal(t, []string{}, splitList(""))
}
