package usecase

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"time"

	"github.com/google/uuid"

	"codeflat/internal/adapter/filelock"
	"codeflat/internal/adapter/fs"
	"codeflat/internal/adapter/store"
	"codeflat/internal/domain"
	"codeflat/internal/port"
)

// StdoutOutput is the output name that streams the artifact to standard output.
const StdoutOutput = "-"

// ProgressFunc is called after each file section is written.
type ProgressFunc func(processed, total int, currentFile string)

// FlattenRequest describes one flatten run. The ignore list is always supplied
// by the caller; the use case has no defaults of its own.
type FlattenRequest struct {
	Root         string
	Output       string
	Ignore       []string
	Exclude      []string
	UseGitignore bool
	Skip         []string // extra paths never emitted, e.g. the manifest database
	Progress     ProgressFunc
}

// FlattenUseCase writes a directory tree into a single text artifact.
type FlattenUseCase struct {
	reader    port.FileReader
	tokenizer port.TokenCounter
	manifest  port.ManifestStore
	now       func() time.Time
}

// NewFlattenUseCase creates a new flatten use case. manifest may be nil.
func NewFlattenUseCase(reader port.FileReader, tokenizer port.TokenCounter, manifest port.ManifestStore) *FlattenUseCase {
	return &FlattenUseCase{
		reader:    reader,
		tokenizer: tokenizer,
		manifest:  manifest,
		now:       time.Now,
	}
}

// SectionHeader returns the delimiter line that precedes a file's content.
func SectionHeader(relPath string) string {
	return fmt.Sprintf("\n--- FILE: %s ---\n\n", relPath)
}

// ErrorPlaceholder returns the inline marker written instead of unreadable content.
func ErrorPlaceholder(reason string) string {
	return fmt.Sprintf("[Error reading file: %s]\n", reason)
}

// Flatten writes the artifact for req.Root to req.Output, truncating any
// previous content. The output is locked for the duration of the run.
func (u *FlattenUseCase) Flatten(req FlattenRequest) (*domain.FlattenResult, error) {
	if req.Output == "" {
		return nil, fmt.Errorf("%w: no output path given", domain.ErrOutputUnwritable)
	}
	if req.Output == StdoutOutput {
		return u.FlattenTo(os.Stdout, req)
	}

	root, err := fs.ResolveRoot(req.Root)
	if err != nil {
		return nil, err
	}

	output := fs.CanonicalPath(req.Output)
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrOutputUnwritable, output)
	}

	lock := filelock.ForOutput(output)
	if err := lock.TryLock(); err != nil {
		return nil, err
	}
	defer lock.Unlock()

	files, walkErrors, err := u.collect(root, req, output, lock.Path())
	if err != nil {
		return nil, err
	}

	f, err := os.Create(output)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOutputUnwritable, err)
	}

	written, err := u.write(f, root, files, req.Progress)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %v", domain.ErrOutputUnwritable, closeErr)
	}
	if err != nil {
		return nil, err
	}

	return u.finish(req, written, output, walkErrors)
}

// FlattenTo streams the artifact to w. No lock is taken.
func (u *FlattenUseCase) FlattenTo(w io.Writer, req FlattenRequest) (*domain.FlattenResult, error) {
	root, err := fs.ResolveRoot(req.Root)
	if err != nil {
		return nil, err
	}

	files, walkErrors, err := u.collect(root, req)
	if err != nil {
		return nil, err
	}

	written, err := u.write(w, root, files, req.Progress)
	if err != nil {
		return nil, err
	}

	return u.finish(req, written, StdoutOutput, walkErrors)
}

// finish completes the result and records the run in the manifest.
func (u *FlattenUseCase) finish(req FlattenRequest, written *writeOutcome, output string, walkErrors []domain.FileFailure) (*domain.FlattenResult, error) {
	result := written.result
	result.Output = output
	if len(walkErrors) > 0 {
		result.Failed = append(walkErrors, result.Failed...)
	}

	if err := u.recordRun(req, written); err != nil {
		return result, err
	}
	return result, nil
}

// fileDigest pairs a written file with the digest recorded in the manifest.
type fileDigest struct {
	entry  domain.FileEntry
	sha    string
	failed bool
}

type writeOutcome struct {
	result      *domain.FlattenResult
	digests     []fileDigest
	artifactSHA string
}

// collect walks root and returns the files to write in traversal order.
func (u *FlattenUseCase) collect(root string, req FlattenRequest, skip ...string) ([]domain.FileEntry, []domain.FileFailure, error) {
	walker, err := newWalker(root, req, append(skip, req.Skip...))
	if err != nil {
		return nil, nil, err
	}

	walked, err := walker.Walk(root)
	if err != nil {
		return nil, nil, err
	}
	return walked.Files, walked.Errors, nil
}

func newWalker(root string, req FlattenRequest, skip []string) (port.FileWalker, error) {
	opts := fs.WalkerOptions{
		Ignore:   req.Ignore,
		Excludes: req.Exclude,
		Skip:     skip,
	}
	if req.UseGitignore {
		gi, err := fs.LoadGitignore(root)
		if err != nil {
			return nil, err
		}
		opts.Gitignore = gi
	}
	return fs.NewWalker(opts)
}

// write emits one section per file. Read failures become inline placeholders;
// write failures abort the run.
func (u *FlattenUseCase) write(w io.Writer, root string, files []domain.FileEntry, progress ProgressFunc) (*writeOutcome, error) {
	artifactHash := sha256.New()
	counter := &countingWriter{w: io.MultiWriter(w, artifactHash)}
	bw := bufio.NewWriter(counter)

	result := &domain.FlattenResult{Root: root}
	digests := make([]fileDigest, 0, len(files))

	emit := func(s string) error {
		result.EstimatedTokens += u.tokenizer.CountTokens(s)
		_, err := bw.WriteString(s)
		return err
	}

	for i, file := range files {
		if err := emit(SectionHeader(file.RelPath)); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrOutputUnwritable, err)
		}

		content, readErr := u.reader.ReadText(file.Path)
		d := fileDigest{entry: file}
		if readErr != nil {
			reason := describeReadError(readErr)
			result.Failed = append(result.Failed, domain.FileFailure{RelPath: file.RelPath, Reason: reason})
			d.failed = true
			d.sha, _ = hashFile(file.Path)
			if err := emit(ErrorPlaceholder(reason)); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrOutputUnwritable, err)
			}
		} else {
			d.sha = hashString(content)
			if err := emit(content); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrOutputUnwritable, err)
			}
		}

		digests = append(digests, d)
		result.FilesWritten++
		if progress != nil {
			progress(i+1, len(files), file.RelPath)
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOutputUnwritable, err)
	}

	result.BytesWritten = counter.n
	return &writeOutcome{
		result:      result,
		digests:     digests,
		artifactSHA: hex.EncodeToString(artifactHash.Sum(nil)),
	}, nil
}

// describeReadError strips the absolute path from OS errors so placeholders
// are identical wherever the tree is checked out.
func describeReadError(err error) string {
	var pathErr *iofs.PathError
	if errors.As(err, &pathErr) {
		return fmt.Sprintf("%s: %v", pathErr.Op, pathErr.Err)
	}
	return err.Error()
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// hashFile returns the sha256 of the raw file bytes.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// recordRun stores the run in the manifest, if one is configured.
func (u *FlattenUseCase) recordRun(req FlattenRequest, written *writeOutcome) error {
	if u.manifest == nil {
		return nil
	}

	result := written.result
	files := make([]domain.ManifestFile, 0, len(written.digests))
	for _, d := range written.digests {
		files = append(files, domain.ManifestFile{
			RelPath: d.entry.RelPath,
			SHA256:  d.sha,
			Size:    d.entry.Size,
			ModTime: d.entry.ModTime.Unix(),
			Failed:  d.failed,
		})
	}

	run := domain.Run{
		ID:            uuid.NewString(),
		Time:          u.now(),
		Root:          result.Root,
		Output:        result.Output,
		Files:         result.FilesWritten,
		Failed:        len(result.Failed),
		ArtifactSHA:   written.artifactSHA,
		SelectionHash: store.ComputeSelectionHash(req.Ignore, req.Exclude, req.UseGitignore),
	}
	if err := u.manifest.RecordRun(run, files); err != nil {
		return fmt.Errorf("failed to record run in manifest: %w", err)
	}

	result.RunID = run.ID
	return nil
}
