package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"codeflat/config"
	"codeflat/internal/adapter/analyzer"
	"codeflat/internal/adapter/fs"
	"codeflat/internal/adapter/store"
	"codeflat/internal/domain"
	"codeflat/internal/port"
	"codeflat/internal/usecase"
)

// selectionFlags are the flags that decide which files a run covers. They are
// shared by flatten and status so both see the same tree.
type selectionFlags struct {
	ignore    string
	exclude   []string
	gitignore bool
}

func (s *selectionFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.ignore, "ignore", "", "comma-separated directories to skip, relative to the root (default from config)")
	cmd.Flags().StringArrayVar(&s.exclude, "exclude", nil, "glob of paths to skip (repeatable)")
	cmd.Flags().BoolVar(&s.gitignore, "gitignore", false, "also skip paths matched by the root .gitignore")
}

// request builds a request from config, with flags taking precedence.
func (s *selectionFlags) request(cmd *cobra.Command, cfg *config.Config, root string) usecase.FlattenRequest {
	req := usecase.FlattenRequest{
		Root:         root,
		Ignore:       cfg.Flatten.Ignore,
		Exclude:      append(append([]string{}, cfg.Flatten.Exclude...), s.exclude...),
		UseGitignore: cfg.Flatten.UseGitignore || s.gitignore,
	}
	if cmd.Flags().Changed("ignore") {
		req.Ignore = splitList(s.ignore)
	}
	return req
}

type flattenOptions struct {
	selection    selectionFlags
	output       string
	manifest     bool
	progress     bool
	maxFileBytes int64
	budget       int
}

func newFlattenCommand(opts *globalOptions) *cobra.Command {
	f := &flattenOptions{}

	cmd := &cobra.Command{
		Use:   "flatten [root]",
		Short: "Concatenate a directory tree into one text file",
		Long: `Walk the root directory and write every file into a single artifact.
Each file is preceded by a "--- FILE: <relative path> ---" header. Files that
cannot be read as text are replaced by an inline error marker.

Examples:
  codeflat flatten . -o flat.txt
  codeflat flatten ./service -o - --ignore .git,vendor
  codeflat flatten -o flat.txt --exclude '**/*_test.go' --gitignore`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlatten(cmd, args, opts, f)
		},
	}

	f.selection.bind(cmd)
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file, or - for stdout (required)")
	cmd.Flags().BoolVar(&f.manifest, "manifest", false, "record the run in the manifest database")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "show a progress bar on stderr")
	cmd.Flags().Int64Var(&f.maxFileBytes, "max-file-bytes", 0, "replace files larger than this with an error marker (default from config)")
	cmd.Flags().IntVarP(&f.budget, "budget", "b", 0, "warn when the token estimate exceeds this, 0 disables (default from config)")
	cmd.MarkFlagRequired("output")

	return cmd
}

func runFlatten(cmd *cobra.Command, args []string, opts *globalOptions, f *flattenOptions) error {
	log := opts.log

	// Resolve first so a bad root never creates state directories.
	root, err := fs.ResolveRoot(opts.resolveRoot(args))
	if err != nil {
		return err
	}

	cfg, err := opts.configFor(root, args)
	if err != nil {
		return err
	}

	req := f.selection.request(cmd, cfg, root)
	req.Output = f.output
	log.Debugf("ignore: %v, exclude: %v, gitignore: %v", req.Ignore, req.Exclude, req.UseGitignore)

	maxBytes := cfg.Flatten.MaxFileBytes
	if cmd.Flags().Changed("max-file-bytes") {
		maxBytes = f.maxFileBytes
	}
	budget := cfg.Flatten.TokenBudget
	if cmd.Flags().Changed("budget") {
		budget = f.budget
	}

	var manifest port.ManifestStore
	if cfg.Manifest.Enabled || f.manifest {
		dbPath := cfg.ManifestDBPath(root)
		if err := config.EnsureStateDir(dbPath); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
		st, err := store.OpenManifest(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open manifest: %w", err)
		}
		defer st.Close()

		manifest = st
		req.Skip = append(req.Skip, dbPath)
		log.Debugf("manifest: %s", dbPath)
	}

	toStdout := req.Output == usecase.StdoutOutput
	if (cfg.Flatten.Progress || f.progress) && !toStdout {
		req.Progress = newProgressReporter(cmd.ErrOrStderr(), "Flattening")
	}

	flattenUC := usecase.NewFlattenUseCase(fs.NewTextReader(maxBytes), analyzer.NewTokenizer(), manifest)

	start := time.Now()
	var result *domain.FlattenResult
	if toStdout {
		result, err = flattenUC.FlattenTo(cmd.OutOrStdout(), req)
	} else {
		result, err = flattenUC.Flatten(req)
	}
	if err != nil {
		return fmt.Errorf("flatten failed: %w", err)
	}

	log.LogFlattenSummary(result, time.Since(start))
	if budget > 0 && result.EstimatedTokens > budget {
		log.Warnf("Estimated %d tokens exceeds the budget of %d", result.EstimatedTokens, budget)
	}
	if result.RunID != "" {
		log.Debugf("recorded run %s", result.RunID)
	}

	if !toStdout {
		fmt.Fprintf(cmd.OutOrStdout(), "Codebase flattened to %s\n", req.Output)
	}
	return nil
}

// openExistingManifest opens the manifest for root without creating one.
func openExistingManifest(cfg *config.Config, root string) (*store.BoltStore, error) {
	dbPath := cfg.ManifestDBPath(root)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w at %s; run 'codeflat flatten --manifest' first", domain.ErrNoManifest, dbPath)
	}
	st, err := store.OpenManifest(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	return st, nil
}

// splitList splits a comma-separated flag value, dropping blank items.
func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
