package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeflat/internal/adapter/fs"
	"codeflat/internal/usecase"
)

type statusOptions struct {
	selection selectionFlags
	history   bool
	reset     bool
}

func newStatusCommand(opts *globalOptions) *cobra.Command {
	s := &statusOptions{}

	cmd := &cobra.Command{
		Use:   "status [root]",
		Short: "Show files changed since the last recorded run",
		Long: `Compare the tree against the manifest written by 'codeflat flatten --manifest'
and list added, modified and removed files.

Examples:
  codeflat status
  codeflat status ./service --ignore .git,vendor
  codeflat status --history
  codeflat status --reset`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args, opts, s)
		},
	}

	s.selection.bind(cmd)
	cmd.Flags().BoolVar(&s.history, "history", false, "list every recorded run")
	cmd.Flags().BoolVar(&s.reset, "reset", false, "forget all recorded runs")
	return cmd
}

func runStatus(cmd *cobra.Command, args []string, opts *globalOptions, s *statusOptions) error {
	root, err := fs.ResolveRoot(opts.resolveRoot(args))
	if err != nil {
		return err
	}

	cfg, err := opts.configFor(root, args)
	if err != nil {
		return err
	}

	st, err := openExistingManifest(cfg, root)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()

	if s.reset {
		if err := st.Clear(); err != nil {
			return fmt.Errorf("failed to clear manifest: %w", err)
		}
		fmt.Fprintln(out, "Manifest cleared")
		return nil
	}

	if s.history {
		runs, err := st.ListRuns()
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		for _, r := range runs {
			fmt.Fprintf(out, "%s  %s  %4d files  %d failed  %s\n",
				r.Time.Local().Format("2006-01-02 15:04:05"), r.ID, r.Files, r.Failed, r.Output)
		}
		return nil
	}

	req := s.selection.request(cmd, cfg, root)
	req.Skip = append(req.Skip, cfg.ManifestDBPath(root))

	report, err := usecase.NewStatusUseCase(st).Status(req)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	last := report.LastRun
	fmt.Fprintf(out, "Last run: %s (%s)\n", last.Time.Local().Format("2006-01-02 15:04:05"), last.ID)
	fmt.Fprintf(out, "  Output: %s\n", last.Output)
	fmt.Fprintf(out, "  Files:  %d (%d failed)\n", last.Files, last.Failed)

	if report.SelectionChanged {
		opts.log.Warnf("Ignore or exclude settings differ from the last run")
	}

	if report.Clean() {
		fmt.Fprintf(out, "\nNo changes (%d files unchanged)\n", report.Unchanged)
		return nil
	}

	fmt.Fprintln(out)
	for _, p := range report.Added {
		fmt.Fprintf(out, "  added:    %s\n", p)
	}
	for _, p := range report.Modified {
		fmt.Fprintf(out, "  modified: %s\n", p)
	}
	for _, p := range report.Removed {
		fmt.Fprintf(out, "  removed:  %s\n", p)
	}
	fmt.Fprintf(out, "\n%d added, %d modified, %d removed, %d unchanged\n",
		len(report.Added), len(report.Modified), len(report.Removed), report.Unchanged)
	return nil
}
