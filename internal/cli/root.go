package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codeflat/config"
	"codeflat/internal/logger"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// globalOptions holds the persistent flags and the state loaded from them.
type globalOptions struct {
	cfgFile  string
	rootDir  string
	logLevel string

	cfg *config.Config
	log *logger.ConsoleLogger
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "codeflat",
		Short: "Flatten a source tree into a single text file",
		Long: `codeflat walks a directory tree and concatenates every file into one
text artifact, each file preceded by a header naming its relative path.
Ignored directories are pruned before they are entered.

Example usage:
  codeflat flatten . -o flat.txt              # Flatten current directory
  codeflat flatten src -o - --ignore dist     # Stream to stdout
  codeflat status                             # Compare against the last run`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./codeflat.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.rootDir, "dir", "d", "", "root directory (default is current directory)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	cmd.AddCommand(newFlattenCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (o *globalOptions) load(cmd *cobra.Command) error {
	var err error

	if o.rootDir == "" {
		o.rootDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	if o.cfgFile != "" {
		o.cfg, err = config.Load(o.cfgFile)
	} else {
		o.cfg, err = config.LoadFromDir(o.rootDir)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if o.logLevel != "" {
		o.cfg.Logging.Level = o.logLevel
	}
	o.log = logger.NewConsoleLogger(cmd.ErrOrStderr(), o.cfg.Logging.Level)
	o.log.Debugf("root directory: %s", o.rootDir)

	return nil
}

// configFor returns the config for the tree being processed. With a positional
// root the config is read from that root, so the manifest and the settings
// always come from the same directory. An explicit --config wins.
func (o *globalOptions) configFor(root string, args []string) (*config.Config, error) {
	if o.cfgFile != "" || len(args) == 0 {
		return o.cfg, nil
	}

	cfg, err := config.LoadFromDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

// resolveRoot picks the positional root argument over --dir.
func (o *globalOptions) resolveRoot(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return o.rootDir
}
