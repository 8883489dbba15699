package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/agentmark/internal/config"
	"github.com/roach88/agentmark/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config and Log are set before a subcommand runs. Commands built on
	// their own (tests) load them lazily through settings.
	Config *config.Config
	Log    *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the agentmark CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "agentmark",
		Short: "agentmark - compile agent instruction trees to Markdown",
		Long: `A compiler for agent instruction documents.

Units describe commands, agents and skills as typed element trees; agentmark
checks them and emits the Markdown files and state scripts agents read.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			opts.Config = cfg
			opts.Log = logging.New(logging.Options{
				Verbose: opts.Verbose,
				JSON:    cfg.Log.JSON,
				Writer:  cmd.ErrOrStderr(),
			})
			if cfg.File != "" {
				opts.Log.Debug("config loaded", zap.String(logging.FieldPath, cfg.File))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./agentmark.yaml)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// settings returns the loaded config and logger, loading defaults when
// the root command did not run.
func (o *RootOptions) settings() (*config.Config, *zap.Logger, error) {
	if o.Config == nil {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, nil, err
		}
		o.Config = cfg
	}
	if o.Log == nil {
		o.Log = logging.Nop()
	}
	return o.Config, o.Log, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
