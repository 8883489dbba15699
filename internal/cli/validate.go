package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/agentmark/internal/compiler"
	"github.com/roach88/agentmark/internal/logging"
	"github.com/roach88/agentmark/internal/tree"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                   `json:"valid"`
	Units  int                    `json:"units"`
	Cycles []compiler.ImportCycle `json:"cycles,omitempty"`
	Errors []CLIError             `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Check units without writing artifacts",
		Long: `Check every unit under the given files or directories.

Runs the full compile and emit pipeline without writing anything, and
analyzes the import graph of all units at once so every import cycle is
reported, not only the first one compile walks into.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, log, err := opts.settings()
	if err != nil {
		return outputValidateError(formatter, toCLIError(err))
	}

	loadResult, loadErrors := LoadUnits(paths, LoadModeCollectAll)
	if loadResult == nil {
		return outputValidateError(formatter, toCLIError(loadErrors[0]))
	}
	formatter.VerboseLog("Found %d unit file(s)", loadResult.FileCount)

	result := ValidationResult{Units: len(loadResult.Units)}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, toCLIError(err))
	}

	result.Cycles = compiler.AnalyzeImports(loadResult.Units)
	for _, cycle := range result.Cycles {
		log.Debug("import cycle", zap.Strings(logging.FieldPath, cycle.Path))
		result.Errors = append(result.Errors, CLIError{
			Code:    compiler.ErrCircularImport,
			Message: cycle.Message,
			Files:   cycle.Path,
		})
	}

	types, err := loadTypes(cfg)
	if err != nil {
		return outputValidateError(formatter, toCLIError(err))
	}

	// Cycles are already reported for every unit involved; compiling their
	// roots would only repeat the first one.
	inCycle := map[string]bool{}
	for _, cycle := range result.Cycles {
		for _, p := range cycle.Path {
			inCycle[p] = true
		}
	}
	var roots []*tree.Unit
	for _, u := range loadResult.Roots() {
		if !inCycle[filepath.Clean(u.Path)] {
			roots = append(roots, u)
		}
	}
	_, _, errs := compileRoots(roots, types, cfg, log, formatter)
	for _, err := range errs {
		result.Errors = append(result.Errors, toCLIError(err))
	}

	result.Valid = len(result.Errors) == 0
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%s All %d unit(s) valid\n", markOK, result.Units)
	return nil
}

// outputValidateError outputs an error that stopped validation before any
// unit was checked.
func outputValidateError(formatter *OutputFormatter, e CLIError) error {
	_ = formatter.Error(e.Code, e.Message, nil)
	// Validation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", e.Code, e.Message))
}

// outputValidationErrors outputs every problem found.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &result.Errors[0],
		}); err != nil {
			return err
		}
	} else {
		writeErrors(formatter.Writer, "Validation failed", result.Errors)
		if len(result.Cycles) > 0 {
			fmt.Fprintln(formatter.Writer, "Import cycles:")
			for _, c := range result.Cycles {
				fmt.Fprintf(formatter.Writer, "  %s\n", strings.Join(c.Path, " -> "))
			}
			fmt.Fprintln(formatter.Writer)
		}
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
