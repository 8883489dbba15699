package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/agentmark/internal/compiler"
	"github.com/roach88/agentmark/internal/config"
	"github.com/roach88/agentmark/internal/emit"
	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/logging"
	"github.com/roach88/agentmark/internal/oracle"
	"github.com/roach88/agentmark/internal/store"
	"github.com/roach88/agentmark/internal/tree"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	OutDir   string // overrides out_dir from config
	Force    bool   // rewrite artifacts the ledger reports unchanged
	NoLedger bool   // do not read or record the build ledger
}

// Artifact status values reported by compile.
const (
	StatusWritten   = "written"
	StatusUnchanged = "unchanged"
)

// ArtifactStatus reports what compile did with one artifact.
type ArtifactStatus struct {
	Path   string `json:"path"`
	Source string `json:"source"`
	Hash   string `json:"hash"`
	Status string `json:"status"`
}

// CompilationResult summarizes a compile run.
type CompilationResult struct {
	Documents int              `json:"documents"`
	Artifacts []ArtifactStatus `json:"artifacts"`
	OutDir    string           `json:"out_dir"`
	BuildID   string           `json:"build_id,omitempty"`
	BuildHash string           `json:"build_hash,omitempty"`
}

// Written counts artifacts written to disk.
func (r *CompilationResult) Written() int {
	n := 0
	for _, a := range r.Artifacts {
		if a.Status == StatusWritten {
			n++
		}
	}
	return n
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <path>...",
		Short: "Compile units to Markdown artifacts",
		Long: `Compile every document unit under the given files or directories.

Each command, agent or skill is checked and written under the output
directory (.claude/commands, .claude/agents, .claude/skills). Skills with
state also get one script per state operation. Builds are recorded in a
SQLite ledger; artifacts whose content hash matches the last build are not
rewritten.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "rewrite unchanged artifacts")
	cmd.Flags().BoolVar(&opts.NoLedger, "no-ledger", false, "skip the build ledger")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, paths []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, log, err := opts.settings()
	if err != nil {
		return outputCompileErrors(formatter, []error{err})
	}
	outDir := cfg.OutDir
	if opts.OutDir != "" {
		outDir = opts.OutDir
	}

	loadResult, loadErrors := LoadUnits(paths, LoadModeCollectAll)
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d unit file(s)", loadResult.FileCount)

	types, err := loadTypes(cfg)
	if err != nil {
		return outputCompileErrors(formatter, []error{err})
	}

	artifacts, sources, errs := compileRoots(loadResult.Roots(), types, cfg, log, formatter)
	if len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}
	if len(artifacts) == 0 {
		return outputCompileErrors(formatter, []error{&LoadError{Code: ErrCodeNoFiles, Message: "no document units found (units need a root)"}})
	}

	var ledger *store.Store
	if !opts.NoLedger {
		ledger, err = store.Open(cfg.Ledger)
		if err != nil {
			return outputCompileErrors(formatter, []error{&LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("open ledger: %v", err)}})
		}
		defer ledger.Close()
	}

	result := &CompilationResult{Documents: len(loadResult.Roots()), OutDir: outDir}
	records := make([]store.ArtifactRecord, 0, len(artifacts))
	for i, a := range artifacts {
		status, err := writeArtifact(ctx, ledger, outDir, a, opts.Force)
		if err != nil {
			return outputCompileErrors(formatter, []error{&LoadError{Code: ErrCodeWriteFailed, Message: err.Error()}})
		}
		src := sources[i]
		hash := ir.ArtifactHash(a.Path, a.Content)
		result.Artifacts = append(result.Artifacts, ArtifactStatus{Path: a.Path, Source: src.Path, Hash: hash, Status: status})
		records = append(records, store.ArtifactRecord{
			Path:        a.Path,
			Source:      filepath.ToSlash(src.Path),
			SourceHash:  ir.SourceHash(src.Source),
			ContentHash: hash,
		})
		log.Debug("artifact",
			zap.String(logging.FieldArtifact, a.Path),
			zap.String(logging.FieldUnit, src.Path),
			zap.String("status", status))
	}

	if ledger != nil {
		build, err := ledger.RecordBuild(ctx, records)
		if err != nil {
			return outputCompileErrors(formatter, []error{&LoadError{Code: ErrCodeWriteFailed, Message: err.Error()}})
		}
		result.BuildID = build.ID
		result.BuildHash = build.Hash
		log.Info("build recorded",
			zap.String(logging.FieldBuild, build.ID),
			zap.Int(logging.FieldCount, len(records)))
	}

	return outputCompileSuccess(formatter, result)
}

// compileRoots compiles every root unit and emits its artifacts. Errors
// are collected across units; the returned sources line up with the
// artifacts.
func compileRoots(roots []*tree.Unit, types oracle.Oracle, cfg *config.Config, log *zap.Logger, formatter *OutputFormatter) ([]emit.Artifact, []*tree.Unit, []error) {
	c := compiler.New(
		compiler.WithOracle(types),
		compiler.WithResolver(compiler.FileResolver{}),
		compiler.WithOptions(cfg.CompilerOptions()),
		compiler.WithLogger(log),
	)

	var (
		artifacts []emit.Artifact
		sources   []*tree.Unit
		errs      []error
		seen      = map[string]string{}
	)
	for _, unit := range roots {
		formatter.VerboseLog("Compiling unit: %s", unit.Path)
		doc, err := c.Compile(unit)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out, err := emit.Artifacts(doc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, a := range out {
			if prev, dup := seen[a.Path]; dup {
				errs = append(errs, errors.WithHint(
					errors.Newf("%s and %s both write %s", prev, unit.Path, a.Path),
					"give each document a unique name"))
				continue
			}
			seen[a.Path] = unit.Path
			artifacts = append(artifacts, a)
			sources = append(sources, unit)
		}
	}
	return artifacts, sources, errs
}

// writeArtifact writes a under outDir unless the ledger has the same
// content hash for its path and the file is still on disk.
func writeArtifact(ctx context.Context, ledger *store.Store, outDir string, a emit.Artifact, force bool) (string, error) {
	target := filepath.Join(outDir, filepath.FromSlash(a.Path))
	if ledger != nil && !force {
		same, err := ledger.Unchanged(ctx, a.Path, ir.ArtifactHash(a.Path, a.Content))
		if err != nil {
			return "", err
		}
		if _, statErr := os.Stat(target); same && statErr == nil {
			return StatusUnchanged, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", errors.Wrapf(err, "create directory for %s", a.Path)
	}
	perm := os.FileMode(0o644)
	if a.Executable {
		perm = 0o755
	}
	if err := os.WriteFile(target, []byte(a.Content), perm); err != nil {
		return "", errors.Wrapf(err, "write %s", a.Path)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(target, perm); err != nil {
		return "", errors.Wrapf(err, "chmod %s", a.Path)
	}
	return StatusWritten, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	written := result.Written()
	fmt.Fprintf(w, "%s Compiled %d document(s): %d artifact(s) written, %d unchanged\n\n",
		markOK, result.Documents, written, len(result.Artifacts)-written)
	for _, a := range result.Artifacts {
		fmt.Fprintf(w, "  %-9s %s\n", a.Status, filepath.ToSlash(filepath.Join(result.OutDir, a.Path)))
	}
	if result.BuildID != "" {
		fmt.Fprintf(w, "\nBuild %s (%s)\n", result.BuildID, shortHash(result.BuildHash))
	}
	return nil
}

// outputCompileErrors outputs every error and fails with exit code 2.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		cliErrors[i] = toCLIError(err)
	}

	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
	} else {
		writeErrors(formatter.Writer, "Compilation failed", cliErrors)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

func shortHash(h string) string {
	const n = 12
	if len(h) > n {
		return h[:n]
	}
	return h
}
