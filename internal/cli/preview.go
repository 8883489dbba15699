package cli

import (
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/roach88/agentmark/internal/emit"
)

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	*RootOptions
	Raw   bool   // print Markdown as emitted
	Style string // glamour style: auto, dark, light, notty
	Width int    // word wrap width
}

// PreviewArtifact is one rendered artifact.
type PreviewArtifact struct {
	Path     string `json:"path"`
	Markdown string `json:"markdown"`
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preview <unit>",
		Short: "Render a unit's artifacts in the terminal",
		Long: `Compile one unit and render the Markdown it emits, without writing
anything. State scripts are shown as shell code blocks.

Examples:
  agentmark preview units/deploy.yaml
  agentmark preview units/notes.yaml --raw`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "print Markdown without terminal rendering")
	cmd.Flags().StringVar(&opts.Style, "style", "auto", "render style (auto|dark|light|notty)")
	cmd.Flags().IntVar(&opts.Width, "width", 80, "word wrap width")

	return cmd
}

func runPreview(opts *PreviewOptions, unitPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, log, err := opts.settings()
	if err != nil {
		return outputCompileErrors(formatter, []error{err})
	}
	loadResult, loadErrors := LoadUnits([]string{unitPath}, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}
	roots := loadResult.Roots()
	if len(roots) == 0 {
		return outputCompileErrors(formatter, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("%s has no root document", unitPath)}})
	}
	types, err := loadTypes(cfg)
	if err != nil {
		return outputCompileErrors(formatter, []error{err})
	}
	artifacts, _, errs := compileRoots(roots, types, cfg, log, formatter)
	if len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}

	if formatter.Format == "json" {
		out := make([]PreviewArtifact, len(artifacts))
		for i, a := range artifacts {
			out[i] = PreviewArtifact{Path: a.Path, Markdown: previewMarkdown(a)}
		}
		return formatter.Success(out)
	}

	var renderer *glamour.TermRenderer
	if !opts.Raw {
		renderer, err = newRenderer(opts.Style, opts.Width)
		if err != nil {
			return WrapExitError(ExitCommandError, "create renderer", err)
		}
	}

	w := formatter.Writer
	for i, a := range artifacts {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "==> %s <==\n", a.Path)
		md := previewMarkdown(a)
		if renderer == nil {
			fmt.Fprint(w, md)
			continue
		}
		rendered, err := renderer.Render(md)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("render %s", a.Path), err)
		}
		fmt.Fprint(w, rendered)
	}
	return nil
}

func newRenderer(style string, width int) (*glamour.TermRenderer, error) {
	var rendererOpts []glamour.TermRendererOption
	if style == "" || style == "auto" {
		rendererOpts = append(rendererOpts, glamour.WithAutoStyle())
	} else {
		rendererOpts = append(rendererOpts, glamour.WithStandardStyle(style))
	}
	if width > 0 {
		rendererOpts = append(rendererOpts, glamour.WithWordWrap(width))
	}
	return glamour.NewTermRenderer(rendererOpts...)
}

// previewMarkdown returns the Markdown shown for an artifact. Scripts are
// wrapped in a shell code block.
func previewMarkdown(a emit.Artifact) string {
	if path.Ext(a.Path) != ".sh" {
		return a.Content
	}
	return "```bash\n" + strings.TrimSuffix(a.Content, "\n") + "\n```\n"
}
