package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/agentmark/internal/compiler"
	"github.com/roach88/agentmark/internal/tree"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation or scenario failure
	ExitCommandError = 2 // Command error (compile error, invalid paths, unreadable config)
)

// Status marks shown before a command's one-line summary.
const (
	markOK   = "\u2713"
	markFail = "\u2717"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string   `json:"code"`              // "E253", "E005", etc.
	Message string   `json:"message"`           // human-readable message
	Files   []string `json:"files,omitempty"`   // units involved
	Hints   []string `json:"hints,omitempty"`   // suggested fixes
	Details any      `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// toCLIError converts any error into the response shape, keeping a
// compile error's code, files and hints.
func toCLIError(err error) CLIError {
	hints := hintLines(err)
	if ce, ok := compiler.AsCompileError(err); ok {
		return CLIError{Code: ce.Code, Message: ce.Error(), Files: ce.Files, Hints: hints}
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return CLIError{Code: loadErr.Code, Message: loadErr.Message, Hints: hints}
	}
	var syntaxErr *tree.SyntaxError
	if errors.As(err, &syntaxErr) {
		return CLIError{Code: ErrCodeLoadFailed, Message: err.Error(), Hints: hints}
	}
	return CLIError{Code: ErrCodeGeneric, Message: err.Error(), Hints: hints}
}

// hintLines returns the user hints attached anywhere in err's chain.
func hintLines(err error) []string {
	flat := errors.FlattenHints(err)
	if flat == "" {
		return nil
	}
	return []string{flat}
}

// writeErrors prints errors in text form, one block each with hints
// indented beneath.
func writeErrors(w io.Writer, header string, errs []CLIError) {
	fmt.Fprintf(w, "%s %s\n\n", markFail, header)
	for _, e := range errs {
		// Compile error messages already carry their code.
		if e.Code == "" || e.Code == ErrCodeGeneric || strings.Contains(e.Message, "["+e.Code+"]") {
			fmt.Fprintf(w, "  %s\n", e.Message)
		} else {
			fmt.Fprintf(w, "  %s: %s\n", e.Code, e.Message)
		}
		for _, h := range e.Hints {
			fmt.Fprintf(w, "    hint: %s\n", h)
		}
		fmt.Fprintln(w)
	}
}
