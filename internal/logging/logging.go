// Package logging builds the zap loggers used by the CLI and compiler.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names so log lines from different packages line up.
const (
	FieldUnit     = "unit"
	FieldPath     = "path"
	FieldArtifact = "artifact"
	FieldBuild    = "build"
	FieldCode     = "code"
	FieldCount    = "count"
)

// Options select the logger's output.
type Options struct {
	// Verbose enables debug output. Otherwise only warnings and errors
	// are written.
	Verbose bool
	// JSON writes one JSON object per line instead of console text.
	JSON bool
	// Writer receives log output. Defaults to os.Stderr.
	Writer io.Writer
}

// New builds a logger. Output goes to stderr so it never mixes with
// command results on stdout.
func New(opts Options) *zap.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := zapcore.WarnLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	var enc zapcore.Encoder
	if opts.JSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		// Console output drops timestamps and callers; a compile run is
		// short enough that they are noise.
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		cfg.CallerKey = ""
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
