package compiler

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/oracle"
	"github.com/roach88/agentmark/internal/tree"
)

// Options are the documented configuration points of a compilation.
type Options struct {
	// EmptyCell replaces null table cells. Tables may override it.
	EmptyCell string
	// Separators selects which text leaves sibling pairing skips.
	Separators SeparatorPolicy
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{EmptyCell: "", Separators: SeparatorWhitespace}
}

// Compiler turns component trees into IR documents. A Compiler holds no
// per-compilation state and may be reused.
type Compiler struct {
	oracle   oracle.Oracle
	resolver Resolver
	opts     Options
	log      *zap.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithOracle sets the type oracle. The default knows no types.
func WithOracle(o oracle.Oracle) Option {
	return func(c *Compiler) { c.oracle = o }
}

// WithResolver sets how imported units are loaded. The default reads unit
// files from disk.
func WithResolver(r Resolver) Option {
	return func(c *Compiler) { c.resolver = r }
}

// WithOptions sets the compilation options.
func WithOptions(opts Options) Option {
	return func(c *Compiler) { c.opts = opts }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(c *Compiler) { c.log = log }
}

// New returns a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		oracle:   oracle.Empty,
		resolver: FileResolver{},
		opts:     DefaultOptions(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.opts.Separators == "" {
		c.opts.Separators = SeparatorWhitespace
	}
	return c
}

// Compile compiles unit's root into a validated Document.
//
// Compilation is fail-fast: the first error aborts it and no document is
// returned.
func (c *Compiler) Compile(unit *tree.Unit) (*ir.Document, error) {
	if err := c.opts.Separators.Validate(); err != nil {
		return nil, err
	}
	if unit.Root == nil {
		return nil, errors.WithHint(
			newError(ErrConfiguration, "unit", ir.Pos{File: unit.Path}, "unit has no root component"),
			"library units that only export fragments are imported, not compiled",
		)
	}
	if _, ok := documentKinds[unit.Root.Name]; !ok {
		return nil, newError(ErrInvalidNesting, unit.Root.Name, unit.Root.Pos,
			"root component must be Command, Agent or Skill")
	}

	canonical := *unit
	canonical.Path = filepath.Clean(unit.Path)
	c.log.Debug("compile unit", zap.String("path", canonical.Path))

	node, err := c.dispatch(canonical.Root, newContext(&canonical))
	if err != nil {
		return nil, err
	}
	return node.(*ir.Document), nil
}
