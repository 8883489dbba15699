package compiler

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/tree"
)

// Resolver loads the unit stored at a canonical path.
type Resolver interface {
	LoadUnit(path string) (*tree.Unit, error)
}

// FileResolver loads units from the filesystem.
type FileResolver struct{}

// LoadUnit reads and parses the unit file at path.
func (FileResolver) LoadUnit(path string) (*tree.Unit, error) {
	return tree.Load(path)
}

// importCandidates resolves from against the importing unit's directory.
// Only relative paths are accepted. A path without an extension may name a
// unit with any unit extension; the importer's own extension is tried
// first, then the rest in order.
func importCandidates(from, importer string) ([]string, bool) {
	if !strings.HasPrefix(from, "./") && !strings.HasPrefix(from, "../") {
		return nil, false
	}
	p := filepath.Clean(filepath.Join(filepath.Dir(importer), filepath.FromSlash(from)))
	if filepath.Ext(p) != "" {
		return []string{p}, true
	}
	exts := make([]string, 0, len(tree.Extensions))
	if own := filepath.Ext(importer); slices.Contains(tree.Extensions, own) {
		exts = append(exts, own)
	}
	for _, ext := range tree.Extensions {
		if !slices.Contains(exts, ext) {
			exts = append(exts, ext)
		}
	}
	paths := make([]string, len(exts))
	for i, ext := range exts {
		paths[i] = p + ext
	}
	return paths, true
}

// resolveImport compiles the export bound to imp in place of n. The target
// path joins the visited set before recursing, so a unit reached again
// through any chain of imports is reported instead of re-entered.
func (c *Compiler) resolveImport(n *tree.Node, imp tree.Import, ctx Context) (ir.Node, error) {
	importer := ctx.unit.Path
	candidates, ok := importCandidates(imp.From, importer)
	if !ok {
		return nil, errors.WithHint(
			newError(ErrConfiguration, n.Name, imp.Pos, "import %q is not a relative path", imp.From),
			"imports must start with ./ or ../",
		)
	}

	// The first candidate that is being compiled or exists on the resolver
	// is the import target.
	var (
		path string
		unit *tree.Unit
	)
	for _, p := range candidates {
		if ctx.Visited(p) {
			ce := newError(ErrCircularImport, n.Name, n.Pos,
				"circular import: %s imports %s, which is already being compiled", importer, p)
			ce.Files = []string{importer, p}
			return nil, ce
		}

		c.log.Debug("resolve import",
			zap.String("name", imp.Name),
			zap.String("from", importer),
			zap.String("path", p),
		)

		u, err := c.resolver.LoadUnit(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			ce := newError(ErrUnitLoad, n.Name, imp.Pos, "load %s: %v", p, err)
			ce.Files = []string{importer, p}
			return nil, ce
		}
		path, unit = p, u
		break
	}
	if unit == nil {
		path = candidates[0]
		ce := newError(ErrUnitNotFound, n.Name, imp.Pos, "unit %s not found", path)
		ce.Files = []string{importer, path}
		return nil, errors.WithHint(ce, "check the import path; it is resolved relative to the importing unit")
	}

	exp, ok := unit.Export(imp.Export)
	if !ok {
		ce := newError(ErrExportNotFound, n.Name, imp.Pos, "unit %s does not export %q", path, imp.Export)
		ce.Files = []string{importer, path}
		return nil, errors.WithHintf(ce, "add %q under exports in %s", imp.Export, path)
	}

	// The unit may have been loaded under another spelling of the path.
	loaded := *unit
	loaded.Path = path

	inner := ctx.withVisited(path).withUnit(&loaded).withSlot(n.Children, ctx.withParent(n.Name))
	children, err := c.dispatchNodes(exp.Nodes, inner)
	if err != nil {
		return nil, err
	}
	return &ir.Include{Span: ir.At(n.Pos), Source: path, Name: imp.Name, Children: children}, nil
}

// transformSlot compiles the call-site children of the enclosing import in
// the caller's context.
func transformSlot(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	if ctx.slot == nil {
		return nil, newError(ErrInvalidNesting, n.Name, n.Pos, "Slot is only valid inside an imported fragment")
	}
	children, err := c.dispatchNodes(ctx.slot.nodes, ctx.slot.ctx)
	if err != nil {
		return nil, err
	}
	return &ir.Include{Span: ir.At(n.Pos), Name: n.Name, Children: children}, nil
}
