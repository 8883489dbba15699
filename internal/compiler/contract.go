package compiler

import (
	"strings"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/tree"
)

func transformRole(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	children, err := c.withText(n, ctx, readAttrs(n, ctx))
	if err != nil {
		return nil, err
	}
	return &ir.Role{Span: ir.At(n.Pos), Children: children}, nil
}

// transformUpstreamInput documents the unit's input. When the document
// declares an input interface, its fields are attached for the emitter.
func transformUpstreamInput(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	children, err := c.withText(n, ctx, readAttrs(n, ctx))
	if err != nil {
		return nil, err
	}
	node := &ir.UpstreamInput{Span: ir.At(n.Pos), Children: children}
	if ctx.doc != nil {
		node.InputType = ctx.doc.inputType
		node.Fields = ctx.doc.inputFields
	}
	return node, nil
}

func transformDownstreamConsumer(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	children, err := c.withText(n, ctx, readAttrs(n, ctx))
	if err != nil {
		return nil, err
	}
	return &ir.DownstreamConsumer{Span: ir.At(n.Pos), Children: children}, nil
}

func transformMethodology(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	children, err := c.withText(n, ctx, readAttrs(n, ctx))
	if err != nil {
		return nil, err
	}
	return &ir.Methodology{Span: ir.At(n.Pos), Children: children}, nil
}

func transformStatusCatalogue(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	children, err := c.dispatchChildren(n, ctx)
	if err != nil {
		return nil, err
	}
	cat := &ir.StatusCatalogue{Span: ir.At(n.Pos), Children: children}
	if len(cat.Branches()) == 0 {
		return nil, newError(ErrEmptyCatalogue, n.Name, n.Pos, "StatusCatalogue needs at least one StatusBranch")
	}
	return cat, nil
}

// transformStatusBranch compiles one documented outcome. It must be a
// direct child of a StatusCatalogue; imported fragments are transparent.
func transformStatusBranch(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	if ctx.Parent() != "StatusCatalogue" {
		return nil, newError(ErrBranchOutsideCatalogue, n.Name, n.Pos,
			"StatusBranch must be a direct child of StatusCatalogue, found inside %s", parentLabel(ctx))
	}
	r := readAttrs(n, ctx)
	status := r.required("status")
	if r.Err() != nil {
		return nil, r.Err()
	}
	children, err := c.withText(n, ctx, r)
	if err != nil {
		return nil, err
	}
	return &ir.StatusBranch{Span: ir.At(n.Pos), Status: status, Children: children}, nil
}

func parentLabel(ctx Context) string {
	if ctx.Parent() == "" {
		return "the unit root"
	}
	return ctx.Parent()
}

// componentName maps an IR kind back to the component that produces it:
// "upstream_input" becomes "UpstreamInput".
func componentName(k ir.Kind) string {
	parts := strings.Split(string(k), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}
