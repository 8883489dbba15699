package compiler

import (
	"slices"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/tree"
)

func transformIf(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	test := r.required("test")
	if r.Err() != nil {
		return nil, r.Err()
	}
	children, err := c.dispatchChildren(n, ctx)
	if err != nil {
		return nil, err
	}
	return &ir.If{Span: ir.At(n.Pos), Test: test, Children: children}, nil
}

// transformElse compiles the alternate branch. Pairing with the preceding
// If happens when the siblings are collected.
func transformElse(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	children, err := c.dispatchChildren(n, ctx)
	if err != nil {
		return nil, err
	}
	return &ir.Else{Span: ir.At(n.Pos), Children: children}, nil
}

func transformLoop(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	if !r.has("max") {
		return nil, newError(ErrRequiredAttr, n.Name, n.Pos, "max is required")
	}
	limit := r.integer("max", 0)
	counter := r.name("counter")
	if r.Err() != nil {
		return nil, r.Err()
	}
	if limit < 1 {
		return nil, newError(ErrInvalidValue, n.Name, n.Pos, "max must be at least 1, got %d", limit)
	}
	children, err := c.dispatchChildren(n, ctx.enterLoop(counter))
	if err != nil {
		return nil, err
	}
	return &ir.Loop{Span: ir.At(n.Pos), Max: limit, Counter: counter, Children: children}, nil
}

func transformBreak(_ *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	if !ctx.InLoop() {
		return nil, newError(ErrBreakOutsideLoop, n.Name, n.Pos, "Break is only valid inside a Loop")
	}
	r := readAttrs(n, ctx)
	msg := r.text("message")
	if r.Err() != nil {
		return nil, r.Err()
	}
	return &ir.Break{Span: ir.At(n.Pos), Message: msg}, nil
}

// transformReturn compiles a terminal status. When the document declares a
// status union, the status must be one of its members.
func transformReturn(_ *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	status := r.required("status")
	msg := r.text("message")
	if r.Err() != nil {
		return nil, r.Err()
	}
	if members := ctx.statusMembers(); len(members) > 0 && !slices.Contains(members, status) {
		return nil, newError(ErrStatusExtra, n.Name, n.Pos,
			"status %q is not a member of %s", status, ctx.doc.statusType)
	}
	return &ir.Return{Span: ir.At(n.Pos), Status: status, Message: msg}, nil
}

// transformOnStatus handles one status of a declared output.
func transformOnStatus(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	output := r.name("output")
	status := r.required("status")
	if r.Err() != nil {
		return nil, r.Err()
	}
	if err := requireOutput(n, ctx, output, true); err != nil {
		return nil, err
	}
	children, err := c.dispatchChildren(n, ctx)
	if err != nil {
		return nil, err
	}
	return &ir.OnStatus{Span: ir.At(n.Pos), Output: output, Status: status, Children: children}, nil
}

func transformOnStatusDefault(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	output := r.name("output")
	if r.Err() != nil {
		return nil, r.Err()
	}
	if err := requireOutput(n, ctx, output, false); err != nil {
		return nil, err
	}
	children, err := c.dispatchChildren(n, ctx)
	if err != nil {
		return nil, err
	}
	return &ir.OnStatusDefault{Span: ir.At(n.Pos), Output: output, Children: children}, nil
}

// requireOutput checks that name is a declared output.
func requireOutput(n *tree.Node, ctx Context, name string, required bool) error {
	if name == "" {
		if required {
			return newError(ErrRequiredAttr, n.Name, n.Pos, "output is required")
		}
		return nil
	}
	if _, ok := ctx.Output(name); !ok {
		return newError(ErrUndeclaredRef, n.Name, n.Pos, "output %q is not declared", name)
	}
	return nil
}

// requireVariable checks that name is a declared variable.
func requireVariable(n *tree.Node, ctx Context, key, name string) error {
	if name == "" {
		return nil
	}
	if !ctx.Declared(name) {
		return newError(ErrUndeclaredRef, n.Name, n.Pos, "%s %q is not a declared variable", key, name)
	}
	return nil
}

// transformAskUser compiles a question to the operator. Options are strings
// or {label, description} objects.
func transformAskUser(_ *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	ask := &ir.AskUser{
		Span:        ir.At(n.Pos),
		Question:    r.required("question"),
		Header:      r.text("header"),
		MultiSelect: r.boolean("multiSelect"),
		Output:      r.name("output"),
	}
	options := r.array("options")
	if r.Err() != nil {
		return nil, r.Err()
	}
	if ask.Output == "" {
		return nil, newError(ErrRequiredAttr, n.Name, n.Pos, "output is required")
	}
	if err := requireVariable(n, ctx, "output", ask.Output); err != nil {
		return nil, err
	}

	for i, v := range options {
		if s, ok := scalarText(v); ok {
			ask.Options = append(ask.Options, ir.AskOption{Label: s})
			continue
		}
		obj, ok := v.(ir.IRObject)
		if !ok {
			return nil, newError(ErrInvalidValue, n.Name, n.Pos,
				"options[%d] must be a string or {label, description} object, got %s", i, ir.TypeName(v))
		}
		label, _ := obj.Get("label")
		desc, _ := obj.Get("description")
		opt := ir.AskOption{Label: ir.FormatValue(label), Description: ir.FormatValue(desc)}
		if opt.Label == "" {
			return nil, newError(ErrRequiredAttr, n.Name, n.Pos, "options[%d].label is required", i)
		}
		ask.Options = append(ask.Options, opt)
	}
	return ask, nil
}
