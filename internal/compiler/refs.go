package compiler

import (
	"github.com/roach88/agentmark/internal/ir"
)

// resolveRef checks ref against the scope. A reference into the active
// render-context binding yields the bound value; a reference to a declared
// variable or output stays a reference for the runtime to read.
func (c Context) resolveRef(ref ir.IRRef, node string, pos ir.Pos) (ir.IRValue, error) {
	root, field := ref.Root(), ref.Field()

	if c.binding != "" && root == c.binding {
		if field == "" {
			return c.meta, nil
		}
		v, ok := c.meta.Get(field)
		if !ok {
			return nil, newError(ErrUndeclaredRef, node, pos,
				"render context %q has no field %q", c.binding, field)
		}
		return v, nil
	}

	if c.vars[root] {
		return ref, nil
	}
	if _, ok := c.outputs[root]; ok {
		return ref, nil
	}
	return nil, newError(ErrUndeclaredRef, node, pos,
		"%q is not a declared variable, output or render context", root)
}

// resolveValue resolves every reference inside v.
func (c Context) resolveValue(v ir.IRValue, node string, pos ir.Pos) (ir.IRValue, error) {
	switch val := v.(type) {
	case ir.IRRef:
		return c.resolveRef(val, node, pos)
	case ir.IRArray:
		out := make(ir.IRArray, len(val))
		for i, item := range val {
			r, err := c.resolveValue(item, node, pos)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case ir.IRObject:
		out := make(ir.IRObject, len(val))
		for i, p := range val {
			r, err := c.resolveValue(p.Value, node, pos)
			if err != nil {
				return nil, err
			}
			out[i] = ir.O(p.Key, r)
		}
		return out, nil
	default:
		return v, nil
	}
}

// exprNode compiles an expression leaf. Runtime references become VarRef
// nodes; render-context references become their bound text.
func (c Context) exprNode(ref ir.IRRef, pos ir.Pos) (ir.Node, error) {
	v, err := c.resolveRef(ref, "expression", pos)
	if err != nil {
		return nil, err
	}
	if r, ok := v.(ir.IRRef); ok {
		return &ir.VarRef{Span: ir.At(pos), Name: r.Root(), Field: r.Field()}, nil
	}
	return &ir.Text{Span: ir.At(pos), Value: ir.FormatValue(v)}, nil
}
