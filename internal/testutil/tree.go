package testutil

import (
	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/tree"
)

// N builds a component node. Children may be *tree.Node values or strings,
// which become text leaves.
func N(name string, attrs tree.Attrs, children ...any) *tree.Node {
	n := &tree.Node{Name: name, Attrs: attrs}
	for _, c := range children {
		switch v := c.(type) {
		case *tree.Node:
			n.Children = append(n.Children, v)
		case string:
			n.Children = append(n.Children, Text(v))
		case ir.IRRef:
			n.Children = append(n.Children, Expr(v.Path))
		default:
			panic("testutil.N: unsupported child type")
		}
	}
	return n
}

// A builds an ordered attribute list from key/value pairs. Go strings,
// ints and bools are converted to IR values.
func A(kv ...any) tree.Attrs {
	if len(kv)%2 != 0 {
		panic("testutil.A: odd number of arguments")
	}
	attrs := make(tree.Attrs, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		attrs = append(attrs, tree.Attr{Key: kv[i].(string), Value: V(kv[i+1])})
	}
	return attrs
}

// V converts a Go value to an IR value.
func V(v any) ir.IRValue {
	switch val := v.(type) {
	case nil:
		return ir.IRNull{}
	case ir.IRValue:
		return val
	case string:
		return ir.IRString(val)
	case int:
		return ir.IRInt(val)
	case bool:
		return ir.IRBool(val)
	case []string:
		arr := make(ir.IRArray, len(val))
		for i, s := range val {
			arr[i] = ir.IRString(s)
		}
		return arr
	case []any:
		arr := make(ir.IRArray, len(val))
		for i, item := range val {
			arr[i] = V(item)
		}
		return arr
	default:
		panic("testutil.V: unsupported value type")
	}
}

// Text builds a text leaf.
func Text(s string) *tree.Node {
	return &tree.Node{Name: tree.TextName, Text: s}
}

// Expr builds an expression leaf referencing path.
func Expr(path string) *tree.Node {
	return &tree.Node{Name: tree.ExprName, Expr: ir.IRRef{Path: path}}
}

// Ref builds a reference value.
func Ref(path string) ir.IRRef {
	return ir.IRRef{Path: path}
}

// Unit wraps root in a unit at path, declaring vars as runtime variables.
func Unit(path string, root *tree.Node, vars ...string) *tree.Unit {
	u := &tree.Unit{Path: path, Root: root}
	for _, v := range vars {
		u.Variables = append(u.Variables, tree.VarDecl{Name: v})
	}
	return u
}

// Command builds a Command document named name.
func Command(name string, children ...any) *tree.Node {
	return N("Command", A("name", name), children...)
}
