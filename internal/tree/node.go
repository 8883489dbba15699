// Package tree holds the component tree consumed by the compiler and the
// front-end loader that reads it from YAML or JSON unit files.
package tree

import (
	"strings"

	"github.com/roach88/agentmark/internal/ir"
)

// Reserved node names for leaves.
const (
	// TextName is the name of a literal text leaf.
	TextName = "#text"
	// ExprName is the name of an expression leaf carrying a reference.
	ExprName = "#expr"
)

// Attr is one attribute of a component invocation.
type Attr struct {
	Key   string
	Value ir.IRValue
}

// Attrs keeps attributes in declaration order.
type Attrs []Attr

// Get returns the value for key.
func (a Attrs) Get(key string) (ir.IRValue, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (a Attrs) Has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

// Keys returns attribute keys in declaration order.
func (a Attrs) Keys() []string {
	keys := make([]string, len(a))
	for i, attr := range a {
		keys[i] = attr.Key
	}
	return keys
}

// Node is one component invocation. Nodes are not modified after loading.
type Node struct {
	Name     string
	Attrs    Attrs
	Children []*Node

	// Text is the content of a #text leaf.
	Text string
	// Expr is the reference carried by an #expr leaf.
	Expr ir.IRRef

	// TypeArgs are the generic arguments written at the invocation site.
	TypeArgs []string
	// Bind names the render-context parameter this node exposes to its
	// subtree, if any.
	Bind string

	Pos ir.Pos
}

// IsText reports whether n is a text leaf.
func (n *Node) IsText() bool {
	return n != nil && n.Name == TextName
}

// IsWhitespace reports whether n is a text leaf holding only whitespace.
func (n *Node) IsWhitespace() bool {
	return n.IsText() && strings.TrimSpace(n.Text) == ""
}

// Attr returns the attribute value for key.
func (n *Node) Attr(key string) (ir.IRValue, bool) {
	return n.Attrs.Get(key)
}

// Import binds a local component name to an export of another unit.
type Import struct {
	Name string
	From string
	// Export is the exported name in the target unit. Defaults to Name.
	Export string
	Pos    ir.Pos
}

// Export is a named fragment other units may import.
type Export struct {
	Name  string
	Nodes []*Node
	Pos   ir.Pos
}

// VarDecl declares a runtime variable.
type VarDecl struct {
	Name string
	Pos  ir.Pos
}

// OutputDecl declares a named output produced by a spawned agent.
type OutputDecl struct {
	Name  string
	Agent string
	Pos   ir.Pos
}

// Unit is one compilation unit: a root tree plus its declarations.
type Unit struct {
	Path      string
	Imports   []Import
	Exports   []Export
	Variables []VarDecl
	Outputs   []OutputDecl
	// Root is nil for library units that only export fragments.
	Root *Node
	// Source is the raw file content.
	Source []byte
}

// Import returns the import bound to name.
func (u *Unit) Import(name string) (Import, bool) {
	for _, imp := range u.Imports {
		if imp.Name == name {
			return imp, true
		}
	}
	return Import{}, false
}

// Export returns the export called name.
func (u *Unit) Export(name string) (Export, bool) {
	for _, exp := range u.Exports {
		if exp.Name == name {
			return exp, true
		}
	}
	return Export{}, false
}
