// Package oracle answers type questions about a component tree: generic
// arguments at an invocation, the flattened shape of an interface type and
// the members of a literal-union type.
//
// The compiler depends on the Oracle interface only. CUE reads type
// declarations from .cue files; Static serves fixed answers in tests.
package oracle

import (
	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/tree"
)

// Oracle resolves type information. Implementations are pure queries.
type Oracle interface {
	// GenericArgs returns the type arguments written at the invocation.
	GenericArgs(n *tree.Node) []string
	// InterfaceShape returns the fields of an interface type, or nil when
	// name is not a known interface.
	InterfaceShape(name string) []ir.Field
	// LiteralUnionMembers returns the members of a literal-union type in
	// declaration order, or nil when name is not a known union.
	LiteralUnionMembers(name string) []string
}

// Static is an Oracle backed by fixed tables.
type Static struct {
	Shapes map[string][]ir.Field
	Unions map[string][]string
}

// GenericArgs returns the node's written type arguments.
func (s *Static) GenericArgs(n *tree.Node) []string {
	if n == nil {
		return nil
	}
	return n.TypeArgs
}

// InterfaceShape returns the configured shape for name.
func (s *Static) InterfaceShape(name string) []ir.Field {
	return s.Shapes[name]
}

// LiteralUnionMembers returns the configured members for name.
func (s *Static) LiteralUnionMembers(name string) []string {
	return s.Unions[name]
}

// Empty is an Oracle that knows no types.
var Empty Oracle = &Static{}
