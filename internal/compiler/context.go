package compiler

import (
	"maps"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/tree"
)

// Context is the traversal state threaded through dispatch.
//
// Context is a value. Each narrowing method returns a modified copy and
// clones any map it touches, so a child scope never alters its parent.
type Context struct {
	vars    map[string]bool
	outputs map[string]tree.OutputDecl
	visited map[string]bool

	binding string
	meta    ir.IRObject

	unit      *tree.Unit
	parent    string
	loopDepth int

	doc  *docInfo
	slot *slotFrame
}

// docInfo carries the enclosing document's resolved type information.
type docInfo struct {
	name          string
	statusType    string
	statusMembers []string
	inputType     string
	inputFields   []ir.Field
}

// slotFrame holds the call-site children of an imported fragment, with the
// context they must be compiled in.
type slotFrame struct {
	nodes []*tree.Node
	ctx   Context
}

// newContext returns the context for compiling unit as a root.
func newContext(unit *tree.Unit) Context {
	ctx := Context{
		vars:    map[string]bool{},
		outputs: map[string]tree.OutputDecl{},
		visited: map[string]bool{},
	}
	return ctx.withVisited(unit.Path).withUnit(unit)
}

// withParent records the name of the component whose children are being
// compiled.
func (c Context) withParent(name string) Context {
	c.parent = name
	return c
}

// withBinding exposes meta to descendants under the name binding. An inner
// binding shadows an outer one for its subtree.
func (c Context) withBinding(binding string, meta ir.IRObject) Context {
	c.binding = binding
	c.meta = meta
	return c
}

// withVisited marks path as being compiled.
func (c Context) withVisited(path string) Context {
	visited := maps.Clone(c.visited)
	if visited == nil {
		visited = map[string]bool{}
	}
	visited[path] = true
	c.visited = visited
	return c
}

// enterLoop increments the loop depth and, when counter is set, declares it
// as a variable for the loop body.
func (c Context) enterLoop(counter string) Context {
	c.loopDepth++
	if counter != "" {
		c = c.withVariable(counter)
	}
	return c
}

// withUnit switches to unit and adds its declarations to the ones already
// in scope.
func (c Context) withUnit(unit *tree.Unit) Context {
	c.unit = unit
	if len(unit.Variables) > 0 {
		vars := maps.Clone(c.vars)
		if vars == nil {
			vars = map[string]bool{}
		}
		for _, v := range unit.Variables {
			vars[v.Name] = true
		}
		c.vars = vars
	}
	if len(unit.Outputs) > 0 {
		outputs := maps.Clone(c.outputs)
		if outputs == nil {
			outputs = map[string]tree.OutputDecl{}
		}
		for _, o := range unit.Outputs {
			outputs[o.Name] = o
		}
		c.outputs = outputs
	}
	return c
}

func (c Context) withVariable(name string) Context {
	vars := maps.Clone(c.vars)
	if vars == nil {
		vars = map[string]bool{}
	}
	vars[name] = true
	c.vars = vars
	return c
}

func (c Context) withDocument(doc *docInfo) Context {
	c.doc = doc
	return c
}

func (c Context) withSlot(nodes []*tree.Node, caller Context) Context {
	c.slot = &slotFrame{nodes: nodes, ctx: caller}
	return c
}

// Declared reports whether name is a declared variable.
func (c Context) Declared(name string) bool {
	return c.vars[name]
}

// Output returns the declared output called name.
func (c Context) Output(name string) (tree.OutputDecl, bool) {
	o, ok := c.outputs[name]
	return o, ok
}

// Visited reports whether path is on the current import chain.
func (c Context) Visited(path string) bool {
	return c.visited[path]
}

// Binding returns the active render-context binding name.
func (c Context) Binding() string {
	return c.binding
}

// InLoop reports whether compilation is inside a Loop body.
func (c Context) InLoop() bool {
	return c.loopDepth > 0
}

// Parent returns the name of the enclosing component.
func (c Context) Parent() string {
	return c.parent
}

// Unit returns the unit being compiled.
func (c Context) Unit() *tree.Unit {
	return c.unit
}

// statusMembers returns the enclosing document's declared status members.
func (c Context) statusMembers() []string {
	if c.doc == nil {
		return nil
	}
	return c.doc.statusMembers
}
