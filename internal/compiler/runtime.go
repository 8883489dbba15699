package compiler

import (
	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/tree"
)

var assignSources = []string{
	string(ir.AssignBash),
	string(ir.AssignValue),
	string(ir.AssignFile),
	string(ir.AssignEnv),
}

// transformAssign compiles a write to a runtime variable. Exactly one
// source attribute is allowed.
func transformAssign(_ *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	name := r.name("var")
	source := r.exclusive(assignSources...)
	comment := r.text("comment")
	if r.Err() != nil {
		return nil, r.Err()
	}
	if name == "" {
		return nil, newError(ErrRequiredAttr, n.Name, n.Pos, "var is required")
	}
	if err := requireVariable(n, ctx, "var", name); err != nil {
		return nil, err
	}
	if source == "" {
		return nil, newError(ErrRequiredAttr, n.Name, n.Pos, "one of bash, value, file or env is required")
	}

	v, _ := r.value(source)
	if r.Err() != nil {
		return nil, r.Err()
	}
	assign := &ir.Assign{
		Span:    ir.At(n.Pos),
		Var:     name,
		Source:  ir.AssignSource(source),
		Expr:    valueText(v),
		Comment: comment,
	}
	if ref, ok := v.(ir.IRRef); ok {
		if err := shellRef(n, source, ref); err != nil {
			return nil, err
		}
		assign.Expr = ref.Path
		assign.Ref = true
	}
	return assign, nil
}

// shellRef checks that a reference expanded in shell output names a whole
// variable. Field paths have no shell equivalent.
func shellRef(n *tree.Node, key string, ref ir.IRRef) error {
	if !identPattern.MatchString(ref.Path) {
		return newError(ErrInvalidValue, n.Name, n.Pos,
			"%s: %q is not a variable name; shell can only expand whole variables", key, ref.Path)
	}
	return nil
}

// valueText renders an attribute value for shell output: references as
// $NAME, scalars verbatim, composites as JSON.
func valueText(v ir.IRValue) string {
	if ref, ok := v.(ir.IRRef); ok {
		return refText(ref)
	}
	if s, ok := scalarText(v); ok {
		return s
	}
	return ir.FormatValue(v)
}

// transformSpawnAgent compiles a sub-agent invocation. Prompt mode takes a
// prompt attribute or children; input mode takes a structured input object
// checked against the agent's input interface.
func transformSpawnAgent(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	spawn := &ir.SpawnAgent{
		Span:        ir.At(n.Pos),
		Agent:       r.required("agent"),
		Model:       r.text("model"),
		Description: r.text("description"),
		Output:      r.name("output"),
	}
	typeAttr := r.name("inputType")
	if r.Err() != nil {
		return nil, r.Err()
	}

	promptMode := r.has("prompt") || hasContent(n.Children)
	inputMode := r.has("input")
	switch {
	case promptMode && inputMode:
		return nil, newError(ErrExclusiveAttrs, n.Name, n.Pos, "prompt and input cannot be combined")
	case !promptMode && !inputMode:
		return nil, newError(ErrRequiredAttr, n.Name, n.Pos, "prompt, children or input is required")
	}

	if err := requireOutput(n, ctx, spawn.Output, false); err != nil {
		return nil, err
	}
	if spawn.Output != "" {
		decl, _ := ctx.Output(spawn.Output)
		if decl.Agent != "" && decl.Agent != spawn.Agent {
			return nil, newError(ErrInvalidValue, n.Name, n.Pos,
				"output %q is declared for agent %q, not %q", spawn.Output, decl.Agent, spawn.Agent)
		}
	}

	if promptMode {
		prompt, err := contentPrompt(c, n, ctx, r)
		if err != nil {
			return nil, err
		}
		spawn.Prompt = prompt
		return spawn, nil
	}

	spawn.Input = r.object("input")
	if r.Err() != nil {
		return nil, r.Err()
	}
	typeName, shape, err := c.agentInputType(n, typeAttr)
	if err != nil {
		return nil, err
	}
	spawn.InputType = typeName
	if shape != nil {
		if err := checkShape(n, typeName, shape, spawn.Input); err != nil {
			return nil, err
		}
	}
	return spawn, nil
}

// contentPrompt compiles the prompt attribute followed by any children.
func contentPrompt(c *Compiler, n *tree.Node, ctx Context, r *attrReader) ([]ir.Node, error) {
	text := r.text("prompt")
	if r.Err() != nil {
		return nil, r.Err()
	}
	children, err := c.dispatchChildren(n, ctx)
	if err != nil {
		return nil, err
	}
	if text != "" {
		children = append([]ir.Node{&ir.Text{Span: ir.At(n.Pos), Value: text}}, children...)
	}
	return children, nil
}

// agentInputType finds the input interface from the invocation's generic
// arguments, falling back to the inputType attribute.
func (c *Compiler) agentInputType(n *tree.Node, attr string) (string, []ir.Field, error) {
	for _, arg := range c.oracle.GenericArgs(n) {
		if shape := c.oracle.InterfaceShape(arg); shape != nil {
			return arg, shape, nil
		}
	}
	if attr == "" {
		return "", nil, nil
	}
	shape := c.oracle.InterfaceShape(attr)
	if shape == nil {
		return "", nil, newError(ErrShapeMismatch, n.Name, n.Pos, "input type %q is not a known interface", attr)
	}
	return attr, shape, nil
}

// checkShape validates input against the fields of typeName. References are
// accepted for any field type since their value is only known at runtime.
func checkShape(n *tree.Node, typeName string, shape []ir.Field, input ir.IRObject) error {
	fields := make(map[string]ir.Field, len(shape))
	for _, f := range shape {
		fields[f.Name] = f
		if _, ok := input.Get(f.Name); !ok && f.Required {
			return newError(ErrShapeMismatch, n.Name, n.Pos,
				"input is missing required field %q of %s", f.Name, typeName)
		}
	}
	for _, p := range input {
		f, ok := fields[p.Key]
		if !ok {
			return newError(ErrShapeMismatch, n.Name, n.Pos, "%s has no field %q", typeName, p.Key)
		}
		if !typeMatches(f.Type, p.Value, f.Required) {
			return newError(ErrShapeMismatch, n.Name, n.Pos,
				"field %q of %s must be %s, got %s", p.Key, typeName, f.Type, ir.TypeName(p.Value))
		}
	}
	return nil
}

func typeMatches(want string, v ir.IRValue, required bool) bool {
	got := ir.TypeName(v)
	switch {
	case got == "reference", want == "any", want == "":
		return true
	case got == "null":
		return !required
	case want == "number":
		return got == "int"
	default:
		return got == want
	}
}

// transformShell compiles a command the runtime executes. The command comes
// from the command attribute or from text children.
func transformShell(_ *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	output := r.name("output")
	if r.Err() != nil {
		return nil, r.Err()
	}
	command, err := contentOrText(n, ctx, r, "command", true)
	if err != nil {
		return nil, err
	}
	if err := requireVariable(n, ctx, "output", output); err != nil {
		return nil, err
	}
	return &ir.Shell{Span: ir.At(n.Pos), Command: command, Output: output}, nil
}

// transformStateCall compiles a call to one of a skill's state scripts.
func transformStateCall(_ *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	call := &ir.StateCall{
		Span:   ir.At(n.Pos),
		Skill:  r.required("skill"),
		Op:     r.required("op"),
		Args:   r.object("args"),
		Output: r.name("output"),
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	for _, p := range call.Args {
		if _, ok := scalarText(p.Value); !ok {
			return nil, newError(ErrInvalidValue, n.Name, n.Pos,
				"args.%s must be a scalar or reference, got %s", p.Key, ir.TypeName(p.Value))
		}
		if ref, ok := p.Value.(ir.IRRef); ok {
			if err := shellRef(n, "args."+p.Key, ref); err != nil {
				return nil, err
			}
		}
	}
	if err := requireVariable(n, ctx, "output", call.Output); err != nil {
		return nil, err
	}
	return call, nil
}
