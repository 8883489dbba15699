package compiler

import (
	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/naming"
	"github.com/roach88/agentmark/internal/tree"
)

var documentKinds = map[string]ir.DocumentKind{
	"Command": ir.DocCommand,
	"Agent":   ir.DocAgent,
	"Skill":   ir.DocSkill,
}

// transformDocument compiles Command, Agent and Skill. Every attribute
// becomes a front-matter entry, keyed in kebab-case, in declaration order.
func transformDocument(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	if ctx.doc != nil {
		return nil, newError(ErrInvalidNesting, n.Name, n.Pos,
			"%s cannot appear inside document %q", n.Name, ctx.doc.name)
	}
	kind := documentKinds[n.Name]

	r := readAttrs(n, ctx)
	name := r.required("name")
	if r.Err() != nil {
		return nil, r.Err()
	}

	frontMatter := make(ir.IRObject, 0, len(n.Attrs))
	for _, key := range n.Attrs.Keys() {
		v, ok := r.value(key)
		if !ok {
			continue
		}
		if err := requireStatic(v, key, n); err != nil {
			return nil, err
		}
		frontMatter = append(frontMatter, ir.O(naming.Kebab(key), v))
	}
	if r.Err() != nil {
		return nil, r.Err()
	}

	info, err := c.documentTypes(n, name)
	if err != nil {
		return nil, err
	}
	ctx = ctx.withDocument(info)

	if n.Bind != "" {
		ctx = ctx.withBinding(n.Bind, bindingMeta(n, kind, name))
	}

	var state *ir.StateSpec
	body := n.Children
	if kind == ir.DocSkill {
		state, body, err = extractState(n, name, ctx)
		if err != nil {
			return nil, err
		}
	}

	children, err := c.dispatchNodes(body, ctx.withParent(n.Name))
	if err != nil {
		return nil, err
	}

	source := n.Pos.File
	if ctx.unit != nil {
		source = ctx.unit.Path
	}

	doc := &ir.Document{
		Span:          ir.At(n.Pos),
		DocKind:       kind,
		Name:          name,
		FrontMatter:   frontMatter,
		Children:      children,
		StatusType:    info.statusType,
		StatusMembers: info.statusMembers,
		InputType:     info.inputType,
		InputFields:   info.inputFields,
		State:         state,
		Source:        source,
	}
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// bindingMeta is the metadata a render-context binding exposes: the
// document's name, kind and output path, then every static attribute under
// its source spelling.
func bindingMeta(n *tree.Node, kind ir.DocumentKind, name string) ir.IRObject {
	meta := ir.IRObject{
		ir.O("name", ir.IRString(name)),
		ir.O("kind", ir.IRString(string(kind))),
		ir.O("outputPath", ir.IRString(ir.ArtifactPath(kind, name))),
	}
	for _, attr := range n.Attrs {
		if _, ok := meta.Get(attr.Key); ok || ir.IsNull(attr.Value) {
			continue
		}
		if _, isRef := attr.Value.(ir.IRRef); isRef {
			continue
		}
		meta = append(meta, ir.O(attr.Key, attr.Value))
	}
	return meta
}

// requireStatic rejects front-matter values that still reference runtime
// variables after render-context substitution.
func requireStatic(v ir.IRValue, key string, n *tree.Node) error {
	switch val := v.(type) {
	case ir.IRRef:
		return newError(ErrInvalidValue, n.Name, n.Pos,
			"front matter %s cannot reference runtime variable %q", key, val.Path)
	case ir.IRArray:
		for _, item := range val {
			if err := requireStatic(item, key, n); err != nil {
				return err
			}
		}
	case ir.IRObject:
		for _, p := range val {
			if err := requireStatic(p.Value, key, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// documentTypes resolves the document's generic arguments: a literal union
// is the status type, an interface is the input type.
func (c *Compiler) documentTypes(n *tree.Node, name string) (*docInfo, error) {
	info := &docInfo{name: name}
	for _, arg := range c.oracle.GenericArgs(n) {
		if members := c.oracle.LiteralUnionMembers(arg); members != nil {
			if info.statusType != "" {
				return nil, newError(ErrInvalidValue, n.Name, n.Pos,
					"status type declared twice: %s and %s", info.statusType, arg)
			}
			info.statusType = arg
			info.statusMembers = members
			continue
		}
		if shape := c.oracle.InterfaceShape(arg); shape != nil {
			if info.inputType != "" {
				return nil, newError(ErrInvalidValue, n.Name, n.Pos,
					"input type declared twice: %s and %s", info.inputType, arg)
			}
			info.inputType = arg
			info.inputFields = shape
			continue
		}
		return nil, newError(ErrShapeMismatch, n.Name, n.Pos,
			"type %q is neither a literal union nor an interface", arg)
	}
	return info, nil
}

func transformStrayState(_ *Compiler, n *tree.Node, _ Context) (ir.Node, error) {
	return nil, newError(ErrInvalidNesting, n.Name, n.Pos, "State is only valid directly inside Skill")
}
