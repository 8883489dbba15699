package compiler

import (
	"go.uber.org/zap"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/tree"
)

// transformFunc compiles one component. A nil node with a nil error means
// the component emits nothing.
type transformFunc func(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error)

// transforms maps component names to their transform. Built once in init
// because several transforms dispatch recursively.
var transforms map[string]transformFunc

func init() {
	transforms = map[string]transformFunc{
		// documents
		"Command": transformDocument,
		"Agent":   transformDocument,
		"Skill":   transformDocument,
		"State":   transformStrayState,

		// blocks
		"Heading":          transformHeading,
		"Paragraph":        transformParagraph,
		"List":             transformList,
		"ListItem":         transformListItem,
		"Item":             transformListItem,
		"Checklist":        transformChecklist,
		"Table":            transformTable,
		"CodeBlock":        transformCodeBlock,
		"Blockquote":       transformBlockquote,
		"ThematicBreak":    transformThematicBreak,
		"XmlBlock":         transformXMLBlock,
		"Raw":              transformRaw,
		"Markdown":         transformRaw,
		"Step":             transformStep,
		"ExecutionContext": transformExecutionContext,
		"SuccessCriteria":  transformSuccessCriteria,
		"OfferNext":        transformOfferNext,
		"Slot":             transformSlot,

		// inline
		"Bold":       transformBold,
		"Italic":     transformItalic,
		"InlineCode": transformInlineCode,
		"Link":       transformLink,
		"LineBreak":  transformLineBreak,

		// control flow
		"If":              transformIf,
		"Else":            transformElse,
		"Loop":            transformLoop,
		"Break":           transformBreak,
		"Return":          transformReturn,
		"OnStatus":        transformOnStatus,
		"OnStatusDefault": transformOnStatusDefault,
		"AskUser":         transformAskUser,

		// contracts
		"Role":               transformRole,
		"UpstreamInput":      transformUpstreamInput,
		"DownstreamConsumer": transformDownstreamConsumer,
		"Methodology":        transformMethodology,
		"StatusCatalogue":    transformStatusCatalogue,
		"StatusBranch":       transformStatusBranch,

		// runtime bindings
		"Assign":     transformAssign,
		"SpawnAgent": transformSpawnAgent,
		"Shell":      transformShell,
		"StateCall":  transformStateCall,
	}
	for name := range semanticWrappers {
		transforms[name] = transformSemanticWrapper
	}
}

// dispatch compiles n. Lookup order: static transform table, imports of
// the current unit, then pass-through.
func (c *Compiler) dispatch(n *tree.Node, ctx Context) (ir.Node, error) {
	switch n.Name {
	case tree.TextName:
		return &ir.Text{Span: ir.At(n.Pos), Value: n.Text}, nil
	case tree.ExprName:
		return ctx.exprNode(n.Expr, n.Pos)
	}

	if n.Bind != "" {
		if _, ok := documentKinds[n.Name]; !ok {
			return nil, newError(ErrInvalidNesting, n.Name, n.Pos,
				"only Command, Agent and Skill can bind a render context")
		}
	}

	if fn, ok := transforms[n.Name]; ok {
		return fn(c, n, ctx)
	}

	if ctx.unit != nil {
		if imp, ok := ctx.unit.Import(n.Name); ok {
			return c.resolveImport(n, imp, ctx)
		}
	}

	c.log.Debug("pass through unknown component",
		zap.String("name", n.Name),
		zap.Stringer("pos", n.Pos),
	)
	return c.passthrough(n, ctx)
}

// dispatchChildren compiles children with parent recorded in the context,
// then pairs followers with their leads.
func (c *Compiler) dispatchChildren(parent *tree.Node, ctx Context) ([]ir.Node, error) {
	return c.dispatchNodes(parent.Children, ctx.withParent(parent.Name))
}

func (c *Compiler) dispatchNodes(nodes []*tree.Node, ctx Context) ([]ir.Node, error) {
	out := make([]ir.Node, 0, len(nodes))
	for _, child := range nodes {
		node, err := c.dispatch(child, ctx)
		if err != nil {
			return nil, err
		}
		if node != nil {
			out = append(out, node)
		}
	}
	return pairSiblings(out, c.opts.Separators)
}

// passthrough renders an unknown component as literal markup.
func (c *Compiler) passthrough(n *tree.Node, ctx Context) (ir.Node, error) {
	attrs, err := xmlAttrs(n, ctx, nil)
	if err != nil {
		return nil, err
	}
	children, err := c.dispatchChildren(n, ctx)
	if err != nil {
		return nil, err
	}
	return &ir.Passthrough{Span: ir.At(n.Pos), Name: n.Name, Attrs: attrs, Children: children}, nil
}

// xmlAttrs renders n's attributes, except those in skip, as XML attributes
// in declaration order.
func xmlAttrs(n *tree.Node, ctx Context, skip map[string]bool) ([]ir.XMLAttr, error) {
	var attrs []ir.XMLAttr
	r := readAttrs(n, ctx)
	for _, key := range n.Attrs.Keys() {
		if skip[key] {
			continue
		}
		v, ok := r.value(key)
		if !ok {
			continue
		}
		s, ok := scalarText(v)
		if !ok {
			s = ir.FormatValue(v)
		}
		attrs = append(attrs, ir.XMLAttr{Name: key, Value: s})
	}
	return attrs, r.Err()
}
