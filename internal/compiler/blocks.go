package compiler

import (
	"regexp"
	"strings"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/naming"
	"github.com/roach88/agentmark/internal/tree"
)

// semanticWrappers are components that compile to an XML block whose tag
// is the component name in snake_case.
var semanticWrappers = map[string]bool{
	"Objective":          true,
	"Context":            true,
	"Process":            true,
	"Output":             true,
	"Verification":       true,
	"DeviationRules":     true,
	"CommitRules":        true,
	"WaveExecution":      true,
	"CheckpointHandling": true,
	"Constraints":        true,
	"Examples":           true,
	"Philosophy":         true,
}

var xmlNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// hasContent reports whether children holds anything but whitespace text.
func hasContent(children []*tree.Node) bool {
	for _, child := range children {
		if !child.IsWhitespace() {
			return true
		}
	}
	return false
}

// withText prepends the text attribute, when set, to compiled children.
func (c *Compiler) withText(n *tree.Node, ctx Context, r *attrReader) ([]ir.Node, error) {
	text := r.text("text")
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

// textContent concatenates text and expression leaves. Any other child is
// an error.
func textContent(n *tree.Node, ctx Context) (string, error) {
	var b strings.Builder
	for _, child := range n.Children {
		switch child.Name {
		case tree.TextName:
			b.WriteString(child.Text)
		case tree.ExprName:
			v, err := ctx.resolveRef(child.Expr, n.Name, child.Pos)
			if err != nil {
				return "", err
			}
			if ref, ok := v.(ir.IRRef); ok {
				b.WriteString(refText(ref))
			} else {
				b.WriteString(ir.FormatValue(v))
			}
		default:
			return "", newError(ErrInvalidValue, n.Name, child.Pos,
				"%s accepts only text children, got %s", n.Name, child.Name)
		}
	}
	return b.String(), nil
}

// contentOrText reads key, or the text children when key is absent.
// Setting both is an error.
func contentOrText(n *tree.Node, ctx Context, r *attrReader, key string, required bool) (string, error) {
	if r.has(key) {
		if hasContent(n.Children) {
			r.fail(ErrExclusiveAttrs, "%s and children cannot be combined", key)
			return "", r.Err()
		}
		s := r.text(key)
		return s, r.Err()
	}
	if !hasContent(n.Children) {
		if required {
			r.fail(ErrRequiredAttr, "%s or text children is required", key)
		}
		return "", r.Err()
	}
	return textContent(n, ctx)
}

func transformHeading(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	level := r.integer("level", 1)
	if r.Err() == nil && (level < 1 || level > 6) {
		r.fail(ErrInvalidValue, "level must be between 1 and 6, got %d", level)
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	children, err := c.withText(n, ctx, r)
	if err != nil {
		return nil, err
	}
	return &ir.Heading{Span: ir.At(n.Pos), Level: level, Children: children}, nil
}

func transformParagraph(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	children, err := c.withText(n, ctx, readAttrs(n, ctx))
	if err != nil {
		return nil, err
	}
	return &ir.Paragraph{Span: ir.At(n.Pos), Children: children}, nil
}

// transformList compiles a list from either the items attribute or its
// children. Children that are not list items are wrapped in one.
func transformList(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	ordered := r.boolean("ordered")
	start := r.integer("start", 1)
	if r.Err() != nil {
		return nil, r.Err()
	}

	list := &ir.List{Span: ir.At(n.Pos), Ordered: ordered, Start: start}

	switch {
	case r.has("items") && hasContent(n.Children):
		return nil, newError(ErrExclusiveAttrs, n.Name, n.Pos, "items and children cannot be combined")

	case r.has("items"):
		for _, s := range r.textList("items") {
			list.Items = append(list.Items, &ir.ListItem{
				Span:     ir.At(n.Pos),
				Children: []ir.Node{&ir.Text{Span: ir.At(n.Pos), Value: s}},
			})
		}
		if r.Err() != nil {
			return nil, r.Err()
		}

	case hasContent(n.Children):
		children, err := c.dispatchChildren(n, ctx)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if ir.IsWhitespace(child) {
				continue
			}
			item, ok := child.(*ir.ListItem)
			if !ok {
				item = &ir.ListItem{Span: ir.At(child.Position()), Children: []ir.Node{child}}
			}
			list.Items = append(list.Items, item)
		}

	default:
		return nil, newError(ErrRequiredAttr, n.Name, n.Pos, "items or children is required")
	}
	return list, nil
}

func transformListItem(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	children, err := c.withText(n, ctx, readAttrs(n, ctx))
	if err != nil {
		return nil, err
	}
	return &ir.ListItem{Span: ir.At(n.Pos), Children: children}, nil
}

func transformChecklist(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	items, err := c.checklistItems(n, ctx)
	if err != nil {
		return nil, err
	}
	return &ir.Checklist{Span: ir.At(n.Pos), Items: items}, nil
}

// checklistItems reads checkbox items from the items attribute (strings or
// {text, checked} objects) or from Item children with a checked attribute.
func (c *Compiler) checklistItems(n *tree.Node, ctx Context) ([]ir.ChecklistItem, error) {
	r := readAttrs(n, ctx)

	switch {
	case r.has("items") && hasContent(n.Children):
		return nil, newError(ErrExclusiveAttrs, n.Name, n.Pos, "items and children cannot be combined")

	case r.has("items"):
		var items []ir.ChecklistItem
		for i, v := range r.array("items") {
			item, ok := checklistItemValue(v)
			if !ok {
				return nil, newError(ErrInvalidValue, n.Name, n.Pos,
					"items[%d] must be a string or {text, checked} object, got %s", i, ir.TypeName(v))
			}
			item.Children = []ir.Node{&ir.Text{Span: ir.At(n.Pos), Value: item.text}}
			items = append(items, item.ChecklistItem)
		}
		return items, r.Err()

	case hasContent(n.Children):
		var (
			items []ir.ChecklistItem
			run   []*tree.Node
		)
		inner := ctx.withParent(n.Name)
		// Runs of non-Item siblings are paired before each becomes an item.
		flush := func() error {
			nodes, err := c.dispatchNodes(run, inner)
			run = run[:0]
			if err != nil {
				return err
			}
			for _, node := range nodes {
				if ir.IsWhitespace(node) {
					continue
				}
				items = append(items, ir.ChecklistItem{Children: []ir.Node{node}})
			}
			return nil
		}
		for _, child := range n.Children {
			if child.Name != "Item" && child.Name != "ListItem" {
				run = append(run, child)
				continue
			}
			if err := flush(); err != nil {
				return nil, err
			}
			cr := readAttrs(child, inner)
			checked := cr.boolean("checked")
			if cr.Err() != nil {
				return nil, cr.Err()
			}
			children, err := c.withText(child, inner, cr)
			if err != nil {
				return nil, err
			}
			items = append(items, ir.ChecklistItem{Children: children, Checked: checked})
		}
		if err := flush(); err != nil {
			return nil, err
		}
		return items, nil

	default:
		return nil, newError(ErrRequiredAttr, n.Name, n.Pos, "items or children is required")
	}
}

type checklistValue struct {
	ir.ChecklistItem
	text string
}

func checklistItemValue(v ir.IRValue) (checklistValue, bool) {
	if s, ok := scalarText(v); ok {
		return checklistValue{text: s}, true
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return checklistValue{}, false
	}
	var out checklistValue
	textVal, ok := obj.Get("text")
	if !ok {
		return checklistValue{}, false
	}
	if out.text, ok = scalarText(textVal); !ok {
		return checklistValue{}, false
	}
	if checked, ok := obj.Get("checked"); ok {
		b, isBool := checked.(ir.IRBool)
		if !isBool {
			return checklistValue{}, false
		}
		out.Checked = bool(b)
	}
	return out, true
}

// transformTable compiles a pipe table. Null cells are kept as such; the
// emitter substitutes EmptyCell for them.
func transformTable(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	headers := r.textList("headers")
	alignNames := r.textList("align")
	rows := r.array("rows")
	emptyCell, hasEmpty := "", r.has("emptyCell")
	if hasEmpty {
		emptyCell = r.text("emptyCell")
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	if len(headers) == 0 {
		return nil, newError(ErrRequiredAttr, n.Name, n.Pos, "headers is required")
	}
	if len(alignNames) > len(headers) {
		return nil, newError(ErrInvalidValue, n.Name, n.Pos,
			"align has %d entries for %d columns", len(alignNames), len(headers))
	}

	table := &ir.Table{Span: ir.At(n.Pos), Headers: headers, Align: make([]ir.Align, len(headers))}
	if hasEmpty {
		table.EmptyCell = emptyCell
	} else {
		table.EmptyCell = c.opts.EmptyCell
	}
	for i, a := range alignNames {
		switch ir.Align(a) {
		case ir.AlignNone, ir.AlignLeft, ir.AlignCenter, ir.AlignRight:
			table.Align[i] = ir.Align(a)
		default:
			return nil, newError(ErrInvalidValue, n.Name, n.Pos,
				"align[%d] must be left, center or right, got %q", i, a)
		}
	}

	for i, rowVal := range rows {
		row, ok := rowVal.(ir.IRArray)
		if !ok {
			return nil, newError(ErrInvalidValue, n.Name, n.Pos,
				"rows[%d] must be an array, got %s", i, ir.TypeName(rowVal))
		}
		if len(row) != len(headers) {
			return nil, newError(ErrInvalidValue, n.Name, n.Pos,
				"rows[%d] has %d cells, want %d", i, len(row), len(headers))
		}
		cells := make([]ir.Cell, len(row))
		for j, v := range row {
			if ir.IsNull(v) {
				cells[j] = ir.Cell{Null: true}
				continue
			}
			s, ok := scalarText(v)
			if !ok {
				return nil, newError(ErrInvalidValue, n.Name, n.Pos,
					"rows[%d][%d] must be a scalar, got %s", i, j, ir.TypeName(v))
			}
			cells[j] = ir.Cell{Text: s}
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

func transformCodeBlock(_ *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	lang := r.text("language")
	if lang == "" {
		lang = r.text("lang")
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	content, err := contentOrText(n, ctx, r, "content", true)
	if err != nil {
		return nil, err
	}
	return &ir.CodeBlock{Span: ir.At(n.Pos), Language: lang, Content: content}, nil
}

func transformBlockquote(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	children, err := c.withText(n, ctx, readAttrs(n, ctx))
	if err != nil {
		return nil, err
	}
	return &ir.Blockquote{Span: ir.At(n.Pos), Children: children}, nil
}

func transformThematicBreak(_ *Compiler, n *tree.Node, _ Context) (ir.Node, error) {
	return &ir.ThematicBreak{Span: ir.At(n.Pos)}, nil
}

func transformRaw(_ *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	content, err := contentOrText(n, ctx, readAttrs(n, ctx), "content", false)
	if err != nil {
		return nil, err
	}
	return &ir.Raw{Span: ir.At(n.Pos), Content: content}, nil
}

// transformXMLBlock compiles the generic wrapper. name is the tag; the
// remaining attributes are emitted on the tag.
func transformXMLBlock(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	tag := r.required("name")
	if r.Err() != nil {
		return nil, r.Err()
	}
	return c.xmlBlock(n, ctx, tag, map[string]bool{"name": true})
}

// transformSemanticWrapper compiles named wrappers such as DeviationRules.
// The tag derives from the component name unless tag overrides it.
func transformSemanticWrapper(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	tag := r.text("tag")
	if r.Err() != nil {
		return nil, r.Err()
	}
	if tag == "" {
		tag = naming.Snake(n.Name)
	}
	return c.xmlBlock(n, ctx, tag, map[string]bool{"tag": true})
}

func (c *Compiler) xmlBlock(n *tree.Node, ctx Context, tag string, skip map[string]bool) (ir.Node, error) {
	if !xmlNamePattern.MatchString(tag) {
		return nil, newError(ErrInvalidValue, n.Name, n.Pos, "%q is not a valid XML tag name", tag)
	}
	attrs, err := xmlAttrs(n, ctx, skip)
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		if !xmlNamePattern.MatchString(a.Name) {
			return nil, newError(ErrInvalidValue, n.Name, n.Pos, "%q is not a valid XML attribute name", a.Name)
		}
	}
	children, err := c.dispatchChildren(n, ctx)
	if err != nil {
		return nil, err
	}
	return &ir.XMLBlock{Span: ir.At(n.Pos), Tag: tag, Attrs: attrs, Children: children}, nil
}

func transformStep(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	number := r.text("number")
	name := r.required("name")
	level := r.integer("level", 2)
	if r.Err() == nil && (level < 1 || level > 6) {
		r.fail(ErrInvalidValue, "level must be between 1 and 6, got %d", level)
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	children, err := c.dispatchChildren(n, ctx)
	if err != nil {
		return nil, err
	}
	return &ir.Step{Span: ir.At(n.Pos), Number: number, Name: name, Level: level, Children: children}, nil
}

func transformExecutionContext(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	paths := r.textList("paths")
	prefix := "@"
	if r.has("prefix") {
		prefix = r.text("prefix")
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	if len(paths) == 0 {
		return nil, newError(ErrRequiredAttr, n.Name, n.Pos, "paths is required")
	}
	children, err := c.dispatchChildren(n, ctx)
	if err != nil {
		return nil, err
	}
	return &ir.ExecutionContext{Span: ir.At(n.Pos), Paths: paths, Prefix: prefix, Children: children}, nil
}

func transformSuccessCriteria(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	items, err := c.checklistItems(n, ctx)
	if err != nil {
		return nil, err
	}
	return &ir.SuccessCriteria{Span: ir.At(n.Pos), Items: items}, nil
}

// transformOfferNext reads routes from the routes attribute or Route
// children. A route without a command runs /<name>.
func transformOfferNext(_ *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	var routes []ir.Route

	switch {
	case r.has("routes") && hasContent(n.Children):
		return nil, newError(ErrExclusiveAttrs, n.Name, n.Pos, "routes and children cannot be combined")

	case r.has("routes"):
		for i, v := range r.array("routes") {
			obj, ok := v.(ir.IRObject)
			if !ok {
				return nil, newError(ErrInvalidValue, n.Name, n.Pos,
					"routes[%d] must be an object, got %s", i, ir.TypeName(v))
			}
			route, err := routeFromObject(obj, n, i)
			if err != nil {
				return nil, err
			}
			routes = append(routes, route)
		}
		if r.Err() != nil {
			return nil, r.Err()
		}

	default:
		for _, child := range n.Children {
			if child.IsWhitespace() {
				continue
			}
			if child.Name != "Route" {
				return nil, newError(ErrInvalidNesting, child.Name, child.Pos, "OfferNext accepts only Route children")
			}
			cr := readAttrs(child, ctx)
			route := ir.Route{
				Name:        cr.required("name"),
				Description: cr.text("description"),
				Command:     cr.text("command"),
			}
			if cr.Err() != nil {
				return nil, cr.Err()
			}
			routes = append(routes, route)
		}
	}

	if len(routes) == 0 {
		return nil, newError(ErrRequiredAttr, n.Name, n.Pos, "at least one route is required")
	}
	for i := range routes {
		if routes[i].Command == "" {
			routes[i].Command = "/" + routes[i].Name
		}
	}
	return &ir.OfferNext{Span: ir.At(n.Pos), Routes: routes}, nil
}

func routeFromObject(obj ir.IRObject, n *tree.Node, i int) (ir.Route, error) {
	field := func(key string) (string, error) {
		v, ok := obj.Get(key)
		if !ok || ir.IsNull(v) {
			return "", nil
		}
		s, ok := scalarText(v)
		if !ok {
			return "", newError(ErrInvalidValue, n.Name, n.Pos,
				"routes[%d].%s must be a string, got %s", i, key, ir.TypeName(v))
		}
		return s, nil
	}
	var route ir.Route
	var err error
	if route.Name, err = field("name"); err != nil {
		return route, err
	}
	if route.Name == "" {
		return route, newError(ErrRequiredAttr, n.Name, n.Pos, "routes[%d].name is required", i)
	}
	if route.Description, err = field("description"); err != nil {
		return route, err
	}
	if route.Command, err = field("command"); err != nil {
		return route, err
	}
	return route, nil
}

// ---- inline ----

func transformBold(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	children, err := c.withText(n, ctx, readAttrs(n, ctx))
	if err != nil {
		return nil, err
	}
	return &ir.Bold{Span: ir.At(n.Pos), Children: children}, nil
}

func transformItalic(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	children, err := c.withText(n, ctx, readAttrs(n, ctx))
	if err != nil {
		return nil, err
	}
	return &ir.Italic{Span: ir.At(n.Pos), Children: children}, nil
}

func transformInlineCode(_ *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	value, err := contentOrText(n, ctx, readAttrs(n, ctx), "value", true)
	if err != nil {
		return nil, err
	}
	return &ir.InlineCode{Span: ir.At(n.Pos), Value: value}, nil
}

func transformLink(c *Compiler, n *tree.Node, ctx Context) (ir.Node, error) {
	r := readAttrs(n, ctx)
	url := r.required("url")
	if r.Err() != nil {
		return nil, r.Err()
	}
	children, err := c.withText(n, ctx, r)
	if err != nil {
		return nil, err
	}
	return &ir.Link{Span: ir.At(n.Pos), URL: url, Children: children}, nil
}

func transformLineBreak(_ *Compiler, n *tree.Node, _ Context) (ir.Node, error) {
	return &ir.LineBreak{Span: ir.At(n.Pos)}, nil
}
