package emit

import (
	"strconv"
	"strings"

	"github.com/roach88/agentmark/internal/ir"
)

func renderHeading(h *ir.Heading) (string, error) {
	text, err := renderInline(h.Children)
	if err != nil {
		return "", err
	}
	level := min(max(h.Level, 1), 6)
	return strings.Repeat("#", level) + " " + strings.TrimSpace(text), nil
}

// renderList renders bullet or ordered items. Continuation lines of an item
// are indented to the width of its marker.
func renderList(l *ir.List) (string, error) {
	start := l.Start
	if start == 0 {
		start = 1
	}
	lines := make([]string, 0, len(l.Items))
	for i, item := range l.Items {
		marker := "- "
		if l.Ordered {
			marker = strconv.Itoa(start+i) + ". "
		}
		text, err := renderItem(item.Children)
		if err != nil {
			return "", err
		}
		lines = append(lines, listLine(marker, text))
	}
	return strings.Join(lines, "\n"), nil
}

// renderItem renders a list item body. Unlike renderBlocks, the parts of
// an item stay on consecutive lines so the list remains tight.
func renderItem(nodes []ir.Node) (string, error) {
	parts, err := renderParts(nodes)
	if err != nil {
		return "", err
	}
	return strings.Join(parts, "\n"), nil
}

func listLine(marker, text string) string {
	first, rest, found := strings.Cut(text, "\n")
	line := strings.TrimRight(marker+first, " ")
	if found {
		line += "\n" + indent(rest, strings.Repeat(" ", len(marker)))
	}
	return line
}

func renderChecklist(items []ir.ChecklistItem) (string, error) {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		text, err := renderItem(item.Children)
		if err != nil {
			return "", err
		}
		box := "- [ ] "
		if item.Checked {
			box = "- [x] "
		}
		lines = append(lines, listLine(box, text))
	}
	return strings.Join(lines, "\n"), nil
}

// renderTable renders a pipe table. Rows shorter than the header are
// padded with the empty-cell text; cells never break the grid.
func renderTable(t *ir.Table) string {
	cols := len(t.Headers)
	for _, row := range t.Rows {
		cols = max(cols, len(row))
	}

	cells := make([]string, cols)
	for i := range cells {
		if i < len(t.Headers) {
			cells[i] = escapeCell(t.Headers[i])
		}
	}
	lines := []string{tableRow(cells)}

	for i := range cells {
		align := ir.AlignNone
		if i < len(t.Align) {
			align = t.Align[i]
		}
		cells[i] = alignMarker(align)
	}
	lines = append(lines, tableRow(cells))

	for _, row := range t.Rows {
		for i := range cells {
			switch {
			case i >= len(row), row[i].Null:
				cells[i] = escapeCell(t.EmptyCell)
			default:
				cells[i] = escapeCell(row[i].Text)
			}
		}
		lines = append(lines, tableRow(cells))
	}
	return strings.Join(lines, "\n")
}

func tableRow(cells []string) string {
	return strings.TrimRight("| "+strings.Join(cells, " | ")+" |", " ")
}

func alignMarker(a ir.Align) string {
	switch a {
	case ir.AlignLeft:
		return ":---"
	case ir.AlignCenter:
		return ":---:"
	case ir.AlignRight:
		return "---:"
	default:
		return "---"
	}
}

var cellEscaper = strings.NewReplacer(
	"|", `\|`,
	"\r\n", "<br>",
	"\n", "<br>",
)

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}

func renderBlockquote(q *ir.Blockquote) (string, error) {
	text, err := renderBlocks(q.Children)
	if err != nil {
		return "", err
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n"), nil
}

// renderXMLBlock wraps rendered children in an XML-style tag. The body
// sits on its own lines; an empty body keeps the tags adjacent.
func renderXMLBlock(tag string, attrs []ir.XMLAttr, children []ir.Node) (string, error) {
	body, err := renderBlocks(children)
	if err != nil {
		return "", err
	}
	return wrapXML(tag, attrs, body), nil
}

func wrapXML(tag string, attrs []ir.XMLAttr, body string) string {
	open := "<" + tag + xmlAttrs(attrs) + ">"
	if body == "" {
		return open + "</" + tag + ">"
	}
	return open + "\n" + body + "\n</" + tag + ">"
}

func xmlAttrs(attrs []ir.XMLAttr) string {
	var b strings.Builder
	for _, a := range attrs {
		b.WriteString(" " + a.Name + `="` + attrEscaper.Replace(a.Value) + `"`)
	}
	return b.String()
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

func renderStep(s *ir.Step) (string, error) {
	level := s.Level
	if level == 0 {
		level = 2
	}
	title := s.Name
	if s.Number != "" {
		title = "Step " + s.Number + ": " + s.Name
	}
	heading := strings.Repeat("#", min(level, 6)) + " " + title
	return lead(heading, s.Children)
}

func renderExecutionContext(e *ir.ExecutionContext) (string, error) {
	refs := make([]string, len(e.Paths))
	for i, p := range e.Paths {
		refs[i] = e.Prefix + p
	}
	body := strings.Join(refs, "\n")
	rest, err := renderBlocks(e.Children)
	if err != nil {
		return "", err
	}
	if rest != "" {
		body += "\n\n" + rest
	}
	return wrapXML("execution_context", nil, body), nil
}

func renderSuccessCriteria(s *ir.SuccessCriteria) (string, error) {
	list, err := renderChecklist(s.Items)
	if err != nil {
		return "", err
	}
	return wrapXML("success_criteria", nil, list), nil
}

func renderOfferNext(o *ir.OfferNext) (string, error) {
	lines := make([]string, len(o.Routes))
	for i, r := range o.Routes {
		line := "- **" + r.Name + "**"
		if r.Description != "" {
			line += ": " + r.Description
		}
		if r.Command != "" {
			line += " " + codeSpan(r.Command)
		}
		lines[i] = line
	}
	return wrapXML("offer_next", nil, strings.Join(lines, "\n")), nil
}

// renderPassthrough emits an unrecognized component as literal markup so
// the runtime sees exactly what the author wrote.
func renderPassthrough(p *ir.Passthrough) (string, error) {
	body, err := renderBlocks(p.Children)
	if err != nil {
		return "", err
	}
	if body == "" {
		return "<" + p.Name + xmlAttrs(p.Attrs) + " />", nil
	}
	return wrapXML(p.Name, p.Attrs, body), nil
}
