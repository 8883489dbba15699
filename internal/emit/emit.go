package emit

import (
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/agentmark/internal/ir"
)

// Artifact is one emitted file.
type Artifact struct {
	Path       string
	Content    string
	Executable bool
}

// Emit renders a document to Markdown.
func Emit(doc *ir.Document) (string, error) {
	if doc == nil {
		return "", errors.New("emit: document is nil")
	}
	front, err := FrontMatter(doc.FrontMatter)
	if err != nil {
		return "", errors.Wrapf(err, "emit %s", doc.Name)
	}
	body, err := renderBlocks(doc.Children)
	if err != nil {
		return "", errors.Wrapf(err, "emit %s", doc.Name)
	}
	var b strings.Builder
	b.WriteString(front)
	if body != "" {
		b.WriteString(body)
		b.WriteByte('\n')
	}
	return norm.NFC.String(b.String()), nil
}

// Artifacts returns every file a document produces: the Markdown artifact
// and, for skills with state, one script per operation.
func Artifacts(doc *ir.Document) ([]Artifact, error) {
	if doc != nil && doc.DocKind == ir.DocSkill {
		return EmitSkill(doc)
	}
	content, err := Emit(doc)
	if err != nil {
		return nil, err
	}
	return []Artifact{{Path: doc.ArtifactPath(), Content: content}}, nil
}

// renderBlocks renders a sequence of nodes as blocks separated by blank
// lines.
func renderBlocks(nodes []ir.Node) (string, error) {
	parts, err := renderParts(nodes)
	if err != nil {
		return "", err
	}
	return strings.Join(parts, "\n\n"), nil
}

// renderParts renders each block of nodes. Adjacent inline nodes are
// grouped into one paragraph; groups that render empty are dropped.
func renderParts(nodes []ir.Node) ([]string, error) {
	var parts []string
	var inline []ir.Node

	flush := func() error {
		if len(inline) == 0 {
			return nil
		}
		text, err := renderInline(inline)
		inline = inline[:0]
		if err != nil {
			return err
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
		return nil
	}

	for _, n := range flatten(nodes) {
		if isInline(n) {
			inline = append(inline, n)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		text, err := renderBlock(n)
		if err != nil {
			return nil, err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return parts, nil
}

// flatten replaces Include nodes with their children.
func flatten(nodes []ir.Node) []ir.Node {
	out := make([]ir.Node, 0, len(nodes))
	for _, n := range nodes {
		if inc, ok := n.(*ir.Include); ok {
			out = append(out, flatten(inc.Children)...)
			continue
		}
		out = append(out, n)
	}
	return out
}

func isInline(n ir.Node) bool {
	switch n.(type) {
	case *ir.Text, *ir.Bold, *ir.Italic, *ir.InlineCode, *ir.Link, *ir.LineBreak, *ir.VarRef:
		return true
	default:
		return false
	}
}

// renderBlock renders one block-level node.
func renderBlock(n ir.Node) (string, error) {
	switch v := n.(type) {
	case *ir.Heading:
		return renderHeading(v)
	case *ir.Paragraph:
		text, err := renderInline(v.Children)
		return strings.TrimSpace(text), err
	case *ir.List:
		return renderList(v)
	case *ir.ListItem:
		return renderList(&ir.List{Items: []*ir.ListItem{v}})
	case *ir.Checklist:
		return renderChecklist(v.Items)
	case *ir.Table:
		return renderTable(v), nil
	case *ir.CodeBlock:
		return codeFence(v.Language, v.Content), nil
	case *ir.Blockquote:
		return renderBlockquote(v)
	case *ir.ThematicBreak:
		return "---", nil
	case *ir.XMLBlock:
		return renderXMLBlock(v.Tag, v.Attrs, v.Children)
	case *ir.Raw:
		return strings.TrimRight(v.Content, "\n"), nil
	case *ir.Step:
		return renderStep(v)
	case *ir.ExecutionContext:
		return renderExecutionContext(v)
	case *ir.SuccessCriteria:
		return renderSuccessCriteria(v)
	case *ir.OfferNext:
		return renderOfferNext(v)
	case *ir.Passthrough:
		return renderPassthrough(v)

	case *ir.If:
		return renderIf(v)
	case *ir.Else:
		return renderElse(v)
	case *ir.Loop:
		return renderLoop(v)
	case *ir.Break:
		return renderBreak(v), nil
	case *ir.Return:
		return renderReturn(v), nil
	case *ir.OnStatus:
		return renderOnStatus(v)
	case *ir.OnStatusDefault:
		return renderOnStatusDefault(v)
	case *ir.AskUser:
		return renderAskUser(v), nil

	case *ir.Role:
		return renderXMLBlock("role", nil, v.Children)
	case *ir.UpstreamInput:
		return renderUpstreamInput(v)
	case *ir.DownstreamConsumer:
		return renderXMLBlock("downstream_consumer", nil, v.Children)
	case *ir.Methodology:
		return renderXMLBlock("methodology", nil, v.Children)
	case *ir.StatusCatalogue:
		return renderStatusCatalogue(v)
	case *ir.StatusBranch:
		return renderStatusBranch(v)

	case *ir.Assign:
		return renderAssign(v)
	case *ir.Shell:
		return renderShell(v)
	case *ir.StateCall:
		return renderStateCall(v)
	case *ir.SpawnAgent:
		return renderSpawnAgent(v)

	case nil:
		return "", errors.New("emit: nil node")
	default:
		return "", errors.Newf("emit: unsupported node %T at %s", n, n.Position())
	}
}

// indent prefixes every non-empty line of s.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// lead renders a bold-lead prose block: the lead line, then the body after
// a blank line.
func lead(line string, body []ir.Node) (string, error) {
	text, err := renderBlocks(body)
	if err != nil {
		return "", err
	}
	if text == "" {
		return line, nil
	}
	return line + "\n\n" + text, nil
}
