package emit

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/agentmark/internal/ir"
)

// renderInline concatenates inline nodes. Block nodes are not allowed.
func renderInline(nodes []ir.Node) (string, error) {
	var b strings.Builder
	for _, n := range flatten(nodes) {
		switch v := n.(type) {
		case *ir.Text:
			b.WriteString(v.Value)
		case *ir.Bold:
			inner, err := renderInline(v.Children)
			if err != nil {
				return "", err
			}
			b.WriteString("**" + inner + "**")
		case *ir.Italic:
			inner, err := renderInline(v.Children)
			if err != nil {
				return "", err
			}
			b.WriteString("*" + inner + "*")
		case *ir.InlineCode:
			b.WriteString(codeSpan(v.Value))
		case *ir.Link:
			inner, err := renderInline(v.Children)
			if err != nil {
				return "", err
			}
			if inner == "" {
				inner = v.URL
			}
			b.WriteString("[" + inner + "](" + v.URL + ")")
		case *ir.LineBreak:
			b.WriteString("  \n")
		case *ir.VarRef:
			b.WriteString(varRef(v))
		default:
			return "", errors.Newf("emit: %T is not inline content (at %s)", n, n.Position())
		}
	}
	return b.String(), nil
}

func varRef(v *ir.VarRef) string {
	if v.Field == "" {
		return "$" + v.Name
	}
	return "$" + v.Name + "." + v.Field
}

// codeSpan wraps s in enough backticks that none inside close it early.
func codeSpan(s string) string {
	ticks := strings.Repeat("`", longestRun(s, '`')+1)
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return ticks + " " + s + " " + ticks
	}
	return ticks + s + ticks
}

// codeFence renders a fenced code block. The fence is one backtick longer
// than the longest run inside the content, and never shorter than three.
func codeFence(lang, content string) string {
	fence := strings.Repeat("`", max(3, longestRun(content, '`')+1))
	return fence + lang + "\n" + strings.TrimRight(content, "\n") + "\n" + fence
}

func longestRun(s string, r rune) int {
	best, cur := 0, 0
	for _, c := range s {
		if c == r {
			cur++
			best = max(best, cur)
			continue
		}
		cur = 0
	}
	return best
}
