package emit

import (
	"strings"

	"github.com/roach88/agentmark/internal/ir"
)

// renderUpstreamInput renders the input contract. When the document
// declares an input interface, its fields are listed after the prose.
func renderUpstreamInput(n *ir.UpstreamInput) (string, error) {
	body, err := renderBlocks(n.Children)
	if err != nil {
		return "", err
	}
	if len(n.Fields) > 0 {
		lines := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			req := "optional"
			if f.Required {
				req = "required"
			}
			typ := f.Type
			if typ == "" {
				typ = "any"
			}
			lines[i] = "- " + codeSpan(f.Name) + " (" + typ + ", " + req + ")"
		}
		fields := "Input fields"
		if n.InputType != "" {
			fields += " (" + codeSpan(n.InputType) + ")"
		}
		fields += ":\n" + strings.Join(lines, "\n")
		if body != "" {
			body += "\n\n"
		}
		body += fields
	}
	return wrapXML("upstream_input", nil, body), nil
}

// renderStatusCatalogue renders every branch as a second-level heading
// followed by its body, inside one <structured_returns> wrapper.
func renderStatusCatalogue(n *ir.StatusCatalogue) (string, error) {
	body, err := renderBlocks(n.Children)
	if err != nil {
		return "", err
	}
	return wrapXML("structured_returns", nil, body), nil
}

func renderStatusBranch(n *ir.StatusBranch) (string, error) {
	return lead("## "+n.Status, n.Children)
}
