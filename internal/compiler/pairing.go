package compiler

import (
	"strings"

	"github.com/roach88/agentmark/internal/ir"
)

// SeparatorPolicy selects which text leaves sibling pairing skips between
// a lead and its follower.
type SeparatorPolicy string

const (
	// SeparatorWhitespace skips any whitespace-only text.
	SeparatorWhitespace SeparatorPolicy = "whitespace"
	// SeparatorNewline skips only whitespace-only text containing a line
	// break, so followers on the same line as their lead are unpaired.
	SeparatorNewline SeparatorPolicy = "newline"
)

// Validate reports a configuration error for an unknown policy.
func (p SeparatorPolicy) Validate() error {
	switch p {
	case SeparatorWhitespace, SeparatorNewline:
		return nil
	default:
		return newError(ErrConfiguration, "options", ir.Pos{},
			"separator policy must be %q or %q, got %q", SeparatorWhitespace, SeparatorNewline, p)
	}
}

func (p SeparatorPolicy) isSeparator(n ir.Node) bool {
	if !ir.IsWhitespace(n) {
		return false
	}
	if p == SeparatorNewline {
		return strings.ContainsAny(n.(*ir.Text).Value, "\n\r")
	}
	return true
}

// pairRule attaches a follower node to the lead before it.
type pairRule struct {
	lead     ir.Kind
	follower ir.Kind
	attach   func(lead, follower ir.Node) ir.Node
}

var pairRules = []pairRule{
	{lead: ir.KindIf, follower: ir.KindElse, attach: attachElse},
	{lead: ir.KindOnStatus, follower: ir.KindOnStatusDefault, attach: attachDefault},
}

func attachElse(lead, follower ir.Node) ir.Node {
	cp := *lead.(*ir.If)
	cp.Else = follower.(*ir.Else)
	return &cp
}

func attachDefault(lead, follower ir.Node) ir.Node {
	cp := *lead.(*ir.OnStatus)
	def := *follower.(*ir.OnStatusDefault)
	if def.Output == "" {
		def.Output = cp.Output
	}
	cp.Default = &def
	return &cp
}

// pairSiblings makes one forward pass over siblings. At a lead it skips
// separators and, if the next node is its follower, attaches it and resumes
// after it. A follower reached any other way is an error.
func pairSiblings(nodes []ir.Node, policy SeparatorPolicy) ([]ir.Node, error) {
	out := make([]ir.Node, 0, len(nodes))
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]

		if rule, ok := followerRule(n.Kind()); ok {
			return nil, newError(ErrUnpairedFollower, componentName(n.Kind()), n.Position(),
				"%s must immediately follow %s", componentName(rule.follower), componentName(rule.lead))
		}

		rule, ok := leadRule(n.Kind())
		if !ok {
			out = append(out, n)
			continue
		}

		j := i + 1
		for j < len(nodes) && policy.isSeparator(nodes[j]) {
			j++
		}
		if j < len(nodes) && nodes[j].Kind() == rule.follower {
			out = append(out, rule.attach(n, nodes[j]))
			i = j
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func leadRule(k ir.Kind) (pairRule, bool) {
	for _, r := range pairRules {
		if r.lead == k {
			return r, true
		}
	}
	return pairRule{}, false
}

func followerRule(k ir.Kind) (pairRule, bool) {
	for _, r := range pairRules {
		if r.follower == k {
			return r, true
		}
	}
	return pairRule{}, false
}
