package emit

import (
	"strconv"
	"strings"

	"github.com/roach88/agentmark/internal/ir"
)

// emphasisEscaper keeps text inside a **...** label on one line and stops
// it from closing the emphasis early.
var emphasisEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

func escapeEmphasis(s string) string {
	return emphasisEscaper.Replace(s)
}

func renderIf(n *ir.If) (string, error) {
	text, err := lead("**If "+escapeEmphasis(n.Test)+":**", n.Children)
	if err != nil || n.Else == nil {
		return text, err
	}
	alt, err := renderElse(n.Else)
	if err != nil {
		return "", err
	}
	return text + "\n\n" + alt, nil
}

func renderElse(n *ir.Else) (string, error) {
	return lead("**Otherwise:**", n.Children)
}

func renderLoop(n *ir.Loop) (string, error) {
	line := "**Repeat up to " + strconv.Itoa(n.Max) + " times"
	if n.Counter != "" {
		line += " (counter: " + codeSpan("$"+n.Counter) + ")"
	}
	return lead(line+":**", n.Children)
}

func renderBreak(n *ir.Break) string {
	return withMessage("**Stop the loop.**", n.Message)
}

func renderReturn(n *ir.Return) string {
	return withMessage("**Return "+codeSpan(n.Status)+".**", n.Message)
}

func withMessage(line, msg string) string {
	if msg == "" {
		return line
	}
	return line + " " + msg
}

func renderOnStatus(n *ir.OnStatus) (string, error) {
	text, err := lead("**When "+codeSpan("$"+n.Output)+" returns "+codeSpan(n.Status)+":**", n.Children)
	if err != nil || n.Default == nil {
		return text, err
	}
	def, err := renderOnStatusDefault(n.Default)
	if err != nil {
		return "", err
	}
	return text + "\n\n" + def, nil
}

func renderOnStatusDefault(n *ir.OnStatusDefault) (string, error) {
	return lead("**When "+codeSpan("$"+n.Output)+" returns anything else:**", n.Children)
}

func renderAskUser(n *ir.AskUser) string {
	line := "**Ask the user"
	if n.Header != "" {
		line += " (" + escapeEmphasis(n.Header) + ")"
	}
	parts := []string{line + ":** " + n.Question}

	if len(n.Options) > 0 {
		opts := make([]string, len(n.Options))
		for i, o := range n.Options {
			opts[i] = "- **" + escapeEmphasis(o.Label) + "**"
			if o.Description != "" {
				opts[i] += ": " + o.Description
			}
		}
		hint := "Choose one:"
		if n.MultiSelect {
			hint = "Choose one or more:"
		}
		parts = append(parts, hint+"\n"+strings.Join(opts, "\n"))
	}
	if n.Output != "" {
		parts = append(parts, "Store the answer in "+codeSpan("$"+n.Output)+".")
	}
	return strings.Join(parts, "\n\n")
}
