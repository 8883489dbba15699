package emit

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"mvdan.cc/sh/v3/syntax"

	"github.com/roach88/agentmark/internal/ir"
)

var envName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// formatShell parses src as bash and prints it back in canonical form.
func formatShell(src string) (string, error) {
	f, err := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(true)).
		Parse(strings.NewReader(src), "")
	if err != nil {
		return "", errors.Wrap(err, "invalid shell")
	}
	var buf bytes.Buffer
	if err := syntax.NewPrinter(syntax.Indent(2)).Print(&buf, f); err != nil {
		return "", errors.Wrap(err, "print shell")
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// checkShell reports whether src parses as bash without reprinting it.
func checkShell(src, name string) error {
	_, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(src), name)
	return errors.Wrapf(err, "invalid shell in %s", name)
}

// literalWord quotes s as one shell word that expands to exactly s.
func literalWord(s string) (string, error) {
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		return "", errors.Wrapf(err, "cannot quote %q", s)
	}
	return q, nil
}

// refWord expands the variable name inside double quotes.
func refWord(name string) (string, error) {
	if !envName.MatchString(name) {
		return "", errors.Newf("emit: %q is not a shell variable name", name)
	}
	return `"$` + name + `"`, nil
}

func assignWord(a *ir.Assign) (string, error) {
	if a.Ref {
		return refWord(a.Expr)
	}
	return literalWord(a.Expr)
}

func bashFence(src string, pos ir.Pos) (string, error) {
	out, err := formatShell(src)
	if err != nil {
		return "", errors.Wrapf(err, "at %s", pos)
	}
	return codeFence("bash", out), nil
}

func renderAssign(a *ir.Assign) (string, error) {
	var rhs string
	switch a.Source {
	case ir.AssignBash:
		cmd := a.Expr
		if a.Ref {
			if !envName.MatchString(a.Expr) {
				return "", errors.Newf("emit: %q is not a shell variable name (at %s)", a.Expr, a.Position())
			}
			cmd = "$" + a.Expr
		}
		rhs = "$(" + cmd + ")"
	case ir.AssignValue:
		word, err := assignWord(a)
		if err != nil {
			return "", err
		}
		rhs = word
	case ir.AssignFile:
		word, err := assignWord(a)
		if err != nil {
			return "", err
		}
		rhs = "$(cat " + word + ")"
	case ir.AssignEnv:
		if a.Ref || !envName.MatchString(a.Expr) {
			return "", errors.Newf("emit: %q is not an environment variable name (at %s)", a.Expr, a.Position())
		}
		rhs = `"${` + a.Expr + `:-}"`
	default:
		return "", errors.Newf("emit: unknown assign source %q (at %s)", a.Source, a.Position())
	}

	src := a.Var + "=" + rhs
	if a.Comment != "" {
		src = "# " + strings.ReplaceAll(a.Comment, "\n", " ") + "\n" + src
	}
	return bashFence(src, a.Position())
}

func renderShell(s *ir.Shell) (string, error) {
	src := s.Command
	if s.Output != "" {
		src = s.Output + "=$(" + src + ")"
	}
	return bashFence(src, s.Position())
}

func renderStateCall(c *ir.StateCall) (string, error) {
	src := "bash " + ir.ScriptPath(c.Skill, c.Op)
	for _, p := range c.Args {
		var (
			word string
			err  error
		)
		if ref, ok := p.Value.(ir.IRRef); ok {
			word, err = refWord(ref.Path)
		} else {
			word, err = literalWord(ir.FormatValue(p.Value))
		}
		if err != nil {
			return "", errors.Wrapf(err, "argument %s", p.Key)
		}
		src += " --" + p.Key + " " + word
	}
	if c.Output != "" {
		src = c.Output + "=$(" + src + ")"
	}
	return bashFence(src, c.Position())
}

// renderSpawnAgent renders a sub-agent invocation as a Task call. Input
// mode renders the structured input as XML in place of a prompt.
func renderSpawnAgent(s *ir.SpawnAgent) (string, error) {
	var prompt string
	if s.Input != nil || s.InputType != "" {
		prompt = inputXML(s.InputType, s.Input)
	} else {
		text, err := renderBlocks(s.Prompt)
		if err != nil {
			return "", err
		}
		prompt = text
	}
	prompt = strings.ReplaceAll(prompt, `"""`, `\"\"\"`)

	args := []string{"  subagent_type=" + strconv.Quote(s.Agent) + ","}
	if s.Model != "" {
		args = append(args, "  model="+strconv.Quote(s.Model)+",")
	}
	if s.Description != "" {
		args = append(args, "  description="+strconv.Quote(s.Description)+",")
	}
	args = append(args, "  prompt=\"\"\"\n"+prompt+"\n\"\"\"")

	text := codeFence("", "Task(\n"+strings.Join(args, "\n")+"\n)")
	if s.Output != "" {
		text += "\n\nStore the result in " + codeSpan("$"+s.Output) + "."
	}
	return text, nil
}

// inputXML renders a structured agent input. Each field becomes an element
// named after its key, in declaration order.
func inputXML(typeName string, input ir.IRObject) string {
	var attrs []ir.XMLAttr
	if typeName != "" {
		attrs = []ir.XMLAttr{{Name: "type", Value: typeName}}
	}
	return wrapXML("input", attrs, xmlFields(input))
}

func xmlFields(obj ir.IRObject) string {
	lines := make([]string, len(obj))
	for i, p := range obj {
		lines[i] = xmlElement(p.Key, p.Value)
	}
	return strings.Join(lines, "\n")
}

func xmlElement(tag string, v ir.IRValue) string {
	switch val := v.(type) {
	case ir.IRObject:
		return wrapXML(tag, nil, xmlFields(val))
	case ir.IRArray:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = xmlElement("item", item)
		}
		return wrapXML(tag, nil, strings.Join(items, "\n"))
	case ir.IRRef:
		return "<" + tag + ">$" + val.Path + "</" + tag + ">"
	default:
		return "<" + tag + ">" + textEscaper.Replace(ir.FormatValue(v)) + "</" + tag + ">"
	}
}
