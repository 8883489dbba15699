package emit

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/stateir"
	"github.com/roach88/agentmark/internal/statesql"
)

// EmitSkill renders a skill: SKILL.md and, when the skill persists state,
// one executable script per state operation. SKILL.md gains a State
// section documenting the table and the scripts.
func EmitSkill(doc *ir.Document) ([]Artifact, error) {
	if doc == nil {
		return nil, errors.New("emit: document is nil")
	}
	if doc.DocKind != ir.DocSkill {
		return nil, errors.Newf("emit: %s is a %s, not a skill", doc.Name, doc.DocKind)
	}

	page := doc
	if doc.State != nil {
		withState := *doc
		withState.Children = append(append([]ir.Node{}, doc.Children...), stateSection(doc.Name, doc.State)...)
		page = &withState
	}
	content, err := Emit(page)
	if err != nil {
		return nil, err
	}
	artifacts := []Artifact{{Path: doc.ArtifactPath(), Content: content}}
	if doc.State == nil {
		return artifacts, nil
	}

	for _, op := range doc.State.Operations {
		script, err := Script(doc.State, op)
		if err != nil {
			return nil, errors.Wrapf(err, "skill %s", doc.Name)
		}
		artifacts = append(artifacts, Artifact{
			Path:       ir.ScriptPath(doc.Name, op.Name),
			Content:    script,
			Executable: true,
		})
	}
	return artifacts, nil
}

// scriptArg is one command-line flag of an operation script.
type scriptArg struct {
	Column   string
	Type     string
	Required bool
}

func scriptArgs(spec *ir.StateSpec, op ir.StateOp) []scriptArg {
	column := func(name string) ir.Field {
		for _, c := range spec.Columns {
			if c.Name == name {
				return c
			}
		}
		return ir.Field{Name: name, Type: "string"}
	}

	var args []scriptArg
	switch op.Kind {
	case ir.OpRead, ir.OpDelete:
		key := column(spec.Key)
		args = append(args, scriptArg{Column: key.Name, Type: key.Type, Required: true})
	case ir.OpWrite:
		for _, c := range spec.Columns {
			args = append(args, scriptArg{Column: c.Name, Type: c.Type, Required: c.Required})
		}
	case ir.OpCustom:
		for _, name := range op.Where {
			c := column(name)
			args = append(args, scriptArg{Column: c.Name, Type: c.Type, Required: true})
		}
	}
	return args
}

func usageLine(skill string, spec *ir.StateSpec, op ir.StateOp) string {
	parts := []string{"bash " + ir.ScriptPath(skill, op.Name)}
	for _, a := range scriptArgs(spec, op) {
		flag := "--" + a.Column + " <" + a.Column + ">"
		if !a.Required {
			flag = "[" + flag + "]"
		}
		parts = append(parts, flag)
	}
	return strings.Join(parts, " ")
}

// stateSection documents a skill's state table and scripts.
func stateSection(skill string, spec *ir.StateSpec) []ir.Node {
	columns := &ir.Table{Headers: []string{"Column", "Type", "Required"}}
	for _, c := range spec.Columns {
		req := "no"
		if c.Required {
			req = "yes"
		}
		columns.Rows = append(columns.Rows, []ir.Cell{{Text: c.Name}, {Text: c.Type}, {Text: req}})
	}

	ops := &ir.Table{Headers: []string{"Operation", "Command", "Description"}}
	for _, op := range spec.Operations {
		usage := usageLine(skill, spec, op)
		ops.Rows = append(ops.Rows, []ir.Cell{
			{Text: op.Name},
			{Text: codeSpan(usage)},
			{Text: op.Description},
		})
	}

	return []ir.Node{
		&ir.Heading{Level: 2, Children: []ir.Node{&ir.Text{Value: "State"}}},
		&ir.Paragraph{Children: []ir.Node{
			&ir.Text{Value: "Rows live in "},
			&ir.InlineCode{Value: spec.Database},
			&ir.Text{Value: " (table "},
			&ir.InlineCode{Value: spec.Table},
			&ir.Text{Value: ", key "},
			&ir.InlineCode{Value: spec.Key},
			&ir.Text{Value: "). Every script prints JSON on stdout and errors as JSON on stderr."},
		}},
		columns,
		ops,
	}
}

// Script renders the self-contained bash script for one state operation:
// argument parsing, precondition checks, literal binding and a single
// sqlite3 invocation with JSON output.
func Script(spec *ir.StateSpec, op ir.StateOp) (string, error) {
	if strings.ContainsAny(spec.Database, "$`\\\"}") {
		return "", errors.Newf("database path %q contains shell metacharacters", spec.Database)
	}
	stmt, err := stateir.FromSpec(spec, op)
	if err != nil {
		return "", err
	}
	compiler := statesql.NewSQLCompiler()
	query, params, err := compiler.Compile(stmt)
	if err != nil {
		return "", errors.Wrapf(err, "operation %q", op.Name)
	}
	bind := func(p string) string { return "$sql_" + p }
	query, err = statesql.Bind(query, params, bind)
	if err != nil {
		return "", errors.Wrapf(err, "operation %q", op.Name)
	}

	// write reports the stored row back.
	if op.Kind == ir.OpWrite {
		readStmt, err := stateir.FromSpec(spec, ir.StateOp{Name: string(ir.OpRead), Kind: ir.OpRead})
		if err != nil {
			return "", err
		}
		readSQL, readParams, err := compiler.Compile(readStmt)
		if err != nil {
			return "", err
		}
		if readSQL, err = statesql.Bind(readSQL, readParams, bind); err != nil {
			return "", err
		}
		query += "; " + readSQL
	}

	name := op.Name + ".sh"
	args := scriptArgs(spec, op)
	var b strings.Builder
	w := func(format string, a ...any) { fmt.Fprintf(&b, format, a...) }

	b.WriteString("#!/usr/bin/env bash\n")
	if op.Description != "" {
		w("# %s\n", strings.ReplaceAll(op.Description, "\n", " "))
	}
	b.WriteString("# Generated by agentmark. Do not edit.\n")
	b.WriteString("set -euo pipefail\n\n")
	w("DB=\"${AGENTMARK_STATE_DB:-%s}\"\n\n", spec.Database)

	b.WriteString("usage() {\n")
	w("  echo \"usage: %s [--db <path>]", name)
	for _, a := range args {
		if a.Required {
			w(" --%s <%s>", a.Column, a.Column)
		} else {
			w(" [--%s <%s>]", a.Column, a.Column)
		}
	}
	b.WriteString("\" >&2\n  exit \"${1:-2}\"\n}\n\n")

	b.WriteString("fail() {\n  printf '{\"error\":\"%s\"}\\n' \"$1\" >&2\n  exit 1\n}\n\n")

	if len(args) > 0 {
		b.WriteString(sqlValueFunc)
		for _, a := range args {
			w("arg_%s=\"\"\nhas_%s=0\n", a.Column, a.Column)
		}
		b.WriteString("\n")
	}

	b.WriteString("while [[ $# -gt 0 ]]; do\n  case \"$1\" in\n")
	for _, a := range args {
		w("    --%s)\n      [[ $# -ge 2 ]] || usage\n      arg_%s=\"$2\"\n      has_%s=1\n      shift 2\n      ;;\n",
			a.Column, a.Column, a.Column)
	}
	b.WriteString("    --db)\n      [[ $# -ge 2 ]] || usage\n      DB=\"$2\"\n      shift 2\n      ;;\n")
	b.WriteString("    -h | --help)\n      usage 0\n      ;;\n")
	b.WriteString("    *)\n      echo \"unknown argument: $1\" >&2\n      usage\n      ;;\n")
	b.WriteString("  esac\ndone\n\n")

	for _, a := range args {
		if a.Required {
			w("[[ $has_%s -eq 1 ]] || fail \"--%s is required\"\n", a.Column, a.Column)
		}
	}
	b.WriteString("command -v sqlite3 >/dev/null 2>&1 || fail \"sqlite3 is not installed\"\n")

	if op.Kind == ir.OpInit {
		b.WriteString("\nmkdir -p \"$(dirname \"$DB\")\"\n")
		w("sqlite3 \"$DB\" \"%s\"\n", query)
		w("echo '{\"ok\":true,\"table\":\"%s\"}'\n", spec.Table)
		return finishScript(b.String(), name)
	}

	b.WriteString("[[ -f $DB ]] || fail \"state database not found; run init.sh first\"\n")
	w("table=$(sqlite3 \"$DB\" \"SELECT name FROM sqlite_master WHERE type = 'table' AND name = '%s'\")\n", spec.Table)
	w("[[ -n $table ]] || fail \"table %s does not exist; run init.sh first\"\n\n", spec.Table)

	for _, a := range args {
		if a.Required {
			w("sql_%s=$(sql_value %s \"$arg_%s\" %s)\n", a.Column, a.Type, a.Column, a.Column)
			continue
		}
		w("sql_%s=NULL\nif [[ $has_%s -eq 1 ]]; then\n  sql_%s=$(sql_value %s \"$arg_%s\" %s)\nfi\n",
			a.Column, a.Column, a.Column, a.Type, a.Column, a.Column)
	}
	if len(args) > 0 {
		b.WriteString("\n")
	}

	if _, isDelete := stmt.(stateir.Delete); isDelete {
		w("sqlite3 -json \"$DB\" \"%s; SELECT changes() AS deleted\"\n", query)
		return finishScript(b.String(), name)
	}
	w("result=$(sqlite3 -json \"$DB\" \"%s\")\n", query)
	b.WriteString("printf '%s\\n' \"${result:-[]}\"\n")
	return finishScript(b.String(), name)
}

func finishScript(script, name string) (string, error) {
	if err := checkShell(script, name); err != nil {
		return "", err
	}
	return script, nil
}

// sqlValueFunc converts a flag value to a SQL literal for its column type.
const sqlValueFunc = `sql_value() {
  local q="'"
  local int_re='^-?[0-9]+$'
  case "$1" in
    int)
      [[ $2 =~ $int_re ]] || fail "--$3 must be an integer"
      printf '%s' "$2"
      ;;
    bool)
      case "$2" in
        true | 1) printf '1' ;;
        false | 0) printf '0' ;;
        *) fail "--$3 must be true or false" ;;
      esac
      ;;
    *)
      printf "'%s'" "${2//$q/$q$q}"
      ;;
  esac
}

`
