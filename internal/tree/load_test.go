package tree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agentmark/internal/ir"
)

const commandUnit = `imports:
  - {name: Shared, from: ./shared.yaml}
variables: [PHASE]
outputs:
  - name: RESULT
    agent: planner
root:
  Command:
    name: deploy
    description: Deploy the app
    allowedTools: [Read, Bash]
    $types: [Status]
    $bind: ctx
    children:
      - Heading: {level: 1, children: [Deploy]}
      - Paragraph:
          - "Phase "
          - !ref PHASE
      - Shared: null
`

func TestParse_CommandUnit(t *testing.T) {
	unit, err := Parse("deploy.yaml", []byte(commandUnit))
	require.NoError(t, err)

	require.Len(t, unit.Imports, 1)
	assert.Equal(t, Import{Name: "Shared", From: "./shared.yaml", Export: "Shared", Pos: unit.Imports[0].Pos}, unit.Imports[0])
	assert.Equal(t, "PHASE", unit.Variables[0].Name)
	assert.Equal(t, OutputDecl{Name: "RESULT", Agent: "planner", Pos: unit.Outputs[0].Pos}, unit.Outputs[0])

	root := unit.Root
	require.NotNil(t, root)
	assert.Equal(t, "Command", root.Name)
	assert.Equal(t, []string{"name", "description", "allowedTools"}, root.Attrs.Keys())
	assert.Equal(t, []string{"Status"}, root.TypeArgs)
	assert.Equal(t, "ctx", root.Bind)
	assert.Equal(t, ir.Pos{File: "deploy.yaml", Line: 8, Col: 3}, root.Pos)

	tools, ok := root.Attr("allowedTools")
	require.True(t, ok)
	assert.Equal(t, ir.IRArray{ir.IRString("Read"), ir.IRString("Bash")}, tools)

	require.Len(t, root.Children, 3)
	heading := root.Children[0]
	level, _ := heading.Attr("level")
	assert.Equal(t, ir.IRInt(1), level)
	require.Len(t, heading.Children, 1)
	assert.True(t, heading.Children[0].IsText())
	assert.Equal(t, "Deploy", heading.Children[0].Text)

	para := root.Children[1]
	require.Len(t, para.Children, 2)
	assert.Equal(t, "Phase ", para.Children[0].Text)
	assert.Equal(t, ExprName, para.Children[1].Name)
	assert.Equal(t, ir.IRRef{Path: "PHASE"}, para.Children[1].Expr)

	assert.Equal(t, "Shared", root.Children[2].Name)
	assert.Empty(t, root.Children[2].Children)
}

func TestParse_JSONUnit(t *testing.T) {
	src := `{"root": {"Agent": {"name": "planner", "input": {"$ref": "ctx.name"}, "children": ["hi"]}}}`

	unit, err := Parse("planner.json", []byte(src))
	require.NoError(t, err)

	input, ok := unit.Root.Attr("input")
	require.True(t, ok)
	assert.Equal(t, ir.IRRef{Path: "ctx.name"}, input)
	assert.Equal(t, "hi", unit.Root.Children[0].Text)
}

func TestParse_AttributeValues(t *testing.T) {
	src := `root:
  Table:
    headers: [a, b]
    rows:
      - [a, b]
      - [null, d]
    meta: {z: 1, a: true}
`
	unit, err := Parse("t.yaml", []byte(src))
	require.NoError(t, err)

	rows, _ := unit.Root.Attr("rows")
	assert.Equal(t, ir.IRArray{
		ir.IRArray{ir.IRString("a"), ir.IRString("b")},
		ir.IRArray{ir.IRNull{}, ir.IRString("d")},
	}, rows)

	meta, _ := unit.Root.Attr("meta")
	assert.Equal(t, ir.IRObject{ir.O("z", ir.IRInt(1)), ir.O("a", ir.IRBool(true))}, meta)
}

func TestParse_Exports(t *testing.T) {
	src := `exports:
  Rules:
    - Paragraph: one
    - Slot: null
  Single:
    Paragraph: two
`
	unit, err := Parse("lib.yaml", []byte(src))
	require.NoError(t, err)
	assert.Nil(t, unit.Root)

	rules, ok := unit.Export("Rules")
	require.True(t, ok)
	assert.Len(t, rules.Nodes, 2)

	single, ok := unit.Export("Single")
	require.True(t, ok)
	require.Len(t, single.Nodes, 1)
	assert.Equal(t, "Paragraph", single.Nodes[0].Name)

	_, ok = unit.Export("Missing")
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"float attribute", "root:\n  Loop: {max: 1.5}\n", "t.yaml:2:15: float values are not supported: 1.5"},
		{"multi-key component", "root:\n  A: x\n  B: y\n", "t.yaml:2:3: component must be a single-key mapping, got 2 keys"},
		{"duplicate attribute", "root:\n  A: {x: 1, x: 2}\n", `"x"`},
		{"unknown section", "bogus: 1\n", `unknown section "bogus"`},
		{"import without from", "imports:\n  - {name: A}\n", "import requires name and from"},
		{"top-level list", "- a\n", "unit must be a mapping"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("t.yaml", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	unit, err := Parse("empty.yaml", nil)
	require.NoError(t, err)
	assert.Nil(t, unit.Root)
}

func TestLoad_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root:\n  Paragraph: hi\n"), 0o644))

	unit, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, unit.Path)
	assert.Equal(t, "Paragraph", unit.Root.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestNode_IsWhitespace(t *testing.T) {
	assert.True(t, (&Node{Name: TextName, Text: " \n "}).IsWhitespace())
	assert.False(t, (&Node{Name: TextName, Text: " x "}).IsWhitespace())
	assert.False(t, (&Node{Name: "Paragraph"}).IsWhitespace())
	assert.True(t, HasUnitExtension("a.yml"))
	assert.False(t, HasUnitExtension("a.cue"))
}
