package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/oracle"
	tu "github.com/roach88/agentmark/internal/testutil"
	"github.com/roach88/agentmark/internal/tree"
)

var deployOracle = &oracle.Static{
	Shapes: map[string][]ir.Field{
		"DeployInput": {
			{Name: "env", Type: "string", Required: true},
			{Name: "dryRun", Type: "bool"},
		},
	},
}

// compileWithOutputs compiles root with PHASE declared and the PLAN output
// produced by the planner agent.
func compileWithOutputs(t *testing.T, root *tree.Node, opts ...Option) (*ir.Document, error) {
	t.Helper()
	unit := tu.Unit("units/test.yaml", root, "PHASE")
	unit.Outputs = []tree.OutputDecl{{Name: "PLAN", Agent: "planner"}}
	return New(opts...).Compile(unit)
}

// =============================================================================
// Assign
// =============================================================================

func TestCompile_Assign(t *testing.T) {
	doc := mustCompile(t, tu.Command("x",
		tu.N("Assign", tu.A("var", "PHASE", "bash", "git rev-parse HEAD", "comment", "current commit")),
		tu.N("Assign", tu.A("var", tu.Ref("ANSWER"), "value", tu.Ref("PHASE"))),
	))

	want := []ir.Node{
		&ir.Assign{Var: "PHASE", Source: ir.AssignBash, Expr: "git rev-parse HEAD", Comment: "current commit"},
		&ir.Assign{Var: "ANSWER", Source: ir.AssignValue, Expr: "PHASE", Ref: true},
	}
	if diff := cmp.Diff(want, doc.Children, ignorePos); diff != "" {
		t.Errorf("assign mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_AssignDollarLiteralStaysLiteral(t *testing.T) {
	doc := mustCompile(t, tu.Command("x",
		tu.N("Assign", tu.A("var", "PHASE", "value", "$(rm -rf ~)")),
	))

	assign := doc.Children[0].(*ir.Assign)
	assert.Equal(t, "$(rm -rf ~)", assign.Expr)
	assert.False(t, assign.Ref)
}

func TestCompile_AssignErrors(t *testing.T) {
	tests := []struct {
		name  string
		attrs tree.Attrs
		code  string
	}{
		{"two sources", tu.A("var", "PHASE", "bash", "date", "env", "HOME"), ErrExclusiveAttrs},
		{"no source", tu.A("var", "PHASE"), ErrRequiredAttr},
		{"no var", tu.A("value", "x"), ErrRequiredAttr},
		{"undeclared var", tu.A("var", "NOPE", "value", "x"), ErrUndeclaredRef},
		{"field reference", tu.A("var", "ANSWER", "value", tu.Ref("PHASE.number")), ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileRoot(t, tu.Command("x", tu.N("Assign", tt.attrs)))
			requireCode(t, err, tt.code)
		})
	}
}

// =============================================================================
// SpawnAgent
// =============================================================================

func TestCompile_SpawnAgentPromptMode(t *testing.T) {
	doc, err := compileWithOutputs(t, tu.Command("x",
		tu.N("SpawnAgent", tu.A("agent", "planner", "model", "sonnet", "output", "PLAN"),
			"Plan phase ", tu.Ref("PHASE"),
		),
	))
	require.NoError(t, err)

	want := &ir.SpawnAgent{
		Agent:  "planner",
		Model:  "sonnet",
		Output: "PLAN",
		Prompt: []ir.Node{&ir.Text{Value: "Plan phase "}, &ir.VarRef{Name: "PHASE"}},
	}
	if diff := cmp.Diff(want, doc.Children[0], ignorePos); diff != "" {
		t.Errorf("spawn mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_SpawnAgentInputMode(t *testing.T) {
	input := ir.IRObject{ir.O("env", ir.IRString("prod")), ir.O("dryRun", ir.IRBool(true))}
	n := tu.N("SpawnAgent", tu.A("agent", "deployer", "input", input))
	n.TypeArgs = []string{"DeployInput"}

	doc := mustCompile(t, tu.Command("x", n), WithOracle(deployOracle))

	spawn := doc.Children[0].(*ir.SpawnAgent)
	assert.Equal(t, "DeployInput", spawn.InputType)
	assert.Equal(t, input, spawn.Input)
	assert.Empty(t, spawn.Prompt)
}

func TestCompile_SpawnAgentInputTypeAttribute(t *testing.T) {
	input := ir.IRObject{ir.O("env", tu.Ref("PHASE"))}
	n := tu.N("SpawnAgent", tu.A("agent", "deployer", "inputType", "DeployInput", "input", input))

	doc := mustCompile(t, tu.Command("x", n), WithOracle(deployOracle))
	assert.Equal(t, "DeployInput", doc.Children[0].(*ir.SpawnAgent).InputType)
}

func TestCompile_SpawnAgentShapeErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    ir.IRObject
		contains string
	}{
		{"missing required", ir.IRObject{ir.O("dryRun", ir.IRBool(true))}, `missing required field "env"`},
		{"unknown field", ir.IRObject{ir.O("env", ir.IRString("prod")), ir.O("force", ir.IRBool(true))}, `no field "force"`},
		{"wrong type", ir.IRObject{ir.O("env", ir.IRInt(3))}, `must be string, got int`},
		{"null required", ir.IRObject{ir.O("env", ir.IRNull{})}, `must be string, got null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tu.N("SpawnAgent", tu.A("agent", "deployer", "input", tt.input))
			n.TypeArgs = []string{"DeployInput"}
			_, err := compileRoot(t, tu.Command("x", n), WithOracle(deployOracle))
			ce := requireCode(t, err, ErrShapeMismatch)
			assert.Contains(t, ce.Message, tt.contains)
		})
	}
}

func TestCompile_SpawnAgentModes(t *testing.T) {
	input := ir.IRObject{ir.O("env", ir.IRString("prod"))}
	tests := []struct {
		name string
		node *tree.Node
		code string
	}{
		{"prompt and input", tu.N("SpawnAgent", tu.A("agent", "a", "prompt", "go", "input", input)), ErrExclusiveAttrs},
		{"children and input", tu.N("SpawnAgent", tu.A("agent", "a", "input", input), "go"), ErrExclusiveAttrs},
		{"neither", tu.N("SpawnAgent", tu.A("agent", "a")), ErrRequiredAttr},
		{"no agent", tu.N("SpawnAgent", tu.A("prompt", "go")), ErrRequiredAttr},
		{"unknown input type", tu.N("SpawnAgent", tu.A("agent", "a", "inputType", "Nope", "input", input)), ErrShapeMismatch},
		{"undeclared output", tu.N("SpawnAgent", tu.A("agent", "planner", "prompt", "go", "output", "NOPE")), ErrUndeclaredRef},
		{"output of another agent", tu.N("SpawnAgent", tu.A("agent", "other", "prompt", "go", "output", "PLAN")), ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileWithOutputs(t, tu.Command("x", tt.node), WithOracle(deployOracle))
			requireCode(t, err, tt.code)
		})
	}
}

// =============================================================================
// Shell and StateCall
// =============================================================================

func TestCompile_Shell(t *testing.T) {
	doc := mustCompile(t, tu.Command("x",
		tu.N("Shell", tu.A("command", "ls -la", "output", "ANSWER")),
		tu.N("Shell", nil, "echo ", tu.Ref("PHASE")),
	))

	assert.Equal(t, &ir.Shell{Span: doc.Children[0].(*ir.Shell).Span, Command: "ls -la", Output: "ANSWER"}, doc.Children[0])
	assert.Equal(t, "echo $PHASE", doc.Children[1].(*ir.Shell).Command)

	_, err := compileRoot(t, tu.Command("x", tu.N("Shell", nil)))
	requireCode(t, err, ErrRequiredAttr)

	_, err = compileRoot(t, tu.Command("x", tu.N("Shell", tu.A("command", "ls", "output", "NOPE"))))
	requireCode(t, err, ErrUndeclaredRef)
}

func TestCompile_StateCall(t *testing.T) {
	args := ir.IRObject{ir.O("id", tu.Ref("PHASE")), ir.O("limit", ir.IRInt(5))}
	doc := mustCompile(t, tu.Command("x",
		tu.N("StateCall", tu.A("skill", "notes", "op", "read", "args", args, "output", "ANSWER")),
	))

	call := doc.Children[0].(*ir.StateCall)
	assert.Equal(t, "notes", call.Skill)
	assert.Equal(t, "read", call.Op)
	assert.Equal(t, args, call.Args)

	bad := ir.IRObject{ir.O("ids", ir.IRArray{ir.IRInt(1)})}
	_, err := compileRoot(t, tu.Command("x", tu.N("StateCall", tu.A("skill", "notes", "op", "read", "args", bad))))
	requireCode(t, err, ErrInvalidValue)

	_, err = compileRoot(t, tu.Command("x", tu.N("StateCall", tu.A("skill", "notes"))))
	requireCode(t, err, ErrRequiredAttr)

	field := ir.IRObject{ir.O("id", tu.Ref("PHASE.number"))}
	_, err = compileRoot(t, tu.Command("x", tu.N("StateCall", tu.A("skill", "notes", "op", "read", "args", field))))
	requireCode(t, err, ErrInvalidValue)
}
