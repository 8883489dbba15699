package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agentmark/internal/ir"
	tu "github.com/roach88/agentmark/internal/testutil"
	"github.com/roach88/agentmark/internal/tree"
)

func TestCompile_Loop(t *testing.T) {
	doc := mustCompile(t, tu.Command("x",
		tu.N("Loop", tu.A("max", 3, "counter", "attempt"),
			tu.N("Paragraph", nil, "Attempt ", tu.Ref("attempt")),
			tu.N("If", tu.A("test", "done"), tu.N("Break", tu.A("message", "finished"))),
		),
	))

	want := &ir.Loop{
		Max:     3,
		Counter: "attempt",
		Children: []ir.Node{
			&ir.Paragraph{Children: []ir.Node{&ir.Text{Value: "Attempt "}, &ir.VarRef{Name: "attempt"}}},
			&ir.If{Test: "done", Children: []ir.Node{&ir.Break{Message: "finished"}}},
		},
	}
	if diff := cmp.Diff(want, doc.Children[0], ignorePos); diff != "" {
		t.Errorf("loop mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_LoopCounterScope(t *testing.T) {
	_, err := compileRoot(t, tu.Command("x",
		tu.N("Loop", tu.A("max", 2, "counter", "i"), "body"),
		tu.N("Paragraph", nil, tu.Ref("i")),
	))
	requireCode(t, err, ErrUndeclaredRef)
}

func TestCompile_LoopErrors(t *testing.T) {
	tests := []struct {
		name  string
		attrs tree.Attrs
		code  string
	}{
		{"missing max", nil, ErrRequiredAttr},
		{"zero max", tu.A("max", 0), ErrInvalidValue},
		{"string max", tu.A("max", "three"), ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileRoot(t, tu.Command("x", tu.N("Loop", tt.attrs, "body")))
			requireCode(t, err, tt.code)
		})
	}
}

func TestCompile_BreakOutsideLoop(t *testing.T) {
	_, err := compileRoot(t, tu.Command("x", tu.N("If", tu.A("test", "t"), tu.N("Break", nil))))
	requireCode(t, err, ErrBreakOutsideLoop)
}

func TestCompile_Return(t *testing.T) {
	root := agentWithStatus(
		tu.N("StatusCatalogue", nil, branch("SUCCESS"), branch("BLOCKED")),
		tu.N("Return", tu.A("status", "BLOCKED", "message", "waiting on review")),
	)
	doc := mustCompile(t, root, WithOracle(statusOracle))
	assert.Equal(t, &ir.Return{Span: doc.Children[1].(*ir.Return).Span, Status: "BLOCKED", Message: "waiting on review"}, doc.Children[1])

	bad := agentWithStatus(
		tu.N("StatusCatalogue", nil, branch("SUCCESS"), branch("BLOCKED")),
		tu.N("Return", tu.A("status", "FAILED")),
	)
	_, err := compileRoot(t, bad, WithOracle(statusOracle))
	ce := requireCode(t, err, ErrStatusExtra)
	assert.Contains(t, ce.Message, "Status")
}

func TestCompile_ReturnWithoutUnionAcceptsAnyStatus(t *testing.T) {
	doc := mustCompile(t, tu.Command("x", tu.N("Return", tu.A("status", "ANYTHING"))))
	assert.Equal(t, "ANYTHING", doc.Children[0].(*ir.Return).Status)
}

func TestCompile_OnStatusRequiresDeclaredOutput(t *testing.T) {
	_, err := compileWithOutputs(t, tu.Command("x", tu.N("OnStatus", tu.A("output", "NOPE", "status", "SUCCESS"))))
	requireCode(t, err, ErrUndeclaredRef)

	_, err = compileWithOutputs(t, tu.Command("x", tu.N("OnStatus", tu.A("status", "SUCCESS"))))
	requireCode(t, err, ErrRequiredAttr)

	doc, err := compileWithOutputs(t, tu.Command("x", tu.N("OnStatus", tu.A("output", tu.Ref("PLAN"), "status", "SUCCESS"), "ok")))
	require.NoError(t, err)
	assert.Equal(t, "PLAN", doc.Children[0].(*ir.OnStatus).Output)
}

func TestCompile_AskUser(t *testing.T) {
	options := []any{
		"Yes",
		ir.IRObject{ir.O("label", ir.IRString("No")), ir.O("description", ir.IRString("Stop here"))},
	}
	doc := mustCompile(t, tu.Command("x", tu.N("AskUser", tu.A(
		"question", "Proceed?",
		"header", "Confirm",
		"options", options,
		"output", "ANSWER",
	))))

	want := &ir.AskUser{
		Question: "Proceed?",
		Header:   "Confirm",
		Options:  []ir.AskOption{{Label: "Yes"}, {Label: "No", Description: "Stop here"}},
		Output:   "ANSWER",
	}
	if diff := cmp.Diff(want, doc.Children[0], ignorePos); diff != "" {
		t.Errorf("ask mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_AskUserErrors(t *testing.T) {
	tests := []struct {
		name  string
		attrs tree.Attrs
		code  string
	}{
		{"no question", tu.A("output", "ANSWER"), ErrRequiredAttr},
		{"no output", tu.A("question", "q"), ErrRequiredAttr},
		{"undeclared output", tu.A("question", "q", "output", "NOPE"), ErrUndeclaredRef},
		{"bad option", tu.A("question", "q", "output", "ANSWER", "options", []any{[]any{"x"}}), ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileRoot(t, tu.Command("x", tu.N("AskUser", tt.attrs)))
			requireCode(t, err, tt.code)
		})
	}
}
