package oracle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/tree"
)

const typesCUE = `
#Status: "SUCCESS" | "BLOCKED" | "CHECKPOINT"
#Single: "DONE"
#Codes: 1 | 2
#DeployInput: {
	env:     string
	dryRun?: bool
	tags?:   [...string]
	retries: int
}
name: "not a definition"
`

func newTestCUE(t *testing.T) *CUE {
	t.Helper()
	o, err := NewCUE("types.cue", []byte(typesCUE))
	require.NoError(t, err)
	return o
}

func TestCUE_LiteralUnionMembers(t *testing.T) {
	o := newTestCUE(t)

	assert.Equal(t, []string{"SUCCESS", "BLOCKED", "CHECKPOINT"}, o.LiteralUnionMembers("Status"))
	assert.Equal(t, []string{"SUCCESS", "BLOCKED", "CHECKPOINT"}, o.LiteralUnionMembers("#Status"))
	assert.Equal(t, []string{"DONE"}, o.LiteralUnionMembers("Single"))
	assert.Equal(t, []string{"1", "2"}, o.LiteralUnionMembers("Codes"))
	assert.Nil(t, o.LiteralUnionMembers("DeployInput"))
	assert.Nil(t, o.LiteralUnionMembers("Missing"))
}

func TestCUE_InterfaceShape(t *testing.T) {
	o := newTestCUE(t)

	shape := o.InterfaceShape("DeployInput")
	assert.Equal(t, []ir.Field{
		{Name: "env", Type: "string", Required: true},
		{Name: "dryRun", Type: "bool", Required: false},
		{Name: "tags", Type: "array", Required: false},
		{Name: "retries", Type: "int", Required: true},
	}, shape)

	assert.Nil(t, o.InterfaceShape("Status"))
	assert.Nil(t, o.InterfaceShape("Missing"))
}

func TestCUE_GenericArgs(t *testing.T) {
	o := newTestCUE(t)
	n := &tree.Node{Name: "Agent", TypeArgs: []string{"Status", "DeployInput"}}

	assert.Equal(t, []string{"Status", "DeployInput"}, o.GenericArgs(n))
	assert.Nil(t, o.GenericArgs(nil))
}

func TestLoadCUE_Files(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.cue")
	b := filepath.Join(dir, "b.cue")
	require.NoError(t, os.WriteFile(a, []byte(`#A: "x" | "y"`), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(`#B: {id: string}`), 0o644))

	o, err := LoadCUE(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, o.LiteralUnionMembers("A"))
	assert.Len(t, o.InterfaceShape("B"), 1)
}

func TestLoadCUE_Errors(t *testing.T) {
	_, err := LoadCUE(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)

	_, err = NewCUE("bad.cue", []byte(`#A: {`))
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	s := &Static{
		Shapes: map[string][]ir.Field{"In": {{Name: "id", Type: "string", Required: true}}},
		Unions: map[string][]string{"Status": {"OK"}},
	}

	var o Oracle = s
	assert.Equal(t, []string{"OK"}, o.LiteralUnionMembers("Status"))
	assert.Len(t, o.InterfaceShape("In"), 1)
	assert.Nil(t, o.InterfaceShape("Status"))
	assert.Nil(t, Empty.LiteralUnionMembers("Status"))
}
