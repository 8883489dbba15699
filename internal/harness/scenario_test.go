package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agentmark/internal/compiler"
)

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/hello.yaml")
	require.NoError(t, err)

	assert.Equal(t, "hello_command", scenario.Name)
	assert.Equal(t, "units/hello.yaml", scenario.Unit)
	assert.Equal(t, filepath.Join("testdata", "scenarios"), scenario.Dir)
	assert.Len(t, scenario.Assertions, 3)
	assert.Equal(t, AssertArtifactOrder, scenario.Assertions[2].Type)
	assert.Equal(t, []string{"# Hello", "Greet the user.", "<deviation_rules>"}, scenario.Assertions[2].Texts)
}

func TestLoadScenario_StateSteps(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/notes_state.yaml")
	require.NoError(t, err)

	require.Len(t, scenario.State, 7)
	assert.Equal(t, "write", scenario.State[1].Op)
	assert.Equal(t, map[string]any{"id": "n1", "body": "hello", "pinned": true}, scenario.State[1].Args)
	assert.True(t, scenario.State[4].ExpectError)
	assert.Contains(t, scenario.Files, "notes.yaml")
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseScenario_UnknownField(t *testing.T) {
	data := []byte(`
name: typo
description: misspelled assertions key
unit: u.yaml
files:
  u.yaml: "root: {Command: {name: u}}"
assertion:
  - type: artifact_count
`)
	_, err := ParseScenario(data, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field assertion not found")
}

func TestParseScenario_Validation(t *testing.T) {
	const unit = "files:\n  u.yaml: \"root: {Command: {name: u}}\"\n"
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nunit: u.yaml\n" + unit + "assertions: [{type: artifact_count, count: 1}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nunit: u.yaml\n" + unit + "assertions: [{type: artifact_count, count: 1}]\n",
			want: "description is required",
		},
		{
			name: "missing unit",
			yaml: "name: n\ndescription: d\nassertions: [{type: artifact_count, count: 1}]\n",
			want: "unit is required",
		},
		{
			name: "no assertions",
			yaml: "name: n\ndescription: d\nunit: u.yaml\n" + unit,
			want: "assertions list is required",
		},
		{
			name: "unit not on disk",
			yaml: "name: n\ndescription: d\nunit: missing.yaml\nassertions: [{type: artifact_count, count: 1}]\n",
			want: "unit file not found: missing.yaml",
		},
		{
			name: "types not on disk",
			yaml: "name: n\ndescription: d\nunit: u.yaml\ntypes: [t.cue]\n" + unit + "assertions: [{type: artifact_count, count: 1}]\n",
			want: "types file not found: t.cue",
		},
		{
			name: "bad separators",
			yaml: "name: n\ndescription: d\nunit: u.yaml\noptions: {separators: commas}\n" + unit + "assertions: [{type: artifact_count, count: 1}]\n",
			want: "options:",
		},
		{
			name: "state step without op",
			yaml: "name: n\ndescription: d\nunit: u.yaml\nstate: [{args: {id: 1}}]\n" + unit + "assertions: [{type: artifact_count, count: 1}]\n",
			want: "state[0]: op is required",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nunit: u.yaml\n" + unit + "assertions: [{type: artifact_size}]\n",
			want: `unknown assertion type "artifact_size"`,
		},
		{
			name: "order needs two texts",
			yaml: "name: n\ndescription: d\nunit: u.yaml\n" + unit + "assertions: [{type: artifact_order, path: p, texts: [a]}]\n",
			want: "texts needs at least 2 entries",
		},
		{
			name: "contains needs text",
			yaml: "name: n\ndescription: d\nunit: u.yaml\n" + unit + "assertions: [{type: artifact_contains, path: p}]\n",
			want: "path and text are required for artifact_contains",
		},
		{
			name: "compile error needs code or contains",
			yaml: "name: n\ndescription: d\nunit: u.yaml\n" + unit + "assertions: [{type: compile_error}]\n",
			want: "code or contains is required",
		},
		{
			name: "final state needs expect",
			yaml: "name: n\ndescription: d\nunit: u.yaml\n" + unit + "assertions: [{type: final_state, table: t}]\n",
			want: "expect is required for final_state",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml), t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScenarioOptions_CompilerOptions(t *testing.T) {
	opts := ScenarioOptions{}.CompilerOptions()
	assert.Equal(t, compiler.DefaultOptions(), opts)

	opts = ScenarioOptions{EmptyCell: "-", Separators: "newline"}.CompilerOptions()
	assert.Equal(t, "-", opts.EmptyCell)
	assert.Equal(t, compiler.SeparatorNewline, opts.Separators)
}

func TestScenario_Resolve(t *testing.T) {
	s := &Scenario{Dir: "scenarios"}
	assert.Equal(t, filepath.Join("scenarios", "units", "a.yaml"), s.resolve("units/a.yaml"))
	assert.Equal(t, "/abs/a.yaml", s.resolve("/abs/a.yaml"))

	s.Dir = ""
	assert.Equal(t, "a.yaml", s.resolve("./a.yaml"))
}
