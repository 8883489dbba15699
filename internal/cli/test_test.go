package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: hello_command
description: A command emits its heading
unit: units/hello.yaml
assertions:
  - type: artifact_count
    count: 1
  - type: artifact_contains
    path: .claude/commands/hello.md
    text: "# Hello"
`

const failingScenario = `name: wrong_count
description: Expects too many artifacts
unit: units/hello.yaml
assertions:
  - type: artifact_count
    count: 3
`

func scenariosDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "units/hello.yaml", helloUnit)
	for name, content := range scenarios {
		writeFile(t, dir, name, content)
	}
	return dir
}

func runTestCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	opts, _ := testRootOptions(t, "text")
	_, err := runTestCmd(t, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	opts, _ := testRootOptions(t, "text")
	_, err := runTestCmd(t, opts, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	opts, _ := testRootOptions(t, "text")
	output, err := runTestCmd(t, opts, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "No scenarios found.")
}

func TestTestCommandPassing(t *testing.T) {
	opts, _ := testRootOptions(t, "text")
	dir := scenariosDir(t, map[string]string{"hello.yaml": passingScenario})

	output, err := runTestCmd(t, opts, dir)
	require.NoError(t, err)
	assert.Contains(t, output, "\u2713 hello_command")
	assert.Contains(t, output, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, output, "\u2713 All scenarios passed")
}

func TestTestCommandFailing(t *testing.T) {
	opts, _ := testRootOptions(t, "text")
	dir := scenariosDir(t, map[string]string{
		"hello.yaml": passingScenario,
		"wrong.yaml": failingScenario,
	})

	output, err := runTestCmd(t, opts, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "\u2717 wrong_count")
	assert.Contains(t, output, "Expected: 3 artifact(s)")
	assert.Contains(t, output, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	opts, _ := testRootOptions(t, "text")
	dir := scenariosDir(t, map[string]string{
		"hello.yaml": passingScenario,
		"wrong.yaml": failingScenario,
	})

	output, err := runTestCmd(t, opts, dir, "--filter", "hel*")
	require.NoError(t, err)
	assert.Contains(t, output, "1 total")
	assert.NotContains(t, output, "wrong_count")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	opts, _ := testRootOptions(t, "text")
	dir := scenariosDir(t, map[string]string{"broken.yaml": "name: broken\n"})

	output, err := runTestCmd(t, opts, dir)
	require.Error(t, err)
	assert.Contains(t, output, "\u2717 broken")
	assert.Contains(t, output, "failed to load scenario")
}

func TestTestCommandGolden(t *testing.T) {
	opts, _ := testRootOptions(t, "text")
	dir := scenariosDir(t, map[string]string{"hello.yaml": passingScenario})
	goldenPath := filepath.Join(dir, "golden", "hello.golden")

	output, err := runTestCmd(t, opts, dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, output, "(golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), "==> .claude/commands/hello.md <==\n---\nname: hello\n")

	_, err = runTestCmd(t, opts, dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte("stale\n"), 0o644))
	output, err = runTestCmd(t, opts, dir)
	require.Error(t, err)
	assert.Contains(t, output, "do not match golden file")
}

func TestTestCommandJSON(t *testing.T) {
	opts, _ := testRootOptions(t, "json")
	dir := scenariosDir(t, map[string]string{
		"hello.yaml": passingScenario,
		"wrong.yaml": failingScenario,
	})

	output, err := runTestCmd(t, opts, dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.NotEmpty(t, resp.Data.Scenarios[0].BuildHash)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := scenariosDir(t, map[string]string{
		"a.yaml":           passingScenario,
		"b.yml":            passingScenario,
		"notes.md":         "ignored",
		"golden/a.golden":  "ignored",
		"nested/deep.yaml": passingScenario,
	})

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yml")}, files)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "hello.golden"), goldenFilePath(filepath.Join("scenarios", "hello.yaml")))
}
