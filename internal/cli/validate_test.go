package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runValidateCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidate_Valid(t *testing.T) {
	opts, dir := testRootOptions(t, "text")
	writeFile(t, dir, "hello.yaml", helloUnit)
	writeFile(t, dir, "notes.yaml", notesUnit)

	output, err := runValidateCmd(t, opts, dir)
	require.NoError(t, err)
	assert.Equal(t, "\u2713 All 2 unit(s) valid\n", output)
	assert.NoDirExists(t, filepath.Join(dir, "out"))
	assert.NoFileExists(t, opts.Config.Ledger)
}

func TestValidate_ValidJSON(t *testing.T) {
	opts, dir := testRootOptions(t, "json")
	writeFile(t, dir, "hello.yaml", helloUnit)

	output, err := runValidateCmd(t, opts, dir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Units)
}

func TestValidate_ReportsEveryCycle(t *testing.T) {
	opts, dir := testRootOptions(t, "text")
	writeFile(t, dir, "a.yaml", "imports:\n  - {name: B, from: ./b.yaml}\nexports:\n  A:\n    - B: null\n")
	writeFile(t, dir, "b.yaml", "imports:\n  - {name: A, from: ./a.yaml}\nexports:\n  B:\n    - A: null\n")
	writeFile(t, dir, "c.yaml", "imports:\n  - {name: C, from: ./c.yaml}\nexports:\n  C:\n    - Paragraph: self\n")
	writeFile(t, dir, "hello.yaml", helloUnit)

	output, err := runValidateCmd(t, opts, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "\u2717 Validation failed")
	assert.Contains(t, output, "Import cycles:")
	assert.Contains(t, output, filepath.Join(dir, "a.yaml")+" -> "+filepath.Join(dir, "b.yaml"))
	assert.Contains(t, output, filepath.Join(dir, "c.yaml")+" -> "+filepath.Join(dir, "c.yaml"))
}

func TestValidate_CompileErrorsJSON(t *testing.T) {
	opts, dir := testRootOptions(t, "json")
	writeFile(t, dir, "bad.yaml", "root:\n  Command:\n    description: no name\n")
	writeFile(t, dir, "hello.yaml", helloUnit)

	output, err := runValidateCmd(t, opts, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Units)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "E201", resp.Error.Code)
}

func TestValidate_SyntaxErrorCollected(t *testing.T) {
	opts, dir := testRootOptions(t, "text")
	writeFile(t, dir, "bad.yaml", "- not a mapping\n")
	writeFile(t, dir, "hello.yaml", helloUnit)

	output, err := runValidateCmd(t, opts, dir)
	require.Error(t, err)
	assert.Contains(t, output, "E004:")
	assert.Contains(t, output, "unit must be a mapping")
}

func TestValidate_NoFiles(t *testing.T) {
	opts, dir := testRootOptions(t, "text")

	output, err := runValidateCmd(t, opts, dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "Error [E003]")
}
