package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agentmark/internal/emit"
)

func runPreviewCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewPreviewCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestPreview_Raw(t *testing.T) {
	opts, dir := testRootOptions(t, "text")
	unit := writeFile(t, dir, "hello.yaml", helloUnit)

	output, err := runPreviewCmd(t, opts, unit, "--raw")
	require.NoError(t, err)
	assert.Equal(t, `==> .claude/commands/hello.md <==
---
name: hello
description: Say hello
allowed-tools:
  - Read
  - Bash
---

# Hello

Greet the user.
`, output)
}

func TestPreview_Rendered(t *testing.T) {
	opts, dir := testRootOptions(t, "text")
	unit := writeFile(t, dir, "hello.yaml", helloUnit)

	output, err := runPreviewCmd(t, opts, unit, "--style", "notty", "--width", "60")
	require.NoError(t, err)
	assert.Contains(t, output, "==> .claude/commands/hello.md <==")
	assert.Contains(t, output, "Hello")
	assert.Contains(t, output, "Greet the user.")
}

func TestPreview_SkillJSON(t *testing.T) {
	opts, dir := testRootOptions(t, "json")
	unit := writeFile(t, dir, "notes.yaml", notesUnit)

	output, err := runPreviewCmd(t, opts, unit)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   []PreviewArtifact `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, ".claude/skills/notes/SKILL.md", resp.Data[0].Path)
	for _, a := range resp.Data[1:] {
		assert.Contains(t, a.Markdown, "```bash\n#!")
	}
	assert.NoDirExists(t, opts.Config.OutDir)
}

func TestPreview_CompileError(t *testing.T) {
	opts, dir := testRootOptions(t, "text")
	unit := writeFile(t, dir, "bad.yaml", "root:\n  Command:\n    description: no name\n")

	output, err := runPreviewCmd(t, opts, unit)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "[E201]")
}

func TestPreviewMarkdown(t *testing.T) {
	assert.Equal(t, "# A\n", previewMarkdown(emit.Artifact{Path: "a.md", Content: "# A\n"}))
	assert.Equal(t, "```bash\n#!/bin/sh\necho\n```\n",
		previewMarkdown(emit.Artifact{Path: "s/init.sh", Content: "#!/bin/sh\necho\n", Executable: true}))
}
