package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agentmark/internal/config"
)

const helloUnit = `root:
  Command:
    name: hello
    description: Say hello
    allowedTools: [Read, Bash]
    children:
      - Heading: {level: 1, children: [Hello]}
      - Paragraph: Greet the user.
`

const notesUnit = `root:
  Skill:
    name: notes
    description: Keep notes between sessions
    children:
      - State:
          table: notes
          children:
            - Column: {name: id}
            - Column: {name: body, required: true}
      - Paragraph: Store notes between sessions.
`

// writeFile writes content to dir/name, creating parent directories.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testRootOptions returns options whose output directory and ledger live
// in a fresh temp directory.
func testRootOptions(t *testing.T, format string) (*RootOptions, string) {
	t.Helper()
	dir := t.TempDir()
	return &RootOptions{
		Format: format,
		Config: &config.Config{
			OutDir:     filepath.Join(dir, "out"),
			Separators: "whitespace",
			Ledger:     filepath.Join(dir, "ledger.db"),
		},
	}, dir
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "agentmark", cmd.Use)
	assert.Contains(t, cmd.Long, "Markdown")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "preview", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	outFlag := compileCmd.Flags().Lookup("out")
	require.NotNil(t, outFlag)
	assert.Equal(t, "o", outFlag.Shorthand)
	assert.NotNil(t, compileCmd.Flags().Lookup("force"))
	assert.NotNil(t, compileCmd.Flags().Lookup("no-ledger"))
}

func TestPreviewCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	previewCmd, _, err := cmd.Find([]string{"preview"})
	require.NoError(t, err)

	styleFlag := previewCmd.Flags().Lookup("style")
	require.NotNil(t, styleFlag)
	assert.Equal(t, "auto", styleFlag.DefValue)
	assert.NotNil(t, previewCmd.Flags().Lookup("raw"))
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
	assert.Equal(t, "", filterFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "validate", "."})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	unit := writeFile(t, dir, "units/hello.yaml", helloUnit)
	cfgPath := writeFile(t, dir, "agentmark.yaml",
		"out_dir: "+filepath.Join(dir, "out")+"\nledger: "+filepath.Join(dir, "ledger.db")+"\n")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "compile", unit})

	require.NoError(t, cmd.Execute())
	assert.FileExists(t, filepath.Join(dir, "out", ".claude", "commands", "hello.md"))
	assert.FileExists(t, filepath.Join(dir, "ledger.db"))
}

func TestRootCommand_BadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "agentmark.yaml", "separators: commas\n")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--config", cfgPath, "validate", dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "load config")
}
