// Command agentmark compiles agent instruction units to Markdown.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/agentmark/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands print their own report to stdout; this is the summary.
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
