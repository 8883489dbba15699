package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as text for golden comparison: each artifact
// under a "==> path <==" header in path order, or the compile error.
func Snapshot(result *Result) []byte {
	var b strings.Builder
	if ce := result.CompileError; ce != nil {
		fmt.Fprintf(&b, "==> error <==\n")
		if ce.Code != "" {
			fmt.Fprintf(&b, "code: %s\n", ce.Code)
		}
		fmt.Fprintf(&b, "%s\n", ce.Message)
		return []byte(b.String())
	}
	for i, a := range result.Artifacts {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "==> %s <==\n", a.Path)
		b.WriteString(a.Content)
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check assertions too. Test failure
// (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result's snapshot against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result))
}
