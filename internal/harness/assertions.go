package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Paths    []string // Emitted artifact paths for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Paths) > 0 {
		fmt.Fprintf(&buf, "\nArtifacts:\n")
		for i, p := range e.Paths {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, p)
		}
	}
	return buf.String()
}

// artifactFor finds the artifact an assertion names.
func artifactFor(result *Result, a Assertion) (ArtifactResult, error) {
	art, ok := result.Artifact(a.Path)
	if !ok {
		return ArtifactResult{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("artifact %s", a.Path),
			Actual:   "not emitted",
			Paths:    result.Paths(),
		}
	}
	return art, nil
}

func assertArtifactExists(result *Result, a Assertion) error {
	_, err := artifactFor(result, a)
	return err
}

// assertArtifactContains checks that the artifact contains the text, or
// does not when absent is set.
func assertArtifactContains(result *Result, a Assertion, absent bool) error {
	art, err := artifactFor(result, a)
	if err != nil {
		return err
	}
	found := strings.Contains(art.Content, a.Text)
	switch {
	case found && absent:
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s without %q", a.Path, a.Text),
			Actual:   fmt.Sprintf("found at line %d", lineOf(art.Content, a.Text)),
		}
	case !found && !absent:
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s containing %q", a.Path, a.Text),
			Actual:   "not found in:\n" + art.Content,
		}
	}
	return nil
}

// assertArtifactOrder checks that texts appear in the specified order.
// Other content may appear between them.
func assertArtifactOrder(result *Result, a Assertion) error {
	art, err := artifactFor(result, a)
	if err != nil {
		return err
	}

	rest := art.Content
	for i, text := range a.Texts {
		idx := strings.Index(rest, text)
		if idx < 0 {
			actual := "missing text: " + text
			if strings.Contains(art.Content, text) {
				actual = fmt.Sprintf("%q appears before %q", text, a.Texts[i-1])
			}
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("texts in order: %q", a.Texts),
				Actual:   actual,
			}
		}
		rest = rest[idx+len(text):]
	}
	return nil
}

// assertArtifactCount checks how many artifacts were emitted.
func assertArtifactCount(result *Result, a Assertion) error {
	if got := len(result.Artifacts); got != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d artifact(s)", a.Count),
			Actual:   fmt.Sprintf("%d artifact(s)", got),
			Paths:    result.Paths(),
		}
	}
	return nil
}

// assertCompileError checks the compile error's code, message and files.
func assertCompileError(result *Result, a Assertion) error {
	ce := result.CompileError
	if ce == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("compile error %s", a.Code),
			Actual:   "compilation succeeded",
			Paths:    result.Paths(),
		}
	}
	if a.Code != "" && ce.Code != a.Code {
		return &AssertionError{
			Type:     a.Type,
			Expected: "code " + a.Code,
			Actual:   fmt.Sprintf("code %q: %s", ce.Code, ce.Message),
		}
	}
	if a.Contains != "" && !strings.Contains(ce.Message, a.Contains) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("message containing %q", a.Contains),
			Actual:   ce.Message,
		}
	}
	for _, f := range a.Files {
		if !containsPathSuffix(ce.Files, f) {
			return &AssertionError{
				Type:     a.Type,
				Expected: "error naming " + f,
				Actual:   fmt.Sprintf("files %v", ce.Files),
			}
		}
	}
	return nil
}

// containsPathSuffix matches scenario-relative names against the resolved
// paths the compiler reports.
func containsPathSuffix(paths []string, name string) bool {
	for _, p := range paths {
		if p == name || strings.HasSuffix(p, "/"+name) {
			return true
		}
	}
	return false
}

func lineOf(content, text string) int {
	idx := strings.Index(content, text)
	if idx < 0 {
		return 0
	}
	return strings.Count(content[:idx], "\n") + 1
}

// assertFinalState queries the state table and checks the single matching
// row against the expected values.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if assertion.Table == "" {
		return fmt.Errorf("final_state assertion requires table name")
	}

	// Identifiers can't be parameterized
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	found, err := scanRows(rows)
	if err != nil {
		return fmt.Errorf("scan rows: %w", err)
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(found) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(found)),
		}
	}
	actualRow := found[0]

	// Subset semantics: only fields in Expect are checked
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in row %v", key, actualRow),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}
	return nil
}

// buildWhereClause constructs a parameterized WHERE clause.
// Keys are sorted for determinism and validated as identifiers.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		if !validIdentifier.MatchString(k) {
			return "", nil, fmt.Errorf("invalid column name %q: must match pattern %s", k, validIdentifier.String())
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		clauses[i] = k + " = ?"
		args[i] = toSQLValue(where[k])
	}
	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue stores booleans as 0/1 like the generated tables do.
func toSQLValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// formatWhereClause renders where for error messages, keys sorted.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(all rows)"
	}
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, where[k])
	}
	return strings.Join(parts, ", ")
}

// stateValuesEqual compares expected and actual values from state tables.
// SQLite returns integers as int64 and stores booleans as 0/1.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case ir.IRString:
		return stateValuesEqual(string(exp), actual)
	case ir.IRInt:
		return stateValuesEqual(int64(exp), actual)
	case ir.IRBool:
		return stateValuesEqual(bool(exp), actual)
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case []byte:
			return exp == string(act)
		}
		return false
	case int:
		return stateValuesEqual(int64(exp), actual)
	case int64:
		switch act := actual.(type) {
		case int64:
			return exp == act
		case int:
			return exp == int64(act)
		}
		return false
	case bool:
		switch act := actual.(type) {
		case bool:
			return exp == act
		case int64:
			return exp == (act != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertArtifactExists:
			err = assertArtifactExists(result, assertion)
		case AssertArtifactContains:
			err = assertArtifactContains(result, assertion, false)
		case AssertArtifactAbsent:
			err = assertArtifactContains(result, assertion, true)
		case AssertArtifactOrder:
			err = assertArtifactOrder(result, assertion)
		case AssertArtifactCount:
			err = assertArtifactCount(result, assertion)
		case AssertCompileError:
			err = assertCompileError(result, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
