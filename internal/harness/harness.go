package harness

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/agentmark/internal/compiler"
	"github.com/roach88/agentmark/internal/emit"
	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/oracle"
	"github.com/roach88/agentmark/internal/stateir"
	"github.com/roach88/agentmark/internal/statesql"
	"github.com/roach88/agentmark/internal/store"
	"github.com/roach88/agentmark/internal/testutil"
	"github.com/roach88/agentmark/internal/tree"
)

// Harness runs scenarios with a deterministic clock and build IDs.
type Harness struct {
	ledger *store.Store
	state  *store.Store
	log    *zap.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger sets the logger passed to the compiler.
func WithLogger(log *zap.Logger) Option {
	return func(h *Harness) { h.log = log }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against fresh in-memory databases: one ledger that
// records the build, and one holding the skill's state table.
//
// Execution flow:
// 1. Load types and build the unit resolver
// 2. Compile and emit the unit
// 3. Record the build in the ledger
// 4. Execute state steps against the compiled skill
// 5. Evaluate assertions
//
// An error is returned only when the scenario itself cannot run (bad
// types file, database failure). Compile errors are results.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	ledger, err := store.Open(":memory:",
		store.WithClock(testutil.NewDeterministicClock()),
		store.WithIDGenerator(testutil.NewSequentialIDGenerator("build")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory ledger: %w", err)
	}
	defer ledger.Close()

	state, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory state database: %w", err)
	}
	defer state.Close()

	h := &Harness{ledger: ledger, state: state, log: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	types, err := loadTypes(scenario)
	if err != nil {
		return nil, err
	}
	resolver, err := newScenarioResolver(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	doc := h.compile(scenario, types, resolver, result)

	if doc != nil && len(result.Artifacts) > 0 {
		if err := h.recordBuild(ctx, doc, result); err != nil {
			return nil, err
		}
	}

	if len(scenario.State) > 0 {
		if doc == nil || doc.State == nil {
			result.AddError("state steps need a skill that declares State")
		} else {
			h.executeState(ctx, doc.State, scenario.State, result)
		}
	}

	actx := &AssertionContext{Store: h.state, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	// An unexpected compile error fails the scenario even when no
	// assertion looked at it.
	if result.CompileError != nil && !slices.ContainsFunc(scenario.Assertions, func(a Assertion) bool {
		return a.Type == AssertCompileError
	}) {
		result.AddError(fmt.Sprintf("unexpected compile error: %s", result.CompileError.Message))
	}
	return result, nil
}

// compile compiles and emits the scenario's unit. Failures are recorded
// on result and yield a nil document.
func (h *Harness) compile(scenario *Scenario, types oracle.Oracle, resolver compiler.Resolver, result *Result) *ir.Document {
	unit, err := resolver.LoadUnit(scenario.resolve(scenario.Unit))
	if err != nil {
		result.CompileError = errorResult(err)
		return nil
	}

	c := compiler.New(
		compiler.WithOracle(types),
		compiler.WithResolver(resolver),
		compiler.WithOptions(scenario.Options.CompilerOptions()),
		compiler.WithLogger(h.log),
	)
	doc, err := c.Compile(unit)
	if err != nil {
		result.CompileError = errorResult(err)
		return nil
	}

	artifacts, err := emit.Artifacts(doc)
	if err != nil {
		result.CompileError = errorResult(err)
		return nil
	}
	for _, a := range artifacts {
		result.Artifacts = append(result.Artifacts, ArtifactResult{
			Path:       a.Path,
			Hash:       ir.ArtifactHash(a.Path, a.Content),
			Executable: a.Executable,
			Content:    a.Content,
		})
	}
	slices.SortFunc(result.Artifacts, func(a, b ArtifactResult) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return doc
}

func (h *Harness) recordBuild(ctx context.Context, doc *ir.Document, result *Result) error {
	source := doc.Source
	srcHash := ""
	if data, err := os.ReadFile(source); err == nil {
		srcHash = ir.SourceHash(data)
	}

	records := make([]store.ArtifactRecord, len(result.Artifacts))
	for i, a := range result.Artifacts {
		records[i] = store.ArtifactRecord{
			Path:        a.Path,
			Source:      filepath.ToSlash(source),
			SourceHash:  srcHash,
			ContentHash: a.Hash,
		}
	}
	build, err := h.ledger.RecordBuild(ctx, records)
	if err != nil {
		return fmt.Errorf("failed to record build: %w", err)
	}
	result.BuildHash = build.Hash
	return nil
}

// executeState runs each step's statement against the state database and
// appends it to the result's step trace.
func (h *Harness) executeState(ctx context.Context, spec *ir.StateSpec, steps []StateStep, result *Result) {
	sqlc := statesql.NewSQLCompiler()
	for i, step := range steps {
		event := StepEvent{Seq: i + 1, Op: step.Op}
		err := h.executeStep(ctx, sqlc, spec, step, &event)
		if err != nil {
			event.Err = err.Error()
		}
		result.Steps = append(result.Steps, event)

		switch {
		case err != nil && !step.ExpectError:
			result.AddError(fmt.Sprintf("state[%d] %s: %v", i, step.Op, err))
		case err == nil && step.ExpectError:
			result.AddError(fmt.Sprintf("state[%d] %s: expected an error, got none", i, step.Op))
		}
	}
}

func (h *Harness) executeStep(ctx context.Context, sqlc *statesql.SQLCompiler, spec *ir.StateSpec, step StateStep, event *StepEvent) error {
	i := slices.IndexFunc(spec.Operations, func(op ir.StateOp) bool { return op.Name == step.Op })
	if i < 0 {
		return errors.Newf("skill has no operation %q", step.Op)
	}
	stmt, err := stateir.FromSpec(spec, spec.Operations[i])
	if err != nil {
		return err
	}
	query, params, err := sqlc.Compile(stmt)
	if err != nil {
		return err
	}
	event.SQL = query

	args := make([]any, len(params))
	for j, p := range params {
		raw, ok := step.Args[p]
		if !ok {
			continue
		}
		v, err := convertToIRValue(raw)
		if err != nil {
			return errors.Wrapf(err, "arg %s", p)
		}
		if args[j], err = statesql.ParamValue(v); err != nil {
			return errors.Wrapf(err, "arg %s", p)
		}
	}

	db := h.state.DB()
	if _, isSelect := stmt.(stateir.Select); isSelect {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		event.Rows, err = scanRows(rows)
		return err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	event.Affected, _ = res.RowsAffected()
	return nil
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// loadTypes builds the oracle from the scenario's .cue files.
func loadTypes(scenario *Scenario) (oracle.Oracle, error) {
	if len(scenario.Types) == 0 {
		return oracle.Empty, nil
	}
	paths := make([]string, len(scenario.Types))
	for i, p := range scenario.Types {
		paths[i] = scenario.resolve(p)
	}
	types, err := oracle.LoadCUE(paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load types: %w", err)
	}
	return types, nil
}

// scenarioResolver serves the scenario's inline files and falls back to
// disk.
type scenarioResolver struct {
	mem  *testutil.MemResolver
	disk compiler.FileResolver
}

func newScenarioResolver(scenario *Scenario) (*scenarioResolver, error) {
	mem := testutil.NewMemResolver()
	names := make([]string, 0, len(scenario.Files))
	for name := range scenario.Files {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		path := scenario.resolve(name)
		unit, err := tree.Parse(path, []byte(scenario.Files[name]))
		if err != nil {
			return nil, fmt.Errorf("failed to parse inline unit %s: %w", name, err)
		}
		mem.Add(unit)
	}
	return &scenarioResolver{mem: mem}, nil
}

func (r *scenarioResolver) LoadUnit(path string) (*tree.Unit, error) {
	unit, err := r.mem.LoadUnit(path)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return unit, err
	}
	return r.disk.LoadUnit(path)
}

func errorResult(err error) *ErrorResult {
	if ce, ok := compiler.AsCompileError(err); ok {
		return &ErrorResult{Code: ce.Code, Message: ce.Error(), Files: ce.Files}
	}
	return &ErrorResult{Message: err.Error()}
}

// convertToIRValue converts a YAML-parsed value to an IRValue.
func convertToIRValue(val any) (ir.IRValue, error) {
	switch v := val.(type) {
	case nil:
		return ir.IRNull{}, nil
	case string:
		return ir.IRString(v), nil
	case int:
		return ir.IRInt(int64(v)), nil
	case int64:
		return ir.IRInt(v), nil
	case float64:
		// Floats are rejected so every value is exact.
		if v == float64(int64(v)) {
			return ir.IRInt(int64(v)), nil
		}
		return nil, fmt.Errorf("floats are not supported: %v", v)
	case bool:
		return ir.IRBool(v), nil
	case []any:
		arr := make(ir.IRArray, len(v))
		for i, elem := range v {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		obj := make(ir.IRObject, 0, len(v))
		for _, k := range keys {
			irVal, err := convertToIRValue(v[k])
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			obj = append(obj, ir.O(k, irVal))
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}
