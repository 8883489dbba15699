package harness

import "slices"

// ArtifactResult is one file a scenario's compilation produced.
type ArtifactResult struct {
	Path       string `json:"path"`
	Hash       string `json:"hash"`
	Executable bool   `json:"executable,omitempty"`
	Content    string `json:"-"`
}

// ErrorResult describes the compile error a scenario stopped on.
type ErrorResult struct {
	Code    string   `json:"code,omitempty"` // "E253"; empty for non-compile failures
	Message string   `json:"message"`
	Files   []string `json:"files,omitempty"`
}

// StepEvent records one state step in execution order.
type StepEvent struct {
	Seq      int              `json:"seq"`
	Op       string           `json:"op"`
	SQL      string           `json:"sql"`
	Rows     []map[string]any `json:"rows,omitempty"`
	Affected int64            `json:"affected"`
	Err      string           `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Artifacts are the emitted files in path order. Empty when
	// compilation failed.
	Artifacts []ArtifactResult `json:"artifacts"`

	// BuildHash covers every artifact path and content hash, as recorded
	// in the ledger.
	BuildHash string `json:"build_hash,omitempty"`

	// CompileError is set when compilation or emission failed.
	CompileError *ErrorResult `json:"compile_error,omitempty"`

	// Steps traces the state steps that ran against the skill's table.
	Steps []StepEvent `json:"steps,omitempty"`

	// Errors holds assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Artifacts: []ArtifactResult{},
		Errors:    []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Artifact returns the artifact written to path.
func (r *Result) Artifact(path string) (ArtifactResult, bool) {
	i := slices.IndexFunc(r.Artifacts, func(a ArtifactResult) bool { return a.Path == path })
	if i < 0 {
		return ArtifactResult{}, false
	}
	return r.Artifacts[i], true
}

// Paths lists the artifact paths in order.
func (r *Result) Paths() []string {
	paths := make([]string, len(r.Artifacts))
	for i, a := range r.Artifacts {
		paths[i] = a.Path
	}
	return paths
}
