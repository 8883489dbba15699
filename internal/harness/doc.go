// Package harness runs conformance scenarios against the compiler.
//
// A scenario compiles one unit and checks what came out: the emitted
// artifacts, the compile error, or the rows a compiled skill's state
// operations leave behind.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: table_empty_cell
//	description: "Null cells render as the configured empty-cell text"
//	unit: report.yaml
//	files:
//	  report.yaml: |
//	    root:
//	      Command:
//	        name: report
//	        children:
//	          - Table: {headers: [Name, Owner], rows: [[api, null]]}
//	options:
//	  empty_cell: "-"
//	assertions:
//	  - type: artifact_contains
//	    path: .claude/commands/report.md
//	    text: "| api | - |"
//
// Units come from the inline files map first and from disk, relative to
// the scenario file, otherwise. Types name .cue files for the type oracle.
//
// # Assertion Types
//
//   - artifact_exists: an artifact was emitted at path
//   - artifact_contains / artifact_absent: the artifact does (not) contain text
//   - artifact_order: texts appear in the artifact in order
//   - artifact_count: exactly count artifacts were emitted
//   - compile_error: compilation failed with code, message and files
//   - final_state: after the state steps, table has one row matching where
//
// # State Steps
//
// For skills that declare State, steps run operations in order against a
// fresh in-memory SQLite database using the same SQL the generated scripts
// embed:
//
//	state:
//	  - op: init
//	  - op: write
//	    args: {id: n1, body: hello}
//	  - op: write
//	    args: {id: n2}
//	    expect_error: true
//
// # Deterministic Testing
//
// Every run records its build in an in-memory ledger with a deterministic
// clock and sequential build IDs, so results and golden snapshots are
// identical across runs.
package harness
