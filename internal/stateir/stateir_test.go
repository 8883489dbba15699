package stateir

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agentmark/internal/ir"
)

func notesSpec() *ir.StateSpec {
	return &ir.StateSpec{
		Table:    "notes",
		Database: ".claude/skills/notes/state.db",
		Key:      "id",
		Columns: []ir.Field{
			{Name: "id", Type: "string", Required: true},
			{Name: "body", Type: "string", Required: true},
			{Name: "pinned", Type: "bool"},
			{Name: "topic", Type: "string"},
		},
	}
}

// =============================================================================
// FromSpec
// =============================================================================

func TestFromSpec_StandardOperations(t *testing.T) {
	spec := notesSpec()
	all := []string{"id", "body", "pinned", "topic"}

	tests := []struct {
		name string
		op   ir.StateOp
		want Statement
	}{
		{
			name: "init",
			op:   ir.StateOp{Name: "init", Kind: ir.OpInit},
			want: CreateTable{Table: "notes", Columns: []ColumnDef{
				{Name: "id", Type: TypeText, NotNull: true, PrimaryKey: true},
				{Name: "body", Type: TypeText, NotNull: true},
				{Name: "pinned", Type: TypeInteger},
				{Name: "topic", Type: TypeText},
			}},
		},
		{
			name: "read",
			op:   ir.StateOp{Name: "read", Kind: ir.OpRead},
			want: Select{From: "notes", Columns: all, Filter: Equals{Field: "id", Param: "id"}, OrderBy: []string{"id"}},
		},
		{
			name: "write",
			op:   ir.StateOp{Name: "write", Kind: ir.OpWrite},
			want: Upsert{Table: "notes", Columns: all, Key: "id"},
		},
		{
			name: "delete",
			op:   ir.StateOp{Name: "delete", Kind: ir.OpDelete},
			want: Delete{From: "notes", Filter: Equals{Field: "id", Param: "id"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromSpec(spec, tt.op)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FromSpec mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFromSpec_CustomOperations(t *testing.T) {
	spec := notesSpec()

	list, err := FromSpec(spec, ir.StateOp{Name: "list", Kind: ir.OpCustom, Base: ir.OpRead})
	require.NoError(t, err)
	sel, ok := list.(Select)
	require.True(t, ok)
	assert.Nil(t, sel.Filter, "custom read without where lists every row")
	assert.Equal(t, []string{"id"}, sel.OrderBy)

	byTopic, err := FromSpec(spec, ir.StateOp{Name: "by_topic", Kind: ir.OpCustom, Base: ir.OpRead, Where: []string{"topic", "pinned"}})
	require.NoError(t, err)
	assert.Equal(t, And{Predicates: []Predicate{
		Equals{Field: "topic", Param: "topic"},
		Equals{Field: "pinned", Param: "pinned"},
	}}, byTopic.(Select).Filter)
	assert.Equal(t, []string{"topic", "pinned"}, Params(byTopic))

	purge, err := FromSpec(spec, ir.StateOp{Name: "purge", Kind: ir.OpCustom, Base: ir.OpDelete, Where: []string{"topic"}})
	require.NoError(t, err)
	assert.Equal(t, Delete{From: "notes", Filter: Equals{Field: "topic", Param: "topic"}}, purge)
}

func TestFromSpec_Errors(t *testing.T) {
	spec := notesSpec()

	_, err := FromSpec(nil, ir.StateOp{Kind: ir.OpRead})
	require.Error(t, err)

	_, err = FromSpec(spec, ir.StateOp{Name: "purge_all", Kind: ir.OpCustom, Base: ir.OpDelete})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidStatement))
	assert.Contains(t, err.Error(), `operation "purge_all"`)
	assert.Contains(t, err.Error(), "has no filter")

	_, err = FromSpec(spec, ir.StateOp{Name: "odd", Kind: ir.OpCustom, Base: ir.OpWrite})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported base")

	bad := notesSpec()
	bad.Columns[2].Type = "float"
	_, err = FromSpec(bad, ir.StateOp{Name: "init", Kind: ir.OpInit})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported type "float"`)
}

// =============================================================================
// Params
// =============================================================================

func TestParams(t *testing.T) {
	assert.Nil(t, Params(CreateTable{Table: "t"}))
	assert.Equal(t, []string{"id", "body"}, Params(Upsert{Table: "t", Columns: []string{"id", "body"}, Key: "id"}))
	assert.Equal(t, []string{"id"}, Params(Delete{From: "t", Filter: Equals{Field: "id", Param: "id"}}))
	assert.Empty(t, Params(Select{From: "t", Columns: []string{"id"}}))
}

// =============================================================================
// Validate
// =============================================================================

func TestValidate(t *testing.T) {
	cols := []string{"id", "body"}

	tests := []struct {
		name    string
		stmt    Statement
		wantErr string
	}{
		{"valid select", Select{From: "t", Columns: cols, Filter: Equals{Field: "id", Param: "id"}}, ""},
		{"select star", Select{From: "t"}, "lists no columns"},
		{"unknown column", Select{From: "t", Columns: []string{"nope"}}, `unknown column "nope"`},
		{"unknown filter column", Select{From: "t", Columns: cols, Filter: Equals{Field: "x", Param: "x"}}, `unknown column "x"`},
		{"missing param", Select{From: "t", Columns: cols, Filter: Equals{Field: "id"}}, "has no parameter"},
		{"delete without filter", Delete{From: "t"}, "has no filter"},
		{"delete with empty and", Delete{From: "t", Filter: And{}}, "has no filter"},
		{"upsert without key", Upsert{Table: "t", Columns: []string{"body"}, Key: "id"}, "does not write key"},
		{"no primary key", CreateTable{Table: "t", Columns: []ColumnDef{{Name: "id", Type: TypeText}}}, "exactly one primary key"},
		{"nil", nil, "nil statement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.stmt, cols)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidStatement))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStatement_SealedSwitch(t *testing.T) {
	stmts := []Statement{CreateTable{}, Select{}, Upsert{}, Delete{}}
	for _, s := range stmts {
		switch s.(type) {
		case CreateTable, Select, Upsert, Delete:
		default:
			t.Fatalf("unexpected statement %T", s)
		}
	}
}
