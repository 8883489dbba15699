package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/oracle"
	tu "github.com/roach88/agentmark/internal/testutil"
	"github.com/roach88/agentmark/internal/tree"
)

var statusOracle = &oracle.Static{
	Unions: map[string][]string{"Status": {"SUCCESS", "BLOCKED"}},
}

func agentWithStatus(children ...any) *tree.Node {
	n := tu.N("Agent", tu.A("name", "executor"), children...)
	n.TypeArgs = []string{"Status"}
	return n
}

func branch(status string) *tree.Node {
	return tu.N("StatusBranch", tu.A("status", status), "Report "+status+".")
}

// =============================================================================
// Contract ordering and uniqueness
// =============================================================================

func TestValidate_ContractOrder(t *testing.T) {
	doc := mustCompile(t, tu.N("Agent", tu.A("name", "a"),
		tu.N("Role", nil, "You execute plans."),
		tu.N("Paragraph", nil, "Free text between contracts is fine."),
		tu.N("UpstreamInput", nil, "A plan."),
		tu.N("DownstreamConsumer", nil, "The verifier."),
		tu.N("Methodology", nil, "Step by step."),
		tu.N("StatusCatalogue", nil, branch("DONE")),
	))
	assert.Len(t, doc.Children, 6)
}

func TestValidate_ContractOrderViolation(t *testing.T) {
	_, err := compileRoot(t, tu.N("Agent", tu.A("name", "a"),
		tu.N("Methodology", nil, "m"),
		tu.N("Role", nil, "r"),
	))
	ce := requireCode(t, err, ErrContractOrder)
	assert.Equal(t, "Role", ce.Node)
	assert.Contains(t, ce.Message, "Role must come before Methodology")
}

func TestValidate_ContractDuplicate(t *testing.T) {
	_, err := compileRoot(t, tu.N("Agent", tu.A("name", "a"),
		tu.N("Role", nil, "one"),
		tu.N("Role", nil, "two"),
	))
	ce := requireCode(t, err, ErrContractDuplicate)
	assert.Contains(t, ce.Message, "Role")
}

func TestValidate_DuplicateReportedBeforeOrder(t *testing.T) {
	_, err := compileRoot(t, tu.N("Agent", tu.A("name", "a"),
		tu.N("Methodology", nil, "m"),
		tu.N("Role", nil, "r"),
		tu.N("Methodology", nil, "again"),
	))
	requireCode(t, err, ErrContractDuplicate)
}

func TestValidate_ContractsInsideImports(t *testing.T) {
	res := tu.NewMemResolver()
	res.AddSource("units/contracts.yaml", "exports:\n  SharedRole:\n    - Role: [Shared role.]\n")

	unit := tu.Unit("units/a.yaml", tu.N("Agent", tu.A("name", "a"),
		tu.N("SharedRole", nil),
		tu.N("Role", nil, "Local role."),
	))
	unit.Imports = []tree.Import{{Name: "SharedRole", From: "./contracts.yaml", Export: "SharedRole"}}

	_, err := New(WithResolver(res)).Compile(unit)
	requireCode(t, err, ErrContractDuplicate)
}

// =============================================================================
// Placement
// =============================================================================

func TestValidate_BranchOutsideCatalogue(t *testing.T) {
	_, err := compileRoot(t, tu.N("Agent", tu.A("name", "a"), branch("DONE")))
	requireCode(t, err, ErrBranchOutsideCatalogue)

	_, err = compileRoot(t, tu.N("Agent", tu.A("name", "a"),
		tu.N("StatusCatalogue", nil, tu.N("Paragraph", nil, branch("DONE"))),
	))
	requireCode(t, err, ErrBranchOutsideCatalogue)
}

func TestValidate_EmptyCatalogue(t *testing.T) {
	_, err := compileRoot(t, tu.N("Agent", tu.A("name", "a"), tu.N("StatusCatalogue", nil, "\n")))
	requireCode(t, err, ErrEmptyCatalogue)
}

// =============================================================================
// Exhaustiveness
// =============================================================================

func TestValidate_Exhaustiveness(t *testing.T) {
	tests := []struct {
		name     string
		branches []string
		code     string
		contains string
	}{
		{"exact", []string{"SUCCESS", "BLOCKED"}, "", ""},
		{"any order", []string{"BLOCKED", "SUCCESS"}, "", ""},
		{"missing", []string{"SUCCESS"}, ErrStatusMissing, `"BLOCKED"`},
		{"extra", []string{"SUCCESS", "BLOCKED", "FAILED"}, ErrStatusExtra, `"FAILED"`},
		{"duplicate", []string{"SUCCESS", "SUCCESS", "BLOCKED"}, ErrStatusDuplicate, `"SUCCESS"`},
		{"duplicate wins over missing", []string{"SUCCESS", "SUCCESS"}, ErrStatusDuplicate, `"SUCCESS"`},
		{"missing wins over extra", []string{"SUCCESS", "FAILED"}, ErrStatusMissing, `"BLOCKED"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var children []any
			for _, b := range tt.branches {
				children = append(children, branch(b))
			}
			root := agentWithStatus(tu.N("StatusCatalogue", nil, children...))

			doc, err := compileRoot(t, root, WithOracle(statusOracle))
			if tt.code == "" {
				require.NoError(t, err)
				assert.Equal(t, "Status", doc.StatusType)
				assert.Equal(t, []string{"SUCCESS", "BLOCKED"}, doc.StatusMembers)
				return
			}
			ce := requireCode(t, err, tt.code)
			assert.Contains(t, ce.Message, tt.contains)
		})
	}
}

func TestValidate_StatusRequiresCatalogue(t *testing.T) {
	_, err := compileRoot(t, agentWithStatus(tu.N("Role", nil, "r")), WithOracle(statusOracle))
	ce := requireCode(t, err, ErrStatusMissing)
	assert.Contains(t, ce.Message, "no StatusCatalogue")
}

func TestValidate_UnknownTypeArgument(t *testing.T) {
	_, err := compileRoot(t, agentWithStatus(), WithOracle(oracle.Empty))
	requireCode(t, err, ErrShapeMismatch)
}

func TestValidateDocument_Direct(t *testing.T) {
	doc := &ir.Document{
		Name: "direct",
		Children: []ir.Node{
			&ir.StatusCatalogue{Children: []ir.Node{&ir.StatusBranch{Status: "OK"}}},
			&ir.Role{},
		},
	}
	requireCode(t, ValidateDocument(doc), ErrContractOrder)
}

func TestComponentName(t *testing.T) {
	assert.Equal(t, "UpstreamInput", componentName(ir.KindUpstreamInput))
	assert.Equal(t, "StatusCatalogue", componentName(ir.KindStatusCatalogue))
	assert.Equal(t, "Else", componentName(ir.KindElse))
}
