package compiler

import (
	"path"
	"regexp"
	"slices"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/tree"
)

var columnTypes = []string{"string", "int", "bool"}

// identPattern restricts table, column and operation names to SQL and
// shell-safe identifiers.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// extractState pulls the State child out of a skill and compiles it. It
// returns the remaining children as the skill body.
func extractState(n *tree.Node, skill string, ctx Context) (*ir.StateSpec, []*tree.Node, error) {
	var stateNode *tree.Node
	body := make([]*tree.Node, 0, len(n.Children))
	for _, child := range n.Children {
		if child.Name != "State" {
			body = append(body, child)
			continue
		}
		if stateNode != nil {
			return nil, nil, newError(ErrInvalidNesting, child.Name, child.Pos,
				"skill %q declares State more than once", skill)
		}
		stateNode = child
	}
	if stateNode == nil {
		return nil, body, nil
	}
	spec, err := compileState(stateNode, skill, ctx)
	if err != nil {
		return nil, nil, err
	}
	return spec, body, nil
}

func compileState(n *tree.Node, skill string, ctx Context) (*ir.StateSpec, error) {
	r := readAttrs(n, ctx)
	spec := &ir.StateSpec{
		Table:    r.required("table"),
		Database: r.text("database"),
		Key:      r.text("key"),
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	if !identPattern.MatchString(spec.Table) {
		return nil, newError(ErrInvalidValue, n.Name, n.Pos, "table %q is not a valid identifier", spec.Table)
	}
	if spec.Database == "" {
		spec.Database = path.Join(".claude", "skills", skill, "state.db")
	}
	if spec.Key == "" {
		spec.Key = "id"
	}

	var custom []ir.StateOp
	for _, child := range n.Children {
		switch child.Name {
		case tree.TextName:
			if !child.IsWhitespace() {
				return nil, newError(ErrInvalidNesting, n.Name, child.Pos, "State accepts only Column and Operation children")
			}
		case "Column":
			col, err := stateColumn(child, ctx)
			if err != nil {
				return nil, err
			}
			if slices.ContainsFunc(spec.Columns, func(f ir.Field) bool { return f.Name == col.Name }) {
				return nil, newError(ErrInvalidValue, child.Name, child.Pos, "column %q declared twice", col.Name)
			}
			spec.Columns = append(spec.Columns, col)
		case "Operation":
			op, err := stateOperation(child, ctx)
			if err != nil {
				return nil, err
			}
			custom = append(custom, op)
		default:
			return nil, newError(ErrInvalidNesting, child.Name, child.Pos, "State accepts only Column and Operation children")
		}
	}

	keyIdx := slices.IndexFunc(spec.Columns, func(f ir.Field) bool { return f.Name == spec.Key })
	if keyIdx < 0 {
		return nil, newError(ErrInvalidValue, n.Name, n.Pos, "key column %q is not declared", spec.Key)
	}
	spec.Columns[keyIdx].Required = true

	spec.Operations = []ir.StateOp{
		{Name: string(ir.OpInit), Kind: ir.OpInit, Description: "Create the " + spec.Table + " table if it does not exist."},
		{Name: string(ir.OpRead), Kind: ir.OpRead, Description: "Read one row by " + spec.Key + "."},
		{Name: string(ir.OpWrite), Kind: ir.OpWrite, Description: "Insert or replace one row."},
		{Name: string(ir.OpDelete), Kind: ir.OpDelete, Description: "Delete one row by " + spec.Key + "."},
	}
	for _, op := range custom {
		if slices.ContainsFunc(spec.Operations, func(o ir.StateOp) bool { return o.Name == op.Name }) {
			return nil, newError(ErrInvalidValue, "Operation", n.Pos, "operation %q is already defined", op.Name)
		}
		for _, col := range op.Where {
			if !slices.ContainsFunc(spec.Columns, func(f ir.Field) bool { return f.Name == col }) {
				return nil, newError(ErrInvalidValue, "Operation", n.Pos,
					"operation %q filters on undeclared column %q", op.Name, col)
			}
		}
		spec.Operations = append(spec.Operations, op)
	}
	return spec, nil
}

func stateColumn(n *tree.Node, ctx Context) (ir.Field, error) {
	r := readAttrs(n, ctx)
	col := ir.Field{
		Name:     r.required("name"),
		Type:     r.text("type"),
		Required: r.boolean("required"),
	}
	if col.Type == "" {
		col.Type = "string"
	}
	r.oneOf("type", col.Type, columnTypes...)
	if r.Err() != nil {
		return ir.Field{}, r.Err()
	}
	if !identPattern.MatchString(col.Name) {
		return ir.Field{}, newError(ErrInvalidValue, n.Name, n.Pos, "column %q is not a valid identifier", col.Name)
	}
	return col, nil
}

func stateOperation(n *tree.Node, ctx Context) (ir.StateOp, error) {
	r := readAttrs(n, ctx)
	op := ir.StateOp{
		Name:        r.required("name"),
		Kind:        ir.OpCustom,
		Description: r.text("description"),
		Base:        ir.StateOpKind(r.text("base")),
		Where:       r.textList("where"),
	}
	if op.Base == "" {
		op.Base = ir.OpRead
	}
	r.oneOf("base", string(op.Base), string(ir.OpRead), string(ir.OpDelete))
	if r.Err() != nil {
		return ir.StateOp{}, r.Err()
	}
	if !identPattern.MatchString(op.Name) {
		return ir.StateOp{}, newError(ErrInvalidValue, n.Name, n.Pos, "operation %q is not a valid identifier", op.Name)
	}
	if op.Base == ir.OpDelete && len(op.Where) == 0 {
		return ir.StateOp{}, newError(ErrRequiredAttr, n.Name, n.Pos, "a delete operation needs at least one where column")
	}
	return op, nil
}
