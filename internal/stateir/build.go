package stateir

import (
	"github.com/cockroachdb/errors"

	"github.com/roach88/agentmark/internal/ir"
)

// columnTypes maps declared column types to storage types. Booleans are
// stored as 0/1 integers.
var columnTypes = map[string]ColumnType{
	"string": TypeText,
	"int":    TypeInteger,
	"bool":   TypeInteger,
}

// StorageType returns the storage type for a declared column type.
func StorageType(declared string) (ColumnType, bool) {
	t, ok := columnTypes[declared]
	return t, ok
}

// FromSpec builds the statement that implements op over spec's table.
//
// Standard operations address one row by the key column. Custom operations
// filter on their where columns; a custom read with no where columns lists
// every row.
func FromSpec(spec *ir.StateSpec, op ir.StateOp) (Statement, error) {
	if spec == nil {
		return nil, errors.New("state spec is nil")
	}
	names := columnNames(spec.Columns)

	var stmt Statement
	switch op.Kind {
	case ir.OpInit:
		create := CreateTable{Table: spec.Table}
		for _, col := range spec.Columns {
			typ, ok := StorageType(col.Type)
			if !ok {
				return nil, errors.Newf("column %q has unsupported type %q", col.Name, col.Type)
			}
			create.Columns = append(create.Columns, ColumnDef{
				Name:       col.Name,
				Type:       typ,
				NotNull:    col.Required,
				PrimaryKey: col.Name == spec.Key,
			})
		}
		stmt = create
	case ir.OpRead:
		stmt = Select{From: spec.Table, Columns: names, Filter: keyFilter(spec.Key), OrderBy: []string{spec.Key}}
	case ir.OpWrite:
		stmt = Upsert{Table: spec.Table, Columns: names, Key: spec.Key}
	case ir.OpDelete:
		stmt = Delete{From: spec.Table, Filter: keyFilter(spec.Key)}
	case ir.OpCustom:
		filter := whereFilter(op.Where)
		switch op.Base {
		case ir.OpRead, "":
			stmt = Select{From: spec.Table, Columns: names, Filter: filter, OrderBy: []string{spec.Key}}
		case ir.OpDelete:
			stmt = Delete{From: spec.Table, Filter: filter}
		default:
			return nil, errors.Newf("operation %q has unsupported base %q", op.Name, op.Base)
		}
	default:
		return nil, errors.Newf("operation %q has unknown kind %q", op.Name, op.Kind)
	}

	if err := Validate(stmt, names); err != nil {
		return nil, errors.Wrapf(err, "operation %q", op.Name)
	}
	return stmt, nil
}

func columnNames(cols []ir.Field) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func keyFilter(key string) Predicate {
	return Equals{Field: key, Param: key}
}

func whereFilter(cols []string) Predicate {
	switch len(cols) {
	case 0:
		return nil
	case 1:
		return Equals{Field: cols[0], Param: cols[0]}
	}
	and := And{}
	for _, c := range cols {
		and.Predicates = append(and.Predicates, Equals{Field: c, Param: c})
	}
	return and
}
