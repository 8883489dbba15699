package stateir

// Statement is one SQL statement over a skill's state table.
//
// This is a sealed interface - only types in this package implement it.
type Statement interface {
	statementNode()
}

// Predicate is a row filter.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// ColumnType is the storage type of a column.
type ColumnType string

const (
	TypeText    ColumnType = "TEXT"
	TypeInteger ColumnType = "INTEGER"
)

// ColumnDef is one column of a state table.
type ColumnDef struct {
	Name       string
	Type       ColumnType
	NotNull    bool
	PrimaryKey bool
}

// CreateTable creates the state table when it does not exist yet.
type CreateTable struct {
	Table   string
	Columns []ColumnDef
}

func (CreateTable) statementNode() {}

// Select reads rows.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order>
//
// Columns must be explicit. OrderBy lists the columns rows are sorted by;
// the key column is always last so equal rows have a stable order.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate // nil = every row
	OrderBy []string
}

func (Select) statementNode() {}

// Upsert inserts a row or, when Key already exists, replaces its other
// columns.
type Upsert struct {
	Table   string
	Columns []string // Key included; one parameter per column, in order
	Key     string
}

func (Upsert) statementNode() {}

// Delete removes the rows matching Filter. A Delete without a filter is
// invalid.
type Delete struct {
	From   string
	Filter Predicate
}

func (Delete) statementNode() {}

// Equals compares a column with a named parameter.
//
//	<field> = ?
type Equals struct {
	Field string
	Param string
}

func (Equals) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Params returns the parameter names a statement binds, in placeholder
// order.
func Params(s Statement) []string {
	switch stmt := s.(type) {
	case Select:
		return predicateParams(stmt.Filter, nil)
	case Upsert:
		return append([]string(nil), stmt.Columns...)
	case Delete:
		return predicateParams(stmt.Filter, nil)
	default:
		return nil
	}
}

func predicateParams(p Predicate, out []string) []string {
	switch pred := p.(type) {
	case Equals:
		out = append(out, pred.Param)
	case And:
		for _, sub := range pred.Predicates {
			out = predicateParams(sub, out)
		}
	}
	return out
}
