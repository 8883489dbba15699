package statesql

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/stateir"
)

// SQLCompiler compiles state statements to parameterized SQLite SQL.
//
// Every SELECT ends with ORDER BY ... COLLATE BINARY so scripts print rows
// in the same order on every machine. Values are never interpolated: the
// returned parameter names line up with the ? placeholders.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a statement to SQL. It returns the SQL text and the
// parameter names in placeholder order.
func (c *SQLCompiler) Compile(s stateir.Statement) (string, []string, error) {
	switch stmt := s.(type) {
	case nil:
		return "", nil, errors.New("cannot compile nil statement")
	case stateir.CreateTable:
		return c.compileCreate(stmt)
	case stateir.Select:
		return c.compileSelect(stmt)
	case stateir.Upsert:
		return c.compileUpsert(stmt)
	case stateir.Delete:
		return c.compileDelete(stmt)
	default:
		return "", nil, errors.Newf("unsupported statement type: %T", s)
	}
}

// compileCreate renders a CREATE TABLE IF NOT EXISTS.
func (c *SQLCompiler) compileCreate(t stateir.CreateTable) (string, []string, error) {
	if len(t.Columns) == 0 {
		return "", nil, errors.Newf("table %q has no columns", t.Table)
	}
	defs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		def := col.Name + " " + string(col.Type)
		if col.NotNull {
			def += " NOT NULL"
		}
		if col.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.Table, strings.Join(defs, ", ")), nil, nil
}

// compileSelect renders a SELECT. ORDER BY is mandatory.
func (c *SQLCompiler) compileSelect(q stateir.Select) (string, []string, error) {
	if len(q.Columns) == 0 {
		return "", nil, errors.Newf("select from %q lists no columns", q.From)
	}

	var whereClause string
	var params []string
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, errors.Wrap(err, "compile filter")
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(q.Columns, ", "),
		q.From,
		whereClause,
		stableOrderKey(q.OrderBy, q.Columns))
	return sql, params, nil
}

// stableOrderKey returns the ORDER BY list. Without explicit columns it
// falls back to the first selected column.
func stableOrderKey(orderBy, columns []string) string {
	if len(orderBy) == 0 {
		orderBy = columns[:1]
	}
	parts := make([]string, len(orderBy))
	for i, col := range orderBy {
		parts[i] = col + " ASC COLLATE BINARY"
	}
	return strings.Join(parts, ", ")
}

// compileUpsert renders INSERT ... ON CONFLICT(key) DO UPDATE.
func (c *SQLCompiler) compileUpsert(u stateir.Upsert) (string, []string, error) {
	if len(u.Columns) == 0 {
		return "", nil, errors.Newf("upsert into %q writes no columns", u.Table)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(u.Columns)), ", ")

	var updates []string
	for _, col := range u.Columns {
		if col != u.Key {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}
	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ", ")
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) %s",
		u.Table,
		strings.Join(u.Columns, ", "),
		placeholders,
		u.Key,
		conflict)
	return sql, append([]string(nil), u.Columns...), nil
}

// compileDelete renders a DELETE. An unfiltered delete is refused.
func (c *SQLCompiler) compileDelete(d stateir.Delete) (string, []string, error) {
	if d.Filter == nil {
		return "", nil, errors.Newf("delete from %q has no filter", d.From)
	}
	filterSQL, params, err := c.compilePredicate(d.Filter)
	if err != nil {
		return "", nil, errors.Wrap(err, "compile filter")
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", d.From, filterSQL), params, nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
func (c *SQLCompiler) compilePredicate(p stateir.Predicate) (string, []string, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case stateir.Equals:
		return pred.Field + " = ?", []string{pred.Param}, nil
	case stateir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		var parts, params []string
		for _, sub := range pred.Predicates {
			sql, subParams, err := c.compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, errors.Newf("unsupported predicate type: %T", p)
	}
}

// Bind replaces each ? placeholder in sql with the text value returns for
// the matching parameter name. The compiled SQL never contains string
// literals, so every ? is a placeholder.
func Bind(sql string, params []string, value func(param string) string) (string, error) {
	if n := strings.Count(sql, "?"); n != len(params) {
		return "", errors.Newf("sql has %d placeholders but %d parameters", n, len(params))
	}
	var b strings.Builder
	i := 0
	for _, r := range sql {
		if r == '?' {
			b.WriteString(value(params[i]))
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// ParamValue converts a value to a database/sql argument. Booleans are
// stored as 0/1 to match the INTEGER column type.
func ParamValue(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.IRNull:
		return nil, nil
	case ir.IRArray:
		return nil, errors.New("IRArray cannot be used as SQL parameter directly")
	case ir.IRObject:
		return nil, errors.New("IRObject cannot be used as SQL parameter directly")
	default:
		return nil, errors.Newf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
