package stateir

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
)

// ErrInvalidStatement marks every error Validate returns.
var ErrInvalidStatement = errors.New("invalid state statement")

// Validate checks a statement against the columns of its table.
//
// Rules:
//  1. Every referenced column exists
//  2. Select lists explicit columns (no SELECT *)
//  3. Delete always has a non-empty filter
//  4. Upsert writes the key column
//  5. CreateTable has exactly one primary key
//
// Validate is a pure function with no side effects.
func Validate(stmt Statement, columns []string) error {
	v := &validator{columns: columns}
	v.validateStatement(stmt)
	if len(v.problems) == 0 {
		return nil
	}
	err := errors.Newf("%s", v.problems[0])
	for _, p := range v.problems[1:] {
		err = errors.WithDetail(err, p)
	}
	return errors.Mark(err, ErrInvalidStatement)
}

// validator accumulates problems during traversal.
type validator struct {
	columns  []string
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) requireColumn(name string) {
	if !slices.Contains(v.columns, name) {
		v.addProblem("unknown column %q", name)
	}
}

func (v *validator) validateStatement(s Statement) {
	switch stmt := s.(type) {
	case nil:
		v.addProblem("nil statement")
	case CreateTable:
		keys := 0
		for _, c := range stmt.Columns {
			v.requireColumn(c.Name)
			if c.PrimaryKey {
				keys++
			}
		}
		if keys != 1 {
			v.addProblem("table %q needs exactly one primary key, has %d", stmt.Table, keys)
		}
	case Select:
		if len(stmt.Columns) == 0 {
			v.addProblem("select from %q lists no columns", stmt.From)
		}
		for _, c := range stmt.Columns {
			v.requireColumn(c)
		}
		for _, c := range stmt.OrderBy {
			v.requireColumn(c)
		}
		v.validatePredicate(stmt.Filter)
	case Upsert:
		for _, c := range stmt.Columns {
			v.requireColumn(c)
		}
		if !slices.Contains(stmt.Columns, stmt.Key) {
			v.addProblem("upsert into %q does not write key column %q", stmt.Table, stmt.Key)
		}
	case Delete:
		if isEmpty(stmt.Filter) {
			v.addProblem("delete from %q has no filter", stmt.From)
		}
		v.validatePredicate(stmt.Filter)
	default:
		v.addProblem("unknown statement type %T", s)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.requireColumn(pred.Field)
		if pred.Param == "" {
			v.addProblem("comparison on %q has no parameter", pred.Field)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func isEmpty(p Predicate) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case And:
		for _, sub := range pred.Predicates {
			if !isEmpty(sub) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
