// Package stateir is the statement representation for skill state scripts.
//
// A skill's State declaration compiles to one Statement per operation.
// Backends turn statements into text; statesql renders SQLite SQL with
// positional placeholders.
//
// Statement and Predicate are sealed interfaces using the marker method
// pattern, so backends can switch over them exhaustively:
//
//	switch s := stmt.(type) {
//	case CreateTable:
//	case Select:
//	case Upsert:
//	case Delete:
//	}
//
// Values never appear in statements. Every compared or written value is a
// named parameter that the script fills from its command-line arguments.
package stateir
