package compiler

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/roach88/agentmark/internal/ir"
)

// ErrorKind classifies compile errors.
type ErrorKind string

const (
	KindRequired       ErrorKind = "required-attribute"
	KindExclusive      ErrorKind = "exclusive-attributes"
	KindInvalidValue   ErrorKind = "invalid-value"
	KindPlacement      ErrorKind = "placement"
	KindContract       ErrorKind = "contract"
	KindExhaustiveness ErrorKind = "exhaustiveness"
	KindShape          ErrorKind = "shape"
	KindResolution     ErrorKind = "resolution"
	KindCircularImport ErrorKind = "circular-import"
	KindConfiguration  ErrorKind = "configuration"
	KindUndeclared     ErrorKind = "undeclared-reference"
)

// Compile error codes (E200-E299)
const (
	// Attribute errors (E201-E209)
	ErrRequiredAttr   = "E201" // required attribute missing or empty
	ErrExclusiveAttrs = "E202" // mutually exclusive attributes combined
	ErrInvalidValue   = "E203" // attribute value has the wrong type or range

	// Placement errors (E210-E219)
	ErrBranchOutsideCatalogue = "E210" // StatusBranch not directly inside StatusCatalogue
	ErrEmptyCatalogue         = "E211" // StatusCatalogue without branches
	ErrUnpairedFollower       = "E212" // Else or OnStatusDefault without its lead
	ErrBreakOutsideLoop       = "E213" // Break not inside a Loop
	ErrInvalidNesting         = "E214" // component used where it cannot appear

	// Contract errors (E220-E229)
	ErrContractOrder     = "E220" // contract component out of order
	ErrContractDuplicate = "E221" // contract component repeated

	// Exhaustiveness errors (E230-E239)
	ErrStatusMissing   = "E230" // declared status without a branch
	ErrStatusExtra     = "E231" // branch or return for an undeclared status
	ErrStatusDuplicate = "E232" // status covered more than once

	// Type errors (E240-E249)
	ErrShapeMismatch = "E240" // value does not match the declared interface

	// Resolution errors (E250-E259)
	ErrUnitNotFound   = "E250" // imported unit does not exist
	ErrExportNotFound = "E251" // imported unit lacks the export
	ErrUnitLoad       = "E252" // imported unit failed to load
	ErrCircularImport = "E253" // unit reached again through its own imports

	ErrConfiguration = "E260" // invalid import path or compiler setup
	ErrUndeclaredRef = "E270" // reference to an undeclared name
)

var codeKinds = map[string]ErrorKind{
	ErrRequiredAttr:           KindRequired,
	ErrExclusiveAttrs:         KindExclusive,
	ErrInvalidValue:           KindInvalidValue,
	ErrBranchOutsideCatalogue: KindPlacement,
	ErrEmptyCatalogue:         KindPlacement,
	ErrUnpairedFollower:       KindPlacement,
	ErrBreakOutsideLoop:       KindPlacement,
	ErrInvalidNesting:         KindPlacement,
	ErrContractOrder:          KindContract,
	ErrContractDuplicate:      KindContract,
	ErrStatusMissing:          KindExhaustiveness,
	ErrStatusExtra:            KindExhaustiveness,
	ErrStatusDuplicate:        KindExhaustiveness,
	ErrShapeMismatch:          KindShape,
	ErrUnitNotFound:           KindResolution,
	ErrExportNotFound:         KindResolution,
	ErrUnitLoad:               KindResolution,
	ErrCircularImport:         KindCircularImport,
	ErrConfiguration:          KindConfiguration,
	ErrUndeclaredRef:          KindUndeclared,
}

// CompileError is a compilation failure tied to a component.
type CompileError struct {
	Code    string    `json:"code"`
	Kind    ErrorKind `json:"kind"`
	Node    string    `json:"node"`
	Message string    `json:"message"`
	Pos     ir.Pos    `json:"pos"`
	// Files lists the units involved, for errors spanning more than one.
	Files []string `json:"files,omitempty"`
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() || e.Pos.File != "" {
		return fmt.Sprintf("%s: [%s] %s: %s", e.Pos, e.Code, e.Node, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Node, e.Message)
}

func newError(code, node string, pos ir.Pos, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    code,
		Kind:    codeKinds[code],
		Node:    node,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}

// AsCompileError extracts a *CompileError from err's chain.
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
