package ir

import "fmt"

// Pos is a source location in a component tree file.
type Pos struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

// IsValid reports whether the position carries a line number.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

func (p Pos) String() string {
	switch {
	case p.IsValid() && p.File != "":
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	case p.IsValid():
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	default:
		return p.File
	}
}

// Span is embedded by every IR node to carry its source position.
type Span struct {
	Pos Pos `json:"pos"`
}

// At returns a Span for pos.
func At(pos Pos) Span {
	return Span{Pos: pos}
}

// Position returns the node's source position.
func (s Span) Position() Pos {
	return s.Pos
}

func (Span) irNode() {}
