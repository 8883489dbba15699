package ir

import "path"

// DocumentKind selects the artifact a Document compiles to.
type DocumentKind string

const (
	DocCommand DocumentKind = "command"
	DocAgent   DocumentKind = "agent"
	DocSkill   DocumentKind = "skill"
)

// Document is the root of one compilation unit.
//
// It is built once per unit by the compiler, read once by the emitter,
// then discarded.
type Document struct {
	Span
	DocKind     DocumentKind
	Name        string
	FrontMatter IRObject
	Children    []Node

	// StatusType is the declared literal-union status type, if any.
	StatusType    string
	StatusMembers []string

	// InputType is the declared input interface, if any.
	InputType   string
	InputFields []Field

	// State is set for skill documents that persist state.
	State *StateSpec

	// Source is the canonical path of the unit the document came from.
	Source string
}

func (*Document) Kind() Kind { return KindDocument }

// ArtifactPath returns the path, relative to the output directory, of the
// primary artifact for a document of the given kind and name.
func ArtifactPath(kind DocumentKind, name string) string {
	switch kind {
	case DocAgent:
		return path.Join(".claude", "agents", name+".md")
	case DocSkill:
		return path.Join(".claude", "skills", name, "SKILL.md")
	default:
		return path.Join(".claude", "commands", name+".md")
	}
}

// ScriptPath returns the path of a skill's operation script.
func ScriptPath(skill, op string) string {
	return path.Join(".claude", "skills", skill, "scripts", op+".sh")
}

// ArtifactPath returns the document's primary artifact path.
func (d *Document) ArtifactPath() string {
	return ArtifactPath(d.DocKind, d.Name)
}

// StateOpKind is the kind of a skill state operation.
type StateOpKind string

const (
	OpInit   StateOpKind = "init"
	OpRead   StateOpKind = "read"
	OpWrite  StateOpKind = "write"
	OpDelete StateOpKind = "delete"
	OpCustom StateOpKind = "custom"
)

// StateOp is one operation a skill exposes over its state table.
type StateOp struct {
	Name        string
	Kind        StateOpKind
	Description string
	// Base is the statement shape of a custom operation: OpRead or OpDelete.
	Base StateOpKind
	// Where lists the columns a custom operation filters on by equality.
	Where []string
}

// StateSpec describes the persisted state of a skill.
type StateSpec struct {
	Table      string
	Database   string
	Key        string
	Columns    []Field
	Operations []StateOp
}
