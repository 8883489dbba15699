package ir

// Kind discriminates IR node variants.
type Kind string

// Document kinds.
const (
	KindDocument Kind = "document"
)

// Block kinds.
const (
	KindHeading          Kind = "heading"
	KindParagraph        Kind = "paragraph"
	KindList             Kind = "list"
	KindListItem         Kind = "list_item"
	KindChecklist        Kind = "checklist"
	KindTable            Kind = "table"
	KindCodeBlock        Kind = "code_block"
	KindBlockquote       Kind = "blockquote"
	KindThematicBreak    Kind = "thematic_break"
	KindXMLBlock         Kind = "xml_block"
	KindRaw              Kind = "raw"
	KindStep             Kind = "step"
	KindExecutionContext Kind = "execution_context"
	KindSuccessCriteria  Kind = "success_criteria"
	KindOfferNext        Kind = "offer_next"
	KindPassthrough      Kind = "passthrough"
	KindInclude          Kind = "include"
)

// Inline kinds.
const (
	KindText       Kind = "text"
	KindBold       Kind = "bold"
	KindItalic     Kind = "italic"
	KindInlineCode Kind = "inline_code"
	KindLink       Kind = "link"
	KindLineBreak  Kind = "line_break"
	KindVarRef     Kind = "var_ref"
)

// Control-flow kinds.
const (
	KindIf              Kind = "if"
	KindElse            Kind = "else"
	KindLoop            Kind = "loop"
	KindBreak           Kind = "break"
	KindReturn          Kind = "return"
	KindOnStatus        Kind = "on_status"
	KindOnStatusDefault Kind = "on_status_default"
	KindAskUser         Kind = "ask_user"
)

// Contract kinds.
const (
	KindRole               Kind = "role"
	KindUpstreamInput      Kind = "upstream_input"
	KindDownstreamConsumer Kind = "downstream_consumer"
	KindMethodology        Kind = "methodology"
	KindStatusCatalogue    Kind = "status_catalogue"
	KindStatusBranch       Kind = "status_branch"
)

// Runtime-binding kinds.
const (
	KindAssign     Kind = "assign"
	KindSpawnAgent Kind = "spawn_agent"
	KindShell      Kind = "shell"
	KindStateCall  Kind = "state_call"
)

// ContractOrder lists contract kinds in their required relative order.
var ContractOrder = []Kind{
	KindRole,
	KindUpstreamInput,
	KindDownstreamConsumer,
	KindMethodology,
	KindStatusCatalogue,
}

// ContractIndex returns the position of k in ContractOrder, or -1 when k is
// not a contract kind.
func ContractIndex(k Kind) int {
	for i, c := range ContractOrder {
		if c == k {
			return i
		}
	}
	return -1
}

// Node is a sealed interface implemented by every IR variant.
type Node interface {
	Kind() Kind
	Position() Pos
	irNode()
}

// Field describes one property of a structural interface type.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// ---- blocks ----

// Heading is a Markdown ATX heading.
type Heading struct {
	Span
	Level    int
	Children []Node
}

func (*Heading) Kind() Kind { return KindHeading }

// Paragraph is a run of inline content.
type Paragraph struct {
	Span
	Children []Node
}

func (*Paragraph) Kind() Kind { return KindParagraph }

// List is a bullet or ordered list.
type List struct {
	Span
	Ordered bool
	Start   int
	Items   []*ListItem
}

func (*List) Kind() Kind { return KindList }

// ListItem is one entry of a List. Children may mix inline and block nodes.
type ListItem struct {
	Span
	Children []Node
}

func (*ListItem) Kind() Kind { return KindListItem }

// ChecklistItem is one checkbox line.
type ChecklistItem struct {
	Children []Node
	Checked  bool
}

// Checklist renders one checkbox line per item.
type Checklist struct {
	Span
	Items []ChecklistItem
}

func (*Checklist) Kind() Kind { return KindChecklist }

// Align is a table column alignment.
type Align string

const (
	AlignNone   Align = ""
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Cell is a table cell. Null cells render as the table's EmptyCell text.
type Cell struct {
	Text string
	Null bool
}

// Table is a pipe table.
type Table struct {
	Span
	Headers   []string
	Align     []Align
	Rows      [][]Cell
	EmptyCell string
}

func (*Table) Kind() Kind { return KindTable }

// CodeBlock is a fenced code block.
type CodeBlock struct {
	Span
	Language string
	Content  string
}

func (*CodeBlock) Kind() Kind { return KindCodeBlock }

// Blockquote prefixes its rendered children with "> ".
type Blockquote struct {
	Span
	Children []Node
}

func (*Blockquote) Kind() Kind { return KindBlockquote }

// ThematicBreak is a horizontal rule.
type ThematicBreak struct {
	Span
}

func (*ThematicBreak) Kind() Kind { return KindThematicBreak }

// XMLAttr is one attribute of an XML-style wrapper, kept in declaration order.
type XMLAttr struct {
	Name  string
	Value string
}

// XMLBlock wraps its children in <tag attrs>...</tag>.
type XMLBlock struct {
	Span
	Tag      string
	Attrs    []XMLAttr
	Children []Node
}

func (*XMLBlock) Kind() Kind { return KindXMLBlock }

// Raw is Markdown emitted verbatim.
type Raw struct {
	Span
	Content string
}

func (*Raw) Kind() Kind { return KindRaw }

// Step is a numbered process step rendered as a heading plus body.
type Step struct {
	Span
	Number   string
	Name     string
	Level    int
	Children []Node
}

func (*Step) Kind() Kind { return KindStep }

// ExecutionContext lists @-prefixed file references for the runtime.
type ExecutionContext struct {
	Span
	Paths    []string
	Prefix   string
	Children []Node
}

func (*ExecutionContext) Kind() Kind { return KindExecutionContext }

// SuccessCriteria is a checklist wrapped in <success_criteria>.
type SuccessCriteria struct {
	Span
	Items []ChecklistItem
}

func (*SuccessCriteria) Kind() Kind { return KindSuccessCriteria }

// Route is one follow-up suggestion of OfferNext.
type Route struct {
	Name        string
	Description string
	Command     string
}

// OfferNext suggests follow-up commands.
type OfferNext struct {
	Span
	Routes []Route
}

func (*OfferNext) Kind() Kind { return KindOfferNext }

// Passthrough is an unrecognized component rendered as literal markup.
type Passthrough struct {
	Span
	Name     string
	Attrs    []XMLAttr
	Children []Node
}

func (*Passthrough) Kind() Kind { return KindPassthrough }

// Include is content resolved from another compilation unit.
type Include struct {
	Span
	Source   string
	Name     string
	Children []Node
}

func (*Include) Kind() Kind { return KindInclude }

// ---- inline ----

// Text is literal text.
type Text struct {
	Span
	Value string
}

func (*Text) Kind() Kind { return KindText }

// Bold is strong emphasis.
type Bold struct {
	Span
	Children []Node
}

func (*Bold) Kind() Kind { return KindBold }

// Italic is emphasis.
type Italic struct {
	Span
	Children []Node
}

func (*Italic) Kind() Kind { return KindItalic }

// InlineCode is a code span.
type InlineCode struct {
	Span
	Value string
}

func (*InlineCode) Kind() Kind { return KindInlineCode }

// Link is an inline link.
type Link struct {
	Span
	URL      string
	Children []Node
}

func (*Link) Kind() Kind { return KindLink }

// LineBreak is a hard line break.
type LineBreak struct {
	Span
}

func (*LineBreak) Kind() Kind { return KindLineBreak }

// VarRef reads a runtime variable. Name is the shell variable name.
type VarRef struct {
	Span
	Name  string
	Field string
}

func (*VarRef) Kind() Kind { return KindVarRef }

// ---- control flow ----

// If is a conditional instruction. Else is attached by sibling pairing.
type If struct {
	Span
	Test     string
	Children []Node
	Else     *Else
}

func (*If) Kind() Kind { return KindIf }

// Else is the alternate branch of the preceding If.
type Else struct {
	Span
	Children []Node
}

func (*Else) Kind() Kind { return KindElse }

// Loop repeats its body up to Max times.
type Loop struct {
	Span
	Max      int
	Counter  string
	Children []Node
}

func (*Loop) Kind() Kind { return KindLoop }

// Break exits the enclosing Loop.
type Break struct {
	Span
	Message string
}

func (*Break) Kind() Kind { return KindBreak }

// Return ends the unit of work with a status.
type Return struct {
	Span
	Status  string
	Message string
}

func (*Return) Kind() Kind { return KindReturn }

// OnStatus handles one status of a spawned agent's output.
type OnStatus struct {
	Span
	Output   string
	Status   string
	Children []Node
	Default  *OnStatusDefault
}

func (*OnStatus) Kind() Kind { return KindOnStatus }

// OnStatusDefault handles every status not matched by the preceding OnStatus.
type OnStatusDefault struct {
	Span
	Output   string
	Children []Node
}

func (*OnStatusDefault) Kind() Kind { return KindOnStatusDefault }

// AskOption is one answer offered by AskUser.
type AskOption struct {
	Label       string
	Description string
}

// AskUser asks the operator a question and stores the answer.
type AskUser struct {
	Span
	Question    string
	Header      string
	Options     []AskOption
	MultiSelect bool
	Output      string
}

func (*AskUser) Kind() Kind { return KindAskUser }

// ---- contracts ----

// Role documents the identity of the agent.
type Role struct {
	Span
	Children []Node
}

func (*Role) Kind() Kind { return KindRole }

// UpstreamInput documents what the unit receives. Fields lists the declared
// input interface when one is known.
type UpstreamInput struct {
	Span
	Children  []Node
	InputType string
	Fields    []Field
}

func (*UpstreamInput) Kind() Kind { return KindUpstreamInput }

// DownstreamConsumer documents who consumes the unit's output.
type DownstreamConsumer struct {
	Span
	Children []Node
}

func (*DownstreamConsumer) Kind() Kind { return KindDownstreamConsumer }

// Methodology documents how the unit works.
type Methodology struct {
	Span
	Children []Node
}

func (*Methodology) Kind() Kind { return KindMethodology }

// StatusCatalogue documents every terminal outcome of the unit.
type StatusCatalogue struct {
	Span
	Children []Node
}

func (*StatusCatalogue) Kind() Kind { return KindStatusCatalogue }

// Branches returns the catalogue's StatusBranch children in order,
// including branches contributed by imported fragments.
func (c *StatusCatalogue) Branches() []*StatusBranch {
	return collectBranches(c.Children, nil)
}

func collectBranches(nodes []Node, out []*StatusBranch) []*StatusBranch {
	for _, child := range nodes {
		switch v := child.(type) {
		case *StatusBranch:
			out = append(out, v)
		case *Include:
			out = collectBranches(v.Children, out)
		}
	}
	return out
}

// StatusBranch documents one outcome. Only valid inside a StatusCatalogue.
type StatusBranch struct {
	Span
	Status   string
	Children []Node
}

func (*StatusBranch) Kind() Kind { return KindStatusBranch }

// ---- runtime bindings ----

// AssignSource selects how an Assign computes its value.
type AssignSource string

const (
	AssignBash  AssignSource = "bash"
	AssignValue AssignSource = "value"
	AssignFile  AssignSource = "file"
	AssignEnv   AssignSource = "env"
)

// Assign writes a runtime variable.
type Assign struct {
	Span
	Var     string
	Source  AssignSource
	Expr    string
	Ref     bool // Expr names a variable rather than holding literal text
	Comment string
}

func (*Assign) Kind() Kind { return KindAssign }

// SpawnAgent invokes a sub-agent. Exactly one of Prompt and Input is set.
type SpawnAgent struct {
	Span
	Agent       string
	Model       string
	Description string
	Prompt      []Node
	Input       IRObject
	InputType   string
	Output      string
}

func (*SpawnAgent) Kind() Kind { return KindSpawnAgent }

// Shell is a shell command the runtime executes.
type Shell struct {
	Span
	Command string
	Output  string
}

func (*Shell) Kind() Kind { return KindShell }

// StateCall invokes one operation script of a skill's state.
type StateCall struct {
	Span
	Skill  string
	Op     string
	Args   IRObject
	Output string
}

func (*StateCall) Kind() Kind { return KindStateCall }

// Children returns the direct child nodes of n, in order.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Document:
		return v.Children
	case *Heading:
		return v.Children
	case *Paragraph:
		return v.Children
	case *List:
		out := make([]Node, len(v.Items))
		for i, item := range v.Items {
			out[i] = item
		}
		return out
	case *ListItem:
		return v.Children
	case *Blockquote:
		return v.Children
	case *XMLBlock:
		return v.Children
	case *Step:
		return v.Children
	case *ExecutionContext:
		return v.Children
	case *Passthrough:
		return v.Children
	case *Include:
		return v.Children
	case *Bold:
		return v.Children
	case *Italic:
		return v.Children
	case *Link:
		return v.Children
	case *If:
		if v.Else != nil {
			return append(append([]Node{}, v.Children...), v.Else)
		}
		return v.Children
	case *Else:
		return v.Children
	case *Loop:
		return v.Children
	case *OnStatus:
		if v.Default != nil {
			return append(append([]Node{}, v.Children...), v.Default)
		}
		return v.Children
	case *OnStatusDefault:
		return v.Children
	case *Role:
		return v.Children
	case *UpstreamInput:
		return v.Children
	case *DownstreamConsumer:
		return v.Children
	case *Methodology:
		return v.Children
	case *StatusCatalogue:
		return v.Children
	case *StatusBranch:
		return v.Children
	case *SpawnAgent:
		return v.Prompt
	default:
		return nil
	}
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, fn)
	}
}

// IsWhitespace reports whether n is a Text node containing only whitespace.
func IsWhitespace(n Node) bool {
	t, ok := n.(*Text)
	if !ok {
		return false
	}
	for _, r := range t.Value {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
