package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/agentmark/internal/ir"
)

// =============================================================================
// Tables
// =============================================================================

func TestTable_EmptyCellSubstitution(t *testing.T) {
	table := &ir.Table{
		Headers:   []string{"A", "B"},
		Rows:      [][]ir.Cell{{{Text: "a"}, {Text: "b"}}, {{Null: true}, {Text: "d"}}},
		EmptyCell: "\u2014",
	}
	out := mustRender(t, table)
	assert.Equal(t, "| A | B |\n| --- | --- |\n| a | b |\n| \u2014 | d |", out)
	assert.NotContains(t, out, "null")
}

func TestTable_Alignment(t *testing.T) {
	table := &ir.Table{
		Headers: []string{"n", "l", "c", "r"},
		Align:   []ir.Align{ir.AlignNone, ir.AlignLeft, ir.AlignCenter, ir.AlignRight},
	}
	assert.Equal(t, "| n | l | c | r |\n| --- | :--- | :---: | ---: |", mustRender(t, table))
}

func TestTable_EscapesCells(t *testing.T) {
	table := &ir.Table{
		Headers: []string{"a|b"},
		Rows:    [][]ir.Cell{{{Text: "x | y"}}, {{Text: "line1\nline2"}}},
	}
	assert.Equal(t, "| a\\|b |\n| --- |\n| x \\| y |\n| line1<br>line2 |", mustRender(t, table))
}

func TestTable_ShortRowsArePadded(t *testing.T) {
	table := &ir.Table{
		Headers:   []string{"a", "b"},
		Rows:      [][]ir.Cell{{{Text: "only"}}},
		EmptyCell: "-",
	}
	assert.Equal(t, "| a | b |\n| --- | --- |\n| only | - |", mustRender(t, table))
}

func TestTable_EmptyCellDefaultsToBlank(t *testing.T) {
	table := &ir.Table{Headers: []string{"a"}, Rows: [][]ir.Cell{{{Null: true}}}}
	assert.Equal(t, "| a |\n| --- |\n|  |", mustRender(t, table))
}

// =============================================================================
// Lists and checklists
// =============================================================================

func TestList_Bullet(t *testing.T) {
	list := &ir.List{Items: []*ir.ListItem{
		{Children: []ir.Node{text("one")}},
		{Children: []ir.Node{text("two")}},
	}}
	assert.Equal(t, "- one\n- two", mustRender(t, list))
}

func TestList_OrderedWithStart(t *testing.T) {
	list := &ir.List{Ordered: true, Start: 3, Items: []*ir.ListItem{
		{Children: []ir.Node{text("c")}},
		{Children: []ir.Node{text("d")}},
	}}
	assert.Equal(t, "3. c\n4. d", mustRender(t, list))
}

func TestList_NestedIsIndented(t *testing.T) {
	inner := &ir.List{Items: []*ir.ListItem{{Children: []ir.Node{text("child")}}}}
	list := &ir.List{Ordered: true, Items: []*ir.ListItem{
		{Children: []ir.Node{text("parent"), inner}},
	}}
	assert.Equal(t, "1. parent\n   - child", mustRender(t, list))
}

func TestChecklist(t *testing.T) {
	list := &ir.Checklist{Items: []ir.ChecklistItem{
		{Children: []ir.Node{text("todo")}},
		{Children: []ir.Node{text("done")}, Checked: true},
	}}
	assert.Equal(t, "- [ ] todo\n- [x] done", mustRender(t, list))
}

// =============================================================================
// Code, quotes, XML
// =============================================================================

func TestCodeBlock(t *testing.T) {
	assert.Equal(t, "```go\nfmt.Println()\n```", mustRender(t, &ir.CodeBlock{Language: "go", Content: "fmt.Println()\n"}))
}

func TestCodeBlock_LongerFenceForBackticks(t *testing.T) {
	out := mustRender(t, &ir.CodeBlock{Language: "md", Content: "```sh\nls\n```"})
	assert.Equal(t, "````md\n```sh\nls\n```\n````", out)
}

func TestBlockquote(t *testing.T) {
	out := mustRender(t, &ir.Blockquote{Children: []ir.Node{para("first"), para("second")}})
	assert.Equal(t, "> first\n>\n> second", out)
}

func TestXMLBlock_TagAndAttributes(t *testing.T) {
	block := &ir.XMLBlock{
		Tag:      "deviation_rules",
		Attrs:    []ir.XMLAttr{{Name: "scope", Value: `a "b" <c> & d`}, {Name: "level", Value: "2"}},
		Children: []ir.Node{para("Stay on plan.")},
	}
	assert.Equal(t,
		"<deviation_rules scope=\"a &quot;b&quot; &lt;c&gt; &amp; d\" level=\"2\">\nStay on plan.\n</deviation_rules>",
		mustRender(t, block))
}

func TestXMLBlock_Empty(t *testing.T) {
	assert.Equal(t, "<notes></notes>", mustRender(t, &ir.XMLBlock{Tag: "notes"}))
}

func TestRaw(t *testing.T) {
	assert.Equal(t, "<!-- keep -->", mustRender(t, &ir.Raw{Content: "<!-- keep -->\n"}))
}

// =============================================================================
// Structural blocks
// =============================================================================

func TestHeading_ClampsLevel(t *testing.T) {
	assert.Equal(t, "###### deep", mustRender(t, &ir.Heading{Level: 9, Children: []ir.Node{text("deep")}}))
}

func TestStep(t *testing.T) {
	step := &ir.Step{Number: "2", Name: "Build", Children: []ir.Node{para("Run make.")}}
	assert.Equal(t, "## Step 2: Build\n\nRun make.", mustRender(t, step))

	unnumbered := &ir.Step{Name: "Wrap up", Level: 3}
	assert.Equal(t, "### Wrap up", mustRender(t, unnumbered))
}

func TestExecutionContext(t *testing.T) {
	ec := &ir.ExecutionContext{
		Paths:    []string{"docs/plan.md", "STATE.md"},
		Prefix:   "@",
		Children: []ir.Node{para("Read these first.")},
	}
	assert.Equal(t, "<execution_context>\n@docs/plan.md\n@STATE.md\n\nRead these first.\n</execution_context>", mustRender(t, ec))
}

func TestSuccessCriteria(t *testing.T) {
	sc := &ir.SuccessCriteria{Items: []ir.ChecklistItem{{Children: []ir.Node{text("tests pass")}}}}
	assert.Equal(t, "<success_criteria>\n- [ ] tests pass\n</success_criteria>", mustRender(t, sc))
}

func TestOfferNext(t *testing.T) {
	on := &ir.OfferNext{Routes: []ir.Route{
		{Name: "Ship", Description: "Deploy to prod", Command: "/deploy prod"},
		{Name: "Stop"},
	}}
	assert.Equal(t, "<offer_next>\n- **Ship**: Deploy to prod `/deploy prod`\n- **Stop**\n</offer_next>", mustRender(t, on))
}

func TestPassthrough(t *testing.T) {
	selfClosing := &ir.Passthrough{Name: "Widget", Attrs: []ir.XMLAttr{{Name: "size", Value: "2"}}}
	assert.Equal(t, `<Widget size="2" />`, mustRender(t, selfClosing))

	withBody := &ir.Passthrough{Name: "Widget", Children: []ir.Node{para("inner")}}
	assert.Equal(t, "<Widget>\ninner\n</Widget>", mustRender(t, withBody))
}
