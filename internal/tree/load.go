package tree

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/agentmark/internal/ir"
)

// Extensions are the file extensions recognized as unit files, in the order
// tried when an import omits one.
var Extensions = []string{".yaml", ".yml", ".json"}

// Reserved keys inside a node's attribute mapping.
const (
	keyChildren = "children"
	keyTypes    = "$types"
	keyBind     = "$bind"
	keyRef      = "$ref"
	tagRef      = "!ref"
)

// SyntaxError reports a malformed unit file.
type SyntaxError struct {
	Pos ir.Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// HasUnitExtension reports whether path names a unit file.
func HasUnitExtension(path string) bool {
	for _, ext := range Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Load reads and parses the unit file at path.
func Load(path string) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read unit %s", path)
	}
	return Parse(path, data)
}

// Parse decodes a unit from YAML or JSON source. path is used for
// positions only.
//
// Layout:
//
//	imports:
//	  - {name: Shared, from: ./shared.yaml}
//	exports:
//	  Shared:
//	    - Paragraph: shared text
//	variables: [PHASE]
//	outputs:
//	  - {name: RESULT, agent: planner}
//	root:
//	  Command:
//	    name: deploy
//	    children:
//	      - Heading: {level: 1, children: [Deploy]}
func Parse(path string, data []byte) (*Unit, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse unit %s", path)
	}

	d := &decoder{file: path}
	unit := &Unit{Path: path, Source: data}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		return unit, nil
	}
	top := doc.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, d.errorf(top, "unit must be a mapping, got %s", kindName(top))
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i], top.Content[i+1]
		if seen[key.Value] {
			return nil, d.errorf(key, "duplicate section %q", key.Value)
		}
		seen[key.Value] = true

		var err error
		switch key.Value {
		case "imports":
			unit.Imports, err = d.imports(val)
		case "exports":
			unit.Exports, err = d.exports(val)
		case "variables":
			unit.Variables, err = d.variables(val)
		case "outputs":
			unit.Outputs, err = d.outputs(val)
		case "root":
			unit.Root, err = d.node(val)
		default:
			err = d.errorf(key, "unknown section %q", key.Value)
		}
		if err != nil {
			return nil, err
		}
	}
	return unit, nil
}

type decoder struct {
	file string
}

func (d *decoder) pos(y *yaml.Node) ir.Pos {
	return ir.Pos{File: d.file, Line: y.Line, Col: y.Column}
}

func (d *decoder) errorf(y *yaml.Node, format string, args ...any) error {
	return &SyntaxError{Pos: d.pos(y), Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) imports(y *yaml.Node) ([]Import, error) {
	if y.Kind != yaml.SequenceNode {
		return nil, d.errorf(y, "imports must be a list")
	}
	var out []Import
	for _, item := range y.Content {
		var raw struct {
			Name   string `yaml:"name"`
			From   string `yaml:"from"`
			Export string `yaml:"export"`
		}
		if err := item.Decode(&raw); err != nil {
			return nil, d.errorf(item, "invalid import: %v", err)
		}
		if raw.Name == "" || raw.From == "" {
			return nil, d.errorf(item, "import requires name and from")
		}
		if raw.Export == "" {
			raw.Export = raw.Name
		}
		out = append(out, Import{Name: raw.Name, From: raw.From, Export: raw.Export, Pos: d.pos(item)})
	}
	return out, nil
}

func (d *decoder) exports(y *yaml.Node) ([]Export, error) {
	if y.Kind != yaml.MappingNode {
		return nil, d.errorf(y, "exports must be a mapping")
	}
	var out []Export
	for i := 0; i+1 < len(y.Content); i += 2 {
		key, val := y.Content[i], y.Content[i+1]
		nodes, err := d.children(val)
		if err != nil {
			return nil, err
		}
		out = append(out, Export{Name: key.Value, Nodes: nodes, Pos: d.pos(key)})
	}
	return out, nil
}

func (d *decoder) variables(y *yaml.Node) ([]VarDecl, error) {
	if y.Kind != yaml.SequenceNode {
		return nil, d.errorf(y, "variables must be a list")
	}
	var out []VarDecl
	for _, item := range y.Content {
		if item.Kind != yaml.ScalarNode || item.Value == "" {
			return nil, d.errorf(item, "variable must be a name")
		}
		out = append(out, VarDecl{Name: item.Value, Pos: d.pos(item)})
	}
	return out, nil
}

func (d *decoder) outputs(y *yaml.Node) ([]OutputDecl, error) {
	if y.Kind != yaml.SequenceNode {
		return nil, d.errorf(y, "outputs must be a list")
	}
	var out []OutputDecl
	for _, item := range y.Content {
		var raw struct {
			Name  string `yaml:"name"`
			Agent string `yaml:"agent"`
		}
		if err := item.Decode(&raw); err != nil {
			return nil, d.errorf(item, "invalid output: %v", err)
		}
		if raw.Name == "" {
			return nil, d.errorf(item, "output requires name")
		}
		out = append(out, OutputDecl{Name: raw.Name, Agent: raw.Agent, Pos: d.pos(item)})
	}
	return out, nil
}

// children decodes a child list. A scalar stands for a single text child.
func (d *decoder) children(y *yaml.Node) ([]*Node, error) {
	y = resolveAlias(y)
	switch y.Kind {
	case yaml.SequenceNode:
		var out []*Node
		for _, item := range y.Content {
			n, err := d.node(item)
			if err != nil {
				return nil, err
			}
			if n != nil {
				out = append(out, n)
			}
		}
		return out, nil
	default:
		n, err := d.node(y)
		if err != nil || n == nil {
			return nil, err
		}
		return []*Node{n}, nil
	}
}

// node decodes one child item. Bare scalars become text leaves, !ref scalars
// and {$ref: ...} mappings become expression leaves, and single-key mappings
// become component invocations.
func (d *decoder) node(y *yaml.Node) (*Node, error) {
	y = resolveAlias(y)
	switch y.Kind {
	case yaml.ScalarNode:
		if y.Tag == tagRef {
			return &Node{Name: ExprName, Expr: ir.IRRef{Path: y.Value}, Pos: d.pos(y)}, nil
		}
		if y.Tag == "!!null" {
			return nil, nil
		}
		return &Node{Name: TextName, Text: y.Value, Pos: d.pos(y)}, nil

	case yaml.MappingNode:
		if len(y.Content) != 2 {
			return nil, d.errorf(y, "component must be a single-key mapping, got %d keys", len(y.Content)/2)
		}
		key, val := y.Content[0], y.Content[1]
		if key.Value == keyRef {
			return &Node{Name: ExprName, Expr: ir.IRRef{Path: val.Value}, Pos: d.pos(key)}, nil
		}
		n := &Node{Name: key.Value, Pos: d.pos(key)}
		if err := d.body(n, resolveAlias(val)); err != nil {
			return nil, err
		}
		return n, nil

	default:
		return nil, d.errorf(y, "unexpected %s in component tree", kindName(y))
	}
}

// body fills n from the value of its name key.
func (d *decoder) body(n *Node, y *yaml.Node) error {
	switch y.Kind {
	case yaml.ScalarNode, yaml.SequenceNode:
		children, err := d.children(y)
		if err != nil {
			return err
		}
		n.Children = children
		return nil
	case yaml.MappingNode:
	default:
		return d.errorf(y, "unexpected %s in component %s", kindName(y), n.Name)
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(y.Content); i += 2 {
		key, val := y.Content[i], y.Content[i+1]
		if seen[key.Value] {
			return d.errorf(key, "duplicate attribute %q on %s", key.Value, n.Name)
		}
		seen[key.Value] = true

		switch key.Value {
		case keyChildren:
			children, err := d.children(val)
			if err != nil {
				return err
			}
			n.Children = children
		case keyTypes:
			var args []string
			if err := val.Decode(&args); err != nil {
				return d.errorf(val, "%s must be a list of type names", keyTypes)
			}
			n.TypeArgs = args
		case keyBind:
			if val.Kind != yaml.ScalarNode || val.Value == "" {
				return d.errorf(val, "%s must be a name", keyBind)
			}
			n.Bind = val.Value
		default:
			v, err := d.value(val)
			if err != nil {
				return err
			}
			n.Attrs = append(n.Attrs, Attr{Key: key.Value, Value: v})
		}
	}
	return nil
}

// value decodes a static attribute value. Floats are rejected so that every
// emitted number is exact.
func (d *decoder) value(y *yaml.Node) (ir.IRValue, error) {
	y = resolveAlias(y)
	switch y.Kind {
	case yaml.ScalarNode:
		switch y.Tag {
		case tagRef:
			return ir.IRRef{Path: y.Value}, nil
		case "!!null":
			return ir.IRNull{}, nil
		case "!!bool":
			var b bool
			if err := y.Decode(&b); err != nil {
				return nil, d.errorf(y, "invalid bool %q", y.Value)
			}
			return ir.IRBool(b), nil
		case "!!int":
			var i int64
			if err := y.Decode(&i); err != nil {
				return nil, d.errorf(y, "invalid int %q", y.Value)
			}
			return ir.IRInt(i), nil
		case "!!float":
			return nil, d.errorf(y, "float values are not supported: %s", y.Value)
		default:
			return ir.IRString(y.Value), nil
		}

	case yaml.SequenceNode:
		arr := make(ir.IRArray, 0, len(y.Content))
		for _, item := range y.Content {
			v, err := d.value(item)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil

	case yaml.MappingNode:
		if len(y.Content) == 2 && y.Content[0].Value == keyRef {
			return ir.IRRef{Path: y.Content[1].Value}, nil
		}
		obj := make(ir.IRObject, 0, len(y.Content)/2)
		seen := make(map[string]bool)
		for i := 0; i+1 < len(y.Content); i += 2 {
			key := y.Content[i]
			if seen[key.Value] {
				return nil, d.errorf(key, "duplicate key %q", key.Value)
			}
			seen[key.Value] = true
			v, err := d.value(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj = append(obj, ir.O(key.Value, v))
		}
		return obj, nil

	default:
		return nil, d.errorf(y, "unexpected %s in attribute value", kindName(y))
	}
}

func resolveAlias(y *yaml.Node) *yaml.Node {
	for y.Kind == yaml.AliasNode && y.Alias != nil {
		y = y.Alias
	}
	return y
}

func kindName(y *yaml.Node) string {
	switch y.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}
