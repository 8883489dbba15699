package emit

import (
	"bytes"
	"strconv"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/agentmark/internal/ir"
)

// FrontMatter renders the YAML header of a document, delimiters included.
// Keys keep declaration order and arrays render as block sequences. An
// empty object renders nothing.
func FrontMatter(fm ir.IRObject) (string, error) {
	if len(fm) == 0 {
		return "", nil
	}
	node, err := yamlNode(fm)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", errors.Wrap(err, "encode front matter")
	}
	if err := enc.Close(); err != nil {
		return "", errors.Wrap(err, "encode front matter")
	}
	return "---\n" + buf.String() + "---\n\n", nil
}

// yamlNode converts a value to a YAML node. Flow style is never used.
func yamlNode(v ir.IRValue) (*yaml.Node, error) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case ir.IRString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(val)}, nil
	case ir.IRInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(val), 10)}, nil
	case ir.IRBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(val))}, nil
	case ir.IRArray:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range val {
			child, err := yamlNode(item)
			if err != nil {
				return nil, errors.Wrapf(err, "[%d]", i)
			}
			seq.Content = append(seq.Content, child)
		}
		return seq, nil
	case ir.IRObject:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, p := range val {
			child, err := yamlNode(p.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", p.Key)
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
				child)
		}
		return m, nil
	case ir.IRRef:
		return nil, errors.Newf("front matter cannot reference runtime value %q", val.Path)
	default:
		return nil, errors.Newf("unsupported front matter value %T", v)
	}
}
