package compiler

import (
	"strings"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/tree"
)

// attrReader reads a node's attributes against a context. The first failure
// is kept and every later read becomes a no-op returning the zero value, so
// a transform can read all of its attributes and check Err once.
type attrReader struct {
	n   *tree.Node
	ctx Context
	err error
}

func readAttrs(n *tree.Node, ctx Context) *attrReader {
	return &attrReader{n: n, ctx: ctx}
}

// Err returns the first error encountered.
func (r *attrReader) Err() error {
	return r.err
}

func (r *attrReader) fail(code, format string, args ...any) {
	if r.err == nil {
		r.err = newError(code, r.n.Name, r.n.Pos, format, args...)
	}
}

func (r *attrReader) setErr(err error) {
	if r.err == nil {
		r.err = err
	}
}

// has reports whether key is set to a non-null value.
func (r *attrReader) has(key string) bool {
	v, ok := r.n.Attrs.Get(key)
	return ok && !ir.IsNull(v)
}

// value returns the resolved value for key. References to the render
// context are replaced by the bound value; runtime references stay IRRef.
func (r *attrReader) value(key string) (ir.IRValue, bool) {
	if r.err != nil {
		return nil, false
	}
	v, ok := r.n.Attrs.Get(key)
	if !ok || ir.IsNull(v) {
		return nil, false
	}
	resolved, err := r.ctx.resolveValue(v, r.n.Name, r.n.Pos)
	if err != nil {
		r.setErr(err)
		return nil, false
	}
	return resolved, true
}

// text returns key as prose text, or "" when absent.
func (r *attrReader) text(key string) string {
	v, ok := r.value(key)
	if !ok {
		return ""
	}
	s, ok := scalarText(v)
	if !ok {
		r.fail(ErrInvalidValue, "%s must be a string, got %s", key, ir.TypeName(v))
		return ""
	}
	return s
}

// required returns key as text and fails when it is missing or blank.
func (r *attrReader) required(key string) string {
	if r.err != nil {
		return ""
	}
	if !r.has(key) {
		r.fail(ErrRequiredAttr, "%s is required", key)
		return ""
	}
	s := r.text(key)
	if r.err == nil && strings.TrimSpace(s) == "" {
		r.fail(ErrRequiredAttr, "%s must not be empty", key)
	}
	return s
}

// name returns key as an identifier: a plain string or a reference, whose
// path is used verbatim.
func (r *attrReader) name(key string) string {
	if r.err != nil {
		return ""
	}
	v, ok := r.n.Attrs.Get(key)
	if !ok || ir.IsNull(v) {
		return ""
	}
	switch val := v.(type) {
	case ir.IRString:
		return string(val)
	case ir.IRRef:
		return val.Path
	default:
		r.fail(ErrInvalidValue, "%s must be a name, got %s", key, ir.TypeName(v))
		return ""
	}
}

// integer returns key as an int, or def when absent.
func (r *attrReader) integer(key string, def int) int {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	i, ok := v.(ir.IRInt)
	if !ok {
		r.fail(ErrInvalidValue, "%s must be an int, got %s", key, ir.TypeName(v))
		return def
	}
	return int(i)
}

// boolean returns key as a bool, or false when absent.
func (r *attrReader) boolean(key string) bool {
	v, ok := r.value(key)
	if !ok {
		return false
	}
	b, ok := v.(ir.IRBool)
	if !ok {
		r.fail(ErrInvalidValue, "%s must be a bool, got %s", key, ir.TypeName(v))
		return false
	}
	return bool(b)
}

// array returns key as an array, or nil when absent.
func (r *attrReader) array(key string) ir.IRArray {
	v, ok := r.value(key)
	if !ok {
		return nil
	}
	arr, ok := v.(ir.IRArray)
	if !ok {
		r.fail(ErrInvalidValue, "%s must be an array, got %s", key, ir.TypeName(v))
		return nil
	}
	return arr
}

// textList returns key as a list of scalar texts.
func (r *attrReader) textList(key string) []string {
	arr := r.array(key)
	if arr == nil {
		return nil
	}
	out := make([]string, 0, len(arr))
	for i, item := range arr {
		s, ok := scalarText(item)
		if !ok {
			r.fail(ErrInvalidValue, "%s[%d] must be a string, got %s", key, i, ir.TypeName(item))
			return nil
		}
		out = append(out, s)
	}
	return out
}

// object returns key as an object, or nil when absent.
func (r *attrReader) object(key string) ir.IRObject {
	v, ok := r.value(key)
	if !ok {
		return nil
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		r.fail(ErrInvalidValue, "%s must be an object, got %s", key, ir.TypeName(v))
		return nil
	}
	return obj
}

// exclusive returns which of keys is set. It fails when more than one is.
func (r *attrReader) exclusive(keys ...string) string {
	var found []string
	for _, k := range keys {
		if r.has(k) {
			found = append(found, k)
		}
	}
	if len(found) > 1 {
		r.fail(ErrExclusiveAttrs, "%s cannot be combined", strings.Join(found, " and "))
		return ""
	}
	if len(found) == 1 {
		return found[0]
	}
	return ""
}

// oneOf validates that key, when set, is one of allowed.
func (r *attrReader) oneOf(key, value string, allowed ...string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	r.fail(ErrInvalidValue, "%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

// scalarText renders a scalar as prose. Runtime references render as
// shell-style variables.
func scalarText(v ir.IRValue) (string, bool) {
	switch val := v.(type) {
	case ir.IRString, ir.IRInt, ir.IRBool, ir.IRNull:
		return ir.FormatValue(val), true
	case ir.IRRef:
		return refText(val), true
	default:
		return "", false
	}
}

func refText(ref ir.IRRef) string {
	return "$" + ref.Path
}
