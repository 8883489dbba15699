package oracle

import (
	"os"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/cockroachdb/errors"

	"github.com/roach88/agentmark/internal/ir"
	"github.com/roach88/agentmark/internal/tree"
)

// CUE is an Oracle reading type declarations from CUE definitions:
//
//	#Status: "SUCCESS" | "BLOCKED"
//	#DeployInput: {env: string, dryRun?: bool}
type CUE struct {
	values []cue.Value
}

// LoadCUE compiles the given .cue files. Each file is compiled on its own;
// lookups search files in argument order.
func LoadCUE(paths ...string) (*CUE, error) {
	ctx := cuecontext.New()
	o := &CUE{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read type file %s", path)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, errors.Wrapf(err, "compile type file %s", path)
		}
		o.values = append(o.values, v)
	}
	return o, nil
}

// NewCUE compiles CUE source held in memory.
func NewCUE(filename string, src []byte) (*CUE, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, errors.Wrapf(err, "compile type file %s", filename)
	}
	return &CUE{values: []cue.Value{v}}, nil
}

// GenericArgs returns the node's written type arguments.
func (o *CUE) GenericArgs(n *tree.Node) []string {
	if n == nil {
		return nil
	}
	return n.TypeArgs
}

// InterfaceShape returns the fields of the struct definition #name.
// Optional fields (name?:) are reported with Required false.
func (o *CUE) InterfaceShape(name string) []ir.Field {
	def, ok := o.lookup(name)
	if !ok || def.IncompleteKind() != cue.StructKind {
		return nil
	}

	iter, err := def.Fields(cue.Optional(true))
	if err != nil {
		return nil
	}
	fields := []ir.Field{}
	for iter.Next() {
		label := strings.TrimSuffix(iter.Selector().String(), "?")
		fields = append(fields, ir.Field{
			Name:     label,
			Type:     kindName(iter.Value()),
			Required: !iter.IsOptional(),
		})
	}
	return fields
}

// LiteralUnionMembers returns the concrete members of the disjunction #name.
// A definition bound to a single literal is a one-member union.
func (o *CUE) LiteralUnionMembers(name string) []string {
	def, ok := o.lookup(name)
	if !ok {
		return nil
	}
	switch def.IncompleteKind() {
	case cue.StringKind, cue.IntKind:
	default:
		return nil
	}

	var members []string
	walkDisjunction(def, &members)
	return members
}

func (o *CUE) lookup(name string) (cue.Value, bool) {
	if !strings.HasPrefix(name, "#") {
		name = "#" + name
	}
	path := cue.ParsePath(name)
	if path.Err() != nil {
		return cue.Value{}, false
	}
	for _, v := range o.values {
		def := v.LookupPath(path)
		if def.Exists() && def.Err() == nil {
			return def, true
		}
	}
	return cue.Value{}, false
}

// walkDisjunction collects concrete string and int leaves of a disjunction.
func walkDisjunction(v cue.Value, out *[]string) {
	op, args := v.Expr()
	if op == cue.OrOp && len(args) >= 2 {
		for _, arg := range args {
			walkDisjunction(arg, out)
		}
		return
	}

	if s, err := v.String(); err == nil {
		*out = append(*out, s)
		return
	}
	if i, err := v.Int64(); err == nil {
		*out = append(*out, strconv.FormatInt(i, 10))
	}
}

// kindName maps a CUE kind to the type names used in shape checks.
func kindName(v cue.Value) string {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return "string"
	case cue.IntKind:
		return "int"
	case cue.BoolKind:
		return "bool"
	case cue.ListKind:
		return "array"
	case cue.StructKind:
		return "object"
	case cue.FloatKind, cue.NumberKind:
		return "number"
	default:
		return "any"
	}
}
