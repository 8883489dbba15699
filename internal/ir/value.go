package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// IRValue is a sealed interface for statically evaluated attribute values.
// Only IRNull, IRString, IRInt, IRBool, IRArray, IRObject and IRRef implement it.
// There is no float variant: emitted text must be exact, and float
// formatting is not.
type IRValue interface {
	irValue()
}

// IRNull is an explicit null (e.g. an empty table cell).
type IRNull struct{}

func (IRNull) irValue() {}

// IRString is a string literal.
type IRString string

func (IRString) irValue() {}

// IRInt is an integer literal.
type IRInt int64

func (IRInt) irValue() {}

// IRBool is a boolean literal.
type IRBool bool

func (IRBool) irValue() {}

// IRArray is an array literal.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRPair is one key/value entry of an IRObject.
type IRPair struct {
	Key   string
	Value IRValue
}

// IRObject is an object literal. Entries keep declaration order, which the
// emitter relies on; use SortedKeys for canonical ordering.
type IRObject []IRPair

func (IRObject) irValue() {}

// IRRef references a name resolved by the compiler: a declared variable,
// a declared output, or a field of the active render-context binding.
// Path is dotted, e.g. "ctx.name" or "CONFIG".
type IRRef struct {
	Path string
}

func (IRRef) irValue() {}

// Root returns the first segment of the reference path.
func (r IRRef) Root() string {
	root, _, _ := strings.Cut(r.Path, ".")
	return root
}

// Field returns everything after the first segment, or "" if there is none.
func (r IRRef) Field() string {
	_, rest, _ := strings.Cut(r.Path, ".")
	return rest
}

// O is a shorthand for IRPair.
// Example: IRObject{O("name", IRString("cart")), O("count", IRInt(5))}
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// Get returns the value stored under key.
func (obj IRObject) Get(key string) (IRValue, bool) {
	for _, p := range obj {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Keys returns keys in declaration order.
func (obj IRObject) Keys() []string {
	keys := make([]string, len(obj))
	for i, p := range obj {
		keys[i] = p.Key
	}
	return keys
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's default string ordering compares UTF-8 bytes, which differs for
// characters outside the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := obj.Keys()
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// MarshalJSON renders the object with keys in declaration order.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, p := range obj {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(p.Key)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", p.Key, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalIRValue(p.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", p.Key, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalIRValue marshals an IRValue to JSON bytes.
// References marshal as their dotted path string.
func MarshalIRValue(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case IRNull:
		return []byte("null"), nil
	case IRString:
		return json.Marshal(string(val))
	case IRInt:
		return json.Marshal(int64(val))
	case IRBool:
		return json.Marshal(bool(val))
	case IRArray:
		return marshalIRArray(val)
	case IRObject:
		return val.MarshalJSON()
	case IRRef:
		return json.Marshal(val.Path)
	case nil:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("unknown IRValue type: %T", v)
	}
}

func marshalIRArray(arr IRArray) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalIRValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// FormatValue renders a value as prose text: strings verbatim, scalars in
// their literal form, composites as compact JSON. Null renders as "".
func FormatValue(v IRValue) string {
	switch val := v.(type) {
	case nil, IRNull:
		return ""
	case IRString:
		return string(val)
	case IRInt:
		return strconv.FormatInt(int64(val), 10)
	case IRBool:
		return strconv.FormatBool(bool(val))
	case IRRef:
		return val.Path
	default:
		data, err := MarshalIRValue(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// IsNull reports whether v is absent or an explicit null.
func IsNull(v IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(IRNull)
	return ok
}

// TypeName returns the type name used in diagnostics and shape checks.
func TypeName(v IRValue) string {
	switch v.(type) {
	case IRString:
		return "string"
	case IRInt:
		return "int"
	case IRBool:
		return "bool"
	case IRArray:
		return "array"
	case IRObject:
		return "object"
	case IRRef:
		return "reference"
	default:
		return "null"
	}
}
