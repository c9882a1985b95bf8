// Package pmt provides the minimal polymorphic value type carried by item
// tags and message ports. It closes the variant set at compile time for the
// cases the runtime itself needs to inspect (numeric ids, named numerics,
// named values) and keeps a single escape hatch for opaque user payloads.
package pmt

import "fmt"

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindI64
	KindU64
	KindF64
	KindString
	KindNamed
	KindBlob
	KindVector
	KindMap
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindF64:
		return "f64"
	case KindString:
		return "string"
	case KindNamed:
		return "named"
	case KindBlob:
		return "blob"
	case KindVector:
		return "vector"
	case KindMap:
		return "map"
	case KindAny:
		return "any"
	default:
		return "unknown"
	}
}

// Value is a closed sum type over the primitive variants a flowgraph needs
// to move through tags and message ports, plus an Any escape hatch for
// user-defined payloads that never need to be interpreted by the runtime
// itself.
type Value struct {
	kind Kind

	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	name string
	nv   *Value
	blob []byte
	vec  []Value
	m    map[string]Value
	any  any
}

// Null is the zero value.
var Null = Value{kind: KindNull}

func Bool(v bool) Value   { return Value{kind: KindBool, b: v} }
func I64(v int64) Value   { return Value{kind: KindI64, i: v} }
func U64(v uint64) Value  { return Value{kind: KindU64, u: v} }
func F64(v float64) Value { return Value{kind: KindF64, f: v} }
func String(v string) Value { return Value{kind: KindString, s: v} }
func Blob(v []byte) Value { return Value{kind: KindBlob, blob: v} }
func Vector(v []Value) Value { return Value{kind: KindVector, vec: v} }
func Map(v map[string]Value) Value { return Value{kind: KindMap, m: v} }

// Any wraps an arbitrary Go value that the runtime never needs to interpret.
func Any(v any) Value { return Value{kind: KindAny, any: v} }

// Named attaches a name to a nested value. Used both for numeric-named tags
// and for named-any tags.
func Named(name string, v Value) Value {
	nv := v
	return Value{kind: KindNamed, name: name, nv: &nv}
}

// NamedU64 is a convenience constructor for the common "name + counter"
// tag shape used throughout the testable scenarios.
func NamedU64(name string, v uint64) Value {
	return Named(name, U64(v))
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) I64() (int64, bool)       { return v.i, v.kind == KindI64 }
func (v Value) U64() (uint64, bool)      { return v.u, v.kind == KindU64 }
func (v Value) F64() (float64, bool)     { return v.f, v.kind == KindF64 }
func (v Value) String() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) Blob() ([]byte, bool)     { return v.blob, v.kind == KindBlob }
func (v Value) Vector() ([]Value, bool)  { return v.vec, v.kind == KindVector }
func (v Value) Map() (map[string]Value, bool) { return v.m, v.kind == KindMap }
func (v Value) Any() (any, bool)         { return v.any, v.kind == KindAny }

// Name returns the name and nested value of a Named variant.
func (v Value) Name() (string, Value, bool) {
	if v.kind != KindNamed {
		return "", Null, false
	}
	return v.name, *v.nv, true
}

// GoString renders the value for logging/debugging; it is deliberately not
// called String() since String() is reserved for the string-variant accessor.
func (v Value) GoString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindI64:
		return fmt.Sprintf("%d", v.i)
	case KindU64:
		return fmt.Sprintf("%d", v.u)
	case KindF64:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindNamed:
		return fmt.Sprintf("%s=%s", v.name, v.nv.GoString())
	case KindBlob:
		return fmt.Sprintf("blob(%d)", len(v.blob))
	case KindVector:
		return fmt.Sprintf("vector(%d)", len(v.vec))
	case KindMap:
		return fmt.Sprintf("map(%d)", len(v.m))
	case KindAny:
		return fmt.Sprintf("any(%T)", v.any)
	default:
		return "?"
	}
}
