// Package value defines the tagged-union Value type that is the
// currency of the gopika runtime (spec.md §3.1). A Value is a small,
// trivially-copyable record: exactly one of its fields is meaningful,
// selected by Kind. Heap-referencing kinds (String, Object, Property,
// UserData) hold no ownership of their own — liveness is entirely the
// collector's responsibility (internal/gc), so copying a Value never
// needs to touch a refcount.
//
// This package sits below every other runtime package and must not
// import internal/object, internal/strtable, or internal/gc: higher
// packages attach typed accessors (e.g. strtable.AsString) rather than
// this package knowing their concrete types, which keeps the import
// graph a DAG.
package value

import (
	"math"
	"strconv"
)

// Kind is the discriminant of a Value (spec.md §3.1).
type Kind uint8

const (
	Null Kind = iota
	Bool
	Integer
	Real
	String
	Object
	Property
	UserData
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "NULL"
	case Bool:
		return "BOOLEAN"
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case String:
		return "STRING"
	case Object:
		return "OBJECT"
	case Property:
		return "PROPERTY"
	case UserData:
		return "USERDATA"
	default:
		return "UNKNOWN"
	}
}

// Value is the tagged scalar/reference carrier described in spec.md
// §3.1. Scalars (Bool/Integer/Real) are packed into n; heap references
// are carried in ref as an opaque `any` — the owning package (strtable,
// object) knows how to type-assert it back and is responsible for
// invoking the collector's write barrier when a Value is stored into a
// heap container.
type Value struct {
	kind Kind
	n    uint64
	ref  any
}

// NilValue is the absence marker (spec.md §3.1 "null").
var NilValue = Value{kind: Null}

// BoolValue constructs a boolean Value; true/false encode as 1/0 per
// spec.md §3.1's invariant.
func BoolValue(b bool) Value {
	if b {
		return Value{kind: Bool, n: 1}
	}
	return Value{kind: Bool, n: 0}
}

// IntValue constructs an integer Value. The runtime targets a 64-bit
// platform integer; spec.md §3.1 leaves the width platform-selected.
func IntValue(i int64) Value {
	return Value{kind: Integer, n: uint64(i)}
}

// RealValue constructs a floating-point Value.
func RealValue(f float64) Value {
	return Value{kind: Real, n: math.Float64bits(f)}
}

// NewRef constructs a heap-referencing Value. kind must be one of
// String, Object, Property, or UserData; ref is the concrete heap
// object (e.g. *strtable.String). Callers in higher-level packages
// wrap this with typed constructors ((*strtable.String).Value, and so on)
// so application code never calls NewRef directly with the wrong kind.
func NewRef(kind Kind, ref any) Value {
	return Value{kind: kind, ref: ref}
}

// Kind reports the discriminant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null/absence marker.
func (v Value) IsNull() bool { return v.kind == Null }

// IsBool reports whether v holds a boolean.
func (v Value) IsBool() bool { return v.kind == Bool }

// Bool returns the boolean payload; valid only when IsBool().
func (v Value) Bool() bool { return v.n != 0 }

// IsInteger reports whether v holds an integer.
func (v Value) IsInteger() bool { return v.kind == Integer }

// Int returns the integer payload; valid only when IsInteger().
func (v Value) Int() int64 { return int64(v.n) }

// IsReal reports whether v holds a float.
func (v Value) IsReal() bool { return v.kind == Real }

// Real returns the float payload; valid only when IsReal().
func (v Value) Real() float64 { return math.Float64frombits(v.n) }

// IsString reports whether v references an interned string.
func (v Value) IsString() bool { return v.kind == String }

// IsObject reports whether v references an Object-hierarchy instance.
func (v Value) IsObject() bool { return v.kind == Object }

// IsProperty reports whether v references a Property descriptor.
func (v Value) IsProperty() bool { return v.kind == Property }

// IsUserData reports whether v references a native-data box.
func (v Value) IsUserData() bool { return v.kind == UserData }

// Ref returns the opaque heap payload for reference kinds, or nil for
// scalar kinds. Higher packages type-assert the result.
func (v Value) Ref() any { return v.ref }

// Truthy implements the runtime's boolean-coercion rule used by
// condition evaluation in internal/vm: null and false-boolean are
// falsy, zero integer/real are falsy, everything else (including all
// heap references) is truthy. This mirrors the common dynamic-language
// convention and is explicitly not specified further by spec.md, which
// only fixes boolean encoding.
func (v Value) Truthy() bool {
	switch v.kind {
	case Null:
		return false
	case Bool:
		return v.n != 0
	case Integer:
		return int64(v.n) != 0
	case Real:
		return v.Real() != 0
	default:
		return true
	}
}

// Equal reports identity/value equality per spec.md §3.1: scalars
// compare by value, heap references compare by identity (pointer
// equality on the ref payload — in particular this is what makes
// interned strings compare equal exactly when they are the same
// instance, spec.md §8).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case Bool, Integer:
		return a.n == b.n
	case Real:
		return a.Real() == b.Real()
	default:
		return a.ref == b.ref
	}
}

// DebugString renders a Value for diagnostics (logging, disassembly).
// It is not the language-level string-coercion operator (spec.md §3.3
// routes that through a Context call to a conventionally-named slot);
// heap references render through the ref's String method when it has
// one, and otherwise as the Kind name.
func (v Value) DebugString() string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		if v.n != 0 {
			return "true"
		}
		return "false"
	case Integer:
		return strconv.FormatInt(v.Int(), 10)
	case Real:
		return strconv.FormatFloat(v.Real(), 'g', -1, 64)
	default:
		if s, ok := v.ref.(interface{ String() string }); ok {
			return s.String()
		}
		return v.kind.String()
	}
}
