// Package object implements the attribute-capable object hierarchy
// from spec.md §3.2 and §4.3: Basic, Object, Package, and Type. Per
// spec.md §9's redesign note, the C++ original's deep inheritance
// chain (GCObject→Basic→Object→Package→Type) is flattened here into
// plain Go struct embedding with an explicit Kind tag rather than a
// vtable, so callers can type-switch on Kind without reflection.
package object

import (
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/strtable"
	"github.com/gopika/gopika/internal/value"
)

// Kind distinguishes the concrete variant of a Basic without requiring
// a type assertion, mirroring the "tagged-variant enum" design note.
type Kind uint8

const (
	KindObject Kind = iota
	KindPackage
	KindType
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "Object"
	case KindPackage:
		return "Package"
	case KindType:
		return "Type"
	case KindArray:
		return "Array"
	default:
		return "Basic"
	}
}

// Basic is the root of every user-visible runtime value that carries a
// Type pointer (spec.md §3.2). Functions and Contexts are not Basics —
// they live in internal/vm — but everything reachable through the
// slot/attribute model is.
type Basic struct {
	gc.Header
	kind Kind
	typ  *Type
}

// GCHeader satisfies gc.Object; promoted to every embedder.
func (b *Basic) GCHeader() *gc.Header { return &b.Header }

// Kind reports which concrete variant this Basic is.
func (b *Basic) Kind() Kind { return b.kind }

// Type returns the object's type pointer (its prototype).
func (b *Basic) Type() *Type { return b.typ }

// SetType installs the object's type pointer directly, without
// triggering a write barrier (used only during bootstrap before the
// collector has registered the object; ordinary code should go through
// Engine-level constructors that call the collector correctly).
func (b *Basic) SetType(t *Type) { b.typ = t }

func markRef(c *gc.Collector, v value.Value) {
	if ref, ok := v.Ref().(gc.Object); ok {
		c.Mark(ref)
	}
}

// markTable is a nil-safe helper for marking an optional slots table.
func markTable(c *gc.Collector, t *strtable.Table) {
	if t != nil {
		c.Mark(t)
	}
}
