package object

import (
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/value"
)

// Array is a dense Value sequence (spec.md §3.2). Unlike Object it
// carries no instance slot Table of its own; built-in methods (Length,
// Push, ...) are resolved through its Type's method table the same way
// any other slot read is, so Array still participates in the ordinary
// spec.md §4.3 lookup chain — it simply has no instance-level slots to
// check first.
type Array struct {
	Basic
	items []value.Value
}

// NewArray allocates an Array of type t with the given initial items
// (copied) and registers it with gcr.
func NewArray(gcr *gc.Collector, t *Type, items []value.Value) *Array {
	a := &Array{items: append([]value.Value(nil), items...)}
	a.kind = KindArray
	a.typ = t
	if gcr != nil {
		gcr.Add(a)
	}
	return a
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.items) }

// Get returns the element at idx, or an error via the second bool if
// idx is out of range (spec.md §3.2 "Index — out-of-range or missing
// key").
func (a *Array) Get(idx int) (value.Value, bool) {
	if idx < 0 || idx >= len(a.items) {
		return value.NilValue, false
	}
	return a.items[idx], true
}

// Set overwrites the element at idx, applying the collector's write
// barrier when val is a heap reference.
func (a *Array) Set(gcr *gc.Collector, idx int, val value.Value) bool {
	if idx < 0 || idx >= len(a.items) {
		return false
	}
	a.items[idx] = val
	if gcr != nil {
		if ref, ok := val.Ref().(gc.Object); ok {
			gcr.WriteBarrier(a, ref)
		}
	}
	return true
}

// Push appends val to the array.
func (a *Array) Push(gcr *gc.Collector, val value.Value) {
	a.items = append(a.items, val)
	if gcr != nil {
		if ref, ok := val.Ref().(gc.Object); ok {
			gcr.WriteBarrier(a, ref)
		}
	}
}

// Items returns the backing slice directly; callers must not retain
// it across a mutating call (Push may reallocate).
func (a *Array) Items() []value.Value { return a.items }

// Value wraps a as a runtime Value with Kind() == value.Object.
func (a *Array) Value() value.Value { return value.NewRef(value.Object, a) }

// ArrayFromValue extracts the *Array a Value wraps, if any.
func ArrayFromValue(v value.Value) (*Array, bool) {
	a, ok := v.Ref().(*Array)
	return a, ok
}

// MarkRefs satisfies gc.Object.
func (a *Array) MarkRefs(c *gc.Collector) {
	if a.typ != nil {
		c.Mark(a.typ)
	}
	for _, v := range a.items {
		markRef(c, v)
	}
}

// Finalize satisfies gc.Object.
func (a *Array) Finalize() bool { return true }
