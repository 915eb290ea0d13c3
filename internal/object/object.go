package object

import (
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/perror"
	"github.com/gopika/gopika/internal/strtable"
	"github.com/gopika/gopika/internal/value"
)

// Object is an attribute-capable value: a per-instance slot Table plus
// a Type pointer (spec.md §3.2, §4.3).
type Object struct {
	Basic
	slots *strtable.Table
}

// NewObject allocates a fresh Object of type t with an empty slot
// table and registers it with gcr. Abstract types reject direct
// construction; callers should check t.Abstract() first (spec.md §4.3
// "abstract flag (forbids direct construction)") — NewObject itself
// does not enforce this so that Type bootstrap (which instantiates the
// root Object type before any user code runs) can bypass it.
func NewObject(gcr *gc.Collector, t *Type) *Object {
	o := &Object{slots: strtable.NewTable(gcr)}
	o.kind = KindObject
	o.typ = t
	if gcr != nil {
		gcr.Add(o)
	}
	return o
}

// Slots exposes the instance slot table directly, for callers (the VM,
// native bindings) that need bulk access.
func (o *Object) Slots() *strtable.Table { return o.slots }

// Value wraps o as a runtime Value with Kind() == value.Object.
func (o *Object) Value() value.Value { return value.NewRef(value.Object, o) }

// MarkRefs satisfies gc.Object.
func (o *Object) MarkRefs(c *gc.Collector) {
	markTable(c, o.slots)
	if o.typ != nil {
		c.Mark(o.typ)
	}
}

// Finalize satisfies gc.Object; plain Objects own no external resource.
func (o *Object) Finalize() bool { return true }

// Get resolves key along the chain fixed by spec.md §4.3: instance
// slots, then the Type's method table, then each base Type in turn.
// It does not handle Property invocation or Type-level delegation —
// those require calling a Function through a Context, which belongs
// to internal/vm's slot-read orchestration (vm.GetMember).
func (o *Object) Get(key value.Value) (value.Value, strtable.Attr, bool) {
	if v, attr, ok := o.slots.Get(key); ok {
		return v, attr, true
	}
	for t := o.typ; t != nil; t = t.base {
		if v, attr, ok := t.methods.Get(key); ok {
			return v, attr, true
		}
	}
	return value.NilValue, 0, false
}

// Set writes key=val into the instance slots, honoring attribute bits
// and the "protected" scope rule (spec.md §4.3): a protected slot
// rejects writes whose callerScope differs from the object's own Type
// package, unless attr requests ForceWrite.
func (o *Object) Set(key, val value.Value, attr strtable.Attr, callerScope *Package) error {
	if _, existing, ok := o.slots.Get(key); ok && attr&strtable.ForceWrite == 0 {
		if existing&strtable.ReadOnly != 0 {
			return perror.New(perror.KindType, "slot is read-only")
		}
		if existing&strtable.Protected != 0 && !o.scopeAllowed(callerScope) {
			return perror.New(perror.KindType, "slot is protected")
		}
	}
	o.slots.Set(key, val, attr)
	return nil
}

func (o *Object) scopeAllowed(callerScope *Package) bool {
	if o.typ == nil {
		return true
	}
	return callerScope == &o.typ.Package
}

// ObjectFromValue extracts the *Object a Value wraps, if any.
func ObjectFromValue(v value.Value) (*Object, bool) {
	o, ok := v.Ref().(*Object)
	return o, ok
}
