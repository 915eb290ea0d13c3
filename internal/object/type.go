package object

import (
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/perror"
	"github.com/gopika/gopika/internal/strtable"
	"github.com/gopika/gopika/internal/value"
)

// Type is a Package that also bears a base type, constructor, method
// table, and the abstract/final flags (spec.md §3.2, §4.3). There is
// no virtual dispatch at the value level (spec.md §4.3 "Polymorphism is
// structural"): every behavior is driven through slot resolution along
// Object.Get's chain.
type Type struct {
	Package
	base     *Type
	ctor     value.Value // constructor Function, invoked by a "new"-style call
	methods  *strtable.Table
	delegate value.Value // optional fallback slot-read operator
	abstract bool
	final    bool
}

// NewType allocates a Type named name, registering it under parent
// (typically the world package) unless parent is nil. The type has no
// base type, empty method table, and is neither abstract nor final;
// callers configure those via the setters below before the type is
// published.
func NewType(gcr *gc.Collector, metaType *Type, name string, parent *Package) *Type {
	t := &Type{
		methods: strtable.NewTable(gcr),
	}
	t.Object = Object{slots: strtable.NewTable(gcr)}
	t.name = name
	t.kind = KindType
	t.typ = metaType
	if parent != nil {
		t.parent = parent
	}
	if gcr != nil {
		gcr.Add(t)
	}
	if parent != nil {
		parent.children = append(parent.children, &t.Package)
		if gcr != nil {
			gcr.WriteBarrier(parent, &t.Package)
		}
	}
	return t
}

// Base returns the type this one derives from, or nil for a root type.
func (t *Type) Base() *Type { return t.base }

// SetBase installs the base type, enforcing spec.md §4.3's "final
// flag (forbids subtyping)" rule.
func (t *Type) SetBase(base *Type) error {
	if base != nil && base.final {
		return perror.New(perror.KindType, "cannot derive from final type %s", base.name)
	}
	t.base = base
	return nil
}

// Abstract reports whether direct construction is forbidden.
func (t *Type) Abstract() bool { return t.abstract }

// SetAbstract configures the abstract flag.
func (t *Type) SetAbstract(v bool) { t.abstract = v }

// Final reports whether subtyping is forbidden.
func (t *Type) Final() bool { return t.final }

// SetFinal configures the final flag.
func (t *Type) SetFinal(v bool) { t.final = v }

// Constructor returns the Value (normally a callable Function) invoked
// by a "new"-style call against this type.
func (t *Type) Constructor() value.Value { return t.ctor }

// SetConstructor installs the constructor Value.
func (t *Type) SetConstructor(v value.Value) { t.ctor = v }

// Delegate returns the fallback slot-read operator, or the null Value
// if none is defined.
func (t *Type) Delegate() value.Value { return t.delegate }

// SetDelegate installs a delegation Value invoked by vm.GetMember when
// ordinary slot resolution finds nothing (spec.md §4.3 "Delegation
// operator, if defined on the Type").
func (t *Type) SetDelegate(v value.Value) { t.delegate = v }

// Methods exposes the type's own method table directly.
func (t *Type) Methods() *strtable.Table { return t.methods }

// Value wraps t as a runtime Value with Kind() == value.Object. Shadows
// the promoted Package.Value, which would otherwise box the embedded
// Package field instead of t itself.
func (t *Type) Value() value.Value { return value.NewRef(value.Object, t) }

// DefineMethod installs fn under name in the method table, as a
// read-only slot by convention (methods are not normally reassignable
// from script code).
func (t *Type) DefineMethod(gcr *gc.Collector, interner *strtable.Interner, name string, fn value.Value) {
	key := interner.GetString(name).Value()
	t.methods.Set(key, fn, strtable.ReadOnly)
}

// IsSubtypeOf reports whether t is base or derives from base,
// transitively.
func (t *Type) IsSubtypeOf(base *Type) bool {
	for cur := t; cur != nil; cur = cur.base {
		if cur == base {
			return true
		}
	}
	return false
}

// MarkRefs satisfies gc.Object, extending Package.MarkRefs with the
// type-specific edges.
func (t *Type) MarkRefs(c *gc.Collector) {
	t.Package.MarkRefs(c)
	if t.base != nil {
		c.Mark(t.base)
	}
	markTable(c, t.methods)
	markRef(c, t.ctor)
	markRef(c, t.delegate)
}

// Finalize satisfies gc.Object.
func (t *Type) Finalize() bool { return true }
