package vm

import (
	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/perror"
	"github.com/gopika/gopika/internal/strtable"
	"github.com/gopika/gopika/internal/value"
)

// slotResolver is satisfied by every Basic that carries its own
// instance slot Table (Object, Package, Type — all promote Object.Get).
// Array has no instance slots of its own and is resolved through
// typedValue's method-table chain instead.
type slotResolver interface {
	Get(key value.Value) (value.Value, strtable.Attr, bool)
}

// slotWriter is the write-side counterpart of slotResolver, satisfied
// by the same set of types via the promoted Object.Set.
type slotWriter interface {
	Set(key, val value.Value, attr strtable.Attr, callerScope *object.Package) error
}

// typedValue is satisfied by every heap value carrying a Type pointer
// (spec.md §3.2), letting member resolution fall back to the method
// chain for values with no instance slots of their own.
type typedValue interface {
	Type() *object.Type
}

// GetMember performs spec.md §4.3's full slot-resolution chain for a
// read: instance Table, the owning Type's method table, each base Type
// in turn, and — if nothing is found — the nearest ancestor Type's
// delegation operator. A resolved Property slot is invoked through ctx
// rather than returned as the descriptor itself (spec.md §8 scenario 6
// "reading [a Property] on an instance yields the integer 42 via
// Context call machinery, not the Property descriptor itself").
func GetMember(ctx *Context, self value.Value, key value.Value) (value.Value, error) {
	v, found := resolveSlot(self, key)
	if found {
		if prop, ok := PropertyFromValue(v); ok {
			return prop.Get(ctx, self)
		}
		return v, nil
	}

	if delegate, ok := delegateFor(self); ok {
		return invokeDelegate(ctx, delegate, self, key)
	}
	return value.NilValue, perror.New(perror.KindType, "unknown member %s", key.DebugString())
}

// SetMember performs spec.md §4.3's write-side resolution: if the slot
// already resolved anywhere in the read chain (instance or an inherited
// Type method table) is a Property, its setter is invoked through ctx;
// otherwise val is written into the instance's own slot table, honoring
// the read-only/protected attribute bits (spec.md §4.3 "Slot writes
// honor attribute bits").
func SetMember(ctx *Context, self, key, val value.Value, callerScope *object.Package) error {
	if existing, found := resolveSlot(self, key); found {
		if prop, ok := PropertyFromValue(existing); ok {
			return prop.Set(ctx, self, val)
		}
	}

	sw, ok := self.Ref().(slotWriter)
	if !ok {
		return perror.New(perror.KindType, "value has no writable slots")
	}
	return sw.Set(key, val, 0, callerScope)
}

// resolveSlot implements spec.md §4.3 steps 1-3 only (no Property
// invocation, no delegation): instance Table, then the owning Type's
// method table walked up the base-Type chain.
func resolveSlot(self value.Value, key value.Value) (value.Value, bool) {
	ref := self.Ref()
	if sr, ok := ref.(slotResolver); ok {
		if v, _, ok := sr.Get(key); ok {
			return v, true
		}
		return value.NilValue, false
	}
	if tv, ok := ref.(typedValue); ok {
		for t := tv.Type(); t != nil; t = t.Base() {
			if v, _, ok := t.Methods().Get(key); ok {
				return v, true
			}
		}
	}
	return value.NilValue, false
}

// delegateFor returns the nearest ancestor Type's delegation operator
// for self, if any Type in its chain has one installed (spec.md §4.3
// step 4).
func delegateFor(self value.Value) (value.Value, bool) {
	tv, ok := self.Ref().(typedValue)
	if !ok {
		return value.NilValue, false
	}
	for t := tv.Type(); t != nil; t = t.Base() {
		if d := t.Delegate(); !d.IsNull() {
			return d, true
		}
	}
	return value.NilValue, false
}

// invokeDelegate calls delegate(self, key) through ctx, the same
// bind-and-call convention a Property getter uses.
func invokeDelegate(ctx *Context, delegate, self, key value.Value) (value.Value, error) {
	fn, ok := FunctionFromValue(delegate)
	if !ok {
		return value.NilValue, perror.New(perror.KindType, "delegation operator is not callable")
	}
	bound := fn.Bind(ctx.Collector(), self)
	results, err := ctx.Call(bound, []value.Value{key}, 1)
	if err != nil {
		return value.NilValue, err
	}
	if len(results) == 0 {
		return value.NilValue, nil
	}
	return results[0], nil
}
