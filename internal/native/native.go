// Package native implements the declarative binding surface from
// spec.md §4.7: registering native Go callbacks as Functions on a
// target Type or Package, and the UserData box for opaque native
// pointers. Grounded on the teacher's registerBuiltins/builtins-map
// pattern (internal/bytecode/vm_builtins*.go), generalized from a
// fixed global function table to per-Type/per-Package declarative
// installers operating on the object model.
package native

import (
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/strtable"
	"github.com/gopika/gopika/internal/value"
	"github.com/gopika/gopika/internal/vm"
)

// Callback is the Go function signature every binder wraps.
type Callback = vm.NativeCallback

// Method installs fn as an instance method named name on target's
// method table (spec.md §4.7: "Method(fn, name) — instance method
// with self bound"). The installed Function is unbound, and slot lookup
// (object.Object.Get, vm.GetMember) returns it unbound; the caller
// binds the receiver with Function.Bind before calling it.
func Method(gcr *gc.Collector, interner *strtable.Interner, target *object.Type, name string, arity int, fn Callback) {
	def := &vm.NativeDef{FnName: name, FnArity: arity, Callback: fn}
	bound := vm.NewFunction(gcr, def, &target.Package)
	target.DefineMethod(gcr, interner, name, bound.Value())
}

// VariadicMethod is Method with the trailing-argument-packing flag set
// (spec.md §4.4's variadic packing applies uniformly to native and
// bytecode Defs).
func VariadicMethod(gcr *gc.Collector, interner *strtable.Interner, target *object.Type, name string, arity int, fn Callback) {
	def := &vm.NativeDef{FnName: name, FnArity: arity, FnVariadic: true, Callback: fn}
	bound := vm.NewFunction(gcr, def, &target.Package)
	target.DefineMethod(gcr, interner, name, bound.Value())
}

// StaticMethod installs fn as a slot on target with no self binding
// (spec.md §4.7: "StaticMethod(fn, name) — no self").
func StaticMethod(gcr *gc.Collector, interner *strtable.Interner, target *object.Package, name string, arity int, fn Callback) {
	def := &vm.NativeDef{FnName: name, FnArity: arity, Callback: fn}
	f := vm.NewFunction(gcr, def, target)
	setSlot(gcr, interner, target, name, f.Value(), strtable.ReadOnly)
}

// Property installs a Property slot on target backed by getter and an
// optional setter (spec.md §4.7: "Property(name, getter, setter) —
// installs a Property slot"). setter may be nil for a read-only
// property.
func Property(gcr *gc.Collector, interner *strtable.Interner, target *object.Type, name string, getterArity int, getter Callback, setter Callback) {
	getterDef := &vm.NativeDef{FnName: name + ".get", Callback: getter}
	getterFn := vm.NewFunction(gcr, getterDef, &target.Package)

	var setterFn *vm.Function
	if setter != nil {
		setterDef := &vm.NativeDef{FnName: name + ".set", FnArity: 1, Callback: setter}
		setterFn = vm.NewFunction(gcr, setterDef, &target.Package)
	}
	prop := vm.NewProperty(gcr, getterFn, setterFn)
	target.DefineMethod(gcr, interner, name, prop.Value())
}

// Constant sets an immutable slot on target (spec.md §4.7: "Constant
// (name, value) — sets an immutable slot").
func Constant(gcr *gc.Collector, interner *strtable.Interner, target *object.Package, name string, v value.Value) {
	setSlot(gcr, interner, target, name, v, strtable.ReadOnly)
}

// Alias creates a second slot on target named newName referencing the
// same value already stored under existingName (spec.md §4.7: "Alias
// (new, existing) — creates a second slot referencing the same
// value").
func Alias(gcr *gc.Collector, interner *strtable.Interner, target *object.Package, newName, existingName string) bool {
	existingKey := interner.GetString(existingName).Value()
	v, attr, ok := target.Slots().Get(existingKey)
	if !ok {
		return false
	}
	setSlot(gcr, interner, target, newName, v, attr)
	return true
}

// setSlot installs a slot during binding setup. The first write does
// not pass ForceWrite; only when it is rejected by an existing
// read-only slot of the same name is the write repeated with
// ForceWrite added to attr, so the re-bound slot keeps the requested
// ReadOnly/Protected bits.
func setSlot(gcr *gc.Collector, interner *strtable.Interner, target *object.Package, name string, v value.Value, attr strtable.Attr) {
	key := interner.GetString(name).Value()
	if !target.Slots().Set(key, v, attr) {
		// Re-binding over an existing protected slot; force it through
		// since binder installers run during trusted bootstrap, not
		// script-level assignment.
		target.Slots().Set(key, v, attr|strtable.ForceWrite)
	}
}
