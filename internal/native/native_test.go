package native_test

import (
	"testing"

	"github.com/gopika/gopika/internal/debughook"
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/native"
	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/strtable"
	"github.com/gopika/gopika/internal/value"
	"github.com/gopika/gopika/internal/vm"
)

func newFixture(t *testing.T) (*gc.Collector, *strtable.Interner, *object.Package) {
	t.Helper()
	gcr := gc.New(gc.DefaultConfig)
	interner := strtable.NewInterner(gcr)
	root := object.NewPackage(gcr, nil, "root", nil)
	return gcr, interner, root
}

func TestMethodIsCallableWithBoundSelf(t *testing.T) {
	gcr, interner, root := newFixture(t)
	metaType := object.NewType(gcr, nil, "Type", root)
	pointType := object.NewType(gcr, metaType, "Point", root)

	var sawSelf value.Value
	native.Method(gcr, interner, pointType, "describe", 0, func(ctx *vm.Context, self value.Value, args []value.Value) ([]value.Value, error) {
		sawSelf = self
		return []value.Value{value.IntValue(1)}, nil
	})

	inst := object.NewObject(gcr, pointType)
	v, _, ok := inst.Get(interner.GetString("describe").Value())
	if !ok {
		t.Fatalf("expected describe method to be found")
	}
	fn, ok := vm.FunctionFromValue(v)
	if !ok {
		t.Fatalf("expected a Function value")
	}
	bound := fn.Bind(gcr, inst.Value())

	rt := &stubRuntime{gcr: gcr}
	ctx := vm.NewContext(rt)
	results, err := ctx.Call(bound, nil, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Int() != 1 {
		t.Fatalf("unexpected results: %v", results)
	}
	if !value.Equal(sawSelf, inst.Value()) {
		t.Fatalf("expected self to be the instance")
	}
}

func TestConstantSlotRejectsOverwrite(t *testing.T) {
	gcr, interner, root := newFixture(t)
	native.Constant(gcr, interner, root, "PI", value.RealValue(3.14))

	key := interner.GetString("PI").Value()
	v, attr, ok := root.Slots().Get(key)
	if !ok || v.Real() != 3.14 {
		t.Fatalf("expected PI constant installed, got %v %v", v, ok)
	}
	if attr&strtable.ReadOnly == 0 {
		t.Fatalf("expected the constant slot to be read-only")
	}
	if root.Slots().Set(key, value.RealValue(0), 0) {
		t.Fatalf("expected a plain write to a constant slot to be rejected")
	}
}

func TestAliasReferencesSameValue(t *testing.T) {
	gcr, interner, root := newFixture(t)
	native.Constant(gcr, interner, root, "MaxInt", value.IntValue(42))

	if !native.Alias(gcr, interner, root, "MAXINT", "MaxInt") {
		t.Fatalf("expected alias to succeed")
	}
	v, _, ok := root.Slots().Get(interner.GetString("MAXINT").Value())
	if !ok || v.Int() != 42 {
		t.Fatalf("expected alias to read through to 42, got %v", v)
	}
}

func TestPropertyGetterInvokesBoundCallback(t *testing.T) {
	gcr, interner, root := newFixture(t)
	metaType := object.NewType(gcr, nil, "Type", root)
	pointType := object.NewType(gcr, metaType, "Point", root)

	native.Property(gcr, interner, pointType, "x", 0, func(ctx *vm.Context, self value.Value, args []value.Value) ([]value.Value, error) {
		return []value.Value{value.IntValue(7)}, nil
	}, nil)

	v, _, ok := pointType.Methods().Get(interner.GetString("x").Value())
	if !ok {
		t.Fatalf("expected x property installed on method table")
	}
	prop, ok := vm.PropertyFromValue(v)
	if !ok {
		t.Fatalf("expected a Property value")
	}
	if !prop.ReadOnly() {
		t.Fatalf("expected a getter-only property to be read-only")
	}

	rt := &stubRuntime{gcr: gcr}
	ctx := vm.NewContext(rt)
	got, err := prop.Get(ctx, value.NilValue)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int() != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
}

func TestManagedUserDataFinalizeRunsOnSweep(t *testing.T) {
	gcr := gc.New(gc.DefaultConfig)
	released := false
	u := native.NewManagedUserData(gcr, nil, "payload", native.Hooks{
		Finalize: func(ptr any) bool {
			released = true
			return true
		},
	})
	gcr.SetRoots(func() []gc.Object { return nil })
	gcr.FullCollect()
	if !released {
		t.Fatalf("expected finalize hook to run once the box became unreachable")
	}
	_ = u
}

type stubRuntime struct{ gcr *gc.Collector }

func (r *stubRuntime) Collector() *gc.Collector { return r.gcr }
func (r *stubRuntime) Dispatch(ev debughook.Event, args any) (bool, error) {
	return false, nil
}
