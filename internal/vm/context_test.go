package vm_test

import (
	"testing"

	"github.com/gopika/gopika/internal/debughook"
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/value"
	"github.com/gopika/gopika/internal/vm"
	"github.com/gopika/gopika/internal/vm/asm"
)

// fakeRuntime is a minimal vm.Runtime for tests: a real collector, no
// hook handlers installed.
type fakeRuntime struct {
	gcr   *gc.Collector
	chain *debughook.Chain
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{gcr: gc.New(gc.DefaultConfig), chain: debughook.NewChain()}
}

func (r *fakeRuntime) Collector() *gc.Collector { return r.gcr }
func (r *fakeRuntime) Dispatch(ev debughook.Event, args any) (bool, error) {
	return r.chain.Dispatch(ev, args)
}

func TestNativeCallReturnsValues(t *testing.T) {
	rt := newFakeRuntime()
	ctx := vm.NewContext(rt)

	def := &vm.NativeDef{
		FnName:  "add",
		FnArity: 2,
		Callback: func(ctx *vm.Context, self value.Value, args []value.Value) ([]value.Value, error) {
			return []value.Value{value.IntValue(args[0].Int() + args[1].Int())}, nil
		},
	}
	fn := vm.NewFunction(rt.Collector(), def, nil)

	results, err := ctx.Call(fn, []value.Value{value.IntValue(2), value.IntValue(3)}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Int() != 5 {
		t.Fatalf("expected [5], got %v", results)
	}
}

func TestReturnProtocolPadsDeficitWithNull(t *testing.T) {
	rt := newFakeRuntime()
	ctx := vm.NewContext(rt)

	b := asm.New("one", 0)
	idx := b.Const(value.IntValue(42))
	b.Emit(vm.OpLoadConst, idx, 0)
	b.Emit(vm.OpReturn, 1, 0)
	fn := vm.NewFunction(rt.Collector(), b.Build(), nil)

	results, err := ctx.Call(fn, nil, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Int() != 42 {
		t.Fatalf("expected first result 42, got %v", results[0])
	}
	if !results[1].IsNull() || !results[2].IsNull() {
		t.Fatalf("expected padding with null, got %v", results[1:])
	}
}

func TestReturnProtocolDiscardsExcess(t *testing.T) {
	rt := newFakeRuntime()
	ctx := vm.NewContext(rt)

	b := asm.New("two", 0)
	c1 := b.Const(value.IntValue(1))
	c2 := b.Const(value.IntValue(2))
	b.Emit(vm.OpLoadConst, c1, 0)
	b.Emit(vm.OpLoadConst, c2, 0)
	b.Emit(vm.OpReturn, 2, 0)
	fn := vm.NewFunction(rt.Collector(), b.Build(), nil)

	results, err := ctx.Call(fn, nil, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Int() != 1 {
		t.Fatalf("expected only the first pushed value [1], got %v", results)
	}
}

func TestArityMismatchWithoutDefaultsErrors(t *testing.T) {
	rt := newFakeRuntime()
	ctx := vm.NewContext(rt)

	b := asm.New("needsOne", 1)
	b.Emit(vm.OpReturn, 0, 0)
	fn := vm.NewFunction(rt.Collector(), b.Build(), nil)

	if _, err := ctx.Call(fn, nil, 0); err == nil {
		t.Fatalf("expected an arity error calling with zero args")
	}
}

func TestMissingArgumentsFilledFromDefaults(t *testing.T) {
	rt := newFakeRuntime()
	ctx := vm.NewContext(rt)

	b := asm.New("withDefault", 1)
	b.Defaults(value.IntValue(99))
	b.Emit(vm.OpLoadLocal, 0, 0)
	b.Emit(vm.OpReturn, 1, 0)
	b.SetLocalCount(1)
	fn := vm.NewFunction(rt.Collector(), b.Build(), nil)

	results, err := ctx.Call(fn, nil, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Int() != 99 {
		t.Fatalf("expected default-filled argument 99, got %v", results)
	}
}

func TestVariadicPacksExcessIntoArray(t *testing.T) {
	rt := newFakeRuntime()
	ctx := vm.NewContext(rt)

	b := asm.New("variadic", 1).Variadic()
	b.SetLocalCount(2)
	// local 1 is the packed Array; return it.
	b.Emit(vm.OpLoadLocal, 1, 0)
	b.Emit(vm.OpReturn, 1, 0)
	fn := vm.NewFunction(rt.Collector(), b.Build(), nil)

	results, err := ctx.Call(fn, []value.Value{value.IntValue(1), value.IntValue(2), value.IntValue(3)}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || !results[0].IsObject() {
		t.Fatalf("expected the packed Array object, got %v", results)
	}
}

func TestYieldSuspendsContextForLaterResume(t *testing.T) {
	rt := newFakeRuntime()
	ctx := vm.NewContext(rt)

	b := asm.New("coroutine", 0)
	c1 := b.Const(value.IntValue(1))
	b.Emit(vm.OpLoadConst, c1, 0)
	b.Emit(vm.OpYield, 1, 0)
	c2 := b.Const(value.IntValue(2))
	b.Emit(vm.OpLoadConst, c2, 0)
	b.Emit(vm.OpReturn, 1, 0)
	fn := vm.NewFunction(rt.Collector(), b.Build(), nil)

	results, err := ctx.Call(fn, nil, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Fatalf("expected no results while suspended, got %v", results)
	}
	if ctx.Status() != vm.StatusSuspended {
		t.Fatalf("expected context to be suspended after yield, got %s", ctx.Status())
	}

	if _, err := ctx.Resume(nil); err != nil {
		t.Fatalf("unexpected error resuming: %v", err)
	}
	if ctx.Status() != vm.StatusDead {
		t.Fatalf("expected context to be dead after the coroutine returns, got %s", ctx.Status())
	}
}

func TestUnhandledExceptionPropagatesAsError(t *testing.T) {
	rt := newFakeRuntime()
	ctx := vm.NewContext(rt)

	b := asm.New("throws", 0)
	c1 := b.Const(value.IntValue(7))
	b.Emit(vm.OpLoadConst, c1, 0)
	b.Emit(vm.OpThrow, 0, 0)
	fn := vm.NewFunction(rt.Collector(), b.Build(), nil)

	if _, err := ctx.Call(fn, nil, 0); err == nil {
		t.Fatalf("expected an error from an unhandled throw")
	}
}

func TestHandlerCatchesThrowAndResumesAtCatchPC(t *testing.T) {
	rt := newFakeRuntime()
	ctx := vm.NewContext(rt)

	b := asm.New("tryCatch", 0)
	// PushHandler target is patched once we know the catch PC.
	handlerIdx := b.Emit(vm.OpPushHandler, 0, 0)
	excConst := b.Const(value.IntValue(13))
	b.Emit(vm.OpLoadConst, excConst, 0)
	b.Emit(vm.OpThrow, 0, 0)
	b.Emit(vm.OpPopHandler, 0, 0) // unreached, protected block "completed"
	catchPC := b.Here()
	b.Patch(handlerIdx, catchPC)
	// catch block: the thrown value is already on the stack; return it.
	b.Emit(vm.OpReturn, 1, 0)
	fn := vm.NewFunction(rt.Collector(), b.Build(), nil)

	results, err := ctx.Call(fn, nil, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Int() != 13 {
		t.Fatalf("expected the caught value [13], got %v", results)
	}
}

func TestCaptureUpvalueSharesCellAndClosesOnReturn(t *testing.T) {
	rt := newFakeRuntime()
	ctx := vm.NewContext(rt)

	// inner reads whatever cell its sole upvalue points to.
	innerB := asm.New("inner", 0)
	innerB.Emit(vm.OpLoadUpvalue, 0, 0)
	innerB.Emit(vm.OpReturn, 1, 0)
	innerFn := vm.NewFunction(rt.Collector(), innerB.Build(), nil)

	// maker is a native function that, while outer's frame is still
	// live, captures outer's local[0] as an open upvalue and binds it
	// onto inner — the Go-level equivalent of an OpClosure instruction,
	// since no bytecode compiler exists to emit one.
	makerDef := &vm.NativeDef{
		FnName: "maker",
		Callback: func(ctx *vm.Context, self value.Value, args []value.Value) ([]value.Value, error) {
			uv, err := ctx.CaptureUpvalue(0)
			if err != nil {
				return nil, err
			}
			bound := innerFn.WithUpvalues(ctx.Collector(), []*vm.Upvalue{uv})
			return []value.Value{bound.Value()}, nil
		},
	}
	makerFn := vm.NewFunction(rt.Collector(), makerDef, nil)

	outer := asm.New("outer", 0)
	outer.SetLocalCount(1)
	c1 := outer.Const(value.IntValue(41))
	outer.Emit(vm.OpLoadConst, c1, 0)
	outer.Emit(vm.OpStoreLocal, 0, 0)
	makerConst := outer.Const(makerFn.Value())
	outer.Emit(vm.OpLoadConst, makerConst, 0)
	outer.Emit(vm.OpCall, 0, 1)
	outer.Emit(vm.OpReturn, 1, 0)
	outerFn := vm.NewFunction(rt.Collector(), outer.Build(), nil)

	results, err := ctx.Call(outerFn, nil, 1)
	if err != nil {
		t.Fatalf("unexpected error running outer: %v", err)
	}
	closureFn, ok := vm.FunctionFromValue(results[0])
	if !ok {
		t.Fatalf("expected outer to return a Function value, got %v", results[0])
	}

	// outer's frame has already returned and closed its upvalues; the
	// captured cell must still read 41.
	got, err := ctx.Call(closureFn, nil, 1)
	if err != nil {
		t.Fatalf("unexpected error calling the closure: %v", err)
	}
	if len(got) != 1 || got[0].Int() != 41 {
		t.Fatalf("expected the closed-over value 41, got %v", got)
	}
}
