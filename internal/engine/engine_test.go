package engine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gopika/gopika/internal/bytearray"
	"github.com/gopika/gopika/internal/debughook"
	"github.com/gopika/gopika/internal/engine"
	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/value"
	"github.com/gopika/gopika/internal/vm"
	"github.com/gopika/gopika/internal/vm/asm"
)

func TestBootstrapRegistersCoreTypes(t *testing.T) {
	e := engine.New()
	if e.World() == nil {
		t.Fatalf("expected a world package")
	}
	if e.ObjectType() == nil || e.TypeType() == nil || e.ArrayType() == nil || e.DictionaryType() == nil {
		t.Fatalf("expected every core Type to be registered")
	}
	if !e.ArrayType().IsSubtypeOf(e.ObjectType()) {
		t.Fatalf("expected Array to derive from Object")
	}
	if e.TypeType().Type() != e.TypeType() {
		t.Fatalf("expected Type to be its own Type")
	}
}

func TestArrayLengthPropertyIsCallableThroughGetMember(t *testing.T) {
	e := engine.New()
	arr := object.NewArray(e.Collector(), e.ArrayType(), []value.Value{value.IntValue(1), value.IntValue(2)})

	ctx := e.NewContext()
	got, err := vm.GetMember(ctx, arr.Value(), e.Interner().GetString("Length").Value())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int() != 2 {
		t.Fatalf("expected length 2 via Property invocation, got %v", got)
	}
}

func TestByteArrayWriteByteAndReadByteAreCallableThroughMethodTable(t *testing.T) {
	e := engine.New()
	ba := bytearray.New(e.Collector(), e.ByteArrayType())
	ctx := e.NewContext()

	writeVal, err := vm.GetMember(ctx, ba.Value(), e.Interner().GetString("WriteByte").Value())
	if err != nil {
		t.Fatalf("expected WriteByte to resolve through GetMember: %v", err)
	}
	writeFn, ok := vm.FunctionFromValue(writeVal)
	if !ok {
		t.Fatalf("expected a Function value")
	}
	bound := writeFn.Bind(e.Collector(), ba.Value())
	if _, err := ctx.Call(bound, []value.Value{value.IntValue(0x7F)}, 0); err != nil {
		t.Fatalf("WriteByte call failed: %v", err)
	}
	if ba.Len() != 1 || ba.Bytes()[0] != 0x7F {
		t.Fatalf("expected WriteByte to have written one byte, got len=%d bytes=%v", ba.Len(), ba.Bytes())
	}

	if err := ba.SetPosition(0); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	readVal, err := vm.GetMember(ctx, ba.Value(), e.Interner().GetString("ReadByte").Value())
	if err != nil {
		t.Fatalf("expected ReadByte to resolve through GetMember: %v", err)
	}
	readFn, ok := vm.FunctionFromValue(readVal)
	if !ok {
		t.Fatalf("expected a Function value")
	}
	results, err := ctx.Call(readFn.Bind(e.Collector(), ba.Value()), nil, 1)
	if err != nil {
		t.Fatalf("ReadByte call failed: %v", err)
	}
	if len(results) != 1 || results[0].Int() != 0x7F {
		t.Fatalf("expected ReadByte to return 0x7F, got %v", results)
	}
}

func TestImportCachesScriptResultAcrossRepeatCalls(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "greeter.pika"), []byte("compiled elsewhere"), 0o644); err != nil {
		t.Fatalf("writing fixture script: %v", err)
	}

	compiled := 0
	compiler := func(sourceName string, src []byte) (vm.Def, error) {
		compiled++
		b := asm.New("greeter.top", 0)
		b.Emit(vm.OpLoadNull, 0, 0)
		b.Emit(vm.OpReturn, 0, 0)
		return b.Build(), nil
	}

	e := engine.New(engine.WithSearchPaths(dir), engine.WithScriptCompiler(compiler))

	p1, err := e.Import("greeter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, err := e.Import("greeter")
	if err != nil {
		t.Fatalf("unexpected error on second import: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("expected both imports to return the identical cached Package")
	}
	if compiled != 1 {
		t.Fatalf("expected the compiler to run exactly once, ran %d times", compiled)
	}
}

func TestImportReportsCircularDependency(t *testing.T) {
	e := engine.New()
	const name = "self_importing"

	// Simulate a script whose own top-level import hook tries to
	// re-enter its own (still-loading) name.
	var selfImportErr error
	e.AddHook(debughook.Import, debughook.HandlerFunc(func(ev debughook.Event, args any) (bool, error) {
		ie, ok := args.(*engine.ImportEvent)
		if !ok || ie.Name != name {
			return false, nil
		}
		_, selfImportErr = e.Import(name)
		return false, selfImportErr
	}))

	_, err := e.Import(name)
	if err == nil {
		t.Fatalf("expected import failure")
	}
	if selfImportErr == nil {
		t.Fatalf("expected the nested self-import to observe a circular dependency error")
	}
}

func TestWithJSONModuleRegistersImportableJSONPackage(t *testing.T) {
	e := engine.New(engine.WithJSONModule())
	pkg, err := e.Import("json")
	if err != nil {
		t.Fatalf("unexpected error importing json: %v", err)
	}
	if _, _, ok := pkg.Slots().Get(e.Interner().GetString("Decode").Value()); !ok {
		t.Fatalf("expected the json Package to expose Decode")
	}
}

func TestCompileReturnsScriptWithoutRunningIt(t *testing.T) {
	compiler := func(sourceName string, src []byte) (vm.Def, error) {
		b := asm.New("manual.top", 0)
		b.Emit(vm.OpLoadNull, 0, 0)
		b.Emit(vm.OpReturn, 0, 0)
		return b.Build(), nil
	}
	e := engine.New(engine.WithScriptCompiler(compiler))

	scr, err := e.Compile("manual", []byte("irrelevant"))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if scr.HasRun() {
		t.Fatalf("expected Compile not to run the script")
	}
	if _, err := scr.Run(nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !scr.HasRun() {
		t.Fatalf("expected HasRun to be true after Run")
	}
}

func TestImportFailsWhenNoHandlerClaimsTheName(t *testing.T) {
	e := engine.New()
	if _, err := e.Import("does_not_exist"); err == nil {
		t.Fatalf("expected an import-failed error for an unclaimed name")
	}
}

func TestRegisterImportFunctionInvokesAndUnwrapsPackage(t *testing.T) {
	e := engine.New()
	resultPkg := object.NewPackage(e.Collector(), nil, "native_result", nil)

	def := &vm.NativeDef{FnName: "factory", Callback: func(ctx *vm.Context, self value.Value, args []value.Value) ([]value.Value, error) {
		return []value.Value{resultPkg.Value()}, nil
	}}
	fn := vm.NewFunction(e.Collector(), def, nil)
	e.RegisterImportFunction("native_thing", fn)

	got, err := e.Import("native_thing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != resultPkg {
		t.Fatalf("expected the factory function's Package result")
	}
}
