package pika_test

import (
	"strings"
	"testing"

	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/value"
	"github.com/gopika/gopika/internal/vm"
	"github.com/gopika/gopika/internal/vm/asm"
	"github.com/gopika/gopika/pkg/pika"
)

func echoCompiler(sourceName string, src []byte) (vm.Def, error) {
	b := asm.New(sourceName, 0)
	b.Emit(vm.OpLoadNull, 0, 0)
	b.Emit(vm.OpReturn, 0, 0)
	return b.Build(), nil
}

func TestCreateCompileAndRunScript(t *testing.T) {
	e := pika.Create(pika.WithScriptCompiler(echoCompiler))
	defer e.Release()

	scr, err := e.Compile("greeting", []byte("ignored"))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if scr.HasRun() {
		t.Fatalf("expected a fresh Script not to have run yet")
	}
	result, err := scr.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.IsNull() {
		t.Fatalf("expected the stub script to return null, got %v", result)
	}
	if !scr.HasRun() {
		t.Fatalf("expected HasRun to be true after Run")
	}
}

func TestRegisterNativeFunctionIsImportable(t *testing.T) {
	e := pika.Create()
	defer e.Release()

	resultPkg := object.NewPackage(nil, nil, "greeter_result", nil)
	e.RegisterNativeFunction("greeter", "greeter.factory", 0, false,
		func(ctx *vm.Context, self value.Value, args []value.Value) ([]value.Value, error) {
			return []value.Value{resultPkg.Value()}, nil
		})

	if _, err := e.Import("greeter"); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
}

func TestREPLEchoesCompiledScriptResults(t *testing.T) {
	e := pika.Create(pika.WithScriptCompiler(echoCompiler))
	defer e.Release()

	in := strings.NewReader("anything\nanother\n")
	var out strings.Builder
	if err := e.REPL(in, &out, "> "); err != nil {
		t.Fatalf("REPL returned an error: %v", err)
	}
	if strings.Count(out.String(), "null") != 2 {
		t.Fatalf("expected two echoed null results, got %q", out.String())
	}
}
