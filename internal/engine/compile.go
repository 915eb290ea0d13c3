package engine

import (
	"github.com/gopika/gopika/internal/module"
	"github.com/gopika/gopika/internal/perror"
	"github.com/gopika/gopika/internal/vm"
)

// Compile turns src into a runnable Script bound to the world package,
// without running it (spec.md §6.1 "Engine::compile" is a distinct
// operation from "Script::run"). It delegates to the Engine's
// configured ScriptCompiler (see WithScriptCompiler) the same way the
// built-in script import loader does.
func (e *Engine) Compile(sourceName string, src []byte) (*module.Script, error) {
	if e.compiler == nil {
		return nil, perror.New(perror.KindRuntime, "no script compiler configured")
	}
	def, err := e.compiler(sourceName, src)
	if err != nil {
		return nil, perror.Wrap(perror.KindSyntax, err, "compiling %s", sourceName)
	}
	ctx := e.NewContext()
	return module.NewScript(e.gcr, nil, sourceName, e.world, ctx, def), nil
}

// NewNativeDef is a small convenience wrapper so embedders calling
// Compile/RegisterImportFunction from outside internal/vm do not need
// to reach into vm.NativeDef's fields directly.
func NewNativeDef(name string, arity int, variadic bool, fn vm.NativeCallback) *vm.NativeDef {
	return &vm.NativeDef{FnName: name, FnArity: arity, FnVariadic: variadic, Callback: fn}
}
