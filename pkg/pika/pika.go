// Package pika is the embedder-facing API (spec.md §6.1): constructing
// and releasing an Engine, compiling and running Scripts, managing the
// search path list, hooks, and pinned GC roots. It is a thin wrapper
// over internal/engine — an embedder never needs to reach into
// internal packages directly.
package pika

import (
	"bufio"
	"fmt"
	"io"

	"github.com/gopika/gopika/internal/debughook"
	"github.com/gopika/gopika/internal/engine"
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/module"
	"github.com/gopika/gopika/internal/perror"
	"github.com/gopika/gopika/internal/value"
	"github.com/gopika/gopika/internal/vm"
)

// Value is the tagged runtime value every embedder call passes and
// receives (spec.md §3.1).
type Value = value.Value

// ScriptCompiler turns source bytes into a runnable Def; see
// engine.ScriptCompiler. No compiler ships with this module (spec §1
// Non-goal) — an embedder supplies one via WithScriptCompiler.
type ScriptCompiler = engine.ScriptCompiler

// Option configures a new Engine.
type Option = engine.Option

var (
	WithGCConfig       = engine.WithGCConfig
	WithLogger         = engine.WithLogger
	WithSearchPaths    = engine.WithSearchPaths
	WithABIVersion     = engine.WithABIVersion
	WithScriptCompiler = engine.WithScriptCompiler
	WithJSONModule     = engine.WithJSONModule
)

// Engine is an embeddable pika runtime instance (spec.md §4.5).
type Engine struct {
	e *engine.Engine
}

// Create constructs and bootstraps a new Engine (spec.md §6.1
// "Engine::create").
func Create(opts ...Option) *Engine {
	return &Engine{e: engine.New(opts...)}
}

// Release runs a final full collection and drops the Engine's owned
// state (spec.md §6.1 "Engine::release").
func (p *Engine) Release() { p.e.Release() }

// Compile compiles src into a Script bound to the global world package
// without running it (spec.md §6.1 "Engine::compile").
func (p *Engine) Compile(sourceName string, src []byte) (*Script, error) {
	scr, err := p.e.Compile(sourceName, src)
	if err != nil {
		return nil, err
	}
	return &Script{s: scr}, nil
}

// NewString interns s and returns it as a Value, for embedders
// building argument lists (e.g. a CLI front end turning os.Args into
// Script arguments) without reaching into internal/strtable directly.
func (p *Engine) NewString(s string) Value {
	return p.e.Interner().GetString(s).Value()
}

// Import resolves name through the module/import pipeline (spec.md
// §4.6), returning the resulting Package as a Value.
func (p *Engine) Import(name string) (Value, error) {
	pkg, err := p.e.Import(name)
	if err != nil {
		return value.NilValue, err
	}
	return pkg.Value(), nil
}

// AddSearchPath appends path to the script/native-module search path
// list (spec.md §6.1 "add_search_path(path)").
func (p *Engine) AddSearchPath(path string) { p.e.AddSearchPath(path) }

// AddEnvPath expands envVar's OS-list-separated value into the search
// path list (spec.md §6.1 "add_env_path(env_var)").
func (p *Engine) AddEnvPath(envVar string) { p.e.AddEnvPath(envVar) }

// HookHandler reacts to a hook event firing; returning handled=true
// stops the rest of the chain for that event (spec.md §4.8).
type HookHandler = debughook.Handler

// HookFunc adapts a plain function to HookHandler.
type HookFunc = debughook.HandlerFunc

// HookEvent identifies a hook point (spec.md §4.8).
type HookEvent = debughook.Event

const (
	OnCall        = debughook.Call
	OnReturn      = debughook.Return
	OnYield       = debughook.Yield
	OnNativeCall  = debughook.NativeCall
	OnInstruction = debughook.Instruction
	OnExcept      = debughook.Except
	OnImport      = debughook.Import
)

// AddHook registers h for ev (spec.md §6.1 "add_hook(event, handler)").
func (p *Engine) AddHook(ev HookEvent, h HookHandler) { p.e.AddHook(ev, h) }

// RemoveHook unregisters h for ev (spec.md §6.1 "remove_hook(event,
// handler)").
func (p *Engine) RemoveHook(ev HookEvent, h HookHandler) { p.e.RemoveHook(ev, h) }

// Rootable is any heap value an embedder can pin against collection.
type Rootable = gc.Object

// AddRoot pins obj against collection independent of reachability from
// the world package (spec.md §6.1 "add_root(object)").
func (p *Engine) AddRoot(obj Rootable) { p.e.AddRoot(obj) }

// RemoveRoot reverses AddRoot (spec.md §6.1 "remove_root(object)").
func (p *Engine) RemoveRoot(obj Rootable) { p.e.RemoveRoot(obj) }

// RegisterNativeFunction pre-seeds the import cache so that
// `import name` invokes fn and uses its Package result, without going
// through a shared-library native module at all (spec.md §4.6's
// Function cache state; see engine.Engine.RegisterImportFunction).
func (p *Engine) RegisterNativeFunction(name string, fnName string, arity int, variadic bool, fn vm.NativeCallback) {
	def := engine.NewNativeDef(fnName, arity, variadic, fn)
	f := vm.NewFunction(p.e.Collector(), def, p.e.World())
	p.e.RegisterImportFunction(name, f)
}

// Script is a compiled top-level unit ready to run (spec.md §4.6's
// Script/PScript-derived Module).
type Script struct {
	s *module.Script
}

// Run executes the script's entry point with args, returning its
// single declared result (spec.md §6.1 "Script::run").
func (s *Script) Run(args ...Value) (Value, error) {
	return s.s.Run(args)
}

// HasRun reports whether Run has been called at least once.
func (s *Script) HasRun() bool { return s.s.HasRun() }

// REPL runs a trivial read-eval-print loop: each line read from in is
// compiled and run as its own Script, with the result (or error)
// printed to out. It is a thin convenience wrapper (spec.md §6.1 lists
// a REPL among the embedder surface) — a real front end will usually
// want its own prompt/editing/history handling instead, which is why
// this stays minimal rather than pulling in a line-editing dependency.
func (p *Engine) REPL(in io.Reader, out io.Writer, prompt string) error {
	scanner := bufio.NewScanner(in)
	n := 0
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		n++
		scr, err := p.Compile(fmt.Sprintf("<repl:%d>", n), []byte(line))
		if err != nil {
			fmt.Fprintln(out, formatREPLError(err))
			continue
		}
		result, err := scr.Run()
		if err != nil {
			fmt.Fprintln(out, formatREPLError(err))
			continue
		}
		fmt.Fprintln(out, result.DebugString())
	}
}

// formatREPLError renders err using *perror.RuntimeError's Format when
// available, falling back to its plain Error() string for
// any other error (e.g. one returned directly by a ScriptCompiler).
func formatREPLError(err error) string {
	if re, ok := err.(*perror.RuntimeError); ok {
		return re.Format(false)
	}
	return err.Error()
}
