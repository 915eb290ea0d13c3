// Package engine implements the L6 process-wide coordinator from
// spec.md §4.5: the string table owner, the global "world" Package and
// its built-in Types, the active-Context stack, the module cache, the
// hook registry, and the search-path list. Grounded on the teacher's
// functional-options constructor style (internal/interp's New(output)
// plus pkg/dwscript's Options interface), generalized into an
// engine.New(opts ...Option) that also owns collector pacing and the
// import pipeline's pluggable script compiler.
package engine

import (
	"log/slog"

	"github.com/gopika/gopika/internal/debughook"
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/natmod/jsonmod"
	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/strtable"
	"github.com/gopika/gopika/internal/vm"
)

// DefaultABIVersion is the native-module ABI string this build expects
// (spec.md §6.2); native modules whose pikalib_version_<Name> call
// returns a different string fail import with a precise mismatch error.
const DefaultABIVersion = "gopika-abi-1"

// ScriptCompiler turns already-read source bytes into a callable Def,
// the external-collaborator boundary spec.md §1 leaves unspecified (no
// parser/compiler is implemented in this repository). The script loader
// import handler (imports.go) calls this to implement
// Engine.Compile/the built-in script loader.
type ScriptCompiler func(sourceName string, src []byte) (vm.Def, error)

// Engine is the single process-wide coordinator (spec.md §4.5).
type Engine struct {
	gcr      *gc.Collector
	interner *strtable.Interner
	logger   *slog.Logger

	world         *object.Package
	objectType    *object.Type
	typeType      *object.Type
	arrayType     *object.Type
	dictType      *object.Type
	byteArrayType *object.Type

	hooks    *debughook.Chain
	contexts []*vm.Context // active-Context stack (reentrant native invocation)

	cache map[string]*cacheEntry

	searchPaths []string
	envPaths    map[string]bool // env vars already expanded into searchPaths
	abiVersion  string
	compiler    ScriptCompiler
}

type settings struct {
	gcConfig     gc.Config
	logger       *slog.Logger
	searchPaths  []string
	abiVersion   string
	compiler     ScriptCompiler
	registerJSON bool
}

// Option configures a new Engine (spec.md §4.5's "create" bootstrap).
type Option func(*settings)

// WithGCConfig overrides the collector's pacing knobs.
func WithGCConfig(cfg gc.Config) Option {
	return func(s *settings) { s.gcConfig = cfg }
}

// WithLogger installs a structured logger for GC phase transitions,
// import resolution, and hook registration diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithSearchPaths seeds the module/script search-path list.
func WithSearchPaths(paths ...string) Option {
	return func(s *settings) { s.searchPaths = append(s.searchPaths, paths...) }
}

// WithABIVersion overrides the native-module ABI string this Engine
// requires (default DefaultABIVersion).
func WithABIVersion(v string) Option {
	return func(s *settings) { s.abiVersion = v }
}

// WithScriptCompiler installs the source-to-Def compiler the built-in
// script loader hook and Engine.Compile delegate to. Without one, the
// script loader never claims the IMPORT hook and Engine.Compile always
// fails — this Engine ships no compiler of its own (spec §1 Non-goal).
func WithScriptCompiler(c ScriptCompiler) Option {
	return func(s *settings) { s.compiler = c }
}

// WithJSONModule pre-registers the "json" native module (encode/decode
// between JSON text and the Dictionary/Array/primitive value tree) in
// the import cache, so `import "json"` resolves without an on-disk
// shared library: New publishes the Package straight into the cache's
// "Package" state (spec.md §4.6), a pure-Go native module wired in
// directly rather than loaded as a plugin.
func WithJSONModule() Option {
	return func(s *settings) { s.registerJSON = true }
}

// New constructs and bootstraps a fresh Engine (spec.md §4.5 "create
// constructs and bootstraps built-ins"): the collector, the string
// table, the global "world" Package, the root Object/Type types, and
// the built-in import handlers.
func New(opts ...Option) *Engine {
	cfg := settings{
		gcConfig:   gc.DefaultConfig,
		logger:     slog.Default(),
		abiVersion: DefaultABIVersion,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		gcr:        gc.New(cfg.gcConfig),
		logger:     cfg.logger,
		hooks:      debughook.NewChain(),
		cache:      make(map[string]*cacheEntry),
		envPaths:   make(map[string]bool),
		abiVersion: cfg.abiVersion,
		compiler:   cfg.compiler,
	}
	e.gcr.SetStepHook(func(st gc.State) {
		e.logger.Debug("gc phase transition", "state", st.String())
	})
	e.interner = strtable.NewInterner(e.gcr)
	e.gcr.SetRoots(e.scanRoots)

	e.bootstrap()
	for _, p := range cfg.searchPaths {
		e.AddSearchPath(p)
	}
	e.registerImportHandlers()
	if cfg.registerJSON {
		e.publishPackage("json", jsonmod.New(e))
	}
	return e
}

// Collector satisfies vm.Runtime.
func (e *Engine) Collector() *gc.Collector { return e.gcr }

// Dispatch satisfies vm.Runtime, forwarding to the hook chain (spec.md
// §4.8).
func (e *Engine) Dispatch(ev debughook.Event, args any) (bool, error) {
	return e.hooks.Dispatch(ev, args)
}

// Interner returns the Engine's string table.
func (e *Engine) Interner() *strtable.Interner { return e.interner }

// World returns the global "world" Package every built-in Type and
// top-level import result is registered under.
func (e *Engine) World() *object.Package { return e.world }

// ObjectType returns the root Object Type every other Type ultimately
// derives from.
func (e *Engine) ObjectType() *object.Type { return e.objectType }

// TypeType returns the meta-Type ("Type" itself is a Type).
func (e *Engine) TypeType() *object.Type { return e.typeType }

// ArrayType returns the built-in Array Type.
func (e *Engine) ArrayType() *object.Type { return e.arrayType }

// DictionaryType returns the built-in Dictionary Type.
func (e *Engine) DictionaryType() *object.Type { return e.dictType }

// ByteArrayType returns the built-in ByteArray Type.
func (e *Engine) ByteArrayType() *object.Type { return e.byteArrayType }

// Logger returns the Engine's diagnostic logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// AddHook registers h for ev (spec.md §6.1 "add_hook(event, handler)").
func (e *Engine) AddHook(ev debughook.Event, h debughook.Handler) {
	e.hooks.Add(ev, h)
	e.logger.Debug("hook registered", "event", string(ev))
}

// RemoveHook unregisters h for ev, releasing its resources if it
// implements debughook.Releaser (spec.md §6.1 "remove_hook(event,
// handler)").
func (e *Engine) RemoveHook(ev debughook.Event, h debughook.Handler) {
	e.hooks.Remove(ev, h)
}

// AddRoot pins obj against collection independent of reachability from
// "world" (spec.md §6.1 "add_root(object)").
func (e *Engine) AddRoot(obj gc.Object) { e.gcr.AddAsRoot(obj) }

// RemoveRoot reverses AddRoot (spec.md §6.1 "remove_root(object)").
func (e *Engine) RemoveRoot(obj gc.Object) { e.gcr.RemoveAsRoot(obj) }

// scanRoots is the collector's scan-roots callback (spec.md §4.1): the
// world package and every Context currently on the active stack, which
// pinnedRoots (AddRoot) extends.
func (e *Engine) scanRoots() []gc.Object {
	out := make([]gc.Object, 0, len(e.contexts)+1)
	out = append(out, e.world)
	for _, c := range e.contexts {
		out = append(out, c)
	}
	return out
}

// NewContext creates a fresh Context bound to this Engine as its
// Runtime.
func (e *Engine) NewContext() *vm.Context { return vm.NewContext(e) }

// PushContext makes ctx the active Context, supporting reentrant
// invocation from native code (spec.md §4.5 "a stack of active
// Contexts"). The previously active Context, if any, is force-regrayed
// so its frames are rescanned even mid-sweep (spec.md §4.1 "Active-
// context pinning").
func (e *Engine) PushContext(ctx *vm.Context) {
	if len(e.contexts) > 0 {
		e.gcr.ForceRegray(e.contexts[len(e.contexts)-1])
	}
	e.contexts = append(e.contexts, ctx)
}

// PopContext removes the most recently pushed Context.
func (e *Engine) PopContext() {
	if len(e.contexts) == 0 {
		return
	}
	e.contexts = e.contexts[:len(e.contexts)-1]
}

// ActiveContext returns the Context currently on top of the active
// stack, or nil if none is active.
func (e *Engine) ActiveContext() *vm.Context {
	if len(e.contexts) == 0 {
		return nil
	}
	return e.contexts[len(e.contexts)-1]
}

// Release triggers a final full collection and drops the Engine's
// owned state (spec.md §4.5 "release triggers a final full collection
// and frees the collector-managed arenas"). Go's own garbage collector
// reclaims the underlying memory once e is unreferenced; FullCollect
// here runs the Finalize hook (UserData release, etc.) of every object
// left unreachable once the active-Context stack is cleared,
// deterministically instead of leaving it to an eventual Go GC pass.
// Objects still reachable from the world package or a pinned root, and
// persistent objects, are not finalized.
func (e *Engine) Release() {
	e.contexts = nil
	e.gcr.FullCollect()
}
