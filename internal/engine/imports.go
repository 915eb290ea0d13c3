package engine

import (
	"os"
	"path/filepath"
	"plugin"
	"runtime"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/gopika/gopika/internal/debughook"
	"github.com/gopika/gopika/internal/module"
	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/perror"
	"github.com/gopika/gopika/internal/value"
	"github.com/gopika/gopika/internal/vm"
)

// importState tags what a cache entry currently holds (spec.md §4.6
// step 1's four possibilities).
type importState int

const (
	stateLoading importState = iota
	stateModule
	statePackage
	stateFunction
)

type cacheEntry struct {
	state  importState
	module *module.Module
	pkg    *object.Package
	fn     *vm.Function
}

// ImportEvent is the IMPORT hook's payload (spec.md §4.6 step 2): the
// dotted name being resolved and the Engine the handler should publish
// its result into via publishPackage/publishModule.
type ImportEvent struct {
	Name   string
	Engine *Engine
}

// Import resolves name against the cache, dispatching the IMPORT hook
// chain on a cache miss (spec.md §4.6).
func (e *Engine) Import(name string) (*object.Package, error) {
	if entry, ok := e.cache[name]; ok {
		return e.resolveEntry(name, entry)
	}

	e.cache[name] = &cacheEntry{state: stateLoading}
	handled, err := e.Dispatch(debughook.Import, &ImportEvent{Name: name, Engine: e})
	if err != nil {
		delete(e.cache, name)
		return nil, err
	}
	entry, ok := e.cache[name]
	if !handled || !ok || entry.state == stateLoading {
		delete(e.cache, name)
		return nil, perror.New(perror.KindRuntime, "import failed: %s", name)
	}
	return e.resolveEntry(name, entry)
}

func (e *Engine) resolveEntry(name string, entry *cacheEntry) (*object.Package, error) {
	switch entry.state {
	case stateLoading:
		return nil, perror.New(perror.KindRuntime, "circular dependency: %s", name)
	case stateModule:
		return entry.module.Result(), nil
	case statePackage:
		return entry.pkg, nil
	case stateFunction:
		return e.invokeImportFunction(name, entry.fn)
	default:
		return nil, perror.New(perror.KindRuntime, "import failed: %s", name)
	}
}

// publishPackage replaces the loading sentinel for name with a resolved
// Package (spec.md §4.6 step 3).
func (e *Engine) publishPackage(name string, pkg *object.Package) {
	e.cache[name] = &cacheEntry{state: statePackage, pkg: pkg}
}

// publishModule replaces the loading sentinel for name with a resolved
// Module.
func (e *Engine) publishModule(name string, mod *module.Module) {
	e.cache[name] = &cacheEntry{state: stateModule, module: mod}
}

// RegisterImportFunction pre-seeds the import cache with a Function
// entry (spec.md §4.6 step 1's third cache state), for an embedder that
// wants a name to resolve to "invoke this Function and use its Package
// result" without going through the native-module or script loader
// hooks at all — e.g. a pure-Go native module built directly against
// this Engine rather than loaded as a plugin.
func (e *Engine) RegisterImportFunction(name string, fn *vm.Function) {
	e.cache[name] = &cacheEntry{state: stateFunction, fn: fn}
}

// invokeImportFunction calls fn on the active Context (creating a
// transient one if none is active) and requires the result to be a
// Package or Type (spec.md §4.6 step 1: "Function: invoke it; result
// must be a Package").
func (e *Engine) invokeImportFunction(name string, fn *vm.Function) (*object.Package, error) {
	ctx := e.ActiveContext()
	if ctx == nil {
		ctx = e.NewContext()
		e.PushContext(ctx)
		defer e.PopContext()
	}
	results, err := ctx.Call(fn, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, perror.New(perror.KindRuntime, "import %q: function produced no result", name)
	}
	pkg, ok := packageFromValue(results[0])
	if !ok {
		return nil, perror.New(perror.KindType, "import %q: function result is not a Package", name)
	}
	return pkg, nil
}

func packageFromValue(v value.Value) (*object.Package, bool) {
	switch r := v.Ref().(type) {
	case *object.Package:
		return r, true
	case *object.Type:
		return &r.Package, true
	}
	return nil, false
}

// AddSearchPath appends path to the ordered, de-duplicated search-path
// list consulted by the script and native-module loaders (spec.md §6.1
// "add_search_path(path)"; original_source's PPathManager.cpp seeds
// this list with the working directory, which embedders do themselves
// here via an explicit AddSearchPath(".") rather than a hidden default).
func (e *Engine) AddSearchPath(path string) {
	for _, p := range e.searchPaths {
		if p == path {
			return
		}
	}
	e.searchPaths = append(e.searchPaths, path)
}

// AddEnvPath expands envVar's OS-list-separated value into the search
// path list, once per distinct env var name (spec.md §6.1
// "add_env_path(env_var)").
func (e *Engine) AddEnvPath(envVar string) {
	if e.envPaths[envVar] {
		return
	}
	e.envPaths[envVar] = true
	v := os.Getenv(envVar)
	if v == "" {
		return
	}
	for _, p := range filepath.SplitList(v) {
		e.AddSearchPath(p)
	}
}

// SearchPaths returns a snapshot of the current search-path list.
func (e *Engine) SearchPaths() []string {
	return append([]string(nil), e.searchPaths...)
}

// scriptExtensions are the two recognized script extensions (spec.md
// §6.3 "Script extensions recognized: .pika and one alternate
// (platform-configured)"); no platform varies the alternate in this
// implementation, so both are fixed rather than configured per-OS.
var scriptExtensions = []string{".pika", ".pk"}

// registerImportHandlers installs the two built-in IMPORT hook
// handlers (spec.md §4.6): the native module loader and the script
// loader. Both are ordinary debughook.Handler values; New installs them
// before any embedder AddHook call, so an embedder's own IMPORT handler
// (e.g. a debugger's import tracer) sees an event only when neither
// built-in handled it.
func (e *Engine) registerImportHandlers() {
	e.AddHook(debughook.Import, debughook.HandlerFunc(e.loadNativeModule))
	e.AddHook(debughook.Import, debughook.HandlerFunc(e.loadScript))
}

// loadNativeModule implements spec.md §4.6's "Native module loader":
// translates name to a platform shared-library filename, opens it via
// Go's plugin package, enforces the ABI version match (spec.md §6.2),
// and invokes the entry point.
func (e *Engine) loadNativeModule(ev debughook.Event, args any) (bool, error) {
	ie, ok := args.(*ImportEvent)
	if !ok {
		return false, nil
	}
	path, ok := e.findNativeModuleFile(ie.Name)
	if !ok {
		return false, nil
	}

	p, err := plugin.Open(path)
	if err != nil {
		return false, perror.Wrap(perror.KindSystem, err, "opening native module %q", ie.Name)
	}

	versionSym, enterSym := nativeModuleSymbols(ie.Name)
	vsym, err := p.Lookup(versionSym)
	if err != nil {
		return false, perror.Wrap(perror.KindRuntime, err, "native module %q missing %s", ie.Name, versionSym)
	}
	versionFn, ok := vsym.(func() string)
	if !ok {
		return false, perror.New(perror.KindRuntime, "native module %q: %s has an unexpected signature", ie.Name, versionSym)
	}
	if got := versionFn(); got != e.abiVersion {
		return false, perror.New(perror.KindRuntime, "native module %q: ABI mismatch, want %q got %q", ie.Name, e.abiVersion, got)
	}

	esym, err := p.Lookup(enterSym)
	if err != nil {
		return false, perror.Wrap(perror.KindRuntime, err, "native module %q missing %s", ie.Name, enterSym)
	}
	enterFn, ok := esym.(func(*Engine) (*object.Package, error))
	if !ok {
		return false, perror.New(perror.KindRuntime, "native module %q: %s has an unexpected signature", ie.Name, enterSym)
	}
	pkg, err := enterFn(e)
	if err != nil {
		return false, err
	}

	mod := module.NewModule(e.gcr, ie.Name, p, pkg)
	e.publishModule(ie.Name, mod)
	e.logger.Debug("native module loaded", "name", ie.Name, "path", path)
	return true, nil
}

// loadScript implements spec.md §4.6's "Script loader": translates
// dots to path separators, searches the path list, compiles the
// source via the Engine's configured ScriptCompiler, and executes its
// top-level.
func (e *Engine) loadScript(ev debughook.Event, args any) (bool, error) {
	ie, ok := args.(*ImportEvent)
	if !ok || e.compiler == nil {
		return false, nil
	}
	path, src, ok := e.findScriptFile(ie.Name)
	if !ok {
		return false, nil
	}

	def, err := e.compiler(path, src)
	if err != nil {
		return false, perror.Wrap(perror.KindSyntax, err, "compiling %s", path)
	}

	ctx := e.NewContext()
	e.PushContext(ctx)
	defer e.PopContext()

	scr := module.NewScript(e.gcr, nil, ie.Name, e.world, ctx, def)
	if _, err := scr.Run(nil); err != nil {
		return false, err
	}
	e.publishPackage(ie.Name, &scr.Package)
	e.logger.Debug("script loaded", "name", ie.Name, "path", path)
	return true, nil
}

func (e *Engine) findNativeModuleFile(name string) (string, bool) {
	prefix, ext := platformLibraryParts()
	rel := strings.ReplaceAll(name, ".", string(os.PathSeparator))
	filename := prefix + filepath.Base(rel) + ext
	dir := filepath.Dir(rel)
	for _, sp := range e.searchPaths {
		candidate := filepath.Join(sp, dir, filename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func (e *Engine) findScriptFile(name string) (string, []byte, bool) {
	rel, exts := splitImportExtension(name)
	for _, sp := range e.searchPaths {
		for _, ext := range exts {
			candidate := filepath.Join(sp, rel+ext)
			if src, err := os.ReadFile(candidate); err == nil {
				return candidate, src, true
			}
		}
	}
	return "", nil, false
}

// extFold is the case-insensitive comparison originally done with
// Pika_strcasecmp in the C sources' PImport.cpp, here via
// golang.org/x/text/cases rather than a byte-wise ASCII compare.
var extFold = cases.Fold()

// splitImportExtension converts a dotted import name ("a.b.c") into a
// path and the extensions to try, grounded on original_source's
// Pika_ConvertDotName: when the name already ends with a recognized
// script extension (matched case-insensitively, as the original does),
// that trailing dot is kept as a literal extension rather than being
// converted to a path separator and having an extension appended again.
func splitImportExtension(name string) (rel string, exts []string) {
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		stem, ext := name[:idx], name[idx:]
		if matchesScriptExtension(ext) {
			return strings.ReplaceAll(stem, ".", string(os.PathSeparator)), []string{ext}
		}
	}
	return strings.ReplaceAll(name, ".", string(os.PathSeparator)), scriptExtensions
}

func matchesScriptExtension(ext string) bool {
	folded := extFold.String(ext)
	for _, want := range scriptExtensions {
		if folded == extFold.String(want) {
			return true
		}
	}
	return false
}

func platformLibraryParts() (prefix, ext string) {
	switch runtime.GOOS {
	case "windows":
		return "", ".dll"
	case "darwin":
		return "lib", ".dylib"
	default:
		return "lib", ".so"
	}
}

// nativeModuleSymbols builds the two exported Go plugin symbol names
// spec.md §6.2 describes as pikalib_version_<Name>/pikalib_enter_<Name>,
// adapted to valid exported Go identifiers since plugin.Lookup resolves
// package-level Go symbols rather than C-linkage names.
func nativeModuleSymbols(name string) (versionSym, enterSym string) {
	ident := identFromDottedName(name)
	return "PikalibVersion" + ident, "PikalibEnter" + ident
}

func identFromDottedName(name string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range name {
		if r == '.' || r == '_' || r == '-' {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
