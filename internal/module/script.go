package module

import (
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/perror"
	"github.com/gopika/gopika/internal/value"
	"github.com/gopika/gopika/internal/vm"
)

// Script represents a loaded source file (spec.md §3.2): a Package (so
// its top-level declarations form their own scope, grounded on the
// original implementation's Script deriving from Package) plus the
// compiled top-level Function and the Context it runs in. No source
// compiler is implemented here (spec §1 Non-goal); a Script is always
// constructed from an already-compiled vm.Def by whatever produced it
// (internal/vm/asm, or a future external compiler).
type Script struct {
	object.Package
	entryPoint *vm.Function
	ctx        *vm.Context
	firstRun   bool
	running    bool
}

// NewScript allocates a Script named name under parent, wrapping def as
// its top-level entry point and ctx as the Context it runs in.
func NewScript(gcr *gc.Collector, t *object.Type, name string, parent *object.Package, ctx *vm.Context, def vm.Def) *Script {
	s := &Script{ctx: ctx}
	s.Package = object.NewPackageEmbed(gcr, t, name, parent)
	if gcr != nil {
		gcr.Add(s)
	}
	object.LinkChild(gcr, parent, &s.Package)
	s.entryPoint = vm.NewFunction(gcr, def, &s.Package)
	return s
}

// EntryPoint returns the Script's compiled top-level Function.
func (s *Script) EntryPoint() *vm.Function { return s.entryPoint }

// Context returns the Context the Script runs its entry point in.
func (s *Script) Context() *vm.Context { return s.ctx }

// Run invokes the entry point with the given arguments (spec.md §6.1
// "Script::run(args: Array) → Value"), returning the single value the
// top-level function produces. A Script already mid-run (e.g. a native
// callback it transitively invoked tries to re-enter it) is rejected;
// the Context model is not reentrant against itself (spec.md §5
// "single-threaded cooperative").
func (s *Script) Run(args []value.Value) (value.Value, error) {
	if s.running {
		return value.NilValue, perror.New(perror.KindRuntime, "script %s is already running", s.Name())
	}
	s.running = true
	defer func() { s.running = false }()

	results, err := s.ctx.Call(s.entryPoint, args, 1)
	s.firstRun = true
	if err != nil {
		return value.NilValue, err
	}
	if len(results) == 0 {
		return value.NilValue, nil
	}
	return results[0], nil
}

// HasRun reports whether Run has completed at least once.
func (s *Script) HasRun() bool { return s.firstRun }

// MarkRefs satisfies gc.Object, extending Package.MarkRefs with the
// entry point Function.
func (s *Script) MarkRefs(c *gc.Collector) {
	s.Package.MarkRefs(c)
	if s.entryPoint != nil {
		c.Mark(s.entryPoint)
	}
}
