// Package module implements the two L8 heap entities spec.md §3.2
// names for the import pipeline: Module (a loaded native extension) and
// Script (a loaded source file). The pipeline orchestration itself —
// cache lookup, circular-dependency detection, the built-in loader
// hooks — lives in internal/engine, which owns the cache these types
// are stored in.
package module

import (
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/object"
)

// Module represents a loaded native extension (spec.md §3.2, §6.2): a
// symbol handle (the opened plugin, kept only so it is not garbage
// collected by the Go runtime's plugin cache key), the resolved entry
// point's published result Package.
type Module struct {
	gc.Header
	name   string
	handle any // *plugin.Plugin, kept opaque so this package has no build tag on plugin support
	result *object.Package
}

// NewModule wraps the already-invoked entry point's result Package as
// a cached Module (spec.md §4.6 step 3: "replace the sentinel with the
// resolved Module/Package").
func NewModule(gcr *gc.Collector, name string, handle any, result *object.Package) *Module {
	m := &Module{name: name, handle: handle, result: result}
	if gcr != nil {
		gcr.Add(m)
	}
	return m
}

// Name returns the dotted import name this Module was loaded under.
func (m *Module) Name() string { return m.name }

// Result returns the Package the native entry point built.
func (m *Module) Result() *object.Package { return m.result }

// GCHeader satisfies gc.Object.
func (m *Module) GCHeader() *gc.Header { return &m.Header }

// MarkRefs satisfies gc.Object: a Module keeps its result Package alive
// for as long as it sits in the import cache.
func (m *Module) MarkRefs(c *gc.Collector) {
	if m.result != nil {
		c.Mark(m.result)
	}
}

// Finalize satisfies gc.Object; the Go runtime owns the underlying
// plugin handle's lifetime, there is nothing to release here.
func (m *Module) Finalize() bool { return true }
