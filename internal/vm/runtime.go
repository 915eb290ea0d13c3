package vm

import (
	"github.com/gopika/gopika/internal/debughook"
	"github.com/gopika/gopika/internal/gc"
)

// Runtime is the subset of Engine (internal/engine, not imported here
// to avoid a vm↔engine import cycle) that a Context needs during
// execution: the collector that owns every heap object it touches, and
// the hook chain that call/return/yield/instruction events dispatch
// through (spec.md §4.8). internal/engine implements this interface.
type Runtime interface {
	Collector() *gc.Collector
	Dispatch(ev debughook.Event, args any) (bool, error)
}
