// Package gc implements the incremental tri-color mark-sweep collector
// described in spec.md §4.1. It is deliberately small and has no
// knowledge of the object model built on top of it (internal/object,
// internal/vm, ...): any type that can report its own outgoing
// references by implementing Object can be managed by a Collector.
//
// The design keeps the original C++ implementation's intrusive,
// doubly-linked "three sentinel lists" structure (see
// _examples/original_source/libpika/PCollector.cpp) rather than the
// map-based reachable-set style common in Go tracing-GC sketches,
// because spec.md §3.2 and §4.1 require O(1) color transitions and a
// write barrier that moves a single object between lists without
// touching the rest of the heap.
package gc

import "fmt"

// Color is the tri-color mark state of a heap object.
type Color uint8

const (
	// White objects have not been reached this cycle; they are
	// collected at the next sweep unless marked first.
	White Color = iota
	// Gray objects are reachable but their own references have not
	// yet been scanned.
	Gray
	// Black objects are reachable and fully scanned.
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Gray:
		return "gray"
	case Black:
		return "black"
	default:
		return "unknown"
	}
}

// State is the collector's incremental state machine (spec.md §4.1).
type State uint8

const (
	RootScan State = iota
	GrayScan
	Sweep
	Suspended
)

func (s State) String() string {
	switch s {
	case RootScan:
		return "ROOT_SCAN"
	case GrayScan:
		return "GRAY_SCAN"
	case Sweep:
		return "SWEEP"
	case Suspended:
		return "SUSPENDED"
	default:
		return "unknown"
	}
}

// Object is anything the collector can track. Implementations embed a
// *Header (via GCHeader) to get list-membership bookkeeping, and
// implement MarkRefs to push their outgoing references through the
// collector's Mark method. Finalize runs exactly once, when the object
// is swept; a false return means the object declined finalization (the
// convention the original Pika GCObject::Finalize used) and is treated
// as already clean.
type Object interface {
	GCHeader() *Header
	MarkRefs(c *Collector)
	Finalize() bool
}

// Header is the collector's intrusive per-object bookkeeping, embedded
// in every managed type. It is the Go analogue of the original
// GCObject base class: color, list links, and the persistent flag.
type Header struct {
	color      Color
	prev, next *Header
	persistent bool
	owner      Object
}

// Persistent reports whether the object survives sweeps (spec.md §3.4:
// Types and the global "world" Package are persistent).
func (h *Header) Persistent() bool { return h.persistent }

// SetPersistent marks the object as surviving sweeps. Persistent
// objects still participate in marking (so their outgoing references
// stay alive) but flip straight to black on sweep instead of being
// finalized.
func (h *Header) SetPersistent(p bool) { h.persistent = p }

// Color reports the object's current tri-color state.
func (h *Header) Color() Color { return h.color }

func (h *Header) unlink() {
	if h.prev != nil {
		h.prev.next = h.next
	}
	if h.next != nil {
		h.next.prev = h.prev
	}
	h.prev, h.next = nil, nil
}

// insertAfter splices h in immediately after sentinel c, adopting c's
// color. Mirrors GCObject::InsertAfter in the original collector.
func (h *Header) insertAfter(c *Header) {
	h.color = c.color
	if c.next != nil {
		h.prev = c
		h.next = c.next
		c.next.prev = h
		c.next = h
	} else {
		h.next = nil
		h.prev = c
		c.next = h
	}
}

// list is a sentinel node; every live object sits on exactly one list
// at all times (spec.md §3.2).
type list struct {
	sentinel Header
	color    Color
	count    int
}

func newList(color Color) *list {
	l := &list{color: color}
	l.sentinel.color = color
	return l
}

func (l *list) pushFront(h *Header) {
	h.insertAfter(&l.sentinel)
	l.count++
}

// popFront removes and returns the object right after the sentinel, or
// nil if the list is empty.
func (l *list) popFront() *Header {
	h := l.sentinel.next
	if h == nil {
		return nil
	}
	h.unlink()
	l.count--
	return h
}

// RootsFunc supplies the collector's root set at the start of a cycle
// (spec.md §4.1: "the Engine's scan-roots callback recolors all roots
// gray"). Returned objects are grayed; their transitive closure is
// then walked like any other reference.
type RootsFunc func() []Object

// Config tunes collector pacing (spec.md §4.1 "Pacing").
type Config struct {
	// NumAllocs is how many Add() calls are permitted between
	// incremental steps before one runs automatically.
	NumAllocs int
	// WorkPerStep bounds how many gray objects a single GRAY_SCAN
	// step processes.
	WorkPerStep int
}

// DefaultConfig matches the magnitudes the original collector used:
// small enough to bound pause time, large enough to make forward
// progress under steady allocation.
var DefaultConfig = Config{NumAllocs: 64, WorkPerStep: 16}

// Collector is the incremental tri-color mark-sweep collector.
// A Collector is single-threaded: spec.md §5 assumes one Context
// executes at a time per Engine, so no locking is performed.
type Collector struct {
	whites *list
	grays  *list
	blacks *list

	state       State
	roots       RootsFunc
	pinnedRoots []Object

	pauseDepth   int
	deferredStep bool

	allocBudget int
	numAllocs   int
	workPerStep int

	stats Stats

	onStep func(State) // optional diagnostic hook (wired to slog by engine)
}

// Stats exposes cumulative counters useful for tests and diagnostics.
type Stats struct {
	Allocated int
	Freed     int
	Cycles    int
}

// New creates a Collector in state ROOT_SCAN with no roots registered
// yet; call SetRoots before the first Step.
func New(cfg Config) *Collector {
	if cfg.NumAllocs <= 0 {
		cfg.NumAllocs = DefaultConfig.NumAllocs
	}
	if cfg.WorkPerStep <= 0 {
		cfg.WorkPerStep = DefaultConfig.WorkPerStep
	}
	c := &Collector{
		whites:      newList(White),
		grays:       newList(Gray),
		blacks:      newList(Black),
		state:       RootScan,
		numAllocs:   cfg.NumAllocs,
		workPerStep: cfg.WorkPerStep,
	}
	c.allocBudget = c.numAllocs
	return c
}

// SetRoots installs the root-scanning callback. Must be called before
// the collector is driven; Engine does this once during bootstrap.
func (c *Collector) SetRoots(f RootsFunc) { c.roots = f }

// SetStepHook installs a callback invoked whenever Step performs a
// state transition, for logging/diagnostics. May be nil.
func (c *Collector) SetStepHook(f func(State)) { c.onStep = f }

// State returns the collector's current phase.
func (c *Collector) State() State { return c.state }

// Stats returns a snapshot of cumulative counters.
func (c *Collector) Stats() Stats { return c.stats }

// Add registers a newly allocated object with the collector. New
// objects start on the current white list (spec.md §3.4: objects live
// until a sweep finds them white), except persistent ones, which are
// inserted directly onto the black list since they're never collected.
func (c *Collector) Add(obj Object) {
	h := obj.GCHeader()
	h.owner = obj
	if h.persistent {
		c.blacks.pushFront(h)
	} else {
		c.whites.pushFront(h)
	}
	c.stats.Allocated++

	c.allocBudget--
	if c.allocBudget <= 0 {
		c.allocBudget = c.numAllocs
		c.Step()
	}
}

// AddAsRoot pins obj so it is always treated as reachable, independent
// of any container referencing it. Used for engine-owned handles held
// outside the object graph (spec.md §4.1 "Root registration").
// O(n) in the number of pinned roots, which is assumed small.
func (c *Collector) AddAsRoot(obj Object) {
	c.pinnedRoots = append(c.pinnedRoots, obj)
}

// RemoveAsRoot reverses AddAsRoot. A no-op if obj was never pinned.
func (c *Collector) RemoveAsRoot(obj Object) {
	for i, o := range c.pinnedRoots {
		if o == obj {
			c.pinnedRoots = append(c.pinnedRoots[:i], c.pinnedRoots[i+1:]...)
			return
		}
	}
}

// Mark grays obj if it is currently white; a no-op for gray/black
// objects. This is how root scanning and MarkRefs implementations
// report a reference.
func (c *Collector) Mark(obj Object) {
	if obj == nil {
		return
	}
	h := obj.GCHeader()
	if h.color != White {
		return
	}
	c.detach(h)
	c.grays.pushFront(h)
}

// detach unlinks h from the list it sits on, keeping that list's count
// in step. An object that was never added to a list is left as is.
func (c *Collector) detach(h *Header) {
	if h.prev == nil {
		return
	}
	switch h.color {
	case White:
		c.whites.count--
	case Gray:
		c.grays.count--
	case Black:
		c.blacks.count--
	}
	h.unlink()
}

// WriteBarrier enforces the invariant "no black object directly
// references a white object" (spec.md §8). Call this on every heap
// pointer write where the container might already be black: container
// may be nil (meaning "not yet heap-resident", e.g. a stack slot),
// in which case this is a no-op.
func (c *Collector) WriteBarrier(container Object, target Object) {
	if container == nil || target == nil {
		return
	}
	ch := container.GCHeader()
	th := target.GCHeader()
	if ch.color == Black && th.color == White {
		c.detach(th)
		c.grays.pushFront(th)
	}
}

// Pause suspends incremental work; nesting is counted, so N calls to
// Pause require N calls to Resume before stepping resumes. While
// paused, Add still tracks allocations (so the budget doesn't lie
// about how much work has piled up) but never calls Step.
func (c *Collector) Pause() { c.pauseDepth++ }

// Resume reverses one level of Pause. The outermost Resume runs a
// deferred step if one was requested while paused (spec.md §5
// "the outermost resume re-enables GC and may run a deferred step").
func (c *Collector) Resume() {
	if c.pauseDepth == 0 {
		return
	}
	c.pauseDepth--
	if c.pauseDepth == 0 && c.deferredStep {
		c.deferredStep = false
		c.step()
	}
}

// Paused reports whether incremental work is currently stalled.
func (c *Collector) Paused() bool { return c.pauseDepth > 0 }

// Step drives the state machine forward by one increment. It is a
// no-op while paused (spec.md §8: "GC full-run during the deepest
// nested pause must be a no-op"), deferring the work until Resume.
func (c *Collector) Step() {
	if c.pauseDepth > 0 {
		c.deferredStep = true
		return
	}
	c.step()
}

func (c *Collector) notify(s State) {
	if c.onStep != nil {
		c.onStep(s)
	}
}

func (c *Collector) step() {
	switch c.state {
	case RootScan:
		c.enterGrayScan()
	case GrayScan:
		c.runGrayScan()
	case Sweep:
		c.runSweep()
	case Suspended:
		// nothing scheduled; a full collection must be requested
		// explicitly via FullCollect.
	}
}

func (c *Collector) enterGrayScan() {
	for _, r := range c.pinnedRoots {
		c.Mark(r)
	}
	if c.roots != nil {
		for _, r := range c.roots() {
			c.Mark(r)
		}
	}
	c.state = GrayScan
	c.notify(c.state)
}

func (c *Collector) runGrayScan() {
	for i := 0; i < c.workPerStep; i++ {
		h := c.grays.popFront()
		if h == nil {
			c.state = Sweep
			c.notify(c.state)
			return
		}
		h.owner.MarkRefs(c)
		h.color = Black
		c.blacks.pushFront(h)
	}
}

// ForceRegray immediately grays obj regardless of the collector's
// current state (spec.md §4.1 "Active-context pinning"): used on
// context switches so the outgoing Context's frames are rescanned
// next cycle even if the collector is mid-sweep.
func (c *Collector) ForceRegray(obj Object) {
	if obj == nil {
		return
	}
	h := obj.GCHeader()
	c.detach(h)
	c.grays.pushFront(h)
}

func (c *Collector) runSweep() {
	// Re-gray the currently active context (engine supplies it via
	// roots during enterGrayScan normally, but sweep can be entered
	// with grays already drained — spec.md §4.1 requires this as an
	// atomic part of the SWEEP→ROOT_SCAN transition).
	if c.roots != nil {
		for _, r := range c.roots() {
			c.Mark(r)
		}
		c.drainGrays()
	}

	for {
		h := c.whites.popFront()
		if h == nil {
			break
		}
		if h.persistent {
			h.color = Black
			c.blacks.pushFront(h)
			continue
		}
		h.owner.Finalize()
		c.stats.Freed++
	}

	// swap: blacks become next cycle's whites, and the now-empty
	// (just swept) former whites list becomes the black sentinel for
	// the next cycle.
	c.whites, c.blacks = c.blacks, c.whites
	c.recolor(c.whites, White)
	c.recolor(c.blacks, Black)
	c.state = RootScan
	c.stats.Cycles++
	c.notify(c.state)
}

func (c *Collector) drainGrays() {
	for {
		h := c.grays.popFront()
		if h == nil {
			return
		}
		h.owner.MarkRefs(c)
		h.color = Black
		c.blacks.pushFront(h)
	}
}

func (c *Collector) recolor(l *list, color Color) {
	l.color = color
	l.sentinel.color = color
	for h := l.sentinel.next; h != nil; h = h.next {
		h.color = color
	}
}

// FullCollect runs the state machine to completion starting from
// wherever it currently is, finishing one full ROOT_SCAN→...→SWEEP
// cycle. It is a no-op while paused.
func (c *Collector) FullCollect() {
	if c.pauseDepth > 0 {
		c.deferredStep = true
		return
	}
	start := c.stats.Cycles
	// Step until the cycle in progress completes its sweep; no further
	// cycle is started after that.
	for c.stats.Cycles == start {
		c.step()
	}
}

// LiveCount returns the number of objects currently on white+gray+black
// lists (i.e. allocated but not yet freed). Useful for GC safety tests
// (spec.md §8 scenario 2).
func (c *Collector) LiveCount() int {
	return c.whites.count + c.grays.count + c.blacks.count
}

func (h *Header) String() string {
	return fmt.Sprintf("Header{color=%s persistent=%t}", h.color, h.persistent)
}
