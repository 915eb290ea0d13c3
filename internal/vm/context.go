package vm

import (
	"github.com/gopika/gopika/internal/debughook"
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/perror"
	"github.com/gopika/gopika/internal/value"
)

// Status is a Context's coroutine-style execution state (spec.md §4.4).
type Status int

const (
	StatusSuspended Status = iota
	StatusRunning
	StatusDead
)

func (s Status) String() string {
	switch s {
	case StatusSuspended:
		return "suspended"
	case StatusRunning:
		return "running"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// frame is a single activation record on a Context's call-frame stack.
type frame struct {
	fn              *Function
	bytecode        *BytecodeDef
	pc              int
	base            int // operand stack depth when this frame was entered
	locals          []value.Value
	self            value.Value
	expectedReturns int
}

// handlerMark is a pending try-block installed by OpPushHandler.
type handlerMark struct {
	frameIndex int
	stackDepth int
	catchPC    int
}

// Context is a single thread of execution (spec.md §4.4): an operand
// stack, a call-frame stack, and a status. It is itself a heap object
// so the Engine can pin the active Context as a GC root while native
// code reenters the interpreter (spec.md §4.1's "active Context
// pinning").
type Context struct {
	gc.Header
	rt           Runtime
	operand      []value.Value
	frames       []frame
	handlers     []handlerMark
	openUpvalues []*Upvalue
	status       Status
}

// NewContext creates a fresh, suspended Context bound to rt.
func NewContext(rt Runtime) *Context {
	return &Context{
		rt:      rt,
		operand: make([]value.Value, 0, 64),
		status:  StatusSuspended,
	}
}

// GCHeader satisfies gc.Object.
func (c *Context) GCHeader() *gc.Header { return &c.Header }

// MarkRefs satisfies gc.Object: everything reachable from the operand
// stack and every live frame's locals/self/function must survive.
func (c *Context) MarkRefs(gcr *gc.Collector) {
	for _, v := range c.operand {
		markValue(gcr, v)
	}
	for _, f := range c.frames {
		if f.fn != nil {
			gcr.Mark(f.fn)
		}
		markValue(gcr, f.self)
		for _, v := range f.locals {
			markValue(gcr, v)
		}
	}
}

// Finalize satisfies gc.Object.
func (c *Context) Finalize() bool { return true }

func markValue(gcr *gc.Collector, v value.Value) {
	if ref, ok := v.Ref().(gc.Object); ok {
		gcr.Mark(ref)
	}
}

// Status reports the Context's current coroutine state.
func (c *Context) Status() Status { return c.status }

// Collector returns the collector backing this Context's Runtime, or
// nil if none was configured.
func (c *Context) Collector() *gc.Collector {
	if c.rt == nil {
		return nil
	}
	return c.rt.Collector()
}

// Depth reports the number of live frames.
func (c *Context) Depth() int { return len(c.frames) }

// Push pushes a Value onto the operand stack.
func (c *Context) Push(v value.Value) { c.operand = append(c.operand, v) }

// Pop removes and returns the top of the operand stack.
func (c *Context) Pop() (value.Value, error) {
	if len(c.operand) == 0 {
		return value.NilValue, perror.New(perror.KindRuntime, "operand stack underflow")
	}
	v := c.operand[len(c.operand)-1]
	c.operand = c.operand[:len(c.operand)-1]
	return v, nil
}

// Peek returns the top of the operand stack without removing it.
func (c *Context) Peek() (value.Value, error) {
	if len(c.operand) == 0 {
		return value.NilValue, perror.New(perror.KindRuntime, "operand stack underflow")
	}
	return c.operand[len(c.operand)-1], nil
}

// popN pops n values, returning them in original push order.
func (c *Context) popN(n int) ([]value.Value, error) {
	if n == 0 {
		return nil, nil
	}
	if len(c.operand) < n {
		return nil, perror.New(perror.KindRuntime, "operand stack underflow: need %d, have %d", n, len(c.operand))
	}
	out := make([]value.Value, n)
	copy(out, c.operand[len(c.operand)-n:])
	c.operand = c.operand[:len(c.operand)-n]
	return out, nil
}

// CaptureUpvalue returns an open upvalue cell over the current frame's
// local at index, creating and registering it the first time it is
// requested so repeated captures of the same local share one cell.
// Since no bytecode compiler exists, closure creation (the
// teacher-equivalent of an OpClosure instruction) happens in whatever
// Go code constructs nested Functions, by calling this once per
// captured local.
func (c *Context) CaptureUpvalue(index int) (*Upvalue, error) {
	f := c.currentFrame()
	if f == nil {
		return nil, perror.New(perror.KindRuntime, "no active frame to capture an upvalue from")
	}
	if index < 0 || index >= len(f.locals) {
		return nil, perror.New(perror.KindRuntime, "local index %d out of range", index)
	}
	loc := &f.locals[index]
	for _, uv := range c.openUpvalues {
		if uv.location == loc {
			return uv, nil
		}
	}
	uv := newOpenUpvalue(loc)
	c.openUpvalues = append(c.openUpvalues, uv)
	return uv, nil
}

// closeUpvaluesForFrame copies out the value of every open upvalue
// that still points into f's locals, so captured closures keep working
// after f is popped.
func (c *Context) closeUpvaluesForFrame(f *frame) {
	if len(f.locals) == 0 || len(c.openUpvalues) == 0 {
		return
	}
	kept := c.openUpvalues[:0]
	for _, uv := range c.openUpvalues {
		closed := false
		for i := range f.locals {
			if uv.location == &f.locals[i] {
				uv.close()
				closed = true
				break
			}
		}
		if !closed {
			kept = append(kept, uv)
		}
	}
	c.openUpvalues = kept
}

// currentFrame returns the top frame, or nil if the Context is idle.
func (c *Context) currentFrame() *frame {
	if len(c.frames) == 0 {
		return nil
	}
	return &c.frames[len(c.frames)-1]
}

// setupCall implements spec.md §4.4's setup_call(argc): argument
// arity/variadic/default handling, frame push, and either synchronous
// native dispatch or a bytecode PC set. args is in declaration order.
// On a bytecode callee this pushes a new frame and returns; the caller
// must continue via Run. On a native callee it runs to completion and
// leaves exactly expectedReturns values (padded/truncated) on the
// operand stack.
func (c *Context) setupCall(fn *Function, args []value.Value, expectedReturns int) error {
	def := fn.def
	var gcr *gc.Collector
	if c.rt != nil {
		gcr = c.rt.Collector()
	}
	args, err := adaptArgs(gcr, def, args)
	if err != nil {
		return err
	}

	if native, ok := def.(*NativeDef); ok {
		if c.rt != nil {
			if handled, herr := c.rt.Dispatch(debughook.NativeCall, NativeCallArgs{Fn: fn}); herr != nil && handled {
				return herr
			}
		}
		results, err := native.Callback(c, fn.self, args)
		if err != nil {
			return err
		}
		c.pushReturns(results, expectedReturns)
		return nil
	}

	bd, ok := def.(*BytecodeDef)
	if !ok {
		return perror.New(perror.KindType, "unsupported Def variant for %s", def.Name())
	}

	locals := make([]value.Value, max(bd.LocalCount, len(args)))
	copy(locals, args)

	if c.rt != nil {
		if _, herr := c.rt.Dispatch(debughook.Call, CallArgs{Fn: fn}); herr != nil {
			return herr
		}
	}

	c.frames = append(c.frames, frame{
		fn:              fn,
		bytecode:        bd,
		pc:              0,
		base:            len(c.operand),
		locals:          locals,
		self:            fn.self,
		expectedReturns: expectedReturns,
	})
	return nil
}

// Call is the embedder/native-code entry point for invoking fn
// reentrantly to completion: it runs setup_call and, for a bytecode
// Def, drives the interpreter loop until that frame (and only that
// frame) returns, then reports the results. If the callee yields
// before returning, Call returns (nil, nil) with Status() reporting
// StatusSuspended; the frame chain is left in place for a later Resume
// (spec.md §4.4 treats the whole Context, not a single frame, as the
// unit of suspension).
func (c *Context) Call(fn *Function, args []value.Value, expectedReturns int) ([]value.Value, error) {
	depthBefore := len(c.frames)
	if err := c.setupCall(fn, args, expectedReturns); err != nil {
		return nil, err
	}
	if len(c.frames) == depthBefore {
		// Native call already ran to completion; results are on the stack.
		return c.popN(expectedReturns)
	}
	prevStatus := c.status
	c.status = StatusRunning
	if err := c.run(depthBefore); err != nil {
		c.status = prevStatus
		return nil, err
	}
	if c.status == StatusSuspended {
		return nil, nil
	}
	c.status = prevStatus
	return c.popN(expectedReturns)
}

// adaptArgs applies spec.md §4.4 step 1: arity check, variadic
// packing, default filling.
func adaptArgs(gcr *gc.Collector, def Def, args []value.Value) ([]value.Value, error) {
	arity := def.Arity()
	if len(args) < arity {
		defaults := def.Defaults()
		missing := arity - len(args)
		if missing > len(defaults) {
			return nil, perror.New(perror.KindRuntime, "%s: expected at least %d arguments, got %d", def.Name(), arity, len(args))
		}
		filled := append([]value.Value(nil), args...)
		filled = append(filled, defaults[len(defaults)-missing:]...)
		return filled, nil
	}
	if len(args) > arity {
		if !def.Variadic() {
			return nil, perror.New(perror.KindRuntime, "%s: expected %d arguments, got %d", def.Name(), arity, len(args))
		}
		fixed := append([]value.Value(nil), args[:arity]...)
		rest := append([]value.Value(nil), args[arity:]...)
		packed := object.NewArray(gcr, nil, rest)
		return append(fixed, packed.Value()), nil
	}
	return args, nil
}

// pushReturns implements the return protocol's padding/truncation:
// pad a deficit with null, discard excess.
func (c *Context) pushReturns(results []value.Value, expected int) {
	for i := 0; i < expected; i++ {
		if i < len(results) {
			c.Push(results[i])
		} else {
			c.Push(value.NilValue)
		}
	}
}

// doReturn implements the return protocol: pop `count` values from the
// top of the operand stack (reverse push order corrected back to
// declaration order), pad/truncate to the frame's expected count, pop
// the frame, and place the results back on the (now caller's) stack.
func (c *Context) doReturn(count int) error {
	f := c.currentFrame()
	if f == nil {
		return perror.New(perror.KindRuntime, "return with no active frame")
	}
	results, err := c.popN(count)
	if err != nil {
		return err
	}
	if c.rt != nil {
		if _, herr := c.rt.Dispatch(debughook.Return, CallArgs{Fn: f.fn}); herr != nil {
			return herr
		}
	}
	expected := f.expectedReturns
	// Unwind the operand stack back to the frame's base in case the
	// bytecode left stray values above the declared returns.
	if len(c.operand) > f.base {
		c.operand = c.operand[:f.base]
	}
	c.closeUpvaluesForFrame(f)
	c.frames = c.frames[:len(c.frames)-1]
	c.pushReturns(results, expected)
	return nil
}

// Yield transitions the Context from running to suspended, preserving
// the operand stack and frame chain in place (spec.md §4.4).
func (c *Context) Yield(results []value.Value) error {
	if c.status != StatusRunning {
		return perror.New(perror.KindRuntime, "yield outside a running context")
	}
	for _, v := range results {
		c.Push(v)
	}
	c.status = StatusSuspended
	if c.rt != nil {
		if _, err := c.rt.Dispatch(debughook.Yield, nil); err != nil {
			return err
		}
	}
	return nil
}

// Resume reverses Yield: pushes resume arguments and re-enters the
// interpreter loop from the suspended frame chain.
func (c *Context) Resume(args []value.Value) ([]value.Value, error) {
	if c.status != StatusSuspended {
		return nil, perror.New(perror.KindRuntime, "resume on a %s context", c.status)
	}
	for _, v := range args {
		c.Push(v)
	}
	if len(c.frames) == 0 {
		c.status = StatusDead
		return nil, nil
	}
	c.status = StatusRunning
	if err := c.run(0); err != nil {
		return nil, err
	}
	if c.status == StatusRunning && len(c.frames) == 0 {
		c.status = StatusDead
	}
	return nil, nil
}

// Cancel expresses cancellation by pushing an exception Value into a
// suspended Context and marking it for re-entry in error mode
// (spec.md §4.4).
func (c *Context) Cancel(exc value.Value) error {
	if c.status != StatusSuspended {
		return perror.New(perror.KindRuntime, "cancel on a %s context", c.status)
	}
	c.status = StatusRunning
	err := c.raise(exc)
	if err != nil {
		c.status = StatusDead
		return err
	}
	return c.run(0)
}

// PushHandler installs an exception handler covering the remainder of
// the current frame, jumping to catchPC on a caught exception.
func (c *Context) PushHandler(catchPC int) {
	c.handlers = append(c.handlers, handlerMark{
		frameIndex: len(c.frames) - 1,
		stackDepth: len(c.operand),
		catchPC:    catchPC,
	})
}

// PopHandler removes the most recently installed handler.
func (c *Context) PopHandler() {
	if len(c.handlers) == 0 {
		return
	}
	c.handlers = c.handlers[:len(c.handlers)-1]
}

// raise unwinds frames to the nearest installed handler, pushing exc
// for the catch block to consume. If no handler is installed, the
// error reaches the Context owner (spec.md §4.4's error model).
func (c *Context) raise(exc value.Value) error {
	if c.rt != nil {
		_, _ = c.rt.Dispatch(debughook.Except, exc)
	}
	if len(c.handlers) == 0 {
		return perror.New(perror.KindRuntime, "unhandled exception: %s", exc.DebugString())
	}
	h := c.handlers[len(c.handlers)-1]
	c.handlers = c.handlers[:len(c.handlers)-1]
	for i := len(c.frames) - 1; i > h.frameIndex; i-- {
		c.closeUpvaluesForFrame(&c.frames[i])
	}
	c.frames = c.frames[:h.frameIndex+1]
	c.operand = c.operand[:h.stackDepth]
	c.Push(exc)
	f := c.currentFrame()
	f.pc = h.catchPC
	return nil
}

// run drives the interpreter loop until the frame stack depth drops
// back to floor (Call's reentrant invocation) or to zero (top-level
// Run), or until a yield/error interrupts it.
func (c *Context) run(floor int) error {
	for len(c.frames) > floor {
		f := c.currentFrame()
		if f.bytecode == nil {
			return perror.New(perror.KindSystem, "active frame has no bytecode to execute")
		}
		if f.pc >= len(f.bytecode.Code) {
			if err := c.doReturn(0); err != nil {
				return err
			}
			continue
		}
		inst := f.bytecode.Code[f.pc]
		f.pc++

		if c.rt != nil {
			line := f.bytecode.LineAt(f.pc - 1)
			if _, err := c.rt.Dispatch(debughook.Instruction, debughook.InstructionArgs{Func: f.fn, Line: line}); err != nil {
				return err
			}
		}

		if err := c.exec(f, inst); err != nil {
			if rerr := c.raise(errorValue(err)); rerr != nil {
				return rerr
			}
			continue
		}
		if c.status == StatusSuspended {
			return nil
		}
	}
	return nil
}

// errorValue wraps a Go error as the Value pushed for a catch block;
// RuntimeError carries its own Raised payload when set (spec.md §7).
func errorValue(err error) value.Value {
	if re, ok := err.(*perror.RuntimeError); ok && re.Raised != nil {
		if v, ok := re.Raised.(value.Value); ok {
			return v
		}
	}
	return value.NewRef(value.UserData, err)
}

// exec executes a single instruction against frame f.
func (c *Context) exec(f *frame, inst Instruction) error {
	switch inst.Op {
	case OpLoadConst:
		if inst.A < 0 || inst.A >= len(f.bytecode.Constants) {
			return perror.New(perror.KindRuntime, "constant index %d out of range", inst.A)
		}
		c.Push(f.bytecode.Constants[inst.A])
	case OpLoadNull:
		c.Push(value.NilValue)
	case OpLoadLocal:
		if inst.A < 0 || inst.A >= len(f.locals) {
			return perror.New(perror.KindRuntime, "local index %d out of range", inst.A)
		}
		c.Push(f.locals[inst.A])
	case OpStoreLocal:
		v, err := c.Pop()
		if err != nil {
			return err
		}
		if inst.A < 0 || inst.A >= len(f.locals) {
			return perror.New(perror.KindRuntime, "local index %d out of range", inst.A)
		}
		f.locals[inst.A] = v
	case OpLoadUpvalue:
		if inst.A < 0 || inst.A >= len(f.fn.upvalues) {
			return perror.New(perror.KindRuntime, "upvalue index %d out of range", inst.A)
		}
		c.Push(f.fn.upvalues[inst.A].Get())
	case OpStoreUpvalue:
		v, err := c.Pop()
		if err != nil {
			return err
		}
		if inst.A < 0 || inst.A >= len(f.fn.upvalues) {
			return perror.New(perror.KindRuntime, "upvalue index %d out of range", inst.A)
		}
		f.fn.upvalues[inst.A].Set(v)
	case OpPop:
		_, err := c.Pop()
		return err
	case OpGetAttr:
		self, err := c.Pop()
		if err != nil {
			return err
		}
		key, err := constantAt(f.bytecode, inst.A)
		if err != nil {
			return err
		}
		result, err := GetMember(c, self, key)
		if err != nil {
			return err
		}
		c.Push(result)
	case OpSetAttr:
		val, err := c.Pop()
		if err != nil {
			return err
		}
		self, err := c.Pop()
		if err != nil {
			return err
		}
		key, err := constantAt(f.bytecode, inst.A)
		if err != nil {
			return err
		}
		var scope *object.Package
		if f.fn != nil {
			scope = f.fn.Location()
		}
		if err := SetMember(c, self, key, val, scope); err != nil {
			return err
		}
	case OpJump:
		f.pc = inst.A
	case OpJumpIfFalse:
		v, err := c.Pop()
		if err != nil {
			return err
		}
		if !v.Truthy() {
			f.pc = inst.A
		}
	case OpCall:
		callee, err := c.Pop()
		if err != nil {
			return err
		}
		args, err := c.popN(inst.A)
		if err != nil {
			return err
		}
		fn, ok := FunctionFromValue(callee)
		if !ok {
			return perror.New(perror.KindType, "attempt to call a non-function value")
		}
		return c.setupCall(fn, args, inst.B)
	case OpReturn:
		return c.doReturn(inst.A)
	case OpYield:
		results, err := c.popN(inst.A)
		if err != nil {
			return err
		}
		return c.Yield(results)
	case OpPushHandler:
		c.PushHandler(inst.A)
	case OpPopHandler:
		c.PopHandler()
	case OpThrow:
		v, err := c.Pop()
		if err != nil {
			return err
		}
		// Returned as an error rather than raised directly here so
		// run's single catch-all raise call is the only place that
		// unwinds to a handler; raising twice would pop two handlers
		// for one throw.
		return perror.New(perror.KindScript, "thrown exception").WithRaised(v)
	default:
		return perror.New(perror.KindSystem, "unknown opcode %d", inst.Op)
	}
	return nil
}

// constantAt bounds-checks and returns bd.Constants[idx], the shared
// lookup OpGetAttr/OpSetAttr use to resolve their key operand.
func constantAt(bd *BytecodeDef, idx int) (value.Value, error) {
	if idx < 0 || idx >= len(bd.Constants) {
		return value.NilValue, perror.New(perror.KindRuntime, "constant index %d out of range", idx)
	}
	return bd.Constants[idx], nil
}

// CallArgs is the payload for CALL/RETURN hook dispatch.
type CallArgs struct {
	Fn *Function
}

// NativeCallArgs is the payload for NATIVECALL hook dispatch.
type NativeCallArgs struct {
	Fn *Function
}
