package vm

import (
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/value"
)

// Upvalue is a captured variable cell, either still pointing into a
// live frame's locals slice ("open") or holding its own copy after the
// owning frame has returned ("closed").
type Upvalue struct {
	location *value.Value
	closed   value.Value
	isClosed bool
}

func newOpenUpvalue(location *value.Value) *Upvalue {
	return &Upvalue{location: location}
}

// NewClosedUpvalue creates an upvalue holding v directly, with no
// backing frame local, for a captured value whose frame has already
// returned.
func NewClosedUpvalue(v value.Value) *Upvalue {
	return &Upvalue{closed: v, isClosed: true}
}

// Get reads the upvalue's current value.
func (u *Upvalue) Get() value.Value {
	if u.isClosed {
		return u.closed
	}
	return *u.location
}

// Set writes through to the live local, or to the closed cell once the
// frame that owned it has returned.
func (u *Upvalue) Set(v value.Value) {
	if u.isClosed {
		u.closed = v
		return
	}
	*u.location = v
}

// close copies the current value out of the enclosing frame's locals
// slice so the upvalue survives the frame's return.
func (u *Upvalue) close() {
	if u.isClosed {
		return
	}
	u.closed = *u.location
	u.isClosed = true
	u.location = nil
}

// Function binds a Def to a closure environment, an optional bound
// self, and a location Package (spec.md §4.4). It is a heap object: a
// bytecode closure captures upvalues that must be kept alive, and a
// bound method captures its receiver.
type Function struct {
	gc.Header
	def      Def
	upvalues []*Upvalue
	self     value.Value
	location *object.Package
}

// NewFunction allocates a Function for def, with no captured upvalues
// and no bound self, located in pkg (may be nil for anonymous/native
// functions with no home package).
func NewFunction(gcr *gc.Collector, def Def, pkg *object.Package) *Function {
	f := &Function{def: def, location: pkg, self: value.NilValue}
	if gcr != nil {
		gcr.Add(f)
	}
	return f
}

// Bind returns a copy of f with self bound to recv (spec.md §4.7:
// "Method(fn, name) — instance method with self bound"). Slot lookup
// returns methods unbound; callers bind the receiver with this before
// calling them.
func (f *Function) Bind(gcr *gc.Collector, recv value.Value) *Function {
	bound := &Function{def: f.def, upvalues: f.upvalues, self: recv, location: f.location}
	if gcr != nil {
		gcr.Add(bound)
	}
	return bound
}

// WithUpvalues returns a copy of f with the given captured upvalue
// cells installed (for example cells from Context.CaptureUpvalue); the
// instruction set has no closure-creation opcode.
func (f *Function) WithUpvalues(gcr *gc.Collector, upvalues []*Upvalue) *Function {
	closed := &Function{def: f.def, upvalues: upvalues, self: f.self, location: f.location}
	if gcr != nil {
		gcr.Add(closed)
	}
	return closed
}

func (f *Function) Def() Def                  { return f.def }
func (f *Function) Self() value.Value         { return f.self }
func (f *Function) Location() *object.Package { return f.location }

// Value wraps f as a runtime Value with Kind() == value.Object.
func (f *Function) Value() value.Value { return value.NewRef(value.Object, f) }

// GCHeader satisfies gc.Object.
func (f *Function) GCHeader() *gc.Header { return &f.Header }

// MarkRefs satisfies gc.Object: a Function keeps its upvalue targets,
// bound self, and location Package alive.
func (f *Function) MarkRefs(c *gc.Collector) {
	if ref, ok := f.self.Ref().(gc.Object); ok {
		c.Mark(ref)
	}
	if f.location != nil {
		c.Mark(f.location)
	}
	for _, uv := range f.upvalues {
		if uv == nil {
			continue
		}
		if ref, ok := uv.Get().Ref().(gc.Object); ok {
			c.Mark(ref)
		}
	}
	if bd, ok := f.def.(*BytecodeDef); ok {
		for _, v := range bd.Constants {
			if ref, ok := v.Ref().(gc.Object); ok {
				c.Mark(ref)
			}
		}
	}
}

// Finalize satisfies gc.Object.
func (f *Function) Finalize() bool { return true }

// FunctionFromValue extracts the *Function a Value wraps, if any.
func FunctionFromValue(v value.Value) (*Function, bool) {
	fn, ok := v.Ref().(*Function)
	return fn, ok
}
