// Package vm implements the Function/Context activation layer from
// spec.md §4.4: Def variants, Function (Def + closure + bound self +
// location), Context (operand stack, call-frame stack, status), and the
// setup_call/return call protocol. Bytecode instruction semantics are
// explicitly a non-goal of the source specification (§1); the
// instruction set defined in instruction.go exists only as much as the
// call protocol itself needs to be exercised end to end, grounded on
// the shape of the teacher VM's callFrame/run-loop design
// without reproducing its surface-language opcode catalogue.
package vm

import "github.com/gopika/gopika/internal/value"

// Def is the static, shared code metadata a Function binds to a
// closure environment. The two variants mirror spec.md §4.4 exactly:
// bytecode-defined and native.
type Def interface {
	// Name is the function's declared name, used in diagnostics and
	// stack traces.
	Name() string
	// Arity reports the number of required positional parameters.
	Arity() int
	// Variadic reports whether trailing arguments are packed into an
	// Array rather than rejected.
	Variadic() bool
	// Defaults holds one entry per optional trailing parameter, used
	// to fill missing arguments on call (spec.md §4.4 step 1).
	Defaults() []value.Value
}

// BytecodeDef is a Def backed by a compiled instruction buffer.
type BytecodeDef struct {
	FnName     string
	FnArity    int
	FnVariadic bool
	FnDefaults []value.Value

	// Code is the instruction buffer.
	Code []Instruction
	// Constants is the literal pool referenced by LoadConst operands.
	Constants []value.Value
	// LocalCount is the number of local variable slots the frame must
	// allocate, including parameter slots.
	LocalCount int
	// LineMap maps an instruction index to a source line, consulted by
	// the INSTRUCTION debugger hook (spec.md §4.8).
	LineMap []int
	// Upvalues describes, for each closure slot, where to capture it
	// from: an enclosing frame's local index (IsLocal true) or an
	// enclosing closure's upvalue index (IsLocal false).
	Upvalues []UpvalueDesc
}

// UpvalueDesc describes how a closure slot is captured at function
// creation time.
type UpvalueDesc struct {
	Index   int
	IsLocal bool
}

func (d *BytecodeDef) Name() string            { return d.FnName }
func (d *BytecodeDef) Arity() int              { return d.FnArity }
func (d *BytecodeDef) Variadic() bool          { return d.FnVariadic }
func (d *BytecodeDef) Defaults() []value.Value { return d.FnDefaults }
func (d *BytecodeDef) LineAt(ip int) int {
	if ip < 0 || ip >= len(d.LineMap) {
		return 0
	}
	return d.LineMap[ip]
}

// NativeCallback is a Go function registered as a NativeDef's body. It
// receives the Context it is running on and the bound self (NilValue
// if unbound), and returns the values to push as the call's result.
type NativeCallback func(ctx *Context, self value.Value, args []value.Value) ([]value.Value, error)

// NativeDef is a Def backed by a Go callback, used by the native
// binding layer (spec.md §4.7) to expose host functions as callable
// Functions indistinguishable from bytecode-defined ones.
type NativeDef struct {
	FnName     string
	FnArity    int
	FnVariadic bool
	FnDefaults []value.Value
	Callback   NativeCallback
}

func (d *NativeDef) Name() string           { return d.FnName }
func (d *NativeDef) Arity() int              { return d.FnArity }
func (d *NativeDef) Variadic() bool          { return d.FnVariadic }
func (d *NativeDef) Defaults() []value.Value { return d.FnDefaults }
