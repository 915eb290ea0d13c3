// Package asm is a programmatic assembler for vm.BytecodeDef: it
// builds instruction buffers and constant pools directly, since
// spec.md §1 places the source compiler/parser out of scope and no
// text assembly syntax is specified. Go code (tests, or a future
// external compiler) uses this builder
// instead of a textual format.
package asm

import (
	"github.com/gopika/gopika/internal/value"
	"github.com/gopika/gopika/internal/vm"
)

// Builder accumulates instructions and a constant pool for one
// function.
type Builder struct {
	name      string
	arity     int
	variadic  bool
	defaults  []value.Value
	code      []vm.Instruction
	constants []value.Value
	locals    int
	lines     []int
	currentLn int
}

// New starts building a function named name with the given required
// arity. Call SetLocalCount once the local slot layout is known.
func New(name string, arity int) *Builder {
	return &Builder{name: name, arity: arity}
}

// Variadic marks the function as accepting a trailing packed Array.
func (b *Builder) Variadic() *Builder {
	b.variadic = true
	return b
}

// Defaults sets the default values filled in for missing trailing
// arguments (spec.md §4.4 step 1).
func (b *Builder) Defaults(defaults ...value.Value) *Builder {
	b.defaults = defaults
	return b
}

// SetLocalCount declares how many local variable slots the frame
// needs, including parameter slots.
func (b *Builder) SetLocalCount(n int) *Builder {
	b.locals = n
	return b
}

// Line sets the source line attributed to subsequently emitted
// instructions, consumed by the INSTRUCTION debugger hook.
func (b *Builder) Line(n int) *Builder {
	b.currentLn = n
	return b
}

// Const appends a literal to the constant pool and returns its index
// for use as an OpLoadConst operand.
func (b *Builder) Const(v value.Value) int {
	idx := len(b.constants)
	b.constants = append(b.constants, v)
	return idx
}

// Emit appends an instruction and returns its index, useful for
// back-patching jump targets with Patch.
func (b *Builder) Emit(op vm.OpCode, a, operandB int) int {
	idx := len(b.code)
	b.code = append(b.code, vm.Instruction{Op: op, A: a, B: operandB})
	b.lines = append(b.lines, b.currentLn)
	return idx
}

// Patch overwrites the A operand of a previously emitted instruction,
// typically a forward jump whose target wasn't known yet.
func (b *Builder) Patch(idx int, a int) {
	b.code[idx].A = a
}

// Here returns the index the next Emit call will occupy.
func (b *Builder) Here() int { return len(b.code) }

// Build finalizes the accumulated instructions, constants, and line
// map into a *vm.BytecodeDef ready to wrap in a vm.Function.
func (b *Builder) Build() *vm.BytecodeDef {
	return &vm.BytecodeDef{
		FnName:     b.name,
		FnArity:    b.arity,
		FnVariadic: b.variadic,
		FnDefaults: append([]value.Value(nil), b.defaults...),
		Code:       append([]vm.Instruction(nil), b.code...),
		Constants:  append([]value.Value(nil), b.constants...),
		LocalCount: b.locals,
		LineMap:    append([]int(nil), b.lines...),
	}
}
