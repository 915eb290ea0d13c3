package vm

// OpCode is a single bytecode instruction's operation. The set here is
// intentionally small: spec.md §1 excludes bytecode semantics from
// scope, so this package only needs enough opcodes to drive the
// call/return/yield protocol (§4.4) through a real interpreter loop in
// tests, not a full surface-language instruction set.
type OpCode byte

const (
	// OpLoadConst pushes Constants[operand] onto the operand stack.
	OpLoadConst OpCode = iota
	// OpLoadNull pushes a null Value.
	OpLoadNull
	// OpLoadLocal pushes locals[operand].
	OpLoadLocal
	// OpStoreLocal pops the top of stack into locals[operand].
	OpStoreLocal
	// OpLoadUpvalue pushes the value captured by upvalue[operand].
	OpLoadUpvalue
	// OpStoreUpvalue pops the top of stack into upvalue[operand].
	OpStoreUpvalue
	// OpPop discards the top of the operand stack.
	OpPop
	// OpGetAttr pops self, resolves Constants[operand] (a String key)
	// against it through GetMember's full spec.md §4.3 chain —
	// instance slots, Type method table, base Type chain, delegation —
	// invoking a resolved Property's getter rather than returning the
	// descriptor, and pushes the result.
	OpGetAttr
	// OpSetAttr pops val then self (reverse of push order) and writes
	// Constants[operand] (a String key) via SetMember: a resolved
	// Property's setter is invoked; otherwise val is written into
	// self's own instance slots.
	OpSetAttr
	// OpJump unconditionally sets PC to operand.
	OpJump
	// OpJumpIfFalse pops a Value; if it is not Truthy, sets PC to operand.
	OpJumpIfFalse
	// OpCall pops a callee Value then operand argument Values (in
	// push order), invokes setup_call, and on a bytecode callee leaves
	// the current frame's PC advanced to resume after the call
	// returns (the interpreter re-enters its run loop on the new top
	// frame). B carries the caller's expected return count.
	OpCall
	// OpReturn pops operand Values from the stack (in reverse push
	// order) and ends the current frame via the return protocol.
	OpReturn
	// OpYield suspends the current Context, preserving the frame chain.
	OpYield
	// OpPushHandler installs an exception handler covering the rest of
	// the current frame; A is the PC to jump to on a caught exception
	// (spec.md §4.4 "a marker frame set by a try-style opcode").
	OpPushHandler
	// OpPopHandler removes the handler installed by the most recent
	// unmatched OpPushHandler (the protected block completed normally).
	OpPopHandler
	// OpThrow pops a Value and raises it as an exception, unwinding to
	// the nearest installed handler.
	OpThrow
)

// Instruction is a single decoded bytecode instruction: an opcode plus
// up to two immediate operands (most opcodes use only A).
type Instruction struct {
	Op OpCode
	A  int
	B  int
}
