package vm

import (
	"fmt"
	"io"
	"strings"
)

// opNames mirrors the teacher's per-opcode name table, used for
// disassembly only — the interpreter itself switches on the OpCode
// value directly in context.go.
var opNames = map[OpCode]string{
	OpLoadConst:    "LOAD_CONST",
	OpLoadNull:     "LOAD_NULL",
	OpLoadLocal:    "LOAD_LOCAL",
	OpStoreLocal:   "STORE_LOCAL",
	OpLoadUpvalue:  "LOAD_UPVALUE",
	OpStoreUpvalue: "STORE_UPVALUE",
	OpPop:          "POP",
	OpGetAttr:      "GET_ATTR",
	OpSetAttr:      "SET_ATTR",
	OpJump:         "JUMP",
	OpJumpIfFalse:  "JUMP_IF_FALSE",
	OpCall:         "CALL",
	OpReturn:       "RETURN",
	OpYield:        "YIELD",
	OpPushHandler:  "PUSH_HANDLER",
	OpPopHandler:   "POP_HANDLER",
	OpThrow:        "THROW",
}

func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP(%d)", byte(op))
}

// Disassembler renders a BytecodeDef as human-readable text, grounded
// on the teacher's internal/bytecode.Disassembler — same "== name ==" /
// constants-pool / per-instruction-line shape, generalized to this
// package's much smaller, AB-operand-only instruction set.
type Disassembler struct {
	w   io.Writer
	def *BytecodeDef
}

// NewDisassembler builds a Disassembler for def, writing to w.
func NewDisassembler(def *BytecodeDef, w io.Writer) *Disassembler {
	return &Disassembler{w: w, def: def}
}

// Disassemble prints the whole function: header, constant pool, and
// every instruction in order.
func (d *Disassembler) Disassemble() {
	fmt.Fprintf(d.w, "== %s ==\n", d.def.FnName)
	fmt.Fprintf(d.w, "arity=%d variadic=%v locals=%d instructions=%d constants=%d\n",
		d.def.FnArity, d.def.FnVariadic, d.def.LocalCount, len(d.def.Code), len(d.def.Constants))

	if len(d.def.Constants) > 0 {
		fmt.Fprintln(d.w, "constants:")
		for i, c := range d.def.Constants {
			fmt.Fprintf(d.w, "  [%04d] %s\n", i, c.DebugString())
		}
	}

	fmt.Fprintln(d.w, "code:")
	for ip := range d.def.Code {
		d.DisassembleInstruction(ip)
	}
}

// DisassembleInstruction prints one instruction at ip: its source
// line (when known), offset, opcode mnemonic, and operands.
func (d *Disassembler) DisassembleInstruction(ip int) {
	if ip < 0 || ip >= len(d.def.Code) {
		fmt.Fprintf(d.w, "  <invalid offset %d>\n", ip)
		return
	}
	inst := d.def.Code[ip]
	line := d.def.LineAt(ip)
	fmt.Fprintf(d.w, "  %04d %4d %-14s", ip, line, inst.Op.String())
	switch inst.Op {
	case OpLoadConst, OpGetAttr, OpSetAttr:
		if inst.A >= 0 && inst.A < len(d.def.Constants) {
			fmt.Fprintf(d.w, " %d ; %s", inst.A, d.def.Constants[inst.A].DebugString())
		} else {
			fmt.Fprintf(d.w, " %d", inst.A)
		}
	case OpCall:
		fmt.Fprintf(d.w, " argc=%d retc=%d", inst.A, inst.B)
	case OpJump, OpJumpIfFalse, OpPushHandler:
		fmt.Fprintf(d.w, " -> %04d", inst.A)
	case OpLoadNull, OpPop, OpReturn, OpYield, OpPopHandler, OpThrow:
		// no operands worth printing
	default:
		fmt.Fprintf(d.w, " %d %d", inst.A, inst.B)
	}
	fmt.Fprintln(d.w)
}

// Disassemble is a convenience wrapper returning def's disassembly as
// a string, the form snapshot tests want to compare against.
func Disassemble(def *BytecodeDef) string {
	var buf strings.Builder
	NewDisassembler(def, &buf).Disassemble()
	return buf.String()
}
