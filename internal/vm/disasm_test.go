package vm_test

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/gopika/gopika/internal/value"
	"github.com/gopika/gopika/internal/vm"
	"github.com/gopika/gopika/internal/vm/asm"
)

func TestDisassembleRendersConstantsAndOperands(t *testing.T) {
	b := asm.New("greet", 1)
	b.SetLocalCount(1)
	idx := b.Const(value.IntValue(42))
	b.Line(1)
	b.Emit(vm.OpLoadLocal, 0, 0)
	b.Line(2)
	b.Emit(vm.OpLoadConst, idx, 0)
	jmp := b.Emit(vm.OpJumpIfFalse, 0, 0)
	b.Emit(vm.OpCall, 1, 1)
	b.Patch(jmp, b.Here())
	b.Emit(vm.OpReturn, 1, 0)

	out := vm.Disassemble(b.Build())
	snaps.MatchSnapshot(t, "greet_disassembly", out)
}
