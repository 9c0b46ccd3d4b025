package amd64

import (
	"fmt"

	"github.com/cdd-lang/cddc/internal/ir"
)

// compileLoadAddr takes the address of a Variable (an rbp-relative
// stack slot) or a Global/pooled string (a RIP-relative symbol),
// mirroring spec 4.5's lowerAddr identifier case.
func (c *funcCompiler) compileLoadAddr(q *ir.Quad) error {
	switch q.Arg1.Kind {
	case ir.OpVariable:
		off, ok := c.slotOf(q.Arg1.Name)
		if !ok {
			return fmt.Errorf("variable %s has no stack slot", q.Arg1.Name)
		}
		c.emitLeaRBP(RAX, off)
	case ir.OpGlobal:
		c.emitLeaRIP(RAX, q.Arg1.Name)
	default:
		return fmt.Errorf("LoadAddr on unsupported operand kind %d", q.Arg1.Kind)
	}
	return c.storeGPR(RAX, q.Result)
}

// compileIndexAddr computes base + idx*elemSize, the pointer arithmetic
// spec 4.5's subscript lowering leaves for the backend to scale (the
// generator passes idx unscaled).
func (c *funcCompiler) compileIndexAddr(q *ir.Quad) error {
	if err := c.loadGPR(RAX, q.Arg1); err != nil {
		return err
	}
	if err := c.loadGPR(RCX, q.Arg2); err != nil {
		return err
	}
	elemSize := int64(1)
	if q.Result.Type != nil && q.Result.Type.Elem != nil {
		elemSize = int64(q.Result.Type.Elem.Size())
	}
	if elemSize != 1 {
		c.emitImulImm(RCX, elemSize)
	}
	c.emitRR(0x01, RAX, RCX) // add rax, rcx
	return c.storeGPR(RAX, q.Result)
}

// compileMemberAddr adds a constant byte offset to a base address.
func (c *funcCompiler) compileMemberAddr(q *ir.Quad) error {
	if err := c.loadGPR(RAX, q.Arg1); err != nil {
		return err
	}
	if off := q.Arg2.IntValue; off != 0 {
		c.emitAddImm(RAX, off)
	}
	return c.storeGPR(RAX, q.Result)
}

func (c *funcCompiler) emitLeaRBP(reg, disp int) {
	base := RBP
	rx := rex(true, &base, &reg)
	c.emitBytes(rx, 0x8D, modrmDisp32(reg, base))
	c.emitInt32(int32(disp))
}

// emitLeaRIP emits `lea reg, [rip+symbol]` with a PC32 relocation that
// format/elf resolves once section addresses are fixed.
func (c *funcCompiler) emitLeaRIP(reg int, symbol string) {
	dummy := 0
	rx := rex(true, &dummy, &reg)
	c.emitBytes(rx, 0x8D, byte(reg<<3)|0x05)
	c.obj.TextRelocs = append(c.obj.TextRelocs, Relocation{
		Offset: c.textOffset(), Symbol: symbol, Type: R_X86_64_PC32, Addend: -4,
	})
	c.emitUint32(0)
}

// emitCallRel32 emits `call symbol` with a PLT32 relocation, used for
// every direct call to a named function (spec 4.5's callee-is-label
// case; format/elf synthesizes an SHN_UNDEF symbol when symbol isn't
// one this object defines).
func (c *funcCompiler) emitCallRel32(symbol string) {
	c.emitBytes(0xE8)
	c.obj.TextRelocs = append(c.obj.TextRelocs, Relocation{
		Offset: c.textOffset(), Symbol: symbol, Type: R_X86_64_PLT32, Addend: -4,
	})
	c.emitUint32(0)
}

func (c *funcCompiler) emitCallIndirect(reg int) {
	dummy := 0
	rx := rex(false, &reg, &dummy)
	c.emitBytes(rx, 0xFF, modrmReg(2, reg))
}
