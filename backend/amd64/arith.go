package amd64

import (
	"fmt"

	"github.com/cdd-lang/cddc/internal/ir"
)

func isFloatOp(op ir.Opcode) bool {
	switch op {
	case ir.FAdd, ir.FSub, ir.FMul, ir.FDiv, ir.FNeg:
		return true
	default:
		return false
	}
}

func isIntArithOp(op ir.Opcode) bool {
	switch op {
	case ir.Add, ir.Sub, ir.Mul, ir.Div, ir.Mod, ir.Neg,
		ir.BitAnd, ir.BitOr, ir.BitXor, ir.BitNot, ir.Shl, ir.Shr:
		return true
	default:
		return false
	}
}

func isCompareOp(op ir.Opcode) bool {
	switch op {
	case ir.CmpEq, ir.CmpNotEq, ir.CmpLt, ir.CmpGt, ir.CmpLtEq, ir.CmpGtEq,
		ir.FCmpEq, ir.FCmpNotEq, ir.FCmpLt, ir.FCmpGt, ir.FCmpLtEq, ir.FCmpGtEq:
		return true
	default:
		return false
	}
}

func isConvertOp(op ir.Opcode) bool {
	switch op {
	case ir.IntToFloat, ir.FloatToInt, ir.IntExtend, ir.IntTrunc, ir.PtrToInt, ir.IntToPtr:
		return true
	default:
		return false
	}
}

func isFloatCompare(op ir.Opcode) bool {
	switch op {
	case ir.FCmpEq, ir.FCmpNotEq, ir.FCmpLt, ir.FCmpGt, ir.FCmpLtEq, ir.FCmpGtEq:
		return true
	default:
		return false
	}
}

func (c *funcCompiler) compileFloatOp(q *ir.Quad) error {
	if q.Op == ir.FNeg {
		if err := c.loadXMM(XMM0, q.Arg1); err != nil {
			return err
		}
		c.emitXMMNeg(XMM0)
		return c.storeXMM(XMM0, q.Result)
	}
	if err := c.loadXMM(XMM0, q.Arg1); err != nil {
		return err
	}
	if err := c.loadXMM(XMM1, q.Arg2); err != nil {
		return err
	}
	switch q.Op {
	case ir.FAdd:
		c.emitBytes(0xF2, 0x0F, 0x58, modrmReg(XMM0, XMM1))
	case ir.FSub:
		c.emitBytes(0xF2, 0x0F, 0x5C, modrmReg(XMM0, XMM1))
	case ir.FMul:
		c.emitBytes(0xF2, 0x0F, 0x59, modrmReg(XMM0, XMM1))
	case ir.FDiv:
		c.emitBytes(0xF2, 0x0F, 0x5E, modrmReg(XMM0, XMM1))
	default:
		return fmt.Errorf("unsupported float opcode %s", q.Op)
	}
	return c.storeXMM(XMM0, q.Result)
}

func (c *funcCompiler) compileIntArith(q *ir.Quad) error {
	if q.Op == ir.Neg || q.Op == ir.BitNot {
		if err := c.loadGPR(RAX, q.Arg1); err != nil {
			return err
		}
		if q.Op == ir.Neg {
			c.emitNeg(RAX)
		} else {
			c.emitNot(RAX)
		}
		return c.storeGPR(RAX, q.Result)
	}

	if err := c.loadGPR(RAX, q.Arg1); err != nil {
		return err
	}
	if err := c.loadGPR(RCX, q.Arg2); err != nil {
		return err
	}

	switch q.Op {
	case ir.Add:
		c.emitRR(0x01, RAX, RCX)
	case ir.Sub:
		c.emitRR(0x29, RAX, RCX)
	case ir.BitAnd:
		c.emitRR(0x21, RAX, RCX)
	case ir.BitOr:
		c.emitRR(0x09, RAX, RCX)
	case ir.BitXor:
		c.emitRR(0x31, RAX, RCX)
	case ir.Mul:
		c.emitImulRR(RAX, RCX)
	case ir.Div, ir.Mod:
		unsigned := q.Result.Type != nil && q.Result.Type.Unsigned
		if unsigned {
			c.emitRR(0x31, RDX, RDX) // xor rdx, rdx
			c.emitDivReg(RCX)
		} else {
			c.emitCqo()
			c.emitIDivReg(RCX)
		}
		if q.Op == ir.Mod {
			c.emitRR(0x89, RAX, RDX) // mov rax, rdx
		}
	case ir.Shl:
		c.emitShift(RAX, 4)
	case ir.Shr:
		digit := 5
		if q.Result.Type != nil && !q.Result.Type.Unsigned {
			digit = 7 // SAR for a signed right shift
		}
		c.emitShift(RAX, digit)
	default:
		return fmt.Errorf("unsupported int opcode %s", q.Op)
	}
	return c.storeGPR(RAX, q.Result)
}

func (c *funcCompiler) compileCompare(q *ir.Quad) error {
	if isFloatCompare(q.Op) {
		return c.compileFloatCompare(q)
	}
	if err := c.loadGPR(RAX, q.Arg1); err != nil {
		return err
	}
	if err := c.loadGPR(RCX, q.Arg2); err != nil {
		return err
	}
	c.emitRR(0x39, RAX, RCX) // cmp rax, rcx
	unsigned := q.Arg1.Type != nil && q.Arg1.Type.Unsigned
	c.emitSetcc(setccFor(q.Op, unsigned), RAX)
	c.emitMovzxByte(RAX, RAX)
	return c.storeGPR(RAX, q.Result)
}

// compileFloatCompare uses comisd, whose CF/ZF/PF flags line up with
// the unsigned SETcc condition codes rather than the signed ones; NaN
// operands compare unordered and fall through as "not less/greater",
// which this backend doesn't distinguish from a real false result.
func (c *funcCompiler) compileFloatCompare(q *ir.Quad) error {
	if err := c.loadXMM(XMM0, q.Arg1); err != nil {
		return err
	}
	if err := c.loadXMM(XMM1, q.Arg2); err != nil {
		return err
	}
	c.emitBytes(0x66, 0x0F, 0x2F, modrmReg(XMM0, XMM1)) // comisd xmm0, xmm1
	c.emitSetcc(setccFor(floatToIntCmp(q.Op), true), RAX)
	c.emitMovzxByte(RAX, RAX)
	return c.storeGPR(RAX, q.Result)
}

func floatToIntCmp(op ir.Opcode) ir.Opcode {
	switch op {
	case ir.FCmpEq:
		return ir.CmpEq
	case ir.FCmpNotEq:
		return ir.CmpNotEq
	case ir.FCmpLt:
		return ir.CmpLt
	case ir.FCmpGt:
		return ir.CmpGt
	case ir.FCmpLtEq:
		return ir.CmpLtEq
	default:
		return ir.CmpGtEq
	}
}

// compileConvert implements the conversion opcodes types.ConvertKind
// selects (irgen.go's emitConvert). IntExtend/IntTrunc/PtrToInt/IntToPtr
// are no-ops at the register level since every int temp is already a
// full 64-bit slot (storeGPR always writes 8 bytes).
func (c *funcCompiler) compileConvert(q *ir.Quad) error {
	switch q.Op {
	case ir.IntToFloat:
		if err := c.loadGPR(RAX, q.Arg1); err != nil {
			return err
		}
		c.emitCvtsi2sd(XMM0, RAX)
		return c.storeXMM(XMM0, q.Result)
	case ir.FloatToInt:
		if err := c.loadXMM(XMM0, q.Arg1); err != nil {
			return err
		}
		c.emitCvttsd2si(RAX, XMM0)
		return c.storeGPR(RAX, q.Result)
	case ir.IntExtend, ir.IntTrunc, ir.PtrToInt, ir.IntToPtr:
		if err := c.loadGPR(RAX, q.Arg1); err != nil {
			return err
		}
		return c.storeGPR(RAX, q.Result)
	default:
		return fmt.Errorf("unsupported convert opcode %s", q.Op)
	}
}

func (c *funcCompiler) compileLogNot(q *ir.Quad) error {
	if err := c.loadGPR(RAX, q.Arg1); err != nil {
		return err
	}
	c.emitBytes(0x48, 0x85, 0xC0) // test rax, rax
	c.emitSetcc(0x94, RAX)        // sete al
	c.emitMovzxByte(RAX, RAX)
	return c.storeGPR(RAX, q.Result)
}
