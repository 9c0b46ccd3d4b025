package amd64

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cdd-lang/cddc/internal/ir"
)

// General-purpose register encodings (arc-language-core-codegen's
// arch/amd64/compiler.go register block, unchanged).
const (
	RAX = 0
	RCX = 1
	RDX = 2
	RBX = 3
	RSP = 4
	RBP = 5
	RSI = 6
	RDI = 7
	R10 = 10
)

// XMM0/XMM1 are the only two SSE registers this backend uses: one for
// the value under computation, one scratch for the other operand of a
// binary op. Neither needs REX extension since both encode under 8.
const (
	XMM0 = 0
	XMM1 = 1
)

func writeIntLE(buf *bytes.Buffer, v int64, size int) {
	switch size {
	case 1:
		buf.WriteByte(byte(v))
	case 2:
		binary.Write(buf, binary.LittleEndian, uint16(v))
	case 4:
		binary.Write(buf, binary.LittleEndian, uint32(v))
	default:
		binary.Write(buf, binary.LittleEndian, uint64(v))
	}
}

func writeFloatLE(buf *bytes.Buffer, v float64, size int) {
	if size == 4 {
		binary.Write(buf, binary.LittleEndian, math.Float32bits(float32(v)))
	} else {
		binary.Write(buf, binary.LittleEndian, math.Float64bits(v))
	}
}

func (c *funcCompiler) emitBytes(b ...byte) { c.text.Write(b) }

func (c *funcCompiler) emitInt32(v int32) { binary.Write(c.text, binary.LittleEndian, v) }

func (c *funcCompiler) emitUint32(v uint32) { binary.Write(c.text, binary.LittleEndian, v) }

func (c *funcCompiler) emitUint64(v uint64) { binary.Write(c.text, binary.LittleEndian, v) }

// rex builds a REX prefix for a two-register instruction, extending
// dst/reg's encodings through the high half (r8-r15) exactly the way
// arc-language-core-codegen/arch/amd64/helpers.go's emitLoadFromStack
// and friends compute it; dst/reg are reduced to their 3-bit field in
// place.
func rex(w bool, dst, reg *int) byte {
	b := byte(0)
	if w {
		b |= 0x08
	}
	if *reg >= 8 {
		b |= 0x04
		*reg -= 8
	}
	if *dst >= 8 {
		b |= 0x01
		*dst -= 8
	}
	return 0x40 | b
}

func modrmDisp32(reg, rm int) byte { return 0x80 | byte(reg<<3) | byte(rm) }

// modrmReg builds a register-direct ModRM byte (mod=11): reg op rm,
// result always left in the rm-field register.
func modrmReg(reg, rm int) byte { return 0xC0 | byte(reg<<3) | byte(rm) }

// modrmIndirect builds a no-displacement memory ModRM byte (mod=00):
// [rm]. Under mod=00, rm=RSP selects a SIB byte and rm=RBP selects
// RIP-relative addressing: the one caller that addresses [rsp]
// (pushOperand) appends the SIB byte 0x24 itself, and no caller passes
// RBP, R12 or R13 as rm.
func modrmIndirect(reg, rm int) byte { return byte(reg<<3) | byte(rm) }

// emitRR emits a REX.W two-register ALU instruction of the r/m64, r64
// form (ADD/SUB/AND/OR/XOR/CMP/MOV): dst is read and written as the
// r/m operand, src is the unchanged reg operand.
func (c *funcCompiler) emitRR(opcode byte, dst, src int) {
	rx := rex(true, &dst, &src)
	c.emitBytes(rx, opcode, modrmReg(src, dst))
}

// emitImulRR emits IMUL dst, src (0F AF /r): dst *= src.
func (c *funcCompiler) emitImulRR(dst, src int) {
	rx := rex(true, &src, &dst)
	c.emitBytes(rx, 0x0F, 0xAF, modrmReg(dst, src))
}

// emitImulImm emits IMUL reg, reg, imm32 (69 /r id): reg *= imm.
func (c *funcCompiler) emitImulImm(reg int, imm int64) {
	a, b := reg, reg
	rx := rex(true, &a, &b)
	c.emitBytes(rx, 0x69, modrmReg(a, b))
	c.emitInt32(int32(imm))
}

// emitAluImm emits an r/m64, imm32 ALU instruction selected by digit
// (0=ADD, 5=SUB, ...): reg op= imm.
func (c *funcCompiler) emitAluImm(digit, reg int, imm int64) {
	dummy := 0
	rx := rex(true, &reg, &dummy)
	c.emitBytes(rx, 0x81, modrmReg(digit, reg))
	c.emitInt32(int32(imm))
}

func (c *funcCompiler) emitAddImm(reg int, imm int64) { c.emitAluImm(0, reg, imm) }

// emitF7 emits a REX.W unary group-3 instruction (F7 /digit): NEG(3),
// NOT(2), unsigned DIV(6), signed IDIV(7), all operating on reg in
// place (DIV/IDIV take RDX:RAX as the dividend implicitly).
func (c *funcCompiler) emitF7(reg, digit int) {
	dummy := 0
	rx := rex(true, &reg, &dummy)
	c.emitBytes(rx, 0xF7, modrmReg(digit, reg))
}

func (c *funcCompiler) emitNeg(reg int)     { c.emitF7(reg, 3) }
func (c *funcCompiler) emitNot(reg int)     { c.emitF7(reg, 2) }
func (c *funcCompiler) emitIDivReg(reg int) { c.emitF7(reg, 7) }
func (c *funcCompiler) emitDivReg(reg int)  { c.emitF7(reg, 6) }

// emitCqo sign-extends RAX into RDX:RAX ahead of a signed IDIV.
func (c *funcCompiler) emitCqo() { c.emitBytes(0x48, 0x99) }

// emitShift emits reg op= CL (D3 /digit): SHL(4), SHR(5), SAR(7). The
// shift count is always whatever Arg2 was most recently loaded into
// RCX by the caller — the x86 shift-by-CL form reads it implicitly.
func (c *funcCompiler) emitShift(reg, digit int) {
	dummy := 0
	rx := rex(true, &reg, &dummy)
	c.emitBytes(rx, 0xD3, modrmReg(digit, reg))
}

// emitSetcc emits SETcc r/m8 (0F 9x /0), writing 0/1 into reg's low byte.
func (c *funcCompiler) emitSetcc(cc byte, reg int) {
	dummy := 0
	rx := rex(false, &reg, &dummy)
	c.emitBytes(rx, 0x0F, cc, modrmReg(0, reg))
}

// emitMovzxByte zero-extends src's low byte into dst (REX.W 0F B6 /r).
func (c *funcCompiler) emitMovzxByte(dst, src int) {
	rx := rex(true, &src, &dst)
	c.emitBytes(rx, 0x0F, 0xB6, modrmReg(dst, src))
}

// setccFor maps a Cmp/FCmp-as-Cmp opcode to the SETcc condition byte;
// unsigned picks the CF/ZF-based codes, which is also what comisd's
// flags need (see compileFloatCompare).
func setccFor(op ir.Opcode, unsigned bool) byte {
	switch op {
	case ir.CmpEq:
		return 0x94
	case ir.CmpNotEq:
		return 0x95
	case ir.CmpLt:
		if unsigned {
			return 0x92
		}
		return 0x9C
	case ir.CmpGt:
		if unsigned {
			return 0x97
		}
		return 0x9F
	case ir.CmpLtEq:
		if unsigned {
			return 0x96
		}
		return 0x9E
	case ir.CmpGtEq:
		if unsigned {
			return 0x93
		}
		return 0x9D
	default:
		return 0x94
	}
}
