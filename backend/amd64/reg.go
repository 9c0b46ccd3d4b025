package amd64

import (
	"bytes"
	"fmt"

	"github.com/cdd-lang/cddc/internal/ir"
)

// loadGPR loads o's integer value into reg. The IR hands ALU/branch
// quadruples every operand kind the generator can produce: constants,
// temps (always full 8-byte slots), named locals read at their declared
// width, RIP-relative globals, and function labels (whose value is the
// function's address).
func (c *funcCompiler) loadGPR(reg int, o ir.Operand) error {
	switch o.Kind {
	case ir.OpIntConst:
		c.emitMovImm64(reg, uint64(o.IntValue))
		return nil
	case ir.OpTemp:
		off, ok := c.slotOf(o.Name)
		if !ok {
			return fmt.Errorf("temp %s has no stack slot", o.Name)
		}
		c.emitLoadMemOffRBP(reg, off, 8)
		return nil
	case ir.OpVariable:
		off, ok := c.slotOf(o.Name)
		if !ok {
			return fmt.Errorf("variable %s has no stack slot", o.Name)
		}
		size, _ := operandSize(o)
		c.emitLoadMemOffRBP(reg, off, size)
		return nil
	case ir.OpGlobal:
		c.emitLeaRIP(reg, o.Name)
		size, _ := operandSize(o)
		if o.Type != nil && (o.Type.IsArray() || o.Type.IsFunction()) {
			return nil // decayed: the address itself is the value
		}
		c.emitLoadMemIndirect(reg, reg, size)
		return nil
	case ir.OpLabel:
		c.emitLeaRIP(reg, o.Name)
		return nil
	default:
		return fmt.Errorf("cannot load operand kind %d into a register", o.Kind)
	}
}

// storeGPR spills reg into o's stack slot. o is always a fresh Temp (or
// NoOperand for a void result, in which case the store is skipped)
// since every quadruple that produces a value produces it into a temp.
func (c *funcCompiler) storeGPR(reg int, o ir.Operand) error {
	if o.IsNone() {
		return nil
	}
	off, ok := c.slotOf(o.Name)
	if !ok {
		return fmt.Errorf("temp %s has no stack slot", o.Name)
	}
	c.emitStoreReg(reg, off, 8)
	return nil
}

func (c *funcCompiler) emitMovImm64(reg int, v uint64) {
	dummy := 0
	rx := rex(true, &reg, &dummy)
	c.emitBytes(rx, 0xB8+byte(reg))
	c.emitUint64(v)
}

func (c *funcCompiler) emitStoreReg(reg, disp, size int) {
	base := RBP
	rx := rex(size == 8, &base, &reg)
	if size == 2 {
		c.emitBytes(0x66)
	}
	c.emitBytes(rx)
	if size == 1 {
		c.emitBytes(0x88)
	} else {
		c.emitBytes(0x89)
	}
	c.emitBytes(modrmDisp32(reg, base))
	c.emitInt32(int32(disp))
}

// emitLoadMemOffRBP loads [rbp+disp] into reg, zero-extending to 64
// bits for any size smaller than 8 (signed sub-word loads are not
// sign-extended).
func (c *funcCompiler) emitLoadMemOffRBP(reg, disp, size int) {
	base := RBP
	switch size {
	case 1:
		rx := rex(true, &base, &reg)
		c.emitBytes(rx, 0x0F, 0xB6)
	case 2:
		rx := rex(true, &base, &reg)
		c.emitBytes(rx, 0x0F, 0xB7)
	case 4:
		rx := rex(false, &base, &reg)
		c.emitBytes(rx, 0x8B)
	default:
		rx := rex(true, &base, &reg)
		c.emitBytes(rx, 0x8B)
	}
	c.emitBytes(modrmDisp32(reg, base))
	c.emitInt32(int32(disp))
}

// --- XMM value plumbing --------------------------------------------

// loadXMM loads o's float value into xmmReg as a double, materializing
// a FloatConst through a fresh .rodata entry the way a real assembler's
// literal pool would, and reading a Temp's slot directly since every
// float temp always holds double bits (see func.go's emitArgSpill doc).
// A named local or global is read at its declared width, widening a
// 4-byte float on the way in.
func (c *funcCompiler) loadXMM(xmmReg int, o ir.Operand) error {
	switch o.Kind {
	case ir.OpFloatConst:
		c.emitXMMImm(xmmReg, o.FloatValue)
		return nil
	case ir.OpTemp:
		off, ok := c.slotOf(o.Name)
		if !ok {
			return fmt.Errorf("temp %s has no stack slot", o.Name)
		}
		c.emitBytes(0xF2, 0x0F, 0x10, modrmDisp32(xmmReg, RBP))
		c.emitInt32(int32(off))
		return nil
	case ir.OpVariable:
		off, ok := c.slotOf(o.Name)
		if !ok {
			return fmt.Errorf("variable %s has no stack slot", o.Name)
		}
		size, _ := operandSize(o)
		if size == 4 {
			c.emitBytes(0xF3, 0x0F, 0x10, modrmDisp32(xmmReg, RBP))
			c.emitInt32(int32(off))
			c.emitBytes(0xF3, 0x0F, 0x5A, modrmReg(xmmReg, xmmReg)) // cvtss2sd
			return nil
		}
		c.emitBytes(0xF2, 0x0F, 0x10, modrmDisp32(xmmReg, RBP))
		c.emitInt32(int32(off))
		return nil
	case ir.OpGlobal:
		c.emitLeaRIP(RAX, o.Name)
		size, _ := operandSize(o)
		c.emitXMMLoadIndirect(xmmReg, RAX, size)
		return nil
	case ir.OpIntConst:
		c.emitMovImm64(RAX, uint64(o.IntValue))
		c.emitCvtsi2sd(xmmReg, RAX)
		return nil
	default:
		return fmt.Errorf("cannot load operand kind %d into an xmm register", o.Kind)
	}
}

func (c *funcCompiler) storeXMM(xmmReg int, o ir.Operand) error {
	if o.IsNone() {
		return nil
	}
	off, ok := c.slotOf(o.Name)
	if !ok {
		return fmt.Errorf("temp %s has no stack slot", o.Name)
	}
	c.emitBytes(0xF2, 0x0F, 0x11, modrmDisp32(xmmReg, RBP))
	c.emitInt32(int32(off))
	return nil
}

// emitXMMImm pools v as a new 8-byte .rodata double and loads it
// RIP-relative, the same literal-pool strategy
// arc-language-core-codegen/arch/amd64/helpers.go uses for materializing
// float constants.
func (c *funcCompiler) emitXMMImm(xmmReg int, v float64) {
	label := fmt.Sprintf(".LFC%d", len(c.obj.Rodata))
	off := len(c.obj.Rodata)
	buf := bytes.NewBuffer(c.obj.Rodata)
	writeFloatLE(buf, v, 8)
	c.obj.Rodata = buf.Bytes()
	c.obj.Symbols = append(c.obj.Symbols, SymbolDef{
		Name: label, Section: SymRodata, Offset: uint64(off), Size: 8,
	})
	c.emitBytes(0xF2, 0x0F, 0x10, byte(xmmReg<<3)|0x05)
	c.obj.TextRelocs = append(c.obj.TextRelocs, Relocation{
		Offset: c.textOffset(), Symbol: label, Type: R_X86_64_PC32, Addend: -4,
	})
	c.emitUint32(0)
}

func (c *funcCompiler) emitXMMNeg(xmmReg int) {
	c.emitXMMImm(XMM1, -1.0)
	c.emitBytes(0xF2, 0x0F, 0x59, modrmReg(xmmReg, XMM1)) // mulsd xmmReg, xmm1
}

func (c *funcCompiler) emitCvtsi2sd(xmmDst, gprSrc int) {
	d, s := xmmDst, gprSrc
	rx := rex(true, &s, &d)
	c.emitBytes(0xF2, rx, 0x0F, 0x2A, modrmReg(d, s))
}

func (c *funcCompiler) emitCvttsd2si(gprDst, xmmSrc int) {
	d, s := gprDst, xmmSrc
	rx := rex(true, &s, &d)
	c.emitBytes(0xF2, rx, 0x0F, 0x2C, modrmReg(d, s))
}

// emitMovqXMMToGPR bit-copies xmmSrc into gprDst (66 REX.W 0F 7E /r),
// used to pass a float argument through an integer register without
// any value conversion (see compileCall/loadXMMAsInt).
func (c *funcCompiler) emitMovqXMMToGPR(gprDst, xmmSrc int) {
	g, x := gprDst, xmmSrc
	rx := rex(true, &g, &x)
	c.emitBytes(0x66, rx, 0x0F, 0x7E, modrmReg(x, g))
}
