package amd64

import "github.com/cdd-lang/cddc/internal/ir"

// compileAssign is a plain value copy into a fresh temp, used for
// ternary-result joins and the 0/1 result of short-circuit && and ||.
func (c *funcCompiler) compileAssign(q *ir.Quad) error {
	if q.Result.Type != nil && q.Result.Type.IsFloat() {
		if err := c.loadXMM(XMM0, q.Arg1); err != nil {
			return err
		}
		return c.storeXMM(XMM0, q.Result)
	}
	if err := c.loadGPR(RAX, q.Arg1); err != nil {
		return err
	}
	return c.storeGPR(RAX, q.Result)
}

// compileLoad dereferences the address in Arg1 and reads Result.Type's
// width from real memory. A 4-byte float is widened to a double on the
// way into its temp slot (see func.go's spill-convention doc); integer
// loads are zero-extended to 64 bits, and signed sub-word values are
// not sign-extended.
func (c *funcCompiler) compileLoad(q *ir.Quad) error {
	if err := c.loadGPR(RAX, q.Arg1); err != nil {
		return err
	}
	size, isFloat := operandSize(q.Result)
	if isFloat {
		c.emitXMMLoadIndirect(XMM0, RAX, size)
		return c.storeXMM(XMM0, q.Result)
	}
	c.emitLoadMemIndirect(RCX, RAX, size)
	return c.storeGPR(RCX, q.Result)
}

// compileStore dereferences the address in Arg1 and writes Arg2's
// value at Arg2.Type's real width, narrowing a double back to 4 bytes
// for a float destination.
func (c *funcCompiler) compileStore(q *ir.Quad) error {
	if err := c.loadGPR(RAX, q.Arg1); err != nil {
		return err
	}
	size, isFloat := operandSize(q.Arg2)
	if isFloat {
		if err := c.loadXMM(XMM0, q.Arg2); err != nil {
			return err
		}
		c.emitXMMStoreIndirect(XMM0, RAX, size)
		return nil
	}
	if err := c.loadGPR(RCX, q.Arg2); err != nil {
		return err
	}
	c.emitStoreMemIndirect(RCX, RAX, size)
	return nil
}

func operandSize(o ir.Operand) (size int, isFloat bool) {
	if o.Type == nil {
		return 8, false
	}
	return o.Type.Size(), o.Type.IsFloat()
}

func (c *funcCompiler) emitLoadMemIndirect(dst, addrReg, size int) {
	switch size {
	case 1:
		r, b := dst, addrReg
		rx := rex(true, &b, &r)
		c.emitBytes(rx, 0x0F, 0xB6, modrmIndirect(r, b))
	case 2:
		r, b := dst, addrReg
		rx := rex(true, &b, &r)
		c.emitBytes(rx, 0x0F, 0xB7, modrmIndirect(r, b))
	case 4:
		r, b := dst, addrReg
		rx := rex(false, &b, &r)
		c.emitBytes(rx, 0x8B, modrmIndirect(r, b))
	default:
		r, b := dst, addrReg
		rx := rex(true, &b, &r)
		c.emitBytes(rx, 0x8B, modrmIndirect(r, b))
	}
}

func (c *funcCompiler) emitStoreMemIndirect(src, addrReg, size int) {
	s, b := src, addrReg
	rx := rex(size == 8, &b, &s)
	if size == 2 {
		c.emitBytes(0x66)
	}
	c.emitBytes(rx)
	if size == 1 {
		c.emitBytes(0x88)
	} else {
		c.emitBytes(0x89)
	}
	c.emitBytes(modrmIndirect(s, b))
}

func (c *funcCompiler) emitXMMLoadIndirect(xmmDst, addrReg, size int) {
	if size == 4 {
		c.emitBytes(0xF3, 0x0F, 0x10, modrmIndirect(xmmDst, addrReg))
		c.emitBytes(0xF3, 0x0F, 0x5A, modrmReg(xmmDst, xmmDst)) // cvtss2sd
		return
	}
	c.emitBytes(0xF2, 0x0F, 0x10, modrmIndirect(xmmDst, addrReg))
}

func (c *funcCompiler) emitXMMStoreIndirect(xmmSrc, addrReg, size int) {
	if size == 4 {
		c.emitBytes(0xF2, 0x0F, 0x5A, modrmReg(xmmSrc, xmmSrc)) // cvtsd2ss
		c.emitBytes(0xF3, 0x0F, 0x11, modrmIndirect(xmmSrc, addrReg))
		return
	}
	c.emitBytes(0xF2, 0x0F, 0x11, modrmIndirect(xmmSrc, addrReg))
}
