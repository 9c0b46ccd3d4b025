package amd64

import "github.com/cdd-lang/cddc/internal/ir"

// sysVIntRegs is the System V integer/pointer argument register order.
// Every argument, float or integer, is classified into this sequence
// (see func.go's spill-convention doc): this backend never populates
// XMM0-7 for argument passing, so a callee that reads its float
// arguments from XMM registers (such as a libc variadic function
// guided by the %al vector-register count) does not receive them.
var sysVIntRegs = []int{RDI, RSI, RDX, RCX, 8, 9}

func (c *funcCompiler) compileParam(q *ir.Quad) error {
	c.pendingParams = append(c.pendingParams, q.Arg1)
	return nil
}

// compileCall un-reverses the queued Param quads (irgen emits them in
// reverse argument order immediately before Call), classifies each
// into a register or a stack push, emits the call itself, and cleans
// up any stack-passed arguments afterward.
func (c *funcCompiler) compileCall(q *ir.Quad) error {
	params := make([]ir.Operand, len(c.pendingParams))
	for i, p := range c.pendingParams {
		params[len(params)-1-i] = p
	}
	c.pendingParams = c.pendingParams[:0]

	var stackArgs []ir.Operand
	intIdx := 0
	for _, p := range params {
		if intIdx >= len(sysVIntRegs) {
			stackArgs = append(stackArgs, p)
			continue
		}
		isFloat := p.Type != nil && p.Type.IsFloat()
		if isFloat {
			if err := c.loadXMMAsInt(sysVIntRegs[intIdx], p); err != nil {
				return err
			}
		} else if err := c.loadGPR(sysVIntRegs[intIdx], p); err != nil {
			return err
		}
		intIdx++
	}
	for i := len(stackArgs) - 1; i >= 0; i-- {
		if err := c.pushOperand(stackArgs[i]); err != nil {
			return err
		}
	}

	c.emitBytes(0x31, 0xC0) // xor eax, eax (vararg float-count convention)
	if q.Arg1.Kind == ir.OpLabel {
		c.emitCallRel32(q.Arg1.Name)
	} else {
		if err := c.loadGPR(R10, q.Arg1); err != nil {
			return err
		}
		c.emitCallIndirect(R10)
	}

	if n := len(stackArgs); n > 0 {
		c.emitAddImm(RSP, int64(8*n))
	}
	return c.storeGPR(RAX, q.Result)
}

func (c *funcCompiler) compileReturn(q *ir.Quad) error {
	if !q.Arg1.IsNone() {
		if q.Arg1.Type != nil && q.Arg1.Type.IsFloat() {
			if err := c.loadXMM(XMM0, q.Arg1); err != nil {
				return err
			}
		} else if err := c.loadGPR(RAX, q.Arg1); err != nil {
			return err
		}
	}
	c.emitBytes(0xC9) // leave
	c.emitBytes(0xC3) // ret
	return nil
}

// loadXMMAsInt moves o's double bit pattern into a GPR without
// converting it, the integer-register float-passing convention this
// backend uses instead of XMM argument classification.
func (c *funcCompiler) loadXMMAsInt(reg int, o ir.Operand) error {
	if err := c.loadXMM(XMM0, o); err != nil {
		return err
	}
	c.emitMovqXMMToGPR(reg, XMM0)
	return nil
}

// pushOperand pushes one stack-passed argument, 8 bytes regardless of
// its declared width (System V pads every stack argument slot to 8).
func (c *funcCompiler) pushOperand(o ir.Operand) error {
	if o.Type != nil && o.Type.IsFloat() {
		if err := c.loadXMM(XMM0, o); err != nil {
			return err
		}
		c.emitBytes(0x48, 0x83, 0xEC, 0x08) // sub rsp, 8
		c.emitBytes(0xF2, 0x0F, 0x11, modrmIndirect(XMM0, RSP), 0x24) // movsd [rsp], xmm0; SIB 0x24 = base rsp, no index
		return nil
	}
	if err := c.loadGPR(RAX, o); err != nil {
		return err
	}
	c.emitBytes(0x50) // push rax
	return nil
}
