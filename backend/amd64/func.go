package amd64

import (
	"bytes"
	"fmt"

	"github.com/cdd-lang/cddc/internal/ir"
)

// fixup is one not-yet-resolved rel32 jump/branch operand, recorded the
// way arc-language-core-codegen/arch/amd64/compiler.go's jumpFixup does,
// but keyed by the quadruple IR's label name instead of a *ir.BasicBlock
// pointer (this IR has no basic blocks — spec 4.5 lowers control flow
// straight to Label/Jump/JumpTrue/JumpFalse quadruples).
type fixup struct {
	pos   int // obj-relative offset of the rel32 field
	label string
}

// funcCompiler lowers one ir.Function's flat quadruple list into
// obj.Text, maintaining its own stack-slot map (seeded from the
// function's declared Locals, extended for every generated Temp) and
// its own label/fixup bookkeeping, reset per function exactly as
// arc-language-core-codegen/arch/amd64/compiler.go's compileFunction
// resets stackMap/blockOffsets/fixups per function.
type funcCompiler struct {
	obj  *Object
	fn   *ir.Function
	text *bytes.Buffer

	slots     map[string]int // variable/temp name -> rbp-relative offset
	nextSlot  int            // next free offset below the declared locals
	labelOffs map[string]int // local label name -> obj-relative text offset
	fixups    []fixup

	frameSize int

	pendingParams []ir.Operand // Param quads queued since the last Call
}

func newFuncCompiler(obj *Object, fn *ir.Function) *funcCompiler {
	c := &funcCompiler{
		obj:       obj,
		fn:        fn,
		text:      bytes.NewBuffer(obj.Text),
		slots:     map[string]int{},
		labelOffs: map[string]int{},
	}
	for _, l := range fn.Locals {
		c.slots[l.Name] = l.Offset
	}
	c.nextSlot = fn.StackSize
	c.allocateTemps()
	return c
}

// allocateTemps walks every quadruple once to find Temp operands not
// already backed by a declared Local, giving each a fresh 8-byte-aligned
// slot below the locals — the same "every producing instruction gets a
// slot" policy as arc-language-core-codegen/arch/amd64/compiler.go's
// compileFunction allocation pass, generalized from SSA values to
// IR-level temp names.
func (c *funcCompiler) allocateTemps() {
	see := func(o ir.Operand) {
		if o.Kind != ir.OpTemp {
			return
		}
		if _, ok := c.slots[o.Name]; ok {
			return
		}
		c.nextSlot += 8
		c.slots[o.Name] = -c.nextSlot
	}
	for _, q := range c.fn.Quads {
		see(q.Result)
		see(q.Arg1)
		see(q.Arg2)
	}
	c.frameSize = c.nextSlot
	if c.frameSize%16 != 0 {
		c.frameSize += 16 - c.frameSize%16
	}
}

func (c *funcCompiler) slotOf(name string) (int, bool) {
	off, ok := c.slots[name]
	return off, ok
}

// compile emits the prologue, argument spill, every quadruple in order,
// and applies this function's fixups before returning; obj.Text is
// updated to the grown buffer on every path so a mid-function error
// still leaves previously emitted functions intact.
func (c *funcCompiler) compile() error {
	c.emitPrologue()
	c.emitArgSpill()

	for i := range c.fn.Quads {
		if err := c.compileQuad(&c.fn.Quads[i]); err != nil {
			c.obj.Text = c.text.Bytes()
			return err
		}
	}

	c.applyFixups()
	c.obj.Text = c.text.Bytes()
	return nil
}

func (c *funcCompiler) emitPrologue() {
	c.emitBytes(0x55)             // push rbp
	c.emitBytes(0x48, 0x89, 0xE5) // mov rbp, rsp
	if c.frameSize > 0 {
		if c.frameSize <= 127 {
			c.emitBytes(0x48, 0x83, 0xEC, byte(c.frameSize)) // sub rsp, imm8
		} else {
			c.emitBytes(0x48, 0x81, 0xEC) // sub rsp, imm32
			c.emitUint32(uint32(c.frameSize))
		}
	}
}

// emitArgSpill copies the System V integer argument registers into
// their stack slots, mirroring
// arc-language-core-codegen/arch/amd64/compiler.go's emitArgSave. Float
// parameters are not classified into XMM registers (see call.go's
// sysVIntRegs):
// compileCall moves a float argument's raw double bit pattern into the
// next integer register with movq before the call, and this spill
// writes those bits straight into the parameter's stack slot exactly
// like an integer; compileLoad/compileStore reinterpret the slot's
// bytes through XMM whenever the declared type is a float, so the
// round trip is bit-exact even though it never touches XMM0-7.
func (c *funcCompiler) emitArgSpill() {
	intRegs := []int{RDI, RSI, RDX, RCX, 8, 9}
	for i, p := range c.fn.Params {
		off, ok := c.slotOf(p.Name)
		if !ok {
			continue
		}
		size := p.Type.Size()
		if i < len(intRegs) {
			c.emitStoreReg(intRegs[i], off, size)
		} else {
			srcOff := 16 + (i-len(intRegs))*8
			c.emitLoadMemOffRBP(RAX, srcOff, 8)
			c.emitStoreReg(RAX, off, size)
		}
	}
}

func (c *funcCompiler) applyFixups() {
	buf := c.text.Bytes()
	for _, fx := range c.fixups {
		target, ok := c.labelOffs[fx.label]
		if !ok {
			continue // analyzer guarantees every referenced label exists (spec 3 invariant)
		}
		rel := int32(target - (fx.pos + 4))
		buf[fx.pos] = byte(rel)
		buf[fx.pos+1] = byte(rel >> 8)
		buf[fx.pos+2] = byte(rel >> 16)
		buf[fx.pos+3] = byte(rel >> 24)
	}
}

func (c *funcCompiler) textOffset() int { return c.text.Len() }

func (c *funcCompiler) addFixup(label string) {
	c.fixups = append(c.fixups, fixup{pos: c.textOffset(), label: label})
	c.emitUint32(0) // placeholder, patched by applyFixups
}

func (c *funcCompiler) compileQuad(q *ir.Quad) error {
	switch q.Op {
	case ir.Nop, ir.Comment:
		return nil
	case ir.Label:
		c.labelOffs[q.Result.Name] = c.textOffset()
		return nil
	case ir.Jump:
		c.emitBytes(0xE9)
		c.addFixup(q.Arg1.Name)
		return nil
	case ir.JumpTrue, ir.JumpFalse:
		if err := c.loadGPR(RAX, q.Arg1); err != nil {
			return err
		}
		c.emitBytes(0x48, 0x85, 0xC0) // test rax, rax
		if q.Op == ir.JumpTrue {
			c.emitBytes(0x0F, 0x85) // jnz
		} else {
			c.emitBytes(0x0F, 0x84) // jz
		}
		c.addFixup(q.Arg2.Name)
		return nil
	case ir.Return:
		return c.compileReturn(q)
	case ir.Param:
		return c.compileParam(q)
	case ir.Call:
		return c.compileCall(q)
	case ir.Assign:
		return c.compileAssign(q)
	case ir.Load:
		return c.compileLoad(q)
	case ir.Store:
		return c.compileStore(q)
	case ir.LoadAddr:
		return c.compileLoadAddr(q)
	case ir.IndexAddr:
		return c.compileIndexAddr(q)
	case ir.MemberAddr:
		return c.compileMemberAddr(q)
	}

	if isFloatOp(q.Op) {
		return c.compileFloatOp(q)
	}
	if isIntArithOp(q.Op) {
		return c.compileIntArith(q)
	}
	if isCompareOp(q.Op) {
		return c.compileCompare(q)
	}
	if isConvertOp(q.Op) {
		return c.compileConvert(q)
	}
	switch q.Op {
	case ir.LogNot:
		return c.compileLogNot(q)
	}
	return fmt.Errorf("unsupported opcode %s", q.Op)
}
