package amd64

import (
	"fmt"
	"strings"

	"github.com/cdd-lang/cddc/internal/ir"
)

// RenderAssembly renders prog as AT&T-syntax x86-64 assembly text, the
// `-S` CLI flag's output (spec Section 6's default action). It walks
// the same quadruple program Compile encodes to machine code, but
// independently: this is the "assembler would print" view, not a
// disassembly of the bytes Compile produces, so it stays readable even
// when the two paths are exercised by different test files.
func RenderAssembly(prog *ir.Program) (string, error) {
	var b strings.Builder
	b.WriteString(".text\n")
	for _, fn := range prog.Functions {
		if err := renderFunction(&b, fn); err != nil {
			return "", fmt.Errorf("in function %s: %w", fn.Name, err)
		}
	}
	if len(prog.Globals) > 0 || len(prog.Strings) > 0 {
		b.WriteString("\n.data\n")
		for _, g := range prog.Globals {
			renderGlobal(&b, g)
		}
		if len(prog.Strings) > 0 {
			b.WriteString("\n.section .rodata\n")
			for _, s := range prog.Strings {
				fmt.Fprintf(&b, "%s:\n\t.asciz %q\n", s.Label, string(s.Bytes))
			}
		}
	}
	return b.String(), nil
}

func renderGlobal(b *strings.Builder, g *ir.Global) {
	if g.IsExtern {
		fmt.Fprintf(b, "\t.extern %s\n", g.Name)
		return
	}
	fmt.Fprintf(b, ".globl %s\n%s:\n", g.Name, g.Name)
	for _, iv := range g.Init {
		switch iv.Kind {
		case ir.InitInteger:
			fmt.Fprintf(b, "\t.byte\t%d ; width %d\n", iv.IntValue, iv.Size)
		case ir.InitFloat:
			fmt.Fprintf(b, "\t.double\t%g\n", iv.FloatValue)
		case ir.InitString:
			fmt.Fprintf(b, "\t.quad\t%s\n", iv.StringLabel)
		case ir.InitAddress:
			fmt.Fprintf(b, "\t.quad\t%s\n", iv.Symbol)
		case ir.InitZero:
			fmt.Fprintf(b, "\t.zero\t%d\n", iv.Size)
		}
	}
}

func renderFunction(b *strings.Builder, fn *ir.Function) error {
	fmt.Fprintf(b, "\n.globl %s\n%s:\n", fn.Name, fn.Name)
	b.WriteString("\tpush\t%rbp\n\tmov\t%rsp, %rbp\n")
	if fn.StackSize > 0 {
		fmt.Fprintf(b, "\tsub\t$%d, %%rsp\n", align16(fn.StackSize+8*countTemps(fn)))
	}
	regs := []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}
	for i, p := range fn.Params {
		if i >= len(regs) {
			break
		}
		fmt.Fprintf(b, "\tmov\t%s, %s(%%rbp)\n", regs[i], operandSlot(fn, p.Name))
	}
	for _, q := range fn.Quads {
		renderQuad(b, q)
	}
	return nil
}

func countTemps(fn *ir.Function) int {
	seen := map[string]bool{}
	for _, l := range fn.Locals {
		seen[l.Name] = true
	}
	n := 0
	mark := func(o ir.Operand) {
		if o.Kind != ir.OpTemp || seen[o.Name] {
			return
		}
		seen[o.Name] = true
		n++
	}
	for _, q := range fn.Quads {
		mark(q.Result)
		mark(q.Arg1)
		mark(q.Arg2)
	}
	return n
}

func align16(n int) int {
	if n%16 != 0 {
		n += 16 - n%16
	}
	return n
}

// operandSlot renders the assembly-text stand-in for a variable/temp's
// stack slot: a declared local renders as its rbp-relative offset from
// fn.Locals; a temp's offset is only known to funcCompiler's slot map
// at machine-code-generation time, so a temp renders as "-" followed by
// its name, a placeholder instead of a literal displacement.
func operandSlot(fn *ir.Function, name string) string {
	for _, l := range fn.Locals {
		if l.Name == name {
			return fmt.Sprintf("%d", l.Offset)
		}
	}
	return "-" + name // temp: displacement resolved only by the encoder
}

func renderQuad(b *strings.Builder, q ir.Quad) {
	if q.Op == ir.Label {
		fmt.Fprintf(b, "%s:\n", q.Result.Name)
		return
	}
	switch q.Op {
	case ir.Jump:
		fmt.Fprintf(b, "\tjmp\t%s\n", q.Arg1.Name)
	case ir.JumpTrue:
		fmt.Fprintf(b, "\tcmp\t$0, %s\n\tjne\t%s\n", q.Arg1, q.Arg2.Name)
	case ir.JumpFalse:
		fmt.Fprintf(b, "\tcmp\t$0, %s\n\tje\t%s\n", q.Arg1, q.Arg2.Name)
	case ir.Return:
		if !q.Arg1.IsNone() {
			fmt.Fprintf(b, "\tmov\t%s, %%rax\n", q.Arg1)
		}
		b.WriteString("\tleave\n\tret\n")
	case ir.Param:
		fmt.Fprintf(b, "\t; param %s\n", q.Arg1)
	case ir.Call:
		fmt.Fprintf(b, "\tcall\t%s\n", q.Arg1)
		if !q.Result.IsNone() {
			fmt.Fprintf(b, "\tmov\t%%rax, %s\n", q.Result)
		}
	default:
		fmt.Fprintf(b, "\t; %s\n", q.String())
	}
}
