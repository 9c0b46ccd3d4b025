// Package amd64 lowers the quadruple ir.Program (internal/ir) to x86-64
// machine code, adapted from arc-language-core-codegen/arch/amd64/*.go.
// The teacher's compiler walked an SSA ir.Module of basic blocks and
// phi nodes; this one walks a flat per-function quadruple list and
// resolves Jump/JumpTrue/JumpFalse targets by label name instead of
// *ir.BasicBlock identity, the same fixup-after-the-fact strategy
// (jumpFixup + applyFixups in the teacher's compiler.go) replayed one
// level up the IR. Every operand — declared local, generated temp, or
// global — resolves to either an rbp-relative stack slot or a
// RIP-relative relocation, never a register-allocated SSA value, since
// this IR carries no liveness/allocation information for the backend to
// consume.
package amd64

import (
	"bytes"
	"fmt"

	"github.com/cdd-lang/cddc/internal/ir"
)

// SymbolSection says which buffer a SymbolDef's Offset is relative to.
type SymbolSection int

const (
	SymText SymbolSection = iota
	SymData
	SymRodata
)

// SymbolDef is one emitted symbol: a function (SymText), a defined
// global (SymData), or a pooled string constant (SymRodata). Extern
// globals and called-but-undefined functions carry no SymbolDef at all
// here; format/elf synthesizes an undefined symbol for any relocation
// target it cannot otherwise resolve.
type SymbolDef struct {
	Name    string
	Section SymbolSection
	Offset  uint64
	Size    uint64
	IsFunc  bool
}

// RelocationType mirrors the x86-64 ELF relocation types this backend
// emits (arc-language-core-codegen/arch/amd64/compiler.go's
// RelocationType, narrowed to the two kinds this emitter needs plus the
// absolute 64-bit form static initializers need).
type RelocationType int

const (
	R_X86_64_PC32 RelocationType = 2 // RIP-relative lea/mov operand
	R_X86_64_PLT32 RelocationType = 4 // call rel32
	R_X86_64_64    RelocationType = 1 // absolute 8-byte address (data init)
)

// Relocation is one fixup format/elf must apply against an external
// symbol once final section addresses are known.
type Relocation struct {
	Offset int // byte offset within the owning section
	Symbol string
	Type   RelocationType
	Addend int64
}

// Object is the machine-code artifact Compile produces: three flat
// buffers (one per section) plus the symbols and relocations
// format/elf needs to wrap them in an ELF64 relocatable object.
type Object struct {
	Text   []byte
	Data   []byte
	Rodata []byte

	Symbols    []SymbolDef
	TextRelocs []Relocation
	DataRelocs []Relocation
}

// Compile lowers every global, string literal, and function body in
// prog to machine code, in source order (matching
// arc-language-core-codegen/arch/amd64/compiler.go's Compile entry
// point: globals first, then functions, each wrapped in a
// "in X %s: %w" error per spec Section 0.5's error-wrapping convention).
func Compile(prog *ir.Program) (*Object, error) {
	obj := &Object{}

	for _, g := range prog.Globals {
		if err := compileGlobal(obj, g); err != nil {
			return nil, fmt.Errorf("in global %s: %w", g.Name, err)
		}
	}

	for _, s := range prog.Strings {
		start := len(obj.Rodata)
		obj.Rodata = append(obj.Rodata, s.Bytes...)
		obj.Rodata = append(obj.Rodata, 0) // C string null terminator
		obj.Symbols = append(obj.Symbols, SymbolDef{
			Name: s.Label, Section: SymRodata,
			Offset: uint64(start), Size: uint64(len(s.Bytes) + 1),
		})
	}

	for _, fn := range prog.Functions {
		fc := newFuncCompiler(obj, fn)
		start := len(obj.Text)
		if err := fc.compile(); err != nil {
			return nil, fmt.Errorf("in function %s: %w", fn.Name, err)
		}
		obj.Symbols = append(obj.Symbols, SymbolDef{
			Name: fn.Name, Section: SymText, IsFunc: true,
			Offset: uint64(start), Size: uint64(len(obj.Text) - start),
		})
	}

	return obj, nil
}

func compileGlobal(obj *Object, g *ir.Global) error {
	if g.IsExtern {
		obj.Symbols = append(obj.Symbols, SymbolDef{Name: g.Name, Section: SymData})
		return nil
	}
	for len(obj.Data)%8 != 0 {
		obj.Data = append(obj.Data, 0)
	}
	start := len(obj.Data)
	buf := bytes.NewBuffer(obj.Data)
	for _, iv := range g.Init {
		if err := emitInitValue(obj, buf, iv); err != nil {
			return err
		}
	}
	obj.Data = buf.Bytes()
	obj.Symbols = append(obj.Symbols, SymbolDef{
		Name: g.Name, Section: SymData,
		Offset: uint64(start), Size: uint64(len(obj.Data) - start),
	})
	return nil
}

// emitInitValue appends one flattened InitValue (spec 4.5) to buf, the
// way arc-language-core-codegen/arch/amd64/compiler.go's emitConstant
// walks a constant tree, generalized to this repo's already-flat
// InitValue sequence instead of a nested ir.Constant tree.
func emitInitValue(obj *Object, buf *bytes.Buffer, iv ir.InitValue) error {
	switch iv.Kind {
	case ir.InitInteger:
		writeIntLE(buf, iv.IntValue, iv.Size)
	case ir.InitFloat:
		writeFloatLE(buf, iv.FloatValue, iv.Size)
	case ir.InitZero:
		buf.Write(make([]byte, iv.Size))
	case ir.InitString:
		obj.DataRelocs = append(obj.DataRelocs, Relocation{
			Offset: buf.Len(), Symbol: iv.StringLabel, Type: R_X86_64_64,
		})
		buf.Write(make([]byte, 8))
	case ir.InitAddress:
		obj.DataRelocs = append(obj.DataRelocs, Relocation{
			Offset: buf.Len(), Symbol: iv.Symbol, Type: R_X86_64_64,
		})
		buf.Write(make([]byte, 8))
	default:
		return fmt.Errorf("unsupported init value kind %d", iv.Kind)
	}
	return nil
}
