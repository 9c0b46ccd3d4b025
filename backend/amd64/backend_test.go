package amd64

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdd-lang/cddc/internal/ir"
	"github.com/cdd-lang/cddc/internal/types"
)

func intType() *types.Type { return types.NewInt(types.Int, false) }

func minimalProgram() *ir.Program {
	return &ir.Program{
		Globals: []*ir.Global{
			{Name: "x", Type: intType(), Init: []ir.InitValue{ir.IntInit(11, 4)}},
		},
		Functions: []*ir.Function{{
			Name:       "main",
			ReturnType: intType(),
			Quads: []ir.Quad{
				{Op: ir.Return, Result: ir.NoOperand, Arg1: ir.IntConst(0, intType())},
			},
		}},
		Strings: []ir.StringLiteral{{Label: ".LC0", Bytes: []byte("hi")}},
	}
}

func TestCompileEmitsPrologueAndSymbols(t *testing.T) {
	obj, err := Compile(minimalProgram())
	require.NoError(t, err)

	require.NotEmpty(t, obj.Text)
	// Every function body opens with push rbp.
	var mainSym *SymbolDef
	for i := range obj.Symbols {
		if obj.Symbols[i].Name == "main" {
			mainSym = &obj.Symbols[i]
		}
	}
	require.NotNil(t, mainSym, "main must be emitted as a symbol")
	assert.True(t, mainSym.IsFunc)
	assert.Equal(t, SymText, mainSym.Section)
	assert.EqualValues(t, 0x55, obj.Text[mainSym.Offset], "function body must open with push rbp")
}

func TestCompileWritesGlobalInitBytes(t *testing.T) {
	obj, err := Compile(minimalProgram())
	require.NoError(t, err)

	var xSym *SymbolDef
	for i := range obj.Symbols {
		if obj.Symbols[i].Name == "x" {
			xSym = &obj.Symbols[i]
		}
	}
	require.NotNil(t, xSym)
	assert.Equal(t, SymData, xSym.Section)
	require.EqualValues(t, 4, xSym.Size)
	got := obj.Data[xSym.Offset : xSym.Offset+4]
	assert.Equal(t, []byte{11, 0, 0, 0}, got, "int initializer is little-endian")
}

func TestCompilePoolsStringsWithNulTerminator(t *testing.T) {
	obj, err := Compile(minimalProgram())
	require.NoError(t, err)
	assert.Equal(t, []byte("hi\x00"), obj.Rodata[:3])
}

func TestRenderAssemblyContainsFunctionAndGlobal(t *testing.T) {
	text, err := RenderAssembly(minimalProgram())
	require.NoError(t, err)
	assert.Contains(t, text, ".globl main")
	assert.Contains(t, text, "push\t%rbp")
	assert.Contains(t, text, ".globl x")
	assert.Contains(t, text, ".LC0:")
}

func TestJumpFixupsResolveForward(t *testing.T) {
	prog := &ir.Program{
		Functions: []*ir.Function{{
			Name:       "f",
			ReturnType: types.NewVoid(),
			Quads: []ir.Quad{
				{Op: ir.Jump, Arg1: ir.LabelOperand(".L0")},
				{Op: ir.Label, Result: ir.LabelOperand(".L0")},
				{Op: ir.Return},
			},
		}},
	}
	obj, err := Compile(prog)
	require.NoError(t, err)
	// jmp rel32 to the immediately following instruction encodes
	// displacement zero: E9 00 00 00 00.
	i := indexByte(obj.Text, 0xE9)
	require.GreaterOrEqual(t, i, 0, "expected a jmp rel32 in the emitted text")
	assert.Equal(t, []byte{0, 0, 0, 0}, obj.Text[i+1:i+5])
}

func indexByte(b []byte, want byte) int {
	for i, v := range b {
		if v == want {
			return i
		}
	}
	return -1
}
