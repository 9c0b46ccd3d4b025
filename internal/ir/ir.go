// Package ir is the three-address quadruple model from spec 3: a fixed
// Operand sum type, a fixed Opcode enumeration, and the Program/Function
// bundle the generator produces and the backend consumes. The textual
// renderer follows spec 6's contract (one line per quadruple, labels
// un-indented) in the same "print the IR for inspection" spirit as
// arc-language-core-codegen/examples/main.go's
// fmt.Println(module.String()).
package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cdd-lang/cddc/internal/types"
)

// Opcode is the fixed quadruple opcode enumeration (spec 3).
type Opcode int

const (
	Nop Opcode = iota
	Comment

	Add
	Sub
	Mul
	Div
	Mod
	Neg

	FAdd
	FSub
	FMul
	FDiv
	FNeg

	BitAnd
	BitOr
	BitXor
	BitNot
	Shl
	Shr

	CmpEq
	CmpNotEq
	CmpLt
	CmpGt
	CmpLtEq
	CmpGtEq

	FCmpEq
	FCmpNotEq
	FCmpLt
	FCmpGt
	FCmpLtEq
	FCmpGtEq

	LogAnd
	LogOr
	LogNot

	Assign
	Load
	Store
	LoadAddr
	IndexAddr
	MemberAddr

	Label
	Jump
	JumpTrue
	JumpFalse

	Param
	Call
	Return

	IntToFloat
	FloatToInt
	IntExtend
	IntTrunc
	PtrToInt
	IntToPtr

	Switch
	Case
)

var opcodeNames = [...]string{
	"Nop", "Comment",
	"Add", "Sub", "Mul", "Div", "Mod", "Neg",
	"FAdd", "FSub", "FMul", "FDiv", "FNeg",
	"BitAnd", "BitOr", "BitXor", "BitNot", "Shl", "Shr",
	"Eq", "NotEq", "Lt", "Gt", "LtEq", "GtEq",
	"FEq", "FNotEq", "FLt", "FGt", "FLtEq", "FGtEq",
	"And", "Or", "Not",
	"Assign", "Load", "Store", "LoadAddr", "IndexAddr", "MemberAddr",
	"Label", "Jump", "JumpTrue", "JumpFalse",
	"Param", "Call", "Return",
	"IntToFloat", "FloatToInt", "IntExtend", "IntTrunc", "PtrToInt", "IntToPtr",
	"Switch", "Case",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "Opcode(?)"
}

// OperandKind is the closed discriminant for Operand.
type OperandKind int

const (
	OpNone OperandKind = iota
	OpTemp
	OpVariable
	OpGlobal
	OpIntConst
	OpFloatConst
	OpStringConst
	OpLabel
)

// Operand is the tagged Operand union from spec 3.
type Operand struct {
	Kind OperandKind
	Name string // Temp/Variable/Global/Label
	Type *types.Type

	IntValue   int64
	FloatValue float64
	StrValue   []byte
}

var NoOperand = Operand{Kind: OpNone}

func Temp(name string, t *types.Type) Operand     { return Operand{Kind: OpTemp, Name: name, Type: t} }
func Variable(name string, t *types.Type) Operand { return Operand{Kind: OpVariable, Name: name, Type: t} }
func GlobalOperand(name string, t *types.Type) Operand { return Operand{Kind: OpGlobal, Name: name, Type: t} }
func IntConst(v int64, t *types.Type) Operand     { return Operand{Kind: OpIntConst, IntValue: v, Type: t} }
func FloatConst(v float64, t *types.Type) Operand { return Operand{Kind: OpFloatConst, FloatValue: v, Type: t} }
func StringConst(b []byte) Operand                { return Operand{Kind: OpStringConst, StrValue: b} }
func LabelOperand(name string) Operand            { return Operand{Kind: OpLabel, Name: name} }

// IsNone reports whether o carries no value (used when rendering and
// when an instruction has fewer than three meaningful operands).
func (o Operand) IsNone() bool { return o.Kind == OpNone }

// String renders an operand per spec 6: `_` for none, the name for
// temp/var/global/label, decimal for an int constant, decimal-with-point
// for a float constant, and a quoted string for a string constant.
func (o Operand) String() string {
	switch o.Kind {
	case OpNone:
		return "_"
	case OpTemp, OpVariable, OpGlobal, OpLabel:
		return o.Name
	case OpIntConst:
		return strconv.FormatInt(o.IntValue, 10)
	case OpFloatConst:
		s := strconv.FormatFloat(o.FloatValue, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case OpStringConst:
		return strconv.Quote(string(o.StrValue))
	default:
		return "?"
	}
}

// Quad is one four-operand quadruple.
type Quad struct {
	Op     Opcode
	Result Operand
	Arg1   Operand
	Arg2   Operand
}

// String renders a quadruple per spec 6's IR textual form contract:
// `name:` for a bare Label quadruple, `  OPCODE result, arg1, arg2`
// otherwise, omitting None operands from the trailing list.
func (q Quad) String() string {
	if q.Op == Label {
		return q.Result.Name + ":"
	}
	parts := []string{q.Result.String()}
	if !q.Arg1.IsNone() || !q.Arg2.IsNone() {
		parts = append(parts, q.Arg1.String())
	}
	if !q.Arg2.IsNone() {
		parts = append(parts, q.Arg2.String())
	}
	return "  " + q.Op.String() + " " + strings.Join(parts, ", ")
}

// InitKind is the closed discriminant for InitValue.
type InitKind int

const (
	InitInteger InitKind = iota
	InitFloat
	InitString
	InitAddress
	InitZero
)

// InitValue is one flattened piece of a global initializer (spec 3/4.5).
type InitValue struct {
	Kind InitKind
	Size int

	IntValue    int64
	FloatValue  float64
	StringLabel string
	Symbol      string
}

func IntInit(v int64, size int) InitValue    { return InitValue{Kind: InitInteger, IntValue: v, Size: size} }
func FloatInit(v float64, size int) InitValue { return InitValue{Kind: InitFloat, FloatValue: v, Size: size} }
func StringInit(label string) InitValue      { return InitValue{Kind: InitString, StringLabel: label, Size: types.PointerSize} }
func AddressInit(sym string) InitValue       { return InitValue{Kind: InitAddress, Symbol: sym, Size: types.PointerSize} }
func ZeroInit(size int) InitValue            { return InitValue{Kind: InitZero, Size: size} }

func (v InitValue) String() string {
	switch v.Kind {
	case InitInteger:
		return fmt.Sprintf("Integer(%d,%d)", v.IntValue, v.Size)
	case InitFloat:
		return fmt.Sprintf("Float(%g,%d)", v.FloatValue, v.Size)
	case InitString:
		return fmt.Sprintf("String(%s)", v.StringLabel)
	case InitAddress:
		return fmt.Sprintf("Address(%s)", v.Symbol)
	case InitZero:
		return fmt.Sprintf("Zero(%d)", v.Size)
	default:
		return "?"
	}
}

// TotalSize sums the byte sizes of a flattened initializer sequence
// (spec 8's "sum of InitValue sizes equals declared size" property).
func TotalSize(vs []InitValue) int {
	total := 0
	for _, v := range vs {
		total += v.Size
	}
	return total
}

// Global is one global variable definition/declaration.
type Global struct {
	Name     string
	Type     *types.Type
	IsExtern bool
	Init     []InitValue
}

// Local is one named stack slot a function's quadruples reference by
// OpVariable operand name; the backend consumes Offset directly instead
// of recomputing a layout of its own.
type Local struct {
	Name   string
	Offset int // relative to rbp, always <= 0
	Size   int
}

// Function is one function's quadruple body.
type Function struct {
	Name       string
	ReturnType *types.Type
	Params     []Operand
	Locals     []Local
	Quads      []Quad
	StackSize  int
	Variadic   bool
}

func (f *Function) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
	}
	if f.Variadic {
		if len(f.Params) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("...")
	}
	fmt.Fprintf(&b, ") -> %s [stack=%d]\n", f.ReturnType, f.StackSize)
	for _, l := range f.Locals {
		fmt.Fprintf(&b, "  ; local %s @ %d (%d bytes)\n", l.Name, l.Offset, l.Size)
	}
	for _, q := range f.Quads {
		b.WriteString(q.String())
		b.WriteString("\n")
	}
	return b.String()
}

// StringLiteral is one pooled string constant (spec 3).
type StringLiteral struct {
	Label string
	Bytes []byte
}

// Program is the full IR bundle spec 3 describes.
type Program struct {
	Globals   []*Global
	Functions []*Function
	Strings   []StringLiteral
}

func (p *Program) String() string {
	var b strings.Builder
	for _, s := range p.Strings {
		fmt.Fprintf(&b, "%s: %q\n", s.Label, string(s.Bytes))
	}
	for _, g := range p.Globals {
		if g.IsExtern {
			fmt.Fprintf(&b, "extern global %s : %s\n", g.Name, g.Type)
			continue
		}
		inits := make([]string, len(g.Init))
		for i, v := range g.Init {
			inits[i] = v.String()
		}
		fmt.Fprintf(&b, "global %s : %s = [%s]\n", g.Name, g.Type, strings.Join(inits, ", "))
	}
	for _, f := range p.Functions {
		b.WriteString(f.String())
	}
	return b.String()
}
