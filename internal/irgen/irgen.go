// Package irgen lowers the analyzed AST from spec 4.4 to the three-address
// quadruple IR from spec 3: one Generator walk per translation unit,
// re-entering the analyzer's scopes by id instead of re-declaring symbols
// (spec 9's scope-revisitation note), mirroring the control-flow-by-opcode
// dispatch idiom in arc-language-core-codegen/arch/amd64/controlflow.go
// (brOp/condBrOp/switchOp/callOp) generalized from basic blocks to labels.
package irgen

import (
	"fmt"

	"github.com/cdd-lang/cddc/internal/ast"
	"github.com/cdd-lang/cddc/internal/ir"
	"github.com/cdd-lang/cddc/internal/symtab"
	"github.com/cdd-lang/cddc/internal/types"
)

// switchCase is one recorded (value, label) pair inside a switch body.
type switchCase struct {
	value int64
	label string
}

// switchInfo tracks the state of one (possibly nested) switch statement
// while its body is being lowered.
type switchInfo struct {
	cond       ir.Operand
	condType   *types.Type
	tableLabel string
	bodyLabel  string
	endLabel   string
	defLabel   string
	cases      []switchCase
}

// Generator produces one ir.Program from one analyzed translation unit. A
// Generator is single-use: construct a fresh one per Generate call.
type Generator struct {
	tab  *symtab.Table
	prog *ir.Program

	fn     *ir.Function
	locals []ir.Local
	tempN  int
	labelN int
	varSeq map[string]int

	strN       int
	externSeen map[string]bool

	breakTargets    []string
	continueTargets []string
	switchStack     []*switchInfo
}

// New creates a Generator over tab, the symbol table the analyzer
// populated; tab's scopes must still be alive (ScopeByID reachable) for
// every scope the translation unit's functions reference.
func New(tab *symtab.Table) *Generator {
	return &Generator{tab: tab}
}

// Generate lowers every top-level declaration in tu, in order.
func (g *Generator) Generate(tu *ast.TranslationUnit) *ir.Program {
	g.prog = &ir.Program{}
	g.externSeen = map[string]bool{}
	for i := range tu.Decls {
		g.lowerTopDecl(&tu.Decls[i])
	}
	return g.prog
}

func (g *Generator) lowerTopDecl(d *ast.Decl) {
	switch d.Kind {
	case ast.DeclVar:
		g.lowerGlobalVar(d)
	case ast.DeclFunc:
		if d.Body != nil {
			g.lowerFunction(d)
		}
	}
	// DeclRecord / DeclEnum / DeclTypedef: symbol-table side effects only,
	// already installed by the analyzer; no IR is emitted for them.
}

func (g *Generator) lowerGlobalVar(d *ast.Decl) {
	sym, ok := g.tab.Current().LookupLocal(d.Name)
	if !ok {
		return
	}
	if sym.Storage == symtab.Extern && d.Init == nil {
		g.ensureExternGlobal(sym)
		return
	}
	global := &ir.Global{Name: sym.GlobalLabel, Type: sym.Type}
	if d.Init != nil {
		global.Init = g.flattenInit(d.Init, sym.Type)
	} else {
		global.Init = []ir.InitValue{ir.ZeroInit(sym.Type.Size())}
	}
	g.prog.Globals = append(g.prog.Globals, global)
}

func (g *Generator) ensureExternGlobal(sym *symtab.Symbol) {
	if g.externSeen[sym.GlobalLabel] {
		return
	}
	g.externSeen[sym.GlobalLabel] = true
	g.prog.Globals = append(g.prog.Globals, &ir.Global{Name: sym.GlobalLabel, Type: sym.Type, IsExtern: true})
}

// ---- function lowering -------------------------------------------------

func (g *Generator) lowerFunction(d *ast.Decl) {
	sym, ok := g.tab.Current().LookupLocal(d.Name)
	if !ok {
		return
	}
	g.fn = &ir.Function{Name: d.Name, ReturnType: sym.Type.Return, Variadic: d.Variadic}
	g.locals = nil
	g.tempN, g.labelN = 0, 0
	g.varSeq = map[string]int{}
	g.breakTargets, g.continueTargets, g.switchStack = nil, nil, nil

	// The function's top-level compound body shares the function scope
	// itself (the analyzer never pushes a separate block scope for it),
	// so re-entering means setting current directly rather than entering
	// a fresh scope.
	scope := g.tab.ScopeByID(d.Body.ScopeID)
	prev := g.tab.Current()
	g.tab.SetCurrent(scope)

	for _, p := range d.Params {
		psym, ok := scope.LookupLocal(p.Name)
		if !ok {
			continue
		}
		name := g.declareLocal(psym)
		g.fn.Params = append(g.fn.Params, ir.Variable(name, psym.Type))
	}

	for _, item := range d.Body.Items {
		g.lowerStmt(item)
	}

	if n := len(g.fn.Quads); n == 0 || g.fn.Quads[n-1].Op != ir.Return {
		g.emit(ir.Return, ir.NoOperand, ir.NoOperand, ir.NoOperand)
	}
	g.fn.StackSize = scope.StackSize()
	g.fn.Locals = g.locals

	g.tab.SetCurrent(prev)
	g.prog.Functions = append(g.prog.Functions, g.fn)
	g.fn, g.locals = nil, nil
}

// declareLocal assigns sym a fresh IR name (suffixed on collision with an
// already-declared local of the same source name, the shadowing case spec
// 4.5 calls out) and records its stack slot.
func (g *Generator) declareLocal(sym *symtab.Symbol) string {
	name := g.freshVar(sym.Name)
	sym.IRName = name
	g.locals = append(g.locals, ir.Local{Name: name, Offset: sym.StackOffset, Size: sym.Type.Size()})
	return name
}

func (g *Generator) freshVar(base string) string {
	n := g.varSeq[base]
	g.varSeq[base]++
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, n)
}

func (g *Generator) freshTemp(t *types.Type) ir.Operand {
	name := fmt.Sprintf("t%d", g.tempN)
	g.tempN++
	return ir.Temp(name, t)
}

func (g *Generator) freshLabel(base string) string {
	name := fmt.Sprintf(".%s%d", base, g.labelN)
	g.labelN++
	return name
}

func (g *Generator) emit(op ir.Opcode, result, a1, a2 ir.Operand) {
	g.fn.Quads = append(g.fn.Quads, ir.Quad{Op: op, Result: result, Arg1: a1, Arg2: a2})
}

func (g *Generator) emitLabel(name string) {
	g.emit(ir.Label, ir.LabelOperand(name), ir.NoOperand, ir.NoOperand)
}

func (g *Generator) internString(b []byte) string {
	label := fmt.Sprintf(".LC%d", g.strN)
	g.strN++
	g.prog.Strings = append(g.prog.Strings, ir.StringLiteral{Label: label, Bytes: b})
	return label
}

// operandForSymbol resolves a looked-up symbol to the operand its reads
// use directly (spec 4.5's identifier-lowering bullet): functions and enum
// constants carry their value without indirection, everything else reads
// as the Variable/Global slot the symbol was assigned.
func (g *Generator) operandForSymbol(sym *symtab.Symbol) ir.Operand {
	switch {
	case sym.Kind == symtab.Function:
		return ir.LabelOperand(sym.GlobalLabel)
	case sym.Kind == symtab.EnumConstant:
		return ir.IntConst(sym.ConstValue, sym.Type)
	case sym.GlobalLabel != "":
		return ir.GlobalOperand(sym.GlobalLabel, sym.Type)
	default:
		return ir.Variable(sym.IRName, sym.Type)
	}
}

// emitConvert emits the opcode types.ConvertKind selects, or retypes the
// operand when no opcode applies: ConvNone/ConvAssign, and the float-width
// changes ConvFloatExtend/ConvFloatTrunc, which have no opcode of their
// own. A float temp always holds double bits, so retyping it is enough; a
// named float variable or global is read at its type's width, so it is
// first copied into a temp with Assign and the temp is retyped.
func (g *Generator) emitConvert(v ir.Operand, target *types.Type) ir.Operand {
	if v.Type == nil || types.Compatible(v.Type, target) {
		v.Type = target
		return v
	}
	op, ok := convOpcode(types.ConvertKind(v.Type, target))
	if !ok {
		if (v.Kind == ir.OpVariable || v.Kind == ir.OpGlobal) &&
			v.Type.IsFloat() && target.IsFloat() && v.Type.Size() != target.Size() {
			tmp := g.freshTemp(v.Type)
			g.emit(ir.Assign, tmp, v, ir.NoOperand)
			v = tmp
		}
		v.Type = target
		return v
	}
	res := g.freshTemp(target)
	g.emit(op, res, v, ir.NoOperand)
	return res
}

func convOpcode(k types.ConvKind) (ir.Opcode, bool) {
	switch k {
	case types.ConvIntToFloat:
		return ir.IntToFloat, true
	case types.ConvFloatToInt:
		return ir.FloatToInt, true
	case types.ConvIntExtend:
		return ir.IntExtend, true
	case types.ConvIntTrunc:
		return ir.IntTrunc, true
	case types.ConvPtrToInt:
		return ir.PtrToInt, true
	case types.ConvIntToPtr:
		return ir.IntToPtr, true
	default:
		return ir.Nop, false
	}
}

// ---- lvalue addressing -------------------------------------------------

func (g *Generator) lowerAddr(e *ast.Expr) ir.Operand {
	switch e.Kind {
	case ast.ExprIdent:
		sym, ok := g.tab.Current().Lookup(e.Name)
		if !ok {
			return g.lowerExpr(e)
		}
		src := g.operandForSymbol(sym)
		addr := g.freshTemp(types.NewPointer(e.ExprType))
		g.emit(ir.LoadAddr, addr, src, ir.NoOperand)
		return addr
	case ast.ExprUnary:
		if e.UnOp == ast.UnDeref {
			return g.lowerExpr(e.Operand)
		}
	case ast.ExprSubscript:
		base := g.lowerDecayed(e.Left)
		idx := g.lowerExpr(e.Right)
		addr := g.freshTemp(types.NewPointer(e.ExprType))
		g.emit(ir.IndexAddr, addr, base, idx)
		return addr
	case ast.ExprMember:
		var base ir.Operand
		if e.IsArrow {
			base = g.lowerExpr(e.Left)
		} else {
			base = g.lowerAddr(e.Left)
		}
		off := memberOffset(e)
		addr := g.freshTemp(types.NewPointer(e.ExprType))
		g.emit(ir.MemberAddr, addr, base, ir.IntConst(int64(off), types.NewInt(types.Long, true)))
		return addr
	}
	return g.lowerExpr(e)
}

func memberOffset(e *ast.Expr) int {
	rec := e.Left.ExprType
	if e.IsArrow {
		rec = rec.Elem
	}
	for _, m := range rec.Members {
		if m.Name == e.Member {
			return m.Offset
		}
	}
	return 0
}

// lowerDecayed lowers e as a value, applying array-to-pointer decay: the
// address already computed by LoadAddr is reinterpreted as a pointer to
// the element type, with no further instruction emitted.
func (g *Generator) lowerDecayed(e *ast.Expr) ir.Operand {
	if e.ExprType != nil && e.ExprType.IsArray() {
		addr := g.lowerAddr(e)
		addr.Type = types.NewPointer(e.ExprType.Elem)
		return addr
	}
	return g.lowerExpr(e)
}

// ---- expression lowering ------------------------------------------------

func (g *Generator) lowerExpr(e *ast.Expr) ir.Operand {
	switch e.Kind {
	case ast.ExprIntLit:
		return ir.IntConst(e.IntValue, e.ExprType)
	case ast.ExprCharLit:
		return ir.IntConst(int64(e.CharValue), e.ExprType)
	case ast.ExprFloatLit:
		return ir.FloatConst(e.FloatValue, e.ExprType)
	case ast.ExprStringLit:
		label := g.internString(e.StrValue)
		return ir.GlobalOperand(label, e.ExprType)
	case ast.ExprIdent:
		sym, ok := g.tab.Current().Lookup(e.Name)
		if !ok {
			return ir.IntConst(0, e.ExprType)
		}
		return g.operandForSymbol(sym)
	case ast.ExprUnary:
		return g.lowerUnary(e)
	case ast.ExprBinary:
		return g.lowerBinary(e)
	case ast.ExprAssign:
		return g.lowerAssign(e)
	case ast.ExprConditional:
		return g.lowerConditional(e)
	case ast.ExprCast:
		v := g.lowerDecayed(e.Operand)
		return g.emitConvert(v, e.ExprType)
	case ast.ExprSubscript:
		addr := g.lowerAddr(e)
		val := g.freshTemp(e.ExprType)
		g.emit(ir.Load, val, addr, ir.NoOperand)
		return val
	case ast.ExprCall:
		return g.lowerCall(e)
	case ast.ExprMember:
		addr := g.lowerAddr(e)
		val := g.freshTemp(e.ExprType)
		g.emit(ir.Load, val, addr, ir.NoOperand)
		return val
	case ast.ExprSizeofType:
		return ir.IntConst(e.ConstValue, e.ExprType)
	case ast.ExprSizeofExpr:
		if e.Operand.Kind == ast.ExprStringLit {
			return ir.IntConst(int64(len(e.Operand.StrValue)+1), e.ExprType)
		}
		return ir.IntConst(e.ConstValue, e.ExprType)
	case ast.ExprComma:
		g.lowerExpr(e.Left)
		return g.lowerExpr(e.Right)
	}
	return ir.NoOperand
}

func (g *Generator) lowerUnary(e *ast.Expr) ir.Operand {
	switch e.UnOp {
	case ast.UnPlus:
		return g.lowerExpr(e.Operand)
	case ast.UnMinus:
		v := g.lowerExpr(e.Operand)
		res := g.freshTemp(e.ExprType)
		if e.ExprType.IsFloat() {
			g.emit(ir.FNeg, res, v, ir.NoOperand)
		} else {
			g.emit(ir.Neg, res, v, ir.NoOperand)
		}
		return res
	case ast.UnNot:
		v := g.lowerExpr(e.Operand)
		res := g.freshTemp(e.ExprType)
		g.emit(ir.LogNot, res, v, ir.NoOperand)
		return res
	case ast.UnBitNot:
		v := g.lowerExpr(e.Operand)
		res := g.freshTemp(e.ExprType)
		g.emit(ir.BitNot, res, v, ir.NoOperand)
		return res
	case ast.UnDeref:
		ptr := g.lowerExpr(e.Operand)
		res := g.freshTemp(e.ExprType)
		g.emit(ir.Load, res, ptr, ir.NoOperand)
		return res
	case ast.UnAddr:
		return g.lowerAddr(e.Operand)
	case ast.UnPreInc, ast.UnPreDec, ast.UnPostInc, ast.UnPostDec:
		return g.lowerIncDec(e)
	}
	return ir.NoOperand
}

func (g *Generator) lowerIncDec(e *ast.Expr) ir.Operand {
	addr := g.lowerAddr(e.Operand)
	old := g.freshTemp(e.ExprType)
	g.emit(ir.Load, old, addr, ir.NoOperand)

	isDec := e.UnOp == ast.UnPreDec || e.UnOp == ast.UnPostDec
	newVal := g.freshTemp(e.ExprType)
	switch {
	case e.ExprType.IsFloat():
		op := ir.FAdd
		if isDec {
			op = ir.FSub
		}
		g.emit(op, newVal, old, ir.FloatConst(1, e.ExprType))
	case e.ExprType.IsPointer():
		op := ir.Add
		if isDec {
			op = ir.Sub
		}
		step := ir.IntConst(int64(e.ExprType.Elem.Size()), types.NewInt(types.Long, true))
		g.emit(op, newVal, old, step)
	default:
		op := ir.Add
		if isDec {
			op = ir.Sub
		}
		g.emit(op, newVal, old, ir.IntConst(1, e.ExprType))
	}
	g.emit(ir.Store, ir.NoOperand, addr, newVal)
	if e.UnOp == ast.UnPreInc || e.UnOp == ast.UnPreDec {
		return newVal
	}
	return old
}

func (g *Generator) lowerBinary(e *ast.Expr) ir.Operand {
	switch e.BinOp {
	case ast.BinLogAnd:
		return g.lowerLogical(e, true)
	case ast.BinLogOr:
		return g.lowerLogical(e, false)
	case ast.BinAdd, ast.BinSub:
		return g.lowerAdditive(e)
	}

	lt, rt := e.Left.ExprType, e.Right.ExprType
	l := g.lowerExpr(e.Left)
	r := g.lowerExpr(e.Right)
	switch e.BinOp {
	case ast.BinEq, ast.BinNotEq, ast.BinLt, ast.BinGt, ast.BinLtEq, ast.BinGtEq:
		return g.lowerCompare(e, l, r, lt, rt)
	case ast.BinShl, ast.BinShr:
		res := g.freshTemp(e.ExprType)
		op := ir.Shl
		if e.BinOp == ast.BinShr {
			op = ir.Shr
		}
		g.emit(op, res, l, r)
		return res
	default:
		return g.lowerArith(e, l, r, lt, rt)
	}
}

func (g *Generator) lowerAdditive(e *ast.Expr) ir.Operand {
	lt, rt := e.Left.ExprType, e.Right.ExprType
	switch {
	case lt.IsPointer() && rt.IsInteger():
		l := g.lowerDecayed(e.Left)
		r := g.lowerExpr(e.Right)
		return g.scalePointerOp(e, l, r, lt)
	case lt.IsInteger() && rt.IsPointer() && e.BinOp == ast.BinAdd:
		l := g.lowerExpr(e.Left)
		r := g.lowerDecayed(e.Right)
		return g.scalePointerOp(e, r, l, rt)
	case lt.IsPointer() && rt.IsPointer() && e.BinOp == ast.BinSub:
		l := g.lowerDecayed(e.Left)
		r := g.lowerDecayed(e.Right)
		diff := g.freshTemp(types.NewInt(types.Long, false))
		g.emit(ir.Sub, diff, l, r)
		elemSize := lt.Elem.Size()
		if elemSize <= 1 {
			return diff
		}
		res := g.freshTemp(e.ExprType)
		g.emit(ir.Div, res, diff, ir.IntConst(int64(elemSize), types.NewInt(types.Long, false)))
		return res
	default:
		l := g.lowerExpr(e.Left)
		r := g.lowerExpr(e.Right)
		return g.lowerArith(e, l, r, lt, rt)
	}
}

// scalePointerOp scales idx by the pointee size (spec 8 scenario 6) before
// emitting the Add/Sub quad for ptr+int/int+ptr/ptr-int.
func (g *Generator) scalePointerOp(e *ast.Expr, ptr, idx ir.Operand, ptrType *types.Type) ir.Operand {
	elemSize := ptrType.Elem.Size()
	scaled := idx
	if elemSize != 1 {
		scaled = g.freshTemp(idx.Type)
		g.emit(ir.Mul, scaled, idx, ir.IntConst(int64(elemSize), idx.Type))
	}
	res := g.freshTemp(e.ExprType)
	op := ir.Add
	if e.BinOp == ast.BinSub {
		op = ir.Sub
	}
	g.emit(op, res, ptr, scaled)
	return res
}

func (g *Generator) lowerArith(e *ast.Expr, l, r ir.Operand, lt, rt *types.Type) ir.Operand {
	if e.ExprType.IsFloat() {
		if lt.IsInteger() {
			l = g.emitConvert(l, e.ExprType)
		}
		if rt.IsInteger() {
			r = g.emitConvert(r, e.ExprType)
		}
		res := g.freshTemp(e.ExprType)
		g.emit(floatArithOp(e.BinOp), res, l, r)
		return res
	}
	res := g.freshTemp(e.ExprType)
	g.emit(intArithOp(e.BinOp), res, l, r)
	return res
}

func floatArithOp(op ast.BinOp) ir.Opcode {
	switch op {
	case ast.BinMul:
		return ir.FMul
	case ast.BinDiv:
		return ir.FDiv
	default:
		return ir.FAdd
	}
}

func intArithOp(op ast.BinOp) ir.Opcode {
	switch op {
	case ast.BinMul:
		return ir.Mul
	case ast.BinDiv:
		return ir.Div
	case ast.BinMod:
		return ir.Mod
	case ast.BinBitAnd:
		return ir.BitAnd
	case ast.BinBitOr:
		return ir.BitOr
	case ast.BinBitXor:
		return ir.BitXor
	default:
		return ir.Add
	}
}

func (g *Generator) lowerCompare(e *ast.Expr, l, r ir.Operand, lt, rt *types.Type) ir.Operand {
	useFloat := lt.IsFloat() || rt.IsFloat()
	if useFloat {
		if lt.IsInteger() {
			l = g.emitConvert(l, types.NewFloat(types.Double))
		}
		if rt.IsInteger() {
			r = g.emitConvert(r, types.NewFloat(types.Double))
		}
	}
	res := g.freshTemp(e.ExprType)
	g.emit(cmpOpcode(e.BinOp, useFloat), res, l, r)
	return res
}

func cmpOpcode(op ast.BinOp, useFloat bool) ir.Opcode {
	if useFloat {
		switch op {
		case ast.BinEq:
			return ir.FCmpEq
		case ast.BinNotEq:
			return ir.FCmpNotEq
		case ast.BinLt:
			return ir.FCmpLt
		case ast.BinGt:
			return ir.FCmpGt
		case ast.BinLtEq:
			return ir.FCmpLtEq
		default:
			return ir.FCmpGtEq
		}
	}
	switch op {
	case ast.BinEq:
		return ir.CmpEq
	case ast.BinNotEq:
		return ir.CmpNotEq
	case ast.BinLt:
		return ir.CmpLt
	case ast.BinGt:
		return ir.CmpGt
	case ast.BinLtEq:
		return ir.CmpLtEq
	default:
		return ir.CmpGtEq
	}
}

// lowerLogical implements short-circuit && (isAnd) and || lowering per
// spec 4.5: a false (&&) or true (||) operand jumps straight to the
// short-circuit label, which assigns the decided result; falling through
// both operand evaluations assigns the opposite constant.
func (g *Generator) lowerLogical(e *ast.Expr, isAnd bool) ir.Operand {
	shortLabel := g.freshLabel("Lsc")
	endLabel := g.freshLabel("Lend")
	res := g.freshTemp(types.NewInt(types.Int, false))

	branch := ir.JumpFalse
	if !isAnd {
		branch = ir.JumpTrue
	}

	lv := g.lowerExpr(e.Left)
	g.emit(branch, ir.NoOperand, lv, ir.LabelOperand(shortLabel))
	rv := g.lowerExpr(e.Right)
	g.emit(branch, ir.NoOperand, rv, ir.LabelOperand(shortLabel))

	fallThrough, shortVal := int64(1), int64(0)
	if !isAnd {
		fallThrough, shortVal = 0, 1
	}
	g.emit(ir.Assign, res, ir.IntConst(fallThrough, res.Type), ir.NoOperand)
	g.emit(ir.Jump, ir.NoOperand, ir.LabelOperand(endLabel), ir.NoOperand)
	g.emitLabel(shortLabel)
	g.emit(ir.Assign, res, ir.IntConst(shortVal, res.Type), ir.NoOperand)
	g.emitLabel(endLabel)
	return res
}

func (g *Generator) lowerAssign(e *ast.Expr) ir.Operand {
	if e.AsgOp != ast.AsgPlain {
		return g.lowerCompoundAssign(e)
	}
	addr := g.lowerAddr(e.Left)
	v := g.lowerDecayed(e.Right)
	v = g.emitConvert(v, e.Left.ExprType)
	g.emit(ir.Store, ir.NoOperand, addr, v)
	return v
}

func (g *Generator) lowerCompoundAssign(e *ast.Expr) ir.Operand {
	addr := g.lowerAddr(e.Left)
	old := g.freshTemp(e.Left.ExprType)
	g.emit(ir.Load, old, addr, ir.NoOperand)

	rhs := g.lowerExpr(e.Right)
	switch {
	case e.Left.ExprType.IsPointer() && (e.AsgOp == ast.AsgAdd || e.AsgOp == ast.AsgSub):
		rhs = g.scaleForPointer(rhs, e.Left.ExprType)
	case e.Left.ExprType.IsFloat() && e.Right.ExprType.IsInteger():
		rhs = g.emitConvert(rhs, e.Left.ExprType)
	}
	op := asgToOpcode(e.AsgOp, e.Left.ExprType.IsFloat())
	newVal := g.freshTemp(e.Left.ExprType)
	g.emit(op, newVal, old, rhs)
	g.emit(ir.Store, ir.NoOperand, addr, newVal)
	return newVal
}

func (g *Generator) scaleForPointer(idx ir.Operand, ptrType *types.Type) ir.Operand {
	elemSize := ptrType.Elem.Size()
	if elemSize == 1 {
		return idx
	}
	scaled := g.freshTemp(idx.Type)
	g.emit(ir.Mul, scaled, idx, ir.IntConst(int64(elemSize), idx.Type))
	return scaled
}

func asgToOpcode(op ast.AssignOp, isFloat bool) ir.Opcode {
	if isFloat {
		switch op {
		case ast.AsgSub:
			return ir.FSub
		case ast.AsgMul:
			return ir.FMul
		case ast.AsgDiv:
			return ir.FDiv
		default:
			return ir.FAdd
		}
	}
	switch op {
	case ast.AsgSub:
		return ir.Sub
	case ast.AsgMul:
		return ir.Mul
	case ast.AsgDiv:
		return ir.Div
	case ast.AsgMod:
		return ir.Mod
	case ast.AsgAnd:
		return ir.BitAnd
	case ast.AsgOr:
		return ir.BitOr
	case ast.AsgXor:
		return ir.BitXor
	case ast.AsgShl:
		return ir.Shl
	case ast.AsgShr:
		return ir.Shr
	default:
		return ir.Add
	}
}

func (g *Generator) lowerConditional(e *ast.Expr) ir.Operand {
	falseLabel := g.freshLabel("Lcondf")
	endLabel := g.freshLabel("Lcondend")
	res := g.freshTemp(e.ExprType)

	cond := g.lowerExpr(e.Cond)
	g.emit(ir.JumpFalse, ir.NoOperand, cond, ir.LabelOperand(falseLabel))
	tv := g.emitConvert(g.lowerExpr(e.Then), e.ExprType)
	g.emit(ir.Assign, res, tv, ir.NoOperand)
	g.emit(ir.Jump, ir.NoOperand, ir.LabelOperand(endLabel), ir.NoOperand)
	g.emitLabel(falseLabel)
	ev := g.emitConvert(g.lowerExpr(e.Else), e.ExprType)
	g.emit(ir.Assign, res, ev, ir.NoOperand)
	g.emitLabel(endLabel)
	return res
}

func (g *Generator) lowerCall(e *ast.Expr) ir.Operand {
	args := make([]ir.Operand, len(e.Args))
	for i, a := range e.Args {
		args[i] = g.emitConvert(g.lowerDecayed(a), a.ExprType)
	}
	callee := g.lowerDecayed(e.Left)
	for i := len(args) - 1; i >= 0; i-- {
		g.emit(ir.Param, ir.NoOperand, args[i], ir.NoOperand)
	}
	argc := ir.IntConst(int64(len(args)), types.NewInt(types.Int, false))
	if e.ExprType.IsVoid() {
		g.emit(ir.Call, ir.NoOperand, callee, argc)
		return ir.NoOperand
	}
	res := g.freshTemp(e.ExprType)
	g.emit(ir.Call, res, callee, argc)
	return res
}

// ---- statement lowering -------------------------------------------------

func (g *Generator) lowerStmt(s *ast.Stmt) {
	switch s.Kind {
	case ast.StmtExpr:
		if s.Expr != nil {
			g.lowerExpr(s.Expr)
		}
	case ast.StmtCompound:
		g.lowerCompound(s)
	case ast.StmtDecl:
		for _, d := range s.Decls {
			if d.Kind == ast.DeclVar {
				g.lowerLocalDecl(d)
			}
			// Record/enum/typedef declarations in statement position are
			// symbol-table side effects only, same as at top level.
		}
	case ast.StmtIf:
		g.lowerIf(s)
	case ast.StmtWhile:
		g.lowerWhile(s)
	case ast.StmtDoWhile:
		g.lowerDoWhile(s)
	case ast.StmtFor:
		g.lowerFor(s)
	case ast.StmtSwitch:
		g.lowerSwitch(s)
	case ast.StmtCase:
		g.lowerCase(s)
	case ast.StmtDefault:
		g.lowerDefault(s)
	case ast.StmtBreak:
		if n := len(g.breakTargets); n > 0 {
			g.emit(ir.Jump, ir.NoOperand, ir.LabelOperand(g.breakTargets[n-1]), ir.NoOperand)
		}
	case ast.StmtContinue:
		if n := len(g.continueTargets); n > 0 {
			g.emit(ir.Jump, ir.NoOperand, ir.LabelOperand(g.continueTargets[n-1]), ir.NoOperand)
		}
	case ast.StmtReturn:
		g.lowerReturn(s)
	case ast.StmtGoto:
		g.emit(ir.Jump, ir.NoOperand, ir.LabelOperand(s.Label), ir.NoOperand)
	case ast.StmtLabel:
		g.emitLabel(s.Label)
	}
}

func (g *Generator) lowerCompound(s *ast.Stmt) {
	scope := g.tab.ScopeByID(s.ScopeID)
	prev := g.tab.Current()
	g.tab.SetCurrent(scope)
	for _, item := range s.Items {
		g.lowerStmt(item)
	}
	g.tab.SetCurrent(prev)
}

func (g *Generator) lowerLocalDecl(d *ast.Decl) {
	switch d.Storage {
	case "static":
		sym, ok := g.tab.Current().Lookup(d.Name)
		if !ok {
			return
		}
		global := &ir.Global{Name: sym.GlobalLabel, Type: sym.Type}
		if d.Init != nil {
			global.Init = g.flattenInit(d.Init, sym.Type)
		} else {
			global.Init = []ir.InitValue{ir.ZeroInit(sym.Type.Size())}
		}
		g.prog.Globals = append(g.prog.Globals, global)
		return
	case "extern":
		if sym, ok := g.tab.Current().Lookup(d.Name); ok {
			g.ensureExternGlobal(sym)
		}
		return
	}

	sym, ok := g.tab.Current().LookupLocal(d.Name)
	if !ok {
		return
	}
	name := g.declareLocal(sym)
	if d.Init == nil {
		return
	}
	addr := g.freshTemp(types.NewPointer(sym.Type))
	g.emit(ir.LoadAddr, addr, ir.Variable(name, sym.Type), ir.NoOperand)
	g.lowerLocalInit(addr, d.Init, sym.Type)
}

// lowerLocalInit stores a (possibly braced) initializer into the object
// at addr; unlike flattenInit's static byte-level flattening, this emits
// runtime Store quads, recursing through IndexAddr/MemberAddr for nested
// aggregates and leaving any trailing elements a brace list does not
// cover as-is (the stack slot's prior contents, not explicitly zeroed). A
// string initializer for a char array is the exception: it also stores
// the zero padding.
func (g *Generator) lowerLocalInit(addr ir.Operand, e *ast.Expr, target *types.Type) {
	if e.Kind == ast.ExprStringLit && target.IsArray() {
		// A string initializer for a char array copies the bytes into
		// the slot, one store each, mirroring flattenStringArray's
		// byte/terminator/padding layout; the analyzer already retyped
		// the literal to char*, so the scalar branch below would store
		// the pooled string's address instead of its contents.
		charT := target.Elem
		for i := 0; i < target.Length; i++ {
			var b int64
			if i < len(e.StrValue) {
				b = int64(e.StrValue[i])
			}
			elemAddr := g.freshTemp(types.NewPointer(charT))
			g.emit(ir.IndexAddr, elemAddr, addr, ir.IntConst(int64(i), types.NewInt(types.Long, false)))
			g.emit(ir.Store, ir.NoOperand, elemAddr, ir.IntConst(b, charT))
		}
		return
	}
	if e.Kind != ast.ExprInitList {
		v := g.emitConvert(g.lowerDecayed(e), target)
		g.emit(ir.Store, ir.NoOperand, addr, v)
		return
	}
	switch {
	case target.IsArray():
		for i, el := range e.Elems {
			idx := ir.IntConst(int64(i), types.NewInt(types.Long, false))
			elemAddr := g.freshTemp(types.NewPointer(target.Elem))
			g.emit(ir.IndexAddr, elemAddr, addr, idx)
			g.lowerLocalInit(elemAddr, el, target.Elem)
		}
	case target.IsRecord() && target.IsUnion:
		if len(e.Elems) > 0 && len(target.Members) > 0 {
			m := target.Members[0]
			memberAddr := g.freshTemp(types.NewPointer(m.Type))
			g.emit(ir.MemberAddr, memberAddr, addr, ir.IntConst(int64(m.Offset), types.NewInt(types.Long, true)))
			g.lowerLocalInit(memberAddr, e.Elems[0], m.Type)
		}
	case target.IsRecord():
		for i, m := range target.Members {
			if i >= len(e.Elems) {
				break
			}
			memberAddr := g.freshTemp(types.NewPointer(m.Type))
			g.emit(ir.MemberAddr, memberAddr, addr, ir.IntConst(int64(m.Offset), types.NewInt(types.Long, true)))
			g.lowerLocalInit(memberAddr, e.Elems[i], m.Type)
		}
	case len(e.Elems) == 1:
		g.lowerLocalInit(addr, e.Elems[0], target)
	}
}

func (g *Generator) lowerIf(s *ast.Stmt) {
	cond := g.lowerExpr(s.Cond)
	if s.Else == nil {
		endLabel := g.freshLabel("Lifend")
		g.emit(ir.JumpFalse, ir.NoOperand, cond, ir.LabelOperand(endLabel))
		g.lowerStmt(s.Then)
		g.emitLabel(endLabel)
		return
	}
	elseLabel := g.freshLabel("Lelse")
	endLabel := g.freshLabel("Lifend")
	g.emit(ir.JumpFalse, ir.NoOperand, cond, ir.LabelOperand(elseLabel))
	g.lowerStmt(s.Then)
	g.emit(ir.Jump, ir.NoOperand, ir.LabelOperand(endLabel), ir.NoOperand)
	g.emitLabel(elseLabel)
	g.lowerStmt(s.Else)
	g.emitLabel(endLabel)
}

func (g *Generator) lowerWhile(s *ast.Stmt) {
	startLabel := g.freshLabel("Lwhile")
	endLabel := g.freshLabel("Lwhileend")
	g.pushLoop(endLabel, startLabel)

	g.emitLabel(startLabel)
	cond := g.lowerExpr(s.Cond)
	g.emit(ir.JumpFalse, ir.NoOperand, cond, ir.LabelOperand(endLabel))
	g.lowerStmt(s.Body)
	g.emit(ir.Jump, ir.NoOperand, ir.LabelOperand(startLabel), ir.NoOperand)
	g.emitLabel(endLabel)

	g.popLoop()
}

func (g *Generator) lowerDoWhile(s *ast.Stmt) {
	startLabel := g.freshLabel("Ldo")
	condLabel := g.freshLabel("Ldocond")
	endLabel := g.freshLabel("Ldoend")
	g.pushLoop(endLabel, condLabel)

	g.emitLabel(startLabel)
	g.lowerStmt(s.Body)
	g.emitLabel(condLabel)
	cond := g.lowerExpr(s.Cond)
	g.emit(ir.JumpTrue, ir.NoOperand, cond, ir.LabelOperand(startLabel))
	g.emitLabel(endLabel)

	g.popLoop()
}

func (g *Generator) lowerFor(s *ast.Stmt) {
	scope := g.tab.ScopeByID(s.ScopeID)
	prev := g.tab.Current()
	g.tab.SetCurrent(scope)

	if s.ForInit != nil {
		g.lowerStmt(s.ForInit)
	}
	condLabel := g.freshLabel("Lforcond")
	incLabel := g.freshLabel("Lforinc")
	endLabel := g.freshLabel("Lforend")
	g.pushLoop(endLabel, incLabel)

	g.emitLabel(condLabel)
	if s.ForCond != nil {
		cond := g.lowerExpr(s.ForCond)
		g.emit(ir.JumpFalse, ir.NoOperand, cond, ir.LabelOperand(endLabel))
	}
	g.lowerStmt(s.Body)
	g.emitLabel(incLabel)
	if s.ForPost != nil {
		g.lowerExpr(s.ForPost)
	}
	g.emit(ir.Jump, ir.NoOperand, ir.LabelOperand(condLabel), ir.NoOperand)
	g.emitLabel(endLabel)

	g.popLoop()
	g.tab.SetCurrent(prev)
}

func (g *Generator) pushLoop(breakLabel, continueLabel string) {
	g.breakTargets = append(g.breakTargets, breakLabel)
	g.continueTargets = append(g.continueTargets, continueLabel)
}

func (g *Generator) popLoop() {
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
	g.continueTargets = g.continueTargets[:len(g.continueTargets)-1]
}

func (g *Generator) lowerSwitch(s *ast.Stmt) {
	cond := g.lowerExpr(s.SwitchCond)
	info := &switchInfo{
		cond:       cond,
		condType:   s.SwitchCond.ExprType,
		tableLabel: g.freshLabel("Lswtab"),
		bodyLabel:  g.freshLabel("Lswbody"),
		endLabel:   g.freshLabel("Lswend"),
	}
	info.defLabel = info.endLabel
	g.switchStack = append(g.switchStack, info)
	g.breakTargets = append(g.breakTargets, info.endLabel)

	g.emit(ir.Jump, ir.NoOperand, ir.LabelOperand(info.tableLabel), ir.NoOperand)
	g.emitLabel(info.bodyLabel)
	g.lowerStmt(s.SwitchBody)
	g.emit(ir.Jump, ir.NoOperand, ir.LabelOperand(info.endLabel), ir.NoOperand)

	g.emitLabel(info.tableLabel)
	for _, c := range info.cases {
		cmp := g.freshTemp(types.NewInt(types.Int, false))
		g.emit(ir.CmpEq, cmp, info.cond, ir.IntConst(c.value, info.condType))
		g.emit(ir.JumpTrue, ir.NoOperand, cmp, ir.LabelOperand(c.label))
	}
	g.emit(ir.Jump, ir.NoOperand, ir.LabelOperand(info.defLabel), ir.NoOperand)
	g.emitLabel(info.endLabel)

	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
	g.switchStack = g.switchStack[:len(g.switchStack)-1]
}

func (g *Generator) lowerCase(s *ast.Stmt) {
	if len(g.switchStack) == 0 {
		return
	}
	info := g.switchStack[len(g.switchStack)-1]
	label := g.freshLabel("Lcase")
	v, _ := constInt(s.CaseValue)
	info.cases = append(info.cases, switchCase{value: v, label: label})
	g.emitLabel(label)
}

func (g *Generator) lowerDefault(s *ast.Stmt) {
	if len(g.switchStack) == 0 {
		return
	}
	info := g.switchStack[len(g.switchStack)-1]
	label := g.freshLabel("Ldefault")
	info.defLabel = label
	g.emitLabel(label)
}

func (g *Generator) lowerReturn(s *ast.Stmt) {
	if s.Value == nil {
		g.emit(ir.Return, ir.NoOperand, ir.NoOperand, ir.NoOperand)
		return
	}
	v := g.emitConvert(g.lowerDecayed(s.Value), g.fn.ReturnType)
	g.emit(ir.Return, ir.NoOperand, v, ir.NoOperand)
}

// ---- global initializer flattening --------------------------------------

// flattenInit implements spec 4.5's initializer-collection routine,
// producing the flat InitValue sequence a global (or static local, see
// lowerLocalDecl) is emitted with.
func (g *Generator) flattenInit(e *ast.Expr, target *types.Type) []ir.InitValue {
	switch {
	case e.Kind == ast.ExprStringLit && target.IsArray():
		return flattenStringArray(e.StrValue, target.Length)
	case e.Kind == ast.ExprStringLit && target.IsPointer():
		return []ir.InitValue{ir.StringInit(g.internString(e.StrValue))}
	case e.Kind == ast.ExprInitList && target.IsArray():
		return g.flattenArrayInit(e.Elems, target)
	case e.Kind == ast.ExprInitList && target.IsRecord() && target.IsUnion:
		return g.flattenUnionInit(e.Elems, target)
	case e.Kind == ast.ExprInitList && target.IsRecord():
		return g.flattenRecordInit(e.Elems, target)
	case e.Kind == ast.ExprInitList && len(e.Elems) == 1:
		return g.flattenInit(e.Elems[0], target)
	case e.Kind == ast.ExprCast:
		return g.flattenInit(e.Operand, target)
	}

	if e.Kind == ast.ExprUnary && e.UnOp == ast.UnAddr {
		if name, ok := g.addressableName(e.Operand); ok {
			return []ir.InitValue{ir.AddressInit(name)}
		}
	}
	if e.Kind == ast.ExprIdent {
		if sym, ok := g.tab.Current().Lookup(e.Name); ok {
			switch {
			case sym.Kind == symtab.EnumConstant:
				return []ir.InitValue{ir.IntInit(sym.ConstValue, target.Size())}
			case sym.GlobalLabel != "":
				return []ir.InitValue{ir.AddressInit(sym.GlobalLabel)}
			}
		}
	}

	switch {
	case target.IsFloat():
		if v, ok := constFloat(e); ok {
			return []ir.InitValue{ir.FloatInit(v, target.Size())}
		}
	case target.IsInteger() || target.IsEnum() || target.IsPointer():
		if v, ok := constInt(e); ok {
			return []ir.InitValue{ir.IntInit(v, target.Size())}
		}
	}
	return []ir.InitValue{ir.ZeroInit(target.Size())}
}

func (g *Generator) addressableName(e *ast.Expr) (string, bool) {
	if e.Kind != ast.ExprIdent {
		return "", false
	}
	sym, ok := g.tab.Current().Lookup(e.Name)
	if !ok || sym.GlobalLabel == "" {
		return "", false
	}
	return sym.GlobalLabel, true
}

func flattenStringArray(b []byte, length int) []ir.InitValue {
	var out []ir.InitValue
	for i := 0; i < length; i++ {
		switch {
		case i < len(b):
			out = append(out, ir.IntInit(int64(b[i]), 1))
		case i == len(b):
			out = append(out, ir.IntInit(0, 1)) // the literal's own NUL terminator
		default:
			out = append(out, ir.ZeroInit(1)) // declared length beyond the literal
		}
	}
	return out
}

func (g *Generator) flattenArrayInit(elems []*ast.Expr, target *types.Type) []ir.InitValue {
	var out []ir.InitValue
	for _, el := range elems {
		out = append(out, g.flattenInit(el, target.Elem)...)
	}
	for i := len(elems); i < target.Length; i++ {
		out = append(out, ir.ZeroInit(target.Elem.Size()))
	}
	return out
}

func (g *Generator) flattenRecordInit(elems []*ast.Expr, target *types.Type) []ir.InitValue {
	var out []ir.InitValue
	offset := 0
	for i, m := range target.Members {
		if m.Offset > offset {
			out = append(out, ir.ZeroInit(m.Offset-offset))
		}
		if i < len(elems) {
			out = append(out, g.flattenInit(elems[i], m.Type)...)
		} else {
			out = append(out, ir.ZeroInit(m.Type.Size()))
		}
		offset = m.Offset + m.Type.Size()
	}
	if rem := target.Size() - offset; rem > 0 {
		out = append(out, ir.ZeroInit(rem))
	}
	return out
}

func (g *Generator) flattenUnionInit(elems []*ast.Expr, target *types.Type) []ir.InitValue {
	if len(elems) > 0 && len(target.Members) > 0 {
		first := target.Members[0]
		out := g.flattenInit(elems[0], first.Type)
		if rem := target.Size() - first.Type.Size(); rem > 0 {
			out = append(out, ir.ZeroInit(rem))
		}
		return out
	}
	return []ir.InitValue{ir.ZeroInit(target.Size())}
}

// ---- compile-time constant evaluation for initializers -------------------

// constInt and constFloat fold the narrow constant-expression subset
// spec 4.5's initializer flattening needs. They are independent of the
// analyzer's own constant folding (sema.go's foldIntBinary), since float
// literals never carry IsConst there, and the generator needs a value for
// negated float globals (`double x = -1.5;`) regardless.
func constInt(e *ast.Expr) (int64, bool) {
	switch e.Kind {
	case ast.ExprIntLit:
		return e.IntValue, true
	case ast.ExprCharLit:
		return int64(e.CharValue), true
	case ast.ExprUnary:
		if v, ok := constInt(e.Operand); ok {
			switch e.UnOp {
			case ast.UnMinus:
				return -v, true
			case ast.UnPlus:
				return v, true
			case ast.UnBitNot:
				return ^v, true
			}
		}
		return 0, false
	case ast.ExprCast:
		return constInt(e.Operand)
	case ast.ExprBinary:
		l, ok1 := constInt(e.Left)
		r, ok2 := constInt(e.Right)
		if ok1 && ok2 {
			return evalIntBinOp(e.BinOp, l, r)
		}
		return 0, false
	}
	if e.IsConst && e.ExprType != nil && (e.ExprType.IsInteger() || e.ExprType.IsEnum()) {
		return e.ConstValue, true
	}
	return 0, false
}

func evalIntBinOp(op ast.BinOp, l, r int64) (int64, bool) {
	switch op {
	case ast.BinAdd:
		return l + r, true
	case ast.BinSub:
		return l - r, true
	case ast.BinMul:
		return l * r, true
	case ast.BinDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case ast.BinMod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case ast.BinBitAnd:
		return l & r, true
	case ast.BinBitOr:
		return l | r, true
	case ast.BinBitXor:
		return l ^ r, true
	case ast.BinShl:
		return l << uint64(r), true
	case ast.BinShr:
		return l >> uint64(r), true
	default:
		return 0, false
	}
}

func constFloat(e *ast.Expr) (float64, bool) {
	switch e.Kind {
	case ast.ExprFloatLit:
		return e.FloatValue, true
	case ast.ExprIntLit:
		return float64(e.IntValue), true
	case ast.ExprUnary:
		if v, ok := constFloat(e.Operand); ok {
			if e.UnOp == ast.UnMinus {
				return -v, true
			}
			return v, true
		}
		return 0, false
	case ast.ExprCast:
		return constFloat(e.Operand)
	case ast.ExprBinary:
		// An all-integer binary folds in integer arithmetic first (so
		// `1/2` is 0, not 0.5) and only then converts.
		if e.ExprType != nil && e.ExprType.IsInteger() {
			if v, ok := constInt(e); ok {
				return float64(v), true
			}
			return 0, false
		}
		l, ok1 := constFloat(e.Left)
		r, ok2 := constFloat(e.Right)
		if ok1 && ok2 {
			switch e.BinOp {
			case ast.BinAdd:
				return l + r, true
			case ast.BinSub:
				return l - r, true
			case ast.BinMul:
				return l * r, true
			case ast.BinDiv:
				if r != 0 {
					return l / r, true
				}
			}
		}
		return 0, false
	}
	if v, ok := constInt(e); ok {
		return float64(v), true
	}
	return 0, false
}
