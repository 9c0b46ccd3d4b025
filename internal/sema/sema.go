// Package sema is the semantic analyzer from spec 4.4: name resolution,
// type checking with implicit-conversion validation, constant-expression
// evaluation, and diagnostic accumulation over the AST the parser built.
// Scope and label bookkeeping (funcScope-style state threaded through a
// single analyzer value rather than a stack of visitor objects) follows
// nspcc-dev-neo-go's pkg/compiler codegen.
package sema

import (
	"github.com/cdd-lang/cddc/internal/ast"
	"github.com/cdd-lang/cddc/internal/source"
	"github.com/cdd-lang/cddc/internal/symtab"
	"github.com/cdd-lang/cddc/internal/types"
)

// Analyzer walks a translation unit once, left to right, mutating every
// ast.Expr/Decl node's Resolved* fields in place and accumulating
// diagnostics; it never aborts on error (spec 7's "collect everything
// wrong, then stop before code generation").
type Analyzer struct {
	Tab   *symtab.Table
	diags source.Collector

	loopDepth   int
	switchDepth int
	switchCases map[int64]bool
	sawDefault  bool

	funcReturn  *types.Type
	funcName    string
	funcLabels  map[string]source.Position
	funcGotos   []gotoRef
	staticCount int
}

// gotoRef records one goto statement for end-of-function target
// checking, once every label in the body has been seen.
type gotoRef struct {
	label string
	pos   source.Position
}

func New() *Analyzer {
	return &Analyzer{Tab: symtab.New()}
}

func (a *Analyzer) Diagnostics() []source.Diagnostic { return a.diags.Diagnostics() }
func (a *Analyzer) HasErrors() bool                  { return a.diags.HasErrors() }

func toSymPos(p source.Position) symtab.Position {
	return symtab.Position{File: p.File, Line: p.Line, Column: p.Column}
}

// Analyze type-checks every top-level declaration in order.
func (a *Analyzer) Analyze(tu *ast.TranslationUnit) {
	for i := range tu.Decls {
		a.analyzeTopDecl(&tu.Decls[i])
	}
}

// resolveNamed flattens any NamedKind leaf inside t (through pointer and
// array wrapping) to the typedef's underlying type, the pass every
// declarator's resolved type goes through before it is used for
// anything else.
func (a *Analyzer) resolveNamed(t *types.Type, pos source.Position) *types.Type {
	if t == nil {
		return t
	}
	switch t.Kind {
	case types.PointerKind:
		return types.NewPointer(a.resolveNamed(t.Elem, pos)).WithQualifiers(t.Qual)
	case types.ArrayKind:
		r := types.NewArray(a.resolveNamed(t.Elem, pos), t.Length)
		return r.WithQualifiers(t.Qual)
	case types.NamedKind:
		sym, ok := a.Tab.Current().Lookup(t.Tag)
		if !ok || sym.Kind != symtab.Typedef {
			a.diags.Errorf(pos, source.UndeclaredIdentifier, "unknown type name %q", t.Tag)
			return types.NewInt(types.Int, false).WithQualifiers(t.Qual)
		}
		return sym.Type.WithQualifiers(t.Qual)
	case types.RecordKind:
		// Every occurrence of `struct/union Tag` outside its own defining
		// declaration parses to a fresh placeholder (spec 4.4); canonicalize
		// it against the single tag namespace so every reference shares one
		// Type object (and thus one Members/offset layout) with whichever
		// declaration completes the tag.
		if t.Tag == "" {
			return t
		}
		canon := a.Tab.DeclareTag(t.Tag, t)
		if t.Qual != (types.Qualifiers{}) {
			return canon.WithQualifiers(t.Qual)
		}
		return canon
	case types.EnumKind:
		if t.EnumTag == "" {
			return t
		}
		canon := a.Tab.DeclareTag(t.EnumTag, t)
		if t.Qual != (types.Qualifiers{}) {
			return canon.WithQualifiers(t.Qual)
		}
		return canon
	default:
		return t
	}
}

// ---- declarations ----------------------------------------------------

func (a *Analyzer) analyzeTopDecl(d *ast.Decl) {
	switch d.Kind {
	case ast.DeclRecord:
		a.analyzeRecordDecl(d)
	case ast.DeclEnum:
		a.analyzeEnumDecl(d)
	case ast.DeclTypedef:
		a.analyzeTypedefDecl(d)
	case ast.DeclVar:
		a.analyzeVarDecl(d, true)
	case ast.DeclFunc:
		a.analyzeFuncDecl(d)
	}
}

func (a *Analyzer) analyzeRecordDecl(d *ast.Decl) {
	var tagType *types.Type
	if d.Tag != "" {
		tagType = a.Tab.DeclareTag(d.Tag, types.NewRecordTag(d.Tag, d.IsUnion))
	} else {
		tagType = types.NewRecordTag("", d.IsUnion)
	}
	if d.Fields == nil {
		d.ResolvedType = tagType
		return
	}
	if tagType.Complete {
		a.diags.Errorf(d.Pos, source.Redefinition, "redefinition of %s %s", recordWord(d.IsUnion), d.Tag)
		d.ResolvedType = tagType
		return
	}
	names := make([]string, len(d.Fields))
	fieldTypes := make([]*types.Type, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
		fieldTypes[i] = a.resolveNamed(f.ResolvedType, f.Pos)
		f.ResolvedType = fieldTypes[i]
	}
	tagType.Members = types.LayoutMembers(names, fieldTypes, d.IsUnion)
	tagType.Complete = true
	d.ResolvedType = tagType
}

func recordWord(isUnion bool) string {
	if isUnion {
		return "union"
	}
	return "struct"
}

func (a *Analyzer) analyzeEnumDecl(d *ast.Decl) {
	var tagType *types.Type
	if d.EnumTag != "" {
		tagType = a.Tab.DeclareTag(d.EnumTag, types.NewEnumTag(d.EnumTag))
	} else {
		tagType = types.NewEnumTag("")
	}
	next := int64(0)
	for _, ec := range d.Enumerators {
		val := next
		if ec.Value != nil {
			v, ok := a.evalConstInt(ec.Value)
			if !ok {
				a.diags.Errorf(ec.Value.Pos, source.ConstantEval, "enumerator value must be a constant expression")
			}
			val = v
		}
		next = val + 1
		if _, exists := tagType.Enumerators[ec.Name]; exists {
			a.diags.Errorf(ec.Pos, source.Redefinition, "redefinition of enumerator %q", ec.Name)
			continue
		}
		tagType.Enumerators[ec.Name] = val
		tagType.EnumeratorOrd = append(tagType.EnumeratorOrd, ec.Name)
		ec.ResolvedType = tagType
		sym := &symtab.Symbol{Name: ec.Name, Kind: symtab.EnumConstant, Type: tagType, Pos: toSymPos(ec.Pos), Defined: true, ConstValue: val}
		if !a.Tab.Current().Declare(sym) {
			a.diags.Errorf(ec.Pos, source.Redefinition, "redefinition of %q", ec.Name)
		}
	}
	tagType.Complete = true
	d.ResolvedType = tagType
}

func (a *Analyzer) analyzeTypedefDecl(d *ast.Decl) {
	ty := a.resolveNamed(d.ResolvedType, d.Pos)
	d.ResolvedType = ty
	sym := &symtab.Symbol{Name: d.Name, Kind: symtab.Typedef, Type: ty, Pos: toSymPos(d.Pos), Defined: true}
	if !a.Tab.Current().Declare(sym) {
		a.diags.Errorf(d.Pos, source.Redefinition, "redefinition of %q", d.Name)
	}
}

func (a *Analyzer) storageOf(s string) symtab.Storage {
	switch s {
	case "static":
		return symtab.Static
	case "extern":
		return symtab.Extern
	case "register":
		return symtab.Register
	case "auto":
		return symtab.Auto
	default:
		return symtab.NoStorage
	}
}

func (a *Analyzer) analyzeVarDecl(d *ast.Decl, isGlobal bool) {
	ty := a.resolveNamed(d.ResolvedType, d.Pos)
	d.ResolvedType = ty
	storage := a.storageOf(d.Storage)

	sym := &symtab.Symbol{Name: d.Name, Kind: symtab.Variable, Type: ty, Storage: storage, Pos: toSymPos(d.Pos)}

	// The initializer runs first: array-size inference (`int a[] = {1,2}`,
	// `char s[] = "hi"`) mutates ty.Length, and the stack slot must be
	// sized after that, not before.
	if d.Init != nil {
		a.analyzeInitializer(d.Init, ty, isGlobal)
		sym.Defined = true
	} else {
		sym.Defined = storage != symtab.Extern
	}

	scope := a.Tab.Current()
	switch {
	case isGlobal || storage == symtab.Extern:
		sym.GlobalLabel = d.Name
	case storage == symtab.Static:
		a.staticCount++
		sym.GlobalLabel = a.funcName + "." + d.Name + ".static"
	default:
		sym.StackOffset = scope.AllocateLocal(ty.Size(), ty.Align())
	}

	if !scope.Declare(sym) {
		a.diags.Errorf(d.Pos, source.Redefinition, "redefinition of %q", d.Name)
	}
}

func (a *Analyzer) analyzeFuncDecl(d *ast.Decl) {
	retType := a.resolveNamed(d.ResolvedType, d.Pos)
	paramTypes := make([]*types.Type, len(d.Params))
	for i, p := range d.Params {
		p.ResolvedType = a.resolveNamed(p.ResolvedType, p.Pos)
		paramTypes[i] = p.ResolvedType
	}
	fnType := types.NewFunction(retType, paramTypes, d.Variadic)
	d.ResolvedType = fnType

	global := a.Tab.Current()
	existing, hadExisting := global.LookupLocal(d.Name)
	if hadExisting {
		if !types.Compatible(existing.Type, fnType) {
			a.diags.Errorf(d.Pos, source.TypeMismatch, "conflicting types for %q", d.Name)
		}
		if existing.Defined && d.Body != nil {
			a.diags.Errorf(d.Pos, source.Redefinition, "redefinition of function %q", d.Name)
			return
		}
	} else {
		sym := &symtab.Symbol{Name: d.Name, Kind: symtab.Function, Type: fnType, Storage: a.storageOf(d.Storage), Pos: toSymPos(d.Pos), GlobalLabel: d.Name}
		global.Declare(sym)
		existing = sym
	}

	if d.Body == nil {
		return
	}
	existing.Defined = true

	prevReturn, prevName, prevLabels, prevGotos := a.funcReturn, a.funcName, a.funcLabels, a.funcGotos
	a.funcReturn, a.funcName, a.funcLabels, a.funcGotos = retType, d.Name, map[string]source.Position{}, nil

	scope := a.Tab.EnterScope(symtab.FunctionScope)
	scope.Func = &symtab.FuncContext{Name: d.Name, ReturnType: retType}
	for _, p := range d.Params {
		off := scope.AllocateLocal(p.ResolvedType.Size(), p.ResolvedType.Align())
		psym := &symtab.Symbol{Name: p.Name, Kind: symtab.Parameter, Type: p.ResolvedType, Pos: toSymPos(p.Pos), StackOffset: off, Defined: true}
		if !scope.Declare(psym) {
			a.diags.Errorf(p.Pos, source.Redefinition, "redefinition of parameter %q", p.Name)
		}
	}

	d.Body.ScopeID = scope.ID()
	for _, item := range d.Body.Items {
		a.analyzeStmt(item)
	}
	a.Tab.ExitScope()

	// Forward gotos can only be checked once the whole body has been
	// walked and every label recorded.
	for _, g := range a.funcGotos {
		if _, ok := a.funcLabels[g.label]; !ok {
			a.diags.Errorf(g.pos, source.UndeclaredIdentifier, "use of undeclared label %q", g.label)
		}
	}

	a.funcReturn, a.funcName, a.funcLabels, a.funcGotos = prevReturn, prevName, prevLabels, prevGotos
}

// ---- statements -----------------------------------------------------

func (a *Analyzer) analyzeStmt(s *ast.Stmt) {
	switch s.Kind {
	case ast.StmtExpr:
		if s.Expr != nil {
			a.analyzeExpr(s.Expr)
		}
	case ast.StmtCompound:
		scope := a.Tab.EnterScope(symtab.BlockScope)
		s.ScopeID = scope.ID()
		for _, item := range s.Items {
			a.analyzeStmt(item)
		}
		a.Tab.ExitScope()
	case ast.StmtDecl:
		for _, d := range s.Decls {
			switch d.Kind {
			case ast.DeclRecord:
				a.analyzeRecordDecl(d)
			case ast.DeclEnum:
				a.analyzeEnumDecl(d)
			case ast.DeclTypedef:
				a.analyzeTypedefDecl(d)
			case ast.DeclFunc:
				a.analyzeFuncDecl(d)
			default:
				a.analyzeVarDecl(d, false)
			}
		}
	case ast.StmtIf:
		a.requireScalar(a.analyzeExpr(s.Cond), s.Cond.Pos)
		a.analyzeStmt(s.Then)
		if s.Else != nil {
			a.analyzeStmt(s.Else)
		}
	case ast.StmtWhile, ast.StmtDoWhile:
		a.requireScalar(a.analyzeExpr(s.Cond), s.Cond.Pos)
		a.loopDepth++
		a.analyzeStmt(s.Body)
		a.loopDepth--
	case ast.StmtFor:
		scope := a.Tab.EnterScope(symtab.BlockScope)
		s.ScopeID = scope.ID()
		if s.ForInit != nil {
			a.analyzeStmt(s.ForInit)
		}
		if s.ForCond != nil {
			a.requireScalar(a.analyzeExpr(s.ForCond), s.ForCond.Pos)
		}
		if s.ForPost != nil {
			a.analyzeExpr(s.ForPost)
		}
		a.loopDepth++
		a.analyzeStmt(s.Body)
		a.loopDepth--
		a.Tab.ExitScope()
	case ast.StmtSwitch:
		condType := a.analyzeExpr(s.SwitchCond)
		if !condType.IsInteger() && !condType.IsEnum() {
			a.diags.Errorf(s.SwitchCond.Pos, source.TypeMismatch, "switch condition must have integer type")
		}
		prevCases, prevDefault := a.switchCases, a.sawDefault
		a.switchCases, a.sawDefault = map[int64]bool{}, false
		a.switchDepth++
		a.analyzeStmt(s.SwitchBody)
		a.switchDepth--
		a.switchCases, a.sawDefault = prevCases, prevDefault
	case ast.StmtCase:
		if a.switchDepth == 0 {
			a.diags.Errorf(s.Pos, source.Constraint, "case label not within a switch statement")
		}
		v, ok := a.evalConstInt(s.CaseValue)
		if !ok {
			a.diags.Errorf(s.CaseValue.Pos, source.ConstantEval, "case label must be a constant expression")
		} else if a.switchCases != nil {
			if a.switchCases[v] {
				a.diags.Errorf(s.Pos, source.Constraint, "duplicate case value %d", v)
			}
			a.switchCases[v] = true
		}
	case ast.StmtDefault:
		if a.switchDepth == 0 {
			a.diags.Errorf(s.Pos, source.Constraint, "default label not within a switch statement")
		} else if a.sawDefault {
			a.diags.Errorf(s.Pos, source.Constraint, "multiple default labels in one switch")
		}
		a.sawDefault = true
	case ast.StmtBreak:
		if a.loopDepth == 0 && a.switchDepth == 0 {
			a.diags.Errorf(s.Pos, source.Constraint, "break statement not within a loop or switch")
		}
	case ast.StmtContinue:
		if a.loopDepth == 0 {
			a.diags.Errorf(s.Pos, source.Constraint, "continue statement not within a loop")
		}
	case ast.StmtReturn:
		a.analyzeReturn(s)
	case ast.StmtGoto:
		// Recorded here, checked against funcLabels at the end of
		// analyzeFuncDecl so forward gotos resolve.
		a.funcGotos = append(a.funcGotos, gotoRef{label: s.Label, pos: s.Pos})
	case ast.StmtLabel:
		if a.funcLabels != nil {
			if _, exists := a.funcLabels[s.Label]; exists {
				a.diags.Errorf(s.Pos, source.Redefinition, "redefinition of label %q", s.Label)
			} else {
				a.funcLabels[s.Label] = s.Pos
			}
		}
	}
}

func (a *Analyzer) analyzeReturn(s *ast.Stmt) {
	if a.funcReturn == nil {
		return
	}
	if a.funcReturn.IsVoid() {
		if s.Value != nil {
			a.diags.Errorf(s.Pos, source.TypeMismatch, "void function should not return a value")
			a.analyzeExpr(s.Value)
		}
		return
	}
	if s.Value == nil {
		a.diags.Errorf(s.Pos, source.TypeMismatch, "non-void function must return a value")
		return
	}
	vt := a.analyzeExpr(s.Value)
	if !types.CanImplicitlyConvert(vt, a.funcReturn) {
		a.diags.Errorf(s.Value.Pos, source.TypeMismatch, "cannot convert return value of type %s to %s", vt, a.funcReturn)
	}
}

func (a *Analyzer) requireScalar(t *types.Type, pos source.Position) {
	if t != nil && !t.IsScalar() {
		a.diags.Errorf(pos, source.TypeMismatch, "expected scalar expression, found %s", t)
	}
}

// ---- initializers -----------------------------------------------------

func (a *Analyzer) analyzeInitializer(e *ast.Expr, target *types.Type, isGlobal bool) {
	if e.Kind == ast.ExprStringLit && target.IsArray() {
		if target.Length == types.UnknownLength {
			target.Length = len(e.StrValue) + 1
		} else if len(e.StrValue)+1 > target.Length {
			a.diags.Errorf(e.Pos, source.Constraint, "initializer-string for char array is too long")
		}
		e.ExprType = types.NewPointer(types.NewInt(types.Char, false))
		return
	}
	if e.Kind == ast.ExprInitList {
		switch {
		case target.IsArray():
			for _, el := range e.Elems {
				a.analyzeInitializer(el, target.Elem, isGlobal)
			}
			if target.Length == types.UnknownLength {
				target.Length = len(e.Elems)
			} else if len(e.Elems) > target.Length {
				a.diags.Errorf(e.Pos, source.Constraint, "excess elements in array initializer")
			}
			e.ExprType = target
		case target.IsRecord():
			for i, el := range e.Elems {
				if i >= len(target.Members) {
					a.diags.Errorf(el.Pos, source.Constraint, "excess elements in struct initializer")
					break
				}
				a.analyzeInitializer(el, target.Members[i].Type, isGlobal)
			}
			e.ExprType = target
		case len(e.Elems) == 1:
			a.analyzeInitializer(e.Elems[0], target, isGlobal)
			e.ExprType = e.Elems[0].ExprType
		default:
			a.diags.Errorf(e.Pos, source.TypeMismatch, "braced initializer not valid for scalar type %s", target)
		}
		return
	}

	ty := a.analyzeExpr(e)
	if !types.CanImplicitlyConvert(ty, target) {
		a.diags.Errorf(e.Pos, source.TypeMismatch, "cannot initialize %s with value of type %s", target, ty)
	}
	if isGlobal && !isConstantInitializerExpr(e) {
		a.diags.Errorf(e.Pos, source.ConstantEval, "global initializer must be a constant expression")
	}
}

// isConstantInitializerExpr implements the narrow "constant expression"
// rule spec 4.5's global-initializer flattening relies on: integer/float/
// char/string literals, casts of one, the address of a (possibly
// subscripted/member-accessed) global object, any expression the analyzer
// already folded to a constant (IsConst), and unary/binary combinations
// of such operands.
func isConstantInitializerExpr(e *ast.Expr) bool {
	switch e.Kind {
	case ast.ExprIntLit, ast.ExprFloatLit, ast.ExprCharLit, ast.ExprStringLit:
		return true
	case ast.ExprCast:
		return isConstantInitializerExpr(e.Operand)
	case ast.ExprUnary:
		if e.UnOp == ast.UnAddr {
			return isAddressableChain(e.Operand)
		}
		// Folded integer constants carry IsConst; a negated float
		// literal does not (floats are folded only at flattening time),
		// so recurse into the operand as well.
		return e.IsConst || isConstantInitializerExpr(e.Operand)
	case ast.ExprBinary:
		return e.IsConst ||
			(isConstantInitializerExpr(e.Left) && isConstantInitializerExpr(e.Right))
	default:
		return e.IsConst
	}
}

func isAddressableChain(e *ast.Expr) bool {
	switch e.Kind {
	case ast.ExprIdent:
		return true
	case ast.ExprSubscript, ast.ExprMember:
		return isAddressableChain(e.Left)
	default:
		return false
	}
}

// ---- expressions -----------------------------------------------------

func (a *Analyzer) analyzeExpr(e *ast.Expr) *types.Type {
	switch e.Kind {
	case ast.ExprIntLit:
		rank := types.Int
		if e.IntLongLong {
			rank = types.LongLong
		} else if e.IntLong {
			rank = types.Long
		}
		e.ExprType = types.NewInt(rank, e.IntUnsigned)
		e.IsConst, e.ConstValue = true, e.IntValue
	case ast.ExprFloatLit:
		if e.FloatIsF32 {
			e.ExprType = types.NewFloat(types.Float)
		} else {
			e.ExprType = types.NewFloat(types.Double)
		}
	case ast.ExprCharLit:
		e.ExprType = types.NewInt(types.Char, false)
		e.IsConst, e.ConstValue = true, int64(e.CharValue)
	case ast.ExprStringLit:
		e.ExprType = types.NewPointer(types.NewInt(types.Char, false))
	case ast.ExprIdent:
		a.analyzeIdent(e)
	case ast.ExprUnary:
		a.analyzeUnary(e)
	case ast.ExprBinary:
		a.analyzeBinary(e)
	case ast.ExprAssign:
		a.analyzeAssign(e)
	case ast.ExprConditional:
		a.analyzeConditional(e)
	case ast.ExprCast:
		a.analyzeCast(e)
	case ast.ExprSubscript:
		a.analyzeSubscript(e)
	case ast.ExprCall:
		a.analyzeCall(e)
	case ast.ExprMember:
		a.analyzeMember(e)
	case ast.ExprInitList:
		for _, el := range e.Elems {
			a.analyzeExpr(el)
		}
		a.diags.Errorf(e.Pos, source.Syntactic, "braced initializer not valid in this expression context")
		e.ExprType = types.NewVoid()
	case ast.ExprSizeofType:
		ty := a.resolveNamed(e.CastType.Base, e.Pos)
		e.CastType.Base = ty
		e.ExprType = types.NewInt(types.Long, true)
		e.IsConst, e.ConstValue = true, int64(ty.Size())
	case ast.ExprSizeofExpr:
		ty := a.analyzeExpr(e.Operand)
		e.ExprType = types.NewInt(types.Long, true)
		if e.Operand.Kind == ast.ExprStringLit {
			// The operand is char[N+1] before decay, so sizeof is the
			// literal's length plus its terminator, not a pointer size.
			e.IsConst, e.ConstValue = true, int64(len(e.Operand.StrValue)+1)
		} else {
			e.IsConst, e.ConstValue = true, int64(ty.Size())
		}
	case ast.ExprComma:
		a.analyzeExpr(e.Left)
		rt := a.analyzeExpr(e.Right)
		e.ExprType = rt
		e.IsLValue = e.Right.IsLValue
		e.IsConst, e.ConstValue = e.Right.IsConst, e.Right.ConstValue
	}
	if e.ExprType == nil {
		e.ExprType = types.NewInt(types.Int, false)
	}
	return e.ExprType
}

func (a *Analyzer) analyzeIdent(e *ast.Expr) {
	sym, ok := a.Tab.Current().Lookup(e.Name)
	if !ok {
		a.diags.Errorf(e.Pos, source.UndeclaredIdentifier, "use of undeclared identifier %q", e.Name)
		e.ExprType = types.NewInt(types.Int, false)
		return
	}
	e.ExprType = sym.Type
	switch sym.Kind {
	case symtab.Function:
		e.IsLValue = false
	case symtab.EnumConstant:
		e.IsLValue = false
		e.IsConst, e.ConstValue = true, sym.ConstValue
	default:
		e.IsLValue = true
	}
}

func (a *Analyzer) analyzeUnary(e *ast.Expr) {
	ot := a.analyzeExpr(e.Operand)
	switch e.UnOp {
	case ast.UnPlus, ast.UnMinus:
		if !ot.IsArithmetic() {
			a.diags.Errorf(e.Pos, source.TypeMismatch, "unary %s requires an arithmetic operand", unaryOpName(e.UnOp))
		}
		if ot.IsInteger() {
			ot = types.PromoteInteger(ot)
		}
		e.ExprType = ot
		if e.Operand.IsConst {
			e.IsConst = true
			if e.UnOp == ast.UnMinus {
				e.ConstValue = -e.Operand.ConstValue
			} else {
				e.ConstValue = e.Operand.ConstValue
			}
		}
	case ast.UnNot:
		if !ot.IsScalar() {
			a.diags.Errorf(e.Pos, source.TypeMismatch, "logical negation requires a scalar operand")
		}
		e.ExprType = types.NewInt(types.Int, false)
		if e.Operand.IsConst {
			e.IsConst = true
			if e.Operand.ConstValue == 0 {
				e.ConstValue = 1
			}
		}
	case ast.UnBitNot:
		if !ot.IsInteger() {
			a.diags.Errorf(e.Pos, source.TypeMismatch, "bitwise negation requires an integer operand")
		}
		e.ExprType = types.PromoteInteger(ot)
		if e.Operand.IsConst {
			e.IsConst, e.ConstValue = true, ^e.Operand.ConstValue
		}
	case ast.UnDeref:
		if !ot.IsPointer() {
			a.diags.Errorf(e.Pos, source.TypeMismatch, "indirection requires a pointer operand")
			e.ExprType = types.NewInt(types.Int, false)
		} else {
			e.ExprType = ot.Elem
		}
		e.IsLValue = true
	case ast.UnAddr:
		if !e.Operand.IsLValue {
			a.diags.Errorf(e.Pos, source.Constraint, "cannot take the address of a non-lvalue")
		}
		e.ExprType = types.NewPointer(ot)
	case ast.UnPreInc, ast.UnPreDec, ast.UnPostInc, ast.UnPostDec:
		if !e.Operand.IsLValue {
			a.diags.Errorf(e.Pos, source.Constraint, "increment/decrement requires an lvalue operand")
		}
		if !ot.IsArithmetic() && !ot.IsPointer() {
			a.diags.Errorf(e.Pos, source.TypeMismatch, "increment/decrement requires a scalar operand")
		}
		e.ExprType = ot
	}
}

func unaryOpName(op ast.UnaryOp) string {
	if op == ast.UnMinus {
		return "-"
	}
	return "+"
}

func (a *Analyzer) analyzeBinary(e *ast.Expr) {
	lt := a.analyzeExpr(e.Left)
	rt := a.analyzeExpr(e.Right)
	switch e.BinOp {
	case ast.BinLogAnd, ast.BinLogOr:
		a.requireScalar(lt, e.Left.Pos)
		a.requireScalar(rt, e.Right.Pos)
		e.ExprType = types.NewInt(types.Int, false)
		if e.Left.IsConst && (e.BinOp == ast.BinLogAnd) == (e.Left.ConstValue == 0) {
			// short-circuits: left alone decides the result.
			e.IsConst = true
			if e.Left.ConstValue != 0 {
				e.ConstValue = 1
			}
		} else if e.Left.IsConst && e.Right.IsConst {
			e.IsConst = true
			lb, rb := e.Left.ConstValue != 0, e.Right.ConstValue != 0
			if (e.BinOp == ast.BinLogAnd && lb && rb) || (e.BinOp == ast.BinLogOr && (lb || rb)) {
				e.ConstValue = 1
			}
		}
	case ast.BinEq, ast.BinNotEq, ast.BinLt, ast.BinGt, ast.BinLtEq, ast.BinGtEq:
		a.checkComparable(lt, rt, e.Pos)
		e.ExprType = types.NewInt(types.Int, false)
		if e.Left.IsConst && e.Right.IsConst {
			e.IsConst = true
			if evalCompare(e.BinOp, e.Left.ConstValue, e.Right.ConstValue) {
				e.ConstValue = 1
			}
		}
	case ast.BinAdd, ast.BinSub:
		a.analyzeAdditive(e, lt, rt)
	case ast.BinShl, ast.BinShr:
		if !lt.IsInteger() || !rt.IsInteger() {
			a.diags.Errorf(e.Pos, source.TypeMismatch, "shift requires integer operands")
		}
		e.ExprType = types.PromoteInteger(lt)
		a.foldIntBinary(e)
	default: // Mul, Div, Mod, BitAnd, BitOr, BitXor
		if !lt.IsArithmetic() || !rt.IsArithmetic() {
			a.diags.Errorf(e.Pos, source.TypeMismatch, "operator requires arithmetic operands")
		}
		if needsInteger(e.BinOp) && (!lt.IsInteger() || !rt.IsInteger()) {
			a.diags.Errorf(e.Pos, source.TypeMismatch, "operator requires integer operands")
		}
		e.ExprType = types.UsualArithmeticConversions(lt, rt)
		a.foldIntBinary(e)
	}
}

func needsInteger(op ast.BinOp) bool {
	switch op {
	case ast.BinMod, ast.BinBitAnd, ast.BinBitOr, ast.BinBitXor:
		return true
	default:
		return false
	}
}

func (a *Analyzer) checkComparable(lt, rt *types.Type, pos source.Position) {
	if lt.IsArithmetic() && rt.IsArithmetic() {
		return
	}
	if lt.IsPointer() && rt.IsPointer() {
		return
	}
	if (lt.IsPointer() && rt.IsInteger()) || (lt.IsInteger() && rt.IsPointer()) {
		return
	}
	a.diags.Errorf(pos, source.TypeMismatch, "cannot compare %s with %s", lt, rt)
}

func evalCompare(op ast.BinOp, l, r int64) bool {
	switch op {
	case ast.BinEq:
		return l == r
	case ast.BinNotEq:
		return l != r
	case ast.BinLt:
		return l < r
	case ast.BinGt:
		return l > r
	case ast.BinLtEq:
		return l <= r
	case ast.BinGtEq:
		return l >= r
	default:
		return false
	}
}

func (a *Analyzer) analyzeAdditive(e *ast.Expr, lt, rt *types.Type) {
	switch {
	case lt.IsPointer() && rt.IsInteger():
		e.ExprType = lt
	case lt.IsInteger() && rt.IsPointer() && e.BinOp == ast.BinAdd:
		e.ExprType = rt
	case lt.IsPointer() && rt.IsPointer() && e.BinOp == ast.BinSub:
		e.ExprType = types.NewInt(types.Long, false)
	case lt.IsArithmetic() && rt.IsArithmetic():
		e.ExprType = types.UsualArithmeticConversions(lt, rt)
		a.foldIntBinary(e)
	default:
		a.diags.Errorf(e.Pos, source.TypeMismatch, "invalid operands to binary %s", additiveName(e.BinOp))
		e.ExprType = types.NewInt(types.Int, false)
	}
}

func additiveName(op ast.BinOp) string {
	if op == ast.BinAdd {
		return "+"
	}
	return "-"
}

// foldIntBinary folds constant integer arithmetic for opcodes where the
// operation is defined identically at compile time and run time.
func (a *Analyzer) foldIntBinary(e *ast.Expr) {
	if !e.ExprType.IsInteger() || !e.Left.IsConst || !e.Right.IsConst {
		return
	}
	l, r := e.Left.ConstValue, e.Right.ConstValue
	var v int64
	switch e.BinOp {
	case ast.BinAdd:
		v = l + r
	case ast.BinSub:
		v = l - r
	case ast.BinMul:
		v = l * r
	case ast.BinDiv:
		if r == 0 {
			a.diags.Errorf(e.Pos, source.ConstantEval, "division by zero in constant expression")
			return
		}
		v = l / r
	case ast.BinMod:
		if r == 0 {
			a.diags.Errorf(e.Pos, source.ConstantEval, "modulo by zero in constant expression")
			return
		}
		v = l % r
	case ast.BinBitAnd:
		v = l & r
	case ast.BinBitOr:
		v = l | r
	case ast.BinBitXor:
		v = l ^ r
	case ast.BinShl:
		v = l << uint64(r)
	case ast.BinShr:
		v = l >> uint64(r)
	default:
		return
	}
	e.IsConst, e.ConstValue = true, v
}

func (a *Analyzer) analyzeAssign(e *ast.Expr) {
	lt := a.analyzeExpr(e.Left)
	rt := a.analyzeExpr(e.Right)
	if !e.Left.IsLValue {
		a.diags.Errorf(e.Pos, source.Constraint, "assignment target is not an lvalue")
	}
	if e.AsgOp != ast.AsgPlain && !lt.IsArithmetic() && !lt.IsPointer() {
		a.diags.Errorf(e.Pos, source.TypeMismatch, "compound assignment requires a scalar target")
	}
	if !types.CanImplicitlyConvert(rt, lt) {
		a.diags.Errorf(e.Pos, source.TypeMismatch, "cannot assign %s to %s", rt, lt)
	}
	e.ExprType = lt
	e.IsLValue = false
}

func (a *Analyzer) analyzeConditional(e *ast.Expr) {
	a.requireScalar(a.analyzeExpr(e.Cond), e.Cond.Pos)
	tt := a.analyzeExpr(e.Then)
	et := a.analyzeExpr(e.Else)
	switch {
	case tt.IsArithmetic() && et.IsArithmetic():
		e.ExprType = types.UsualArithmeticConversions(tt, et)
	case types.Compatible(tt, et):
		e.ExprType = tt
	case tt.IsPointer() && et.IsPointer():
		e.ExprType = tt
	default:
		a.diags.Errorf(e.Pos, source.TypeMismatch, "incompatible types %s and %s in conditional expression", tt, et)
		e.ExprType = tt
	}
	if e.Cond.IsConst {
		if e.Cond.ConstValue != 0 {
			e.IsConst, e.ConstValue = e.Then.IsConst, e.Then.ConstValue
		} else {
			e.IsConst, e.ConstValue = e.Else.IsConst, e.Else.ConstValue
		}
	}
}

func (a *Analyzer) analyzeCast(e *ast.Expr) {
	ty := a.resolveNamed(e.CastType.Base, e.Pos)
	e.CastType.Base = ty
	ot := a.analyzeExpr(e.Operand)
	if !ty.IsVoid() && !types.CanImplicitlyConvert(ot, ty) && !(ot.IsPointer() && ty.IsPointer()) {
		a.diags.Errorf(e.Pos, source.TypeMismatch, "invalid cast from %s to %s", ot, ty)
	}
	e.ExprType = ty
	if e.Operand.IsConst && ty.IsInteger() {
		e.IsConst, e.ConstValue = true, truncate(e.Operand.ConstValue, ty)
	}
}

func truncate(v int64, t *types.Type) int64 {
	switch t.Size() {
	case 1:
		if t.Unsigned {
			return int64(uint8(v))
		}
		return int64(int8(v))
	case 2:
		if t.Unsigned {
			return int64(uint16(v))
		}
		return int64(int16(v))
	case 4:
		if t.Unsigned {
			return int64(uint32(v))
		}
		return int64(int32(v))
	default:
		return v
	}
}

func (a *Analyzer) analyzeSubscript(e *ast.Expr) {
	lt := a.analyzeExpr(e.Left)
	rt := a.analyzeExpr(e.Right)
	if !rt.IsInteger() {
		a.diags.Errorf(e.Right.Pos, source.TypeMismatch, "array subscript must have integer type")
	}
	switch {
	case lt.IsArray():
		e.ExprType = lt.Elem
	case lt.IsPointer():
		e.ExprType = lt.Elem
	default:
		a.diags.Errorf(e.Pos, source.TypeMismatch, "subscripted value is not an array or pointer")
		e.ExprType = types.NewInt(types.Int, false)
	}
	e.IsLValue = true
}

func (a *Analyzer) analyzeCall(e *ast.Expr) {
	lt := a.analyzeExpr(e.Left)
	argTypes := make([]*types.Type, len(e.Args))
	for i, arg := range e.Args {
		argTypes[i] = a.analyzeExpr(arg)
	}
	callee := lt
	if callee.IsPointer() && callee.Elem.IsFunction() {
		callee = callee.Elem
	}
	if !callee.IsFunction() {
		a.diags.Errorf(e.Pos, source.TypeMismatch, "called object is not a function")
		e.ExprType = types.NewInt(types.Int, false)
		return
	}
	nparams := len(callee.Params)
	if len(e.Args) < nparams || (!callee.Variadic && len(e.Args) > nparams) {
		a.diags.Errorf(e.Pos, source.Constraint, "wrong number of arguments to function call: expected %d, got %d", nparams, len(e.Args))
	}
	for i := 0; i < nparams && i < len(e.Args); i++ {
		if !types.CanImplicitlyConvert(argTypes[i], callee.Params[i]) {
			a.diags.Errorf(e.Args[i].Pos, source.TypeMismatch, "cannot convert argument %d from %s to %s", i+1, argTypes[i], callee.Params[i])
		}
	}
	// Default argument promotions for the variadic tail (spec's open
	// question on variadic promotion, decided in DESIGN.md): integer
	// promotion, and float widened to double.
	for i := nparams; i < len(e.Args); i++ {
		at := e.Args[i].ExprType
		switch {
		case at.IsFloat() && at.FloatRank == types.Float:
			e.Args[i].ExprType = types.NewFloat(types.Double)
		case at.IsInteger():
			e.Args[i].ExprType = types.PromoteInteger(at)
		}
	}
	e.ExprType = callee.Return
}

func (a *Analyzer) analyzeMember(e *ast.Expr) {
	lt := a.analyzeExpr(e.Left)
	var rec *types.Type
	switch {
	case e.IsArrow && lt.IsPointer():
		rec = lt.Elem
	case !e.IsArrow && lt.IsRecord():
		rec = lt
	default:
		a.diags.Errorf(e.Pos, source.TypeMismatch, "member reference requires a struct or union%s", arrowHint(e.IsArrow))
		e.ExprType = types.NewInt(types.Int, false)
		return
	}
	if !rec.IsRecord() {
		a.diags.Errorf(e.Pos, source.TypeMismatch, "member reference base type %s is not a struct or union", rec)
		e.ExprType = types.NewInt(types.Int, false)
		return
	}
	for _, m := range rec.Members {
		if m.Name == e.Member {
			e.ExprType = m.Type
			e.IsLValue = true
			return
		}
	}
	a.diags.Errorf(e.Pos, source.Constraint, "no member named %q in %s", e.Member, rec)
	e.ExprType = types.NewInt(types.Int, false)
}

func arrowHint(isArrow bool) string {
	if isArrow {
		return " pointer"
	}
	return ""
}

// evalConstInt evaluates e as an integer constant expression (spec 4.4),
// used for enumerator values and case labels; array bounds are not
// evaluated here (the parser accepts only literal bounds). e is
// analyzed as a side effect if it has not been already.
func (a *Analyzer) evalConstInt(e *ast.Expr) (int64, bool) {
	if e.ExprType == nil {
		a.analyzeExpr(e)
	}
	return e.ConstValue, e.IsConst
}
