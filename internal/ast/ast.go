// Package ast defines the tree spec 3 describes: declarations,
// statements, and expressions, each carrying a source position and
// (after analysis) an inferred type on every expression node. Each
// family is a closed Kind enumeration dispatched by exhaustive switch,
// replacing the open-ended runtime type checks spec 9 flags as a design
// smell in the source material — see
// arc-language-core-codegen/arch/amd64/ops.go's compileInstruction
// switch for the dispatch idiom this mirrors.
package ast

import (
	"github.com/cdd-lang/cddc/internal/source"
	"github.com/cdd-lang/cddc/internal/types"
)

// TranslationUnit exclusively owns every top-level declaration (spec 3's
// ownership invariant).
type TranslationUnit struct {
	Decls []Decl
}

// ---- Declarations -----------------------------------------------------

type DeclKind int

const (
	DeclVar DeclKind = iota
	DeclFunc
	DeclField // struct/union member, used only inside RecordDecl.Fields
	DeclRecord
	DeclEnum
	DeclEnumConst
	DeclTypedef
)

// TypeSpec is the not-yet-resolved declarator shape the parser produces;
// the analyzer resolves it to a types.Type.
type TypeSpec struct {
	Base      *types.Type // resolved base type (int, struct tag placeholder, ...)
	PointerN  int         // number of leading '*'
	ArrayLens []int       // trailing [N] / [] (types.UnknownLength) dimensions, outer to inner
}

type Decl struct {
	Kind DeclKind
	Pos  source.Position
	Name string

	// DeclVar / DeclField / DeclTypedef
	TypeSpec TypeSpec
	Storage  string // "", "static", "extern", "register", "auto" — raw keyword text
	Init     *Expr  // nil if none

	// DeclFunc
	Params   []*Decl // each a DeclVar-shaped parameter
	Variadic bool
	Body     *Stmt // nil for a prototype-only declaration

	// DeclRecord
	Tag     string
	IsUnion bool
	Fields  []*Decl // DeclField entries; nil for a forward declaration

	// DeclEnum
	EnumTag    string
	Enumerators []*Decl // DeclEnumConst entries

	// DeclEnumConst
	Value *Expr // explicit initializer, or nil for auto-increment

	// Resolved after analysis
	ResolvedType *types.Type
}

// ---- Statements ---------------------------------------------------------

type StmtKind int

const (
	StmtExpr StmtKind = iota
	StmtCompound
	StmtIf
	StmtSwitch
	StmtCase
	StmtDefault
	StmtWhile
	StmtDoWhile
	StmtFor
	StmtBreak
	StmtContinue
	StmtReturn
	StmtGoto
	StmtLabel
	StmtDecl // a declaration appearing in statement position
)

type Stmt struct {
	Kind StmtKind
	Pos  source.Position

	// StmtExpr
	Expr *Expr

	// StmtCompound: ScopeID is the symtab scope this block introduced,
	// set by the analyzer and replayed by the IR generator (spec 9's
	// scope revisitation note) instead of pushing a fresh scope.
	Items   []*Stmt // statements and StmtDecl entries, in source order
	ScopeID int

	// StmtIf
	Cond *Expr
	Then *Stmt
	Else *Stmt // nil if no else branch

	// StmtSwitch
	SwitchCond *Expr
	SwitchBody *Stmt

	// StmtCase
	CaseValue *Expr

	// StmtWhile / StmtDoWhile
	Body *Stmt

	// StmtFor: ScopeID (shared with StmtCompound's field above) is the
	// scope owning ForInit's declaration, if any.
	ForInit *Stmt // StmtDecl or StmtExpr, nil if absent
	ForCond *Expr // nil if absent
	ForPost *Expr // nil if absent

	// StmtReturn
	Value *Expr // nil for bare `return;`

	// StmtGoto / StmtLabel
	Label string

	// StmtDecl: one declaration statement can introduce several
	// declarations (`int a, b;`, or an inline struct definition plus the
	// variable it declares), all analyzed and lowered in source order.
	Decls []*Decl
}

// ---- Expressions ----------------------------------------------------

type ExprKind int

const (
	ExprIntLit ExprKind = iota
	ExprFloatLit
	ExprCharLit
	ExprStringLit
	ExprIdent
	ExprUnary
	ExprBinary
	ExprAssign
	ExprConditional
	ExprCast
	ExprSubscript
	ExprCall
	ExprMember
	ExprInitList
	ExprSizeofType
	ExprSizeofExpr
	ExprComma
)

// UnaryOp is the closed set of prefix/postfix unary operators.
type UnaryOp int

const (
	UnPlus UnaryOp = iota
	UnMinus
	UnNot      // !
	UnBitNot   // ~
	UnDeref    // *
	UnAddr     // &
	UnPreInc   // ++x
	UnPreDec   // --x
	UnPostInc  // x++
	UnPostDec  // x--
)

// BinOp is the closed set of binary operators (excluding assignment,
// which is its own Expr kind).
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
	BinLt
	BinGt
	BinLtEq
	BinGtEq
	BinEq
	BinNotEq
	BinLogAnd
	BinLogOr
)

// AssignOp distinguishes plain '=' from each compound-assignment form.
type AssignOp int

const (
	AsgPlain AssignOp = iota
	AsgAdd
	AsgSub
	AsgMul
	AsgDiv
	AsgMod
	AsgAnd
	AsgOr
	AsgXor
	AsgShl
	AsgShr
)

type Expr struct {
	Kind ExprKind
	Pos  source.Position

	// ExprIntLit
	IntValue int64
	IntUnsigned, IntLong, IntLongLong bool

	// ExprFloatLit
	FloatValue float64
	FloatIsF32 bool

	// ExprCharLit
	CharValue byte

	// ExprStringLit
	StrValue []byte

	// ExprIdent
	Name string

	// ExprUnary
	UnOp    UnaryOp
	Operand *Expr

	// ExprBinary
	BinOp BinOp
	Left  *Expr
	Right *Expr

	// ExprAssign
	AsgOp AssignOp
	// Left/Right reused for assignment's target/value

	// ExprConditional
	Cond *Expr
	Then *Expr
	Else *Expr

	// ExprCast / ExprSizeofType
	CastType TypeSpec

	// ExprSubscript: Left = base, Right = index

	// ExprCall: Left = callee
	Args []*Expr

	// ExprMember
	IsArrow bool
	Member  string

	// ExprInitList
	Elems []*Expr

	// Resolved after analysis
	ExprType *types.Type
	IsLValue bool
	// ConstValue/IsConst are filled in by constant evaluation where
	// applicable (enumerator initializers, case labels, array bounds,
	// global initializers); IsConst is false until evaluate() succeeds.
	ConstValue int64
	IsConst    bool
}
