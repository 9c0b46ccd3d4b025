// Package token defines the closed lexical-category enumeration, the
// Token value itself, and the keyword/precedence lookup tables the
// lexer and parser share.
package token

import "github.com/cdd-lang/cddc/internal/source"

// Kind is a closed enumeration of lexical categories: literal kinds,
// keywords, punctuators/operators, and the two sentinel kinds EOF and
// Invalid. Dispatch over Kind is always an exhaustive switch (see
// DESIGN.md's note on replacing open-ended dispatch with sum types).
type Kind int

const (
	Invalid Kind = iota
	EOF

	// Literals
	Identifier
	IntLiteral
	FloatLiteral
	CharLiteral
	StringLiteral

	// Keywords (C89 set plus long long / inline as a practical extension)
	KwAuto
	KwBreak
	KwCase
	KwChar
	KwConst
	KwContinue
	KwDefault
	KwDo
	KwDouble
	KwElse
	KwEnum
	KwExtern
	KwFloat
	KwFor
	KwGoto
	KwIf
	KwInline
	KwInt
	KwLong
	KwRegister
	KwReturn
	KwShort
	KwSigned
	KwSizeof
	KwStatic
	KwStruct
	KwSwitch
	KwTypedef
	KwUnion
	KwUnsigned
	KwVoid
	KwVolatile
	KwWhile

	// Punctuators / operators
	Plus       // +
	Minus      // -
	Star       // *
	Slash      // /
	Percent    // %
	PlusPlus   // ++
	MinusMinus // --
	Eq         // ==
	NotEq      // !=
	Lt         // <
	Gt         // >
	LtEq       // <=
	GtEq       // >=
	AndAnd     // &&
	OrOr       // ||
	Not        // !
	Amp        // &
	Pipe       // |
	Caret      // ^
	Tilde      // ~
	Shl        // <<
	Shr        // >>
	Assign     // =
	PlusEq     // +=
	MinusEq    // -=
	StarEq     // *=
	SlashEq    // /=
	PercentEq  // %=
	AmpEq      // &=
	PipeEq     // |=
	CaretEq    // ^=
	ShlEq      // <<=
	ShrEq      // >>=
	LParen     // (
	RParen     // )
	LBrace     // {
	RBrace     // }
	LBracket   // [
	RBracket   // ]
	Semicolon  // ;
	Colon      // :
	Comma      // ,
	Dot        // .
	Arrow      // ->
	Question   // ?
	Ellipsis   // ...
)

var kindNames = map[Kind]string{
	Invalid:       "Invalid",
	EOF:           "EOF",
	Identifier:    "Identifier",
	IntLiteral:    "IntLiteral",
	FloatLiteral:  "FloatLiteral",
	CharLiteral:   "CharLiteral",
	StringLiteral: "StringLiteral",
	KwAuto:        "auto", KwBreak: "break", KwCase: "case", KwChar: "char",
	KwConst: "const", KwContinue: "continue", KwDefault: "default", KwDo: "do",
	KwDouble: "double", KwElse: "else", KwEnum: "enum", KwExtern: "extern",
	KwFloat: "float", KwFor: "for", KwGoto: "goto", KwIf: "if", KwInline: "inline",
	KwInt: "int", KwLong: "long", KwRegister: "register", KwReturn: "return",
	KwShort: "short", KwSigned: "signed", KwSizeof: "sizeof", KwStatic: "static",
	KwStruct: "struct", KwSwitch: "switch", KwTypedef: "typedef", KwUnion: "union",
	KwUnsigned: "unsigned", KwVoid: "void", KwVolatile: "volatile", KwWhile: "while",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	PlusPlus: "++", MinusMinus: "--", Eq: "==", NotEq: "!=",
	Lt: "<", Gt: ">", LtEq: "<=", GtEq: ">=", AndAnd: "&&", OrOr: "||", Not: "!",
	Amp: "&", Pipe: "|", Caret: "^", Tilde: "~", Shl: "<<", Shr: ">>",
	Assign: "=", PlusEq: "+=", MinusEq: "-=", StarEq: "*=", SlashEq: "/=",
	PercentEq: "%=", AmpEq: "&=", PipeEq: "|=", CaretEq: "^=", ShlEq: "<<=", ShrEq: ">>=",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	Semicolon: ";", Colon: ":", Comma: ",", Dot: ".", Arrow: "->", Question: "?",
	Ellipsis: "...",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Kind(?)"
}

// keywords is the post-identifier keyword lookup, one flat map keyed by
// spelling: a hit rewrites Identifier to the matching keyword Kind.
var keywords = map[string]Kind{
	"auto": KwAuto, "break": KwBreak, "case": KwCase, "char": KwChar,
	"const": KwConst, "continue": KwContinue, "default": KwDefault, "do": KwDo,
	"double": KwDouble, "else": KwElse, "enum": KwEnum, "extern": KwExtern,
	"float": KwFloat, "for": KwFor, "goto": KwGoto, "if": KwIf, "inline": KwInline,
	"int": KwInt, "long": KwLong, "register": KwRegister, "return": KwReturn,
	"short": KwShort, "signed": KwSigned, "sizeof": KwSizeof, "static": KwStatic,
	"struct": KwStruct, "switch": KwSwitch, "typedef": KwTypedef, "union": KwUnion,
	"unsigned": KwUnsigned, "void": KwVoid, "volatile": KwVolatile, "while": KwWhile,
}

// LookupKeyword returns the keyword Kind for ident, or (Invalid, false)
// if ident is an ordinary identifier.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

// IntFlags records the suffix-derived width/signedness of an integer
// literal payload.
type IntFlags struct {
	Unsigned bool
	Long     bool
	LongLong bool
}

// Token is the tagged union spec 3 describes: a Kind, a Position, the
// raw lexeme, and a decoded payload whose active field matches Kind.
type Token struct {
	Kind   Kind
	Pos    source.Position
	Lexeme string

	IntValue   int64
	IntFlags   IntFlags
	FloatValue float64
	IsFloat32  bool // "float" suffix (f/F) rather than double
	CharValue  byte
	StrValue   []byte
}

func (t Token) String() string {
	return t.Kind.String() + " " + t.Lexeme
}

// IsLiteral reports whether k is one of the four literal kinds.
func IsLiteral(k Kind) bool {
	switch k {
	case IntLiteral, FloatLiteral, CharLiteral, StringLiteral:
		return true
	default:
		return false
	}
}

// IsKeyword reports whether k is one of the reserved-word kinds.
func IsKeyword(k Kind) bool {
	return k >= KwAuto && k <= KwWhile
}

// Associativity of a binary operator.
type Associativity int

const (
	LeftAssoc Associativity = iota
	RightAssoc
)

// precedence is the classic C operator-precedence table, highest number
// binds tightest; used by internal/parser's parseBinary
// precedence-climbing loop.
var precedence = map[Kind]int{
	OrOr: 1, AndAnd: 2, Pipe: 3, Caret: 4, Amp: 5,
	Eq: 6, NotEq: 6,
	Lt: 7, Gt: 7, LtEq: 7, GtEq: 7,
	Shl: 8, Shr: 8,
	Plus: 9, Minus: 9,
	Star: 10, Slash: 10, Percent: 10,
}

// Precedence returns the binary-operator precedence of k and whether k
// is a binary operator at all.
func Precedence(k Kind) (int, bool) {
	p, ok := precedence[k]
	return p, ok
}

// Associativity reports the associativity of every binary operator in
// this table; all of them are left-associative in C.
func (k Kind) Associativity() Associativity {
	return LeftAssoc
}

// IsAssignment reports whether k is '=' or a compound-assignment operator.
func IsAssignment(k Kind) bool {
	switch k {
	case Assign, PlusEq, MinusEq, StarEq, SlashEq, PercentEq, AmpEq, PipeEq, CaretEq, ShlEq, ShrEq:
		return true
	default:
		return false
	}
}
