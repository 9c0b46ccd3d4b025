// Package types implements the C type algebra from spec 3/4.2: a sum of
// variants (void, integer, float, pointer, array, function, record,
// enum) with LP64 size/alignment, structural compatibility, and the
// usual arithmetic conversions. Types are value objects; Pointer/Array
// wrap their nested type by shared reference (never by value), matching
// the teacher's SizeOf-by-kind-switch idiom in
// arc-language-core-codegen/arch/amd64/abi.go, generalized to the full
// C type lattice.
package types

import (
	"fmt"
	"strings"
)

// Kind is the closed sum-type discriminant.
type Kind int

const (
	VoidKind Kind = iota
	IntegerKind
	FloatKind
	PointerKind
	ArrayKind
	FunctionKind
	RecordKind
	EnumKind

	// NamedKind is a transient forward-reference to a typedef name,
	// produced by the parser when a declarator's base type is an
	// identifier it has already seen typedef'd. The analyzer resolves
	// every NamedKind leaf to the typedef's underlying type as its first
	// pass over each declaration; no later phase should observe one.
	NamedKind
)

// IntRank orders integer ranks from narrowest to widest.
type IntRank int

const (
	Char IntRank = iota
	Short
	Int
	Long
	LongLong
)

// FloatRank orders floating ranks from narrowest to widest.
type FloatRank int

const (
	Float FloatRank = iota
	Double
	LongDouble
)

// UnknownLength marks an array whose element count has not been
// determined (an incomplete array type, e.g. `extern int a[];`).
const UnknownLength = -1

// Qualifiers are attached post-construction per spec 4.2.
type Qualifiers struct {
	Const    bool
	Volatile bool
}

// Member is one field of a Record type: name, type, and byte offset
// from the start of the record.
type Member struct {
	Name   string
	Type   *Type
	Offset int
}

// Type is the single representation shared by every variant; exactly
// one group of fields is meaningful per Kind, selected by Kind itself
// (a tagged union the Go way — struct with a discriminant rather than
// an interface hierarchy, since every consumer needs exhaustive,
// closed-family dispatch).
type Type struct {
	Kind Kind
	Qual Qualifiers

	// IntegerKind
	IntRank  IntRank
	Unsigned bool

	// FloatKind
	FloatRank FloatRank

	// PointerKind / ArrayKind
	Elem *Type

	// ArrayKind
	Length int // UnknownLength if not yet known

	// FunctionKind
	Return   *Type
	Params   []*Type
	Variadic bool

	// RecordKind
	Tag      string
	IsUnion  bool
	Complete bool
	Members  []Member

	// EnumKind
	EnumTag       string
	Enumerators   map[string]int64
	EnumeratorOrd []string // insertion order, for deterministic dumps
}

// --- factory functions -----------------------------------------------

func NewVoid() *Type { return &Type{Kind: VoidKind} }

func NewInt(rank IntRank, unsigned bool) *Type {
	return &Type{Kind: IntegerKind, IntRank: rank, Unsigned: unsigned}
}

func NewFloat(rank FloatRank) *Type {
	return &Type{Kind: FloatKind, FloatRank: rank}
}

func NewPointer(elem *Type) *Type {
	return &Type{Kind: PointerKind, Elem: elem}
}

func NewArray(elem *Type, length int) *Type {
	return &Type{Kind: ArrayKind, Elem: elem, Length: length}
}

func NewFunction(ret *Type, params []*Type, variadic bool) *Type {
	return &Type{Kind: FunctionKind, Return: ret, Params: params, Variadic: variadic}
}

func NewRecordTag(tag string, isUnion bool) *Type {
	return &Type{Kind: RecordKind, Tag: tag, IsUnion: isUnion, Complete: false}
}

func NewEnumTag(tag string) *Type {
	return &Type{Kind: EnumKind, EnumTag: tag, Enumerators: map[string]int64{}, Complete: false}
}

func NewNamed(name string) *Type {
	return &Type{Kind: NamedKind, Tag: name}
}

// WithQualifiers returns a structurally-cloned copy of t carrying q;
// types are cheap value objects (spec 9's "Ownership of types" note), so
// qualifying never mutates a shared Type.
func (t *Type) WithQualifiers(q Qualifiers) *Type {
	clone := *t
	clone.Qual = q
	return &clone
}

// Predicates -------------------------------------------------------

func (t *Type) IsVoid() bool    { return t.Kind == VoidKind }
func (t *Type) IsInteger() bool { return t.Kind == IntegerKind }
func (t *Type) IsFloat() bool   { return t.Kind == FloatKind }
func (t *Type) IsArithmetic() bool {
	return t.Kind == IntegerKind || t.Kind == FloatKind
}
func (t *Type) IsPointer() bool  { return t.Kind == PointerKind }
func (t *Type) IsArray() bool    { return t.Kind == ArrayKind }
func (t *Type) IsFunction() bool { return t.Kind == FunctionKind }
func (t *Type) IsRecord() bool   { return t.Kind == RecordKind }
func (t *Type) IsEnum() bool     { return t.Kind == EnumKind }
func (t *Type) IsScalar() bool {
	return t.IsArithmetic() || t.IsPointer() || t.IsEnum()
}
func (t *Type) IsAggregate() bool {
	return t.Kind == ArrayKind || t.Kind == RecordKind
}

// Decay implements spec 4.2's array/function-to-pointer conversion.
func (t *Type) Decay() *Type {
	switch t.Kind {
	case ArrayKind:
		return NewPointer(t.Elem)
	case FunctionKind:
		return NewPointer(t)
	default:
		return t
	}
}

// --- sizes / alignment (LP64, spec 3) ---------------------------------

const PointerSize = 8

func (t *Type) Size() int {
	switch t.Kind {
	case VoidKind:
		return 0
	case IntegerKind:
		return intSize(t.IntRank)
	case FloatKind:
		return floatSize(t.FloatRank)
	case PointerKind:
		return PointerSize
	case ArrayKind:
		if t.Length == UnknownLength {
			return 0
		}
		return t.Elem.Size() * t.Length
	case FunctionKind:
		return 0
	case RecordKind:
		return t.recordSize()
	case EnumKind:
		return intSize(Int)
	default:
		return 0
	}
}

func (t *Type) Align() int {
	switch t.Kind {
	case ArrayKind:
		return t.Elem.Align()
	case RecordKind:
		return t.recordAlign()
	case EnumKind:
		return intSize(Int)
	default:
		return t.Size()
	}
}

func intSize(r IntRank) int {
	switch r {
	case Char:
		return 1
	case Short:
		return 2
	case Int:
		return 4
	case Long, LongLong:
		return 8
	default:
		return 4
	}
}

func floatSize(r FloatRank) int {
	switch r {
	case Float:
		return 4
	case Double, LongDouble:
		return 8
	default:
		return 8
	}
}

func (t *Type) recordAlign() int {
	max := 1
	for _, m := range t.Members {
		if a := m.Type.Align(); a > max {
			max = a
		}
	}
	return max
}

func (t *Type) recordSize() int {
	if len(t.Members) == 0 {
		return 0
	}
	if t.IsUnion {
		max := 0
		for _, m := range t.Members {
			if s := m.Type.Size(); s > max {
				max = s
			}
		}
		return alignUp(max, t.recordAlign())
	}
	last := t.Members[len(t.Members)-1]
	size := last.Offset + last.Type.Size()
	return alignUp(size, t.recordAlign())
}

func alignUp(v, align int) int {
	if align <= 1 {
		return v
	}
	if v%align == 0 {
		return v
	}
	return v + (align - v%align)
}

// LayoutMembers computes offsets for fields []*Type of a not-yet-complete
// record/union per spec 4.4's C layout rule: cumulative offset rounded up
// to each member's own alignment for a struct, all-at-offset-0 for a union.
func LayoutMembers(names []string, fieldTypes []*Type, isUnion bool) []Member {
	members := make([]Member, len(fieldTypes))
	offset := 0
	for i, ft := range fieldTypes {
		var off int
		if isUnion {
			off = 0
		} else {
			off = alignUp(offset, ft.Align())
			offset = off + ft.Size()
		}
		name := ""
		if i < len(names) {
			name = names[i]
		}
		members[i] = Member{Name: name, Type: ft, Offset: off}
	}
	return members
}

// --- compatibility / conversions (spec 4.2) ---------------------------

// Compatible implements spec 4.2's compatible() relation.
func Compatible(a, b *Type) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		// enums are compatible with int
		if a.Kind == EnumKind && b.Kind == IntegerKind && b.IntRank == Int && !b.Unsigned {
			return true
		}
		if b.Kind == EnumKind && a.Kind == IntegerKind && a.IntRank == Int && !a.Unsigned {
			return true
		}
		return false
	}
	switch a.Kind {
	case VoidKind:
		return true
	case IntegerKind:
		return a.IntRank == b.IntRank && a.Unsigned == b.Unsigned
	case FloatKind:
		return a.FloatRank == b.FloatRank
	case PointerKind:
		return Compatible(a.Elem, b.Elem)
	case ArrayKind:
		if !Compatible(a.Elem, b.Elem) {
			return false
		}
		if a.Length == UnknownLength || b.Length == UnknownLength {
			return true
		}
		return a.Length == b.Length
	case FunctionKind:
		if !Compatible(a.Return, b.Return) || a.Variadic != b.Variadic || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !Compatible(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	case RecordKind:
		return a.Tag != "" && a.Tag == b.Tag && a.IsUnion == b.IsUnion
	case EnumKind:
		return a.EnumTag != "" && a.EnumTag == b.EnumTag
	default:
		return false
	}
}

// CanImplicitlyConvert implements spec 4.2's implicit-conversion rule.
func CanImplicitlyConvert(from, to *Type) bool {
	if Compatible(from, to) {
		return true
	}
	if from.IsArithmetic() && to.IsArithmetic() {
		return true
	}
	if from.IsPointer() && to.IsPointer() {
		return true // any pointer to any pointer, including void* (warning silenced in IR stage)
	}
	if from.IsPointer() && to.IsInteger() {
		return true
	}
	if from.IsInteger() && to.IsPointer() {
		return true
	}
	if from.IsArray() && to.IsPointer() {
		return Compatible(from.Elem, to.Elem) || to.Elem.IsVoid()
	}
	if from.IsFunction() && to.IsPointer() && to.Elem.IsFunction() {
		return Compatible(from, to.Elem)
	}
	if from.IsEnum() && to.IsArithmetic() {
		return true
	}
	if from.IsArithmetic() && to.IsEnum() {
		return true
	}
	return false
}

// ConvKind is the closed set of conversions ConvertKind distinguishes;
// ConvNone means the store/load can move the value as-is. The IR
// generator emits a conversion opcode for the int/float/pointer kinds;
// ConvAssign, ConvFloatExtend and ConvFloatTrunc have no opcode of their
// own.
type ConvKind int

const (
	ConvNone ConvKind = iota
	ConvIntToFloat
	ConvFloatToInt
	ConvIntExtend
	ConvIntTrunc
	ConvFloatExtend
	ConvFloatTrunc
	ConvPtrToInt
	ConvIntToPtr
	ConvAssign // same representation, no conversion instruction needed
)

// ConvertKind picks the conversion a value of type from must go through
// to be used where to is expected, per spec 4.2's conversion rules. Two
// types the same Kind and width that are merely pointer-to-pointer or
// differently-signed integers of equal size need no bit manipulation,
// so they fall through to ConvAssign.
func ConvertKind(from, to *Type) ConvKind {
	if Compatible(from, to) {
		return ConvNone
	}
	switch {
	case from.IsInteger() && to.IsFloat():
		return ConvIntToFloat
	case from.IsFloat() && to.IsInteger():
		return ConvFloatToInt
	case from.IsFloat() && to.IsFloat():
		if to.Size() > from.Size() {
			return ConvFloatExtend
		}
		return ConvFloatTrunc
	case from.IsInteger() && to.IsInteger():
		if to.Size() > from.Size() {
			return ConvIntExtend
		}
		if to.Size() < from.Size() {
			return ConvIntTrunc
		}
		return ConvAssign
	case from.IsPointer() && to.IsInteger():
		return ConvPtrToInt
	case from.IsInteger() && to.IsPointer():
		return ConvIntToPtr
	default:
		return ConvAssign
	}
}

// rankScore implements the usual-arithmetic-conversion ladder in spec
// 4.2: long double > double > float > unsigned long long > long long >
// unsigned long > long > unsigned int > int.
func rankScore(t *Type) int {
	switch {
	case t.Kind == FloatKind && t.FloatRank == LongDouble:
		return 100
	case t.Kind == FloatKind && t.FloatRank == Double:
		return 90
	case t.Kind == FloatKind && t.FloatRank == Float:
		return 80
	case t.Kind == IntegerKind && t.IntRank == LongLong && t.Unsigned:
		return 70
	case t.Kind == IntegerKind && t.IntRank == LongLong:
		return 60
	case t.Kind == IntegerKind && t.IntRank == Long && t.Unsigned:
		return 50
	case t.Kind == IntegerKind && t.IntRank == Long:
		return 40
	case t.Kind == IntegerKind && t.IntRank == Int && t.Unsigned:
		return 30
	default:
		return 20 // promoted int
	}
}

// PromoteInteger applies integral promotion: anything narrower than int
// becomes (signed) int.
func PromoteInteger(t *Type) *Type {
	if t.Kind == EnumKind {
		return NewInt(Int, false)
	}
	if t.Kind == IntegerKind && t.IntRank < Int {
		return NewInt(Int, false)
	}
	return t
}

// UsualArithmeticConversions computes the common type of two arithmetic
// operands per spec 4.2, applying integral promotion first.
func UsualArithmeticConversions(a, b *Type) *Type {
	a = PromoteInteger(a)
	b = PromoteInteger(b)
	if rankScore(a) >= rankScore(b) {
		return commonOf(a, b)
	}
	return commonOf(b, a)
}

// commonOf returns hi unchanged. When both operands are integers of equal
// rank with differing signedness, hi is already the unsigned one, since
// rankScore ranks the unsigned tier above the signed tier of the same
// rank (the standard C tie-break).
func commonOf(hi, lo *Type) *Type {
	_ = lo
	return hi
}

// --- rendering ----------------------------------------------------

func (t *Type) String() string {
	var b strings.Builder
	writeType(&b, t)
	return b.String()
}

func writeType(b *strings.Builder, t *Type) {
	if t == nil {
		b.WriteString("<nil>")
		return
	}
	if t.Qual.Const {
		b.WriteString("const ")
	}
	if t.Qual.Volatile {
		b.WriteString("volatile ")
	}
	switch t.Kind {
	case VoidKind:
		b.WriteString("void")
	case IntegerKind:
		if t.Unsigned {
			b.WriteString("unsigned ")
		}
		switch t.IntRank {
		case Char:
			b.WriteString("char")
		case Short:
			b.WriteString("short")
		case Int:
			b.WriteString("int")
		case Long:
			b.WriteString("long")
		case LongLong:
			b.WriteString("long long")
		}
	case FloatKind:
		switch t.FloatRank {
		case Float:
			b.WriteString("float")
		case Double:
			b.WriteString("double")
		case LongDouble:
			b.WriteString("long double")
		}
	case PointerKind:
		writeType(b, t.Elem)
		b.WriteString("*")
	case ArrayKind:
		writeType(b, t.Elem)
		if t.Length == UnknownLength {
			b.WriteString("[]")
		} else {
			fmt.Fprintf(b, "[%d]", t.Length)
		}
	case FunctionKind:
		writeType(b, t.Return)
		b.WriteString(" (")
		for i, p := range t.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			writeType(b, p)
		}
		if t.Variadic {
			if len(t.Params) > 0 {
				b.WriteString(", ")
			}
			b.WriteString("...")
		}
		b.WriteString(")")
	case RecordKind:
		if t.IsUnion {
			b.WriteString("union ")
		} else {
			b.WriteString("struct ")
		}
		b.WriteString(t.Tag)
	case EnumKind:
		b.WriteString("enum ")
		b.WriteString(t.EnumTag)
	case NamedKind:
		b.WriteString(t.Tag)
	}
}
