package types

import "testing"

func TestSizesLP64(t *testing.T) {
	cases := []struct {
		t    *Type
		size int
	}{
		{NewInt(Char, false), 1},
		{NewInt(Short, false), 2},
		{NewInt(Int, false), 4},
		{NewInt(Long, false), 8},
		{NewInt(LongLong, true), 8},
		{NewFloat(Float), 4},
		{NewFloat(Double), 8},
		{NewPointer(NewVoid()), 8},
	}
	for _, c := range cases {
		if got := c.t.Size(); got != c.size {
			t.Errorf("%s.Size() = %d, want %d", c.t, got, c.size)
		}
	}
}

func TestArraySize(t *testing.T) {
	arr := NewArray(NewInt(Int, false), 3)
	if got := arr.Size(); got != 12 {
		t.Fatalf("int[3].Size() = %d, want 12", got)
	}
	incomplete := NewArray(NewInt(Int, false), UnknownLength)
	if got := incomplete.Size(); got != 0 {
		t.Fatalf("incomplete array size = %d, want 0", got)
	}
}

func TestRecordLayoutAndSize(t *testing.T) {
	// struct { char c; int i; } -> c@0, padding, i@4, size 8, align 4
	fields := []*Type{NewInt(Char, false), NewInt(Int, false)}
	members := LayoutMembers([]string{"c", "i"}, fields, false)
	if members[0].Offset != 0 {
		t.Fatalf("c offset = %d, want 0", members[0].Offset)
	}
	if members[1].Offset != 4 {
		t.Fatalf("i offset = %d, want 4 (aligned up from 1)", members[1].Offset)
	}
	rec := &Type{Kind: RecordKind, Tag: "S", Members: members, Complete: true}
	if got := rec.Size(); got != 8 {
		t.Fatalf("struct S size = %d, want 8", got)
	}
	if got := rec.Align(); got != 4 {
		t.Fatalf("struct S align = %d, want 4", got)
	}
}

func TestUnionSizeIsMaxMember(t *testing.T) {
	fields := []*Type{NewInt(Char, false), NewInt(LongLong, false), NewFloat(Float)}
	members := LayoutMembers([]string{"c", "l", "f"}, fields, true)
	for _, m := range members {
		if m.Offset != 0 {
			t.Fatalf("union member %s offset = %d, want 0", m.Name, m.Offset)
		}
	}
	u := &Type{Kind: RecordKind, Tag: "U", IsUnion: true, Members: members, Complete: true}
	if got := u.Size(); got != 8 {
		t.Fatalf("union size = %d, want 8 (max member)", got)
	}
}

func TestCompatiblePointersAndArrays(t *testing.T) {
	p1 := NewPointer(NewInt(Int, false))
	p2 := NewPointer(NewInt(Int, false))
	if !Compatible(p1, p2) {
		t.Fatal("int* should be compatible with int*")
	}
	p3 := NewPointer(NewFloat(Double))
	if Compatible(p1, p3) {
		t.Fatal("int* should not be compatible with double*")
	}
	a1 := NewArray(NewInt(Int, false), 5)
	a2 := NewArray(NewInt(Int, false), UnknownLength)
	if !Compatible(a1, a2) {
		t.Fatal("int[5] should be compatible with int[] (unknown length side)")
	}
	a3 := NewArray(NewInt(Int, false), 4)
	if Compatible(a1, a3) {
		t.Fatal("int[5] should not be compatible with int[4]")
	}
}

func TestCompatibleRecordsByTag(t *testing.T) {
	s1 := NewRecordTag("Point", false)
	s2 := NewRecordTag("Point", false)
	if !Compatible(s1, s2) {
		t.Fatal("struct Point should be compatible with another struct Point (same tag)")
	}
	s3 := NewRecordTag("Other", false)
	if Compatible(s1, s3) {
		t.Fatal("struct Point should not be compatible with struct Other")
	}
}

func TestEnumCompatibleWithInt(t *testing.T) {
	e := NewEnumTag("Color")
	i := NewInt(Int, false)
	if !Compatible(e, i) || !Compatible(i, e) {
		t.Fatal("enum should be compatible with (signed) int in both directions")
	}
	u := NewInt(Int, true)
	if Compatible(e, u) {
		t.Fatal("enum should not be compatible with unsigned int")
	}
}

func TestUsualArithmeticConversions(t *testing.T) {
	i := NewInt(Int, false)
	d := NewFloat(Double)
	if got := UsualArithmeticConversions(i, d); got.Kind != FloatKind || got.FloatRank != Double {
		t.Fatalf("int+double common type = %s, want double", got)
	}
	l := NewInt(Long, false)
	if got := UsualArithmeticConversions(i, l); got.Kind != IntegerKind || got.IntRank != Long {
		t.Fatalf("int+long common type = %s, want long", got)
	}
	ch := NewInt(Char, false)
	if got := UsualArithmeticConversions(ch, ch); got.IntRank != Int {
		t.Fatalf("char+char should promote to int, got %s", got)
	}
}

func TestDecay(t *testing.T) {
	arr := NewArray(NewInt(Int, false), 10)
	dec := arr.Decay()
	if !dec.IsPointer() || !Compatible(dec.Elem, NewInt(Int, false)) {
		t.Fatalf("array decay = %s, want int*", dec)
	}
	fn := NewFunction(NewVoid(), nil, false)
	decFn := fn.Decay()
	if !decFn.IsPointer() || decFn.Elem.Kind != FunctionKind {
		t.Fatalf("function decay = %s, want pointer-to-function", decFn)
	}
}

func TestConvertKind(t *testing.T) {
	i := NewInt(Int, false)
	d := NewFloat(Double)
	if got := ConvertKind(i, d); got != ConvIntToFloat {
		t.Fatalf("int->double = %v, want ConvIntToFloat", got)
	}
	if got := ConvertKind(d, i); got != ConvFloatToInt {
		t.Fatalf("double->int = %v, want ConvFloatToInt", got)
	}
	c := NewInt(Char, false)
	if got := ConvertKind(c, i); got != ConvIntExtend {
		t.Fatalf("char->int = %v, want ConvIntExtend", got)
	}
	if got := ConvertKind(i, c); got != ConvIntTrunc {
		t.Fatalf("int->char = %v, want ConvIntTrunc", got)
	}
	if got := ConvertKind(i, i); got != ConvNone {
		t.Fatalf("int->int = %v, want ConvNone", got)
	}
	p := NewPointer(NewVoid())
	if got := ConvertKind(p, i); got != ConvPtrToInt {
		t.Fatalf("pointer->int = %v, want ConvPtrToInt", got)
	}
	if got := ConvertKind(i, p); got != ConvIntToPtr {
		t.Fatalf("int->pointer = %v, want ConvIntToPtr", got)
	}
}

func TestTypeStringRendering(t *testing.T) {
	p := NewPointer(NewInt(Char, false))
	if got := p.String(); got != "char*" {
		t.Fatalf("char* renders as %q", got)
	}
	arr := NewArray(NewInt(Int, false), 3)
	if got := arr.String(); got != "int[3]" {
		t.Fatalf("int[3] renders as %q", got)
	}
	u := NewInt(Int, true)
	if got := u.String(); got != "unsigned int" {
		t.Fatalf("unsigned int renders as %q", got)
	}
}
