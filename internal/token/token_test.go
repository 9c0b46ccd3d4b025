package token

import "testing"

func TestLookupKeyword(t *testing.T) {
	cases := []struct {
		ident string
		want  Kind
		ok    bool
	}{
		{"int", KwInt, true},
		{"struct", KwStruct, true},
		{"while", KwWhile, true},
		{"foo", Invalid, false},
		{"printf", Invalid, false},
	}
	for _, c := range cases {
		got, ok := LookupKeyword(c.ident)
		if ok != c.ok {
			t.Fatalf("LookupKeyword(%q) ok = %v, want %v", c.ident, ok, c.ok)
		}
		if ok && got != c.want {
			t.Fatalf("LookupKeyword(%q) = %v, want %v", c.ident, got, c.want)
		}
	}
}

func TestIsKeyword(t *testing.T) {
	if !IsKeyword(KwInt) {
		t.Fatal("KwInt should be a keyword")
	}
	if IsKeyword(Identifier) {
		t.Fatal("Identifier should not be a keyword")
	}
	if IsKeyword(Plus) {
		t.Fatal("Plus should not be a keyword")
	}
}

func TestIsLiteral(t *testing.T) {
	for _, k := range []Kind{IntLiteral, FloatLiteral, CharLiteral, StringLiteral} {
		if !IsLiteral(k) {
			t.Fatalf("%v should be a literal kind", k)
		}
	}
	if IsLiteral(Identifier) {
		t.Fatal("Identifier should not be a literal kind")
	}
}

func TestPrecedenceTable(t *testing.T) {
	mulP, ok := Precedence(Star)
	if !ok {
		t.Fatal("Star should have a precedence")
	}
	addP, ok := Precedence(Plus)
	if !ok {
		t.Fatal("Plus should have a precedence")
	}
	if mulP <= addP {
		t.Fatalf("* should bind tighter than +: mul=%d add=%d", mulP, addP)
	}
	orP, _ := Precedence(OrOr)
	andP, _ := Precedence(AndAnd)
	if orP >= andP {
		t.Fatalf("|| should bind looser than &&: or=%d and=%d", orP, andP)
	}
	if _, ok := Precedence(Assign); ok {
		t.Fatal("Assign is not modeled as a binary operator in this table")
	}
}

func TestIsAssignment(t *testing.T) {
	for _, k := range []Kind{Assign, PlusEq, MinusEq, StarEq, SlashEq, PercentEq, AmpEq, PipeEq, CaretEq, ShlEq, ShrEq} {
		if !IsAssignment(k) {
			t.Fatalf("%v should be an assignment operator", k)
		}
	}
	if IsAssignment(Eq) {
		t.Fatal("== is comparison, not assignment")
	}
}

func TestKindStringKnownAndUnknown(t *testing.T) {
	if KwInt.String() != "int" {
		t.Fatalf("KwInt.String() = %q", KwInt.String())
	}
	if s := Kind(99999).String(); s != "Kind(?)" {
		t.Fatalf("unknown kind should render as Kind(?), got %q", s)
	}
}
