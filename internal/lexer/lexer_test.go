package lexer

import (
	"testing"

	"github.com/cdd-lang/cddc/internal/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New("t.c", []byte(src))
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "int foo_bar while2")
	want := []token.Kind{token.KwInt, token.Identifier, token.Identifier, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[2].Lexeme != "while2" {
		t.Fatalf("identifier lexeme = %q", toks[2].Lexeme)
	}
}

func TestIntegerLiteralBasesAndSuffixes(t *testing.T) {
	cases := []struct {
		src      string
		value    int64
		unsigned bool
		long     bool
		longlong bool
	}{
		{"42", 42, false, false, false},
		{"0x2A", 42, false, false, false},
		{"0b101010", 42, false, false, false},
		{"052", 42, false, false, false}, // octal
		{"42u", 42, true, false, false},
		{"42UL", 42, true, true, false},
		{"42LLU", 42, true, true, true},
		{"42ll", 42, false, true, true},
	}
	for _, c := range cases {
		toks := scanAll(t, c.src)
		got := toks[0]
		if got.Kind != token.IntLiteral {
			t.Fatalf("%q: kind = %v, want IntLiteral", c.src, got.Kind)
		}
		if got.IntValue != c.value {
			t.Fatalf("%q: value = %d, want %d", c.src, got.IntValue, c.value)
		}
		if got.IntFlags.Unsigned != c.unsigned || got.IntFlags.Long != c.long || got.IntFlags.LongLong != c.longlong {
			t.Fatalf("%q: flags = %+v", c.src, got.IntFlags)
		}
	}
}

func TestFloatLiteralAndSuffix(t *testing.T) {
	toks := scanAll(t, "3.14 2e10 1.5f .5")
	if toks[0].Kind != token.FloatLiteral || toks[0].FloatValue != 3.14 {
		t.Fatalf("3.14 -> %+v", toks[0])
	}
	if toks[1].Kind != token.FloatLiteral || toks[1].FloatValue != 2e10 {
		t.Fatalf("2e10 -> %+v", toks[1])
	}
	if toks[2].Kind != token.FloatLiteral || !toks[2].IsFloat32 {
		t.Fatalf("1.5f should be a float32 literal: %+v", toks[2])
	}
	if toks[3].Kind != token.FloatLiteral || toks[3].FloatValue != 0.5 {
		t.Fatalf(".5 -> %+v", toks[3])
	}
}

func TestStringLiteralEscapes(t *testing.T) {
	toks := scanAll(t, `"hi\n\t\x41\101"`)
	got := toks[0]
	if got.Kind != token.StringLiteral {
		t.Fatalf("kind = %v, want StringLiteral", got.Kind)
	}
	want := "hi\n\t" + "A" + "A" // \x41 -> 'A', \101 (octal) -> 'A'
	if string(got.StrValue) != want {
		t.Fatalf("decoded string = %q, want %q", got.StrValue, want)
	}
}

func TestCharLiteral(t *testing.T) {
	toks := scanAll(t, `'a' '\n' '\0'`)
	if toks[0].CharValue != 'a' {
		t.Fatalf("'a' -> %v", toks[0].CharValue)
	}
	if toks[1].CharValue != '\n' {
		t.Fatalf("'\\n' -> %v", toks[1].CharValue)
	}
	if toks[2].CharValue != 0 {
		t.Fatalf("'\\0' -> %v", toks[2].CharValue)
	}
}

func TestMultiCharLiteralIsDiagnosed(t *testing.T) {
	l := New("t.c", []byte(`'ab'`))
	l.Next()
	if len(l.Errors()) == 0 {
		t.Fatal("multi-character literal should record a diagnostic")
	}
}

func TestLineAndBlockComments(t *testing.T) {
	toks := scanAll(t, "int /* comment\nspanning lines */ x; // trailing\ny;")
	kinds := make([]token.Kind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []token.Kind{token.KwInt, token.Identifier, token.Semicolon, token.Identifier, token.Semicolon, token.EOF}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
}

func TestUnterminatedBlockCommentIsDiagnosed(t *testing.T) {
	l := New("t.c", []byte("/* never closed"))
	l.Next()
	if len(l.Errors()) == 0 {
		t.Fatal("unterminated block comment should record a diagnostic")
	}
}

func TestMultiCharacterPunctuators(t *testing.T) {
	toks := scanAll(t, "<<= >>= -> ++ -- <= >= == != && || ...")
	want := []token.Kind{
		token.ShlEq, token.ShrEq, token.Arrow, token.PlusPlus, token.MinusMinus,
		token.LtEq, token.GtEq, token.Eq, token.NotEq, token.AndAnd, token.OrOr,
		token.Ellipsis, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestShiftWithoutEqualsStaysShift(t *testing.T) {
	toks := scanAll(t, "a << b")
	if toks[1].Kind != token.Shl {
		t.Fatalf("<< alone should lex as Shl, got %v", toks[1].Kind)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New("t.c", []byte("int x"))
	p1 := l.Peek()
	p2 := l.Peek()
	if p1.Kind != token.KwInt || p2.Kind != token.KwInt {
		t.Fatalf("Peek should repeatedly return the same token: %v %v", p1, p2)
	}
	n := l.Next()
	if n.Kind != token.KwInt {
		t.Fatalf("Next after Peek should return the peeked token, got %v", n.Kind)
	}
	n2 := l.Next()
	if n2.Kind != token.Identifier {
		t.Fatalf("second Next should advance past the peeked token, got %v", n2.Kind)
	}
}

func TestStrayByteIsDiagnosedAndResynchronizes(t *testing.T) {
	l := New("t.c", []byte("a `$ b"))
	toks := []token.Token{l.Next(), l.Next(), l.Next()}
	if len(l.Errors()) == 0 {
		t.Fatal("stray byte should be recorded as a lexical diagnostic")
	}
	if toks[2].Kind != token.Identifier || toks[2].Lexeme != "b" {
		t.Fatalf("lexer should resynchronize and continue scanning: %v", toks)
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	toks := scanAll(t, "int\nx;")
	// "x" is on line 2, column 1.
	if toks[1].Pos.Line != 2 || toks[1].Pos.Column != 1 {
		t.Fatalf("x position = %+v, want line 2 column 1", toks[1].Pos)
	}
}
