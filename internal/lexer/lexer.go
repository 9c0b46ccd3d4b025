// Package lexer turns a byte buffer into a token stream per spec 4.1: a
// single DFA covering whitespace, identifiers, the four numeric bases,
// char/string literals with escapes, comments, and the punctuator/operator
// prefix states, byte-indexed, with rewind-on-failure and keyword
// rewriting as a post-pass over accepted identifiers.
package lexer

import (
	"strconv"

	"github.com/cdd-lang/cddc/internal/source"
	"github.com/cdd-lang/cddc/internal/token"
)

// Lexer scans one immutable byte buffer. Zero value is not usable; build
// with New.
type Lexer struct {
	file string
	src  []byte

	offset int // current byte offset (one past last read byte)
	line   int
	col    int
	diags  source.Collector
	peeked *token.Token
}

// New builds a Lexer over src, attributing diagnostics and positions to
// file.
func New(file string, src []byte) *Lexer {
	return &Lexer{file: file, src: src, line: 1, col: 1}
}

// Errors returns every lexical diagnostic recorded so far; callers
// typically inspect this after driving the lexer to EOF.
func (l *Lexer) Errors() []source.Diagnostic {
	return l.diags.Diagnostics()
}

func (l *Lexer) pos() source.Position {
	return source.Position{File: l.file, Line: l.line, Column: l.col, Offset: l.offset}
}

// byteAt returns the byte at offset off and true, or 0 and false when off
// is outside the input.
func (l *Lexer) byteAt(off int) (byte, bool) {
	if off < 0 || off >= len(l.src) {
		return 0, false
	}
	return l.src[off], true
}

func (l *Lexer) current() (byte, bool) { return l.byteAt(l.offset) }
func (l *Lexer) lookahead(n int) (byte, bool) { return l.byteAt(l.offset + n) }

// advance consumes the current byte, updating line/column (handling \n
// and \r\n), and returns it.
func (l *Lexer) advance() byte {
	b := l.src[l.offset]
	l.offset++
	if b == '\n' {
		l.line++
		l.col = 1
	} else if b == '\r' {
		// \r\n is collapsed into a single newline by not bumping line on \r;
		// the following \n (if present) does the bump.
		if nb, ok := l.current(); ok && nb == '\n' {
			// leave line/col alone here; \n branch above will fire next call
		} else {
			l.line++
			l.col = 1
		}
	} else {
		l.col++
	}
	return b
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool   { return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') }
func isOctalDigit(b byte) bool { return b >= '0' && b <= '7' }
func isBinaryDigit(b byte) bool { return b == '0' || b == '1' }
func isIdentStart(b byte) bool { return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isIdentCont(b byte) bool  { return isIdentStart(b) || isDigit(b) }

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() token.Token {
	if l.peeked == nil {
		t := l.scan()
		l.peeked = &t
	}
	return *l.peeked
}

// Next consumes and returns the next token.
func (l *Lexer) Next() token.Token {
	if l.peeked != nil {
		t := *l.peeked
		l.peeked = nil
		return t
	}
	return l.scan()
}

// scan implements the whitespace/comment-skipping loop, then dispatches
// on the first significant byte to the state that owns it.
func (l *Lexer) scan() token.Token {
	for {
		l.skipWhitespace()
		if !l.skipComment() {
			break
		}
	}

	start := l.pos()
	b, ok := l.current()
	if !ok {
		return token.Token{Kind: token.EOF, Pos: start}
	}

	switch {
	case isIdentStart(b):
		return l.scanIdentifier(start)
	case isDigit(b):
		return l.scanNumber(start)
	case b == '.':
		if nb, ok2 := l.lookahead(1); ok2 && isDigit(nb) {
			return l.scanNumber(start)
		}
		return l.scanDotOrEllipsis(start)
	case b == '\'':
		return l.scanChar(start)
	case b == '"':
		return l.scanString(start)
	default:
		return l.scanPunct(start)
	}
}

func (l *Lexer) skipWhitespace() {
	for {
		b, ok := l.current()
		if !ok {
			return
		}
		switch b {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			l.advance()
		default:
			return
		}
	}
}

// skipComment consumes one line or block comment starting at the current
// position, if any, and reports whether it consumed anything (the caller
// loops skipWhitespace/skipComment until a pass consumes nothing).
func (l *Lexer) skipComment() bool {
	b, ok := l.current()
	if !ok || b != '/' {
		return false
	}
	nb, ok2 := l.lookahead(1)
	if !ok2 {
		return false
	}
	switch nb {
	case '/':
		l.advance()
		l.advance()
		for {
			b, ok := l.current()
			if !ok || b == '\n' {
				return true
			}
			l.advance()
		}
	case '*':
		start := l.pos()
		l.advance()
		l.advance()
		for {
			b, ok := l.current()
			if !ok {
				l.diags.Errorf(start, source.Lexical, "unterminated block comment")
				return true
			}
			if b == '*' {
				if nb2, ok2 := l.lookahead(1); ok2 && nb2 == '/' {
					l.advance()
					l.advance()
					return true
				}
			}
			l.advance()
		}
	default:
		return false
	}
}

func (l *Lexer) scanIdentifier(start source.Position) token.Token {
	begin := l.offset
	for {
		b, ok := l.current()
		if !ok || !isIdentCont(b) {
			break
		}
		l.advance()
	}
	lexeme := string(l.src[begin:l.offset])
	kind := token.Identifier
	if kw, ok := token.LookupKeyword(lexeme); ok {
		kind = kw
	}
	return token.Token{Kind: kind, Pos: start, Lexeme: lexeme}
}

// scanNumber covers integer literals in all four bases plus decimal
// floating-point literals (a '.' fraction and/or an 'e'/'E' exponent); an
// 'e'/'E' with no exponent digits after it is rewound and left out of the
// token. Hex and binary literals are integer-only: a '.' or 'p'/'P' after
// their digits is not part of the token.
func (l *Lexer) scanNumber(start source.Position) token.Token {
	begin := l.offset
	isFloat := false

	if b, ok := l.current(); ok && b == '0' {
		if nb, ok2 := l.lookahead(1); ok2 && (nb == 'x' || nb == 'X') {
			l.advance()
			l.advance()
			hexBegin := l.offset
			for {
				b, ok := l.current()
				if !ok || !isHexDigit(b) {
					break
				}
				l.advance()
			}
			if l.offset == hexBegin {
				l.diags.Errorf(start, source.Lexical, "invalid digit for hex literal")
			}
			lexeme := string(l.src[begin:l.offset])
			flags, rest := l.scanIntSuffix()
			lexeme += rest
			v, err := strconv.ParseUint(lexeme[2:len(lexeme)-len(rest)], 16, 64)
			if err != nil {
				l.diags.Errorf(start, source.Lexical, "invalid hex integer literal %q", lexeme)
			}
			return token.Token{Kind: token.IntLiteral, Pos: start, Lexeme: lexeme, IntValue: int64(v), IntFlags: flags}
		}
		if nb, ok2 := l.lookahead(1); ok2 && (nb == 'b' || nb == 'B') {
			l.advance()
			l.advance()
			binBegin := l.offset
			for {
				b, ok := l.current()
				if !ok || !isBinaryDigit(b) {
					break
				}
				l.advance()
			}
			if l.offset == binBegin {
				l.diags.Errorf(start, source.Lexical, "invalid digit for binary literal")
			}
			lexeme := string(l.src[begin:l.offset])
			flags, rest := l.scanIntSuffix()
			lexeme += rest
			v, err := strconv.ParseUint(lexeme[2:len(lexeme)-len(rest)], 2, 64)
			if err != nil {
				l.diags.Errorf(start, source.Lexical, "invalid binary integer literal %q", lexeme)
			}
			return token.Token{Kind: token.IntLiteral, Pos: start, Lexeme: lexeme, IntValue: int64(v), IntFlags: flags}
		}
	}

	// decimal/octal/float mantissa
	for {
		b, ok := l.current()
		if !ok || !isDigit(b) {
			break
		}
		l.advance()
	}
	if b, ok := l.current(); ok && b == '.' {
		isFloat = true
		l.advance()
		for {
			b, ok := l.current()
			if !ok || !isDigit(b) {
				break
			}
			l.advance()
		}
	}
	if b, ok := l.current(); ok && (b == 'e' || b == 'E') {
		save, saveCol := l.offset, l.col
		l.advance()
		if b2, ok2 := l.current(); ok2 && (b2 == '+' || b2 == '-') {
			l.advance()
		}
		digits := 0
		for {
			b, ok := l.current()
			if !ok || !isDigit(b) {
				break
			}
			l.advance()
			digits++
		}
		if digits == 0 {
			// not actually an exponent; rewind (no newline can occur in
			// the consumed span, so restoring the column is enough)
			l.offset, l.col = save, saveCol
		} else {
			isFloat = true
		}
	}

	if isFloat {
		hasF := false
		if b, ok := l.current(); ok && (b == 'f' || b == 'F') {
			l.advance()
			hasF = true
		}
		lexeme := string(l.src[begin:l.offset])
		mantissa := lexeme
		if hasF {
			mantissa = lexeme[:len(lexeme)-1]
		}
		v, err := strconv.ParseFloat(mantissa, 64)
		if err != nil {
			l.diags.Errorf(start, source.Lexical, "invalid floating-point literal %q", lexeme)
		}
		return token.Token{Kind: token.FloatLiteral, Pos: start, Lexeme: lexeme, FloatValue: v, IsFloat32: hasF}
	}

	lexeme := string(l.src[begin:l.offset])
	flags, suffix := l.scanIntSuffix()
	lexeme += suffix
	digits := lexeme[:len(lexeme)-len(suffix)]
	base := 10
	if len(digits) > 1 && digits[0] == '0' {
		base = 8
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		l.diags.Errorf(start, source.Lexical, "invalid digit for base-%d literal %q", base, digits)
	}
	return token.Token{Kind: token.IntLiteral, Pos: start, Lexeme: lexeme, IntValue: int64(v), IntFlags: flags}
}

// scanIntSuffix consumes any combination of u/U and l/L or ll/LL, in
// any order, and reports the resulting flags plus the raw suffix text
// consumed (for lexeme reconstruction).
func (l *Lexer) scanIntSuffix() (token.IntFlags, string) {
	var flags token.IntFlags
	begin := l.offset
	for {
		b, ok := l.current()
		if !ok {
			break
		}
		switch b {
		case 'u', 'U':
			flags.Unsigned = true
			l.advance()
		case 'l', 'L':
			if flags.Long {
				flags.LongLong = true
				l.advance()
			} else {
				flags.Long = true
				l.advance()
			}
		default:
			return flags, string(l.src[begin:l.offset])
		}
	}
	return flags, string(l.src[begin:l.offset])
}

func (l *Lexer) scanDotOrEllipsis(start source.Position) token.Token {
	l.advance() // '.'
	if b, ok := l.current(); ok && b == '.' {
		if nb, ok2 := l.lookahead(1); ok2 && nb == '.' {
			l.advance()
			l.advance()
			return token.Token{Kind: token.Ellipsis, Pos: start, Lexeme: "..."}
		}
	}
	return token.Token{Kind: token.Dot, Pos: start, Lexeme: "."}
}

// decodeEscape decodes one backslash escape starting just after the
// backslash; returns the decoded byte and whether decoding succeeded.
func (l *Lexer) decodeEscape(escStart source.Position) (byte, bool) {
	b, ok := l.current()
	if !ok {
		l.diags.Errorf(escStart, source.Lexical, "unterminated escape sequence")
		return 0, false
	}
	switch b {
	case 'n':
		l.advance()
		return '\n', true
	case 't':
		l.advance()
		return '\t', true
	case 'r':
		l.advance()
		return '\r', true
	case '0':
		// could be start of an octal escape; fall through to octal handling
	case 'a':
		l.advance()
		return '\a', true
	case 'b':
		l.advance()
		return '\b', true
	case 'f':
		l.advance()
		return '\f', true
	case 'v':
		l.advance()
		return '\v', true
	case '\\', '\'', '"', '?':
		l.advance()
		return b, true
	case 'x':
		l.advance()
		var v int
		digits := 0
		for digits < 2 {
			hb, ok := l.current()
			if !ok || !isHexDigit(hb) {
				break
			}
			v = v*16 + hexVal(hb)
			l.advance()
			digits++
		}
		if digits == 0 {
			l.diags.Errorf(escStart, source.Lexical, "invalid \\x escape: no hex digits")
			return 0, false
		}
		return byte(v), true
	}
	if isOctalDigit(b) {
		var v int
		digits := 0
		for digits < 3 {
			ob, ok := l.current()
			if !ok || !isOctalDigit(ob) {
				break
			}
			v = v*8 + int(ob-'0')
			l.advance()
			digits++
		}
		return byte(v), true
	}
	l.diags.Errorf(escStart, source.Lexical, "invalid escape sequence '\\%c'", b)
	l.advance()
	return 0, false
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	default:
		return int(b-'A') + 10
	}
}

func (l *Lexer) scanChar(start source.Position) token.Token {
	l.advance() // opening '
	var value byte
	count := 0
	for {
		b, ok := l.current()
		if !ok {
			l.diags.Errorf(start, source.Lexical, "unterminated character literal")
			return token.Token{Kind: token.Invalid, Pos: start, Lexeme: string(l.src[start.Offset:l.offset])}
		}
		if b == '\'' {
			l.advance()
			break
		}
		if b == '\n' {
			l.diags.Errorf(start, source.Lexical, "unterminated character literal")
			break
		}
		escPos := l.pos()
		if b == '\\' {
			l.advance()
			v, ok := l.decodeEscape(escPos)
			if count == 0 {
				value = v
			} else if ok {
				l.diags.Errorf(start, source.Lexical, "multi-character character literal")
			}
			count++
			continue
		}
		l.advance()
		if count == 0 {
			value = b
		} else {
			l.diags.Errorf(start, source.Lexical, "multi-character character literal")
		}
		count++
	}
	if count == 0 {
		l.diags.Errorf(start, source.Lexical, "empty character literal")
	}
	lexeme := string(l.src[start.Offset:l.offset])
	return token.Token{Kind: token.CharLiteral, Pos: start, Lexeme: lexeme, CharValue: value}
}

func (l *Lexer) scanString(start source.Position) token.Token {
	l.advance() // opening "
	var buf []byte
	for {
		b, ok := l.current()
		if !ok {
			l.diags.Errorf(start, source.Lexical, "unterminated string literal")
			break
		}
		if b == '"' {
			l.advance()
			break
		}
		if b == '\n' {
			l.diags.Errorf(start, source.Lexical, "unterminated string literal")
			break
		}
		if b == '\\' {
			escPos := l.pos()
			l.advance()
			if v, ok := l.decodeEscape(escPos); ok {
				buf = append(buf, v)
			}
			continue
		}
		l.advance()
		buf = append(buf, b)
	}
	lexeme := string(l.src[start.Offset:l.offset])
	return token.Token{Kind: token.StringLiteral, Pos: start, Lexeme: lexeme, StrValue: buf}
}

// twoByteRule is one entry of twoByteTable, the prefix-state table for
// every two-character operator: the table maps a first byte to the set
// of second bytes that extend it, and the resulting Kind.
type twoByteRule struct {
	second byte
	kind   token.Kind
}

var twoByteTable = map[byte][]twoByteRule{
	'+': {{'+', token.PlusPlus}, {'=', token.PlusEq}},
	'-': {{'-', token.MinusMinus}, {'=', token.MinusEq}, {'>', token.Arrow}},
	'*': {{'=', token.StarEq}},
	'/': {{'=', token.SlashEq}},
	'%': {{'=', token.PercentEq}},
	'=': {{'=', token.Eq}},
	'!': {{'=', token.NotEq}},
	'<': {{'=', token.LtEq}, {'<', token.Shl}},
	'>': {{'=', token.GtEq}, {'>', token.Shr}},
	'&': {{'&', token.AndAnd}, {'=', token.AmpEq}},
	'|': {{'|', token.OrOr}, {'=', token.PipeEq}},
	'^': {{'=', token.CaretEq}},
}

var singleByteTable = map[byte]token.Kind{
	'+': token.Plus, '-': token.Minus, '*': token.Star, '/': token.Slash, '%': token.Percent,
	'<': token.Lt, '>': token.Gt, '&': token.Amp, '|': token.Pipe, '^': token.Caret,
	'~': token.Tilde, '!': token.Not, '=': token.Assign,
	'(': token.LParen, ')': token.RParen, '{': token.LBrace, '}': token.RBrace,
	'[': token.LBracket, ']': token.RBracket, ';': token.Semicolon, ':': token.Colon,
	',': token.Comma, '.': token.Dot,
}

// scanPunct implements the prefix states for every multi-character
// punctuator/operator, including the three-character compound shifts
// (<<= and >>=).
func (l *Lexer) scanPunct(start source.Position) token.Token {
	b := l.advance()

	if rules, ok := twoByteTable[b]; ok {
		if nb, ok2 := l.current(); ok2 {
			for _, r := range rules {
				if r.second == nb {
					l.advance()
					kind := r.kind
					// three-byte compound shift-assign
					if kind == token.Shl || kind == token.Shr {
						if nb2, ok3 := l.current(); ok3 && nb2 == '=' {
							l.advance()
							if kind == token.Shl {
								kind = token.ShlEq
							} else {
								kind = token.ShrEq
							}
						}
					}
					return token.Token{Kind: kind, Pos: start, Lexeme: string(l.src[start.Offset:l.offset])}
				}
			}
		}
	}

	if k, ok := singleByteTable[b]; ok {
		return token.Token{Kind: k, Pos: start, Lexeme: string(l.src[start.Offset:l.offset])}
	}

	if b == '?' {
		return token.Token{Kind: token.Question, Pos: start, Lexeme: "?"}
	}

	l.diags.Errorf(start, source.Lexical, "stray byte %q in program", b)
	// resynchronize at next whitespace, per spec 4.1's recovery rule
	for {
		nb, ok := l.current()
		if !ok || nb == ' ' || nb == '\t' || nb == '\n' || nb == '\r' {
			break
		}
		l.advance()
	}
	return token.Token{Kind: token.Invalid, Pos: start, Lexeme: string(l.src[start.Offset:l.offset])}
}
