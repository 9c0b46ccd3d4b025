package main

import (
	"fmt"
	"strings"

	"github.com/cdd-lang/cddc/internal/lexer"
	"github.com/cdd-lang/cddc/internal/token"
)

// renderTokens implements the `-l` flag's contract (SPEC_FULL.md
// Section 2): one line per token, `line:col  KIND  lexeme`.
func renderTokens(lex *lexer.Lexer) string {
	var b strings.Builder
	for {
		tok := lex.Next()
		fmt.Fprintf(&b, "%d:%d\t%s\t%s\n", tok.Pos.Line, tok.Pos.Column, tok.Kind, tok.Lexeme)
		if tok.Kind == token.EOF {
			break
		}
	}
	return b.String()
}
