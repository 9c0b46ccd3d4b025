// Package parser is a recursive-descent parser from the CDD token
// stream (internal/lexer/internal/token) to the AST spec 3 describes.
// The spec's component table has no dedicated "parser" section (the AST
// shape is given directly), so this package's shape is grounded on
// tinyrange-rtg/std/compiler/parser.go's peek/advance/at/match/expect
// idiom and its precedence-climbing parseBinaryExpr, adapted to C
// declarator syntax instead of Go's.
package parser

import (
	"github.com/cdd-lang/cddc/internal/ast"
	"github.com/cdd-lang/cddc/internal/source"
	"github.com/cdd-lang/cddc/internal/token"
	"github.com/cdd-lang/cddc/internal/types"
)

// Lexer is the minimal surface parser needs from internal/lexer, kept as
// an interface so tests can feed a canned token list.
type Lexer interface {
	Next() token.Token
	Errors() []source.Diagnostic
}

// Parser buffers tokens pulled from the lexer itself rather than relying
// on the lexer's own one-token Peek, since disambiguating a label
// statement (`ident:`) from an expression statement needs to see two
// tokens ahead.
type Parser struct {
	lex      Lexer
	buf      []token.Token
	diags    source.Collector
	typedefs map[string]bool
}

func New(lex Lexer) *Parser {
	return &Parser{lex: lex, typedefs: map[string]bool{}}
}

func (p *Parser) Diagnostics() []source.Diagnostic {
	var all []source.Diagnostic
	all = append(all, p.lex.Errors()...)
	all = append(all, p.diags.Diagnostics()...)
	return all
}

// fill ensures at least n+1 tokens are buffered.
func (p *Parser) fill(n int) {
	for len(p.buf) <= n {
		p.buf = append(p.buf, p.lex.Next())
	}
}

func (p *Parser) peekN(n int) token.Token {
	p.fill(n)
	return p.buf[n]
}

func (p *Parser) peek() token.Token { return p.peekN(0) }

func (p *Parser) advance() token.Token {
	p.fill(0)
	t := p.buf[0]
	p.buf = p.buf[1:]
	return t
}

func (p *Parser) at(k token.Kind) bool { return p.peek().Kind == k }

func (p *Parser) match(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *Parser) expect(k token.Kind) token.Token {
	if p.at(k) {
		return p.advance()
	}
	t := p.peek()
	p.diags.Errorf(t.Pos, source.Syntactic, "expected %s, found %s %q", k, t.Kind, t.Lexeme)
	p.syncToStatementEnd()
	return t
}

// syncToStatementEnd implements spec 7's syntactic-error recovery:
// "report, skip to next statement terminator".
func (p *Parser) syncToStatementEnd() {
	for {
		t := p.peek()
		if t.Kind == token.EOF || t.Kind == token.Semicolon || t.Kind == token.RBrace {
			return
		}
		p.advance()
	}
}

// ParseTranslationUnit parses a full file.
func (p *Parser) ParseTranslationUnit() *ast.TranslationUnit {
	tu := &ast.TranslationUnit{}
	for !p.at(token.EOF) {
		d := p.parseExternalDecl()
		if d != nil {
			tu.Decls = append(tu.Decls, d...)
		}
	}
	return tu
}

// ---- declarations -------------------------------------------------

func isTypeKeyword(k token.Kind) bool {
	switch k {
	case token.KwVoid, token.KwChar, token.KwShort, token.KwInt, token.KwLong,
		token.KwFloat, token.KwDouble, token.KwSigned, token.KwUnsigned,
		token.KwStruct, token.KwUnion, token.KwEnum, token.KwConst, token.KwVolatile:
		return true
	default:
		return false
	}
}

func isStorageKeyword(k token.Kind) bool {
	switch k {
	case token.KwStatic, token.KwExtern, token.KwRegister, token.KwAuto, token.KwTypedef:
		return true
	default:
		return false
	}
}

func (p *Parser) startsDeclaration() bool {
	t := p.peek()
	if isTypeKeyword(t.Kind) || isStorageKeyword(t.Kind) {
		return true
	}
	if t.Kind == token.Identifier && p.typedefs[t.Lexeme] {
		return true
	}
	return false
}

// declSpec is the parsed, not-yet-wrapped base type plus storage class
// and record/enum side declarations produced along the way.
type declSpec struct {
	base       *types.Type
	storage    string
	isTypedef  bool
	qual       types.Qualifiers
	extraDecls []ast.Decl // struct/union/enum decls encountered inline
}

func (p *Parser) parseDeclSpec() declSpec {
	var spec declSpec
	var unsigned, signed bool
	longCount := 0
	var kind token.Kind
	haveKind := false

	for {
		t := p.peek()
		switch t.Kind {
		case token.KwStatic, token.KwExtern, token.KwRegister, token.KwAuto:
			p.advance()
			spec.storage = t.Lexeme
			continue
		case token.KwTypedef:
			p.advance()
			spec.isTypedef = true
			continue
		case token.KwConst:
			p.advance()
			spec.qual.Const = true
			continue
		case token.KwVolatile:
			p.advance()
			spec.qual.Volatile = true
			continue
		case token.KwUnsigned:
			p.advance()
			unsigned = true
			continue
		case token.KwSigned:
			p.advance()
			signed = true
			continue
		case token.KwLong:
			p.advance()
			longCount++
			continue
		case token.KwVoid, token.KwChar, token.KwShort, token.KwInt, token.KwFloat, token.KwDouble:
			p.advance()
			kind = t.Kind
			haveKind = true
			continue
		case token.KwStruct, token.KwUnion:
			decl := p.parseRecordDecl(t.Kind == token.KwUnion)
			spec.extraDecls = append(spec.extraDecls, *decl)
			spec.base = decl.ResolvedType
			haveKind = true
			continue
		case token.KwEnum:
			decl := p.parseEnumDecl()
			spec.extraDecls = append(spec.extraDecls, *decl)
			spec.base = decl.ResolvedType
			haveKind = true
			continue
		case token.Identifier:
			if p.typedefs[t.Lexeme] && spec.base == nil && !haveKind {
				p.advance()
				// A typedef name stands for its underlying type; the
				// analyzer resolves the NamedKind leaf against the
				// symbol table's Typedef entries in its first pass.
				spec.base = types.NewNamed(t.Lexeme)
				haveKind = true
				continue
			}
		}
		break
	}

	if spec.base == nil {
		switch kind {
		case token.KwVoid:
			spec.base = types.NewVoid()
		case token.KwChar:
			spec.base = types.NewInt(types.Char, unsigned)
		case token.KwFloat:
			spec.base = types.NewFloat(types.Float)
		case token.KwDouble:
			if longCount > 0 {
				spec.base = types.NewFloat(types.LongDouble)
			} else {
				spec.base = types.NewFloat(types.Double)
			}
		case token.KwShort:
			spec.base = types.NewInt(types.Short, unsigned)
		default:
			rank := types.Int
			if longCount == 1 {
				rank = types.Long
			} else if longCount >= 2 {
				rank = types.LongLong
			}
			spec.base = types.NewInt(rank, unsigned)
		}
		_ = signed
	}
	spec.base = spec.base.WithQualifiers(spec.qual)
	return spec
}

// parseDeclarator parses the '*'-prefix and trailing '[' ']' suffixes
// around a name, per spec 3's TypeSpec shape (PointerN, ArrayLens).
func (p *Parser) parseDeclarator() (name string, ts ast.TypeSpec, pos source.Position) {
	for {
		if _, ok := p.match(token.Star); ok {
			ts.PointerN++
			continue
		}
		break
	}
	nameTok := p.peek()
	if nameTok.Kind == token.Identifier {
		p.advance()
		name = nameTok.Lexeme
		pos = nameTok.Pos
	} else {
		pos = nameTok.Pos
	}
	for p.at(token.LBracket) {
		p.advance()
		if p.at(token.RBracket) {
			ts.ArrayLens = append(ts.ArrayLens, types.UnknownLength)
		} else {
			n := p.parseConstIntLiteral()
			ts.ArrayLens = append(ts.ArrayLens, int(n))
		}
		p.expect(token.RBracket)
	}
	return name, ts, pos
}

// parseConstIntLiteral parses the compile-time integer constant that
// appears in a declarator (array bound). Only an integer literal is
// accepted as a bound; any other expression, constant or not, is reported
// as a ConstantEval error and the bound becomes 0. No later phase
// evaluates array bounds.
func (p *Parser) parseConstIntLiteral() int64 {
	e := p.parseConditional()
	if e.Kind == ast.ExprIntLit {
		return e.IntValue
	}
	// A non-literal bound gets a recorded diagnostic and a zero
	// placeholder length.
	p.diags.Errorf(e.Pos, source.ConstantEval, "array bound must be a constant expression")
	return 0
}

func (p *Parser) resolveTypeSpec(base *types.Type, ts ast.TypeSpec) *types.Type {
	t := base
	for i := 0; i < ts.PointerN; i++ {
		t = types.NewPointer(t)
	}
	for i := len(ts.ArrayLens) - 1; i >= 0; i-- {
		t = types.NewArray(t, ts.ArrayLens[i])
	}
	return t
}

func (p *Parser) parseExternalDecl() []ast.Decl {
	if !p.startsDeclaration() {
		t := p.peek()
		p.diags.Errorf(t.Pos, source.Syntactic, "expected declaration, found %s %q", t.Kind, t.Lexeme)
		p.advance()
		return nil
	}
	spec := p.parseDeclSpec()
	var out []ast.Decl
	out = append(out, spec.extraDecls...)

	if _, ok := p.match(token.Semicolon); ok {
		return out // e.g. `struct Point { ... };` with no variable declared
	}

	name, ts, pos := p.parseDeclarator()

	if p.at(token.LParen) {
		fn := p.parseFunctionTail(spec, name, ts, pos)
		out = append(out, *fn)
		return out
	}

	for {
		d := ast.Decl{Kind: ast.DeclVar, Pos: pos, Name: name, TypeSpec: ts, Storage: spec.storage}
		if spec.isTypedef {
			d.Kind = ast.DeclTypedef
		}
		if _, ok := p.match(token.Assign); ok {
			d.Init = p.parseInitializer()
		}
		d.ResolvedType = p.resolveTypeSpec(spec.base, ts)
		if spec.isTypedef {
			p.typedefs[name] = true
		}
		out = append(out, d)
		if _, ok := p.match(token.Comma); !ok {
			break
		}
		name, ts, pos = p.parseDeclarator()
	}
	p.expect(token.Semicolon)
	return out
}

func (p *Parser) parseFunctionTail(spec declSpec, name string, ts ast.TypeSpec, pos source.Position) *ast.Decl {
	p.expect(token.LParen)
	var params []*ast.Decl
	variadic := false
	if !p.at(token.RParen) {
		for {
			if _, ok := p.match(token.Ellipsis); ok {
				variadic = true
				break
			}
			pspec := p.parseDeclSpec()
			pname, pts, ppos := p.parseDeclarator()
			params = append(params, &ast.Decl{
				Kind: ast.DeclVar, Pos: ppos, Name: pname, TypeSpec: pts,
				ResolvedType: p.resolveTypeSpec(pspec.base, pts),
			})
			if _, ok := p.match(token.Comma); !ok {
				break
			}
		}
	}
	p.expect(token.RParen)

	// `f(void)` declares zero parameters, not one unnamed void parameter.
	if len(params) == 1 && params[0].Name == "" && params[0].ResolvedType != nil && params[0].ResolvedType.IsVoid() {
		params = nil
	}

	retType := p.resolveTypeSpec(spec.base, ts)
	decl := &ast.Decl{Kind: ast.DeclFunc, Pos: pos, Name: name, Storage: spec.storage, Params: params, Variadic: variadic, ResolvedType: retType}

	if _, ok := p.match(token.Semicolon); ok {
		return decl
	}
	decl.Body = p.parseCompoundStmt()
	return decl
}

func (p *Parser) parseRecordDecl(isUnion bool) *ast.Decl {
	kwPos := p.peek().Pos
	p.advance() // struct/union
	tag := ""
	if t, ok := p.match(token.Identifier); ok {
		tag = t.Lexeme
	}
	d := &ast.Decl{Kind: ast.DeclRecord, Pos: kwPos, Tag: tag, IsUnion: isUnion}
	if p.at(token.LBrace) {
		p.advance()
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			fspec := p.parseDeclSpec()
			for {
				fname, fts, fpos := p.parseDeclarator()
				d.Fields = append(d.Fields, &ast.Decl{
					Kind: ast.DeclField, Pos: fpos, Name: fname, TypeSpec: fts,
					ResolvedType: p.resolveTypeSpec(fspec.base, fts),
				})
				if _, ok := p.match(token.Comma); !ok {
					break
				}
			}
			p.expect(token.Semicolon)
		}
		p.expect(token.RBrace)
	}
	d.ResolvedType = types.NewRecordTag(tag, isUnion)
	return d
}

func (p *Parser) parseEnumDecl() *ast.Decl {
	kwPos := p.peek().Pos
	p.advance() // enum
	tag := ""
	if t, ok := p.match(token.Identifier); ok {
		tag = t.Lexeme
	}
	d := &ast.Decl{Kind: ast.DeclEnum, Pos: kwPos, EnumTag: tag}
	if p.at(token.LBrace) {
		p.advance()
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			nameTok := p.expect(token.Identifier)
			ec := &ast.Decl{Kind: ast.DeclEnumConst, Pos: nameTok.Pos, Name: nameTok.Lexeme}
			if _, ok := p.match(token.Assign); ok {
				ec.Value = p.parseConditional()
			}
			d.Enumerators = append(d.Enumerators, ec)
			if _, ok := p.match(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RBrace)
	}
	d.ResolvedType = types.NewEnumTag(tag)
	return d
}

// parseInitializer handles both scalar initializers and (nested) brace
// initializer lists, represented as an ExprInitList node.
func (p *Parser) parseInitializer() *ast.Expr {
	if p.at(token.LBrace) {
		pos := p.peek().Pos
		p.advance()
		e := &ast.Expr{Kind: ast.ExprInitList, Pos: pos}
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			e.Elems = append(e.Elems, p.parseInitializer())
			if _, ok := p.match(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RBrace)
		return e
	}
	return p.parseAssignment()
}

// ---- statements -----------------------------------------------------

func (p *Parser) parseCompoundStmt() *ast.Stmt {
	pos := p.expect(token.LBrace).Pos
	s := &ast.Stmt{Kind: ast.StmtCompound, Pos: pos}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		s.Items = append(s.Items, p.parseBlockItem())
	}
	p.expect(token.RBrace)
	return s
}

func (p *Parser) parseBlockItem() *ast.Stmt {
	if p.startsDeclaration() {
		pos := p.peek().Pos
		decls := p.parseExternalDecl()
		return &ast.Stmt{Kind: ast.StmtDecl, Pos: pos, Decls: declPtrs(decls)}
	}
	return p.parseStmt()
}

func declPtrs(decls []ast.Decl) []*ast.Decl {
	out := make([]*ast.Decl, len(decls))
	for i := range decls {
		out[i] = &decls[i]
	}
	return out
}

func (p *Parser) parseStmt() *ast.Stmt {
	t := p.peek()
	switch t.Kind {
	case token.LBrace:
		return p.parseCompoundStmt()
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwDo:
		return p.parseDoWhile()
	case token.KwFor:
		return p.parseFor()
	case token.KwSwitch:
		return p.parseSwitch()
	case token.KwCase:
		p.advance()
		val := p.parseConditional()
		p.expect(token.Colon)
		return &ast.Stmt{Kind: ast.StmtCase, Pos: t.Pos, CaseValue: val}
	case token.KwDefault:
		p.advance()
		p.expect(token.Colon)
		return &ast.Stmt{Kind: ast.StmtDefault, Pos: t.Pos}
	case token.KwBreak:
		p.advance()
		p.expect(token.Semicolon)
		return &ast.Stmt{Kind: ast.StmtBreak, Pos: t.Pos}
	case token.KwContinue:
		p.advance()
		p.expect(token.Semicolon)
		return &ast.Stmt{Kind: ast.StmtContinue, Pos: t.Pos}
	case token.KwReturn:
		p.advance()
		s := &ast.Stmt{Kind: ast.StmtReturn, Pos: t.Pos}
		if !p.at(token.Semicolon) {
			s.Value = p.parseExpr()
		}
		p.expect(token.Semicolon)
		return s
	case token.KwGoto:
		p.advance()
		label := p.expect(token.Identifier)
		p.expect(token.Semicolon)
		return &ast.Stmt{Kind: ast.StmtGoto, Pos: t.Pos, Label: label.Lexeme}
	case token.Semicolon:
		p.advance()
		return &ast.Stmt{Kind: ast.StmtExpr, Pos: t.Pos}
	case token.Identifier:
		if p.isLabelAhead() {
			p.advance()
			p.advance() // ':'
			return &ast.Stmt{Kind: ast.StmtLabel, Pos: t.Pos, Label: t.Lexeme}
		}
	}
	e := p.parseExpr()
	p.expect(token.Semicolon)
	return &ast.Stmt{Kind: ast.StmtExpr, Pos: t.Pos, Expr: e}
}

// isLabelAhead reports whether the identifier at the front of the
// stream is immediately followed by ':', the only way to distinguish a
// label statement from an expression statement starting with an
// identifier.
func (p *Parser) isLabelAhead() bool {
	return p.peekN(1).Kind == token.Colon
}

func (p *Parser) parseIf() *ast.Stmt {
	pos := p.advance().Pos
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	then := p.parseStmt()
	s := &ast.Stmt{Kind: ast.StmtIf, Pos: pos, Cond: cond, Then: then}
	if _, ok := p.match(token.KwElse); ok {
		s.Else = p.parseStmt()
	}
	return s
}

func (p *Parser) parseWhile() *ast.Stmt {
	pos := p.advance().Pos
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	body := p.parseStmt()
	return &ast.Stmt{Kind: ast.StmtWhile, Pos: pos, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() *ast.Stmt {
	pos := p.advance().Pos
	body := p.parseStmt()
	p.expect(token.KwWhile)
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	p.expect(token.Semicolon)
	return &ast.Stmt{Kind: ast.StmtDoWhile, Pos: pos, Cond: cond, Body: body}
}

func (p *Parser) parseFor() *ast.Stmt {
	pos := p.advance().Pos
	p.expect(token.LParen)
	s := &ast.Stmt{Kind: ast.StmtFor, Pos: pos}
	if !p.at(token.Semicolon) {
		if p.startsDeclaration() {
			decls := p.parseExternalDecl() // consumes trailing ';'
			s.ForInit = &ast.Stmt{Kind: ast.StmtDecl, Pos: pos, Decls: declPtrs(decls)}
		} else {
			e := p.parseExpr()
			p.expect(token.Semicolon)
			s.ForInit = &ast.Stmt{Kind: ast.StmtExpr, Pos: pos, Expr: e}
		}
	} else {
		p.advance()
	}
	if !p.at(token.Semicolon) {
		s.ForCond = p.parseExpr()
	}
	p.expect(token.Semicolon)
	if !p.at(token.RParen) {
		s.ForPost = p.parseExpr()
	}
	p.expect(token.RParen)
	s.Body = p.parseStmt()
	return s
}

func (p *Parser) parseSwitch() *ast.Stmt {
	pos := p.advance().Pos
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	body := p.parseStmt()
	return &ast.Stmt{Kind: ast.StmtSwitch, Pos: pos, SwitchCond: cond, SwitchBody: body}
}

// ---- expressions -----------------------------------------------------

func (p *Parser) parseExpr() *ast.Expr {
	e := p.parseAssignment()
	for {
		t := p.peek()
		if t.Kind != token.Comma {
			return e
		}
		p.advance()
		right := p.parseAssignment()
		e = &ast.Expr{Kind: ast.ExprComma, Pos: t.Pos, Left: e, Right: right}
	}
}

var assignOps = map[token.Kind]ast.AssignOp{
	token.Assign: ast.AsgPlain, token.PlusEq: ast.AsgAdd, token.MinusEq: ast.AsgSub,
	token.StarEq: ast.AsgMul, token.SlashEq: ast.AsgDiv, token.PercentEq: ast.AsgMod,
	token.AmpEq: ast.AsgAnd, token.PipeEq: ast.AsgOr, token.CaretEq: ast.AsgXor,
	token.ShlEq: ast.AsgShl, token.ShrEq: ast.AsgShr,
}

func (p *Parser) parseAssignment() *ast.Expr {
	left := p.parseConditional()
	t := p.peek()
	if op, ok := assignOps[t.Kind]; ok {
		p.advance()
		right := p.parseAssignment()
		return &ast.Expr{Kind: ast.ExprAssign, Pos: t.Pos, AsgOp: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseConditional() *ast.Expr {
	cond := p.parseBinary(1)
	if t, ok := p.match(token.Question); ok {
		then := p.parseExpr()
		p.expect(token.Colon)
		els := p.parseConditional()
		return &ast.Expr{Kind: ast.ExprConditional, Pos: t.Pos, Cond: cond, Then: then, Else: els}
	}
	return cond
}

var binOps = map[token.Kind]ast.BinOp{
	token.Plus: ast.BinAdd, token.Minus: ast.BinSub, token.Star: ast.BinMul,
	token.Slash: ast.BinDiv, token.Percent: ast.BinMod,
	token.Amp: ast.BinBitAnd, token.Pipe: ast.BinBitOr, token.Caret: ast.BinBitXor,
	token.Shl: ast.BinShl, token.Shr: ast.BinShr,
	token.Lt: ast.BinLt, token.Gt: ast.BinGt, token.LtEq: ast.BinLtEq, token.GtEq: ast.BinGtEq,
	token.Eq: ast.BinEq, token.NotEq: ast.BinNotEq,
	token.AndAnd: ast.BinLogAnd, token.OrOr: ast.BinLogOr,
}

// parseBinary is the precedence-climbing loop, grounded on
// tinyrange-rtg/std/compiler/parser.go's parseBinaryExpr(minPrec).
func (p *Parser) parseBinary(minPrec int) *ast.Expr {
	left := p.parseUnary()
	for {
		t := p.peek()
		prec, ok := token.Precedence(t.Kind)
		if !ok || prec < minPrec {
			return left
		}
		p.advance()
		right := p.parseBinary(prec + 1)
		left = &ast.Expr{Kind: ast.ExprBinary, Pos: t.Pos, BinOp: binOps[t.Kind], Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() *ast.Expr {
	t := p.peek()
	switch t.Kind {
	case token.Plus:
		p.advance()
		return &ast.Expr{Kind: ast.ExprUnary, Pos: t.Pos, UnOp: ast.UnPlus, Operand: p.parseCast()}
	case token.Minus:
		p.advance()
		return &ast.Expr{Kind: ast.ExprUnary, Pos: t.Pos, UnOp: ast.UnMinus, Operand: p.parseCast()}
	case token.Not:
		p.advance()
		return &ast.Expr{Kind: ast.ExprUnary, Pos: t.Pos, UnOp: ast.UnNot, Operand: p.parseCast()}
	case token.Tilde:
		p.advance()
		return &ast.Expr{Kind: ast.ExprUnary, Pos: t.Pos, UnOp: ast.UnBitNot, Operand: p.parseCast()}
	case token.Star:
		p.advance()
		return &ast.Expr{Kind: ast.ExprUnary, Pos: t.Pos, UnOp: ast.UnDeref, Operand: p.parseCast()}
	case token.Amp:
		p.advance()
		return &ast.Expr{Kind: ast.ExprUnary, Pos: t.Pos, UnOp: ast.UnAddr, Operand: p.parseCast()}
	case token.PlusPlus:
		p.advance()
		return &ast.Expr{Kind: ast.ExprUnary, Pos: t.Pos, UnOp: ast.UnPreInc, Operand: p.parseUnary()}
	case token.MinusMinus:
		p.advance()
		return &ast.Expr{Kind: ast.ExprUnary, Pos: t.Pos, UnOp: ast.UnPreDec, Operand: p.parseUnary()}
	case token.KwSizeof:
		p.advance()
		if _, ok := p.match(token.LParen); ok {
			if p.startsTypeName() {
				spec := p.parseDeclSpec()
				_, ts, _ := p.parseDeclarator()
				p.expect(token.RParen)
				ty := p.resolveTypeSpec(spec.base, ts)
				return &ast.Expr{Kind: ast.ExprSizeofType, Pos: t.Pos, CastType: ast.TypeSpec{Base: ty}}
			}
			operand := p.parseExpr()
			p.expect(token.RParen)
			return &ast.Expr{Kind: ast.ExprSizeofExpr, Pos: t.Pos, Operand: operand}
		}
		return &ast.Expr{Kind: ast.ExprSizeofExpr, Pos: t.Pos, Operand: p.parseUnary()}
	}
	return p.parseCast()
}

// startsTypeName reports whether the token currently at the front of
// the stream begins a type-name, the disambiguator this subset uses
// wherever a '(' could introduce either a cast/sizeof type-name or a
// parenthesized expression.
func (p *Parser) startsTypeName() bool {
	t := p.peek()
	return isTypeKeyword(t.Kind) || (t.Kind == token.Identifier && p.typedefs[t.Lexeme])
}

// parseCast handles `( type-name ) cast-expr` vs a parenthesized
// expression; the '(' itself is consumed by parsePrimary. A
// cast-expression that isn't actually a cast is just a unary-expression
// in C's grammar, so a prefix operator here (`-(-x)`, `(int)-x`, `!!x`)
// re-enters parseUnary rather than falling straight to postfix.
func (p *Parser) parseCast() *ast.Expr {
	switch p.peek().Kind {
	case token.Plus, token.Minus, token.Not, token.Tilde, token.Star, token.Amp,
		token.PlusPlus, token.MinusMinus, token.KwSizeof:
		return p.parseUnary()
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *ast.Expr {
	e := p.parsePrimary()
	for {
		t := p.peek()
		switch t.Kind {
		case token.LBracket:
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBracket)
			e = &ast.Expr{Kind: ast.ExprSubscript, Pos: t.Pos, Left: e, Right: idx}
		case token.LParen:
			p.advance()
			var args []*ast.Expr
			if !p.at(token.RParen) {
				for {
					args = append(args, p.parseAssignment())
					if _, ok := p.match(token.Comma); !ok {
						break
					}
				}
			}
			p.expect(token.RParen)
			e = &ast.Expr{Kind: ast.ExprCall, Pos: t.Pos, Left: e, Args: args}
		case token.Dot:
			p.advance()
			m := p.expect(token.Identifier)
			e = &ast.Expr{Kind: ast.ExprMember, Pos: t.Pos, Left: e, Member: m.Lexeme}
		case token.Arrow:
			p.advance()
			m := p.expect(token.Identifier)
			e = &ast.Expr{Kind: ast.ExprMember, Pos: t.Pos, Left: e, Member: m.Lexeme, IsArrow: true}
		case token.PlusPlus:
			p.advance()
			e = &ast.Expr{Kind: ast.ExprUnary, Pos: t.Pos, UnOp: ast.UnPostInc, Operand: e}
		case token.MinusMinus:
			p.advance()
			e = &ast.Expr{Kind: ast.ExprUnary, Pos: t.Pos, UnOp: ast.UnPostDec, Operand: e}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() *ast.Expr {
	t := p.peek()
	switch t.Kind {
	case token.IntLiteral:
		p.advance()
		return &ast.Expr{Kind: ast.ExprIntLit, Pos: t.Pos, IntValue: t.IntValue,
			IntUnsigned: t.IntFlags.Unsigned, IntLong: t.IntFlags.Long, IntLongLong: t.IntFlags.LongLong}
	case token.FloatLiteral:
		p.advance()
		return &ast.Expr{Kind: ast.ExprFloatLit, Pos: t.Pos, FloatValue: t.FloatValue, FloatIsF32: t.IsFloat32}
	case token.CharLiteral:
		p.advance()
		return &ast.Expr{Kind: ast.ExprCharLit, Pos: t.Pos, CharValue: t.CharValue}
	case token.StringLiteral:
		p.advance()
		return &ast.Expr{Kind: ast.ExprStringLit, Pos: t.Pos, StrValue: t.StrValue}
	case token.Identifier:
		p.advance()
		return &ast.Expr{Kind: ast.ExprIdent, Pos: t.Pos, Name: t.Lexeme}
	case token.LParen:
		p.advance()
		if p.startsTypeName() {
			spec := p.parseDeclSpec()
			_, ts, _ := p.parseDeclarator()
			p.expect(token.RParen)
			ty := p.resolveTypeSpec(spec.base, ts)
			operand := p.parseCast()
			return &ast.Expr{Kind: ast.ExprCast, Pos: t.Pos, CastType: ast.TypeSpec{Base: ty}, Operand: operand}
		}
		e := p.parseExpr()
		p.expect(token.RParen)
		return e
	default:
		p.diags.Errorf(t.Pos, source.Syntactic, "unexpected token %s %q in expression", t.Kind, t.Lexeme)
		p.advance()
		return &ast.Expr{Kind: ast.ExprIntLit, Pos: t.Pos, IntValue: 0}
	}
}
