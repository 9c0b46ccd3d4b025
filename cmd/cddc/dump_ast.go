package main

import (
	"fmt"
	"strings"

	"github.com/cdd-lang/cddc/internal/ast"
)

// renderAST implements the `-a` flag's contract (SPEC_FULL.md Section
// 2): an indented S-expression-ish rendering, one node per line.
func renderAST(tu *ast.TranslationUnit) string {
	var b strings.Builder
	for i := range tu.Decls {
		writeDecl(&b, &tu.Decls[i], 0)
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func writeDecl(b *strings.Builder, d *ast.Decl, depth int) {
	indent(b, depth)
	switch d.Kind {
	case ast.DeclVar, ast.DeclField:
		fmt.Fprintf(b, "(var %s)\n", d.Name)
		if d.Init != nil {
			writeExpr(b, d.Init, depth+1)
		}
	case ast.DeclFunc:
		fmt.Fprintf(b, "(func %s\n", d.Name)
		for _, param := range d.Params {
			writeDecl(b, param, depth+1)
		}
		if d.Body != nil {
			writeStmt(b, d.Body, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case ast.DeclRecord:
		word := "struct"
		if d.IsUnion {
			word = "union"
		}
		fmt.Fprintf(b, "(%s %s\n", word, d.Tag)
		for _, f := range d.Fields {
			writeDecl(b, f, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case ast.DeclEnum:
		fmt.Fprintf(b, "(enum %s\n", d.EnumTag)
		for _, e := range d.Enumerators {
			writeDecl(b, e, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case ast.DeclEnumConst:
		fmt.Fprintf(b, "(enumerator %s)\n", d.Name)
		if d.Value != nil {
			writeExpr(b, d.Value, depth+1)
		}
	case ast.DeclTypedef:
		fmt.Fprintf(b, "(typedef %s)\n", d.Name)
	}
}

func writeStmt(b *strings.Builder, s *ast.Stmt, depth int) {
	indent(b, depth)
	switch s.Kind {
	case ast.StmtExpr:
		b.WriteString("(expr-stmt\n")
		writeExpr(b, s.Expr, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.StmtCompound:
		b.WriteString("(block\n")
		for _, item := range s.Items {
			writeStmt(b, item, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case ast.StmtIf:
		b.WriteString("(if\n")
		writeExpr(b, s.Cond, depth+1)
		writeStmt(b, s.Then, depth+1)
		if s.Else != nil {
			writeStmt(b, s.Else, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case ast.StmtSwitch:
		b.WriteString("(switch\n")
		writeExpr(b, s.SwitchCond, depth+1)
		writeStmt(b, s.SwitchBody, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.StmtCase:
		b.WriteString("(case\n")
		writeExpr(b, s.CaseValue, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.StmtDefault:
		b.WriteString("(default)\n")
	case ast.StmtWhile:
		b.WriteString("(while\n")
		writeExpr(b, s.Cond, depth+1)
		writeStmt(b, s.Body, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.StmtDoWhile:
		b.WriteString("(do-while\n")
		writeStmt(b, s.Body, depth+1)
		writeExpr(b, s.Cond, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.StmtFor:
		b.WriteString("(for\n")
		if s.ForInit != nil {
			writeStmt(b, s.ForInit, depth+1)
		}
		if s.ForCond != nil {
			writeExpr(b, s.ForCond, depth+1)
		}
		if s.ForPost != nil {
			writeExpr(b, s.ForPost, depth+1)
		}
		writeStmt(b, s.Body, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.StmtBreak:
		b.WriteString("(break)\n")
	case ast.StmtContinue:
		b.WriteString("(continue)\n")
	case ast.StmtReturn:
		b.WriteString("(return\n")
		if s.Value != nil {
			writeExpr(b, s.Value, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case ast.StmtGoto:
		fmt.Fprintf(b, "(goto %s)\n", s.Label)
	case ast.StmtLabel:
		fmt.Fprintf(b, "(label %s)\n", s.Label)
	case ast.StmtDecl:
		b.WriteString("(decl-stmt\n")
		for _, d := range s.Decls {
			writeDecl(b, d, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	}
}

func writeExpr(b *strings.Builder, e *ast.Expr, depth int) {
	indent(b, depth)
	switch e.Kind {
	case ast.ExprIntLit:
		fmt.Fprintf(b, "(int %d)\n", e.IntValue)
	case ast.ExprFloatLit:
		fmt.Fprintf(b, "(float %g)\n", e.FloatValue)
	case ast.ExprCharLit:
		fmt.Fprintf(b, "(char %q)\n", e.CharValue)
	case ast.ExprStringLit:
		fmt.Fprintf(b, "(string %q)\n", string(e.StrValue))
	case ast.ExprIdent:
		fmt.Fprintf(b, "(ident %s)\n", e.Name)
	case ast.ExprUnary:
		fmt.Fprintf(b, "(unary %d\n", e.UnOp)
		writeExpr(b, e.Operand, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.ExprBinary:
		fmt.Fprintf(b, "(binary %d\n", e.BinOp)
		writeExpr(b, e.Left, depth+1)
		writeExpr(b, e.Right, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.ExprAssign:
		fmt.Fprintf(b, "(assign %d\n", e.AsgOp)
		writeExpr(b, e.Left, depth+1)
		writeExpr(b, e.Right, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.ExprConditional:
		b.WriteString("(conditional\n")
		writeExpr(b, e.Cond, depth+1)
		writeExpr(b, e.Then, depth+1)
		writeExpr(b, e.Else, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.ExprCast:
		b.WriteString("(cast\n")
		writeExpr(b, e.Operand, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.ExprSubscript:
		b.WriteString("(subscript\n")
		writeExpr(b, e.Left, depth+1)
		writeExpr(b, e.Right, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.ExprCall:
		b.WriteString("(call\n")
		writeExpr(b, e.Left, depth+1)
		for _, arg := range e.Args {
			writeExpr(b, arg, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case ast.ExprMember:
		op := "."
		if e.IsArrow {
			op = "->"
		}
		fmt.Fprintf(b, "(member %s%s\n", op, e.Member)
		writeExpr(b, e.Left, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.ExprInitList:
		b.WriteString("(init-list\n")
		for _, elem := range e.Elems {
			writeExpr(b, elem, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case ast.ExprSizeofType:
		b.WriteString("(sizeof-type)\n")
	case ast.ExprSizeofExpr:
		b.WriteString("(sizeof-expr\n")
		writeExpr(b, e.Operand, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case ast.ExprComma:
		b.WriteString("(comma\n")
		writeExpr(b, e.Left, depth+1)
		writeExpr(b, e.Right, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	}
}
