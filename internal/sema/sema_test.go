package sema_test

import (
	"testing"

	"github.com/cdd-lang/cddc/internal/ast"
	"github.com/cdd-lang/cddc/internal/lexer"
	"github.com/cdd-lang/cddc/internal/parser"
	"github.com/cdd-lang/cddc/internal/sema"
	"github.com/cdd-lang/cddc/internal/source"
)

func analyze(t *testing.T, src string) (*ast.TranslationUnit, *sema.Analyzer) {
	t.Helper()
	p := parser.New(lexer.New("t.c", []byte(src)))
	tu := p.ParseTranslationUnit()
	if len(p.Diagnostics()) != 0 {
		t.Fatalf("parse errors for %q: %v", src, p.Diagnostics())
	}
	a := sema.New()
	a.Analyze(tu)
	return tu, a
}

func hasKind(diags []source.Diagnostic, k source.Kind) bool {
	for _, d := range diags {
		if d.Kind == k {
			return true
		}
	}
	return false
}

func TestBreakOutsideLoopOrSwitchIsDiagnosed(t *testing.T) {
	_, a := analyze(t, "void f(){ break; }")
	if !a.HasErrors() || !hasKind(a.Diagnostics(), source.Constraint) {
		t.Fatalf("expected a Constraint diagnostic, got %v", a.Diagnostics())
	}
}

func TestBreakInsideLoopIsFine(t *testing.T) {
	_, a := analyze(t, "void f(){ while(1){ break; } }")
	if a.HasErrors() {
		t.Fatalf("unexpected errors: %v", a.Diagnostics())
	}
}

func TestCaseOutsideSwitchIsDiagnosed(t *testing.T) {
	_, a := analyze(t, "void f(){ case 1: ; }")
	if !a.HasErrors() || !hasKind(a.Diagnostics(), source.Constraint) {
		t.Fatalf("expected a Constraint diagnostic, got %v", a.Diagnostics())
	}
}

func TestDuplicateCaseValueIsDiagnosed(t *testing.T) {
	_, a := analyze(t, "void f(int x){ switch(x){ case 1: ; case 1: ; } }")
	if !a.HasErrors() {
		t.Fatal("expected duplicate case value to be an error")
	}
}

func TestRedefinitionInSameScopeIsDiagnosed(t *testing.T) {
	_, a := analyze(t, "void f(){ int x; int x; }")
	if !a.HasErrors() || !hasKind(a.Diagnostics(), source.Redefinition) {
		t.Fatalf("expected a Redefinition diagnostic, got %v", a.Diagnostics())
	}
}

func TestShadowingInNestedScopeIsAllowed(t *testing.T) {
	_, a := analyze(t, "void f(){ int x; { int x; } }")
	if a.HasErrors() {
		t.Fatalf("shadowing in a nested block should not be a redefinition: %v", a.Diagnostics())
	}
}

func TestUndeclaredIdentifierIsDiagnosed(t *testing.T) {
	_, a := analyze(t, "void f(){ y = 1; }")
	if !a.HasErrors() || !hasKind(a.Diagnostics(), source.UndeclaredIdentifier) {
		t.Fatalf("expected an UndeclaredIdentifier diagnostic, got %v", a.Diagnostics())
	}
}

func TestReturnTypeMismatchIsDiagnosed(t *testing.T) {
	_, a := analyze(t, "int f(){ return; }")
	if !a.HasErrors() || !hasKind(a.Diagnostics(), source.TypeMismatch) {
		t.Fatalf("expected a TypeMismatch diagnostic for a bare return in a non-void function, got %v", a.Diagnostics())
	}
}

func TestVoidFunctionReturningValueIsDiagnosed(t *testing.T) {
	_, a := analyze(t, "void f(){ return 1; }")
	if !a.HasErrors() || !hasKind(a.Diagnostics(), source.TypeMismatch) {
		t.Fatalf("expected a TypeMismatch diagnostic for returning a value from a void function, got %v", a.Diagnostics())
	}
}

func TestIfConditionMustBeScalar(t *testing.T) {
	_, a := analyze(t, "struct S{int x;}; void f(struct S s){ if (s) ; }")
	if !a.HasErrors() {
		t.Fatal("expected a struct-valued if condition to be diagnosed")
	}
}

func TestWellFormedProgramHasNoErrors(t *testing.T) {
	_, a := analyze(t, `
		struct Point { int x; int y; };
		int add(struct Point p) { return p.x + p.y; }
		int main() {
			struct Point p;
			p.x = 1;
			p.y = 2;
			return add(p);
		}
	`)
	if a.HasErrors() {
		t.Fatalf("unexpected errors: %v", a.Diagnostics())
	}
}

func TestEnumeratorAutoIncrementAndExplicitValue(t *testing.T) {
	tu, a := analyze(t, "enum Color { Red, Green = 5, Blue };")
	if a.HasErrors() {
		t.Fatalf("unexpected errors: %v", a.Diagnostics())
	}
	var enumDecl *ast.Decl
	for i := range tu.Decls {
		if tu.Decls[i].Kind == ast.DeclEnum {
			enumDecl = &tu.Decls[i]
		}
	}
	if enumDecl == nil {
		t.Fatal("enum declaration not found")
	}
	want := map[string]int64{"Red": 0, "Green": 5, "Blue": 6}
	for _, ec := range enumDecl.Enumerators {
		sym, ok := a.Tab.Current().Lookup(ec.Name)
		if !ok {
			t.Fatalf("enumerator %s not declared in the symbol table", ec.Name)
		}
		if sym.ConstValue != want[ec.Name] {
			t.Fatalf("enumerator %s = %d, want %d", ec.Name, sym.ConstValue, want[ec.Name])
		}
	}
}

func TestDeterministicDiagnosticsAcrossRuns(t *testing.T) {
	src := "void f(){ int x; int x; y = 1; }"
	_, a1 := analyze(t, src)
	_, a2 := analyze(t, src)
	d1, d2 := a1.Diagnostics(), a2.Diagnostics()
	if len(d1) != len(d2) {
		t.Fatalf("diagnostic counts differ across runs: %d vs %d", len(d1), len(d2))
	}
	for i := range d1 {
		if d1[i].String() != d2[i].String() {
			t.Fatalf("diagnostic %d differs across runs: %q vs %q", i, d1[i].String(), d2[i].String())
		}
	}
}

func TestConstantEvaluationDivByZeroInCaseLabelIsDiagnosed(t *testing.T) {
	_, a := analyze(t, "void f(int x){ switch(x){ case 1/0: ; } }")
	if !a.HasErrors() {
		t.Fatal("division by zero in a case label constant expression should be diagnosed")
	}
}

func TestGotoUndeclaredLabelIsDiagnosed(t *testing.T) {
	_, a := analyze(t, "void f(){ goto missing; }")
	if !a.HasErrors() || !hasKind(a.Diagnostics(), source.UndeclaredIdentifier) {
		t.Fatalf("expected an UndeclaredIdentifier diagnostic for the missing label, got %v", a.Diagnostics())
	}
}

func TestForwardGotoToDeclaredLabelIsFine(t *testing.T) {
	_, a := analyze(t, "void f(){ goto done; done: ; }")
	if a.HasErrors() {
		t.Fatalf("a forward goto to a label declared later in the body should be fine: %v", a.Diagnostics())
	}
}

func TestSizeofStringLiteralIsLengthPlusOne(t *testing.T) {
	tu, a := analyze(t, `int n = sizeof("hi");`)
	if a.HasErrors() {
		t.Fatalf("unexpected errors: %v", a.Diagnostics())
	}
	e := tu.Decls[0].Init
	if !e.IsConst || e.ConstValue != 3 {
		t.Fatalf("sizeof(\"hi\") = %d (const=%v), want 3 (length+1)", e.ConstValue, e.IsConst)
	}
}
