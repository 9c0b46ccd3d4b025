package irgen_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/cdd-lang/cddc/internal/ir"
	"github.com/cdd-lang/cddc/internal/irgen"
	"github.com/cdd-lang/cddc/internal/lexer"
	"github.com/cdd-lang/cddc/internal/parser"
	"github.com/cdd-lang/cddc/internal/sema"
)

// compile drives the full lex -> parse -> analyze -> generate pipeline
// over src and fails the test if any phase records an error diagnostic.
func compile(t *testing.T, src string) *ir.Program {
	t.Helper()
	p := parser.New(lexer.New("t.c", []byte(src)))
	tu := p.ParseTranslationUnit()
	if len(p.Diagnostics()) != 0 {
		t.Fatalf("parse errors: %v", p.Diagnostics())
	}
	a := sema.New()
	a.Analyze(tu)
	if a.HasErrors() {
		t.Fatalf("semantic errors: %v", a.Diagnostics())
	}
	g := irgen.New(a.Tab)
	return g.Generate(tu)
}

func findGlobal(p *ir.Program, name string) *ir.Global {
	for _, g := range p.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func findFunc(p *ir.Program, name string) *ir.Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Scenario 1 (spec 8): constant folding at global-init time.
func TestConstantFoldedGlobalInit(t *testing.T) {
	prog := compile(t, "int x = 3 + 4 * 2;")
	if len(prog.Functions) != 0 {
		t.Fatalf("expected zero functions, got %d", len(prog.Functions))
	}
	g := findGlobal(prog, "x")
	if g == nil {
		t.Fatal("global x not found")
	}
	if len(g.Init) != 1 {
		t.Fatalf("x init values = %v, want exactly one", g.Init)
	}
	if g.Init[0].Kind != ir.InitInteger || g.Init[0].IntValue != 11 || g.Init[0].Size != 4 {
		t.Fatalf("x init = %+v, want Integer(11,4)", g.Init[0])
	}
}

// Scenario 2 (spec 8): call lowering with reverse-order Param quadruples.
func TestCallLoweringParamOrderAndReturn(t *testing.T) {
	prog := compile(t, "int f(int n){ return n*n; } int main(){ return f(5); }")
	main := findFunc(prog, "main")
	if main == nil {
		t.Fatal("main not found")
	}
	n := len(main.Quads)
	if n < 3 {
		t.Fatalf("main has too few quads: %v", main.Quads)
	}
	paramQ := main.Quads[n-3]
	callQ := main.Quads[n-2]
	retQ := main.Quads[n-1]

	if paramQ.Op != ir.Param || paramQ.Arg1.Kind != ir.OpIntConst || paramQ.Arg1.IntValue != 5 {
		t.Fatalf("expected Param _, 5 immediately before the call, got %v", paramQ)
	}
	if callQ.Op != ir.Call || callQ.Arg1.Name != "f" || callQ.Arg2.IntValue != 1 {
		t.Fatalf("expected Call t, f, 1, got %v", callQ)
	}
	if retQ.Op != ir.Return || !reflect.DeepEqual(retQ.Arg1, callQ.Result) {
		t.Fatalf("expected Return _, <call result>, got %v (call result %v)", retQ, callQ.Result)
	}
}

// Scenario 3 (spec 8): char array string initializer flattening.
func TestCharArrayStringInitFlattening(t *testing.T) {
	prog := compile(t, `char s[] = "hi";`)
	g := findGlobal(prog, "s")
	if g == nil {
		t.Fatal("global s not found")
	}
	if g.Type.String() != "char[3]" {
		t.Fatalf("s type = %s, want char[3]", g.Type)
	}
	want := []ir.InitValue{
		ir.IntInit(int64('h'), 1),
		ir.IntInit(int64('i'), 1),
		ir.IntInit(0, 1),
	}
	if len(g.Init) != len(want) {
		t.Fatalf("init = %v, want %v", g.Init, want)
	}
	for i := range want {
		if g.Init[i] != want[i] {
			t.Fatalf("init[%d] = %+v, want %+v", i, g.Init[i], want[i])
		}
	}
}

// Scenario 4 (spec 8): brace initializer padded with Zero for missing elements.
func TestArrayInitPaddedWithZero(t *testing.T) {
	prog := compile(t, "int a[3] = {1,2};")
	g := findGlobal(prog, "a")
	if g == nil {
		t.Fatal("global a not found")
	}
	want := []ir.InitValue{
		ir.IntInit(1, 4),
		ir.IntInit(2, 4),
		ir.ZeroInit(4),
	}
	if len(g.Init) != len(want) {
		t.Fatalf("init = %v, want %v", g.Init, want)
	}
	for i := range want {
		if g.Init[i] != want[i] {
			t.Fatalf("init[%d] = %+v, want %+v", i, g.Init[i], want[i])
		}
	}
	if total := ir.TotalSize(g.Init); total != g.Type.Size() {
		t.Fatalf("sum of init sizes = %d, want declared size %d", total, g.Type.Size())
	}
}

// Scenario 5 (spec 8): enumerator auto-increment and explicit values.
func TestEnumAutoIncrementAndExplicitValue(t *testing.T) {
	prog := compile(t, "enum E{A,B=5,C}; int z = C;")
	g := findGlobal(prog, "z")
	if g == nil {
		t.Fatal("global z not found")
	}
	if len(g.Init) != 1 || g.Init[0].Kind != ir.InitInteger || g.Init[0].IntValue != 6 {
		t.Fatalf("z init = %v, want Integer(6,...) (C = B+1 = 6)", g.Init)
	}
}

// Scenario 6 (spec 8): pointer + integer arithmetic is scaled by the
// pointee size before the add.
func TestPointerArithmeticScaling(t *testing.T) {
	prog := compile(t, "int f(int *p, int i){ return *(p+i); }")
	f := findFunc(prog, "f")
	if f == nil {
		t.Fatal("f not found")
	}
	var sawScale, sawAdd bool
	for i, q := range f.Quads {
		if q.Op == ir.Mul && q.Arg2.Kind == ir.OpIntConst && q.Arg2.IntValue == 4 {
			sawScale = true
			// the following quad (or one shortly after) should Add using this result
			for _, follow := range f.Quads[i:] {
				if follow.Op == ir.Add && (reflect.DeepEqual(follow.Arg1, q.Result) || reflect.DeepEqual(follow.Arg2, q.Result)) {
					sawAdd = true
					break
				}
			}
		}
	}
	if !sawScale {
		t.Fatalf("expected a Mul by 4 (sizeof(int)) to scale the integer operand; quads: %v", f.Quads)
	}
	if !sawAdd {
		t.Fatalf("expected an Add consuming the scaled temp; quads: %v", f.Quads)
	}
}

// Scenario 7 (spec 8): switch lowering emits a comparison ladder and
// break becomes Jump to the end label.
func TestSwitchLoweringComparisonLadder(t *testing.T) {
	prog := compile(t, `
		int f();
		int g();
		void h(int x){
			switch(x){
			case 1: f(); break;
			default: g();
			}
		}
	`)
	fn := findFunc(prog, "h")
	if fn == nil {
		t.Fatal("h not found")
	}
	var sawEqCompare, sawJumpTrue, sawCallF, sawCallG bool
	for _, q := range fn.Quads {
		switch q.Op {
		case ir.CmpEq:
			sawEqCompare = true
		case ir.JumpTrue:
			sawJumpTrue = true
		case ir.Call:
			if q.Arg1.Name == "f" {
				sawCallF = true
			}
			if q.Arg1.Name == "g" {
				sawCallG = true
			}
		}
	}
	if !sawEqCompare || !sawJumpTrue {
		t.Fatalf("expected an equality-comparison ladder with JumpTrue to case labels; quads: %v", fn.Quads)
	}
	if !sawCallF || !sawCallG {
		t.Fatalf("expected calls to both f (case 1) and g (default); quads: %v", fn.Quads)
	}
}

// Scenario 8 (spec 8): short-circuit && must not evaluate the call when
// the left operand is false at runtime; statically this means the call
// to c() is reachable only along the branch where both operands are true,
// i.e. it is guarded by at least one conditional jump.
func TestLogicalAndShortCircuitsCall(t *testing.T) {
	prog := compile(t, `
		int c();
		void f(int a, int b){
			if (a && b) c();
		}
	`)
	fn := findFunc(prog, "f")
	if fn == nil {
		t.Fatal("f not found")
	}
	callIdx := -1
	for i, q := range fn.Quads {
		if q.Op == ir.Call && q.Arg1.Name == "c" {
			callIdx = i
		}
	}
	if callIdx == -1 {
		t.Fatalf("expected a call to c; quads: %v", fn.Quads)
	}
	var guardsBefore int
	for _, q := range fn.Quads[:callIdx] {
		if q.Op == ir.JumpFalse || q.Op == ir.JumpTrue {
			guardsBefore++
		}
	}
	if guardsBefore < 2 {
		t.Fatalf("expected at least two conditional jumps guarding the call to c (one per && operand), got %d; quads: %v", guardsBefore, fn.Quads)
	}
}

func TestTypedefOnlyProducesNoIR(t *testing.T) {
	prog := compile(t, "typedef int myint; extern int g;")
	if len(prog.Functions) != 0 {
		t.Fatalf("typedef/extern-only translation unit should produce zero functions, got %d", len(prog.Functions))
	}
	for _, g := range prog.Globals {
		if !g.IsExtern {
			t.Fatalf("unexpected non-extern global %s in a typedef/extern-only program", g.Name)
		}
	}
}

func TestStringLiteralInternedInPool(t *testing.T) {
	prog := compile(t, `
		int puts(char *s);
		int main(){ puts("hello"); return 0; }
	`)
	if len(prog.Strings) == 0 {
		t.Fatal("expected at least one pooled string literal")
	}
	found := false
	for _, s := range prog.Strings {
		if string(s.Bytes) == "hello" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected \"hello\" in the string pool, got %v", prog.Strings)
	}
}

func TestIRTextualFormRoundTripsOpcodeNames(t *testing.T) {
	prog := compile(t, "int f(int n){ return n*n; }")
	text := prog.String()
	if !strings.Contains(text, "func f(") {
		t.Fatalf("rendered IR missing function header: %q", text)
	}
	if !strings.Contains(text, "Mul") || !strings.Contains(text, "Return") {
		t.Fatalf("rendered IR missing expected opcodes: %q", text)
	}
}

func TestLocalCharArrayStringInitStoresBytes(t *testing.T) {
	prog := compile(t, `void f(){ char s[] = "hi"; }`)
	fn := findFunc(prog, "f")
	if fn == nil {
		t.Fatal("f not found")
	}
	// The bytes must be copied into the array slot, never the pooled
	// string's address: three element stores ('h', 'i', NUL), each fed
	// by an IndexAddr into the local.
	var stored []int64
	for _, q := range fn.Quads {
		if q.Op == ir.Store && q.Arg2.Kind == ir.OpIntConst {
			stored = append(stored, q.Arg2.IntValue)
		}
	}
	want := []int64{'h', 'i', 0}
	if len(stored) != len(want) {
		t.Fatalf("stored constants = %v, want %v; quads: %v", stored, want, fn.Quads)
	}
	for i := range want {
		if stored[i] != want[i] {
			t.Fatalf("stored constants = %v, want %v", stored, want)
		}
	}
	for _, q := range fn.Quads {
		if q.Op == ir.Store && q.Arg2.Kind == ir.OpGlobal {
			t.Fatalf("initializer must not store the pooled string's address: %v", q)
		}
	}
}

func TestSizeofStringLiteralGlobalInit(t *testing.T) {
	prog := compile(t, `int n = sizeof("hi");`)
	g := findGlobal(prog, "n")
	if g == nil {
		t.Fatal("global n not found")
	}
	if len(g.Init) != 1 || g.Init[0].Kind != ir.InitInteger || g.Init[0].IntValue != 3 || g.Init[0].Size != 4 {
		t.Fatalf("n init = %v, want Integer(3,4)", g.Init)
	}
}
