// Package source holds the shared position and diagnostic types every
// later phase (lexer, parser, analyzer, IR generator) attaches to its
// output.
package source

import "fmt"

// Position is a single point in a source file, 1-based for line/column.
type Position struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Severity distinguishes errors (which block downstream phases) from
// warnings (which never do).
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Kind is the closed error-kind enumeration from the error handling design.
type Kind int

const (
	Lexical Kind = iota
	Syntactic
	Redefinition
	UndeclaredIdentifier
	TypeMismatch
	Constraint
	ConstantEval
	Internal
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Syntactic:
		return "syntactic"
	case Redefinition:
		return "redefinition"
	case UndeclaredIdentifier:
		return "undeclared-identifier"
	case TypeMismatch:
		return "type-mismatch"
	case Constraint:
		return "constraint"
	case ConstantEval:
		return "constant-eval"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Diagnostic is one recorded error or warning.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Pos      Position
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}

// Collector accumulates diagnostics across a phase without ever
// aborting; every fallible routine in this compiler reports into one of
// these instead of returning an error value, so that a whole phase can
// run to completion and report everything wrong with the input at once.
type Collector struct {
	diags []Diagnostic
}

func (c *Collector) Errorf(pos Position, kind Kind, format string, args ...interface{}) {
	c.diags = append(c.diags, Diagnostic{Severity: Error, Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (c *Collector) Warnf(pos Position, kind Kind, format string, args ...interface{}) {
	c.diags = append(c.diags, Diagnostic{Severity: Warning, Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// Internalf records a Kind=Internal diagnostic and then panics with that
// same Diagnostic value; cmd/cddc's runCompile recovers it and reports it
// like any other fatal compile error.
func (c *Collector) Internalf(pos Position, format string, args ...interface{}) {
	d := Diagnostic{Severity: Error, Kind: Internal, Pos: pos, Message: fmt.Sprintf(format, args...)}
	c.diags = append(c.diags, d)
	panic(d)
}

// Diagnostics returns every recorded diagnostic in recording order.
func (c *Collector) Diagnostics() []Diagnostic {
	return c.diags
}

// HasErrors reports whether any diagnostic at Error severity was recorded.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Merge appends another collector's diagnostics onto this one, preserving
// order.
func (c *Collector) Merge(other *Collector) {
	c.diags = append(c.diags, other.diags...)
}
