package main

import (
	"fmt"
	"os"

	"github.com/cdd-lang/cddc/backend/amd64"
	"github.com/cdd-lang/cddc/internal/irgen"
	"github.com/cdd-lang/cddc/internal/lexer"
	"github.com/cdd-lang/cddc/internal/parser"
	"github.com/cdd-lang/cddc/internal/sema"
	"github.com/cdd-lang/cddc/internal/source"
)

// runCompile drives the full phase pipeline for one input file. Every
// phase reports into its own diagnostics collector rather than
// aborting; this function stops early only when a later phase cannot
// run meaningfully over an already-broken tree (parse failure, fatal
// semantic errors).
func runCompile(path string, opts options) (err error) {
	log := newLogger(opts.verbose)
	defer log.Sync() //nolint:errcheck

	// source.Collector.Internalf is the one diagnostic path that panics
	// rather than recording and continuing: it panics with the "Internal"
	// source.Diagnostic it records. Recover it here, at the outermost
	// boundary, and report it as a normal fatal diagnostic instead of
	// crashing the process.
	defer func() {
		if r := recover(); r != nil {
			if diag, ok := r.(source.Diagnostic); ok {
				fmt.Fprintln(os.Stderr, diag.String())
				err = fmt.Errorf("internal compiler error")
				return
			}
			panic(r)
		}
	}()

	src, readErr := os.ReadFile(path)
	if readErr != nil {
		return fmt.Errorf("reading %s: %w", path, readErr)
	}

	if opts.stopAfterPreprocess {
		log.Debugw("stopping after preprocess", "file", path)
		return writeOutput(opts, src)
	}

	if opts.dumpTokens {
		return writeOutput(opts, []byte(renderTokens(lexer.New(path, src))))
	}

	log.Debugw("lexing", "file", path)
	p := parser.New(lexer.New(path, src))
	tu := p.ParseTranslationUnit()
	log.Debugw("parsing complete", "diagnostics", len(p.Diagnostics()))
	if hasErrors(p.Diagnostics()) {
		printDiagnostics(p.Diagnostics())
		return fmt.Errorf("parse errors in %s", path)
	}

	if opts.dumpAST {
		return writeOutput(opts, []byte(renderAST(tu)))
	}

	analyzer := sema.New()
	analyzer.Analyze(tu)
	log.Debugw("analysis complete", "diagnostics", len(analyzer.Diagnostics()))
	printDiagnostics(analyzer.Diagnostics())
	if analyzer.HasErrors() {
		return fmt.Errorf("semantic errors in %s", path)
	}

	if opts.dumpSema {
		return writeOutput(opts, []byte(renderSema(analyzer)))
	}

	gen := irgen.New(analyzer.Tab)
	prog := gen.Generate(tu)
	log.Debugw("ir generation complete", "functions", len(prog.Functions))

	if opts.dumpIR {
		return writeOutput(opts, []byte(prog.String()))
	}

	if opts.emitObj {
		obj, compErr := amd64.Compile(prog)
		if compErr != nil {
			return fmt.Errorf("compiling %s: %w", path, compErr)
		}
		return writeObject(opts, obj)
	}

	asmText, renderErr := amd64.RenderAssembly(prog)
	if renderErr != nil {
		return fmt.Errorf("rendering assembly for %s: %w", path, renderErr)
	}
	return writeOutput(opts, []byte(asmText))
}

func hasErrors(diags []source.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == source.Error {
			return true
		}
	}
	return false
}

func printDiagnostics(diags []source.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
	}
}

func writeOutput(opts options, data []byte) error {
	if opts.output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(opts.output, data, 0o644)
}

// writeObject serializes obj through format/elf's writer into a
// relocatable ELF64 object file.
func writeObject(opts options, obj *amd64.Object) error {
	f := buildELFFile(obj)
	path := opts.output
	if path == "" {
		path = "a.o"
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return f.WriteTo(out)
}
