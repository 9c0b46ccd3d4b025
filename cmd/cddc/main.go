// Command cddc is the CLI driver: it wires the lexer, parser, semantic
// analyzer, IR generator, and the amd64/ELF backend together, matching
// spec Section 6's flag set plus the ambient -v tracing flag.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "cddc <file.cdd>",
		Short: "Compiler front end for the CDD C-language subset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args[0], opts)
		},
	}
	flags := cmd.Flags()
	flags.BoolVarP(&opts.stopAfterPreprocess, "preprocess", "p", false, "stop after preprocessing (no-op pass-through)")
	flags.BoolVarP(&opts.dumpTokens, "tokens", "l", false, "dump the token stream")
	flags.BoolVarP(&opts.dumpAST, "ast", "a", false, "dump the AST")
	flags.BoolVarP(&opts.dumpSema, "sema", "s", false, "dump the symbol table and diagnostics")
	flags.BoolVarP(&opts.dumpIR, "ir", "i", false, "dump the IR program")
	flags.BoolVarP(&opts.emitAsm, "asm", "S", false, "emit x86-64 assembly (default action)")
	flags.BoolVarP(&opts.emitObj, "object", "c", false, "assemble to an ELF64 relocatable object")
	flags.StringVarP(&opts.output, "output", "o", "", "output path (default: stdout)")
	flags.StringArrayVarP(&opts.includePaths, "include", "I", nil, "header search path (recorded, unused)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug-level phase tracing")
	return cmd
}

type options struct {
	stopAfterPreprocess bool
	dumpTokens          bool
	dumpAST             bool
	dumpSema            bool
	dumpIR              bool
	emitAsm             bool
	emitObj             bool
	output              string
	includePaths        []string
	verbose             bool
}

func newLogger(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
