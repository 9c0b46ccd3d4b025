package main

import (
	"fmt"
	"strings"

	"github.com/cdd-lang/cddc/internal/sema"
	"github.com/cdd-lang/cddc/internal/symtab"
)

// renderSema implements the `-s` flag's contract (SPEC_FULL.md Section
// 2): one line per symbol, `name : type [storage]`, grouped by scope,
// followed by the diagnostics list.
func renderSema(a *sema.Analyzer) string {
	var b strings.Builder
	for _, id := range scopeIDsInOrder(a.Tab) {
		scope := a.Tab.ScopeByID(id)
		if scope == nil {
			continue
		}
		fmt.Fprintf(&b, "scope %d (%s):\n", id, scopeKindName(scope.Kind))
		for _, name := range scope.Order {
			sym, _ := scope.LookupLocal(name)
			fmt.Fprintf(&b, "  %s : %s [%s]\n", sym.Name, typeString(sym), storageName(sym.Storage))
		}
	}
	if diags := a.Diagnostics(); len(diags) > 0 {
		b.WriteString("diagnostics:\n")
		for _, d := range diags {
			fmt.Fprintf(&b, "  %s\n", d.String())
		}
	}
	return b.String()
}

// scopeIDsInOrder walks scope ids from 0 upward until ScopeByID returns
// nil, the table's only way to enumerate every scope it owns.
func scopeIDsInOrder(tab *symtab.Table) []int {
	var ids []int
	for id := 0; ; id++ {
		if tab.ScopeByID(id) == nil {
			break
		}
		ids = append(ids, id)
	}
	return ids
}

func typeString(sym *symtab.Symbol) string {
	if sym.Type == nil {
		return "?"
	}
	return sym.Type.String()
}

func scopeKindName(k symtab.ScopeKind) string {
	switch k {
	case symtab.GlobalScope:
		return "global"
	case symtab.FunctionScope:
		return "function"
	case symtab.BlockScope:
		return "block"
	case symtab.StructScope:
		return "struct"
	default:
		return "?"
	}
}

func storageName(s symtab.Storage) string {
	switch s {
	case symtab.Static:
		return "static"
	case symtab.Extern:
		return "extern"
	case symtab.Register:
		return "register"
	case symtab.Auto:
		return "auto"
	default:
		return "none"
	}
}
