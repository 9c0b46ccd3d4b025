package main

import (
	"github.com/cdd-lang/cddc/backend/amd64"
	"github.com/cdd-lang/cddc/format/elf"
)

// buildELFFile wires a backend/amd64.Object into an elf.File, the one
// place in this repo that composes the two external-collaborator
// packages (see SPEC_FULL.md Section 1). It materializes the three flat
// buffers as PROGBITS sections, emits one elf.Symbol per amd64.SymbolDef,
// synthesizes an SHN_UNDEF symbol for every relocation target the
// compiler didn't itself define (extern globals, calls to
// not-yet-linked functions), and queues every amd64.Relocation against
// its owning section.
func buildELFFile(obj *amd64.Object) *elf.File {
	f := elf.NewFile()

	textSec := f.AddSection(".text", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_EXECINSTR, obj.Text)
	textSec.Addralign = 16
	dataSec := f.AddSection(".data", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_WRITE, obj.Data)
	dataSec.Addralign = 8
	rodataSec := f.AddSection(".rodata", elf.SHT_PROGBITS, elf.SHF_ALLOC, obj.Rodata)
	rodataSec.Addralign = 1

	symbols := make(map[string]*elf.Symbol, len(obj.Symbols))
	for _, def := range obj.Symbols {
		var sec *elf.Section
		switch def.Section {
		case amd64.SymText:
			sec = textSec
		case amd64.SymData:
			sec = dataSec
		case amd64.SymRodata:
			sec = rodataSec
		}
		if sec == dataSec && isExternOnly(def) {
			// Extern global: no definition in this object, an undefined
			// symbol the linker must resolve elsewhere.
			sec = nil
		}
		typ := byte(elf.STT_OBJECT)
		if def.IsFunc {
			typ = elf.STT_FUNC
		}
		sym := f.AddSymbol(def.Name, elf.MakeSymbolInfo(elf.STB_GLOBAL, typ), sec, def.Offset, def.Size)
		symbols[def.Name] = sym
	}

	undefined := func(name string) *elf.Symbol {
		if sym, ok := symbols[name]; ok {
			return sym
		}
		sym := f.AddSymbol(name, elf.MakeSymbolInfo(elf.STB_GLOBAL, elf.STT_NOTYPE), nil, 0, 0)
		symbols[name] = sym
		return sym
	}

	for _, r := range obj.TextRelocs {
		f.AddRelocation(textSec, uint64(r.Offset), undefined(r.Symbol), uint32(r.Type), r.Addend)
	}
	for _, r := range obj.DataRelocs {
		f.AddRelocation(dataSec, uint64(r.Offset), undefined(r.Symbol), uint32(r.Type), r.Addend)
	}

	return f
}

// isExternOnly reports whether def carries no real content, the
// SymbolDef shape compileGlobal in backend/amd64 uses for an `extern`
// global declaration.
func isExternOnly(def amd64.SymbolDef) bool {
	return def.Size == 0 && !def.IsFunc
}
