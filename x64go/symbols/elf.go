// Package symbols names addresses inside a traced process.
package symbols

import (
	"debug/elf"
	"fmt"
	"sort"
)

type SortedSymbols []elf.Symbol

// FindSymbol finds the symbol that intersects with the given addr, or a
// "!start"/"!gap" placeholder if none exists.
func (s SortedSymbols) FindSymbol(addr uint64) elf.Symbol {
	// first symbol with a higher start, or n if no such symbol exists
	i := sort.Search(len(s), func(i int) bool {
		return s[i].Value > addr
	})
	if i == 0 {
		return elf.Symbol{Name: "!start", Value: 0}
	}
	out := &s[i-1]
	if out.Value+out.Size <= addr && out.Size != 0 {
		return elf.Symbol{Name: "!gap", Value: addr}
	}
	return *out
}

// Symbols returns the code symbols of f ordered by address.
func Symbols(f *elf.File) (SortedSymbols, error) {
	symbols, err := f.Symbols()
	if err != nil {
		return nil, fmt.Errorf("failed to read symbols data: %w", err)
	}
	out := make(SortedSymbols, 0, len(symbols))
	for _, s := range symbols {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Value == 0 {
			continue
		}
		out = append(out, s)
	}
	// Not every ELF has sorted symbols, Go internals included.
	sort.Slice(out, func(i, j int) bool {
		return out[i].Value < out[j].Value
	})
	return out, nil
}

// Open opens an x86-64 ELF file.
func Open(path string) (*elf.File, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file %q: %w", path, err)
	}
	if f.Machine != elf.EM_X86_64 {
		_ = f.Close()
		return nil, fmt.Errorf("ELF is not x86-64, but got %q", f.Machine.String())
	}
	return f, nil
}

// loadBase is the lowest virtual address of a PT_LOAD segment, page aligned.
func loadBase(f *elf.File) uint64 {
	base := ^uint64(0)
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD && p.Vaddr < base {
			base = p.Vaddr
		}
	}
	if base == ^uint64(0) {
		return 0
	}
	return base &^ (pageSize - 1)
}
