package symbols

import (
	"debug/elf"
	"fmt"
	"os"
	"strings"
)

// Table resolves run-time addresses of one executable mapping.
type Table struct {
	Symbols SortedSymbols
	// Bias is added to symbol values to get run-time addresses. Non-zero for PIE.
	Bias uint64
}

// Lookup returns the symbol containing addr and its run-time start address.
// It has the shape of x86asm.SymLookup.
func (t *Table) Lookup(addr uint64) (string, uint64) {
	if addr < t.Bias {
		return "", 0
	}
	s := t.Symbols.FindSymbol(addr - t.Bias)
	if strings.HasPrefix(s.Name, "!") {
		return "", 0
	}
	return s.Name, s.Value + t.Bias
}

// ForProcess loads the symbols of the main executable of pid and computes
// its load bias from the process memory map.
func ForProcess(pid int) (*Table, error) {
	exe, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable of %d: %w", pid, err)
	}
	f, err := Open(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	syms, err := Symbols(f)
	if err != nil {
		return nil, err
	}
	t := &Table{Symbols: syms}
	if f.Type != elf.ET_DYN {
		return t, nil
	}
	regions, err := ReadMaps(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map of %d: %w", pid, err)
	}
	bias, err := Bias(f, exe, regions)
	if err != nil {
		return nil, err
	}
	t.Bias = bias
	return t, nil
}

// Bias finds the load bias of the position independent executable exe.
func Bias(f *elf.File, exe string, regions []Region) (uint64, error) {
	for _, r := range regions {
		if r.Path == exe && r.Offset == 0 {
			return r.Start - loadBase(f), nil
		}
	}
	return 0, fmt.Errorf("no mapping of %q", exe)
}
