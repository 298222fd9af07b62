package datastruct

import (
	"debug/elf"
	"sort"
)

// LoadELFStaticSymbols enumerates an ELF binary's symbol table and returns a
// sorted, dummy-end-of-section-terminated list suitable for
// Tracker.LoadStaticSymbols. This plays the role of
// initialize_data_structures's BFD-based symbol-table walk: sort all symbols
// by address, then use the delta to the next symbol as a size estimate,
// appending one synthetic end-of-section marker per section so the last
// real symbol in each section gets a bounded interval too.
//
// debug/elf is used directly (no BFD-equivalent ecosystem binding exists in
// the example corpus) -- see DESIGN.md for the stdlib justification.
func LoadELFStaticSymbols(path string) ([]StaticSymbol, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	syms, err := f.Symbols()
	if err != nil && len(syms) == 0 {
		// A binary stripped of the dynamic symtab still has .symtab in debug
		// builds; if there are truly no symbols, fall back to an empty set
		// rather than failing the whole run.
		syms = nil
	}

	entries := make([]StaticSymbol, 0, len(syms))
	for _, s := range syms {
		if s.Value == 0 || elf.ST_TYPE(s.Info) != elf.STT_OBJECT {
			continue
		}
		section := "?"
		if int(s.Section) < len(f.Sections) && s.Section != elf.SHN_UNDEF {
			section = f.Sections[s.Section].Name
		}
		entries = append(entries, StaticSymbol{Addr: s.Value, Name: s.Name, Section: section})
	}

	for _, sect := range f.Sections {
		if sect.Addr == 0 {
			continue
		}
		entries = append(entries, StaticSymbol{
			Addr:    sect.Addr + sect.Size,
			Name:    "*DUMMY END* " + sect.Name,
			Section: sect.Name,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Addr < entries[j].Addr })
	return entries, nil
}
