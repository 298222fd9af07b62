package symtab

import "sync"

// Table interns strings so that equal values collapse to one pointer-stable
// *string, letting callers compare by identity instead of by content. The
// original byfl.cpp symbol table is a process-wide std::map<const char*,
// const char*>; here it is a process-wide map guarded by a mutex (the "mega-
// lock" protects every other cross-thread structure, but the intern table
// is cheap and hot enough to deserve its own narrower lock, per spec.md §9).
type Table struct {
	mu      sync.RWMutex
	strings map[string]*string
}

// New creates an empty intern table.
func New() *Table {
	return &Table{strings: make(map[string]*string)}
}

// global is the process-wide intern table backing bf_string_to_symbol.
var global = New()

// Global returns the process-wide intern table.
func Global() *Table { return global }

// Intern returns a stable pointer for s: equal strings always return the
// same pointer. A nil/empty input is still interned (unlike byfl's C string
// table, Go has no null pointer ambiguity for strings).
func (t *Table) Intern(s string) *string {
	t.mu.RLock()
	if p, ok := t.strings[s]; ok {
		t.mu.RUnlock()
		return p
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.strings[s]; ok {
		return p
	}
	p := new(string)
	*p = s
	t.strings[s] = p
	return p
}

// Equal reports whether two interned pointers refer to the same string
// (spec.md §8 invariant 5: string_to_symbol(a) == string_to_symbol(b) iff
// strcmp(a,b) == 0).
func Equal(a, b *string) bool {
	return a == b
}

// Len reports how many distinct strings have been interned. Used by tests
// and diagnostics, not by the hot path.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.strings)
}
