package symtab

import "github.com/cespare/xxhash/v2"

// FunctionKeyGen produces a deterministic stream of 64-bit function keys.
// Two compilations of the same module identifier yield the same keys (the
// generator is reseeded from hash(module_identifier)); two different
// modules overwhelmingly yield disjoint key streams. See spec.md §4.1/§4.9.
type FunctionKeyGen struct {
	rng *MersenneTwister
}

// NewFunctionKeyGen seeds a key generator from an already-computed seed.
func NewFunctionKeyGen(seed uint64) *FunctionKeyGen {
	return &FunctionKeyGen{rng: NewMersenneTwister(seed)}
}

// SeedFromModuleID derives a deterministic seed from a module identifier
// (e.g. a module name or compilation-unit path) using xxhash rather than a
// hand-rolled string hash.
func SeedFromModuleID(moduleID string) uint64 {
	return xxhash.Sum64String(moduleID)
}

// NewFunctionKeyGenForModule is the common-case constructor: derive the seed
// from the module identifier and build the generator in one call.
func NewFunctionKeyGenForModule(moduleID string) *FunctionKeyGen {
	return NewFunctionKeyGen(SeedFromModuleID(moduleID))
}

// NextKey returns the next pseudo-random 64-bit key in the stream.
func (g *FunctionKeyGen) NextKey() uint64 {
	return g.rng.Next()
}

// GenerateKey returns a key for a named function. Byfl's original generator
// never actually hashes the name (it draws the next value from the stream
// regardless of name, relying on stream order matching emission order for
// determinism across identical recompiles); we preserve that behavior.
func (g *FunctionKeyGen) GenerateKey(_ string) uint64 {
	return g.NextKey()
}
