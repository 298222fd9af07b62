// Package abi implements byfl's externally-named instrumented-binary
// callback surface (spec.md §6): the set of functions the IR pass assumes
// are linked into every instrumented program. Since this rewrite instruments
// an explicit Go IR (internal/irpass) rather than rewriting machine code,
// RuntimeState plays the role the real runtime library (libbyfl) plays for
// LLVM-instrumented binaries: a concrete, callable implementation of every
// bf_* symbol spec.md §6 lists.
package abi

import (
	"sync"

	"github.com/lanl/byflgo/internal/cache"
	"github.com/lanl/byflgo/internal/config"
	"github.com/lanl/byflgo/internal/counters"
	"github.com/lanl/byflgo/internal/datastruct"
	"github.com/lanl/byflgo/internal/pagetable"
	"github.com/lanl/byflgo/internal/reuse"
	"github.com/lanl/byflgo/internal/stride"
	"github.com/lanl/byflgo/internal/symtab"
)

// RuntimeState is the process-wide collection of engines the callback
// surface mutates: the aggregation engine, the data-structure tracker, the
// stride/vector trackers, the reuse-distance engine, the cache-model pool,
// and the function-key/name registry populated by per-module
// finalization (spec.md §4.1's "module constructor ... registration
// function").
type RuntimeState struct {
	Config *config.Config

	Aggregator  *counters.Aggregator
	DataStructs *datastruct.Tracker
	Strides     *stride.Tracker
	Vectors     *stride.VectorTracker
	Cache       *cache.Pool

	UniqueBytesProg *pagetable.Table            // bf_assoc_addresses_with_prog's target
	UniqueBytesFunc map[uint64]*pagetable.Table // bf_assoc_addresses_with_func's targets, one per function key
	ReuseDistProg   *reuse.Distance             // bf_reuse_dist_addrs_prog's target

	mu              sync.Mutex
	countingEnabled bool
	funcNames       map[uint64]string // populated by RegisterFunctionNames
	taggedRegions   map[uint64]string // bf_tag_data_region: addr -> tag

	categorizeMu sync.Mutex
	categorize   func() (string, bool)
}

// NewRuntimeState builds the full engine set for cfg. categorize implements
// the user-override hook bf_categorize_counters.
func NewRuntimeState(cfg *config.Config, categorize func() (string, bool)) *RuntimeState {
	rs := &RuntimeState{
		Config:          cfg,
		Aggregator:      counters.NewAggregator(cfg.ThreadSafe, categorize),
		DataStructs:     datastruct.New(),
		Strides:         stride.NewTracker(cfg.UniqueBytes || cfg.MemFootprint),
		Vectors:         stride.NewVectorTracker(),
		Cache:           cache.NewPool(64, 20),
		funcNames:       make(map[uint64]string),
		taggedRegions:   make(map[uint64]string),
		countingEnabled: true,
	}
	if cfg.UniqueBytes {
		pageSize := int(cfg.PageSize)
		if pageSize == 0 {
			pageSize = pagetable.SystemPageSize()
		}
		rs.UniqueBytesProg = pagetable.NewBitTable(pageSize)
		if cfg.PerFunction {
			rs.UniqueBytesFunc = make(map[uint64]*pagetable.Table)
		}
	}
	if cfg.ReuseDistance != config.ReuseDistanceOff {
		rs.ReuseDistProg = reuse.New(cfg.MaxReuseDistance)
	}
	return rs
}

// AssocAddressesWithFunc implements bf_assoc_addresses_with_func(name, base,
// n): fold touched bytes into funcKey's own unique-byte page table, lazily
// allocated on first access. A no-op unless both per-function and
// unique-byte tracking are enabled (UniqueBytesFunc is nil otherwise).
func (rs *RuntimeState) AssocAddressesWithFunc(funcKey, base, n uint64) {
	if rs.UniqueBytesFunc == nil {
		return
	}
	rs.mu.Lock()
	tbl, ok := rs.UniqueBytesFunc[funcKey]
	if !ok {
		pageSize := int(rs.Config.PageSize)
		if pageSize == 0 {
			pageSize = pagetable.SystemPageSize()
		}
		tbl = pagetable.NewBitTable(pageSize)
		rs.UniqueBytesFunc[funcKey] = tbl
	}
	rs.mu.Unlock()
	tbl.Access(base, n)
}

// RegisterFunctionNames implements the per-module registration function
// spec.md §4.1 describes: (keys[], names[]) pairs emitted by a module
// constructor, mapping each function's Mersenne-Twister-generated key to its
// demangled name.
func (rs *RuntimeState) RegisterFunctionNames(keys []uint64, names []string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for i := range keys {
		rs.funcNames[keys[i]] = names[i]
	}
}

// FunctionName looks up a previously registered function key.
func (rs *RuntimeState) FunctionName(key uint64) (string, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	name, ok := rs.funcNames[key]
	return name, ok
}

// CountingEnabled reports whether instrumented callbacks should currently
// record anything (spec.md SUPPLEMENTED FEATURES: bf_enable_counting).
func (rs *RuntimeState) CountingEnabled() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.countingEnabled
}

// EnableCounting turns counting on or off at run time. The Thread callbacks
// in this package do not check it themselves; internal/irpass's
// Interpreter.ExecuteBasicBlock checks CountingEnabled once per basic-block
// entry and skips the whole block when counting is off.
func (rs *RuntimeState) EnableCounting(enabled bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.countingEnabled = enabled
}

// TagDataRegion associates an arbitrary user string with the data structure
// covering addr, per original_source/include/byfl.h's bf_tag_data_region.
func (rs *RuntimeState) TagDataRegion(addr uint64, tag string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.taggedRegions[addr] = tag
}

// DataRegionTag returns the tag previously attached to addr via
// TagDataRegion, if any.
func (rs *RuntimeState) DataRegionTag(addr uint64) (string, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	tag, ok := rs.taggedRegions[addr]
	return tag, ok
}

// globalInterner backs bf_string_to_symbol for callers of this package that
// have no more specific interning table in scope.
var globalInterner = symtab.Global()

// StringToSymbol implements bf_string_to_symbol (spec.md §4.9): a stable
// pointer-identity for equal strings.
func StringToSymbol(s string) *string {
	return globalInterner.Intern(s)
}
