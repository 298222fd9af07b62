// Package datastruct implements byfl's data-structure tracker: an interval
// tree mapping live address ranges to per-allocation-site counters, plus a
// PC-keyed map used to find-or-create those counters (spec.md §4.5),
// grounded on original_source/lib/byfl/datastructs.cpp.
package datastruct

// Counters accumulates load/store traffic for one data structure, whether a
// static symbol discovered at startup or a dynamically (heap- or
// stack-)allocated object first seen at an allocating PC.
type Counters struct {
	AllocPC        uint64
	VarPrefix      string
	Name           string
	DemangledName  string
	Origin         string
	CurrentSize    uint64
	MaxSize        uint64
	BytesLoaded    uint64
	BytesStored    uint64
	LoadOps        uint64
	StoreOps       uint64
	BytesAlloced   uint64
	NumAllocs      uint64
}

// NewStatic builds counters for a statically-linked symbol discovered via
// the process's symbol table: name and demangled name are already known, so
// no lazy name generation is ever needed.
func NewStatic(name, demangledName string, size uint64, origin string) *Counters {
	return &Counters{
		Name:          name,
		DemangledName: demangledName,
		CurrentSize:   size,
		MaxSize:       size,
		Origin:        origin,
		BytesAlloced:  size,
		NumAllocs:     1,
	}
}

// NewDynamic builds counters for a dynamic allocation first observed at
// allocPC; its symbolic name is generated lazily at report time, via
// GenerateSymbolName, once source-line information is available.
func NewDynamic(allocPC uint64, varPrefix string, size uint64, origin string) *Counters {
	return &Counters{
		AllocPC:      allocPC,
		VarPrefix:    varPrefix,
		CurrentSize:  size,
		MaxSize:      size,
		Origin:       origin,
		BytesAlloced: size,
		NumAllocs:    1,
	}
}

// GrowAllocation folds in a further allocation at the same PC (e.g. a second
// malloc call site reached again, or the non-realloc branch of
// AssocDynamic), bumping current/max size and the allocation tally.
func (c *Counters) GrowAllocation(numBytes uint64) {
	c.CurrentSize += numBytes
	if c.CurrentSize > c.MaxSize {
		c.MaxSize = c.CurrentSize
	}
	c.BytesAlloced += numBytes
	c.NumAllocs++
}

// ShrinkAllocation reduces CurrentSize by numBytes, used when an old
// interval is displaced by a realloc or freed by a stack-frame return.
func (c *Counters) ShrinkAllocation(numBytes uint64) {
	c.CurrentSize -= numBytes
}

// GenerateSymbolName lazily derives Name/DemangledName for a dynamic
// allocation from its allocating PC, via the supplied source-line
// resolver. It is a no-op once a name has already been set (static symbols
// always have one from construction), per
// DataStructCounters::generate_symbol_name.
func (c *Counters) GenerateSymbolName(resolve func(pc uint64) (file string, line int, function string, ok bool)) {
	if c.Name != "" || c.AllocPC == 0 {
		return
	}
	allocatedText := " allocated at "
	if c.Origin == "unknown" {
		allocatedText = " accessed at "
	}
	file, line, function, ok := resolve(c.AllocPC)
	if !ok {
		c.Name = formatAddrFallback(c.VarPrefix, allocatedText, c.AllocPC)
		c.DemangledName = c.Name
		return
	}
	c.Name = formatLocation(c.VarPrefix, allocatedText, file, line, function, c.AllocPC)
	c.DemangledName = formatLocation(c.VarPrefix, allocatedText, file, line, demangleBestEffort(function), c.AllocPC)
}

// AccessCount is the total bytes moved, used to rank data structures by
// "interestingness" at report time.
func (c *Counters) AccessCount() uint64 { return c.BytesLoaded + c.BytesStored }
