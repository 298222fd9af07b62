package datastruct

import (
	"sort"
	"sync"

	"github.com/lanl/byflgo/internal/interval"
)

// Tracker maintains the interval tree of live address ranges and the
// PC-keyed map used to find-or-create counters for a given allocation site,
// per spec.md §4.5. All public methods are safe for concurrent use; the
// original guards the equivalent maps with byfl's mega-lock under
// thread-safe mode, so Tracker always serializes internally rather than
// leaving that to the caller.
type Tracker struct {
	mu                 sync.Mutex
	dataStructs        *interval.Tree[*Counters]
	locationToCounters map[uint64]*Counters
	unknownSeq         uint64
}

// New creates an empty tracker. Call LoadStaticSymbols afterward to seed it
// with the process's statically allocated data structures.
func New() *Tracker {
	return &Tracker{
		dataStructs:        interval.New[*Counters](),
		locationToCounters: make(map[uint64]*Counters),
	}
}

// LoadStaticSymbols seeds the tracker from a pre-enumerated, address-sorted
// symbol list (see internal/datastruct/elfsyms.go for how the caller
// produces one from a live binary). Zero-sized and Byfl-inserted ("bf_"
// prefixed) symbols are skipped, mirroring
// initialize_data_structures's dummy-end-of-section filtering.
func (t *Tracker) LoadStaticSymbols(syms []StaticSymbol) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i+1 < len(syms); i++ {
		cur, next := syms[i], syms[i+1]
		if cur.Addr == next.Addr {
			continue // zero-sized
		}
		if len(cur.Name) >= 3 && cur.Name[:3] == "bf_" {
			continue
		}
		if len(cur.Name) >= 11 && cur.Name[:11] == "*DUMMY END*" {
			continue
		}
		size := next.Addr - cur.Addr
		counters := NewStatic("Static variable "+cur.Name, "Static variable "+demangleBestEffort(cur.Name), size, cur.Section)
		iv := interval.Interval{Lower: cur.Addr, Upper: cur.Addr + size}
		t.dataStructs.Insert(iv, counters)
		t.locationToCounters[cur.Addr] = counters
	}
}

// StaticSymbol is one entry from a sorted, dummy-end-of-section-terminated
// symbol table, as produced by an ELF/DWARF reader.
type StaticSymbol struct {
	Addr    uint64
	Name    string
	Section string
}

// disassocLocked removes the interval containing addr, if any, debiting its
// size from the owning counters' CurrentSize. Caller must hold t.mu.
func (t *Tracker) disassocLocked(addr uint64) {
	iv, ok := t.findIntervalLocked(addr)
	if !ok {
		return
	}
	val, _ := t.dataStructs.Remove(addr)
	val.ShrinkAllocation(iv.Upper - iv.Lower)
}

func (t *Tracker) findIntervalLocked(addr uint64) (interval.Interval, bool) {
	_, iv, ok := t.dataStructs.Find(addr)
	return iv, ok
}

// AssocDynamic associates numBytes addresses starting at baseAddr with the
// data structure allocated at callerPC. If oldBaseAddr is non-zero (a
// realloc), the interval previously rooted there is removed first and its
// size debited, and the same counters are reused; otherwise a fresh
// allocation is recorded (or folded into existing counters for the same
// callerPC), per assoc_addresses_with_dstruct.
func (t *Tracker) AssocDynamic(callerPC uint64, origin string, oldBaseAddr, baseAddr, numBytes uint64, varPrefix string) {
	if numBytes == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var counters *Counters
	if oldBaseAddr == 0 {
		if existing, ok := t.locationToCounters[callerPC]; ok {
			counters = existing
			counters.GrowAllocation(numBytes)
		} else {
			counters = NewDynamic(callerPC, varPrefix, numBytes, origin)
			t.locationToCounters[callerPC] = counters
		}
	} else {
		oldIv, ok := t.findIntervalLocked(oldBaseAddr)
		val, removed := t.dataStructs.Remove(oldBaseAddr)
		if !removed || !ok {
			counters = NewDynamic(callerPC, varPrefix, numBytes, origin)
			t.locationToCounters[callerPC] = counters
		} else {
			counters = val
			counters.ShrinkAllocation(oldIv.Upper - oldIv.Lower)
			counters.GrowAllocation(numBytes)
		}
	}

	iv := interval.Interval{Lower: baseAddr, Upper: baseAddr + numBytes}
	t.dataStructs.Insert(iv, counters)
}

// AssocStack associates numBytes addresses starting at baseAddr with a
// stack-allocated variable, first disassociating every interval the new
// range overlaps (a freed stack slot may be reused by an unrelated variable
// in a later call), per bf_assoc_addresses_with_dstruct_stack.
func (t *Tracker) AssocStack(callerPC uint64, origin string, baseAddr, numBytes uint64, varName string) {
	if numBytes == 0 {
		return
	}
	prefix := "Compiler-generated variable"
	if varName != "*UNNAMED*" {
		prefix = "Variable " + varName
	}

	t.mu.Lock()
	iv := interval.Interval{Lower: baseAddr, Upper: baseAddr + numBytes}
	for _, old := range t.dataStructs.DisassociateOverlapping(iv) {
		old.ShrinkAllocation(numBytes) // conservative: exact overlap accounting happens via AssocDynamic's oldBaseAddr path
	}
	t.mu.Unlock()

	t.AssocDynamic(callerPC, origin, 0, baseAddr, numBytes, prefix)
}

// Access finds the data structure containing baseAddr and bumps its
// load/store byte and op counters. A miss synthesizes an "unknown data
// structure" entry keyed by callerPC, per bf_access_data_struct.
func (t *Tracker) Access(callerPC, baseAddr, numBytes uint64, isStore bool) {
	if numBytes == 0 {
		return
	}
	t.mu.Lock()
	counters, _, ok := t.dataStructs.Find(baseAddr)
	if !ok {
		if callerPC == 0 {
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
		t.AssocDynamic(callerPC, "unknown", 0, baseAddr, numBytes, "Unknown data structure")
		t.mu.Lock()
		counters, _, ok = t.dataStructs.Find(baseAddr)
		if !ok {
			t.mu.Unlock()
			return
		}
	}
	if isStore {
		counters.StoreOps++
		counters.BytesStored += numBytes
	} else {
		counters.LoadOps++
		counters.BytesLoaded += numBytes
	}
	t.mu.Unlock()
}

// Report returns every data structure that was ever accessed, sorted by
// decreasing access count, then decreasing max size, then ascending name,
// then ascending origin -- the same ordering as compare_counter_interest --
// with symbol names resolved lazily via resolve (see Counters.GenerateSymbolName).
func (t *Tracker) Report(resolve func(pc uint64) (file string, line int, function string, ok bool)) []*Counters {
	t.mu.Lock()
	defer t.mu.Unlock()

	var interesting []*Counters
	for _, c := range t.locationToCounters {
		if c.AccessCount() > 0 {
			interesting = append(interesting, c)
		}
	}
	for _, c := range interesting {
		c.GenerateSymbolName(resolve)
	}
	sort.Slice(interesting, func(i, j int) bool {
		a, b := interesting[i], interesting[j]
		if a.AccessCount() != b.AccessCount() {
			return a.AccessCount() > b.AccessCount()
		}
		if a.MaxSize != b.MaxSize {
			return a.MaxSize > b.MaxSize
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Origin < b.Origin
	})
	return interesting
}
