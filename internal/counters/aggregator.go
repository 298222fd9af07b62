package counters

import (
	"sync"

	"github.com/lanl/byflgo/internal/callstack"
)

// ThreadState holds the scalar and array counters that spec.md §3/§5 call
// "thread-local": one instance per instrumented thread (goroutine), created
// lazily and passed explicitly to every runtime callback instead of relying
// on true thread-local storage, per the RuntimeState design note in
// spec.md §9.
type ThreadState struct {
	Current Bundle // the thread-local scalar/array counters being accumulated

	bbStack []*Bundle // stack of per-BB bundles; top is the active block
	bbPool  []*Bundle // free list for bbStack frames, to avoid per-BB allocation

	Stack *callstack.Stack // this thread's call stack
}

// NewThreadState allocates a fresh thread-local counter state with one
// initial basic-block frame pushed, matching bf_initialize_if_necessary's
// lazy per-thread setup.
func NewThreadState() *ThreadState {
	ts := &ThreadState{}
	ts.Stack = callstack.New(nil)
	ts.PushBasicBlock()
	return ts
}

func (ts *ThreadState) allocBundle() *Bundle {
	if n := len(ts.bbPool); n > 0 {
		b := ts.bbPool[n-1]
		ts.bbPool = ts.bbPool[:n-1]
		b.Reset()
		return b
	}
	return &Bundle{}
}

// PushBasicBlock wraps a nested call: the per-BB counts accumulated so far
// are preserved on the stack so that a callee's own per-BB counting does not
// leak into the caller's in-flight block (spec.md §4.1's call-instruction
// handling).
func (ts *ThreadState) PushBasicBlock() {
	ts.bbStack = append(ts.bbStack, ts.allocBundle())
}

// PopBasicBlock discards the top-of-stack per-BB frame, returning it to the
// free-list pool.
func (ts *ThreadState) PopBasicBlock() {
	n := len(ts.bbStack)
	if n == 0 {
		return
	}
	top := ts.bbStack[n-1]
	ts.bbStack = ts.bbStack[:n-1]
	ts.bbPool = append(ts.bbPool, top)
}

// TopBasicBlock returns the active per-BB bundle.
func (ts *ThreadState) TopBasicBlock() *Bundle {
	if len(ts.bbStack) == 0 {
		ts.PushBasicBlock()
	}
	return ts.bbStack[len(ts.bbStack)-1]
}

// AccumulateBBTallies adds the thread-local scalar/array counters into the
// top-of-stack per-BB bundle, then zeroes the thread-local counters
// (bf_accumulate_bb_tallies).
func (ts *ThreadState) AccumulateBBTallies() {
	ts.TopBasicBlock().Add(&ts.Current)
	ts.Current.Reset()
}

// ResetBBTallies zeroes the top-of-stack per-BB bundle without popping it
// (bf_reset_bb_tallies).
func (ts *ThreadState) ResetBBTallies() {
	ts.TopBasicBlock().Reset()
}

// Aggregator is the process-wide roll-up target: global totals, per-function
// totals (optionally keyed by call stack), and user-defined partitions.
// Every mutation is guarded by one mutex (the "mega-lock") when ThreadSafe is
// set; spec.md §5 describes the corresponding pass-inserted critical
// sections that make this coarse locking correct without a lock on every
// scalar increment.
type Aggregator struct {
	ThreadSafe bool

	mu               sync.Mutex
	globalTotals     Bundle
	perFuncTotals    map[uint64]*Bundle
	partitionTotals  map[string]*Bundle
	funcCallTallies  map[uint64]uint64
	categorize       func() (tag string, ok bool)
}

// NewAggregator creates an aggregator. categorize implements the user
// override hook bf_categorize_counters: it is called once per basic block
// and, if it returns ok, its tag names the partition that block's counters
// should also be folded into.
func NewAggregator(threadSafe bool, categorize func() (string, bool)) *Aggregator {
	return &Aggregator{
		ThreadSafe:      threadSafe,
		perFuncTotals:   make(map[uint64]*Bundle),
		partitionTotals: make(map[string]*Bundle),
		funcCallTallies: make(map[uint64]uint64),
		categorize:      categorize,
	}
}

func (a *Aggregator) lock() {
	if a.ThreadSafe {
		a.mu.Lock()
	}
}

func (a *Aggregator) unlock() {
	if a.ThreadSafe {
		a.mu.Unlock()
	}
}

// ReportBBTallies folds the thread's current per-BB bundle into the global
// total, the current function's total (if funcKey != 0), and, if the
// categorize hook names a partition, into that partition's total. It then
// resets the per-BB bundle (the pass emits bf_accumulate_bb_tallies then
// bf_report_bb_tallies at every basic-block boundary per spec.md §4.1).
func (a *Aggregator) ReportBBTallies(ts *ThreadState, funcKey uint64) {
	bb := ts.TopBasicBlock()

	a.lock()
	a.globalTotals.Add(bb)
	if funcKey != 0 {
		ft := a.perFuncTotals[funcKey]
		if ft == nil {
			ft = &Bundle{}
			a.perFuncTotals[funcKey] = ft
		}
		ft.Add(bb)
	}
	if a.categorize != nil {
		if tag, ok := a.categorize(); ok {
			pt := a.partitionTotals[tag]
			if pt == nil {
				pt = &Bundle{}
				a.partitionTotals[tag] = pt
			}
			pt.Add(bb)
		}
	}
	a.unlock()

	bb.Reset()
}

// AssocCountersWithFunc increments funcCallTallies[funcKey] and is invoked by
// the pass whenever it emits bf_assoc_counters_with_func (per-function
// reporting mode).
func (a *Aggregator) AssocCountersWithFunc(funcKey uint64) {
	a.lock()
	defer a.unlock()
	a.funcCallTallies[funcKey]++
}

// IncrFuncTally increments the call tally for funcKey without touching
// counters (used when per-function counting is on but call-stack tracking
// is off, bf_incr_func_tally).
func (a *Aggregator) IncrFuncTally(funcKey uint64) {
	a.AssocCountersWithFunc(funcKey)
}

// GlobalTotals returns a copy of the current global totals.
func (a *Aggregator) GlobalTotals() Bundle {
	a.lock()
	defer a.unlock()
	return a.globalTotals
}

// FuncTotals returns a copy of the totals accumulated for funcKey, and
// whether any were recorded.
func (a *Aggregator) FuncTotals(funcKey uint64) (Bundle, bool) {
	a.lock()
	defer a.unlock()
	b, ok := a.perFuncTotals[funcKey]
	if !ok {
		return Bundle{}, false
	}
	return *b, true
}

// PartitionTotals returns a copy of the totals accumulated under tag.
func (a *Aggregator) PartitionTotals(tag string) (Bundle, bool) {
	a.lock()
	defer a.unlock()
	b, ok := a.partitionTotals[tag]
	if !ok {
		return Bundle{}, false
	}
	return *b, true
}

// FuncKeys returns every function key with recorded totals, for report
// generation.
func (a *Aggregator) FuncKeys() []uint64 {
	a.lock()
	defer a.unlock()
	keys := make([]uint64, 0, len(a.perFuncTotals))
	for k := range a.perFuncTotals {
		keys = append(keys, k)
	}
	return keys
}

// CallTally returns how many times funcKey's function was entered.
func (a *Aggregator) CallTally(funcKey uint64) uint64 {
	a.lock()
	defer a.unlock()
	return a.funcCallTallies[funcKey]
}

// CheckGlobalEqualsSumOfFuncs verifies spec.md §8 invariant 6: with
// call-stack mode disabled and no active partition, global_totals equals the
// sum of all per_func_totals. Exposed for tests, not used on the hot path.
func (a *Aggregator) CheckGlobalEqualsSumOfFuncs() bool {
	a.lock()
	defer a.unlock()
	var sum Bundle
	for _, b := range a.perFuncTotals {
		sum.Add(b)
	}
	return sum == a.globalTotals
}
