package irpass

import (
	"github.com/lanl/byflgo/internal/abi"
	"github.com/lanl/byflgo/internal/config"
	"github.com/lanl/byflgo/internal/counters"
	"github.com/lanl/byflgo/internal/stride"
)

// AddressResolver supplies the runtime address (and byte count) a load or
// store instruction touched during one execution of a basic block. Index i
// is the instruction's position within BasicBlockPlan.Instructions. Returning
// ok == false skips every address-dependent callback for that instruction
// (unique-byte tracking, reuse distance, data-structure access, stride
// tracking) while the byte/op counters above the pass still fire
// unconditionally, matching spec.md §4.1's split between "always counted"
// and "optionally emit calls to ...".
type AddressResolver func(i int) (base uint64, ok bool)

// Interpreter executes a ModulePlan against a concrete abi.Thread/RuntimeState,
// playing the role real instrumented machine code plays: for each basic
// block visited it performs exactly the counter updates and callbacks
// spec.md §4.1 says the pass would have inserted. It exists so this rewrite
// is end-to-end testable (spec.md §8's scenarios) without an actual
// compiler backend.
type Interpreter struct {
	Plan *ModulePlan
}

// NewInterpreter creates an interpreter for a module's instrumentation plan.
func NewInterpreter(plan *ModulePlan) *Interpreter {
	return &Interpreter{Plan: plan}
}

func reuseDistanceEnabled(mode config.ReuseDistanceMode, isStore bool) bool {
	switch mode {
	case config.ReuseDistanceBoth:
		return true
	case config.ReuseDistanceLoads:
		return !isStore
	case config.ReuseDistanceStores:
		return isStore
	default:
		return false
	}
}

// ExecuteBasicBlock simulates one dynamic execution of bbp on thread th,
// using resolve (may be nil) to obtain runtime addresses for loads/stores.
// callerPC identifies the call site for data-structure-miss synthesis
// (bf_access_data_struct); funcKey/funcName are the enclosing function's key
// and name, used for per-function association at block exit and for
// attributing vector/stride tallies.
func (ip *Interpreter) ExecuteBasicBlock(th *abi.Thread, bbp *BasicBlockPlan, funcKey uint64, funcName string, callerPC uint64, resolve AddressResolver) {
	if !th.RS.CountingEnabled() {
		return // bf_enable_counting(false): suppression checked once per basic-block entry
	}

	cfg := ip.Plan.Cfg

	for i, instPlan := range bbp.Instructions {
		c := instPlan.Class
		switch {
		case c.NoOp:
			// PHI, bit-cast, landing-pad, ignored intrinsics: nothing to do.

		case c.IsLoad, c.IsStore:
			if c.ByteCount == 0 {
				continue // boundary behavior: zero-sized load/store, no counter updates
			}
			if c.IsLoad {
				th.State.Current.Loads += c.ByteCount
				th.State.Current.LoadIns++
			} else {
				th.State.Current.Stores += c.ByteCount
				th.State.Current.StoreIns++
			}
			if cfg.TypedCounting {
				th.State.Current.MemInsts[c.MemInstsIndex]++
			}
			if resolve != nil {
				if base, ok := resolve(i); ok {
					if cfg.UniqueBytes {
						th.AssocAddressesWithProg(base, c.ByteCount)
						if cfg.PerFunction {
							th.AssocAddressesWithFunc(funcKey, base, c.ByteCount)
						}
					}
					if reuseDistanceEnabled(cfg.ReuseDistance, c.IsStore) {
						th.ReuseDistAddrsProg(base, c.ByteCount)
					}
					th.AccessDataStruct(callerPC, base, c.ByteCount, c.IsStore)
					if cfg.Strides {
						sinfo := stride.SymbolInfo{ID: instPlan.CallID, Function: funcName}
						th.TrackStride(sinfo, base, c.ByteCount, c.IsStore)
					}
				}
			}

		case c.IsCall:
			th.PushBasicBlock()
			th.State.Current.CallIns++
			if c.IsMemIntrinsic {
				if c.MemIntrinsicIsMemset {
					th.State.Current.MemIntrinsics[counters.MemsetCalls]++
					th.State.Current.MemIntrinsics[counters.MemsetBytes] += c.MemIntrinsicLen
				} else {
					th.State.Current.MemIntrinsics[counters.MemxferCalls]++
					th.State.Current.MemIntrinsics[counters.MemxferBytes] += c.MemIntrinsicLen
				}
			}
			th.PopBasicBlock()

		case c.IsOp:
			th.State.Current.Ops += c.OpCount
			th.State.Current.OpBits += c.OpBits
			if c.IsFlop {
				th.State.Current.Flops++
				th.State.Current.FPBits += c.FPBits
			}
			if c.TallyVector && cfg.Vectors {
				th.TallyVectorOperation(funcName, c.Vector.NumElements, c.Vector.ElementBits, c.Vector.IsFlop)
			}
		}
	}

	th.State.Current.Terminators[bbp.TermIndex]++
	if bbp.TermIndex != counters.EndBBAny {
		th.State.Current.Terminators[counters.EndBBAny]++
	}

	// bf_accumulate_bb_tallies folds and zeroes the thread-local scalar/array
	// counters, then bf_report_bb_tallies rolls the per-BB bundle into
	// global/per-function/partition totals at every basic-block boundary
	// (spec.md §4.1/§4.2). The plan's EmitReport flag (-bf-every-bb) is not
	// read here or anywhere else; no textual per-BB output is produced.
	th.AccumulateBBTallies()
	th.ReportBBTallies()
	if bbp.EmitAssocFunc {
		th.AssocCountersWithFunc(funcKey)
	}
	if bbp.IsReturn {
		th.PopFunction()
	}
}

// BlockVisit is one dynamic visit to a basic block during ExecuteFunction:
// which block (by index into FunctionPlan.BasicBlocks) and, optionally, the
// runtime addresses its loads/stores touched.
type BlockVisit struct {
	Block   int
	Resolve AddressResolver
}

// ExecuteFunction runs the function prologue (bf_initialize_if_necessary
// then, depending on mode, bf_push_function or bf_incr_func_tally) followed
// by the given sequence of basic-block visits, per spec.md §4.1's "Function
// prologue". callerPC is threaded through to every load/store for
// data-structure association.
func (ip *Interpreter) ExecuteFunction(th *abi.Thread, fp *FunctionPlan, callerPC uint64, visits []BlockVisit) {
	th.InitializeIfNecessary()
	if ip.Plan.Cfg.CallStack {
		th.PushFunction(fp.Name, fp.Key)
	} else if ip.Plan.Cfg.PerFunction {
		th.IncrFuncTally(fp.Key)
	}

	for _, v := range visits {
		ip.ExecuteBasicBlock(th, &fp.BasicBlocks[v.Block], fp.Key, fp.Name, callerPC, v.Resolve)
	}
}
