// Package counters implements byfl's counter bundle and the thread-local ->
// per-basic-block -> per-function/call-stack -> partition -> global
// aggregation engine described in spec.md §3 and §4.2.
package counters

// Memory-access classification axes (spec.md §3's 5-D mem_insts histogram),
// mirroring byfl-common.h's BF_OP_*, BF_REF_*, BF_AGG_*, BF_TYPE_*, BF_WIDTH_*.
const (
	OpLoad = iota
	OpStore
	OpNum
)

const (
	RefValue = iota
	RefPointer
	RefNum
)

const (
	AggScalar = iota
	AggVector
	AggNum
)

const (
	TypeInt = iota
	TypeFP
	TypeOther
	TypeNum
)

const (
	Width8 = iota
	Width16
	Width32
	Width64
	Width128
	WidthOther
	WidthNum
)

// NumMemInsts is the flattened size of the 5-D mem_insts histogram.
const NumMemInsts = OpNum * RefNum * AggNum * TypeNum * WidthNum

// MemInstsIndex flattens the (op, ref, agg, typ, width) tuple into an index
// into a NumMemInsts-sized array, per spec.md §3's idx formula.
func MemInstsIndex(op, ref, agg, typ, width int) int {
	idx := 0
	idx = idx*OpNum + op
	idx = idx*RefNum + ref
	idx = idx*AggNum + agg
	idx = idx*TypeNum + typ
	idx = idx*WidthNum + width
	return idx
}

// Basic-block terminator classification (byfl's BF_END_BB_* enum).
const (
	EndBBAny = iota
	EndBBUncondReal
	EndBBUncondFake
	EndBBCondNotTaken
	EndBBCondTaken
	EndBBIndirect
	EndBBSwitch
	EndBBReturn
	EndBBInvoke
	EndBBNum
)

// Memory-intrinsic counters (memset vs memcpy/memmove call counts and byte
// counts).
const (
	MemsetCalls = iota
	MemsetBytes
	MemxferCalls
	MemxferBytes
	NumMemIntrin
)

// NumOpcodes bounds the instruction-mix histogram. The real LLVM opcode
// space is fixed at compile time; our IR (internal/irpass) enumerates a
// small, fixed opcode set, so this is sized generously and indexed directly
// by irpass.Opcode.
const NumOpcodes = 64

// Bundle is the fundamental counter record, carried at every scope named in
// spec.md §3: current-BB, per-function, global, per-user-partition.
type Bundle struct {
	Loads, Stores              uint64
	LoadIns, StoreIns, CallIns uint64
	Flops, FPBits              uint64
	Ops, OpBits                uint64
	MemInsts                   [NumMemInsts]uint64
	InstMixHisto               [NumOpcodes]uint64
	Terminators                [EndBBNum]uint64
	MemIntrinsics              [NumMemIntrin]uint64
}

// Add accumulates other into b in place (b += other). Used to roll a
// per-basic-block bundle into global/per-function/partition totals.
func (b *Bundle) Add(other *Bundle) {
	b.Loads += other.Loads
	b.Stores += other.Stores
	b.LoadIns += other.LoadIns
	b.StoreIns += other.StoreIns
	b.CallIns += other.CallIns
	b.Flops += other.Flops
	b.FPBits += other.FPBits
	b.Ops += other.Ops
	b.OpBits += other.OpBits
	for i := range b.MemInsts {
		b.MemInsts[i] += other.MemInsts[i]
	}
	for i := range b.InstMixHisto {
		b.InstMixHisto[i] += other.InstMixHisto[i]
	}
	for i := range b.Terminators {
		b.Terminators[i] += other.Terminators[i]
	}
	for i := range b.MemIntrinsics {
		b.MemIntrinsics[i] += other.MemIntrinsics[i]
	}
}

// Reset zeroes every field in place without reallocating, mirroring
// bf_reset_bb_tallies's zero-without-pop semantics.
func (b *Bundle) Reset() {
	*b = Bundle{}
}

// Difference returns a new Bundle holding b - other, field by field. The
// original byfl difference() assigns call_ins from other instead of
// subtracting it (spec.md §9 open question (a)); this rewrite subtracts, as
// the spec directs.
func (b *Bundle) Difference(other *Bundle) *Bundle {
	d := &Bundle{
		Loads:    b.Loads - other.Loads,
		Stores:   b.Stores - other.Stores,
		LoadIns:  b.LoadIns - other.LoadIns,
		StoreIns: b.StoreIns - other.StoreIns,
		CallIns:  b.CallIns - other.CallIns,
		Flops:    b.Flops - other.Flops,
		FPBits:   b.FPBits - other.FPBits,
		Ops:      b.Ops - other.Ops,
		OpBits:   b.OpBits - other.OpBits,
	}
	for i := range d.MemInsts {
		d.MemInsts[i] = b.MemInsts[i] - other.MemInsts[i]
	}
	for i := range d.InstMixHisto {
		d.InstMixHisto[i] = b.InstMixHisto[i] - other.InstMixHisto[i]
	}
	for i := range d.Terminators {
		d.Terminators[i] = b.Terminators[i] - other.Terminators[i]
	}
	for i := range d.MemIntrinsics {
		d.MemIntrinsics[i] = b.MemIntrinsics[i] - other.MemIntrinsics[i]
	}
	return d
}

// TerminatorsConsistent checks spec.md §8 invariant 1:
// terminators[ANY] == sum of all other terminator buckets.
func (b *Bundle) TerminatorsConsistent() bool {
	var sum uint64
	for i := 1; i < EndBBNum; i++ {
		sum += b.Terminators[i]
	}
	return b.Terminators[EndBBAny] == sum
}
