package irpass

import (
	"github.com/lanl/byflgo/internal/counters"
	"github.com/lanl/byflgo/internal/stride"
)

// sizeofInt is the address-arithmetic weighting unit spec.md §4.1 uses for
// getelementptr operands ("3·sizeof(int) op-bits" / "6·sizeof(int)
// op-bits"); a 32-bit int, as on every mainstream LLVM target triple.
const sizeofIntBits = 32

// Classification is the pass's per-instruction verdict: what counter
// updates and callbacks an instrumented build would emit for this
// instruction, per spec.md §4.1.
type Classification struct {
	NoOp bool

	IsLoad, IsStore bool
	ByteCount       uint64
	MemInstsIndex   int // valid only if TypedCounting is on

	IsCall               bool
	CalleeName           string
	IsMemIntrinsic       bool
	MemIntrinsicIsMemset bool
	MemIntrinsicLen      uint64

	IsOp        bool
	OpCount     uint64 // number of ops this instruction contributes to bf_op_count
	OpBits      uint64
	IsFlop      bool
	FPBits      uint64
	TallyVector bool
	Vector      stride.VectorShape
}

func widthBucket(bits uint64) int {
	switch bits {
	case 8:
		return counters.Width8
	case 16:
		return counters.Width16
	case 32:
		return counters.Width32
	case 64:
		return counters.Width64
	case 128:
		return counters.Width128
	default:
		return counters.WidthOther
	}
}

// memInstsIndex computes the 5-D mem_insts cell for a load/store of kind vk,
// per spec.md §3's classifier: op axis (load/store), ref axis (whether the
// value itself is a pointer), agg axis (scalar/vector), type axis
// (int/fp/other), width axis.
func memInstsIndex(isStore bool, vk ValueKind) int {
	op := counters.OpLoad
	if isStore {
		op = counters.OpStore
	}
	ref := counters.RefValue
	if vk.IsPointer {
		ref = counters.RefPointer
	}
	agg := counters.AggScalar
	if vk.IsVector {
		agg = counters.AggVector
	}
	typ := counters.TypeInt
	if vk.IsFloat {
		typ = counters.TypeFP
	} else if vk.IsPointer {
		typ = counters.TypeOther
	}
	width := widthBucket(vk.ElementBits)
	return counters.MemInstsIndex(op, ref, agg, typ, width)
}

// isIgnoredOpcodeForVectorTally reports the three vector-shuffle opcodes
// spec.md §4.1 excludes from vector tallying even though they operate on
// vector types ("if the opcode is not extract/insert-element/value").
func isIgnoredOpcodeForVectorTally(op Opcode) bool {
	switch op {
	case OpExtractElement, OpInsertElement, OpShuffleVector:
		return true
	default:
		return false
	}
}

// Classify implements spec.md §4.1's per-instruction decision table.
func Classify(ins Instruction) Classification {
	if ins.IsDebugOrLifetimeIntrinsic {
		return Classification{NoOp: true}
	}

	switch ins.Op {
	case OpPhi, OpBitCast, OpLandingPad:
		return Classification{NoOp: true}

	case OpLoad, OpStore:
		c := Classification{
			IsLoad:    ins.Op == OpLoad,
			IsStore:   ins.Op == OpStore,
			ByteCount: ins.Type.Bytes(),
		}
		c.MemInstsIndex = memInstsIndex(c.IsStore, ins.Type)
		return c

	case OpCall, OpInvoke:
		c := Classification{IsCall: true, CalleeName: ins.CalleeName}
		if ins.IsMemIntrinsic {
			c.IsMemIntrinsic = true
			c.MemIntrinsicIsMemset = ins.MemIntrinsicIsMemset
			c.MemIntrinsicLen = ins.MemIntrinsicLenOperand
		}
		return c

	case OpGetElementPtr:
		// A constant index counts as one op (an add); a non-constant index
		// counts as two (a multiply and an add), per spec.md §4.1 and
		// original_source/lib/bytesflops/instrument.cpp:326-354's
		// arg_ops/arg_op_bits accumulation.
		var opCount, opBits uint64
		for _, operand := range ins.Operands {
			if operand.IsConstant {
				opCount++
				opBits += 3 * sizeofIntBits
			} else {
				opCount += 2
				opBits += 6 * sizeofIntBits
			}
		}
		if len(ins.Operands) == 0 {
			opCount = 1
			opBits = 3 * sizeofIntBits
		}
		return Classification{IsOp: true, OpCount: opCount, OpBits: opBits}

	default:
		c := Classification{IsOp: true, OpCount: 1, OpBits: ins.Type.TotalBits()}
		if ins.Type.IsFloat {
			c.IsFlop = true
			c.FPBits = ins.Type.TotalBits()
		}
		if ins.Type.IsVector && !isIgnoredOpcodeForVectorTally(ins.Op) {
			c.TallyVector = true
			c.Vector = stride.VectorShape{
				NumElements: ins.Type.NumElements,
				ElementBits: ins.Type.ElementBits,
				IsFlop:      ins.Type.IsFloat,
			}
		}
		return c
	}
}
