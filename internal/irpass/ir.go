// Package irpass implements byfl's instrumentation pass (spec.md §4.1)
// against a small, explicit intermediate representation that plays the role
// LLVM IR plays in the original: a module of functions, each a sequence of
// basic blocks of typed instructions. The pass walks this IR, classifies
// each instruction, and rewrites the block by inserting counter-update and
// callback instructions (internal/abi's externally-named surface), exactly
// mirroring the decisions spec.md §4.1 describes for the LLVM pass.
package irpass

import "fmt"

// Opcode enumerates the instruction classes the pass distinguishes. The
// ordering has no significance beyond indexing counters.InstMixHisto.
type Opcode int

const (
	OpUnknown Opcode = iota
	OpLoad
	OpStore
	OpCall
	OpGetElementPtr
	OpPhi
	OpBitCast
	OpLandingPad
	OpExtractElement
	OpInsertElement
	OpShuffleVector
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpICmp
	OpFCmp
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFRem
	OpSitofp
	OpFptosi
	OpTrunc
	OpZext
	OpSext
	OpBr
	OpSwitch
	OpIndirectBr
	OpRet
	OpInvoke
	OpUnreachable
)

func (op Opcode) String() string {
	names := [...]string{
		"unknown", "load", "store", "call", "getelementptr", "phi", "bitcast",
		"landingpad", "extractelement", "insertelement", "shufflevector",
		"add", "sub", "mul", "div", "rem", "and", "or", "xor", "shl", "shr",
		"icmp", "fcmp", "fadd", "fsub", "fmul", "fdiv", "frem", "sitofp",
		"fptosi", "trunc", "zext", "sext", "br", "switch", "indirectbr",
		"ret", "invoke", "unreachable",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return fmt.Sprintf("opcode(%d)", int(op))
}

// ValueKind distinguishes the handful of operand/result shapes the pass's
// classifier cares about: whether a type is floating point, whether it's a
// vector, and its bit width.
type ValueKind struct {
	IsFloat    bool
	IsVector   bool
	IsPointer  bool
	NumElements uint64 // 1 for scalars
	ElementBits uint64
}

// Bytes returns the store size in bytes of one scalar element (word size for
// load/store byte-count tallying).
func (k ValueKind) Bytes() uint64 {
	return (k.ElementBits + 7) / 8
}

// TotalBits returns the full value's bit width (NumElements * ElementBits).
func (k ValueKind) TotalBits() uint64 {
	return k.NumElements * k.ElementBits
}

// Operand is an instruction argument: either a compile-time constant or a
// reference to another instruction's result.
type Operand struct {
	IsConstant bool
	ConstValue uint64 // meaningful only if IsConstant
}

// Instruction is one IR instruction inside a basic block.
type Instruction struct {
	Op        Opcode
	Type      ValueKind
	Operands  []Operand
	CalleeName string // meaningful only for OpCall/OpInvoke
	IsDebugOrLifetimeIntrinsic bool // skip entirely for counting (spec.md §4.1)
	IsMemIntrinsic             bool // memset/memcpy/memmove
	MemIntrinsicIsMemset       bool
	MemIntrinsicLenOperand     uint64 // length argument, when statically known
}

// TermKind classifies a basic block's terminator into the bucket counted by
// counters.Terminators (the real LLVM pass distinguishes a block's real
// unconditional branches from ones it synthesized itself, and a
// conditional branch's taken/not-taken arms, none of which follow from
// Opcode alone). The zero value, TermKindInfer, asks the pass to derive a
// kind from the block's last instruction's opcode instead (safe as a
// default because no block is ever deliberately classified into the
// aggregate counters.EndBBAny bucket).
type TermKind int

const TermKindInfer TermKind = 0

// BasicBlock is a straight-line sequence of instructions ending in a
// terminator (Br/Switch/IndirectBr/Ret/Invoke/Unreachable).
type BasicBlock struct {
	Name         string
	Instructions []Instruction
	Term         TermKind
}

// Terminator returns the block's last instruction, which the pass assumes
// is always a control-flow instruction (spec.md §4.1's "record the
// terminator kind").
func (bb *BasicBlock) Terminator() Instruction {
	if len(bb.Instructions) == 0 {
		return Instruction{Op: OpUnreachable}
	}
	return bb.Instructions[len(bb.Instructions)-1]
}

// Function is a named sequence of basic blocks. Excluded reports whether
// the per-function include/exclude configuration should skip instrumenting
// this function entirely (still present in the module, just untouched).
type Function struct {
	Name         string
	BasicBlocks  []*BasicBlock
	Excluded     bool
}

// Module is the top-level compilation unit the pass instruments.
type Module struct {
	Identifier string
	Functions  []*Function
}
