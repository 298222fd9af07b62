package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lanl/byflgo/internal/irpass"
)

// moduleDTO is the on-disk JSON shape describing an IR module for the
// driver to instrument and execute, standing in for the bitcode a real
// opt/clang plugin would read (spec.md §9's note that this rewrite has no
// compiler backend to attach to).
type moduleDTO struct {
	Identifier string        `json:"identifier"`
	Functions  []functionDTO `json:"functions"`
}

type functionDTO struct {
	Name   string       `json:"name"`
	Blocks []blockDTO   `json:"blocks"`
	Runs   int          `json:"runs"` // how many times to execute the block sequence below
}

type blockDTO struct {
	Name         string            `json:"name"`
	Instructions []instructionDTO  `json:"instructions"`
}

type instructionDTO struct {
	Op                     string `json:"op"`
	Bits                   uint64 `json:"bits"`
	Elements               uint64 `json:"elements"`
	Float                  bool   `json:"float"`
	Vector                 bool   `json:"vector"`
	Pointer                bool   `json:"pointer"`
	Callee                 string `json:"callee"`
	MemIntrinsic           bool   `json:"mem_intrinsic"`
	MemIntrinsicIsMemset   bool   `json:"mem_intrinsic_is_memset"`
	MemIntrinsicLen        uint64 `json:"mem_intrinsic_len"`
	DebugOrLifetime        bool   `json:"debug_or_lifetime"`
	ConstantOperands       int    `json:"constant_operands"`
	VariableOperands       int    `json:"variable_operands"`
}

var opcodeNames = map[string]irpass.Opcode{
	"load": irpass.OpLoad, "store": irpass.OpStore, "call": irpass.OpCall,
	"getelementptr": irpass.OpGetElementPtr, "phi": irpass.OpPhi,
	"bitcast": irpass.OpBitCast, "landingpad": irpass.OpLandingPad,
	"extractelement": irpass.OpExtractElement, "insertelement": irpass.OpInsertElement,
	"shufflevector": irpass.OpShuffleVector, "add": irpass.OpAdd, "sub": irpass.OpSub,
	"mul": irpass.OpMul, "div": irpass.OpDiv, "rem": irpass.OpRem, "and": irpass.OpAnd,
	"or": irpass.OpOr, "xor": irpass.OpXor, "shl": irpass.OpShl, "shr": irpass.OpShr,
	"icmp": irpass.OpICmp, "fcmp": irpass.OpFCmp, "fadd": irpass.OpFAdd,
	"fsub": irpass.OpFSub, "fmul": irpass.OpFMul, "fdiv": irpass.OpFDiv,
	"frem": irpass.OpFRem, "sitofp": irpass.OpSitofp, "fptosi": irpass.OpFptosi,
	"trunc": irpass.OpTrunc, "zext": irpass.OpZext, "sext": irpass.OpSext,
	"br": irpass.OpBr, "switch": irpass.OpSwitch, "indirectbr": irpass.OpIndirectBr,
	"ret": irpass.OpRet, "invoke": irpass.OpInvoke, "unreachable": irpass.OpUnreachable,
}

func loadModule(path string) (*moduleDTO, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m moduleDTO
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing IR module %s: %w", path, err)
	}
	return &m, nil
}

func (dto *moduleDTO) toIR() (*irpass.Module, error) {
	mod := &irpass.Module{Identifier: dto.Identifier}
	for _, fdto := range dto.Functions {
		fn := &irpass.Function{Name: fdto.Name}
		for _, bdto := range fdto.Blocks {
			bb := &irpass.BasicBlock{Name: bdto.Name}
			for _, idto := range bdto.Instructions {
				op, ok := opcodeNames[idto.Op]
				if !ok {
					return nil, fmt.Errorf("function %s, block %s: unknown opcode %q", fdto.Name, bdto.Name, idto.Op)
				}
				ins := irpass.Instruction{
					Op: op,
					Type: irpass.ValueKind{
						IsFloat:     idto.Float,
						IsVector:    idto.Vector,
						IsPointer:   idto.Pointer,
						NumElements: maxUint64(idto.Elements, 1),
						ElementBits: idto.Bits,
					},
					CalleeName:                 idto.Callee,
					IsDebugOrLifetimeIntrinsic: idto.DebugOrLifetime,
					IsMemIntrinsic:             idto.MemIntrinsic,
					MemIntrinsicIsMemset:       idto.MemIntrinsicIsMemset,
					MemIntrinsicLenOperand:     idto.MemIntrinsicLen,
				}
				for i := 0; i < idto.ConstantOperands; i++ {
					ins.Operands = append(ins.Operands, irpass.Operand{IsConstant: true})
				}
				for i := 0; i < idto.VariableOperands; i++ {
					ins.Operands = append(ins.Operands, irpass.Operand{IsConstant: false})
				}
				bb.Instructions = append(bb.Instructions, ins)
			}
			fn.BasicBlocks = append(fn.BasicBlocks, bb)
		}
		mod.Functions = append(mod.Functions, fn)
	}
	return mod, nil
}

func maxUint64(v, floor uint64) uint64 {
	if v < floor {
		return floor
	}
	return v
}
