package irpass

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/lanl/byflgo/internal/config"
	"github.com/lanl/byflgo/internal/counters"
	"github.com/lanl/byflgo/internal/symtab"
)

// Pass is the instrumentation pass driver: given a Config (validated once at
// construction) and a Module, it produces a ModulePlan describing every
// counter update and callback an instrumented build would execute, per
// spec.md §4.1.
type Pass struct {
	Cfg *config.Config
}

// NewPass validates cfg (spec.md §4.1's ConfigError conditions) and returns
// a ready-to-use pass.
func NewPass(cfg *config.Config) (*Pass, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pass{Cfg: cfg}, nil
}

// InstructionPlan pairs one original instruction with the pass's
// classification of it, preserving positional correspondence with the
// source BasicBlock for the interpreter (internal/irpass's execution-time
// counterpart to this compile-time pass).
type InstructionPlan struct {
	Source Instruction
	Class  Classification

	// CallID is a stable per-call-point identifier (function name + block
	// name + in-block index, hashed with xxhash), used to key the stride
	// tracker's per-call-point AccessPattern (spec.md §4.6, stride.SymbolInfo.ID).
	CallID uint64
}

// BasicBlockPlan is one basic block's instrumentation: its classified
// instructions in order, the terminator bucket to record, and the
// reporting callbacks the pass would emit at block exit (spec.md §4.1's
// "end-of-basic-block code").
type BasicBlockPlan struct {
	Name          string
	Instructions  []InstructionPlan
	TermIndex     int
	EmitAccumulate bool // bf_accumulate_bb_tallies / bf_report_bb_tallies
	EmitReport     bool
	EmitAssocFunc  bool // bf_assoc_counters_with_func(funcKey), per-function mode
	IsReturn       bool // also emit bf_pop_function
}

// FunctionPlan is one function's full instrumentation plan.
type FunctionPlan struct {
	Name        string
	Key         uint64
	Excluded    bool
	BasicBlocks []BasicBlockPlan
}

// ModulePlan is the pass's full output for one module: every function's
// plan plus the (keys[], names[]) registration pair spec.md §4.1's module
// constructor emits.
type ModulePlan struct {
	Cfg       *config.Config
	Functions []FunctionPlan
	Keys      []uint64
	Names     []string
}

func termIndexFor(bb *BasicBlock) int {
	if bb.Term != TermKindInfer {
		return int(bb.Term)
	}
	switch bb.Terminator().Op {
	case OpRet:
		return counters.EndBBReturn
	case OpSwitch:
		return counters.EndBBSwitch
	case OpIndirectBr:
		return counters.EndBBIndirect
	case OpInvoke:
		return counters.EndBBInvoke
	default:
		return counters.EndBBUncondReal
	}
}

// InstrumentFunction builds fn's plan. The function key is generated by the
// caller (InstrumentModule) so that key order matches declaration order
// within the module, per spec.md §4.1/§4.9's Mersenne-Twister stream.
func (p *Pass) InstrumentFunction(fn *Function, key uint64) FunctionPlan {
	plan := FunctionPlan{Name: fn.Name, Key: key, Excluded: fn.Excluded}
	if fn.Excluded {
		return plan
	}

	for _, bb := range fn.BasicBlocks {
		bbp := BasicBlockPlan{
			Name:           bb.Name,
			TermIndex:      termIndexFor(bb),
			EmitAccumulate: true,
			EmitReport:     p.Cfg.PerBasicBlock,
			EmitAssocFunc:  p.Cfg.PerFunction,
			IsReturn:       bb.Terminator().Op == OpRet,
		}
		for idx, ins := range bb.Instructions {
			callID := xxhash.Sum64String(fmt.Sprintf("%s:%s:%d", fn.Name, bb.Name, idx))
			bbp.Instructions = append(bbp.Instructions, InstructionPlan{Source: ins, Class: Classify(ins), CallID: callID})
		}
		plan.BasicBlocks = append(plan.BasicBlocks, bbp)
	}
	return plan
}

// InstrumentModule validates exclusion rules, generates a deterministic
// function-key stream seeded from mod.Identifier, and instruments every
// non-excluded function, per spec.md §4.1's per-module finalization.
func (p *Pass) InstrumentModule(mod *Module) (*ModulePlan, error) {
	keygen := symtab.NewFunctionKeyGenForModule(mod.Identifier)

	mp := &ModulePlan{Cfg: p.Cfg}
	for _, fn := range mod.Functions {
		if p.Cfg.IsExcluded(fn.Name) {
			fn.Excluded = true
		}
		key := keygen.GenerateKey(fn.Name)
		plan := p.InstrumentFunction(fn, key)
		mp.Functions = append(mp.Functions, plan)
		if !fn.Excluded {
			mp.Keys = append(mp.Keys, key)
			mp.Names = append(mp.Names, fn.Name)
		}
	}
	return mp, nil
}

// FindFunction returns the plan for the named function, if any.
func (mp *ModulePlan) FindFunction(name string) (*FunctionPlan, bool) {
	for i := range mp.Functions {
		if mp.Functions[i].Name == name {
			return &mp.Functions[i], true
		}
	}
	return nil, false
}

