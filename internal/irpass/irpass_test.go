package irpass

import (
	"testing"

	"github.com/lanl/byflgo/internal/abi"
	"github.com/lanl/byflgo/internal/config"
	"github.com/lanl/byflgo/internal/counters"
	"github.com/stretchr/testify/require"
)

func intOp(op Opcode) Instruction {
	return Instruction{Op: op, Type: ValueKind{ElementBits: 64, NumElements: 1}}
}

func TestConfigValidateRejectsBothIncludeAndExclude(t *testing.T) {
	cfg := &config.Config{IncludeFunctions: []string{"a"}, ExcludeFunctions: []string{"b"}}
	_, err := NewPass(cfg)
	require.Error(t, err)
}

func TestConfigValidateRejectsCallStackWithoutPerFunc(t *testing.T) {
	cfg := &config.Config{CallStack: true}
	_, err := NewPass(cfg)
	require.Error(t, err)
}

// TestScenarioOneArithmeticLoopProducesNoFlopsManyOps is spec.md §8 end-to-end
// scenario 1: a tight integer loop of 100,000 iterations doing sum =
// sum*34564793 + i entirely in registers.
func TestScenarioOneArithmeticLoopProducesNoFlopsManyOps(t *testing.T) {
	loopBody := &BasicBlock{
		Name: "loop",
		Instructions: []Instruction{
			intOp(OpMul),
			intOp(OpAdd),
			intOp(OpBr), // back-edge; not a real terminator bucket override needed
		},
	}
	retBlock := &BasicBlock{
		Name:         "ret",
		Instructions: []Instruction{{Op: OpRet}},
	}
	fn := &Function{Name: "main", BasicBlocks: []*BasicBlock{loopBody, retBlock}}
	mod := &Module{Identifier: "scenario1.o", Functions: []*Function{fn}}

	cfg := &config.Config{}
	pass, err := NewPass(cfg)
	require.NoError(t, err)
	plan, err := pass.InstrumentModule(mod)
	require.NoError(t, err)

	fp, ok := plan.FindFunction("main")
	require.True(t, ok)

	rs := abi.NewRuntimeState(cfg, nil)
	th := abi.NewThread(rs)
	interp := NewInterpreter(plan)

	visits := make([]BlockVisit, 0, 100001)
	for i := 0; i < 100000; i++ {
		visits = append(visits, BlockVisit{Block: 0})
	}
	visits = append(visits, BlockVisit{Block: 1})
	interp.ExecuteFunction(th, fp, 0, visits)

	global := rs.Aggregator.GlobalTotals()
	require.Equal(t, uint64(0), global.Flops)
	require.GreaterOrEqual(t, global.Ops, uint64(200000))
	require.Equal(t, uint64(0), global.LoadIns)
	require.Equal(t, uint64(0), global.StoreIns)
	require.Equal(t, uint64(1), global.Terminators[counters.EndBBReturn])
	require.True(t, global.TerminatorsConsistent())
}

// TestScenarioTwoMemcpyTalliesIntrinsicCountersOnly is spec.md §8 scenario 2.
func TestScenarioTwoMemcpyTalliesIntrinsicCountersOnly(t *testing.T) {
	block := &BasicBlock{
		Name: "entry",
		Instructions: []Instruction{
			{
				Op:                     OpCall,
				CalleeName:             "memcpy",
				IsMemIntrinsic:         true,
				MemIntrinsicLenOperand: 4096,
			},
			{Op: OpRet},
		},
	}
	fn := &Function{Name: "copyit", BasicBlocks: []*BasicBlock{block}}
	mod := &Module{Identifier: "scenario2.o", Functions: []*Function{fn}}

	cfg := &config.Config{}
	pass, err := NewPass(cfg)
	require.NoError(t, err)
	plan, err := pass.InstrumentModule(mod)
	require.NoError(t, err)
	fp, _ := plan.FindFunction("copyit")

	rs := abi.NewRuntimeState(cfg, nil)
	th := abi.NewThread(rs)
	interp := NewInterpreter(plan)
	interp.ExecuteFunction(th, fp, 0, []BlockVisit{{Block: 0}})

	global := rs.Aggregator.GlobalTotals()
	require.Equal(t, uint64(1), global.MemIntrinsics[counters.MemxferCalls])
	require.Equal(t, uint64(4096), global.MemIntrinsics[counters.MemxferBytes])
	require.Equal(t, uint64(0), global.Loads+global.Stores)
}

func TestZeroSizedLoadProducesNoCounterUpdates(t *testing.T) {
	block := &BasicBlock{
		Name: "entry",
		Instructions: []Instruction{
			{Op: OpLoad, Type: ValueKind{ElementBits: 0, NumElements: 1}},
			{Op: OpRet},
		},
	}
	fn := &Function{Name: "f", BasicBlocks: []*BasicBlock{block}}
	mod := &Module{Identifier: "m", Functions: []*Function{fn}}
	cfg := &config.Config{}
	pass, _ := NewPass(cfg)
	plan, _ := pass.InstrumentModule(mod)
	fp, _ := plan.FindFunction("f")

	rs := abi.NewRuntimeState(cfg, nil)
	th := abi.NewThread(rs)
	NewInterpreter(plan).ExecuteFunction(th, fp, 0, []BlockVisit{{Block: 0}})

	global := rs.Aggregator.GlobalTotals()
	require.Equal(t, uint64(0), global.Loads)
	require.Equal(t, uint64(0), global.LoadIns)
}

func TestCountingDisabledSuppressesBasicBlockExecution(t *testing.T) {
	block := &BasicBlock{Instructions: []Instruction{intOp(OpAdd), {Op: OpRet}}}
	fn := &Function{Name: "f", BasicBlocks: []*BasicBlock{block}}
	mod := &Module{Identifier: "m", Functions: []*Function{fn}}
	cfg := &config.Config{}
	pass, _ := NewPass(cfg)
	plan, _ := pass.InstrumentModule(mod)
	fp, _ := plan.FindFunction("f")

	rs := abi.NewRuntimeState(cfg, nil)
	rs.EnableCounting(false)
	th := abi.NewThread(rs)
	NewInterpreter(plan).ExecuteFunction(th, fp, 0, []BlockVisit{{Block: 0}})

	global := rs.Aggregator.GlobalTotals()
	require.Equal(t, uint64(0), global.Ops)
	require.Equal(t, uint64(0), global.Terminators[counters.EndBBReturn])
}

func TestExcludedFunctionIsNotInstrumented(t *testing.T) {
	block := &BasicBlock{Instructions: []Instruction{{Op: OpRet}}}
	fn := &Function{Name: "skip_me", BasicBlocks: []*BasicBlock{block}}
	mod := &Module{Identifier: "m", Functions: []*Function{fn}}
	cfg := &config.Config{ExcludeFunctions: []string{"skip_me"}}
	pass, err := NewPass(cfg)
	require.NoError(t, err)
	plan, err := pass.InstrumentModule(mod)
	require.NoError(t, err)

	fp, ok := plan.FindFunction("skip_me")
	require.True(t, ok)
	require.True(t, fp.Excluded)
	require.Empty(t, fp.BasicBlocks)
	require.NotContains(t, plan.Names, "skip_me")
}

func TestFunctionKeysAreStableAcrossRecompilationOfSameModule(t *testing.T) {
	mkModule := func() *Module {
		block := &BasicBlock{Instructions: []Instruction{{Op: OpRet}}}
		fn := &Function{Name: "f", BasicBlocks: []*BasicBlock{block}}
		return &Module{Identifier: "stable.o", Functions: []*Function{fn}}
	}
	cfg := &config.Config{}
	pass, _ := NewPass(cfg)
	plan1, _ := pass.InstrumentModule(mkModule())
	plan2, _ := pass.InstrumentModule(mkModule())
	require.Equal(t, plan1.Keys, plan2.Keys)
}

func TestGetElementPtrWeightsConstantAndNonConstantOperandsDifferently(t *testing.T) {
	constGEP := Classify(Instruction{Op: OpGetElementPtr, Operands: []Operand{{IsConstant: true}}})
	varGEP := Classify(Instruction{Op: OpGetElementPtr, Operands: []Operand{{IsConstant: false}}})
	require.Equal(t, uint64(3*sizeofIntBits), constGEP.OpBits)
	require.Equal(t, uint64(6*sizeofIntBits), varGEP.OpBits)
	require.Equal(t, uint64(1), constGEP.OpCount)
	require.Equal(t, uint64(2), varGEP.OpCount)

	twoVarGEP := Classify(Instruction{Op: OpGetElementPtr, Operands: []Operand{{IsConstant: false}, {IsConstant: false}}})
	require.Equal(t, uint64(4), twoVarGEP.OpCount)
}

func TestGetElementPtrOpCountFlowsIntoInterpreterOpsTally(t *testing.T) {
	fn := &Function{Name: "index", BasicBlocks: []*BasicBlock{{
		Name: "entry",
		Instructions: []Instruction{
			{Op: OpGetElementPtr, Operands: []Operand{{IsConstant: false}, {IsConstant: false}}},
			{Op: OpRet},
		},
	}}}
	mod := &Module{Identifier: "m", Functions: []*Function{fn}}

	pass, err := NewPass(&config.Config{})
	require.NoError(t, err)
	plan, err := pass.InstrumentModule(mod)
	require.NoError(t, err)

	rs := abi.NewRuntimeState(&config.Config{}, nil)
	th := abi.NewThread(rs)
	interp := NewInterpreter(plan)
	fp, ok := plan.FindFunction("index")
	require.True(t, ok)
	interp.ExecuteFunction(th, fp, 0, []BlockVisit{{Block: 0}})

	global := rs.Aggregator.GlobalTotals()
	require.Equal(t, uint64(5), global.Ops) // 4 from the GEP's two non-constant operands, 1 from the ret
}

func TestStrideTrackingIsWiredIntoLoadStorePath(t *testing.T) {
	block := &BasicBlock{
		Name: "entry",
		Instructions: []Instruction{
			{Op: OpLoad, Type: ValueKind{ElementBits: 64, NumElements: 1}},
			{Op: OpRet},
		},
	}
	fn := &Function{Name: "walk", BasicBlocks: []*BasicBlock{block}}
	mod := &Module{Identifier: "strides.o", Functions: []*Function{fn}}

	cfg := &config.Config{Strides: true}
	pass, err := NewPass(cfg)
	require.NoError(t, err)
	plan, err := pass.InstrumentModule(mod)
	require.NoError(t, err)
	fp, _ := plan.FindFunction("walk")

	rs := abi.NewRuntimeState(cfg, nil)
	th := abi.NewThread(rs)
	interp := NewInterpreter(plan)

	addr := uint64(1000)
	resolve := func(i int) (uint64, bool) {
		a := addr
		addr += 8
		return a, true
	}
	// Two dynamic visits to the same instruction, so the tracker sees a
	// stride (8 bytes) rather than just the first access.
	interp.ExecuteFunction(th, fp, 0, []BlockVisit{{Block: 0, Resolve: resolve}})
	interp.ExecuteFunction(th, fp, 0, []BlockVisit{{Block: 0, Resolve: resolve}})

	uni, multi := rs.Strides.PartitionUniqueAddresses()
	require.Equal(t, uint64(0), uni+multi) // Strides alone doesn't allocate touched-byte tables
}

func TestUniqueBytesWithFuncAssociatesPerFunctionPageTable(t *testing.T) {
	block := &BasicBlock{
		Name: "entry",
		Instructions: []Instruction{
			{Op: OpStore, Type: ValueKind{ElementBits: 64, NumElements: 1}},
			{Op: OpRet},
		},
	}
	fn := &Function{Name: "writer", BasicBlocks: []*BasicBlock{block}}
	mod := &Module{Identifier: "uniquebytes.o", Functions: []*Function{fn}}

	cfg := &config.Config{UniqueBytes: true, PerFunction: true}
	pass, err := NewPass(cfg)
	require.NoError(t, err)
	plan, err := pass.InstrumentModule(mod)
	require.NoError(t, err)
	fp, _ := plan.FindFunction("writer")

	rs := abi.NewRuntimeState(cfg, nil)
	require.NotNil(t, rs.UniqueBytesFunc)
	th := abi.NewThread(rs)
	interp := NewInterpreter(plan)
	resolve := func(i int) (uint64, bool) { return 4096, true }
	interp.ExecuteFunction(th, fp, 0, []BlockVisit{{Block: 0, Resolve: resolve}})

	tbl, ok := rs.UniqueBytesFunc[fp.Key]
	require.True(t, ok)
	require.Equal(t, uint64(8), tbl.TallyUnique())
}

func TestVectorOpEmitsVectorTallyExceptForShuffleOpcodes(t *testing.T) {
	vecAdd := Classify(Instruction{Op: OpFAdd, Type: ValueKind{IsFloat: true, IsVector: true, NumElements: 4, ElementBits: 32}})
	require.True(t, vecAdd.TallyVector)
	require.True(t, vecAdd.IsFlop)

	shuffle := Classify(Instruction{Op: OpShuffleVector, Type: ValueKind{IsVector: true, NumElements: 4, ElementBits: 32}})
	require.False(t, shuffle.TallyVector)
}
