// Command byfl-pass is the IR-pass driver: it parses byfl's §6 configuration
// surface from the command line, instruments a module against
// internal/irpass, executes it through internal/irpass's Interpreter (the
// stand-in for an actual instrumented binary running, since this rewrite
// attaches to no real compiler backend), and writes the resulting totals as
// a byfl binary-output stream.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lanl/byflgo/internal/abi"
	"github.com/lanl/byflgo/internal/binout"
	"github.com/lanl/byflgo/internal/byflerr"
	"github.com/lanl/byflgo/internal/config"
	"github.com/lanl/byflgo/internal/irpass"
)

const versionString = "byfl-pass 1.0.0"

var log = logrus.New()

type flags struct {
	perBB         bool
	perFunc       bool
	callStack     bool
	uniqueBytes   bool
	memFootprint  bool
	typedCounting bool
	instMixHisto  bool
	vectors       bool
	strides       bool
	reuseDistance string
	maxReuseDist  uint64
	threadSafe    bool
	include       []string
	exclude       []string
	bbMergeCount  uint64
	pageSize      uint64
	output        string
}

func parseReuseDistanceMode(s string) (config.ReuseDistanceMode, error) {
	switch strings.ToLower(s) {
	case "", "off":
		return config.ReuseDistanceOff, nil
	case "loads":
		return config.ReuseDistanceLoads, nil
	case "stores":
		return config.ReuseDistanceStores, nil
	case "both":
		return config.ReuseDistanceBoth, nil
	default:
		return 0, fmt.Errorf("unrecognized -bf-reuse-dist value %q (want off|loads|stores|both)", s)
	}
}

// expandFileLists resolves "@file" indirection (spec.md §6): an entry
// beginning with "@" names a file containing one function name per line.
func expandFileLists(names []string) ([]string, error) {
	var out []string
	for _, n := range names {
		if !strings.HasPrefix(n, "@") {
			out = append(out, n)
			continue
		}
		data, err := os.ReadFile(n[1:])
		if err != nil {
			return nil, byflerr.Io("reading function list %s: %v", n[1:], err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return out, nil
}

func buildConfig(f *flags) (*config.Config, error) {
	reuseMode, err := parseReuseDistanceMode(f.reuseDistance)
	if err != nil {
		return nil, byflerr.Config(err.Error())
	}
	include, err := expandFileLists(f.include)
	if err != nil {
		return nil, err
	}
	exclude, err := expandFileLists(f.exclude)
	if err != nil {
		return nil, err
	}

	cfg := &config.Config{
		PerBasicBlock:      f.perBB,
		PerFunction:        f.perFunc,
		CallStack:          f.callStack,
		UniqueBytes:        f.uniqueBytes,
		MemFootprint:       f.memFootprint,
		TypedCounting:      f.typedCounting,
		InstMixHisto:       f.instMixHisto,
		Vectors:            f.vectors,
		Strides:            f.strides,
		ReuseDistance:      reuseMode,
		MaxReuseDistance:   f.maxReuseDist,
		ThreadSafe:         f.threadSafe,
		IncludeFunctions:   include,
		ExcludeFunctions:   exclude,
		BBMergeCount:       f.bbMergeCount,
		PageSize:           f.pageSize,
		OutputPathTemplate: f.output,
		OptionString:       optionString(f),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// optionString reconstructs the "-bf-..." flag summary baked into
// bf_option_string (spec.md §6), the Go analogue of the original's
// parse_command_line preamble entry.
func optionString(f *flags) string {
	var parts []string
	add := func(flag string, on bool) {
		if on {
			parts = append(parts, flag)
		}
	}
	add("-bf-every-bb", f.perBB)
	add("-bf-per-func", f.perFunc)
	add("-bf-call-stack", f.callStack)
	add("-bf-unique-bytes", f.uniqueBytes)
	add("-bf-mem-footprint", f.memFootprint)
	add("-bf-types", f.typedCounting)
	add("-bf-inst-mix", f.instMixHisto)
	add("-bf-vectors", f.vectors)
	add("-bf-strides", f.strides)
	add("-bf-thread-safe", f.threadSafe)
	if f.reuseDistance != "" && f.reuseDistance != "off" {
		parts = append(parts, "-bf-reuse-dist="+f.reuseDistance)
	}
	if f.bbMergeCount > 0 {
		parts = append(parts, "-bf-merge-bb="+strconv.FormatUint(f.bbMergeCount, 10))
	}
	return strings.Join(append([]string{versionString}, parts...), " ")
}

func run(f *flags, modulePath string) error {
	cfg, err := buildConfig(f)
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		return err
	}

	dto, err := loadModule(modulePath)
	if err != nil {
		log.WithError(err).Error("reading IR module")
		return err
	}
	mod, err := dto.toIR()
	if err != nil {
		log.WithError(err).Error("translating IR module")
		return err
	}

	pass, err := irpass.NewPass(cfg)
	if err != nil {
		return err
	}
	plan, err := pass.InstrumentModule(mod)
	if err != nil {
		return byflerr.Internal("instrumenting module %s: %v", mod.Identifier, err)
	}
	log.WithFields(logrus.Fields{"module": mod.Identifier, "functions": len(plan.Functions)}).Info("instrumented module")

	rs := abi.NewRuntimeState(cfg, nil)
	th := abi.NewThread(rs)
	interp := irpass.NewInterpreter(plan)

	for i, fp := range plan.Functions {
		if fp.Excluded {
			continue
		}
		runs := dto.Functions[i].Runs
		if runs <= 0 {
			runs = 1
		}
		visits := make([]irpass.BlockVisit, 0, len(fp.BasicBlocks)*runs)
		for r := 0; r < runs; r++ {
			for b := range fp.BasicBlocks {
				visits = append(visits, irpass.BlockVisit{Block: b})
			}
		}
		interp.ExecuteFunction(th, &plan.Functions[i], 0, visits)
	}

	return writeReport(cfg, plan, rs)
}

func writeReport(cfg *config.Config, plan *irpass.ModulePlan, rs *abi.RuntimeState) error {
	out := os.Stdout
	if cfg.OutputPathTemplate != "" {
		path := config.ExpandOutputPath(cfg.OutputPathTemplate)
		f, err := os.Create(path)
		if err != nil {
			return byflerr.Io("creating output file %s: %v", path, err)
		}
		defer f.Close()
		out = f
	}

	bw := binout.NewWriter(out, false)
	if err := bw.Open(); err != nil {
		return byflerr.Io("writing binary-output header: %v", err)
	}

	global := rs.Aggregator.GlobalTotals()
	cols := []binout.Column{
		{Name: "metric", Type: binout.ColString},
		{Name: "value", Type: binout.ColUint64},
	}
	if err := bw.Table("Program totals", cols); err != nil {
		return byflerr.Io("writing table header: %v", err)
	}
	rows := []struct {
		name  string
		value uint64
	}{
		{"Loads", global.Loads},
		{"Stores", global.Stores},
		{"Load instructions", global.LoadIns},
		{"Store instructions", global.StoreIns},
		{"Call instructions", global.CallIns},
		{"Flops", global.Flops},
		{"Floating-point bits", global.FPBits},
		{"Operations", global.Ops},
		{"Operation bits", global.OpBits},
	}
	for _, row := range rows {
		if err := bw.Row(row.name, row.value); err != nil {
			return byflerr.Io("writing row %s: %v", row.name, err)
		}
	}
	if err := bw.EndTable(); err != nil {
		return byflerr.Io("ending table: %v", err)
	}
	return bw.Close()
}

func main() {
	var f flags

	root := &cobra.Command{
		Use:     "byfl-pass <module.json>",
		Short:   "instrument and execute an IR module, per byfl's counting semantics",
		Version: versionString,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(&f, args[0])
		},
	}

	fl := root.Flags()
	fl.BoolVar(&f.perBB, "bf-every-bb", false, "per-basic-block output; recorded in the option string only, no per-block output is written")
	fl.BoolVar(&f.perFunc, "bf-per-func", false, "tally counters per function")
	fl.BoolVar(&f.callStack, "bf-call-stack", false, "differentiate per-function tallies by call stack (requires -bf-per-func)")
	fl.BoolVar(&f.uniqueBytes, "bf-unique-bytes", false, "track unique bytes touched via the page-table engine")
	fl.BoolVar(&f.memFootprint, "bf-mem-footprint", false, "track the working-set memory footprint")
	fl.BoolVar(&f.typedCounting, "bf-types", false, "differentiate loads/stores by type and width")
	fl.BoolVar(&f.instMixHisto, "bf-inst-mix", false, "instruction-mix histogram; recorded in the option string only, the histogram is not tallied")
	fl.BoolVar(&f.vectors, "bf-vectors", false, "tally vector-operation shapes")
	fl.BoolVar(&f.strides, "bf-strides", false, "track per-call-point strided-access patterns")
	fl.StringVar(&f.reuseDistance, "bf-reuse-dist", "off", "reuse-distance tracking: off|loads|stores|both")
	fl.Uint64Var(&f.maxReuseDist, "bf-max-reuse-dist", 0, "cap the reuse-distance histogram (0 = unbounded)")
	fl.BoolVar(&f.threadSafe, "bf-thread-safe", false, "serialize aggregation updates for multithreaded targets")
	fl.StringSliceVar(&f.include, "bf-include-functions", nil, "only instrument these functions (or @file)")
	fl.StringSliceVar(&f.exclude, "bf-exclude-functions", nil, "skip these functions (or @file)")
	fl.Uint64Var(&f.bbMergeCount, "bf-merge-bb", 0, "basic-block merge count; recorded in the option string only, blocks are not merged")
	fl.Uint64Var(&f.pageSize, "bf-page-size", 0, "logical page size for unique-byte tracking (0 = host VM page size)")
	fl.StringVarP(&f.output, "output", "o", "", "output file (BF_PREFIX-expanded); default stdout")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
