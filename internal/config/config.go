// Package config parses byfl's pass/runtime configuration surface (spec.md
// §6): the flags the IR-pass driver accepts, and the BF_PREFIX environment
// variable that controls output-path expansion.
package config

import (
	"strings"

	env "github.com/xyproto/env/v2"

	"github.com/lanl/byflgo/internal/byflerr"
)

// ReuseDistanceMode selects which memory operations feed the reuse-distance
// engine.
type ReuseDistanceMode int

const (
	ReuseDistanceOff ReuseDistanceMode = iota
	ReuseDistanceLoads
	ReuseDistanceStores
	ReuseDistanceBoth
)

func (m ReuseDistanceMode) String() string {
	switch m {
	case ReuseDistanceLoads:
		return "loads"
	case ReuseDistanceStores:
		return "stores"
	case ReuseDistanceBoth:
		return "both"
	default:
		return "off"
	}
}

// Config is the fully parsed configuration the pass and runtime consult,
// mirroring spec.md §6's configuration surface plus §4.1's validation
// requirements.
type Config struct {
	PerBasicBlock    bool
	PerFunction      bool
	CallStack        bool
	UniqueBytes      bool
	MemFootprint     bool
	TypedCounting    bool
	InstMixHisto     bool
	Vectors          bool
	Strides          bool
	ReuseDistance    ReuseDistanceMode
	MaxReuseDistance uint64
	ThreadSafe       bool
	IncludeFunctions []string
	ExcludeFunctions []string
	BBMergeCount     uint64

	// PageSize overrides the page-table engine's logical page size (spec.md
	// §4.3's "commonly 8192"). Zero means "use the host's real VM page
	// size" (internal/pagetable.SystemPageSize).
	PageSize uint64

	// OutputPathTemplate is the (possibly BF_PREFIX-expanded) path the
	// binary-output writer should open, and OptionString is the recorded
	// "-bf-..." flag summary baked into bf_option_string (spec.md §6).
	OutputPathTemplate string
	OptionString       string
}

// Validate enforces spec.md §4.1's ConfigError conditions: both include and
// exclude lists non-empty, or call-stack tracking without per-function
// tracking.
func (c *Config) Validate() error {
	if len(c.IncludeFunctions) > 0 && len(c.ExcludeFunctions) > 0 {
		return byflerr.Config("both -bf-include-functions and -bf-exclude-functions were given; only one is allowed")
	}
	if c.CallStack && !c.PerFunction {
		return byflerr.Config("-bf-call-stack requires -bf-per-func")
	}
	return nil
}

// IsExcluded reports whether a function named name should be skipped by the
// pass, per the include/exclude lists (mutually exclusive, enforced by
// Validate).
func (c *Config) IsExcluded(name string) bool {
	if len(c.IncludeFunctions) > 0 {
		return !contains(c.IncludeFunctions, name)
	}
	if len(c.ExcludeFunctions) > 0 {
		return contains(c.ExcludeFunctions, name)
	}
	return false
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

// ExpandOutputPath applies BF_PREFIX environment expansion (spec.md §6):
// filenames starting with "/" or "./" are treated as literal output-file
// paths; anything else is prefixed with BF_PREFIX (default empty).
func ExpandOutputPath(filename string) string {
	if strings.HasPrefix(filename, "/") || strings.HasPrefix(filename, "./") {
		return filename
	}
	prefix := env.Str("BF_PREFIX", "")
	if prefix == "" {
		return filename
	}
	return strings.TrimSuffix(prefix, "/") + "/" + filename
}
