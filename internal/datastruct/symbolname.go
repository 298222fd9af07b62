package datastruct

import (
	"fmt"

	"github.com/ianlancetaylor/demangle"
)

func formatAddrFallback(varPrefix, allocatedText string, pc uint64) string {
	return fmt.Sprintf("%s%s0x%x", varPrefix, allocatedText, pc)
}

func formatLocation(varPrefix, allocatedText, file string, line int, function string, pc uint64) string {
	return fmt.Sprintf("%s%s%s:%d, function %s, address 0x%x", varPrefix, allocatedText, file, line, function, pc)
}

// demangleBestEffort demangles an Itanium-mangled C++/Rust symbol name,
// falling back to the mangled form on any failure. Grounded on
// original_source's demangle_func_name, which does the same.
func demangleBestEffort(mangled string) string {
	out, err := demangle.ToString(mangled, demangle.NoParams)
	if err != nil {
		return mangled
	}
	return out
}
