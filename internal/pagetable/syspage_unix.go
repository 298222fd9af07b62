//go:build unix

package pagetable

import "golang.org/x/sys/unix"

// SystemPageSize returns the host's real VM page size, for callers that want
// the page table's logical page size to track the platform instead of
// spec.md §4.3's "commonly 8192" default.
func SystemPageSize() int {
	return unix.Getpagesize()
}
