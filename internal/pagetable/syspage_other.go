//go:build !unix

package pagetable

// SystemPageSize falls back to DefaultLogicalPageSize on non-unix builds,
// where golang.org/x/sys/unix has nothing to report.
func SystemPageSize() int {
	return DefaultLogicalPageSize
}
