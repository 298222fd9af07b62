package pagetable

import "math"

// WordEntry holds one saturating 32-bit counter per byte on the page, for
// the memory-footprint variant (which, unlike the unique-bytes bit variant,
// also wants an access-count histogram per byte).
type WordEntry struct {
	pageSize     int
	counters     []uint32
	bytesTouchd  uint64
}

// NewWordEntry allocates a fresh, all-zero counter vector for a page of
// pgSize bytes.
func NewWordEntry(pgSize int) *WordEntry {
	return &WordEntry{pageSize: pgSize, counters: make([]uint32, pgSize)}
}

// Increment bumps each counter in [pos1, pos2], saturating each at
// math.MaxUint32. The first 0->nonzero transition for a byte increments
// bytes_touched.
func (e *WordEntry) Increment(pos1, pos2 int) {
	for pos := pos1; pos <= pos2; pos++ {
		if e.counters[pos] == 0 {
			e.bytesTouchd++
		}
		if e.counters[pos] < math.MaxUint32 {
			e.counters[pos]++
		}
	}
}

// Count returns the number of distinct bytes touched on this page.
func (e *WordEntry) Count() uint64 { return e.bytesTouchd }

// RawCounts exposes the per-byte access counts.
func (e *WordEntry) RawCounts() []uint32 { return e.counters }

// Merge combines other into e: each counter sums with saturation, and for
// each position transitioning from zero to nonzero bytes_touched is
// incremented. Table.MergeFrom calls it for word-entry tables (spec.md
// §4.3); the stride tracker's partition merge uses bit tables instead.
func (e *WordEntry) Merge(other *WordEntry) {
	for i, v := range other.counters {
		if v == 0 {
			continue
		}
		wasZero := e.counters[i] == 0
		sum := uint64(e.counters[i]) + uint64(v)
		if sum > math.MaxUint32 {
			sum = math.MaxUint32
		}
		e.counters[i] = uint32(sum)
		if wasZero {
			e.bytesTouchd++
		}
	}
}
