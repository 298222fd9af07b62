package pagetable

import "math/bits"

// BitEntry packs one bit per byte on the page into 64-bit words. Once every
// bit is set (the page saturates), the bit vector is freed and further
// accesses become no-ops, per spec.md §4.3.
type BitEntry struct {
	pageSize    int
	bitVector   []uint64 // nil once the page has saturated
	bytesTouchd uint64
}

// NewBitEntry allocates a fresh, all-zero bit vector for a page of pgSize
// bytes.
func NewBitEntry(pgSize int) *BitEntry {
	return &BitEntry{
		pageSize:  pgSize,
		bitVector: make([]uint64, (pgSize+63)/64),
	}
}

// Increment sets every bit in [pos1, pos2] (page-relative byte offsets),
// using a single-word bitmask fast path when both offsets fall in the same
// 64-bit word and a byte-at-a-time loop otherwise.
func (e *BitEntry) Increment(pos1, pos2 int) {
	if e.bitVector == nil {
		return // page already saturated; further writes are no-ops
	}

	wordOfs1 := pos1 / 64
	wordOfs2 := pos2 / 64
	if wordOfs1 == wordOfs2 {
		word := e.bitVector[wordOfs1]
		bitOfs1 := uint(pos1 % 64)
		bitOfs2 := uint(pos2 % 64)
		// (2<<(b2-b1))-1 sets the low (b2-b1+1) bits; when b2-b1 == 63 the
		// shift overflows the 64-bit word and wraps to 0, so the subsequent
		// -1 correctly yields all ones. Shifted left by b1, this marks
		// exactly [b1, b2].
		mask := ((uint64(2) << (bitOfs2 - bitOfs1)) - 1) << bitOfs1
		newWord := word | mask
		e.bytesTouchd += uint64(bits.OnesCount64(word ^ newWord))
		e.bitVector[wordOfs1] = newWord
	} else {
		for pos := pos1; pos <= pos2; pos++ {
			wordOfs := pos / 64
			bitOfs := uint(pos % 64)
			mask := uint64(1) << bitOfs
			if e.bitVector[wordOfs]&mask == 0 {
				e.bitVector[wordOfs] |= mask
				e.bytesTouchd++
			}
		}
	}

	if e.bytesTouchd == uint64(e.pageSize) {
		e.bitVector = nil // fully touched: free the bit vector
	}
}

// Count returns the number of distinct bytes touched on this page.
func (e *BitEntry) Count() uint64 { return e.bytesTouchd }

// Saturated reports whether every byte on the page has been touched.
func (e *BitEntry) Saturated() bool { return e.bitVector == nil }

// Merge ORs other's bit vector into e, word at a time, tallying newly-set
// bits via popcount. If other is already saturated, every bit in e is set.
// Used to combine per-call-point touched-byte tables into an aggregate
// (spec.md §4.6's bf_partition_unique_addresses), per
// BitPageTableEntry::merge.
func (e *BitEntry) Merge(other *BitEntry) {
	if e.bitVector == nil {
		return // our page is already full
	}
	for w := range e.bitVector {
		old := e.bitVector[w]
		var otherWord uint64
		if other.bitVector == nil {
			otherWord = ^uint64(0)
		} else {
			otherWord = other.bitVector[w]
		}
		newWord := old | otherWord
		e.bytesTouchd += uint64(bits.OnesCount64(old ^ newWord))
		e.bitVector[w] = newWord
	}
	if e.bytesTouchd == uint64(e.pageSize) {
		e.bitVector = nil
	}
}
