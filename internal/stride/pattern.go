// Package stride implements byfl's per-call-point strided-access tracker
// and per-function vector-shape tracker (spec.md §4.6), grounded on
// original_source/lib/byfl/strides.cpp and vectors.cpp.
package stride

import "github.com/lanl/byflgo/internal/pagetable"

// MaxPow2Stride is the highest log2(word stride) tracked precisely; larger
// power-of-two strides fall into OtherStride.
const MaxPow2Stride = 6

const (
	ZeroStride  = MaxPow2Stride + 1
	OtherStride = ZeroStride + 1
	NumStrides  = OtherStride + 1
)

// logicalPageSize is the page size used by each call point's private touched
// data page table (smaller than pagetable.DefaultLogicalPageSize, matching
// strides.cpp's own local constant for this use case).
const logicalPageSize = 1024

// SymbolInfo is the call-point source information keyed on by the stride
// tracker -- the minimum subset of spec.md's "Symbol info" record strides.cpp
// actually threads through.
type SymbolInfo struct {
	ID       uint64
	Origin   string
	Function string
	File     string
	Line     int
}

// AccessPattern is one call point's running stride classification, per
// spec.md §3's "Access pattern" record.
type AccessPattern struct {
	SymInfo        SymbolInfo
	PrevAddr       uint64
	NumBytes       uint64
	StrideTally    [NumStrides]uint64
	BackwardStrides uint64
	TotalStrides   uint64
	IsStore        bool
	TouchedData    *pagetable.Table // nil unless unique-bytes/footprint tracking is enabled
}

// NewAccessPattern creates the first record for a call point, optionally
// allocating a private touched-bytes page table.
func NewAccessPattern(sinfo SymbolInfo, addr, numBytes uint64, isStore, trackTouched bool) *AccessPattern {
	ap := &AccessPattern{
		SymInfo:  sinfo,
		PrevAddr: addr,
		NumBytes: numBytes,
		IsStore:  isStore,
	}
	if trackTouched {
		ap.TouchedData = pagetable.NewBitTable(logicalPageSize)
		ap.TouchedData.Access(addr, numBytes)
	}
	return ap
}

// IncrementTally classifies the stride from PrevAddr to newAddr and folds it
// into StrideTally, per AccessPattern::increment_tally.
func (ap *AccessPattern) IncrementTally(newAddr uint64) {
	ap.TotalStrides++

	if newAddr == ap.PrevAddr {
		ap.StrideTally[ZeroStride]++
		return
	}
	if ap.PrevAddr > newAddr {
		ap.BackwardStrides++
	}

	var absStride uint64
	if newAddr > ap.PrevAddr {
		absStride = newAddr - ap.PrevAddr
	} else {
		absStride = ap.PrevAddr - newAddr
	}
	if ap.NumBytes == 0 || absStride%ap.NumBytes != 0 {
		ap.StrideTally[OtherStride]++
		return
	}

	wordStride := absStride / ap.NumBytes
	if wordStride&(wordStride-1) == 0 {
		log2Stride := 0
		for w := wordStride; w > 1; w >>= 1 {
			log2Stride++
		}
		if log2Stride <= MaxPow2Stride {
			ap.StrideTally[log2Stride]++
		} else {
			ap.StrideTally[OtherStride]++
		}
		return
	}
	ap.StrideTally[OtherStride]++
}

// TotalBackwardStrides reports how many of this pattern's transitions went
// to a lower address.
func (ap *AccessPattern) TotalBackwardStrides() uint64 { return ap.BackwardStrides }
