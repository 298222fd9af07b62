package stride

import (
	"sort"
	"sync"

	"github.com/lanl/byflgo/internal/pagetable"
)

// Tracker maintains one AccessPattern per call point (keyed by symbol-info
// ID), per bf_track_stride's stride_data map.
type Tracker struct {
	mu            sync.Mutex
	byCallPoint   map[uint64]*AccessPattern
	trackTouched  bool
}

// NewTracker creates an empty stride tracker. trackTouched controls whether
// each call point also gets a private touched-bytes page table (mirrors
// bf_unique_bytes || bf_mem_footprint).
func NewTracker(trackTouched bool) *Tracker {
	return &Tracker{byCallPoint: make(map[uint64]*AccessPattern), trackTouched: trackTouched}
}

// Track folds one more access into the call point's running pattern, per
// bf_track_stride.
func (t *Tracker) Track(sinfo SymbolInfo, baseAddr, numAddrs uint64, isStore bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ap, ok := t.byCallPoint[sinfo.ID]
	if !ok {
		t.byCallPoint[sinfo.ID] = NewAccessPattern(sinfo, baseAddr, numAddrs, isStore, t.trackTouched)
		return
	}
	ap.IncrementTally(baseAddr)
	ap.PrevAddr = baseAddr
	if ap.TouchedData != nil {
		ap.TouchedData.Access(baseAddr, numAddrs)
	}
}

// PartitionUniqueAddresses merges every call point's touched-bytes page
// table into one of two aggregates -- uni-targeted instructions (only zero
// or power-of-two strides ever observed) or multi-targeted -- and returns
// their unique-byte tallies, per bf_partition_unique_addresses.
func (t *Tracker) PartitionUniqueAddresses() (uniTargeted, multiTargeted uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	utiPT := pagetable.NewBitTable(logicalPageSize)
	mtiPT := pagetable.NewBitTable(logicalPageSize)
	for _, ap := range t.byCallPoint {
		if ap.TouchedData == nil {
			continue
		}
		target := utiPT
		if ap.StrideTally[OtherStride] > 0 {
			target = mtiPT // at least one stride that was neither zero nor a power of two
		}
		target.MergeFrom(ap.TouchedData)
	}
	return utiPT.TallyUnique(), mtiPT.TallyUnique()
}
