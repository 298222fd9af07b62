package stride

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStrided64BitLoadsAtSingleWordStride mirrors spec.md §8 scenario 5:
// 64-bit loads at addresses 0, 8, 16, 24 should all land in the
// log2(1)-word-stride bucket.
func TestStrided64BitLoadsAtSingleWordStride(t *testing.T) {
	tr := NewTracker(false)
	sinfo := SymbolInfo{ID: 1}
	addrs := []uint64{0, 8, 16, 24}
	for _, a := range addrs {
		tr.Track(sinfo, a, 8, false)
	}
	ap := tr.byCallPoint[1]
	require.Equal(t, uint64(3), ap.StrideTally[0]) // log2(1) == 0
	for i := 1; i < NumStrides; i++ {
		require.Equalf(t, uint64(0), ap.StrideTally[i], "bucket %d should be empty", i)
	}
}

func TestZeroStrideTallied(t *testing.T) {
	tr := NewTracker(false)
	sinfo := SymbolInfo{ID: 2}
	tr.Track(sinfo, 100, 8, false)
	tr.Track(sinfo, 100, 8, false)
	ap := tr.byCallPoint[2]
	require.Equal(t, uint64(1), ap.StrideTally[ZeroStride])
}

func TestNonMultipleOfWordSizeIsOther(t *testing.T) {
	tr := NewTracker(false)
	sinfo := SymbolInfo{ID: 3}
	tr.Track(sinfo, 0, 8, false)
	tr.Track(sinfo, 3, 8, false) // stride of 3 bytes, not a multiple of 8
	ap := tr.byCallPoint[3]
	require.Equal(t, uint64(1), ap.StrideTally[OtherStride])
}

func TestBackwardStrideTallied(t *testing.T) {
	tr := NewTracker(false)
	sinfo := SymbolInfo{ID: 4}
	tr.Track(sinfo, 100, 8, false)
	tr.Track(sinfo, 50, 8, false)
	ap := tr.byCallPoint[4]
	require.Equal(t, uint64(1), ap.BackwardStrides)
}

func TestLargePowerOfTwoStrideBeyondMaxFallsToOther(t *testing.T) {
	tr := NewTracker(false)
	sinfo := SymbolInfo{ID: 5}
	tr.Track(sinfo, 0, 8, false)
	// Word stride 2^7 = 128 exceeds MaxPow2Stride (6).
	tr.Track(sinfo, 128*8, 8, false)
	ap := tr.byCallPoint[5]
	require.Equal(t, uint64(1), ap.StrideTally[OtherStride])
}

func TestPartitionUniqueAddressesSplitsUniAndMultiTargeted(t *testing.T) {
	tr := NewTracker(true)
	// Call point 1: only ever strides by powers of two -> uni-targeted.
	tr.Track(SymbolInfo{ID: 1}, 0, 8, false)
	tr.Track(SymbolInfo{ID: 1}, 8, 8, false)
	// Call point 2: an "other" stride -> multi-targeted.
	tr.Track(SymbolInfo{ID: 2}, 1000, 8, false)
	tr.Track(SymbolInfo{ID: 2}, 1003, 8, false)

	uti, mti := tr.PartitionUniqueAddresses()
	require.Equal(t, uint64(16), uti)
	require.Equal(t, uint64(11), mti) // [1000,1008) union [1003,1011) = 1000..1010
}

func TestVectorTrackerTallyAndStatistics(t *testing.T) {
	vt := NewVectorTracker()
	vt.Tally("main", VectorShape{NumElements: 4, ElementBits: 32, IsFlop: true})
	vt.Tally("main", VectorShape{NumElements: 4, ElementBits: 32, IsFlop: true})
	vt.Tally("main", VectorShape{NumElements: 2, ElementBits: 64, IsFlop: false})

	numOps, totalElts, totalBits := vt.Statistics("main")
	require.Equal(t, uint64(3), numOps)
	require.Equal(t, uint64(4*2+2), totalElts)
	require.Equal(t, uint64(32*2+64), totalBits)

	rows := vt.Report()
	require.Len(t, rows, 2)
	require.Equal(t, uint64(1), rows[0].Tally) // sorted by NumElements ascending: the 2-element shape first
}
