package reuse

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessAddressFirstTouchIsUnique(t *testing.T) {
	d := New(0)
	d.ProcessAddress(0x1000)
	require.Equal(t, uint64(1), d.UniqueAddresses())
	require.Empty(t, d.Histogram())
}

// TestProcessAddressImmediateReuseIsBucketZero checks that re-touching the
// address just accessed has reuse distance 0 (no other node is newer).
func TestProcessAddressImmediateReuseIsBucketZero(t *testing.T) {
	d := New(0)
	d.ProcessAddress(0x1000)
	d.ProcessAddress(0x1000)
	require.Equal(t, uint64(1), d.UniqueAddresses())
	require.Len(t, d.Histogram(), 1)
	require.Equal(t, uint64(1), d.Histogram()[0])
}

// TestProcessAddressIntermediateTouchesBumpDistance mirrors the classic
// reuse-distance example: A B A should report distance 1 for the second A.
func TestProcessAddressIntermediateTouchesBumpDistance(t *testing.T) {
	d := New(0)
	d.ProcessAddress(0xA)
	d.ProcessAddress(0xB)
	d.ProcessAddress(0xA)
	require.Equal(t, uint64(2), d.UniqueAddresses()) // A's first touch, B's only touch
	require.Len(t, d.Histogram(), 2)
	require.Equal(t, uint64(1), d.Histogram()[1]) // second A had exactly one newer address (B) between
}

func TestProcessAddressABCAHasDistanceTwo(t *testing.T) {
	d := New(0)
	d.ProcessAddress(0xA)
	d.ProcessAddress(0xB)
	d.ProcessAddress(0xC)
	d.ProcessAddress(0xA)
	require.Len(t, d.Histogram(), 3)
	require.Equal(t, uint64(1), d.Histogram()[2])
}

func TestSplayTreeWeightInvariantHoldsAfterManyInserts(t *testing.T) {
	d := New(0)
	addrs := []uint64{10, 20, 5, 15, 25, 1, 30, 12, 18, 22}
	for _, a := range addrs {
		d.ProcessAddress(a)
	}
	require.NotPanics(t, func() {
		if d.tree != nil {
			d.tree.validateWeights()
		}
	})
}

func TestBoundedWindowPruningEvictsOldAddresses(t *testing.T) {
	d := New(4)
	for i := uint64(0); i < 20; i++ {
		d.ProcessAddress(i)
	}
	require.LessOrEqual(t, len(d.lastAccess), 5) // window of 4 plus the just-inserted entry
}

func TestComputeMedianOnUniformDistances(t *testing.T) {
	d := New(0)
	// Two interleaved streams so every reuse has distance 1.
	for i := 0; i < 10; i++ {
		d.ProcessAddress(0xA)
		d.ProcessAddress(0xB)
	}
	median, _ := d.ComputeMedian()
	require.Equal(t, uint64(1), median)
}

func TestTreeDistMatchesNumberOfStrictlyNewerNodes(t *testing.T) {
	d := New(0)
	for _, a := range []uint64{1, 2, 3, 4, 5} {
		d.ProcessAddress(a)
	}
	// Address 1 was touched at time 0; every one of the other 4 nodes is
	// newer, so its reuse distance (if touched again right now) is 4.
	require.Equal(t, uint64(4), d.tree.treeDist(0))
}
