package interval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindReturnsContainingInterval(t *testing.T) {
	tr := New[string]()
	tr.Insert(Interval{100, 200}, "a")
	tr.Insert(Interval{200, 300}, "b")

	val, iv, ok := tr.Find(250)
	require.True(t, ok)
	require.Equal(t, "b", val)
	require.Equal(t, Interval{200, 300}, iv)
}

func TestFindMissReturnsFalse(t *testing.T) {
	tr := New[string]()
	tr.Insert(Interval{100, 200}, "a")
	_, _, ok := tr.Find(500)
	require.False(t, ok)
}

func TestNoOverlapsInvariantHoldsAfterManyInserts(t *testing.T) {
	tr := New[int]()
	bases := []uint64{0, 64, 128, 256, 1024, 2048}
	for i, b := range bases {
		tr.Insert(Interval{b, b + 32}, i)
	}
	require.True(t, tr.NoOverlaps())
	require.Equal(t, len(bases), tr.Len())
}

func TestRemoveDeletesAndFindThenMisses(t *testing.T) {
	tr := New[string]()
	tr.Insert(Interval{10, 20}, "x")
	val, ok := tr.Remove(15)
	require.True(t, ok)
	require.Equal(t, "x", val)
	_, _, ok = tr.Find(15)
	require.False(t, ok)
}

func TestDisassociateOverlappingRemovesAllOverlapsForStackReuse(t *testing.T) {
	tr := New[string]()
	tr.Insert(Interval{0, 10}, "frame-a-var1")
	tr.Insert(Interval{10, 20}, "frame-a-var2")
	removed := tr.DisassociateOverlapping(Interval{5, 15})
	require.ElementsMatch(t, []string{"frame-a-var1", "frame-a-var2"}, removed)
	require.Equal(t, 0, tr.Len())
}

func TestInsertOverwritesExactDuplicateInterval(t *testing.T) {
	tr := New[int]()
	tr.Insert(Interval{0, 8}, 1)
	tr.Insert(Interval{0, 8}, 2)
	require.Equal(t, 1, tr.Len())
	val, _, ok := tr.Find(4)
	require.True(t, ok)
	require.Equal(t, 2, val)
}
