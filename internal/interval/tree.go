package interval

import "sort"

// Tree is an ordered collection of non-overlapping intervals, each mapped to
// a value, supporting point-containment lookup (spec.md §4.5: "an ordered
// interval tree data_structs : Interval[uint64] -> Counters*"). Entries are
// kept in a sorted slice rather than a hand-rolled balanced tree: Less
// gives intervals a total order once they're known non-overlapping, so
// sort.Search binary search serves find/insert in O(log n) comparisons,
// matching what a std::map<Interval,T> gives the original without building
// and maintaining a balanced binary tree by hand.
type Tree[V any] struct {
	entries []entry[V]
}

type entry[V any] struct {
	iv  Interval
	val V
}

// New creates an empty interval tree.
func New[V any]() *Tree[V] {
	return &Tree[V]{}
}

// search returns the index of the entry whose interval overlaps iv, and
// whether one was found. If not found, the index is the sorted insertion
// point.
func (t *Tree[V]) search(iv Interval) (int, bool) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return !t.entries[i].iv.Less(iv)
	})
	if i < len(t.entries) && t.entries[i].iv.Overlaps(iv) {
		return i, true
	}
	return i, false
}

// Find returns the value whose interval contains point, if any.
func (t *Tree[V]) Find(point uint64) (V, Interval, bool) {
	i, ok := t.search(Point(point))
	if !ok {
		var zero V
		return zero, Interval{}, false
	}
	return t.entries[i].val, t.entries[i].iv, true
}

// Insert adds iv -> val. The caller is responsible for having already
// removed any overlapping interval (DisassociateOverlapping), matching the
// original's stack-allocation rebind discipline (spec.md §4.5).
func (t *Tree[V]) Insert(iv Interval, val V) {
	i, ok := t.search(iv)
	if ok {
		t.entries[i] = entry[V]{iv, val}
		return
	}
	t.entries = append(t.entries, entry[V]{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = entry[V]{iv, val}
}

// Remove deletes the interval containing point, if any, and returns the
// value that was stored there.
func (t *Tree[V]) Remove(point uint64) (V, bool) {
	i, ok := t.search(Point(point))
	if !ok {
		var zero V
		return zero, false
	}
	val := t.entries[i].val
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	return val, true
}

// DisassociateOverlapping removes every interval overlapping iv and returns
// the values that were removed, in ascending order. Used before binding a
// new stack-allocation interval since a freed stack slot may be reused by an
// unrelated variable in a later call (spec.md §4.5).
func (t *Tree[V]) DisassociateOverlapping(iv Interval) []V {
	var removed []V
	lo := sort.Search(len(t.entries), func(i int) bool { return !t.entries[i].iv.Less(iv) })
	hi := lo
	for hi < len(t.entries) && t.entries[hi].iv.Overlaps(iv) {
		removed = append(removed, t.entries[hi].val)
		hi++
	}
	if hi > lo {
		t.entries = append(t.entries[:lo], t.entries[hi:]...)
	}
	return removed
}

// Len reports how many intervals are currently tracked.
func (t *Tree[V]) Len() int { return len(t.entries) }

// NoOverlaps reports whether no two stored intervals overlap -- the
// structural invariant from spec.md §8.4: "For every interval in the
// data-structure tree, no other interval overlaps it." Intended for tests.
func (t *Tree[V]) NoOverlaps() bool {
	for i := 1; i < len(t.entries); i++ {
		if t.entries[i-1].iv.Overlaps(t.entries[i].iv) {
			return false
		}
	}
	return true
}
