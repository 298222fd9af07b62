// Package interval implements byfl's half-open interval tree used to map
// addresses to the data structure that owns them (spec.md §3's "Interval"
// type and §4.5's data-structure tracker), grounded on
// original_source/lib/byfl/datastructs.cpp's use of an std::map<Interval, T*>
// keyed by a custom less-than operator.
package interval

// Interval is a half-open byte range [Lower, Upper). Comparison treats two
// intervals as equal (neither less nor greater) whenever they overlap at
// all, which is exactly what point-containment lookup in an ordered
// structure needs: find(point) is Interval{point, point+1}.
type Interval struct {
	Lower, Upper uint64
}

// Less reports whether a is entirely below b, with no overlap -- the same
// ordering original_source's Interval::operator< establishes: a < b iff
// a.upper <= b.lower.
func (a Interval) Less(b Interval) bool {
	return a.Upper <= b.Lower
}

// Overlaps reports whether a and b share at least one byte.
func (a Interval) Overlaps(b Interval) bool {
	return !a.Less(b) && !b.Less(a)
}

// Contains reports whether point falls within [Lower, Upper).
func (a Interval) Contains(point uint64) bool {
	return point >= a.Lower && point < a.Upper
}

// Point builds the degenerate single-byte interval used to query a tree for
// the interval (if any) containing point.
func Point(point uint64) Interval {
	return Interval{Lower: point, Upper: point + 1}
}
