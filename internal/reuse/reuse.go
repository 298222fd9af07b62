package reuse

// InfiniteDistance is the sentinel reuse distance assigned to an address's
// first-ever access, per original_source's infinite_distance (~uint64(0)).
const InfiniteDistance = ^uint64(0)

// Distance tracks the reuse-distance histogram for one logical address
// stream (the whole program, or one partition/thread, depending on what the
// caller feeds it). It mirrors original_source's ReuseDistance class.
type Distance struct {
	clock         uint64
	hist          []uint64
	uniqueEntries uint64
	tree          *node
	lastAccess    map[uint64]uint64 // address -> time of its last access
	freeNode      *node             // one recycled node from the last removal, if any

	// maxWindow bounds how many distinct addresses the tree and map may
	// hold before old entries are pruned (spec.md §4.4's bounded-window
	// pruning; 0 disables pruning).
	maxWindow uint64
}

// New creates a reuse-distance tracker. maxWindow of 0 means unbounded (no
// pruning); otherwise once more than maxWindow distinct addresses are live,
// the oldest ones are evicted from both the tree and the address map.
func New(maxWindow uint64) *Distance {
	return &Distance{
		lastAccess: make(map[uint64]uint64),
		maxWindow:  maxWindow,
	}
}

// ProcessAddress folds one more address access into the histogram, per
// ReuseDistance::process_address.
func (d *Distance) ProcessAddress(address uint64) {
	distance := InfiniteDistance
	var recycled *node
	if prevTime, seen := d.lastAccess[address]; seen {
		distance = d.tree.treeDist(prevTime)
		newRoot, removed := d.tree.remove(prevTime)
		d.tree = newRoot
		recycled = removed
	}

	histLen := uint64(len(d.hist))
	switch {
	case distance < histLen:
		d.hist[distance]++
	case distance == InfiniteDistance:
		d.uniqueEntries++
	default:
		grown := make([]uint64, distance+1)
		copy(grown, d.hist)
		d.hist = grown
		d.hist[distance]++
	}

	if recycled == nil {
		recycled = newNode(address, d.clock)
	} else {
		recycled.reinit(address, d.clock)
	}
	if d.tree == nil {
		d.tree = recycled
	} else {
		d.tree = d.tree.insert(recycled)
	}
	d.lastAccess[address] = d.clock
	d.clock++

	if d.maxWindow > 0 && uint64(len(d.lastAccess)) > d.maxWindow {
		threshold := d.clock - d.maxWindow
		d.tree = d.tree.pruneTree(threshold, func(addr uint64) {
			delete(d.lastAccess, addr)
		})
	}
}

// Histogram returns the reuse-distance histogram: hist[k] counts accesses
// whose reuse distance was exactly k.
func (d *Distance) Histogram() []uint64 {
	return d.hist
}

// UniqueAddresses returns the number of accesses so far that had an infinite
// reuse distance: the first access to each address (and, with pruning on,
// the next access to an address after it was pruned).
func (d *Distance) UniqueAddresses() uint64 {
	return d.uniqueEntries
}

// ComputeMedian returns the median reuse distance and its median absolute
// deviation, per ReuseDistance::compute_median. Both are computed by
// scanning the histogram for the bucket holding the 50th percentile, exactly
// as the original does (not interpolated).
func (d *Distance) ComputeMedian() (median, mad uint64) {
	histLen := uint64(len(d.hist))
	var totalTally uint64
	if d.uniqueEntries >= histLen {
		totalTally = d.uniqueEntries - histLen
	}
	for _, c := range d.hist {
		totalTally += c
	}

	medianDistance := InfiniteDistance
	var medianTally uint64
	for dist := uint64(0); dist < histLen; dist++ {
		medianDistance = dist
		medianTally += d.hist[dist]
		if medianTally > totalTally/2 {
			break
		}
	}

	absdev := make([]uint64, histLen)
	for dist := uint64(0); dist < histLen; dist++ {
		tally := d.hist[dist]
		var deviation uint64
		if dist > medianDistance {
			deviation = dist - medianDistance
		} else {
			deviation = medianDistance - dist
		}
		absdev[deviation] += tally
	}

	var madTally uint64
	for dev := uint64(0); dev < uint64(len(absdev)); dev++ {
		mad = dev
		madTally += absdev[dev]
		if madTally > totalTally/2 {
			break
		}
	}

	return medianDistance, mad
}
