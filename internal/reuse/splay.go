// Package reuse implements byfl's reuse-distance engine: a splay tree keyed
// by logical access time, with subtree-size ("weight") bookkeeping, backing
// the histogram of address reuse distances (spec.md §4.4). It is grounded on
// original_source/lib/byfl/reuse-dist.cpp's RDnode/ReuseDistance classes.
package reuse

// node is one entry in a reuse-distance splay tree, keyed on the logical
// access time at which its address was last touched.
type node struct {
	left, right *node
	address     uint64
	time        uint64
	weight      uint64 // size of the subtree rooted here, self included
}

func newNode(address, time uint64) *node {
	return &node{address: address, time: time, weight: 1}
}

// reinit reuses a removed node for a fresh insertion instead of allocating,
// mirroring RDnode::initialize's node-recycling trick.
func (n *node) reinit(address, time uint64) {
	n.address = address
	n.time = time
	n.weight = 1
	n.left = nil
	n.right = nil
}

func (n *node) fixWeight() {
	w := uint64(1)
	if n.left != nil {
		w += n.left.weight
	}
	if n.right != nil {
		w += n.right.weight
	}
	n.weight = w
}

// fixPathWeights repairs weights along the search path to target after a
// splay has relocated target's neighborhood, per RDnode::fix_path_weights.
// It walks down swapping child pointers for parent pointers (avoiding an
// explicit stack), then walks back up restoring pointers and fixing weights.
func (n *node) fixPathWeights(target uint64) {
	var parent *node
	cur := n
	for cur != nil {
		var child *node
		if target < cur.time {
			child = cur.left
			cur.left = parent
		} else {
			child = cur.right
			cur.right = parent
		}
		parent = cur
		cur = child
	}
	for parent != nil {
		prev := cur
		cur = parent
		if target < cur.time {
			parent = cur.left
			cur.left = prev
		} else {
			parent = cur.right
			cur.right = prev
		}
		cur.fixWeight()
	}
}

// splay moves target (or its nearest neighbor, if absent) to the root of the
// tree rooted at n, returning the new root. Direct port of RDnode::splay's
// top-down zig/zig-zig splay.
func (n *node) splay(target uint64) *node {
	cur := n
	var header node
	left, right := &header, &header

	for {
		if target < cur.time {
			if cur.left == nil {
				break
			}
			if target < cur.left.time {
				parent := cur.left
				cur.left = parent.right
				parent.right = cur
				cur = parent
				cur.right.fixWeight()
				cur.fixWeight()
				if cur.left == nil {
					break
				}
			}
			right.left = cur
			right = cur
			cur = cur.left
		} else if target > cur.time {
			if cur.right == nil {
				break
			}
			if target > cur.right.time {
				parent := cur.right
				cur.right = parent.left
				parent.left = cur
				cur = parent
				cur.left.fixWeight()
				cur.fixWeight()
				if cur.right == nil {
					break
				}
			}
			left.right = cur
			left = cur
			cur = cur.right
		} else {
			break
		}
	}

	left.right = cur.left
	right.left = cur.right
	cur.left = header.right
	cur.right = header.left

	if cur.left != nil {
		cur.left.fixPathWeights(cur.time)
	}
	if cur.right != nil {
		cur.right.fixPathWeights(cur.time)
	}
	return cur
}

// insert splays newN into the tree rooted at n and returns the new root.
// Duplicate timestamps are a caller bug (the logical clock is unique per
// access) and panic, matching the original's abort().
func (n *node) insert(newN *node) *node {
	root := n.splay(newN.time)
	if newN.time == root.time {
		panic("reuse: duplicate timestamp inserted into splay tree")
	}
	if newN.time > root.time {
		newN.right = root.right
		newN.left = root
		root.right = nil
	} else {
		newN.left = root.left
		newN.right = root
		root.left = nil
	}
	root.fixWeight()
	newN.fixWeight()
	return newN
}

// remove splays target to the root, detaches it, and returns the new root
// along with the removed node (so the caller can recycle it).
func (n *node) remove(target uint64) (newRoot, removed *node) {
	root := n.splay(target)
	if root.time != target {
		panic("reuse: removing a timestamp absent from the splay tree")
	}
	if root.left == nil {
		newRoot = root.right
	} else {
		newRoot = root.left.splay(target)
		if newRoot != nil {
			newRoot.right = root.right
			if newRoot.right != nil {
				newRoot.right.fixWeight()
			}
			newRoot.fixWeight()
		}
	}
	return newRoot, root
}

// pruneTree removes every node with time < threshold from the tree rooted at
// n, invoking onEvict for each evicted address, and returns the new root.
func (n *node) pruneTree(threshold uint64, onEvict func(address uint64)) *node {
	cur := n.splay(0)
	for cur != nil && cur.time < threshold {
		dead := cur
		cur = cur.right
		if cur != nil && cur.left != nil {
			cur = cur.splay(0)
		}
		onEvict(dead.address)
	}
	return cur
}

// treeDist returns the number of nodes in the tree whose time is strictly
// greater than timestamp -- the reuse distance of the access that last
// touched this address at time timestamp.
func (n *node) treeDist(timestamp uint64) uint64 {
	cur := n
	var numLarger uint64
	for {
		switch {
		case timestamp > cur.time:
			cur = cur.right
		case timestamp < cur.time:
			numLarger++
			if cur.right != nil {
				numLarger += cur.right.weight
			}
			cur = cur.left
		default:
			if cur.right != nil {
				numLarger += cur.right.weight
			}
			return numLarger
		}
	}
}

// validateWeights panics if any node's cached weight disagrees with its
// subtree's true size. Used only by tests, mirroring RDnode::validate_weights.
func (n *node) validateWeights() uint64 {
	w := uint64(1)
	if n.left != nil {
		w += n.left.validateWeights()
	}
	if n.right != nil {
		w += n.right.validateWeights()
	}
	if w != n.weight {
		panic("reuse: splay tree weight invariant violated")
	}
	return w
}
