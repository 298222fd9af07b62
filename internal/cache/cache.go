// Package cache implements byfl's informational, fully-associative LRU cache
// model (spec.md §4.7), grounded on
// original_source/lib/byfl/cache-model.cpp's Cache class. It never evicts:
// the "LRU list" grows without bound because the model exists to report hit
// statistics at every power-of-two cache size at once, not to simulate a
// capacity-limited cache.
package cache

import (
	"math/bits"
	"sync"
)

// Model is one thread's cache model. The zero value is not usable; use New.
type Model struct {
	lines        []uint64 // back (last element) is MRU, front is LRU
	lineSize     uint64
	log2LineSize uint64
	maxSetBits   uint64

	accesses      uint64
	splitAccesses uint64
	coldMisses    uint64
	hits          []map[uint64]uint64 // hits[k] maps reuse-distance-in-sets -> count, for set size 2^k
}

// New creates a cache model with the given line size (bytes) and the log2 of
// the largest set size to report statistics for.
func New(lineSize, maxSetBits uint64) *Model {
	m := &Model{
		lineSize:   lineSize,
		maxSetBits: maxSetBits,
		hits:       make([]map[uint64]uint64, maxSetBits),
	}
	for lsize := lineSize; lsize > 1; lsize >>= 1 {
		m.log2LineSize++
	}
	for i := range m.hits {
		m.hits[i] = make(map[uint64]uint64)
	}
	return m
}

// rightMatch returns the number of low-order zero bits in (a^b) once the
// line-size bits are shifted out and bit maxSetBits-1 is forced on -- the
// number of matching low-order bits of the two line addresses, capped at
// maxSetBits-1, per Cache::getRightMatch.
func (m *Model) rightMatch(a, b uint64) uint64 {
	diffBits := ((a ^ b) >> m.log2LineSize) | (uint64(1) << (m.maxSetBits - 1))
	return uint64(bits.TrailingZeros64(diffBits))
}

// Access walks every cache line touched by [baseaddr, baseaddr+numaddrs)
// from MRU to LRU, tallying right-match hits or a cold miss for each, and
// moves every touched line to MRU, per Cache::access.
func (m *Model) Access(baseaddr, numaddrs uint64) {
	firstLine := baseaddr / m.lineSize * m.lineSize
	endAddr := baseaddr + numaddrs
	if numaddrs > 0 {
		endAddr-- // last byte actually touched
	}
	lastLine := endAddr / m.lineSize * m.lineSize

	var numAccesses uint64
	for addr := firstLine; addr <= lastLine; addr += m.lineSize {
		numAccesses++
		rightMatchTally := make([]uint64, m.maxSetBits)
		found := false
		foundIdx := -1
		for i := len(m.lines) - 1; i >= 0; i-- {
			line := m.lines[i]
			rm := m.rightMatch(addr, line)
			rightMatchTally[rm]++
			if addr == line {
				found = true
				foundIdx = i
				break
			}
		}

		if found {
			m.lines = append(m.lines[:foundIdx], m.lines[foundIdx+1:]...)

			var sum uint64
			for k := len(rightMatchTally) - 1; k >= 0; k-- {
				rightMatchTally[k] += sum
				sum = rightMatchTally[k]
			}
			for set := uint64(0); set < m.maxSetBits; set++ {
				idx := rightMatchTally[set] * (uint64(1) << set)
				m.hits[set][idx]++
			}
		} else {
			m.coldMisses++
		}

		m.lines = append(m.lines, addr)
	}

	m.accesses += numAccesses
	if numAccesses != 1 {
		m.splitAccesses++
	}
}

// Accesses, ColdMisses, SplitAccesses, and Hits expose the model's running
// totals (Hits returns the live slice; callers should not mutate it).
func (m *Model) Accesses() uint64      { return m.accesses }
func (m *Model) ColdMisses() uint64    { return m.coldMisses }
func (m *Model) SplitAccesses() uint64 { return m.splitAccesses }
func (m *Model) Hits() []map[uint64]uint64 { return m.hits }

// Pool fuses per-thread cache models into aggregate statistics, per
// bf_get_cache_hits / bf_get_cache_accesses / bf_get_cold_misses /
// bf_get_split_accesses.
type Pool struct {
	mu         sync.Mutex
	lineSize   uint64
	maxSetBits uint64
	models     []*Model
}

// NewPool creates an empty pool of per-thread cache models sharing the same
// line size and max-set-bits configuration.
func NewPool(lineSize, maxSetBits uint64) *Pool {
	return &Pool{lineSize: lineSize, maxSetBits: maxSetBits}
}

// ForThread returns (creating if necessary) this pool's model, given a
// per-thread slot the caller owns (e.g. a *Model field on a ThreadState).
// If *slot is nil, a fresh model is created, registered with the pool under
// lock, and stored back through slot.
func (p *Pool) ForThread(slot **Model) *Model {
	if *slot != nil {
		return *slot
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	m := New(p.lineSize, p.maxSetBits)
	p.models = append(p.models, m)
	*slot = m
	return m
}

// TotalAccesses sums Accesses() across every registered thread model.
func (p *Pool) TotalAccesses() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total uint64
	for _, m := range p.models {
		total += m.Accesses()
	}
	return total
}

// TotalColdMisses sums ColdMisses() across every registered thread model.
func (p *Pool) TotalColdMisses() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total uint64
	for _, m := range p.models {
		total += m.ColdMisses()
	}
	return total
}

// TotalSplitAccesses sums SplitAccesses() across every registered thread model.
func (p *Pool) TotalSplitAccesses() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total uint64
	for _, m := range p.models {
		total += m.SplitAccesses()
	}
	return total
}

// TotalHits fuses every thread model's per-set-size reuse-distance
// histograms element-wise, per bf_get_cache_hits.
func (p *Pool) TotalHits() []map[uint64]uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := make([]map[uint64]uint64, p.maxSetBits)
	for i := range total {
		total[i] = make(map[uint64]uint64)
	}
	for _, m := range p.models {
		for set, hist := range m.Hits() {
			for idx, count := range hist {
				total[set][idx] += count
			}
		}
	}
	return total
}
