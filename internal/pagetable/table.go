package pagetable

// Table maps page numbers (address / logicalPageSize) to page entries,
// created lazily on first access, per spec.md §4.3. It is generic over the
// entry implementation (Bit or Word) via the newEntry factory.
type Table struct {
	logicalPageSize int
	pages           map[uint64]Entry
	newEntry        func(pageSize int) Entry
}

// NewBitTable creates a page table backed by BitEntry pages (for unique-byte
// tracking).
func NewBitTable(pageSize int) *Table {
	if pageSize <= 0 {
		pageSize = DefaultLogicalPageSize
	}
	return &Table{
		logicalPageSize: pageSize,
		pages:           make(map[uint64]Entry),
		newEntry:        func(sz int) Entry { return NewBitEntry(sz) },
	}
}

// NewWordTable creates a page table backed by WordEntry pages (for
// memory-footprint tracking, which needs saturating per-byte counts rather
// than a single touched bit).
func NewWordTable(pageSize int) *Table {
	if pageSize <= 0 {
		pageSize = DefaultLogicalPageSize
	}
	return &Table{
		logicalPageSize: pageSize,
		pages:           make(map[uint64]Entry),
		newEntry:        func(sz int) Entry { return NewWordEntry(sz) },
	}
}

func (t *Table) findOrCreate(pageNum uint64) Entry {
	e, ok := t.pages[pageNum]
	if !ok {
		e = t.newEntry(t.logicalPageSize)
		t.pages[pageNum] = e
	}
	return e
}

// Access marks [baseAddr, baseAddr+numBytes) as touched, taking the
// single-page fast path when possible and falling back to a byte-at-a-time
// loop across page boundaries (spec.md §4.3).
func (t *Table) Access(baseAddr, numBytes uint64) {
	if numBytes == 0 {
		return
	}
	pgSize := uint64(t.logicalPageSize)
	firstPage := baseAddr / pgSize
	lastPage := (baseAddr + numBytes - 1) / pgSize
	if firstPage == lastPage {
		e := t.findOrCreate(firstPage)
		pageBase := int(baseAddr % pgSize)
		e.Increment(pageBase, pageBase+int(numBytes)-1)
		return
	}
	for i := uint64(0); i < numBytes; i++ {
		addr := baseAddr + i
		pageNum := addr / pgSize
		offset := int(addr % pgSize)
		e := t.findOrCreate(pageNum)
		e.Increment(offset, offset)
	}
}

// TallyUnique sums bytes_touched across every page that has ever been
// accessed (spec.md §4.3, §8's union-of-byte-ranges round-trip law).
func (t *Table) TallyUnique() uint64 {
	var total uint64
	for _, e := range t.pages {
		total += e.Count()
	}
	return total
}

// Pages exposes the underlying page map for callers that need the entries
// directly.
func (t *Table) Pages() map[uint64]Entry { return t.pages }

// PageCount reports how many distinct pages have ever been touched.
func (t *Table) PageCount() int { return len(t.pages) }

// MergeFrom folds every page of src into t, creating pages in t as needed.
// Both tables must share the same entry kind (Bit or Word); src is left
// untouched. Used by the stride tracker's bf_partition_unique_addresses and
// by any other component that aggregates per-call-point page tables into a
// shared total.
func (t *Table) MergeFrom(src *Table) {
	for pageNum, srcEntry := range src.pages {
		dstEntry := t.findOrCreate(pageNum)
		switch se := srcEntry.(type) {
		case *BitEntry:
			de, ok := dstEntry.(*BitEntry)
			if !ok {
				continue
			}
			de.Merge(se)
		case *WordEntry:
			de, ok := dstEntry.(*WordEntry)
			if !ok {
				continue
			}
			de.Merge(se)
		}
	}
}
