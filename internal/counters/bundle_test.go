package counters

import "testing"

func TestBundleAddAccumulates(t *testing.T) {
	var total Bundle
	a := Bundle{Loads: 10, Ops: 3}
	b := Bundle{Loads: 5, Ops: 1}
	total.Add(&a)
	total.Add(&b)
	if total.Loads != 15 {
		t.Errorf("expected Loads == 15, got %d", total.Loads)
	}
	if total.Ops != 4 {
		t.Errorf("expected Ops == 4, got %d", total.Ops)
	}
}

func TestBundleDifferenceSubtractsCallIns(t *testing.T) {
	a := Bundle{CallIns: 10, Loads: 100}
	b := Bundle{CallIns: 4, Loads: 40}
	d := a.Difference(&b)
	if d.CallIns != 6 {
		t.Errorf("expected CallIns == 6 (subtraction, not assignment), got %d", d.CallIns)
	}
	if d.Loads != 60 {
		t.Errorf("expected Loads == 60, got %d", d.Loads)
	}
}

func TestBundleResetZeroesInPlace(t *testing.T) {
	b := Bundle{Loads: 42}
	b.MemInsts[3] = 7
	b.Reset()
	if b.Loads != 0 || b.MemInsts[3] != 0 {
		t.Error("Reset left nonzero fields")
	}
}

func TestTerminatorsConsistentInvariant(t *testing.T) {
	var b Bundle
	b.Terminators[EndBBReturn] = 1
	b.Terminators[EndBBCondTaken] = 2
	b.Terminators[EndBBCondNotTaken] = 3
	b.Terminators[EndBBAny] = 6
	if !b.TerminatorsConsistent() {
		t.Error("expected terminators[ANY] to equal the sum of the rest")
	}
	b.Terminators[EndBBAny] = 7
	if b.TerminatorsConsistent() {
		t.Error("expected inconsistency to be detected")
	}
}

func TestMemInstsIndexFlattening(t *testing.T) {
	idx := MemInstsIndex(OpLoad, RefValue, AggScalar, TypeInt, Width64)
	if idx < 0 || idx >= NumMemInsts {
		t.Fatalf("index %d out of range [0, %d)", idx, NumMemInsts)
	}
	// Changing only the width should change the index by exactly 1 when
	// every outer axis is held constant at its minimum.
	idx2 := MemInstsIndex(OpLoad, RefValue, AggScalar, TypeInt, Width128)
	if idx2-idx != int(Width128-Width64) {
		t.Errorf("expected adjacent width buckets to differ by 1, got delta %d", idx2-idx)
	}
}
