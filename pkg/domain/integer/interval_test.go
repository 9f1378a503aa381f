package integer

import (
	"testing"

	"github.com/rainoftime/canal/pkg/ir"
)

func TestIntervalBottomTop(t *testing.T) {
	b := IntervalBottom(8)
	if !b.IsBottom() {
		t.Error("IntervalBottom should be bottom")
	}
	top := IntervalTop(8)
	if !top.IsTop() {
		t.Error("IntervalTop should be top")
	}
}

func TestIntervalConstEqual(t *testing.T) {
	a := IntervalConst(8, 10)
	b := IntervalConst(8, 10)
	if !a.Equal(b) {
		t.Error("two consts of the same value should be equal")
	}
}

func TestIntervalJoinWidensRange(t *testing.T) {
	a := IntervalConst(8, 1)
	b := IntervalConst(8, 5)
	out := IntervalBottom(8)
	if err := out.Join(a, b); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if out.Unsigned.From != 1 || out.Unsigned.To != 5 {
		t.Errorf("Unsigned = [%d,%d], want [1,5]", out.Unsigned.From, out.Unsigned.To)
	}
}

func TestIntervalAddRange(t *testing.T) {
	a := IntervalBottom(8)
	a.Unsigned = half{From: 1, To: 3}
	a.Signed = half{From: 1, To: 3}
	b := IntervalConst(8, 10)
	out := IntervalBottom(8)
	if err := out.Add(a, b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if out.Unsigned.From != 11 || out.Unsigned.To != 13 {
		t.Errorf("Add range = [%d,%d], want [11,13]", out.Unsigned.From, out.Unsigned.To)
	}
}

func TestIntervalAddOverflowGoesTop(t *testing.T) {
	a := IntervalConst(8, 250)
	b := IntervalConst(8, 10)
	out := IntervalBottom(8)
	if err := out.Add(a, b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !out.Unsigned.Top {
		t.Error("250+10 overflows 8 bits and should set the unsigned half to top")
	}
}

func TestIntervalICmpULT(t *testing.T) {
	a := IntervalConst(8, 1)
	b := IntervalConst(8, 5)
	out := IntervalBottom(1)
	if err := out.ICmp(ir.PredULT, a, b); err != nil {
		t.Fatalf("ICmp: %v", err)
	}
	want := IntervalConst(1, 1)
	if !out.Equal(want) {
		t.Error("1 < 5 should be must-true")
	}
}

func TestIntervalWidenJumpsToExtreme(t *testing.T) {
	prev := IntervalBottom(8)
	prev.Unsigned = half{From: 0, To: 5}
	prev.Signed = half{From: 0, To: 5}
	cur := IntervalBottom(8)
	cur.Unsigned = half{From: 0, To: 10}
	cur.Signed = half{From: 0, To: 10}
	if err := cur.Widen(prev); err != nil {
		t.Fatalf("Widen: %v", err)
	}
	if !cur.Unsigned.Top {
		t.Error("growing upper bound should widen to top")
	}
	if cur.Unsigned.To != 255 {
		t.Errorf("widened upper bound = %d, want 255", cur.Unsigned.To)
	}
}

func TestIntervalCloneIndependent(t *testing.T) {
	a := IntervalConst(8, 1)
	cp := a.Clone().(*Interval)
	cp.Unsigned.From = 99
	if a.Unsigned.From == 99 {
		t.Error("mutating the clone mutated the original")
	}
}

func TestIntervalUnsignedBounds(t *testing.T) {
	a := IntervalConst(8, 7)
	lo, hi, ok := a.UnsignedBounds()
	if !ok || lo != 7 || hi != 7 {
		t.Errorf("UnsignedBounds() = (%d, %d, %v), want (7, 7, true)", lo, hi, ok)
	}
	top := IntervalTop(8)
	if _, _, ok := top.UnsignedBounds(); ok {
		t.Error("UnsignedBounds on top should report ok=false")
	}
}
