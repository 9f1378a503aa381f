package integer

import (
	"testing"

	"github.com/rainoftime/canal/pkg/ir"
)

func TestSetBottomTop(t *testing.T) {
	b := Bottom(8, 40)
	if !b.IsBottom() {
		t.Error("Bottom should be bottom")
	}
	top := TopSet(8, 40)
	if !top.IsTop() {
		t.Error("TopSet should be top")
	}
	if b.Equal(top) {
		t.Error("bottom should not equal top")
	}
}

func TestSetSingletonEqual(t *testing.T) {
	a := Singleton(8, 5, 40)
	b := Singleton(8, 5, 40)
	if !a.Equal(b) {
		t.Error("two singletons of the same value should be equal")
	}
	c := Singleton(8, 6, 40)
	if a.Equal(c) {
		t.Error("singletons of different values should not be equal")
	}
}

func TestSetJoinUnion(t *testing.T) {
	a := Singleton(8, 1, 40)
	b := Singleton(8, 2, 40)
	out := Bottom(8, 40)
	if err := out.Join(a, b); err != nil {
		t.Fatalf("Join: %v", err)
	}
	want := []uint64{1, 2}
	if len(out.Values) != len(want) {
		t.Fatalf("Values = %v, want %v", out.Values, want)
	}
	for i, v := range want {
		if out.Values[i] != v {
			t.Errorf("Values[%d] = %d, want %d", i, out.Values[i], v)
		}
	}
}

func TestSetJoinCollapsesPastThreshold(t *testing.T) {
	out := Bottom(8, 2)
	a := Singleton(8, 1, 2)
	b := Singleton(8, 2, 2)
	if err := out.Join(a, b); err != nil {
		t.Fatalf("Join: %v", err)
	}
	c := Singleton(8, 3, 2)
	if err := out.Join(out, c); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !out.IsTop() {
		t.Error("Set exceeding Threshold cardinality should collapse to top")
	}
}

func TestSetAddOverflowCollapsesToTop(t *testing.T) {
	out := Bottom(8, 40)
	a := Singleton(8, 200, 40)
	b := Singleton(8, 100, 40)
	if err := out.Add(a, b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !out.IsTop() {
		t.Error("8-bit add of 200+100 overflows and should collapse to top")
	}
}

func TestSetAddNoOverflow(t *testing.T) {
	out := Bottom(8, 40)
	a := Singleton(8, 2, 40)
	b := Singleton(8, 3, 40)
	if err := out.Add(a, b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	want := Singleton(8, 5, 40)
	if !out.Equal(want) {
		t.Errorf("Add(2,3) = %v, want {5}", out.Values)
	}
}

func TestSetICmpEqSingletons(t *testing.T) {
	a := Singleton(8, 5, 40)
	b := Singleton(8, 5, 40)
	out := Bottom(1, 40)
	if err := out.ICmp(ir.PredEQ, a, b); err != nil {
		t.Fatalf("ICmp: %v", err)
	}
	want := boolSet(40, 1)
	if !out.Equal(want) {
		t.Error("icmp eq on equal singletons should be {1}")
	}
}

func TestSetDivByZeroOnlyCollapsesToTop(t *testing.T) {
	a := Singleton(8, 10, 40)
	b := Singleton(8, 0, 40)
	out := Bottom(8, 40)
	if err := out.UDiv(a, b); err != nil {
		t.Fatalf("UDiv: %v", err)
	}
	if !out.IsTop() {
		t.Error("dividing by a Set containing only zero should collapse to top")
	}
}

func TestSetCloneIndependent(t *testing.T) {
	a := Singleton(8, 1, 40)
	cp := a.Clone().(*Set)
	cp.Values[0] = 9
	if a.Values[0] == 9 {
		t.Error("mutating the clone mutated the original")
	}
}
