package product_test

import (
	"testing"

	"github.com/rainoftime/canal/pkg/domain/integer"
	"github.com/rainoftime/canal/pkg/domain/product"
	"github.com/rainoftime/canal/pkg/ir"
)

func TestMessageMeetEmptyIsIdentity(t *testing.T) {
	m := product.Message{Width: 8, UnsignedFrom: 1, UnsignedTo: 5, SignedFrom: 1, SignedTo: 5}
	out := m.Meet(product.EmptyMessage(8))
	if out.UnsignedFrom != 1 || out.UnsignedTo != 5 {
		t.Errorf("Meet with empty = [%d,%d], want [1,5]", out.UnsignedFrom, out.UnsignedTo)
	}
}

func TestMessageMeetIntersects(t *testing.T) {
	a := product.Message{Width: 8, UnsignedFrom: 1, UnsignedTo: 10, SignedFrom: 1, SignedTo: 10}
	b := product.Message{Width: 8, UnsignedFrom: 5, UnsignedTo: 20, SignedFrom: 5, SignedTo: 20}
	out := a.Meet(b)
	if out.UnsignedFrom != 5 || out.UnsignedTo != 10 {
		t.Errorf("Meet = [%d,%d], want [5,10]", out.UnsignedFrom, out.UnsignedTo)
	}
}

func buildProduct(w int, s *integer.Set, iv *integer.Interval) *product.Product {
	return product.New(ir.IntType{Width: w}, w, s, iv)
}

func TestProductIsBottomIfAnyComponentBottom(t *testing.T) {
	s := integer.Bottom(8, 40)
	iv := integer.IntervalConst(8, 5)
	p := buildProduct(8, s, iv)
	if !p.IsBottom() {
		t.Error("Product should be bottom when any component is bottom")
	}
}

func TestProductIsTopOnlyWhenAllTop(t *testing.T) {
	s := integer.TopSet(8, 40)
	iv := integer.IntervalTop(8)
	p := buildProduct(8, s, iv)
	if !p.IsTop() {
		t.Error("Product should be top when every component is top")
	}
}

func TestProductJoinReducesComponents(t *testing.T) {
	a := buildProduct(8, integer.Singleton(8, 1, 40), integer.IntervalConst(8, 1))
	b := buildProduct(8, integer.Singleton(8, 5, 40), integer.IntervalConst(8, 5))
	out := buildProduct(8, integer.Bottom(8, 40), integer.IntervalBottom(8))
	if err := out.Join(a, b); err != nil {
		t.Fatalf("Join: %v", err)
	}
	iv := out.Components[1].(*integer.Interval)
	if iv.Unsigned.From != 1 || iv.Unsigned.To != 5 {
		t.Errorf("joined interval component = [%d,%d], want [1,5]", iv.Unsigned.From, iv.Unsigned.To)
	}
}

func TestProductReduceNarrowsSetFromInterval(t *testing.T) {
	// Build a product whose Interval component is a tight [3,3] const
	// but whose Set component is wider; reduction should narrow the Set
	// toward the Interval's bound via the shared Message.
	wide := integer.Bottom(8, 40)
	_ = wide.Join(wide, integer.Singleton(8, 3, 40))
	_ = wide.Join(wide, integer.Singleton(8, 9, 40))
	tight := integer.IntervalConst(8, 3)
	p := buildProduct(8, wide, tight)
	if err := p.Add(p, buildProduct(8, integer.Singleton(8, 0, 40), integer.IntervalConst(8, 0))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// After adding zero and reducing, the Set component must not retain
	// any value outside the Interval's [3,3] bound.
	s := p.Components[0].(*integer.Set)
	for _, v := range s.Values {
		if v != 3 {
			t.Errorf("Set component retained value %d after reduction against a {3} interval", v)
		}
	}
}

func TestProductAccuracyIsBestComponent(t *testing.T) {
	p := buildProduct(8, integer.TopSet(8, 40), integer.IntervalConst(8, 3))
	if p.Accuracy() != 1 {
		t.Errorf("Accuracy() = %v, want 1 (the Interval component is exact)", p.Accuracy())
	}
}

func TestProductCloneIndependent(t *testing.T) {
	p := buildProduct(8, integer.Singleton(8, 1, 40), integer.IntervalConst(8, 1))
	cp := p.Clone().(*product.Product)
	cp.Components[1].(*integer.Interval).Unsigned.From = 99
	iv := p.Components[1].(*integer.Interval)
	if iv.Unsigned.From == 99 {
		t.Error("mutating the clone mutated the original")
	}
}

func TestProductUnsignedBoundsIntersectsComponents(t *testing.T) {
	wide := integer.IntervalBottom(8)
	_ = wide.Join(wide, integer.IntervalConst(8, 0))
	_ = wide.Join(wide, integer.IntervalConst(8, 200))
	p := buildProduct(8, integer.Singleton(8, 50, 40), wide)
	lo, hi, ok := p.UnsignedBounds()
	if !ok {
		t.Fatal("UnsignedBounds should succeed when at least one component is bounded")
	}
	if lo != 50 || hi != 50 {
		t.Errorf("UnsignedBounds() = (%d,%d), want (50,50) (intersection with the tight Set component)", lo, hi)
	}
}
