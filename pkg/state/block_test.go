package state

import (
	"testing"

	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/domain/aggregate"
	"github.com/rainoftime/canal/pkg/domain/integer"
	"github.com/rainoftime/canal/pkg/ir"
)

func TestBlockCloneIndependent(t *testing.T) {
	b := NewBlock("x", 1, integer.IntervalConst(8, 1))
	cp := b.Clone()
	cp.Value = integer.IntervalConst(8, 9)
	if b.Value.Equal(cp.Value) {
		t.Error("mutating the clone mutated the original")
	}
}

func TestBlockJoin(t *testing.T) {
	a := NewBlock("x", 1, integer.IntervalConst(8, 1))
	b := NewBlock("x", 1, integer.IntervalConst(8, 5))
	if err := a.Join(b); err != nil {
		t.Fatalf("Join: %v", err)
	}
	iv := a.Value.(*integer.Interval)
	if iv.Unsigned.From != 1 || iv.Unsigned.To != 5 {
		t.Errorf("joined value = [%d,%d], want [1,5]", iv.Unsigned.From, iv.Unsigned.To)
	}
}

func TestBlockLoadStoreArrayConcreteIndex(t *testing.T) {
	def := integer.IntervalBottom(8)
	arr := aggregate.NewFixedArray(ir.IntType{Width: 8}, 3, def)
	b := NewBlock("arr", 1, arr)

	updated, err := b.Store(integer.IntervalConst(8, 42), []domain.Domain{integer.IntervalConst(8, 1)}, true)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	ub := updated.(*Block)
	got, err := ub.Load([]domain.Domain{integer.IntervalConst(8, 1)}, 8)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Equal(integer.IntervalConst(8, 42)) {
		t.Errorf("Load after Store = %v, want 42", got)
	}
}

func TestBlockStoreWeakJoinsRatherThanOverwrites(t *testing.T) {
	def := integer.IntervalBottom(8)
	arr := aggregate.NewFixedArray(ir.IntType{Width: 8}, 2, def)
	_ = arr.Set(integer.IntervalConst(8, 0), integer.IntervalConst(8, 1))
	b := NewBlock("arr", 1, arr)

	updated, err := b.Store(integer.IntervalConst(8, 5), []domain.Domain{integer.IntervalConst(8, 0)}, false)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	ub := updated.(*Block)
	got, err := ub.Load([]domain.Domain{integer.IntervalConst(8, 0)}, 8)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	iv := got.(*integer.Interval)
	if iv.Unsigned.From != 1 || iv.Unsigned.To != 5 {
		t.Errorf("weak store result = [%d,%d], want [1,5] (joined, not overwritten)", iv.Unsigned.From, iv.Unsigned.To)
	}
}

func TestBlockStoreDoesNotMutateOriginal(t *testing.T) {
	def := integer.IntervalBottom(8)
	arr := aggregate.NewFixedArray(ir.IntType{Width: 8}, 2, def)
	b := NewBlock("arr", 1, arr)
	_, err := b.Store(integer.IntervalConst(8, 9), []domain.Domain{integer.IntervalConst(8, 0)}, true)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	original := b.Value.(*aggregate.FixedArray)
	if !original.Elems[0].Equal(def) {
		t.Error("Store should clone the block rather than mutate it in place")
	}
}

func TestBlockLoadWholeBlockNoOffsets(t *testing.T) {
	b := NewBlock("x", 1, integer.IntervalConst(8, 7))
	got, err := b.Load(nil, 8)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Equal(integer.IntervalConst(8, 7)) {
		t.Errorf("Load with no offsets = %v, want the whole value", got)
	}
}

func TestBlockEqual(t *testing.T) {
	a := NewBlock("x", 1, integer.IntervalConst(8, 1))
	b := NewBlock("x", 1, integer.IntervalConst(8, 1))
	if !a.Equal(b) {
		t.Error("blocks with the same referent and value should be equal")
	}
}
