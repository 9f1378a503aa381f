// Package state implements the Memory block and State triple of
// §3/§4.9: a byte-cell map delegating to the Domain it holds, and the
// (variables, local blocks, global blocks, returned value) triple a
// per-function interpreter threads through a basic block.
package state

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/domain/aggregate"
	"github.com/rainoftime/canal/pkg/domain/pointer"
	"github.com/rainoftime/canal/pkg/ir"
)

// Block is a named abstract allocation (stack, heap, or global). It
// holds exactly one Domain built over the allocated type; GEP offset
// chains descend into that Domain's own aggregate structure rather
// than a separately-maintained byte-address map, so reads and writes
// are delegated to the contained Domain per §3. Grounded on
// original_source/lib/ArraySingleItem.cpp's store/load split between
// "descend to the addressed element" and "join into the summary".
type Block struct {
	Name     string
	Referent ir.ValueID
	Value    domain.Domain
}

// NewBlock returns a block over value, the allocated type's default
// (bottom) Domain.
func NewBlock(name string, referent ir.ValueID, value domain.Domain) *Block {
	return &Block{Name: name, Referent: referent, Value: value}
}

func (b *Block) Clone() *Block {
	return &Block{Name: b.Name, Referent: b.Referent, Value: b.Value.Clone()}
}

func (b *Block) Equal(o *Block) bool {
	return b.Referent == o.Referent && b.Value.Equal(o.Value)
}

// Join folds other's value into b's in place; used when merging
// predecessor states that both reached this block's allocation site.
func (b *Block) Join(other *Block) error {
	joined := b.Value.Clone()
	if err := joined.Join(b.Value, other.Value); err != nil {
		return err
	}
	b.Value = joined
	return nil
}

func (b *Block) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("block %q (referent %d)\n", b.Name, b.Referent))
	for _, line := range strings.Split(strings.TrimRight(b.Value.String(), "\n"), "\n") {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// bounds extracts a domain's unsigned-order bounds. An offset lacking
// a Bounder implementation, or one that is still top, reports ok=false;
// callers then refuse the access rather than guess a range.
func bounds(d domain.Domain) (lo, hi uint64, ok bool) {
	b, isBounder := d.(domain.Bounder)
	if !isBounder {
		return 0, 0, false
	}
	return b.UnsignedBounds()
}

// Load descends offsets into the block's Domain, joining across a
// range wherever an offset is not a single concrete index. width is
// not separately consulted: the IR's own typing already determines
// the shape of the Domain reached, per the "bit width and element
// type are preserved by every transfer" invariant.
func (b *Block) Load(offsets []domain.Domain, width int) (domain.Domain, error) {
	cur := b.Value
	for _, off := range offsets {
		next, err := descendGet(cur, off)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func descendGet(cur domain.Domain, off domain.Domain) (domain.Domain, error) {
	switch c := cur.(type) {
	case *aggregate.FixedArray:
		return c.Get(off), nil
	case *aggregate.SingleItemArray:
		return c.Get(off), nil
	case *aggregate.Struct:
		lo, hi, ok := bounds(off)
		if !ok || lo != hi {
			return nil, canalerr.New(canalerr.UnsupportedType, "load", "struct field index must be a known constant")
		}
		return c.Field(int(lo)), nil
	default:
		return nil, canalerr.New(canalerr.UnsupportedType, "load", "cannot index into this domain")
	}
}

// Store writes value at offsets, returning a clone of the block with
// the write applied. strong (set by the pointer domain only when
// exactly one target is live) permits a concrete single-index write
// to overwrite outright; every other case joins, matching §4.6's
// store contract.
func (b *Block) Store(value domain.Domain, offsets []domain.Domain, strong bool) (pointer.Block, error) {
	cp := b.Clone()
	if len(offsets) == 0 {
		if strong {
			cp.Value = value.Clone()
			return cp, nil
		}
		joined := cp.Value.Clone()
		if err := joined.Join(cp.Value, value); err != nil {
			return nil, err
		}
		cp.Value = joined
		return cp, nil
	}
	parent, err := descendToParent(cp.Value, offsets[:len(offsets)-1])
	if err != nil {
		return nil, err
	}
	if err := setLeaf(parent, offsets[len(offsets)-1], value, strong); err != nil {
		return nil, err
	}
	return cp, nil
}

func descendToParent(cur domain.Domain, offsets []domain.Domain) (domain.Domain, error) {
	for _, off := range offsets {
		next, err := borrowMutable(cur, off)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// borrowMutable returns the actual element Domain stored inside cur
// (not a clone), so the caller's later mutation is visible through
// cur. A non-final offset must be a single concrete index: canal does
// not attempt to write through an abstract intermediate index.
func borrowMutable(cur domain.Domain, off domain.Domain) (domain.Domain, error) {
	switch c := cur.(type) {
	case *aggregate.FixedArray:
		lo, hi, ok := bounds(off)
		if !ok || lo != hi {
			return nil, canalerr.New(canalerr.NotImplemented, "store", "cannot descend through a non-final abstract array index")
		}
		return c.Elems[lo], nil
	case *aggregate.Struct:
		lo, hi, ok := bounds(off)
		if !ok || lo != hi {
			return nil, canalerr.New(canalerr.UnsupportedType, "store", "struct field index must be a known constant")
		}
		return c.Field(int(lo)), nil
	case *aggregate.SingleItemArray:
		return c.Summary, nil
	default:
		return nil, canalerr.New(canalerr.UnsupportedType, "store", "cannot index into this domain")
	}
}

func setLeaf(cur domain.Domain, off domain.Domain, value domain.Domain, strong bool) error {
	switch c := cur.(type) {
	case *aggregate.FixedArray:
		lo, hi, ok := bounds(off)
		if !ok {
			return canalerr.New(canalerr.UnsupportedType, "store", "array offset must support bounds extraction")
		}
		if hi >= uint64(len(c.Elems)) {
			hi = uint64(len(c.Elems)) - 1
		}
		for i := lo; i <= hi; i++ {
			if strong && lo == hi {
				c.Elems[i] = value.Clone()
				continue
			}
			joined := c.Elems[i].Clone()
			if err := joined.Join(c.Elems[i], value); err != nil {
				return err
			}
			c.Elems[i] = joined
		}
		return nil
	case *aggregate.SingleItemArray:
		return c.Set(off, value)
	case *aggregate.Struct:
		lo, hi, ok := bounds(off)
		if !ok || lo != hi {
			return canalerr.New(canalerr.UnsupportedType, "store", "struct field index must be a known constant")
		}
		idx := int(lo)
		if strong {
			c.SetField(idx, value.Clone())
			return nil
		}
		joined := c.Field(idx).Clone()
		if err := joined.Join(c.Field(idx), value); err != nil {
			return err
		}
		c.SetField(idx, joined)
		return nil
	default:
		return canalerr.New(canalerr.UnsupportedType, "store", "cannot index into this domain")
	}
}

// sortedReferents returns a block map's keys in ascending order, for
// deterministic dumps.
func sortedReferents(m map[ir.ValueID]*Block) []ir.ValueID {
	ids := make([]ir.ValueID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
