// Package aggregate implements the array, string and struct domains
// of §4.7: FixedArray and SingleItemArray (grounded on
// original_source/lib/ArraySingleItem.cpp), StringTrie (grounded on
// original_source/lib/ArrayStringTrie.cpp), and Struct.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/ir"
)

// FixedArray holds exactly N element Domains. A concrete-offset
// access borrows element [i] directly; an abstract offset joins
// every element in the reachable range. Join/Meet are element-wise.
type FixedArray struct {
	domain.Base
	Elems []domain.Domain
}

// NewFixedArray builds a FixedArray where every element starts as a
// clone of def.
func NewFixedArray(elemType ir.Type, n uint64, def domain.Domain) *FixedArray {
	a := &FixedArray{Elems: make([]domain.Domain, n)}
	a.Typ = ir.ArrayType{Len: n, Elem: elemType}
	for i := range a.Elems {
		a.Elems[i] = def.Clone()
	}
	return a
}

func (a *FixedArray) IsBottom() bool {
	for _, e := range a.Elems {
		if !e.IsBottom() {
			return false
		}
	}
	return len(a.Elems) > 0
}

func (a *FixedArray) IsTop() bool {
	for _, e := range a.Elems {
		if !e.IsTop() {
			return false
		}
	}
	return len(a.Elems) > 0
}

func (a *FixedArray) SetBottom() {
	for _, e := range a.Elems {
		e.SetBottom()
	}
}

func (a *FixedArray) SetTop() {
	for _, e := range a.Elems {
		e.SetTop()
	}
}

func (a *FixedArray) Clone() domain.Domain {
	cp := &FixedArray{Base: a.Base, Elems: make([]domain.Domain, len(a.Elems))}
	for i, e := range a.Elems {
		cp.Elems[i] = e.Clone()
	}
	return cp
}

func (a *FixedArray) Equal(other domain.Domain) bool {
	o, ok := other.(*FixedArray)
	if !ok || len(o.Elems) != len(a.Elems) {
		return false
	}
	for i, e := range a.Elems {
		if !e.Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

func (a *FixedArray) Accuracy() float64 {
	if len(a.Elems) == 0 {
		return 1
	}
	sum := 0.0
	for _, e := range a.Elems {
		sum += e.Accuracy()
	}
	return sum / float64(len(a.Elems))
}

func (a *FixedArray) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("array[%d]\n", len(a.Elems)))
	for i, e := range a.Elems {
		sb.WriteString(fmt.Sprintf("  [%d]:\n", i))
		for _, line := range strings.Split(strings.TrimRight(e.String(), "\n"), "\n") {
			sb.WriteString("    ")
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func asFixedArray(d domain.Domain, op string) (*FixedArray, error) {
	fa, ok := d.(*FixedArray)
	if !ok {
		return nil, canalerr.New(canalerr.UnsupportedType, op, "operand is not a fixed array")
	}
	return fa, nil
}

func (a *FixedArray) Join(x, y domain.Domain) error { return a.elementWise(x, y, "join", domain.Domain.Join) }
func (a *FixedArray) Meet(x, y domain.Domain) error { return a.elementWise(x, y, "meet", domain.Domain.Meet) }

func (a *FixedArray) elementWise(x, y domain.Domain, op string, f func(domain.Domain, domain.Domain, domain.Domain) error) error {
	xa, err := asFixedArray(x, op)
	if err != nil {
		return err
	}
	ya, err := asFixedArray(y, op)
	if err != nil {
		return err
	}
	if len(xa.Elems) != len(a.Elems) || len(ya.Elems) != len(a.Elems) {
		return canalerr.New(canalerr.UnsupportedType, op, "array length mismatch")
	}
	for i := range a.Elems {
		if err := f(a.Elems[i], xa.Elems[i], ya.Elems[i]); err != nil {
			return err
		}
	}
	return nil
}

// bounds extracts a concrete [lo,hi] element range from an offset
// Domain, clamped to the array. A precondition violation (out of
// bounds, or offset has no known bounds at all) panics, matching the
// "fatal precondition violation" rule for concrete out-of-range
// access.
func (a *FixedArray) bounds(offset domain.Domain) (lo, hi uint64) {
	b, ok := offset.(domain.Bounder)
	canalerr.Assertf(ok, "FixedArray.bounds", "array offset must support bounds extraction")
	lo, hi, ok = b.UnsignedBounds()
	canalerr.Assertf(ok, "FixedArray.bounds", "array offset must be a known value")
	if hi >= uint64(len(a.Elems)) {
		hi = uint64(len(a.Elems)) - 1
	}
	canalerr.Assertf(lo < uint64(len(a.Elems)), "FixedArray.bounds", "array offset out of bounds")
	return lo, hi
}

// Get returns a borrow of the element at offset if it is a single
// concrete index, else the join of every element in the reachable
// range.
func (a *FixedArray) Get(offset domain.Domain) domain.Domain {
	lo, hi := a.bounds(offset)
	if lo == hi {
		return a.Elems[lo]
	}
	result := a.Elems[lo].Clone()
	for i := lo + 1; i <= hi; i++ {
		joined := result.Clone()
		if err := joined.Join(result, a.Elems[i]); err != nil {
			joined.SetTop()
		}
		result = joined
	}
	return result
}

// Set overwrites the element at a concrete offset, or joins value
// into every element in the reachable range for an abstract offset.
func (a *FixedArray) Set(offset domain.Domain, value domain.Domain) error {
	lo, hi := a.bounds(offset)
	for i := lo; i <= hi; i++ {
		if lo == hi {
			a.Elems[i] = value.Clone()
			continue
		}
		joined := a.Elems[i].Clone()
		if err := joined.Join(a.Elems[i], value); err != nil {
			return err
		}
		a.Elems[i] = joined
	}
	return nil
}

func (a *FixedArray) SetZero(place ir.ValueID) error {
	for _, e := range a.Elems {
		if err := e.SetZero(place); err != nil {
			return err
		}
	}
	return nil
}

// SingleItemArray summarizes an array whose length may itself be
// abstract: one Domain for every element (the "summary") and one for
// the size. Grounded on original_source/lib/ArraySingleItem.cpp.
type SingleItemArray struct {
	domain.Base
	Summary domain.Domain
	Size    domain.Domain
}

func NewSingleItemArray(elemType ir.Type, summary, size domain.Domain) *SingleItemArray {
	a := &SingleItemArray{Summary: summary, Size: size}
	a.Typ = ir.ArrayType{Elem: elemType}
	return a
}

func (a *SingleItemArray) IsBottom() bool { return a.Summary.IsBottom() }
func (a *SingleItemArray) IsTop() bool    { return a.Summary.IsTop() && a.Size.IsTop() }
func (a *SingleItemArray) SetBottom()     { a.Summary.SetBottom(); a.Size.SetBottom() }
func (a *SingleItemArray) SetTop()        { a.Summary.SetTop(); a.Size.SetTop() }

func (a *SingleItemArray) Clone() domain.Domain {
	return &SingleItemArray{Base: a.Base, Summary: a.Summary.Clone(), Size: a.Size.Clone()}
}

func (a *SingleItemArray) Equal(other domain.Domain) bool {
	o, ok := other.(*SingleItemArray)
	return ok && a.Summary.Equal(o.Summary) && a.Size.Equal(o.Size)
}

func (a *SingleItemArray) Accuracy() float64 {
	return (a.Summary.Accuracy() + a.Size.Accuracy()) / 2
}

func (a *SingleItemArray) String() string {
	var sb strings.Builder
	sb.WriteString("array (single item)\n  size:\n")
	for _, line := range strings.Split(strings.TrimRight(a.Size.String(), "\n"), "\n") {
		sb.WriteString("    ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString("  value:\n")
	for _, line := range strings.Split(strings.TrimRight(a.Summary.String(), "\n"), "\n") {
		sb.WriteString("    ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func asSingleItemArray(d domain.Domain, op string) (*SingleItemArray, error) {
	sa, ok := d.(*SingleItemArray)
	if !ok {
		return nil, canalerr.New(canalerr.UnsupportedType, op, "operand is not a single-item array")
	}
	return sa, nil
}

func (a *SingleItemArray) Join(x, y domain.Domain) error {
	xa, err := asSingleItemArray(x, "join")
	if err != nil {
		return err
	}
	ya, err := asSingleItemArray(y, "join")
	if err != nil {
		return err
	}
	if err := a.Summary.Join(xa.Summary, ya.Summary); err != nil {
		return err
	}
	return a.Size.Join(xa.Size, ya.Size)
}

// checkOffset asserts offset lies within size, per the source's
// assertOffsetFitsToArray: both must resolve to known bounds.
func (a *SingleItemArray) checkOffset(offset domain.Domain) {
	ob, ok := offset.(domain.Bounder)
	canalerr.Assertf(ok, "SingleItemArray.checkOffset", "offset must support bounds extraction")
	offLo, _, okOff := ob.UnsignedBounds()
	canalerr.Assertf(okOff, "SingleItemArray.checkOffset", "offset must be a known value")
	sb, ok := a.Size.(domain.Bounder)
	canalerr.Assertf(ok, "SingleItemArray.checkOffset", "size must support bounds extraction")
	_, sizeHi, okSize := sb.UnsignedBounds()
	canalerr.Assertf(okSize, "SingleItemArray.checkOffset", "size must be a known value")
	canalerr.Assertf(offLo < sizeHi, "SingleItemArray.checkOffset", "offset out of bounds")
}

// Get reads the summary element, after checking the offset against
// the size.
func (a *SingleItemArray) Get(offset domain.Domain) domain.Domain {
	a.checkOffset(offset)
	return a.Summary
}

// Set joins value into the summary element (every write is weak,
// since any concrete element may be the one referenced).
func (a *SingleItemArray) Set(offset domain.Domain, value domain.Domain) error {
	a.checkOffset(offset)
	joined := a.Summary.Clone()
	if err := joined.Join(a.Summary, value); err != nil {
		return err
	}
	a.Summary = joined
	return nil
}

func (a *SingleItemArray) SetZero(place ir.ValueID) error {
	return a.Summary.SetZero(place)
}
