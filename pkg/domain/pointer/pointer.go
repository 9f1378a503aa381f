// Package pointer implements the Pointer domain of §4.6: a map from a
// stable "place" handle to a merged Target description, grounded on
// original_source/lib/Pointer.cpp and the handle-ID redesign of
// REDESIGN FLAGS §9 (ir.ValueID keys instead of raw llvm::Value*).
package pointer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/ir"
)

// Tag classifies what a Target refers to.
type Tag int

const (
	TagUninitialized Tag = iota
	TagConstant
	TagBlock
	TagFunction
)

func (t Tag) String() string {
	switch t {
	case TagUninitialized:
		return "uninitialized"
	case TagConstant:
		return "constant"
	case TagBlock:
		return "block"
	case TagFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Target is one possible referent of a pointer value: an allocation
// site (Block/Function, identified by its ir.ValueID) or a Constant,
// reached through a chain of element offsets plus an optional
// trailing byte offset.
type Target struct {
	Tag            Tag
	Referent       ir.ValueID
	Constant       domain.Domain
	ElementOffsets []domain.Domain
	NumericOffset  domain.Domain
}

func (t *Target) clone() *Target {
	cp := &Target{Tag: t.Tag, Referent: t.Referent}
	if t.Constant != nil {
		cp.Constant = t.Constant.Clone()
	}
	if t.NumericOffset != nil {
		cp.NumericOffset = t.NumericOffset.Clone()
	}
	for _, o := range t.ElementOffsets {
		cp.ElementOffsets = append(cp.ElementOffsets, o.Clone())
	}
	return cp
}

func (t *Target) equal(o *Target) bool {
	if t.Tag != o.Tag {
		return false
	}
	switch t.Tag {
	case TagUninitialized:
		return true
	case TagConstant:
		if t.Constant == nil || o.Constant == nil {
			return t.Constant == o.Constant
		}
		return t.Constant.Equal(o.Constant)
	case TagBlock, TagFunction:
		if t.Referent != o.Referent || len(t.ElementOffsets) != len(o.ElementOffsets) {
			return false
		}
		for i, off := range t.ElementOffsets {
			if !off.Equal(o.ElementOffsets[i]) {
				return false
			}
		}
		if (t.NumericOffset == nil) != (o.NumericOffset == nil) {
			return false
		}
		if t.NumericOffset != nil && !t.NumericOffset.Equal(o.NumericOffset) {
			return false
		}
		return true
	}
	return false
}

// merge folds other into t in place, per §4.6's per-tag merge rule.
// Uninitialized is idempotent; Constant requires an equal constant;
// Block/Function requires an equal referent and joins offsets
// element-wise. A mismatch the rule does not cover (different tags,
// different referents, different-length offset chains) is
// NotImplemented rather than silently imprecise.
func (t *Target) merge(other *Target) error {
	if t.Tag != other.Tag {
		return canalerr.TODO("pointer-merge", "cannot merge targets of different tags")
	}
	switch t.Tag {
	case TagUninitialized:
		return nil
	case TagConstant:
		if t.Constant != nil && other.Constant != nil && !t.Constant.Equal(other.Constant) {
			return canalerr.TODO("pointer-merge", "cannot merge distinct constant targets")
		}
		if t.Constant == nil {
			t.Constant = other.Constant
		}
		return nil
	case TagBlock, TagFunction:
		if t.Referent != other.Referent {
			return canalerr.TODO("pointer-merge", "cannot merge targets with different referents")
		}
		if len(t.ElementOffsets) != len(other.ElementOffsets) {
			return canalerr.TODO("pointer-merge", "cannot merge targets with different offset depths")
		}
		for i := range t.ElementOffsets {
			joined := t.ElementOffsets[i].Clone()
			if err := joined.Join(t.ElementOffsets[i], other.ElementOffsets[i]); err != nil {
				return err
			}
			t.ElementOffsets[i] = joined
		}
		switch {
		case t.NumericOffset == nil:
			t.NumericOffset = other.NumericOffset
		case other.NumericOffset != nil:
			joined := t.NumericOffset.Clone()
			if err := joined.Join(t.NumericOffset, other.NumericOffset); err != nil {
				return err
			}
			t.NumericOffset = joined
		}
		return nil
	}
	return nil
}

// Pointer is a map from place to merged Target, plus the pointee
// type. Top is represented by the explicit AnyTarget sentinel rather
// than by a targets map standing for "could point anywhere" — an
// empty non-top map means bottom.
type Pointer struct {
	domain.Base
	Elem      ir.Type
	Targets   map[ir.ValueID]*Target
	AnyTarget bool
}

// New returns the bottom pointer (no targets) over elem.
func New(elem ir.Type) *Pointer {
	p := &Pointer{Elem: elem, Targets: map[ir.ValueID]*Target{}}
	p.Typ = ir.PointerType{Elem: elem}
	return p
}

// Top returns the any-target pointer over elem.
func Top(elem ir.Type) *Pointer {
	p := New(elem)
	p.AnyTarget = true
	return p
}

func (p *Pointer) IsBottom() bool { return !p.AnyTarget && len(p.Targets) == 0 }
func (p *Pointer) IsTop() bool    { return p.AnyTarget }
func (p *Pointer) SetBottom()     { p.AnyTarget = false; p.Targets = map[ir.ValueID]*Target{} }
func (p *Pointer) SetTop()        { p.AnyTarget = true; p.Targets = map[ir.ValueID]*Target{} }

func (p *Pointer) Clone() domain.Domain {
	cp := &Pointer{Base: p.Base, Elem: p.Elem, AnyTarget: p.AnyTarget, Targets: map[ir.ValueID]*Target{}}
	for k, v := range p.Targets {
		cp.Targets[k] = v.clone()
	}
	return cp
}

func (p *Pointer) Equal(other domain.Domain) bool {
	o, ok := other.(*Pointer)
	if !ok || !p.Elem.Equal(o.Elem) {
		return false
	}
	if p.IsTop() || o.IsTop() {
		return p.IsTop() && o.IsTop()
	}
	if len(p.Targets) != len(o.Targets) {
		return false
	}
	for place, t := range p.Targets {
		ot, ok := o.Targets[place]
		if !ok || !t.equal(ot) {
			return false
		}
	}
	return true
}

func (p *Pointer) Accuracy() float64 {
	if p.IsTop() {
		return 0
	}
	if len(p.Targets) == 1 {
		return 1
	}
	return 0.5
}

func (p *Pointer) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("pointer\n    type %s\n", p.Typ))
	if p.AnyTarget {
		sb.WriteString("    any target\n")
		return sb.String()
	}
	places := make([]ir.ValueID, 0, len(p.Targets))
	for place := range p.Targets {
		places = append(places, place)
	}
	sort.Slice(places, func(i, j int) bool { return places[i] < places[j] })
	for _, place := range places {
		t := p.Targets[place]
		sb.WriteString(fmt.Sprintf("    place %d: %s referent %d offsets %d\n", place, t.Tag, t.Referent, len(t.ElementOffsets)))
	}
	return sb.String()
}

// AddTarget inserts a new target at place, merging with any target
// already recorded there.
func (p *Pointer) AddTarget(place ir.ValueID, tag Tag, referent ir.ValueID, constant domain.Domain, elementOffsets []domain.Domain, numericOffset domain.Domain) error {
	if p.AnyTarget {
		return nil
	}
	newTarget := &Target{Tag: tag, Referent: referent, Constant: constant, ElementOffsets: elementOffsets, NumericOffset: numericOffset}
	if existing, ok := p.Targets[place]; ok {
		return existing.merge(newTarget)
	}
	p.Targets[place] = newTarget
	return nil
}

func asPointer(d domain.Domain, op string) (*Pointer, error) {
	p, ok := d.(*Pointer)
	if !ok {
		return nil, canalerr.New(canalerr.UnsupportedType, op, "operand is not a pointer")
	}
	return p, nil
}

// Join unions the target maps, merging targets that share a place.
func (p *Pointer) Join(a, b domain.Domain) error {
	as, err := asPointer(a, "join")
	if err != nil {
		return err
	}
	bs, err := asPointer(b, "join")
	if err != nil {
		return err
	}
	if as.AnyTarget || bs.AnyTarget {
		p.SetTop()
		return nil
	}
	p.Targets = map[ir.ValueID]*Target{}
	p.AnyTarget = false
	for place, t := range as.Targets {
		p.Targets[place] = t.clone()
	}
	for place, t := range bs.Targets {
		if existing, ok := p.Targets[place]; ok {
			if err := existing.merge(t); err != nil {
				return err
			}
		} else {
			p.Targets[place] = t.clone()
		}
	}
	return nil
}

// GetElementPtr returns a new pointer over newType, with offsets
// appended to every target: the first new offset is added into the
// existing last offset (flattening sequential indexing), the rest
// pushed as new entries. Offsets must all be 64-bit integers.
func (p *Pointer) GetElementPtr(offsets []domain.Domain, newType ir.Type) (*Pointer, error) {
	if len(offsets) == 0 {
		return nil, canalerr.New(canalerr.UnsupportedType, "getelementptr", "requires at least one offset")
	}
	for _, o := range offsets {
		it, ok := o.Type().(ir.IntType)
		canalerr.Assertf(ok && it.Width == 64, "Pointer.GetElementPtr", "offsets must be 64-bit integers")
	}
	result := p.Clone().(*Pointer)
	result.Elem = newType
	result.Typ = ir.PointerType{Elem: newType}
	for _, t := range result.Targets {
		for i, off := range offsets {
			if i == 0 && len(t.ElementOffsets) > 0 {
				last := t.ElementOffsets[len(t.ElementOffsets)-1]
				added := last.Clone()
				if err := added.Add(last, off); err != nil {
					return nil, err
				}
				t.ElementOffsets[len(t.ElementOffsets)-1] = added
				continue
			}
			t.ElementOffsets = append(t.ElementOffsets, off.Clone())
		}
	}
	return result, nil
}

// BitCast reinterprets the pointer as pointing to newType; targets
// are left untouched.
func (p *Pointer) BitCast(newType ir.Type) *Pointer {
	result := p.Clone().(*Pointer)
	result.Elem = newType
	result.Typ = ir.PointerType{Elem: newType}
	return result
}

// Block is the narrow surface the pointer domain needs from a memory
// block, kept local to avoid an import cycle with pkg/state (which
// stores Domains that may themselves be pointers).
type Block interface {
	Load(offsets []domain.Domain, width int) (domain.Domain, error)
	Store(value domain.Domain, offsets []domain.Domain, strong bool) (Block, error)
}

// BlockStore is the narrow surface the pointer domain needs from the
// enclosing per-function/global state.
type BlockStore interface {
	FindBlock(referent ir.ValueID) (Block, bool)
	IsGlobalBlock(referent ir.ValueID) bool
	SetBlock(referent ir.ValueID, blk Block, global bool)
}

// Load joins the dereferenced value across every Block target. It
// returns ok=false when no live Block targets are found.
func (p *Pointer) Load(st BlockStore, width int) (domain.Domain, bool, error) {
	var merged domain.Domain
	for _, t := range p.Targets {
		if t.Tag != TagBlock {
			continue
		}
		blk, ok := st.FindBlock(t.Referent)
		if !ok {
			continue
		}
		v, err := blk.Load(t.ElementOffsets, width)
		if err != nil {
			return nil, false, err
		}
		if merged == nil {
			merged = v
			continue
		}
		joined := merged.Clone()
		if err := joined.Join(merged, v); err != nil {
			return nil, false, err
		}
		merged = joined
	}
	return merged, merged != nil, nil
}

// Store writes value into every Block target, strongly only when
// this pointer has exactly one target overall.
func (p *Pointer) Store(st BlockStore, value domain.Domain) error {
	strong := len(p.Targets) == 1
	for _, t := range p.Targets {
		if t.Tag != TagBlock {
			continue
		}
		blk, ok := st.FindBlock(t.Referent)
		if !ok {
			continue
		}
		updated, err := blk.Store(value, t.ElementOffsets, strong)
		if err != nil {
			return err
		}
		st.SetBlock(t.Referent, updated, st.IsGlobalBlock(t.Referent))
	}
	return nil
}

func (p *Pointer) SetZero(place ir.ValueID) error {
	p.AnyTarget = false
	p.Targets = map[ir.ValueID]*Target{place: {Tag: TagConstant}}
	return nil
}
