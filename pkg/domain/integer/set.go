// Package integer implements the three complementary integer abstract
// domains from §4.2-§4.4: a finite enumerated Set, a dual
// signed/unsigned Interval, and a per-bit four-valued Bits domain.
package integer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/domain/bitutil"
	"github.com/rainoftime/canal/pkg/domain/product"
	"github.com/rainoftime/canal/pkg/ir"
)

// DefaultThreshold is the Set cardinality above which it collapses to
// top, matching config.Default().SetThreshold.
const DefaultThreshold = 40

// Set is a finite collection of w-bit concrete values, ordered by
// unsigned comparison, plus a distinguished top.
type Set struct {
	domain.Base
	Width     int
	Values    []uint64 // sorted, unique, unsigned order; empty+!Top == bottom
	Top       bool
	Threshold int
}

func newSet(w, threshold int) *Set {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	s := &Set{Width: w, Threshold: threshold}
	s.Typ = ir.IntType{Width: w}
	return s
}

// Bottom returns the empty Set (⊥) of width w.
func Bottom(w, threshold int) *Set { return newSet(w, threshold) }

// TopSet returns the top Set (⊤) of width w.
func TopSet(w, threshold int) *Set {
	s := newSet(w, threshold)
	s.Top = true
	return s
}

// Singleton returns the Set containing exactly v (truncated to w
// bits).
func Singleton(w int, v uint64, threshold int) *Set {
	s := newSet(w, threshold)
	s.Values = []uint64{bitutil.Truncate(v, w)}
	return s
}

func (s *Set) IsBottom() bool { return !s.Top && len(s.Values) == 0 }
func (s *Set) IsTop() bool    { return s.Top }
func (s *Set) SetBottom()     { s.Top = false; s.Values = nil }
func (s *Set) SetTop()        { s.Top = true; s.Values = nil }

func (s *Set) Clone() domain.Domain {
	cp := newSet(s.Width, s.Threshold)
	cp.Top = s.Top
	if len(s.Values) > 0 {
		cp.Values = append([]uint64(nil), s.Values...)
	}
	return cp
}

func (s *Set) Equal(other domain.Domain) bool {
	o, ok := other.(*Set)
	if !ok || o.Width != s.Width {
		return false
	}
	if s.Top || o.Top {
		return s.Top && o.Top
	}
	if len(s.Values) != len(o.Values) {
		return false
	}
	for i := range s.Values {
		if s.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

func (s *Set) Accuracy() float64 {
	if s.Top {
		return 0
	}
	if len(s.Values) == 0 {
		return 1 // bottom: vacuously exact, no reachable value
	}
	if len(s.Values) == 1 {
		return 1
	}
	return 1 / float64(len(s.Values))
}

func (s *Set) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "integerSet i%d\n", s.Width)
	switch {
	case s.Top:
		b.WriteString("  top\n")
	case s.IsBottom():
		b.WriteString("  bottom\n")
	default:
		parts := make([]string, len(s.Values))
		for i, v := range s.Values {
			parts[i] = fmt.Sprintf("0x%x", v)
		}
		fmt.Fprintf(&b, "  {%s}\n", strings.Join(parts, ", "))
	}
	return b.String()
}

func (s *Set) insert(v uint64) {
	v = bitutil.Truncate(v, s.Width)
	i := sort.Search(len(s.Values), func(i int) bool { return s.Values[i] >= v })
	if i < len(s.Values) && s.Values[i] == v {
		return
	}
	s.Values = append(s.Values, 0)
	copy(s.Values[i+1:], s.Values[i:])
	s.Values[i] = v
}

func (s *Set) collapseIfOversized() {
	if len(s.Values) > s.Threshold {
		s.SetTop()
	}
}

func asSet(d domain.Domain, op string) (*Set, error) {
	s, ok := d.(*Set)
	if !ok {
		return nil, canalerr.New(canalerr.UnsupportedType, op, "operand is not an integer Set")
	}
	return s, nil
}

// Join writes the union of a and b into the receiver, collapsing to
// top past Threshold.
func (s *Set) Join(a, b domain.Domain) error {
	as, err := asSet(a, "join")
	if err != nil {
		return err
	}
	bs, err := asSet(b, "join")
	if err != nil {
		return err
	}
	if as.Top || bs.Top {
		s.SetTop()
		return nil
	}
	merged := append(append([]uint64(nil), as.Values...), bs.Values...)
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	merged = dedup(merged)
	s.Values = merged
	s.Top = false
	s.collapseIfOversized()
	return nil
}

// Meet writes the intersection of a and b into the receiver.
func (s *Set) Meet(a, b domain.Domain) error {
	as, err := asSet(a, "meet")
	if err != nil {
		return err
	}
	bs, err := asSet(b, "meet")
	if err != nil {
		return err
	}
	if as.Top {
		s.Top = bs.Top
		s.Values = append([]uint64(nil), bs.Values...)
		return nil
	}
	if bs.Top {
		s.Top = false
		s.Values = append([]uint64(nil), as.Values...)
		return nil
	}
	bset := make(map[uint64]bool, len(bs.Values))
	for _, v := range bs.Values {
		bset[v] = true
	}
	var out []uint64
	for _, v := range as.Values {
		if bset[v] {
			out = append(out, v)
		}
	}
	s.Top = false
	s.Values = out
	return nil
}

func dedup(sorted []uint64) []uint64 {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// binOp applies f pointwise across the Cartesian product of as x bs,
// collapsing to top on overflow, on either operand being top, or on
// the threshold being exceeded.
func (s *Set) binOp(a, b domain.Domain, op string, overflows func(x, y uint64) bool, f func(x, y uint64) uint64) error {
	as, err := asSet(a, op)
	if err != nil {
		return err
	}
	bs, err := asSet(b, op)
	if err != nil {
		return err
	}
	if as.Top || bs.Top {
		s.SetTop()
		return nil
	}
	if as.IsBottom() || bs.IsBottom() {
		s.SetBottom()
		return nil
	}
	var out []uint64
	for _, x := range as.Values {
		for _, y := range bs.Values {
			if overflows != nil && overflows(x, y) {
				s.SetTop()
				return nil
			}
			out = append(out, bitutil.Truncate(f(x, y), s.Width))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	out = dedup(out)
	s.Top = false
	s.Values = out
	s.collapseIfOversized()
	return nil
}

func (s *Set) Add(a, b domain.Domain) error {
	return s.binOp(a, b, "add", func(x, y uint64) bool { return bitutil.AddOverflowsUnsigned(x, y, s.Width) },
		func(x, y uint64) uint64 { return x + y })
}

func (s *Set) Sub(a, b domain.Domain) error {
	return s.binOp(a, b, "sub", nil, func(x, y uint64) uint64 { return x - y })
}

func (s *Set) Mul(a, b domain.Domain) error {
	return s.binOp(a, b, "mul", func(x, y uint64) bool { return bitutil.MulOverflowsUnsigned(x, y, s.Width) },
		func(x, y uint64) uint64 { return x * y })
}

// divOp applies a division-like op, skipping zero divisors; if the
// only divisor present is zero, the result is top.
func (s *Set) divOp(a, b domain.Domain, op string, f func(x, y uint64) uint64) error {
	as, err := asSet(a, op)
	if err != nil {
		return err
	}
	bs, err := asSet(b, op)
	if err != nil {
		return err
	}
	if as.Top || bs.Top {
		s.SetTop()
		return nil
	}
	var out []uint64
	sawNonZero := false
	for _, y := range bs.Values {
		if y == 0 {
			continue
		}
		sawNonZero = true
		for _, x := range as.Values {
			out = append(out, bitutil.Truncate(f(x, y), s.Width))
		}
	}
	if !sawNonZero {
		s.SetTop()
		return nil
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	out = dedup(out)
	s.Top = false
	s.Values = out
	s.collapseIfOversized()
	return nil
}

func (s *Set) UDiv(a, b domain.Domain) error {
	return s.divOp(a, b, "udiv", func(x, y uint64) uint64 { return x / y })
}

func (s *Set) SDiv(a, b domain.Domain) error {
	w := s.Width
	return s.divOp(a, b, "sdiv", func(x, y uint64) uint64 {
		return uint64(bitutil.SignExtend(x, w) / bitutil.SignExtend(y, w))
	})
}

func (s *Set) URem(a, b domain.Domain) error {
	return s.divOp(a, b, "urem", func(x, y uint64) uint64 { return x % y })
}

func (s *Set) SRem(a, b domain.Domain) error {
	w := s.Width
	return s.divOp(a, b, "srem", func(x, y uint64) uint64 {
		return uint64(bitutil.SignExtend(x, w) % bitutil.SignExtend(y, w))
	})
}

func (s *Set) Shl(a, b domain.Domain) error {
	return s.binOp(a, b, "shl", func(x, y uint64) bool { return y >= uint64(s.Width) },
		func(x, y uint64) uint64 { return x << uint(y) })
}

func (s *Set) LShr(a, b domain.Domain) error {
	return s.binOp(a, b, "lshr", func(x, y uint64) bool { return y >= uint64(s.Width) },
		func(x, y uint64) uint64 { return x >> uint(y) })
}

func (s *Set) AShr(a, b domain.Domain) error {
	w := s.Width
	return s.binOp(a, b, "ashr", func(x, y uint64) bool { return y >= uint64(w) },
		func(x, y uint64) uint64 { return uint64(bitutil.SignExtend(x, w) >> uint(y)) })
}

func (s *Set) And(a, b domain.Domain) error {
	return s.binOp(a, b, "and", nil, func(x, y uint64) uint64 { return x & y })
}

func (s *Set) Or(a, b domain.Domain) error {
	return s.binOp(a, b, "or", nil, func(x, y uint64) uint64 { return x | y })
}

func (s *Set) Xor(a, b domain.Domain) error {
	return s.binOp(a, b, "xor", nil, func(x, y uint64) uint64 { return x ^ y })
}

// boolSet builds the 1-bit result Set for a comparison: true,
// false, both (=top at width 1), or bottom.
func boolSet(threshold int, vals ...uint64) *Set {
	s := newSet(1, threshold)
	for _, v := range vals {
		s.insert(v)
	}
	return s
}

func (s *Set) ICmp(pred ir.Predicate, a, b domain.Domain) error {
	as, err := asSet(a, "icmp")
	if err != nil {
		return err
	}
	bs, err := asSet(b, "icmp")
	if err != nil {
		return err
	}
	if as.Top || bs.Top {
		*s = *boolSet(s.Threshold, 0, 1)
		return nil
	}
	if as.IsBottom() || bs.IsBottom() {
		s.SetBottom()
		s.Width = 1
		return nil
	}
	w := as.Width
	aMin, aMax := as.Values[0], as.Values[len(as.Values)-1]
	bMin, bMax := bs.Values[0], bs.Values[len(bs.Values)-1]

	switch pred {
	case ir.PredEQ:
		if len(as.Values) == 1 && len(bs.Values) == 1 {
			*s = *boolSet(s.Threshold, b2u(as.Values[0] == bs.Values[0]))
			return nil
		}
		if !overlap(as.Values, bs.Values) {
			*s = *boolSet(s.Threshold, 0)
			return nil
		}
		*s = *boolSet(s.Threshold, 0, 1)
		return nil
	case ir.PredNE:
		if !overlap(as.Values, bs.Values) {
			*s = *boolSet(s.Threshold, 1)
			return nil
		}
		if len(as.Values) == 1 && len(bs.Values) == 1 {
			*s = *boolSet(s.Threshold, b2u(as.Values[0] != bs.Values[0]))
			return nil
		}
		*s = *boolSet(s.Threshold, 0, 1)
		return nil
	case ir.PredULT:
		return s.rangeCmp(aMax < bMin, aMin >= bMax)
	case ir.PredULE:
		return s.rangeCmp(aMax <= bMin, aMin > bMax)
	case ir.PredUGT:
		return s.rangeCmp(aMin > bMax, aMax <= bMin)
	case ir.PredUGE:
		return s.rangeCmp(aMin >= bMax, aMax < bMin)
	case ir.PredSLT:
		sMin, sMax := bitutil.SignExtend(aMinSigned(as), w), bitutil.SignExtend(aMaxSigned(as), w)
		tMin, tMax := bitutil.SignExtend(aMinSigned(bs), w), bitutil.SignExtend(aMaxSigned(bs), w)
		return s.rangeCmp(sMax < tMin, sMin >= tMax)
	case ir.PredSLE:
		sMin, sMax := bitutil.SignExtend(aMinSigned(as), w), bitutil.SignExtend(aMaxSigned(as), w)
		tMin, tMax := bitutil.SignExtend(aMinSigned(bs), w), bitutil.SignExtend(aMaxSigned(bs), w)
		return s.rangeCmp(sMax <= tMin, sMin > tMax)
	case ir.PredSGT:
		sMin, sMax := bitutil.SignExtend(aMinSigned(as), w), bitutil.SignExtend(aMaxSigned(as), w)
		tMin, tMax := bitutil.SignExtend(aMinSigned(bs), w), bitutil.SignExtend(aMaxSigned(bs), w)
		return s.rangeCmp(sMin > tMax, sMax <= tMin)
	case ir.PredSGE:
		sMin, sMax := bitutil.SignExtend(aMinSigned(as), w), bitutil.SignExtend(aMaxSigned(as), w)
		tMin, tMax := bitutil.SignExtend(aMinSigned(bs), w), bitutil.SignExtend(aMaxSigned(bs), w)
		return s.rangeCmp(sMin >= tMax, sMax < tMin)
	default:
		return canalerr.UnsupportedOp("icmp", pred.String())
	}
}

// rangeCmp sets the receiver to {1} if mustTrue, {0} if mustFalse,
// else top (both).
func (s *Set) rangeCmp(mustTrue, mustFalse bool) error {
	switch {
	case mustTrue:
		*s = *boolSet(s.Threshold, 1)
	case mustFalse:
		*s = *boolSet(s.Threshold, 0)
	default:
		*s = *boolSet(s.Threshold, 0, 1)
	}
	return nil
}

// aMinSigned/aMaxSigned pick the signed-order min/max from a sorted
// (unsigned-order) value list by a linear scan that compares the
// sign-extended values, per §4.2.
func aMinSigned(s *Set) uint64 {
	w := s.Width
	best := s.Values[0]
	for _, v := range s.Values {
		if bitutil.SignExtend(v, w) < bitutil.SignExtend(best, w) {
			best = v
		}
	}
	return best
}

func aMaxSigned(s *Set) uint64 {
	w := s.Width
	best := s.Values[0]
	for _, v := range s.Values {
		if bitutil.SignExtend(v, w) > bitutil.SignExtend(best, w) {
			best = v
		}
	}
	return best
}

func overlap(a, b []uint64) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}

func b2u(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// FCmp delegates to the float operand's Compare, per §4.2.
func (s *Set) FCmp(pred ir.Predicate, a, b domain.Domain) error {
	fc, ok := a.(domain.FloatComparer)
	if !ok {
		return canalerr.New(canalerr.UnsupportedType, "fcmp", "operand is not a float interval")
	}
	res, err := fc.Compare(pred, b)
	if err != nil {
		return err
	}
	switch res {
	case domain.CompareMustTrue:
		*s = *boolSet(s.Threshold, 1)
	case domain.CompareMustFalse:
		*s = *boolSet(s.Threshold, 0)
	case domain.CompareUnordered:
		s.SetBottom()
		s.Width = 1
	default:
		*s = *boolSet(s.Threshold, 0, 1)
	}
	return nil
}

func (s *Set) castPointwise(a domain.Domain, op string, f func(uint64) uint64) error {
	as, err := asSet(a, op)
	if err != nil {
		return err
	}
	if as.Top {
		s.SetTop()
		return nil
	}
	var out []uint64
	for _, v := range as.Values {
		out = append(out, bitutil.Truncate(f(v), s.Width))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	s.Top = false
	s.Values = dedup(out)
	s.collapseIfOversized()
	return nil
}

func (s *Set) Trunc(a domain.Domain) error {
	return s.castPointwise(a, "trunc", func(v uint64) uint64 { return v })
}

func (s *Set) ZExt(a domain.Domain) error {
	return s.castPointwise(a, "zext", func(v uint64) uint64 { return v })
}

func (s *Set) SExt(a domain.Domain) error {
	as, err := asSet(a, "sext")
	if err != nil {
		return err
	}
	srcW := as.Width
	return s.castPointwise(a, "sext", func(v uint64) uint64 { return uint64(bitutil.SignExtend(v, srcW)) })
}

// FPToUI/FPToSI go via the interval domain per §4.2; the Set domain
// cannot enumerate a float interval's concretization, so it always
// widens to top.
func (s *Set) FPToUI(a domain.Domain) error { s.SetTop(); return nil }
func (s *Set) FPToSI(a domain.Domain) error { s.SetTop(); return nil }

func (s *Set) SetZero(place ir.ValueID) error {
	s.Top = false
	s.Values = []uint64{0}
	return nil
}

// UnsignedBounds implements domain.Bounder.
func (s *Set) UnsignedBounds() (lo, hi uint64, ok bool) {
	if s.Top || len(s.Values) == 0 {
		return 0, 0, false
	}
	return s.Values[0], s.Values[len(s.Values)-1], true
}

// Extract reports the signed and unsigned min/max of the enumerated
// values, for the product reduction of §4.8.
func (s *Set) Extract() product.Message {
	if s.IsTop() {
		return product.Message{Width: s.Width}
	}
	if s.IsBottom() {
		msg := product.Message{Width: s.Width}
		msg.SignedEmpty, msg.UnsignedEmpty = true, true
		return msg
	}
	return product.Message{
		Width:        s.Width,
		UnsignedFrom: s.Values[0],
		UnsignedTo:   s.Values[len(s.Values)-1],
		SignedFrom:   aMinSigned(s),
		SignedTo:     aMaxSigned(s),
	}
}

// Refine drops every enumerated value outside the message's
// intersected signed/unsigned bounds. If the message leaves the Set
// with nothing, it becomes bottom; an already-top Set ignores
// refinement (it has nothing left to enumerate).
func (s *Set) Refine(msg product.Message) error {
	if s.IsTop() || s.IsBottom() {
		return nil
	}
	if msg.SignedEmpty || msg.UnsignedEmpty {
		s.SetBottom()
		return nil
	}
	kept := s.Values[:0:0]
	for _, v := range s.Values {
		if bitutil.LessUnsigned(v, msg.UnsignedFrom, s.Width) || bitutil.LessUnsigned(msg.UnsignedTo, v, s.Width) {
			continue
		}
		if bitutil.LessSigned(v, msg.SignedFrom, s.Width) || bitutil.LessSigned(msg.SignedTo, v, s.Width) {
			continue
		}
		kept = append(kept, v)
	}
	s.Values = kept
	return nil
}
