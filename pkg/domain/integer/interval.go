package integer

import (
	"fmt"
	"strings"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/domain/bitutil"
	"github.com/rainoftime/canal/pkg/domain/product"
	"github.com/rainoftime/canal/pkg/ir"
)

// half is one signed or unsigned endpoint pair. Bottom/Top are
// independent flags so the signed and unsigned halves can disagree
// (e.g. signed half top, unsigned half a tight range).
type half struct {
	Bottom, Top bool
	From, To    uint64
}

func (h half) isEmpty() bool { return h.Bottom }

// Interval tracks two parallel intervals — signed and unsigned — over
// the same w-bit value; a concrete value belongs to its
// concretization iff it lies in both (intersection semantics), per
// §3/§4.3.
type Interval struct {
	domain.Base
	Width   int
	Signed  half
	Unsigned half
}

func newInterval(w int) *Interval {
	iv := &Interval{Width: w}
	iv.Typ = ir.IntType{Width: w}
	return iv
}

// IntervalBottom returns ⊥: both halves empty.
func IntervalBottom(w int) *Interval {
	iv := newInterval(w)
	iv.Signed.Bottom = true
	iv.Unsigned.Bottom = true
	return iv
}

// IntervalTop returns ⊤: both halves the full range.
func IntervalTop(w int) *Interval {
	iv := newInterval(w)
	iv.Signed.Top = true
	iv.Unsigned.Top = true
	iv.Signed.From, iv.Signed.To = bitutil.SignedMin(w), bitutil.SignedMax(w)
	iv.Unsigned.From, iv.Unsigned.To = 0, bitutil.UnsignedMax(w)
	return iv
}

// IntervalConst returns the singleton interval {v}.
func IntervalConst(w int, v uint64) *Interval {
	iv := newInterval(w)
	v = bitutil.Truncate(v, w)
	iv.Signed.From, iv.Signed.To = v, v
	iv.Unsigned.From, iv.Unsigned.To = v, v
	return iv
}

func (iv *Interval) IsBottom() bool { return iv.Signed.Bottom || iv.Unsigned.Bottom }
func (iv *Interval) IsTop() bool    { return iv.Signed.Top && iv.Unsigned.Top }
func (iv *Interval) SetBottom() {
	iv.Signed = half{Bottom: true}
	iv.Unsigned = half{Bottom: true}
}
func (iv *Interval) SetTop() {
	*iv = *IntervalTop(iv.Width)
}

func (iv *Interval) Clone() domain.Domain {
	cp := *iv
	return &cp
}

func (iv *Interval) Equal(other domain.Domain) bool {
	o, ok := other.(*Interval)
	if !ok || o.Width != iv.Width {
		return false
	}
	if iv.IsTop() || o.IsTop() {
		return iv.IsTop() && o.IsTop()
	}
	return iv.Signed == o.Signed && iv.Unsigned == o.Unsigned
}

func (iv *Interval) Accuracy() float64 {
	if iv.IsTop() {
		return 0
	}
	if iv.IsBottom() {
		return 1
	}
	span := iv.Unsigned.To - iv.Unsigned.From + 1
	if span == 0 {
		return 0
	}
	return 1 / float64(span)
}

func (iv *Interval) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "interval i%d\n", iv.Width)
	if iv.IsBottom() {
		b.WriteString("  bottom\n")
		return b.String()
	}
	if iv.IsTop() {
		b.WriteString("  top\n")
		return b.String()
	}
	fmt.Fprintf(&b, "  signed [%d, %d]\n", int64(bitutil.SignExtend(iv.Signed.From, iv.Width)), int64(bitutil.SignExtend(iv.Signed.To, iv.Width)))
	fmt.Fprintf(&b, "  unsigned [%d, %d]\n", iv.Unsigned.From, iv.Unsigned.To)
	return b.String()
}

func asInterval(d domain.Domain, op string) (*Interval, error) {
	iv, ok := d.(*Interval)
	if !ok {
		return nil, canalerr.New(canalerr.UnsupportedType, op, "operand is not an Interval")
	}
	return iv, nil
}

func joinHalfUnsigned(a, b half) half {
	if a.Bottom {
		return b
	}
	if b.Bottom {
		return a
	}
	h := half{Top: a.Top || b.Top}
	h.From = minU(a.From, b.From)
	h.To = maxU(a.To, b.To)
	return h
}

func joinHalfSigned(a, b half, w int) half {
	if a.Bottom {
		return b
	}
	if b.Bottom {
		return a
	}
	h := half{Top: a.Top || b.Top}
	if bitutil.SignExtend(a.From, w) <= bitutil.SignExtend(b.From, w) {
		h.From = a.From
	} else {
		h.From = b.From
	}
	if bitutil.SignExtend(a.To, w) >= bitutil.SignExtend(b.To, w) {
		h.To = a.To
	} else {
		h.To = b.To
	}
	return h
}

func minU(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
func maxU(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// Join joins each half independently, per §3 ("the signed and
// unsigned halves evolve independently").
func (iv *Interval) Join(a, b domain.Domain) error {
	as, err := asInterval(a, "join")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "join")
	if err != nil {
		return err
	}
	iv.Unsigned = joinHalfUnsigned(as.Unsigned, bs.Unsigned)
	iv.Signed = joinHalfSigned(as.Signed, bs.Signed, iv.Width)
	return nil
}

// Meet meets each half independently; an empty result marks that
// half bottom.
func (iv *Interval) Meet(a, b domain.Domain) error {
	as, err := asInterval(a, "meet")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "meet")
	if err != nil {
		return err
	}
	if as.Unsigned.Bottom || bs.Unsigned.Bottom {
		iv.Unsigned = half{Bottom: true}
	} else {
		from := maxU(as.Unsigned.From, bs.Unsigned.From)
		to := minU(as.Unsigned.To, bs.Unsigned.To)
		if from > to {
			iv.Unsigned = half{Bottom: true}
		} else {
			iv.Unsigned = half{From: from, To: to}
		}
	}
	if as.Signed.Bottom || bs.Signed.Bottom {
		iv.Signed = half{Bottom: true}
	} else {
		w := iv.Width
		from := as.Signed.From
		if bitutil.SignExtend(bs.Signed.From, w) > bitutil.SignExtend(from, w) {
			from = bs.Signed.From
		}
		to := as.Signed.To
		if bitutil.SignExtend(bs.Signed.To, w) < bitutil.SignExtend(to, w) {
			to = bs.Signed.To
		}
		if bitutil.SignExtend(from, w) > bitutil.SignExtend(to, w) {
			iv.Signed = half{Bottom: true}
		} else {
			iv.Signed = half{From: from, To: to}
		}
	}
	return nil
}

// Widen implements domain.Widener: the classic interval widening
// operator, keep a stable endpoint else jump to the type's extreme.
// Used by pkg/interp once a block has been visited WideningThreshold
// times.
func (iv *Interval) Widen(prev domain.Domain) error {
	p, err := asInterval(prev, "widen")
	if err != nil {
		return err
	}
	iv.widenFrom(p)
	return nil
}

func (iv *Interval) widenFrom(prev *Interval) {
	if prev.Unsigned.Bottom {
		iv.Unsigned = prev.Unsigned
	} else if iv.Unsigned.Bottom {
		// nothing to widen from
	} else {
		if iv.Unsigned.From < prev.Unsigned.From {
			iv.Unsigned.From = 0
		} else {
			iv.Unsigned.From = prev.Unsigned.From
		}
		if iv.Unsigned.To > prev.Unsigned.To {
			iv.Unsigned.To = bitutil.UnsignedMax(iv.Width)
			iv.Unsigned.Top = true
		} else {
			iv.Unsigned.To = prev.Unsigned.To
		}
	}
	w := iv.Width
	if prev.Signed.Bottom {
		iv.Signed = prev.Signed
	} else if iv.Signed.Bottom {
		// nothing to widen from
	} else {
		if bitutil.SignExtend(iv.Signed.From, w) < bitutil.SignExtend(prev.Signed.From, w) {
			iv.Signed.From = bitutil.SignedMin(w)
		} else {
			iv.Signed.From = prev.Signed.From
		}
		if bitutil.SignExtend(iv.Signed.To, w) > bitutil.SignExtend(prev.Signed.To, w) {
			iv.Signed.To = bitutil.SignedMax(w)
			iv.Signed.Top = true
		} else {
			iv.Signed.To = prev.Signed.To
		}
	}
}

// addSub applies interval arithmetic for + or -, flipping the
// affected half to top on overflow.
func (iv *Interval) addSub(a, b domain.Domain, sub bool) error {
	op := "add"
	if sub {
		op = "sub"
	}
	as, err := asInterval(a, op)
	if err != nil {
		return err
	}
	bs, err := asInterval(b, op)
	if err != nil {
		return err
	}
	w := iv.Width
	if as.Unsigned.Bottom || bs.Unsigned.Bottom {
		iv.Unsigned = half{Bottom: true}
	} else {
		var lo, hi uint64
		var ovf bool
		if sub {
			ovf = bs.Unsigned.To > as.Unsigned.From // from-to may wrap
			lo = as.Unsigned.From - bs.Unsigned.To
			hi = as.Unsigned.To - bs.Unsigned.From
			ovf = ovf || bs.Unsigned.From > as.Unsigned.To
		} else {
			ovf = bitutil.AddOverflowsUnsigned(as.Unsigned.From, bs.Unsigned.From, w) ||
				bitutil.AddOverflowsUnsigned(as.Unsigned.To, bs.Unsigned.To, w)
			lo = as.Unsigned.From + bs.Unsigned.From
			hi = as.Unsigned.To + bs.Unsigned.To
		}
		if ovf {
			iv.Unsigned = half{Top: true, From: 0, To: bitutil.UnsignedMax(w)}
		} else {
			iv.Unsigned = half{From: bitutil.Truncate(lo, w), To: bitutil.Truncate(hi, w)}
		}
	}
	if as.Signed.Bottom || bs.Signed.Bottom {
		iv.Signed = half{Bottom: true}
	} else {
		sFrom, sTo := bitutil.SignExtend(as.Signed.From, w), bitutil.SignExtend(as.Signed.To, w)
		tFrom, tTo := bitutil.SignExtend(bs.Signed.From, w), bitutil.SignExtend(bs.Signed.To, w)
		var lo, hi int64
		var ovf bool
		if sub {
			lo, hi = sFrom-tTo, sTo-tFrom
			ovf = bitutil.SubOverflowsSigned(as.Signed.From, bs.Signed.To, w) || bitutil.SubOverflowsSigned(as.Signed.To, bs.Signed.From, w)
		} else {
			lo, hi = sFrom+tFrom, sTo+tTo
			ovf = bitutil.AddOverflowsSigned(as.Signed.From, bs.Signed.From, w) || bitutil.AddOverflowsSigned(as.Signed.To, bs.Signed.To, w)
		}
		if ovf {
			iv.Signed = half{Top: true, From: bitutil.SignedMin(w), To: bitutil.SignedMax(w)}
		} else {
			iv.Signed = half{From: uint64(lo) & bitutil.Mask(w), To: uint64(hi) & bitutil.Mask(w)}
		}
	}
	return nil
}

func (iv *Interval) Add(a, b domain.Domain) error { return iv.addSub(a, b, false) }
func (iv *Interval) Sub(a, b domain.Domain) error { return iv.addSub(a, b, true) }

func (iv *Interval) Mul(a, b domain.Domain) error {
	as, err := asInterval(a, "mul")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "mul")
	if err != nil {
		return err
	}
	w := iv.Width
	if as.Unsigned.Bottom || bs.Unsigned.Bottom {
		iv.Unsigned = half{Bottom: true}
	} else if bitutil.MulOverflowsUnsigned(as.Unsigned.From, bs.Unsigned.From, w) ||
		bitutil.MulOverflowsUnsigned(as.Unsigned.To, bs.Unsigned.To, w) {
		iv.Unsigned = half{Top: true, From: 0, To: bitutil.UnsignedMax(w)}
	} else {
		iv.Unsigned = half{From: as.Unsigned.From * bs.Unsigned.From, To: as.Unsigned.To * bs.Unsigned.To}
	}
	if as.Signed.Bottom || bs.Signed.Bottom {
		iv.Signed = half{Bottom: true}
	} else {
		candidates := []int64{
			bitutil.SignExtend(as.Signed.From, w) * bitutil.SignExtend(bs.Signed.From, w),
			bitutil.SignExtend(as.Signed.From, w) * bitutil.SignExtend(bs.Signed.To, w),
			bitutil.SignExtend(as.Signed.To, w) * bitutil.SignExtend(bs.Signed.From, w),
			bitutil.SignExtend(as.Signed.To, w) * bitutil.SignExtend(bs.Signed.To, w),
		}
		ovf := bitutil.MulOverflowsSigned(as.Signed.From, bs.Signed.From, w) ||
			bitutil.MulOverflowsSigned(as.Signed.From, bs.Signed.To, w) ||
			bitutil.MulOverflowsSigned(as.Signed.To, bs.Signed.From, w) ||
			bitutil.MulOverflowsSigned(as.Signed.To, bs.Signed.To, w)
		if ovf {
			iv.Signed = half{Top: true, From: bitutil.SignedMin(w), To: bitutil.SignedMax(w)}
		} else {
			lo, hi := candidates[0], candidates[0]
			for _, c := range candidates[1:] {
				if c < lo {
					lo = c
				}
				if c > hi {
					hi = c
				}
			}
			iv.Signed = half{From: uint64(lo) & bitutil.Mask(w), To: uint64(hi) & bitutil.Mask(w)}
		}
	}
	return nil
}

func (iv *Interval) UDiv(a, b domain.Domain) error {
	as, err := asInterval(a, "udiv")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "udiv")
	if err != nil {
		return err
	}
	if as.Unsigned.Bottom || bs.Unsigned.Bottom || bs.Unsigned.To == 0 {
		iv.Unsigned = half{Bottom: true}
		iv.Signed = half{Bottom: true}
		return nil
	}
	from := bs.Unsigned.From
	if from == 0 {
		from = 1
	}
	iv.Unsigned = half{From: as.Unsigned.From / bs.Unsigned.To, To: as.Unsigned.To / from}
	iv.Signed = iv.Unsigned
	return nil
}

func (iv *Interval) SDiv(a, b domain.Domain) error {
	as, err := asInterval(a, "sdiv")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "sdiv")
	if err != nil {
		return err
	}
	w := iv.Width
	if as.Signed.Bottom || bs.Signed.Bottom {
		iv.SetBottom()
		return nil
	}
	tFrom, tTo := bitutil.SignExtend(bs.Signed.From, w), bitutil.SignExtend(bs.Signed.To, w)
	if tFrom <= 0 && tTo >= 0 {
		// divisor range reaches zero: a divisor of exactly zero gives
		// bottom; otherwise zero is excluded and the nonzero values
		// nearest to it (-1 and/or 1) join the candidates below.
		if tFrom == 0 && tTo == 0 {
			iv.SetBottom()
			return nil
		}
	}
	sFrom, sTo := bitutil.SignExtend(as.Signed.From, w), bitutil.SignExtend(as.Signed.To, w)
	nz := func(v int64) int64 {
		if v == 0 {
			return 1
		}
		return v
	}
	candidates := []int64{sFrom / nz(tFrom), sFrom / nz(tTo), sTo / nz(tFrom), sTo / nz(tTo)}
	if tFrom < 0 && tTo >= 0 {
		candidates = append(candidates, -sFrom, -sTo)
	}
	if tFrom <= 0 && tTo > 0 {
		candidates = append(candidates, sFrom, sTo)
	}
	lo, hi := candidates[0], candidates[0]
	for _, c := range candidates[1:] {
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	iv.Signed = half{From: uint64(lo) & bitutil.Mask(w), To: uint64(hi) & bitutil.Mask(w)}
	iv.Unsigned = half{Top: true, From: 0, To: bitutil.UnsignedMax(w)}
	return nil
}

// URem and SRem implement the documented urem/srem policy (§4.3): if the
// divisor interval contains only values larger in magnitude than any
// dividend, the dividend passes through unchanged; otherwise the
// result is bounded by the divisor's magnitude.
func (iv *Interval) URem(a, b domain.Domain) error {
	as, err := asInterval(a, "urem")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "urem")
	if err != nil {
		return err
	}
	if as.Unsigned.Bottom || bs.Unsigned.Bottom {
		iv.SetBottom()
		return nil
	}
	if bs.Unsigned.From > as.Unsigned.To {
		iv.Unsigned = as.Unsigned
	} else {
		maxDivisor := bs.Unsigned.To
		if maxDivisor == 0 {
			iv.SetTop()
			return nil
		}
		iv.Unsigned = half{From: 0, To: maxDivisor - 1}
	}
	iv.Signed = iv.Unsigned
	return nil
}

func (iv *Interval) SRem(a, b domain.Domain) error {
	as, err := asInterval(a, "srem")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "srem")
	if err != nil {
		return err
	}
	w := iv.Width
	if as.Signed.Bottom || bs.Signed.Bottom {
		iv.SetBottom()
		return nil
	}
	sFrom, sTo := bitutil.SignExtend(as.Signed.From, w), bitutil.SignExtend(as.Signed.To, w)
	absMaxDivisor := absI64(bitutil.SignExtend(bs.Signed.From, w))
	if m := absI64(bitutil.SignExtend(bs.Signed.To, w)); m > absMaxDivisor {
		absMaxDivisor = m
	}
	tFrom, tTo := bitutil.SignExtend(bs.Signed.From, w), bitutil.SignExtend(bs.Signed.To, w)
	absMinDivisor := min(absI64(tFrom), absI64(tTo))
	if tFrom < 0 && tTo > 0 {
		absMinDivisor = 0
	}
	absMaxDividend := max(absI64(sFrom), absI64(sTo))
	if absMinDivisor > absMaxDividend && sFrom >= 0 == (sTo >= 0) {
		// dividend magnitude strictly smaller than any divisor magnitude
		iv.Signed = as.Signed
		iv.Unsigned = iv.Signed
		return nil
	}
	if absMaxDivisor == 0 {
		iv.SetTop()
		return nil
	}
	bound := absMaxDivisor - 1
	lo, hi := -bound, bound
	if sFrom >= 0 {
		lo = 0
	}
	if sTo < 0 {
		hi = 0
	}
	iv.Signed = half{From: uint64(lo) & bitutil.Mask(w), To: uint64(hi) & bitutil.Mask(w)}
	iv.Unsigned = half{Top: true, From: 0, To: bitutil.UnsignedMax(w)}
	return nil
}

func absI64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// constShiftAmount returns (amount, true) if b is a single-valued
// shift amount; shifts produce top on any non-constant amount.
func constShiftAmount(b *Interval) (uint64, bool) {
	if b.Unsigned.Bottom || b.Unsigned.From != b.Unsigned.To {
		return 0, false
	}
	return b.Unsigned.From, true
}

func (iv *Interval) Shl(a, b domain.Domain) error {
	as, err := asInterval(a, "shl")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "shl")
	if err != nil {
		return err
	}
	amt, ok := constShiftAmount(bs)
	if !ok || amt >= uint64(iv.Width) || as.IsBottom() {
		if as.IsBottom() {
			iv.SetBottom()
			return nil
		}
		iv.SetTop()
		return nil
	}
	w := iv.Width
	iv.Unsigned = half{From: bitutil.Truncate(as.Unsigned.From<<amt, w), To: bitutil.Truncate(as.Unsigned.To<<amt, w)}
	iv.Signed = half{From: bitutil.Truncate(as.Signed.From<<amt, w), To: bitutil.Truncate(as.Signed.To<<amt, w)}
	return nil
}

func (iv *Interval) LShr(a, b domain.Domain) error {
	as, err := asInterval(a, "lshr")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "lshr")
	if err != nil {
		return err
	}
	amt, ok := constShiftAmount(bs)
	if !ok || as.IsBottom() {
		if as.IsBottom() {
			iv.SetBottom()
			return nil
		}
		iv.SetTop()
		return nil
	}
	iv.Unsigned = half{From: as.Unsigned.From >> amt, To: as.Unsigned.To >> amt}
	iv.Signed = iv.Unsigned
	return nil
}

func (iv *Interval) AShr(a, b domain.Domain) error {
	as, err := asInterval(a, "ashr")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "ashr")
	if err != nil {
		return err
	}
	amt, ok := constShiftAmount(bs)
	w := iv.Width
	if !ok || as.IsBottom() {
		if as.IsBottom() {
			iv.SetBottom()
			return nil
		}
		iv.SetTop()
		return nil
	}
	from := bitutil.SignExtend(as.Signed.From, w) >> amt
	to := bitutil.SignExtend(as.Signed.To, w) >> amt
	iv.Signed = half{From: uint64(from) & bitutil.Mask(w), To: uint64(to) & bitutil.Mask(w)}
	iv.Unsigned = half{Top: true, From: 0, To: bitutil.UnsignedMax(w)}
	return nil
}

// bitwiseConst returns (value, true) if iv is a single-valued
// constant.
func bitwiseConst(iv *Interval) (uint64, bool) {
	if iv.Unsigned.Bottom || iv.Unsigned.From != iv.Unsigned.To {
		return 0, false
	}
	return iv.Unsigned.From, true
}

// And/Or/Xor: top unless both sides are single constants, per §4.3.
func (iv *Interval) bitwise(a, b domain.Domain, op string, f func(x, y uint64) uint64) error {
	as, err := asInterval(a, op)
	if err != nil {
		return err
	}
	bs, err := asInterval(b, op)
	if err != nil {
		return err
	}
	if as.IsBottom() || bs.IsBottom() {
		iv.SetBottom()
		return nil
	}
	av, aok := bitwiseConst(as)
	bv, bok := bitwiseConst(bs)
	if !aok || !bok {
		iv.SetTop()
		return nil
	}
	*iv = *IntervalConst(iv.Width, f(av, bv))
	return nil
}

func (iv *Interval) And(a, b domain.Domain) error {
	return iv.bitwise(a, b, "and", func(x, y uint64) uint64 { return x & y })
}
func (iv *Interval) Or(a, b domain.Domain) error {
	return iv.bitwise(a, b, "or", func(x, y uint64) uint64 { return x | y })
}
func (iv *Interval) Xor(a, b domain.Domain) error {
	return iv.bitwise(a, b, "xor", func(x, y uint64) uint64 { return x ^ y })
}

// ICmp computes the same four-valued result as Set (§4.3), using
// endpoints instead of enumeration.
func (iv *Interval) ICmp(pred ir.Predicate, a, b domain.Domain) error {
	as, err := asInterval(a, "icmp")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "icmp")
	if err != nil {
		return err
	}
	if as.IsBottom() || bs.IsBottom() {
		*iv = *IntervalBottom(1)
		return nil
	}
	w := as.Width
	result := func(mustTrue, mustFalse bool) error {
		switch {
		case mustTrue:
			*iv = *IntervalConst(1, 1)
		case mustFalse:
			*iv = *IntervalConst(1, 0)
		default:
			*iv = *IntervalTop(1)
		}
		return nil
	}
	switch pred {
	case ir.PredEQ:
		eq := as.Unsigned.From == as.Unsigned.To && bs.Unsigned.From == bs.Unsigned.To && as.Unsigned.From == bs.Unsigned.From
		disjoint := as.Unsigned.To < bs.Unsigned.From || bs.Unsigned.To < as.Unsigned.From
		return result(eq, disjoint)
	case ir.PredNE:
		disjoint := as.Unsigned.To < bs.Unsigned.From || bs.Unsigned.To < as.Unsigned.From
		eq := as.Unsigned.From == as.Unsigned.To && bs.Unsigned.From == bs.Unsigned.To && as.Unsigned.From == bs.Unsigned.From
		return result(disjoint, eq)
	case ir.PredULT:
		return result(as.Unsigned.To < bs.Unsigned.From, as.Unsigned.From >= bs.Unsigned.To)
	case ir.PredULE:
		return result(as.Unsigned.To <= bs.Unsigned.From, as.Unsigned.From > bs.Unsigned.To)
	case ir.PredUGT:
		return result(as.Unsigned.From > bs.Unsigned.To, as.Unsigned.To <= bs.Unsigned.From)
	case ir.PredUGE:
		return result(as.Unsigned.From >= bs.Unsigned.To, as.Unsigned.To < bs.Unsigned.From)
	case ir.PredSLT, ir.PredSLE, ir.PredSGT, ir.PredSGE:
		sFrom, sTo := bitutil.SignExtend(as.Signed.From, w), bitutil.SignExtend(as.Signed.To, w)
		tFrom, tTo := bitutil.SignExtend(bs.Signed.From, w), bitutil.SignExtend(bs.Signed.To, w)
		switch pred {
		case ir.PredSLT:
			return result(sTo < tFrom, sFrom >= tTo)
		case ir.PredSLE:
			return result(sTo <= tFrom, sFrom > tTo)
		case ir.PredSGT:
			return result(sFrom > tTo, sTo <= tFrom)
		default: // PredSGE
			return result(sFrom >= tTo, sTo < tFrom)
		}
	default:
		return canalerr.UnsupportedOp("icmp", pred.String())
	}
}

func (iv *Interval) FCmp(pred ir.Predicate, a, b domain.Domain) error {
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
		*iv = *IntervalConst(1, 1)
	case domain.CompareMustFalse:
		*iv = *IntervalConst(1, 0)
	case domain.CompareUnordered:
		*iv = *IntervalBottom(1)
	default:
		*iv = *IntervalTop(1)
	}
	return nil
}

func (iv *Interval) castPointwise(a domain.Domain, op string) (*Interval, error) {
	return asInterval(a, op)
}

func (iv *Interval) Trunc(a domain.Domain) error {
	as, err := iv.castPointwise(a, "trunc")
	if err != nil {
		return err
	}
	if as.IsBottom() {
		iv.SetBottom()
		return nil
	}
	if as.IsTop() {
		iv.SetTop()
		return nil
	}
	w := iv.Width
	iv.Unsigned = half{From: bitutil.Truncate(as.Unsigned.From, w), To: bitutil.Truncate(as.Unsigned.To, w)}
	if as.Unsigned.To-as.Unsigned.From >= bitutil.Mask(w) || iv.Unsigned.From > iv.Unsigned.To {
		iv.SetTop()
		return nil
	}
	iv.Signed = half{From: iv.Unsigned.From, To: iv.Unsigned.To}
	return nil
}

func (iv *Interval) ZExt(a domain.Domain) error {
	as, err := iv.castPointwise(a, "zext")
	if err != nil {
		return err
	}
	if as.IsBottom() {
		iv.SetBottom()
		return nil
	}
	iv.Unsigned = half{From: as.Unsigned.From, To: as.Unsigned.To, Top: as.Unsigned.Top}
	iv.Signed = iv.Unsigned
	return nil
}

func (iv *Interval) SExt(a domain.Domain) error {
	as, err := iv.castPointwise(a, "sext")
	if err != nil {
		return err
	}
	if as.IsBottom() {
		iv.SetBottom()
		return nil
	}
	w := iv.Width
	from := bitutil.SignExtend(as.Signed.From, as.Width)
	to := bitutil.SignExtend(as.Signed.To, as.Width)
	iv.Signed = half{From: uint64(from) & bitutil.Mask(w), To: uint64(to) & bitutil.Mask(w)}
	iv.Unsigned = iv.Signed
	return nil
}

func (iv *Interval) FPToUI(a domain.Domain) error { iv.SetTop(); return nil }
func (iv *Interval) FPToSI(a domain.Domain) error { iv.SetTop(); return nil }

func (iv *Interval) SetZero(place ir.ValueID) error {
	*iv = *IntervalConst(iv.Width, 0)
	return nil
}

// UnsignedBounds implements domain.Bounder.
func (iv *Interval) UnsignedBounds() (lo, hi uint64, ok bool) {
	if iv.Unsigned.Top || iv.Unsigned.Bottom {
		return 0, 0, false
	}
	return iv.Unsigned.From, iv.Unsigned.To, true
}

// Extract reports this interval's own two halves directly: it is
// already exactly the shape a product.Message carries.
func (iv *Interval) Extract() product.Message {
	return product.Message{
		Width:         iv.Width,
		SignedEmpty:   iv.Signed.Bottom,
		SignedFrom:    iv.Signed.From,
		SignedTo:      iv.Signed.To,
		UnsignedEmpty: iv.Unsigned.Bottom,
		UnsignedFrom:  iv.Unsigned.From,
		UnsignedTo:    iv.Unsigned.To,
	}
}

// Refine meets both halves against the message's bounds; an already
// top half only tightens if the message is more precise, matching
// Meet's own narrowing rule.
func (iv *Interval) Refine(msg product.Message) error {
	if msg.SignedEmpty {
		iv.Signed = half{Bottom: true}
	} else if iv.Signed.Top || bitutil.LessSigned(iv.Signed.From, msg.SignedFrom, iv.Width) || bitutil.LessSigned(msg.SignedTo, iv.Signed.To, iv.Width) {
		from := msg.SignedFrom
		if !iv.Signed.Top && bitutil.LessSigned(from, iv.Signed.From, iv.Width) {
			from = iv.Signed.From
		}
		to := msg.SignedTo
		if !iv.Signed.Top && bitutil.LessSigned(iv.Signed.To, to, iv.Width) {
			to = iv.Signed.To
		}
		if bitutil.LessSigned(to, from, iv.Width) {
			iv.Signed = half{Bottom: true}
		} else {
			iv.Signed = half{From: from, To: to}
		}
	}
	if msg.UnsignedEmpty {
		iv.Unsigned = half{Bottom: true}
	} else if iv.Unsigned.Top || bitutil.LessUnsigned(iv.Unsigned.From, msg.UnsignedFrom, iv.Width) || bitutil.LessUnsigned(msg.UnsignedTo, iv.Unsigned.To, iv.Width) {
		from := msg.UnsignedFrom
		if !iv.Unsigned.Top && bitutil.LessUnsigned(from, iv.Unsigned.From, iv.Width) {
			from = iv.Unsigned.From
		}
		to := msg.UnsignedTo
		if !iv.Unsigned.Top && bitutil.LessUnsigned(iv.Unsigned.To, to, iv.Width) {
			to = iv.Unsigned.To
		}
		if bitutil.LessUnsigned(to, from, iv.Width) {
			iv.Unsigned = half{Bottom: true}
		} else {
			iv.Unsigned = half{From: from, To: to}
		}
	}
	return nil
}
