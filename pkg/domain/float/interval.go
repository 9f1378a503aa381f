// Package float implements the Float Interval domain of §4.5: an
// IEEE-semantics interval with explicit NaN tracking, grounded on the
// shape of pkg/domain/integer's Interval (same bottom/top/from/to
// texture) and on original_source/lib/FloatUtils.cpp for the
// float<->integer conversion contract.
package float

import (
	"fmt"
	"math"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/ir"
)

// Interval tracks [From, To] over IEEE float64 (the host format used
// for both Float32 and Float64 element types; Float32 values are
// rounded to float32 precision at the domain's boundary operations),
// plus a MayBeNaN flag since NaN does not fit an ordered interval.
type Interval struct {
	domain.Base
	Format           ir.FloatFormat
	Bottom           bool
	Top              bool
	From, To         float64
	MayBeNaN         bool
}

func newInterval(f ir.FloatFormat) *Interval {
	iv := &Interval{Format: f}
	iv.Typ = ir.FloatType{Format: f}
	return iv
}

// FloatBottom returns the empty interval (no value, not even NaN).
func FloatBottom(f ir.FloatFormat) *Interval {
	iv := newInterval(f)
	iv.Bottom = true
	return iv
}

// FloatTop returns the universe interval: any float, including NaN.
func FloatTop(f ir.FloatFormat) *Interval {
	iv := newInterval(f)
	iv.Top = true
	iv.MayBeNaN = true
	return iv
}

// Const returns the Interval containing exactly v.
func Const(f ir.FloatFormat, v float64) *Interval {
	iv := newInterval(f)
	if math.IsNaN(v) {
		iv.MayBeNaN = true
		iv.Bottom = false
		iv.From, iv.To = math.NaN(), math.NaN()
		return iv
	}
	iv.From, iv.To = v, v
	return iv
}

func (iv *Interval) round(v float64) float64 {
	if iv.Format == ir.Float32 {
		return float64(float32(v))
	}
	return v
}

func (iv *Interval) IsBottom() bool { return iv.Bottom && !iv.MayBeNaN }
func (iv *Interval) IsTop() bool    { return iv.Top }
func (iv *Interval) SetBottom()     { iv.Bottom, iv.Top, iv.MayBeNaN = true, false, false }
func (iv *Interval) SetTop() {
	iv.Bottom, iv.Top, iv.MayBeNaN = false, true, true
}

func (iv *Interval) Clone() domain.Domain {
	cp := *iv
	return &cp
}

func (iv *Interval) Equal(other domain.Domain) bool {
	o, ok := other.(*Interval)
	if !ok {
		return false
	}
	if iv.IsTop() || o.IsTop() {
		return iv.IsTop() && o.IsTop()
	}
	if iv.Bottom || o.Bottom {
		return iv.Bottom == o.Bottom && iv.MayBeNaN == o.MayBeNaN
	}
	return iv.From == o.From && iv.To == o.To && iv.MayBeNaN == o.MayBeNaN
}

func (iv *Interval) Accuracy() float64 {
	if iv.IsTop() {
		return 0
	}
	if !iv.Bottom && iv.From == iv.To && !iv.MayBeNaN {
		return 1
	}
	return 0.5
}

func (iv *Interval) String() string {
	if iv.IsBottom() {
		return fmt.Sprintf("float %s\n  bottom\n", iv.Format)
	}
	if iv.IsTop() {
		return fmt.Sprintf("float %s\n  top\n", iv.Format)
	}
	nan := ""
	if iv.MayBeNaN {
		nan = " maybe-nan"
	}
	return fmt.Sprintf("float %s\n  [%v, %v]%s\n", iv.Format, iv.From, iv.To, nan)
}

func asInterval(d domain.Domain, op string) (*Interval, error) {
	fi, ok := d.(*Interval)
	if !ok {
		return nil, canalerr.New(canalerr.UnsupportedType, op, "operand is not a float interval")
	}
	return fi, nil
}

func (iv *Interval) Join(a, b domain.Domain) error {
	as, err := asInterval(a, "join")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "join")
	if err != nil {
		return err
	}
	switch {
	case as.Bottom && !as.MayBeNaN:
		*iv = *bs
	case bs.Bottom && !bs.MayBeNaN:
		*iv = *as
	default:
		iv.Bottom, iv.Top = false, as.Top || bs.Top
		iv.MayBeNaN = as.MayBeNaN || bs.MayBeNaN
		if !iv.Top {
			iv.From = math.Min(as.From, bs.From)
			iv.To = math.Max(as.To, bs.To)
		}
	}
	return nil
}

func (iv *Interval) Meet(a, b domain.Domain) error {
	as, err := asInterval(a, "meet")
	if err != nil {
		return err
	}
	bs, err := asInterval(b, "meet")
	if err != nil {
		return err
	}
	iv.MayBeNaN = as.MayBeNaN && bs.MayBeNaN
	if as.Top {
		*iv = *bs
		return nil
	}
	if bs.Top {
		*iv = *as
		return nil
	}
	if as.Bottom || bs.Bottom {
		iv.SetBottom()
		return nil
	}
	from := math.Max(as.From, bs.From)
	to := math.Min(as.To, bs.To)
	if from > to {
		iv.Bottom = true
		iv.MayBeNaN = false
		return nil
	}
	iv.From, iv.To = from, to
	return nil
}

func (iv *Interval) binOp(a, b domain.Domain, op string, f func(x, y float64) float64, nanProne bool) error {
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
	if as.Top || bs.Top {
		iv.SetTop()
		return nil
	}
	corners := []float64{
		f(as.From, bs.From), f(as.From, bs.To),
		f(as.To, bs.From), f(as.To, bs.To),
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	mayNaN := as.MayBeNaN || bs.MayBeNaN
	for _, c := range corners {
		if math.IsNaN(c) {
			mayNaN = true
			continue
		}
		c = iv.round(c)
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	if lo > hi {
		// every corner was NaN
		iv.Bottom, iv.MayBeNaN = false, true
		iv.From, iv.To = math.NaN(), math.NaN()
		return nil
	}
	iv.Bottom, iv.Top = false, false
	iv.From, iv.To, iv.MayBeNaN = lo, hi, mayNaN || nanProne
	return nil
}

func (iv *Interval) Add(a, b domain.Domain) error {
	return iv.binOp(a, b, "fadd", func(x, y float64) float64 { return x + y }, false)
}
func (iv *Interval) Sub(a, b domain.Domain) error {
	return iv.binOp(a, b, "fsub", func(x, y float64) float64 { return x - y }, false)
}
func (iv *Interval) Mul(a, b domain.Domain) error {
	return iv.binOp(a, b, "fmul", func(x, y float64) float64 { return x * y }, false)
}
func (iv *Interval) SDiv(a, b domain.Domain) error {
	return iv.binOp(a, b, "fdiv", func(x, y float64) float64 { return x / y }, true)
}

// Compare implements domain.FloatComparer: the integer domains' FCmp
// delegates here rather than duplicating float reasoning per integer
// representation, per §4.2/§4.3.
func (iv *Interval) Compare(pred ir.Predicate, other domain.Domain) (domain.CompareResult, error) {
	o, err := asInterval(other, "fcmp")
	if err != nil {
		return domain.CompareUnordered, err
	}
	if iv.IsBottom() || o.IsBottom() {
		return domain.CompareUnordered, nil
	}
	unordered := iv.MayBeNaN || o.MayBeNaN || iv.Top || o.Top
	ordered := func(mustTrue, mustFalse bool) domain.CompareResult {
		switch {
		case unordered && (pred == ir.PredUNO):
			return domain.CompareUnknown
		case mustTrue:
			return domain.CompareMustTrue
		case mustFalse:
			return domain.CompareMustFalse
		default:
			if unordered {
				return domain.CompareUnordered
			}
			return domain.CompareUnknown
		}
	}
	strictlyBelow := !(iv.Top || o.Top) && iv.To < o.From
	strictlyAbove := !(iv.Top || o.Top) && iv.From > o.To
	allEqual := !(iv.Top || o.Top) && iv.From == iv.To && o.From == o.To && iv.From == o.From

	switch pred {
	case ir.PredOEQ, ir.PredUEQ:
		return ordered(allEqual, strictlyBelow || strictlyAbove), nil
	case ir.PredONE, ir.PredUNE:
		return ordered(strictlyBelow || strictlyAbove, allEqual), nil
	case ir.PredOLT, ir.PredULTF:
		return ordered(strictlyBelow, strictlyAbove || allEqual), nil
	case ir.PredOLE, ir.PredULEF:
		return ordered(strictlyBelow || allEqual, strictlyAbove && !allEqual), nil
	case ir.PredOGT, ir.PredUGTF:
		return ordered(strictlyAbove, strictlyBelow || allEqual), nil
	case ir.PredOGE, ir.PredUGEF:
		return ordered(strictlyAbove || allEqual, strictlyBelow && !allEqual), nil
	case ir.PredORD:
		if !unordered {
			return domain.CompareMustTrue, nil
		}
		return domain.CompareUnknown, nil
	case ir.PredUNO:
		if unordered && iv.MayBeNaN && o.MayBeNaN {
			return domain.CompareUnknown, nil
		}
		return domain.CompareMustFalse, nil
	default:
		return domain.CompareUnknown, nil
	}
}

func (iv *Interval) Trunc(a domain.Domain) error { return iv.castSame(a, "trunc") }
func (iv *Interval) ZExt(a domain.Domain) error  { return iv.castSame(a, "zext") }
func (iv *Interval) SExt(a domain.Domain) error  { return iv.castSame(a, "sext") }

func (iv *Interval) castSame(a domain.Domain, op string) error {
	as, err := asInterval(a, op)
	if err != nil {
		return err
	}
	*iv = Interval{Base: iv.Base, Format: iv.Format, Bottom: as.Bottom, Top: as.Top, From: iv.round(as.From), To: iv.round(as.To), MayBeNaN: as.MayBeNaN}
	return nil
}

// SIToFP/UIToFP convert an integer domain operand's signed/unsigned
// min/max extraction into a float interval; anything that cannot
// supply exact bounds widens to top.
func (iv *Interval) SIToFP(a domain.Domain) error {
	return iv.fromInt(a, "sitofp", true)
}

func (iv *Interval) UIToFP(a domain.Domain) error {
	return iv.fromInt(a, "uitofp", false)
}

type minMaxer interface {
	SignedMin() (uint64, bool)
	SignedMax() (uint64, bool)
	UnsignedMin() (uint64, bool)
	UnsignedMax() (uint64, bool)
}

func (iv *Interval) fromInt(a domain.Domain, op string, signed bool) error {
	mm, ok := a.(minMaxer)
	if !ok {
		iv.SetTop()
		return nil
	}
	var lo, hi uint64
	var okLo, okHi bool
	if signed {
		lo, okLo = mm.SignedMin()
		hi, okHi = mm.SignedMax()
	} else {
		lo, okLo = mm.UnsignedMin()
		hi, okHi = mm.UnsignedMax()
	}
	if !okLo || !okHi {
		iv.SetTop()
		return nil
	}
	if signed {
		iv.From = iv.round(float64(int64(lo)))
		iv.To = iv.round(float64(int64(hi)))
	} else {
		iv.From = iv.round(float64(lo))
		iv.To = iv.round(float64(hi))
	}
	iv.Bottom, iv.Top, iv.MayBeNaN = false, false, false
	return nil
}

func (iv *Interval) SetZero(place ir.ValueID) error {
	*iv = *Const(iv.Format, 0)
	return nil
}
