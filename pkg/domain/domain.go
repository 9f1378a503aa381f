// Package domain defines the common lattice and transfer contract
// every abstract domain satisfies: bottom, top, join, meet, structural
// equality, deep clone, an accuracy score, a textual dump, and the
// full set of arithmetic/bitwise/comparison/cast transfer operations
// of the IR. Each transfer writes its result into the receiver; the
// two argument Domains are never mutated.
//
// Concrete domains (pkg/domain/integer, pkg/domain/float,
// pkg/domain/pointer, pkg/domain/aggregate) embed Base to inherit a
// stub implementation — every method not meaningful for that domain's
// shape (e.g. Add on a pointer domain) returns an UnsupportedOpcode
// error instead of panicking, matching the error-handling taxonomy:
// only precondition violations panic.
package domain

import (
	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/ir"
)

// Domain is the lattice + transfer contract every abstract value
// satisfies.
type Domain interface {
	// Type returns the IR type this element abstracts.
	Type() ir.Type

	IsBottom() bool
	IsTop() bool
	SetBottom()
	SetTop()

	// Equal performs structural equality. Per spec, if the receiver is
	// top, equality against another top of the same type is true
	// regardless of any inner fields.
	Equal(other Domain) bool

	// Clone returns a deep, independently mutable copy.
	Clone() Domain

	// Accuracy returns a score in [0,1]; 1 means exact (a singleton),
	// 0 means top.
	Accuracy() float64

	// String renders a multi-line, indented dump whose first token is
	// one of the well-known domain tags (see pkg/state dump).
	String() string

	// Join and Meet write the lattice join/meet of a and b into the
	// receiver.
	Join(a, b Domain) error
	Meet(a, b Domain) error

	// Arithmetic.
	Add(a, b Domain) error
	Sub(a, b Domain) error
	Mul(a, b Domain) error
	UDiv(a, b Domain) error
	SDiv(a, b Domain) error
	URem(a, b Domain) error
	SRem(a, b Domain) error

	// Bitwise.
	Shl(a, b Domain) error
	LShr(a, b Domain) error
	AShr(a, b Domain) error
	And(a, b Domain) error
	Or(a, b Domain) error
	Xor(a, b Domain) error

	// Comparison. The receiver must be a 1-bit integer domain of the
	// same kind as a and b.
	ICmp(pred ir.Predicate, a, b Domain) error
	FCmp(pred ir.Predicate, a, b Domain) error

	// Casts. The receiver's own Type determines the target width/kind;
	// a is the source-typed operand.
	Trunc(a Domain) error
	ZExt(a Domain) error
	SExt(a Domain) error
	FPToUI(a Domain) error
	FPToSI(a Domain) error
	SIToFP(a Domain) error
	UIToFP(a Domain) error

	// SetZero installs the all-zero element of the receiver's type,
	// tagging any pointer target it creates with place.
	SetZero(place ir.ValueID) error
}

// CompareResult is the four-valued outcome of a floating-point
// interval comparison (§4.5): must-false, must-true, unknown (the
// intervals overlap), or unordered (either operand may be NaN).
type CompareResult int

const (
	CompareMustFalse CompareResult = iota
	CompareMustTrue
	CompareUnknown
	CompareUnordered
)

// FloatComparer is implemented by the float interval domain. Integer
// domains' FCmp delegates to it: per §4.2/§4.3, fcmp on an integer
// receiver (the boolean result) is computed from the float operand's
// own Compare, not duplicated per integer domain.
type FloatComparer interface {
	Domain
	Compare(pred ir.Predicate, other Domain) (CompareResult, error)
}

// Widener is implemented by domains whose Join alone would not reach
// a fixed point in finitely many steps, i.e. integer intervals over a
// type wide enough that every revisit could tighten an endpoint by
// one. pkg/interp calls Widen instead of Join once a block has been
// visited config.WideningThreshold times. Domains without this
// problem — Set collapses to top past its threshold, Bits/Float/
// Pointer/aggregates have finite height — need not implement it;
// pkg/interp falls back to an ordinary Join for those.
type Widener interface {
	Domain
	// Widen writes into the receiver (which already holds the freshly
	// joined new value) the widen of that value against prev, the
	// value recorded on the previous visit.
	Widen(prev Domain) error
}

// Bounder is implemented by domains that can report their own
// concrete unsigned-order value bounds, used for address/offset
// reasoning (array indexing, memory-block cell ranges). Grounded on
// the original's Integer::Container::unsignedMin/unsignedMax, which
// tries each integer representation and keeps whichever succeeds.
type Bounder interface {
	Domain
	UnsignedBounds() (lo, hi uint64, ok bool)
}

// Base is embedded by every concrete domain to provide the default
// "this operation is not meaningful for my shape" stub. Concrete
// domains shadow whichever methods apply to them.
type Base struct {
	Typ ir.Type
}

func (b *Base) Type() ir.Type { return b.Typ }

func unsupported(op string) error { return canalerr.UnsupportedOp(op, "not meaningful for this domain") }

func (b *Base) Join(a, bb Domain) error                      { return unsupported("join") }
func (b *Base) Meet(a, bb Domain) error                      { return unsupported("meet") }
func (b *Base) Add(a, bb Domain) error                       { return unsupported("add") }
func (b *Base) Sub(a, bb Domain) error                       { return unsupported("sub") }
func (b *Base) Mul(a, bb Domain) error                       { return unsupported("mul") }
func (b *Base) UDiv(a, bb Domain) error                      { return unsupported("udiv") }
func (b *Base) SDiv(a, bb Domain) error                      { return unsupported("sdiv") }
func (b *Base) URem(a, bb Domain) error                      { return unsupported("urem") }
func (b *Base) SRem(a, bb Domain) error                      { return unsupported("srem") }
func (b *Base) Shl(a, bb Domain) error                       { return unsupported("shl") }
func (b *Base) LShr(a, bb Domain) error                      { return unsupported("lshr") }
func (b *Base) AShr(a, bb Domain) error                      { return unsupported("ashr") }
func (b *Base) And(a, bb Domain) error                       { return unsupported("and") }
func (b *Base) Or(a, bb Domain) error                        { return unsupported("or") }
func (b *Base) Xor(a, bb Domain) error                       { return unsupported("xor") }
func (b *Base) ICmp(p ir.Predicate, a, bb Domain) error       { return unsupported("icmp") }
func (b *Base) FCmp(p ir.Predicate, a, bb Domain) error       { return unsupported("fcmp") }
func (b *Base) Trunc(a Domain) error                          { return unsupported("trunc") }
func (b *Base) ZExt(a Domain) error                           { return unsupported("zext") }
func (b *Base) SExt(a Domain) error                           { return unsupported("sext") }
func (b *Base) FPToUI(a Domain) error                         { return unsupported("fptoui") }
func (b *Base) FPToSI(a Domain) error                         { return unsupported("fptosi") }
func (b *Base) SIToFP(a Domain) error                         { return unsupported("sitofp") }
func (b *Base) UIToFP(a Domain) error                         { return unsupported("uitofp") }
func (b *Base) SetZero(place ir.ValueID) error                { return unsupported("setzero") }
