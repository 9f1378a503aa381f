// Package product implements the reduced-product combinator of §4.8:
// a Domain that holds several component Domains describing the same
// value (typically Set + Interval + Bits for an integer) and keeps
// them mutually consistent by exchanging a small canonical message
// after every transfer.
package product

import (
	"strings"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/domain/bitutil"
	"github.com/rainoftime/canal/pkg/ir"
)

// Message is the canonical reduction payload: a signed and an
// unsigned interval bound, each independently possibly-empty. Per
// §4.8 this is currently the only message shape ("FieldMinMax").
type Message struct {
	Width                      int
	SignedEmpty, UnsignedEmpty bool
	SignedFrom, SignedTo       uint64
	UnsignedFrom, UnsignedTo   uint64
}

// EmptyMessage returns the message with both halves empty: the
// identity element for Meet (meeting with it always yields the other
// operand untouched, mirroring how an empty interval is the identity
// for join).
func EmptyMessage(w int) Message {
	return Message{Width: w, SignedEmpty: true, UnsignedEmpty: true}
}

// Meet intersects the two messages' halves independently, the same
// rule the Interval domain applies to its own two halves.
func (m Message) Meet(o Message) Message {
	out := Message{Width: m.Width}
	if m.SignedEmpty {
		out.SignedEmpty, out.SignedFrom, out.SignedTo = o.SignedEmpty, o.SignedFrom, o.SignedTo
	} else if o.SignedEmpty {
		out.SignedEmpty, out.SignedFrom, out.SignedTo = m.SignedEmpty, m.SignedFrom, m.SignedTo
	} else {
		from := m.SignedFrom
		if bitutil.LessSigned(from, o.SignedFrom, m.Width) {
			from = o.SignedFrom
		}
		to := m.SignedTo
		if bitutil.LessSigned(o.SignedTo, to, m.Width) {
			to = o.SignedTo
		}
		if bitutil.LessSigned(to, from, m.Width) {
			out.SignedEmpty = true
		} else {
			out.SignedFrom, out.SignedTo = from, to
		}
	}
	if m.UnsignedEmpty {
		out.UnsignedEmpty, out.UnsignedFrom, out.UnsignedTo = o.UnsignedEmpty, o.UnsignedFrom, o.UnsignedTo
	} else if o.UnsignedEmpty {
		out.UnsignedEmpty, out.UnsignedFrom, out.UnsignedTo = m.UnsignedEmpty, m.UnsignedFrom, m.UnsignedTo
	} else {
		from := m.UnsignedFrom
		if bitutil.LessUnsigned(from, o.UnsignedFrom, m.Width) {
			from = o.UnsignedFrom
		}
		to := m.UnsignedTo
		if bitutil.LessUnsigned(o.UnsignedTo, to, m.Width) {
			to = o.UnsignedTo
		}
		if bitutil.LessUnsigned(to, from, m.Width) {
			out.UnsignedEmpty = true
		} else {
			out.UnsignedFrom, out.UnsignedTo = from, to
		}
	}
	return out
}

// Reducible is implemented by component domains that can both
// contribute a Message and tighten themselves from one. A component
// that does not implement it (e.g. Bits, whose per-bit state has no
// natural contiguous-interval projection worth round-tripping) simply
// rides along in the Product without taking part in reduction.
type Reducible interface {
	domain.Domain
	Extract() Message
	Refine(Message) error
}

// Product holds one Domain per enabled integer representation. Every
// Domain method is dispatched to each component in turn; after every
// transfer a reduction pass metas the Reducible components' messages
// and refines each of them from the meet.
type Product struct {
	domain.Base
	Width      int
	Components []domain.Domain
}

// New builds a Product over the given components, which must all
// share the same ir.Type.
func New(typ ir.Type, width int, components ...domain.Domain) *Product {
	p := &Product{Width: width, Components: components}
	p.Typ = typ
	return p
}

func asProduct(d domain.Domain, op string) (*Product, error) {
	p, ok := d.(*Product)
	if !ok {
		return nil, canalerr.New(canalerr.UnsupportedType, op, "operand is not a Product domain")
	}
	return p, nil
}

func (p *Product) IsBottom() bool {
	for _, c := range p.Components {
		if c.IsBottom() {
			return true
		}
	}
	return false
}

func (p *Product) IsTop() bool {
	for _, c := range p.Components {
		if !c.IsTop() {
			return false
		}
	}
	return true
}

func (p *Product) SetBottom() {
	for _, c := range p.Components {
		c.SetBottom()
	}
}

func (p *Product) SetTop() {
	for _, c := range p.Components {
		c.SetTop()
	}
}

func (p *Product) Clone() domain.Domain {
	cp := &Product{Width: p.Width, Base: p.Base, Components: make([]domain.Domain, len(p.Components))}
	for i, c := range p.Components {
		cp.Components[i] = c.Clone()
	}
	return cp
}

func (p *Product) Equal(other domain.Domain) bool {
	o, ok := other.(*Product)
	if !ok || len(o.Components) != len(p.Components) {
		return false
	}
	if p.IsTop() || o.IsTop() {
		return p.IsTop() && o.IsTop()
	}
	for i, c := range p.Components {
		if !c.Equal(o.Components[i]) {
			return false
		}
	}
	return true
}

// Accuracy reports the best precision among the components: the
// product is never less precise than its sharpest member once
// reduction has run.
func (p *Product) Accuracy() float64 {
	best := 0.0
	for _, c := range p.Components {
		if a := c.Accuracy(); a > best {
			best = a
		}
	}
	return best
}

func (p *Product) String() string {
	var sb strings.Builder
	sb.WriteString("product\n")
	for _, c := range p.Components {
		for _, line := range strings.Split(strings.TrimRight(c.String(), "\n"), "\n") {
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// reduce extracts a Message from every Reducible component, meets
// them, and refines every Reducible component from the result.
// Idempotent: running it twice in a row produces no further change
// once the components already agree.
func (p *Product) reduce() error {
	msg := EmptyMessage(p.Width)
	any := false
	for _, c := range p.Components {
		if r, ok := c.(Reducible); ok {
			msg = msg.Meet(r.Extract())
			any = true
		}
	}
	if !any {
		return nil
	}
	for _, c := range p.Components {
		if r, ok := c.(Reducible); ok {
			if err := r.Refine(msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Product) applyBinary(a, b domain.Domain, op string, call func(c, ca, cb domain.Domain) error) error {
	pa, err := asProduct(a, op)
	if err != nil {
		return err
	}
	pb, err := asProduct(b, op)
	if err != nil {
		return err
	}
	for i, c := range p.Components {
		if err := call(c, pa.Components[i], pb.Components[i]); err != nil {
			return err
		}
	}
	return p.reduce()
}

func (p *Product) applyUnary(a domain.Domain, op string, call func(c, ca domain.Domain) error) error {
	pa, err := asProduct(a, op)
	if err != nil {
		return err
	}
	for i, c := range p.Components {
		if err := call(c, pa.Components[i]); err != nil {
			return err
		}
	}
	return p.reduce()
}

func (p *Product) Join(a, b domain.Domain) error {
	return p.applyBinary(a, b, "join", func(c, ca, cb domain.Domain) error { return c.Join(ca, cb) })
}

// Widen implements domain.Widener: the receiver already holds the
// freshly joined value, so each component widens against its own
// slot of prev. A component that does not implement domain.Widener
// (Set, Bits, and the rest already terminate without one) is left as
// the joined value computed by the caller.
func (p *Product) Widen(prev domain.Domain) error {
	pp, err := asProduct(prev, "widen")
	if err != nil {
		return err
	}
	for i, c := range p.Components {
		w, ok := c.(domain.Widener)
		if !ok {
			continue
		}
		if err := w.Widen(pp.Components[i]); err != nil {
			return err
		}
	}
	return p.reduce()
}
func (p *Product) Meet(a, b domain.Domain) error {
	return p.applyBinary(a, b, "meet", func(c, ca, cb domain.Domain) error { return c.Meet(ca, cb) })
}
func (p *Product) Add(a, b domain.Domain) error {
	return p.applyBinary(a, b, "add", func(c, ca, cb domain.Domain) error { return c.Add(ca, cb) })
}
func (p *Product) Sub(a, b domain.Domain) error {
	return p.applyBinary(a, b, "sub", func(c, ca, cb domain.Domain) error { return c.Sub(ca, cb) })
}
func (p *Product) Mul(a, b domain.Domain) error {
	return p.applyBinary(a, b, "mul", func(c, ca, cb domain.Domain) error { return c.Mul(ca, cb) })
}
func (p *Product) UDiv(a, b domain.Domain) error {
	return p.applyBinary(a, b, "udiv", func(c, ca, cb domain.Domain) error { return c.UDiv(ca, cb) })
}
func (p *Product) SDiv(a, b domain.Domain) error {
	return p.applyBinary(a, b, "sdiv", func(c, ca, cb domain.Domain) error { return c.SDiv(ca, cb) })
}
func (p *Product) URem(a, b domain.Domain) error {
	return p.applyBinary(a, b, "urem", func(c, ca, cb domain.Domain) error { return c.URem(ca, cb) })
}
func (p *Product) SRem(a, b domain.Domain) error {
	return p.applyBinary(a, b, "srem", func(c, ca, cb domain.Domain) error { return c.SRem(ca, cb) })
}
func (p *Product) Shl(a, b domain.Domain) error {
	return p.applyBinary(a, b, "shl", func(c, ca, cb domain.Domain) error { return c.Shl(ca, cb) })
}
func (p *Product) LShr(a, b domain.Domain) error {
	return p.applyBinary(a, b, "lshr", func(c, ca, cb domain.Domain) error { return c.LShr(ca, cb) })
}
func (p *Product) AShr(a, b domain.Domain) error {
	return p.applyBinary(a, b, "ashr", func(c, ca, cb domain.Domain) error { return c.AShr(ca, cb) })
}
func (p *Product) And(a, b domain.Domain) error {
	return p.applyBinary(a, b, "and", func(c, ca, cb domain.Domain) error { return c.And(ca, cb) })
}
func (p *Product) Or(a, b domain.Domain) error {
	return p.applyBinary(a, b, "or", func(c, ca, cb domain.Domain) error { return c.Or(ca, cb) })
}
func (p *Product) Xor(a, b domain.Domain) error {
	return p.applyBinary(a, b, "xor", func(c, ca, cb domain.Domain) error { return c.Xor(ca, cb) })
}

// ICmp joins the per-component 1-bit comparison results: each
// component answers as precisely as it can, and the tightest (the
// meet, since all are sound over-approximations of the same boolean)
// wins. Components unable to answer degrade to top and do not spoil
// the others — their error is recorded but does not abort unless
// every component fails.
func (p *Product) ICmp(pred ir.Predicate, a, b domain.Domain) error {
	pa, err := asProduct(a, "icmp")
	if err != nil {
		return err
	}
	pb, err := asProduct(b, "icmp")
	if err != nil {
		return err
	}
	var firstErr error
	ok := false
	for i, c := range p.Components {
		if err := c.ICmp(pred, pa.Components[i], pb.Components[i]); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			c.SetTop()
			continue
		}
		ok = true
	}
	if !ok {
		return firstErr
	}
	return p.reduce()
}

// FCmp passes the float operands straight through to every component:
// a and b are the float-typed operands (never a Product, since floats
// are not products of multiple domains), and each integer component's
// own FCmp already knows how to read them via domain.FloatComparer.
func (p *Product) FCmp(pred ir.Predicate, a, b domain.Domain) error {
	for _, c := range p.Components {
		if err := c.FCmp(pred, a, b); err != nil {
			return err
		}
	}
	return p.reduce()
}

func (p *Product) Trunc(a domain.Domain) error {
	return p.applyUnary(a, "trunc", func(c, ca domain.Domain) error { return c.Trunc(ca) })
}
func (p *Product) ZExt(a domain.Domain) error {
	return p.applyUnary(a, "zext", func(c, ca domain.Domain) error { return c.ZExt(ca) })
}
func (p *Product) SExt(a domain.Domain) error {
	return p.applyUnary(a, "sext", func(c, ca domain.Domain) error { return c.SExt(ca) })
}
func (p *Product) FPToUI(a domain.Domain) error {
	return p.applyUnary(a, "fptoui", func(c, ca domain.Domain) error { return c.FPToUI(ca) })
}
func (p *Product) FPToSI(a domain.Domain) error {
	return p.applyUnary(a, "fptosi", func(c, ca domain.Domain) error { return c.FPToSI(ca) })
}

// UnsignedBounds implements domain.Bounder by intersecting every
// component's own bounds.
func (p *Product) UnsignedBounds() (lo, hi uint64, ok bool) {
	first := true
	for _, c := range p.Components {
		b, isBounder := c.(domain.Bounder)
		if !isBounder {
			continue
		}
		clo, chi, cok := b.UnsignedBounds()
		if !cok {
			continue
		}
		if first {
			lo, hi, ok, first = clo, chi, true, false
			continue
		}
		if bitutil.LessUnsigned(lo, clo, p.Width) {
			lo = clo
		}
		if bitutil.LessUnsigned(chi, hi, p.Width) {
			hi = chi
		}
	}
	return lo, hi, ok
}

func (p *Product) SetZero(place ir.ValueID) error {
	for _, c := range p.Components {
		if err := c.SetZero(place); err != nil {
			return err
		}
	}
	return p.reduce()
}
