package integer

import (
	"strings"

	"github.com/rainoftime/canal/pkg/canalerr"
	"github.com/rainoftime/canal/pkg/domain"
	"github.com/rainoftime/canal/pkg/domain/bitutil"
	"github.com/rainoftime/canal/pkg/ir"
)

// Bits tracks, for each of w bit positions, an element of
// {undef, 0, 1, top}, encoded as two parallel w-bit vectors: a bit
// is undef when (b0,b1)=(0,0), 0 when (1,0), 1 when (0,1), and top
// when (1,1). Limited to w<=64, consistent with Set and Interval.
type Bits struct {
	domain.Base
	Width  int
	B0, B1 uint64
}

func newBits(w int) *Bits {
	b := &Bits{Width: w}
	b.Typ = ir.IntType{Width: w}
	return b
}

// BitsBottom returns the all-undef Bits value.
func BitsBottom(w int) *Bits { return newBits(w) }

// BitsTop returns the all-top Bits value.
func BitsTop(w int) *Bits {
	b := newBits(w)
	b.B0, b.B1 = bitutil.Mask(w), bitutil.Mask(w)
	return b
}

// BitsConst returns the Bits value that exactly describes v.
func BitsConst(w int, v uint64) *Bits {
	b := newBits(w)
	v = bitutil.Truncate(v, w)
	b.B1 = v
	b.B0 = bitutil.Truncate(^v, w)
	return b
}

// bitValue decodes position pos as one of {-1 (undef), 0, 1, 2 (top)}.
func (b *Bits) bitValue(pos int) int {
	bit := uint64(1) << uint(pos)
	b1set := b.B1&bit != 0
	b0set := b.B0&bit != 0
	if b1set {
		if b0set {
			return 2
		}
		return 1
	}
	if b0set {
		return 0
	}
	return -1
}

func (b *Bits) setBitValue(pos, value int) {
	bit := uint64(1) << uint(pos)
	switch value {
	case -1:
		b.B0 &^= bit
		b.B1 &^= bit
	case 0:
		b.B0 |= bit
		b.B1 &^= bit
	case 1:
		b.B0 &^= bit
		b.B1 |= bit
	case 2:
		b.B0 |= bit
		b.B1 |= bit
	}
}

func (b *Bits) IsBottom() bool { return b.B0 == 0 && b.B1 == 0 }
func (b *Bits) IsTop() bool {
	m := bitutil.Mask(b.Width)
	return b.B0&m == m && b.B1&m == m
}
func (b *Bits) SetBottom() { b.B0, b.B1 = 0, 0 }
func (b *Bits) SetTop()    { m := bitutil.Mask(b.Width); b.B0, b.B1 = m, m }

func (b *Bits) Clone() domain.Domain {
	cp := *b
	return &cp
}

func (b *Bits) Equal(other domain.Domain) bool {
	o, ok := other.(*Bits)
	if !ok || o.Width != b.Width {
		return false
	}
	if b.IsTop() || o.IsTop() {
		return b.IsTop() && o.IsTop()
	}
	return b.B0 == o.B0 && b.B1 == o.B1
}

func (b *Bits) Accuracy() float64 {
	variable := 0
	for pos := 0; pos < b.Width; pos++ {
		if b.bitValue(pos) == 2 {
			variable++
		}
	}
	return 1.0 - float64(variable)/float64(b.Width)
}

func (b *Bits) String() string {
	var sb strings.Builder
	sb.WriteString("bits i")
	sb.WriteString(itoa(b.Width))
	sb.WriteString("\n  ")
	if b.IsBottom() {
		sb.WriteString("bottom")
	} else if b.IsTop() {
		sb.WriteString("top")
	} else {
		for pos := b.Width - 1; pos >= 0; pos-- {
			switch b.bitValue(pos) {
			case -1:
				sb.WriteByte('_')
			case 0:
				sb.WriteByte('0')
			case 1:
				sb.WriteByte('1')
			case 2:
				sb.WriteByte('T')
			}
		}
	}
	sb.WriteByte('\n')
	return sb.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func asBits(d domain.Domain, op string) (*Bits, error) {
	b, ok := d.(*Bits)
	if !ok {
		return nil, canalerr.New(canalerr.UnsupportedType, op, "operand is not a Bits domain")
	}
	return b, nil
}

// Join is bitwise OR of both vectors.
func (b *Bits) Join(a, bb domain.Domain) error {
	as, err := asBits(a, "join")
	if err != nil {
		return err
	}
	bs, err := asBits(bb, "join")
	if err != nil {
		return err
	}
	b.B0 = as.B0 | bs.B0
	b.B1 = as.B1 | bs.B1
	return nil
}

// Meet is bitwise AND of both vectors.
func (b *Bits) Meet(a, bb domain.Domain) error {
	as, err := asBits(a, "meet")
	if err != nil {
		return err
	}
	bs, err := asBits(bb, "meet")
	if err != nil {
		return err
	}
	b.B0 = as.B0 & bs.B0
	b.B1 = as.B1 & bs.B1
	return nil
}

// bitAnd is the four-valued truth table for AND, ported verbatim.
func bitAnd(a, c int) int {
	if a == 0 || c == 0 {
		return 0
	}
	if a == 2 || c == 2 {
		return 2
	}
	if a == -1 || c == -1 {
		return -1
	}
	return 1
}

// bitOr is the four-valued truth table for OR, ported verbatim.
func bitOr(a, c int) int {
	if (a == 0 || a == 1) && (c == 0 || c == 1) {
		if a == 1 || c == 1 {
			return 1
		}
		return 0
	}
	if a == 2 || c == 2 {
		return 2
	}
	if a == 1 || c == 1 {
		return 1
	}
	return -1
}

// bitXor is the four-valued truth table for XOR, ported verbatim.
func bitXor(a, c int) int {
	if (a == 0 || a == 1) && (c == 0 || c == 1) {
		if (a == 1) != (c == 1) {
			return 1
		}
		return 0
	}
	if a == 2 || c == 2 {
		return 2
	}
	if a == 1 || c == 1 {
		return 1
	}
	return -1
}

func (b *Bits) bitOperation(a, bb domain.Domain, op string, f func(int, int) int) error {
	as, err := asBits(a, op)
	if err != nil {
		return err
	}
	bs, err := asBits(bb, op)
	if err != nil {
		return err
	}
	for pos := 0; pos < b.Width; pos++ {
		b.setBitValue(pos, f(as.bitValue(pos), bs.bitValue(pos)))
	}
	return nil
}

func (b *Bits) And(a, bb domain.Domain) error { return b.bitOperation(a, bb, "and", bitAnd) }
func (b *Bits) Or(a, bb domain.Domain) error  { return b.bitOperation(a, bb, "or", bitOr) }
func (b *Bits) Xor(a, bb domain.Domain) error { return b.bitOperation(a, bb, "xor", bitXor) }

// All other arithmetic/shift transfers are a documented lossy
// approximation: they set the receiver to top.
func (b *Bits) Add(a, bb domain.Domain) error  { b.SetTop(); return nil }
func (b *Bits) Sub(a, bb domain.Domain) error  { b.SetTop(); return nil }
func (b *Bits) Mul(a, bb domain.Domain) error  { b.SetTop(); return nil }
func (b *Bits) UDiv(a, bb domain.Domain) error { b.SetTop(); return nil }
func (b *Bits) SDiv(a, bb domain.Domain) error { b.SetTop(); return nil }
func (b *Bits) URem(a, bb domain.Domain) error { b.SetTop(); return nil }
func (b *Bits) SRem(a, bb domain.Domain) error { b.SetTop(); return nil }
func (b *Bits) Shl(a, bb domain.Domain) error  { b.SetTop(); return nil }
func (b *Bits) LShr(a, bb domain.Domain) error { b.SetTop(); return nil }
func (b *Bits) AShr(a, bb domain.Domain) error { b.SetTop(); return nil }

// ICmp is unimplemented, per §4.4.
func (b *Bits) ICmp(pred ir.Predicate, a, bb domain.Domain) error {
	return canalerr.TODO("icmp", "Bits.icmp is not implemented")
}

// MatchesString is an open question the source leaves unfinished; kept
// NotImplemented here rather than guessed at, per DESIGN.md.
func (b *Bits) MatchesString(text string) (bool, error) {
	return false, canalerr.TODO("matchesString", "Bits.matchesString is not implemented")
}

func (b *Bits) SetZero(place ir.ValueID) error {
	*b = *BitsConst(b.Width, 0)
	return nil
}

// SignedMin/SignedMax/UnsignedMin/UnsignedMax succeed only when no
// bit is undef. Sign-bit treatment intentionally differs between
// signed and unsigned extraction, ported verbatim from the source.
func (b *Bits) SignedMin() (uint64, bool) {
	var result uint64
	for i := 0; i < b.Width; i++ {
		switch b.bitValue(i) {
		case -1:
			return 0, false
		case 0:
		case 1:
			result |= 1 << uint(i)
		case 2:
			if i == b.Width-1 {
				result |= 1 << uint(i)
			}
		}
	}
	return result, true
}

func (b *Bits) SignedMax() (uint64, bool) {
	var result uint64
	for i := 0; i < b.Width; i++ {
		switch b.bitValue(i) {
		case -1:
			return 0, false
		case 0:
		case 1:
			result |= 1 << uint(i)
		case 2:
			if i != b.Width-1 {
				result |= 1 << uint(i)
			}
		}
	}
	return result, true
}

func (b *Bits) UnsignedMin() (uint64, bool) {
	var result uint64
	for i := 0; i < b.Width; i++ {
		switch b.bitValue(i) {
		case -1:
			return 0, false
		case 0, 2:
			// We choose 0 when both 0 and 1 are available.
		case 1:
			result |= 1 << uint(i)
		}
	}
	return result, true
}

// UnsignedBounds implements domain.Bounder.
func (b *Bits) UnsignedBounds() (lo, hi uint64, ok bool) {
	lo, okLo := b.UnsignedMin()
	hi, okHi := b.UnsignedMax()
	return lo, hi, okLo && okHi
}

func (b *Bits) UnsignedMax() (uint64, bool) {
	var result uint64
	for i := 0; i < b.Width; i++ {
		switch b.bitValue(i) {
		case -1:
			return 0, false
		case 0:
		case 1, 2:
			// We choose 1 when both 0 and 1 are available.
			result |= 1 << uint(i)
		}
	}
	return result, true
}
