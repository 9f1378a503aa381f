package integer

import "testing"

func TestBitsBottomTop(t *testing.T) {
	b := BitsBottom(8)
	if !b.IsBottom() {
		t.Error("BitsBottom should be bottom")
	}
	top := BitsTop(8)
	if !top.IsTop() {
		t.Error("BitsTop should be top")
	}
}

func TestBitsConstRoundTrip(t *testing.T) {
	b := BitsConst(8, 0xA5)
	for pos := 0; pos < 8; pos++ {
		want := 0
		if 0xA5&(1<<uint(pos)) != 0 {
			want = 1
		}
		if got := b.bitValue(pos); got != want {
			t.Errorf("bit %d = %d, want %d", pos, got, want)
		}
	}
}

func TestBitsJoinIsBitwiseOr(t *testing.T) {
	a := BitsConst(8, 0x0F)
	b := BitsConst(8, 0xF0)
	out := BitsBottom(8)
	if err := out.Join(a, b); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if out.B0 != (a.B0 | b.B0) || out.B1 != (a.B1 | b.B1) {
		t.Error("Join should OR both bit vectors")
	}
}

func TestBitsAndTruthTable(t *testing.T) {
	a := BitsConst(8, 0xFF)
	zero := BitsConst(8, 0x00)
	out := BitsBottom(8)
	if err := out.And(a, zero); err != nil {
		t.Fatalf("And: %v", err)
	}
	if !out.Equal(zero) {
		t.Error("AND with all-zero should be all-zero")
	}
}

func TestBitsXorUndefQuirk(t *testing.T) {
	// bitXor's four-valued truth table: XOR of a definite 1 with an
	// undef bit returns 1, not undef, matching the source it is
	// ported from verbatim rather than the "stricter" undef-propagates
	// rule a reader might expect.
	if got := bitXor(1, -1); got != 1 {
		t.Errorf("bitXor(1, undef) = %d, want 1", got)
	}
	if got := bitXor(-1, 1); got != 1 {
		t.Errorf("bitXor(undef, 1) = %d, want 1", got)
	}
	if got := bitXor(0, -1); got != -1 {
		t.Errorf("bitXor(0, undef) = %d, want -1 (undef)", got)
	}
}

func TestBitsArithmeticAlwaysTop(t *testing.T) {
	a := BitsConst(8, 1)
	b := BitsConst(8, 2)
	out := BitsBottom(8)
	if err := out.Add(a, b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !out.IsTop() {
		t.Error("Bits.Add is a documented lossy approximation and should always yield top")
	}
}

func TestBitsICmpNotImplemented(t *testing.T) {
	a := BitsConst(8, 1)
	b := BitsConst(8, 2)
	out := BitsBottom(1)
	if err := out.ICmp(0, a, b); err == nil {
		t.Error("Bits.ICmp should report NotImplemented")
	}
}

func TestBitsSignedUnsignedBounds(t *testing.T) {
	b := BitsConst(8, 5)
	lo, hi, ok := b.UnsignedBounds()
	if !ok || lo != 5 || hi != 5 {
		t.Errorf("UnsignedBounds() = (%d, %d, %v), want (5, 5, true)", lo, hi, ok)
	}
	top := BitsTop(8)
	if v, ok := top.SignedMin(); !ok || v != 0x80 {
		t.Errorf("SignedMin on all-top Bits = (%#x, %v), want (0x80, true): no bit is undef", v, ok)
	}
}
