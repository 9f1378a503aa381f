package bitutil

import "testing"

func TestMask(t *testing.T) {
	cases := map[int]uint64{1: 0x1, 8: 0xff, 16: 0xffff, 64: ^uint64(0)}
	for w, want := range cases {
		if got := Mask(w); got != want {
			t.Errorf("Mask(%d) = %#x, want %#x", w, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate(0x1ff, 8); got != 0xff {
		t.Errorf("Truncate(0x1ff, 8) = %#x, want 0xff", got)
	}
}

func TestSignBit(t *testing.T) {
	if got := SignBit(8); got != 0x80 {
		t.Errorf("SignBit(8) = %#x, want 0x80", got)
	}
}

func TestIsNegative(t *testing.T) {
	if !IsNegative(0xff, 8) {
		t.Error("0xff as an 8-bit signed value should be negative")
	}
	if IsNegative(0x7f, 8) {
		t.Error("0x7f as an 8-bit signed value should not be negative")
	}
}

func TestSignExtend(t *testing.T) {
	if got := SignExtend(0xff, 8); got != -1 {
		t.Errorf("SignExtend(0xff, 8) = %d, want -1", got)
	}
	if got := SignExtend(0x7f, 8); got != 127 {
		t.Errorf("SignExtend(0x7f, 8) = %d, want 127", got)
	}
}

func TestSignedMinMax(t *testing.T) {
	if got := SignedMin(8); got != 0x80 {
		t.Errorf("SignedMin(8) = %#x, want 0x80", got)
	}
	if got := SignedMax(8); got != 0x7f {
		t.Errorf("SignedMax(8) = %#x, want 0x7f", got)
	}
}

func TestUnsignedMax(t *testing.T) {
	if got := UnsignedMax(8); got != 0xff {
		t.Errorf("UnsignedMax(8) = %#x, want 0xff", got)
	}
}

func TestLessUnsignedWrapsAtWidth(t *testing.T) {
	// 0x1ff truncates to 0xff at width 8, so 0xff < 0x01 is false.
	if LessUnsigned(0x1ff, 0x01, 8) {
		t.Error("LessUnsigned should compare truncated values")
	}
	if !LessUnsigned(0x01, 0xff, 8) {
		t.Error("1 should be less than 255 unsigned")
	}
}

func TestLessSignedTreatsHighBitAsSign(t *testing.T) {
	if !LessSigned(0xff, 0x01, 8) {
		t.Error("-1 should be less than 1 in 8-bit signed order")
	}
}

func TestMulOverflowsUnsigned(t *testing.T) {
	if MulOverflowsUnsigned(2, 3, 8) {
		t.Error("2*3 should not overflow an 8-bit unsigned range")
	}
	if !MulOverflowsUnsigned(16, 16, 8) {
		t.Error("16*16=256 should overflow an 8-bit unsigned range")
	}
	if MulOverflowsUnsigned(0, 200, 8) {
		t.Error("multiplying by zero never overflows")
	}
}

func TestMulOverflowsSigned(t *testing.T) {
	if MulOverflowsSigned(2, 3, 8) {
		t.Error("2*3 should not overflow an 8-bit signed range")
	}
	// 100 * 2 = 200, which exceeds SignedMax(8) = 127.
	if !MulOverflowsSigned(100, 2, 8) {
		t.Error("100*2 should overflow an 8-bit signed range")
	}
}

func TestAddOverflowsUnsigned(t *testing.T) {
	if AddOverflowsUnsigned(1, 2, 8) {
		t.Error("1+2 should not overflow an 8-bit unsigned range")
	}
	if !AddOverflowsUnsigned(0xff, 0x01, 8) {
		t.Error("255+1 should overflow an 8-bit unsigned range")
	}
}

func TestAddOverflowsSigned(t *testing.T) {
	if AddOverflowsSigned(1, 2, 8) {
		t.Error("1+2 should not overflow an 8-bit signed range")
	}
	// 100 + 100 = 200 > SignedMax(8) = 127, both positive operands.
	if !AddOverflowsSigned(100, 100, 8) {
		t.Error("100+100 should overflow an 8-bit signed range")
	}
	if AddOverflowsSigned(0xff, 0xff, 8) {
		t.Error("(-1)+(-1) should not overflow an 8-bit signed range")
	}
}

func TestSubOverflowsSigned(t *testing.T) {
	if SubOverflowsSigned(5, 2, 8) {
		t.Error("5-2 should not overflow an 8-bit signed range")
	}
	// SignedMin(8)=-128, minus 1 underflows.
	if !SubOverflowsSigned(SignedMin(8), 1, 8) {
		t.Error("SignedMin-1 should overflow an 8-bit signed range")
	}
}
