package wire

import (
	"math"
	"testing"
)

func TestFixedWidthRoundTrip(t *testing.T) {
	b := NewBuffer()
	b.WriteU8(0xAB)
	b.WriteU16(0x1234)
	b.WriteU32(0xDEADBEEF)
	b.WriteU64(0x0102030405060708)
	b.WriteI64(-12345)
	b.WriteF32(3.5)
	b.WriteF64(math.Pi)
	b.WriteBool(true)
	b.WriteBool(false)

	if v, err := b.ReadU8(); err != nil || v != 0xAB {
		t.Fatalf("u8: %v %v", v, err)
	}
	if v, err := b.ReadU16(); err != nil || v != 0x1234 {
		t.Fatalf("u16: %v %v", v, err)
	}
	if v, err := b.ReadU32(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("u32: %v %v", v, err)
	}
	if v, err := b.ReadU64(); err != nil || v != 0x0102030405060708 {
		t.Fatalf("u64: %v %v", v, err)
	}
	if v, err := b.ReadI64(); err != nil || v != -12345 {
		t.Fatalf("i64: %v %v", v, err)
	}
	if v, err := b.ReadF32(); err != nil || v != 3.5 {
		t.Fatalf("f32: %v %v", v, err)
	}
	if v, err := b.ReadF64(); err != nil || v != math.Pi {
		t.Fatalf("f64: %v %v", v, err)
	}
	if v, err := b.ReadBool(); err != nil || v != true {
		t.Fatalf("bool1: %v %v", v, err)
	}
	if v, err := b.ReadBool(); err != nil || v != false {
		t.Fatalf("bool2: %v %v", v, err)
	}
}

func TestBufferCursorsResetWhenMeeting(t *testing.T) {
	b := NewBuffer()
	b.WriteU8(1)
	b.WriteU8(2)
	if _, err := b.ReadU8(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ReadU8(); err != nil {
		t.Fatal(err)
	}
	if b.rpos != 0 || b.wpos != 0 {
		t.Fatalf("expected cursors reset to 0, got rpos=%d wpos=%d", b.rpos, b.wpos)
	}
}

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, math.MaxUint64}
	for _, c := range cases {
		b := NewBuffer()
		b.WriteVarint(c)
		got, err := b.ReadVarint()
		if err != nil {
			t.Fatalf("varint %d: %v", c, err)
		}
		if got != c {
			t.Fatalf("varint round trip: want %d got %d", c, got)
		}
	}
}

func TestZigZagRoundTrip(t *testing.T) {
	cases := []int64{0, -1, 1, -1000000, 1000000, math.MinInt64, math.MaxInt64}
	for _, c := range cases {
		b := NewBuffer()
		b.WriteZigZag(c)
		got, err := b.ReadZigZag()
		if err != nil {
			t.Fatalf("zigzag %d: %v", c, err)
		}
		if got != c {
			t.Fatalf("zigzag round trip: want %d got %d", c, got)
		}
	}
}

func TestShortBufferError(t *testing.T) {
	b := NewBuffer()
	b.WriteU8(1)
	if _, err := b.ReadU16(); err != ErrShortBuffer {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
}
