package wire

import "testing"

func TestCompressedNestedBufferRoundTripSmall(t *testing.T) {
	inner := NewBuffer()
	inner.WriteString("small payload, stays raw")

	outer := NewBuffer()
	outer.WriteNestedBufferCompressed(inner)

	got, err := outer.ReadNestedBufferCompressed()
	if err != nil {
		t.Fatal(err)
	}
	s, err := got.ReadString()
	if err != nil || s != "small payload, stays raw" {
		t.Fatalf("s=%q err=%v", s, err)
	}
}

func TestCompressedNestedBufferRoundTripLarge(t *testing.T) {
	inner := NewBuffer()
	// repetitive payload of exactly CompressThreshold bytes, the smallest
	// size that takes the lz4 path
	for i := 0; i < CompressThreshold; i++ {
		inner.WriteU8(byte(i % 7))
	}

	outer := NewBuffer()
	outer.WriteNestedBufferCompressed(inner)

	got, err := outer.ReadNestedBufferCompressed()
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != CompressThreshold {
		t.Fatalf("want %d bytes, got %d", CompressThreshold, got.Len())
	}
	for i := 0; i < CompressThreshold; i++ {
		v, err := got.ReadU8()
		if err != nil {
			t.Fatal(err)
		}
		if v != byte(i%7) {
			t.Fatalf("byte %d: want %d got %d", i, i%7, v)
		}
	}
}
