/*
Copyright (C) 2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package wire

import "math"

// Fixed-width integers are MSB-first (big-endian) on the wire.

func (b *Buffer) WriteU8(v uint8) {
	b.grow(1)
	b.data[b.wpos-1] = v
}

func (b *Buffer) ReadU8() (uint8, error) {
	p, err := b.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *Buffer) WriteU16(v uint16) {
	b.grow(2)
	d := b.data[b.wpos-2:]
	d[0] = byte(v >> 8)
	d[1] = byte(v)
}

func (b *Buffer) ReadU16() (uint16, error) {
	p, err := b.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(p[0])<<8 | uint16(p[1]), nil
}

func (b *Buffer) WriteU32(v uint32) {
	b.grow(4)
	d := b.data[b.wpos-4:]
	d[0] = byte(v >> 24)
	d[1] = byte(v >> 16)
	d[2] = byte(v >> 8)
	d[3] = byte(v)
}

func (b *Buffer) ReadU32() (uint32, error) {
	p, err := b.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3]), nil
}

func (b *Buffer) WriteU64(v uint64) {
	b.grow(8)
	d := b.data[b.wpos-8:]
	for i := 0; i < 8; i++ {
		d[i] = byte(v >> (56 - 8*i))
	}
}

func (b *Buffer) ReadU64() (uint64, error) {
	p, err := b.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(p[i])
	}
	return v, nil
}

func (b *Buffer) WriteI8(v int8)   { b.WriteU8(uint8(v)) }
func (b *Buffer) WriteI16(v int16) { b.WriteU16(uint16(v)) }
func (b *Buffer) WriteI32(v int32) { b.WriteU32(uint32(v)) }
func (b *Buffer) WriteI64(v int64) { b.WriteU64(uint64(v)) }

func (b *Buffer) ReadI8() (int8, error) {
	v, err := b.ReadU8()
	return int8(v), err
}
func (b *Buffer) ReadI16() (int16, error) {
	v, err := b.ReadU16()
	return int16(v), err
}
func (b *Buffer) ReadI32() (int32, error) {
	v, err := b.ReadU32()
	return int32(v), err
}
func (b *Buffer) ReadI64() (int64, error) {
	v, err := b.ReadU64()
	return int64(v), err
}

func (b *Buffer) WriteBool(v bool) {
	if v {
		b.WriteU8(1)
	} else {
		b.WriteU8(0)
	}
}

func (b *Buffer) ReadBool() (bool, error) {
	v, err := b.ReadU8()
	return v != 0, err
}

// Floating point is bit-copied into the same-width unsigned integer.

func (b *Buffer) WriteF32(v float32) {
	b.WriteU32(math.Float32bits(v))
}

func (b *Buffer) ReadF32() (float32, error) {
	v, err := b.ReadU32()
	return math.Float32frombits(v), err
}

func (b *Buffer) WriteF64(v float64) {
	b.WriteU64(math.Float64bits(v))
}

func (b *Buffer) ReadF64() (float64, error) {
	v, err := b.ReadU64()
	return math.Float64frombits(v), err
}

// Varint (base-128, LSB-first groups, MSB of each byte = continuation) and
// zig-zag variants are used only for self-describing length fields.

func (b *Buffer) WriteVarint(v uint64) {
	for v >= 0x80 {
		b.WriteU8(byte(v) | 0x80)
		v >>= 7
	}
	b.WriteU8(byte(v))
}

func (b *Buffer) ReadVarint() (uint64, error) {
	var v uint64
	var shift uint
	for {
		byt, err := b.ReadU8()
		if err != nil {
			return 0, err
		}
		v |= uint64(byt&0x7f) << shift
		if byt&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, ErrShortBuffer
		}
	}
	return v, nil
}

func ZigZagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func ZigZagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

func (b *Buffer) WriteZigZag(v int64) {
	b.WriteVarint(ZigZagEncode(v))
}

func (b *Buffer) ReadZigZag() (int64, error) {
	v, err := b.ReadVarint()
	if err != nil {
		return 0, err
	}
	return ZigZagDecode(v), nil
}

// WriteLengthPrefixed writes a varint length followed by the raw bytes.
func (b *Buffer) WriteLengthPrefixed(p []byte) {
	b.WriteVarint(uint64(len(p)))
	b.WriteBytes(p)
}

// ReadLengthPrefixed reads a varint length followed by that many raw bytes.
func (b *Buffer) ReadLengthPrefixed() ([]byte, error) {
	n, err := b.ReadVarint()
	if err != nil {
		return nil, err
	}
	return b.ReadBytes(int(n))
}
