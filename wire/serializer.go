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

// Strings, sequences and maps on the external wire (§6) use a u64 count/
// length prefix, not the varint used for codec-internal self-describing
// lengths (§4.B) — the two are different shapes for different audiences:
// varint lengths are for the serializer's own recursive framing, u64
// lengths are the stable cross-language wire contract in §6's table.

// WriteString writes a u64 length followed by the raw UTF-8 bytes.
func (b *Buffer) WriteString(s string) {
	b.WriteU64(uint64(len(s)))
	b.WriteBytes([]byte(s))
}

// ReadString reads a u64-length-prefixed UTF-8 string.
func (b *Buffer) ReadString() (string, error) {
	n, err := b.ReadU64()
	if err != nil {
		return "", err
	}
	p, err := b.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// WriteNestedBuffer writes a u64 length followed by raw bytes, for embedding
// one already-serialized buffer inside another (e.g. an RPC reply payload).
func (b *Buffer) WriteNestedBuffer(inner *Buffer) {
	p := inner.Bytes()
	b.WriteU64(uint64(len(p)))
	b.WriteBytes(p)
}

// ReadNestedBuffer reads a u64-length-prefixed chunk and wraps it for reading.
func (b *Buffer) ReadNestedBuffer() (*Buffer, error) {
	n, err := b.ReadU64()
	if err != nil {
		return nil, err
	}
	p, err := b.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	return WrapBuffer(p), nil
}

// Codec is the pair of functions needed to stream a value T to/from a
// Buffer. Serializer generics (pairs, tuples, sequences, maps) are built on
// top of a Codec[T] rather than reflection.
type Codec[T any] struct {
	Write func(b *Buffer, v T)
	Read  func(b *Buffer) (T, error)
}

// WritePair writes two values of possibly different types back to back.
func WritePair[A, B any](buf *Buffer, a A, b B, ca Codec[A], cb Codec[B]) {
	ca.Write(buf, a)
	cb.Write(buf, b)
}

// ReadPair reads two values of possibly different types back to back.
func ReadPair[A, B any](buf *Buffer, ca Codec[A], cb Codec[B]) (A, B, error) {
	a, err := ca.Read(buf)
	if err != nil {
		var zb B
		return a, zb, err
	}
	b, err := cb.Read(buf)
	return a, b, err
}

// WriteSequence writes a u64 count followed by each element in order
// (used for both "ordered" and "unordered" sequences — ordering is a
// property of what the caller does with the slice, not of the wire shape).
func WriteSequence[T any](buf *Buffer, items []T, c Codec[T]) {
	buf.WriteU64(uint64(len(items)))
	for _, it := range items {
		c.Write(buf, it)
	}
}

// ReadSequence reads a u64-count-prefixed sequence of elements.
func ReadSequence[T any](buf *Buffer, c Codec[T]) ([]T, error) {
	n, err := buf.ReadU64()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := c.Read(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// KV is a single key/value pair of a keyed map.
type KV[K, V any] struct {
	Key   K
	Value V
}

// WriteMap writes a u64 count followed by key/value pairs.
func WriteMap[K, V any](buf *Buffer, entries []KV[K, V], ck Codec[K], cv Codec[V]) {
	buf.WriteU64(uint64(len(entries)))
	for _, e := range entries {
		ck.Write(buf, e.Key)
		cv.Write(buf, e.Value)
	}
}

// ReadMap reads a u64-count-prefixed sequence of key/value pairs.
func ReadMap[K, V any](buf *Buffer, ck Codec[K], cv Codec[V]) ([]KV[K, V], error) {
	n, err := buf.ReadU64()
	if err != nil {
		return nil, err
	}
	out := make([]KV[K, V], 0, n)
	for i := uint64(0); i < n; i++ {
		k, err := ck.Read(buf)
		if err != nil {
			return nil, err
		}
		v, err := cv.Read(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, KV[K, V]{k, v})
	}
	return out, nil
}

// Primitive codecs, ready to pass to the generic helpers above.

var Uint8Codec = Codec[uint8]{
	Write: func(b *Buffer, v uint8) { b.WriteU8(v) },
	Read:  func(b *Buffer) (uint8, error) { return b.ReadU8() },
}

var Uint16Codec = Codec[uint16]{
	Write: func(b *Buffer, v uint16) { b.WriteU16(v) },
	Read:  func(b *Buffer) (uint16, error) { return b.ReadU16() },
}

var Uint32Codec = Codec[uint32]{
	Write: func(b *Buffer, v uint32) { b.WriteU32(v) },
	Read:  func(b *Buffer) (uint32, error) { return b.ReadU32() },
}

var Uint64Codec = Codec[uint64]{
	Write: func(b *Buffer, v uint64) { b.WriteU64(v) },
	Read:  func(b *Buffer) (uint64, error) { return b.ReadU64() },
}

var Int64Codec = Codec[int64]{
	Write: func(b *Buffer, v int64) { b.WriteI64(v) },
	Read:  func(b *Buffer) (int64, error) { return b.ReadI64() },
}

var Float64Codec = Codec[float64]{
	Write: func(b *Buffer, v float64) { b.WriteF64(v) },
	Read:  func(b *Buffer) (float64, error) { return b.ReadF64() },
}

var BoolCodec = Codec[bool]{
	Write: func(b *Buffer, v bool) { b.WriteBool(v) },
	Read:  func(b *Buffer) (bool, error) { return b.ReadBool() },
}

var StringCodec = Codec[string]{
	Write: func(b *Buffer, v string) { b.WriteString(v) },
	Read:  func(b *Buffer) (string, error) { return b.ReadString() },
}

var BytesCodec = Codec[[]byte]{
	Write: func(b *Buffer, v []byte) { b.WriteU64(uint64(len(v))); b.WriteBytes(v) },
	Read: func(b *Buffer) ([]byte, error) {
		n, err := b.ReadU64()
		if err != nil {
			return nil, err
		}
		p, err := b.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(p))
		copy(out, p)
		return out, nil
	},
}
