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

import (
	"bytes"

	"github.com/pierrec/lz4/v4"
)

// CompressThreshold is the payload size from which
// WriteNestedBufferCompressed switches on LZ4 framing. The transport
// package does not use this envelope: object and Call payloads go on the
// wire uncompressed.
const CompressThreshold = 4096

// WriteNestedBufferCompressed writes a one-byte flag (0 = raw, 1 = lz4),
// followed by a u64 length and the (possibly compressed) bytes. Below
// CompressThreshold it always writes raw to avoid framing overhead on
// small payloads.
func (b *Buffer) WriteNestedBufferCompressed(inner *Buffer) {
	raw := inner.Bytes()
	if len(raw) < CompressThreshold {
		b.WriteU8(0)
		b.WriteU64(uint64(len(raw)))
		b.WriteBytes(raw)
		return
	}
	var out bytes.Buffer
	w := lz4.NewWriter(&out)
	if _, err := w.Write(raw); err != nil {
		// fall back to raw framing; compression is a latency optimization,
		// never a correctness requirement.
		b.WriteU8(0)
		b.WriteU64(uint64(len(raw)))
		b.WriteBytes(raw)
		return
	}
	if err := w.Close(); err != nil {
		b.WriteU8(0)
		b.WriteU64(uint64(len(raw)))
		b.WriteBytes(raw)
		return
	}
	compressed := out.Bytes()
	b.WriteU8(1)
	b.WriteU64(uint64(len(compressed)))
	b.WriteBytes(compressed)
}

// ReadNestedBufferCompressed reads back what WriteNestedBufferCompressed
// wrote, transparently decompressing when the flag says lz4.
func (b *Buffer) ReadNestedBufferCompressed() (*Buffer, error) {
	flag, err := b.ReadU8()
	if err != nil {
		return nil, err
	}
	n, err := b.ReadU64()
	if err != nil {
		return nil, err
	}
	p, err := b.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	if flag == 0 {
		out := make([]byte, len(p))
		copy(out, p)
		return WrapBuffer(out), nil
	}
	r := lz4.NewReader(bytes.NewReader(p))
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return nil, err
	}
	return WrapBuffer(out.Bytes()), nil
}
