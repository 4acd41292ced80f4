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

// Package wire implements the fixed-width/varint binary codec and the
// recursive serializer that every on-wire shape (pair, tuple, sequence,
// keyed map, nested buffer) is built from.
package wire

import (
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a read runs past the write cursor.
var ErrShortBuffer = errors.New("wire: short buffer")

// Buffer holds a contiguous byte region with independent read and write
// cursors. When both cursors meet (rpos == wpos), both reset to zero so a
// buffer can be reused without reallocating.
type Buffer struct {
	data []byte
	rpos int
	wpos int
}

// NewBuffer returns an empty, ready-to-write buffer.
func NewBuffer() *Buffer {
	return &Buffer{data: make([]byte, 0, 64)}
}

// WrapBuffer wraps an existing byte slice for reading; writes append past it.
func WrapBuffer(b []byte) *Buffer {
	return &Buffer{data: b, wpos: len(b)}
}

// Bytes returns the unread-to-written slice (does not copy).
func (b *Buffer) Bytes() []byte {
	return b.data[b.rpos:b.wpos]
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return b.wpos - b.rpos
}

// Reset empties the buffer, keeping the backing array.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.rpos = 0
	b.wpos = 0
}

func (b *Buffer) maybeResetCursors() {
	if b.rpos == b.wpos {
		b.rpos = 0
		b.wpos = 0
		b.data = b.data[:0]
	}
}

// grow ensures n more bytes can be written starting at wpos and advances
// wpos past them, so the caller writes into b.data[wpos-n:wpos].
func (b *Buffer) grow(n int) {
	need := b.wpos + n
	if need <= cap(b.data) {
		b.data = b.data[:need]
		b.wpos = need
		return
	}
	newcap := cap(b.data)*2 + n
	nd := make([]byte, need, newcap)
	copy(nd, b.data[:b.wpos])
	b.data = nd
	b.wpos = need
}

// WriteBytes appends raw bytes (no length prefix).
func (b *Buffer) WriteBytes(p []byte) {
	b.grow(len(p))
	copy(b.data[b.wpos-len(p):], p)
}

// ReadBytes consumes exactly n raw bytes.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if b.rpos+n > b.wpos {
		return nil, ErrShortBuffer
	}
	out := b.data[b.rpos : b.rpos+n]
	b.rpos += n
	b.maybeResetCursors()
	return out, nil
}

// PeekByte returns the next unread byte without consuming it.
func (b *Buffer) PeekByte() (byte, error) {
	if b.rpos >= b.wpos {
		return 0, ErrShortBuffer
	}
	return b.data[b.rpos], nil
}

func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer{rpos=%d wpos=%d len=%d}", b.rpos, b.wpos, b.Len())
}
