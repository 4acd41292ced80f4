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

package farmem

import (
	"testing"

	"github.com/launix-de/farmem/wire"
)

func int64Codec() wire.Codec[int64] {
	return wire.Codec[int64]{
		Write: func(b *wire.Buffer, v int64) { b.WriteI64(v) },
		Read:  func(b *wire.Buffer) (int64, error) { return b.ReadI64() },
	}
}

func TestArrayAppendGetRoundTrip(t *testing.T) {
	m := newTestManager(t)
	arr, err := AllocateArrayHeap(m, int64Codec())
	if err != nil {
		t.Fatalf("AllocateArrayHeap: %v", err)
	}

	for i := int64(0); i < 5; i++ {
		idx, err := arr.Append(i * 10)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if idx != i {
			t.Fatalf("expected dense index %d, got %d", i, idx)
		}
	}
	if arr.Len() != 5 {
		t.Fatalf("expected length 5, got %d", arr.Len())
	}

	for i := int64(0); i < 5; i++ {
		v, err := arr.Get(i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if v != i*10 {
			t.Fatalf("Get(%d): expected %d, got %d", i, i*10, v)
		}
	}
}

func TestArrayGetOutOfRange(t *testing.T) {
	m := newTestManager(t)
	arr, _ := AllocateArrayHeap(m, int64Codec())
	arr.Append(1)
	if _, err := arr.Get(5); err == nil {
		t.Fatalf("expected an out-of-range error")
	}
}

func TestArraySetOverwritesInPlace(t *testing.T) {
	m := newTestManager(t)
	arr, _ := AllocateArrayHeap(m, int64Codec())
	arr.Append(1)
	arr.Append(2)

	if err := arr.Set(1, 99); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := arr.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected 99 after Set, got %d", v)
	}
}

func TestNewUniqueIDGeneratesWhenEmpty(t *testing.T) {
	m := newTestManager(t)
	a := m.NewUniqueID(0, nil)
	b := m.NewUniqueID(0, nil)
	if len(a) == 0 || len(b) == 0 {
		t.Fatalf("expected non-empty generated ids")
	}
	if string(a) == string(b) {
		t.Fatalf("expected distinct generated ids")
	}
}

func TestNewUniqueIDReturnsSuppliedBytes(t *testing.T) {
	m := newTestManager(t)
	id := m.NewUniqueID(0, []byte("explicit-key"))
	if string(id) != "explicit-key" {
		t.Fatalf("expected supplied id to pass through unchanged, got %q", id)
	}
}
