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

package transport

import (
	"testing"

	"github.com/launix-de/farmem/rpc"
)

func TestMemStoreWriteReadRemove(t *testing.T) {
	inst, err := NewMemStore(1, nil)
	if err != nil {
		t.Fatalf("NewMemStore: %v", err)
	}
	if err := inst.WriteObject([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	got, err := inst.ReadObject([]byte("k"))
	if err != nil || string(got) != "v" {
		t.Fatalf("ReadObject: got %q, %v", got, err)
	}
	existed, err := inst.RemoveObject([]byte("k"))
	if err != nil || !existed {
		t.Fatalf("RemoveObject: got existed=%v, %v", existed, err)
	}
	if _, err := inst.ReadObject([]byte("k")); err == nil {
		t.Fatalf("expected error reading removed object")
	}
}

func TestMemStoreCallIsMethodNotFound(t *testing.T) {
	inst, _ := NewMemStore(1, nil)
	code, ret := inst.Call([]byte("anything"))
	if code != rpc.MethodNotFound || ret != nil {
		t.Fatalf("expected (MethodNotFound, nil), got (%v, %v)", code, ret)
	}
}

func TestMemStoreDumpRestoreRoundTrip(t *testing.T) {
	store := &MemStore{objects: make(map[string][]byte)}
	store.WriteObject([]byte("0"), []byte("a"))
	store.WriteObject([]byte("1"), []byte("b"))

	dump := store.Dump()
	if len(dump) != 2 || string(dump["0"]) != "a" || string(dump["1"]) != "b" {
		t.Fatalf("unexpected dump: %+v", dump)
	}

	fresh := &MemStore{objects: make(map[string][]byte)}
	fresh.Restore(dump)
	got, err := fresh.ReadObject([]byte("1"))
	if err != nil || string(got) != "b" {
		t.Fatalf("Restore round trip failed: %q, %v", got, err)
	}
}
