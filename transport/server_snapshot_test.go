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
	"fmt"
	"testing"
)

// TestServerSnapshotRestoreRoundTrip checkpoints a server with two live
// MemStore instances and restores them into a freshly constructed server,
// simulating a restart against the same checkpoint directory.
func TestServerSnapshotRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	factory := &FileSnapshotFactory{Basepath: dir}
	engine := factory.CreateSnapshot("ckpt")

	srv1 := NewServer()
	srv1.RegisterConstructor(DsTypeGeneric, NewMemStore)
	if err := srv1.handleConstructDirect(DsTypeGeneric, 1, nil); err != nil {
		t.Fatalf("construct: %v", err)
	}
	if err := srv1.handleConstructDirect(DsTypeGeneric, 2, nil); err != nil {
		t.Fatalf("construct: %v", err)
	}
	srv1.instance(1).WriteObject([]byte("a"), []byte("hello"))
	srv1.instance(2).WriteObject([]byte("b"), []byte("world"))

	if err := srv1.Snapshot(engine); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	srv2 := NewServer()
	srv2.RegisterConstructor(DsTypeGeneric, NewMemStore)
	engine2 := factory.CreateSnapshot("ckpt")
	if err := srv2.Restore(engine2); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got1, err := srv2.instance(1).ReadObject([]byte("a"))
	if err != nil || string(got1) != "hello" {
		t.Fatalf("instance 1: got %q, %v", got1, err)
	}
	got2, err := srv2.instance(2).ReadObject([]byte("b"))
	if err != nil || string(got2) != "world" {
		t.Fatalf("instance 2: got %q, %v", got2, err)
	}
}

// handleConstructDirect constructs an instance bypassing the wire
// protocol, so tests can populate a server without a live connection.
func (s *Server) handleConstructDirect(dsType, dsID uint8, params []byte) error {
	s.ctorsMu.Lock()
	ctor, ok := s.ctors[dsType]
	s.ctorsMu.Unlock()
	if !ok {
		return fmt.Errorf("transport: no constructor registered for ds_type %d", dsType)
	}
	inst, err := ctor(dsID, params)
	if err != nil {
		return err
	}
	s.instancesMu.Lock()
	s.instances.Set(&instanceEntry{dsID: dsID, dsType: dsType, params: append([]byte(nil), params...), inst: inst})
	s.instancesMu.Unlock()
	return nil
}
