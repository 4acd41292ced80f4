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
	"log"
	"net"
	"sync"
	"sync/atomic"

	NonLockingReadMap "github.com/launix-de/NonLockingReadMap"
	"github.com/launix-de/farmem/rpc"
)

// Instance is the capability set every server-side data-structure exposes,
// the authoritative half of what a client-side Pointer addresses.
type Instance interface {
	ReadObject(objID []byte) ([]byte, error)
	WriteObject(objID []byte, data []byte) error
	RemoveObject(objID []byte) (exists bool, err error)
	Call(body []byte) (rpc.ErrorCode, []byte)
}

// Constructor builds a new Instance of one ds_type from its parameter
// blob; registered once per ds_type before the server starts serving.
type Constructor func(dsID uint8, params []byte) (Instance, error)

type instanceEntry struct {
	dsID   uint8
	dsType uint8
	params []byte
	inst   Instance
}

// Dumper is the subset of Instance implementations that can serialize
// their whole object set for a checkpoint and reload it on restore.
// MemStore implements it; a ds_type with no meaningful snapshot (e.g. one
// that wraps a live external connection) simply doesn't, and Server skips
// it during Snapshot/Restore.
type Dumper interface {
	Dump() map[string][]byte
	Restore(map[string][]byte)
}

func (e instanceEntry) GetKey() uint8     { return e.dsID }
func (e instanceEntry) ComputeSize() uint { return 0 }

// Server hosts the authoritative store and the ds_id -> instance map.
// Grounded on storage/database.go's process-wide databases map +
// databaselock singleton registry, generalized from "named databases" to
// "ds_id-keyed instances", and reusing the lock-free read contract
// third_party/NonLockingReadMap already gives that registry style.
type Server struct {
	farMemSize  atomic.Uint64
	initialized atomic.Bool

	instancesMu sync.Mutex // serializes Set/Remove against the read-optimized map
	instances   NonLockingReadMap.NonLockingReadMap[instanceEntry, uint8]

	ctorsMu sync.Mutex
	ctors   map[uint8]Constructor
	sealed  bool

	listener net.Listener
	masterOnce sync.Once
}

// NewServer creates an unstarted server.
func NewServer() *Server {
	return &Server{
		instances: NonLockingReadMap.New[instanceEntry, uint8](),
		ctors:     make(map[uint8]Constructor),
	}
}

// RegisterConstructor binds a ds_type to the function that builds its
// Instance. Must be called before Serve; panics afterward.
func (s *Server) RegisterConstructor(dsType uint8, ctor Constructor) {
	s.ctorsMu.Lock()
	defer s.ctorsMu.Unlock()
	if s.sealed {
		panic("transport: RegisterConstructor called after Serve")
	}
	s.ctors[dsType] = ctor
}

// Serve accepts connections on addr. The first accepted connection is
// treated as the master/control connection (Init + Shutdown bookkeeping);
// every connection after that is a slave running the per-connection
// opcode dispatch loop, per the "single master fiber ... subsequent
// accepted connections spawn slave fibers" split.
func (s *Server) Serve(addr string) error {
	s.ctorsMu.Lock()
	s.sealed = true
	s.ctorsMu.Unlock()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln

	first := true
	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		if first {
			first = false
			go s.runMaster(nc)
			continue
		}
		go s.runSlave(nc)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) runMaster(nc net.Conn) {
	defer nc.Close()
	for {
		op, err := readOpcode(nc)
		if err != nil {
			return
		}
		switch op {
		case OpInit:
			sz, err := readExact(nc, 8)
			if err != nil {
				return
			}
			size := beUint64(sz)
			s.farMemSize.Store(size)
			s.initialized.Store(true)
			nc.Write([]byte{ackOK})
		case OpShutdown:
			nc.Write([]byte{ackOK})
			return
		default:
			// the master connection only ever carries Init/Shutdown
			// bookkeeping; anything else is handled identically to a
			// slave so a single-connection client still works.
			s.dispatch(nc, op)
		}
	}
}

func (s *Server) runSlave(nc net.Conn) {
	defer nc.Close()
	for {
		op, err := readOpcode(nc)
		if err != nil {
			return
		}
		if !s.dispatch(nc, op) {
			return
		}
	}
}

// dispatch handles one request already past its opcode byte. Returns
// false if the connection should be closed.
func (s *Server) dispatch(nc net.Conn, op Opcode) bool {
	switch op {
	case OpReadObject:
		return s.handleReadObject(nc)
	case OpWriteObject:
		return s.handleWriteObject(nc)
	case OpRemoveObject:
		return s.handleRemoveObject(nc)
	case OpConstruct:
		return s.handleConstruct(nc)
	case OpDestruct:
		return s.handleDestruct(nc)
	case OpCompute:
		return s.handleCompute(nc)
	case OpCall:
		return s.handleCall(nc)
	case OpShutdown:
		nc.Write([]byte{ackOK})
		return false
	default:
		log.Printf("transport: unknown opcode %v from %v", op, nc.RemoteAddr())
		return false
	}
}

func (s *Server) instance(dsID uint8) Instance {
	e := s.instances.Get(dsID)
	if e == nil {
		return nil
	}
	return e.inst
}

func (s *Server) handleReadObject(nc net.Conn) bool {
	dsID, objID, err := readDsIDAndObjID(nc)
	if err != nil {
		return false
	}
	inst := s.instance(dsID)
	if inst == nil {
		nc.Write([]byte{0, 0})
		return true
	}
	data, err := inst.ReadObject(objID)
	if err != nil {
		nc.Write([]byte{0, 0})
		return true
	}
	reply := make([]byte, 2+len(data))
	reply[0] = byte(len(data) >> 8)
	reply[1] = byte(len(data))
	copy(reply[2:], data)
	_, err = nc.Write(reply)
	return err == nil
}

func (s *Server) handleWriteObject(nc net.Conn) bool {
	hdr, err := readExact(nc, 2)
	if err != nil {
		return false
	}
	dsID := hdr[0]
	objIDLen := int(hdr[1])
	lenBytes, err := readExact(nc, 2)
	if err != nil {
		return false
	}
	dataLen := int(lenBytes[0])<<8 | int(lenBytes[1])
	objID, err := readExact(nc, objIDLen)
	if err != nil {
		return false
	}
	data, err := readExact(nc, dataLen)
	if err != nil {
		return false
	}

	inst := s.instance(dsID)
	if inst == nil {
		nc.Write([]byte{ackFail})
		return true
	}
	if err := inst.WriteObject(objID, data); err != nil {
		nc.Write([]byte{ackFail})
		return true
	}
	_, err = nc.Write([]byte{ackOK})
	return err == nil
}

func (s *Server) handleRemoveObject(nc net.Conn) bool {
	dsID, objID, err := readDsIDAndObjID(nc)
	if err != nil {
		return false
	}
	inst := s.instance(dsID)
	if inst == nil {
		nc.Write([]byte{ackFail})
		return true
	}
	exists, err := inst.RemoveObject(objID)
	if err != nil {
		nc.Write([]byte{ackFail})
		return true
	}
	ack := byte(ackFail)
	if exists {
		ack = ackOK
	}
	_, err = nc.Write([]byte{ack})
	return err == nil
}

func (s *Server) handleConstruct(nc net.Conn) bool {
	hdr, err := readExact(nc, 3)
	if err != nil {
		return false
	}
	dsType, dsID, paramLen := hdr[0], hdr[1], int(hdr[2])
	params, err := readExact(nc, paramLen)
	if err != nil {
		return false
	}

	s.ctorsMu.Lock()
	ctor, ok := s.ctors[dsType]
	s.ctorsMu.Unlock()
	if !ok {
		nc.Write([]byte{ackFail})
		return true
	}

	inst, err := ctor(dsID, params)
	if err != nil {
		nc.Write([]byte{ackFail})
		return true
	}

	s.instancesMu.Lock()
	s.instances.Set(&instanceEntry{dsID: dsID, dsType: dsType, params: append([]byte(nil), params...), inst: inst})
	s.instancesMu.Unlock()

	_, err = nc.Write([]byte{ackOK})
	return err == nil
}

func (s *Server) handleDestruct(nc net.Conn) bool {
	b, err := readExact(nc, 1)
	if err != nil {
		return false
	}
	dsID := b[0]

	s.instancesMu.Lock()
	removed := s.instances.Remove(dsID)
	s.instancesMu.Unlock()

	ack := byte(ackFail)
	if removed != nil {
		ack = ackOK
	}
	_, err = nc.Write([]byte{ack})
	return err == nil
}

// handleCompute answers the reserved opcode with an empty, zero-length
// reply: accepted on the wire, but no ds_type implements it yet.
func (s *Server) handleCompute(nc net.Conn) bool {
	hdr, err := readExact(nc, 2)
	if err != nil {
		return false
	}
	lenBytes, err := readExact(nc, 2)
	if err != nil {
		return false
	}
	n := int(lenBytes[0])<<8 | int(lenBytes[1])
	if _, err := readExact(nc, n); err != nil {
		return false
	}
	_ = hdr // ds_id, opcode — unused until Compute gains a handler
	_, err = nc.Write([]byte{0, 0})
	return err == nil
}

func (s *Server) handleCall(nc net.Conn) bool {
	hdr, err := readExact(nc, 1)
	if err != nil {
		return false
	}
	dsID := hdr[0]
	lenBytes, err := readExact(nc, 2)
	if err != nil {
		return false
	}
	n := int(lenBytes[0])<<8 | int(lenBytes[1])
	body, err := readExact(nc, n)
	if err != nil {
		return false
	}

	inst := s.instance(dsID)
	if inst == nil {
		reply := []byte{byte(rpc.MethodNotFound), 0, 0}
		_, err = nc.Write(reply)
		return err == nil
	}

	code, ret := inst.Call(body)
	reply := make([]byte, 3+len(ret))
	reply[0] = byte(code)
	reply[1] = byte(len(ret) >> 8)
	reply[2] = byte(len(ret))
	copy(reply[3:], ret)
	_, err = nc.Write(reply)
	return err == nil
}

// Snapshot checkpoints every instance whose ds_type's Instance implements
// Dumper into engine: one ManifestEntry per instance plus one dump per
// instance. Intended to run only while the server is quiescent (no
// in-flight Call/WriteObject), per the checkpoint-is-not-crash-recovery
// contract in transport/snapshot.go's header comment.
func (s *Server) Snapshot(engine SnapshotEngine) error {
	var manifest []ManifestEntry
	for _, e := range s.instances.GetAll() {
		d, ok := e.inst.(Dumper)
		if !ok {
			continue
		}
		manifest = append(manifest, ManifestEntry{DsID: e.dsID, DsType: e.dsType, Params: e.params})
		if err := DumpInstance(engine, e.dsID, d.Dump()); err != nil {
			return fmt.Errorf("transport: dumping ds_id %d: %w", e.dsID, err)
		}
	}
	return SaveManifest(engine, manifest)
}

// Restore reconstructs every instance named in engine's manifest, calling
// the registered Constructor for its ds_type and then replaying its
// object dump, so a freshly started server can resume from the last
// checkpoint taken when the previous server process exited. Must be
// called before Serve, against an otherwise-empty Server.
func (s *Server) Restore(engine SnapshotEngine) error {
	manifest, err := LoadManifest(engine)
	if err != nil {
		return fmt.Errorf("transport: loading manifest: %w", err)
	}
	for _, m := range manifest {
		s.ctorsMu.Lock()
		ctor, ok := s.ctors[m.DsType]
		s.ctorsMu.Unlock()
		if !ok {
			return fmt.Errorf("transport: restore: no constructor registered for ds_type %d", m.DsType)
		}
		inst, err := ctor(m.DsID, m.Params)
		if err != nil {
			return fmt.Errorf("transport: restore: constructing ds_id %d: %w", m.DsID, err)
		}
		if d, ok := inst.(Dumper); ok {
			objects, err := RestoreInstance(engine, m.DsID)
			if err != nil {
				return fmt.Errorf("transport: restoring ds_id %d: %w", m.DsID, err)
			}
			d.Restore(objects)
		}
		s.instancesMu.Lock()
		s.instances.Set(&instanceEntry{dsID: m.DsID, dsType: m.DsType, params: m.Params, inst: inst})
		s.instancesMu.Unlock()
	}
	return nil
}

func readOpcode(nc net.Conn) (Opcode, error) {
	b, err := readExact(nc, 1)
	if err != nil {
		return 0, err
	}
	return Opcode(b[0]), nil
}

func readDsIDAndObjID(nc net.Conn) (uint8, []byte, error) {
	hdr, err := readExact(nc, 2)
	if err != nil {
		return 0, nil, err
	}
	objID, err := readExact(nc, int(hdr[1]))
	if err != nil {
		return 0, nil, err
	}
	return hdr[0], objID, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}
