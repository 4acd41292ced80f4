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
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/launix-de/farmem/rpc"
)

// DsTypeGeneric is the default ds_type: a plain in-memory object store
// with no Call-able methods of its own, the server-side counterpart of
// both farmem.Array's dense elements and AllocateGenericUniquePtr's
// sparse ones. Grounded on storage/database.go's table-as-map-of-rows
// shape, minus any column/schema bookkeeping, since a far-memory object
// is opaque bytes to the server.
const DsTypeGeneric uint8 = 0

// DsTypeSQLSeed constructs a MemStore pre-populated from a SQL query,
// per SQLSeedParams, instead of starting empty.
const DsTypeSQLSeed uint8 = 1

// MemStore is the generic Instance: a mutex-protected map keyed by the
// object id string, answering RemoveObject with whether the key existed
// and Call with MethodNotFound since it exposes no RPC surface of its
// own.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemStore creates an empty store, the Constructor for DsTypeGeneric.
func NewMemStore(dsID uint8, params []byte) (Instance, error) {
	return &MemStore{objects: make(map[string][]byte)}, nil
}

// NewSQLSeedStore is the Constructor for DsTypeSQLSeed: it parses params
// as a JSON-encoded SQLSeedParams, runs the query to completion, and
// returns a MemStore already populated with one object per result row.
// Grounded on storage/mysql_import.go's mysql_import builtin, which also
// runs its import synchronously inside the builtin call rather than
// backgrounding it.
func NewSQLSeedStore(dsID uint8, params []byte) (Instance, error) {
	var p SQLSeedParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("transport: sqlseed params: %w", err)
	}
	store := &MemStore{objects: make(map[string][]byte)}
	_, err := SQLSeed(context.Background(), p, func(objID []byte, data []byte) error {
		return store.WriteObject(objID, data)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (s *MemStore) ReadObject(objID []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[string(objID)]
	if !ok {
		return nil, fmt.Errorf("transport: object %x not found", objID)
	}
	return data, nil
}

func (s *MemStore) WriteObject(objID []byte, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]byte(nil), data...)
	s.objects[string(objID)] = cp
	return nil
}

func (s *MemStore) RemoveObject(objID []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[string(objID)]
	delete(s.objects, string(objID))
	return ok, nil
}

// Call answers every request with MethodNotFound: MemStore has no
// server-pushed-down methods, only plain object storage.
func (s *MemStore) Call(body []byte) (rpc.ErrorCode, []byte) {
	return rpc.MethodNotFound, nil
}

// Dump copies every resident object, for transport/snapshot.go's
// DumpInstance.
func (s *MemStore) Dump() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.objects))
	for k, v := range s.objects {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// Restore replaces the store's contents, for Server.Restore at startup.
func (s *MemStore) Restore(objects map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = make(map[string][]byte, len(objects))
	for k, v := range objects {
		s.objects[k] = append([]byte(nil), v...)
	}
}
