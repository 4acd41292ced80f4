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
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/launix-de/farmem/cache"
	"github.com/launix-de/farmem/wire"
)

// Array is a typed far-memory heap: a dense, counter-keyed run of elements
// of one ds_id, each backed by its own cache.Pointer. Dense object ids keep
// ordered scans (the common access pattern a prefetcher can learn from)
// addressable by a plain incrementing counter instead of a sparse uuid,
// which is reserved for ids handed out one at a time from unrelated call
// sites.
type Array[T any] struct {
	dsID   uint8
	codec  wire.Codec[T]
	mgr    *Manager
	device interface {
		ReadObject(dsID uint8, objID []byte) ([]byte, error)
		WriteObject(dsID uint8, objID []byte, data []byte) error
	}

	mu     sync.Mutex
	length atomic.Int64
	ptrs   map[int64]*cache.Pointer
}

// AllocateArrayHeap constructs a new dense typed array backed by a freshly
// allocated ds_id, registering it with the process-wide manager's cache so
// its elements participate in the same eviction budget as everything else.
func AllocateArrayHeap[T any](m *Manager, codec wire.Codec[T]) (*Array[T], error) {
	dsID, err := m.AllocateDsID()
	if err != nil {
		return nil, err
	}
	if err := m.Construct(0, dsID, nil); err != nil {
		return nil, fmt.Errorf("farmem: AllocateArrayHeap construct: %w", err)
	}
	return &Array[T]{
		dsID:   dsID,
		codec:  codec,
		mgr:    m,
		device: m.GetDevice(),
		ptrs:   make(map[int64]*cache.Pointer),
	}, nil
}

func denseObjID(idx int64) []byte {
	buf := wire.NewBuffer()
	buf.WriteI64(idx)
	return buf.Bytes()
}

// Append grows the array by one element, writing it through immediately so
// a concurrent reader observing the new length can always dereference it.
func (a *Array[T]) Append(v T) (int64, error) {
	a.mu.Lock()
	idx := a.length.Load()
	buf := wire.NewBuffer()
	a.codec.Write(buf, v)
	payload := append([]byte(nil), buf.Bytes()...)
	if err := a.device.WriteObject(a.dsID, denseObjID(idx), payload); err != nil {
		a.mu.Unlock()
		return 0, err
	}
	p := cache.NewPointer(cache.ObjectID{DsID: a.dsID, ObjID: string(denseObjID(idx))}, dsIDFetcher{dsID: a.dsID, device: a.mgr.device})
	a.ptrs[idx] = p
	a.length.Add(1)
	a.mu.Unlock()

	a.mgr.CacheManager().Track(p, int64(len(payload)))
	return idx, nil
}

// Len returns the number of elements appended so far.
func (a *Array[T]) Len() int64 { return a.length.Load() }

// Get dereferences element idx, fetching it on first access.
func (a *Array[T]) Get(idx int64) (T, error) {
	var zero T
	if idx < 0 || idx >= a.length.Load() {
		return zero, fmt.Errorf("farmem: array index %d out of range [0,%d)", idx, a.length.Load())
	}
	a.mu.Lock()
	p, ok := a.ptrs[idx]
	if !ok {
		p = cache.NewPointer(cache.ObjectID{DsID: a.dsID, ObjID: string(denseObjID(idx))}, dsIDFetcher{dsID: a.dsID, device: a.mgr.device})
		a.ptrs[idx] = p
	}
	a.mu.Unlock()

	raw, err := p.Fetch()
	if err != nil {
		return zero, err
	}
	buf := wire.WrapBuffer(raw)
	return a.codec.Read(buf)
}

// Set overwrites element idx in place, marking its pointer dirty so it is
// flushed to the server either on eviction or on an explicit WriteThrough.
func (a *Array[T]) Set(idx int64, v T) error {
	if idx < 0 || idx >= a.length.Load() {
		return fmt.Errorf("farmem: array index %d out of range [0,%d)", idx, a.length.Load())
	}
	a.mu.Lock()
	p, ok := a.ptrs[idx]
	if !ok {
		p = cache.NewPointer(cache.ObjectID{DsID: a.dsID, ObjID: string(denseObjID(idx))}, dsIDFetcher{dsID: a.dsID, device: a.mgr.device})
		a.ptrs[idx] = p
	}
	a.mu.Unlock()

	if _, err := p.Fetch(); err != nil {
		return err
	}
	buf := wire.NewBuffer()
	a.codec.Write(buf, v)
	payload := append([]byte(nil), buf.Bytes()...)
	p.SetBytes(payload)
	p.MarkDirty()
	return nil
}

// DsID returns the ds_id this array's elements are stored under.
func (a *Array[T]) DsID() uint8 { return a.dsID }

// NewUniqueID mints a sparse uuid-shaped object id for one-off allocations
// (a hash bucket, a B-tree node) where dense indices don't apply, for use
// with AllocateGenericUniquePtr. idLen/idBytes let a caller supply its own
// id instead (e.g. a key already computed elsewhere); when idBytes is
// empty, a fresh uuid is generated and optionally truncated to idLen.
func (m *Manager) NewUniqueID(idLen int, idBytes []byte) []byte {
	if len(idBytes) > 0 {
		return idBytes
	}
	id := uuid.New()
	raw := id[:]
	if idLen > 0 && idLen < len(raw) {
		return raw[:idLen]
	}
	return raw
}
