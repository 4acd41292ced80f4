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

// Package farmem is the process-wide far-memory manager: the build/use/drop
// singleton that bridges the object cache, the prefetcher, the cost
// estimator and the transport device.
package farmem

import (
	"errors"
	"fmt"
	"sync"

	"github.com/launix-de/farmem/cache"
	"github.com/launix-de/farmem/cost"
	"github.com/launix-de/farmem/prefetch"
	"github.com/launix-de/farmem/rpc"
	"github.com/launix-de/farmem/transport"
)

var (
	ErrDsIDExhausted = errors.New("farmem: ds_id space exhausted (255 reached)")
	ErrNotBuilt      = errors.New("farmem: Use called before Build")
)

// dsIDFetcher adapts one data-structure instance's slice of a Device into
// a cache.Fetcher, so every Pointer belonging to that instance talks to
// the right ds_id without carrying the id around itself.
type dsIDFetcher struct {
	dsID   uint8
	device transport.Device
}

func (f dsIDFetcher) ReadObject(id cache.ObjectID) ([]byte, error) {
	return f.device.ReadObject(f.dsID, []byte(id.ObjID))
}

func (f dsIDFetcher) WriteObject(id cache.ObjectID, data []byte) error {
	return f.device.WriteObject(f.dsID, []byte(id.ObjID), data)
}

// Manager is the process-wide singleton bridging the cache, the transport
// device and per-instance cost records. Grounded on storage/database.go's
// process-wide databases map + databaselock registry, generalized from
// "named databases" to "ds_id-keyed instances".
type Manager struct {
	device       transport.Device
	cacheMgr     *cache.Manager
	gcThreads    int
	memoryBudget int64
	prefetchPool *prefetch.Pool

	mu       sync.Mutex
	nextDsID int // next ds_id to try; wraps detection of exhaustion at 255
	costs    map[uint8]*cost.Record
}

var (
	instance   *Manager
	instanceMu sync.Mutex
)

// Build constructs the process-wide manager: a cache of cacheCapBytes
// bytes backed by device. gcThreadCount is recorded (raised to at least 1)
// but starts no goroutines; eviction runs on the cache manager's single
// control goroutine. Build
// may only be called once before a matching Drop; calling it again
// without an intervening Drop panics, the same single-instance discipline
// storage/database.go's process-wide registry assumes.
func Build(cacheCapBytes int64, gcThreadCount int, device transport.Device) (*Manager, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		panic("farmem: Build called while a manager instance is already live")
	}
	if gcThreadCount < 1 {
		gcThreadCount = 1
	}
	m := &Manager{
		device:       device,
		cacheMgr:     cache.NewManager(cacheCapBytes),
		gcThreads:    gcThreadCount,
		memoryBudget: cacheCapBytes,
		costs:        make(map[uint8]*cost.Record),
	}
	instance = m
	return m, nil
}

// Use returns the process-wide manager instance created by Build.
func Use() (*Manager, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		return nil, ErrNotBuilt
	}
	return instance, nil
}

// Drop tears down the process-wide manager, shutting down its device.
func Drop() error {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		return nil
	}
	err := instance.device.Shutdown()
	instance = nil
	return err
}

// AllocateDsID monotonically issues a ds_id, starting at 0. Reaching 255
// fails construction with ErrDsIDExhausted, so ids 0..254 are issued.
func (m *Manager) AllocateDsID() (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextDsID >= 255 {
		return 0, ErrDsIDExhausted
	}
	id := uint8(m.nextDsID)
	m.nextDsID++
	return id, nil
}

// Construct forwards a ds_type/params construction request to the server
// and seeds a cost record for the new instance with Config.PushdownRatio.
func (m *Manager) Construct(dsType, dsID uint8, params []byte) error {
	if err := m.device.Construct(dsType, dsID, params); err != nil {
		return err
	}
	configMu.RLock()
	ratio := Config.PushdownRatio
	configMu.RUnlock()
	m.mu.Lock()
	m.costs[dsID] = cost.NewRecord(ratio)
	m.mu.Unlock()
	return nil
}

// Destruct forwards a destruct request and drops the instance's cost
// record.
func (m *Manager) Destruct(dsID uint8) error {
	if err := m.device.Destruct(dsID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.costs, dsID)
	m.mu.Unlock()
	return nil
}

// AllocateGenericUniquePtr creates a cache Pointer for one object of dsID
// and returns it absent (callers Fetch it on first use). The pointer is
// not registered with the eviction manager; callers Track it through
// CacheManager.
func (m *Manager) AllocateGenericUniquePtr(dsID uint8, objID []byte) *cache.Pointer {
	id := cache.ObjectID{DsID: dsID, ObjID: string(objID)}
	return cache.NewPointer(id, dsIDFetcher{dsID: dsID, device: m.device})
}

// Call routes a pre-serialized (method, args) body to dsID's server-side
// router via the device, returning the router's error code and the
// serialized reply payload.
func (m *Manager) Call(dsID uint8, body []byte) (rpc.ErrorCode, []byte, error) {
	return m.device.Call(dsID, body)
}

// GetDevice returns the transport handle used by the prefetcher to issue
// speculative fetches directly, bypassing the manager for the hot path.
func (m *Manager) GetDevice() transport.Device {
	return m.device
}

// CacheManager exposes the eviction manager so callers can Track/Forget
// pointers as they allocate and discard them.
func (m *Manager) CacheManager() *cache.Manager {
	return m.cacheMgr
}

// CostRecord returns the rolling cost-estimator record for dsID, creating
// one with Config.PushdownRatio on first use for a dsID that Construct has
// not seeded (defensive default; Construct is the normal path).
func (m *Manager) CostRecord(dsID uint8) *cost.Record {
	configMu.RLock()
	ratio := Config.PushdownRatio
	configMu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.costs[dsID]
	if !ok {
		r = cost.NewRecord(ratio)
		m.costs[dsID] = r
	}
	return r
}

// SetPrefetchPool attaches the dispatch pool the status dashboard reads
// its dispatch count from. Optional; a Manager with no pool attached
// reports a zero dispatch count.
func (m *Manager) SetPrefetchPool(p *prefetch.Pool) {
	m.mu.Lock()
	m.prefetchPool = p
	m.mu.Unlock()
}

// Stat implements transport.StatSource, giving the status dashboard a
// JSON-serializable snapshot without transport importing farmem.
func (m *Manager) Stat() transport.Stat {
	m.mu.Lock()
	pool := m.prefetchPool
	var ratio float64
	for _, r := range m.costs {
		s := r.Snapshot()
		ratio = s.PushdownRatio
		break
	}
	m.mu.Unlock()

	var dispatched int64
	if pool != nil {
		dispatched = pool.DispatchCount()
	}

	return transport.Stat{
		CurrentMemory:    m.cacheMgr.CurrentMemory(),
		MemoryBudget:     m.memoryBudget,
		PrefetchDispatch: dispatched,
		PushdownRatio:    ratio,
	}
}

// String renders a short diagnostic summary, used by the client's stat
// command.
func (m *Manager) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("farmem.Manager{instances=%d, nextDsID=%d, residentBytes=%d}",
		len(m.costs), m.nextDsID, m.cacheMgr.CurrentMemory())
}
