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
	"sync"
	"testing"

	"github.com/launix-de/farmem/rpc"
)

// fakeDevice is an in-process transport.Device double keyed by
// (dsID, objID), used so farmem tests never open a real socket.
type fakeDevice struct {
	mu        sync.Mutex
	objects   map[uint8]map[string][]byte
	destructs []uint8
	shutdown  bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{objects: make(map[uint8]map[string][]byte)}
}

func (f *fakeDevice) Init(uint64) error { return nil }
func (f *fakeDevice) Shutdown() error {
	f.mu.Lock()
	f.shutdown = true
	f.mu.Unlock()
	return nil
}

func (f *fakeDevice) ReadObject(dsID uint8, objID []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.objects[dsID]
	if !ok {
		return nil, nil
	}
	return m[string(objID)], nil
}

func (f *fakeDevice) WriteObject(dsID uint8, objID, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.objects[dsID]
	if !ok {
		m = make(map[string][]byte)
		f.objects[dsID] = m
	}
	cp := append([]byte(nil), data...)
	m[string(objID)] = cp
	return nil
}

func (f *fakeDevice) RemoveObject(dsID uint8, objID []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.objects[dsID]
	if !ok {
		return false, nil
	}
	_, existed := m[string(objID)]
	delete(m, string(objID))
	return existed, nil
}

func (f *fakeDevice) Construct(dsType, dsID uint8, params []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[dsID]; !ok {
		f.objects[dsID] = make(map[string][]byte)
	}
	return nil
}

func (f *fakeDevice) Destruct(dsID uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, dsID)
	f.destructs = append(f.destructs, dsID)
	return nil
}

func (f *fakeDevice) Call(dsID uint8, body []byte) (rpc.ErrorCode, []byte, error) {
	return rpc.Success, body, nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Build(1<<20, 2, newFakeDevice())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { Drop() })
	return m
}

func TestBuildUseDropLifecycle(t *testing.T) {
	m := newTestManager(t)
	got, err := Use()
	if err != nil {
		t.Fatalf("Use: %v", err)
	}
	if got != m {
		t.Fatalf("Use returned a different instance than Build")
	}
	if err := Drop(); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if _, err := Use(); err != ErrNotBuilt {
		t.Fatalf("expected ErrNotBuilt after Drop, got %v", err)
	}
}

func TestAllocateDsIDMonotonic(t *testing.T) {
	m := newTestManager(t)
	a, err := m.AllocateDsID()
	if err != nil {
		t.Fatalf("AllocateDsID: %v", err)
	}
	b, err := m.AllocateDsID()
	if err != nil {
		t.Fatalf("AllocateDsID: %v", err)
	}
	if b != a+1 {
		t.Fatalf("expected monotonic ids, got %d then %d", a, b)
	}
}

func TestAllocateDsIDExhaustionFails(t *testing.T) {
	m := newTestManager(t)
	m.nextDsID = 256
	if _, err := m.AllocateDsID(); err != ErrDsIDExhausted {
		t.Fatalf("expected ErrDsIDExhausted, got %v", err)
	}
}

func TestConstructDestructSeedsAndDropsCostRecord(t *testing.T) {
	m := newTestManager(t)
	dsID, _ := m.AllocateDsID()
	if err := m.Construct(0, dsID, nil); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	m.mu.Lock()
	_, ok := m.costs[dsID]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("expected a cost record to be seeded after Construct")
	}
	if err := m.Destruct(dsID); err != nil {
		t.Fatalf("Destruct: %v", err)
	}
	m.mu.Lock()
	_, ok = m.costs[dsID]
	m.mu.Unlock()
	if ok {
		t.Fatalf("expected the cost record to be dropped after Destruct")
	}
}

func TestCallRoutesThroughDevice(t *testing.T) {
	m := newTestManager(t)
	dsID, _ := m.AllocateDsID()
	m.Construct(0, dsID, nil)
	code, reply, err := m.Call(dsID, []byte("ping"))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if code != rpc.Success {
		t.Fatalf("expected Success, got %v", code)
	}
	if string(reply) != "ping" {
		t.Fatalf("expected echoed body, got %q", reply)
	}
}

func TestStatReportsBudgetAndPushdownRatio(t *testing.T) {
	m := newTestManager(t)
	dsID, _ := m.AllocateDsID()
	m.Construct(0, dsID, nil)

	s := m.Stat()
	if s.MemoryBudget != 1<<20 {
		t.Fatalf("expected MemoryBudget 1<<20, got %d", s.MemoryBudget)
	}
	if s.PushdownRatio == 0 {
		t.Fatalf("expected a non-zero default pushdown ratio")
	}
	if s.PrefetchDispatch != 0 {
		t.Fatalf("expected zero dispatch count with no pool attached, got %d", s.PrefetchDispatch)
	}
}

func TestAllocateGenericUniquePtrFetchesThroughDevice(t *testing.T) {
	m := newTestManager(t)
	dsID, _ := m.AllocateDsID()
	m.Construct(0, dsID, nil)
	m.GetDevice().WriteObject(dsID, []byte("k"), []byte("v1"))

	p := m.AllocateGenericUniquePtr(dsID, []byte("k"))
	data, err := p.Fetch()
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "v1" {
		t.Fatalf("expected v1, got %q", data)
	}
}
