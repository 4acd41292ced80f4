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

package cache

import (
	"sync/atomic"
	"time"

	"github.com/google/btree"
)

// entry is the manager's bookkeeping record for one resident pointer: its
// size for budget accounting and its position in the eviction-priority
// ordering.
type entry struct {
	ptr           *Pointer
	size          int64
	effectiveTime time.Time
	seq           uint64 // tie-breaker so two pointers with identical timestamps still order uniquely
}

func less(a, b entry) bool {
	if a.effectiveTime.Equal(b.effectiveTime) {
		return a.seq < b.seq
	}
	return a.effectiveTime.Before(b.effectiveTime)
}

type managerOp struct {
	add  *entry
	del  *Pointer
	done chan struct{}
}

// Manager bounds total resident bytes to a budget, evicting pointers
// oldest-first when a fresh add pushes it over. The order key is each
// pointer's LastUsed time as of its most recent Track; a later Deref does
// not move it in that order. All
// mutation runs through a single goroutine reading managerOp values off a
// channel, the same command-serialization idiom storage/cache.go uses,
// with the btree.BTreeG ordered index replacing its linear sort.Slice
// rescan so a cleanup pass over N items costs O(N log N) instead of a full
// re-sort every time.
type Manager struct {
	memoryBudget  int64
	currentMemory atomic.Int64

	tree  *btree.BTreeG[entry]
	index map[*Pointer]entry // pointer -> its current entry, to remove+reinsert on update

	seq uint64

	opChan chan managerOp
}

// NewManager creates an eviction manager with the given resident-byte
// budget. A non-positive budget disables eviction (manager accepts
// anything).
func NewManager(memoryBudget int64) *Manager {
	m := &Manager{
		memoryBudget: memoryBudget,
		tree:         btree.NewG(32, less),
		index:        make(map[*Pointer]entry),
		opChan:       make(chan managerOp, 1024),
	}
	go m.run()
	return m
}

// Track registers p as resident, accounting size bytes against the
// budget, and evicts older pointers if this push crosses the budget.
func (m *Manager) Track(p *Pointer, size int64) {
	done := make(chan struct{})
	m.opChan <- managerOp{add: &entry{ptr: p, size: size, effectiveTime: p.LastUsed()}, done: done}
	<-done
}

// Forget removes p from tracking without evicting it (the caller already
// handled eviction itself, e.g. an explicit RemoveObject).
func (m *Manager) Forget(p *Pointer) {
	done := make(chan struct{})
	m.opChan <- managerOp{del: p, done: done}
	<-done
}

// CurrentMemory reports the manager's current resident-byte accounting.
func (m *Manager) CurrentMemory() int64 { return m.currentMemory.Load() }

func (m *Manager) run() {
	for op := range m.opChan {
		if op.add != nil {
			m.add(*op.add)
		} else if op.del != nil {
			m.remove(op.del)
		}
		if op.done != nil {
			close(op.done)
		}
	}
}

func (m *Manager) add(e entry) {
	if old, ok := m.index[e.ptr]; ok {
		m.tree.Delete(old)
		m.currentMemory.Add(-old.size)
	}
	m.seq++
	e.seq = m.seq
	m.tree.ReplaceOrInsert(e)
	m.index[e.ptr] = e
	m.currentMemory.Add(e.size)

	if m.memoryBudget > 0 && m.currentMemory.Load() > m.memoryBudget {
		m.cleanup()
	}
}

func (m *Manager) remove(p *Pointer) {
	e, ok := m.index[p]
	if !ok {
		return
	}
	m.tree.Delete(e)
	delete(m.index, p)
	m.currentMemory.Add(-e.size)
}

// cleanup evicts pointers oldest-first in the tree's order until resident memory
// falls to 75% of budget, mirroring storage/cache.go's "free until 75% of
// budget" target. Dirty pointers are written through before their bytes
// are freed (Pointer.evict handles that). A pointer pinned by a live
// dereference scope is skipped rather than evicted — freeing memory a
// goroutine observed inside an open scope is the one thing this cache
// must never do — so cleanup walks past pinned entries to the next
// oldest unpinned one instead of stopping at the global LRU head.
func (m *Manager) cleanup() {
	target := m.memoryBudget * 75 / 100

	for m.currentMemory.Load() > target {
		var victim entry
		found := false
		m.tree.Ascend(func(e entry) bool {
			if pinned(e.ptr) {
				return true // keep walking past anything a live scope still holds
			}
			victim = e
			found = true
			return false // stop at the oldest unpinned item
		})
		if !found {
			// every resident entry is pinned by a live scope; nothing
			// more can be reclaimed this pass.
			return
		}

		freed := victim.ptr.evict()
		m.tree.Delete(victim)
		delete(m.index, victim.ptr)
		if freed >= 0 {
			m.currentMemory.Add(-int64(freed))
		} else {
			// write-through failed; the pointer itself stays present and
			// dirty, but its entry is already gone from the tree and index,
			// so its bytes leave the budget accounting here and the manager
			// does not revisit it unless it is Tracked again.
			m.currentMemory.Add(-victim.size)
		}
	}
}
