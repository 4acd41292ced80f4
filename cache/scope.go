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
	"sync"
	"sync/atomic"

	"github.com/jtolds/gls"
)

// scopeKey is the gls.Values key the current goroutine's active Scope is
// stashed under. Go has no native thread-local storage; gls.ContextManager
// is the mechanism storage/compute.go and storage/scan.go already use to
// smuggle per-goroutine state across a gls.Go boundary, so the
// dereference-scope reference count reuses it rather than inventing a
// second propagation path.
var mgr = gls.NewContextManager()

const scopeKey = "farmem.derefscope"

// Scope is the one hard invariant in the system: no byte of cached memory
// is freed while any goroutine's dereference-scope reference count is
// non-zero. A Scope pins every pointer it was handed (via Pin) against
// eviction until the Enter call that opened it returns, including pins
// made from goroutines spawned with Go while the scope is open.
type Scope struct {
	refcount atomic.Int64
	pins     sync.Map // *Pointer -> struct{}, de-duplicates repeat Pin calls
	closed   atomic.Bool
}

// pinsMu and pinnedBy are the eviction manager's global view of which
// pointers are currently held live by at least one open scope, across
// every goroutine. Pin populates it; a scope's release empties its own
// contribution back out when Enter's fn returns.
var (
	pinsMu   sync.Mutex
	pinnedBy = make(map[*Pointer]map[*Scope]struct{})
)

// pinned reports whether p is held by any currently-open scope anywhere
// in the process. The eviction manager consults this before freeing a
// pointer's bytes.
func pinned(p *Pointer) bool {
	pinsMu.Lock()
	defer pinsMu.Unlock()
	_, ok := pinnedBy[p]
	return ok
}

// release drops every pointer this scope pinned from the global registry,
// called once when Enter's fn returns.
func (s *Scope) release() {
	pinsMu.Lock()
	defer pinsMu.Unlock()
	s.pins.Range(func(key, _ any) bool {
		p := key.(*Pointer)
		if set, ok := pinnedBy[p]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(pinnedBy, p)
			}
		}
		return true
	})
}

// Enter opens a new dereference scope for the calling goroutine and runs
// fn with it active; any goroutine spawned with Go from within fn (or from
// a goroutine spawned the same way, transitively) sees the same Scope from
// Current. The scope is torn down when fn returns: its pins are released
// from the global registry, making any of them eligible for eviction again
// unless another live scope still holds them.
func Enter(fn func(*Scope)) {
	s := &Scope{}
	mgr.SetValues(gls.Values{scopeKey: s}, func() {
		fn(s)
		s.closed.Store(true)
		s.release()
	})
}

// Go runs fn in a new goroutine that inherits the calling goroutine's
// active scope, the same propagation gls.Go gives storage/compute.go's
// worker pool.
func Go(fn func()) {
	mgr.Go(fn)
}

// Current returns the calling goroutine's active scope, or nil if none is
// open (Deref/Fetch outside any Enter is a programming error the caller
// must avoid; cache.Pointer does not itself check for a live scope).
func Current() *Scope {
	v, ok := mgr.GetValue(scopeKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Scope)
	return s
}

// Pin registers p as referenced for the lifetime of this scope, bumping
// the scope's refcount the first time p is pinned and registering it in
// the global pinned-pointer set the eviction manager consults. Repeat
// pins of the same pointer within one scope are idempotent.
func (s *Scope) Pin(p *Pointer) {
	if _, loaded := s.pins.LoadOrStore(p, struct{}{}); !loaded {
		s.refcount.Add(1)
		pinsMu.Lock()
		set, ok := pinnedBy[p]
		if !ok {
			set = make(map[*Scope]struct{})
			pinnedBy[p] = set
		}
		set[s] = struct{}{}
		pinsMu.Unlock()
	}
}

// RefCount reports how many distinct pointers are currently pinned by
// this scope.
func (s *Scope) RefCount() int64 {
	return s.refcount.Load()
}

// Closed reports whether this scope's Enter call has returned. A manager
// checking whether it is safe to evict should not rely on Closed alone —
// RefCount reaching zero is necessary but the authority is the eviction
// manager's own global view across every live scope, not any one scope in
// isolation.
func (s *Scope) Closed() bool {
	return s.closed.Load()
}
