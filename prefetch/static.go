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

package prefetch

// Static issues a fixed, explicitly-given prefetch hint: count objects
// starting at start, stepping by step, with no history or trend tracking
// involved.
type Static struct {
	mapFn MapFunc
	pool  *Pool
}

// NewStatic creates a static prefetcher dispatching through pool.
func NewStatic(mapFn MapFunc, pool *Pool) *Static {
	return &Static{mapFn: mapFn, pool: pool}
}

// Hint dispatches count speculative fetches for start, start+step,
// start+2*step, ....
func (s *Static) Hint(start, step int64, count int) {
	idx := start
	for i := 0; i < count; i++ {
		ptr := s.mapFn(idx)
		if ptr != nil {
			p := ptr
			s.pool.Dispatch(func() { _, _ = p.Fetch() })
		}
		idx += step
	}
}
