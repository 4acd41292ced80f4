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

import (
	"github.com/launix-de/farmem/cache"
	"github.com/launix-de/farmem/predict"
)

// InduceFunc derives a pattern from a consecutive pair of observed indices
// (e.g. cur-prev for a linear scan).
type InduceFunc func(prevIdx, curIdx int64) int64

// InferFunc applies one step of a pattern to an index.
type InferFunc func(idx, pattern int64) int64

// MapFunc resolves an index to the generic pointer that owns it, or nil
// if the index is out of range.
type MapFunc func(idx int64) *cache.Pointer

// Dynamic is the access-history-driven prefetcher. Three pure functions
// fixed at construction time parametrize it over whatever container shape
// it observes: linear arrays, strided arrays, or anything else that can
// be described by an induce/infer/map triple.
type Dynamic struct {
	trend  *predict.Trend
	induce InduceFunc
	infer  InferFunc
	mapFn  MapFunc
	pool   *Pool
	lookahead int

	lastIdx  int64
	haveLast bool
}

// NewDynamic creates a dynamic prefetcher with trend window w, dispatching
// up to lookahead speculative fetches per successful prediction through
// pool.
func NewDynamic(w, lookahead int, induce InduceFunc, infer InferFunc, mapFn MapFunc, pool *Pool) *Dynamic {
	if lookahead < 1 {
		lookahead = 1
	}
	return &Dynamic{
		trend:     predict.NewTrend(w),
		induce:    induce,
		infer:     infer,
		mapFn:     mapFn,
		pool:      pool,
		lookahead: lookahead,
	}
}

// Observe records an access at idx. The first observation only seeds
// lastIdx (there is no pair to induce a pattern from yet). Every
// subsequent observation feeds the induced pattern to the trend
// predictor and, on a successful match, dispatches up to lookahead
// speculative fetches for the predicted following indices.
func (d *Dynamic) Observe(idx int64) {
	defer func() {
		d.lastIdx = idx
		d.haveLast = true
	}()

	if !d.haveLast {
		return
	}

	pattern := d.induce(d.lastIdx, idx)
	d.trend.AddHistory(pattern)
	if !d.trend.Success() {
		return
	}

	cur := idx
	for k := 0; k < d.lookahead; k++ {
		p := d.trend.GetTrend(k)
		cur = d.infer(cur, p)
		ptr := d.mapFn(cur)
		if ptr == nil {
			continue
		}
		d.pool.Dispatch(func() { _, _ = ptr.Fetch() })
	}
}

// TrendLen exposes the underlying predictor's detected trend length, for
// diagnostics and the status dashboard.
func (d *Dynamic) TrendLen() int { return d.trend.TrendLen() }
