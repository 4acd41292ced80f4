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
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Stat is the dashboard's JSON-serialized status snapshot, grounded on
// storage/dashboard.go's cache_stat builtin (current_memory/memory_budget)
// generalized with the prefetcher and cost-estimator counters that builtin
// never had a use for.
type Stat struct {
	CurrentMemory    int64   `json:"current_memory"`
	MemoryBudget     int64   `json:"memory_budget"`
	PrefetchDispatch int64   `json:"prefetch_dispatches"`
	PushdownRatio    float64 `json:"pushdown_ratio"`
}

// StatSource is whatever can produce a fresh Stat on demand; farmem.Manager
// implements it directly with its Stat method (cmd/client serves it), and
// transport stays free of a dependency on farmem.
type StatSource interface {
	Stat() Stat
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Dashboard serves a snapshot over plain HTTP GET and pushes the same
// snapshot on an interval to any connected WebSocket client, the combined
// shape of storage/dashboard.go's cache_stat call and scm/network.go's
// websocket upgrade closure, generalized into a standing HTTP handler
// instead of two separate SCM-callable builtins.
type Dashboard struct {
	source StatSource
	period time.Duration
}

// NewDashboard creates a dashboard reading fresh stats from source every
// period (defaulting to one second, matching scm/metrics.go's sampler
// tick).
func NewDashboard(source StatSource, period time.Duration) *Dashboard {
	if period <= 0 {
		period = time.Second
	}
	return &Dashboard{source: source, period: period}
}

// ServeHTTP answers GET /stat with one JSON snapshot, and GET /ws by
// upgrading to a WebSocket that streams a snapshot every period until the
// client disconnects.
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/ws" {
		d.serveWS(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d.source.Stat())
}

func (d *Dashboard) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	ticker := time.NewTicker(d.period)
	defer ticker.Stop()
	for range ticker.C {
		if err := ws.WriteJSON(d.source.Stat()); err != nil {
			return
		}
	}
}
