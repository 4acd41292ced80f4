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
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/docker/go-units"
	"github.com/fsnotify/fsnotify"
)

// ConfigT holds every tunable a running process reads more than once.
// Grounded on storage/settings.go's SettingsT/Settings pair, generalized
// from a SCM-callable settings bag to a config file loaded once and
// hot-reloaded on write.
type ConfigT struct {
	CacheCapacity string  `json:"cache_capacity"` // human size, e.g. "8GiB"; parsed with go-units
	GCThreads     int     `json:"gc_threads"`
	PoolSize      int     `json:"pool_size"`
	PushdownRatio float64 `json:"pushdown_ratio"`
	LogLevel      string  `json:"log_level"`      // "debug", "info", "warn", "error"
	SnapshotPath  string  `json:"snapshot_path"`   // local directory for checkpoint/restore; empty disables it
	DashboardAddr string  `json:"dashboard_addr"`  // e.g. ":8090"; empty disables the status dashboard
}

// Config is the process-wide live settings bag, mutated only through
// reload so readers never observe a half-written struct.
var Config ConfigT = ConfigT{
	CacheCapacity: "4GiB",
	GCThreads:     4,
	PoolSize:      450,
	PushdownRatio: 0.97,
	LogLevel:      "info",
}

var configMu sync.RWMutex

// CacheCapacityBytes parses Config.CacheCapacity via go-units (accepting
// forms like "4GiB", "512MB", "1024") with binary multiples, so "1GiB" is
// 1<<30 bytes.
func CacheCapacityBytes() (int64, error) {
	configMu.RLock()
	raw := Config.CacheCapacity
	configMu.RUnlock()
	n, err := units.RAMInBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("farmem: invalid cache_capacity %q: %w", raw, err)
	}
	return n, nil
}

// LoadConfig reads path as JSON into Config, replacing it wholesale.
func LoadConfig(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("farmem: reading config %s: %w", path, err)
	}
	var c ConfigT
	if err := json.Unmarshal(b, &c); err != nil {
		return fmt.Errorf("farmem: parsing config %s: %w", path, err)
	}
	configMu.Lock()
	Config = c
	configMu.Unlock()
	return nil
}

// WatchConfig reloads path whenever it changes on disk, applying
// live-safe tunables (pushdown_ratio, log_level, gc_threads) without a
// restart. cache_capacity and pool_size still take effect only on the
// next Build/Dial, the same way ShardSize only takes effect for shards
// created after the setting changes.
func WatchConfig(path string, m *Manager) (func() error, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("farmem: creating config watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("farmem: watching config %s: %w", path, err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := LoadConfig(path); err != nil {
					log.Printf("farmem: config reload failed: %v", err)
					continue
				}
				applyLiveSafe(m)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("farmem: config watcher error: %v", err)
			}
		}
	}()

	return w.Close, nil
}

// applyLiveSafe pushes the subset of Config that is safe to change without
// tearing anything down into the already-running manager.
func applyLiveSafe(m *Manager) {
	if m == nil {
		return
	}
	configMu.RLock()
	ratio := Config.PushdownRatio
	configMu.RUnlock()

	m.mu.Lock()
	for _, r := range m.costs {
		r.SetPushdownRatio(ratio)
	}
	m.mu.Unlock()
}
