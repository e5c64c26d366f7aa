// go-serialboot
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-serialboot.
//
// go-serialboot is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-serialboot is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-serialboot; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package detection

import (
	"maps"
	"time"

	"github.com/ZaparooProject/go-serialboot/internal/syncutil"
)

// resultCache remembers the last detection result per mode for the life of
// the process, so repeated Detect calls skip opening every port again.
type resultCache struct {
	entries map[Mode]cacheEntry
	mu      syncutil.RWMutex
}

type cacheEntry struct {
	stored  time.Time
	devices []DeviceInfo
}

var cache = &resultCache{entries: make(map[Mode]cacheEntry)}

func (c *resultCache) get(mode Mode, ttl time.Duration) ([]DeviceInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[mode]
	if !ok || time.Since(entry.stored) > ttl {
		return nil, false
	}
	return cloneDevices(entry.devices), true
}

func (c *resultCache) put(mode Mode, devices []DeviceInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(devices) == 0 {
		delete(c.entries, mode)
		return
	}
	c.entries[mode] = cacheEntry{devices: cloneDevices(devices), stored: time.Now()}
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func cloneDevices(devices []DeviceInfo) []DeviceInfo {
	out := make([]DeviceInfo, len(devices))
	for i, d := range devices {
		d.Metadata = maps.Clone(d.Metadata)
		out[i] = d
	}
	return out
}

// ClearCache forgets every cached detection result.
func ClearCache() {
	cache.clear()
}
