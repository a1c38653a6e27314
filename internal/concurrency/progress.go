// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package concurrency

import (
	"sync"
	"time"
)

// entry holds the last reported value for one item and when it was set.
type entry struct {
	value     int
	lastTouch time.Time
}

// ProgressTracker maps itemId -> (progress in [0,100], lastTouched), with
// lazy TTL expiry: Get returns "absent" once now-lastTouched exceeds the
// configured TTL, but nothing runs in the background to enforce that — it is
// checked only when someone reads.
type ProgressTracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewProgressTracker creates a tracker with the given TTL.
func NewProgressTracker(ttl time.Duration) *ProgressTracker {
	return &ProgressTracker{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Set stores v (clamped to [0,100]) as the current progress for id.
func (t *ProgressTracker) Set(id string, v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = entry{value: v, lastTouch: t.now()}
}

// Get returns the progress for id and true, unless the entry is absent or has
// expired, in which case it returns (0, false).
func (t *ProgressTracker) Get(id string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return 0, false
	}
	if t.ttl > 0 && t.now().Sub(e.lastTouch) > t.ttl {
		return 0, false
	}
	return e.value, true
}

// GetMany returns the progress for each of ids that is present and unexpired.
// Absent or expired ids are simply omitted from the result.
func (t *ProgressTracker) GetMany(ids []string) map[string]int {
	out := make(map[string]int, len(ids))
	for _, id := range ids {
		if v, ok := t.Get(id); ok {
			out[id] = v
		}
	}
	return out
}

// Delete removes the entry for id, if any.
func (t *ProgressTracker) Delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}
