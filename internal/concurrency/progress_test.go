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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_ExpiresStrictlyAfterTTL(t *testing.T) {
	tr := NewProgressTracker(50 * time.Millisecond)
	clock := time.Now()
	tr.now = func() time.Time { return clock }

	tr.Set("x", 20)
	v, ok := tr.Get("x")
	assert.True(t, ok)
	assert.Equal(t, 20, v)

	clock = clock.Add(49 * time.Millisecond)
	v, ok = tr.Get("x")
	assert.True(t, ok)
	assert.Equal(t, 20, v)

	clock = clock.Add(2 * time.Millisecond) // now 51ms elapsed
	_, ok = tr.Get("x")
	assert.False(t, ok)
}

func TestProgressTracker_ClampsToRange(t *testing.T) {
	tr := NewProgressTracker(time.Minute)
	tr.Set("x", 120)
	v, ok := tr.Get("x")
	assert.True(t, ok)
	assert.Equal(t, 100, v)

	tr.Set("y", -5)
	v, ok = tr.Get("y")
	assert.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestProgressTracker_DeleteRemovesEntry(t *testing.T) {
	tr := NewProgressTracker(time.Minute)
	tr.Set("x", 10)
	tr.Delete("x")
	_, ok := tr.Get("x")
	assert.False(t, ok)
}

func TestProgressTracker_GetMany(t *testing.T) {
	tr := NewProgressTracker(time.Minute)
	tr.Set("a", 10)
	tr.Set("b", 20)
	got := tr.GetMany([]string{"a", "b", "c"})
	assert.Equal(t, map[string]int{"a": 10, "b": 20}, got)
}
