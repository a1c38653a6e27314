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

package queue

import "context"

// taskResult is the type-erased settlement of one job, stashed on jobEntry
// and delivered through resultCh.
type taskResult struct {
	value any
	err   error
}

// Future is what Enqueue returns: a handle to a job's eventual result.
type Future[T any] struct {
	ch chan taskResult
}

// Wait blocks until the job settles or ctx is cancelled.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	select {
	case r, ok := <-f.ch:
		if !ok {
			return zero, ctx.Err()
		}
		if r.err != nil {
			return zero, r.err
		}
		v, _ := r.value.(T)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
