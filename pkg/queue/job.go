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

// Package queue implements the fair, staged, cancellable job scheduler (spec
// §4.3): a two-level round-robin over (base, item) jobs sitting on top of
// three shared stage pools.
package queue

import (
	"context"
	"time"
)

// Job identifies one unit of work: embed item ItemID belonging to base
// BaseID. CreatedAt is the job token: it uniquely identifies this
// submission and lets callers detect a superseded run.
type Job struct {
	BaseID    string
	ItemID    string
	CreatedAt time.Time
}

// Stage names the three pool-gated phases a task can run work under. Any
// other stage name bypasses pooling entirely (spec §4.3: "Any stage name not
// in the set bypasses the pool").
type Stage string

const (
	StageRead  Stage = "read"
	StageEmbed Stage = "embed"
	StageWrite Stage = "write"
)

// TaskContext is handed to every enqueued task. It exposes the job,
// cooperative cancellation, the stage runner, and progress reporting -
// spec §4.3's "{job, cancellationSignal, runStage, updateProgress}".
type TaskContext struct {
	Job Job

	ctx     context.Context
	manager *Manager
}

// Context returns the per-job context. Done() fires when the job is
// cancelled via Manager.Cancel and also once the job settles; Err() then
// returns context.Canceled. The stage runner, the embedding pipeline and
// DirectoryReader turn that cancellation into the distinguished abort error.
func (tc *TaskContext) Context() context.Context {
	return tc.ctx
}

// Done mirrors ctx.Done() for callers that only want the cancellation
// channel ("the cancellation signal" of spec §4.3).
func (tc *TaskContext) Done() <-chan struct{} {
	return tc.ctx.Done()
}

// RunStage routes body through the shared pool for stage, or runs it
// directly if stage isn't one of StageRead/StageEmbed/StageWrite.
func RunStage[T any](tc *TaskContext, stage Stage, body func(ctx context.Context) (T, error)) (T, error) {
	pool := tc.manager.poolFor(stage)
	return runInPool(tc.ctx, pool, stage, body)
}

// UpdateProgress reports progress for the task's item. See
// Manager.UpdateProgress for throttling semantics.
func (tc *TaskContext) UpdateProgress(value int, immediate bool) {
	tc.manager.UpdateProgress(tc.Job.ItemID, value, immediate)
}
