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

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/config"
)

func testManager(t *testing.T, cfg config.EngineConfig) *Manager {
	t.Helper()
	return New(cfg, nil)
}

func TestManager_FairnessAcrossBases(t *testing.T) {
	cfg := config.EngineConfig{GlobalConcurrency: 1, PerBaseConcurrency: 1, IOConcurrency: 1, EmbeddingConcurrency: 1, WriteConcurrency: 1}
	m := testManager(t, cfg)

	var mu sync.Mutex
	var order []string
	release := make(chan struct{})

	run := func(job Job) *Future[string] {
		f, err := Enqueue(m, context.Background(), job, func(tc *TaskContext) (string, error) {
			mu.Lock()
			order = append(order, job.ItemID)
			mu.Unlock()
			<-release
			return job.ItemID, nil
		})
		require.NoError(t, err)
		return f
	}

	now := time.Now()
	f1 := run(Job{BaseID: "A", ItemID: "i1", CreatedAt: now})
	time.Sleep(10 * time.Millisecond) // ensure i1 is picked up first
	f2 := run(Job{BaseID: "A", ItemID: "i2", CreatedAt: now})
	f3 := run(Job{BaseID: "B", ItemID: "i3", CreatedAt: now})

	// i1 is running; release it, then i3 (B) should run before i2 (A) since
	// B has never been served while A has, and the least-recently-served
	// base is picked first.
	release <- struct{}{}
	_, err := f1.Wait(context.Background())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	release <- struct{}{}
	_, err = f3.Wait(context.Background())
	require.NoError(t, err)

	release <- struct{}{}
	_, err = f2.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"i1", "i3", "i2"}, order)
}

func TestManager_DuplicateEnqueueRejected(t *testing.T) {
	cfg := config.EngineConfig{GlobalConcurrency: 1, PerBaseConcurrency: 1, IOConcurrency: 1, EmbeddingConcurrency: 1, WriteConcurrency: 1}
	m := testManager(t, cfg)

	block := make(chan struct{})
	_, err := Enqueue(m, context.Background(), Job{BaseID: "A", ItemID: "x"}, func(tc *TaskContext) (int, error) {
		<-block
		return 0, nil
	})
	require.NoError(t, err)

	_, err = Enqueue(m, context.Background(), Job{BaseID: "A", ItemID: "x"}, func(tc *TaskContext) (int, error) {
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrAlreadyEnqueued)
	close(block)
}

func TestManager_QueueFullRejected(t *testing.T) {
	cfg := config.EngineConfig{GlobalConcurrency: 1, PerBaseConcurrency: 1, IOConcurrency: 1, EmbeddingConcurrency: 1, WriteConcurrency: 1, MaxQueueSize: 1}
	m := testManager(t, cfg)

	block := make(chan struct{})
	_, err := Enqueue(m, context.Background(), Job{BaseID: "A", ItemID: "i1"}, func(tc *TaskContext) (int, error) {
		<-block
		return 0, nil
	})
	require.NoError(t, err)

	_, err = Enqueue(m, context.Background(), Job{BaseID: "A", ItemID: "i2"}, func(tc *TaskContext) (int, error) {
		return 0, nil
	})
	require.NoError(t, err) // queued, fits within MaxQueueSize=1

	_, err = Enqueue(m, context.Background(), Job{BaseID: "A", ItemID: "i3"}, func(tc *TaskContext) (int, error) {
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrQueueFull)
	close(block)
}

func TestManager_CancelBeforeStart(t *testing.T) {
	cfg := config.EngineConfig{GlobalConcurrency: 1, PerBaseConcurrency: 1, IOConcurrency: 1, EmbeddingConcurrency: 1, WriteConcurrency: 1}
	m := testManager(t, cfg)

	block := make(chan struct{})
	f1, err := Enqueue(m, context.Background(), Job{BaseID: "A", ItemID: "i1"}, func(tc *TaskContext) (int, error) {
		<-block
		return 1, nil
	})
	require.NoError(t, err)

	var i2Ran bool
	f2, err := Enqueue(m, context.Background(), Job{BaseID: "A", ItemID: "i2"}, func(tc *TaskContext) (int, error) {
		i2Ran = true
		return 2, nil
	})
	require.NoError(t, err)

	res := m.Cancel("i2")
	assert.Equal(t, Cancelled, res)
	assert.False(t, m.IsQueued("i2"))

	_, err = f2.Wait(context.Background())
	assert.True(t, kieerrors.IsAbort(err))

	close(block)
	v, err := f1.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.False(t, i2Ran)
}

func TestManager_CancelProcessingTriggersSignal(t *testing.T) {
	cfg := config.EngineConfig{GlobalConcurrency: 1, PerBaseConcurrency: 1, IOConcurrency: 1, EmbeddingConcurrency: 1, WriteConcurrency: 1}
	m := testManager(t, cfg)

	started := make(chan struct{})
	f, err := Enqueue(m, context.Background(), Job{BaseID: "A", ItemID: "i1"}, func(tc *TaskContext) (int, error) {
		close(started)
		<-tc.Done()
		return 0, kieerrors.NewAbort("observed cancellation")
	})
	require.NoError(t, err)
	<-started

	assert.True(t, m.IsProcessing("i1"))
	res := m.Cancel("i1")
	assert.Equal(t, Cancelled, res)

	_, err = f.Wait(context.Background())
	assert.True(t, kieerrors.IsAbort(err))
}

func TestManager_CancelIgnoredWhenUnknown(t *testing.T) {
	m := testManager(t, config.DefaultEngineConfig())
	assert.Equal(t, Ignored, m.Cancel("nope"))
}

func TestManager_ProgressThrottling(t *testing.T) {
	cfg := config.EngineConfig{GlobalConcurrency: 1, PerBaseConcurrency: 1, IOConcurrency: 1, EmbeddingConcurrency: 1, WriteConcurrency: 1, ProgressThrottleMs: 40}
	m := testManager(t, cfg)

	m.UpdateProgress("x", 20, false)
	_, ok := m.GetProgress("x")
	assert.False(t, ok)

	time.Sleep(60 * time.Millisecond)
	v, ok := m.GetProgress("x")
	require.True(t, ok)
	assert.Equal(t, 20, v)

	m.UpdateProgress("x", 10, false) // monotonic: must not regress
	time.Sleep(60 * time.Millisecond)
	v, ok = m.GetProgress("x")
	require.True(t, ok)
	assert.Equal(t, 20, v)

	m.UpdateProgress("x", 120, true) // immediate + clamp
	v, ok = m.GetProgress("x")
	require.True(t, ok)
	assert.Equal(t, 100, v)
}

func TestManager_ProgressClearedOnCompletion(t *testing.T) {
	m := testManager(t, config.DefaultEngineConfig())
	f, err := Enqueue(m, context.Background(), Job{BaseID: "A", ItemID: "i1"}, func(tc *TaskContext) (int, error) {
		tc.UpdateProgress(50, true)
		return 0, nil
	})
	require.NoError(t, err)
	_, err = f.Wait(context.Background())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, ok := m.GetProgress("i1")
	assert.False(t, ok)
}

func TestManager_RunStageBypassesPoolForUnknownStage(t *testing.T) {
	m := testManager(t, config.DefaultEngineConfig())
	f, err := Enqueue(m, context.Background(), Job{BaseID: "A", ItemID: "i1"}, func(tc *TaskContext) (int, error) {
		return RunStage(tc, Stage("ocr"), func(ctx context.Context) (int, error) {
			return 42, nil
		})
	})
	require.NoError(t, err)
	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
