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
	"log/slog"
	"sync"
	"time"

	"github.com/kraklabs/kie/internal/concurrency"
	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/config"
	"github.com/kraklabs/kie/pkg/metrics"
)

// CancelResult is the outcome of a Cancel call.
type CancelResult string

const (
	Cancelled CancelResult = "cancelled"
	Ignored   CancelResult = "ignored"
)

var (
	// ErrAlreadyEnqueued is returned when a job for the same ItemID is
	// already queued or processing.
	ErrAlreadyEnqueued = kieerrors.New(kieerrors.KindIntegrity, "already enqueued")
	// ErrQueueFull is returned when MaxQueueSize would be exceeded.
	ErrQueueFull = kieerrors.New(kieerrors.KindIntegrity, "queue is full")
)

// jobEntry is the manager's internal, type-erased bookkeeping record for one
// submitted job.
type jobEntry struct {
	job        Job
	ctx        context.Context
	cancel     context.CancelFunc
	taskFn     func(tc *TaskContext) (any, error)
	resultCh   chan taskResult
	processing bool
}

type baseQueue struct {
	items []*jobEntry
}

// Manager is the fair two-level scheduler described in spec §4.3.
type Manager struct {
	cfg    config.EngineConfig
	logger *slog.Logger

	ioPool    *concurrency.Pool
	embedPool *concurrency.Pool
	writePool *concurrency.Pool

	progress *concurrency.ProgressTracker

	mu           sync.Mutex
	baseQueues   map[string]*baseQueue
	lastServed   map[string]int
	arrival      map[string]int
	arrivalSeq   int
	serviceSeq   int
	activeGlobal int
	activeByBase map[string]int
	jobsByItem   map[string]*jobEntry
	totalQueued  int
	scheduling   bool

	progressMu sync.Mutex
	pending    map[string]*pendingProgress
	monotonic  map[string]int
}

type pendingProgress struct {
	value int
	timer *time.Timer
}

// New creates a Manager. cfg is normalized (all concurrency bounds clamped
// to >=1) before use.
func New(cfg config.EngineConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.Normalize()
	return &Manager{
		cfg:          cfg,
		logger:       logger,
		ioPool:       concurrency.NewPool(cfg.IOConcurrency),
		embedPool:    concurrency.NewPool(cfg.EmbeddingConcurrency),
		writePool:    concurrency.NewPool(cfg.WriteConcurrency),
		progress:     concurrency.NewProgressTracker(cfg.ProgressTTL()),
		baseQueues:   make(map[string]*baseQueue),
		lastServed:   make(map[string]int),
		arrival:      make(map[string]int),
		activeByBase: make(map[string]int),
		jobsByItem:   make(map[string]*jobEntry),
		pending:      make(map[string]*pendingProgress),
		monotonic:    make(map[string]int),
	}
}

// Enqueue submits job with task, returning a Future for its eventual result.
// It rejects synchronously with ErrAlreadyEnqueued or ErrQueueFull; every
// other failure surfaces through the returned Future.
func Enqueue[T any](m *Manager, ctx context.Context, job Job, task func(tc *TaskContext) (T, error)) (*Future[T], error) {
	wrapped := func(tc *TaskContext) (any, error) {
		return task(tc)
	}

	m.mu.Lock()
	if _, exists := m.jobsByItem[job.ItemID]; exists {
		m.mu.Unlock()
		return nil, ErrAlreadyEnqueued
	}
	if m.cfg.MaxQueueSize > 0 && m.totalQueued+1 > m.cfg.MaxQueueSize {
		m.mu.Unlock()
		return nil, ErrQueueFull
	}

	jobCtx, cancel := context.WithCancel(ctx)
	entry := &jobEntry{
		job:      job,
		ctx:      jobCtx,
		cancel:   cancel,
		taskFn:   wrapped,
		resultCh: make(chan taskResult, 1),
	}
	m.jobsByItem[job.ItemID] = entry

	bq, ok := m.baseQueues[job.BaseID]
	if !ok {
		bq = &baseQueue{}
		m.baseQueues[job.BaseID] = bq
		m.arrivalSeq++
		m.arrival[job.BaseID] = m.arrivalSeq
	}
	bq.items = append(bq.items, entry)
	m.totalQueued++

	m.scheduleLocked()
	m.mu.Unlock()

	return &Future[T]{ch: entry.resultCh}, nil
}

// scheduleLocked drives the round-robin admission loop. Caller must hold
// m.mu. A re-entrancy guard prevents recursive scheduling (settle handlers
// call back into this while already inside a scheduling pass).
func (m *Manager) scheduleLocked() {
	if m.scheduling {
		return
	}
	m.scheduling = true
	defer func() { m.scheduling = false }()

	for m.activeGlobal < m.cfg.GlobalConcurrency {
		entry, baseID, ok := m.nextStartableLocked()
		if !ok {
			break
		}
		m.startJobLocked(entry, baseID)
	}
	metrics.ReportQueueStatus(m.totalQueued)
}

// nextStartableLocked picks, among bases under their per-base limit with a
// queued job, the one least recently served (ties broken by arrival order).
// A base that has never been served ranks ahead of any base that has,
// regardless of when it first enqueued work, which is what gives every base
// a turn before any base gets a second one - round-robin fairness without
// depending on a position in a list that can change shape as bases come and
// go.
func (m *Manager) nextStartableLocked() (*jobEntry, string, bool) {
	var bestID string
	found := false
	for id, bq := range m.baseQueues {
		if len(bq.items) == 0 {
			continue
		}
		if m.activeByBase[id] >= m.cfg.PerBaseConcurrency {
			continue
		}
		if !found {
			bestID, found = id, true
			continue
		}
		if m.lastServed[id] < m.lastServed[bestID] {
			bestID = id
		} else if m.lastServed[id] == m.lastServed[bestID] && m.arrival[id] < m.arrival[bestID] {
			bestID = id
		}
	}
	if !found {
		return nil, "", false
	}
	bq := m.baseQueues[bestID]
	entry := bq.items[0]
	bq.items = bq.items[1:]
	m.totalQueued--
	m.serviceSeq++
	m.lastServed[bestID] = m.serviceSeq
	return entry, bestID, true
}

func (m *Manager) startJobLocked(entry *jobEntry, baseID string) {
	entry.processing = true
	m.activeGlobal++
	m.activeByBase[baseID]++
	go m.runJob(entry, baseID)
}

// runJob executes the task outside the manager lock, then settles counters,
// progress, and ordering before re-driving the scheduler.
func (m *Manager) runJob(entry *jobEntry, baseID string) {
	tc := &TaskContext{Job: entry.job, ctx: entry.ctx, manager: m}

	value, err := entry.taskFn(tc)

	m.mu.Lock()
	m.activeGlobal--
	m.activeByBase[baseID]--
	if m.activeByBase[baseID] <= 0 {
		delete(m.activeByBase, baseID)
	}
	delete(m.jobsByItem, entry.job.ItemID)
	m.pruneBaseLocked(baseID)
	m.scheduleLocked()
	m.mu.Unlock()

	m.clearProgressState(entry.job.ItemID)
	entry.cancel()

	entry.resultCh <- taskResult{value: value, err: err}
	close(entry.resultCh)
}

// pruneBaseLocked drops baseID from the ordering once its queue is empty and
// it has no active jobs, per spec §4.3 ("pruned from the ordering if now
// empty and idle"). Caller must hold m.mu.
func (m *Manager) pruneBaseLocked(baseID string) {
	bq, ok := m.baseQueues[baseID]
	if !ok || len(bq.items) > 0 || m.activeByBase[baseID] > 0 {
		return
	}
	delete(m.baseQueues, baseID)
	delete(m.lastServed, baseID)
	delete(m.arrival, baseID)
}

// Cancel aborts the job for itemID, if any. A queued job's future is
// rejected with the distinguished abort error; a processing job's
// cancellation signal is triggered, and its eventual settlement depends on
// whether the task observes the signal.
func (m *Manager) Cancel(itemID string) CancelResult {
	m.mu.Lock()
	entry, ok := m.jobsByItem[itemID]
	if !ok {
		m.mu.Unlock()
		return Ignored
	}

	if entry.processing {
		m.mu.Unlock()
		entry.cancel()
		return Cancelled
	}

	// Queued: remove from its base queue.
	bq := m.baseQueues[entry.job.BaseID]
	if bq != nil {
		for i, e := range bq.items {
			if e == entry {
				bq.items = append(bq.items[:i], bq.items[i+1:]...)
				m.totalQueued--
				break
			}
		}
	}
	delete(m.jobsByItem, itemID)
	m.pruneBaseLocked(entry.job.BaseID)
	metrics.ReportQueueStatus(m.totalQueued)
	m.mu.Unlock()

	m.clearProgressState(itemID)
	entry.cancel()
	entry.resultCh <- taskResult{err: kieerrors.NewAbort("cancelled before start")}
	close(entry.resultCh)
	return Cancelled
}

// IsQueued reports whether itemID has a job sitting in a queue.
func (m *Manager) IsQueued(itemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobsByItem[itemID]
	return ok && !e.processing
}

// IsProcessing reports whether itemID's job is currently executing.
func (m *Manager) IsProcessing(itemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobsByItem[itemID]
	return ok && e.processing
}

// Status is a point-in-time snapshot returned by GetStatus.
type Status struct {
	ActiveGlobal int
	ActiveByBase map[string]int
	QueuedByBase map[string]int
	TotalQueued  int
}

// GetStatus returns a snapshot of scheduler occupancy.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status{
		ActiveGlobal: m.activeGlobal,
		ActiveByBase: make(map[string]int, len(m.activeByBase)),
		QueuedByBase: make(map[string]int, len(m.baseQueues)),
		TotalQueued:  m.totalQueued,
	}
	for k, v := range m.activeByBase {
		s.ActiveByBase[k] = v
	}
	for k, bq := range m.baseQueues {
		s.QueuedByBase[k] = len(bq.items)
	}
	return s
}

// UpdateProgress reports a new progress value for itemID. Values are
// clamped to [0,100] and never allowed to decrease. Unless immediate is set
// or value reaches 100, the update is coalesced: the manager holds the
// maximum value seen during a PROGRESS_THROTTLE_MS window and commits once
// at the end of it.
func (m *Manager) UpdateProgress(itemID string, value int, immediate bool) {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	m.progressMu.Lock()
	defer m.progressMu.Unlock()

	last := m.monotonic[itemID]

	if immediate || value >= 100 {
		if p, ok := m.pending[itemID]; ok {
			p.timer.Stop()
			delete(m.pending, itemID)
		}
		m.commitProgressLocked(itemID, max(value, last))
		return
	}

	p, ok := m.pending[itemID]
	if !ok {
		p = &pendingProgress{value: max(value, last)}
		m.pending[itemID] = p
		p.timer = time.AfterFunc(m.cfg.ProgressThrottle(), func() {
			m.fireProgressTimer(itemID)
		})
		return
	}
	if value > p.value {
		p.value = value
	}
}

// fireProgressTimer commits whatever value accumulated during the throttle
// window for itemID.
func (m *Manager) fireProgressTimer(itemID string) {
	m.progressMu.Lock()
	defer m.progressMu.Unlock()
	p, ok := m.pending[itemID]
	if !ok {
		return
	}
	delete(m.pending, itemID)
	m.commitProgressLocked(itemID, p.value)
}

// commitProgressLocked publishes v as itemID's progress. Caller must hold
// m.progressMu.
func (m *Manager) commitProgressLocked(itemID string, v int) {
	m.monotonic[itemID] = v
	m.progress.Set(itemID, v)
}

// GetProgress returns itemID's last committed progress, if present and
// unexpired.
func (m *Manager) GetProgress(itemID string) (int, bool) {
	return m.progress.Get(itemID)
}

// GetProgressForItems returns committed progress for each of ids that is
// present and unexpired.
func (m *Manager) GetProgressForItems(ids []string) map[string]int {
	return m.progress.GetMany(ids)
}

// ClearProgress removes all progress state for itemID.
func (m *Manager) ClearProgress(itemID string) {
	m.clearProgressState(itemID)
}

// clearProgressState tears down pending timers and tracked values for
// itemID. Called both from ClearProgress and automatically when a job
// settles.
func (m *Manager) clearProgressState(itemID string) {
	m.progressMu.Lock()
	defer m.progressMu.Unlock()
	if p, ok := m.pending[itemID]; ok {
		p.timer.Stop()
		delete(m.pending, itemID)
	}
	delete(m.monotonic, itemID)
	m.progress.Delete(itemID)
}
