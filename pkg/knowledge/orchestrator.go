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

package knowledge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/config"
	"github.com/kraklabs/kie/pkg/metrics"
	"github.com/kraklabs/kie/pkg/queue"
	"github.com/kraklabs/kie/pkg/readers"
	"github.com/kraklabs/kie/pkg/vectorstore"
)

// StatusChangeFunc is the caller-supplied status channel of spec §4.9/§6:
// status is one of "ocr", "embed", "completed", "failed"; errMessage is
// non-empty only when status is "failed".
type StatusChangeFunc func(status string, errMessage string)

// Orchestrator is the stateful front door external collaborators drive:
// process, cancel, progress, and status, all keyed by item id.
type Orchestrator struct {
	manager   *queue.Manager
	processor *Processor
	store     *vectorstore.Store
	logger    *slog.Logger

	mu        sync.Mutex
	jobTokens map[string]time.Time
}

// NewOrchestrator wires an Orchestrator from its collaborators. logger
// defaults to slog.Default() when nil.
func NewOrchestrator(manager *queue.Manager, processor *Processor, store *vectorstore.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		manager:   manager,
		processor: processor,
		store:     store,
		logger:    logger,
		jobTokens: make(map[string]time.Time),
	}
}

// Process enqueues item for ingestion against base. It never returns an
// error to the caller: every failure mode (reader errors, embedding
// failures, cancellation) is captured and reported only through
// onStatusChange, per spec §4.9 ("the orchestrator never throws back to the
// caller").
func (o *Orchestrator) Process(ctx context.Context, base config.KnowledgeBaseConfig, item readers.Item, onStatusChange StatusChangeFunc) {
	createdAt := time.Now()

	o.mu.Lock()
	o.jobTokens[item.ID] = createdAt
	o.mu.Unlock()

	job := queue.Job{BaseID: base.ID, ItemID: item.ID, CreatedAt: createdAt}

	emit := func(status, errMessage string) {
		o.mu.Lock()
		current, ok := o.jobTokens[item.ID]
		valid := ok && current.Equal(createdAt)
		o.mu.Unlock()
		if !valid {
			return
		}
		if onStatusChange != nil {
			onStatusChange(status, errMessage)
		}
	}

	future, err := queue.Enqueue[struct{}](o.manager, ctx, job, func(tc *queue.TaskContext) (struct{}, error) {
		err := o.processor.Process(tc, base, item,
			func(stage string) {
				// Only ocr/embed are surfaced as status transitions, per
				// spec §4.9; "read" has no caller-facing status.
				if stage == "ocr" || stage == "embed" {
					emit(stage, "")
				}
			},
			nil,
		)
		return struct{}{}, err
	})
	if err != nil {
		metrics.ReportJobSettled(base.ID, "failed")
		emit("failed", err.Error())
		o.finishToken(item.ID, createdAt)
		o.logger.Error("knowledge.process.enqueue_failed", "itemId", item.ID, "baseId", base.ID, "err", err)
		return
	}

	go func() {
		_, runErr := future.Wait(context.Background())
		defer o.finishToken(item.ID, createdAt)

		switch {
		case runErr == nil:
			o.manager.UpdateProgress(item.ID, 100, true)
			metrics.ReportJobSettled(base.ID, "completed")
			emit("completed", "")
		case kieerrors.IsAbort(runErr):
			metrics.ReportJobSettled(base.ID, "failed")
			emit("failed", "Cancelled")
		default:
			o.logger.Error("knowledge.process.failed", "itemId", item.ID, "baseId", base.ID, "err", runErr)
			metrics.ReportJobSettled(base.ID, "failed")
			emit("failed", runErr.Error())
		}
	}()
}

// finishToken removes item.ID's job token only if it still belongs to this
// job (spec §4.9: "removed only if it still belongs to this job").
func (o *Orchestrator) finishToken(itemID string, createdAt time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if current, ok := o.jobTokens[itemID]; ok && current.Equal(createdAt) {
		delete(o.jobTokens, itemID)
	}
}

// Cancel aborts itemID's job, if any.
func (o *Orchestrator) Cancel(itemID string) queue.CancelResult {
	return o.manager.Cancel(itemID)
}

// ClearProgress removes itemID's tracked progress value.
func (o *Orchestrator) ClearProgress(itemID string) {
	o.manager.ClearProgress(itemID)
}

// RemoveVectors deletes every node with external_id == item.ID from base's
// store. Failure is logged and swallowed, per spec §4.9 ("best-effort
// cleanup").
func (o *Orchestrator) RemoveVectors(ctx context.Context, base config.KnowledgeBaseConfig, item readers.Item) {
	if _, err := o.store.DeleteByExternalId(ctx, base.ID, item.ID); err != nil {
		o.logger.Error("knowledge.remove_vectors.failed", "itemId", item.ID, "baseId", base.ID, "err", err)
	}
}

// IsQueued reports whether itemID has a job sitting in the queue.
func (o *Orchestrator) IsQueued(itemID string) bool {
	return o.manager.IsQueued(itemID)
}

// IsProcessing reports whether itemID's job is currently executing.
func (o *Orchestrator) IsProcessing(itemID string) bool {
	return o.manager.IsProcessing(itemID)
}

// GetProgress returns itemID's last committed progress value, if present.
func (o *Orchestrator) GetProgress(itemID string) (int, bool) {
	return o.manager.GetProgress(itemID)
}

// GetQueueStatus returns a point-in-time snapshot of scheduler occupancy.
func (o *Orchestrator) GetQueueStatus() queue.Status {
	return o.manager.GetStatus()
}
