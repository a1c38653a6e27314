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

// Package metrics exposes the engine's Prometheus instrumentation: queue
// depth, active jobs per stage, and embedding batch latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueDepth tracks the total number of jobs waiting across all bases,
	// mirroring queue.Status.TotalQueued.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kie",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Total number of jobs currently queued across all bases.",
	})

	// ActiveJobs tracks running jobs by stage (ocr, read, embed, write).
	ActiveJobs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kie",
		Subsystem: "queue",
		Name:      "active_jobs",
		Help:      "Number of jobs currently executing, by stage.",
	}, []string{"stage"})

	// StagePoolInUse tracks how many of a stage pool's slots are occupied.
	StagePoolInUse = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kie",
		Subsystem: "queue",
		Name:      "stage_pool_in_use",
		Help:      "Occupied slots in a stage's bounded concurrency pool.",
	}, []string{"stage"})

	// EmbeddingBatchDuration observes how long one embedding batch call
	// takes, per spec §4.6's DefaultBatchSize-sized batches.
	EmbeddingBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kie",
		Subsystem: "embedding",
		Name:      "batch_duration_seconds",
		Help:      "Duration of a single embedding batch call.",
		Buckets:   prometheus.DefBuckets,
	})

	// JobsTotal counts completed jobs by base and terminal status
	// (completed, failed).
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kie",
		Subsystem: "knowledge",
		Name:      "jobs_total",
		Help:      "Completed ingestion jobs, by base id and terminal status.",
	}, []string{"base_id", "status"})
)
