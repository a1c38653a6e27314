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

package metrics

// ReportQueueStatus publishes the scheduler's current total queued count to
// QueueDepth. It takes the plain count rather than a pkg/queue.Status so
// this package stays import-free of pkg/queue, which calls into it on every
// scheduling pass.
func ReportQueueStatus(totalQueued int) {
	QueueDepth.Set(float64(totalQueued))
}

// ReportJobSettled increments JobsTotal for baseID's terminal status
// ("completed" or "failed").
func ReportJobSettled(baseID, status string) {
	JobsTotal.WithLabelValues(baseID, status).Inc()
}

// IncStageActive and DecStageActive track the number of jobs currently
// executing stage. They're increments rather than an absolute Set because
// several jobs can occupy the same stage pool concurrently.
func IncStageActive(stage string) {
	ActiveJobs.WithLabelValues(stage).Inc()
}

func DecStageActive(stage string) {
	ActiveJobs.WithLabelValues(stage).Dec()
}

// ReportStagePoolInUse sets the number of occupied slots in stage's shared
// concurrency pool.
func ReportStagePoolInUse(stage string, n int) {
	StagePoolInUse.WithLabelValues(stage).Set(float64(n))
}
