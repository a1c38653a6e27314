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

	"github.com/kraklabs/kie/internal/concurrency"
	"github.com/kraklabs/kie/pkg/metrics"
)

// poolFor resolves a stage name to its shared pool. Stage names outside
// {read, embed, write} bypass pooling, per spec §4.3.
func (m *Manager) poolFor(stage Stage) *concurrency.Pool {
	switch stage {
	case StageRead:
		return m.ioPool
	case StageEmbed:
		return m.embedPool
	case StageWrite:
		return m.writePool
	default:
		return nil
	}
}

// runInPool runs body through pool if non-nil, otherwise calls it directly.
// stage labels the ActiveJobs/StagePoolInUse gauges while body executes, per
// spec §4.3's per-stage pooling.
func runInPool[T any](ctx context.Context, pool *concurrency.Pool, stage Stage, body func(ctx context.Context) (T, error)) (T, error) {
	if pool == nil {
		return body(ctx)
	}
	return concurrency.Run(ctx, pool, func() (T, error) {
		metrics.IncStageActive(string(stage))
		metrics.ReportStagePoolInUse(string(stage), pool.InUse())
		defer func() {
			metrics.DecStageActive(string(stage))
			metrics.ReportStagePoolInUse(string(stage), pool.InUse())
		}()
		return body(ctx)
	})
}
