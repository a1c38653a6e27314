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

// Package embedding implements the batched embedding pipeline of spec §4.6:
// EmbedNodes walks a node list in fixed-size batches, calling the resolved
// base's embedder once per batch and reporting coarse progress as it goes.
package embedding

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/metrics"
	provembed "github.com/kraklabs/kie/pkg/providers/embedding"
	"github.com/kraklabs/kie/pkg/readers"
)

// DefaultBatchSize is the pipeline's batch size, named in spec §4.6.
const DefaultBatchSize = 10

// ProgressFunc reports embedding progress as a percentage in [0, 100].
type ProgressFunc func(percent int)

// EmbedNodes embeds nodes in place, DefaultBatchSize at a time, using
// embedder. It returns early on an empty input. Any batch failure aborts the
// whole call: the error is wrapped as "embedding documents failed" with the
// cause preserved, and partial results are discarded. Cancellation is
// checked between batches; an observed cancellation yields a distinguished
// abort error. When limiter is non-nil, each batch waits for a token before
// calling embedder, per spec §B's per-base rate limit.
func EmbedNodes(ctx context.Context, nodes []readers.Node, embedder provembed.Embedder, limiter *rate.Limiter, onProgress ProgressFunc) ([]readers.Node, error) {
	if len(nodes) == 0 {
		return nodes, nil
	}

	total := len(nodes)
	for start := 0; start < total; start += DefaultBatchSize {
		select {
		case <-ctx.Done():
			return nil, kieerrors.NewAbort("embedding cancelled")
		default:
		}

		end := start + DefaultBatchSize
		if end > total {
			end = total
		}
		batch := nodes[start:end]

		texts := make([]string, len(batch))
		for i, n := range batch {
			texts[i] = n.Text
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, kieerrors.NewAbort("embedding cancelled")
			}
		}

		batchStart := time.Now()
		vectors, err := embedder.EmbedMany(ctx, texts)
		metrics.EmbeddingBatchDuration.Observe(time.Since(batchStart).Seconds())
		if err != nil {
			return nil, kieerrors.Wrap(err, kieerrors.KindTransient, "embedding documents failed")
		}
		for i := range batch {
			nodes[start+i].Vector = vectors[i]
		}

		if onProgress != nil {
			percent := int(math.Round(float64(end) / float64(total) * 100))
			onProgress(percent)
		}
	}

	return nodes, nil
}
