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

// Package knowledge ties the readers, embedding pipeline, and vector store
// together into the per-item ingestion pipeline (§4.8) and the stateful
// front door callers actually drive, the Orchestrator (§4.9).
package knowledge

import (
	"context"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/config"
	"github.com/kraklabs/kie/pkg/embedding"
	"github.com/kraklabs/kie/pkg/providers"
	provembed "github.com/kraklabs/kie/pkg/providers/embedding"
	"github.com/kraklabs/kie/pkg/queue"
	"github.com/kraklabs/kie/pkg/readers"
	"github.com/kraklabs/kie/pkg/vectorstore"
)

// StageChangeFunc is notified each time the processor announces a new stage
// (spec §4.8: "ocr", "read", "embed").
type StageChangeFunc func(stage string)

// ProgressFunc reports embed-stage progress as a percentage.
type ProgressFunc func(percent int)

// Resolver is the subset of providers.Resolver the Processor depends on.
type Resolver interface {
	Resolve(base config.KnowledgeBaseConfig, forRerank bool) (providers.ResolvedBase, error)
}

// EmbedderRegistry is the subset of the embedding provider registry the
// Processor depends on.
type EmbedderRegistry interface {
	Resolve(providerID string) (provembed.Provider, error)
}

// Processor runs a single item through read, embed, and store. It holds no
// per-item state; every call is independent, and all cancellation flows
// through ctx.
type Processor struct {
	readers   *readers.Registry
	resolver  Resolver
	embedders EmbedderRegistry
	store     *vectorstore.Store
}

// NewProcessor wires a Processor from its four collaborators.
func NewProcessor(readerRegistry *readers.Registry, resolver Resolver, embedders EmbedderRegistry, store *vectorstore.Store) *Processor {
	return &Processor{readers: readerRegistry, resolver: resolver, embedders: embedders, store: store}
}

// Process runs the read → embed → write pipeline for item against base,
// per spec §4.8. Stage transitions are announced through onStage;
// embed-stage progress through onProgress. An empty read result returns
// successfully without touching the store.
func (p *Processor) Process(tc *queue.TaskContext, base config.KnowledgeBaseConfig, item readers.Item, onStage StageChangeFunc, onProgress ProgressFunc) error {
	reader, err := p.readers.Resolve(item.Type)
	if err != nil {
		return err
	}

	resolvedBase, err := p.resolver.Resolve(base, false)
	if err != nil {
		return err
	}

	if onStage != nil {
		onStage("ocr")
	}
	if _, err := queue.RunStage[struct{}](tc, queue.Stage("ocr"), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, nil
	}); err != nil {
		return err
	}

	if onStage != nil {
		onStage("read")
	}
	nodes, err := queue.RunStage[[]readers.Node](tc, queue.StageRead, func(ctx context.Context) ([]readers.Node, error) {
		return reader.Read(ctx, item)
	})
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}

	embedProvider, err := p.embedders.Resolve(resolvedBase.EmbedClient.Provider)
	if err != nil {
		return err
	}
	embedder, err := embedProvider.CreateModel(resolvedBase.EmbedClient)
	if err != nil {
		return kieerrors.Wrap(err, kieerrors.KindServiceUnavailable, "create embedding model failed")
	}

	if onStage != nil {
		onStage("embed")
	}
	_, err = queue.RunStage[struct{}](tc, queue.StageEmbed, func(ctx context.Context) (struct{}, error) {
		embedded, err := embedding.EmbedNodes(ctx, nodes, embedder, resolvedBase.Limiter, func(percent int) {
			tc.UpdateProgress(percent, false)
			if onProgress != nil {
				onProgress(percent)
			}
		})
		if err != nil {
			return struct{}{}, err
		}
		if _, err := p.store.Add(ctx, base.ID, embedded); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return err
}
