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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/config"
	"github.com/kraklabs/kie/pkg/providers"
	provembed "github.com/kraklabs/kie/pkg/providers/embedding"
	"github.com/kraklabs/kie/pkg/queue"
	"github.com/kraklabs/kie/pkg/readers"
	"github.com/kraklabs/kie/pkg/vectorstore"
)

type stubReader struct {
	nodes []readers.Node
	err   error
}

func (s stubReader) Read(ctx context.Context, item readers.Item) ([]readers.Node, error) {
	return s.nodes, s.err
}

// newSingleReaderRegistry builds a Registry whose itemType resolves to r,
// overriding the built-in reader that type would otherwise wire to.
func newSingleReaderRegistry(itemType readers.ItemType, r readers.Reader) *readers.Registry {
	reg := readers.NewRegistry(1024, 20, nil, nil)
	reg.Register(itemType, r)
	return reg
}

type stubResolver struct {
	resolved providers.ResolvedBase
	err      error
}

func (s stubResolver) Resolve(base config.KnowledgeBaseConfig, forRerank bool) (providers.ResolvedBase, error) {
	return s.resolved, s.err
}

type stubEmbedProvider struct {
	embedder provembed.Embedder
	err      error
}

func (s stubEmbedProvider) ID() string { return "stub" }
func (s stubEmbedProvider) CreateModel(providers.Client) (provembed.Embedder, error) {
	return s.embedder, s.err
}
func (s stubEmbedProvider) BuildProviderOptions(int, string) map[string]any { return nil }

type stubEmbedRegistry struct {
	provider provembed.Provider
	err      error
}

func (s stubEmbedRegistry) Resolve(string) (provembed.Provider, error) {
	return s.provider, s.err
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (stubEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func testTaskContext(t *testing.T) *queue.TaskContext {
	t.Helper()
	manager := queue.New(config.EngineConfig{}, nil)
	job := queue.Job{BaseID: "base-1", ItemID: "item-1", CreatedAt: time.Now()}
	// The job stays running until the test ends: the manager cancels a job's
	// context once the job settles, and the processor needs a live one.
	tcCh := make(chan *queue.TaskContext, 1)
	release := make(chan struct{})
	_, err := queue.Enqueue[struct{}](manager, context.Background(), job, func(tc *queue.TaskContext) (struct{}, error) {
		tcCh <- tc
		<-release
		return struct{}{}, nil
	})
	require.NoError(t, err)
	t.Cleanup(func() { close(release) })
	return <-tcCh
}

func TestProcessor_EmptyReadReturnsWithoutTouchingStore(t *testing.T) {
	reg := newSingleReaderRegistry(readers.ItemNote, stubReader{})
	store := vectorstore.NewStore(t.TempDir())
	p := NewProcessor(reg, stubResolver{resolved: providers.ResolvedBase{ID: "base-1"}}, stubEmbedRegistry{}, store)

	item := readers.Item{ID: "item-1", Type: readers.ItemNote}
	tc := testTaskContext(t)

	err := p.Process(tc, config.KnowledgeBaseConfig{ID: "base-1"}, item, nil, nil)
	require.NoError(t, err)

	result, err := store.Query(context.Background(), "base-1", vectorstore.QueryRequest{QueryEmbedding: []float32{1, 0}})
	require.NoError(t, err)
	assert.Empty(t, result.Nodes)
}

func TestProcessor_EmbedsAndStoresNonEmptyNodes(t *testing.T) {
	reg := newSingleReaderRegistry(readers.ItemNote, stubReader{
		nodes: []readers.Node{{Text: "hello", Metadata: map[string]any{"external_id": "item-1"}}},
	})
	store := vectorstore.NewStore(t.TempDir())
	resolver := stubResolver{resolved: providers.ResolvedBase{ID: "base-1", EmbedClient: providers.Client{Provider: "stub"}}}
	embedders := stubEmbedRegistry{provider: stubEmbedProvider{embedder: stubEmbedder{}}}
	p := NewProcessor(reg, resolver, embedders, store)

	item := readers.Item{ID: "item-1", Type: readers.ItemNote}
	tc := testTaskContext(t)

	var stages []string
	err := p.Process(tc, config.KnowledgeBaseConfig{ID: "base-1"}, item, func(stage string) {
		stages = append(stages, stage)
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ocr", "read", "embed"}, stages)

	result, err := store.Query(context.Background(), "base-1", vectorstore.QueryRequest{QueryEmbedding: []float32{1, 0}})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 1)
	assert.Equal(t, "hello", result.Nodes[0].Text)
}

func TestProcessor_UnsupportedItemTypeIsFatal(t *testing.T) {
	reg := readers.NewRegistry(1024, 20, nil, nil)
	store := vectorstore.NewStore(t.TempDir())
	p := NewProcessor(reg, stubResolver{}, stubEmbedRegistry{}, store)

	item := readers.Item{ID: "item-1", Type: readers.ItemType("bogus")}
	tc := testTaskContext(t)

	err := p.Process(tc, config.KnowledgeBaseConfig{ID: "base-1"}, item, nil, nil)
	require.Error(t, err)
	assert.Equal(t, kieerrors.KindIntegrity, kieerrors.KindOf(err))
}
