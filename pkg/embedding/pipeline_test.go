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

package embedding

import (
	"context"
	"errors"
	"testing"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/readers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	calls    [][]string
	failOn   int
	vectorOf func(text string) []float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return s.vectorOf(text), nil
}

func (s *stubEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	s.calls = append(s.calls, texts)
	if s.failOn != 0 && len(s.calls) == s.failOn {
		return nil, errors.New("boom")
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = s.vectorOf(t)
	}
	return vectors, nil
}

func nodesWithText(texts ...string) []readers.Node {
	nodes := make([]readers.Node, len(texts))
	for i, t := range texts {
		nodes[i] = readers.Node{Text: t}
	}
	return nodes
}

func TestEmbedNodes_EmptyInputReturnsEarly(t *testing.T) {
	embedder := &stubEmbedder{vectorOf: func(string) []float32 { return []float32{1} }}
	nodes, err := EmbedNodes(context.Background(), nil, embedder, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, nodes)
	assert.Empty(t, embedder.calls)
}

func TestEmbedNodes_BatchesAtDefaultSize(t *testing.T) {
	texts := make([]string, 25)
	for i := range texts {
		texts[i] = "doc"
	}
	embedder := &stubEmbedder{vectorOf: func(string) []float32 { return []float32{1, 2} }}

	nodes, err := EmbedNodes(context.Background(), nodesWithText(texts...), embedder, nil, nil)
	require.NoError(t, err)
	require.Len(t, nodes, 25)
	require.Len(t, embedder.calls, 3) // 10 + 10 + 5
	assert.Len(t, embedder.calls[0], 10)
	assert.Len(t, embedder.calls[2], 5)
	for _, n := range nodes {
		assert.Equal(t, []float32{1, 2}, n.Vector)
	}
}

func TestEmbedNodes_ReportsProgressPerBatch(t *testing.T) {
	var percents []int
	embedder := &stubEmbedder{vectorOf: func(string) []float32 { return []float32{1} }}
	texts := make([]string, 20)
	for i := range texts {
		texts[i] = "x"
	}

	_, err := EmbedNodes(context.Background(), nodesWithText(texts...), embedder, nil, func(p int) {
		percents = append(percents, p)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{50, 100}, percents)
}

func TestEmbedNodes_BatchFailureWrapsErrorAndDiscardsPartialResults(t *testing.T) {
	texts := make([]string, 15)
	for i := range texts {
		texts[i] = "x"
	}
	embedder := &stubEmbedder{failOn: 2, vectorOf: func(string) []float32 { return []float32{1} }}

	nodes, err := EmbedNodes(context.Background(), nodesWithText(texts...), embedder, nil, nil)
	require.Error(t, err)
	assert.Nil(t, nodes)
	assert.Contains(t, err.Error(), "embedding documents failed")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, kieerrors.KindTransient, kieerrors.KindOf(err))
}

func TestEmbedNodes_CancellationBetweenBatchesAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	embedder := &stubEmbedder{vectorOf: func(string) []float32 { return []float32{1} }}
	_, err := EmbedNodes(ctx, nodesWithText("a"), embedder, nil, nil)
	require.Error(t, err)
	assert.True(t, kieerrors.IsAbort(err))
}
