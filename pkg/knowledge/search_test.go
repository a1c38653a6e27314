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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/config"
	"github.com/kraklabs/kie/pkg/providers"
	"github.com/kraklabs/kie/pkg/providers/rerank"
	"github.com/kraklabs/kie/pkg/readers"
	"github.com/kraklabs/kie/pkg/vectorstore"
)

type stubRerankRegistry struct {
	provider rerank.Provider
	err      error
}

func (s stubRerankRegistry) Resolve(string) (rerank.Provider, error) {
	return s.provider, s.err
}

func seedSearchBase(t *testing.T, store *vectorstore.Store, baseID string) {
	t.Helper()
	_, err := store.Add(context.Background(), baseID, []readers.Node{
		{Text: "first", Metadata: map[string]any{"external_id": "1"}, Vector: []float32{1, 0}},
		{Text: "second", Metadata: map[string]any{"external_id": "2"}, Vector: []float32{0, 1}},
	})
	require.NoError(t, err)
}

func TestSearcher_SearchWithoutRerankReturnsVectorOrder(t *testing.T) {
	store := vectorstore.NewStore(t.TempDir())
	seedSearchBase(t, store, "base-1")

	s := NewSearcher(store, stubResolver{}, stubRerankRegistry{}, http.DefaultClient)
	result, err := s.Search(context.Background(), config.KnowledgeBaseConfig{ID: "base-1"}, SearchRequest{
		QueryRequest: vectorstore.QueryRequest{QueryEmbedding: []float32{1, 0}, SimilarityTopK: 2},
	})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 2)
	assert.Equal(t, "first", result.Nodes[0].Text)
}

func TestSearcher_SearchSkipsRerankWhenBaseHasNoRerankModel(t *testing.T) {
	store := vectorstore.NewStore(t.TempDir())
	seedSearchBase(t, store, "base-1")

	s := NewSearcher(store, stubResolver{}, stubRerankRegistry{}, http.DefaultClient)
	result, err := s.Search(context.Background(), config.KnowledgeBaseConfig{ID: "base-1"}, SearchRequest{
		QueryRequest: vectorstore.QueryRequest{QueryEmbedding: []float32{1, 0}, SimilarityTopK: 2},
		Rerank:       true,
	})
	require.NoError(t, err)
	assert.Len(t, result.Nodes, 2)
}

func TestSearcher_SearchRerankReordersResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Documents []string `json:"documents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type resultEntry struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		}
		// Reverse relevance: favor "second" (index 1) over "first" (index 0).
		resp := struct {
			Results []resultEntry `json:"results"`
		}{
			Results: []resultEntry{
				{Index: 1, RelevanceScore: 0.9},
				{Index: 0, RelevanceScore: 0.1},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	store := vectorstore.NewStore(t.TempDir())
	seedSearchBase(t, store, "base-1")

	rerankModel := config.ModelRef{ProviderID: "test", ModelID: "rerank-1"}
	resolver := stubResolver{resolved: providers.ResolvedBase{
		ID:           "base-1",
		RerankClient: &providers.Client{Provider: "default", BaseURL: server.URL, Model: "rerank-1"},
	}}
	registry := stubRerankRegistry{provider: rerank.DefaultProvider{}}

	s := NewSearcher(store, resolver, registry, server.Client())
	result, err := s.Search(context.Background(), config.KnowledgeBaseConfig{
		ID:          "base-1",
		RerankModel: &rerankModel,
	}, SearchRequest{
		QueryRequest: vectorstore.QueryRequest{QueryEmbedding: []float32{1, 0}, SimilarityTopK: 2, QueryStr: "q"},
		Rerank:       true,
	})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 2)
	assert.Equal(t, "second", result.Nodes[0].Text)
	assert.Equal(t, "first", result.Nodes[1].Text)
	assert.InDelta(t, 0.9, result.Similarities[0], 1e-9)
}

func TestSearcher_SearchRerankPropagatesNonTwoXXAsTransientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := vectorstore.NewStore(t.TempDir())
	seedSearchBase(t, store, "base-1")

	rerankModel := config.ModelRef{ProviderID: "test", ModelID: "rerank-1"}
	resolver := stubResolver{resolved: providers.ResolvedBase{
		ID:           "base-1",
		RerankClient: &providers.Client{Provider: "default", BaseURL: server.URL, Model: "rerank-1"},
	}}
	registry := stubRerankRegistry{provider: rerank.DefaultProvider{}}

	s := NewSearcher(store, resolver, registry, server.Client())
	_, err := s.Search(context.Background(), config.KnowledgeBaseConfig{
		ID:          "base-1",
		RerankModel: &rerankModel,
	}, SearchRequest{
		QueryRequest: vectorstore.QueryRequest{QueryEmbedding: []float32{1, 0}, SimilarityTopK: 2, QueryStr: "q"},
		Rerank:       true,
	})
	require.Error(t, err)
	assert.Equal(t, kieerrors.KindTransient, kieerrors.KindOf(err))
}
