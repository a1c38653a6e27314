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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"golang.org/x/time/rate"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/config"
	"github.com/kraklabs/kie/pkg/providers"
	"github.com/kraklabs/kie/pkg/providers/rerank"
	"github.com/kraklabs/kie/pkg/readers"
	"github.com/kraklabs/kie/pkg/vectorstore"
)

// RerankRegistry is the subset of the rerank provider registry Search
// depends on.
type RerankRegistry interface {
	Resolve(providerID string) (rerank.Provider, error)
}

// SearchRequest parametrizes Searcher.Search. Rerank, when true, asks for a
// rerank pass over the vector store's results; it is ignored if base has no
// rerank model configured.
type SearchRequest struct {
	vectorstore.QueryRequest
	Rerank bool
}

// Searcher runs the query path: a vector store query, optionally followed
// by a rerank post-filter. Unlike Processor, this path never touches the
// queue manager or job tokens — per SPEC_FULL.md §D, rerank is invoked only
// from search, never from an ingestion job.
type Searcher struct {
	store     *vectorstore.Store
	resolver  Resolver
	rerankers RerankRegistry
	client    *http.Client
}

// NewSearcher wires a Searcher from its collaborators. client defaults to
// rerank.HTTPClient() when nil.
func NewSearcher(store *vectorstore.Store, resolver Resolver, rerankers RerankRegistry, client *http.Client) *Searcher {
	if client == nil {
		client = rerank.HTTPClient()
	}
	return &Searcher{store: store, resolver: resolver, rerankers: rerankers, client: client}
}

// Search queries base's store and, if req.Rerank is set and base has a
// rerank model, reranks the returned nodes before returning.
func (s *Searcher) Search(ctx context.Context, base config.KnowledgeBaseConfig, req SearchRequest) (vectorstore.QueryResult, error) {
	result, err := s.store.Query(ctx, base.ID, req.QueryRequest)
	if err != nil {
		return vectorstore.QueryResult{}, err
	}
	if !req.Rerank || base.RerankModel == nil || len(result.Nodes) == 0 {
		return result, nil
	}

	resolvedBase, err := s.resolver.Resolve(base, true)
	if err != nil {
		return vectorstore.QueryResult{}, err
	}
	if resolvedBase.RerankClient == nil {
		return result, nil
	}

	provider, err := s.rerankers.Resolve(resolvedBase.RerankClient.Provider)
	if err != nil {
		return vectorstore.QueryResult{}, err
	}

	return s.rerank(ctx, *resolvedBase.RerankClient, provider, resolvedBase.Limiter, req.QueryRequest.QueryStr, result)
}

// rerank issues the rerank HTTP call and reorders result's nodes/similarities
// by the provider's relevance scores, descending. When limiter is non-nil,
// it waits for a token before issuing the request, per spec §B's per-base
// rate limit.
func (s *Searcher) rerank(ctx context.Context, client providers.Client, provider rerank.Provider, limiter *rate.Limiter, query string, result vectorstore.QueryResult) (vectorstore.QueryResult, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return vectorstore.QueryResult{}, kieerrors.NewAbort("rerank cancelled")
		}
	}
	docs := make([]string, len(result.Nodes))
	for i, n := range result.Nodes {
		docs[i] = n.Text
	}

	body := provider.BuildRequestBody(query, docs, len(docs), client.Model)
	payload, err := json.Marshal(body)
	if err != nil {
		return vectorstore.QueryResult{}, fmt.Errorf("marshal rerank request: %w", err)
	}

	url := provider.BuildURL(client.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return vectorstore.QueryResult{}, fmt.Errorf("build rerank request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if client.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+client.APIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return vectorstore.QueryResult{}, kieerrors.Wrap(err, kieerrors.KindTransient, "rerank request failed")
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return vectorstore.QueryResult{}, fmt.Errorf("read rerank response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return vectorstore.QueryResult{}, kieerrors.Newf(kieerrors.KindTransient, "rerank request failed: status %d", resp.StatusCode)
	}

	results, err := provider.ExtractResults(buf.Bytes())
	if err != nil {
		return vectorstore.QueryResult{}, fmt.Errorf("parse rerank response: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	reordered := vectorstore.QueryResult{
		Nodes:        make([]readers.Node, 0, len(results)),
		Similarities: make([]float64, 0, len(results)),
	}
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(result.Nodes) {
			continue
		}
		reordered.Nodes = append(reordered.Nodes, result.Nodes[r.Index])
		reordered.Similarities = append(reordered.Similarities, r.RelevanceScore)
	}
	return reordered, nil
}
