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

package rerank

import (
	"encoding/json"
	"strings"

	kieerrors "github.com/kraklabs/kie/internal/errors"
)

// multimodalModel is the one Jina model whose documents must be wrapped as
// {text: ...} objects instead of plain strings.
const multimodalModel = "jina-reranker-m0"

// JinaProvider matches any provider id containing "jina".
type JinaProvider struct{}

func (JinaProvider) Matches(providerID string) bool {
	return strings.Contains(strings.ToLower(providerID), "jina")
}

func (JinaProvider) BuildURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/rerank"
}

type jinaRequest struct {
	Model     string `json:"model"`
	Query     string `json:"query"`
	Documents any    `json:"documents"`
	TopN      int    `json:"top_n,omitempty"`
}

type jinaDoc struct {
	Text string `json:"text"`
}

func (JinaProvider) BuildRequestBody(query string, docs []string, topN int, model string) any {
	var documents any
	if model == multimodalModel {
		wrapped := make([]jinaDoc, len(docs))
		for i, d := range docs {
			wrapped[i] = jinaDoc{Text: d}
		}
		documents = wrapped
	} else {
		documents = docs
	}
	return jinaRequest{Model: model, Query: query, Documents: documents, TopN: topN}
}

type jinaResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (JinaProvider) ExtractResults(body []byte) ([]Result, error) {
	var resp jinaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindTransient, "decode jina rerank response")
	}
	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, Result{Index: r.Index, RelevanceScore: r.RelevanceScore})
	}
	return results, nil
}
