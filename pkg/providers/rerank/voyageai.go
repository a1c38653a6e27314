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

// VoyageAIProvider matches any provider id containing "voyage".
type VoyageAIProvider struct{}

func (VoyageAIProvider) Matches(providerID string) bool {
	return strings.Contains(strings.ToLower(providerID), "voyage")
}

func (VoyageAIProvider) BuildURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/rerank"
}

type voyageRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopK      int      `json:"top_k,omitempty"`
}

func (VoyageAIProvider) BuildRequestBody(query string, docs []string, topN int, model string) any {
	return voyageRequest{Query: query, Documents: docs, Model: model, TopK: topN}
}

type voyageResponse struct {
	Data []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"data"`
}

func (VoyageAIProvider) ExtractResults(body []byte) ([]Result, error) {
	var resp voyageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindTransient, "decode voyageai rerank response")
	}
	results := make([]Result, 0, len(resp.Data))
	for _, d := range resp.Data {
		results = append(results, Result{Index: d.Index, RelevanceScore: d.RelevanceScore})
	}
	return results, nil
}
