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

// TEIProvider matches any provider id containing "tei" (HuggingFace Text
// Embeddings Inference's rerank endpoint). Its response is a bare
// [{index, score}] array, not wrapped in an envelope object.
type TEIProvider struct{}

func (TEIProvider) Matches(providerID string) bool {
	return strings.Contains(strings.ToLower(providerID), "tei")
}

func (TEIProvider) BuildURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/rerank"
}

type teiRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

func (TEIProvider) BuildRequestBody(query string, docs []string, _ int, _ string) any {
	return teiRequest{Query: query, Texts: docs}
}

type teiResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (TEIProvider) ExtractResults(body []byte) ([]Result, error) {
	var items []teiResult
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindTransient, "decode tei rerank response")
	}
	results := make([]Result, 0, len(items))
	for _, it := range items {
		results = append(results, Result{Index: it.Index, RelevanceScore: it.Score})
	}
	return results, nil
}
