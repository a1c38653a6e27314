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

// DefaultProvider is the generic OpenAI-style rerank shape used as the
// registry's fallback. It matches everything, so it must only ever be
// installed via SetFallback, never Register.
type DefaultProvider struct{}

func (DefaultProvider) Matches(string) bool { return true }

func (DefaultProvider) BuildURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/rerank"
}

type defaultRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

func (DefaultProvider) BuildRequestBody(query string, docs []string, topN int, model string) any {
	return defaultRequest{Model: model, Query: query, Documents: docs, TopN: topN}
}

type defaultResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (DefaultProvider) ExtractResults(body []byte) ([]Result, error) {
	var resp defaultResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindTransient, "decode rerank response")
	}
	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, Result{Index: r.Index, RelevanceScore: r.RelevanceScore})
	}
	return results, nil
}
