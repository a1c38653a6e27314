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

// BailianProvider matches any provider id containing "bailian" (Alibaba
// DashScope's rerank endpoint shape).
type BailianProvider struct{}

func (BailianProvider) Matches(providerID string) bool {
	return strings.Contains(strings.ToLower(providerID), "bailian")
}

func (BailianProvider) BuildURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/services/rerank/text-rerank/text-rerank"
}

type bailianRequest struct {
	Model string `json:"model"`
	Input struct {
		Query     string   `json:"query"`
		Documents []string `json:"documents"`
	} `json:"input"`
	Parameters struct {
		TopN int `json:"top_n,omitempty"`
	} `json:"parameters"`
}

func (BailianProvider) BuildRequestBody(query string, docs []string, topN int, model string) any {
	req := bailianRequest{Model: model}
	req.Input.Query = query
	req.Input.Documents = docs
	req.Parameters.TopN = topN
	return req
}

type bailianResponse struct {
	Output struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	} `json:"output"`
}

func (BailianProvider) ExtractResults(body []byte) ([]Result, error) {
	var resp bailianResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindTransient, "decode bailian rerank response")
	}
	results := make([]Result, 0, len(resp.Output.Results))
	for _, r := range resp.Output.Results {
		results = append(results, Result{Index: r.Index, RelevanceScore: r.RelevanceScore})
	}
	return results, nil
}
