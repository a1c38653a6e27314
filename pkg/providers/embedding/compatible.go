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
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/providers"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAICompatibleProvider is the registry's fallback: it posts to
// {baseURL}/v1, defaulting to the public OpenAI endpoint when the resolved
// client carries no base URL.
type OpenAICompatibleProvider struct{}

func (OpenAICompatibleProvider) ID() string { return "openai-compatible" }

func (OpenAICompatibleProvider) CreateModel(client providers.Client) (Embedder, error) {
	baseURL := client.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/") + "/v1"

	llm, err := openai.New(
		openai.WithToken(client.APIKey),
		openai.WithEmbeddingModel(client.Model),
		openai.WithBaseURL(baseURL),
	)
	if err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindServiceUnavailable, "create openai-compatible client")
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindInternal, "create openai-compatible embedder")
	}
	return &langchainEmbedder{inner: emb}, nil
}

// BuildProviderOptions publishes dimensions under both "openai-compatible"
// and requestedProviderID, since the fallback stands in for whatever
// unregistered provider id the caller actually asked for.
func (OpenAICompatibleProvider) BuildProviderOptions(dimensions int, requestedProviderID string) map[string]any {
	if dimensions <= 0 {
		return nil
	}
	opts := map[string]any{"openai-compatible": map[string]any{"dimensions": dimensions}}
	if requestedProviderID != "" && requestedProviderID != "openai-compatible" {
		opts[requestedProviderID] = map[string]any{"dimensions": dimensions}
	}
	return opts
}
