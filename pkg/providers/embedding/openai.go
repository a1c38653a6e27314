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
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/providers"
)

// OpenAIProvider uses the resolved client's base URL as-is and publishes
// dimensions under the "openai" options key.
type OpenAIProvider struct{}

func (OpenAIProvider) ID() string { return "openai" }

func (OpenAIProvider) CreateModel(client providers.Client) (Embedder, error) {
	opts := []openai.Option{
		openai.WithToken(client.APIKey),
		openai.WithEmbeddingModel(client.Model),
	}
	if client.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(client.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindServiceUnavailable, "create openai client")
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindInternal, "create openai embedder")
	}
	return &langchainEmbedder{inner: emb}, nil
}

func (OpenAIProvider) BuildProviderOptions(dimensions int, _ string) map[string]any {
	if dimensions <= 0 {
		return nil
	}
	return map[string]any{"openai": map[string]any{"dimensions": dimensions}}
}
