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
	"github.com/tmc/langchaingo/llms/ollama"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/providers"
)

// OllamaProvider appends "/api" to the resolved base URL and publishes
// dimensions under the "ollama" options key.
type OllamaProvider struct{}

func (OllamaProvider) ID() string { return "ollama" }

func (OllamaProvider) CreateModel(client providers.Client) (Embedder, error) {
	serverURL := strings.TrimRight(client.BaseURL, "/") + "/api"
	llm, err := ollama.New(
		ollama.WithModel(client.Model),
		ollama.WithServerURL(serverURL),
	)
	if err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindServiceUnavailable, "create ollama client")
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindInternal, "create ollama embedder")
	}
	return &langchainEmbedder{inner: emb}, nil
}

func (OllamaProvider) BuildProviderOptions(dimensions int, _ string) map[string]any {
	if dimensions <= 0 {
		return nil
	}
	return map[string]any{"ollama": map[string]any{"dimensions": dimensions}}
}
