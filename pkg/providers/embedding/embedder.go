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

// Package embedding is the embedding provider registry of spec §4.4: a
// register+fallback lookup from provider id to a concrete embedder backed by
// langchaingo's LLM clients.
package embedding

import (
	"context"

	"github.com/kraklabs/kie/pkg/providers"
)

// Embedder is the per-base contract every provider must satisfy: embed must
// be deterministic with respect to input order, and vector lengths must match
// across all calls for a given base.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider builds an Embedder from a resolved client and describes the
// provider-specific options it contributes for a given vector dimensionality.
type Provider interface {
	ID() string
	CreateModel(client providers.Client) (Embedder, error)
	BuildProviderOptions(dimensions int, requestedProviderID string) map[string]any
}
