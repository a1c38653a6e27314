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

// Package providers resolves a knowledge base's model references into a
// ResolvedBase: concrete embed/rerank clients carrying a normalized base URL,
// per spec §4.4.
package providers

import (
	"strings"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/config"
)

// ParseModelRef parses a model reference given as "provider:model". If raw
// carries no ":" separator, metaProvider supplies the provider id (the "meta
// field" of spec §4.4 rule 1). An empty model id, or a missing provider in
// both forms, is a validation failure naming the offending field.
func ParseModelRef(raw, metaProvider string) (config.ModelRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return config.ModelRef{}, kieerrors.New(kieerrors.KindValidation, "empty model id").WithField("modelId", "required")
	}

	if idx := strings.Index(raw, ":"); idx >= 0 {
		providerID := strings.TrimSpace(raw[:idx])
		modelID := strings.TrimSpace(raw[idx+1:])
		if providerID == "" || modelID == "" {
			return config.ModelRef{}, kieerrors.New(kieerrors.KindValidation, "malformed model reference").WithField("modelId", raw)
		}
		return config.ModelRef{ProviderID: providerID, ModelID: modelID}, nil
	}

	providerID := strings.TrimSpace(metaProvider)
	if providerID == "" {
		return config.ModelRef{}, kieerrors.New(kieerrors.KindValidation, "model reference missing provider").WithField("provider", "required")
	}
	return config.ModelRef{ProviderID: providerID, ModelID: raw}, nil
}
