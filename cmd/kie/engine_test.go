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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/kie/pkg/config"
)

func TestEngine_ResolveBase(t *testing.T) {
	e := &engine{file: &config.FileConfig{
		Bases: []config.KnowledgeBaseConfig{
			{ID: "kb1", EmbeddingModel: config.ModelRef{ProviderID: "openai", ModelID: "text-embedding-3-small"}},
		},
	}}

	base, err := e.resolveBase("kb1")
	require.NoError(t, err)
	assert.Equal(t, "kb1", base.ID)
	assert.Equal(t, 1024, base.ChunkSize, "NormalizeDefaults should fill the default chunk size")
	assert.Equal(t, 6, base.DocumentCount)

	_, err = e.resolveBase("missing")
	assert.Error(t, err)
}
