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

package readers

import (
	"log/slog"
	"net/http"

	kieerrors "github.com/kraklabs/kie/internal/errors"
)

// Registry resolves an ItemType to the Reader that handles it. The
// knowledge processor's step 1 ("resolve reader by item.type") is this
// registry's Resolve.
type Registry struct {
	byType map[ItemType]Reader
}

// NewRegistry builds a Registry with the five built-in readers wired up
// with the given chunkSize/chunkOverlap. Every reader in the registry uses
// these same values; a base's own ChunkSize/ChunkOverlap is not consulted.
func NewRegistry(chunkSize, chunkOverlap int, onProgress ProgressFunc, logger *slog.Logger) *Registry {
	httpClient := http.DefaultClient
	return &Registry{
		byType: map[ItemType]Reader{
			ItemNote:      NoteReader{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap},
			ItemFile:      FileReader{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap},
			ItemDirectory: DirectoryReader{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap, OnProgress: onProgress},
			ItemURL:       URLReader{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap, HTTPClient: httpClient},
			ItemSitemap:   SitemapReader{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap, HTTPClient: httpClient, Logger: logger},
		},
	}
}

// Register overrides (or adds) the reader used for itemType.
func (r *Registry) Register(itemType ItemType, reader Reader) {
	r.byType[itemType] = reader
}

// Resolve returns the reader registered for itemType. A missing reader is
// the fatal "Unsupported item type" error spec §4.8 names.
func (r *Registry) Resolve(itemType ItemType) (Reader, error) {
	reader, ok := r.byType[itemType]
	if !ok {
		return nil, kieerrors.Newf(kieerrors.KindIntegrity, "unsupported item type: %s", itemType)
	}
	return reader, nil
}
