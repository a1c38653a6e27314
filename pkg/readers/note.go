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
	"context"
	"strings"
)

// NoteReader treats an item's inline content as plain text.
type NoteReader struct {
	ChunkSize    int
	ChunkOverlap int
}

// Read implements Reader. Empty content yields an empty result, not an
// error, per spec §4.5.
func (r NoteReader) Read(_ context.Context, item Item) ([]Node, error) {
	content := strings.TrimSpace(item.Data.Content)
	if content == "" {
		return nil, nil
	}

	source := item.Data.SourceURL
	if source == "" {
		source = "note"
	}

	chunks := Chunk(content, r.ChunkSize, r.ChunkOverlap)
	nodes := make([]Node, 0, len(chunks))
	for _, c := range chunks {
		nodes = append(nodes, Node{Text: c})
	}
	return withExternalID(item.ID, source, ItemNote, nodes), nil
}
