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
	"errors"
	"os"
)

// FileReader dispatches on file extension: markdown gets heading-based
// segmentation, the structured extensions (§4.5) get their own loader
// followed by the chunker, and everything else is chunked as plain text.
type FileReader struct {
	ChunkSize    int
	ChunkOverlap int
}

// Read implements Reader. A missing file yields an empty result, not an
// error, per spec §4.5.
func (r FileReader) Read(_ context.Context, item Item) ([]Node, error) {
	path := item.Data.FilePath
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	texts, err := documentsForFile(path, content)
	if err != nil {
		return nil, err
	}

	nodes := chunkDocuments(texts, extOf(path), r.ChunkSize, r.ChunkOverlap)
	return withExternalID(item.ID, path, ItemFile, nodes), nil
}

// documentsForFile returns one or more plain-text documents for a single
// file's raw content, routed by extension.
func documentsForFile(path string, content []byte) ([]string, error) {
	ext := extOf(path)
	if isMarkdownExt(ext) {
		return []string{string(content)}, nil
	}
	if structuredExtensions[ext] {
		return loadStructured(ext, content)
	}
	return []string{string(content)}, nil
}

// chunkDocuments applies the extension-appropriate splitting strategy to
// each document: heading-based for markdown, otherwise the fixed-size
// chunker (structured loaders already reduced the file to plain text, so
// they share the plain-text path here).
func chunkDocuments(docs []string, ext string, chunkSize, chunkOverlap int) []Node {
	var nodes []Node
	for _, doc := range docs {
		var parts []string
		if isMarkdownExt(ext) {
			parts = SplitMarkdownByHeading(doc)
		} else {
			parts = Chunk(doc, chunkSize, chunkOverlap)
		}
		for _, p := range parts {
			nodes = append(nodes, Node{Text: p})
		}
	}
	return nodes
}
