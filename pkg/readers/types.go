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

// Package readers implements the per-item-type content readers (§4.5): note,
// file, directory, url, and sitemap, plus the fixed-size chunker they share.
// Every reader turns one Item into zero or more Nodes; the knowledge processor
// embeds and stores the result.
package readers

import "context"

// ItemType names the five kinds of knowledge item the engine accepts.
type ItemType string

const (
	ItemFile      ItemType = "file"
	ItemDirectory ItemType = "directory"
	ItemURL       ItemType = "url"
	ItemSitemap   ItemType = "sitemap"
	ItemNote      ItemType = "note"
)

// ItemData is the type-specific payload an Item carries. Only the fields
// relevant to Type are populated; readers ignore the rest.
type ItemData struct {
	// FilePath is the on-disk path for ItemFile.
	FilePath string

	// DirPath is the on-disk path for ItemDirectory.
	DirPath string

	// URL is the target for ItemURL and ItemSitemap.
	URL string

	// Content is the inline text for ItemNote.
	Content string

	// SourceURL is an optional attribution URL for ItemNote.
	SourceURL string
}

// Item is the immutable unit of ingestion. Its ID becomes external_id on
// every node a reader produces from it.
type Item struct {
	ID   string
	Type ItemType
	Data ItemData
}

// Node is a chunk of text a reader emits, annotated with metadata. An
// embedded node (see pkg/embedding) additionally carries Vector.
type Node struct {
	Text     string
	Metadata map[string]any
	Vector   []float32
}

// ProgressFunc reports per-item progress, used today only by the directory
// reader's once-per-file-completed callback (spec §6,
// "directory-processing-percent").
type ProgressFunc func(itemID string, percent int)

// Reader turns one Item into a sequence of Nodes. Implementations must
// return an empty, non-error result for missing or clearly invalid inputs
// (missing file, missing directory, empty note content, unparsable URL) per
// spec §4.5. Of the built-in readers only DirectoryReader polls ctx.Done(),
// between files; URLReader and SitemapReader pass ctx to their HTTP
// requests, and NoteReader and FileReader do not look at ctx.
type Reader interface {
	Read(ctx context.Context, item Item) ([]Node, error)
}

// withExternalID stamps the mandatory metadata keys spec §4.5 requires after
// reader post-processing: external_id, source, and type.
func withExternalID(itemID, source string, itemType ItemType, nodes []Node) []Node {
	for i := range nodes {
		if nodes[i].Metadata == nil {
			nodes[i].Metadata = make(map[string]any, 3)
		}
		nodes[i].Metadata["external_id"] = itemID
		nodes[i].Metadata["source"] = source
		nodes[i].Metadata["type"] = string(itemType)
	}
	return nodes
}
