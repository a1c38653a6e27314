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
	"io/fs"
	"os"
	"path/filepath"

	kieerrors "github.com/kraklabs/kie/internal/errors"
)

// DirectoryReader walks a directory tree, applying the same per-extension
// loader mapping as FileReader to every regular file it finds. Progress is
// reported once per completed file, by file count rather than bytes, per
// spec §4.5/§6.
type DirectoryReader struct {
	ChunkSize    int
	ChunkOverlap int
	OnProgress   ProgressFunc
}

// Read implements Reader. A non-existent directory yields an empty result,
// not an error, per spec §4.5.
func (r DirectoryReader) Read(ctx context.Context, item Item) ([]Node, error) {
	root := item.Data.DirPath
	if _, err := os.Stat(root); err != nil {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	var nodes []Node
	for i, path := range files {
		select {
		case <-ctx.Done():
			return nil, kieerrors.NewAbort("directory read cancelled")
		default:
		}

		content, err := os.ReadFile(path)
		if err == nil {
			texts, derr := documentsForFile(path, content)
			if derr == nil {
				nodes = append(nodes, chunkDocuments(texts, extOf(path), r.ChunkSize, r.ChunkOverlap)...)
			}
		}

		if r.OnProgress != nil {
			percent := (i + 1) * 100 / len(files)
			r.OnProgress(item.ID, percent)
		}
	}

	return withExternalID(item.ID, root, ItemDirectory, nodes), nil
}
