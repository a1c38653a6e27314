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
	"strings"
)

// DefaultChunkSize and DefaultChunkOverlap are the chunker's defaults named
// in spec §4.5.
const (
	DefaultChunkSize    = 1024
	DefaultChunkOverlap = 20
)

// Chunk splits text into fixed-size, overlapping windows after trimming.
// Overlap is clamped to [0, chunkSize-1]; stride is max(1, chunkSize-overlap).
// Empty chunks are dropped. A chunkSize <= 0 falls back to DefaultChunkSize.
func Chunk(text string, chunkSize, chunkOverlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	overlap := chunkOverlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap > chunkSize-1 {
		overlap = chunkSize - 1
	}
	stride := chunkSize - overlap
	if stride < 1 {
		stride = 1
	}

	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/stride+1)
	for start := 0; start < len(runes); start += stride {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// SplitMarkdownByHeading segments markdown text at ATX headings ("# ...",
// "## ...", ...), one chunk per section. Content preceding the first heading
// becomes its own leading chunk. The chunker is bypassed entirely for
// markdown per spec §4.5 ("splitter bypassed").
func SplitMarkdownByHeading(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	var sections []string
	var current strings.Builder

	flush := func() {
		section := strings.TrimSpace(current.String())
		if section != "" {
			sections = append(sections, section)
		}
		current.Reset()
	}

	for _, line := range lines {
		if isMarkdownHeading(line) && current.Len() > 0 {
			flush()
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	flush()
	return sections
}

func isMarkdownHeading(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}
	hashes := strings.TrimLeft(trimmed, "#")
	return len(trimmed)-len(hashes) <= 6 && (hashes == "" || strings.HasPrefix(hashes, " "))
}
