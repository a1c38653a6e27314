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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_EmptyInput(t *testing.T) {
	assert.Nil(t, Chunk("   ", 1024, 20))
}

func TestChunk_ShorterThanChunkSizeReturnsOneChunk(t *testing.T) {
	chunks := Chunk("hello world", 1024, 20)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestChunk_StrideAndOverlap(t *testing.T) {
	text := strings.Repeat("a", 100)
	chunks := Chunk(text, 30, 10)
	// stride = 30 - 10 = 20; starts at 0, 20, 40, 60, 80
	require.Len(t, chunks, 5)
	assert.Len(t, chunks[0], 30)
	assert.Len(t, chunks[len(chunks)-1], 20)
}

func TestChunk_OverlapClampedBelowChunkSize(t *testing.T) {
	text := strings.Repeat("b", 50)
	// overlap >= chunkSize would produce a non-positive stride without
	// clamping; it must still terminate.
	chunks := Chunk(text, 10, 999)
	assert.NotEmpty(t, chunks)
}

func TestChunk_NegativeChunkSizeUsesDefault(t *testing.T) {
	chunks := Chunk("short text", -1, 20)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplitMarkdownByHeading(t *testing.T) {
	md := "intro text\n\n# Heading One\nbody one\n\n## Heading Two\nbody two\n"
	sections := SplitMarkdownByHeading(md)
	require.Len(t, sections, 3)
	assert.Contains(t, sections[0], "intro text")
	assert.Contains(t, sections[1], "Heading One")
	assert.Contains(t, sections[2], "Heading Two")
}

func TestSplitMarkdownByHeading_NoHeadingsIsOneSection(t *testing.T) {
	sections := SplitMarkdownByHeading("just plain text\nno headings here")
	require.Len(t, sections, 1)
}

func TestSplitMarkdownByHeading_EmptyInput(t *testing.T) {
	assert.Nil(t, SplitMarkdownByHeading(""))
}
