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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripHTML_DropsScriptAndStyle(t *testing.T) {
	doc := `<html><head><style>.a{color:red}</style><script>alert(1)</script></head>` +
		`<body><h1>Title</h1><p>Body text</p></body></html>`
	assert.Equal(t, "Title Body text", stripHTML(doc))
}

func TestStripHTML_UnescapesEntities(t *testing.T) {
	assert.Equal(t, `Q&A "quoted"`, stripHTML(`Q&amp;A &quot;quoted&quot;`))
}

func TestLoadCSV_JoinsFieldsWithComma(t *testing.T) {
	docs, err := loadCSV([]byte("name,age\nalice,30\nbob,40\n"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0], "name, age")
	assert.Contains(t, docs[0], "alice, 30")
	assert.Contains(t, docs[0], "bob, 40")
}

func TestLoadJSON_FlattensNestedObjects(t *testing.T) {
	docs, err := loadJSON([]byte(`{"a":{"b":1},"c":[2,3]}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0], "a.b: 1")
	assert.Contains(t, docs[0], "c[0]: 2")
	assert.Contains(t, docs[0], "c[1]: 3")
}

func TestLoadStructured_UnknownExtensionPassesThrough(t *testing.T) {
	docs, err := loadStructured(".xyz", []byte("raw content"))
	require.NoError(t, err)
	assert.Equal(t, []string{"raw content"}, docs)
}

func TestIsMarkdownExt(t *testing.T) {
	assert.True(t, isMarkdownExt(".md"))
	assert.False(t, isMarkdownExt(".markdown"))
}
