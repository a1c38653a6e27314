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
	"net/http"
	"net/http/httptest"
	"testing"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLReader_InvalidURLIsEmptyResult(t *testing.T) {
	r := URLReader{ChunkSize: 1024, ChunkOverlap: 20}
	nodes, err := r.Read(context.Background(), Item{ID: "u1", Data: ItemData{URL: "not a url"}})
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestURLReader_NonTwoXXIsTransientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reader := URLReader{ChunkSize: 1024, ChunkOverlap: 20, HTTPClient: srv.Client()}
	_, err := reader.Read(context.Background(), Item{ID: "u1", Data: ItemData{URL: srv.URL}})
	require.Error(t, err)
	assert.Equal(t, kieerrors.KindTransient, kieerrors.KindOf(err))
}

func TestURLReader_ParsesHTMLBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>Page body</p></body></html>"))
	}))
	defer srv.Close()

	reader := URLReader{ChunkSize: 1024, ChunkOverlap: 20, HTTPClient: srv.Client()}
	nodes, err := reader.Read(context.Background(), Item{ID: "u1", Data: ItemData{URL: srv.URL}})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Page body", nodes[0].Text)
	assert.Equal(t, srv.URL, nodes[0].Metadata["source"])
}
