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
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemapReader_FetchesAllPagesAndSkipsFailures(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("/ok1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>Page one</body></html>"))
	})
	mux.HandleFunc("/ok2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>Page two</body></html>"))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	srv := httptest.NewServer(&mux)
	defer srv.Close()

	sitemapXML := fmt.Sprintf(`<?xml version="1.0"?>
<urlset><url><loc>%s/ok1</loc></url><url><loc>%s/ok2</loc></url><url><loc>%s/broken</loc></url></urlset>`,
		srv.URL, srv.URL, srv.URL)

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sitemapXML))
	})

	reader := SitemapReader{ChunkSize: 1024, ChunkOverlap: 20, HTTPClient: srv.Client()}
	nodes, err := reader.Read(context.Background(), Item{ID: "s1", Data: ItemData{URL: srv.URL + "/sitemap.xml"}})
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	texts := []string{nodes[0].Text, nodes[1].Text}
	assert.Contains(t, texts, "Page one")
	assert.Contains(t, texts, "Page two")
	for _, n := range nodes {
		assert.Equal(t, "s1", n.Metadata["external_id"])
	}
}

func TestSitemapReader_EmptySitemapIsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?><urlset></urlset>`))
	}))
	defer srv.Close()

	reader := SitemapReader{ChunkSize: 1024, ChunkOverlap: 20, HTTPClient: srv.Client()}
	nodes, err := reader.Read(context.Background(), Item{ID: "s1", Data: ItemData{URL: srv.URL}})
	require.NoError(t, err)
	assert.Empty(t, nodes)
}
