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
	"io"
	"net/http"
	"net/url"

	kieerrors "github.com/kraklabs/kie/internal/errors"
)

// URLReader fetches a web page and parses its body with the HTML loader.
type URLReader struct {
	ChunkSize    int
	ChunkOverlap int
	HTTPClient   *http.Client
}

func (r URLReader) client() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return http.DefaultClient
}

// Read implements Reader. An invalid URL yields an empty result per spec
// §4.5 ("Invalid URLs... empty result, not an error"); a non-2xx response is
// a thrown network error.
func (r URLReader) Read(ctx context.Context, item Item) ([]Node, error) {
	nodes, err := r.fetch(ctx, item.Data.URL)
	if err != nil {
		return nil, err
	}
	return withExternalID(item.ID, item.Data.URL, ItemURL, nodes), nil
}

func (r URLReader) fetch(ctx context.Context, rawURL string) ([]Node, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil
	}

	resp, err := r.client().Do(req)
	if err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindTransient, "fetch url")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, kieerrors.Newf(kieerrors.KindTransient, "fetch url: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindTransient, "read url body")
	}

	text := stripHTML(string(body))
	var nodes []Node
	for _, c := range Chunk(text, r.ChunkSize, r.ChunkOverlap) {
		nodes = append(nodes, Node{Text: c})
	}
	return nodes, nil
}
