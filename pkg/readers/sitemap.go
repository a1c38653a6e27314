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
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kraklabs/kie/internal/concurrency"
	kieerrors "github.com/kraklabs/kie/internal/errors"
)

// sitemapFetchTimeout bounds the initial sitemap document fetch, per spec
// §4.5 ("fetch sitemap with a 30s timeout").
const sitemapFetchTimeout = 30 * time.Second

// sitemapFanOut is the fixed concurrency spec §4.5 names for per-URL
// fetches ("concurrency 5").
const sitemapFanOut = 5

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// SitemapReader fetches a sitemap.xml document, then fetches and parses
// every listed page with URLReader's HTML loader, concurrently.
type SitemapReader struct {
	ChunkSize    int
	ChunkOverlap int
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

func (r SitemapReader) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r SitemapReader) client() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return http.DefaultClient
}

// Read implements Reader. Failed page fetches are logged and skipped; only
// a failure to fetch or parse the sitemap document itself is fatal.
func (r SitemapReader) Read(ctx context.Context, item Item) ([]Node, error) {
	locs, err := r.fetchSitemap(ctx, item.Data.URL)
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, nil
	}

	urlReader := URLReader{ChunkSize: r.ChunkSize, ChunkOverlap: r.ChunkOverlap, HTTPClient: r.client()}
	pool := concurrency.NewPool(sitemapFanOut)

	var mu sync.Mutex
	var nodes []Node
	var wg sync.WaitGroup
	for _, loc := range locs {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()
			pageNodes, err := concurrency.Run(ctx, pool, func() ([]Node, error) {
				return urlReader.fetch(ctx, loc)
			})
			if err != nil {
				r.logger().Warn("sitemap.page.fetch.failed", "url", loc, "err", err)
				return
			}
			mu.Lock()
			nodes = append(nodes, pageNodes...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	return withExternalID(item.ID, item.Data.URL, ItemSitemap, nodes), nil
}

func (r SitemapReader) fetchSitemap(ctx context.Context, rawURL string) ([]string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, sitemapFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil
	}

	resp, err := r.client().Do(req)
	if err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindTransient, "fetch sitemap")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, kieerrors.Newf(kieerrors.KindTransient, "fetch sitemap: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindTransient, "read sitemap body")
	}

	var set sitemapURLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, kieerrors.Wrap(err, kieerrors.KindTransient, "parse sitemap xml")
	}

	locs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if u.Loc != "" {
			locs = append(locs, u.Loc)
		}
	}
	return locs, nil
}
