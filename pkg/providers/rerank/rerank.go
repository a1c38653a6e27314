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

// Package rerank is the rerank provider registry of spec §4.4: built-in
// providers for the common rerank HTTP endpoint shapes, selected by a
// match predicate rather than an exact id (e.g. any id containing "tei").
package rerank

import (
	"net/http"

	kieerrors "github.com/kraklabs/kie/internal/errors"
)

// Result is one reranked document's position and relevance.
type Result struct {
	Index          int
	RelevanceScore float64
}

// Provider builds the HTTP request for a rerank call and parses its
// response, per spec §4.4: "buildUrl, buildRequestBody, extractResults".
type Provider interface {
	// Matches reports whether this provider should handle providerID. Unlike
	// the embedding registry, rerank lookup is by predicate, not exact id, so
	// a provider can claim any id containing a recognized substring.
	Matches(providerID string) bool
	BuildURL(baseURL string) string
	BuildRequestBody(query string, docs []string, topN int, model string) any
	ExtractResults(body []byte) ([]Result, error)
}

// ErrNoProviderFound is returned by Resolve when no registered provider
// matches providerID and no default is set.
var ErrNoProviderFound = kieerrors.New(kieerrors.KindValidation, "no rerank provider found")

// Registry holds rerank providers in registration order and resolves by the
// first Matches hit, falling back to a default provider.
type Registry struct {
	providers []Provider
	fallback  Provider
}

// NewRegistry returns an empty registry with no fallback.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends provider to the match order. Earlier registrations take
// priority over later ones.
func (r *Registry) Register(p Provider) {
	r.providers = append(r.providers, p)
}

// SetFallback installs the provider used when nothing matches.
func (r *Registry) SetFallback(p Provider) {
	r.fallback = p
}

// Resolve returns the first registered provider whose Matches(providerID) is
// true, else the fallback, else ErrNoProviderFound.
func (r *Registry) Resolve(providerID string) (Provider, error) {
	for _, p := range r.providers {
		if p.Matches(providerID) {
			return p, nil
		}
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, ErrNoProviderFound
}

// defaultHTTPClient is shared by the built-in providers' callers (the
// knowledge package's Searcher issues the actual request; providers only
// describe it). Exposed so callers don't each construct their own client.
var defaultHTTPClient = &http.Client{}

// HTTPClient returns the shared client used to issue rerank requests.
func HTTPClient() *http.Client {
	return defaultHTTPClient
}
