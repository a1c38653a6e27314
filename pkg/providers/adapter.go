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

package providers

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/config"
)

// endpointSuffixes are stripped from a "#"-terminated full endpoint URL
// before it's treated as a base URL, per spec §4.4 rule 3.
var endpointSuffixes = []string{
	"chat/completions",
	"responses",
	"messages",
	"generateContent",
	"streamGenerateContent",
}

// Client is what a resolved embed or rerank model reference carries: enough
// to build an HTTP request against the provider.
type Client struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// ResolvedBase is the adapter's output for one knowledge base: everything the
// embedding pipeline and vector store need, with no further provider lookups.
// Limiter gates outbound HTTP calls the embed and rerank clients make on
// base's behalf, one token bucket per base id (spec §B).
type ResolvedBase struct {
	ID           string
	Dimensions   int
	ChunkSize    int
	ChunkOverlap int
	EmbedClient  Client
	RerankClient *Client
	Limiter      *rate.Limiter
}

// Resolver looks up provider descriptors by id and turns knowledge-base
// config into a ResolvedBase. It never panics on an empty or nil descriptor
// list; every failure mode surfaces as a validation or service-unavailable
// error instead.
type Resolver struct {
	descriptors map[string]config.ProviderDescriptor
	ratePerSec  float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewResolver indexes descriptors by id. A duplicate id keeps the last one.
// ratePerSecond bounds each resolved base's outbound call rate; a
// non-positive value falls back to 5 req/s.
func NewResolver(descriptors []config.ProviderDescriptor, ratePerSecond float64) *Resolver {
	m := make(map[string]config.ProviderDescriptor, len(descriptors))
	for _, d := range descriptors {
		m[d.ID] = d
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	return &Resolver{descriptors: m, ratePerSec: ratePerSecond, limiters: make(map[string]*rate.Limiter)}
}

// limiterFor returns baseID's token bucket, creating it on first use. Bases
// share one limiter across every Resolve call so the bucket actually
// throttles repeated calls rather than resetting each time.
func (r *Resolver) limiterFor(baseID string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[baseID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.ratePerSec), int(math.Max(1, math.Ceil(r.ratePerSec))))
		r.limiters[baseID] = l
	}
	return l
}

// Resolve builds a ResolvedBase for base. When forRerank is set, a rerank
// client is also resolved and its absence is a validation failure (spec §4.4
// rule 5); otherwise the rerank model, if any, is left unresolved.
func (r *Resolver) Resolve(base config.KnowledgeBaseConfig, forRerank bool) (ResolvedBase, error) {
	embedClient, err := r.buildClient(base.EmbeddingModel)
	if err != nil {
		return ResolvedBase{}, err
	}

	rb := ResolvedBase{
		ID:           base.ID,
		Dimensions:   base.Dimensions,
		ChunkSize:    base.ChunkSize,
		ChunkOverlap: base.ChunkOverlap,
		EmbedClient:  embedClient,
		Limiter:      r.limiterFor(base.ID),
	}

	if !forRerank {
		return rb, nil
	}
	if base.RerankModel == nil {
		return ResolvedBase{}, kieerrors.New(kieerrors.KindValidation, "rerank requested without a rerank model").WithField("baseId", base.ID)
	}
	rerankClient, err := r.buildClient(*base.RerankModel)
	if err != nil {
		return ResolvedBase{}, err
	}
	rb.RerankClient = &rerankClient
	return rb, nil
}

// buildClient resolves one model reference into a Client. ref.ProviderID may
// be empty, in which case ref.ModelID is parsed as "provider:model" (rule 1).
func (r *Resolver) buildClient(ref config.ModelRef) (Client, error) {
	if ref.ProviderID == "" {
		parsed, err := ParseModelRef(ref.ModelID, "")
		if err != nil {
			return Client{}, err
		}
		ref = parsed
	}
	if ref.ProviderID == "" || ref.ModelID == "" {
		return Client{}, kieerrors.New(kieerrors.KindValidation, "model reference missing provider or model").WithField("modelRef", fmt.Sprintf("%+v", ref))
	}

	d, ok := r.descriptors[ref.ProviderID]
	if !ok {
		return Client{}, kieerrors.New(kieerrors.KindValidation, "unknown provider").WithField("providerId", ref.ProviderID)
	}

	baseURL := normalizeBaseURL(d)
	if baseURL == "" {
		return Client{}, kieerrors.New(kieerrors.KindServiceUnavailable, "resolved base url is empty").WithField("providerId", ref.ProviderID)
	}

	return Client{
		Provider: d.Type,
		Model:    ref.ModelID,
		APIKey:   d.APIKey,
		BaseURL:  baseURL,
	}, nil
}

// normalizeBaseURL derives a provider's base URL per spec §4.4 rule 3: trim
// and strip trailing slashes; if the host is a "#"-terminated full endpoint
// URL, strip the recognized suffix and any dangling "/" or ":"; then apply
// per-type and per-id path adjustments.
func normalizeBaseURL(d config.ProviderDescriptor) string {
	host := strings.TrimRight(strings.TrimSpace(d.APIHost), "/")

	if strings.HasSuffix(host, "#") {
		path := strings.TrimSuffix(host, "#")
		for _, suffix := range endpointSuffixes {
			if strings.HasSuffix(path, suffix) {
				path = strings.TrimSuffix(path, suffix)
				break
			}
		}
		path = strings.TrimRight(path, "/")
		path = strings.TrimRight(path, ":")
		host = path
	}

	switch d.Type {
	case "gemini":
		host += "/openai"
	case "azure-openai":
		host += "/v1"
	}

	if d.ID == "ollama" {
		host = strings.TrimSuffix(host, "/api")
	}

	return host
}
