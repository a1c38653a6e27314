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

package embedding

import (
	"sync"

	kieerrors "github.com/kraklabs/kie/internal/errors"
)

// ErrNoProviderFound is returned by Resolve when providerID has no direct
// registration and no fallback is set.
var ErrNoProviderFound = kieerrors.New(kieerrors.KindValidation, "no embedding provider found")

// Registry keys providers by id, with a catch-all fallback slot for
// unregistered ids (spec §4.4: "registry + fallback").
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]Provider
	fallback Provider
}

// NewRegistry returns an empty registry with no fallback.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Provider)}
}

// Register keys provider by its own ID, replacing any prior registration.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID()] = p
}

// SetFallback installs the catch-all provider used when providerID has no
// direct match.
func (r *Registry) SetFallback(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = p
}

// Resolve returns the direct match for providerID if registered, else the
// fallback, else ErrNoProviderFound.
func (r *Registry) Resolve(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.byID[providerID]; ok {
		return p, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, ErrNoProviderFound
}
