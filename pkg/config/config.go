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

// Package config holds the configuration types for the knowledge engine:
// engine-wide scheduling/pool knobs and per-base parameters.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig controls the queue manager, stage pools, and progress
// reporting. Every field corresponds to a row in spec.md's configuration
// table (§6).
type EngineConfig struct {
	// GlobalConcurrency bounds the number of jobs executing concurrently
	// across all bases.
	GlobalConcurrency int `yaml:"globalConcurrency"`

	// PerBaseConcurrency bounds the number of jobs executing concurrently
	// from any single base.
	PerBaseConcurrency int `yaml:"perBaseConcurrency"`

	// IOConcurrency is the shared pool size for the read stage.
	IOConcurrency int `yaml:"ioConcurrency"`

	// EmbeddingConcurrency is the shared pool size for the embed stage.
	EmbeddingConcurrency int `yaml:"embeddingConcurrency"`

	// WriteConcurrency is the shared pool size for the write stage.
	WriteConcurrency int `yaml:"writeConcurrency"`

	// MaxQueueSize rejects enqueue once the total queued count would exceed
	// it. Zero means unbounded.
	MaxQueueSize int `yaml:"maxQueueSize"`

	// ProgressThrottleMs is the coalescing window for progress updates.
	ProgressThrottleMs int `yaml:"progressThrottleMs"`

	// ProgressTTLMs is how long a progress value survives without being
	// refreshed before Get treats it as absent.
	ProgressTTLMs int `yaml:"progressTtlMs"`

	// KnowledgeStoreRoot is the directory under which each base's persistent
	// vector store lives, one subdirectory per sanitized base id.
	KnowledgeStoreRoot string `yaml:"knowledgeStoreRoot"`

	// ProviderRateLimitPerSecond caps outbound embed/rerank HTTP calls, one
	// token bucket per resolved base (spec §B).
	ProviderRateLimitPerSecond float64 `yaml:"providerRateLimitPerSecond"`
}

// ProgressThrottle returns ProgressThrottleMs as a time.Duration.
func (c EngineConfig) ProgressThrottle() time.Duration {
	return time.Duration(c.ProgressThrottleMs) * time.Millisecond
}

// ProgressTTL returns ProgressTTLMs as a time.Duration.
func (c EngineConfig) ProgressTTL() time.Duration {
	return time.Duration(c.ProgressTTLMs) * time.Millisecond
}

// Normalize clamps every concurrency bound to at least 1, per spec §4.3 ("All
// bounds are normalized to >=1"), and fills in zero-valued timing fields with
// defaults. MaxQueueSize is left as-is: zero means unbounded, not "1".
func (c EngineConfig) Normalize() EngineConfig {
	atLeastOne := func(n int) int {
		if n < 1 {
			return 1
		}
		return n
	}
	c.GlobalConcurrency = atLeastOne(c.GlobalConcurrency)
	c.PerBaseConcurrency = atLeastOne(c.PerBaseConcurrency)
	c.IOConcurrency = atLeastOne(c.IOConcurrency)
	c.EmbeddingConcurrency = atLeastOne(c.EmbeddingConcurrency)
	c.WriteConcurrency = atLeastOne(c.WriteConcurrency)
	if c.ProgressThrottleMs <= 0 {
		c.ProgressThrottleMs = 500
	}
	if c.ProgressTTLMs <= 0 {
		c.ProgressTTLMs = 600_000
	}
	if c.ProviderRateLimitPerSecond <= 0 {
		c.ProviderRateLimitPerSecond = 5
	}
	return c
}

// DefaultEngineConfig returns the defaults named in spec.md §6.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		GlobalConcurrency:          1,
		PerBaseConcurrency:         1,
		IOConcurrency:              1,
		EmbeddingConcurrency:       1,
		WriteConcurrency:           1,
		MaxQueueSize:               0,
		ProgressThrottleMs:         500,
		ProgressTTLMs:              600_000,
		KnowledgeStoreRoot:         "",
		ProviderRateLimitPerSecond: 5,
	}
}

// ModelRef is a {providerId, modelId} pair, serializable either as
// "provider:model" or as this record, per spec §3.
type ModelRef struct {
	ProviderID string `yaml:"provider"`
	ModelID    string `yaml:"model"`
}

// KnowledgeBaseConfig is the resolved-from-catalog view of a base that the
// core receives; spec §1 is explicit that the core does not own the catalog,
// only a resolved record of it.
type KnowledgeBaseConfig struct {
	ID              string   `yaml:"id"`
	EmbeddingModel  ModelRef `yaml:"embeddingModel"`
	RerankModel     *ModelRef `yaml:"rerankModel,omitempty"`
	ChunkSize       int      `yaml:"chunkSize"`
	ChunkOverlap    int      `yaml:"chunkOverlap"`
	DocumentCount   int      `yaml:"documentCount"`
	Dimensions      int      `yaml:"dimensions,omitempty"`
	DefaultAlpha    float64  `yaml:"defaultAlpha"`
}

// NormalizeDefaults fills in the chunking/search defaults named in spec.md
// §4.5/§4.7/§6 when the catalog left them unset. ChunkOverlap is replaced
// only when negative, so an explicit (or omitted) 0 stays 0.
func (c KnowledgeBaseConfig) NormalizeDefaults() KnowledgeBaseConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1024
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 20
	}
	if c.DocumentCount <= 0 {
		c.DocumentCount = 6
	}
	if c.DefaultAlpha == 0 {
		c.DefaultAlpha = 0.5
	}
	return c
}

// ProviderDescriptor is the {id, type, apiHost, apiKey, ...} record spec §3
// describes. Type is the provider type tag ("openai", "ollama",
// "azure-openai", "gemini", ...); ID is the provider's registration key,
// which may differ from Type for custom-named providers.
type ProviderDescriptor struct {
	ID      string `yaml:"id"`
	Type    string `yaml:"type"`
	APIHost string `yaml:"apiHost"`
	APIKey  string `yaml:"apiKey"`
}

// FileConfig is the top-level YAML document shape: engine settings, the known
// provider descriptors, and the knowledge bases they serve.
type FileConfig struct {
	Engine    EngineConfig          `yaml:"engine"`
	Providers []ProviderDescriptor  `yaml:"providers"`
	Bases     []KnowledgeBaseConfig `yaml:"bases"`
}

// Load reads and parses a YAML config file at path, applying EngineConfig and
// per-base defaults.
func Load(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	fc.Engine = fc.Engine.Normalize()
	for i := range fc.Bases {
		fc.Bases[i] = fc.Bases[i].NormalizeDefaults()
	}
	return &fc, nil
}
