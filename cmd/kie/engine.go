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

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kraklabs/kie/pkg/config"
	"github.com/kraklabs/kie/pkg/knowledge"
	"github.com/kraklabs/kie/pkg/providers"
	provembed "github.com/kraklabs/kie/pkg/providers/embedding"
	"github.com/kraklabs/kie/pkg/providers/rerank"
	"github.com/kraklabs/kie/pkg/queue"
	"github.com/kraklabs/kie/pkg/readers"
	"github.com/kraklabs/kie/pkg/vectorstore"
)

// defaultConfigPath is used when --config is omitted. If no file exists at
// that path either, the engine runs with DefaultEngineConfig() and an empty
// provider/base catalog, so resolveBase reports every base id as not
// configured; bases cannot be given on the command line.
const defaultConfigPath = "kie.yaml"

// engine bundles the composed, ready-to-drive collaborators a CLI command
// needs: the orchestrator for ingest, the searcher for query, and the file
// config for base/provider lookups.
type engine struct {
	file   *config.FileConfig
	store  *vectorstore.Store
	orch   *knowledge.Orchestrator
	search *knowledge.Searcher
	logger *slog.Logger
}

// loadEngine reads configPath (or defaultConfigPath), builds the embedding
// and rerank registries with their built-in providers, and composes the
// queue manager, vector store, processor, orchestrator, and searcher exactly
// the way a long-lived process would at startup.
func loadEngine(configPath string, globals GlobalFlags) (*engine, error) {
	path := configPath
	if path == "" {
		path = defaultConfigPath
	}

	var fc *config.FileConfig
	if _, err := os.Stat(path); err == nil {
		fc, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	} else {
		fc = &config.FileConfig{Engine: config.DefaultEngineConfig()}
	}

	level := slog.LevelWarn
	switch {
	case globals.Verbose >= 2:
		level = slog.LevelDebug
	case globals.Verbose == 1:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	embedRegistry := provembed.NewRegistry()
	embedRegistry.Register(provembed.OpenAIProvider{})
	embedRegistry.Register(provembed.OllamaProvider{})
	embedRegistry.SetFallback(provembed.OpenAICompatibleProvider{})

	rerankRegistry := rerank.NewRegistry()
	rerankRegistry.Register(rerank.VoyageAIProvider{})
	rerankRegistry.Register(rerank.BailianProvider{})
	rerankRegistry.Register(rerank.JinaProvider{})
	rerankRegistry.Register(rerank.TEIProvider{})
	rerankRegistry.SetFallback(rerank.DefaultProvider{})

	resolver := providers.NewResolver(fc.Providers, fc.Engine.ProviderRateLimitPerSecond)

	storeRoot := fc.Engine.KnowledgeStoreRoot
	if storeRoot == "" {
		storeRoot = "./kie-data"
	}
	store := vectorstore.NewStore(storeRoot)

	manager := queue.New(fc.Engine, logger)
	readerRegistry := readers.NewRegistry(1024, 20, nil, logger)
	processor := knowledge.NewProcessor(readerRegistry, resolver, embedRegistry, store)
	orch := knowledge.NewOrchestrator(manager, processor, store, logger)
	searcher := knowledge.NewSearcher(store, resolver, rerankRegistry, nil)

	return &engine{file: fc, store: store, orch: orch, search: searcher, logger: logger}, nil
}

// resolveBase looks up baseID in the loaded config's catalog, applying
// per-base defaults. Missing bases are reported rather than silently
// defaulted, since an unconfigured embedding model can't resolve to a
// provider.
func (e *engine) resolveBase(baseID string) (config.KnowledgeBaseConfig, error) {
	for _, b := range e.file.Bases {
		if b.ID == baseID {
			return b.NormalizeDefaults(), nil
		}
	}
	return config.KnowledgeBaseConfig{}, fmt.Errorf("no base %q configured in %s", baseID, defaultConfigPath)
}
