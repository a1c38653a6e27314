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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/kie/pkg/metrics"
	"github.com/kraklabs/kie/pkg/readers"
)

// runIngest executes the 'ingest' command: build one Item from flags,
// enqueue it against --base, and block until the orchestrator reports a
// terminal status.
//
// Flags:
//   - --base: knowledge base id (required, must be in the config catalog)
//   - --type: note|file|directory|url|sitemap (required)
//   - --item: item id (default: a fresh UUID)
//   - --content, --path, --url: the type-specific payload
//   - --metrics-addr: expose Prometheus metrics while ingesting
func runIngest(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	baseID := fs.String("base", "", "Knowledge base id (required)")
	itemType := fs.String("type", "", "Item type: note|file|directory|url|sitemap (required)")
	itemID := fs.String("item", "", "Item id (default: generated UUID)")
	content := fs.String("content", "", "Inline note content (type=note)")
	sourceURL := fs.String("source-url", "", "Attribution URL for a note (type=note)")
	path := fs.String("path", "", "File or directory path (type=file|directory)")
	url := fs.String("url", "", "Target URL (type=url|sitemap)")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kie ingest --base <id> --type <type> [options]

Description:
  Enqueues one knowledge item against a configured base and blocks until
  the orchestrator reports completed or failed. Progress is shown on
  stderr unless --quiet or --json is set.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *baseID == "" || *itemType == "" {
		fmt.Fprintln(os.Stderr, "Error: --base and --type are required")
		os.Exit(1)
	}

	eng, err := loadEngine(configPath, globals)
	if err != nil {
		fatal(err, globals.JSON)
	}

	metrics.Serve(*metricsAddr, eng.logger)

	base, err := eng.resolveBase(*baseID)
	if err != nil {
		fatal(err, globals.JSON)
	}

	id := *itemID
	if id == "" {
		id = uuid.NewString()
	}

	item := readers.Item{ID: id, Type: readers.ItemType(*itemType)}
	switch item.Type {
	case readers.ItemNote:
		item.Data.Content = *content
		item.Data.SourceURL = *sourceURL
	case readers.ItemFile:
		item.Data.FilePath = *path
	case readers.ItemDirectory:
		item.Data.DirPath = *path
	case readers.ItemURL, readers.ItemSitemap:
		item.Data.URL = *url
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported --type %q\n", *itemType)
		os.Exit(1)
	}

	var bar *progressbar.ProgressBar
	if !globals.Quiet {
		bar = progressbar.NewOptions(100,
			progressbar.OptionSetDescription(fmt.Sprintf("ingesting %s", id)),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
	}

	done := make(chan struct{})
	var finalStatus, finalErr string
	eng.orch.Process(context.Background(), base, item, func(status, errMessage string) {
		if bar != nil {
			if p, ok := eng.orch.GetProgress(id); ok {
				_ = bar.Set(p)
			}
		}
		if status == "completed" || status == "failed" {
			finalStatus, finalErr = status, errMessage
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(10 * time.Minute):
		finalStatus, finalErr = "failed", "timed out waiting for ingestion"
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(map[string]string{"itemId": id, "status": finalStatus, "error": finalErr})
	} else if finalStatus == "completed" {
		colorGreen.Fprintf(os.Stdout, "ingested %s into %s\n", id, *baseID)
	} else {
		colorRed.Fprintf(os.Stderr, "ingest failed: %s\n", finalErr)
		os.Exit(1)
	}
}
