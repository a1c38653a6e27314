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

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/kie/pkg/knowledge"
	"github.com/kraklabs/kie/pkg/vectorstore"
)

// runQuery executes the 'query' command: resolve --base, run a vector/bm25/
// hybrid query, optionally rerank, and print the results.
func runQuery(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	baseID := fs.String("base", "", "Knowledge base id (required)")
	text := fs.String("text", "", "Query text (used by bm25 and hybrid modes; it is not embedded)")
	mode := fs.String("mode", "bm25", "Query mode: default|bm25|hybrid")
	topK := fs.Int("top-k", 0, "Max results (default: base's documentCount, else 6)")
	alpha := fs.Float64("alpha", -1, "Hybrid blend weight in [0,1] (default: base's defaultAlpha)")
	rerankFlag := fs.Bool("rerank", false, "Rerank results using the base's configured rerank model")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kie query --base <id> --text <query> [options]

Description:
  Runs a vector, bm25, or hybrid query against base's vector store and
  prints the matching nodes and their scores.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *baseID == "" {
		fmt.Fprintln(os.Stderr, "Error: --base is required")
		os.Exit(1)
	}

	eng, err := loadEngine(configPath, globals)
	if err != nil {
		fatal(err, globals.JSON)
	}
	base, err := eng.resolveBase(*baseID)
	if err != nil {
		fatal(err, globals.JSON)
	}

	req := vectorstore.QueryRequest{
		QueryStr:       *text,
		Mode:           vectorstore.Mode(*mode),
		SimilarityTopK: *topK,
	}
	if req.SimilarityTopK <= 0 {
		req.SimilarityTopK = base.DocumentCount
	}
	if *alpha >= 0 {
		req.Alpha = alpha
	} else {
		defaultAlpha := base.DefaultAlpha
		req.Alpha = &defaultAlpha
	}

	result, err := eng.search.Search(context.Background(), base, knowledge.SearchRequest{
		QueryRequest: req,
		Rerank:       *rerankFlag,
	})
	if err != nil {
		fatal(err, globals.JSON)
	}

	if globals.JSON {
		type hit struct {
			Text       string         `json:"text"`
			Metadata   map[string]any `json:"metadata"`
			Similarity float64        `json:"similarity"`
		}
		hits := make([]hit, len(result.Nodes))
		for i, n := range result.Nodes {
			hits[i] = hit{Text: n.Text, Metadata: n.Metadata, Similarity: result.Similarities[i]}
		}
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(hits)
		return
	}

	for i, n := range result.Nodes {
		colorCyan.Fprintf(os.Stdout, "[%.4f] ", result.Similarities[i])
		fmt.Fprintln(os.Stdout, n.Text)
	}
	if len(result.Nodes) == 0 {
		colorYellow.Fprintln(os.Stdout, "no matches")
	}
}
