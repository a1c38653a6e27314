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

// Package main implements the kie CLI for ingesting knowledge items and
// querying a knowledge base's vector store.
//
// Usage:
//
//	kie ingest --base <id> --type note --content "..."   Ingest one item
//	kie [--json] query --base <id> --text "..."          Query a base
//	kie [--json] status [--item <id>]                    Show queue status
//	kie reset --base <id> --yes                          Delete a base's store
//	kie watch --base <id> --path <dir>                   Re-ingest on file change
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the global CLI flags that apply to all commands.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to kie config YAML (default: ./kie.yaml)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output (progress, info messages)")
	)

	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `KIE - Knowledge Ingestion Engine

KIE chunks and embeds files, directories, web pages, sitemaps, and notes
into a per-base vector store, then serves semantic, keyword, and hybrid
queries against it.

Usage:
  kie <command> [options]

Commands:
  ingest   Enqueue and process one knowledge item
  query    Run a vector / bm25 / hybrid query against a base
  status   Show queue manager occupancy
  reset    Delete a base's persistent vector store (destructive!)
  watch    Watch a directory and re-ingest it on file changes

Global Options:
  --json          Output in JSON format (for applicable commands)
  --no-color      Disable color output (respects NO_COLOR env var)
  -v, --verbose   Increase verbosity (-v for info, -vv for debug)
  -q, --quiet     Suppress non-essential output
  -c, --config    Path to kie config YAML
  -V, --version   Show version and exit

Examples:
  kie ingest --base kb1 --type note --content "alpha beta gamma"
  kie ingest --base kb1 --type file --path ./README.md
  kie query --base kb1 --text "gamma" --mode hybrid
  kie --json status
  kie reset --base kb1 --yes
  kie watch --base kb1 --path ./docs

For detailed command help: kie <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("kie version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *quiet && *verbose > 0 {
		fmt.Fprintln(os.Stderr, "Error: cannot use --quiet and --verbose together")
		os.Exit(1)
	}
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{JSON: *jsonOutput, NoColor: *noColor, Verbose: *verbose, Quiet: *quiet}
	initColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "ingest":
		runIngest(cmdArgs, *configPath, globals)
	case "query":
		runQuery(cmdArgs, *configPath, globals)
	case "status":
		runStatus(cmdArgs, *configPath, globals)
	case "reset":
		runReset(cmdArgs, *configPath, globals)
	case "watch":
		runWatch(cmdArgs, *configPath, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
