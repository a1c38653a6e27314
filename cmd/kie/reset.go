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
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// runReset executes the 'reset' command: either clear a base's collection
// in place (--clear) or delete its store directory entirely (default,
// requires --yes).
func runReset(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	baseID := fs.String("base", "", "Knowledge base id (required)")
	confirm := fs.Bool("yes", false, "Confirm the destructive delete (required unless --clear)")
	clearOnly := fs.Bool("clear", false, "Clear the collection in place instead of deleting the store directory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kie reset --base <id> [options]

Description:
  WARNING: by default this deletes base's persistent vector store
  directory entirely. Use --clear to empty its collection instead while
  keeping the directory and handle around.

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

	if *clearOnly {
		if err := eng.store.ClearCollection(context.Background(), *baseID); err != nil {
			fatal(err, globals.JSON)
		}
		colorGreen.Fprintf(os.Stdout, "cleared collection for %s\n", *baseID)
		return
	}

	if !*confirm {
		fmt.Fprintln(os.Stderr, "Error: --yes is required to confirm this destructive operation")
		os.Exit(1)
	}
	if err := eng.store.DeleteBase(*baseID); err != nil {
		fatal(err, globals.JSON)
	}
	colorGreen.Fprintf(os.Stdout, "deleted store for %s\n", *baseID)
}
