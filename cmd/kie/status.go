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
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// runStatus executes the 'status' command: print the queue manager's
// current occupancy (active jobs, queued jobs, per base).
func runStatus(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	itemID := fs.String("item", "", "Also report this item's queued/processing/progress state")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kie status [options]

Description:
  Prints the queue manager's current occupancy: active jobs globally and
  per base, queued jobs per base, and total queued count.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	eng, err := loadEngine(configPath, globals)
	if err != nil {
		fatal(err, globals.JSON)
	}

	status := eng.orch.GetQueueStatus()

	if globals.JSON {
		out := map[string]any{
			"activeGlobal": status.ActiveGlobal,
			"activeByBase": status.ActiveByBase,
			"queuedByBase": status.QueuedByBase,
			"totalQueued":  status.TotalQueued,
		}
		if *itemID != "" {
			progress, hasProgress := eng.orch.GetProgress(*itemID)
			out["item"] = map[string]any{
				"id":          *itemID,
				"queued":      eng.orch.IsQueued(*itemID),
				"processing":  eng.orch.IsProcessing(*itemID),
				"progress":    progress,
				"hasProgress": hasProgress,
			}
		}
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(out)
		return
	}

	fmt.Fprintf(os.Stdout, "active (global): %d\n", status.ActiveGlobal)
	fmt.Fprintf(os.Stdout, "total queued:    %d\n", status.TotalQueued)
	for base, active := range status.ActiveByBase {
		fmt.Fprintf(os.Stdout, "  base %-20s active=%d queued=%d\n", base, active, status.QueuedByBase[base])
	}
	if *itemID != "" {
		fmt.Fprintf(os.Stdout, "item %s: queued=%v processing=%v\n", *itemID, eng.orch.IsQueued(*itemID), eng.orch.IsProcessing(*itemID))
	}
}
