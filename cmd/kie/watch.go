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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/kie/pkg/readers"
)

// watchSkipDirs are never descended into: version control, dependency
// trees, and build output generate far more events than source changes do.
var watchSkipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"dist": true, "build": true, "bin": true,
}

const watchDebounce = 2 * time.Second

// runWatch executes the 'watch' command: follow --path for file changes and
// re-ingest it as a directory item against --base after each debounce
// window, until interrupted.
//
// Flags:
//   - --base: knowledge base id (required, must be in the config catalog)
//   - --path: directory to watch (required)
func runWatch(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	baseID := fs.String("base", "", "Knowledge base id (required)")
	path := fs.String("path", "", "Directory to watch for changes (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: kie watch --base <id> --path <dir>

Description:
  Watches path for file changes and re-ingests it as a directory item
  against base after each 2s debounce window. Runs until interrupted
  (Ctrl-C) or SIGTERM.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *baseID == "" || *path == "" {
		fmt.Fprintln(os.Stderr, "Error: --base and --path are required")
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

	absPath, err := filepath.Abs(*path)
	if err != nil {
		fatal(err, globals.JSON)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fatal(fmt.Errorf("start fsnotify watcher: %w", err), globals.JSON)
	}
	defer watcher.Close()

	watchCount := watchAddDirs(watcher, absPath)
	if !globals.Quiet {
		colorCyan.Fprintf(os.Stderr, "watching %d dirs under %s\n", watchCount, absPath)
	}

	sum := sha256.Sum256([]byte(absPath))
	itemID := "watch-" + hex.EncodeToString(sum[:8])
	item := readers.Item{ID: itemID, Type: readers.ItemDirectory}
	item.Data.DirPath = absPath

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	triggerReindex := func() {
		if !globals.Quiet {
			colorYellow.Fprintf(os.Stderr, "change detected, re-ingesting %s...\n", absPath)
		}
		done := make(chan struct{})
		eng.orch.Process(context.Background(), base, item, func(status, errMessage string) {
			if status == "completed" || status == "failed" {
				close(done)
				if status == "completed" {
					colorGreen.Fprintf(os.Stderr, "reindexed %s\n", absPath)
				} else {
					colorRed.Fprintf(os.Stderr, "reindex failed: %s\n", errMessage)
				}
			}
		})
		<-done
	}

	var debounceTimer *time.Timer
	var timerCh <-chan time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(watchDebounce)
			timerCh = debounceTimer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			colorRed.Fprintf(os.Stderr, "fsnotify error: %v\n", err)
		case <-timerCh:
			timerCh = nil
			triggerReindex()
		case <-sigCh:
			return
		}
	}
}

// watchAddDirs registers root and every subdirectory under it with watcher,
// skipping watchSkipDirs and hidden directories. It returns the number of
// directories registered.
func watchAddDirs(watcher *fsnotify.Watcher, root string) int {
	count := 0
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if watchSkipDirs[base] || (strings.HasPrefix(base, ".") && base != filepath.Base(root)) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err == nil {
			count++
		}
		return nil
	})
	return count
}
