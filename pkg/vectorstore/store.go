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

// Package vectorstore is the per-base persistent store of spec §4.7: each
// knowledge base gets its own on-disk SQLite database, created lazily on
// first reference and cached by base id, offering add/delete/clear/query.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/readers"
)

// closeGrace bounds how long DeleteBase waits for in-flight operations to
// quiesce before removing the base directory regardless, per spec §4.7 /
// SPEC_FULL.md §D ("a short grace timeout").
const closeGrace = 2 * time.Second

// Store owns one baseHandle per knowledge base, keyed by base id, all rooted
// under a single directory on disk.
type Store struct {
	root string

	mu    sync.Mutex
	bases map[string]*baseHandle
}

// baseHandle is one base's open database plus the bookkeeping DeleteBase
// needs: a closing flag that makes new operations fail fast, and an
// in-flight counter DeleteBase waits to drain.
type baseHandle struct {
	db  *sql.DB
	dir string

	mu         sync.Mutex
	closing    bool
	inFlight   int
	dimensions int
}

// NewStore creates a Store rooted at dir. Per-base subdirectories are
// created lazily by getOrCreate.
func NewStore(dir string) *Store {
	return &Store{root: dir, bases: make(map[string]*baseHandle)}
}

var unsafeBaseIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// sanitizeBaseID turns a base id into a filesystem-safe directory name, per
// spec §4.7 ("filename is a sanitized form of the base id").
func sanitizeBaseID(baseID string) string {
	if unsafeBaseIDChars.ReplaceAllString(baseID, "") == "" {
		return "base"
	}
	sanitized := unsafeBaseIDChars.ReplaceAllString(baseID, "_")
	return sanitized
}

func (s *Store) dirFor(baseID string) string {
	return filepath.Join(s.root, sanitizeBaseID(baseID))
}

// getOrCreate returns the cached handle for baseID, opening and
// schema-initializing a new SQLite database on first reference.
func (s *Store) getOrCreate(baseID string) (*baseHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.bases[baseID]; ok {
		return h, nil
	}

	dir := s.dirFor(baseID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}

	dbPath := filepath.Join(dir, "store.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	h := &baseHandle{db: db, dir: dir}
	s.bases[baseID] = h
	return h, nil
}

// acquire marks one in-flight operation, failing fast if the base is being
// deleted.
func (h *baseHandle) acquire() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return kieerrors.New(kieerrors.KindIntegrity, "store closed")
	}
	h.inFlight++
	return nil
}

func (h *baseHandle) release() {
	h.mu.Lock()
	h.inFlight--
	h.mu.Unlock()
}

// Add inserts embeddedNodes, one row per node. Each insert is its own atomic
// statement; mixed vector dimensions within a base are rejected (the base's
// dimensionality is fixed by whichever node is added first since the
// collection was created or last cleared).
func (s *Store) Add(ctx context.Context, baseID string, nodes []readers.Node) ([]string, error) {
	h, err := s.getOrCreate(baseID)
	if err != nil {
		return nil, err
	}
	if err := h.acquire(); err != nil {
		return nil, err
	}
	defer h.release()

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		dim := len(n.Vector)

		h.mu.Lock()
		if h.dimensions == 0 {
			h.dimensions = dim
		} else if h.dimensions != dim {
			h.mu.Unlock()
			return nil, kieerrors.Newf(kieerrors.KindIntegrity,
				"dimension mismatch: base %q has dimension %d, node has %d", baseID, h.dimensions, dim)
		}
		h.mu.Unlock()

		metaJSON, err := json.Marshal(n.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal node metadata: %w", err)
		}

		id := uuid.NewString()
		_, err = h.db.ExecContext(ctx,
			`INSERT INTO nodes (id, external_id, text, metadata, vector, dimensions) VALUES (?, ?, ?, ?, ?, ?)`,
			id, externalIDOf(n), n.Text, string(metaJSON), encodeVector(n.Vector), dim)
		if err != nil {
			return nil, fmt.Errorf("insert node: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteByExternalId removes every node whose external_id matches, returning
// the number of rows removed.
func (s *Store) DeleteByExternalId(ctx context.Context, baseID, externalID string) (int, error) {
	h, err := s.getOrCreate(baseID)
	if err != nil {
		return 0, err
	}
	if err := h.acquire(); err != nil {
		return 0, err
	}
	defer h.release()

	res, err := h.db.ExecContext(ctx, `DELETE FROM nodes WHERE external_id = ?`, externalID)
	if err != nil {
		return 0, fmt.Errorf("delete by external id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// Delete removes a single node by its store-assigned id.
func (s *Store) Delete(ctx context.Context, baseID, nodeID string) error {
	h, err := s.getOrCreate(baseID)
	if err != nil {
		return err
	}
	if err := h.acquire(); err != nil {
		return err
	}
	defer h.release()

	if _, err := h.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, nodeID); err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	return nil
}

// ClearCollection removes every row in place, keeping the database file and
// its observed dimensionality reset so a subsequent Add may use a different
// vector size.
func (s *Store) ClearCollection(ctx context.Context, baseID string) error {
	h, err := s.getOrCreate(baseID)
	if err != nil {
		return err
	}
	if err := h.acquire(); err != nil {
		return err
	}
	defer h.release()

	if _, err := h.db.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	h.mu.Lock()
	h.dimensions = 0
	h.mu.Unlock()
	return nil
}

// DeleteBase closes a base's handle, waits briefly for in-flight operations
// to quiesce, and removes its directory recursively. It does not hard-fail
// if the underlying database refuses to release within the grace window;
// per spec §4.7 that case is logged by the caller and the removal proceeds
// anyway.
func (s *Store) DeleteBase(baseID string) error {
	s.mu.Lock()
	h, ok := s.bases[baseID]
	if ok {
		delete(s.bases, baseID)
	}
	s.mu.Unlock()

	dir := s.dirFor(baseID)
	if !ok {
		return os.RemoveAll(dir)
	}

	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()

	deadline := time.Now().Add(closeGrace)
	for {
		h.mu.Lock()
		n := h.inFlight
		h.mu.Unlock()
		if n == 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	_ = h.db.Close()
	return os.RemoveAll(dir)
}

// Close closes every open base handle without deleting any data. Intended
// for process shutdown.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for id, h := range s.bases {
		if err := h.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.bases, id)
	}
	return firstErr
}

func externalIDOf(n readers.Node) string {
	if v, ok := n.Metadata["external_id"].(string); ok {
		return v
	}
	return ""
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
