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

package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	kieerrors "github.com/kraklabs/kie/internal/errors"
	"github.com/kraklabs/kie/pkg/readers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func nodeWithVector(text string, vec []float32) readers.Node {
	return readers.Node{
		Text:     text,
		Metadata: map[string]any{"external_id": text},
		Vector:   vec,
	}
}

func TestStore_AddAssignsIDsAndPersists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids, err := s.Add(ctx, "base-1", []readers.Node{
		nodeWithVector("hello", []float32{1, 0, 0}),
		nodeWithVector("world", []float32{0, 1, 0}),
	})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestStore_AddRejectsDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "base-1", []readers.Node{nodeWithVector("a", []float32{1, 0})})
	require.NoError(t, err)

	_, err = s.Add(ctx, "base-1", []readers.Node{nodeWithVector("b", []float32{1, 0, 0})})
	require.Error(t, err)
	assert.Equal(t, kieerrors.KindIntegrity, kieerrors.KindOf(err))
}

func TestStore_SanitizeBaseIDCreatesSafeDirectory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "weird/base id!", []readers.Node{nodeWithVector("a", []float32{1})})
	require.NoError(t, err)

	entries, err := os.ReadDir(s.root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "/")
	assert.NotContains(t, entries[0].Name(), "!")
}

func TestStore_DeleteByExternalIdRemovesMatchingRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "base-1", []readers.Node{
		nodeWithVector("keep", []float32{1, 0}),
		nodeWithVector("drop", []float32{0, 1}),
	})
	require.NoError(t, err)

	n, err := s.DeleteByExternalId(ctx, "base-1", "drop")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	result, err := s.Query(ctx, "base-1", QueryRequest{QueryEmbedding: []float32{1, 0}, SimilarityTopK: 10})
	require.NoError(t, err)
	assert.Len(t, result.Nodes, 1)
	assert.Equal(t, "keep", result.Nodes[0].Text)
}

func TestStore_ClearCollectionResetsDimensionality(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "base-1", []readers.Node{nodeWithVector("a", []float32{1, 0})})
	require.NoError(t, err)

	require.NoError(t, s.ClearCollection(ctx, "base-1"))

	_, err = s.Add(ctx, "base-1", []readers.Node{nodeWithVector("b", []float32{1, 0, 0})})
	assert.NoError(t, err)
}

func TestStore_DeleteBaseRemovesDirectory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "base-1", []readers.Node{nodeWithVector("a", []float32{1})})
	require.NoError(t, err)

	require.NoError(t, s.DeleteBase("base-1"))

	_, err = os.Stat(s.dirFor("base-1"))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_DeleteBaseOnNeverOpenedBaseIsNoop(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.DeleteBase("never-touched"))
}

func TestStore_CloseClosesAllHandlesWithoutDeletingFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "base-1", []readers.Node{nodeWithVector("a", []float32{1})})
	require.NoError(t, err)

	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Join(s.dirFor("base-1"), "store.db"))
	assert.NoError(t, err)
}

func TestEncodeDecodeVectorRoundTrips(t *testing.T) {
	v := []float32{0.5, -1.25, 3.0, 0}
	decoded := decodeVector(encodeVector(v))
	assert.Equal(t, v, decoded)
}

func TestSanitizeBaseID_EmptyFallsBackToDefault(t *testing.T) {
	assert.Equal(t, "base", sanitizeBaseID(""))
	assert.Equal(t, "base", sanitizeBaseID("///"))
}
