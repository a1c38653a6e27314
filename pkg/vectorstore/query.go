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
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kraklabs/kie/pkg/readers"
)

// Mode selects a Query's scoring strategy.
type Mode string

const (
	// ModeDefault ranks by cosine similarity against QueryEmbedding.
	ModeDefault Mode = "default"

	// ModeBM25 ranks by lexical BM25 score against QueryStr.
	ModeBM25 Mode = "bm25"

	// ModeHybrid blends normalized vector and BM25 scores by Alpha.
	ModeHybrid Mode = "hybrid"
)

// DefaultDocumentCount is topK's default when the caller omits it.
const DefaultDocumentCount = 6

// DefaultAlpha is the hybrid blend weight used when Alpha is nil.
const DefaultAlpha = 0.5

// QueryRequest parametrizes Store.Query. Alpha is a pointer so a caller can
// distinguish "not provided" (use DefaultAlpha) from an explicit 0.
type QueryRequest struct {
	QueryEmbedding []float32
	QueryStr       string
	SimilarityTopK int
	Mode           Mode
	Alpha          *float64
}

// QueryResult pairs each returned node with its similarity score; the two
// slices always have equal length and share index i.
type QueryResult struct {
	Nodes        []readers.Node
	Similarities []float64
}

type nodeRecord struct {
	rowid  int64
	node   readers.Node
	vector []float32
}

type scoredRecord struct {
	rowid int64
	node  readers.Node
	score float64
}

// Query runs a vector, bm25, or hybrid search over a base's stored nodes,
// per spec §4.7. Results are ordered by descending score, ties broken by
// insertion order (SQLite rowid).
func (s *Store) Query(ctx context.Context, baseID string, req QueryRequest) (QueryResult, error) {
	h, err := s.getOrCreate(baseID)
	if err != nil {
		return QueryResult{}, err
	}
	if err := h.acquire(); err != nil {
		return QueryResult{}, err
	}
	defer h.release()

	records, err := loadRecords(ctx, h.db)
	if err != nil {
		return QueryResult{}, err
	}

	topK := req.SimilarityTopK
	if topK <= 0 {
		topK = DefaultDocumentCount
	}

	alpha := DefaultAlpha
	if req.Alpha != nil {
		alpha = clamp01(*req.Alpha)
	}

	scored := scoreRecords(records, req, alpha)

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].rowid < scored[j].rowid
	})
	if topK < len(scored) {
		scored = scored[:topK]
	}

	result := QueryResult{
		Nodes:        make([]readers.Node, len(scored)),
		Similarities: make([]float64, len(scored)),
	}
	for i, sr := range scored {
		result.Nodes[i] = sr.node
		result.Similarities[i] = sr.score
	}
	return result, nil
}

func loadRecords(ctx context.Context, db *sql.DB) ([]nodeRecord, error) {
	rows, err := db.QueryContext(ctx, `SELECT rowid, text, metadata, vector FROM nodes ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var records []nodeRecord
	for rows.Next() {
		var (
			rowid    int64
			text     string
			metaJSON string
			vecBytes []byte
		)
		if err := rows.Scan(&rowid, &text, &metaJSON, &vecBytes); err != nil {
			return nil, fmt.Errorf("scan node row: %w", err)
		}

		var meta map[string]any
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, fmt.Errorf("unmarshal node metadata: %w", err)
		}

		vector := decodeVector(vecBytes)
		records = append(records, nodeRecord{
			rowid:  rowid,
			node:   readers.Node{Text: text, Metadata: meta, Vector: vector},
			vector: vector,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate node rows: %w", err)
	}
	return records, nil
}

func scoreRecords(records []nodeRecord, req QueryRequest, alpha float64) []scoredRecord {
	mode := req.Mode
	if mode == "" {
		mode = ModeDefault
	}

	scored := make([]scoredRecord, len(records))

	switch mode {
	case ModeBM25:
		texts := make([]string, len(records))
		for i, r := range records {
			texts[i] = r.node.Text
		}
		scores := bm25Scores(req.QueryStr, texts)
		for i, r := range records {
			scored[i] = scoredRecord{rowid: r.rowid, node: r.node, score: scores[i]}
		}
	case ModeHybrid:
		texts := make([]string, len(records))
		cosines := make([]float64, len(records))
		for i, r := range records {
			texts[i] = r.node.Text
			cosines[i] = cosineSimilarity(req.QueryEmbedding, r.vector)
		}
		bm25 := bm25Scores(req.QueryStr, texts)
		normCos := normalize(cosines)
		normBM := normalize(bm25)
		for i, r := range records {
			combined := alpha*normCos[i] + (1-alpha)*normBM[i]
			scored[i] = scoredRecord{rowid: r.rowid, node: r.node, score: combined}
		}
	default:
		for i, r := range records {
			scored[i] = scoredRecord{rowid: r.rowid, node: r.node, score: cosineSimilarity(req.QueryEmbedding, r.vector)}
		}
	}
	return scored
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
