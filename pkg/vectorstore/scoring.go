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
	"math"
	"regexp"
	"strings"
)

// bm25K1 and bm25B are the classic Okapi BM25 tuning constants.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 if
// either vector is empty or zero-length, or their dimensions disagree.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// bm25Scores computes a classic Okapi BM25 score for queryStr against each
// document in docs, computed entirely in Go rather than via a SQL full-text
// extension. There is no in-pack dependency on sqlite's FTS5 usage, and the
// engine's own bm25 ranking function would require a virtual table schema
// unrelated to this store's plain nodes table, so term frequency, document
// frequency, and the final score are all plain arithmetic here.
func bm25Scores(queryStr string, docs []string) []float64 {
	queryTerms := tokenize(queryStr)
	n := len(docs)
	scores := make([]float64, n)
	if n == 0 || len(queryTerms) == 0 {
		return scores
	}

	docTokens := make([][]string, n)
	totalLen := 0
	docFreq := make(map[string]int)
	for i, doc := range docs {
		toks := tokenize(doc)
		docTokens[i] = toks
		totalLen += len(toks)

		seen := make(map[string]bool, len(toks))
		for _, t := range toks {
			if !seen[t] {
				docFreq[t]++
				seen[t] = true
			}
		}
	}
	avgLen := float64(totalLen) / float64(n)

	idf := make(map[string]float64, len(queryTerms))
	for _, term := range queryTerms {
		if _, ok := idf[term]; ok {
			continue
		}
		df := float64(docFreq[term])
		idf[term] = math.Log((float64(n)-df+0.5)/(df+0.5) + 1)
	}

	for i, toks := range docTokens {
		termFreq := make(map[string]int, len(toks))
		for _, t := range toks {
			termFreq[t]++
		}
		docLen := float64(len(toks))

		var score float64
		for _, term := range queryTerms {
			f := float64(termFreq[term])
			if f == 0 {
				continue
			}
			numerator := f * (bm25K1 + 1)
			denominator := f + bm25K1*(1-bm25B+bm25B*docLen/avgLen)
			score += idf[term] * numerator / denominator
		}
		scores[i] = score
	}
	return scores
}

// normalize min-max scales values into [0, 1]. A constant input (including
// length <= 1) maps every value to 1 rather than dividing by zero.
func normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, v := range values {
		out[i] = (v - min) / (max - min)
	}
	return out
}
