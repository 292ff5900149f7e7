// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package keyword

import (
	"slices"
	"strings"

	"github.com/poiesic/sift/core"
)

// Weights controls how the individual signals add up to a chunk score.
type Weights struct {
	// BodyOccurrence is added for every occurrence of a term in the chunk text.
	BodyOccurrence float64
	// TitleOccurrence is added for every occurrence of a term in the title.
	TitleOccurrence float64
	// Position is the bonus for a first body occurrence at offset zero.
	// It decays linearly to zero at PositionWindow characters.
	Position       float64
	PositionWindow int
	// DistinctTerms is scaled by the fraction of distinct query terms matched.
	DistinctTerms float64
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		BodyOccurrence:  0.1,
		TitleOccurrence: 0.5,
		Position:        0.3,
		PositionWindow:  100,
		DistinctTerms:   0.5,
	}
}

// Query is a prepared keyword query.
type Query struct {
	Terms         []string
	CaseSensitive bool
}

// ParseQuery splits text into distinct whitespace-delimited terms.
// Terms are lowercased unless caseSensitive is set.
func ParseQuery(text string, caseSensitive bool) Query {
	if !caseSensitive {
		text = strings.ToLower(text)
	}
	fields := strings.Fields(text)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if !slices.Contains(terms, f) {
			terms = append(terms, f)
		}
	}
	return Query{Terms: terms, CaseSensitive: caseSensitive}
}

// Scorer computes term-statistics relevance for chunks.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(weights Weights) *Scorer {
	if weights.PositionWindow < 1 {
		weights.PositionWindow = 1
	}
	return &Scorer{weights: weights}
}

// Score rates a chunk against a query.
// The boolean is false when no query term occurs in the chunk title or text.
func (s *Scorer) Score(q Query, chunk *core.Chunk) (core.ScoredChunk, bool) {
	if len(q.Terms) == 0 {
		return core.ScoredChunk{}, false
	}

	body, title := chunk.Text, chunk.Title
	if !q.CaseSensitive {
		body = strings.ToLower(body)
		title = strings.ToLower(title)
	}

	var score float64
	matched := 0
	for _, term := range q.Terms {
		bodyCount := strings.Count(body, term)
		titleCount := strings.Count(title, term)
		if bodyCount == 0 && titleCount == 0 {
			continue
		}
		matched++

		score += float64(bodyCount) * s.weights.BodyOccurrence
		score += float64(titleCount) * s.weights.TitleOccurrence

		if bodyCount > 0 {
			score += s.positionBonus(strings.Index(body, term))
		}
	}

	if matched == 0 {
		return core.ScoredChunk{}, false
	}

	score += s.weights.DistinctTerms * float64(matched) / float64(len(q.Terms))

	return core.ScoredChunk{
		Chunk:       chunk,
		Score:       score,
		TermMatches: matched,
	}, true
}

// positionBonus decays linearly with the byte offset of the first occurrence.
func (s *Scorer) positionBonus(offset int) float64 {
	if offset < 0 || offset >= s.weights.PositionWindow {
		return 0
	}
	return s.weights.Position * (1 - float64(offset)/float64(s.weights.PositionWindow))
}

// Rank sorts scored chunks best first.
// Ties go to the newer publish date, then the earlier chunk, then the chunk id.
func Rank(scored []core.ScoredChunk) {
	slices.SortStableFunc(scored, func(a, b core.ScoredChunk) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if c := b.Chunk.PublishDate.Compare(a.Chunk.PublishDate); c != 0 {
			return c
		}
		if a.Chunk.Ordinal != b.Chunk.Ordinal {
			return a.Chunk.Ordinal - b.Chunk.Ordinal
		}
		return strings.Compare(a.Chunk.Id, b.Chunk.Id)
	})
}
