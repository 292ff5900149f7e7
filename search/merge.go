package search

import (
	"slices"
	"strings"

	"github.com/poiesic/sift/core"
)

// candidate is one document with its best chunk from each path.
type candidate struct {
	semantic *core.ScoredChunk
	keyword  *core.ScoredChunk

	semanticScore float64
	keywordScore  float64
	score         float64

	// preferSemantic selects the chunk shown when both paths hit.
	preferSemantic bool
}

func (c *candidate) chunk() *core.Chunk {
	if c.semantic != nil && (c.keyword == nil || c.preferSemantic) {
		return c.semantic.Chunk
	}
	return c.keyword.Chunk
}

func (c *candidate) documentID() string {
	return c.chunk().DocumentId
}

// merge collapses chunk hits into one candidate per document, best first.
func (s *Searcher) merge(hits *pathHits) []*candidate {
	switch hits.mode {
	case core.SearchModeKeyword:
		best := bestPerDocument(hits.keyword)
		top := maxScore(best)
		merged := make([]*candidate, len(best))
		for i := range best {
			norm := normalize(best[i].Score, top)
			merged[i] = &candidate{keyword: &best[i], keywordScore: norm, score: norm}
		}
		return merged

	case core.SearchModeSemantic:
		best := bestPerDocument(hits.semantic)
		merged := make([]*candidate, len(best))
		for i := range best {
			merged[i] = &candidate{semantic: &best[i], semanticScore: best[i].Score, score: best[i].Score}
		}
		return merged
	}

	return s.mergeHybrid(hits.semantic, hits.keyword)
}

// mergeHybrid blends max-normalized path scores with the semantic weight.
// A document missing from one path gets zero for it. Equal scores are
// ordered by document ID.
func (s *Searcher) mergeHybrid(semanticHits, keywordHits []core.ScoredChunk) []*candidate {
	sem := bestPerDocument(semanticHits)
	kw := bestPerDocument(keywordHits)
	semMax, kwMax := maxScore(sem), maxScore(kw)

	byDocument := make(map[string]*candidate, len(sem)+len(kw))
	merged := make([]*candidate, 0, len(sem)+len(kw))

	for i := range sem {
		c := &candidate{semantic: &sem[i], semanticScore: normalize(sem[i].Score, semMax)}
		byDocument[sem[i].Chunk.DocumentId] = c
		merged = append(merged, c)
	}
	for i := range kw {
		norm := normalize(kw[i].Score, kwMax)
		if c, ok := byDocument[kw[i].Chunk.DocumentId]; ok {
			c.keyword = &kw[i]
			c.keywordScore = norm
			continue
		}
		c := &candidate{keyword: &kw[i], keywordScore: norm}
		byDocument[kw[i].Chunk.DocumentId] = c
		merged = append(merged, c)
	}

	w := s.semanticWeight
	for _, c := range merged {
		semPart := w * c.semanticScore
		kwPart := (1 - w) * c.keywordScore
		c.score = semPart + kwPart
		c.preferSemantic = semPart >= kwPart
	}

	slices.SortFunc(merged, func(a, b *candidate) int {
		if a.score != b.score {
			if a.score > b.score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.documentID(), b.documentID())
	})
	return merged
}

// bestPerDocument keeps the first hit of each document.
// hits must already be ranked best first.
func bestPerDocument(hits []core.ScoredChunk) []core.ScoredChunk {
	seen := make(map[string]bool, len(hits))
	best := make([]core.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		if seen[hit.Chunk.DocumentId] {
			continue
		}
		seen[hit.Chunk.DocumentId] = true
		best = append(best, hit)
	}
	return best
}

func maxScore(hits []core.ScoredChunk) float64 {
	var top float64
	for _, hit := range hits {
		top = max(top, hit.Score)
	}
	return top
}

func normalize(score, top float64) float64 {
	if top <= 0 {
		return 0
	}
	return score / top
}

// paginate returns merged[offset:offset+limit], clamped to the slice.
func paginate(merged []*candidate, offset, limit int) []*candidate {
	if offset >= len(merged) {
		return nil
	}
	end := min(offset+limit, len(merged))
	return merged[offset:end]
}
