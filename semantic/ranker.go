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


// Package semantic ranks chunks by vector similarity.
//
// The vector index answers nearest-neighbor queries with squared Euclidean
// distances. A Calibration turns each distance into a similarity in [0, 1],
// and results below the caller's threshold are dropped.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/storage"
)

// ErrVectorSearcherRequired is returned when no vector searcher is provided.
var ErrVectorSearcherRequired = errors.New("vector searcher required")

// Ranker issues kNN queries and converts distances to similarities.
type Ranker struct {
	index     storage.VectorSearcher
	calibrate Calibration
	logger    *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithCalibration sets the distance to similarity mapping.
// Default is Linear(DefaultMaxDistance).
func WithCalibration(c Calibration) Option {
	return func(r *Ranker) error {
		if c == nil {
			return fmt.Errorf("%w: calibration cannot be nil", core.ErrConfiguration)
		}
		r.calibrate = c
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRanker creates a ranker over a vector index.
func NewRanker(index storage.VectorSearcher, opts ...Option) (*Ranker, error) {
	if index == nil {
		return nil, ErrVectorSearcherRequired
	}

	r := &Ranker{
		index:     index,
		calibrate: Linear(DefaultMaxDistance),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "semantic-ranker")

	return r, nil
}

// Rank returns up to k chunks whose similarity to vector is at least threshold,
// most similar first. An empty category searches all categories.
// Returns an empty slice when nothing passes the threshold.
func (r *Ranker) Rank(ctx context.Context, vector []float32, k int, category string, threshold float64) ([]core.ScoredChunk, error) {
	neighbors, err := r.index.FindNearest(ctx, vector, k, category)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Error("nearest neighbor query failed", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}

	results := make([]core.ScoredChunk, 0, len(neighbors))
	for _, n := range neighbors {
		similarity := r.calibrate(n.Distance)
		if similarity < threshold {
			continue
		}
		results = append(results, core.ScoredChunk{
			Chunk:    n.Chunk,
			Score:    similarity,
			Distance: n.Distance,
		})
	}

	slices.SortStableFunc(results, func(a, b core.ScoredChunk) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Chunk.Id, b.Chunk.Id)
	})

	r.logger.Debug("semantic ranking complete", "neighbors", len(neighbors), "kept", len(results), "threshold", threshold)
	return results, nil
}
