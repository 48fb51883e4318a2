// Package search finds related summaries by cosine similarity over the
// stored embedding vectors. The corpus is small enough (one vector per
// active summary) that a full in-memory scan beats maintaining an index.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/untoldecay/Distillery/internal/storage"
	"github.com/untoldecay/Distillery/internal/types"
)

// Search scores a target summary against every other embedded active
// summary.
type Search struct {
	store storage.Store
}

func New(store storage.Store) *Search {
	return &Search{store: store}
}

// Related returns up to limit neighbors of the given summary with similarity
// at or above threshold, most similar first. The target itself is excluded.
func (s *Search) Related(ctx context.Context, summaryID string, limit int, threshold float64) ([]types.Neighbor, error) {
	target, err := s.store.EmbeddingFor(ctx, summaryID)
	if err != nil {
		return nil, fmt.Errorf("load target embedding: %w", err)
	}
	corpus, err := s.store.ActiveSummaryEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	var neighbors []types.Neighbor
	for _, se := range corpus {
		if se.SummaryID == summaryID {
			continue
		}
		sim := cosineSimilarity(target, se.Vector)
		if sim < threshold {
			continue
		}
		neighbors = append(neighbors, types.Neighbor{
			SummaryID:  se.SummaryID,
			Similarity: sim,
			Content:    se.Content,
			Path:       se.Path,
			Category:   se.Category,
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})
	if limit > 0 && len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
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
