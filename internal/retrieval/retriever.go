// ABOUTME: Similarity retriever with cosine scoring and floor filtering
// ABOUTME: Embeds the query and ranks historical pairs deterministically
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/propelq/rfpgen/internal/llm"
	"github.com/propelq/rfpgen/internal/models"
)

// ErrUnavailable marks a retrieval failure caused by the embedding backend.
// Recoverable: the caller may retry or fall back to skip-retrieval mode.
var ErrUnavailable = errors.New("retrieval unavailable")

// Retriever finds the most similar historical pairs for a query requirement
type Retriever struct {
	index     Index
	embedder  llm.Embedder
	dimension int
}

// NewRetriever creates a Retriever over the given index and embedder
func NewRetriever(index Index, embedder llm.Embedder, dimension int) *Retriever {
	return &Retriever{
		index:     index,
		embedder:  embedder,
		dimension: dimension,
	}
}

// Retrieve embeds the requirement text and returns up to k matches with
// similarity >= floor, ordered by descending score. Equal scores are broken
// by ascending pair id so results are reproducible. An empty corpus or a
// floor that eliminates every candidate yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, requirementText string, k int, floor float64) ([]models.RetrievedMatch, error) {
	if strings.TrimSpace(requirementText) == "" {
		return nil, fmt.Errorf("requirement text must not be empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if floor < 0 || floor > 1 {
		return nil, fmt.Errorf("similarity floor must be 0-1, got %f", floor)
	}

	queryVector, err := r.embedder.Embed(ctx, requirementText)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", ErrUnavailable, err)
	}

	pairs, err := r.index.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing corpus: %v", ErrUnavailable, err)
	}

	matches := make([]models.RetrievedMatch, 0, len(pairs))
	for _, pair := range pairs {
		// A pair without a usable vector is excluded, never given a
		// fabricated score.
		if !pair.HasVector(len(queryVector)) {
			continue
		}
		score := cosineSimilarity(queryVector, pair.Vector)
		if score < floor {
			continue
		}
		matches = append(matches, models.RetrievedMatch{
			Pair:            pair,
			SimilarityScore: score,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].SimilarityScore != matches[j].SimilarityScore {
			return matches[i].SimilarityScore > matches[j].SimilarityScore
		}
		return matches[i].Pair.ID < matches[j].Pair.ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	for i := range matches {
		matches[i].Rank = i + 1
	}

	return matches, nil
}

// cosineSimilarity calculates cosine similarity between two vectors
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
