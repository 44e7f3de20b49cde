// ABOUTME: Unit tests for similarity retrieval
// ABOUTME: Covers floor filtering, ranking order, tie-breaks, and edge cases
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/propelq/rfpgen/internal/models"
)

// fakeEmbedder returns a fixed vector or a fixed error
type fakeEmbedder struct {
	vector []float64
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	return f.vector, f.err
}

func seededIndex(t *testing.T, pairs ...models.HistoricalPair) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()
	for _, p := range pairs {
		if err := idx.Add(context.Background(), p); err != nil {
			t.Fatalf("seeding index: %v", err)
		}
	}
	return idx
}

func TestRetrieve_FloorFiltering(t *testing.T) {
	idx := seededIndex(t,
		models.HistoricalPair{ID: "p1", Vector: []float64{1, 0, 0}},    // similarity 1.0
		models.HistoricalPair{ID: "p2", Vector: []float64{0.9, 0.43, 0}}, // ~0.9
		models.HistoricalPair{ID: "p3", Vector: []float64{0, 1, 0}},    // 0.0
	)
	r := NewRetriever(idx, &fakeEmbedder{vector: []float64{1, 0, 0}}, 3)

	matches, err := r.Retrieve(context.Background(), "query", 10, 0.85)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches above floor, got %d", len(matches))
	}
	for _, m := range matches {
		if m.SimilarityScore < 0.85 {
			t.Errorf("match %s below floor: %.4f", m.Pair.ID, m.SimilarityScore)
		}
	}
}

func TestRetrieve_RankingOrderAndTruncation(t *testing.T) {
	idx := seededIndex(t,
		models.HistoricalPair{ID: "low", Vector: []float64{0.5, 0.87, 0}},
		models.HistoricalPair{ID: "high", Vector: []float64{1, 0, 0}},
		models.HistoricalPair{ID: "mid", Vector: []float64{0.9, 0.43, 0}},
	)
	r := NewRetriever(idx, &fakeEmbedder{vector: []float64{1, 0, 0}}, 3)

	matches, err := r.Retrieve(context.Background(), "query", 2, 0.0)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("expected truncation to k=2, got %d matches", len(matches))
	}
	if matches[0].Pair.ID != "high" || matches[1].Pair.ID != "mid" {
		t.Errorf("wrong order: got %s, %s", matches[0].Pair.ID, matches[1].Pair.ID)
	}
	for i, m := range matches {
		if m.Rank != i+1 {
			t.Errorf("match %d has rank %d", i, m.Rank)
		}
		if i > 0 && m.SimilarityScore > matches[i-1].SimilarityScore {
			t.Errorf("scores not non-increasing at rank %d", m.Rank)
		}
	}
}

func TestRetrieve_TieBrokenByAscendingID(t *testing.T) {
	// Identical vectors produce identical scores
	idx := seededIndex(t,
		models.HistoricalPair{ID: "zeta", Vector: []float64{1, 0, 0}},
		models.HistoricalPair{ID: "alpha", Vector: []float64{1, 0, 0}},
		models.HistoricalPair{ID: "mike", Vector: []float64{1, 0, 0}},
	)
	r := NewRetriever(idx, &fakeEmbedder{vector: []float64{1, 0, 0}}, 3)

	matches, err := r.Retrieve(context.Background(), "query", 3, 0.0)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	want := []string{"alpha", "mike", "zeta"}
	for i, m := range matches {
		if m.Pair.ID != want[i] {
			t.Errorf("rank %d: got %s, want %s", i+1, m.Pair.ID, want[i])
		}
	}
}

func TestRetrieve_EmptyCorpus(t *testing.T) {
	r := NewRetriever(NewMemoryIndex(), &fakeEmbedder{vector: []float64{1, 0, 0}}, 3)

	matches, err := r.Retrieve(context.Background(), "query", 5, 0.9)
	if err != nil {
		t.Fatalf("empty corpus should not error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected 0 matches, got %d", len(matches))
	}
}

func TestRetrieve_FloorEliminatesAll(t *testing.T) {
	idx := seededIndex(t,
		models.HistoricalPair{ID: "p1", Vector: []float64{0, 1, 0}},
	)
	r := NewRetriever(idx, &fakeEmbedder{vector: []float64{1, 0, 0}}, 3)

	matches, err := r.Retrieve(context.Background(), "query", 5, 0.9)
	if err != nil {
		t.Fatalf("eliminated candidates should not error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected empty match set, got %d", len(matches))
	}
}

func TestRetrieve_PairsWithoutVectorsExcluded(t *testing.T) {
	idx := seededIndex(t,
		models.HistoricalPair{ID: "novec"},
		models.HistoricalPair{ID: "wrongdim", Vector: []float64{1, 0}},
		models.HistoricalPair{ID: "good", Vector: []float64{1, 0, 0}},
	)
	r := NewRetriever(idx, &fakeEmbedder{vector: []float64{1, 0, 0}}, 3)

	matches, err := r.Retrieve(context.Background(), "query", 5, 0.0)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(matches) != 1 || matches[0].Pair.ID != "good" {
		t.Errorf("expected only the well-formed pair, got %d matches", len(matches))
	}
}

func TestRetrieve_EmbeddingFailurePropagates(t *testing.T) {
	r := NewRetriever(NewMemoryIndex(), &fakeEmbedder{err: fmt.Errorf("connection refused")}, 3)

	_, err := r.Retrieve(context.Background(), "query", 5, 0.9)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestRetrieve_InvalidInputs(t *testing.T) {
	r := NewRetriever(NewMemoryIndex(), &fakeEmbedder{vector: []float64{1}}, 1)

	if _, err := r.Retrieve(context.Background(), "   ", 5, 0.9); err == nil {
		t.Error("expected error for blank requirement text")
	}
	if _, err := r.Retrieve(context.Background(), "q", 0, 0.9); err == nil {
		t.Error("expected error for k = 0")
	}
	if _, err := r.Retrieve(context.Background(), "q", 5, 1.5); err == nil {
		t.Error("expected error for floor > 1")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
		delta    float64
	}{
		{"identical", []float64{1, 0, 0}, []float64{1, 0, 0}, 1.0, 0.001},
		{"orthogonal", []float64{1, 0, 0}, []float64{0, 1, 0}, 0.0, 0.001},
		{"opposite", []float64{1, 0, 0}, []float64{-1, 0, 0}, -1.0, 0.001},
		{"similar", []float64{1, 0, 0}, []float64{0.9, 0.1, 0}, 0.995, 0.01},
		{"length mismatch", []float64{1, 0}, []float64{1, 0, 0}, 0.0, 0.001},
		{"zero vector", []float64{0, 0, 0}, []float64{1, 0, 0}, 0.0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.expected; diff > tt.delta || diff < -tt.delta {
				t.Errorf("cosineSimilarity(%v, %v) = %.4f, want %.4f",
					tt.a, tt.b, got, tt.expected)
			}
		})
	}
}
