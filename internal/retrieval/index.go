// ABOUTME: Embedding index abstraction over the historical pair corpus
// ABOUTME: Defines the Index interface and an in-memory implementation
package retrieval

import (
	"context"
	"sync"

	"github.com/propelq/rfpgen/internal/models"
)

// Index stores historical requirement/response pairs with their embedding
// vectors. Read-mostly: safe for unlimited concurrent readers.
type Index interface {
	// All returns every stored pair. Pairs without a usable vector are
	// included; the retriever excludes them from scoring.
	All(ctx context.Context) ([]models.HistoricalPair, error)
	// Add stores one pair. Pairs are immutable once created.
	Add(ctx context.Context, pair models.HistoricalPair) error
}

// MemoryIndex is an in-memory Index used in tests and small corpora
type MemoryIndex struct {
	mu    sync.RWMutex
	pairs []models.HistoricalPair
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// All returns a copy of the stored pairs
func (m *MemoryIndex) All(_ context.Context) ([]models.HistoricalPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.HistoricalPair, len(m.pairs))
	copy(out, m.pairs)
	return out, nil
}

// Add appends a pair to the index
func (m *MemoryIndex) Add(_ context.Context, pair models.HistoricalPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs = append(m.pairs, pair)
	return nil
}
