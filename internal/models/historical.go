// ABOUTME: Historical pair corpus entries and retrieval match results
// ABOUTME: Defines HistoricalPair and RetrievedMatch structures
package models

import "time"

// HistoricalPair is a previously answered requirement used as retrieval
// context. Immutable once created; owned by the embedding index.
type HistoricalPair struct {
	ID          string                 `json:"id"`
	Category    string                 `json:"category"`
	Requirement string                 `json:"requirement"`
	Response    string                 `json:"response"`
	Customer    string                 `json:"customer,omitempty"`
	Vector      []float64              `json:"vector,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// HasVector reports whether the pair carries a usable vector of the given
// dimension. Pairs without one are excluded from retrieval, never scored.
func (p *HistoricalPair) HasVector(dimension int) bool {
	return len(p.Vector) == dimension
}

// RetrievedMatch is one retrieval result. Scores are cosine similarities in
// [0,1]; ranks start at 1 and scores are non-increasing by rank.
type RetrievedMatch struct {
	Pair            HistoricalPair `json:"pair"`
	SimilarityScore float64        `json:"similarity_score"`
	Rank            int            `json:"rank"`
}
