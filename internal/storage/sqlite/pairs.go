// ABOUTME: Historical pair corpus storage with BLOB-encoded vectors
// ABOUTME: Implements the retrieval index interface over SQLite
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/propelq/rfpgen/internal/models"
)

// PairStore handles historical pair persistence. It satisfies the retrieval
// index interface, so the retriever can run directly over the database.
type PairStore struct {
	db *DB
}

// NewPairStore creates a new PairStore
func NewPairStore(db *DB) *PairStore {
	return &PairStore{db: db}
}

// Add inserts or replaces a historical pair
func (s *PairStore) Add(ctx context.Context, pair models.HistoricalPair) error {
	if pair.ID == "" {
		return fmt.Errorf("pair id must not be empty")
	}
	if pair.CreatedAt.IsZero() {
		pair.CreatedAt = time.Now()
	}

	var blob []byte
	if len(pair.Vector) > 0 {
		blob = vectorToBlob(pair.Vector)
	}

	var metadataJSON sql.NullString
	if len(pair.Metadata) > 0 {
		data, err := json.Marshal(pair.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		metadataJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO historical_pairs (id, category, requirement, response, customer, vector, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			requirement = excluded.requirement,
			response = excluded.response,
			customer = excluded.customer,
			vector = excluded.vector,
			metadata = excluded.metadata
	`, pair.ID, nullString(pair.Category), pair.Requirement, pair.Response,
		nullString(pair.Customer), blob, metadataJSON, pair.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save pair: %w", err)
	}
	return nil
}

// All returns every historical pair. Pairs with corrupt vector blobs are
// returned without a vector; the retriever excludes them from scoring.
func (s *PairStore) All(ctx context.Context) ([]models.HistoricalPair, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, category, requirement, response, customer, vector, metadata, created_at
		FROM historical_pairs
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var pairs []models.HistoricalPair
	for rows.Next() {
		var (
			pair         models.HistoricalPair
			category     sql.NullString
			customer     sql.NullString
			blob         []byte
			metadataJSON sql.NullString
		)

		if err := rows.Scan(&pair.ID, &category, &pair.Requirement, &pair.Response,
			&customer, &blob, &metadataJSON, &pair.CreatedAt); err != nil {
			return nil, err
		}

		pair.Category = category.String
		pair.Customer = customer.String
		if len(blob) > 0 {
			if len(blob)%8 != 0 {
				log.Printf("pair %s has corrupt vector blob (%d bytes), excluding from retrieval", pair.ID, len(blob))
			} else {
				pair.Vector = blobToVector(blob)
			}
		}
		if metadataJSON.Valid {
			if err := json.Unmarshal([]byte(metadataJSON.String), &pair.Metadata); err != nil {
				log.Printf("pair %s has corrupt metadata, ignoring: %v", pair.ID, err)
			}
		}

		pairs = append(pairs, pair)
	}

	return pairs, rows.Err()
}

// Count returns the number of pairs in the corpus
func (s *PairStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM historical_pairs").Scan(&count)
	return count, err
}

// Delete removes a pair by ID
func (s *PairStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Conn().ExecContext(ctx, "DELETE FROM historical_pairs WHERE id = ?", id)
	return err
}

// vectorToBlob converts a float64 slice to binary blob
func vectorToBlob(vector []float64) []byte {
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to float64 slice
func blobToVector(blob []byte) []float64 {
	count := len(blob) / 8
	vector := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint64(blob[i*8:])
		vector[i] = math.Float64frombits(bits)
	}
	return vector
}
