// ABOUTME: Requirement persistence operations for SQLite
// ABOUTME: Implements whole-row generation writes so reruns fully replace results
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/propelq/rfpgen/internal/llm"
	"github.com/propelq/rfpgen/internal/models"
)

// Generation status values recorded on the requirement row.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RequirementStore handles requirement persistence
type RequirementStore struct {
	db *DB
}

// NewRequirementStore creates a new RequirementStore
func NewRequirementStore(db *DB) *RequirementStore {
	return &RequirementStore{db: db}
}

// Insert creates a requirement row and fills in the assigned ID
func (s *RequirementStore) Insert(ctx context.Context, req *models.Requirement) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	result, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO requirements (requirement, category, rfp_name, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, req.Text, nullString(req.Category), nullString(req.RFPName), nullString(req.UploadedBy), req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert requirement: %w", err)
	}

	req.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted id: %w", err)
	}
	return nil
}

// Get retrieves a requirement by ID. Returns nil when no row exists.
func (s *RequirementStore) Get(ctx context.Context, id int64) (*models.Requirement, error) {
	var (
		req        models.Requirement
		category   sql.NullString
		rfpName    sql.NullString
		uploadedBy sql.NullString
	)

	err := s.db.Conn().QueryRowContext(ctx, `
		SELECT id, requirement, category, rfp_name, uploaded_by, created_at
		FROM requirements
		WHERE id = ?
	`, id).Scan(&req.ID, &req.Text, &category, &rfpName, &uploadedBy, &req.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	req.Category = category.String
	req.RFPName = rfpName.String
	req.UploadedBy = uploadedBy.String
	return &req, nil
}

// SaveGeneration writes a complete generation result onto the requirement
// row. Every generated column is written, absent providers as NULL, so a
// rerun leaves no stale values from a previous round.
func (s *RequirementStore) SaveGeneration(ctx context.Context, id int64, gen *models.GeneratedResponse) error {
	fitmentJSON, err := marshalNullable(gen.Fitment)
	if err != nil {
		return fmt.Errorf("failed to encode fitment: %w", err)
	}
	referencesJSON, err := marshalNullable(gen.References)
	if err != nil {
		return fmt.Errorf("failed to encode references: %w", err)
	}

	generatedAt := gen.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	result, err := s.db.Conn().ExecContext(ctx, `
		UPDATE requirements SET
			openai_response = ?,
			deepseek_response = ?,
			anthropic_response = ?,
			final_response = ?,
			fitment = ?,
			similar_questions = ?,
			model_provider = ?,
			generation_status = ?,
			generation_error = NULL,
			generated_at = ?
		WHERE id = ?
	`,
		nullString(gen.ProviderOutputs[llm.ProviderOpenAI]),
		nullString(gen.ProviderOutputs[llm.ProviderDeepSeek]),
		nullString(gen.ProviderOutputs[llm.ProviderAnthropic]),
		gen.FinalResponse,
		fitmentJSON,
		referencesJSON,
		gen.ModelProvider,
		StatusCompleted,
		generatedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to save generation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("requirement %d not found", id)
	}
	return nil
}

// RecordFailure marks a requirement's generation as failed with a category
// and message. Previous generated content is left in place.
func (s *RequirementStore) RecordFailure(ctx context.Context, id int64, kind, message string) error {
	_, err := s.db.Conn().ExecContext(ctx, `
		UPDATE requirements SET
			generation_status = ?,
			generation_error = ?
		WHERE id = ?
	`, StatusFailed, kind+": "+message, id)
	if err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}
	return nil
}

// GetGeneration reads the persisted generation result for a requirement.
// Returns nil when no generation has completed.
func (s *RequirementStore) GetGeneration(ctx context.Context, id int64) (*models.GeneratedResponse, error) {
	var (
		openaiResp     sql.NullString
		deepseekResp   sql.NullString
		anthropicResp  sql.NullString
		finalResp      sql.NullString
		fitmentJSON    sql.NullString
		referencesJSON sql.NullString
		modelProvider  sql.NullString
		generatedAt    sql.NullTime
	)

	err := s.db.Conn().QueryRowContext(ctx, `
		SELECT openai_response, deepseek_response, anthropic_response,
		       final_response, fitment, similar_questions, model_provider, generated_at
		FROM requirements
		WHERE id = ?
	`, id).Scan(&openaiResp, &deepseekResp, &anthropicResp,
		&finalResp, &fitmentJSON, &referencesJSON, &modelProvider, &generatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !finalResp.Valid {
		return nil, nil
	}

	gen := &models.GeneratedResponse{
		ProviderOutputs: make(map[string]string),
		FinalResponse:   finalResp.String,
		ModelProvider:   modelProvider.String,
	}
	if openaiResp.Valid {
		gen.ProviderOutputs[llm.ProviderOpenAI] = openaiResp.String
	}
	if deepseekResp.Valid {
		gen.ProviderOutputs[llm.ProviderDeepSeek] = deepseekResp.String
	}
	if anthropicResp.Valid {
		gen.ProviderOutputs[llm.ProviderAnthropic] = anthropicResp.String
	}
	if fitmentJSON.Valid {
		var fitment models.Fitment
		if err := json.Unmarshal([]byte(fitmentJSON.String), &fitment); err != nil {
			return nil, fmt.Errorf("failed to decode fitment: %w", err)
		}
		gen.Fitment = &fitment
	}
	if referencesJSON.Valid {
		if err := json.Unmarshal([]byte(referencesJSON.String), &gen.References); err != nil {
			return nil, fmt.Errorf("failed to decode references: %w", err)
		}
	}
	if generatedAt.Valid {
		gen.GeneratedAt = generatedAt.Time
	}

	return gen, nil
}

// nullString converts an empty string to NULL for database storage
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// marshalNullable encodes v as JSON, or NULL for nil values and empty slices
func marshalNullable(v interface{}) (sql.NullString, error) {
	switch val := v.(type) {
	case *models.Fitment:
		if val == nil {
			return sql.NullString{}, nil
		}
	case []models.Reference:
		if len(val) == 0 {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
