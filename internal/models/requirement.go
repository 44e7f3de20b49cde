// ABOUTME: Core data types for RFP requirements and generated responses
// ABOUTME: Defines Requirement, GeneratedResponse, and Reference structures
package models

import "time"

// Requirement is one customer-facing question to answer. Created by the
// upload layer; the core reads the text and writes generated fields back.
type Requirement struct {
	ID         int64     `json:"id"`
	Text       string    `json:"requirement"`
	Category   string    `json:"category"`
	RFPName    string    `json:"rfp_name,omitempty"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Reference identifies one historical pair cited as grounding for an answer.
type Reference struct {
	PairID          string  `json:"pair_id"`
	Label           string  `json:"label"`
	SimilarityScore float64 `json:"similarity_score"`
}

// GeneratedResponse holds the per-provider and final answers for one
// Requirement. ProviderOutputs keys are the canonical provider names.
type GeneratedResponse struct {
	ProviderOutputs map[string]string `json:"provider_outputs"`
	FinalResponse   string            `json:"final_response"`
	ModelProvider   string            `json:"model_provider"`
	Fitment         *Fitment          `json:"fitment,omitempty"`
	References      []Reference       `json:"references"`
	GeneratedAt     time.Time         `json:"generated_at"`
}
