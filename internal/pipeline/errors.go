// ABOUTME: Error taxonomy for the generation pipeline
// ABOUTME: Maps lower-layer failures onto caller-facing categories
package pipeline

import "errors"

// Pipeline error categories. Callers branch on these with errors.Is; the
// wrapped cause carries the detail.
var (
	// ErrInvalidInput marks a missing requirement, blank text, or an
	// unknown provider selector. Fatal for the request.
	ErrInvalidInput = errors.New("invalid generation input")
	// ErrRetrievalUnavailable marks an embedding or corpus failure.
	// Recoverable by retrying or requesting skip-retrieval mode.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrProviderAuth marks a total outage where credential failure
	// contributed; the configured keys need fixing, not a retry.
	ErrProviderAuth = errors.New("provider authentication failed")
	// ErrProviderUnavailable marks a round where no provider produced
	// output. Recorded on the requirement before returning.
	ErrProviderUnavailable = errors.New("no provider output available")
	// ErrConsensusValidation marks a final response that failed structured
	// parsing or validation after the bounded repair attempts.
	ErrConsensusValidation = errors.New("consensus validation failed")
	// ErrPersistence marks a generation that succeeded but could not be
	// written. The result is lost; the caller must rerun.
	ErrPersistence = errors.New("failed to persist generation")
)

// Failure kinds recorded on the requirement row.
const (
	failureAuth       = "provider_auth"
	failureProvider   = "provider_unavailable"
	failureValidation = "consensus_validation"
)
