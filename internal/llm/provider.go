// ABOUTME: Provider abstraction for model backends used in response generation
// ABOUTME: Defines the Prompt/Result shapes and provider error classification
package llm

import (
	"context"
	"errors"
	"time"
)

// Canonical provider names. These are the only keys allowed in persisted
// provider outputs and in the generation request selector.
const (
	ProviderOpenAI    = "openai"
	ProviderDeepSeek  = "deepseek"
	ProviderAnthropic = "anthropic"
)

// Sentinel errors for provider failure classification.
var (
	// ErrAuth marks invalid credentials. Fatal for that provider only,
	// never retried.
	ErrAuth = errors.New("provider authentication failed")
	// ErrMalformed marks a response that could not be parsed into the
	// normalized result shape.
	ErrMalformed = errors.New("provider returned malformed response")
)

// Prompt is the assembled instruction set sent to a provider. Validation is
// an optional trailing user message that re-checks the draft against the
// grounding and word-budget rules.
type Prompt struct {
	System     string
	User       string
	Validation string
}

// Result is the single normalized shape every adapter produces. Raw provider
// response JSON never crosses this package's boundary.
type Result struct {
	Provider string
	Text     string
	Elapsed  time.Duration
}

// Provider sends one assembled prompt to a model backend. Implementations
// are stateless and safe for concurrent use.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt Prompt) (Result, error)
}

// Embedder produces fixed-length vectors for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
