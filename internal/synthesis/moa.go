// ABOUTME: Mixture-of-agents consensus engine over multiple model providers
// ABOUTME: Fans out one prompt concurrently, then synthesizes a single answer
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/propelq/rfpgen/internal/llm"
	"github.com/propelq/rfpgen/internal/models"
	"github.com/propelq/rfpgen/internal/prompt"
)

// Sentinel errors for consensus failure classification.
var (
	// ErrNoProviders marks a generation where every configured provider
	// failed. Nothing is persisted as a final response in this case.
	ErrNoProviders = errors.New("all providers failed")
	// ErrValidation marks a final response that could not be brought into
	// a valid shape after the bounded repair attempts.
	ErrValidation = errors.New("consensus validation failed")
)

// ConsensusProvider is the value recorded as the model provider when the
// final response was synthesized from multiple outputs.
const ConsensusProvider = "consensus"

// Outcome collects the per-provider results of one fan-out round. Every
// provider appears in exactly one of the two maps.
type Outcome struct {
	Results map[string]llm.Result
	Errors  map[string]error
}

// Consensus is the synthesized product of one generation round.
type Consensus struct {
	// ProviderOutputs holds the raw text of every provider that succeeded,
	// keyed by provider name.
	ProviderOutputs map[string]string
	FinalResponse   string
	// ModelProvider is "consensus", or the sole surviving provider's name
	// when only one output was available.
	ModelProvider string
	// Fitment is non-nil only in structured mode.
	Fitment *models.Fitment
}

// Engine coordinates the two-phase consensus flow: independent provider
// calls, then synthesis of the survivors into one answer.
type Engine struct {
	providers   []llm.Provider
	synthesizer llm.Provider
	opts        prompt.Options
}

// NewEngine creates an Engine. The synthesizer runs the phase-2 merge and
// the refinement pass; it is typically the strongest configured provider.
func NewEngine(providers []llm.Provider, synthesizer llm.Provider, opts prompt.Options) *Engine {
	return &Engine{
		providers:   providers,
		synthesizer: synthesizer,
		opts:        opts,
	}
}

// FanOut sends the prompt to every provider concurrently. A provider failure
// is recorded and never blocks or cancels the sibling calls.
func (e *Engine) FanOut(ctx context.Context, p llm.Prompt) Outcome {
	out := Outcome{
		Results: make(map[string]llm.Result, len(e.providers)),
		Errors:  make(map[string]error),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, provider := range e.providers {
		wg.Add(1)
		go func(provider llm.Provider) {
			defer wg.Done()
			result, err := provider.Complete(ctx, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("provider %s failed: %v", provider.Name(), err)
				out.Errors[provider.Name()] = err
				return
			}
			out.Results[provider.Name()] = result
		}(provider)
	}
	wg.Wait()

	return out
}

// Generate runs the full consensus flow for one assembled prompt: fan-out,
// synthesis, structured parsing when requested, and the bounded validation
// pass. Returns ErrNoProviders when no provider produced output.
func (e *Engine) Generate(ctx context.Context, requirementText string, p llm.Prompt, mode prompt.Mode) (*Consensus, error) {
	outcome := e.FanOut(ctx, p)
	if len(outcome.Results) == 0 {
		errs := make([]error, 0, len(outcome.Errors))
		for _, err := range outcome.Errors {
			errs = append(errs, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrNoProviders, errors.Join(errs...))
	}

	consensus := &Consensus{
		ProviderOutputs: make(map[string]string, len(outcome.Results)),
	}
	ordered := make([]llm.Result, 0, len(outcome.Results))
	for _, provider := range e.providers {
		result, ok := outcome.Results[provider.Name()]
		if !ok {
			continue
		}
		consensus.ProviderOutputs[result.Provider] = result.Text
		ordered = append(ordered, result)
	}

	final, providerName, err := e.synthesize(ctx, requirementText, ordered, mode)
	if err != nil {
		return nil, err
	}
	consensus.FinalResponse = final
	consensus.ModelProvider = providerName

	if mode == prompt.ModeStructured {
		if err := e.applyStructured(consensus); err != nil {
			return nil, err
		}
	}

	final, err = e.validate(ctx, requirementText, consensus.FinalResponse)
	if err != nil {
		return nil, err
	}
	consensus.FinalResponse = final

	return consensus, nil
}

// synthesize merges the surviving outputs. A single survivor passes through
// untouched; there is nothing to reconcile.
func (e *Engine) synthesize(ctx context.Context, requirementText string, outputs []llm.Result, mode prompt.Mode) (string, string, error) {
	if len(outputs) == 1 {
		return outputs[0].Text, outputs[0].Provider, nil
	}

	synthPrompt, err := prompt.Synthesis(requirementText, outputs, mode, e.opts)
	if err != nil {
		return "", "", fmt.Errorf("building synthesis prompt: %w", err)
	}

	result, err := e.synthesizer.Complete(ctx, synthPrompt)
	if err != nil {
		// Fall back to the first surviving output rather than losing the
		// round; provider order encodes preference.
		log.Printf("synthesis via %s failed, falling back to %s output: %v",
			e.synthesizer.Name(), outputs[0].Provider, err)
		return outputs[0].Text, outputs[0].Provider, nil
	}

	return result.Text, ConsensusProvider, nil
}

// applyStructured parses the structured payload out of the final response
// and replaces FinalResponse with the narrative field.
func (e *Engine) applyStructured(c *Consensus) error {
	narrative, fitment, err := ParseStructured(c.FinalResponse)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if fitment.RenormalizeWeights() {
		log.Printf("subrequirement weights corrected to sum to 100")
	}
	fitment.ComputeOverall()
	if err := fitment.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	c.Fitment = fitment
	if fitment.OverallStatus == models.StatusNotAvailable {
		c.FinalResponse = models.NotAvailableResponse
	} else {
		c.FinalResponse = narrative
	}
	return nil
}
