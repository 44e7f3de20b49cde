// ABOUTME: End-to-end generation pipeline for one RFP requirement
// ABOUTME: Orchestrates retrieval, prompt assembly, consensus, and persistence
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/propelq/rfpgen/internal/llm"
	"github.com/propelq/rfpgen/internal/models"
	"github.com/propelq/rfpgen/internal/prompt"
	"github.com/propelq/rfpgen/internal/retrieval"
	"github.com/propelq/rfpgen/internal/synthesis"
)

// SelectorConsensus requests the full multi-provider consensus flow.
// Any canonical provider name selects that single provider instead.
const SelectorConsensus = "consensus"

// RequirementStore is the persistence surface the pipeline needs.
type RequirementStore interface {
	Get(ctx context.Context, id int64) (*models.Requirement, error)
	SaveGeneration(ctx context.Context, id int64, gen *models.GeneratedResponse) error
	RecordFailure(ctx context.Context, id int64, kind, message string) error
}

// Request identifies one generation run.
type Request struct {
	RequirementID int64
	// Selector is "consensus" or a single canonical provider name.
	Selector string
	Mode     prompt.Mode
	// SkipRetrieval generates without corpus grounding. The prompt is
	// still assembled with the strict sourcing rules over zero sources.
	SkipRetrieval bool
}

// Pipeline wires the generation stages together. Safe for concurrent use;
// runs against the same requirement are serialized.
type Pipeline struct {
	store       RequirementStore
	retriever   *retrieval.Retriever
	providers   []llm.Provider
	synthesizer llm.Provider
	opts        prompt.Options
	retrievalK  int

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates a Pipeline. Provider order encodes fallback preference; the
// synthesizer runs phase-2 merges and refinement passes.
func New(store RequirementStore, retriever *retrieval.Retriever, providers []llm.Provider, synthesizer llm.Provider, opts prompt.Options, retrievalK int) *Pipeline {
	return &Pipeline{
		store:       store,
		retriever:   retriever,
		providers:   providers,
		synthesizer: synthesizer,
		opts:        opts,
		retrievalK:  retrievalK,
		locks:       make(map[int64]*sync.Mutex),
	}
}

// Generate runs the full flow for one requirement and persists the result.
// Concurrent calls for the same requirement ID are serialized, so the last
// completed run's whole row is what remains.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*models.GeneratedResponse, error) {
	lock := p.requirementLock(req.RequirementID)
	lock.Lock()
	defer lock.Unlock()

	requirement, err := p.store.Get(ctx, req.RequirementID)
	if err != nil {
		return nil, fmt.Errorf("loading requirement %d: %w", req.RequirementID, err)
	}
	if requirement == nil {
		return nil, fmt.Errorf("%w: requirement %d not found", ErrInvalidInput, req.RequirementID)
	}
	text := strings.TrimSpace(requirement.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: requirement %d has empty text", ErrInvalidInput, req.RequirementID)
	}

	engine, err := p.engineFor(req.Selector)
	if err != nil {
		return nil, err
	}

	var matches []models.RetrievedMatch
	if !req.SkipRetrieval {
		matches, err = p.retriever.Retrieve(ctx, text, p.retrievalK, p.opts.GenerationFloor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
		}
	}

	assembled, err := prompt.Assemble(text, requirement.Category, matches, req.Mode, p.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	consensus, err := engine.Generate(ctx, text, assembled, req.Mode)
	if err != nil {
		return nil, p.recordGenerationFailure(ctx, req.RequirementID, err)
	}

	gen := &models.GeneratedResponse{
		ProviderOutputs: consensus.ProviderOutputs,
		FinalResponse:   consensus.FinalResponse,
		ModelProvider:   consensus.ModelProvider,
		Fitment:         consensus.Fitment,
		References:      buildReferences(matches),
		GeneratedAt:     time.Now(),
	}

	if err := p.store.SaveGeneration(ctx, req.RequirementID, gen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return gen, nil
}

// engineFor resolves the selector into a consensus engine: all providers
// for "consensus", a single provider otherwise.
func (p *Pipeline) engineFor(selector string) (*synthesis.Engine, error) {
	if selector == "" || selector == SelectorConsensus {
		return synthesis.NewEngine(p.providers, p.synthesizer, p.opts), nil
	}
	for _, provider := range p.providers {
		if provider.Name() == selector {
			return synthesis.NewEngine([]llm.Provider{provider}, provider, p.opts), nil
		}
	}
	return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidInput, selector)
}

// recordGenerationFailure maps an engine failure onto the pipeline taxonomy
// and marks the requirement before returning.
func (p *Pipeline) recordGenerationFailure(ctx context.Context, id int64, genErr error) error {
	var kind string
	var mapped error
	switch {
	case errors.Is(genErr, synthesis.ErrNoProviders) && errors.Is(genErr, llm.ErrAuth):
		kind, mapped = failureAuth, ErrProviderAuth
	case errors.Is(genErr, synthesis.ErrNoProviders):
		kind, mapped = failureProvider, ErrProviderUnavailable
	case errors.Is(genErr, synthesis.ErrValidation):
		kind, mapped = failureValidation, ErrConsensusValidation
	default:
		return fmt.Errorf("generating response for requirement %d: %w", id, genErr)
	}

	if err := p.store.RecordFailure(ctx, id, kind, genErr.Error()); err != nil {
		log.Printf("recording failure for requirement %d: %v", id, err)
	}
	return fmt.Errorf("%w: %v", mapped, genErr)
}

// buildReferences converts the retrieval matches used for grounding into
// persisted citations. Labels are positional, matching the numbered sources
// the model was shown.
func buildReferences(matches []models.RetrievedMatch) []models.Reference {
	refs := make([]models.Reference, 0, len(matches))
	for i, m := range matches {
		refs = append(refs, models.Reference{
			PairID:          m.Pair.ID,
			Label:           fmt.Sprintf("Response #%d", i+1),
			SimilarityScore: m.SimilarityScore,
		})
	}
	return refs
}

// requirementLock returns the per-requirement mutex, creating it on first use
func (p *Pipeline) requirementLock(id int64) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[id] = lock
	}
	return lock
}
