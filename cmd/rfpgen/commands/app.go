// ABOUTME: Shared wiring for CLI commands
// ABOUTME: Builds config, storage, providers, retriever, and pipeline
package commands

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/propelq/rfpgen/internal/config"
	"github.com/propelq/rfpgen/internal/llm"
	"github.com/propelq/rfpgen/internal/pipeline"
	"github.com/propelq/rfpgen/internal/prompt"
	"github.com/propelq/rfpgen/internal/retrieval"
	"github.com/propelq/rfpgen/internal/storage/sqlite"
)

var dbPath string

// app bundles the wired components a command needs
type app struct {
	cfg          *config.Config
	db           *sqlite.DB
	requirements *sqlite.RequirementStore
	pairs        *sqlite.PairStore
	embedder     *llm.EmbeddingClient
	retriever    *retrieval.Retriever
	providers    []llm.Provider
	pipeline     *pipeline.Pipeline
}

// newApp loads configuration and wires the full component graph. Providers
// with missing API keys are skipped with a warning; at least one must be
// configured for generation.
func newApp() (*app, error) {
	// Load .env for API keys
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	path := dbPath
	if path == "" {
		path = cfg.DBPath
	}
	if path == "" {
		path = sqlite.DefaultDBPath()
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &app{
		cfg:          cfg,
		db:           db,
		requirements: sqlite.NewRequirementStore(db),
		pairs:        sqlite.NewPairStore(db),
	}

	if cfg.OpenAIKey != "" {
		embedder, err := llm.NewEmbeddingClient(cfg)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initializing embedding client: %w", err)
		}
		a.embedder = embedder
		a.retriever = retrieval.NewRetriever(a.pairs, embedder, cfg.VectorDimension)
	}

	a.providers = buildProviders(cfg)
	if len(a.providers) > 0 && a.retriever != nil {
		opts := prompt.Options{
			GenerationFloor:      cfg.GenerationFloor,
			MaxSources:           3,
			PrimaryWordBudget:    cfg.PrimaryWordBudget,
			RefinementWordBudget: cfg.RefinementWordBudget,
		}
		a.pipeline = pipeline.New(a.requirements, a.retriever, a.providers, a.providers[0], opts, cfg.RetrievalK)
	}

	return a, nil
}

// buildProviders constructs every provider whose API key is configured
func buildProviders(cfg *config.Config) []llm.Provider {
	var providers []llm.Provider

	if cfg.OpenAIKey != "" {
		p, err := llm.NewOpenAIProvider(cfg)
		if err != nil {
			log.Printf("Warning: skipping OpenAI provider: %v", err)
		} else {
			providers = append(providers, p)
		}
	} else if verbose {
		log.Println("OPENAI_API_KEY not set, skipping OpenAI provider")
	}

	if cfg.DeepSeekKey != "" {
		p, err := llm.NewDeepSeekProvider(cfg)
		if err != nil {
			log.Printf("Warning: skipping DeepSeek provider: %v", err)
		} else {
			providers = append(providers, p)
		}
	} else if verbose {
		log.Println("DEEPSEEK_API_KEY not set, skipping DeepSeek provider")
	}

	if cfg.AnthropicKey != "" {
		p, err := llm.NewAnthropicProvider(cfg)
		if err != nil {
			log.Printf("Warning: skipping Anthropic provider: %v", err)
		} else {
			providers = append(providers, p)
		}
	} else if verbose {
		log.Println("ANTHROPIC_API_KEY not set, skipping Anthropic provider")
	}

	return providers
}

// requireGeneration checks that the app can run the generation flow
func (a *app) requireGeneration() error {
	if a.retriever == nil {
		return fmt.Errorf("OPENAI_API_KEY is required for embeddings and retrieval")
	}
	if a.pipeline == nil {
		return fmt.Errorf("no model providers configured: set OPENAI_API_KEY, DEEPSEEK_API_KEY, or ANTHROPIC_API_KEY")
	}
	return nil
}

// Close releases the app's resources
func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
