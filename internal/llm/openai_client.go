// ABOUTME: OpenAI-compatible chat and embedding adapters with retry logic
// ABOUTME: Backs the OpenAI and DeepSeek providers via sashabaranov/go-openai
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/propelq/rfpgen/internal/config"
	"github.com/propelq/rfpgen/internal/util"
)

// completionTemperature keeps responses close to the source material.
const completionTemperature = 0.2

// ChatCompletionProvider adapts any OpenAI-wire-compatible chat backend.
// Both the OpenAI and DeepSeek providers are instances of this type; they
// differ only in client base URL and model.
type ChatCompletionProvider struct {
	name       string
	client     *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIProvider creates the OpenAI provider adapter
func NewOpenAIProvider(cfg *config.Config) (*ChatCompletionProvider, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return &ChatCompletionProvider{
		name:       ProviderOpenAI,
		client:     openai.NewClient(cfg.OpenAIKey),
		model:      cfg.OpenAIModel,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// NewDeepSeekProvider creates the DeepSeek provider adapter. DeepSeek speaks
// the OpenAI wire protocol, so the same client is pointed at its base URL.
func NewDeepSeekProvider(cfg *config.Config) (*ChatCompletionProvider, error) {
	if cfg.DeepSeekKey == "" {
		return nil, fmt.Errorf("DeepSeek API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.DeepSeekKey)
	clientCfg.BaseURL = cfg.DeepSeekBaseURL
	return &ChatCompletionProvider{
		name:       ProviderDeepSeek,
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.DeepSeekModel,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Name returns the canonical provider name
func (p *ChatCompletionProvider) Name() string {
	return p.name
}

// Complete sends the prompt and returns the normalized result. Rate-limit
// and server errors are retried with bounded backoff; auth failures are not.
func (p *ChatCompletionProvider) Complete(ctx context.Context, prompt Prompt) (Result, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
		{Role: openai.ChatMessageRoleUser, Content: prompt.User},
	}
	if prompt.Validation != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt.Validation,
		})
	}

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(util.CalculateBackoff(p.retryDelay, attempt)):
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		resp, err := p.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       p.model,
			Messages:    messages,
			Temperature: completionTemperature,
		})
		cancel()

		if err != nil {
			if isAuthError(err) {
				return Result{}, fmt.Errorf("%w: %v", ErrAuth, err)
			}
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			lastErr = fmt.Errorf("attempt %d: %w: no completion choices returned", attempt+1, ErrMalformed)
			continue
		}

		return Result{
			Provider: p.name,
			Text:     resp.Choices[0].Message.Content,
			Elapsed:  time.Since(start),
		}, nil
	}

	return Result{}, fmt.Errorf("%s completion failed after %d attempts: %w", p.name, p.maxRetries+1, lastErr)
}

// isAuthError reports whether err is a credential failure from the OpenAI SDK
func isAuthError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusUnauthorized || reqErr.HTTPStatusCode == http.StatusForbidden
	}
	return false
}

// EmbeddingClient generates query embeddings via the OpenAI embeddings API
type EmbeddingClient struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewEmbeddingClient creates an embedding client from config
func NewEmbeddingClient(cfg *config.Config) (*EmbeddingClient, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for embeddings")
	}
	return &EmbeddingClient{
		client:     openai.NewClient(cfg.OpenAIKey),
		model:      openai.EmbeddingModel(cfg.EmbeddingModel),
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Embed generates an embedding vector for the given text
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(util.CalculateBackoff(c.retryDelay, attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequestStrings{
			Input: []string{text},
			Model: c.model,
		})
		cancel()

		if err != nil {
			if isAuthError(err) {
				return nil, fmt.Errorf("%w: %v", ErrAuth, err)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}

		if len(resp.Data) == 0 {
			lastErr = fmt.Errorf("attempt %d: no embeddings returned", attempt+1)
			continue
		}

		// Convert []float32 to []float64
		embedding32 := resp.Data[0].Embedding
		embedding64 := make([]float64, len(embedding32))
		for i, v := range embedding32 {
			embedding64[i] = float64(v)
		}
		return embedding64, nil
	}

	return nil, fmt.Errorf("failed to generate embedding after %d attempts: %w", c.maxRetries+1, lastErr)
}
