// ABOUTME: Anthropic messages-API adapter over plain HTTP with retry logic
// ABOUTME: Normalizes content blocks into the shared Result shape
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/propelq/rfpgen/internal/config"
	"github.com/propelq/rfpgen/internal/util"
)

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 4000
)

// AnthropicProvider implements Provider against the Anthropic messages API
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	model      string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewAnthropicProvider creates the Anthropic provider adapter
func NewAnthropicProvider(cfg *config.Config) (*AnthropicProvider, error) {
	if cfg.AnthropicKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	return &AnthropicProvider{
		apiKey:     cfg.AnthropicKey,
		baseURL:    strings.TrimSuffix(cfg.AnthropicBaseURL, "/"),
		model:      cfg.AnthropicModel,
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Name returns the canonical provider name
func (p *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the prompt to the messages API. The system message travels
// in the dedicated system field; user and validation messages as turns.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt Prompt) (Result, error) {
	messages := []anthropicMessage{{Role: "user", Content: prompt.User}}
	if prompt.Validation != "" {
		messages = append(messages, anthropicMessage{Role: "user", Content: prompt.Validation})
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       p.model,
		MaxTokens:   anthropicMaxTokens,
		Temperature: completionTemperature,
		System:      prompt.System,
		Messages:    messages,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshaling request: %w", err)
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

		text, err := p.call(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			if !retryableAnthropicError(err) {
				return Result{}, err
			}
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}

		return Result{
			Provider: ProviderAnthropic,
			Text:     text,
			Elapsed:  time.Since(start),
		}, nil
	}

	return Result{}, fmt.Errorf("anthropic completion failed after %d attempts: %w", p.maxRetries+1, lastErr)
}

// statusError carries the HTTP status for retry classification
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("anthropic returned status %d: %s", e.code, e.body)
}

func retryableAnthropicError(err error) bool {
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrMalformed) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	// Anything else is a network-level failure worth another attempt
	return true
}

// call performs a single messages-API request and extracts the text blocks
func (p *AnthropicProvider) call(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: anthropic returned status %d", ErrAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrMalformed, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformed, parsed.Error.Message)
	}

	// Join the text blocks; claude may split long output into several.
	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text content in response", ErrMalformed)
	}
	return text, nil
}
