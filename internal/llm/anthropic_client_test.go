// ABOUTME: Tests for the Anthropic messages-API adapter
// ABOUTME: Uses httptest to exercise success, auth failure, and retry paths
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/propelq/rfpgen/internal/config"
)

func testAnthropicConfig(baseURL string) *config.Config {
	return &config.Config{
		AnthropicKey:     "test-key",
		AnthropicBaseURL: baseURL,
		AnthropicModel:   "claude-test",
		Timeout:          5 * time.Second,
		MaxRetries:       2,
		RetryDelay:       time.Millisecond,
	}
}

func TestAnthropicProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing or wrong x-api-key header: %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.System != "system text" {
			t.Errorf("system = %q, want 'system text'", req.System)
		}
		if len(req.Messages) != 2 {
			t.Errorf("expected 2 messages (user + validation), got %d", len(req.Messages))
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{
				{"type": "text", "text": "Synthesized "},
				{"type": "text", "text": "answer."},
			},
		})
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(testAnthropicConfig(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider failed: %v", err)
	}

	result, err := provider.Complete(context.Background(), Prompt{
		System:     "system text",
		User:       "user text",
		Validation: "validation text",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if result.Text != "Synthesized answer." {
		t.Errorf("Text = %q, want 'Synthesized answer.'", result.Text)
	}
	if result.Provider != ProviderAnthropic {
		t.Errorf("Provider = %q, want %q", result.Provider, ProviderAnthropic)
	}
}

func TestAnthropicProvider_AuthFailureNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(testAnthropicConfig(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider failed: %v", err)
	}

	_, err = provider.Complete(context.Background(), Prompt{System: "s", User: "u"})
	if !errors.Is(err, ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("auth failure was retried: %d calls", got)
	}
}

func TestAnthropicProvider_RateLimitRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": "ok"}},
		})
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(testAnthropicConfig(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider failed: %v", err)
	}

	result, err := provider.Complete(context.Background(), Prompt{System: "s", User: "u"})
	if err != nil {
		t.Fatalf("Complete failed after retry: %v", err)
	}
	if result.Text != "ok" {
		t.Errorf("Text = %q, want 'ok'", result.Text)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 calls (429 then success), got %d", got)
	}
}

func TestAnthropicProvider_EmptyContentIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{},
		})
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(testAnthropicConfig(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider failed: %v", err)
	}

	_, err = provider.Complete(context.Background(), Prompt{System: "s", User: "u"})
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestNewAnthropicProvider_RequiresKey(t *testing.T) {
	_, err := NewAnthropicProvider(&config.Config{})
	if err == nil {
		t.Error("expected error for missing API key")
	}
}
