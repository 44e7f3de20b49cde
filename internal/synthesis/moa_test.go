// ABOUTME: Unit tests for the consensus engine and structured output parsing
// ABOUTME: Covers provider isolation, singleton passthrough, and repair passes
package synthesis

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/propelq/rfpgen/internal/llm"
	"github.com/propelq/rfpgen/internal/models"
	"github.com/propelq/rfpgen/internal/prompt"
)

// fakeProvider returns a canned result or error and counts invocations
type fakeProvider struct {
	name  string
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, _ llm.Prompt) (llm.Result, error) {
	f.calls.Add(1)
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return llm.Result{Provider: f.name, Text: f.text}, nil
}

func testPrompt() llm.Prompt {
	return llm.Prompt{System: "sys", User: "user"}
}

func TestGenerate_ProviderFailureIsolated(t *testing.T) {
	good1 := &fakeProvider{name: "openai", text: "Answer from openai."}
	bad := &fakeProvider{name: "deepseek", err: llm.ErrAuth}
	good2 := &fakeProvider{name: "anthropic", text: "Answer from anthropic."}
	synth := &fakeProvider{name: "openai", text: "Merged answer."}

	e := NewEngine([]llm.Provider{good1, bad, good2}, synth, prompt.DefaultOptions())
	c, err := e.Generate(context.Background(), "requirement", testPrompt(), prompt.ModeDirect)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(c.ProviderOutputs) != 2 {
		t.Errorf("expected 2 provider outputs, got %d", len(c.ProviderOutputs))
	}
	if _, ok := c.ProviderOutputs["deepseek"]; ok {
		t.Error("failed provider leaked into outputs")
	}
	if c.ModelProvider != ConsensusProvider {
		t.Errorf("ModelProvider = %q, want %q", c.ModelProvider, ConsensusProvider)
	}
	if c.FinalResponse != "Merged answer." {
		t.Errorf("FinalResponse = %q", c.FinalResponse)
	}
}

func TestGenerate_SingletonPassthrough(t *testing.T) {
	only := &fakeProvider{name: "anthropic", text: "The sole answer."}
	bad1 := &fakeProvider{name: "openai", err: llm.ErrAuth}
	bad2 := &fakeProvider{name: "deepseek", err: errors.New("timeout")}
	synth := &fakeProvider{name: "openai", text: "should not be used"}

	e := NewEngine([]llm.Provider{bad1, bad2, only}, synth, prompt.DefaultOptions())
	c, err := e.Generate(context.Background(), "requirement", testPrompt(), prompt.ModeDirect)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if c.FinalResponse != "The sole answer." {
		t.Errorf("FinalResponse = %q", c.FinalResponse)
	}
	if c.ModelProvider != "anthropic" {
		t.Errorf("ModelProvider = %q, want anthropic", c.ModelProvider)
	}
	if synth.calls.Load() != 0 {
		t.Errorf("synthesizer called %d times for a singleton", synth.calls.Load())
	}
}

func TestGenerate_AllProvidersFailed(t *testing.T) {
	bad1 := &fakeProvider{name: "openai", err: llm.ErrAuth}
	bad2 := &fakeProvider{name: "deepseek", err: errors.New("timeout")}
	synth := &fakeProvider{name: "openai", text: "unused"}

	e := NewEngine([]llm.Provider{bad1, bad2}, synth, prompt.DefaultOptions())
	_, err := e.Generate(context.Background(), "requirement", testPrompt(), prompt.ModeDirect)
	if !errors.Is(err, ErrNoProviders) {
		t.Errorf("expected ErrNoProviders, got %v", err)
	}
}

func TestGenerate_SynthesisFailureFallsBack(t *testing.T) {
	first := &fakeProvider{name: "openai", text: "First answer."}
	second := &fakeProvider{name: "deepseek", text: "Second answer."}
	synth := &fakeProvider{name: "openai", err: errors.New("overloaded")}

	e := NewEngine([]llm.Provider{first, second}, synth, prompt.DefaultOptions())
	c, err := e.Generate(context.Background(), "requirement", testPrompt(), prompt.ModeDirect)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if c.FinalResponse != "First answer." {
		t.Errorf("expected fallback to first output, got %q", c.FinalResponse)
	}
	if c.ModelProvider != "openai" {
		t.Errorf("ModelProvider = %q, want openai", c.ModelProvider)
	}
}

const structuredOutput = "```json\n" + `{
  "response": "The platform provides full audit trails (Source 1 - 95% similarity).",
  "subrequirements": [
    {"id": "SR1", "title": "Audit trail", "description": "Change logging", "weight": 60,
     "status": "fully_available", "fitment_percentage": 95, "customization_required": false},
    {"id": "SR2", "title": "Retention policy", "description": "Configurable retention", "weight": 40,
     "status": "partially_available", "fitment_percentage": 50, "customization_required": true,
     "customization_notes": "Retention rules need setup"}
  ]
}` + "\n```"

func TestGenerate_StructuredMode(t *testing.T) {
	p1 := &fakeProvider{name: "openai", text: "draft a"}
	p2 := &fakeProvider{name: "deepseek", text: "draft b"}
	synth := &fakeProvider{name: "openai", text: structuredOutput}

	e := NewEngine([]llm.Provider{p1, p2}, synth, prompt.DefaultOptions())
	c, err := e.Generate(context.Background(), "requirement", testPrompt(), prompt.ModeStructured)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if c.Fitment == nil {
		t.Fatal("expected fitment in structured mode")
	}
	if c.Fitment.OverallFitmentPercentage != 77 {
		t.Errorf("overall fitment = %d, want 77", c.Fitment.OverallFitmentPercentage)
	}
	if c.Fitment.OverallStatus != models.StatusPartiallyAvailable {
		t.Errorf("overall status = %q", c.Fitment.OverallStatus)
	}
	if !strings.HasPrefix(c.FinalResponse, "The platform provides full audit trails") {
		t.Errorf("FinalResponse = %q", c.FinalResponse)
	}
}

func TestGenerate_StructuredNotAvailableUsesReservedLiteral(t *testing.T) {
	out := `{"response": "Nothing in the sources covers this.",
  "subrequirements": [
    {"id": "SR1", "title": "X", "description": "d", "weight": 100,
     "status": "not_available", "fitment_percentage": 0}]}`

	p1 := &fakeProvider{name: "openai", text: "draft a"}
	p2 := &fakeProvider{name: "deepseek", text: "draft b"}
	synth := &fakeProvider{name: "openai", text: out}

	e := NewEngine([]llm.Provider{p1, p2}, synth, prompt.DefaultOptions())
	c, err := e.Generate(context.Background(), "requirement", testPrompt(), prompt.ModeStructured)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if c.FinalResponse != models.NotAvailableResponse {
		t.Errorf("FinalResponse = %q, want the reserved literal byte-for-byte", c.FinalResponse)
	}
	if c.Fitment.OverallFitmentPercentage != 0 {
		t.Errorf("overall fitment = %d, want 0", c.Fitment.OverallFitmentPercentage)
	}
}

func TestGenerate_StructuredParseFailure(t *testing.T) {
	p1 := &fakeProvider{name: "openai", text: "draft a"}
	p2 := &fakeProvider{name: "deepseek", text: "draft b"}
	synth := &fakeProvider{name: "openai", text: "not json at all"}

	e := NewEngine([]llm.Provider{p1, p2}, synth, prompt.DefaultOptions())
	_, err := e.Generate(context.Background(), "requirement", testPrompt(), prompt.ModeStructured)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestParseStructured_Fenced(t *testing.T) {
	narrative, fitment, err := ParseStructured(structuredOutput)
	if err != nil {
		t.Fatalf("ParseStructured failed: %v", err)
	}
	if !strings.Contains(narrative, "audit trails") {
		t.Errorf("narrative = %q", narrative)
	}
	if len(fitment.Subrequirements) != 2 {
		t.Errorf("expected 2 subrequirements, got %d", len(fitment.Subrequirements))
	}
}

func TestParseStructured_LeadingProse(t *testing.T) {
	text := "Here is the analysis you requested:\n" + `{"response": "r",
  "subrequirements": [{"id": "SR1", "title": "t", "description": "d",
   "weight": 100, "status": "fully_available", "fitment_percentage": 95}]}`

	narrative, fitment, err := ParseStructured(text)
	if err != nil {
		t.Fatalf("ParseStructured failed: %v", err)
	}
	if narrative != "r" || len(fitment.Subrequirements) != 1 {
		t.Errorf("unexpected parse: %q, %d subrequirements", narrative, len(fitment.Subrequirements))
	}
}

func TestParseStructured_Rejections(t *testing.T) {
	cases := map[string]string{
		"no json":        "plain prose only",
		"empty response": `{"response": "  ", "subrequirements": [{"id": "SR1", "weight": 100, "status": "fully_available"}]}`,
		"no subreqs":     `{"response": "r", "subrequirements": []}`,
		"unknown status": `{"response": "r", "subrequirements": [{"id": "SR1", "weight": 100, "status": "maybe"}]}`,
		"unbalanced":     `{"response": "r", "subrequirements": [`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := ParseStructured(text); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestValidate_BannedPhraseTriggersRefinement(t *testing.T) {
	synth := &fakeProvider{name: "openai", text: "Clean refined answer."}
	e := NewEngine(nil, synth, prompt.DefaultOptions())

	final, err := e.validate(context.Background(), "req", "Unfortunately, we cannot confirm this.")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if final != "Clean refined answer." {
		t.Errorf("final = %q", final)
	}
	if synth.calls.Load() != 1 {
		t.Errorf("synthesizer called %d times, want 1", synth.calls.Load())
	}
}

func TestValidate_CleanDraftUntouched(t *testing.T) {
	synth := &fakeProvider{name: "openai", text: "should not be used"}
	e := NewEngine(nil, synth, prompt.DefaultOptions())

	final, err := e.validate(context.Background(), "req", "A clean answer (Source 1 - 95% similarity).")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if final != "A clean answer (Source 1 - 95% similarity)." {
		t.Errorf("final = %q", final)
	}
	if synth.calls.Load() != 0 {
		t.Error("clean draft should not be refined")
	}
}

func TestValidate_RefinementFailureKeepsDraft(t *testing.T) {
	synth := &fakeProvider{name: "openai", err: errors.New("overloaded")}
	e := NewEngine(nil, synth, prompt.DefaultOptions())

	draft := "Unfortunately the draft hedges."
	final, err := e.validate(context.Background(), "req", draft)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if final != draft {
		t.Errorf("expected draft kept, got %q", final)
	}
}

func TestValidate_EmptyFinal(t *testing.T) {
	e := NewEngine(nil, &fakeProvider{name: "openai"}, prompt.DefaultOptions())
	_, err := e.validate(context.Background(), "req", "   ")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestValidate_ReservedLiteralAccepted(t *testing.T) {
	synth := &fakeProvider{name: "openai", text: "unused"}
	e := NewEngine(nil, synth, prompt.DefaultOptions())

	final, err := e.validate(context.Background(), "req", models.NotAvailableResponse)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if final != models.NotAvailableResponse {
		t.Errorf("reserved literal altered: %q", final)
	}
	if synth.calls.Load() != 0 {
		t.Error("reserved literal should never be refined")
	}
}

func TestNeedsRefinement_WordBudget(t *testing.T) {
	long := strings.Repeat("word ", 201)
	if !needsRefinement(long, 200) {
		t.Error("201 words should exceed a 200-word budget")
	}
	if needsRefinement(strings.Repeat("word ", 200), 200) {
		t.Error("200 words should fit a 200-word budget")
	}
}
