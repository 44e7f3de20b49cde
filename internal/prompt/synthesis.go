// ABOUTME: Phase-2 prompt builders for consensus synthesis and refinement
// ABOUTME: Merges independent provider outputs into one reconciliation prompt
package prompt

import (
	"fmt"
	"strings"

	"github.com/propelq/rfpgen/internal/llm"
	"github.com/propelq/rfpgen/internal/models"
)

// Synthesis builds the phase-2 prompt that reconciles independent provider
// outputs into a single consensus answer. Disagreements are resolved in
// favor of claims corroborated by more than one output and, when sources
// conflict, claims carrying higher cited similarity scores.
func Synthesis(requirementText string, outputs []llm.Result, mode Mode, opts Options) (llm.Prompt, error) {
	requirementText = strings.TrimSpace(requirementText)
	if requirementText == "" {
		return llm.Prompt{}, ErrEmptyRequirement
	}
	if len(outputs) < 2 {
		return llm.Prompt{}, fmt.Errorf("synthesis requires at least 2 outputs, got %d", len(outputs))
	}

	var system strings.Builder
	system.WriteString("You are an expert synthesizer of RFP (Request for Proposal) responses.\n")
	system.WriteString("You will receive multiple independently generated answers to the same requirement.\n\n")
	system.WriteString("SYNTHESIS RULES:\n")
	system.WriteString("1. Favor claims corroborated by more than one answer.\n")
	system.WriteString("2. When answers conflict, favor the claim with the higher cited similarity score.\n")
	system.WriteString("3. Merge overlapping points; preserve specific metrics, numbers, and source citations.\n")
	system.WriteString("4. Do NOT introduce content beyond the provided answers.\n")
	fmt.Fprintf(&system, "5. Produce a single cohesive response within %d words, ready for direct submission.\n", opts.PrimaryWordBudget)
	system.WriteString("6. No meta-commentary and no references to the synthesis process.\n")
	if mode == ModeStructured {
		system.WriteString("\n")
		system.WriteString(structuredSchemaInstructions())
	}

	var user strings.Builder
	fmt.Fprintf(&user, "REQUIREMENT TO ADDRESS:\n%s\n\n", requirementText)
	user.WriteString("ANSWERS TO SYNTHESIZE:\n\n")
	for i, out := range outputs {
		fmt.Fprintf(&user, "ANSWER %d (from %s):\n%s\n\n", i+1, out.Provider, out.Text)
	}
	user.WriteString("Provide the synthesized response that best addresses the requirement.")

	return llm.Prompt{
		System:     system.String(),
		User:       user.String(),
		Validation: validationMessage(mode, opts),
	}, nil
}

// Refinement builds the validation/refinement prompt that rewrites a draft
// to the tighter word budget and the positive-framing policy.
func Refinement(requirementText, draft string, opts Options) llm.Prompt {
	var system strings.Builder
	system.WriteString("You are an editor of customer-facing RFP responses.\n")
	system.WriteString("Rewrite the draft so that it:\n")
	fmt.Fprintf(&system, "1. Is within %d words.\n", opts.RefinementWordBudget)
	system.WriteString("2. Contains no hedging, negative, or speculative phrasing.\n")
	system.WriteString("3. Keeps every source citation and factual claim from the draft; add nothing new.\n")
	fmt.Fprintf(&system, "4. If the draft states that the capability is unavailable, answer exactly: %q\n", models.NotAvailableResponse)
	system.WriteString("Return only the rewritten response.")

	var user strings.Builder
	fmt.Fprintf(&user, "REQUIREMENT:\n%s\n\nDRAFT RESPONSE:\n%s\n", requirementText, draft)

	return llm.Prompt{
		System: system.String(),
		User:   user.String(),
	}
}
