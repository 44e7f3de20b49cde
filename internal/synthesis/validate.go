// ABOUTME: Post-synthesis validation of the final customer-facing response
// ABOUTME: Enforces the refinement word budget and the positive-framing policy
package synthesis

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/propelq/rfpgen/internal/models"
	"github.com/propelq/rfpgen/internal/prompt"
)

// Hedging and negative phrasings that must never reach a customer-facing
// response. Matched case-insensitively.
var bannedPhrases = []string{
	"unfortunately",
	"we cannot",
	"we are unable",
	"we believe",
	"might be able",
	"may be able",
	"it is possible that",
	"we do not support",
	"not sure",
}

// validate applies the bounded repair pass to the final response: an empty
// response or one that breaks the word budget or phrasing policy gets one
// refinement attempt through the synthesizer. The reserved not-available
// literal is always valid as-is.
func (e *Engine) validate(ctx context.Context, requirementText, final string) (string, error) {
	final = strings.TrimSpace(final)
	if final == "" {
		return "", fmt.Errorf("%w: final response is empty", ErrValidation)
	}
	if final == models.NotAvailableResponse {
		return final, nil
	}
	if !needsRefinement(final, e.opts.PrimaryWordBudget) {
		return final, nil
	}

	refined, err := e.refine(ctx, requirementText, final)
	if err != nil {
		// Refinement is best-effort: an over-budget draft is still a
		// usable response, a lost round is not.
		log.Printf("refinement failed, keeping draft: %v", err)
		return final, nil
	}
	return refined, nil
}

// needsRefinement reports whether the draft breaks the word budget or uses
// banned phrasing.
func needsRefinement(text string, wordBudget int) bool {
	if wordBudget > 0 && len(strings.Fields(text)) > wordBudget {
		return true
	}
	lower := strings.ToLower(text)
	for _, phrase := range bannedPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// refine runs one rewrite pass against the tighter refinement budget.
func (e *Engine) refine(ctx context.Context, requirementText, draft string) (string, error) {
	p := prompt.Refinement(requirementText, draft, e.opts)
	result, err := e.synthesizer.Complete(ctx, p)
	if err != nil {
		return "", fmt.Errorf("refinement call: %w", err)
	}
	refined := strings.TrimSpace(result.Text)
	if refined == "" {
		return "", fmt.Errorf("refinement produced empty response")
	}
	return refined, nil
}
