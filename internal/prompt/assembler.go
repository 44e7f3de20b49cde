// ABOUTME: Prompt assembly with strict grounding rules for RFP generation
// ABOUTME: Builds system/user/validation message triples in direct or structured mode
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/propelq/rfpgen/internal/llm"
	"github.com/propelq/rfpgen/internal/models"
)

// ErrEmptyRequirement marks a requirement that is blank after trimming.
// Raised before any provider call is made.
var ErrEmptyRequirement = errors.New("requirement text is empty")

// Mode selects the output contract requested from the model
type Mode string

const (
	// ModeDirect asks for a single free-text answer
	ModeDirect Mode = "direct"
	// ModeStructured asks for a subrequirement-decomposed JSON object
	ModeStructured Mode = "structured"
)

// Options bound the assembled prompt
type Options struct {
	// GenerationFloor is re-stated inside the prompt: sources below it are
	// to be treated as non-existent.
	GenerationFloor float64
	// MaxSources caps how many retrieved matches are injected
	MaxSources int
	// PrimaryWordBudget bounds the customer-facing narrative
	PrimaryWordBudget int
	// RefinementWordBudget bounds the validation/refinement pass
	RefinementWordBudget int
}

// DefaultOptions returns the observed production policy: three sources,
// a 0.90 anti-hallucination floor, and 200/80-word budgets.
func DefaultOptions() Options {
	return Options{
		GenerationFloor:      0.90,
		MaxSources:           3,
		PrimaryWordBudget:    200,
		RefinementWordBudget: 80,
	}
}

// Assemble builds the full prompt for one requirement. Matches below the
// floor are dropped here as well, so a misconfigured caller can never leak
// low-similarity content into the model's context.
func Assemble(requirementText, category string, matches []models.RetrievedMatch, mode Mode, opts Options) (llm.Prompt, error) {
	requirementText = strings.TrimSpace(requirementText)
	if requirementText == "" {
		return llm.Prompt{}, ErrEmptyRequirement
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = 3
	}

	qualified := qualifySources(matches, opts.GenerationFloor, opts.MaxSources)

	p := llm.Prompt{
		System:     systemMessage(requirementText, category, mode, opts),
		User:       userMessage(requirementText, qualified, opts),
		Validation: validationMessage(mode, opts),
	}
	return p, nil
}

// qualifySources keeps at most max matches at or above the floor
func qualifySources(matches []models.RetrievedMatch, floor float64, max int) []models.RetrievedMatch {
	var out []models.RetrievedMatch
	for _, m := range matches {
		if m.SimilarityScore < floor {
			continue
		}
		out = append(out, m)
		if len(out) == max {
			break
		}
	}
	return out
}

func systemMessage(requirement, category string, mode Mode, opts Options) string {
	var sb strings.Builder

	sb.WriteString("You are a senior RFP specialist with over 15 years of experience in enterprise software procurement.\n")
	sb.WriteString("Your expertise lies in crafting precise, impactful, and business-aligned responses to RFP requirements.\n\n")

	sb.WriteString("CONTEXT:\n")
	if category != "" {
		fmt.Fprintf(&sb, "- Requirement Category: %s\n", category)
	}
	fmt.Fprintf(&sb, "- Current Requirement: %s\n", requirement)
	sb.WriteString("- Audience: business decision-makers evaluating the proposal.\n\n")

	sb.WriteString("CONTENT RULES:\n")
	sb.WriteString("1. Use ONLY the provided previous responses as source material, prioritizing higher similarity scores.\n")
	fmt.Fprintf(&sb, "2. Treat any source below %.0f%% similarity as non-existent. Never use its content.\n", opts.GenerationFloor*100)
	sb.WriteString("3. STRICT SOURCING: every factual claim must be traceable to a specific numbered source. If no source supports a claim, do NOT include it.\n")
	fmt.Fprintf(&sb, "4. If zero qualifying sources cover the requirement or a sub-topic, state exactly: %q\n", models.NotAvailableResponse)
	fmt.Fprintf(&sb, "5. Keep the response within %d words.\n", opts.PrimaryWordBudget)
	sb.WriteString("6. For every claim, cite the source with its number and similarity percentage, e.g. \"(Source 1 - 92% similarity)\". Include customer names ONLY when present in the source data.\n\n")

	sb.WriteString("OUTPUT REQUIREMENTS:\n")
	sb.WriteString("- Submission-ready text with no meta-commentary, no speculative or hedging language.\n")
	sb.WriteString("- Open with the most relevant capability, support it with sourced specifics, close with a clear value proposition.\n")

	if mode == ModeStructured {
		sb.WriteString("\n")
		sb.WriteString(structuredSchemaInstructions())
	}

	return sb.String()
}

// structuredSchemaInstructions describes the JSON contract for structured
// fitment output. The schema mirrors internal/models.Fitment.
func structuredSchemaInstructions() string {
	return `STRUCTURED OUTPUT MODE:
Return ONLY a JSON object, no surrounding prose, with this shape:
{
  "response": "<the narrative answer, following all content rules>",
  "subrequirements": [
    {
      "id": "SR1",
      "title": "<short capability name>",
      "description": "<what this sub-capability covers>",
      "weight": <non-negative integer; all weights must sum to exactly 100>,
      "status": "fully_available" | "partially_available" | "not_available",
      "fitment_percentage": <integer; fully_available 90-100, partially_available 30-89, not_available 0>,
      "customization_required": <boolean>,
      "customization_notes": "<empty string when none>",
      "references": ["Source 1", ...]
    }
  ]
}
Decompose the requirement into at most 10 subrequirements (SR1..SR10).
Assign status strictly from the qualifying sources: a sub-capability with no
supporting source is not_available.`
}

func userMessage(requirement string, sources []models.RetrievedMatch, opts Options) string {
	var sb strings.Builder

	sb.WriteString("You have the following previous responses with similarity scores to evaluate:\n\n")

	if len(sources) == 0 {
		sb.WriteString("(No qualifying previous responses are available.)\n\n")
	}
	for i, m := range sources {
		title := shortTitle(m.Pair.Requirement)
		suffix := ""
		if m.Pair.Customer != "" {
			suffix = " for " + m.Pair.Customer
		}
		fmt.Fprintf(&sb, "Source %d: %s%s (Similarity: %.2f)\n", i+1, title, suffix, m.SimilarityScore)
		fmt.Fprintf(&sb, "Original Requirement: %s\n", m.Pair.Requirement)
		fmt.Fprintf(&sb, "Previous Response: %s\n", m.Pair.Response)
		if m.Pair.Customer != "" {
			fmt.Fprintf(&sb, "Customer/Client: %s\n", m.Pair.Customer)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Instructions:\n")
	fmt.Fprintf(&sb, "1. Use ONLY the numbered sources above; anything below %.0f%% similarity does not exist.\n", opts.GenerationFloor*100)
	sb.WriteString("2. Prioritize sources with higher similarity scores.\n")
	sb.WriteString("3. Cite each claim with its source number and similarity percentage.\n")
	fmt.Fprintf(&sb, "4. If the sources do not support an answer, reply exactly: %q\n\n", models.NotAvailableResponse)
	fmt.Fprintf(&sb, "Current Requirement: %s\n", requirement)

	return sb.String()
}

func validationMessage(mode Mode, opts Options) string {
	var sb strings.Builder
	sb.WriteString("Review and validate the draft response against these criteria:\n")
	sb.WriteString("1. Content is derived solely from the provided sources.\n")
	fmt.Fprintf(&sb, "2. The response is within %d words.\n", opts.PrimaryWordBudget)
	sb.WriteString("3. The tone is professional, positive, and free of hedging or speculative language.\n")
	sb.WriteString("4. Every factual claim carries a source citation with similarity percentage.\n")
	sb.WriteString("5. HALLUCINATION CHECK: no content exists that cannot be traced to the sources.\n")
	if mode == ModeStructured {
		sb.WriteString("6. The output is valid JSON matching the requested schema, weights sum to 100, and percentages respect their status bands.\n")
	}
	sb.WriteString("If any criterion is unmet, revise the response before answering.")
	return sb.String()
}

// shortTitle builds a descriptive source label from the first words of a
// requirement, matching the labels used in persisted references.
func shortTitle(requirement string) string {
	words := strings.Fields(requirement)
	if len(words) > 5 {
		return strings.Join(words[:5], " ") + "..."
	}
	return strings.Join(words, " ")
}
