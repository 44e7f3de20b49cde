// ABOUTME: Parser for structured fitment output returned by model providers
// ABOUTME: Tolerates markdown fences and maps the JSON onto models.Fitment
package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/propelq/rfpgen/internal/models"
)

// structuredPayload is the wire shape requested from the model in
// structured mode.
type structuredPayload struct {
	Response        string                  `json:"response"`
	Subrequirements []models.Subrequirement `json:"subrequirements"`
}

// ParseStructured extracts the narrative response and the fitment object
// from a structured-mode model output. Models frequently wrap JSON in
// markdown fences or lead-in prose, so the parser locates the outermost
// JSON object rather than requiring a clean document.
func ParseStructured(text string) (string, *models.Fitment, error) {
	raw := extractJSON(text)
	if raw == "" {
		return "", nil, fmt.Errorf("no JSON object found in output")
	}

	var payload structuredPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", nil, fmt.Errorf("parsing structured output: %w", err)
	}

	if strings.TrimSpace(payload.Response) == "" {
		return "", nil, fmt.Errorf("structured output has empty response field")
	}
	if len(payload.Subrequirements) == 0 {
		return "", nil, fmt.Errorf("structured output has no subrequirements")
	}

	fitment := &models.Fitment{Subrequirements: payload.Subrequirements}
	for _, sr := range fitment.Subrequirements {
		if !sr.Status.Valid() {
			return "", nil, fmt.Errorf("subrequirement %s: unknown status %q", sr.ID, sr.Status)
		}
	}

	return strings.TrimSpace(payload.Response), fitment, nil
}

// extractJSON strips markdown fences and returns the first balanced
// top-level JSON object in the text, or "" when none exists.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	// ```json ... ``` or bare ``` fences.
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
