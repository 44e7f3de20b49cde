// ABOUTME: MCP tool handler implementations for the RFP generation server
// ABOUTME: Maps tool arguments onto the pipeline and formats JSON results
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/propelq/rfpgen/internal/pipeline"
	"github.com/propelq/rfpgen/internal/prompt"
	"github.com/propelq/rfpgen/internal/retrieval"
	"github.com/propelq/rfpgen/internal/storage/sqlite"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	pipeline     *pipeline.Pipeline
	retriever    *retrieval.Retriever
	requirements *sqlite.RequirementStore
	displayFloor float64
}

// GenerateResponse handles the generate_response tool
func (h *Handlers) GenerateResponse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requirementID, err := request.RequireFloat("requirement_id")
	if err != nil {
		return mcp.NewToolResultError("requirement_id argument is required and must be a number"), nil
	}

	selector := request.GetString("model", pipeline.SelectorConsensus)
	modeStr := request.GetString("mode", string(prompt.ModeDirect))
	mode := prompt.Mode(modeStr)
	if mode != prompt.ModeDirect && mode != prompt.ModeStructured {
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q: use direct or structured", modeStr)), nil
	}

	gen, err := h.pipeline.Generate(ctx, pipeline.Request{
		RequirementID: int64(requirementID),
		Selector:      selector,
		Mode:          mode,
		SkipRetrieval: request.GetBool("skip_retrieval", false),
	})
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrInvalidInput):
			return mcp.NewToolResultError(fmt.Sprintf("invalid input: %v", err)), nil
		case errors.Is(err, pipeline.ErrRetrievalUnavailable):
			return mcp.NewToolResultError(fmt.Sprintf("retrieval unavailable, retry or set skip_retrieval: %v", err)), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
		}
	}

	data, err := json.MarshalIndent(gen, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// FindSimilar handles the find_similar tool
func (h *Handlers) FindSimilar(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	maxResults := int(request.GetFloat("max_results", 5))
	if maxResults <= 0 {
		maxResults = 5
	}

	matches, err := h.retriever.Retrieve(ctx, query, maxResults, h.displayFloor)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	type matchResult struct {
		PairID          string  `json:"pair_id"`
		Requirement     string  `json:"requirement"`
		Response        string  `json:"response"`
		Customer        string  `json:"customer,omitempty"`
		SimilarityScore float64 `json:"similarity_score"`
		Rank            int     `json:"rank"`
	}
	results := make([]matchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, matchResult{
			PairID:          m.Pair.ID,
			Requirement:     m.Pair.Requirement,
			Response:        m.Pair.Response,
			Customer:        m.Pair.Customer,
			SimilarityScore: m.SimilarityScore,
			Rank:            m.Rank,
		})
	}

	data, err := json.MarshalIndent(map[string]interface{}{
		"query":   query,
		"matches": results,
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// GetResponse handles the get_response tool
func (h *Handlers) GetResponse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requirementID, err := request.RequireFloat("requirement_id")
	if err != nil {
		return mcp.NewToolResultError("requirement_id argument is required and must be a number"), nil
	}

	gen, err := h.requirements.GetGeneration(ctx, int64(requirementID))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read generation: %v", err)), nil
	}
	if gen == nil {
		return mcp.NewToolResultError(fmt.Sprintf("requirement %d has no completed generation", int64(requirementID))), nil
	}

	data, err := json.MarshalIndent(gen, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
