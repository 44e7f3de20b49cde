// ABOUTME: MCP tool definitions and registration for the RFP generation server
// ABOUTME: Defines JSON schemas for the generation and similarity search tools
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/propelq/rfpgen/internal/pipeline"
	"github.com/propelq/rfpgen/internal/retrieval"
	"github.com/propelq/rfpgen/internal/storage/sqlite"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, pipe *pipeline.Pipeline, retriever *retrieval.Retriever, requirements *sqlite.RequirementStore, displayFloor float64) *Handlers {
	handlers := &Handlers{
		pipeline:     pipe,
		retriever:    retriever,
		requirements: requirements,
		displayFloor: displayFloor,
	}

	// 1. generate_response - Run the full generation flow for a requirement
	server.AddTool(mcp.Tool{
		Name:        "generate_response",
		Description: "Generate a grounded RFP response for a stored requirement using the consensus flow or a single model provider.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"requirement_id": map[string]interface{}{
					"type":        "number",
					"description": "ID of the requirement to answer",
				},
				"model": map[string]interface{}{
					"type":        "string",
					"description": "Provider selector: consensus, openai, deepseek, or anthropic (default: consensus)",
					"default":     "consensus",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Output mode: direct for a narrative answer, structured for subrequirement fitment scoring (default: direct)",
					"default":     "direct",
				},
				"skip_retrieval": map[string]interface{}{
					"type":        "boolean",
					"description": "Generate without corpus grounding (default: false)",
					"default":     false,
				},
			},
			Required: []string{"requirement_id"},
		},
	}, handlers.GenerateResponse)

	// 2. find_similar - Search the historical corpus
	server.AddTool(mcp.Tool{
		Name:        "find_similar",
		Description: "Find historical requirement/response pairs similar to a query, for browsing what previous bids said.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Requirement text to search for",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results to return (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.FindSimilar)

	// 3. get_response - Read a previously generated response
	server.AddTool(mcp.Tool{
		Name:        "get_response",
		Description: "Fetch the persisted generation result for a requirement, including per-provider outputs and fitment scoring.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"requirement_id": map[string]interface{}{
					"type":        "number",
					"description": "ID of the requirement to read",
				},
			},
			Required: []string{"requirement_id"},
		},
	}, handlers.GetResponse)

	return handlers
}
