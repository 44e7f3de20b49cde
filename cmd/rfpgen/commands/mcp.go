// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Exposes generation and similarity search to LLM agents via stdio
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/propelq/rfpgen/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs rfpgen as an MCP (Model Context Protocol) server over stdio,
exposing response generation and corpus search as tools.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically launched by the agent host)
  rfpgen mcp

  # Configure in the host's MCP config:
  # {
  #   "mcpServers": {
  #     "rfpgen": {
  #       "command": "rfpgen",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Database file path (default: XDG data dir)")

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireGeneration(); err != nil {
		return err
	}

	server := mcpserver.NewMCPServer(
		"RFP Response Generator",
		"0.1.0",
	)
	mcp.RegisterTools(server, a.pipeline, a.retriever, a.requirements, a.cfg.DisplayFloor)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		log.Println("rfpgen MCP server starting on stdio...")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, shutting down...")
		}
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
