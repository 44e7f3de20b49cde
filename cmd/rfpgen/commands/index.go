// ABOUTME: CLI command to import historical pairs into the retrieval corpus
// ABOUTME: Reads JSONL, embeds each pair, and stores vectors in SQLite
package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/propelq/rfpgen/internal/models"
)

var indexSkipEmbedding bool

// NewIndexCmd creates the index command
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <file.jsonl>",
		Short: "Import historical pairs into the corpus",
		Long: `Import historical requirement/response pairs from a JSONL file.

Each line is one JSON object with at least "requirement" and "response"
fields; "id", "category", "customer", and "metadata" are optional. Pairs
without an id are assigned one. Each pair is embedded on import unless
--skip-embedding is set (vectorless pairs are excluded from retrieval).

Examples:
  rfpgen index corpus.jsonl
  rfpgen index --skip-embedding corpus.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: runIndex,
	}

	cmd.Flags().BoolVar(&indexSkipEmbedding, "skip-embedding", false, "Import without generating vectors")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database file path (default: XDG data dir)")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if !indexSkipEmbedding && a.embedder == nil {
		return fmt.Errorf("OPENAI_API_KEY is required for embeddings; use --skip-embedding to import without vectors")
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening corpus file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var imported, failed int
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var pair models.HistoricalPair
		if err := json.Unmarshal(line, &pair); err != nil {
			log.Printf("line %d: invalid JSON, skipping: %v", lineNo, err)
			failed++
			continue
		}
		if pair.Requirement == "" || pair.Response == "" {
			log.Printf("line %d: missing requirement or response, skipping", lineNo)
			failed++
			continue
		}
		if pair.ID == "" {
			pair.ID = uuid.New().String()
		}

		if !indexSkipEmbedding && len(pair.Vector) == 0 {
			vector, err := a.embedder.Embed(cmd.Context(), pair.Requirement)
			if err != nil {
				log.Printf("line %d: embedding failed, importing without vector: %v", lineNo, err)
			} else {
				pair.Vector = vector
			}
		}

		if err := a.pairs.Add(cmd.Context(), pair); err != nil {
			log.Printf("line %d: storing pair failed: %v", lineNo, err)
			failed++
			continue
		}
		imported++

		if verbose {
			log.Printf("imported pair %s", pair.ID)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading corpus file: %w", err)
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d pair(s), %d failed\n", imported, failed)
	}
	return nil
}
