// ABOUTME: CLI command to search the historical corpus for similar questions
// ABOUTME: Uses the display floor so near-misses are still browsable
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var similarLimit int

// NewSimilarCmd creates the similar command
func NewSimilarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <query>",
		Short: "Find similar historical questions",
		Long: `Find historical requirement/response pairs similar to a query.

Uses the display similarity floor, which is looser than the floor
applied during generation, so near-misses remain visible for review.

Examples:
  rfpgen similar "data encryption at rest"
  rfpgen similar --limit 10 "audit logging"
  rfpgen similar --format json "disaster recovery"`,
		Args: cobra.ExactArgs(1),
		RunE: runSimilar,
	}

	cmd.Flags().IntVar(&similarLimit, "limit", 5, "Maximum results to return")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database file path (default: XDG data dir)")

	return cmd
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(similarLimit, "limit"); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if a.retriever == nil {
		return fmt.Errorf("OPENAI_API_KEY is required for similarity search")
	}

	matches, err := a.retriever.Retrieve(cmd.Context(), args[0], similarLimit, a.cfg.DisplayFloor)
	if err != nil {
		return fmt.Errorf("searching corpus: %w", err)
	}

	if len(matches) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No similar questions found for: %s\n", args[0])
		}
		return nil
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(matches, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tID\tREQUIREMENT\tCUSTOMER\n")
	fmt.Fprintf(w, "-----\t--\t-----------\t--------\n")
	for _, m := range matches {
		customer := m.Pair.Customer
		if customer == "" {
			customer = "-"
		}
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n",
			m.SimilarityScore,
			truncate(m.Pair.ID, 20),
			truncate(m.Pair.Requirement, 60),
			truncate(customer, 20))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d result(s)\n", len(matches))
	}
	return nil
}
