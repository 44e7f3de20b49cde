// ABOUTME: CLI command to generate a response for a stored requirement
// ABOUTME: Runs the retrieval, consensus, and persistence flow end to end
package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/propelq/rfpgen/internal/pipeline"
	"github.com/propelq/rfpgen/internal/prompt"
)

var (
	generateModel         string
	generateMode          string
	generateSkipRetrieval bool
)

// NewGenerateCmd creates the generate command
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <requirement-id>",
		Short: "Generate a response for a requirement",
		Long: `Generate a grounded response for a stored requirement.

Retrieves the most similar historical answers, prompts the configured
model providers in parallel, and persists the synthesized result.

Examples:
  rfpgen generate 42
  rfpgen generate 42 --model anthropic
  rfpgen generate 42 --mode structured
  rfpgen generate 42 --skip-retrieval`,
		Args: cobra.ExactArgs(1),
		RunE: runGenerate,
	}

	cmd.Flags().StringVar(&generateModel, "model", pipeline.SelectorConsensus, "Provider selector (consensus, openai, deepseek, anthropic)")
	cmd.Flags().StringVar(&generateMode, "mode", string(prompt.ModeDirect), "Output mode (direct, structured)")
	cmd.Flags().BoolVar(&generateSkipRetrieval, "skip-retrieval", false, "Generate without corpus grounding")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database file path (default: XDG data dir)")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid requirement id %q", args[0])
	}

	mode := prompt.Mode(generateMode)
	if mode != prompt.ModeDirect && mode != prompt.ModeStructured {
		return fmt.Errorf("invalid mode %q: use direct or structured", generateMode)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireGeneration(); err != nil {
		return err
	}

	gen, err := a.pipeline.Generate(cmd.Context(), pipeline.Request{
		RequirementID: id,
		Selector:      generateModel,
		Mode:          mode,
		SkipRetrieval: generateSkipRetrieval,
	})
	if err != nil {
		return fmt.Errorf("generating response: %w", err)
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(gen, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", gen.FinalResponse)
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nProvider: %s\n", gen.ModelProvider)
		if gen.Fitment != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Fitment: %d%% (%s)\n",
				gen.Fitment.OverallFitmentPercentage, gen.Fitment.OverallStatus)
		}
		for _, ref := range gen.References {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%.2f)\n", ref.Label, ref.PairID, ref.SimilarityScore)
		}
	}
	return nil
}
