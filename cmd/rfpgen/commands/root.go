// ABOUTME: Root CLI command with global flags for output control
// ABOUTME: Wires all subcommands and handles mutually exclusive flag validation
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	outputFormat string
	quiet        bool
	verbose      bool
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rfpgen",
		Short: "Grounded RFP response generation from historical bids",
		Long: `rfpgen generates RFP responses grounded in your historical bid corpus.

Each requirement is answered by retrieving the most similar previously
answered questions, prompting multiple model providers in parallel, and
synthesizing their outputs into a single sourced response.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if quiet && verbose {
				return fmt.Errorf("--quiet and --verbose are mutually exclusive")
			}
			if outputFormat != "auto" && outputFormat != "json" && outputFormat != "table" {
				return fmt.Errorf("invalid format %q: use auto, json, or table", outputFormat)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format (auto, json, table)")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewGenerateCmd())
	cmd.AddCommand(NewSimilarCmd())
	cmd.AddCommand(NewIndexCmd())
	cmd.AddCommand(NewAddCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
