// ABOUTME: CLI command to add a requirement to the database
// ABOUTME: Stores the question text so generation can be run against it
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/propelq/rfpgen/internal/models"
)

var (
	addCategory   string
	addRFPName    string
	addUploadedBy string
)

// NewAddCmd creates the add command
func NewAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <requirement-text>",
		Short: "Add a requirement",
		Long: `Add an RFP requirement to the database.

The assigned ID is printed; pass it to generate to produce a response.

Examples:
  rfpgen add "Describe your data retention policies."
  rfpgen add --category Security "How is data encrypted at rest?"`,
		Args: cobra.ExactArgs(1),
		RunE: runAdd,
	}

	cmd.Flags().StringVar(&addCategory, "category", "", "Requirement category")
	cmd.Flags().StringVar(&addRFPName, "rfp", "", "RFP name this requirement belongs to")
	cmd.Flags().StringVar(&addUploadedBy, "uploaded-by", "", "Who uploaded the requirement")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database file path (default: XDG data dir)")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	req := &models.Requirement{
		Text:       args[0],
		Category:   addCategory,
		RFPName:    addRFPName,
		UploadedBy: addUploadedBy,
	}
	if err := a.requirements.Insert(cmd.Context(), req); err != nil {
		return fmt.Errorf("adding requirement: %w", err)
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(req, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added requirement %d\n", req.ID)
	return nil
}
