package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fairbill/fairbill/internal/cli"
	"github.com/fairbill/fairbill/internal/config"
	"github.com/fairbill/fairbill/internal/extract"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract the charges from a bill without verifying them",
		Long: `Parse a bill text file into its structured form: header fields,
property details and one line item per service. Useful for checking
what the verifier will see before running it.`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}

	cmd.Flags().Bool("json", false, "print the extracted bill as JSON")
	cmd.Flags().Float64("valuation", 0, "municipal property valuation in rand, used when the bill omits it")
	cmd.Flags().Int("living-units", 0, "number of living units, used when the bill omits it")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	hints := hintsFromFlags(cmd)

	text, err := os.ReadFile(config.ExpandPath(args[0])) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read bill file: %w", err)
	}

	bill := extract.Extract(string(text), hints)
	// The raw text is an input echo, not an extraction result.
	bill.RawText = ""

	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(bill)
	}

	return cli.NewReportRenderer(os.Stdout).RenderBill(bill)
}
