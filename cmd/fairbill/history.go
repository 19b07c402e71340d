package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fairbill/fairbill/internal/cli"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past verification runs",
		RunE:  runHistory,
	}

	cmd.Flags().IntP("limit", "n", 20, "number of runs to show (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.GetVerifications(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println(cli.FormatInfo("No verifications recorded yet. Run 'fairbill verify' first."))
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERIFIED AT\tACCOUNT\tBILL DATE\tOK\tWRONG\tUNKNOWN\tIMPACT\tRECOMMENDATION")
	for i := range records {
		r := &records[i]
		billDate := ""
		if r.BillDate != nil {
			billDate = r.BillDate.Format("2006-01-02")
		}
		impact := ""
		if r.Impact.Max > 0 {
			impact = fmt.Sprintf("%s to %s", r.Impact.Min, r.Impact.Max)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.VerifiedAt.Format("2006-01-02 15:04"), r.AccountNumber, billDate,
			r.Verified, r.LikelyWrong, r.CannotVerify, impact, r.Recommendation)
	}
	return tw.Flush()
}
