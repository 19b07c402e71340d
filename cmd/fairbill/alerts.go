package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fairbill/fairbill/internal/cli"
)

func alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Show missing-tariff alerts",
		Long: `List every (provider, service, financial year) a verification has
needed a tariff rule for and not found one. The hit count shows how
often each gap keeps being hit, so the most useful schedule to ingest
next is at the top of your mind.`,
		RunE: runAlerts,
	}

	return cmd
}

func runAlerts(cmd *cobra.Command, _ []string) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	alerts, err := store.GetMissingTariffAlerts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load alerts: %w", err)
	}

	if len(alerts) == 0 {
		fmt.Println(cli.FormatSuccess("No missing tariffs. Every verification found its rules."))
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tSERVICE\tFY\tHITS\tFIRST SEEN\tLAST SEEN")
	for i := range alerts {
		a := &alerts[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			a.Provider, a.Service, a.FinancialYear, a.HitCount,
			a.FirstSeen.Format("2006-01-02"), a.LastSeen.Format("2006-01-02"))
	}
	return tw.Flush()
}
