package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/fairbill/fairbill/internal/cli"
	"github.com/fairbill/fairbill/internal/common"
	"github.com/fairbill/fairbill/internal/config"
	"github.com/fairbill/fairbill/internal/extract"
	"github.com/fairbill/fairbill/internal/model"
	"github.com/fairbill/fairbill/internal/service"
	"github.com/fairbill/fairbill/internal/sheets"
	"github.com/fairbill/fairbill/internal/verify"
)

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Verify a bill against the tariff database",
		Long: `Extract the charges from a bill text file, price each service
independently from the stored tariff schedules, and report every
discrepancy with a citation.

Examples:
  # Verify a single bill
  fairbill verify ~/bills/march-2025.txt

  # Verify every bill in a directory
  fairbill verify --dir ~/bills

  # Supply the municipal valuation when the bill omits it
  fairbill verify --valuation 1250000 ~/bills/march-2025.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: runVerify,
	}

	cmd.Flags().String("dir", "", "verify every .txt bill in a directory")
	cmd.Flags().Float64("valuation", 0, "municipal property valuation in rand, used when the bill omits it")
	cmd.Flags().Int("living-units", 0, "number of living units, used when the bill omits it")
	cmd.Flags().Bool("no-save", false, "do not record the run in the verification history")
	cmd.Flags().Bool("export", false, "export the findings to Google Sheets")

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	noSave, _ := cmd.Flags().GetBool("no-save")
	export, _ := cmd.Flags().GetBool("export")
	hints := hintsFromFlags(cmd)

	if dir == "" && len(args) == 0 {
		return fmt.Errorf("provide a bill file or --dir")
	}
	if dir != "" && len(args) > 0 {
		return fmt.Errorf("provide either a bill file or --dir, not both")
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	engine := newEngine(store)

	if dir != "" {
		return runVerifyBatch(cmd.Context(), engine, store, dir, hints, noSave)
	}

	result, bill, err := verifyFile(cmd.Context(), engine, args[0], hints)
	if err != nil {
		return err
	}

	renderer := cli.NewReportRenderer(os.Stdout)
	if err := renderer.RenderResult(result); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if !noSave {
		if err := saveRun(cmd.Context(), store, bill, result); err != nil {
			slog.Warn("Failed to save verification history", "error", err)
		}
	}

	if export {
		if err := exportRun(cmd.Context(), bill, result); err != nil {
			return fmt.Errorf("failed to export findings: %w", err)
		}
	}

	return nil
}

// runVerifyBatch verifies every .txt file under dir, newest path order,
// with a progress bar and a one-line summary per bill.
func runVerifyBatch(ctx context.Context, engine *verify.Engine, store service.Storage, dir string, hints model.PropertyHints, noSave bool) error {
	files, err := filepath.Glob(filepath.Join(config.ExpandPath(dir), "*.txt"))
	if err != nil {
		return fmt.Errorf("invalid directory pattern: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no .txt bills found in %s", dir)
	}
	sort.Strings(files)

	handler := cli.NewInterruptHandler(os.Stdout)
	ctx = handler.HandleInterrupts(ctx)

	slog.Info("Verifying bills", "count", len(files), "dir", dir)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Verifying bills"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var wrong, clean, failed int
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}

		result, bill, err := verifyFile(ctx, engine, file, hints)
		if err != nil {
			failed++
			common.LogError(err, "Verification failed", common.Fields{"file": filepath.Base(file)})
			_ = bar.Add(1)
			continue
		}

		if !noSave {
			if err := saveRun(ctx, store, bill, result); err != nil {
				slog.Warn("Failed to save verification history", "file", filepath.Base(file), "error", err)
			}
		}

		if result.Summary.LikelyWrong > 0 {
			wrong++
			fmt.Printf("%s %s: %d likely wrong, impact %s to %s\n",
				cli.WrongStyle.Render(cli.WrongIcon), filepath.Base(file),
				result.Summary.LikelyWrong, result.Impact.Min, result.Impact.Max)
		} else {
			clean++
		}
		_ = bar.Add(1)
	}

	fmt.Println()
	if handler.WasInterrupted() {
		slog.Warn("Batch verification interrupted", "completed", wrong+clean+failed, "total", len(files))
	}
	content := fmt.Sprintf(`Bills verified: %d
Clean: %d
Likely wrong: %d
Failed: %d`, clean+wrong+failed, clean, wrong, failed)

	slog.Info(cli.RenderBox("Batch Summary", content))

	return nil
}

// verifyFile extracts and verifies one bill text file.
func verifyFile(ctx context.Context, engine *verify.Engine, path string, hints model.PropertyHints) (*verify.Result, *model.Bill, error) {
	text, err := os.ReadFile(config.ExpandPath(path)) // #nosec G304
	if err != nil {
		return nil, nil, common.NewUserError(fmt.Sprintf("Could not read bill file %s", path), err)
	}

	bill := extract.Extract(string(text), hints)
	result, err := engine.Verify(ctx, bill)
	if err != nil {
		return nil, nil, fmt.Errorf("verification failed: %w", err)
	}

	return result, bill, nil
}

func hintsFromFlags(cmd *cobra.Command) model.PropertyHints {
	var hints model.PropertyHints
	if v, _ := cmd.Flags().GetFloat64("valuation"); v > 0 {
		valuation := model.RoundCents(v)
		hints.Valuation = &valuation
	}
	if v, _ := cmd.Flags().GetInt("living-units"); v > 0 {
		hints.LivingUnits = &v
	}
	return hints
}

// saveRun records one verification run in the history table.
func saveRun(ctx context.Context, store service.Storage, bill *model.Bill, result *verify.Result) error {
	record := &model.VerificationRecord{
		BillHash:       bill.GenerateHash(),
		AccountNumber:  bill.AccountNumber,
		BillDate:       bill.BillDate,
		VerifiedAt:     result.VerifiedAt,
		Verified:       result.Summary.Verified,
		LikelyWrong:    result.Summary.LikelyWrong,
		CannotVerify:   result.Summary.CannotVerify,
		Impact:         result.Impact,
		Recommendation: result.Recommendation,
	}
	return store.SaveVerification(ctx, record)
}

// exportRun appends the findings to the configured Google Sheet.
func exportRun(ctx context.Context, bill *model.Bill, result *verify.Result) error {
	sheetsConfig, err := loadSheetsConfig()
	if err != nil {
		return err
	}

	writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
	if err != nil {
		return err
	}

	report := &service.VerificationReport{
		VerifiedAt:     result.VerifiedAt,
		AccountNumber:  bill.AccountNumber,
		BillDate:       bill.BillDate,
		Recommendation: result.Recommendation,
		Findings:       result.Findings,
		Impact:         result.Impact,
	}

	if err := writer.Write(ctx, report); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Findings exported to Google Sheets"))
	return nil
}
