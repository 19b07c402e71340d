package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fairbill/fairbill/internal/model"
	"github.com/fairbill/fairbill/internal/verify"
)

// ReportRenderer writes human-readable verification reports.
type ReportRenderer struct {
	writer io.Writer
}

// NewReportRenderer creates a renderer writing to the given writer.
func NewReportRenderer(writer io.Writer) *ReportRenderer {
	return &ReportRenderer{writer: writer}
}

// RenderBill writes a summary of an extracted bill: header fields,
// property details and one row per charge.
func (r *ReportRenderer) RenderBill(bill *model.Bill) error {
	var b strings.Builder

	b.WriteString(FormatTitle("Extracted Bill") + "\n")
	if bill.AccountNumber != "" {
		b.WriteString(fmt.Sprintf("Account: %s\n", BoldStyle.Render(bill.AccountNumber)))
	}
	if bill.BillDate != nil {
		b.WriteString(fmt.Sprintf("Bill date: %s\n", bill.BillDate.Format("2006-01-02")))
	}
	if bill.PeriodStart != nil && bill.PeriodEnd != nil {
		b.WriteString(fmt.Sprintf("Period: %s to %s (%d days)\n",
			bill.PeriodStart.Format("2006-01-02"), bill.PeriodEnd.Format("2006-01-02"), bill.BillingDays()))
	}
	if bill.Property.Address != "" {
		b.WriteString(fmt.Sprintf("Property: %s\n", bill.Property.Address))
	}
	b.WriteString("\n")

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tPROVIDER\tQUANTITY\tAMOUNT")
	for i := range bill.LineItems {
		item := &bill.LineItems[i]
		qty := ""
		if item.Quantity != nil {
			qty = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", *item.Quantity), "0"), ".")
		}
		if item.IsEstimated {
			qty += " (est)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.Service, item.Provider, qty, item.Amount)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to render charges table: %w", err)
	}

	b.WriteString("\n")
	writeTotal(&b, "Previous balance", bill.PreviousBalance)
	writeTotal(&b, "Current charges", bill.CurrentCharges)
	writeTotal(&b, "VAT", bill.VATAmount)
	writeTotal(&b, "Total due", bill.TotalDue)

	_, err := fmt.Fprintln(r.writer, b.String())
	return err
}

func writeTotal(b *strings.Builder, label string, amount *model.Cents) {
	if amount == nil {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, amount.String())
}

// RenderResult writes the full verification report: findings grouped by
// check family, the verdict tally, the estimated impact and the closing
// recommendation.
func (r *ReportRenderer) RenderResult(result *verify.Result) error {
	var b strings.Builder

	b.WriteString(FormatTitle("Verification Report") + "\n")
	b.WriteString(SubtitleStyle.Render("Verified at "+result.VerifiedAt.Format("2006-01-02 15:04")) + "\n")

	for _, family := range checkFamilies(result.Findings) {
		b.WriteString(BoldStyle.Render(familyHeading(family)) + "\n")
		for i := range result.Findings {
			f := &result.Findings[i]
			if f.Check != family {
				continue
			}
			renderFinding(&b, f)
		}
		b.WriteString("\n")
	}

	b.WriteString(renderSummary(result.Summary))
	if result.Impact.Max > 0 {
		b.WriteString(fmt.Sprintf("Estimated impact: %s\n", WrongStyle.Render(formatImpact(result.Impact))))
	}
	b.WriteString(renderRecommendation(result.Recommendation))

	_, err := fmt.Fprintln(r.writer, b.String())
	return err
}

func renderFinding(b *strings.Builder, f *model.Finding) {
	fmt.Fprintf(b, "  %s %s\n", FormatStatus(f.Status), f.Title)
	fmt.Fprintf(b, "    %s\n", f.Explanation)
	if f.Impact != nil && f.Impact.Max > 0 {
		fmt.Fprintf(b, "    Impact: %s\n", formatImpact(*f.Impact))
	}
	if f.Citation.HasSource {
		cite := "Source: " + f.Citation.Source
		if f.Citation.Page > 0 {
			cite += fmt.Sprintf(", page %d", f.Citation.Page)
		}
		fmt.Fprintf(b, "    %s\n", SubtleStyle.Render(cite))
		if f.Citation.Excerpt != "" {
			fmt.Fprintf(b, "    %s\n", SubtleStyle.Render("“"+f.Citation.Excerpt+"”"))
		}
	} else if f.Citation.SelfEvident {
		fmt.Fprintf(b, "    %s\n", SubtleStyle.Render("Source: "+f.Citation.Source))
	}
	fmt.Fprintf(b, "    %s\n", SubtleStyle.Render(fmt.Sprintf("Confidence: %d%%", f.Confidence)))
}

func renderSummary(s verify.Summary) string {
	parts := []string{
		VerifiedStyle.Render(fmt.Sprintf("%d verified", s.Verified)),
		WrongStyle.Render(fmt.Sprintf("%d likely wrong", s.LikelyWrong)),
		UnverifiedStyle.Render(fmt.Sprintf("%d cannot verify", s.CannotVerify)),
	}
	return strings.Join(parts, SubtleStyle.Render(" · ")) + "\n"
}

func renderRecommendation(rec model.Recommendation) string {
	switch rec {
	case model.RecommendNoAction:
		return FormatSuccess("All checked charges look correct. No action needed.") + "\n"
	case model.RecommendHandleYourself:
		return FormatWarning("Small discrepancy found. Worth querying with the call centre yourself.") + "\n"
	case model.RecommendEscalate:
		return FormatError("Significant discrepancy found. Consider lodging a formal dispute.") + "\n"
	default:
		return ""
	}
}

func formatImpact(impact model.ImpactRange) string {
	if impact.Min == impact.Max {
		return impact.Max.String()
	}
	return fmt.Sprintf("%s to %s", impact.Min, impact.Max)
}

func familyHeading(family model.CheckType) string {
	switch family {
	case model.CheckTariff:
		return "Tariff checks"
	case model.CheckMeter:
		return "Meter checks"
	case model.CheckArithmetic:
		return "Arithmetic checks"
	default:
		return string(family)
	}
}

// checkFamilies returns the families present in the findings, in the
// engine's canonical order.
func checkFamilies(findings []model.Finding) []model.CheckType {
	order := map[model.CheckType]int{
		model.CheckTariff:     0,
		model.CheckMeter:      1,
		model.CheckArithmetic: 2,
	}
	seen := make(map[model.CheckType]bool)
	var families []model.CheckType
	for i := range findings {
		if !seen[findings[i].Check] {
			seen[findings[i].Check] = true
			families = append(families, findings[i].Check)
		}
	}
	sort.Slice(families, func(i, j int) bool {
		return order[families[i]] < order[families[j]]
	})
	return families
}
