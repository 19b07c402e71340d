package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairbill/fairbill/internal/cli"
	"github.com/fairbill/fairbill/internal/config"
	"github.com/fairbill/fairbill/internal/model"
	"github.com/fairbill/fairbill/internal/service"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage tariff rules",
		Long: `Inspect and maintain the tariff rule database the verifier
prices against. Rules come from official municipal tariff schedules;
each carries its source excerpt and page for citations.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesShowCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesImportCmd())
	cmd.AddCommand(rulesVerifyCmd())
	cmd.AddCommand(rulesExpireCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tariff rules",
		RunE:  runRulesList,
	}

	cmd.Flags().String("provider", "", "filter by provider")
	cmd.Flags().String("service", "", "filter by service (electricity, water, sewerage, refuse, rates, sundry)")
	cmd.Flags().String("category", "", "filter by customer category (residential, commercial, industrial)")
	cmd.Flags().String("fy", "", "filter by financial year, e.g. 2024/2025")
	cmd.Flags().Bool("verified", false, "only verified rules")

	return cmd
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	filter := service.RuleFilter{}
	filter.Provider, _ = cmd.Flags().GetString("provider")
	filter.FinancialYear, _ = cmd.Flags().GetString("fy")
	filter.VerifiedOnly, _ = cmd.Flags().GetBool("verified")
	if v, _ := cmd.Flags().GetString("service"); v != "" {
		filter.Service = model.ServiceType(v)
		if !filter.Service.IsValid() {
			return fmt.Errorf("unknown service type %q", v)
		}
	}
	if v, _ := cmd.Flags().GetString("category"); v != "" {
		filter.Category = model.CustomerCategory(v)
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rules, err := store.GetRules(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}

	if len(rules) == 0 {
		fmt.Println(cli.FormatInfo("No tariff rules match."))
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROVIDER\tSERVICE\tCATEGORY\tFY\tEFFECTIVE\tVERIFIED\tCONF")
	for i := range rules {
		r := &rules[i]
		verified := ""
		if r.Verified {
			verified = cli.VerifiedIcon
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, r.Provider, r.Service, r.Category, r.FinancialYear,
			r.EffectiveFrom.Format("2006-01-02"), verified, r.Confidence)
	}
	return tw.Flush()
}

func rulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show one tariff rule in full, including its pricing structure",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesShow,
	}
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	var id int64
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		return fmt.Errorf("invalid rule id %q", args[0])
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rule, err := store.GetRuleByID(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load rule %d: %w", id, err)
	}

	pricing, err := model.EncodePricing(rule.Pricing)
	if err != nil {
		return fmt.Errorf("failed to encode pricing: %w", err)
	}
	var pretty json.RawMessage = pricing
	indented, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format pricing: %w", err)
	}

	fmt.Println(cli.BoldStyle.Render(fmt.Sprintf("Rule %d: %s %s (%s), %s", rule.ID, rule.Provider, rule.Service, rule.Category, rule.FinancialYear)))
	fmt.Printf("Effective from: %s\n", rule.EffectiveFrom.Format("2006-01-02"))
	if rule.ExpiresAt != nil {
		fmt.Printf("Expires: %s\n", rule.ExpiresAt.Format("2006-01-02"))
	}
	fmt.Printf("VAT rate: %.2f (inclusive: %t)\n", rule.VATRate, rule.VATInclusive)
	fmt.Printf("Verified: %t, confidence: %d%%\n", rule.Verified, rule.Confidence)
	if rule.SourceExcerpt != "" {
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("Source (page %d): %s", rule.SourcePage, rule.SourceExcerpt)))
	}
	fmt.Printf("Pricing:\n%s\n", indented)

	return nil
}

// ruleImport is the JSON shape of one rule in an import file. The
// pricing field uses the same service-discriminated envelope the store
// persists.
type ruleImport struct {
	Provider      string          `json:"provider"`
	Service       string          `json:"service"`
	Category      string          `json:"category"`
	FinancialYear string          `json:"financial_year"`
	EffectiveFrom string          `json:"effective_from,omitempty"`
	ExpiresAt     string          `json:"expires_at,omitempty"`
	SourceExcerpt string          `json:"source_excerpt,omitempty"`
	Pricing       json.RawMessage `json:"pricing"`
	SourcePage    int             `json:"source_page,omitempty"`
	Confidence    int             `json:"confidence"`
	VATRate       float64         `json:"vat_rate"`
	VATInclusive  bool            `json:"vat_inclusive,omitempty"`
	Verified      bool            `json:"verified,omitempty"`
}

func (ri *ruleImport) toRule() (*model.TariffRule, error) {
	rule := &model.TariffRule{
		Provider:      ri.Provider,
		Service:       model.ServiceType(ri.Service),
		Category:      model.CustomerCategory(ri.Category),
		FinancialYear: ri.FinancialYear,
		SourceExcerpt: ri.SourceExcerpt,
		SourcePage:    ri.SourcePage,
		Confidence:    ri.Confidence,
		VATRate:       ri.VATRate,
		VATInclusive:  ri.VATInclusive,
		Verified:      ri.Verified,
	}

	fy, err := model.ParseFinancialYear(ri.FinancialYear)
	if err != nil {
		return nil, err
	}

	rule.EffectiveFrom = fy.Start()
	if ri.EffectiveFrom != "" {
		rule.EffectiveFrom, err = time.Parse("2006-01-02", ri.EffectiveFrom)
		if err != nil {
			return nil, fmt.Errorf("invalid effective_from %q: %w", ri.EffectiveFrom, err)
		}
	}
	if ri.ExpiresAt != "" {
		expires, err := time.Parse("2006-01-02", ri.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("invalid expires_at %q: %w", ri.ExpiresAt, err)
		}
		rule.ExpiresAt = &expires
	}

	rule.Pricing, err = model.DecodePricing(ri.Pricing)
	if err != nil {
		return nil, err
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

func rulesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [file]",
		Short: "Add one tariff rule from a JSON file",
		Long: `Add a single tariff rule. The file holds one rule object in the
same shape 'rules import' accepts.`,
		Args: cobra.ExactArgs(1),
		RunE: runRulesAdd,
	}
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(config.ExpandPath(args[0])) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read rule file: %w", err)
	}

	var imported ruleImport
	if err := json.Unmarshal(data, &imported); err != nil {
		return fmt.Errorf("failed to parse rule file: %w", err)
	}

	rule, err := imported.toRule()
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveRule(cmd.Context(), rule); err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added rule %d: %s %s (%s), %s",
		rule.ID, rule.Provider, rule.Service, rule.Category, rule.FinancialYear)))
	return nil
}

func rulesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import tariff rules from a JSON file",
		Long: `Import an array of tariff rules from a JSON file, typically
produced by an external tariff-schedule ingestion step.

Each entry names its provider, service, category and financial year,
and carries a pricing structure wrapped in a service envelope.`,
		Args: cobra.ExactArgs(1),
		RunE: runRulesImport,
	}

	cmd.Flags().Bool("dry-run", false, "validate the file without saving anything")

	return cmd
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	data, err := os.ReadFile(config.ExpandPath(args[0])) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read rules file: %w", err)
	}

	var imports []ruleImport
	if err := json.Unmarshal(data, &imports); err != nil {
		return fmt.Errorf("failed to parse rules file: %w", err)
	}
	if len(imports) == 0 {
		return fmt.Errorf("rules file contains no rules")
	}

	rules := make([]*model.TariffRule, 0, len(imports))
	for i := range imports {
		rule, err := imports[i].toRule()
		if err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}

	if dryRun {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("%d rules validated, nothing saved", len(rules))))
		return nil
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for i, rule := range rules {
		if err := store.SaveRule(cmd.Context(), rule); err != nil {
			return fmt.Errorf("failed to save rule %d: %w", i+1, err)
		}
		slog.Debug("imported rule",
			"id", rule.ID,
			"provider", rule.Provider,
			"service", rule.Service,
			"fy", rule.FinancialYear)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d tariff rules", len(rules))))
	return nil
}

func rulesVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [id]",
		Short: "Mark a rule as verified against its source schedule",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesVerify,
	}

	cmd.Flags().Bool("revoke", false, "mark the rule unverified instead")

	return cmd
}

func runRulesVerify(cmd *cobra.Command, args []string) error {
	var id int64
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		return fmt.Errorf("invalid rule id %q", args[0])
	}
	revoke, _ := cmd.Flags().GetBool("revoke")

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.MarkRuleVerified(cmd.Context(), id, !revoke); err != nil {
		return fmt.Errorf("failed to update rule %d: %w", id, err)
	}

	if revoke {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Rule %d marked unverified", id)))
	} else {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rule %d marked verified", id)))
	}
	return nil
}

func rulesExpireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expire [id]",
		Short: "Set the date a rule stops applying",
		Long: `Expire a rule so the matcher stops selecting it after the given
date. Mid-year tariff corrections are handled this way: expire the
superseded rule and import its replacement.`,
		Args: cobra.ExactArgs(1),
		RunE: runRulesExpire,
	}

	cmd.Flags().String("on", "", "expiry date, YYYY-MM-DD (required)")
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("on")

	return cmd
}

func runRulesExpire(cmd *cobra.Command, args []string) error {
	var id int64
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		return fmt.Errorf("invalid rule id %q", args[0])
	}

	on, _ := cmd.Flags().GetString("on")
	expiry, err := time.Parse("2006-01-02", on)
	if err != nil {
		return fmt.Errorf("invalid expiry date %q: %w", on, err)
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rule, err := store.GetRuleByID(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load rule %d: %w", id, err)
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		question := fmt.Sprintf("Expire rule %d (%s %s, %s) on %s?",
			rule.ID, rule.Provider, rule.Service, rule.FinancialYear, on)
		ok, err := cli.NewConfirmer(os.Stdin, os.Stdout).Confirm(cmd.Context(), question, false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println(cli.FormatInfo("Nothing changed."))
			return nil
		}
	}

	if err := store.ExpireRule(cmd.Context(), id, expiry); err != nil {
		return fmt.Errorf("failed to expire rule %d: %w", id, err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rule %d expires on %s", id, on)))
	return nil
}
