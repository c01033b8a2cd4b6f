package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/apiclient"
	"clipforge/internal/database"
	"clipforge/internal/entitlement"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect and assign render plans",
	}
	planCmd.AddCommand(newPlanListCommand(ctx))
	planCmd.AddCommand(newPlanShowCommand(ctx))
	planCmd.AddCommand(newPlanSetCommand(ctx))
	return planCmd
}

func newPlanListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "list",
		Short:       "List available plans",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			plans := entitlement.Plans()
			if ctx.jsonOutput() {
				return writeJSON(cmd, plans)
			}
			rows := make([][]string, 0, len(plans))
			for _, plan := range plans {
				renders := "unlimited"
				if plan.Limited() {
					renders = strconv.Itoa(plan.RendersPerPeriod)
				}
				rows = append(rows, []string{plan.ID, renders, strconv.Itoa(plan.MaxSourceMinutes), plan.ExportQuality})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Plan", "Renders", "Max source (min)", "Quality"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newPlanShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show render usage for the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				decision, err := client.Entitlement(cmd.Context())
				if err != nil {
					return describeAPIError(err)
				}
				return printDecision(cmd, ctx, decision)
			})
		},
	}
}

// newPlanSetCommand writes straight to the state database; the daemon reads
// the subscription row on every render check, so no restart is needed.
func newPlanSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <user-id> <plan>",
		Short: "Assign a plan to a user, keeping usage in the current period",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := entitlement.LookupPlan(args[1]); err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DatabasePath())
			if err != nil {
				return fmt.Errorf("open state database: %w", err)
			}
			defer db.Close()

			ledger, err := entitlement.NewLedger(cmd.Context(), db, entitlement.Options{
				Enforce:     cfg.Entitlement.Enforce,
				DefaultPlan: cfg.Entitlement.DefaultPlan,
				PeriodDays:  cfg.Entitlement.PeriodDays,
			})
			if err != nil {
				return err
			}
			decision, err := ledger.SetPlan(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printDecision(cmd, ctx, decision)
		},
	}
}

func printDecision(cmd *cobra.Command, ctx *commandContext, decision entitlement.Decision) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, decision)
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	kind := statusOK
	if !decision.Allowed {
		kind = statusError
	}
	limit := "unlimited"
	if decision.Limit != entitlement.Unlimited {
		limit = strconv.Itoa(decision.Limit)
	}
	fmt.Fprintln(out, renderStatusLine("Plan", statusInfo, decision.Plan, colorize))
	fmt.Fprintln(out, renderStatusLine("Renders", kind, fmt.Sprintf("%d used of %s", decision.Used, limit), colorize))
	if !decision.PeriodEnd.IsZero() {
		fmt.Fprintln(out, renderStatusLine("Period ends", statusInfo, decision.PeriodEnd.Local().Format("2006-01-02 15:04"), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Enforced", statusInfo, yesNo(decision.Enforced), colorize))
	if decision.Reason != "" {
		fmt.Fprintln(out, renderStatusLine("Reason", statusWarn, decision.Reason, colorize))
	}
	return nil
}
