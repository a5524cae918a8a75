package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dennisdiepolder/monti/agentdesk/internal/billing"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

type planOutput struct {
	billing.Plan
	Total types.Cents `json:"total"`
}

func newPlanCmd(app *App) *cobra.Command {
	var issueDate string

	cmd := &cobra.Command{
		Use:   "plan [cart.json]",
		Short: "Show the invoices a cart would generate",
		Long:  "Reads a JSON array of invoice items and prints the immediate invoice and the installment calendar.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}

			var items []types.InvoiceItem
			if err := readJSON(cmd, path, &items); err != nil {
				return writeErr(cmd, err)
			}
			for i := range items {
				if items[i].Total == 0 {
					items[i].Total = billing.ItemTotal(items[i].UnitPrice, items[i].Quantity)
				}
			}

			date, err := app.now()
			if err != nil {
				return writeErr(cmd, err)
			}
			if issueDate != "" {
				if date, err = time.Parse("2006-01-02", issueDate); err != nil {
					return writeErr(cmd, fmt.Errorf("invalid --issue-date: %w", err))
				}
			}
			date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

			plan, err := billing.BuildPlan(items, date)
			if err != nil {
				return writeErr(cmd, err)
			}
			if len(plan.Ignored) > 0 {
				app.logger.Warn().Int("items", len(plan.Ignored)).Msg("installment items without a count were ignored")
			}
			return writeOut(cmd, app, planOutput{Plan: plan, Total: plan.Total()})
		},
	}

	cmd.Flags().StringVar(&issueDate, "issue-date", "", "Issue date of the first invoice (YYYY-MM-DD, default today)")
	return cmd
}
