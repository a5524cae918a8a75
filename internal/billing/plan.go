package billing

import (
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// PlannedInvoice is one invoice of a plan
type PlannedInvoice struct {
	InstallmentNumber int                 `json:"installmentNumber"`
	Date              time.Time           `json:"date"`
	Lines             []types.InvoiceLine `json:"lines"`
	Totals            types.InvoiceTotals `json:"totals"`
}

// Plan is the full generation calendar for a cart
type Plan struct {
	Immediate *PlannedInvoice     `json:"immediate"`
	Scheduled []PlannedInvoice    `json:"scheduled"`
	Ignored   []types.InvoiceItem `json:"ignored,omitempty"`
	Yearly    bool                `json:"yearly"`
}

// Total sums every planned invoice
func (p Plan) Total() types.Cents {
	var sum types.Cents
	if p.Immediate != nil {
		sum += p.Immediate.Totals.Total
	}
	for _, s := range p.Scheduled {
		sum += s.Totals.Total
	}
	return sum
}

// BuildPlan bundles every one-time item and the first slice of every installment item
// into the immediate invoice, then schedules invoices 2..max(count) with the remaining
// slices. If any installment item is yearly, the whole plan steps by years.
// Installment items with a count below one are reported as ignored.
func BuildPlan(items []types.InvoiceItem, issueDate time.Time) (Plan, error) {
	plan := Plan{Scheduled: []PlannedInvoice{}}

	var oneTime []types.InvoiceItem
	var installments []types.InvoiceItem
	maxCount := 1
	for _, item := range items {
		if !item.IsInstallment() {
			oneTime = append(oneTime, item)
			continue
		}
		if item.InstallmentCount < 1 {
			plan.Ignored = append(plan.Ignored, item)
			continue
		}
		installments = append(installments, item)
		if item.InstallmentCount > maxCount {
			maxCount = item.InstallmentCount
		}
		if item.Frequency == types.FrequencyYearly {
			plan.Yearly = true
		}
	}

	splits := make([][]types.Cents, len(installments))
	for i, item := range installments {
		splits[i] = Split(item.Total, item.InstallmentCount)
	}

	first := PlannedInvoice{InstallmentNumber: 1, Date: issueDate}
	for _, item := range oneTime {
		line, err := Line(item, item.Total, 0, 0)
		if err != nil {
			return Plan{}, err
		}
		first.Lines = append(first.Lines, line)
	}
	for i, item := range installments {
		line, err := Line(item, splits[i][0], 1, item.InstallmentCount)
		if err != nil {
			return Plan{}, err
		}
		first.Lines = append(first.Lines, line)
	}
	if len(first.Lines) > 0 {
		first.Totals = Totals(first.Lines)
		plan.Immediate = &first
	}

	for n := 2; n <= maxCount; n++ {
		inv := PlannedInvoice{InstallmentNumber: n, Date: stepDate(issueDate, n-1, plan.Yearly)}
		for i, item := range installments {
			if n > item.InstallmentCount {
				continue
			}
			line, err := Line(item, splits[i][n-1], n, item.InstallmentCount)
			if err != nil {
				return Plan{}, err
			}
			inv.Lines = append(inv.Lines, line)
		}
		if len(inv.Lines) == 0 {
			continue
		}
		inv.Totals = Totals(inv.Lines)
		plan.Scheduled = append(plan.Scheduled, inv)
	}

	return plan, nil
}

func stepDate(base time.Time, steps int, yearly bool) time.Time {
	if yearly {
		return base.AddDate(steps, 0, 0)
	}
	return base.AddDate(0, steps, 0)
}
