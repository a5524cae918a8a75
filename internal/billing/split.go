// Package billing plans installment invoices from a wizard cart and submits them to the
// CRM backend.
package billing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Split divides total into count installments. Every installment gets the floored
// share and the first one also absorbs the remainder, so the parts sum to total.
func Split(total types.Cents, count int) []types.Cents {
	if count < 1 {
		return nil
	}
	n := types.Cents(count)
	base := total / n
	remainder := total - base*n
	if remainder < 0 {
		// floor, not truncate: the remainder stays non-negative for refunds too
		base--
		remainder += n
	}

	parts := make([]types.Cents, count)
	for i := range parts {
		parts[i] = base
	}
	parts[0] += remainder
	return parts
}

// ParseRate parses a VAT percentage string such as "20" or "10,5"
func ParseRate(rate string) (float64, error) {
	rate = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rate), "%"))
	if rate == "" {
		return 0, nil
	}
	r, err := strconv.ParseFloat(strings.ReplaceAll(rate, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid vat rate %q: %w", rate, err)
	}
	if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, fmt.Errorf("invalid vat rate %q", rate)
	}
	return r, nil
}

// VAT extracts the tax contained in a gross amount
func VAT(gross types.Cents, rate string) (types.Cents, error) {
	r, err := ParseRate(rate)
	if err != nil {
		return 0, err
	}
	if r == 0 {
		return 0, nil
	}
	return types.Cents(math.Round(float64(gross) * r / (100 + r))), nil
}

// ItemTotal is unit price times quantity rounded to cents
func ItemTotal(unitPrice types.Cents, quantity float64) types.Cents {
	return types.Cents(math.Round(float64(unitPrice) * quantity))
}

// Line builds the invoice line for an amount of an item. number and count are zero for
// one-time items.
func Line(item types.InvoiceItem, amount types.Cents, number, count int) (types.InvoiceLine, error) {
	vat, err := VAT(amount, item.VatRate)
	if err != nil {
		return types.InvoiceLine{}, fmt.Errorf("item %q: %w", item.Name, err)
	}
	return types.InvoiceLine{
		ItemID:            item.ID,
		Name:              item.Name,
		Quantity:          item.Quantity,
		VatRate:           item.VatRate,
		Subtotal:          amount - vat,
		VatAmount:         vat,
		Total:             amount,
		InstallmentNumber: number,
		InstallmentCount:  count,
	}, nil
}

// Totals sums invoice lines
func Totals(lines []types.InvoiceLine) types.InvoiceTotals {
	var t types.InvoiceTotals
	for _, l := range lines {
		t.Subtotal += l.Subtotal
		t.VatAmount += l.VatAmount
		t.Total += l.Total
	}
	return t
}
