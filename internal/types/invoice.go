package types

import "time"

// PaymentType tags how an invoice item is billed
type PaymentType string

const (
	PaymentUnset       PaymentType = ""
	PaymentOneTime     PaymentType = "oneTime"
	PaymentInstallment PaymentType = "installment"
)

// Frequency is the installment stepping of an item
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// InvoiceItem is a wizard cart line
type InvoiceItem struct {
	ID               string      `json:"id"`
	Name             string      `json:"name" validate:"required"`
	Quantity         float64     `json:"quantity" validate:"gt=0"`
	UnitPrice        Cents       `json:"unitPrice"`
	VatRate          string      `json:"vatRate"` // percentage, e.g. "20"
	Total            Cents       `json:"total"`
	PaymentType      PaymentType `json:"paymentType"`
	InstallmentCount int         `json:"installmentCount,omitempty"`
	Frequency        Frequency   `json:"frequency,omitempty"`
	PriceOverridden  bool        `json:"priceOverridden,omitempty"` // total comes from billset pricing
}

// IsInstallment reports whether the item is split across invoices
func (i InvoiceItem) IsInstallment() bool {
	return i.PaymentType == PaymentInstallment
}

// InvoiceLine is an item as it appears on one generated invoice
type InvoiceLine struct {
	ItemID            string  `json:"itemId"`
	Name              string  `json:"name"`
	Quantity          float64 `json:"quantity"`
	VatRate           string  `json:"vatRate"`
	Subtotal          Cents   `json:"subtotal"`
	VatAmount         Cents   `json:"vatAmount"`
	Total             Cents   `json:"total"`
	InstallmentNumber int     `json:"installmentNumber,omitempty"`
	InstallmentCount  int     `json:"installmentCount,omitempty"`
}

// InvoiceTotals sums the lines of one invoice
type InvoiceTotals struct {
	Subtotal  Cents `json:"subtotal"`
	VatAmount Cents `json:"vatAmount"`
	Total     Cents `json:"total"`
}

// PaymentDetails are the bank transfer fields printed on an invoice and encoded in its QR
type PaymentDetails struct {
	IBAN           string `json:"iban"`
	SWIFT          string `json:"swift,omitempty"`
	Currency       string `json:"currency"`
	VariableSymbol string `json:"variableSymbol,omitempty"`
	ConstantSymbol string `json:"constantSymbol,omitempty"`
	SpecificSymbol string `json:"specificSymbol,omitempty"`
	RecipientName  string `json:"recipientName,omitempty"`
}

// Invoice is the payload sent to the invoices endpoint
type Invoice struct {
	ID               string         `json:"id,omitempty"`
	Number           string         `json:"number,omitempty"`
	CustomerID       string         `json:"customerId"`
	BillingDetailsID string         `json:"billingDetailsId,omitempty"`
	IssueDate        time.Time      `json:"issueDate"`
	DueDate          time.Time      `json:"dueDate"`
	Lines            []InvoiceLine  `json:"lines"`
	Totals           InvoiceTotals  `json:"totals"`
	Payment          PaymentDetails `json:"payment"`
	InstallmentNo    int            `json:"installmentNo,omitempty"`
}

// ScheduledInvoice is a future invoice queued on the backend
type ScheduledInvoice struct {
	ID                string    `json:"id,omitempty"`
	CustomerID        string    `json:"customerId"`
	ParentInvoiceID   string    `json:"parentInvoiceId,omitempty"`
	ScheduledDate     time.Time `json:"scheduledDate"`
	InstallmentNumber int       `json:"installmentNumber"`
	Invoice           Invoice   `json:"invoice"`
}

// BillingDetails is the issuing entity of an invoice
type BillingDetails struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Country        string `json:"country"`
	IBAN           string `json:"iban"`
	SWIFT          string `json:"swift,omitempty"`
	Currency       string `json:"currency"`
	ConstantSymbol string `json:"constantSymbol,omitempty"`
	NumberRangeID  string `json:"numberRangeId,omitempty"`
	DueDays        int    `json:"dueDays,omitempty"`
}

// BillsetItem is a priced line template of a product set
type BillsetItem struct {
	Name             string      `json:"name"`
	Price            Cents       `json:"price"`
	VatRate          string      `json:"vatRate"`
	PaymentType      PaymentType `json:"paymentType"`
	InstallmentCount int         `json:"installmentCount,omitempty"`
	Frequency        Frequency   `json:"frequency,omitempty"`
}

// Billset is a priced bundle attached to a product
type Billset struct {
	ID        string        `json:"id"`
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	Items     []BillsetItem `json:"items"`
}

// Product is a sellable product that can carry billsets
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Billsets []Billset `json:"billsets,omitempty"`
}
