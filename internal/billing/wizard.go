package billing

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// WizardState is a snapshot of the invoice wizard
type WizardState struct {
	Open           bool                  `json:"open"`
	CustomerID     string                `json:"customerId,omitempty"`
	Items          []types.InvoiceItem   `json:"items"`
	Product        *types.Product        `json:"product,omitempty"`
	Billset        *types.Billset        `json:"billset,omitempty"`
	BillingDetails *types.BillingDetails `json:"billingDetails,omitempty"`
}

// Wizard holds one user's invoice cart between opening and submitting
type Wizard struct {
	mu         sync.Mutex
	open       bool
	customerID string
	items      []types.InvoiceItem
	product    *types.Product
	billset    *types.Billset
	details    *types.BillingDetails
}

// NewWizard returns a closed wizard
func NewWizard() *Wizard {
	return &Wizard{}
}

// Open starts the wizard for a customer. Reopening for the same customer keeps the cart.
func (w *Wizard) Open(customerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.open && w.customerID == customerID {
		return
	}
	w.resetLocked()
	w.open = true
	w.customerID = customerID
}

// Close discards the cart, product, billset and billing details
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

// AddItem appends a cart line and returns it with its id and total filled in
func (w *Wizard) AddItem(item types.InvoiceItem) (types.InvoiceItem, error) {
	if _, err := ParseRate(item.VatRate); err != nil {
		return types.InvoiceItem{}, apperr.Validation(err.Error())
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return types.InvoiceItem{}, apperr.Precondition("invoice wizard is not open")
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	normalizeItem(&item)
	w.items = append(w.items, item)
	return item, nil
}

// UpdateItem replaces a cart line by id
func (w *Wizard) UpdateItem(item types.InvoiceItem) (types.InvoiceItem, error) {
	if _, err := ParseRate(item.VatRate); err != nil {
		return types.InvoiceItem{}, apperr.Validation(err.Error())
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.items {
		if w.items[i].ID == item.ID {
			normalizeItem(&item)
			w.items[i] = item
			return item, nil
		}
	}
	return types.InvoiceItem{}, apperr.NotFound("invoice item not found: " + item.ID)
}

// RemoveItem drops a cart line
func (w *Wizard) RemoveItem(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.items {
		if w.items[i].ID == id {
			w.items = append(w.items[:i:i], w.items[i+1:]...)
			return true
		}
	}
	return false
}

// SelectProduct chooses the product whose billsets are offered. It clears a billset
// chosen for another product.
func (w *Wizard) SelectProduct(p types.Product) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.product = &p
	if w.billset != nil && w.billset.ProductID != p.ID {
		w.billset = nil
	}
}

// ApplyBillset replaces the cart with the billset's priced lines
func (w *Wizard) ApplyBillset(b types.Billset) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return apperr.Precondition("invoice wizard is not open")
	}

	items := make([]types.InvoiceItem, 0, len(b.Items))
	for _, bi := range b.Items {
		items = append(items, types.InvoiceItem{
			ID:               uuid.New().String(),
			Name:             bi.Name,
			Quantity:         1,
			UnitPrice:        bi.Price,
			VatRate:          bi.VatRate,
			Total:            bi.Price,
			PaymentType:      bi.PaymentType,
			InstallmentCount: bi.InstallmentCount,
			Frequency:        bi.Frequency,
			PriceOverridden:  true,
		})
	}
	w.items = items
	w.billset = &b
	return nil
}

// SetBillingDetails picks the issuing entity
func (w *Wizard) SetBillingDetails(d types.BillingDetails) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.details = &d
}

// State returns a copy of the wizard
func (w *Wizard) State() WizardState {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := WizardState{
		Open:           w.open,
		CustomerID:     w.customerID,
		Items:          append([]types.InvoiceItem{}, w.items...),
		Product:        w.product,
		Billset:        w.billset,
		BillingDetails: w.details,
	}
	return s
}

// Preview plans the current cart as of issueDate
func (w *Wizard) Preview(issueDate time.Time) (Plan, error) {
	w.mu.Lock()
	items := append([]types.InvoiceItem(nil), w.items...)
	w.mu.Unlock()
	return BuildPlan(items, issueDate)
}

// Request turns the cart into a submission request
func (w *Wizard) Request(issueDate time.Time) SubmitRequest {
	w.mu.Lock()
	defer w.mu.Unlock()

	req := SubmitRequest{
		CustomerID: w.customerID,
		Items:      append([]types.InvoiceItem(nil), w.items...),
		IssueDate:  issueDate,
	}
	if w.details != nil {
		d := *w.details
		req.BillingDetails = &d
	}
	return req
}

func (w *Wizard) resetLocked() {
	w.open = false
	w.customerID = ""
	w.items = nil
	w.product = nil
	w.billset = nil
	w.details = nil
}

func normalizeItem(item *types.InvoiceItem) {
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if !item.PriceOverridden {
		item.Total = ItemTotal(item.UnitPrice, item.Quantity)
	}
	if item.IsInstallment() && item.Frequency == "" {
		item.Frequency = types.FrequencyMonthly
	}
}
