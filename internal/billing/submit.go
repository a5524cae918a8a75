package billing

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/inflight"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

const defaultDueDays = 14

// Backend is the part of the CRM API invoice submission needs
type Backend interface {
	CheckAuth(ctx context.Context) error
	GenerateNumber(ctx context.Context, rangeID string) (string, error)
	CreateInvoice(ctx context.Context, inv types.Invoice) (types.Invoice, error)
	CreateScheduledInvoice(ctx context.Context, s types.ScheduledInvoice) (types.ScheduledInvoice, error)
}

// SubmitRequest is everything needed to issue a cart
type SubmitRequest struct {
	CustomerID     string
	Items          []types.InvoiceItem
	BillingDetails *types.BillingDetails
	IssueDate      time.Time
	// VariableSymbol overrides the symbol derived from the invoice number
	VariableSymbol string
}

// SubmitResult reports the created invoice and how the schedule went
type SubmitResult struct {
	Invoice          types.Invoice `json:"invoice"`
	ScheduledCreated int           `json:"scheduledCreated"`
	ScheduledFailed  int           `json:"scheduledFailed"`
	Ignored          []string      `json:"ignored,omitempty"`
}

// Submitter creates the immediate invoice and queues the scheduled ones
type Submitter struct {
	backend Backend
	guard   *inflight.Guard
	logger  zerolog.Logger
}

// NewSubmitter wires a submitter to its backend and in-flight guard
func NewSubmitter(backend Backend, guard *inflight.Guard, logger zerolog.Logger) *Submitter {
	return &Submitter{
		backend: backend,
		guard:   guard,
		logger:  logger.With().Str("component", "invoice_submitter").Logger(),
	}
}

// Submit issues the cart. Local preconditions are checked before any network call and
// the session is verified before anything is written. A failed first invoice aborts;
// failed scheduled invoices are logged and counted.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	release, ok := s.guard.TryAcquire()
	if !ok {
		return SubmitResult{}, apperr.Conflict("an invoice submission is already in progress")
	}
	defer release()

	if strings.TrimSpace(req.CustomerID) == "" {
		return SubmitResult{}, apperr.Precondition("no customer selected")
	}
	if len(req.Items) == 0 {
		return SubmitResult{}, apperr.Precondition("cart is empty")
	}
	if req.BillingDetails == nil {
		return SubmitResult{}, apperr.Precondition("no billing details selected")
	}

	plan, err := BuildPlan(req.Items, req.IssueDate)
	if err != nil {
		return SubmitResult{}, apperr.Validation(err.Error())
	}
	if plan.Immediate == nil {
		return SubmitResult{}, apperr.Precondition("cart has nothing to invoice")
	}

	if err := s.backend.CheckAuth(ctx); err != nil {
		if apperr.Is(err, apperr.KindUnauthorized) {
			return SubmitResult{}, err
		}
		return SubmitResult{}, apperr.Wrap(apperr.KindUnauthorized, "session expired, please log in again", err)
	}

	details := *req.BillingDetails
	number := ""
	if details.NumberRangeID != "" {
		number, err = s.backend.GenerateNumber(ctx, details.NumberRangeID)
		if err != nil {
			return SubmitResult{}, apperr.Upstream("could not generate invoice number", err)
		}
	}

	vs := req.VariableSymbol
	if vs == "" {
		vs = VariableSymbol(number)
	}
	first := buildInvoice(req.CustomerID, details, *plan.Immediate, number, vs)
	created, err := s.backend.CreateInvoice(ctx, first)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", req.CustomerID).Msg("Failed to create invoice")
		return SubmitResult{}, apperr.Upstream("invoice could not be created", err)
	}

	result := SubmitResult{Invoice: created}
	for _, item := range plan.Ignored {
		result.Ignored = append(result.Ignored, item.Name)
	}

	for _, planned := range plan.Scheduled {
		scheduled := types.ScheduledInvoice{
			CustomerID:        req.CustomerID,
			ParentInvoiceID:   created.ID,
			ScheduledDate:     planned.Date,
			InstallmentNumber: planned.InstallmentNumber,
			Invoice:           buildInvoice(req.CustomerID, details, planned, "", vs),
		}
		if _, err := s.backend.CreateScheduledInvoice(ctx, scheduled); err != nil {
			s.logger.Warn().
				Err(err).
				Str("invoice_id", created.ID).
				Int("installment", planned.InstallmentNumber).
				Msg("Failed to schedule installment invoice")
			result.ScheduledFailed++
			continue
		}
		result.ScheduledCreated++
	}

	s.logger.Info().
		Str("invoice_id", created.ID).
		Str("number", created.Number).
		Int("scheduled", result.ScheduledCreated).
		Int("failed", result.ScheduledFailed).
		Msg("Invoice submitted")

	return result, nil
}

func buildInvoice(customerID string, details types.BillingDetails, planned PlannedInvoice, number, vs string) types.Invoice {
	dueDays := details.DueDays
	if dueDays <= 0 {
		dueDays = defaultDueDays
	}
	return types.Invoice{
		Number:           number,
		CustomerID:       customerID,
		BillingDetailsID: details.ID,
		IssueDate:        planned.Date,
		DueDate:          planned.Date.AddDate(0, 0, dueDays),
		Lines:            planned.Lines,
		Totals:           planned.Totals,
		InstallmentNo:    planned.InstallmentNumber,
		Payment: types.PaymentDetails{
			IBAN:           details.IBAN,
			SWIFT:          details.SWIFT,
			Currency:       details.Currency,
			VariableSymbol: vs,
			ConstantSymbol: details.ConstantSymbol,
			RecipientName:  details.Name,
		},
	}
}

// VariableSymbol keeps the last ten digits of an invoice number
func VariableSymbol(number string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

// SubmitWizard submits the wizard's cart and closes the wizard when the first invoice
// was created. An empty variableSymbol is derived from the invoice number.
func (s *Submitter) SubmitWizard(ctx context.Context, w *Wizard, issueDate time.Time, variableSymbol string) (SubmitResult, error) {
	req := w.Request(issueDate)
	req.VariableSymbol = variableSymbol
	result, err := s.Submit(ctx, req)
	if err != nil {
		return result, err
	}
	w.Close()
	return result, nil
}
