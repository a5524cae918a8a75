package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/clock"
	"github.com/dennisdiepolder/monti/agentdesk/internal/inflight"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

var issue = time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

func installment(name string, total types.Cents, count int, freq types.Frequency) types.InvoiceItem {
	return types.InvoiceItem{
		ID:               name,
		Name:             name,
		Quantity:         1,
		UnitPrice:        total,
		Total:            total,
		VatRate:          "20",
		PaymentType:      types.PaymentInstallment,
		InstallmentCount: count,
		Frequency:        freq,
	}
}

func oneTime(name string, total types.Cents) types.InvoiceItem {
	return types.InvoiceItem{ID: name, Name: name, Quantity: 1, UnitPrice: total, Total: total, VatRate: "20", PaymentType: types.PaymentOneTime}
}

func TestSplitHundredInThree(t *testing.T) {
	parts := Split(10000, 3)
	assert.Equal(t, []types.Cents{3334, 3333, 3333}, parts)
}

func TestSplitSumsExactly(t *testing.T) {
	for _, total := range []types.Cents{1, 99, 10000, 12345, 99999, 100001} {
		for count := 1; count <= 13; count++ {
			parts := Split(total, count)
			require.Len(t, parts, count)

			var sum types.Cents
			for i, p := range parts {
				sum += p
				if i > 0 {
					assert.Equal(t, total/types.Cents(count), p, "only the first installment may differ")
				}
			}
			assert.Equal(t, total, sum, "total=%s count=%d", total, count)
		}
	}
	assert.Nil(t, Split(100, 0))
}

func TestSplitNegativeTotalFloors(t *testing.T) {
	assert.Equal(t, []types.Cents{-32, -34, -34}, Split(-100, 3))

	for _, total := range []types.Cents{-1, -99, -10000, -12345} {
		for count := 1; count <= 7; count++ {
			parts := Split(total, count)
			var sum types.Cents
			for i, p := range parts {
				sum += p
				if i > 0 {
					assert.GreaterOrEqual(t, parts[0], p, "the first installment carries the non-negative remainder")
				}
			}
			assert.Equal(t, total, sum, "total=%s count=%d", total, count)
		}
	}
}

func TestVAT(t *testing.T) {
	vat, err := VAT(12000, "20")
	require.NoError(t, err)
	assert.Equal(t, types.Cents(2000), vat)

	vat, err = VAT(3334, "20")
	require.NoError(t, err)
	assert.Equal(t, types.Cents(556), vat)

	vat, err = VAT(1000, "")
	require.NoError(t, err)
	assert.Zero(t, vat)

	_, err = VAT(1000, "-5")
	assert.Error(t, err)
}

func TestBuildPlan(t *testing.T) {
	items := []types.InvoiceItem{
		oneTime("setup", 5000),
		installment("storage", 10000, 3, types.FrequencyMonthly),
		installment("collection", 2000, 2, types.FrequencyMonthly),
		installment("broken", 1000, 0, types.FrequencyMonthly),
	}

	plan, err := BuildPlan(items, issue)
	require.NoError(t, err)

	require.NotNil(t, plan.Immediate)
	assert.Len(t, plan.Immediate.Lines, 3)
	assert.Equal(t, types.Cents(5000+3334+1000), plan.Immediate.Totals.Total)

	require.Len(t, plan.Scheduled, 2)
	assert.Equal(t, 2, plan.Scheduled[0].InstallmentNumber)
	assert.Len(t, plan.Scheduled[0].Lines, 2)
	assert.Equal(t, 3, plan.Scheduled[1].InstallmentNumber)
	assert.Len(t, plan.Scheduled[1].Lines, 1)

	// month stepping clamps through AddDate normalisation
	assert.Equal(t, issue.AddDate(0, 1, 0), plan.Scheduled[0].Date)
	assert.Equal(t, issue.AddDate(0, 2, 0), plan.Scheduled[1].Date)

	require.Len(t, plan.Ignored, 1)
	assert.Equal(t, "broken", plan.Ignored[0].Name)
	assert.Equal(t, types.Cents(5000+10000+2000), plan.Total())

	for _, line := range plan.Immediate.Lines {
		assert.Equal(t, line.Total, line.Subtotal+line.VatAmount)
	}
}

func TestBuildPlanYearlyForcesYearStepping(t *testing.T) {
	items := []types.InvoiceItem{
		installment("monthly", 3000, 3, types.FrequencyMonthly),
		installment("yearly", 2000, 2, types.FrequencyYearly),
	}
	plan, err := BuildPlan(items, issue)
	require.NoError(t, err)

	assert.True(t, plan.Yearly)
	require.Len(t, plan.Scheduled, 2)
	assert.Equal(t, issue.AddDate(1, 0, 0), plan.Scheduled[0].Date)
	assert.Equal(t, issue.AddDate(2, 0, 0), plan.Scheduled[1].Date)
}

func TestBuildPlanEmpty(t *testing.T) {
	plan, err := BuildPlan(nil, issue)
	require.NoError(t, err)
	assert.Nil(t, plan.Immediate)
	assert.Empty(t, plan.Scheduled)
}

func TestWizardCloseResets(t *testing.T) {
	w := NewWizard()
	w.Open("cust-1")

	_, err := w.AddItem(types.InvoiceItem{Name: "Storage", Quantity: 2, UnitPrice: 1250, VatRate: "20"})
	require.NoError(t, err)
	w.SelectProduct(types.Product{ID: "p-1", Name: "Cord blood"})
	require.NoError(t, w.ApplyBillset(types.Billset{ID: "b-1", ProductID: "p-1", Items: []types.BillsetItem{
		{Name: "Collection", Price: 49900, VatRate: "20", PaymentType: types.PaymentOneTime},
	}}))
	w.SetBillingDetails(types.BillingDetails{ID: "bd-1"})

	w.Close()
	w.Open("cust-1")

	state := w.State()
	assert.True(t, state.Open)
	assert.Empty(t, state.Items)
	assert.Nil(t, state.Product)
	assert.Nil(t, state.Billset)
	assert.Nil(t, state.BillingDetails)
}

func TestWizardItemTotals(t *testing.T) {
	w := NewWizard()
	w.Open("cust-1")

	item, err := w.AddItem(types.InvoiceItem{Name: "Storage", Quantity: 3, UnitPrice: 3333, VatRate: "20"})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, types.Cents(9999), item.Total)

	_, err = w.AddItem(types.InvoiceItem{Name: "Bad", Quantity: 1, VatRate: "-1"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, w.ApplyBillset(types.Billset{ID: "b-1", Items: []types.BillsetItem{
		{Name: "Storage", Price: 120000, VatRate: "20", PaymentType: types.PaymentInstallment, InstallmentCount: 12, Frequency: types.FrequencyMonthly},
	}}))
	state := w.State()
	require.Len(t, state.Items, 1)
	assert.True(t, state.Items[0].PriceOverridden)
	assert.Equal(t, types.Cents(120000), state.Items[0].Total)
}

type fakeBackend struct {
	authErr      error
	number       string
	createErr    error
	failSchedule map[int]bool

	created   []types.Invoice
	scheduled []types.ScheduledInvoice
}

func (f *fakeBackend) CheckAuth(ctx context.Context) error { return f.authErr }

func (f *fakeBackend) GenerateNumber(ctx context.Context, rangeID string) (string, error) {
	return f.number, nil
}

func (f *fakeBackend) CreateInvoice(ctx context.Context, inv types.Invoice) (types.Invoice, error) {
	if f.createErr != nil {
		return types.Invoice{}, f.createErr
	}
	inv.ID = "inv-1"
	f.created = append(f.created, inv)
	return inv, nil
}

func (f *fakeBackend) CreateScheduledInvoice(ctx context.Context, s types.ScheduledInvoice) (types.ScheduledInvoice, error) {
	if f.failSchedule[s.InstallmentNumber] {
		return types.ScheduledInvoice{}, errors.New("500: boom")
	}
	f.scheduled = append(f.scheduled, s)
	return s, nil
}

func newSubmitter(b Backend) *Submitter {
	guard := inflight.NewGuard("invoice", clock.NewFake(issue), 0, zerolog.Nop())
	return NewSubmitter(b, guard, zerolog.Nop())
}

func submitRequest() SubmitRequest {
	return SubmitRequest{
		CustomerID:     "cust-1",
		Items:          []types.InvoiceItem{oneTime("setup", 5000), installment("storage", 10000, 3, types.FrequencyMonthly)},
		BillingDetails: &types.BillingDetails{ID: "bd-1", Name: "Cells s.r.o.", IBAN: "SK3112000000198742637541", Currency: "EUR", NumberRangeID: "nr-1"},
		IssueDate:      issue,
	}
}

func TestSubmitPreconditionsBeforeNetwork(t *testing.T) {
	backend := &fakeBackend{authErr: errors.New("should not be called")}
	s := newSubmitter(backend)

	req := submitRequest()
	req.CustomerID = ""
	_, err := s.Submit(context.Background(), req)
	assert.True(t, apperr.Is(err, apperr.KindPrecondition))

	req = submitRequest()
	req.Items = nil
	_, err = s.Submit(context.Background(), req)
	assert.True(t, apperr.Is(err, apperr.KindPrecondition))
	assert.Empty(t, backend.created)
}

func TestSubmitAuthExpired(t *testing.T) {
	backend := &fakeBackend{authErr: errors.New("401: token expired")}
	s := newSubmitter(backend)

	_, err := s.Submit(context.Background(), submitRequest())
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.Empty(t, backend.created)
	assert.False(t, s.guard.Busy(), "guard must be released")
}

func TestSubmitFirstInvoiceFailureAborts(t *testing.T) {
	backend := &fakeBackend{number: "2026-0042", createErr: errors.New("422: invalid")}
	s := newSubmitter(backend)

	_, err := s.Submit(context.Background(), submitRequest())
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	assert.Empty(t, backend.scheduled)
}

func TestSubmitPartialScheduleFailure(t *testing.T) {
	backend := &fakeBackend{number: "FA-2026-0042", failSchedule: map[int]bool{2: true}}
	s := newSubmitter(backend)

	res, err := s.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	assert.Equal(t, "inv-1", res.Invoice.ID)
	assert.Equal(t, 1, res.ScheduledCreated)
	assert.Equal(t, 1, res.ScheduledFailed)

	require.Len(t, backend.created, 1)
	inv := backend.created[0]
	assert.Equal(t, "FA-2026-0042", inv.Number)
	assert.Equal(t, "20260042", inv.Payment.VariableSymbol)
	assert.Equal(t, issue.AddDate(0, 0, defaultDueDays), inv.DueDate)
	assert.Equal(t, types.Cents(5000+3334), inv.Totals.Total)

	require.Len(t, backend.scheduled, 1)
	assert.Equal(t, "inv-1", backend.scheduled[0].ParentInvoiceID)
	assert.Equal(t, 3, backend.scheduled[0].InstallmentNumber)
}

func TestSubmitRejectsConcurrent(t *testing.T) {
	s := newSubmitter(&fakeBackend{})
	release, ok := s.guard.TryAcquire()
	require.True(t, ok)
	defer release()

	_, err := s.Submit(context.Background(), submitRequest())
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestSubmitWizardClosesOnSuccess(t *testing.T) {
	w := NewWizard()
	w.Open("cust-1")
	_, err := w.AddItem(oneTime("setup", 5000))
	require.NoError(t, err)
	w.SetBillingDetails(types.BillingDetails{ID: "bd-1", IBAN: "SK3112000000198742637541", Currency: "EUR"})

	s := newSubmitter(&fakeBackend{})
	_, err = s.SubmitWizard(context.Background(), w, issue, "")
	require.NoError(t, err)
	assert.False(t, w.State().Open)
}

func TestVariableSymbol(t *testing.T) {
	assert.Equal(t, "20260042", VariableSymbol("FA-2026/0042"))
	assert.Equal(t, "2345678901", VariableSymbol("12345678901"))
	assert.Equal(t, "", VariableSymbol(""))
}
