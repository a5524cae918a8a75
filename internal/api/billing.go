package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/billing"
	"github.com/dennisdiepolder/monti/agentdesk/internal/clock"
	"github.com/dennisdiepolder/monti/agentdesk/internal/events"
	"github.com/dennisdiepolder/monti/agentdesk/internal/inflight"
	"github.com/dennisdiepolder/monti/agentdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/agentdesk/internal/qrpay"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

const dateLayout = "2006-01-02"

// Catalog is the CRM backend the invoice wizard works against
type Catalog interface {
	billing.Backend
	ListProducts(ctx context.Context) ([]types.Product, error)
	ListBillsets(ctx context.Context, productID string) ([]types.Billset, error)
	ListBillingDetails(ctx context.Context) ([]types.BillingDetails, error)
}

// desk is one user's invoice wizard with its own submit guard
type desk struct {
	wizard    *billing.Wizard
	submitter *billing.Submitter
}

// BillingHandler serves the invoice wizard of every user
type BillingHandler struct {
	catalog       Catalog
	publisher     events.Publisher
	clock         clock.Clock
	submitTimeout time.Duration
	skipAuth      bool
	logger        zerolog.Logger

	mu    sync.Mutex
	desks map[string]*desk
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(catalog Catalog, publisher events.Publisher, submitTimeout time.Duration, skipAuth bool, logger zerolog.Logger) *BillingHandler {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &BillingHandler{
		catalog:       catalog,
		publisher:     publisher,
		clock:         clock.Real{},
		submitTimeout: submitTimeout,
		skipAuth:      skipAuth,
		logger:        logger.With().Str("component", "billing_api").Logger(),
		desks:         make(map[string]*desk),
	}
}

// Routes mounts the billing endpoints
func (h *BillingHandler) Routes(r chi.Router) {
	r.Route("/billing", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{productId}/billsets", h.ListBillsets)
		r.Get("/billing-details", h.ListBillingDetails)

		r.Route("/wizard", func(r chi.Router) {
			r.Get("/", h.State)
			r.Post("/open", h.Open)
			r.Delete("/", h.Close)
			r.Post("/items", h.AddItem)
			r.Put("/items/{itemId}", h.UpdateItem)
			r.Delete("/items/{itemId}", h.RemoveItem)
			r.Put("/product", h.SelectProduct)
			r.Put("/billset", h.ApplyBillset)
			r.Put("/billing-details", h.SetBillingDetails)
			r.Get("/preview", h.Preview)
			r.Post("/submit", h.Submit)
		})
	})
}

// desk returns the caller's wizard, creating it on first use
func (h *BillingHandler) desk(w http.ResponseWriter, r *http.Request) (*desk, context.Context, bool) {
	agent, ctx, err := identify(r, h.skipAuth)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.desks[agent.ID]
	if !ok {
		guard := inflight.NewGuard("invoice_submit:"+agent.ID, h.clock, h.submitTimeout, h.logger)
		d = &desk{
			wizard:    billing.NewWizard(),
			submitter: billing.NewSubmitter(h.catalog, guard, h.logger),
		}
		h.desks[agent.ID] = d
	}
	return d, ctx, true
}

func (h *BillingHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	_, ctx, err := identify(r, h.skipAuth)
	if err != nil {
		writeError(w, err)
		return
	}
	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if products == nil {
		products = []types.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *BillingHandler) ListBillsets(w http.ResponseWriter, r *http.Request) {
	_, ctx, err := identify(r, h.skipAuth)
	if err != nil {
		writeError(w, err)
		return
	}
	billsets, err := h.catalog.ListBillsets(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if billsets == nil {
		billsets = []types.Billset{}
	}
	writeJSON(w, http.StatusOK, billsets)
}

func (h *BillingHandler) ListBillingDetails(w http.ResponseWriter, r *http.Request) {
	_, ctx, err := identify(r, h.skipAuth)
	if err != nil {
		writeError(w, err)
		return
	}
	details, err := h.catalog.ListBillingDetails(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if details == nil {
		details = []types.BillingDetails{}
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *BillingHandler) State(w http.ResponseWriter, r *http.Request) {
	d, _, ok := h.desk(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.wizard.State())
}

type openWizardRequest struct {
	CustomerID string `json:"customerId" validate:"required"`
}

// Open handles POST /api/billing/wizard/open. Reopening for the same customer keeps the cart.
func (h *BillingHandler) Open(w http.ResponseWriter, r *http.Request) {
	d, _, ok := h.desk(w, r)
	if !ok {
		return
	}
	var req openWizardRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d.wizard.Open(req.CustomerID)
	writeJSON(w, http.StatusOK, d.wizard.State())
}

func (h *BillingHandler) Close(w http.ResponseWriter, r *http.Request) {
	d, _, ok := h.desk(w, r)
	if !ok {
		return
	}
	d.wizard.Close()
	writeJSON(w, http.StatusOK, d.wizard.State())
}

func (h *BillingHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	d, _, ok := h.desk(w, r)
	if !ok {
		return
	}
	var item types.InvoiceItem
	if err := decode(r, &item); err != nil {
		writeError(w, err)
		return
	}
	added, err := d.wizard.AddItem(item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (h *BillingHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	d, _, ok := h.desk(w, r)
	if !ok {
		return
	}
	var item types.InvoiceItem
	if err := decode(r, &item); err != nil {
		writeError(w, err)
		return
	}
	item.ID = chi.URLParam(r, "itemId")
	updated, err := d.wizard.UpdateItem(item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *BillingHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	d, _, ok := h.desk(w, r)
	if !ok {
		return
	}
	if !d.wizard.RemoveItem(chi.URLParam(r, "itemId")) {
		writeError(w, apperr.NotFound("item not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type productRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// SelectProduct handles PUT /api/billing/wizard/product
func (h *BillingHandler) SelectProduct(w http.ResponseWriter, r *http.Request) {
	d, ctx, ok := h.desk(w, r)
	if !ok {
		return
	}
	var req productRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, p := range products {
		if p.ID == req.ProductID {
			d.wizard.SelectProduct(p)
			writeJSON(w, http.StatusOK, d.wizard.State())
			return
		}
	}
	writeError(w, apperr.NotFound("product not found"))
}

type billsetRequest struct {
	ProductID string `json:"productId" validate:"required"`
	BillsetID string `json:"billsetId" validate:"required"`
}

// ApplyBillset handles PUT /api/billing/wizard/billset; the cart is replaced by its lines
func (h *BillingHandler) ApplyBillset(w http.ResponseWriter, r *http.Request) {
	d, ctx, ok := h.desk(w, r)
	if !ok {
		return
	}
	var req billsetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	billsets, err := h.catalog.ListBillsets(ctx, req.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, b := range billsets {
		if b.ID == req.BillsetID {
			if err := d.wizard.ApplyBillset(b); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, d.wizard.State())
			return
		}
	}
	writeError(w, apperr.NotFound("billset not found"))
}

type billingDetailsRequest struct {
	BillingDetailsID string `json:"billingDetailsId" validate:"required"`
}

func (h *BillingHandler) SetBillingDetails(w http.ResponseWriter, r *http.Request) {
	d, ctx, ok := h.desk(w, r)
	if !ok {
		return
	}
	var req billingDetailsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	all, err := h.catalog.ListBillingDetails(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, bd := range all {
		if bd.ID == req.BillingDetailsID {
			d.wizard.SetBillingDetails(bd)
			writeJSON(w, http.StatusOK, d.wizard.State())
			return
		}
	}
	writeError(w, apperr.NotFound("billing details not found"))
}

// Preview handles GET /api/billing/wizard/preview?issueDate=YYYY-MM-DD
func (h *BillingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	d, _, ok := h.desk(w, r)
	if !ok {
		return
	}
	issueDate, err := h.issueDate(r.URL.Query().Get("issueDate"))
	if err != nil {
		writeError(w, err)
		return
	}
	plan, err := d.wizard.Preview(issueDate)
	if err != nil {
		writeError(w, apperr.Validation(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": plan, "total": plan.Total()})
}

type submitRequest struct {
	IssueDate      string `json:"issueDate,omitempty"`
	VariableSymbol string `json:"variableSymbol,omitempty" validate:"omitempty,numeric,max=10"`
}

// SubmitResponse is the created invoice, schedule counts and the invoice's QR payloads
type SubmitResponse struct {
	billing.SubmitResult
	QR qrpay.Payloads `json:"qr"`
}

// Submit handles POST /api/billing/wizard/submit
func (h *BillingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	d, ctx, ok := h.desk(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	issueDate, err := h.issueDate(req.IssueDate)
	if err != nil {
		writeError(w, err)
		return
	}

	m := metrics.Get()
	result, err := d.submitter.SubmitWizard(ctx, d.wizard, issueDate, req.VariableSymbol)
	if err != nil {
		m.RecordInvoiceSubmitError()
		writeError(w, err)
		return
	}
	m.RecordInvoiceSubmit(result.ScheduledCreated, result.ScheduledFailed)

	agent, _, _ := identify(r, h.skipAuth)
	if err := h.publisher.Publish(ctx, events.New(events.InvoiceCreated, agent.ID, h.clock.Now(), result)); err != nil {
		h.logger.Warn().Err(err).Str("invoice_id", result.Invoice.ID).Msg("failed to publish invoice event")
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{
		SubmitResult: result,
		QR:           qrpay.ForInvoice(result.Invoice),
	})
}

// issueDate parses YYYY-MM-DD, defaulting to today
func (h *BillingHandler) issueDate(raw string) (time.Time, error) {
	if raw == "" {
		now := h.clock.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperr.Validation("issueDate must be YYYY-MM-DD")
	}
	return t, nil
}
