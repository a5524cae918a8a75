package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/qrpay"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// QRHandler builds payment QR payloads and renders them as PNG
type QRHandler struct {
	size   int
	logger zerolog.Logger
}

// NewQRHandler creates a new QRHandler; size is the default PNG edge in pixels
func NewQRHandler(size int, logger zerolog.Logger) *QRHandler {
	if size <= 0 {
		size = qrpay.DefaultSize
	}
	return &QRHandler{
		size:   size,
		logger: logger.With().Str("component", "qr_api").Logger(),
	}
}

// Routes mounts the QR endpoints
func (h *QRHandler) Routes(r chi.Router) {
	r.Route("/qr", func(r chi.Router) {
		r.Post("/preview", h.Preview)
		r.Post("/invoice", h.Invoice)
		r.Post("/png", h.PNG)
	})
}

// Preview handles POST /api/qr/preview: both payloads without an amount.
// A payload that cannot be built is returned empty.
func (h *QRHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var f qrpay.Fields
	if err := decode(r, &f); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, qrpay.Preview(f))
}

// Invoice handles POST /api/qr/invoice: both payloads with the invoice total injected
func (h *QRHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	var inv types.Invoice
	if err := decode(r, &inv); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, qrpay.ForInvoice(inv))
}

type pngRequest struct {
	Payload string `json:"payload" validate:"required"`
	Size    int    `json:"size,omitempty" validate:"omitempty,min=64,max=2048"`
}

// PNG handles POST /api/qr/png
func (h *QRHandler) PNG(w http.ResponseWriter, r *http.Request) {
	var req pngRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	size := req.Size
	if size == 0 {
		size = h.size
	}

	png, err := qrpay.Rasterize(req.Payload, size)
	if err != nil {
		h.logger.Warn().Err(err).Int("payload_len", len(req.Payload)).Msg("failed to rasterize qr")
		writeError(w, apperr.Validation(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
