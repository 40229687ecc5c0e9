package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/bookcart/internal/domain"
	"github.com/fjod/bookcart/internal/service"
	"github.com/go-chi/chi/v5"
)

type CheckoutService interface {
	Checkout(ctx context.Context, key service.CartKey) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	key      keyFunc
	timeout  time.Duration
}

func NewGuestCheckoutHandler(checkout CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, key: guestKey, timeout: timeout}
}

func NewCustomerCheckoutHandler(checkout CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, key: customerKey, timeout: timeout}
}

// POST /checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := h.key(w, r)
	if !ok {
		return
	}

	invoice, err := h.checkout.Checkout(ctx, key)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, invoice)
}

// GET /invoices/{invoice_id}
func (h *CheckoutHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "invoice_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_invoice_id", "invoice_id must be an integer")
		return
	}

	invoice, err := h.checkout.GetInvoice(ctx, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}
